package main

import (
	"fmt"
	"os"

	"github.com/nao1215/burrow/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for burrow.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "burrow",
		Short: "A Gopher client for the terminal",
		Long: `burrow fetches and browses Gopher holes (RFC 1436).

Menus, text files and binary items can be fetched directly or through a
SOCKS5 proxy. Onion Gopher holes need Tor: pass --proxy for a running Tor
daemon or --tor to start an embedded one.

Every fetch is recorded in a local fetch log (URL, type, size, hash and
outcome, never the content). Use --no-log to disable it.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	flags := cmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.String("log-format", "text", "Log format: text or json")
	flags.StringP("config", "c", "",
		"Configuration file path (default: .burrow in the current directory, the XDG config dir or home)")
	flags.String("proxy", "",
		"SOCKS5 proxy for every fetch, [user:password@]host:port (e.g. a Tor daemon at 127.0.0.1:9050)")
	flags.Bool("tor", false, "Start an embedded Tor daemon and fetch through it")
	flags.Duration("tor-timeout", config.DefaultTorStartupTimeout, "Timeout for embedded Tor startup")
	flags.DurationP("timeout", "t", config.DefaultTimeout, "Connect timeout for each fetch")
	flags.Duration("read-timeout", config.DefaultReadTimeout,
		"Longest a server may stay silent during a fetch")
	flags.Bool("no-log", false, "Do not record fetches in the fetch log")
	flags.String("data-dir", config.XDGDataDir(), "Directory holding the fetch log")

	// Add subcommands
	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewBrowseCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
