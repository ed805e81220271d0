package main

import (
	"fmt"
	"log/slog"

	"github.com/nao1215/burrow/internal/config"
	"github.com/nao1215/burrow/internal/log"
	"github.com/spf13/cobra"
)

// buildConfig creates a Config from the global flags and the configuration file.
// Values from the file's defaults apply to every flag not given explicitly.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Verbose, err = flags.GetBool("verbose"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UseEmbeddedTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.ReadTimeout, err = flags.GetDuration("read-timeout"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("data-dir"); err != nil {
		return nil, err
	}
	noLog, err := flags.GetBool("no-log")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noLog
	cfg.Targets = args

	file, err := loadConfigFile(cfg.ConfigFilePath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyFile(file, flags.Changed)

	return cfg, nil
}

// loadConfigFile finds and loads the configuration file.
// A missing file is only an error when its path was given explicitly.
func loadConfigFile(explicitPath string) (*config.File, error) {
	path := config.FindConfigFile(explicitPath)
	if path == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitPath)
		}
		return nil, nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return file, nil
}

// setupLogger creates the secure logger selected by --log-format, writing to stderr.
func setupLogger(cmd *cobra.Command, verbose bool) (*slog.Logger, error) {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return nil, err
	}

	switch format {
	case "", "text":
		return log.NewSecureLogger(cmd.ErrOrStderr(), verbose), nil
	case "json":
		return log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (expected text or json)", format)
	}
}
