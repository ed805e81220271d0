package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/nao1215/burrow/internal/browser"
	"github.com/nao1215/burrow/internal/config"
	"github.com/nao1215/burrow/internal/gopher"
	"github.com/nao1215/burrow/internal/model"
	"github.com/nao1215/burrow/internal/report"
	"github.com/spf13/cobra"
)

const browseHelp = `Commands:
  N            follow link N
  N terms...   run search N with the given terms
  b            back
  f            forward
  r            reload
  g URL        go to a URL or @bookmark
  h            show the session history
  ?            show this help
  q            quit
Ctrl-C cancels a running fetch.
`

// NewBrowseCmd creates the browse command.
func NewBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse [URL]",
		Short: "Browse gopherspace interactively",
		Long: `Browse opens a line-driven Gopher session.

Menus are printed with a number in front of every link. Type the number to
follow it, or the number followed by search terms for a search item.
Without a URL the home page from the configuration file is opened.

` + browseHelp + `
Examples:
  # Open a server
  burrow browse gopher://gopher.floodgap.com/

  # Open the configured home page
  burrow browse`,
		Args: cobra.MaximumNArgs(1),
		RunE: runBrowseCmd,
	}

	cmd.Flags().Int("preview", 0, "Render image items as character art up to this many columns")
	cmd.Flags().Bool("urls", false, "Show the target URL of every link")

	return cmd
}

// runBrowseCmd executes the browse command.
func runBrowseCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.ValidateTransport(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	start, err := startURL(cfg)
	if err != nil {
		return err
	}

	previewWidth, err := cmd.Flags().GetInt("preview")
	if err != nil {
		return err
	}
	showURLs, err := cmd.Flags().GetBool("urls")
	if err != nil {
		return err
	}

	logger, err := setupLogger(cmd, cfg.Verbose)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Interrupts cancel the running fetch instead of ending the session.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	t, err := openTransport(ctx, cfg, logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer t.Close()

	session := browser.New(t.router, browser.WithLogger(logger))
	defer session.Close()

	b := &browseLoop{
		session: session,
		file:    cfg.File,
		out:     cmd.OutOrStdout(),
		lines:   readLines(ctx, cmd.InOrStdin()),
		signals: sigCh,
		view: &browseView{
			out:    cmd.OutOrStdout(),
			logger: logger,
			writer: report.NewSimpleWriter(cmd.OutOrStdout(),
				report.WithNumbering(true),
				report.WithShowURLs(showURLs),
				report.WithImagePreview(previewWidth),
			),
		},
	}
	return b.run(ctx, start)
}

// startURL returns the URL given on the command line, or the home page.
func startURL(cfg *config.Config) (string, error) {
	if len(cfg.Targets) == 0 {
		home, err := cfg.File.HomeURL()
		if err != nil {
			return "", fmt.Errorf("no URL given: %w", err)
		}
		return home, nil
	}
	return cfg.File.ResolveTarget(cfg.Targets[0])
}

// readLines delivers the lines of r until EOF, then closes the channel.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// browseLoop owns the session: every event and every command is handled here,
// one at a time.
type browseLoop struct {
	session *browser.Session
	view    *browseView
	file    *config.File
	out     io.Writer
	lines   <-chan string
	signals <-chan os.Signal
}

// run opens start and serves commands until quit, end of input or ctx ends.
// Input is only read while no fetch is running; Ctrl-C is always served.
func (b *browseLoop) run(ctx context.Context, start string) error {
	if _, err := b.session.OpenURL(ctx, start, ""); err != nil {
		return err
	}

	for {
		var input <-chan string
		if b.session.Active() == nil {
			input = b.lines
		}

		select {
		case ev := <-b.session.Events():
			if b.session.Handle(ev, b.view) && ev.Kind != browser.EventProgress {
				b.prompt()
			}
		case line, ok := <-input:
			if !ok {
				return nil
			}
			if b.exec(ctx, line) {
				return nil
			}
			if b.session.Active() == nil {
				b.prompt()
			}
		case <-b.signals:
			if b.session.Active() == nil {
				return nil
			}
			b.session.Cancel()
		case <-ctx.Done():
			return nil
		}
	}
}

func (b *browseLoop) prompt() {
	fmt.Fprint(b.out, "> ")
}

// exec runs one command line and reports whether the session should end.
func (b *browseLoop) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "q", "quit":
		return true
	case "?", "help":
		fmt.Fprint(b.out, browseHelp)
	case "b", "back":
		b.showHistoryPage(b.session.Back())
	case "f", "forward":
		b.showHistoryPage(b.session.Forward())
	case "r", "reload":
		if _, err := b.session.Reload(ctx); err != nil {
			fmt.Fprintf(b.out, "%v\n", err)
		}
	case "g", "go":
		if len(fields) < 2 {
			fmt.Fprintln(b.out, "usage: g URL")
			return false
		}
		b.open(ctx, fields[1])
	case "h", "history":
		b.showHistory()
	default:
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			fmt.Fprintf(b.out, "unknown command %q, ? for help\n", fields[0])
			return false
		}
		query := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		b.follow(ctx, n, query)
	}
	return false
}

func (b *browseLoop) open(ctx context.Context, target string) {
	raw, err := b.file.ResolveTarget(target)
	if err != nil {
		fmt.Fprintf(b.out, "%v\n", err)
		return
	}
	if _, err := b.session.OpenURL(ctx, raw, ""); err != nil {
		fmt.Fprintf(b.out, "error: %s: %v\n", gopher.KindInvalidURL, err)
	}
}

// follow opens link n of the current page, as a search when query is set.
func (b *browseLoop) follow(ctx context.Context, n int, query string) {
	current := b.session.History().Current()
	if current == nil {
		fmt.Fprintln(b.out, "no page loaded")
		return
	}
	links := current.Links()
	if n < 1 || n > len(links) {
		fmt.Fprintf(b.out, "no link %d on this page\n", n)
		return
	}
	item := links[n-1]

	var err error
	if item.Type == model.ItemTypeFullTextSearch && query != "" {
		_, err = b.session.Search(ctx, item, query)
	} else {
		_, err = b.session.Follow(ctx, item)
	}

	switch {
	case err == nil:
	case errors.Is(err, browser.ErrExternalLink):
		fmt.Fprintf(b.out, "external link: %s\n", item.ResolvedURL())
	case errors.Is(err, browser.ErrQueryRequired):
		fmt.Fprintf(b.out, "link %d is a search: type %d followed by the search terms\n", n, n)
	default:
		fmt.Fprintf(b.out, "%v\n", err)
	}
}

func (b *browseLoop) showHistoryPage(page *model.Page, ok bool) {
	if !ok {
		fmt.Fprintln(b.out, "no page there")
		return
	}
	b.view.OnPageLoaded(page)
}

func (b *browseLoop) showHistory() {
	h := b.session.History()
	for i, page := range h.Entries() {
		marker := " "
		if i == h.Cursor() {
			marker = "*"
		}
		fmt.Fprintf(b.out, "%s %2d %s\n", marker, i+1, page.URL)
	}
}

// browseView prints what the session delivers.
type browseView struct {
	out    io.Writer
	writer *report.SimpleWriter
	logger *slog.Logger
}

// OnPageLoaded prints the page with numbered links.
func (v *browseView) OnPageLoaded(page *model.Page) {
	entry := &report.Entry{Target: page.URL, Address: page.Address, Page: page}
	inspectImage(entry, v.logger)

	fmt.Fprintf(v.out, "--- %s\n", page.URL)
	if _, err := v.writer.Write(entry); err != nil {
		v.logger.Error("failed to print page", "url", page.URL, "error", err)
	}
}

// OnPageLoadFailed prints the failure class. A cancelled fetch is not an error.
func (v *browseView) OnPageLoadFailed(kind gopher.ErrorKind, address model.Address) {
	if kind == gopher.KindUserCancelled {
		fmt.Fprintf(v.out, "cancelled %s\n", address.URL())
		return
	}
	fmt.Fprintf(v.out, "error: %s: %s\n", kind, address.URL())
}

// OnProgress logs the bytes received so far.
func (v *browseView) OnProgress(address model.Address, received int64) {
	v.logger.Debug("receiving", "url", address.URL(), "bytes", received)
}
