package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nao1215/burrow/internal/batch"
	"github.com/nao1215/burrow/internal/config"
	"github.com/nao1215/burrow/internal/gopher"
	"github.com/nao1215/burrow/internal/media"
	"github.com/nao1215/burrow/internal/model"
	"github.com/nao1215/burrow/internal/report"
	"github.com/spf13/cobra"
)

// errFetchFailed is returned when at least one target could not be fetched.
var errFetchFailed = errors.New("fetch failed")

// fetchOptions are the flags of the fetch command.
type fetchOptions struct {
	itemType     model.ItemType
	query        string
	previewWidth int
}

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch URL...",
		Short: "Fetch one or more Gopher items",
		Long: `Fetch retrieves Gopher items and prints them.

Menus are listed with a type label per item, text files are printed as is
and binary items are summarized. With -o, a single binary item is streamed
to the file instead of memory; for anything else -o receives the report.

Targets are gopher URLs, host[:port][/selector] or @bookmark names from the
configuration file.

Examples:
  # Fetch the root menu of a server
  burrow fetch gopher://gopher.floodgap.com/

  # Run a full-text search
  burrow fetch --query "gopher history" gopher://gopher.floodgap.com/7/v2/vs

  # Download a binary item
  burrow fetch -o archive.zip gopher://example.org/9/files/archive.zip

  # Fetch several targets concurrently and write a JSON report
  burrow fetch --json -o report.json @home gopher://example.org/1/news

  # Fetch an onion Gopher hole through a running Tor daemon
  burrow fetch --proxy 127.0.0.1:9050 gopher://<v3-address>.onion/`,
		Args: cobra.ArbitraryArgs,
		RunE: runFetchCmd,
	}

	cmd.Flags().String("type", "",
		"Item type code to request when the URL has none (e.g. 0 for text, 1 for menu, 9 for binary)")
	cmd.Flags().StringP("query", "q", "", "Search terms for a full-text search item (type 7)")
	cmd.Flags().Int("preview", 0, "Render image items as character art up to this many columns")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize, "Number of concurrent fetches")

	// Report flags
	cmd.Flags().BoolP("json", "j", false, "Output a JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false, "Output a Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the report, or a single binary item, to this file (creates directories if needed)")

	return cmd
}

// runFetchCmd executes the fetch command.
func runFetchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	opts, err := buildFetchOptions(cmd, cfg)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := setupLogger(cmd, cfg.Verbose)
	if err != nil {
		return err
	}

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	requests, err := buildRequests(cfg, opts)
	if err != nil {
		return err
	}

	t, err := openTransport(ctx, cfg, logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer t.Close()

	streamed := streamTarget(cfg, requests)
	entries, err := runFetch(ctx, cfg, t.router, requests, streamed, logger)
	if err != nil {
		return err
	}

	if err := outputEntries(cmd.OutOrStdout(), cfg, opts, entries, streamed); err != nil {
		return err
	}

	failed := 0
	for _, e := range entries {
		if e.Failed() && gopher.KindOf(e.Err) != gopher.KindUserCancelled {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d targets", errFetchFailed, failed, len(entries))
	}
	return nil
}

// buildFetchOptions reads the fetch flags into cfg and the returned options.
func buildFetchOptions(cmd *cobra.Command, cfg *config.Config) (fetchOptions, error) {
	var opts fetchOptions
	flags := cmd.Flags()

	code, err := flags.GetString("type")
	if err != nil {
		return opts, err
	}
	if code != "" {
		if len(code) != 1 || !model.IsItemTypeCode(code[0]) {
			return opts, fmt.Errorf("unknown item type %q", code)
		}
		opts.itemType = model.ItemTypeFromCode(code[0])
	}

	if opts.query, err = flags.GetString("query"); err != nil {
		return opts, err
	}
	if opts.previewWidth, err = flags.GetInt("preview"); err != nil {
		return opts, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return opts, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}
	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return opts, err
	}
	return opts, nil
}

// pending is a target on its way to becoming a report entry.
type pending struct {
	target  string
	request gopher.Request

	// err is set when the target could not be turned into an address.
	err error
}

// buildRequests resolves bookmarks and parses every target. A bookmark that
// does not exist is a usage error; an unparsable URL becomes a failed entry.
func buildRequests(cfg *config.Config, opts fetchOptions) ([]pending, error) {
	requests := make([]pending, 0, len(cfg.Targets))
	for _, target := range cfg.Targets {
		raw, err := cfg.File.ResolveTarget(target)
		if err != nil {
			return nil, err
		}

		p := pending{target: target}
		addr, err := model.ParseAddress(raw)
		if err != nil {
			p.err = &gopher.FetchError{Kind: gopher.KindInvalidURL, Err: err}
		}
		p.request = gopher.Request{Address: addr, Type: opts.itemType, Query: opts.query}
		requests = append(requests, p)
	}
	return requests, nil
}

// streamTarget reports whether the only request is a binary item that should
// go straight to the output file.
func streamTarget(cfg *config.Config, requests []pending) bool {
	if cfg.OutputFile == "" || len(requests) != 1 || requests[0].err != nil {
		return false
	}
	req := requests[0].request
	t := req.Type
	if t == model.ItemTypeUnknown {
		t = req.Address.ItemType()
	}
	return t.IsBinary()
}

// runFetch fetches every target and returns the report entries in target order.
// With streamed set the single request is written to the output file instead.
func runFetch(ctx context.Context, cfg *config.Config, fetcher batch.Fetcher, requests []pending, streamed bool, logger *slog.Logger) ([]*report.Entry, error) {
	entries := make([]*report.Entry, len(requests))

	if streamed {
		entry, err := fetchToFile(ctx, fetcher, requests[0], cfg.OutputFile)
		if err != nil {
			return nil, err
		}
		return []*report.Entry{entry}, nil
	}

	var (
		batchRequests []gopher.Request
		positions     []int
	)
	for i, p := range requests {
		if p.err != nil {
			entries[i] = &report.Entry{Target: p.target, Err: p.err}
			continue
		}
		batchRequests = append(batchRequests, p.request)
		positions = append(positions, i)
	}

	bf := batch.New(fetcher,
		batch.WithConcurrency(cfg.BatchSize),
		batch.WithLogger(logger),
	)
	outcomes, err := bf.FetchAll(ctx, batchRequests)
	if err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}

	for _, o := range outcomes {
		i := positions[o.Index]
		entry := &report.Entry{
			Target:  requests[i].target,
			Address: o.Request.Address,
			Page:    o.Page,
			Err:     o.Err,
			Elapsed: o.Elapsed,
		}
		var fe *gopher.FetchError
		if errors.Is(o.Err, context.Canceled) && !errors.As(o.Err, &fe) {
			// Never started: the batch was cancelled first.
			entry.Err = &gopher.FetchError{Kind: gopher.KindUserCancelled, Address: o.Request.Address}
		}
		inspectImage(entry, logger)
		entries[i] = entry
	}
	return entries, nil
}

// fetchToFile streams a single item into path.
func fetchToFile(ctx context.Context, fetcher batch.Fetcher, p pending, path string) (*report.Entry, error) {
	f, err := createOutputFile(path)
	if err != nil {
		return nil, err
	}

	req := p.request
	req.Sink = f
	started := time.Now()
	page, fetchErr := fetcher.Fetch(ctx, req)
	elapsed := time.Since(started)

	if err := f.Close(); err != nil && fetchErr == nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}

	entry := &report.Entry{Target: p.target, Address: req.Address, Page: page, Err: fetchErr, Elapsed: elapsed}
	if fetchErr != nil {
		// Do not leave a truncated download behind.
		_ = os.Remove(path) //nolint:errcheck // Best effort cleanup
		return entry, nil
	}
	entry.SavedTo = path
	return entry, nil
}

// inspectImage attaches image metadata to buffered image pages.
func inspectImage(entry *report.Entry, logger *slog.Logger) {
	page := entry.Page
	if page == nil || !page.Type.IsImage() || page.Raw == nil {
		return
	}
	info, err := media.Inspect(page.Raw)
	if err != nil {
		logger.Debug("image not inspected", "url", page.URL, "error", err)
		return
	}
	entry.Image = info
	if sensitive := info.SensitiveTags(); len(sensitive) > 0 {
		logger.Warn("image carries identifying EXIF metadata", "url", page.URL, "tags", len(sensitive))
	}
}

// outputEntries writes the entries in the requested format. When -o took a
// streamed download the report stays on stdout; otherwise -o receives the report.
func outputEntries(stdout io.Writer, cfg *config.Config, opts fetchOptions, entries []*report.Entry, streamed bool) error {
	if cfg.OutputFile == "" || streamed {
		return writeEntries(stdout, cfg, opts, entries)
	}

	f, err := createOutputFile(cfg.OutputFile)
	if err != nil {
		return err
	}
	if err := writeEntries(f, cfg, opts, entries); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", cfg.OutputFile, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", cfg.OutputFile, err)
	}
	return nil
}

func writeEntries(output io.Writer, cfg *config.Config, opts fetchOptions, entries []*report.Entry) error {
	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithImagePreview(opts.previewWidth))
	}

	var err error
	if len(entries) == 1 {
		_, err = writer.Write(entries[0])
	} else {
		_, err = writer.WriteAll(entries)
	}
	return err
}

// createOutputFile creates path and its parent directories. Files are
// created with owner-only permissions: reports list the hosts visited.
func createOutputFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}
