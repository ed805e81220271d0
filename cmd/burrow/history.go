package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/nao1215/burrow/internal/config"
	"github.com/nao1215/burrow/internal/database"
	"github.com/spf13/cobra"
)

// historyTimeFormat is how timestamps are shown in history tables.
const historyTimeFormat = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the fetch log",
		Long: `History lists recorded fetches, most recent first.

The fetch log keeps the URL, item type, size, SHA-256 and outcome of each
fetch. Page content and search terms are never recorded.

Examples:
  # Show the last 20 fetches
  burrow history

  # Show fetches of one host
  burrow history --host gopher.floodgap.com --limit 50

  # Summarize per host
  burrow history --hosts

  # Forget fetches older than 30 days
  burrow history --prune 720h`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("host", "", "Only show fetches of this host")
	cmd.Flags().IntP("limit", "n", config.DefaultHistoryLimit, "Maximum number of fetches to show")
	cmd.Flags().Bool("hosts", false, "Show one summary line per host instead of single fetches")
	cmd.Flags().Duration("prune", 0, "Delete fetches older than this age")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd, nil)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	host, err := flags.GetString("host")
	if err != nil {
		return err
	}
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	hosts, err := flags.GetBool("hosts")
	if err != nil {
		return err
	}
	prune, err := flags.GetDuration("prune")
	if err != nil {
		return err
	}
	if limit <= 0 {
		return fmt.Errorf("invalid limit %d: must be positive", limit)
	}
	if prune < 0 {
		return fmt.Errorf("invalid prune age %s: must be positive", prune)
	}

	out := cmd.OutOrStdout()
	visits, err := database.Open(cfg.DBDir, database.Options{EnableWAL: true})
	if errors.Is(err, database.ErrNotFound) {
		fmt.Fprintln(out, "No fetches recorded yet.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open fetch log: %w", err)
	}
	defer visits.Close()

	ctx := cmd.Context()
	switch {
	case prune > 0:
		return pruneHistory(ctx, out, visits, prune)
	case hosts:
		return printHostSummaries(ctx, out, visits)
	default:
		return printVisits(ctx, out, visits, host, limit)
	}
}

func pruneHistory(ctx context.Context, out io.Writer, visits *database.VisitLog, age time.Duration) error {
	removed, err := visits.Prune(ctx, time.Now().Add(-age))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed %d fetches older than %s.\n", removed, age)
	return nil
}

func printVisits(ctx context.Context, out io.Writer, visits *database.VisitLog, host string, limit int) error {
	var (
		rows []database.Visit
		err  error
	)
	if host != "" {
		rows, err = visits.ByHost(ctx, host, limit)
	} else {
		rows, err = visits.Recent(ctx, limit)
	}
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No fetches recorded yet.")
		return nil
	}

	t := newHistoryTable("Time", "Status", "Type", "Bytes", "Duration", "URL")
	for _, v := range rows {
		status := v.Status
		if v.ErrorKind != "" && v.Status != database.StatusCancelled {
			status = v.ErrorKind
		}
		t.Row(
			v.Timestamp.Local().Format(historyTimeFormat),
			status,
			v.ItemType,
			strconv.FormatInt(v.Bytes, 10),
			v.Duration.Round(time.Millisecond).String(),
			v.URL,
		)
	}
	fmt.Fprintln(out, t.String())
	return nil
}

func printHostSummaries(ctx context.Context, out io.Writer, visits *database.VisitLog) error {
	hosts, err := visits.Hosts(ctx)
	if err != nil {
		return err
	}
	if len(hosts) == 0 {
		fmt.Fprintln(out, "No fetches recorded yet.")
		return nil
	}

	t := newHistoryTable("Host", "Fetches", "Failed", "Bytes", "Last fetch")
	for _, h := range hosts {
		t.Row(
			h.Host,
			strconv.Itoa(h.Visits),
			strconv.Itoa(h.Failures),
			strconv.FormatInt(h.Bytes, 10),
			h.LastVisit.Local().Format(historyTimeFormat),
		)
	}
	fmt.Fprintln(out, t.String())
	return nil
}

// newHistoryTable returns a bordered table with a bold header row.
func newHistoryTable(headers ...string) *table.Table {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
}
