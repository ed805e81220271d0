package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/google/uuid"
	"github.com/nao1215/burrow/internal/gopher"
	"github.com/nao1215/burrow/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "burrow.db"

// Outcome values stored in the status column.
const (
	StatusOK        = "ok"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

var (
	// ErrInvalidVisit is returned by Record for a visit without URL or host.
	ErrInvalidVisit = errors.New("visit needs a URL and a host")

	// ErrNotFound is returned by Open when the database is missing and may not be created.
	ErrNotFound = errors.New("fetch log not found")
)

// VisitLog provides SQLite-based storage for the fetch log.
type VisitLog struct {
	db     *sql.DB
	dbPath string
}

// Options configures VisitLog behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the fetch log in dbDir.
// With CreateIfNotExists false a missing database is an error.
func Open(dbDir string, opts Options) (*VisitLog, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a new file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	vl := &VisitLog{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := vl.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return vl, nil
}

// Close closes the database connection.
func (vl *VisitLog) Close() error {
	return vl.db.Close()
}

// Path returns the database file path.
func (vl *VisitLog) Path() string {
	return vl.dbPath
}

func (vl *VisitLog) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS visits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fetch_id TEXT NOT NULL,
		url TEXT NOT NULL,
		host TEXT NOT NULL,
		port INTEGER NOT NULL,
		selector TEXT NOT NULL DEFAULT '',
		item_type TEXT NOT NULL DEFAULT '',
		bytes INTEGER NOT NULL DEFAULT 0,
		sha256 TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error_kind TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_visits_host ON visits(host);
	CREATE INDEX IF NOT EXISTS idx_visits_timestamp ON visits(timestamp);
	CREATE INDEX IF NOT EXISTS idx_visits_fetch_id ON visits(fetch_id);
	`

	_, err := vl.db.ExecContext(context.Background(), schema)
	return err
}

// Visit is one row of the fetch log.
type Visit struct {
	ID        int64
	FetchID   string
	URL       string
	Host      string
	Port      int
	Selector  string
	ItemType  string
	Bytes     int64
	SHA256    string
	Status    string
	ErrorKind string
	Duration  time.Duration
	Timestamp time.Time
}

// NewVisit builds a log row from the outcome of a fetch.
// page is nil on failure; err is nil on success.
func NewVisit(id uuid.UUID, addr model.Address, page *model.Page, err error, elapsed time.Duration) *Visit {
	v := &Visit{
		FetchID:   id.String(),
		URL:       addr.URL(),
		Host:      strings.ToLower(addr.Host),
		Port:      addr.Port,
		Selector:  addr.Selector,
		Status:    StatusOK,
		Duration:  elapsed,
		Timestamp: time.Now(),
	}

	switch {
	case err != nil:
		kind := gopher.KindOf(err)
		v.ErrorKind = kind.String()
		v.Status = StatusFailed
		if kind == gopher.KindUserCancelled {
			v.Status = StatusCancelled
		}
		v.ItemType = addr.ItemType().String()
	case page != nil:
		v.ItemType = page.Type.String()
		v.Bytes = page.Size
		v.SHA256 = page.Hash
		if !page.FetchedAt.IsZero() {
			v.Timestamp = page.FetchedAt
		}
	}
	return v
}

// Record inserts a visit and returns its row ID.
func (vl *VisitLog) Record(ctx context.Context, v *Visit) (int64, error) {
	if v.URL == "" || v.Host == "" {
		return 0, ErrInvalidVisit
	}
	ts := v.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	query := `
	INSERT INTO visits (fetch_id, url, host, port, selector, item_type, bytes, sha256, status, error_kind, duration_ms, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := vl.db.ExecContext(ctx, query,
		v.FetchID, v.URL, strings.ToLower(v.Host), v.Port, v.Selector, v.ItemType,
		v.Bytes, v.SHA256, v.Status, v.ErrorKind, v.Duration.Milliseconds(),
		ts.UTC().Format(timestampLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record visit: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read visit id: %w", err)
	}
	v.ID = id
	return id, nil
}

const visitColumns = `id, fetch_id, url, host, port, selector, item_type, bytes, sha256, status, error_kind, duration_ms, timestamp`

// Recent returns the latest visits, newest first. A limit of zero or less returns all.
func (vl *VisitLog) Recent(ctx context.Context, limit int) ([]Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits ORDER BY timestamp DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return vl.queryVisits(ctx, query, args...)
}

// ByHost returns the visits to one host, newest first. Host matching ignores case.
func (vl *VisitLog) ByHost(ctx context.Context, host string, limit int) ([]Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE host = ? ORDER BY timestamp DESC, id DESC`
	args := []any{strings.ToLower(host)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return vl.queryVisits(ctx, query, args...)
}

// ByFetchID returns the visit recorded for a fetch, or nil if there is none.
func (vl *VisitLog) ByFetchID(ctx context.Context, fetchID string) (*Visit, error) {
	visits, err := vl.queryVisits(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE fetch_id = ? ORDER BY id DESC LIMIT 1`, fetchID)
	if err != nil {
		return nil, err
	}
	if len(visits) == 0 {
		return nil, nil
	}
	return &visits[0], nil
}

func (vl *VisitLog) queryVisits(ctx context.Context, query string, args ...any) ([]Visit, error) {
	rows, err := vl.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var (
			v          Visit
			durationMS int64
			timestamp  string
		)
		if err := rows.Scan(&v.ID, &v.FetchID, &v.URL, &v.Host, &v.Port, &v.Selector, &v.ItemType,
			&v.Bytes, &v.SHA256, &v.Status, &v.ErrorKind, &durationMS, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		v.Duration = time.Duration(durationMS) * time.Millisecond
		v.Timestamp = parseTimestamp(timestamp)
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// HostSummary aggregates the fetch log for one host.
type HostSummary struct {
	Host      string
	Visits    int
	Failures  int
	Bytes     int64
	LastVisit time.Time
}

// Hosts returns one summary per visited host, most recently visited first.
func (vl *VisitLog) Hosts(ctx context.Context) ([]HostSummary, error) {
	query := `
	SELECT host,
		COUNT(*),
		SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
		COALESCE(SUM(bytes), 0),
		MAX(timestamp)
	FROM visits
	GROUP BY host
	ORDER BY MAX(timestamp) DESC, host
	`

	rows, err := vl.db.QueryContext(ctx, query, StatusFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to query hosts: %w", err)
	}
	defer rows.Close()

	var hosts []HostSummary
	for rows.Next() {
		var (
			h    HostSummary
			last string
		)
		if err := rows.Scan(&h.Host, &h.Visits, &h.Failures, &h.Bytes, &last); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		h.LastVisit = parseTimestamp(last)
		hosts = append(hosts, h)
	}
	return hosts, rows.Err()
}

// Prune deletes visits older than before and returns how many were removed.
func (vl *VisitLog) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := vl.db.ExecContext(ctx, `DELETE FROM visits WHERE timestamp < ?`,
		before.UTC().Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune visits: %w", err)
	}
	return result.RowsAffected()
}

// timestampLayout is fixed-width so that timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestampFormats are tried in order when reading a timestamp back.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp parses s with the first matching format, or returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
