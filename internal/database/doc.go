// Package database keeps burrow's fetch log in SQLite.
//
// Every fetch, successful or not, becomes one row in burrow.db: fetch ID,
// address, resolved type, size, SHA-256 of the body, outcome, error kind,
// duration and time. Bodies and search terms are never stored.
//
// The driver is modernc.org/sqlite, which needs no cgo. The database runs in
// WAL mode so the history command can read while a browse session writes.
package database
