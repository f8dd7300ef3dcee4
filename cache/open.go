// CLAUDE:SUMMARY Opens the editor cache SQLite database: WAL, tunable busy_timeout/synchronous, schema, BUSY retry helpers.
// Package cache persists serialized documents in SQLite.
//
// Open applies these pragmas before the schema:
//
//	journal_mode = WAL
//	busy_timeout = 10000   (WithBusyTimeout, config key cache.busy_timeout)
//	synchronous  = NORMAL  (WithSynchronous, config key cache.synchronous)
//
// Usage:
//
//	import _ "modernc.org/sqlite"
//	db, err := cache.Open("editor.db", cache.WithMkdirAll())
//	store := cache.NewStore(db, nil)
//
// In tests:
//
//	store := cache.NewStore(cache.OpenMemory(t), nil)
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Defaults applied by Open.
const (
	DefaultBusyTimeout = 10_000
	DefaultSynchronous = "NORMAL"
)

// ErrInvalidOption is returned by Open for an out-of-range option value.
var ErrInvalidOption = errors.New("cache: invalid option")

// Schema is the cache table. It is applied by Open.
const Schema = `CREATE TABLE IF NOT EXISTS editor_cache (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

var synchronousModes = map[string]bool{"OFF": true, "NORMAL": true, "FULL": true, "EXTRA": true}

type openOptions struct {
	busyTimeout int
	synchronous string
	mkdirAll    bool
}

// Option customises Open.
type Option func(*openOptions)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Zero keeps the
// default.
func WithBusyTimeout(ms int) Option {
	return func(o *openOptions) {
		if ms != 0 {
			o.busyTimeout = ms
		}
	}
}

// WithSynchronous sets PRAGMA synchronous: OFF, NORMAL, FULL or EXTRA, in
// any case. Empty keeps the default.
func WithSynchronous(mode string) Option {
	return func(o *openOptions) {
		if mode != "" {
			o.synchronous = strings.ToUpper(mode)
		}
	}
}

// WithMkdirAll creates the parent directories of a file database.
func WithMkdirAll() Option { return func(o *openOptions) { o.mkdirAll = true } }

// Open opens the cache database at path, applies the pragmas and Schema,
// and pings it. MemoryPath gets a single connection, since every
// connection to it would see its own empty database. The caller must
// blank-import the driver:
//
//	import _ "modernc.org/sqlite"
func Open(path string, opts ...Option) (*sql.DB, error) {
	o := openOptions{busyTimeout: DefaultBusyTimeout, synchronous: DefaultSynchronous}
	for _, opt := range opts {
		opt(&o)
	}
	if o.busyTimeout < 0 {
		return nil, fmt.Errorf("cache: open: busy_timeout %d: %w", o.busyTimeout, ErrInvalidOption)
	}
	if !synchronousModes[o.synchronous] {
		return nil, fmt.Errorf("cache: open: synchronous %q: %w", o.synchronous, ErrInvalidOption)
	}

	memory := path == MemoryPath
	if o.mkdirAll && !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("cache: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}

	statements := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.busyTimeout),
		"PRAGMA synchronous = " + o.synchronous,
		Schema,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("cache: open: %s: %w", firstLine(stmt), err)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	return db, nil
}

// OpenMemory opens an in-memory cache database closed at test cleanup.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(MemoryPath, opts...)
	if err != nil {
		t.Fatalf("cache.OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

const maxRetries = 3

// IsBusy reports whether err indicates an SQLite BUSY condition.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// execRetry runs a write, retrying with a linear backoff while the
// database reports BUSY.
func execRetry(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		var res sql.Result
		if res, err = db.ExecContext(ctx, query, args...); err == nil || !IsBusy(err) {
			return res, err
		}
		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("cache: retry: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("cache: busy after %d attempts: %w", maxRetries, err)
}
