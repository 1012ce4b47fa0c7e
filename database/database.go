package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"repost-bot/errs"

	_ "github.com/mattn/go-sqlite3" // Import the SQLite3 driver
	"github.com/rs/zerolog"
)

// MemoryPath opens a private in-memory database. Used by tests.
const MemoryPath = ":memory:"

// DB is the sqlite-backed ledger. It implements MutableStore.
type DB struct {
	conn *sql.DB
	log  zerolog.Logger
	now  func() time.Time
}

// Option customises a DB.
type Option func(*DB)

// WithClock overrides the time source used for processing stamps.
func WithClock(now func() time.Time) Option {
	return func(d *DB) { d.now = now }
}

// InitDB opens the database at dbPath, creating its directory if needed, and
// brings the schema up to date. A migration failure leaves nothing committed.
func InitDB(ctx context.Context, dbPath string, logger zerolog.Logger, opts ...Option) (*DB, error) {
	dsn := dbPath
	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", dbPath)
	} else {
		dsn = "file::memory:?_foreign_keys=on"
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == MemoryPath {
		// every pooled connection would otherwise get its own empty database
		conn.SetMaxOpenConns(1)
	}

	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	d := &DB{conn: conn, log: logger.With().Str("component", "database").Logger(), now: time.Now}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	d.log.Info().Str("path", dbPath).Msg("database ready")
	return d, nil
}

func (d *DB) Close() error { return d.conn.Close() }

// Ping checks that the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return errs.FromStore("ping", d.conn.PingContext(ctx))
}

func (d *DB) stamp() int64 { return d.now().UnixMilli() }

// withTx runs fn inside a transaction, rolling back on error.
func (d *DB) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return errs.FromStore(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return errs.FromStore(op, err)
	}
	return errs.FromStore(op, tx.Commit())
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := time.UnixMilli(ms.Int64)
	return &t
}
