// Package sqlkv implements kv.Table on database/sql.
//
// Two dialects are supported: "sqlite" (modernc.org/sqlite, pure Go) and
// "pgx" (PostgreSQL through the pgx stdlib driver). Transient backend errors
// are retried with exponential backoff; anything that survives the retry
// policy is returned wrapped in domain.ErrStorageUnavailable.
package sqlkv

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register the "pgx" driver.
	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure Go SQLite driver.

	"keyrelay/internal/domain"
)

// RetryConfig bounds how hard a single operation tries before giving up.
type RetryConfig struct {
	Attempts int
	Min      time.Duration
	Max      time.Duration
}

// DefaultRetry is used when a RetryConfig field is left zero.
var DefaultRetry = RetryConfig{Attempts: 4, Min: 10 * time.Millisecond, Max: 500 * time.Millisecond}

// Config selects the driver and connection.
type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	Retry        RetryConfig
}

type dialect struct {
	name     string
	blobType string
	init     []string
}

var dialects = map[string]dialect{
	"sqlite": {name: "sqlite", blobType: "BLOB", init: []string{"PRAGMA busy_timeout = 5000"}},
	"pgx":    {name: "pgx", blobType: "BYTEA"},
}

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// DB is a connection pool shared by the tables of one database.
type DB struct {
	conn    *sql.DB
	dialect dialect
	retry   RetryConfig
}

// Open connects to the database described by cfg.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	d, ok := dialects[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	conn, err := sql.Open(d.name, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	switch {
	case d.name == "sqlite":
		// SQLite allows a single writer, and an in-memory database only
		// lives as long as its connection.
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
	case cfg.MaxOpenConns > 0:
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", domain.ErrStorageUnavailable, d.name, err)
	}
	for _, stmt := range d.init {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return &DB{conn: conn, dialect: d, retry: withDefaults(cfg.Retry)}, nil
}

func withDefaults(r RetryConfig) RetryConfig {
	if r.Attempts <= 0 {
		r.Attempts = DefaultRetry.Attempts
	}
	if r.Min <= 0 {
		r.Min = DefaultRetry.Min
	}
	if r.Max <= 0 {
		r.Max = DefaultRetry.Max
	}
	return r
}

// Close releases the connection pool.
func (d *DB) Close() error { return d.conn.Close() }

// Driver returns the dialect name.
func (d *DB) Driver() string { return d.dialect.name }

// Migrate creates the named tables if they do not exist.
func (d *DB) Migrate(ctx context.Context, names ...string) error {
	for _, name := range names {
		if !tableName.MatchString(name) {
			return fmt.Errorf("invalid table name %q", name)
		}
		stmt := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				account_id TEXT NOT NULL,
				device_id BIGINT NOT NULL,
				bucket SMALLINT NOT NULL,
				key_id BIGINT NOT NULL,
				value %s NOT NULL,
				PRIMARY KEY (account_id, device_id, bucket, key_id)
			)`, name, d.dialect.blobType)
		err := d.do(ctx, "migrate "+name, func(ctx context.Context) error {
			_, err := d.conn.ExecContext(ctx, stmt)
			return err
		})
		if err != nil {
			return err
		}
		zerolog.Ctx(ctx).Debug().Str("table", name).Msg("table ready")
	}
	return nil
}

// Table returns a handle on an existing table.
func (d *DB) Table(name string) (*Table, error) {
	if !tableName.MatchString(name) {
		return nil, fmt.Errorf("invalid table name %q", name)
	}
	return newTable(d, name), nil
}

// Begin starts a transaction.
func (d *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// do runs fn until it succeeds, fails permanently or runs out of attempts.
// fn must leave no partial effect behind when it returns an error.
func (d *DB) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	logger := zerolog.Ctx(ctx)
	b := backoff.Backoff{Min: d.retry.Min, Max: d.retry.Max, Factor: 2, Jitter: true}
	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", op, ctxErr)
		}
		if !transient(err) || int(b.Attempt())+1 >= d.retry.Attempts {
			logger.Warn().Err(err).Str("op", op).Float64("attempts", b.Attempt()+1).Msg("storage operation failed")
			return fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, op, err)
		}
		delay := b.Duration()
		logger.Debug().Err(err).Str("op", op).Dur("delay", delay).Msg("retrying storage operation")
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}
}
