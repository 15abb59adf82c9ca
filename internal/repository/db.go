package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Config mirrors common.DatabaseConfig without importing it, so the package
// stays usable from tests with a two-field literal.
type Config struct {
	DSN              string
	MaxConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DB wraps a database handle plus the dialect it speaks. Postgres DSNs go
// through a pgx pool; everything else is treated as a sqlite path/URI.
type DB struct {
	SQL    *sql.DB
	pool   *pgxpool.Pool // nil for sqlite
	pg     bool
	logger *slog.Logger
}

// Open connects and runs migrations.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database", "dsn", cfg.DSN)

	var d *DB
	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			logger.Error("failed to parse database config", "error", err)
			return nil, err
		}
		if cfg.MaxConns > 0 {
			pc.MaxConns = cfg.MaxConns
		}
		pc.MaxConnLifetime = cfg.MaxConnLifetime
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
		pc.ConnConfig.RuntimeParams["application_name"] = "docintel"
		if cfg.StatementTimeout > 0 {
			pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
		}

		dialCtx := ctx
		if cfg.DialTimeout > 0 {
			var cancel context.CancelFunc
			dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
			defer cancel()
		}
		pool, err := pgxpool.NewWithConfig(dialCtx, pc)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, err
		}
		d = &DB{SQL: stdlib.OpenDBFromPool(pool), pool: pool, pg: true, logger: logger}
	} else {
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			logger.Error("failed to open sqlite database", "error", err)
			return nil, err
		}
		// Serialized writes; one connection avoids SQLITE_BUSY under the
		// per-document orchestrator goroutines.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				logger.Warn("sqlite pragma failed", "pragma", pragma, "error", err)
			}
		}
		d = &DB{SQL: db, logger: logger}
	}

	if err := d.migrate(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("successfully connected to database", "dialect", d.dialect())
	return d, nil
}

// Close closes the database connections gracefully.
func (d *DB) Close() {
	d.logger.Info("closing database connections")
	if d.SQL != nil {
		if err := d.SQL.Close(); err != nil {
			d.logger.Error("failed to close database handle", "error", err)
		}
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

// HealthCheck pings to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return d.SQL.PingContext(ctx)
}

func (d *DB) dialect() string {
	if d.pg {
		return "postgres"
	}
	return "sqlite"
}

// rebind rewrites ?-style placeholders to $N for postgres. Queries in this
// package are written with ? and contain no literal question marks.
func (d *DB) rebind(query string) string {
	if !d.pg {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			doc_id           TEXT PRIMARY KEY,
			filename         TEXT NOT NULL,
			total_pages      INTEGER NOT NULL,
			status           TEXT NOT NULL DEFAULT 'raw',
			document_summary TEXT NOT NULL DEFAULT '',
			keywords         TEXT NOT NULL DEFAULT '[]',
			has_file         BOOLEAN NOT NULL DEFAULT FALSE,
			created_at       TIMESTAMP NOT NULL,
			updated_at       TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pages (
			doc_id          TEXT NOT NULL,
			page_num        INTEGER NOT NULL,
			raw_text        TEXT NOT NULL DEFAULT '',
			text_length     INTEGER NOT NULL DEFAULT 0,
			status          TEXT NOT NULL DEFAULT 'raw',
			page_summary    TEXT NOT NULL DEFAULT '',
			keywords        TEXT NOT NULL DEFAULT '[]',
			structured_data TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMP NOT NULL,
			updated_at      TIMESTAMP NOT NULL,
			PRIMARY KEY (doc_id, page_num)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_doc ON pages (doc_id)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_created ON documents (created_at)`,
	}
	for _, s := range stmts {
		if _, err := d.SQL.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
