// Package sqlstore implements the credential store and conversation log on a
// relational database. PostgreSQL is reached through pgx; SQLite through the
// pure-Go modernc driver, which is also what the tests use.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const defaultTimeout = 10 * time.Second

// Dialect selects the SQL flavour.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Config captures the settings required to open the database.
type Config struct {
	Dialect Dialect
	// DSN is a pgx connection string for Postgres or a file path for SQLite.
	// ":memory:" opens a private in-memory SQLite database.
	DSN     string
	Timeout time.Duration
}

// DB wraps *sql.DB with the dialect it was opened with.
type DB struct {
	*sql.DB
	dialect Dialect
}

// Open connects, verifies connectivity with a ping and returns the handle.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var (
		driver string
		dsn    = cfg.DSN
	)
	switch cfg.Dialect {
	case Postgres:
		driver = "pgx"
	case SQLite:
		driver = "sqlite"
		dsn = sqliteDSN(cfg.DSN)
	default:
		return nil, fmt.Errorf("sqlstore: unknown dialect %q", cfg.Dialect)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore open: %w", err)
	}
	if cfg.Dialect == SQLite {
		// One connection keeps an in-memory database alive and serialises writers.
		sqlDB.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore ping: %w", err)
	}

	return &DB{DB: sqlDB, dialect: cfg.Dialect}, nil
}

func sqliteDSN(path string) string {
	const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path == ":memory:" || path == "" {
		return "file::memory:?" + pragmas
	}
	return "file:" + path + "?" + pragmas
}

// Dialect reports the SQL flavour of the handle.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// rebind rewrites $n placeholders into SQLite's ?n form.
func (db *DB) rebind(query string) string {
	if db.dialect == SQLite {
		return strings.ReplaceAll(query, "$", "?")
	}
	return query
}

var schema = map[Dialect][]string{
	Postgres: {
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGSERIAL PRIMARY KEY,
			username      TEXT   NOT NULL UNIQUE,
			password_hash TEXT   NOT NULL,
			role          TEXT   NOT NULL,
			created_at    BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id         BIGSERIAL PRIMARY KEY,
			user_id    BIGINT NOT NULL REFERENCES users (id),
			sender     TEXT   NOT NULL,
			content    TEXT   NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS chat_messages_user_created_idx ON chat_messages (user_id, created_at, id)`,
	},
	SQLite: {
		`CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT    NOT NULL UNIQUE,
			password_hash TEXT    NOT NULL,
			role          TEXT    NOT NULL,
			created_at    INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL REFERENCES users (id),
			sender     TEXT    NOT NULL,
			content    TEXT    NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS chat_messages_user_created_idx ON chat_messages (user_id, created_at, id)`,
	},
}

// EnsureSchema creates the tables and indexes when they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, stmt := range schema[db.dialect] {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a unique-constraint failure in
// either dialect.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
