// Package store persists questions, skill and session state, and the
// append-only attempt, misconception and LLM event logs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

var dialects = map[string]string{
	DriverSQLite:   dialect.SQLite,
	DriverPostgres: dialect.Postgres,
	DriverMySQL:    dialect.MySQL,
}

// Store is a SQL-backed store. All state-changing operations that touch
// more than one table run in a single transaction.
type Store struct {
	db      *sql.DB
	drv     *entsql.Driver
	dialect string
	sql     *entsql.DialectBuilder
	now     func() time.Time
}

// Open connects to dsn with the named driver and migrates the schema.
// MySQL DSNs need parseTime=true.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == DriverSQLite {
		// One connection: SQLite serializes writers, and in-memory
		// databases live only as long as their connection.
		db.SetMaxOpenConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	s := &Store{
		db:      db,
		drv:     entsql.OpenDB(d, db),
		dialect: d,
		sql:     entsql.Dialect(d),
		now:     time.Now,
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return s, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the ent dialect name.
func (s *Store) Dialect() string { return s.dialect }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type builder interface {
	Query() (string, []any)
}

func exec(ctx context.Context, q querier, b builder) (sql.Result, error) {
	stmt, args := b.Query()
	return q.ExecContext(ctx, stmt, args...)
}

func queryRow(ctx context.Context, q querier, b builder) *sql.Row {
	stmt, args := b.Query()
	return q.QueryRowContext(ctx, stmt, args...)
}

func queryRows(ctx context.Context, q querier, b builder) (*sql.Rows, error) {
	stmt, args := b.Query()
	return q.QueryContext(ctx, stmt, args...)
}

// DefaultDBPath resolves the SQLite database file path in priority order:
// 1. ADAPTLY_DB environment variable
// 2. $XDG_DATA_HOME/adaptly/adaptly.db
// 3. ~/.local/share/adaptly/adaptly.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("ADAPTLY_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "adaptly", "adaptly.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
