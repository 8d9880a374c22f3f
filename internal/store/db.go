package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect captures the few SQL differences between the supported drivers.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Placeholder returns the n-th (1-based) bind parameter marker.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// DB wraps sql.DB together with its dialect.
type DB struct {
	Client  *sql.DB
	Dialect Dialect
}

// NewDB creates a Postgres connection through pgx with sane defaults.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &DB{Client: db, Dialect: Postgres}, db.PingContext(context.Background())
}

// OpenSQLite opens (and creates) a local SQLite database file. Use ":memory:" for tests.
func OpenSQLite(path string) (*DB, error) {
	dsn := "file::memory:?_pragma=foreign_keys(ON)"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	return &DB{Client: db, Dialect: SQLite}, db.PingContext(context.Background())
}

// InitSchema creates the tables used by the self-hosted backends when they are missing.
func (d *DB) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS students (
			id       TEXT PRIMARY KEY,
			qr_code  TEXT UNIQUE NOT NULL,
			name     TEXT NOT NULL,
			email    TEXT NOT NULL DEFAULT '',
			contact  TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS attendance (
			id          TEXT PRIMARY KEY,
			student_id  TEXT NOT NULL REFERENCES students(id),
			"date"      TEXT NOT NULL,
			"time"      TEXT NOT NULL,
			"type"      TEXT NOT NULL,
			status      TEXT NOT NULL DEFAULT 'present'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance("date")`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance(student_id)`,
		`CREATE TABLE IF NOT EXISTS operators (
			id            TEXT PRIMARY KEY,
			email         TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
