// Package database persists research queries and their results in SQLite.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/TobiSchelling/orgscout/internal/logging"
)

var (
	// ErrNotFound is returned when a research query does not exist.
	ErrNotFound = errors.New("research query not found")
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the record's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// DB wraps a SQLite database connection.
type DB struct {
	conn   *sqlx.DB
	path   string
	now    func() time.Time
	logger *zap.Logger
}

// Open creates or opens a SQLite database at the given path.
func Open(dbPath string, logger *zap.Logger) (*DB, error) {
	logger = logging.OrNop(logger)

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if err := migrate(conn.DB, logger); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath, now: time.Now, logger: logger}, nil
}

// NewFromConn wraps an already-open connection without migrating it.
func NewFromConn(conn *sql.DB, driverName string, logger *zap.Logger) *DB {
	return &DB{
		conn:   sqlx.NewDb(conn, driverName),
		now:    time.Now,
		logger: logging.OrNop(logger),
	}
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
