// ABOUTME: SQLite implementation of the window store using modernc.org/sqlite
// ABOUTME: Emulates redis lists with an autoincrement table ordered by insertion

package window

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store and AtomicStore on a local SQLite database.
// It is meant for single-node deployments without a shared redis.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path. Use ":memory:" for
// an ephemeral database. Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "window-sqlite")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection: keeps ":memory:" a single database and serializes
	// the read-test-write in PushIfAbsent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite window store initialized", "path", path)
	return s, nil
}

// createSchema creates the window table if it doesn't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS window_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			window_key TEXT NOT NULL,
			value TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_window_entries_key_id
			ON window_entries(window_key, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func fetchWindow(ctx context.Context, q queryer, key string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT value FROM window_entries WHERE window_key = ? ORDER BY id DESC`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func pushWindow(ctx context.Context, q queryer, key, value string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO window_entries (window_key, value) VALUES (?, ?)`, key, value)
	return err
}

func trimWindow(ctx context.Context, q queryer, key string, size int) error {
	if size <= 0 {
		return nil
	}
	_, err := q.ExecContext(ctx, `
		DELETE FROM window_entries
		WHERE window_key = ? AND id NOT IN (
			SELECT id FROM window_entries
			WHERE window_key = ?
			ORDER BY id DESC
			LIMIT ?
		)`, key, key, size)
	return err
}

// Fetch returns the window at key, most recently pushed first.
func (s *SQLiteStore) Fetch(ctx context.Context, key string) ([]string, error) {
	items, err := fetchWindow(ctx, s.db, key)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", ErrUnavailable, key, err)
	}
	return items, nil
}

// Push appends a row; higher ids sort to the front of the window.
func (s *SQLiteStore) Push(ctx context.Context, key, value string) error {
	if err := pushWindow(ctx, s.db, key, value); err != nil {
		return fmt.Errorf("%w: pushing %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// Trim deletes every row for key beyond the newest size rows.
func (s *SQLiteStore) Trim(ctx context.Context, key string, size int) error {
	if err := trimWindow(ctx, s.db, key, size); err != nil {
		return fmt.Errorf("%w: trimming %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// PushIfAbsent runs fetch, push and trim in one transaction.
func (s *SQLiteStore) PushIfAbsent(ctx context.Context, key, value string, size int) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%w: beginning transaction: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	items, err := fetchWindow(ctx, tx, key)
	if err != nil {
		return false, fmt.Errorf("%w: fetching %s: %v", ErrUnavailable, key, err)
	}
	if slices.Contains(items, value) {
		return false, nil
	}

	if err := pushWindow(ctx, tx, key, value); err != nil {
		return false, fmt.Errorf("%w: pushing %s: %v", ErrUnavailable, key, err)
	}
	if err := trimWindow(ctx, tx, key, size); err != nil {
		return false, fmt.Errorf("%w: trimming %s: %v", ErrUnavailable, key, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: committing: %v", ErrUnavailable, err)
	}
	return true, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
