package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the local fallback Accessor: a single key-value table of
// JSON documents keyed by full path. It keeps the daemon working offline
// with the same path semantics as the networked backend.
type SQLiteStore struct {
	db *sqlx.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
	path  TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the
// schema exists. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Single connection: modernc sqlite serializes writers anyway and the
	// engine's traffic is tiny.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// subtreePattern builds the LIKE pattern matching every descendant of path.
// '%' and '_' are LIKE wildcards and '_' occurs in sanitized segments, so
// they are escaped to keep path matching literal; queries using the pattern
// must carry ESCAPE '\'.
func subtreePattern(path string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(path)
	return escaped + "/%"
}

// Exists reports whether a value is stored at path or under it.
func (s *SQLiteStore) Exists(ctx context.Context, path string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM kv WHERE path = ? OR path LIKE ? ESCAPE '\'`, path, subtreePattern(path))
	if err != nil {
		return false, fmt.Errorf("checking path %q: %w", path, err)
	}
	return n > 0, nil
}

// ReadAll returns the immediate children of path ordered by key.
func (s *SQLiteStore) ReadAll(ctx context.Context, path string) ([]Entry, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT path, value FROM kv WHERE path LIKE ? ESCAPE '\' ORDER BY path`, subtreePattern(path))
	if err != nil {
		return nil, fmt.Errorf("reading children of %q: %w", path, err)
	}
	defer rows.Close()

	var entries []Entry
	prefix := path + "/"
	for rows.Next() {
		var childPath, raw string
		if err := rows.Scan(&childPath, &raw); err != nil {
			return nil, fmt.Errorf("scanning row under %q: %w", path, err)
		}
		key := strings.TrimPrefix(childPath, prefix)
		if strings.Contains(key, "/") {
			// Deeper descendant, not an immediate child.
			continue
		}
		var value map[string]any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("decoding record %q: %w", childPath, err)
		}
		entries = append(entries, Entry{Key: key, Value: value})
	}
	return entries, rows.Err()
}

// Read decodes the value at path into dest.
func (s *SQLiteStore) Read(ctx context.Context, path string, dest any) (bool, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, "SELECT value FROM kv WHERE path = ?", path)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %q: %w", path, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decoding %q: %w", path, err)
	}
	return true, nil
}

// Write stores value at path as JSON, replacing any previous value. Like a
// realtime-database Set, writing a path replaces its whole subtree, so any
// stored descendants are removed.
func (s *SQLiteStore) Write(ctx context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value for %q: %w", path, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE path LIKE ? ESCAPE '\'`, subtreePattern(path)); err != nil {
		return fmt.Errorf("clearing subtree of %q: %w", path, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO kv (path, value) VALUES (?, ?) ON CONFLICT(path) DO UPDATE SET value = excluded.value",
		path, string(raw)); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return nil
}
