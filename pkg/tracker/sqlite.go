package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tracked_days (
	day       TEXT PRIMARY KEY,
	pulled_at TEXT NOT NULL
)`

// SQLiteStore keeps tracked days in a SQLite table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// Single writer; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema in %s: %w", path, err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Load returns every recorded day.
func (s *SQLiteStore) Load(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT day FROM tracked_days`)
	if err != nil {
		return nil, fmt.Errorf("querying tracked days: %w", err)
	}
	defer rows.Close()

	days := make(map[string]struct{})
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("scanning tracked day: %w", err)
		}
		days[day] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tracked days: %w", err)
	}
	return days, nil
}

// Append records day. Recording an existing day keeps the first pulled_at.
func (s *SQLiteStore) Append(ctx context.Context, day string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO tracked_days (day, pulled_at) VALUES (?, ?)`,
		day, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting tracked day: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
