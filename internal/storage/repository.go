package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/glabrego/imgsearch-cli/internal/search"
	"github.com/glabrego/imgsearch-cli/internal/session"
)

// ErrNotFound is returned when no result is stored for a cursor.
var ErrNotFound = errors.New("search result not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) Init(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS search_results (
  cursor INTEGER PRIMARY KEY,
  result TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS write_check (
  id INTEGER PRIMARY KEY,
  checked_at TEXT NOT NULL
);
`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// CheckWritable fails early when the database file is read-only.
func (r *Repository) CheckWritable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO write_check (id, checked_at) VALUES (1, ?)
ON CONFLICT(id) DO UPDATE SET checked_at=excluded.checked_at
`, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write check: %w", err)
	}
	return nil
}

// Save stores result for cursor, replacing any previous result.
func (r *Repository) Save(ctx context.Context, cursor session.Cursor, result search.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result %d: %w", cursor, err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO search_results (cursor, result, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(cursor) DO UPDATE SET
  result=excluded.result,
  updated_at=excluded.updated_at
`, int64(cursor), string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save result %d: %w", cursor, err)
	}
	return nil
}

// Get loads the result stored for cursor.
func (r *Repository) Get(ctx context.Context, cursor session.Cursor) (search.Result, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `
SELECT result FROM search_results WHERE cursor = ?
`, int64(cursor)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return search.Result{}, fmt.Errorf("cursor %d: %w", cursor, ErrNotFound)
	}
	if err != nil {
		return search.Result{}, fmt.Errorf("query result %d: %w", cursor, err)
	}

	var result search.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return search.Result{}, fmt.Errorf("decode result %d: %w", cursor, err)
	}
	return result, nil
}

// LatestCursor returns the most recently written cursor.
func (r *Repository) LatestCursor(ctx context.Context) (session.Cursor, error) {
	var cursor int64
	err := r.db.QueryRowContext(ctx, `
SELECT cursor FROM search_results ORDER BY updated_at DESC, cursor DESC LIMIT 1
`).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query latest cursor: %w", err)
	}
	return session.Cursor(cursor), nil
}
