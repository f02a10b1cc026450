package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Sternrassler/httpcache/pkg/cache"
	_ "github.com/glebarez/go-sqlite"
)

// SQLiteStore keeps JSON-encoded entries in a SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if needed) the database at path.
// ":memory:" gives a private in-memory database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx,
		"CREATE TABLE IF NOT EXISTS entries (key TEXT PRIMARY KEY, entry BLOB NOT NULL, stored_at INTEGER NOT NULL)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("create entries table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Lookup implements cache.Adapter.
func (s *SQLiteStore) Lookup(ctx context.Context, req *cache.Request) (*cache.Response, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT entry FROM entries WHERE key = ?", cache.KeyFor(req).String()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		cache.StoreErrors.WithLabelValues("sqlite", "lookup").Inc()
		return nil, fmt.Errorf("sqlite select: %w", err)
	}

	entry, err := cache.DecodeEntry(data)
	if err != nil {
		cache.StoreErrors.WithLabelValues("sqlite", "lookup").Inc()
		return nil, err
	}
	return entry.Response(), nil
}

// Store implements cache.Adapter. The last write for a key wins.
func (s *SQLiteStore) Store(ctx context.Context, req *cache.Request, resp *cache.Response) error {
	entry := cache.NewEntry(req, resp)
	data, err := entry.Encode()
	if err != nil {
		cache.StoreErrors.WithLabelValues("sqlite", "store").Inc()
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO entries (key, entry, stored_at) VALUES (?, ?, ?)",
		cache.KeyFor(req).String(), data, entry.ReceivedAt.Unix()); err != nil {
		cache.StoreErrors.WithLabelValues("sqlite", "store").Inc()
		return fmt.Errorf("sqlite insert: %w", err)
	}
	return nil
}

// Delete removes the entry for req.
func (s *SQLiteStore) Delete(ctx context.Context, req *cache.Request) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE key = ?", cache.KeyFor(req).String()); err != nil {
		cache.StoreErrors.WithLabelValues("sqlite", "delete").Inc()
		return fmt.Errorf("sqlite delete: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ cache.Adapter = (*SQLiteStore)(nil)
