// Package sqlitestore provides a SQLite-backed kvstore.Store.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Tanveersultana125/co-teacher/credentials/kvstore"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

var _ kvstore.Store = (*Store)(nil)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Store persists key-value pairs in a single SQLite table.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) the SQLite file at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.sqlDB.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}
	return s.Update(map[string]string{key: value}, nil)
}

func (s *Store) Delete(key string) error {
	return s.Update(nil, []string{key})
}

// Update applies the writes and deletes in a single transaction.
func (s *Store) Update(set map[string]string, del []string) error {
	for key := range set {
		if key == "" {
			return fmt.Errorf("key is required")
		}
	}

	tx, err := s.sqlDB.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	updatedAt := NowTimeFunc().UTC().UnixMilli()
	for key, value := range set {
		if _, err := tx.Exec(
			`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, updatedAt,
		); err != nil {
			return fmt.Errorf("set %q: %w", key, err)
		}
	}
	for _, key := range del {
		if _, err := tx.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
			return fmt.Errorf("delete %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit kv update: %w", err)
	}
	return nil
}
