package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/sumire/bebop/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	namespace TEXT NOT NULL,
	name      TEXT NOT NULL,
	value     TEXT NOT NULL,
	PRIMARY KEY (namespace, name)
)`

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open connects to the local store and ensures the schema exists.
// driver is "sqlite" (modernc.org/sqlite) or "pgx" (jackc/pgx).
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s store: %w", driver, err)
	}
	if driver == "sqlite" {
		// A single writer avoids SQLITE_BUSY on the shared file.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create kv schema: %w", err)
	}
	return db, nil
}

// KVStore is a namespaced string key-value table, the local replacement for
// browser storage.
type KVStore struct {
	db        *sqlx.DB
	namespace string
}

// NewKVStore creates a KVStore scoped to namespace.
func NewKVStore(db *sqlx.DB, namespace string) *KVStore {
	return &KVStore{db: db, namespace: namespace}
}

// Get returns the value for key, or domain.ErrNotFound.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value,
		s.db.Rebind(`SELECT value FROM kv WHERE namespace = ? AND name = ?`), s.namespace, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("get %s/%s: %w", s.namespace, key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO kv (namespace, name, value) VALUES (?, ?, ?)
		 ON CONFLICT (namespace, name) DO UPDATE SET value = EXCLUDED.value`),
		s.namespace, key, value)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", s.namespace, key, err)
	}
	return nil
}

// SetDefault stores value only when key has no value yet.
func (s *KVStore) SetDefault(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO kv (namespace, name, value) VALUES (?, ?, ?)
		 ON CONFLICT (namespace, name) DO NOTHING`),
		s.namespace, key, value)
	if err != nil {
		return fmt.Errorf("set default %s/%s: %w", s.namespace, key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`DELETE FROM kv WHERE namespace = ? AND name = ?`), s.namespace, key)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", s.namespace, key, err)
	}
	return nil
}
