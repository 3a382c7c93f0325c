package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/bebop/internal/domain"
)

const cacheNamespace = "db"

// CacheRepository stores explorer data as JSON documents under a few fixed keys.
type CacheRepository struct {
	kv *KVStore
}

// NewCacheRepository creates a new CacheRepository.
func NewCacheRepository(db *sqlx.DB) *CacheRepository {
	return &CacheRepository{kv: NewKVStore(db, cacheNamespace)}
}

// Defaults writes the initial documents for keys that have never been set.
func (r *CacheRepository) Defaults(ctx context.Context) error {
	defaults := map[string]string{
		domain.CacheKeyBlocks: "[]",
		domain.CacheKeySQL:    "[]",
		domain.CacheKeyHead:   "{}",
	}
	for key, value := range defaults {
		if err := r.kv.SetDefault(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the JSON document stored under key.
func (r *CacheRepository) Get(ctx context.Context, key string) (json.RawMessage, error) {
	value, err := r.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(value), nil
}

// Set replaces the JSON document stored under key.
func (r *CacheRepository) Set(ctx context.Context, key string, doc json.RawMessage) error {
	if !json.Valid(doc) {
		return fmt.Errorf("%w: cache %s is not valid json", domain.ErrInvalidInput, key)
	}
	return r.kv.Set(ctx, key, string(doc))
}

// Append adds item to the JSON array stored under key.
func (r *CacheRepository) Append(ctx context.Context, key string, item json.RawMessage) error {
	var list []json.RawMessage
	current, err := r.Get(ctx, key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return err
	default:
		if err := json.Unmarshal(current, &list); err != nil {
			return fmt.Errorf("decode cache %s: %w", key, err)
		}
	}

	list = append(list, item)
	doc, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode cache %s: %w", key, err)
	}
	return r.Set(ctx, key, doc)
}
