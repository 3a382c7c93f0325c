package repository

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/bebop/internal/domain"
)

// TokenKey is the fixed key the bearer token is persisted under.
const TokenKey = "bebop_auth_token"

const tokenNamespace = "local"

// TokenRepository persists the single bearer token across restarts.
type TokenRepository struct {
	kv *KVStore
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{kv: NewKVStore(db, tokenNamespace)}
}

// Token returns the stored token, or "" when none is stored.
func (r *TokenRepository) Token(ctx context.Context) (string, error) {
	token, err := r.kv.Get(ctx, TokenKey)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	return token, err
}

// SetToken stores token.
func (r *TokenRepository) SetToken(ctx context.Context, token string) error {
	return r.kv.Set(ctx, TokenKey, token)
}

// ClearToken removes the stored token.
func (r *TokenRepository) ClearToken(ctx context.Context) error {
	return r.kv.Delete(ctx, TokenKey)
}
