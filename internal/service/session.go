package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/sumire/bebop/internal/client"
	"github.com/sumire/bebop/internal/domain"
)

// IdentityFetcher retrieves the identity bound to the current bearer token.
type IdentityFetcher interface {
	Me(ctx context.Context) (*client.MeResponse, error)
}

// SessionReconciler turns the forum's identity response into an AuthState.
type SessionReconciler struct {
	api      IdentityFetcher
	validate *validator.Validate
}

// NewSessionReconciler creates a new SessionReconciler.
func NewSessionReconciler(api IdentityFetcher) *SessionReconciler {
	return &SessionReconciler{api: api, validate: validator.New()}
}

// FetchIdentity queries GET api/v1/me. Errors wrap domain.ErrUnauthorized for
// a 401 and domain.ErrNetwork for everything else, including bodies that do
// not match the identity schema.
func (r *SessionReconciler) FetchIdentity(ctx context.Context) (domain.AuthState, error) {
	me, err := r.api.Me(ctx)
	if err != nil {
		return domain.Anonymous(), err
	}

	if !me.Authenticated {
		return domain.Anonymous(), nil
	}

	if me.User == nil {
		return domain.Anonymous(), fmt.Errorf("%w: authenticated response without user", domain.ErrNetwork)
	}
	if err := r.validate.Struct(me.User); err != nil {
		return domain.Anonymous(), fmt.Errorf("%w: invalid identity: %v", domain.ErrNetwork, err)
	}

	return domain.NewAuthState(true, *me.User), nil
}
