package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sumire/bebop/internal/domain"
)

// Popup dimensions requested for the OAuth window.
const (
	PopupWidth  = 800
	PopupHeight = 600
)

// maxOnboardingRounds bounds how often one reconciliation re-prompts a user
// whose name is still empty after onboarding reported success.
const maxOnboardingRounds = 3

// TokenStore persists the bearer token. Failures are logged and otherwise
// ignored; the forum stays the source of truth.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// Authorizer controls the bearer header of outgoing forum requests.
type Authorizer interface {
	SetToken(token string)
	ClearToken()
	URL(path string) string
}

// Onboarder asks a user without a display name to pick one. It reports
// whether the user completed onboarding; an error counts as declined.
type Onboarder interface {
	Onboard(ctx context.Context, userID domain.UserID, initialName string) (bool, error)
}

// Opener shows the OAuth popup for a provider URL.
type Opener interface {
	Open(target string) error
}

// AuthController runs the sign-in state machine: it reconciles the local
// session with the forum, drives onboarding and handles the OAuth popup
// completion.
type AuthController struct {
	tokens   TokenStore
	api      Authorizer
	identity *SessionReconciler
	onboard  Onboarder
	opener   Opener

	mu    sync.Mutex
	phase domain.AuthPhase
	state domain.AuthState
}

// NewAuthController creates an AuthController in the anonymous phase.
// opener may be nil, in which case SignIn only returns the URL.
func NewAuthController(tokens TokenStore, api Authorizer, identity *SessionReconciler, onboard Onboarder, opener Opener) *AuthController {
	return &AuthController{
		tokens:   tokens,
		api:      api,
		identity: identity,
		onboard:  onboard,
		opener:   opener,
		phase:    domain.PhaseAnonymous,
		state:    domain.Anonymous(),
	}
}

// Session returns a snapshot of the current phase and state.
func (c *AuthController) Session() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Session{Phase: c.phase, State: c.state}
}

// CheckAuth loads the persisted token, attaches it to outgoing requests and
// reconciles with the forum. Concurrent calls are not serialized; whichever
// response resolves last determines the state.
func (c *AuthController) CheckAuth(ctx context.Context) domain.Session {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		slog.Warn("read auth token", "error", err)
	}
	if token != "" {
		c.api.SetToken(token)
	}

	c.setPhase(domain.PhaseAuthenticating)
	c.reconcile(ctx)
	return c.Session()
}

func (c *AuthController) reconcile(ctx context.Context) {
	for round := 0; ; round++ {
		state, err := c.identity.FetchIdentity(ctx)
		switch {
		case errors.Is(err, domain.ErrUnauthorized):
			slog.Info("identity rejected, signing out", "error", err)
			c.SignOut(ctx)
			return
		case err != nil:
			slog.Error("fetch identity", "error", err)
			c.settle()
			return
		}

		c.apply(state)
		if !state.Incomplete() {
			return
		}

		if round >= maxOnboardingRounds {
			slog.Warn("user still has no name after onboarding", "user_id", state.User.ID, "rounds", round)
			return
		}

		ok, err := c.onboard.Onboard(ctx, state.User.ID, "")
		if err != nil && ctx.Err() != nil {
			slog.Info("reconciliation cancelled during onboarding", "user_id", state.User.ID)
			return
		}
		if err != nil {
			slog.Warn("onboarding failed", "user_id", state.User.ID, "error", err)
			ok = false
		}
		if !ok {
			slog.Info("signing out", "user_id", state.User.ID, "error", domain.ErrOnboardingDeclined)
			c.SignOut(ctx)
		}
		c.setPhase(domain.PhaseAuthenticating)
	}
}

// SignIn opens the OAuth popup for provider and returns its URL. It does not
// change the session; that happens when the popup completes.
func (c *AuthController) SignIn(provider string) (string, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" || strings.ContainsAny(provider, "/?#") {
		return "", fmt.Errorf("%w: provider %q", domain.ErrInvalidInput, provider)
	}

	target := c.api.URL("oauth/begin/" + url.PathEscape(provider))
	if c.opener == nil {
		return target, nil
	}
	if err := c.opener.Open(target); err != nil {
		return target, fmt.Errorf("open oauth popup: %w", err)
	}
	return target, nil
}

// SignOut forgets the token and resets the session to anonymous.
func (c *AuthController) SignOut(ctx context.Context) {
	if err := c.tokens.ClearToken(ctx); err != nil {
		slog.Warn("clear auth token", "error", err)
	}
	c.api.ClearToken()

	c.mu.Lock()
	c.state = domain.Anonymous()
	c.phase = domain.PhaseAnonymous
	c.mu.Unlock()
}

// AcceptOAuth reads the completion cookie from a raw Cookie header. On
// success the token is persisted and attached; on any failure the session is
// signed out. It does not reconcile; see CompleteOAuth.
func (c *AuthController) AcceptOAuth(ctx context.Context, cookieHeader string) domain.OAuthOutcome {
	raw, _ := ReadCookie(cookieHeader, OAuthResultCookie)
	outcome := ParseOAuthResult(raw)

	switch outcome.Kind {
	case domain.OAuthSuccess:
		if err := c.tokens.SetToken(ctx, outcome.Token); err != nil {
			slog.Warn("persist auth token", "error", err)
		}
		c.api.SetToken(outcome.Token)
	case domain.OAuthError:
		if outcome.Reason == domain.ReasonUserBlocked {
			slog.Warn("oauth error: user is blocked")
		} else {
			slog.Warn("oauth error", "reason", outcome.Reason)
		}
		c.SignOut(ctx)
	default:
		slog.Warn("oauth error", "reason", domain.ReasonUnknown, "error", domain.ErrMalformedOAuthResult)
		outcome.Reason = domain.ReasonUnknown
		c.SignOut(ctx)
	}
	return outcome
}

// CompleteOAuth handles the popup completion and, on success, reconciles.
func (c *AuthController) CompleteOAuth(ctx context.Context, cookieHeader string) domain.OAuthOutcome {
	outcome := c.AcceptOAuth(ctx, cookieHeader)
	if outcome.Kind == domain.OAuthSuccess {
		c.CheckAuth(ctx)
	}
	return outcome
}

// TokenInfo describes the persisted token.
func (c *AuthController) TokenInfo(ctx context.Context) (domain.TokenInfo, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return domain.TokenInfo{}, fmt.Errorf("read auth token: %w", err)
	}
	return InspectToken(token, time.Now()), nil
}

func (c *AuthController) setPhase(phase domain.AuthPhase) {
	c.mu.Lock()
	c.phase = phase
	c.mu.Unlock()
}

func (c *AuthController) apply(state domain.AuthState) {
	c.mu.Lock()
	c.state = state
	c.phase = phaseOf(state)
	c.mu.Unlock()
}

// settle leaves the state untouched and drops back out of Authenticating.
func (c *AuthController) settle() {
	c.mu.Lock()
	c.phase = phaseOf(c.state)
	c.mu.Unlock()
}

func phaseOf(state domain.AuthState) domain.AuthPhase {
	switch {
	case !state.Authenticated:
		return domain.PhaseAnonymous
	case state.Incomplete():
		return domain.PhaseAuthenticatedIncomplete
	default:
		return domain.PhaseAuthenticated
	}
}
