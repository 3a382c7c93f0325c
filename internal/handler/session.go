package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/sumire/bebop/internal/domain"
	"github.com/sumire/bebop/internal/service"
)

// SessionHandler exposes the auth controller on the loopback surface.
// Reconciliation can park on onboarding, so it runs in the background and
// clients poll GET /api/v1/session.
type SessionHandler struct {
	auth       *service.AuthController
	onboarding *service.PendingOnboarder

	ctx context.Context
	wg  sync.WaitGroup
}

// NewSessionHandler creates a new SessionHandler. Background reconciliations
// run under ctx.
func NewSessionHandler(ctx context.Context, auth *service.AuthController, onboarding *service.PendingOnboarder) *SessionHandler {
	return &SessionHandler{auth: auth, onboarding: onboarding, ctx: ctx}
}

// Wait blocks until background reconciliations have returned.
func (h *SessionHandler) Wait() {
	h.wg.Wait()
}

// Reconcile starts CheckAuth in the background.
func (h *SessionHandler) Reconcile() {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.auth.CheckAuth(h.ctx)
	}()
}

type onboardingView struct {
	UserID domain.UserID `json:"user_id"`
}

type sessionView struct {
	domain.Session
	Onboarding *onboardingView `json:"onboarding,omitempty"`
}

func (h *SessionHandler) view() sessionView {
	v := sessionView{Session: h.auth.Session()}
	if id, ok := h.onboarding.Pending(); ok {
		v.Onboarding = &onboardingView{UserID: id}
	}
	return v
}

// Get returns the current session.
func (h *SessionHandler) Get(c echo.Context) error {
	return JSON(c, http.StatusOK, h.view())
}

// Check re-reads the token and reconciles with the forum.
func (h *SessionHandler) Check(c echo.Context) error {
	h.Reconcile()
	return JSON(c, http.StatusAccepted, h.view())
}

type signInRequest struct {
	Provider string `json:"provider" validate:"required,provider"`
}

type signInResponse struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// SignIn opens the OAuth popup for a provider.
func (h *SessionHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	target, err := h.auth.SignIn(req.Provider)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, signInResponse{URL: target, Width: service.PopupWidth, Height: service.PopupHeight})
}

// SignOut drops the token. A pending onboarding is declined first so its
// reconciliation does not linger.
func (h *SessionHandler) SignOut(c echo.Context) error {
	if err := h.onboarding.Decline(); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	h.auth.SignOut(c.Request().Context())
	return JSON(c, http.StatusOK, h.view())
}

// OAuthEnd is where the OAuth popup lands. The forum leaves the result in the
// bebop_oauth_result cookie.
func (h *SessionHandler) OAuthEnd(c echo.Context) error {
	outcome := h.auth.AcceptOAuth(c.Request().Context(), c.Request().Header.Get("Cookie"))
	if outcome.Kind == domain.OAuthSuccess {
		h.Reconcile()
	}
	return JSON(c, http.StatusOK, outcome)
}

type nameRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// SetName completes onboarding with the chosen display name.
func (h *SessionHandler) SetName(c echo.Context) error {
	var req nameRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.onboarding.Submit(c.Request().Context(), req.Name); err != nil {
		return err
	}
	return JSON(c, http.StatusAccepted, h.view())
}

// DeclineName abandons onboarding, which signs the user out.
func (h *SessionHandler) DeclineName(c echo.Context) error {
	if err := h.onboarding.Decline(); err != nil {
		return err
	}
	return JSON(c, http.StatusAccepted, h.view())
}

// Token describes the persisted bearer token.
func (h *SessionHandler) Token(c echo.Context) error {
	info, err := h.auth.TokenInfo(c.Request().Context())
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, info)
}
