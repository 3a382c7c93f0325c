package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sumire/bebop/internal/domain"
)

// NameSetter chooses the display name of the current user.
type NameSetter interface {
	SetName(ctx context.Context, name string) error
}

// PromptFunc asks for a display name. ok is false when the user declines.
type PromptFunc func(ctx context.Context, userID domain.UserID, initialName string) (name string, ok bool, err error)

// PromptOnboarder onboards interactively, e.g. from a terminal.
type PromptOnboarder struct {
	names  NameSetter
	prompt PromptFunc
}

// NewPromptOnboarder creates a new PromptOnboarder.
func NewPromptOnboarder(names NameSetter, prompt PromptFunc) *PromptOnboarder {
	return &PromptOnboarder{names: names, prompt: prompt}
}

// Onboard prompts for a name and submits it.
func (o *PromptOnboarder) Onboard(ctx context.Context, userID domain.UserID, initialName string) (bool, error) {
	name, ok, err := o.prompt(ctx, userID, initialName)
	if err != nil {
		return false, fmt.Errorf("prompt name: %w", err)
	}
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return false, nil
	}
	if err := o.names.SetName(ctx, name); err != nil {
		return false, err
	}
	return true, nil
}

type onboardingRequest struct {
	userID  domain.UserID
	done    chan struct{}
	ok      bool
	waiters int
}

// PendingOnboarder parks onboarding until a name is submitted or declined
// through the HTTP surface. Callers onboarding the same user share one
// request.
type PendingOnboarder struct {
	names NameSetter

	mu      sync.Mutex
	pending *onboardingRequest
}

// NewPendingOnboarder creates a new PendingOnboarder.
func NewPendingOnboarder(names NameSetter) *PendingOnboarder {
	return &PendingOnboarder{names: names}
}

// Onboard waits for Submit or Decline.
func (o *PendingOnboarder) Onboard(ctx context.Context, userID domain.UserID, _ string) (bool, error) {
	o.mu.Lock()
	req := o.pending
	if req == nil || req.userID != userID {
		if req != nil {
			o.resolveLocked(false)
		}
		req = &onboardingRequest{userID: userID, done: make(chan struct{})}
		o.pending = req
	}
	req.waiters++
	o.mu.Unlock()

	select {
	case <-req.done:
		return req.ok, nil
	case <-ctx.Done():
		o.abandon(req)
		return false, ctx.Err()
	}
}

// abandon withdraws one waiter. The request stops being pending once nobody
// waits on it anymore.
func (o *PendingOnboarder) abandon(req *onboardingRequest) {
	o.mu.Lock()
	defer o.mu.Unlock()
	req.waiters--
	if o.pending == req && req.waiters == 0 {
		o.pending = nil
	}
}

// Pending returns the user currently waiting for onboarding.
func (o *PendingOnboarder) Pending() (domain.UserID, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending == nil {
		return "", false
	}
	return o.pending.userID, true
}

// Submit sets the display name and completes the pending onboarding. On a
// failed SetName the request stays pending so the name can be retried.
func (o *PendingOnboarder) Submit(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &domain.ValidationError{Field: "name", Message: "must not be empty"}
	}

	o.mu.Lock()
	req := o.pending
	o.mu.Unlock()
	if req == nil {
		return fmt.Errorf("%w: no onboarding in progress", domain.ErrNotFound)
	}

	if err := o.names.SetName(ctx, name); err != nil {
		return err
	}

	o.mu.Lock()
	if o.pending == req {
		o.resolveLocked(true)
	}
	o.mu.Unlock()
	return nil
}

// Decline completes the pending onboarding as failed.
func (o *PendingOnboarder) Decline() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending == nil {
		return fmt.Errorf("%w: no onboarding in progress", domain.ErrNotFound)
	}
	o.resolveLocked(false)
	return nil
}

func (o *PendingOnboarder) resolveLocked(ok bool) {
	o.pending.ok = ok
	close(o.pending.done)
	o.pending = nil
}
