package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sumire/bebop/internal/client"
	"github.com/sumire/bebop/internal/domain"
)

type memoryTokenStore struct {
	mu    sync.Mutex
	token string
	err   error
}

func (m *memoryTokenStore) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.err
}

func (m *memoryTokenStore) SetToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.token = token
	return nil
}

func (m *memoryTokenStore) ClearToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.token = ""
	return nil
}

// fakeForum answers api/v1/me from a token -> user table and records the
// bearer token each request carried.
type fakeForum struct {
	mu     sync.Mutex
	token  string
	users  map[string]domain.User
	meErr  error
	seen   []string
	nameFn func(name string) error
}

func newFakeForum(users map[string]domain.User) *fakeForum {
	if users == nil {
		users = map[string]domain.User{}
	}
	return &fakeForum{users: users}
}

func (f *fakeForum) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeForum) ClearToken() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
}

func (f *fakeForum) URL(path string) string {
	return "https://forum.example.org/" + path
}

func (f *fakeForum) Me(ctx context.Context) (*client.MeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, f.token)
	if f.meErr != nil {
		return nil, f.meErr
	}
	if f.token == "" {
		return &client.MeResponse{}, nil
	}
	user, ok := f.users[f.token]
	if !ok {
		return nil, fmt.Errorf("get me: %w: %w", domain.ErrUnauthorized, &domain.HTTPError{Status: 401})
	}
	return &client.MeResponse{Authenticated: true, User: &user}, nil
}

func (f *fakeForum) SetName(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nameFn != nil {
		if err := f.nameFn(name); err != nil {
			return err
		}
	}
	user, ok := f.users[f.token]
	if !ok {
		return errors.New("no user for token")
	}
	user.Name = name
	f.users[f.token] = user
	return nil
}

func (f *fakeForum) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

type onboardCall struct {
	userID      domain.UserID
	initialName string
}

// scriptedOnboarder returns results in order, optionally naming the user
// on the forum before reporting success.
type scriptedOnboarder struct {
	forum   *fakeForum
	results []bool
	name    string
	err     error
	calls   []onboardCall
}

func (o *scriptedOnboarder) Onboard(ctx context.Context, userID domain.UserID, initialName string) (bool, error) {
	o.calls = append(o.calls, onboardCall{userID: userID, initialName: initialName})
	if o.err != nil {
		return false, o.err
	}
	ok := true
	if len(o.results) > 0 {
		ok = o.results[0]
		o.results = o.results[1:]
	}
	if ok && o.name != "" {
		if err := o.forum.SetName(ctx, o.name); err != nil {
			return false, err
		}
	}
	return ok, nil
}

type recordingOpener struct {
	opened []string
	err    error
}

func (o *recordingOpener) Open(target string) error {
	o.opened = append(o.opened, target)
	return o.err
}
