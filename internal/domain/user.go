package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UserID identifies a forum user. The forum API emits numeric ids while
// older deployments send strings, so both decode into the same value.
type UserID string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode user id: %w", err)
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode user id: %w", err)
	}
	*id = UserID(n.String())
	return nil
}

// User represents the identity returned by the forum for the current bearer token.
type User struct {
	ID      UserID `json:"id" validate:"required"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar,omitempty"`
	Admin   bool   `json:"admin,omitempty"`
	Blocked bool   `json:"blocked,omitempty"`

	// nameAbsent is set when the forum omitted the name key entirely. Only
	// an explicit empty name asks for onboarding.
	nameAbsent bool
}

// UnmarshalJSON records whether the name key was present.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var raw struct {
		plain
		Name *string `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = User(raw.plain)
	if raw.Name == nil {
		u.nameAbsent = true
	} else {
		u.Name = *raw.Name
	}
	return nil
}

// NeedsName reports whether the user exists but has not chosen a display name yet.
func (u User) NeedsName() bool {
	return u.ID != "" && u.Name == "" && !u.nameAbsent
}

// AuthState is the local view of the session. It is always replaced as a
// whole; an unauthenticated state never carries a user.
type AuthState struct {
	Authenticated bool `json:"authenticated"`
	User          User `json:"user"`
}

// Anonymous returns the empty, unauthenticated state.
func Anonymous() AuthState {
	return AuthState{}
}

// NewAuthState builds a state that honours the "no user when anonymous" invariant.
func NewAuthState(authenticated bool, user User) AuthState {
	if !authenticated {
		return Anonymous()
	}
	return AuthState{Authenticated: true, User: user}
}

// Incomplete reports an authenticated session whose user still needs onboarding.
func (s AuthState) Incomplete() bool {
	return s.Authenticated && s.User.NeedsName()
}

// AuthPhase is the controller's position in the sign-in state machine.
type AuthPhase string

const (
	PhaseAnonymous               AuthPhase = "anonymous"
	PhaseAuthenticating          AuthPhase = "authenticating"
	PhaseAuthenticated           AuthPhase = "authenticated"
	PhaseAuthenticatedIncomplete AuthPhase = "authenticated_incomplete"
)

// Session is a snapshot of the controller.
type Session struct {
	Phase AuthPhase `json:"phase"`
	State AuthState `json:"state"`
}
