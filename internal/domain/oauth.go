package domain

// OAuthKind tags the outcome of an OAuth popup round-trip.
type OAuthKind string

const (
	OAuthSuccess   OAuthKind = "success"
	OAuthError     OAuthKind = "error"
	OAuthMalformed OAuthKind = "malformed"
)

// ReasonUnknown is reported for results that could not be parsed.
const ReasonUnknown = "Unknown"

// ReasonUserBlocked is sent by the forum when the account is blocked.
const ReasonUserBlocked = "UserBlocked"

// OAuthOutcome is the decoded completion cookie. Token is set only for
// OAuthSuccess and Reason only for OAuthError.
type OAuthOutcome struct {
	Kind   OAuthKind `json:"kind"`
	Token  string    `json:"-"`
	Reason string    `json:"reason,omitempty"`
}

// TokenInfo describes a bearer token for diagnostics.
type TokenInfo struct {
	Present   bool   `json:"present"`
	Format    string `json:"format,omitempty"`
	Subject   string `json:"subject,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
	Expired   bool   `json:"expired"`
}
