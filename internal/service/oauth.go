package service

import (
	"strings"

	"github.com/sumire/bebop/internal/domain"
)

// OAuthResultCookie is the cookie the forum sets when the OAuth popup finishes.
const OAuthResultCookie = "bebop_oauth_result"

// ParseOAuthResult decodes a "<status>:<payload>" completion value.
// Only the first colon separates status from payload, so tokens and reasons
// may themselves contain colons.
func ParseOAuthResult(raw string) domain.OAuthOutcome {
	status, payload, ok := strings.Cut(raw, ":")
	if !ok {
		return domain.OAuthOutcome{Kind: domain.OAuthMalformed}
	}

	switch status {
	case string(domain.OAuthError):
		return domain.OAuthOutcome{Kind: domain.OAuthError, Reason: payload}
	case string(domain.OAuthSuccess):
		return domain.OAuthOutcome{Kind: domain.OAuthSuccess, Token: payload}
	default:
		return domain.OAuthOutcome{Kind: domain.OAuthMalformed}
	}
}
