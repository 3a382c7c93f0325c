package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sumire/bebop/internal/domain"
)

func TestParseOAuthResult(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.OAuthOutcome
	}{
		{"success:abc123", domain.OAuthOutcome{Kind: domain.OAuthSuccess, Token: "abc123"}},
		{"error:UserBlocked", domain.OAuthOutcome{Kind: domain.OAuthError, Reason: "UserBlocked"}},
		{"garbage", domain.OAuthOutcome{Kind: domain.OAuthMalformed}},
		{"", domain.OAuthOutcome{Kind: domain.OAuthMalformed}},
		{"pending:abc", domain.OAuthOutcome{Kind: domain.OAuthMalformed}},
		{"SUCCESS:abc", domain.OAuthOutcome{Kind: domain.OAuthMalformed}},
		{"success:", domain.OAuthOutcome{Kind: domain.OAuthSuccess, Token: ""}},
		{"success:a:b:c", domain.OAuthOutcome{Kind: domain.OAuthSuccess, Token: "a:b:c"}},
		{"error:bad:state", domain.OAuthOutcome{Kind: domain.OAuthError, Reason: "bad:state"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOAuthResult(tt.raw))
		})
	}
}

func TestParseOAuthResultMalformedIffShapeIsWrong(t *testing.T) {
	inputs := []string{
		"", ":", "success", "error", "success:", "error:", ":success", "x:y",
		"success:tok", "error:reason", "success::", "error:a:b", "Success:tok", " success:tok",
	}
	for _, raw := range inputs {
		status, _, hasColon := strings.Cut(raw, ":")
		wantMalformed := !hasColon || (status != "success" && status != "error")
		got := ParseOAuthResult(raw)
		assert.Equal(t, wantMalformed, got.Kind == domain.OAuthMalformed, "raw=%q", raw)
	}
}

func TestReadCookie(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		want   string
		wantOK bool
	}{
		{"only cookie", "bebop_oauth_result=success:abc", OAuthResultCookie, "success:abc", true},
		{"among others", "a=1; bebop_oauth_result=error:UserBlocked; b=2", OAuthResultCookie, "error:UserBlocked", true},
		{"last", "a=1; bebop_oauth_result=x", OAuthResultCookie, "x", true},
		{"missing", "a=1; b=2", OAuthResultCookie, "", false},
		{"empty header", "", OAuthResultCookie, "", false},
		{"suffix match is not a match", "xbebop_oauth_result=1", OAuthResultCookie, "", false},
		{"duplicate", "bebop_oauth_result=1; bebop_oauth_result=2", OAuthResultCookie, "", false},
		{"empty value", "bebop_oauth_result=; a=1", OAuthResultCookie, "", true},
		{"empty name", "a=1", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ReadCookie(tt.header, tt.cookie)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
