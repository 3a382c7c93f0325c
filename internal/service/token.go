package service

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sumire/bebop/internal/domain"
)

// InspectToken describes a bearer token without verifying it. The forum is
// the only authority on validity; this is for diagnostics.
func InspectToken(token string, now time.Time) domain.TokenInfo {
	if token == "" {
		return domain.TokenInfo{}
	}

	info := domain.TokenInfo{Present: true, Format: "opaque"}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return info
	}

	info.Format = "jwt"
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	} else if n, ok := claims["sub"].(float64); ok {
		info.Subject = strconv.FormatInt(int64(n), 10)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Unix()
		info.Expired = !now.Before(exp.Time)
	}
	return info
}
