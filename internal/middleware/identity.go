package middleware

// identity.go defines the context keys shared across middleware files
// and typed accessors for them. JWTAuth stores the decoded claims once;
// downstream middleware and handlers read them back without re-parsing
// the token.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/waylysyn-hub/SchoolManagementAPI/internal/utils"
)

const (
	claimsKey = "claims"
	tokenKey  = "token"
)

// SetClaims stores the decoded claims and the raw token on the request
// context.
func SetClaims(c echo.Context, tc utils.TokenClaims, raw string) {
	c.Set(claimsKey, tc)
	c.Set(tokenKey, raw)
}

// ClaimsFrom returns the claims JWTAuth stored for this request. The
// boolean is false on routes that never went through JWTAuth.
func ClaimsFrom(c echo.Context) (utils.TokenClaims, bool) {
	tc, ok := c.Get(claimsKey).(utils.TokenClaims)
	return tc, ok
}

// RawToken returns the bearer token string JWTAuth validated.
func RawToken(c echo.Context) (string, bool) {
	s, ok := c.Get(tokenKey).(string)
	return s, ok && s != ""
}

// currentUserID returns the authenticated subject id as a string for
// rate-limit key construction, or "anon" for unauthenticated requests.
func currentUserID(c echo.Context) string {
	if tc, ok := ClaimsFrom(c); ok {
		return strconv.FormatUint(tc.UserID, 10)
	}
	return "anon"
}
