package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"  // context type for the revocation lookup contract
	"net/http" // HTTP status codes for responses
	"strings"  // prefix checking and trimming for the Authorization header

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/waylysyn-hub/SchoolManagementAPI/internal/utils"
)

// TokenRevocations answers whether a bearer token was invalidated
// before its natural expiry. Implemented by revocation.Registry.
type TokenRevocations interface {
	IsRevoked(ctx context.Context, rawToken string) (bool, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects its decoded claims into the request context. A
// token moves through Issued → Active → {Expired | Revoked}: signature
// and lifetime are verified first, then the revocation registry is
// consulted, so a revoked token is rejected even though its signature
// and expiry alone would pass. Both terminal states end the request
// before any handler logic runs.
//
// Every uncertainty fails closed: a malformed token, a bad signature
// and an unreachable registry all answer 401.
func JWTAuth(secret string, registry TokenRevocations) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := BearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}

			claims, err := utils.ParseToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			revoked, err := registry.IsRevoked(c.Request().Context(), raw)
			if err != nil {
				// Registry unreachable: deny rather than let a possibly
				// revoked token through.
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not verify token"})
			}
			if revoked {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token revoked"})
			}

			SetClaims(c, claims, raw)
			return next(c)
		}
	}
}

// BearerToken extracts the raw token from the Authorization header. A
// valid header starts with "Bearer " followed by the serialized token.
func BearerToken(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimPrefix(auth, "Bearer ")
	return raw, raw != ""
}
