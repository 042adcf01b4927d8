package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireRole returns a middleware function that enforces that the
// authenticated user's role is in the allowed set. The role compared
// is the role name baked into the token at issuance, so this is a
// coarse check independent of capability claims; routes may use
// either or both. It assumes JWTAuth already ran and stored the
// claims in the context.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	// Build a set of allowed roles for constant-time lookups.
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tc, ok := ClaimsFrom(c)
			if !ok || !allowed[tc.RoleName] {
				// Missing claims or a role outside the allow-list: the
				// identity is valid but not privileged enough.
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
