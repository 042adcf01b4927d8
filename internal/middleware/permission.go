package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/waylysyn-hub/SchoolManagementAPI/internal/authz"
)

// RequirePermission returns a middleware enforcing that the token's
// permission claims contain the named capability. The policy is built
// from the capability name at evaluation time; protecting a route with
// a brand-new name needs no registration anywhere else. Because the
// claims are a frozen snapshot from issuance, grant/denial edits made
// after login only take effect on re-login.
func RequirePermission(capability string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tc, ok := ClaimsFrom(c)
			if !ok || !authz.HasCapability(tc.Permissions, capability) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
