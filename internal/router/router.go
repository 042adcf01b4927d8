package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework used for routing

	"github.com/waylysyn-hub/SchoolManagementAPI/internal/handler"    // handlers implementing the endpoints
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/middleware" // JWT, role, capability and rate-limit middleware
)

// Deps bundles everything route registration needs. The router wires
// three surfaces: unauthenticated auth endpoints, a token-protected
// group, and the admin group demonstrating both authorization
// mechanisms (role allow-list and capability claims).
type Deps struct {
	Auth        *handler.AuthHandler
	Permissions *handler.PermissionHandler
	Users       *handler.UserHandler
	JWTSecret   string
	Registry    middleware.TokenRevocations
	LoginLimit  echo.MiddlewareFunc
}

// Register registers all application routes on the provided Echo
// instance.
func Register(e *echo.Echo, d Deps) {
	// Health check for load balancers and monitoring; no auth.
	e.GET("/healthz", handler.Health)

	// Unauthenticated auth operations. Login sits behind the rate
	// limiter so credential stuffing drains the bucket before it ever
	// reaches bcrypt. Logout lives here too: it must accept tokens the
	// JWTAuth group would reject for expiry, and validates the
	// signature itself.
	auth := e.Group("/v1/auth")
	auth.POST("/login", d.Auth.Login, d.LoginLimit)
	auth.POST("/logout", d.Auth.Logout)

	// Token-protected group: every route below runs signature,
	// lifetime and revocation checks before its handler.
	v1 := e.Group("/v1", middleware.JWTAuth(d.JWTSecret, d.Registry))
	v1.GET("/me", d.Auth.Me)

	// Password changes are open to any authenticated user; the handler
	// enforces self-or-Admin and verifies the current password.
	v1.PUT("/users/:id/password", d.Users.UpdatePassword)

	// Administrative permission surface, guarded by the coarse role
	// allow-list the original system used for it.
	perms := v1.Group("/permissions", middleware.RequireRole("Admin"))
	perms.GET("", d.Permissions.List)
	perms.GET("/:id", d.Permissions.Get)
	perms.POST("", d.Permissions.Create)
	perms.PUT("/:id", d.Permissions.Update)
	perms.DELETE("/:id", d.Permissions.Delete)
	perms.GET("/user/:userID", d.Permissions.UserPermissions)
	perms.POST("/user/:userID/add/:permissionID", d.Permissions.AddToUser)
	perms.DELETE("/user/:userID/remove/:permissionID", d.Permissions.RemoveFromUser)

	// Administrative user surface, guarded by a capability claim
	// instead: any token whose snapshot carries "user.manage" may call
	// these, whatever its role is named.
	users := v1.Group("/users", middleware.RequirePermission("user.manage"))
	users.GET("", d.Users.List)
	users.GET("/:id", d.Users.Get)
	users.POST("", d.Users.Create)
	users.PUT("/:id", d.Users.Update)
	users.PUT("/:id/role", d.Users.UpdateRole)
	users.DELETE("/:id", d.Users.Delete)
}
