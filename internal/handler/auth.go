package handler

import (
	"context"  // context with cancellation for DB calls
	"errors"   // sentinel error matching
	"net/http" // HTTP status codes and primitives
	"strings"  // input normalization
	"time"     // timeouts for DB calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/waylysyn-hub/SchoolManagementAPI/internal/authz"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/config"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/middleware"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/model"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/queue"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/repository"
	queue_publisher "github.com/waylysyn-hub/SchoolManagementAPI/internal/service"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/utils"
)

// UserStore is the slice of the user repository the handlers need.
// Declaring it here lets tests substitute an in-memory stub.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetRole(ctx context.Context, id uint64) (model.Role, error)
	Create(ctx context.Context, username, email, password string, roleID uint64, cost int) (uint64, error)
	Update(ctx context.Context, id uint64, username, email string) error
	UpdatePassword(ctx context.Context, id uint64, password string, cost int) error
	UpdateRole(ctx context.Context, userID, roleID uint64) (model.Role, error)
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context) ([]model.User, error)
}

// PermissionStore is the permission repository contract used by the
// auth and admin handlers.
type PermissionStore interface {
	List(ctx context.Context) ([]model.Permission, error)
	GetByID(ctx context.Context, id uint64) (model.Permission, error)
	Create(ctx context.Context, name string) (model.Permission, error)
	Rename(ctx context.Context, id uint64, name string) (model.Permission, error)
	Delete(ctx context.Context, id uint64) error
	StateForUser(ctx context.Context, userID uint64) (authz.PermissionState, error)
	AddToUser(ctx context.Context, userID, permID uint64) (authz.Outcome, model.Permission, error)
	RemoveFromUser(ctx context.Context, userID, permID uint64) (authz.Outcome, model.Permission, error)
}

// TokenRegistry is the revocation contract logout depends on.
type TokenRegistry interface {
	Revoke(ctx context.Context, rawToken string, expiry time.Time) error
}

// AuthHandler bundles dependencies for the login/logout endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    UserStore
	Perms    PermissionStore
	Registry TokenRegistry
}

func NewAuthHandler(cfg config.Config, u UserStore, p PermissionStore, reg TokenRegistry) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Perms: p, Registry: reg}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResp struct {
	Token       string   `json:"token"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// Login verifies credentials and issues a signed token carrying a
// snapshot of the user's effective permission set. An unknown email and
// a wrong password produce the same response so the endpoint cannot be
// used to enumerate accounts.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid email or password"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid email or password"})
	}

	state, err := h.Perms.StateForUser(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resolve permissions failed"})
	}
	permissions := authz.EffectiveSet(state)

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u, permissions, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}

	return c.JSON(http.StatusOK, loginResp{
		Token:       access.Token,
		Role:        u.RoleName,
		Permissions: permissions,
	})
}

// Logout revokes the presented bearer token until its original expiry.
// The signature is validated but the lifetime check is deliberately
// skipped: a token on the verge of expiry must still be revocable. The
// route is registered outside the JWTAuth group for the same reason.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw, ok := middleware.BearerToken(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing bearer token"})
	}

	claims, err := utils.ParseTokenAllowExpired(h.Cfg.JWTSecret, raw)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token or signature"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Registry.Revoke(ctx, raw, claims.ExpiresAt); err != nil {
		if errors.Is(err, repository.ErrAlreadyRevoked) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "token already revoked"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}

	// Audit trail; a broker outage never fails the logout itself.
	_ = queue_publisher.PublishTokenRevoked(ctx, queue.TokenRevokedEvent{
		UserID:       claims.UserID,
		Fingerprint:  utils.Fingerprint(raw),
		RevokedUntil: claims.ExpiresAt.Format(time.RFC3339),
		RevokedAt:    time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message":       "logout successful, token is now invalidated",
		"revoked_until": claims.ExpiresAt,
	})
}

// Me returns the identity baked into the validated token.
func (h *AuthHandler) Me(c echo.Context) error {
	tc, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":     tc.UserID,
		"email":       tc.Email,
		"role":        tc.RoleName,
		"permissions": tc.Permissions,
	})
}
