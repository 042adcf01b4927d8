package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waylysyn-hub/SchoolManagementAPI/internal/middleware"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/model"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/utils"
)

const secret = "gate-secret"

// stubRevocations implements middleware.TokenRevocations in memory.
type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s *stubRevocations) IsRevoked(ctx context.Context, raw string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.revoked[raw], nil
}

func issueToken(t *testing.T, role string, perms []string, ttlMin int) string {
	t.Helper()
	u := model.User{ID: 1, Email: "u@example.com", RoleID: 3, RoleName: role}
	at, err := utils.NewAccessToken(secret, u, perms, ttlMin)
	require.NoError(t, err)
	return at.Token
}

// protectedServer wires JWTAuth plus the given extra middleware in
// front of a handler that records whether it ran.
func protectedServer(reg middleware.TokenRevocations, handled *bool, extra ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	g := e.Group("/v1", middleware.JWTAuth(secret, reg))
	g.GET("/resource", func(c echo.Context) error {
		*handled = true
		return c.String(http.StatusOK, "ok")
	}, extra...)
	return e
}

func doGet(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/resource", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthValidToken(t *testing.T) {
	handled := false
	e := protectedServer(&stubRevocations{revoked: map[string]bool{}}, &handled)

	rec := doGet(e, issueToken(t, "Teacher", []string{"course.read"}, 120))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, handled)
}

func TestJWTAuthMissingBearer(t *testing.T) {
	handled := false
	e := protectedServer(&stubRevocations{revoked: map[string]bool{}}, &handled)

	rec := doGet(e, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, handled)
}

func TestJWTAuthExpiredToken(t *testing.T) {
	handled := false
	e := protectedServer(&stubRevocations{revoked: map[string]bool{}}, &handled)

	rec := doGet(e, issueToken(t, "Teacher", nil, -5))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, handled)
}

func TestJWTAuthRevokedTokenRejectedBeforeHandler(t *testing.T) {
	// Structurally valid, unexpired, but revoked: rejected on the very
	// next request even though signature and expiry alone would pass.
	token := issueToken(t, "Teacher", []string{"course.read"}, 120)
	handled := false
	e := protectedServer(&stubRevocations{revoked: map[string]bool{token: true}}, &handled,
		middleware.RequirePermission("course.read"))

	rec := doGet(e, token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token revoked")
	assert.False(t, handled)
}

func TestJWTAuthRegistryErrorFailsClosed(t *testing.T) {
	handled := false
	e := protectedServer(&stubRevocations{err: errors.New("redis and mysql down")}, &handled)

	rec := doGet(e, issueToken(t, "Teacher", nil, 120))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, handled)
}

func TestRequirePermission(t *testing.T) {
	reg := &stubRevocations{revoked: map[string]bool{}}

	handled := false
	e := protectedServer(reg, &handled, middleware.RequirePermission("course.delete"))

	// Capability present in the claims snapshot.
	rec := doGet(e, issueToken(t, "Teacher", []string{"course.read", "course.delete"}, 120))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, handled)

	// Capability absent: valid identity, missing capability.
	handled = false
	rec = doGet(e, issueToken(t, "Teacher", []string{"course.read"}, 120))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, handled)
}

func TestRequireRole(t *testing.T) {
	reg := &stubRevocations{revoked: map[string]bool{}}

	handled := false
	e := protectedServer(reg, &handled, middleware.RequireRole("Admin"))

	rec := doGet(e, issueToken(t, "Admin", nil, 120))
	assert.Equal(t, http.StatusOK, rec.Code)

	handled = false
	rec = doGet(e, issueToken(t, "Student", nil, 120))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, handled)
}
