package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waylysyn-hub/SchoolManagementAPI/internal/handler"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/middleware"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/utils"
)

// withClaims simulates the claims JWTAuth would have stored for the
// request.
func withClaims(tc utils.TokenClaims) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			middleware.SetClaims(c, tc, "raw")
			return next(c)
		}
	}
}

func userServer(t *testing.T, claims ...utils.TokenClaims) (*echo.Echo, *stubUsers, *stubPerms) {
	t.Helper()
	_, users, perms, _ := fixture(t)
	h := handler.NewUserHandler(testConfig(), users, perms)

	var mw []echo.MiddlewareFunc
	if len(claims) > 0 {
		mw = append(mw, withClaims(claims[0]))
	}

	e := echo.New()
	g := e.Group("/v1/users", mw...)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.PUT("/:id/password", h.UpdatePassword)
	g.PUT("/:id/role", h.UpdateRole)
	g.DELETE("/:id", h.Delete)
	return e, users, perms
}

func TestUpdateRoleSwapsDefaultsAndClearsOverrides(t *testing.T) {
	e, users, perms := userServer(t)

	// The fixture teacher has a denial on course.update; a demotion to
	// Student replaces the role defaults and drops the override.
	rec := doJSON(e, http.MethodPut, "/v1/users/7/role", `{"role_id":3}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"Student"`)
	assert.Contains(t, rec.Body.String(), "course.read")
	assert.NotContains(t, rec.Body.String(), "course.update")

	assert.Equal(t, uint64(3), users.byID[7].RoleID)
	assert.Empty(t, perms.states[7].Denials)
	assert.Empty(t, perms.states[7].Grants)
}

func TestUpdateRoleUnknownRole(t *testing.T) {
	e, users, _ := userServer(t)

	rec := doJSON(e, http.MethodPut, "/v1/users/7/role", `{"role_id":42}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "role not found")
	assert.Equal(t, uint64(2), users.byID[7].RoleID, "role unchanged")
}

func TestUpdateRoleUnknownUser(t *testing.T) {
	e, _, _ := userServer(t)

	rec := doJSON(e, http.MethodPut, "/v1/users/99/role", `{"role_id":3}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePasswordSelf(t *testing.T) {
	e, users, _ := userServer(t, utils.TokenClaims{UserID: 7, RoleName: "Teacher"})

	rec := doJSON(e, http.MethodPut, "/v1/users/7/password",
		`{"current_password":"correct-horse","new_password":"battery-staple"}`, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, utils.VerifyPassword(users.byID[7].PasswordHash, "battery-staple"))
}

func TestUpdatePasswordWrongCurrent(t *testing.T) {
	e, users, _ := userServer(t, utils.TokenClaims{UserID: 7, RoleName: "Teacher"})

	rec := doJSON(e, http.MethodPut, "/v1/users/7/password",
		`{"current_password":"wrong","new_password":"battery-staple"}`, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, utils.VerifyPassword(users.byID[7].PasswordHash, "correct-horse"),
		"hash unchanged")
}

func TestUpdatePasswordOtherUserForbidden(t *testing.T) {
	e, _, _ := userServer(t, utils.TokenClaims{UserID: 42, RoleName: "Student"})

	rec := doJSON(e, http.MethodPut, "/v1/users/7/password",
		`{"current_password":"correct-horse","new_password":"battery-staple"}`, "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdatePasswordAdminMayChangeAnyUser(t *testing.T) {
	e, users, _ := userServer(t, utils.TokenClaims{UserID: 42, RoleName: "Admin"})

	rec := doJSON(e, http.MethodPut, "/v1/users/7/password",
		`{"current_password":"correct-horse","new_password":"battery-staple"}`, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, utils.VerifyPassword(users.byID[7].PasswordHash, "battery-staple"))
}

func TestUpdateUserEmailConflict(t *testing.T) {
	e, users, _ := userServer(t)
	_, err := users.Create(context.Background(), "sami", "sami@example.com", "pw", 3, 4)
	require.NoError(t, err)

	rec := doJSON(e, http.MethodPut, "/v1/users/7",
		`{"username":"amal","email":"sami@example.com"}`, "")

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateUserRename(t *testing.T) {
	e, users, _ := userServer(t)

	rec := doJSON(e, http.MethodPut, "/v1/users/7",
		`{"username":"amal-k","email":"amal.k@example.com"}`, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "amal-k", users.byID[7].Username)
	assert.Equal(t, "amal.k@example.com", users.byID[7].Email)
}

func TestDeleteUser(t *testing.T) {
	e, users, _ := userServer(t)

	rec := doJSON(e, http.MethodDelete, "/v1/users/7", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, users.byID)

	rec = doJSON(e, http.MethodDelete, "/v1/users/7", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateUserUnknownRole(t *testing.T) {
	e, _, _ := userServer(t)

	rec := doJSON(e, http.MethodPost, "/v1/users",
		`{"username":"sami","email":"sami@example.com","password":"pw","role_id":42}`, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "role not found")
}
