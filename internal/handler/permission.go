package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/waylysyn-hub/SchoolManagementAPI/internal/authz"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/middleware"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/model"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/queue"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/repository"
	queue_publisher "github.com/waylysyn-hub/SchoolManagementAPI/internal/service"
)

// PermissionHandler exposes the administrative permission surface:
// capability CRUD plus per-user grant/denial management. All routes are
// mounted behind RequireRole("Admin").
type PermissionHandler struct {
	Perms PermissionStore
}

func NewPermissionHandler(p PermissionStore) *PermissionHandler {
	return &PermissionHandler{Perms: p}
}

type permissionReq struct {
	Name string `json:"name"`
}

type permissionResp struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// List returns all registered capability names.
func (h *PermissionHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	perms, err := h.Perms.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]permissionResp, 0, len(perms))
	for _, p := range perms {
		out = append(out, permissionResp{ID: p.ID, Name: p.Name})
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one permission by id.
func (h *PermissionHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid permission id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Perms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPermissionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "permission not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, permissionResp{ID: p.ID, Name: p.Name})
}

// Create registers a new capability name.
func (h *PermissionHandler) Create(c echo.Context) error {
	var req permissionReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "permission name required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Perms.Create(ctx, req.Name)
	if err != nil {
		if errors.Is(err, repository.ErrPermissionExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "permission name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create permission failed"})
	}
	return c.JSON(http.StatusCreated, permissionResp{ID: p.ID, Name: p.Name})
}

// Update renames a capability.
func (h *PermissionHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid permission id"})
	}
	var req permissionReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "permission name required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Perms.Rename(ctx, id, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPermissionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "permission not found"})
		case errors.Is(err, repository.ErrPermissionExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "permission name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rename permission failed"})
	}
	return c.JSON(http.StatusOK, permissionResp{ID: p.ID, Name: p.Name})
}

// Delete removes a capability and all links referencing it.
func (h *PermissionHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid permission id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Perms.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrPermissionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "permission not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete permission failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "permission deleted"})
}

// UserPermissions returns a user's current effective permission set,
// resolved live from the capability store (unlike a token, which is a
// frozen snapshot from issuance).
func (h *PermissionHandler) UserPermissions(c echo.Context) error {
	userID, err := pathID(c, "userID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	state, err := h.Perms.StateForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":     userID,
		"permissions": authz.EffectiveSet(state),
	})
}

// AddToUser gives a permission to a user. The outcome distinguishes a
// fresh grant, a lifted denial and a no-op, so the admin always learns
// what actually happened.
func (h *PermissionHandler) AddToUser(c echo.Context) error {
	return h.mutate(c, h.Perms.AddToUser, map[authz.Outcome]string{
		authz.OutcomeGranted:      "permission %q assigned to user",
		authz.OutcomeDenialLifted: "denial lifted, permission %q restored from role",
		authz.OutcomeAlreadyHeld:  "user already has permission %q",
	})
}

// RemoveFromUser takes a permission away from a user: direct grants are
// deleted, role defaults are overridden with a denial.
func (h *PermissionHandler) RemoveFromUser(c echo.Context) error {
	return h.mutate(c, h.Perms.RemoveFromUser, map[authz.Outcome]string{
		authz.OutcomeGrantDeleted: "permission %q removed from user",
		authz.OutcomeDenied:       "permission %q denied, role default overridden",
		authz.OutcomeNotHeld:      "user does not have permission %q",
	})
}

func (h *PermissionHandler) mutate(
	c echo.Context,
	apply func(ctx context.Context, userID, permID uint64) (authz.Outcome, model.Permission, error),
	messages map[authz.Outcome]string,
) error {
	userID, err := pathID(c, "userID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	permID, err := pathID(c, "permissionID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid permission id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	outcome, perm, err := apply(ctx, userID, permID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		case errors.Is(err, repository.ErrPermissionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "permission not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update permissions failed"})
	}

	if outcome.Applied() {
		var actorID uint64
		if tc, ok := middleware.ClaimsFrom(c); ok {
			actorID = tc.UserID
		}
		_ = queue_publisher.PublishPermissionChanged(ctx, queue.PermissionChangedEvent{
			UserID:       userID,
			PermissionID: permID,
			Permission:   perm.Name,
			Outcome:      outcome.String(),
			ActorID:      actorID,
			ChangedAt:    time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": messageFor(messages, outcome, perm.Name),
		"outcome": outcome.String(),
		"applied": outcome.Applied(),
	})
}

func messageFor(messages map[authz.Outcome]string, o authz.Outcome, name string) string {
	if tmpl, ok := messages[o]; ok {
		return fmt.Sprintf(tmpl, name)
	}
	return o.String()
}

// reqCtx bounds the duration of the repository calls behind a handler.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}
