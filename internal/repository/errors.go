// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting message text. For example, ErrPermissionExists signals a
// duplicate capability name, while ErrAlreadyRevoked tells the logout
// path that the registry already holds a record for the token.
package repository

import "errors"

// ErrUserNotFound is returned when a user id or email does not match
// any row. Handlers should translate this into an HTTP 404 (admin
// surfaces) or into the uniform credential failure (login).
var ErrUserNotFound = errors.New("user not found")

// ErrPermissionNotFound is returned when a permission id does not
// exist. Handlers should translate this into an HTTP 404 response.
var ErrPermissionNotFound = errors.New("permission not found")

// ErrRoleNotFound is returned when a referenced role id does not
// exist, e.g. while creating a user.
var ErrRoleNotFound = errors.New("role not found")

// ErrPermissionExists is returned when creating or renaming a
// permission would duplicate an existing capability name. Handlers
// should translate this into an HTTP 409 response.
var ErrPermissionExists = errors.New("permission name already exists")

// ErrEmailExists is returned when creating a user with an email that
// is already in use. Handlers should translate this into an HTTP 409
// response.
var ErrEmailExists = errors.New("email already exists")

// ErrAlreadyRevoked is returned when revoking a token that already has
// a registry record. The operation is idempotent: no duplicate row is
// written.
var ErrAlreadyRevoked = errors.New("token already revoked")
