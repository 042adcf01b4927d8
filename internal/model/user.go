package model

import "time"

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. The json tags are omitted here because these structs
// are primarily used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
// RoleName is not a column: it is filled by the repository when
// the roles table is joined, so callers never navigate from a
// user back into a Role object.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – display name of the user.
//  Email        – unique email address, stored lowercase.
//  PasswordHash – bcrypt hashed password.
//  RoleID       – foreign key into the roles table.
//  RoleName     – name of the assigned role (joined, not stored).
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	RoleID       uint64    // users.role_id (references roles.id)
	RoleName     string    // roles.name (join)
	CreatedAt    time.Time // users.created_at
}

// Role represents a row in the `roles` table. It maps a numeric
// ID to a unique role name. Users reference this table via their
// RoleID field; role-level permission defaults live in the
// role_permissions link table.
//
// Fields:
//  ID   – numeric identifier of the role.
//  Name – unique role name (e.g. Admin, Teacher, Student).
type Role struct {
	ID   uint64 // roles.id
	Name string // roles.name
}
