package model

// Permission represents a row in the `permissions` table. The name
// is an opaque capability identifier such as "course.read" or
// "student.delete"; the rest of the system compares these strings
// for identity and never interprets their structure.
//
// The role_permissions, user_permissions and user_denied_permissions
// link tables have no structs here: the repository loads them straight
// into the id-to-name indices of authz.PermissionState, so the pairs
// never exist as rows in memory.
//
// Fields:
//  ID   – numeric identifier of the permission.
//  Name – unique capability name.
type Permission struct {
	ID   uint64 // permissions.id
	Name string // permissions.name
}
