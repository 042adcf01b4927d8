// Package queue defines message payloads exchanged over the message broker.
package queue

// AuditQueueName is the durable queue carrying authorization audit
// events. Both event types below share it; Kind tells them apart.
const AuditQueueName = "auth.audit"

// Event kinds carried on the audit queue.
const (
	KindPermissionChanged = "permission.changed"
	KindTokenRevoked      = "token.revoked"
)

// PermissionChangedEvent is published whenever an administrator changes
// a user's permission state (grant created, grant deleted, denial
// created or lifted). It carries enough information for downstream
// consumers to log or alert without querying the primary database.
type PermissionChangedEvent struct {
	Kind         string `json:"kind"` // KindPermissionChanged
	UserID       uint64 `json:"user_id"`
	PermissionID uint64 `json:"permission_id"`
	Permission   string `json:"permission"`
	Outcome      string `json:"outcome"` // granted | denial lifted | grant deleted | denied
	ActorID      uint64 `json:"actor_id"`
	ChangedAt    string `json:"changed_at"`
}

// TokenRevokedEvent is published when a token is invalidated before its
// natural expiry (logout). RevokedUntil is the token's original expiry,
// after which the revocation record itself becomes prunable.
type TokenRevokedEvent struct {
	Kind         string `json:"kind"` // KindTokenRevoked
	UserID       uint64 `json:"user_id"`
	Fingerprint  string `json:"fingerprint"`
	RevokedUntil string `json:"revoked_until"`
	RevokedAt    string `json:"revoked_at"`
}
