package model

import "time"

// RevokedToken models an entry in the `revoked_tokens` table. A row
// is written when a token is invalidated before its natural expiry
// (logout or administrative revocation). The token itself is not
// stored; only its SHA-256 fingerprint. ExpiresAt copies the
// token's original expiry so the row can be pruned once the token
// would have died on its own anyway.
//
// Fields:
//  ID          – primary key identifier.
//  Fingerprint – SHA-256 hex digest of the exact token string.
//  ExpiresAt   – the token's original expiry.
//  RevokedAt   – when the revocation was recorded.
type RevokedToken struct {
	ID          uint64    // revoked_tokens.id
	Fingerprint string    // revoked_tokens.fingerprint (unique)
	ExpiresAt   time.Time // revoked_tokens.expires_at
	RevokedAt   time.Time // revoked_tokens.revoked_at
}
