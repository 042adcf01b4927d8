package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/waylysyn-hub/SchoolManagementAPI/internal/model"
)

// RevocationRepo persists revoked-token records (single 'fingerprint'
// column keyed uniquely, adapted from the refresh-token store this
// service grew out of). A record carries the token's original expiry so
// rows become prunable once the token would have died naturally.
type RevocationRepo struct{ DB *sql.DB }

func NewRevocationRepo(db *sql.DB) *RevocationRepo { return &RevocationRepo{DB: db} }

// Revoke inserts a revoked-token row. The fingerprint column is unique,
// so revoking an already-revoked token surfaces as ErrAlreadyRevoked
// and never writes a duplicate record.
func (r *RevocationRepo) Revoke(ctx context.Context, fingerprint string, expiry time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO revoked_tokens (fingerprint, expires_at) VALUES (?,?)",
		fingerprint, expiry)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrAlreadyRevoked
		}
		return err
	}
	return nil
}

// Find returns the registry record for a fingerprint; sql.ErrNoRows
// when the token was never revoked.
func (r *RevocationRepo) Find(ctx context.Context, fingerprint string) (model.RevokedToken, error) {
	var rec model.RevokedToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, fingerprint, expires_at, revoked_at FROM revoked_tokens WHERE fingerprint=? LIMIT 1",
		fingerprint).
		Scan(&rec.ID, &rec.Fingerprint, &rec.ExpiresAt, &rec.RevokedAt)
	return rec, err
}

// IsRevoked reports whether a registry record exists for the
// fingerprint. This sits on the critical path of every authenticated
// request; the revocation package fronts it with a short-TTL cache.
func (r *RevocationRepo) IsRevoked(ctx context.Context, fingerprint string) (bool, error) {
	_, err := r.Find(ctx, fingerprint)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PruneExpired deletes records whose copied expiry has passed. A record
// is only ever consulted before its expiry (the lifetime check rejects
// the token first afterwards), so pruning cannot change any decision.
func (r *RevocationRepo) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM revoked_tokens WHERE expires_at < ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
