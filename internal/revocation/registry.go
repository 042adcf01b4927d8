// Package revocation wraps the persistent revoked-token store with a
// short-TTL Redis cache. The registry lookup runs on every
// authenticated request before any handler, so the cache trades a
// bounded revocation-propagation delay (at most the cache TTL) for one
// less database round trip per request.
package revocation

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/waylysyn-hub/SchoolManagementAPI/internal/utils"
)

// Store is the persistent registry backing the cache. Implemented by
// repository.RevocationRepo.
type Store interface {
	Revoke(ctx context.Context, fingerprint string, expiry time.Time) error
	IsRevoked(ctx context.Context, fingerprint string) (bool, error)
	PruneExpired(ctx context.Context, now time.Time) (int64, error)
}

// Registry answers "is this token revoked?" and records revocations.
// Callers hand it raw token strings; fingerprinting happens here so the
// exact token text never reaches Redis or MySQL.
type Registry struct {
	store Store
	cache *redis.Client // nil disables caching
	ttl   time.Duration
}

// NewRegistry builds a Registry. A nil cache client or non-positive TTL
// degrades to store-only lookups, mirroring how the rest of the service
// treats Redis as an optional accelerator.
func NewRegistry(store Store, cache *redis.Client, ttl time.Duration) *Registry {
	if ttl <= 0 {
		cache = nil
	}
	return &Registry{store: store, cache: cache, ttl: ttl}
}

// Revoke records the token until its original expiry. Idempotent at the
// store level: a second call surfaces the store's already-revoked error
// without writing a duplicate. The cache entry is overwritten either
// way so the very next lookup sees the revocation.
func (r *Registry) Revoke(ctx context.Context, rawToken string, expiry time.Time) error {
	fp := utils.Fingerprint(rawToken)
	err := r.store.Revoke(ctx, fp, expiry)
	if err == nil && r.cache != nil {
		// Best effort: a failed cache write only delays visibility by
		// one TTL, it never loses the revocation itself.
		_ = r.cache.Set(ctx, cacheKey(fp), "1", r.ttl).Err()
	}
	return err
}

// IsRevoked checks the cache first and falls back to the store. Cache
// errors fall through to the store; store errors propagate so the gate
// fails closed.
func (r *Registry) IsRevoked(ctx context.Context, rawToken string) (bool, error) {
	fp := utils.Fingerprint(rawToken)
	if r.cache != nil {
		if v, err := r.cache.Get(ctx, cacheKey(fp)).Result(); err == nil {
			return v == "1", nil
		}
	}
	revoked, err := r.store.IsRevoked(ctx, fp)
	if err != nil {
		return false, err
	}
	if r.cache != nil {
		v := "0"
		if revoked {
			v = "1"
		}
		_ = r.cache.Set(ctx, cacheKey(fp), v, r.ttl).Err()
	}
	return revoked, nil
}

// PruneExpired drops registry records whose copied expiry has passed.
func (r *Registry) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.store.PruneExpired(ctx, now)
}

func cacheKey(fingerprint string) string { return "revoked:" + fingerprint }
