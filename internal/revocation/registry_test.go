package revocation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waylysyn-hub/SchoolManagementAPI/internal/repository"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/revocation"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/utils"
)

// stubStore is an in-memory Store standing in for the MySQL-backed
// repository in tests.
type stubStore struct {
	records map[string]time.Time
	err     error
}

func newStubStore() *stubStore {
	return &stubStore{records: map[string]time.Time{}}
}

func (s *stubStore) Revoke(ctx context.Context, fp string, expiry time.Time) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.records[fp]; ok {
		return repository.ErrAlreadyRevoked
	}
	s.records[fp] = expiry
	return nil
}

func (s *stubStore) IsRevoked(ctx context.Context, fp string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.records[fp]
	return ok, nil
}

func (s *stubStore) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for fp, exp := range s.records {
		if exp.Before(now) {
			delete(s.records, fp)
			n++
		}
	}
	return n, nil
}

func newCachedRegistry(t *testing.T, store revocation.Store, ttl time.Duration) (*revocation.Registry, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return revocation.NewRegistry(store, client, ttl), mr
}

func TestRevokeAndLookup(t *testing.T) {
	store := newStubStore()
	reg, _ := newCachedRegistry(t, store, time.Minute)
	ctx := context.Background()
	expiry := time.Now().UTC().Add(2 * time.Hour)

	revoked, err := reg.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, reg.Revoke(ctx, "tok", expiry))

	// Revoke overwrites the cached negative result, so the very next
	// request already sees the token as revoked.
	revoked, err = reg.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRevokeIdempotent(t *testing.T) {
	store := newStubStore()
	reg, _ := newCachedRegistry(t, store, time.Minute)
	ctx := context.Background()
	expiry := time.Now().UTC().Add(2 * time.Hour)

	require.NoError(t, reg.Revoke(ctx, "tok", expiry))
	err := reg.Revoke(ctx, "tok", expiry)
	assert.ErrorIs(t, err, repository.ErrAlreadyRevoked)
	assert.Len(t, store.records, 1)
}

func TestCachedNegativeExpiresAfterTTL(t *testing.T) {
	store := newStubStore()
	reg, mr := newCachedRegistry(t, store, 5*time.Second)
	ctx := context.Background()

	revoked, err := reg.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)

	// A revocation written behind the cache's back (another instance)
	// stays invisible until the cached entry ages out.
	require.NoError(t, store.Revoke(ctx, utils.Fingerprint("tok"), time.Now().Add(time.Hour)))

	revoked, err = reg.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked, "cached negative still served")

	mr.FastForward(6 * time.Second)

	revoked, err = reg.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked, "cache expired, store consulted again")
}

func TestStoreErrorFailsClosed(t *testing.T) {
	store := newStubStore()
	store.err = errors.New("mysql down")
	reg := revocation.NewRegistry(store, nil, 0)

	_, err := reg.IsRevoked(context.Background(), "tok")
	assert.Error(t, err)
}

func TestNoCacheDegradesToStore(t *testing.T) {
	store := newStubStore()
	reg := revocation.NewRegistry(store, nil, time.Minute)
	ctx := context.Background()

	require.NoError(t, reg.Revoke(ctx, "tok", time.Now().Add(time.Hour)))
	revoked, err := reg.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestPruneExpired(t *testing.T) {
	store := newStubStore()
	reg := revocation.NewRegistry(store, nil, 0)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, reg.Revoke(ctx, "dead", now.Add(-time.Minute)))
	require.NoError(t, reg.Revoke(ctx, "alive", now.Add(time.Hour)))

	n, err := reg.PruneExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	revoked, err := reg.IsRevoked(ctx, "alive")
	require.NoError(t, err)
	assert.True(t, revoked)
}
