package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waylysyn-hub/SchoolManagementAPI/internal/model"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/utils"
)

const secret = "test-secret"

func testUser() model.User {
	return model.User{
		ID:       7,
		Email:    "amal@example.com",
		RoleID:   2,
		RoleName: "Teacher",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	perms := []string{"course.read", "course.update"}

	at, err := utils.NewAccessToken(secret, testUser(), perms, 120)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(2*time.Hour), at.Exp, 5*time.Second)

	tc, err := utils.ParseToken(secret, at.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), tc.UserID)
	assert.Equal(t, "amal@example.com", tc.Email)
	assert.Equal(t, uint64(2), tc.RoleID)
	assert.Equal(t, "Teacher", tc.RoleName)
	assert.Equal(t, perms, tc.Permissions)
	assert.Equal(t, at.Exp.Unix(), tc.ExpiresAt.Unix())
}

func TestParseTokenWrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken(secret, testUser(), nil, 120)
	require.NoError(t, err)

	_, err = utils.ParseToken("other-secret", at.Token)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := utils.ParseToken(secret, "not.a.jwt")
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}

func TestExpiredTokenStillParsableForLogout(t *testing.T) {
	// Negative TTL produces a token that is already expired.
	at, err := utils.NewAccessToken(secret, testUser(), []string{"course.read"}, -5)
	require.NoError(t, err)

	_, err = utils.ParseToken(secret, at.Token)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)

	// Logout must still be able to read the claims to learn the
	// original expiry, so the lifetime check is skipped there.
	tc, err := utils.ParseTokenAllowExpired(secret, at.Token)
	require.NoError(t, err)
	assert.Equal(t, at.Exp.Unix(), tc.ExpiresAt.Unix())
}

func TestParseTokenAllowExpiredStillChecksSignature(t *testing.T) {
	at, err := utils.NewAccessToken(secret, testUser(), nil, -5)
	require.NoError(t, err)

	_, err = utils.ParseTokenAllowExpired("other-secret", at.Token)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}

func TestFingerprint(t *testing.T) {
	a := utils.Fingerprint("token-a")
	b := utils.Fingerprint("token-b")

	assert.Len(t, a, 64) // hex-encoded SHA-256
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, utils.Fingerprint("token-a"))
}
