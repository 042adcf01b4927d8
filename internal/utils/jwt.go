package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA-256 fingerprints for the revocation registry
	"encoding/hex"  // hex encoding of digests
	"errors"        // sentinel error values
	"time"          // expiry computation

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens

	"github.com/waylysyn-hub/SchoolManagementAPI/internal/model"
)

// ErrInvalidToken is returned for any token that fails signature,
// structure or (where applicable) lifetime validation. Callers never
// learn which of those failed.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string. Exp stores the expiration
// timestamp as a time.Time. Tokens are encoded in the Authorization
// header when calling protected endpoints.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenClaims is the decoded claim set of an access token. A token is a
// frozen snapshot: the permission names here are whatever the user's
// effective set was at issuance, and later grant/denial edits never
// change an outstanding token.
type TokenClaims struct {
	UserID      uint64    // "sub"
	Email       string    // "email"
	RoleID      uint64    // "role_id"
	RoleName    string    // "role_name" (duplicated under "role")
	Permissions []string  // "permission", one entry per capability
	IssuedAt    time.Time // "iat"
	ExpiresAt   time.Time // "exp"
}

// NewAccessToken builds and signs an HS256 JWT for a user. The claim set
// carries the subject id, email, role id and role name (the latter both
// under "role_name" and a generic "role" key so coarse role checks keep
// working), plus the effective permission names at issuance. The expiry
// is issued-at plus ttlMin minutes; there is no refresh mechanism.
func NewAccessToken(secret string, u model.User, permissions []string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":        u.ID,
		"email":      u.Email,
		"role_id":    u.RoleID,
		"role_name":  u.RoleName,
		"role":       u.RoleName,
		"permission": permissions,
		"iat":        now.Unix(),
		"exp":        exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseToken verifies signature and lifetime of a serialized token and
// returns its decoded claims. Used on every authenticated request.
func ParseToken(secret, raw string) (TokenClaims, error) {
	return parse(secret, raw, false)
}

// ParseTokenAllowExpired verifies the signature but deliberately skips
// lifetime validation. Logout uses it so that a token on the verge of
// expiry (or just past it) can still be revoked.
func ParseTokenAllowExpired(secret, raw string) (TokenClaims, error) {
	return parse(secret, raw, true)
}

func parse(secret, raw string, allowExpired bool) (TokenClaims, error) {
	keyFn := func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC; otherwise an
		// attacker could switch the algorithm and forge signatures.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}

	var (
		tok *jwt.Token
		err error
	)
	if allowExpired {
		p := jwt.NewParser(jwt.WithoutClaimsValidation())
		tok, err = p.Parse(raw, keyFn)
	} else {
		tok, err = jwt.Parse(raw, keyFn)
	}
	if err != nil || !tok.Valid {
		return TokenClaims{}, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, ErrInvalidToken
	}
	return claimsFrom(mc)
}

// claimsFrom converts the raw MapClaims into a typed TokenClaims. JSON
// numbers decode as float64, so the numeric claims are converted back.
func claimsFrom(mc jwt.MapClaims) (TokenClaims, error) {
	var tc TokenClaims

	sub, ok := asUint64(mc["sub"])
	if !ok {
		return TokenClaims{}, ErrInvalidToken
	}
	tc.UserID = sub
	tc.RoleID, _ = asUint64(mc["role_id"])

	tc.Email, _ = mc["email"].(string)
	tc.RoleName, _ = mc["role_name"].(string)
	if tc.RoleName == "" {
		tc.RoleName, _ = mc["role"].(string)
	}

	if raw, ok := mc["permission"].([]interface{}); ok {
		tc.Permissions = make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				tc.Permissions = append(tc.Permissions, s)
			}
		}
	}

	exp, ok := asUnixTime(mc["exp"])
	if !ok {
		return TokenClaims{}, ErrInvalidToken
	}
	tc.ExpiresAt = exp
	if iat, ok := asUnixTime(mc["iat"]); ok {
		tc.IssuedAt = iat
	}
	return tc, nil
}

func asUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case uint64:
		return n, true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	}
	return 0, false
}

func asUnixTime(v interface{}) (time.Time, bool) {
	switch n := v.(type) {
	case float64:
		return time.Unix(int64(n), 0).UTC(), true
	case int64:
		return time.Unix(n, 0).UTC(), true
	}
	return time.Time{}, false
}

// Fingerprint returns the SHA-256 hash of the exact token string as a
// hex string. The revocation registry keys its records by fingerprint
// so the table never stores usable tokens.
func Fingerprint(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
