// Package auth implements the §4.5 authentication/scope-authorization
// middleware and the JWT claim set §4.6 mints, grounded on
// original_source's serverv2/middleware/authn.rs dispatch tree and
// sessions/manager.rs JWT-minting claims.
package auth

import (
	"errors"
	"time"

	"chartedregistry/pkg/types"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "Noelware/charted-server"

	// AccessTokenTTL and RefreshTokenTTL are the exact durations
	// original_source/crates/sessions/src/manager.rs mints, carried
	// unchanged into this Go implementation (spec.md §4.6).
	AccessTokenTTL  = 2 * 24 * time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims is the JWT claim set from spec.md §6: iss, aud, uid, sid, exp.
type Claims struct {
	jwt.RegisteredClaims
	UID types.ULID `json:"uid"`
	SID types.ULID `json:"sid"`
}

// Signer mints and verifies HS512 JWTs with the server secret.
type Signer struct {
	secret   []byte
	audience string
}

// NewSigner returns a Signer using secret for HS512 signing and audience
// as the fixed `aud` claim.
func NewSigner(secret, audience string) *Signer {
	return &Signer{secret: []byte(secret), audience: audience}
}

// Mint signs a token for (uid, sid) expiring after ttl.
func (s *Signer) Mint(uid, sid types.ULID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID: uid,
		SID: sid,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString(s.secret)
}

// ErrExpired maps to §7's `SessionExpired` (410 Gone) when decode fails
// with an expired-signature error.
var ErrExpired = errors.New("jwt: token expired")

// ErrInvalid maps to §7's `InvalidSessionToken` for every other decode
// failure.
var ErrInvalid = errors.New("jwt: invalid token")

// Verify decodes and validates value, returning its claims.
func (s *Signer) Verify(value string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithAudience(s.audience))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	if !token.Valid {
		return nil, ErrInvalid
	}

	return claims, nil
}
