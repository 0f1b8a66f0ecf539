// ABOUTME: JWT access token issuing with HS256 signing
// ABOUTME: Each token carries sub, jti, iat, and exp claims and has no storage side effects

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenLifetime is used when the issuer is created with a non-positive lifetime.
const DefaultTokenLifetime = 24 * time.Hour

// IssuedToken is a freshly signed token and the metadata needed to record it.
type IssuedToken struct {
	Token     string
	ID        string // jti
	UserID    string
	Source    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer mints signed access tokens.
type Issuer struct {
	key      SigningKey
	lifetime time.Duration
	now      func() time.Time
}

// NewIssuer creates an issuer signing with key. Tokens expire after lifetime.
func NewIssuer(key SigningKey, lifetime time.Duration) *Issuer {
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &Issuer{key: key, lifetime: lifetime, now: time.Now}
}

// Lifetime returns how long issued tokens remain valid.
func (i *Issuer) Lifetime() time.Duration {
	return i.lifetime
}

// Issue signs a new token for userID. source labels the client that asked
// for it and is carried in the returned metadata, not in the token.
func (i *Issuer) Issue(userID, source string) (*IssuedToken, error) {
	if userID == "" {
		return nil, errors.New("issuing token: user id is required")
	}
	if len(i.key.bytes()) == 0 {
		return nil, errors.New("issuing token: signing key not configured")
	}

	// Claims carry whole seconds, so keep the metadata in step with them.
	now := i.now().UTC().Truncate(time.Second)
	id := uuid.New().String()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key.bytes())
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	return &IssuedToken{
		Token:     signed,
		ID:        id,
		UserID:    userID,
		Source:    source,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.lifetime),
	}, nil
}
