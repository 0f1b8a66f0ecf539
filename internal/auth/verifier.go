// ABOUTME: Access token verification combining stateless JWT checks with registry revocation lookups
// ABOUTME: Order is structure, signature, expiry, then revocation; storage failures fail closed

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vimofthevine/underbudget-auth/internal/denylist"
	"github.com/vimofthevine/underbudget-auth/internal/store"
)

// Verification errors. Only logs may distinguish them; clients get one
// uniform unauthenticated response.
var (
	ErrMalformed        = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpired          = errors.New("token expired")
	ErrRevoked          = errors.New("token revoked")
	ErrUnknownToken     = errors.New("unknown token")
	ErrUnavailable      = errors.New("token registry unavailable")
)

// TokenLookup is the part of the token registry the verifier needs.
type TokenLookup interface {
	GetAccessToken(ctx context.Context, id string) (*store.AccessToken, error)
}

// Verifier checks bearer tokens and resolves them to a Principal.
type Verifier struct {
	key           SigningKey
	registry      TokenLookup
	denied        *denylist.Cache
	lookupTimeout time.Duration
	now           func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithDenylist consults and fills cache with revoked token IDs.
func WithDenylist(cache *denylist.Cache) VerifierOption {
	return func(v *Verifier) { v.denied = cache }
}

// WithLookupTimeout bounds each registry lookup. Zero disables the bound.
func WithLookupTimeout(d time.Duration) VerifierOption {
	return func(v *Verifier) { v.lookupTimeout = d }
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier creates a verifier using key for signatures and registry for revocation.
func NewVerifier(key SigningKey, registry TokenLookup, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		key:      key,
		registry: registry,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify validates tokenString and returns the principal it authenticates.
// Errors wrap exactly one of the package's verification errors.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Principal, error) {
	claims, err := v.parse(tokenString)
	if err != nil {
		return nil, err
	}

	if v.denied != nil && v.denied.Contains(claims.ID) {
		return nil, ErrRevoked
	}

	lookupCtx := ctx
	if v.lookupTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, v.lookupTimeout)
		defer cancel()
	}

	rec, err := v.registry.GetAccessToken(lookupCtx, claims.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownToken
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// A record owned by someone else cannot belong to this token.
	if rec.UserID != claims.Subject {
		return nil, ErrUnknownToken
	}

	if rec.Revoked {
		if v.denied != nil {
			v.denied.Add(rec.ID, claims.ExpiresAt.Time)
		}
		return nil, ErrRevoked
	}

	return &Principal{
		UserID:    claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// parse performs the stateless checks. jwt/v5 verifies the signature before
// validating claims, which gives the required error precedence.
func (v *Verifier) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return v.key.bytes(), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing sub or jti claim", ErrMalformed)
	}
	return claims, nil
}

// Reason returns a short log label for a verification error.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrRevoked):
		return "revoked"
	case errors.Is(err, ErrUnknownToken):
		return "unknown"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
