// ABOUTME: Immutable HMAC signing key shared by the token issuer and verifier
// ABOUTME: Copies the secret on construction and redacts it from all formatted and logged output

package auth

import (
	"errors"
	"fmt"
	"log/slog"
)

// MinSecretLength is the minimum HMAC secret size in bytes.
const MinSecretLength = 32

// ErrWeakSecret is returned when the signing secret is too short.
var ErrWeakSecret = errors.New("signing secret too short")

// SigningKey holds the HS256 secret. The zero value is unusable.
type SigningKey struct {
	secret []byte
}

// NewSigningKey copies secret into a new key.
func NewSigningKey(secret []byte) (SigningKey, error) {
	if len(secret) < MinSecretLength {
		return SigningKey{}, fmt.Errorf("%w: need at least %d bytes, got %d", ErrWeakSecret, MinSecretLength, len(secret))
	}
	cp := make([]byte, len(secret))
	copy(cp, secret)
	return SigningKey{secret: cp}, nil
}

// bytes returns the secret for jwt signing and verification only.
func (k SigningKey) bytes() []byte {
	return k.secret
}

func (k SigningKey) String() string {
	return "[REDACTED]"
}

// GoString keeps %#v from printing the secret.
func (k SigningKey) GoString() string {
	return "auth.SigningKey{[REDACTED]}"
}

// LogValue implements slog.LogValuer.
func (k SigningKey) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}
