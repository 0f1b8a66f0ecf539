// ABOUTME: bcrypt password hashing with a SHA-256 pre-hash and a dummy digest for unknown users
// ABOUTME: Keeps the full password significant up to MaxPasswordBytes despite bcrypt's 72 byte limit

package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes bounds password input before hashing.
const MaxPasswordBytes = 256

// ErrPasswordTooLong is returned by Hash for input over MaxPasswordBytes.
var ErrPasswordTooLong = errors.New("password too long")

// PasswordHasher hashes and verifies passwords with bcrypt.
type PasswordHasher struct {
	cost  int
	dummy []byte
}

// NewPasswordHasher creates a hasher using the given bcrypt cost.
// Costs outside bcrypt's range fall back to bcrypt.DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h := &PasswordHasher{cost: cost}
	// Digest of a random-looking constant at the same cost, compared against
	// when the user does not exist so both paths take equal time.
	h.dummy, _ = bcrypt.GenerateFromPassword(prehash("underbudget-timing-equalizer"), cost)
	return h
}

// prehash maps any input to 44 bytes of base64 so bcrypt sees all of it.
func prehash(plaintext string) []byte {
	sum := sha256.Sum256([]byte(plaintext))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

// Hash returns a salted one-way digest of plaintext.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	digest, err := bcrypt.GenerateFromPassword(prehash(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A malformed digest never matches.
func (h *PasswordHasher) Verify(plaintext, digest string) bool {
	if len(plaintext) > MaxPasswordBytes {
		h.Burn(plaintext)
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), prehash(plaintext)) == nil
}

// Burn performs a comparison against a dummy digest and discards the result.
func (h *PasswordHasher) Burn(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, prehash(plaintext))
}
