// ABOUTME: Store interfaces and data types for underbudget-auth persistence
// ABOUTME: Defines User, AccessToken, AuditEntry and the credential/token registry interfaces

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when registering an email that is already in use
var ErrEmailExists = errors.New("email already registered")

// ErrNameExists is returned when registering a name that is already in use
var ErrNameExists = errors.New("name already registered")

// ErrTokenExists is returned when recording a token id that is already in the registry
var ErrTokenExists = errors.New("token already recorded")

// User is a registered account. PasswordHash is never the plaintext password.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccessToken is the registry record of an issued token ("device session").
// ID equals the token's jti claim. Revoked only ever moves from false to true.
type AccessToken struct {
	ID        string
	UserID    string
	Source    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool
	RevokedAt *time.Time
}

// Active reports whether the token is neither revoked nor expired at now.
func (t *AccessToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// TokenFilter selects registry records for a single owner.
type TokenFilter struct {
	UserID         string     // required
	ExcludeRevoked bool       // drop revoked records
	ActiveAt       *time.Time // drop records expired at this instant
}

// UserStore is the credential store.
type UserStore interface {
	// CreateUser inserts a new user. Returns ErrEmailExists or ErrNameExists on conflict.
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByName(ctx context.Context, name string) (*User, error)
	// ListUsers returns at most limit users ordered by creation time.
	ListUsers(ctx context.Context, limit int) ([]*User, error)
}

// TokenStore is the token registry.
type TokenStore interface {
	CreateAccessToken(ctx context.Context, t *AccessToken) error
	GetAccessToken(ctx context.Context, id string) (*AccessToken, error)
	// ListAccessTokens returns the filter owner's records, newest first.
	ListAccessTokens(ctx context.Context, f TokenFilter) ([]*AccessToken, error)
	// RevokeAccessToken sets the revoked flag. Revoking an already revoked
	// token succeeds and keeps the original RevokedAt. Returns ErrNotFound
	// when no record exists.
	RevokeAccessToken(ctx context.Context, id string) error
	// PruneAccessTokens deletes revoked records that expired before the cutoff.
	PruneAccessTokens(ctx context.Context, expiredBefore time.Time) (int64, error)
}

// AuditStore records security relevant actions.
type AuditStore interface {
	AppendAuditLog(ctx context.Context, e *AuditEntry) error
	ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error)
}

// Store combines every persistence interface.
type Store interface {
	UserStore
	TokenStore
	AuditStore
	Ping(ctx context.Context) error
	Close() error
}
