// ABOUTME: Account service orchestrating registration, login, identity lookup, and token revocation
// ABOUTME: Issues tokens before recording them and aborts login if the registry write fails

package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/vimofthevine/underbudget-auth/internal/auth"
	"github.com/vimofthevine/underbudget-auth/internal/denylist"
	"github.com/vimofthevine/underbudget-auth/internal/store"
	"github.com/vimofthevine/underbudget-auth/internal/validate"
)

// DefaultSource labels tokens whose client did not say where it runs.
const DefaultSource = "unknown"

// Store is the persistence the service needs.
type Store interface {
	store.UserStore
	store.TokenStore
	store.AuditStore
}

// Config holds the service dependencies.
type Config struct {
	Store    Store
	Hasher   *auth.PasswordHasher
	Issuer   *auth.Issuer
	Denylist *denylist.Cache // optional; revocations are added to it
	Logger   *slog.Logger
}

// Service implements the account and token lifecycle operations.
type Service struct {
	store  Store
	hasher *auth.PasswordHasher
	issuer *auth.Issuer
	denied *denylist.Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a Service from cfg.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  cfg.Store,
		hasher: cfg.Hasher,
		issuer: cfg.Issuer,
		denied: cfg.Denylist,
		logger: logger.With("component", "accounts"),
		now:    time.Now,
	}
}

// Register validates req and creates a user. Validation failures are returned
// as validate.Errors and nothing is written.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*store.User, error) {
	req = req.normalize()
	if err := req.validate(); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("registering user: %w", err)
	}

	u := &store.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: digest,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		switch {
		case errors.Is(err, store.ErrEmailExists):
			return nil, validate.Errors{{Field: "email", Message: "is already registered"}}
		case errors.Is(err, store.ErrNameExists):
			return nil, validate.Errors{{Field: "name", Message: "is already taken"}}
		}
		s.logger.Error("creating user failed", "error", err)
		return nil, fmt.Errorf("%w: creating user: %v", ErrUnavailable, err)
	}

	s.appendAudit(ctx, &store.AuditEntry{
		ActorID:    u.ID,
		Action:     store.AuditRegisterUser,
		TargetType: "user",
		TargetID:   u.ID,
	})
	s.logger.Info("registered user", "user_id", u.ID)
	return u, nil
}

// LoginRequest is the input to Login. Email and Name are optional identifiers.
type LoginRequest struct {
	Email    string
	Name     string
	Password string
	Source   string
}

// Login checks the password and returns a newly issued, recorded token.
//
// The account is identified by email, then name, then the already
// authenticated caller (password re-entry), then, if exactly one account
// exists, that account. Every failure returns ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req LoginRequest, caller *auth.Principal) (*auth.IssuedToken, error) {
	user, err := s.resolveLoginUser(ctx, req, caller)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("looking up login user failed", "error", err)
		return nil, fmt.Errorf("%w: looking up user: %v", ErrUnavailable, err)
	}

	if user == nil {
		s.hasher.Burn(req.Password)
		s.appendAudit(ctx, &store.AuditEntry{
			ActorID:    store.AnonymousActor,
			Action:     store.AuditLoginFailed,
			TargetType: "user",
			Detail:     map[string]any{"reason": "unknown_user"},
		})
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		s.appendAudit(ctx, &store.AuditEntry{
			ActorID:    store.AnonymousActor,
			Action:     store.AuditLoginFailed,
			TargetType: "user",
			TargetID:   user.ID,
			Detail:     map[string]any{"reason": "wrong_password"},
		})
		return nil, ErrInvalidCredentials
	}

	issued, err := s.issuer.Issue(user.ID, normalizeSource(req.Source))
	if err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}

	rec := &store.AccessToken{
		ID:        issued.ID,
		UserID:    issued.UserID,
		Source:    issued.Source,
		IssuedAt:  issued.IssuedAt,
		ExpiresAt: issued.ExpiresAt,
	}
	if err := s.store.CreateAccessToken(ctx, rec); err != nil {
		// The signed token is dropped here; it was never returned, and
		// without a registry record it would verify as unknown anyway.
		s.logger.Error("recording access token failed", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("%w: recording token: %v", ErrUnavailable, err)
	}

	s.appendAudit(ctx, &store.AuditEntry{
		ActorID:    user.ID,
		Action:     store.AuditCreateToken,
		TargetType: "token",
		TargetID:   issued.ID,
		Detail:     map[string]any{"source": issued.Source},
	})
	s.logger.Info("issued access token", "user_id", user.ID, "token_id", issued.ID, "source", issued.Source)
	return issued, nil
}

// resolveLoginUser returns (nil, nil) or (nil, store.ErrNotFound) when no account matches.
func (s *Service) resolveLoginUser(ctx context.Context, req LoginRequest, caller *auth.Principal) (*store.User, error) {
	switch {
	case strings.TrimSpace(req.Email) != "":
		return s.store.GetUserByEmail(ctx, normalizeEmail(req.Email))
	case strings.TrimSpace(req.Name) != "":
		return s.store.GetUserByName(ctx, strings.TrimSpace(req.Name))
	case caller != nil:
		return s.store.GetUser(ctx, caller.UserID)
	}

	users, err := s.store.ListUsers(ctx, 2)
	if err != nil {
		return nil, err
	}
	if len(users) != 1 {
		return nil, nil
	}
	return users[0], nil
}

// normalizeSource trims the label, defaults it, and caps its length.
func normalizeSource(source string) string {
	source = strings.TrimSpace(source)
	if source == "" {
		return DefaultSource
	}
	if utf8.RuneCountInString(source) > MaxSourceLength {
		source = string([]rune(source)[:MaxSourceLength])
	}
	return source
}

// WhoAmI returns the caller's account.
func (s *Service) WhoAmI(ctx context.Context, caller *auth.Principal) (*store.User, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}

	u, err := s.store.GetUser(ctx, caller.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("%w: looking up user: %v", ErrUnavailable, err)
	}
	return u, nil
}

// ListTokens returns the caller's active tokens, newest first.
func (s *Service) ListTokens(ctx context.Context, caller *auth.Principal) ([]*store.AccessToken, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}

	now := s.now()
	tokens, err := s.store.ListAccessTokens(ctx, store.TokenFilter{
		UserID:         caller.UserID,
		ExcludeRevoked: true,
		ActiveAt:       &now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing tokens: %v", ErrUnavailable, err)
	}
	return tokens, nil
}

// RevokeToken revokes one of the caller's tokens. Revoking an already
// revoked token succeeds. The caller may revoke the token it is using.
func (s *Service) RevokeToken(ctx context.Context, caller *auth.Principal, tokenID string) error {
	if caller == nil {
		return ErrUnauthenticated
	}
	id, err := uuid.Parse(tokenID)
	if err != nil {
		return ErrNotFound
	}
	// Registry ids are stored in canonical lowercase form.
	tokenID = id.String()

	rec, err := s.store.GetAccessToken(ctx, tokenID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: looking up token: %v", ErrUnavailable, err)
	}

	if rec.UserID != caller.UserID {
		s.logger.Warn("token revocation denied", "user_id", caller.UserID, "token_id", tokenID)
		return ErrForbidden
	}

	if rec.Revoked {
		return nil
	}

	if err := s.store.RevokeAccessToken(ctx, tokenID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: revoking token: %v", ErrUnavailable, err)
	}

	if s.denied != nil {
		s.denied.Add(rec.ID, rec.ExpiresAt)
	}

	s.appendAudit(ctx, &store.AuditEntry{
		ActorID:    caller.UserID,
		Action:     store.AuditRevokeToken,
		TargetType: "token",
		TargetID:   rec.ID,
		Detail:     map[string]any{"source": rec.Source, "current": rec.ID == caller.TokenID},
	})
	s.logger.Info("revoked access token", "user_id", caller.UserID, "token_id", rec.ID)
	return nil
}

// appendAudit records e, logging instead of failing the operation.
func (s *Service) appendAudit(ctx context.Context, e *store.AuditEntry) {
	if err := s.store.AppendAuditLog(ctx, e); err != nil {
		s.logger.Warn("appending audit log failed", "action", e.Action, "error", err)
	}
}
