// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without a database and to inject storage failures

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
// Setting one of the Fail* fields makes the matching operation return that error.
type MockStore struct {
	mu     sync.RWMutex
	users  map[string]*User        // keyed by user ID
	tokens map[string]*AccessToken // keyed by token ID
	audit  []AuditEntry

	FailCreateUser  error
	FailCreateToken error
	FailGetToken    error
	FailRevokeToken error
	FailAudit       error
	FailPing        error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:  make(map[string]*User),
		tokens: make(map[string]*AccessToken),
	}
}

var _ Store = (*MockStore)(nil)

// CreateUser stores a new user, enforcing unique email and name.
func (m *MockStore) CreateUser(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCreateUser != nil {
		return m.FailCreateUser
	}

	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrEmailExists
		}
		if existing.Name == u.Name {
			return ErrNameExists
		}
	}

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	// Make a copy to avoid external modification
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(ctx context.Context, id string) (*User, error) {
	return m.findUser(func(u *User) bool { return u.ID == id })
}

// GetUserByEmail retrieves a user by email.
func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return m.findUser(func(u *User) bool { return u.Email == email })
}

// GetUserByName retrieves a user by name.
func (m *MockStore) GetUserByName(ctx context.Context, name string) (*User, error) {
	return m.findUser(func(u *User) bool { return u.Name == name })
}

func (m *MockStore) findUser(match func(*User) bool) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ListUsers returns up to limit users ordered by creation time.
func (m *MockStore) ListUsers(ctx context.Context, limit int) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// CreateAccessToken records an issued token.
func (m *MockStore) CreateAccessToken(ctx context.Context, t *AccessToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCreateToken != nil {
		return m.FailCreateToken
	}
	if _, exists := m.tokens[t.ID]; exists {
		return ErrTokenExists
	}

	cp := *t
	m.tokens[t.ID] = &cp
	return nil
}

// GetAccessToken retrieves a registry record by ID.
func (m *MockStore) GetAccessToken(ctx context.Context, id string) (*AccessToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailGetToken != nil {
		return nil, m.FailGetToken
	}

	t, ok := m.tokens[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// ListAccessTokens returns the owner's records, newest first.
func (m *MockStore) ListAccessTokens(ctx context.Context, f TokenFilter) ([]*AccessToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var tokens []*AccessToken
	for _, t := range m.tokens {
		if t.UserID != f.UserID {
			continue
		}
		if f.ExcludeRevoked && t.Revoked {
			continue
		}
		if f.ActiveAt != nil && !t.ExpiresAt.After(*f.ActiveAt) {
			continue
		}
		cp := *t
		tokens = append(tokens, &cp)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].IssuedAt.Equal(tokens[j].IssuedAt) {
			return tokens[i].ID > tokens[j].ID
		}
		return tokens[i].IssuedAt.After(tokens[j].IssuedAt)
	})
	return tokens, nil
}

// RevokeAccessToken sets the revoked flag; revoking twice is a no-op.
func (m *MockStore) RevokeAccessToken(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailRevokeToken != nil {
		return m.FailRevokeToken
	}

	t, ok := m.tokens[id]
	if !ok {
		return ErrNotFound
	}
	if !t.Revoked {
		now := time.Now().UTC()
		t.Revoked = true
		t.RevokedAt = &now
	}
	return nil
}

// PruneAccessTokens deletes revoked records that expired before the cutoff.
func (m *MockStore) PruneAccessTokens(ctx context.Context, expiredBefore time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, t := range m.tokens {
		if t.Revoked && t.ExpiresAt.Before(expiredBefore) {
			delete(m.tokens, id)
			n++
		}
	}
	return n, nil
}

// AppendAuditLog appends an audit entry.
func (m *MockStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAudit != nil {
		return m.FailAudit
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	m.audit = append(m.audit, *e)
	return nil
}

// ListAuditLog returns matching audit entries, newest first.
func (m *MockStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := normalizeAuditLimit(f.Limit)
	var entries []AuditEntry
	for i := len(m.audit) - 1; i >= 0 && len(entries) < limit; i-- {
		e := m.audit[i]
		if f.Since != nil && e.Timestamp.Before(*f.Since) {
			continue
		}
		if f.ActorID != nil && e.ActorID != *f.ActorID {
			continue
		}
		if f.Action != nil && e.Action != *f.Action {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Ping reports FailPing, or nil.
func (m *MockStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.FailPing
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}
