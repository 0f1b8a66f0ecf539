// ABOUTME: Tests for the SQL store against real SQLite databases
// ABOUTME: Covers users, token registry lifecycle, audit log, and driver error mapping

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore opens a pure-Go SQLite database in a temp directory.
func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s Store, name, email string) *User {
	t.Helper()
	u := &User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: "$2a$04$digest",
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func newTestToken(userID string, issuedAt time.Time) *AccessToken {
	return &AccessToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		Source:    "me",
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(24 * time.Hour),
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	u := createTestUser(t, s, "bobby", "bobby@example.com")
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "bobby", got.Name)
}

func TestOpen_MattnDriver(t *testing.T) {
	s, err := Open(context.Background(), "sqlite3", filepath.Join(t.TempDir(), "cgo.db"))
	if err != nil && strings.Contains(err.Error(), "CGO_ENABLED") {
		t.Skip("github.com/mattn/go-sqlite3 requires cgo")
	}
	require.NoError(t, err)
	defer s.Close()

	u := createTestUser(t, s, "cgo user", "cgo@example.com")
	tok := newTestToken(u.ID, time.Now().UTC())
	require.NoError(t, s.CreateAccessToken(context.Background(), tok))
	require.NoError(t, s.RevokeAccessToken(context.Background(), tok.ID))

	got, err := s.GetAccessToken(context.Background(), tok.ID)
	require.NoError(t, err)
	assert.True(t, got.Revoked)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := createTestUser(t, s, "bobby", "bobby@example.com")

	byID, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)
	assert.Equal(t, u.PasswordHash, byID.PasswordHash)
	assert.False(t, byID.CreatedAt.IsZero())
	assert.Equal(t, byID.CreatedAt, byID.UpdatedAt)

	byEmail, err := s.GetUserByEmail(ctx, "bobby@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byName, err := s.GetUserByName(ctx, "bobby")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUser_Duplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "bobby", "bobby@example.com")

	err := s.CreateUser(ctx, &User{ID: uuid.New().String(), Name: "robert", Email: "bobby@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrEmailExists)

	err = s.CreateUser(ctx, &User{ID: uuid.New().String(), Name: "bobby", Email: "other@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrNameExists)

	users, err := s.ListUsers(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, users, 1, "failed inserts must not leave partial records")
}

func TestListUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, name := range []string{"first", "second", "third"} {
		u := &User{
			ID:           uuid.New().String(),
			Name:         name,
			Email:        name + "@example.com",
			PasswordHash: "x",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.CreateUser(ctx, u))
	}

	users, err := s.ListUsers(ctx, 2)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "first", users[0].Name)
	assert.Equal(t, "second", users[1].Name)
}

func TestAccessToken_CreateGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s, "bobby", "bobby@example.com")

	tok := newTestToken(u.ID, time.Now().UTC().Truncate(time.Second))
	require.NoError(t, s.CreateAccessToken(ctx, tok))

	got, err := s.GetAccessToken(ctx, tok.ID)
	require.NoError(t, err)
	assert.Equal(t, tok.UserID, got.UserID)
	assert.Equal(t, "me", got.Source)
	assert.True(t, tok.IssuedAt.Equal(got.IssuedAt))
	assert.True(t, tok.ExpiresAt.Equal(got.ExpiresAt))
	assert.False(t, got.Revoked)
	assert.Nil(t, got.RevokedAt)

	assert.ErrorIs(t, s.CreateAccessToken(ctx, tok), ErrTokenExists)

	_, err = s.GetAccessToken(ctx, uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccessToken_RequiresExistingUser(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateAccessToken(context.Background(), newTestToken("no-such-user", time.Now()))
	require.Error(t, err, "foreign key should reject tokens for unknown users")
}

func TestListAccessTokens_OwnerAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice", "alice@example.com")
	bob := createTestUser(t, s, "bobby", "bobby@example.com")

	now := time.Now().UTC().Truncate(time.Second)
	older := newTestToken(alice.ID, now.Add(-2*time.Hour))
	newer := newTestToken(alice.ID, now.Add(-time.Hour))
	other := newTestToken(bob.ID, now)
	for _, tok := range []*AccessToken{older, newer, other} {
		require.NoError(t, s.CreateAccessToken(ctx, tok))
	}

	tokens, err := s.ListAccessTokens(ctx, TokenFilter{UserID: alice.ID})
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, newer.ID, tokens[0].ID, "newest first")
	assert.Equal(t, older.ID, tokens[1].ID)
	for _, tok := range tokens {
		assert.Equal(t, alice.ID, tok.UserID)
	}

	_, err = s.ListAccessTokens(ctx, TokenFilter{})
	assert.Error(t, err, "owner is required")
}

func TestListAccessTokens_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s, "bobby", "bobby@example.com")

	now := time.Now().UTC()
	active := newTestToken(u.ID, now.Add(-time.Hour))
	revoked := newTestToken(u.ID, now.Add(-2*time.Hour))
	expired := newTestToken(u.ID, now.Add(-48*time.Hour))
	for _, tok := range []*AccessToken{active, revoked, expired} {
		require.NoError(t, s.CreateAccessToken(ctx, tok))
	}
	require.NoError(t, s.RevokeAccessToken(ctx, revoked.ID))

	tokens, err := s.ListAccessTokens(ctx, TokenFilter{UserID: u.ID, ExcludeRevoked: true, ActiveAt: &now})
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, active.ID, tokens[0].ID)

	all, err := s.ListAccessTokens(ctx, TokenFilter{UserID: u.ID})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRevokeAccessToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s, "bobby", "bobby@example.com")

	tok := newTestToken(u.ID, time.Now().UTC())
	require.NoError(t, s.CreateAccessToken(ctx, tok))

	require.NoError(t, s.RevokeAccessToken(ctx, tok.ID))
	first, err := s.GetAccessToken(ctx, tok.ID)
	require.NoError(t, err)
	assert.True(t, first.Revoked)
	require.NotNil(t, first.RevokedAt)

	// Revoking again succeeds and keeps the original timestamp
	require.NoError(t, s.RevokeAccessToken(ctx, tok.ID))
	second, err := s.GetAccessToken(ctx, tok.ID)
	require.NoError(t, err)
	assert.True(t, second.Revoked)
	assert.True(t, first.RevokedAt.Equal(*second.RevokedAt))

	assert.ErrorIs(t, s.RevokeAccessToken(ctx, uuid.New().String()), ErrNotFound)
}

func TestRevokeAccessToken_Concurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s, "bobby", "bobby@example.com")

	tok := newTestToken(u.ID, time.Now().UTC())
	require.NoError(t, s.CreateAccessToken(ctx, tok))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.RevokeAccessToken(ctx, tok.ID)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	got, err := s.GetAccessToken(ctx, tok.ID)
	require.NoError(t, err)
	assert.True(t, got.Revoked)
}

func TestPruneAccessTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s, "bobby", "bobby@example.com")

	now := time.Now().UTC()
	oldRevoked := newTestToken(u.ID, now.Add(-72*time.Hour))
	oldActive := newTestToken(u.ID, now.Add(-90*24*time.Hour))
	freshRevoked := newTestToken(u.ID, now)
	for _, tok := range []*AccessToken{oldRevoked, oldActive, freshRevoked} {
		require.NoError(t, s.CreateAccessToken(ctx, tok))
	}
	require.NoError(t, s.RevokeAccessToken(ctx, oldRevoked.ID))
	require.NoError(t, s.RevokeAccessToken(ctx, freshRevoked.ID))

	n, err := s.PruneAccessTokens(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.GetAccessToken(ctx, oldRevoked.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Expired but never revoked stays in the registry.
	got, err := s.GetAccessToken(ctx, oldActive.ID)
	require.NoError(t, err)
	assert.False(t, got.Revoked)

	_, err = s.GetAccessToken(ctx, freshRevoked.ID)
	assert.NoError(t, err)
}

func TestRebindDollar(t *testing.T) {
	assert.Equal(t,
		"SELECT a FROM t WHERE x = $1 AND y = $2 LIMIT $3",
		rebindDollar("SELECT a FROM t WHERE x = ? AND y = ? LIMIT ?"),
	)
	assert.Equal(t, "SELECT 1", rebindDollar("SELECT 1"))
}

func TestUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"unrelated", errors.New("disk I/O error"), ""},
		{"sqlite email", errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"), "email"},
		{"sqlite name", errors.New("UNIQUE constraint failed: users.name"), "name"},
		{"sqlite primary key", errors.New("UNIQUE constraint failed: access_tokens.id"), "id"},
		{"postgres email", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, "email"},
		{"postgres other code", &pgconn.PgError{Code: "23503", ConstraintName: "users_email_key"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, uniqueViolation(tt.err))
		})
	}
}

func TestFormatTime_SortsChronologically(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 5, 0, time.UTC)
	later := base.Add(500 * time.Millisecond)

	assert.Less(t, formatTime(base), formatTime(later))

	parsed, err := parseTime(formatTime(later))
	require.NoError(t, err)
	assert.True(t, later.Equal(parsed))
}
