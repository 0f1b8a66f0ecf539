// ABOUTME: Tests for MockStore to keep it behaviorally aligned with SQLStore
// ABOUTME: Covers uniqueness, owner filtering, revoke idempotence, and failure injection

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_Users(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	u := createTestUser(t, m, "bobby", "bobby@example.com")

	got, err := m.GetUserByEmail(ctx, "bobby@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	// Returned values are copies
	got.Name = "mutated"
	again, err := m.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "bobby", again.Name)

	assert.ErrorIs(t, m.CreateUser(ctx, &User{ID: "x", Name: "other", Email: "bobby@example.com"}), ErrEmailExists)
	assert.ErrorIs(t, m.CreateUser(ctx, &User{ID: "y", Name: "bobby", Email: "other@example.com"}), ErrNameExists)

	_, err = m.GetUserByName(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMockStore_Tokens(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()
	now := time.Now().UTC()

	older := newTestToken("user-1", now.Add(-time.Hour))
	newer := newTestToken("user-1", now)
	other := newTestToken("user-2", now)
	for _, tok := range []*AccessToken{older, newer, other} {
		require.NoError(t, m.CreateAccessToken(ctx, tok))
	}

	tokens, err := m.ListAccessTokens(ctx, TokenFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, newer.ID, tokens[0].ID)

	require.NoError(t, m.RevokeAccessToken(ctx, older.ID))
	require.NoError(t, m.RevokeAccessToken(ctx, older.ID))
	assert.ErrorIs(t, m.RevokeAccessToken(ctx, "missing"), ErrNotFound)

	tokens, err = m.ListAccessTokens(ctx, TokenFilter{UserID: "user-1", ExcludeRevoked: true})
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, newer.ID, tokens[0].ID)
}

func TestMockStore_FailureInjection(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()
	boom := errors.New("boom")

	m.FailCreateToken = boom
	assert.ErrorIs(t, m.CreateAccessToken(ctx, newTestToken("u", time.Now())), boom)

	m.FailGetToken = boom
	_, err := m.GetAccessToken(ctx, "any")
	assert.ErrorIs(t, err, boom)

	m.FailPing = boom
	assert.ErrorIs(t, m.Ping(ctx), boom)
}

func TestMockStore_Audit(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	require.NoError(t, m.AppendAuditLog(ctx, &AuditEntry{ActorID: "u1", Action: AuditCreateToken, TargetType: "token", TargetID: "t1"}))
	require.NoError(t, m.AppendAuditLog(ctx, &AuditEntry{ActorID: "u1", Action: AuditRevokeToken, TargetType: "token", TargetID: "t1"}))

	action := AuditRevokeToken
	entries, err := m.ListAuditLog(ctx, AuditFilter{Action: &action})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "t1", entries[0].TargetID)
	assert.NotEmpty(t, entries[0].ID)
}
