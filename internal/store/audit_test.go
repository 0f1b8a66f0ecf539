// ABOUTME: Tests for audit log storage
// ABOUTME: Covers append, detail round trip, filtering, ordering, and limits

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog_AppendAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Minute)
	entries := []*AuditEntry{
		{ActorID: "user-1", Action: AuditRegisterUser, TargetType: "user", TargetID: "user-1", Timestamp: base},
		{ActorID: "user-1", Action: AuditCreateToken, TargetType: "token", TargetID: "tok-1", Timestamp: base.Add(time.Second),
			Detail: map[string]any{"source": "me"}},
		{ActorID: AnonymousActor, Action: AuditLoginFailed, TargetType: "user", TargetID: "", Timestamp: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		require.NoError(t, s.AppendAuditLog(ctx, e))
		assert.NotEmpty(t, e.ID)
	}

	all, err := s.ListAuditLog(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, AuditLoginFailed, all[0].Action, "newest first")
	assert.Equal(t, AuditRegisterUser, all[2].Action)

	action := AuditCreateToken
	created, err := s.ListAuditLog(ctx, AuditFilter{Action: &action})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "me", created[0].Detail["source"])

	actor := "user-1"
	byActor, err := s.ListAuditLog(ctx, AuditFilter{ActorID: &actor, Limit: 1})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, AuditCreateToken, byActor[0].Action)

	since := base.Add(time.Second)
	recent, err := s.ListAuditLog(ctx, AuditFilter{Since: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestAuditLog_RejectsUnknownAction(t *testing.T) {
	s := newTestStore(t)

	err := s.AppendAuditLog(context.Background(), &AuditEntry{ActorID: "u", Action: "delete_everything", TargetType: "user", TargetID: "u"})
	assert.Error(t, err)
}

func TestNormalizeAuditLimit(t *testing.T) {
	assert.Equal(t, 100, normalizeAuditLimit(0))
	assert.Equal(t, 100, normalizeAuditLimit(-5))
	assert.Equal(t, 50, normalizeAuditLimit(50))
	assert.Equal(t, 1000, normalizeAuditLimit(5000))
}
