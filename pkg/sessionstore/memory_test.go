package sessionstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodelet-systems/agentlifecycle/pkg/agenttype"
)

func TestInMemoryStore_GetMissingReturnsNilNotError(t *testing.T) {
	s := NewInMemoryStore()
	sess, err := s.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestInMemoryStore_SaveThenGetRoundTrips(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	original := &Session{
		UserID:         "u1",
		ActiveTaskID:   "t1",
		ActiveWorkflow: agenttype.WorkflowBugFix,
		CurrentPhase:   "execution",
	}
	require.NoError(t, s.Save(ctx, original))

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "t1", got.ActiveTaskID)

	// Mutating the returned session must not mutate the store's copy.
	got.ActiveTaskID = "mutated"
	again, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "t1", again.ActiveTaskID)
}
