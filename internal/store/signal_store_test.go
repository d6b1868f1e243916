package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/intent"
)

func TestSignalStoreListRecentFiltersByTimeAndWorkspace(t *testing.T) {
	s := NewSignalStore()
	old := intent.Signal{WorkspaceID: "ws-1", Label: "old", Confidence: 0.9, CreatedAt: time.Now().Add(-48 * time.Hour)}
	fresh := intent.Signal{WorkspaceID: "ws-1", Label: "fresh", Confidence: 0.9, CreatedAt: time.Now()}
	other := intent.Signal{WorkspaceID: "ws-2", Label: "other-ws", Confidence: 0.9, CreatedAt: time.Now()}

	require.NoError(t, s.Create(context.Background(), old))
	require.NoError(t, s.Create(context.Background(), fresh))
	require.NoError(t, s.Create(context.Background(), other))

	out, err := s.ListRecent(context.Background(), "ws-1", time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "fresh", out[0].Label)
}

func TestSignalStoreCreateAssignsIDAndDefaultStatus(t *testing.T) {
	s := NewSignalStore()
	require.NoError(t, s.Create(context.Background(), intent.Signal{WorkspaceID: "ws-1", Label: "x", Confidence: 0.9}))

	out, err := s.ListRecent(context.Background(), "ws-1", time.Time{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.NotEmpty(t, out[0].ID)
	assert.Equal(t, intent.SignalCandidate, out[0].Status)
}

func TestSignalStoreEvictsOldestBeyondCapacity(t *testing.T) {
	s := NewSignalStore()
	s.capacity = 3
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Create(context.Background(), intent.Signal{WorkspaceID: "ws-1", Label: "x", Confidence: 0.9}))
	}
	out, err := s.ListRecent(context.Background(), "ws-1", time.Time{})
	require.NoError(t, err)
	assert.Len(t, out, 3)
}
