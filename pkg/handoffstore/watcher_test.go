package handoffstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodelet-systems/agentlifecycle/pkg/handoffdoc"
)

func TestFallbackWatcher_ReimportsExportedHandoff(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, err := s.WatchFallbackDir()
	require.NoError(t, err)
	defer watcher.Close()

	go watcher.Run(ctx)

	doc := docWithID("h1", "task-1", "", 20)
	encoded, err := handoffdoc.Encode(doc)
	require.NoError(t, err)
	require.NoError(t, s.exportFallback(doc.HandoffID, encoded))

	require.Eventually(t, func() bool {
		_, err := s.Load(context.Background(), "h1")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond, "watcher did not re-import the exported handoff")

	_, err = os.Stat(filepath.Join(s.fallbackDir, "h1.handoff"))
	assert.True(t, os.IsNotExist(err), "re-imported export file should be removed")
}

func TestWatchFallbackDir_ErrorsWithoutFallbackDir(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.WatchFallbackDir()
	require.Error(t, err)
}
