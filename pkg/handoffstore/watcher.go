package handoffstore

import (
	"context"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kodelet-systems/agentlifecycle/pkg/handoffdoc"
)

// FallbackWatcher watches a store's fallback export directory and attempts
// to re-import any file written there (by Save's degraded path) back into
// the database as soon as it appears, so a transient outage self-heals
// without an operator having to run a manual re-import.
type FallbackWatcher struct {
	store   *Store
	watcher *fsnotify.Watcher
}

// WatchFallbackDir starts watching the store's fallback directory. Callers
// must call Close when done; Run should be invoked in its own goroutine.
func (s *Store) WatchFallbackDir() (*FallbackWatcher, error) {
	if s.fallbackDir == "" {
		return nil, errors.New("handoffstore: no fallback directory configured")
	}

	if err := os.MkdirAll(s.fallbackDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "handoffstore: failed to create fallback directory")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "handoffstore: failed to create fallback watcher")
	}

	if err := w.Add(s.fallbackDir); err != nil {
		w.Close()
		return nil, errors.Wrap(err, "handoffstore: failed to watch fallback directory")
	}

	return &FallbackWatcher{store: s, watcher: w}, nil
}

// Run blocks, re-importing fallback-exported handoffs as they appear,
// until ctx is cancelled.
func (fw *FallbackWatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".handoff") {
				continue
			}
			fw.reimport(ctx, event.Name)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			logrus.WithError(err).Warn("handoffstore: fallback watcher error")
		}
	}
}

func (fw *FallbackWatcher) reimport(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Warn("handoffstore: failed to read fallback export")
		return
	}

	doc, err := handoffdoc.Decode(data)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Warn("handoffstore: fallback export failed to decode, leaving in place")
		return
	}

	encoded, err := handoffdoc.Encode(doc)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Warn("handoffstore: failed to re-encode fallback export")
		return
	}

	if err := fw.store.saveOnce(ctx, doc, encoded); err != nil {
		logrus.WithError(err).WithField("path", path).Warn("handoffstore: fallback re-import still failing, leaving in place")
		return
	}

	if err := os.Remove(path); err != nil {
		logrus.WithError(err).WithField("path", path).Warn("handoffstore: re-imported handoff but failed to remove fallback file")
	}
}

// Close stops the underlying filesystem watcher.
func (fw *FallbackWatcher) Close() error {
	return fw.watcher.Close()
}
