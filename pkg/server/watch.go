package server

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/pkgcheck/pkg/snapshot"
)

// watchDebounce collapses the burst of events a single save produces.
const watchDebounce = 200 * time.Millisecond

// Watch reloads the latest snapshot of store whenever its latest pointer
// changes, for example after `pkgcheck run --save` in another process. It
// blocks until ctx is cancelled. Reload failures are logged and the
// previous snapshot keeps being served.
func (s *Server) Watch(ctx context.Context, store *snapshot.FileStore) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(store.Dir()); err != nil {
		return fmt.Errorf("watch %s: %w", store.Dir(), err)
	}
	latest := filepath.Join(store.Dir(), snapshot.LatestFile)

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != latest || event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			} else {
				timer.Reset(watchDebounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			snap, err := store.Latest(ctx)
			if err != nil {
				s.logger.Warn("reload snapshot", "err", err)
				continue
			}
			if cur := s.Snapshot(); cur != nil && cur.ID == snap.ID {
				continue
			}
			if err := s.Reload(snap); err != nil {
				s.logger.Warn("reload snapshot", "id", snap.ID, "err", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("snapshot watcher", "err", err)
		}
	}
}
