package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"quickcmd/internal/fsutil"
	"quickcmd/internal/pages"
)

// watchDebounce coalesces the burst of events editors produce on save
// (truncate, write, rename). watchMaxWait caps how long a steady stream of
// writes can hold back a reload.
const (
	watchDebounce = 200 * time.Millisecond
	watchMaxWait  = time.Second
)

// Watch blocks until ctx is cancelled, calling onChange with the decoded
// pages whenever the button file is changed by something other than this
// store. Invalid external edits are logged and ignored so that a
// half-written file never resets the user's pages.
//
// onChange runs on the watcher goroutine; callers hand off to their UI loop.
func (s *Store) Watch(ctx context.Context, onChange func([]pages.Page)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: atomic saves replace the file inode.
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	debounce := time.NewTimer(watchDebounce)
	debounce.Stop()
	defer debounce.Stop()
	var pendingSince time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				if pendingSince.IsZero() {
					pendingSince = time.Now()
				}
				debounce.Reset(debounceDelay(time.Since(pendingSince)))
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("[WARN-STORE] button file watcher error", "path", s.path, "error", werr)
		case <-debounce.C:
			pendingSince = time.Time{}
			s.reloadExternal(onChange)
		}
	}
}

// debounceDelay returns the wait before reloading, given how long changes
// have been pending.
func debounceDelay(pending time.Duration) time.Duration {
	return max(0, min(watchDebounce, watchMaxWait-pending))
}

func (s *Store) reloadExternal(onChange func([]pages.Page)) {
	raw, err := fsutil.ReadLimited(s.path, maxButtonFileBytes)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("[WARN-STORE] failed to read externally changed button file", "path", s.path, "error", err)
		}
		return
	}
	if s.isOwnWrite(raw) {
		return
	}
	loaded, err := Decode(raw)
	if err != nil {
		slog.Warn("[WARN-STORE] ignoring invalid external edit of button file", "path", s.path, "error", err)
		return
	}
	s.remember(raw)
	slog.Info("[STORE] button file changed externally, reloading", "path", s.path, "pages", len(loaded))
	onChange(loaded)
}
