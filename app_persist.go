package main

import (
	"context"
	"log/slog"

	"quickcmd/internal/pages"
	"quickcmd/internal/workerutil"
)

// requestPersist is the collection change hook. It never blocks: the
// newest snapshot replaces any pending one and the worker is woken.
func (a *App) requestPersist(snapshot []pages.Page) {
	a.persistMu.Lock()
	a.persistPending = snapshot
	a.persistMu.Unlock()

	select {
	case a.persistWake <- struct{}{}:
	default:
	}
}

func (a *App) takePendingPersist() ([]pages.Page, bool) {
	a.persistMu.Lock()
	defer a.persistMu.Unlock()
	if a.persistPending == nil {
		return nil, false
	}
	snapshot := a.persistPending
	a.persistPending = nil
	return snapshot, true
}

// startPersistWorker saves coalesced snapshots until ctx ends, then writes
// whatever is still pending.
func (a *App) startPersistWorker(ctx context.Context) {
	workerutil.RunWithPanicRecovery(ctx, "persist", &a.bgWG, func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				a.flushPersist()
				return
			case <-a.persistWake:
				a.flushPersist()
			}
		}
	}, workerutil.RecoveryOptions{IsShutdown: a.closing})
}

func (a *App) flushPersist() {
	snapshot, ok := a.takePendingPersist()
	if !ok {
		return
	}
	if err := a.store.Save(snapshot); err != nil {
		// Memory stays authoritative; the next mutation retries implicitly.
		slog.Warn("[WARN-STORE] failed to save buttons", "path", a.store.Path(), "error", err)
	}
}

// startButtonWatcher reloads the pages when the button file is edited
// outside the app.
func (a *App) startButtonWatcher(ctx context.Context) {
	workerutil.RunWithPanicRecovery(ctx, "button-watcher", &a.bgWG, func(ctx context.Context) {
		err := a.store.Watch(ctx, func(next []pages.Page) {
			a.loop.Post("reload-buttons", func() { a.applyExternalPages(next) })
		})
		if err != nil && ctx.Err() == nil {
			slog.Warn("[WARN-STORE] button file watcher stopped", "path", a.store.Path(), "error", err)
		}
	}, workerutil.RecoveryOptions{IsShutdown: a.closing})
}

// applyExternalPages swaps in externally edited pages. Any drag gesture is
// dropped since its indices refer to the old list. Runs on the UI loop.
func (a *App) applyExternalPages(next []pages.Page) {
	a.engine.Cancel()
	a.pages.Replace(next)
	slog.Info("[DEBUG-STORE] button file reloaded after external edit", "pages", a.pages.Len())
	a.emitPagesUpdated()
	a.emitDragState()
}
