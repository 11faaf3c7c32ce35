package main

import (
	"context"
	"log/slog"

	"quickcmd/internal/notices"
)

const (
	eventPagesUpdated = "pages:updated"
	eventDragState    = "drag:state"
	eventNotice       = "app:notice"
	eventShowSettings = "app:show-settings"
)

// emitRuntimeEvent emits via the app context and delegates to emitRuntimeEventWithContext.
func (a *App) emitRuntimeEvent(name string, payload any) {
	a.emitRuntimeEventWithContext(a.runtimeContext(), name, payload)
}

// emitRuntimeEventWithContext emits a runtime event only when ctx is non-nil.
func (a *App) emitRuntimeEventWithContext(ctx context.Context, name string, payload any) {
	if ctx == nil {
		// Debug, not Warn: a Warn here would become a notice and recurse.
		slog.Debug("[EVENT] runtime event dropped because app context is nil", "event", name)
		return
	}
	runtimeEventsEmitFn(ctx, name, payload)
}

// emitPagesUpdated publishes the current pages. It runs on the UI loop.
func (a *App) emitPagesUpdated() {
	a.emitRuntimeEvent(eventPagesUpdated, a.pages.Pages())
}

// publishNotice is the notices sink: every Warn+ log record reaches the
// frontend as app:notice.
func (a *App) publishNotice(n notices.Notice) {
	a.emitRuntimeEvent(eventNotice, n)
}

// GetNotices returns recent warnings, oldest first, for a frontend that
// mounted after they were emitted.
func (a *App) GetNotices() []notices.Notice {
	return a.notices.Snapshot()
}
