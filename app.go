package main

import (
	"context"
	"sync"
	"sync/atomic"

	"quickcmd/internal/config"
	"quickcmd/internal/dispatch"
	"quickcmd/internal/history"
	"quickcmd/internal/hotkeys"
	"quickcmd/internal/notices"
	"quickcmd/internal/pages"
	"quickcmd/internal/reorder"
	"quickcmd/internal/store"
	"quickcmd/internal/uiloop"
)

const noticeJournalSize = 100

// App is the Wails-bound application service.
type App struct {
	// Runtime context lifecycle.
	ctx   context.Context
	ctxMu sync.RWMutex

	// Settings are read-only after startup.
	settingsPath string
	cfg          config.Config

	// UI-loop owned state. pages and engine are only touched from inside
	// loop tasks.
	loop   *uiloop.Loop
	pages  *pages.Collection
	engine *reorder.Engine

	// Backend services.
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	history    *history.Log
	hotkeys    *hotkeys.Manager
	tray       trayService
	activation activationServer
	notices    *notices.Journal

	// Coalesced persistence requests. persistPending holds the newest
	// snapshot not yet written.
	persistMu      sync.Mutex
	persistPending []pages.Page
	persistWake    chan struct{}

	// Window visibility state.
	windowMu      sync.Mutex
	windowVisible bool

	// shuttingDown is set first during teardown; bound methods refuse work
	// once it is true.
	shuttingDown atomic.Bool
	teardownOnce sync.Once

	// Background workers (file watcher, persistence).
	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// NewApp creates the app service.
func NewApp() *App {
	return &App{
		notices:     notices.NewJournal(noticeJournalSize),
		persistWake: make(chan struct{}, 1),
	}
}
