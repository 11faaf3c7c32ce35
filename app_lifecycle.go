package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"quickcmd/internal/config"
	"quickcmd/internal/dispatch"
	"quickcmd/internal/history"
	"quickcmd/internal/hotkeys"
	"quickcmd/internal/inject"
	"quickcmd/internal/ipc"
	"quickcmd/internal/pages"
	"quickcmd/internal/reorder"
	"quickcmd/internal/store"
	"quickcmd/internal/tray"
	"quickcmd/internal/uiloop"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

type trayService interface {
	Start(ctx context.Context) error
	Stop()
}

type activationServer interface {
	Start() error
	Stop() error
}

var (
	runtimeEventsEmitFn           = runtime.EventsEmit
	runtimeWindowHideFn           = runtime.WindowHide
	runtimeWindowShowFn           = runtime.WindowShow
	runtimeWindowUnminimiseFn     = runtime.WindowUnminimise
	runtimeWindowSetAlwaysOnTopFn = runtime.WindowSetAlwaysOnTop
	runtimeQuitFn                 = runtime.Quit

	defaultSettingsPathFn = config.DefaultPath
	newInjectorFn         = func() dispatch.Injector { return inject.New() }
	newHotkeyHookFn       = hotkeys.NewOSHook
	openHistoryFn         = history.Open
	newTrayFn             = func(onAction func(tray.Action)) trayService { return tray.New(onAction) }
	newActivationFn       = func(h ipc.Handler) activationServer { return ipc.NewPipeServer("", h) }
	sleepFn               = time.Sleep
)

const (
	shutdownWaitTimeout = 5 * time.Second
	quitGraceDelay      = 100 * time.Millisecond
)

func (a *App) startup(ctx context.Context) {
	a.setRuntimeContext(ctx)
	a.setWindowVisible(true)
	a.startServices(ctx, defaultSettingsPathFn())
}

// startServices builds every backend service. Failures are logged as
// warnings and the app keeps running with whatever started.
func (a *App) startServices(ctx context.Context, settingsPath string) {
	a.settingsPath = settingsPath
	for _, message := range config.ConsumeDefaultPathWarnings() {
		slog.Warn("[WARN-CONFIG] " + message)
	}
	cfg, err := config.EnsureFile(settingsPath)
	if err != nil {
		slog.Warn("[WARN-CONFIG] failed to load settings, running with defaults", "path", settingsPath, "error", err)
	}
	a.cfg = cfg

	a.loop = uiloop.New(func() bool { return a.runtimeContext() != nil })

	a.store = store.New(config.ResolvePath(settingsPath, cfg.ButtonsFile))
	loaded, err := a.store.Load()
	if err != nil {
		var corrupt *store.CorruptionError
		if errors.As(err, &corrupt) {
			slog.Warn("[WARN-STORE] button file was unreadable and has been reset", "path", a.store.Path(), "error", err)
		} else {
			slog.Warn("[WARN-STORE] failed to read button file", "path", a.store.Path(), "error", err)
		}
	}
	a.pages = pages.New(loaded)
	a.pages.SetOnChange(a.requestPersist)

	a.engine = reorder.NewEngine(reorder.Options{
		CellWidth: float64(cfg.Layout.CellWidth),
		RowGap:    float64(cfg.Layout.RowGap),
		Dwell:     cfg.Layout.Dwell(),
	}, dragScheduler{app: a}, collectionSwapper{app: a})
	a.engine.SetEnabled(cfg.Layout.DragMode)

	a.dispatcher = dispatch.New(newInjectorFn(), a.hideWindow, dispatchKeys(cfg.Dispatch))

	if cfg.History.Enabled {
		historyPath := config.ResolvePath(settingsPath, cfg.HistoryFile)
		if a.history, err = openHistoryFn(historyPath, cfg.History.Limit); err != nil {
			slog.Warn("[WARN-HISTORY] dispatch history disabled", "path", historyPath, "error", err)
			a.history = nil
		}
	}

	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancel = cancel
	a.startPersistWorker(bgCtx)
	if cfg.WatchButtonsFile {
		a.startButtonWatcher(bgCtx)
	}

	a.hotkeys = hotkeys.NewManager(config.ResolvePath(settingsPath, cfg.HotkeyFile), newHotkeyHookFn(), a.onHotkey)
	if err := a.hotkeys.Start(); err != nil {
		slog.Warn("[WARN-hotkey] hotkey startup problem", "active", a.hotkeys.Active(), "error", err)
	} else {
		slog.Info("[DEBUG-hotkey] global hotkey registered", "chord", a.hotkeys.Active())
	}

	a.tray = newTrayFn(a.onTrayAction)
	if err := a.tray.Start(ctx); err != nil {
		slog.Warn("[WARN-TRAY] tray icon unavailable", "error", err)
	}

	a.activation = newActivationFn(ipc.HandlerFunc(a.handleActivation))
	if err := a.activation.Start(); err != nil {
		if errors.Is(err, ipc.ErrUnsupported) {
			slog.Debug("[DEBUG-IPC] activation pipe unsupported on this platform")
		} else {
			slog.Warn("[WARN-IPC] activation pipe failed to start", "error", err)
		}
	}
}

func dispatchKeys(cfg config.DispatchConfig) dispatch.Keys {
	return dispatch.Keys{
		Interrupt:       cfg.InterruptKey,
		Affordance:      cfg.AffordanceKey,
		PasteCombo:      append([]string(nil), cfg.PasteCombo...),
		Activation:      cfg.ActivationKey,
		InterruptDelay:  time.Duration(cfg.InterruptDelayMS) * time.Millisecond,
		AffordanceDelay: time.Duration(cfg.AffordanceDelayMS) * time.Millisecond,
	}
}

// shutdown is the Wails OnShutdown hook.
func (a *App) shutdown(_ context.Context) {
	a.teardown()
}

// quit tears the app down and then closes the root window after a short
// grace delay so in-flight UI callbacks land on a live window.
func (a *App) quit() {
	ctx := a.runtimeContext()
	a.teardown()
	sleepFn(quitGraceDelay)
	if ctx != nil {
		runtimeQuitFn(ctx)
	}
}

// teardown stops services in order: closing flag, watcher and drag
// gesture, hotkey hook, tray, then UI loop and history. It runs once.
func (a *App) teardown() {
	a.teardownOnce.Do(func() {
		a.shuttingDown.Store(true)

		if a.bgCancel != nil {
			a.bgCancel()
		}
		if a.loop != nil && a.engine != nil {
			if err := a.loop.Call("drop-drag", func() { a.engine.Cancel() }); err != nil {
				slog.Debug("[DEBUG-SHUTDOWN] drag cleanup skipped", "error", err)
			}
		}
		if !waitWithTimeout(a.bgWG.Wait, shutdownWaitTimeout) {
			slog.Warn("[WARN-SHUTDOWN] timed out waiting for background workers")
		}

		if a.hotkeys != nil {
			if err := a.hotkeys.Close(); err != nil {
				slog.Warn("[WARN-SHUTDOWN] hotkey hook close failed", "error", err)
			}
		}
		if a.tray != nil {
			a.tray.Stop()
		}
		if a.activation != nil {
			if err := a.activation.Stop(); err != nil {
				slog.Warn("[WARN-SHUTDOWN] activation pipe stop failed", "error", err)
			}
		}

		if a.loop != nil {
			a.loop.Close()
		}
		if a.history != nil {
			_ = a.history.Close()
		}
		slog.Debug("[DEBUG-SHUTDOWN] teardown complete")
	})
}

func (a *App) closing() bool { return a.shuttingDown.Load() }

var errAppClosing = errors.New("application is shutting down")

// onLoop runs fn on the UI loop and waits for it.
func (a *App) onLoop(name string, fn func()) error {
	if a.closing() {
		return errAppClosing
	}
	if a.loop == nil {
		return fmt.Errorf("%s: application is not ready", name)
	}
	if err := a.loop.Call(name, fn); err != nil {
		if errors.Is(err, uiloop.ErrClosed) {
			return errAppClosing
		}
		return err
	}
	return nil
}

func waitWithTimeout(waitFn func(), timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		waitFn()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
