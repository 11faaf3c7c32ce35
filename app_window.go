package main

import (
	"errors"
	"fmt"
	"log/slog"

	"quickcmd/internal/config"
	"quickcmd/internal/ipc"
	"quickcmd/internal/tray"
)

var errNoRuntime = errors.New("window runtime is not available")

// showWindow shows and raises the launcher window.
func (a *App) showWindow() {
	ctx := a.runtimeContext()
	if ctx == nil {
		slog.Debug("[DEBUG-WINDOW] show dropped because runtime context is nil")
		return
	}
	runtimeWindowShowFn(ctx)
	runtimeWindowUnminimiseFn(ctx)
	runtimeWindowSetAlwaysOnTopFn(ctx, true)
	runtimeWindowSetAlwaysOnTopFn(ctx, false)
	a.setWindowVisible(true)
}

// hideWindow hides the launcher so focus returns to the previous window.
func (a *App) hideWindow() error {
	ctx := a.runtimeContext()
	if ctx == nil {
		return errNoRuntime
	}
	runtimeWindowHideFn(ctx)
	a.setWindowVisible(false)
	return nil
}

func (a *App) setWindowVisible(visible bool) {
	a.windowMu.Lock()
	a.windowVisible = visible
	a.windowMu.Unlock()
}

func (a *App) isWindowVisible() bool {
	a.windowMu.Lock()
	defer a.windowMu.Unlock()
	return a.windowVisible
}

// HideToTray hides the window; the tray icon brings it back.
func (a *App) HideToTray() error {
	return a.hideWindow()
}

// GetSettings returns the settings loaded at startup.
func (a *App) GetSettings() config.Config {
	return config.Clone(a.cfg)
}

// onTrayAction runs on a tray click reader.
func (a *App) onTrayAction(action tray.Action) {
	switch action {
	case tray.ActionShow:
		a.loop.Post("tray-show", a.showWindow)
	case tray.ActionSettings:
		a.loop.Post("tray-settings", a.openSettings)
	case tray.ActionExit:
		// tray.Stop waits for this reader, so quit runs elsewhere.
		go a.quit()
	default:
		slog.Debug("[DEBUG-TRAY] unknown tray action", "action", action)
	}
}

func (a *App) openSettings() {
	a.showWindow()
	a.emitRuntimeEvent(eventShowSettings, a.GetSettings())
}

// handleActivation answers requests from a second launch.
func (a *App) handleActivation(req ipc.Request) ipc.Response {
	var task func()
	switch req.Action {
	case ipc.ActionShowWindow:
		task = a.showWindow
	case ipc.ActionShowSettings:
		task = a.openSettings
	default:
		return ipc.Response{Error: fmt.Sprintf("unknown action %q", req.Action)}
	}
	if a.closing() || !a.loop.Post("activate:"+req.Action, task) {
		return ipc.Response{Error: errAppClosing.Error()}
	}
	return ipc.Response{OK: true}
}
