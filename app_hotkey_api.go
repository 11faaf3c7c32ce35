package main

import (
	"errors"
	"log/slog"

	"quickcmd/internal/hotkeys"
)

// HotkeyResult reports the outcome of SetHotkey.
type HotkeyResult struct {
	Chord   string `json:"chord"`
	Changed bool   `json:"changed"`
	// Unsaved is set when Chord is live but the hotkey file could not be
	// written, so the old chord returns after a restart.
	Unsaved bool `json:"unsaved"`
}

// GetHotkey returns the live chord.
func (a *App) GetHotkey() string {
	if a.hotkeys == nil {
		return hotkeys.DefaultChord
	}
	return a.hotkeys.Active()
}

// SetHotkey validates and registers chord as the global show hotkey. On
// failure the previous hotkey stays active. Re-registering the current
// chord is not an error and reports Changed=false.
func (a *App) SetHotkey(chord string) (HotkeyResult, error) {
	if a.closing() {
		return HotkeyResult{}, errAppClosing
	}
	if a.hotkeys == nil {
		return HotkeyResult{}, errors.New("hotkey manager is unavailable")
	}
	err := a.hotkeys.Register(chord)
	var saveErr *hotkeys.SaveError
	switch {
	case errors.As(err, &saveErr):
		slog.Warn("[WARN-hotkey] hotkey changed but could not be saved", "chord", a.hotkeys.Active(), "error", saveErr.Err)
		return HotkeyResult{Chord: a.hotkeys.Active(), Changed: true, Unsaved: true}, nil
	case errors.Is(err, hotkeys.ErrUnchanged):
		slog.Info("[DEBUG-hotkey] hotkey not modified", "chord", a.hotkeys.Active())
		return HotkeyResult{Chord: a.hotkeys.Active()}, nil
	case err != nil:
		slog.Warn("[WARN-hotkey] hotkey change rejected", "requested", chord, "active", a.hotkeys.Active(), "error", err)
		return HotkeyResult{Chord: a.hotkeys.Active()}, err
	}
	slog.Info("[DEBUG-hotkey] hotkey changed", "chord", a.hotkeys.Active())
	return HotkeyResult{Chord: a.hotkeys.Active(), Changed: true}, nil
}

// onHotkey runs on the hook thread; the window work is posted to the UI loop.
func (a *App) onHotkey() {
	if !a.loop.Post("hotkey", a.showWindow) {
		slog.Debug("[DEBUG-hotkey] trigger ignored, ui loop closing")
	}
}
