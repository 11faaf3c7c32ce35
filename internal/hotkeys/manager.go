// Package hotkeys owns the single process-wide global hotkey that restores
// the launcher window.
package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultChord is used when no valid chord has been saved.
const DefaultChord = "shift+e"

// Manager keeps exactly one chord bound to the restore action.
//
// A new chord is first probed (bound to a no-op and released) before the
// live binding is touched, so a rejected chord never leaves the process
// without a hotkey.
type Manager struct {
	path      string
	hook      Hook
	onTrigger func()

	mu     sync.Mutex
	active Binding
	handle Handle
	live   bool
}

// NewManager returns a manager persisting to path and binding onTrigger
// through hook.
func NewManager(path string, hook Hook, onTrigger func()) *Manager {
	return &Manager{path: path, hook: hook, onTrigger: onTrigger}
}

// Load returns the persisted chord, or DefaultChord. A malformed file is
// logged and reported but is never fatal.
func (m *Manager) Load() (string, error) {
	chord, err := ReadFile(m.path)
	if err != nil {
		slog.Warn("[WARN-hotkey] hotkey file unusable, using default", "path", m.path, "error", err)
	}
	return chord, err
}

// Start loads the persisted chord and binds it. An invalid persisted chord
// falls back to DefaultChord and the file is rewritten. The returned error
// is non-nil when a fallback happened or nothing could be bound.
func (m *Manager) Start() error {
	chord, loadErr := m.Load()

	err := m.register(chord, loadErr != nil)
	if err == nil || errors.Is(err, ErrUnchanged) {
		return loadErr
	}
	var invalid *InvalidHotkeyError
	if !errors.As(err, &invalid) || chord == DefaultChord {
		return errors.Join(loadErr, err)
	}

	slog.Warn("[WARN-hotkey] persisted hotkey rejected, falling back to default",
		"chord", chord, "default", DefaultChord, "error", err)
	if fallbackErr := m.register(DefaultChord, true); fallbackErr != nil {
		return errors.Join(loadErr, err, fallbackErr)
	}
	return errors.Join(loadErr, err)
}

// Register validates chord and, on success, swaps it in for the live
// binding and persists it. On *InvalidHotkeyError the previous binding stays
// live and the file is untouched. ErrUnchanged is returned when chord is
// already active.
func (m *Manager) Register(chord string) error {
	return m.register(chord, true)
}

func (m *Manager) register(chord string, persist bool) error {
	normalized := NormalizeChord(chord)
	binding, err := ParseBinding(normalized)
	if err != nil {
		return &InvalidHotkeyError{Chord: normalized, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.live && m.active.Normalized() == binding.Normalized() {
		return ErrUnchanged
	}

	if err := m.probeLocked(binding); err != nil {
		return &InvalidHotkeyError{Chord: normalized, Err: err}
	}

	if m.live {
		if err := m.hook.Unbind(m.handle); err != nil {
			slog.Warn("[WARN-hotkey] failed to release previous hotkey", "chord", m.active.Normalized(), "error", err)
		}
		m.live = false
	}

	handle, err := m.hook.Bind(binding, m.onTrigger)
	if err != nil {
		m.restorePreviousLocked()
		return &InvalidHotkeyError{Chord: normalized, Err: err}
	}
	m.active = binding
	m.handle = handle
	m.live = true
	slog.Info("[hotkey] global hotkey registered", "chord", binding.Normalized())

	if !persist {
		return nil
	}
	if err := WriteFile(m.path, binding.Normalized()); err != nil {
		return &SaveError{Chord: binding.Normalized(), Err: err}
	}
	return nil
}

func (m *Manager) probeLocked(b Binding) error {
	h, err := m.hook.Bind(b, func() {})
	if err != nil {
		return err
	}
	if err := m.hook.Unbind(h); err != nil {
		slog.Warn("[WARN-hotkey] probe release failed", "chord", b.Normalized(), "error", err)
	}
	return nil
}

// restorePreviousLocked rebinds m.active after a failed swap.
func (m *Manager) restorePreviousLocked() {
	if m.active.Normalized() == "" {
		return
	}
	handle, err := m.hook.Bind(m.active, m.onTrigger)
	if err != nil {
		slog.Error("[ERROR-hotkey] failed to restore previous hotkey", "chord", m.active.Normalized(), "error", err)
		return
	}
	m.handle = handle
	m.live = true
}

// Active returns the normalized live chord, or "" when none is bound.
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.live {
		return ""
	}
	return m.active.Normalized()
}

// Close releases the live binding. It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.live {
		return nil
	}
	m.live = false
	if err := m.hook.Unbind(m.handle); err != nil {
		return fmt.Errorf("unbind hotkey %q: %w", m.active.Normalized(), err)
	}
	return nil
}
