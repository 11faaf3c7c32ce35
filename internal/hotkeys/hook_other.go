//go:build !windows

package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// noopHook accepts every valid binding. Registered callbacks never fire.
type noopHook struct {
	mu     sync.Mutex
	nextID Handle
	active map[Handle]string
}

// NewOSHook returns a hook that validates bindings but registers nothing.
func NewOSHook() Hook {
	return &noopHook{active: make(map[Handle]string)}
}

func (h *noopHook) Bind(b Binding, onTrigger func()) (Handle, error) {
	if onTrigger == nil {
		return 0, errors.New("onTrigger callback is required")
	}
	slog.Debug("[DEBUG-hotkey] global hotkeys are not supported on this platform; binding validated but will never fire",
		"binding", b.Normalized())

	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.active[h.nextID] = b.Normalized()
	return h.nextID, nil
}

func (h *noopHook) Unbind(handle Handle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.active[handle]; !ok {
		return fmt.Errorf("unknown hotkey handle %d", handle)
	}
	delete(h.active, handle)
	return nil
}
