//go:build !windows

package singleinstance

import (
	"errors"
	"sync"
)

var (
	heldMu sync.Mutex
	held   = map[string]bool{}
)

// Lock is a process-local stand-in for the session mutex.
type Lock struct{ name string }

// TryLock succeeds once per name within this process.
func TryLock(name string) (*Lock, error) {
	if name == "" {
		return nil, errors.New("mutex name is required")
	}
	heldMu.Lock()
	defer heldMu.Unlock()
	if held[name] {
		return nil, ErrAlreadyRunning
	}
	held[name] = true
	return &Lock{name: name}, nil
}

// Release frees the name. Safe on a nil receiver and idempotent.
func (l *Lock) Release() error {
	if l == nil || l.name == "" {
		return nil
	}
	heldMu.Lock()
	delete(held, l.name)
	heldMu.Unlock()
	l.name = ""
	return nil
}
