//go:build windows

package singleinstance

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

// Lock holds a named mutex handle. The kernel releases it when the owning
// process exits.
type Lock struct {
	name   string
	handle windows.Handle
}

// TryLock attempts to create and own the named mutex.
func TryLock(name string) (*Lock, error) {
	if name == "" {
		return nil, errors.New("mutex name is required")
	}
	nameUTF16, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("invalid mutex name %q: %w", name, err)
	}
	h, err := windows.CreateMutex(nil, true, nameUTF16)
	if err != nil {
		if h != 0 {
			_ = windows.CloseHandle(h)
		}
		if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("CreateMutex %q: %w", name, err)
	}
	return &Lock{name: name, handle: h}, nil
}

// Release closes the mutex handle. Safe on a nil receiver and idempotent.
func (l *Lock) Release() error {
	if l == nil || l.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(l.handle)
	l.handle = 0
	return err
}
