// Package singleinstance keeps one QuickCmd process per user session.
package singleinstance

import (
	"errors"
	"fmt"
	"log/slog"

	"quickcmd/internal/userutil"
)

// ErrAlreadyRunning is returned when another instance holds the mutex.
var ErrAlreadyRunning = errors.New("another instance is already running")

var tryLockFn = TryLock

// DefaultMutexName returns the per-user session mutex name.
func DefaultMutexName() string {
	return `Local\QuickCmd-` + userutil.SanitizeUsername(userutil.CurrentUsername())
}

// Claim acquires the instance lock. When another instance already owns it,
// notify is called so that instance can bring itself forward, and
// ErrAlreadyRunning is returned (joined with any notify failure).
func Claim(name string, notify func() error) (*Lock, error) {
	lock, err := tryLockFn(name)
	if err == nil {
		return lock, nil
	}
	if !errors.Is(err, ErrAlreadyRunning) {
		return nil, fmt.Errorf("acquire instance lock: %w", err)
	}
	if notify == nil {
		return nil, ErrAlreadyRunning
	}
	if notifyErr := notify(); notifyErr != nil {
		slog.Warn("[WARN-INSTANCE] failed to activate running instance", "error", notifyErr)
		return nil, errors.Join(ErrAlreadyRunning, notifyErr)
	}
	return nil, ErrAlreadyRunning
}
