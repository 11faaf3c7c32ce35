// Package uiloop serializes all UI-state work onto one goroutine.
//
// Wails invokes bound methods, hotkey callbacks, tray clicks and timers on
// arbitrary goroutines. Everything that touches pages, drag state or the
// button file is posted here instead, so that state has a single owner.
package uiloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"quickcmd/internal/workerutil"
)

// ErrClosed is returned when work is submitted to, or skipped by, a closing loop.
var ErrClosed = errors.New("ui loop is closing")

const defaultQueueSize = 64

type task struct {
	name string
	fn   func()
	done chan error // nil for fire-and-forget
}

// Loop is a single-goroutine executor.
type Loop struct {
	tasks   chan task
	alive   func() bool
	closing atomic.Bool

	mu     sync.RWMutex // guards sends on tasks against close
	closed bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts a loop. alive is checked before each task; when it reports
// false the task is skipped. A nil alive always runs.
func New(alive func() bool) *Loop {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		tasks:  make(chan task, defaultQueueSize),
		alive:  alive,
		cancel: cancel,
	}
	workerutil.RunWithPanicRecovery(ctx, "ui-loop", &l.wg, l.run, workerutil.RecoveryOptions{
		IsShutdown: l.closing.Load,
	})
	return l
}

func (l *Loop) run(ctx context.Context) {
	for t := range l.tasks {
		err := l.execute(t)
		if t.done != nil {
			t.done <- err
		}
	}
}

func (l *Loop) execute(t task) error {
	if l.closing.Load() {
		return ErrClosed
	}
	if l.alive != nil && !l.alive() {
		slog.Debug("[DEBUG-UILOOP] target gone, skipping task", "task", t.name)
		return ErrClosed
	}
	if !workerutil.RunRecovered("ui-loop:"+t.name, t.fn) {
		return errors.New("ui task " + t.name + " panicked")
	}
	return nil
}

func (l *Loop) submit(t task) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed || l.closing.Load() {
		return ErrClosed
	}
	l.tasks <- t
	return nil
}

// Post queues fn and returns immediately. It reports false when the loop is
// closing.
func (l *Loop) Post(name string, fn func()) bool {
	return l.submit(task{name: name, fn: fn}) == nil
}

// Call runs fn on the loop and waits for it. It must not be called from
// the loop goroutine itself.
func (l *Loop) Call(name string, fn func()) error {
	done := make(chan error, 1)
	if err := l.submit(task{name: name, fn: fn, done: done}); err != nil {
		return err
	}
	return <-done
}

// AfterFunc posts fn to the loop after d. The returned stop cancels a timer
// that has not fired yet and reports whether it did so.
func (l *Loop) AfterFunc(d time.Duration, fn func()) func() bool {
	timer := time.AfterFunc(d, func() {
		l.Post("timer", fn)
	})
	return timer.Stop
}

// Closing reports whether Close has started.
func (l *Loop) Closing() bool { return l.closing.Load() }

// Close flags the loop as closing, so queued and late work becomes a no-op,
// then waits for the goroutine to drain. Safe to call more than once.
func (l *Loop) Close() {
	if l.closing.Swap(true) {
		return
	}
	l.mu.Lock()
	l.closed = true
	close(l.tasks)
	l.mu.Unlock()

	l.wg.Wait()
	l.cancel()
}
