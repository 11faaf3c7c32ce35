// Package workerutil runs background goroutines that survive panics.
package workerutil

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultMaxRetries     = 10
)

// RecoveryOptions configures RunWithPanicRecovery. Zero numeric fields take
// defaults (100ms, 5s, 10 retries). MaxRetries of 1 means run once.
type RecoveryOptions struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxRetries     int

	// OnPanic runs after each recovered panic, before the backoff wait.
	// attempt is 1-based.
	OnPanic func(worker string, attempt int)
	// OnFatal runs once the worker has used up its retries.
	OnFatal func(worker string, maxRetries int)
	// IsShutdown stops restarts while the app is tearing down.
	IsShutdown func() bool
}

func (opts RecoveryOptions) applyDefaults() RecoveryOptions {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		slog.Warn("[DEBUG-PANIC] MaxBackoff < InitialBackoff, using InitialBackoff as MaxBackoff",
			"initialBackoff", opts.InitialBackoff, "maxBackoff", opts.MaxBackoff)
		opts.MaxBackoff = opts.InitialBackoff
	}
	return opts
}

// RunWithPanicRecovery starts fn on a goroutine tracked by wg. A panic is
// logged with its stack and fn is restarted with exponential backoff until
// ctx ends, IsShutdown reports true, or MaxRetries is reached.
func RunWithPanicRecovery(
	ctx context.Context,
	name string,
	wg *sync.WaitGroup,
	fn func(ctx context.Context),
	opts RecoveryOptions,
) {
	opts = opts.applyDefaults()
	wg.Go(func() {
		runRecoveryLoop(ctx, name, fn, opts)
	})
}

func runRecoveryLoop(ctx context.Context, name string, fn func(ctx context.Context), opts RecoveryOptions) {
	delay := opts.InitialBackoff

	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		panicked := !RunRecovered(name, func() { fn(ctx) })
		if !panicked || ctx.Err() != nil {
			return
		}
		// OnPanic is skipped during shutdown: app state may already be gone.
		if opts.IsShutdown != nil && opts.IsShutdown() {
			slog.Info("[DEBUG-PANIC] worker shutdown detected, stopping restart", "worker", name)
			return
		}

		slog.Warn("[DEBUG-PANIC] restarting worker after panic",
			"worker", name, "restartDelay", delay, "attempt", attempt)
		if opts.OnPanic != nil {
			opts.OnPanic(name, attempt)
		}
		if attempt == opts.MaxRetries {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay = nextBackoff(delay, opts.MaxBackoff)
	}

	slog.Error("[DEBUG-PANIC] worker exceeded max retries, giving up",
		"worker", name, "maxRetries", opts.MaxRetries)
	if opts.OnFatal != nil {
		opts.OnFatal(name, opts.MaxRetries)
	}
}

// RunRecovered calls fn and reports whether it returned without panicking.
// A panic is logged with its stack and swallowed.
func RunRecovered(name string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[DEBUG-PANIC] recovered from panic",
				"worker", name, "panic", r, "stack", string(debug.Stack()))
			ok = false
		}
	}()
	fn()
	return true
}

// nextBackoff doubles current up to maxBackoff, guarding overflow.
func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	if current <= 0 {
		return defaultInitialBackoff
	}
	if current >= maxBackoff {
		return maxBackoff
	}
	next := current * 2
	if next > maxBackoff || next < current {
		return maxBackoff
	}
	return next
}
