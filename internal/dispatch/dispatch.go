// Package dispatch sends a button's command to the application that has
// keyboard focus.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Injector performs OS-level input. Implementations live in internal/inject.
type Injector interface {
	InjectKeystroke(key string) error
	InjectCombo(keys ...string) error
	SetClipboard(text string) error
	Sleep(d time.Duration)
}

// Step names one stage of a dispatch.
type Step string

const (
	StepValidate   Step = "validate"
	StepHide       Step = "hide"
	StepInterrupt  Step = "interrupt"
	StepAffordance Step = "affordance"
	StepClipboard  Step = "clipboard"
	StepPaste      Step = "paste"
	StepActivate   Step = "activate"
)

// DispatchError reports the first failing step. Dispatches are never retried.
type DispatchError struct {
	Step Step
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch failed at %s: %v", e.Step, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

var errEmptyCommand = errors.New("command is empty")

// Keys configures the key sequence around the paste.
type Keys struct {
	Interrupt       string
	Affordance      string
	PasteCombo      []string
	Activation      string
	InterruptDelay  time.Duration
	AffordanceDelay time.Duration
}

// DefaultKeys returns esc, "/", ctrl+v, enter with 50ms and 100ms pauses.
func DefaultKeys() Keys {
	return Keys{
		Interrupt:       "esc",
		Affordance:      "/",
		PasteCombo:      []string{"ctrl", "v"},
		Activation:      "enter",
		InterruptDelay:  50 * time.Millisecond,
		AffordanceDelay: 100 * time.Millisecond,
	}
}

// Dispatcher runs the inject sequence.
type Dispatcher struct {
	injector Injector
	hide     func() error
	keys     Keys
}

// New returns a Dispatcher. hide conceals the launcher window so focus
// returns to the previous application; nil skips that step.
func New(injector Injector, hide func() error, keys Keys) *Dispatcher {
	return &Dispatcher{injector: injector, hide: hide, keys: keys}
}

// Dispatch hides the launcher, interrupts the target, opens its command
// affordance, pastes command via the clipboard, and activates it.
//
// The sequence is best-effort: the first failure aborts it and is returned
// as a *DispatchError. Later steps are not attempted.
func (d *Dispatcher) Dispatch(ctx context.Context, command string) error {
	if strings.TrimSpace(command) == "" {
		return &DispatchError{Step: StepValidate, Err: errEmptyCommand}
	}

	steps := []struct {
		step Step
		run  func() error
	}{
		{StepHide, d.hideWindow},
		{StepInterrupt, func() error { return d.keystroke(d.keys.Interrupt, d.keys.InterruptDelay) }},
		{StepAffordance, func() error { return d.keystroke(d.keys.Affordance, d.keys.AffordanceDelay) }},
		{StepClipboard, func() error { return d.injector.SetClipboard(command) }},
		{StepPaste, func() error { return d.injector.InjectCombo(d.keys.PasteCombo...) }},
		{StepActivate, func() error { return d.keystroke(d.keys.Activation, 0) }},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return &DispatchError{Step: s.step, Err: err}
		}
		if err := s.run(); err != nil {
			slog.Warn("[WARN-DISPATCH] command dispatch aborted", "step", s.step, "error", err)
			return &DispatchError{Step: s.step, Err: err}
		}
	}
	slog.Debug("[DEBUG-DISPATCH] command dispatched", "length", len(command))
	return nil
}

func (d *Dispatcher) hideWindow() error {
	if d.hide == nil {
		return nil
	}
	return d.hide()
}

// keystroke sends key then pauses. An empty key skips both.
func (d *Dispatcher) keystroke(key string, pause time.Duration) error {
	if key == "" {
		return nil
	}
	if err := d.injector.InjectKeystroke(key); err != nil {
		return err
	}
	if pause > 0 {
		d.injector.Sleep(pause)
	}
	return nil
}
