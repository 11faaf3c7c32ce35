package hotkeys

import (
	"errors"
	"fmt"
)

// ErrUnchanged is returned by Register when the chord is already active.
var ErrUnchanged = errors.New("hotkey not modified")

// InvalidHotkeyError reports a chord that could not be parsed or bound.
// The previously active binding is still live when this is returned.
type InvalidHotkeyError struct {
	Chord string
	Err   error
}

func (e *InvalidHotkeyError) Error() string {
	return fmt.Sprintf("invalid hotkey %q: %v", e.Chord, e.Err)
}

func (e *InvalidHotkeyError) Unwrap() error { return e.Err }

// SaveError reports a chord that is bound and live but could not be written
// to the hotkey file. It will not survive a restart.
type SaveError struct {
	Chord string
	Err   error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("hotkey %q active but not saved: %v", e.Chord, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }
