package hotkeys

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"quickcmd/internal/fsutil"
)

const maxHotkeyFileBytes int64 = 64 << 10

var atomicWriteFn = fsutil.AtomicWrite

type hotkeyFile struct {
	Hotkey string `json:"hotkey"`
}

// ReadFile returns the chord stored at path. A missing file returns
// DefaultChord and no error; an unreadable or malformed file returns
// DefaultChord and an error describing why.
func ReadFile(path string) (string, error) {
	raw, err := fsutil.ReadLimited(path, maxHotkeyFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultChord, nil
		}
		return DefaultChord, fmt.Errorf("read hotkey file: %w", err)
	}

	var doc hotkeyFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return DefaultChord, fmt.Errorf("parse hotkey file: %w", err)
	}
	chord := NormalizeChord(doc.Hotkey)
	if chord == "" {
		return DefaultChord, errors.New("hotkey file has no hotkey value")
	}
	return chord, nil
}

// WriteFile stores chord at path.
func WriteFile(path, chord string) error {
	raw, err := json.MarshalIndent(hotkeyFile{Hotkey: chord}, "", "  ")
	if err != nil {
		return err
	}
	if err := atomicWriteFn(path, append(raw, '\n'), 0o600); err != nil {
		return fmt.Errorf("write hotkey file: %w", err)
	}
	return nil
}
