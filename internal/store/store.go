// Package store persists the launcher pages as a JSON array of
// {page_name, buttons:[{name, command}]} objects.
package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"quickcmd/internal/fsutil"
	"quickcmd/internal/pages"
)

const maxButtonFileBytes int64 = 4 << 20 // 4MB

var (
	errNotList    = errors.New("top-level value is not a list")
	errNoPages    = errors.New("no valid pages after filtering")
	atomicWriteFn = fsutil.AtomicWrite
)

// Store reads and writes one button file.
type Store struct {
	path string

	mu         sync.Mutex
	lastDigest [sha256.Size]byte
	hasDigest  bool
}

// New returns a store bound to path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the button file path.
func (s *Store) Path() string { return s.path }

// Load reads the button file.
//
// A missing file yields the default page and no error. A file that exists
// but cannot be used yields the default page and a *CorruptionError, and the
// default is written back immediately so the bad file does not survive. If
// that write also fails, a *PersistenceError is joined to the result. A read
// failure leaves the file alone and returns the default page with a
// *PersistenceError.
func (s *Store) Load() ([]pages.Page, error) {
	raw, err := fsutil.ReadLimited(s.path, maxButtonFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return pages.DefaultPages(), nil
		}
		if !errors.Is(err, fsutil.ErrTooLarge) {
			return pages.DefaultPages(), &PersistenceError{Op: "read", Path: s.path, Err: err}
		}
		return s.reset(err)
	}

	loaded, err := Decode(raw)
	if err != nil {
		return s.reset(err)
	}
	s.remember(raw)
	return loaded, nil
}

func (s *Store) reset(cause error) ([]pages.Page, error) {
	slog.Warn("[WARN-STORE] button config unusable, resetting to default page", "path", s.path, "error", cause)
	defaults := pages.DefaultPages()
	corrupt := &CorruptionError{Path: s.path, Err: cause}
	if err := s.Save(defaults); err != nil {
		return defaults, errors.Join(corrupt, err)
	}
	return defaults, corrupt
}

// Save overwrites the button file with the projection of p.
func (s *Store) Save(p []pages.Page) error {
	raw, err := Encode(p)
	if err != nil {
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	if err := atomicWriteFn(s.path, raw, 0o600); err != nil {
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	s.remember(raw)
	slog.Debug("[DEBUG-STORE] button config saved", "path", s.path, "pages", len(p))
	return nil
}

func (s *Store) remember(raw []byte) {
	s.mu.Lock()
	s.lastDigest = sha256.Sum256(raw)
	s.hasDigest = true
	s.mu.Unlock()
}

// isOwnWrite reports whether raw matches the last content this store read
// or wrote.
func (s *Store) isOwnWrite(raw []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasDigest && s.lastDigest == sha256.Sum256(raw)
}

type filePage struct {
	PageName string       `json:"page_name"`
	Buttons  []fileButton `json:"buttons"`
}

type fileButton struct {
	Name    string `json:"name"`
	Command string `json:"command"`
}

// Encode renders pages deterministically: fixed key order, UTF-8 without
// HTML escaping, two-space indentation.
func Encode(p []pages.Page) ([]byte, error) {
	out := make([]filePage, len(p))
	for i, page := range p {
		buttons := make([]fileButton, len(page.Buttons))
		for j, b := range page.Buttons {
			buttons[j] = fileButton{Name: b.Name, Command: b.Command}
		}
		out[i] = filePage{PageName: page.Name, Buttons: buttons}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a button file and keeps only entries carrying the required
// fields. Pages need a non-blank string page_name and a buttons array;
// buttons need non-blank string name and command. Unknown fields are
// ignored. A result with no pages is an error.
func Decode(raw []byte) ([]pages.Page, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	list, ok := doc.([]any)
	if !ok {
		return nil, errNotList
	}

	seen := make(map[string]struct{}, len(list))
	result := make([]pages.Page, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			slog.Warn("[WARN-STORE] dropping page entry that is not an object", "index", i)
			continue
		}
		name, ok := stringField(obj, "page_name")
		if !ok {
			slog.Warn("[WARN-STORE] dropping page without page_name", "index", i)
			continue
		}
		rawButtons, ok := obj["buttons"].([]any)
		if !ok {
			slog.Warn("[WARN-STORE] dropping page without buttons list", "index", i, "page", name)
			continue
		}
		if _, dup := seen[name]; dup {
			slog.Warn("[WARN-STORE] dropping page with duplicate name", "index", i, "page", name)
			continue
		}
		seen[name] = struct{}{}

		buttons := make([]pages.Button, 0, len(rawButtons))
		for j, rb := range rawButtons {
			bobj, ok := rb.(map[string]any)
			if !ok {
				slog.Warn("[WARN-STORE] dropping button that is not an object", "page", name, "index", j)
				continue
			}
			btnName, okName := stringField(bobj, "name")
			command, okCmd := stringField(bobj, "command")
			if !okName || !okCmd {
				slog.Warn("[WARN-STORE] dropping button without name/command", "page", name, "index", j)
				continue
			}
			buttons = append(buttons, pages.Button{Name: btnName, Command: command})
		}
		result = append(result, pages.Page{Name: name, Buttons: buttons})
	}

	if len(result) == 0 {
		return nil, errNoPages
	}
	return result, nil
}

func stringField(obj map[string]any, key string) (string, bool) {
	v, ok := obj[key].(string)
	if !ok {
		return "", false
	}
	return v, strings.TrimSpace(v) != ""
}
