package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"quickcmd/internal/pages"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "button_config.json"))
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, pages.DefaultPages()) {
		t.Fatalf("Load() = %+v", got)
	}
	if _, statErr := os.Stat(s.Path()); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("missing file should not be created by Load")
	}
}

func TestLoadFiltersInvalidEntries(t *testing.T) {
	s := newTestStore(t)
	writeFile(t, s.Path(), `[
  {"page_name": "ok", "extra": 1, "buttons": [
    {"name": "list", "command": "ls -la", "color": "red"},
    {"name": "no command"},
    {"command": "no name"},
    "not an object"
  ]},
  {"page_name": "missing buttons"},
  {"buttons": []},
  {"page_name": "ok", "buttons": []}
]`)

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []pages.Page{{Name: "ok", Buttons: []pages.Button{{Name: "list", Command: "ls -la"}}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Load() = %+v, want %+v", got, want)
	}
}

func TestLoadCorruptResetsAndRewrites(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "{{{"},
		{name: "object instead of list", content: `{"page_name": "x", "buttons": []}`},
		{name: "every page invalid", content: `[{"page_name": "x"}, {"buttons": []}]`},
		{name: "empty list", content: `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			writeFile(t, s.Path(), tt.content)

			got, err := s.Load()
			var corrupt *CorruptionError
			if !errors.As(err, &corrupt) {
				t.Fatalf("Load() error = %v, want CorruptionError", err)
			}
			if !reflect.DeepEqual(got, pages.DefaultPages()) {
				t.Fatalf("Load() = %+v, want default", got)
			}

			raw, readErr := os.ReadFile(s.Path())
			if readErr != nil {
				t.Fatal(readErr)
			}
			rewritten, decodeErr := Decode(raw)
			if decodeErr != nil {
				t.Fatalf("rewritten file does not decode: %v\n%s", decodeErr, raw)
			}
			if !reflect.DeepEqual(rewritten, pages.DefaultPages()) {
				t.Fatalf("rewritten file = %+v", rewritten)
			}
		})
	}
}

func TestLoadCorruptWithFailingWriteJoinsErrors(t *testing.T) {
	orig := atomicWriteFn
	t.Cleanup(func() { atomicWriteFn = orig })
	atomicWriteFn = func(string, []byte, os.FileMode) error { return errors.New("disk full") }

	s := newTestStore(t)
	writeFile(t, s.Path(), "nope")

	_, err := s.Load()
	if !errors.As(err, new(*CorruptionError)) {
		t.Fatalf("missing CorruptionError in %v", err)
	}
	if !errors.As(err, new(*PersistenceError)) {
		t.Fatalf("missing PersistenceError in %v", err)
	}
}

func TestSaveFailureReported(t *testing.T) {
	orig := atomicWriteFn
	t.Cleanup(func() { atomicWriteFn = orig })
	atomicWriteFn = func(string, []byte, os.FileMode) error { return errors.New("read-only") }

	s := newTestStore(t)
	err := s.Save(pages.DefaultPages())
	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.Op != "write" {
		t.Fatalf("Save() error = %v, want write PersistenceError", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	c := []pages.Page{
		{Name: "Git", Buttons: []pages.Button{
			{Name: "status", Command: "git status"},
			{Name: "<html & 日本語>", Command: `echo "a" | grep 'b'`},
		}},
		{Name: "Empty", Buttons: []pages.Button{}},
	}

	if err := s.Save(c); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded, c) {
		t.Fatalf("Load() = %+v, want %+v", loaded, c)
	}
	if err := s.Save(loaded); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Fatalf("save(load(save(C))) differs:\n%s\n---\n%s", first, second)
	}
}

func TestEncodeFormat(t *testing.T) {
	raw, err := Encode([]pages.Page{{Name: "P", Buttons: []pages.Button{{Name: "a<b", Command: "x"}}}})
	if err != nil {
		t.Fatal(err)
	}
	want := `[
  {
    "page_name": "P",
    "buttons": [
      {
        "name": "a<b",
        "command": "x"
      }
    ]
  }
]
`
	if string(raw) != want {
		t.Fatalf("Encode() =\n%s\nwant\n%s", raw, want)
	}
}

func TestEncodeEmptyButtonsIsList(t *testing.T) {
	raw, err := Encode([]pages.Page{{Name: "P"}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"buttons": []`) {
		t.Fatalf("nil buttons must encode as an empty list:\n%s", raw)
	}
}

func TestWatchReloadsExternalEdits(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(pages.DefaultPages()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan []pages.Page, 4)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func(p []pages.Page) { changes <- p })
	}()

	// Give the watcher time to subscribe.
	time.Sleep(100 * time.Millisecond)

	// Our own save must not echo back.
	if err := s.Save(pages.DefaultPages()); err != nil {
		t.Fatal(err)
	}
	writeFile(t, s.Path(), `[{"page_name": "edited", "buttons": [{"name": "n", "command": "c"}]}]`)

	select {
	case got := <-changes:
		if len(got) != 1 || got[0].Name != "edited" {
			t.Fatalf("reloaded pages = %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for external change")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestDebounceDelay(t *testing.T) {
	tests := []struct {
		name    string
		pending time.Duration
		want    time.Duration
	}{
		{name: "first event", pending: 0, want: watchDebounce},
		{name: "near max wait", pending: watchMaxWait - 50*time.Millisecond, want: 50 * time.Millisecond},
		{name: "past max wait", pending: 2 * watchMaxWait, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := debounceDelay(tt.pending); got != tt.want {
				t.Fatalf("debounceDelay(%v) = %v, want %v", tt.pending, got, tt.want)
			}
		})
	}
}

func TestWatchReloadsDuringSteadyWrites(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(pages.DefaultPages()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan []pages.Page, 16)
	go func() { _ = s.Watch(ctx, func(p []pages.Page) { changes <- p }) }()
	time.Sleep(100 * time.Millisecond)

	edited := `[{"page_name": "busy", "buttons": [{"name": "n", "command": "c"}]}]`
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case got := <-changes:
			if got[0].Name != "busy" {
				t.Fatalf("reloaded pages = %+v", got)
			}
			return
		case <-tick.C:
			writeFile(t, s.Path(), edited)
		case <-deadline:
			t.Fatal("writes every 20ms should not hold back a reload")
		}
	}
}

func TestLoadReadFailureKeepsFile(t *testing.T) {
	s := newTestStore(t)
	// A directory at the button file path opens but cannot be read.
	if err := os.Mkdir(s.Path(), 0o700); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load()
	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.Op != "read" {
		t.Fatalf("Load() error = %v, want read PersistenceError", err)
	}
	if errors.As(err, new(*CorruptionError)) {
		t.Fatalf("Load() error = %v, read failure is not corruption", err)
	}
	if !reflect.DeepEqual(got, pages.DefaultPages()) {
		t.Fatalf("Load() = %+v, want default page", got)
	}
	if info, statErr := os.Stat(s.Path()); statErr != nil || !info.IsDir() {
		t.Fatalf("path should be left untouched, stat = %v, %v", info, statErr)
	}
}
