package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quickcmd/internal/pages"
)

func TestRequestPersistCoalesces(t *testing.T) {
	app := NewApp()
	app.requestPersist([]pages.Page{{Name: "first"}})
	app.requestPersist([]pages.Page{{Name: "second"}})

	got, ok := app.takePendingPersist()
	if !ok || len(got) != 1 || got[0].Name != "second" {
		t.Fatalf("takePendingPersist() = %+v, %v; want newest snapshot", got, ok)
	}
	if _, ok := app.takePendingPersist(); ok {
		t.Fatal("pending snapshot should be consumed")
	}
	if len(app.persistWake) != 1 {
		t.Fatalf("wake channel holds %d signals, want 1", len(app.persistWake))
	}
}

func TestPendingSaveFlushedOnTeardown(t *testing.T) {
	env := newTestEnv(t, "watch_buttons_file: false\n")
	buttonsFile := filepath.Join(env.dir, "button_config.json")

	if err := env.app.AddPage("Flushed"); err != nil {
		t.Fatal(err)
	}
	env.app.teardown()

	raw, err := os.ReadFile(buttonsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "Flushed") {
		t.Fatalf("button file = %s, want saved page", raw)
	}
}

func TestSaveFailureBecomesNotice(t *testing.T) {
	env := newTestEnv(t, "watch_buttons_file: false\n")
	// A directory where the button file should be makes the rename fail.
	buttonsFile := filepath.Join(env.dir, "button_config.json")
	_ = os.Remove(buttonsFile)
	if err := os.MkdirAll(filepath.Join(buttonsFile, "blocker"), 0o700); err != nil {
		t.Fatal(err)
	}

	if err := env.app.AddPage("Unsaved"); err != nil {
		t.Fatalf("AddPage() error = %v; memory stays authoritative", err)
	}
	waitFor(t, "save failure notice", func() bool {
		for _, n := range env.app.GetNotices() {
			if strings.Contains(n.Message, "failed to save buttons") {
				return true
			}
		}
		return false
	})

	got, err := env.app.GetPages()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("pages = %d, want in-memory page kept", len(got))
	}
}

func TestExternalEditReloadsPages(t *testing.T) {
	env := newTestEnv(t, "")
	buttonsFile := filepath.Join(env.dir, "button_config.json")

	edited := `[{"page_name":"Edited","buttons":[{"name":"hi","command":"echo hi"}]}]`
	// The watcher subscribes asynchronously. Rewrites are spaced wider than
	// the reload debounce so they never hold it back.
	var lastWrite time.Time
	waitFor(t, "external reload", func() bool {
		got, err := env.app.GetPages()
		if err == nil && len(got) == 1 && got[0].Name == "Edited" {
			return true
		}
		if time.Since(lastWrite) > 500*time.Millisecond {
			_ = os.WriteFile(buttonsFile, []byte(edited), 0o600)
			lastWrite = time.Now()
		}
		return false
	})
	if len(env.events.named(eventPagesUpdated)) == 0 {
		t.Fatal("reload should emit pages:updated")
	}
}
