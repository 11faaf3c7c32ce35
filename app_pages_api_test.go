package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quickcmd/internal/pages"
)

func TestPageMutationsEmitAndPersist(t *testing.T) {
	env := newTestEnv(t, "")
	app := env.app

	steps := []struct {
		name string
		run  func() error
	}{
		{name: "add page", run: func() error { return app.AddPage("Git") }},
		{name: "rename page", run: func() error { return app.RenamePage(1, "Git tools") }},
		{name: "add button", run: func() error { return app.AddButton(1, "status", "git status") }},
		{name: "add second button", run: func() error { return app.AddButton(1, "log", "git log --oneline") }},
		{name: "edit button", run: func() error { return app.EditButton(1, 1, "log", "git log -5") }},
		{name: "delete button", run: func() error { return app.DeleteButton(1, 0) }},
	}
	for i, step := range steps {
		if err := step.run(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if got := len(env.events.named(eventPagesUpdated)); got != i+1 {
			t.Fatalf("%s: pages:updated count = %d, want %d", step.name, got, i+1)
		}
	}

	got, err := app.GetPages()
	if err != nil {
		t.Fatal(err)
	}
	want := []pages.Page{
		{Name: "Default", Buttons: []pages.Button{}},
		{Name: "Git tools", Buttons: []pages.Button{{Name: "log", Command: "git log -5"}}},
	}
	if len(got) != len(want) || got[1].Name != want[1].Name || len(got[1].Buttons) != 1 || got[1].Buttons[0] != want[1].Buttons[0] {
		t.Fatalf("GetPages() = %+v, want %+v", got, want)
	}

	buttonsFile := filepath.Join(env.dir, "button_config.json")
	waitFor(t, "button file save", func() bool {
		raw, err := os.ReadFile(buttonsFile)
		return err == nil && strings.Contains(string(raw), "git log -5")
	})
}

func TestPageValidationErrorsLeaveStateUnchanged(t *testing.T) {
	env := newTestEnv(t, "")
	app := env.app

	tests := []struct {
		name   string
		run    func() error
		target any
	}{
		{name: "empty page name", run: func() error { return app.AddPage("  ") }, target: new(*pages.EmptyNameError)},
		{name: "duplicate page", run: func() error { return app.AddPage("Default") }, target: new(*pages.DuplicateNameError)},
		{name: "delete last page", run: func() error { return app.DeletePage(0) }, target: new(*pages.LastPageError)},
		{name: "empty command", run: func() error { return app.AddButton(0, "x", " ") }, target: new(*pages.EmptyFieldError)},
		{name: "stale button index", run: func() error { return app.EditButton(0, 3, "x", "y") }, target: new(*pages.IndexOutOfRangeError)},
		{name: "bad page index", run: func() error { return app.RenamePage(9, "Other") }, target: new(*pages.IndexOutOfRangeError)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, pages.ErrValidation) {
				t.Fatalf("error = %v, want validation error", err)
			}
			if !errors.As(err, tt.target) {
				t.Fatalf("error = %T, want %T", err, tt.target)
			}
		})
	}

	if n := len(env.events.named(eventPagesUpdated)); n != 0 {
		t.Fatalf("pages:updated emitted %d times for rejected mutations", n)
	}
	got, err := app.GetPages()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || len(got[0].Buttons) != 0 {
		t.Fatalf("state changed: %+v", got)
	}
}

func TestGetPagesReturnsCopy(t *testing.T) {
	env := newTestEnv(t, "")
	if err := env.app.AddButton(0, "a", "echo a"); err != nil {
		t.Fatal(err)
	}
	first, err := env.app.GetPages()
	if err != nil {
		t.Fatal(err)
	}
	first[0].Buttons[0].Name = "mutated"

	second, err := env.app.GetPages()
	if err != nil {
		t.Fatal(err)
	}
	if second[0].Buttons[0].Name != "a" {
		t.Fatal("GetPages() must return a detached copy")
	}
}
