package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestReadLimited(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	if err := os.WriteFile(path, []byte("0123456789"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		limit   int64
		wantErr error
	}{
		{name: "exact limit", limit: 10},
		{name: "above limit", limit: 64},
		{name: "below limit", limit: 9, wantErr: ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := ReadLimited(path, tt.limit)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReadLimited() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadLimited() error = %v", err)
			}
			if string(raw) != "0123456789" {
				t.Fatalf("ReadLimited() = %q", raw)
			}
		})
	}
}

func TestReadLimitedMissingFile(t *testing.T) {
	_, err := ReadLimited(filepath.Join(t.TempDir(), "missing"), 10)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("ReadLimited() error = %v, want os.ErrNotExist", err)
	}
}

func TestAtomicWriteCreatesParentsAndReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "buttons.json")

	if err := AtomicWrite(path, []byte("first"), 0o600); err != nil {
		t.Fatalf("AtomicWrite() first error = %v", err)
	}
	if err := AtomicWrite(path, []byte("second"), 0o600); err != nil {
		t.Fatalf("AtomicWrite() second error = %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "second" {
		t.Fatalf("file content = %q, want %q", raw, "second")
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("directory has %d entries, want only the target file", len(entries))
	}
}

func TestAtomicWriteRenameFailureRemovesTemp(t *testing.T) {
	orig := renameFn
	t.Cleanup(func() { renameFn = orig })
	renameFn = func(string, string) error { return errors.New("locked") }

	dir := t.TempDir()
	path := filepath.Join(dir, "hotkey.json")
	if err := AtomicWrite(path, []byte("{}"), 0o600); err == nil {
		t.Fatal("AtomicWrite() expected error")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp file left behind: %v", entries)
	}
}

func TestPathWithinDir(t *testing.T) {
	base := t.TempDir()
	cfgDir := filepath.Join(base, "QuickCmd")

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "same path", path: cfgDir, want: true},
		{name: "child", path: filepath.Join(cfgDir, "buttons.json"), want: true},
		{name: "traversal", path: filepath.Join(cfgDir, "..", "x.json"), want: false},
		{name: "dotdot prefixed name", path: filepath.Join(cfgDir, "..hidden"), want: true},
		{name: "sibling", path: filepath.Join(base, "other", "x.json"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PathWithinDir(tt.path, cfgDir); got != tt.want {
				t.Fatalf("PathWithinDir(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
