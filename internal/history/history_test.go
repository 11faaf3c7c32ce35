package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestLog(t *testing.T, limit int) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "sub", "history.db"), limit)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRecordAndRecent(t *testing.T) {
	l := openTestLog(t, 10)
	ctx := context.Background()
	at := time.UnixMilli(1_700_000_000_000)

	if err := l.Record(ctx, Entry{Page: "Git", Button: "status", Command: "git status", OK: true, At: at}); err != nil {
		t.Fatal(err)
	}
	if err := l.Record(ctx, Entry{Page: "Git", Button: "push", Command: "git push", Error: "dispatch failed at paste", At: at.Add(time.Second)}); err != nil {
		t.Fatal(err)
	}

	got, err := l.Recent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Button != "push" || got[0].OK || got[0].Error == "" {
		t.Fatalf("newest = %+v", got[0])
	}
	if got[1].Command != "git status" || !got[1].OK || !got[1].At.Equal(at) {
		t.Fatalf("oldest = %+v", got[1])
	}
}

func TestRecordTrimsToLimit(t *testing.T) {
	l := openTestLog(t, 3)
	ctx := context.Background()
	for i := range 7 {
		if err := l.Record(ctx, Entry{Page: "P", Button: "b", Command: string(rune('a' + i)), OK: true}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := l.Recent(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	want := []string{"g", "f", "e"}
	for i, e := range got {
		if e.Command != want[i] {
			t.Fatalf("Recent()[%d].Command = %q, want %q", i, e.Command, want[i])
		}
	}
}

func TestRecentLimit(t *testing.T) {
	l := openTestLog(t, 10)
	ctx := context.Background()
	for range 4 {
		if err := l.Record(ctx, Entry{Page: "P", Button: "b", Command: "c"}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := l.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
}

func TestRecordStampsZeroTime(t *testing.T) {
	l := openTestLog(t, 10)
	fixed := time.UnixMilli(1_234_567_890_000)
	l.now = func() time.Time { return fixed }

	if err := l.Record(context.Background(), Entry{Page: "P", Button: "b", Command: "c"}); err != nil {
		t.Fatal(err)
	}
	got, err := l.Recent(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !got[0].At.Equal(fixed) {
		t.Fatalf("At = %v, want %v", got[0].At, fixed)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	l, err := Open(path, 5)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Record(context.Background(), Entry{Page: "P", Button: "b", Command: "persisted"}); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	l2, err := Open(path, 5)
	if err != nil {
		t.Fatal(err)
	}
	defer l2.Close()
	got, err := l2.Recent(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Command != "persisted" {
		t.Fatalf("Recent() = %+v", got)
	}
}

func TestOpenRejectsNonPositiveLimit(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "h.db"), 0); err == nil {
		t.Fatal("Open() with limit 0 should fail")
	}
}
