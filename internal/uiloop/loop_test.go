package uiloop

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPostRunsInOrder(t *testing.T) {
	l := New(nil)
	defer l.Close()

	var mu sync.Mutex
	var got []int
	for i := range 10 {
		if !l.Post("append", func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}) {
			t.Fatal("Post() = false on open loop")
		}
	}
	if err := l.Call("barrier", func() {}); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("got = %v, want ascending", got)
		}
	}
	if len(got) != 10 {
		t.Fatalf("len = %d", len(got))
	}
}

func TestCallWaitsForResult(t *testing.T) {
	l := New(nil)
	defer l.Close()

	value := 0
	if err := l.Call("set", func() { value = 7 }); err != nil {
		t.Fatal(err)
	}
	if value != 7 {
		t.Fatalf("value = %d", value)
	}
}

func TestPanicIsRecoveredAndLoopContinues(t *testing.T) {
	l := New(nil)
	defer l.Close()

	if err := l.Call("boom", func() { panic("bad") }); err == nil {
		t.Fatal("Call() should report the panic")
	}
	ran := false
	if err := l.Call("after", func() { ran = true }); err != nil || !ran {
		t.Fatalf("loop did not survive panic: err=%v ran=%v", err, ran)
	}
}

func TestClosingMakesLateWorkNoop(t *testing.T) {
	l := New(nil)
	l.Close()

	var ran atomic.Bool
	if l.Post("late", func() { ran.Store(true) }) {
		t.Fatal("Post() after Close should report false")
	}
	if err := l.Call("late", func() { ran.Store(true) }); !errors.Is(err, ErrClosed) {
		t.Fatalf("Call() error = %v, want ErrClosed", err)
	}
	if ran.Load() {
		t.Fatal("work ran after Close")
	}
	if !l.Closing() {
		t.Fatal("Closing() = false")
	}
	l.Close()
}

func TestQueuedWorkSkippedOnceClosing(t *testing.T) {
	l := New(nil)

	release := make(chan struct{})
	started := make(chan struct{})
	l.Post("block", func() {
		close(started)
		<-release
	})
	<-started

	var ran atomic.Bool
	l.Post("queued", func() { ran.Store(true) })

	closed := make(chan struct{})
	go func() {
		l.Close()
		close(closed)
	}()
	// Let Close flag the loop before unblocking the first task.
	for !l.Closing() {
		time.Sleep(time.Millisecond)
	}
	close(release)
	<-closed

	if ran.Load() {
		t.Fatal("queued task ran after Close started")
	}
}

func TestLivenessCheckSkipsTasks(t *testing.T) {
	var alive atomic.Bool
	l := New(alive.Load)
	defer l.Close()

	ran := false
	if err := l.Call("dead", func() { ran = true }); !errors.Is(err, ErrClosed) {
		t.Fatalf("Call() error = %v, want ErrClosed", err)
	}
	if ran {
		t.Fatal("task ran while target not alive")
	}

	alive.Store(true)
	if err := l.Call("alive", func() { ran = true }); err != nil || !ran {
		t.Fatalf("err=%v ran=%v", err, ran)
	}
}

func TestAfterFuncRunsOnLoopAndStops(t *testing.T) {
	l := New(nil)
	defer l.Close()

	fired := make(chan struct{})
	l.AfterFunc(time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timer did not fire")
	}

	var late atomic.Bool
	stop := l.AfterFunc(time.Hour, func() { late.Store(true) })
	if !stop() {
		t.Fatal("stop() = false for pending timer")
	}
	if stop() {
		t.Fatal("second stop() = true")
	}
}
