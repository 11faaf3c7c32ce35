package dispatch

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

type recordingInjector struct {
	calls  []string
	failOn string
}

func (r *recordingInjector) record(call string) error {
	r.calls = append(r.calls, call)
	if r.failOn != "" && strings.HasPrefix(call, r.failOn) {
		return errors.New("injection refused")
	}
	return nil
}

func (r *recordingInjector) InjectKeystroke(key string) error { return r.record("key:" + key) }

func (r *recordingInjector) InjectCombo(keys ...string) error {
	return r.record("combo:" + strings.Join(keys, "+"))
}

func (r *recordingInjector) SetClipboard(text string) error { return r.record("clip:" + text) }

func (r *recordingInjector) Sleep(d time.Duration) { r.calls = append(r.calls, "sleep:"+d.String()) }

func (r *recordingInjector) count(prefix string) int {
	n := 0
	for _, c := range r.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func TestDispatchSequence(t *testing.T) {
	inj := &recordingInjector{}
	hidden := 0
	d := New(inj, func() error { hidden++; inj.calls = append(inj.calls, "hide"); return nil }, DefaultKeys())

	if err := d.Dispatch(context.Background(), "ls -la"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	want := []string{
		"hide",
		"key:esc",
		"sleep:50ms",
		"key:/",
		"sleep:100ms",
		"clip:ls -la",
		"combo:ctrl+v",
		"key:enter",
	}
	if !reflect.DeepEqual(inj.calls, want) {
		t.Fatalf("calls = %v\nwant    %v", inj.calls, want)
	}
	if inj.count("clip:") != 1 || inj.count("combo:") != 1 {
		t.Fatal("want exactly one clipboard set and one paste")
	}
	if hidden != 1 {
		t.Fatalf("hidden = %d", hidden)
	}
}

func TestDispatchAbortsAtFirstFailure(t *testing.T) {
	tests := []struct {
		name     string
		failOn   string
		wantStep Step
		wantLast string
	}{
		{name: "interrupt", failOn: "key:esc", wantStep: StepInterrupt, wantLast: "key:esc"},
		{name: "affordance", failOn: "key:/", wantStep: StepAffordance, wantLast: "key:/"},
		{name: "clipboard", failOn: "clip:", wantStep: StepClipboard, wantLast: "clip:echo hi"},
		{name: "paste", failOn: "combo:", wantStep: StepPaste, wantLast: "combo:ctrl+v"},
		{name: "activate", failOn: "key:enter", wantStep: StepActivate, wantLast: "key:enter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inj := &recordingInjector{failOn: tt.failOn}
			d := New(inj, nil, DefaultKeys())

			err := d.Dispatch(context.Background(), "echo hi")
			var derr *DispatchError
			if !errors.As(err, &derr) {
				t.Fatalf("Dispatch() error = %v, want DispatchError", err)
			}
			if derr.Step != tt.wantStep {
				t.Fatalf("Step = %s, want %s", derr.Step, tt.wantStep)
			}
			if last := inj.calls[len(inj.calls)-1]; last != tt.wantLast {
				t.Fatalf("last call = %s, want %s (no retry, no later steps)", last, tt.wantLast)
			}
			if n := inj.count(tt.failOn); n != 1 {
				t.Fatalf("%s attempted %d times, want 1", tt.failOn, n)
			}
		})
	}
}

func TestDispatchHideFailure(t *testing.T) {
	inj := &recordingInjector{}
	d := New(inj, func() error { return errors.New("no window") }, DefaultKeys())
	err := d.Dispatch(context.Background(), "x")
	var derr *DispatchError
	if !errors.As(err, &derr) || derr.Step != StepHide {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(inj.calls) != 0 {
		t.Fatalf("calls = %v, want none", inj.calls)
	}
}

func TestDispatchEmptyCommand(t *testing.T) {
	inj := &recordingInjector{}
	d := New(inj, nil, DefaultKeys())
	err := d.Dispatch(context.Background(), "   ")
	var derr *DispatchError
	if !errors.As(err, &derr) || derr.Step != StepValidate {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(inj.calls) != 0 {
		t.Fatal("empty command must not inject anything")
	}
}

func TestDispatchCancelledContext(t *testing.T) {
	inj := &recordingInjector{}
	d := New(inj, nil, DefaultKeys())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Dispatch(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Dispatch() error = %v, want context.Canceled", err)
	}
	if len(inj.calls) != 0 {
		t.Fatal("cancelled dispatch must not inject")
	}
}

func TestDispatchCustomKeys(t *testing.T) {
	inj := &recordingInjector{}
	keys := Keys{PasteCombo: []string{"shift", "insert"}, Activation: "enter"}
	d := New(inj, nil, keys)

	if err := d.Dispatch(context.Background(), "make"); err != nil {
		t.Fatal(err)
	}
	want := []string{"clip:make", "combo:shift+insert", "key:enter"}
	if !reflect.DeepEqual(inj.calls, want) {
		t.Fatalf("calls = %v, want %v", inj.calls, want)
	}
}
