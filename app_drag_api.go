package main

import (
	"log/slog"
	"time"

	"quickcmd/internal/reorder"
)

// dragScheduler runs dwell timers on the UI loop and publishes the drag
// state after each one fires.
type dragScheduler struct{ app *App }

func (s dragScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	return s.app.loop.AfterFunc(d, func() {
		fn()
		s.app.emitDragState()
	})
}

// collectionSwapper applies engine swaps to the page collection. It is
// only called from inside a UI loop task.
type collectionSwapper struct{ app *App }

func (s collectionSwapper) SwapButtons(pageIndex, i, j int) error {
	return s.app.pages.SwapButtons(pageIndex, i, j)
}

// DragResult is returned by PointerUp.
type DragResult struct {
	State reorder.State `json:"state"`
	// Clicked is true when the gesture was a click and its command was
	// dispatched.
	Clicked bool `json:"clicked"`
}

// Columns returns the grid column count for a container width.
func (a *App) Columns(containerWidth float64) (int, error) {
	var cols int
	err := a.onLoop("columns", func() { cols = a.engine.Columns(containerWidth) })
	return cols, err
}

// PointerDown starts a press gesture on a button of pageIndex. The grid is
// laid out from the page's current button count first.
func (a *App) PointerDown(pageIndex, buttonIndex int, x, y, containerWidth float64) (reorder.State, error) {
	var (
		state reorder.State
		opErr error
	)
	err := a.onLoop("pointer-down", func() {
		count, err := a.pages.ButtonCount(pageIndex)
		if err != nil {
			opErr = err
			return
		}
		a.engine.Layout(pageIndex, count, containerWidth)
		if opErr = a.engine.Press(buttonIndex, x, y); opErr != nil {
			return
		}
		state = a.engine.Snapshot()
	})
	if err != nil {
		return reorder.State{}, err
	}
	return state, opErr
}

// PointerMove feeds a motion event. A swap persists the new order and
// emits pages:updated.
func (a *App) PointerMove(x, y float64, geometry reorder.Geometry) (reorder.State, error) {
	var (
		state   reorder.State
		swapped bool
		opErr   error
	)
	err := a.onLoop("pointer-move", func() {
		var swap reorder.Swap
		swap, swapped, opErr = a.engine.Motion(x, y, geometry)
		if swapped {
			slog.Debug("[DEBUG-REORDER] buttons swapped", "page", swap.Page, "from", swap.From, "to", swap.To)
			a.emitPagesUpdated()
		}
		state = a.engine.Snapshot()
	})
	if err != nil {
		return reorder.State{}, err
	}
	if swapped {
		a.emitRuntimeEvent(eventDragState, state)
	}
	if opErr != nil {
		slog.Warn("[WARN-REORDER] drag swap failed", "error", opErr)
	}
	return state, opErr
}

// PointerUp ends the gesture. A press that never became a drag is a click
// and dispatches the button's command.
func (a *App) PointerUp() (DragResult, error) {
	var (
		result reorder.ReleaseResult
		page   int
		state  reorder.State
	)
	err := a.onLoop("pointer-up", func() {
		page = a.engine.Snapshot().Page
		result = a.engine.Release()
		state = a.engine.Snapshot()
	})
	if err != nil {
		return DragResult{}, err
	}
	a.emitRuntimeEvent(eventDragState, state)
	if !result.Click {
		return DragResult{State: state}, nil
	}
	if err := a.ExecuteButton(page, result.Index); err != nil {
		return DragResult{State: state}, err
	}
	return DragResult{State: state, Clicked: true}, nil
}

// SetDragMode enables or disables drag reordering. Disabling cancels a
// gesture in progress.
func (a *App) SetDragMode(enabled bool) error {
	var state reorder.State
	if err := a.onLoop("drag-mode", func() {
		a.engine.SetEnabled(enabled)
		state = a.engine.Snapshot()
	}); err != nil {
		return err
	}
	a.emitRuntimeEvent(eventDragState, state)
	return nil
}

// emitDragState publishes the engine snapshot. It runs on the UI loop.
func (a *App) emitDragState() {
	a.emitRuntimeEvent(eventDragState, a.engine.Snapshot())
}
