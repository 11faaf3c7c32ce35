// Package reorder implements drag-to-reorder for the launcher grid.
//
// A gesture moves Idle -> Pressed -> Dragging -> Idle. A press only becomes
// a drag after the dwell delay, so a quick press/release stays a click. While
// dragging, pointer motion is mapped onto the grid and the button under the
// pointer trades places with the dragged one.
//
// An Engine is not safe for concurrent use. The Scheduler must deliver dwell
// callbacks on the same goroutine that calls the Engine's methods.
package reorder

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultCellWidth = 100.0
	DefaultRowGap    = 4.0
	DefaultDwell     = 200 * time.Millisecond
)

// Phase is the gesture state.
type Phase int

const (
	Idle Phase = iota
	Pressed
	Dragging
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pressed:
		return "pressed"
	case Dragging:
		return "dragging"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Cell is a grid position.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Tile is one rendered button: the data index it currently shows and the
// grid cell it occupies.
type Tile struct {
	Index int  `json:"index"`
	Cell  Cell `json:"cell"`
}

// Geometry describes the container at the time of a motion event.
type Geometry struct {
	OriginX      float64 `json:"origin_x"`
	OriginY      float64 `json:"origin_y"`
	Width        float64 `json:"width"`
	SourceHeight float64 `json:"source_height"`
}

// Scheduler arms a one-shot callback. The returned stop func cancels it and
// reports whether it was still pending.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// Swapper exchanges two buttons in the underlying model.
type Swapper interface {
	SwapButtons(pageIndex, i, j int) error
}

// Options tunes grid geometry and timing. A non-positive CellWidth or Dwell,
// a negative RowGap and a nil Now take defaults.
type Options struct {
	CellWidth float64
	RowGap    float64
	Dwell     time.Duration
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.CellWidth <= 0 {
		o.CellWidth = DefaultCellWidth
	}
	if o.RowGap < 0 {
		o.RowGap = DefaultRowGap
	}
	if o.Dwell <= 0 {
		o.Dwell = DefaultDwell
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Swap describes one exchange performed during a drag.
type Swap struct {
	Page int `json:"page"`
	From int `json:"from"`
	To   int `json:"to"`
}

// ReleaseResult reports how a gesture ended.
type ReleaseResult struct {
	// Click is true when the gesture never became a drag and the pressed
	// button still exists.
	Click bool
	// Index is the data index of the pressed button at release time, or -1.
	Index int
	Held  time.Duration
}

// Engine tracks the grid layout of one page and the in-flight gesture.
type Engine struct {
	opts    Options
	sched   Scheduler
	swapper Swapper
	enabled bool

	page  int
	tiles []Tile

	phase       Phase
	gesture     uuid.UUID
	source      int // tile position in tiles, -1 when none
	startX      float64
	startY      float64
	pressedAt   time.Time
	stopDwell   func() bool
	placeholder *Cell
}

// NewEngine returns an Engine with reordering enabled.
func NewEngine(opts Options, sched Scheduler, swapper Swapper) *Engine {
	return &Engine{
		opts:    opts.withDefaults(),
		sched:   sched,
		swapper: swapper,
		enabled: true,
		source:  -1,
	}
}

// Columns returns the column count for a container of the given width.
func (e *Engine) Columns(containerWidth float64) int {
	return columnsFor(containerWidth, e.opts.CellWidth)
}

func columnsFor(width, cellWidth float64) int {
	if width <= 0 || cellWidth <= 0 {
		return 1
	}
	return max(1, int(math.Floor(width/cellWidth)))
}

// Layout places count buttons of page row-major into the grid and abandons
// any in-flight gesture.
func (e *Engine) Layout(page, count int, containerWidth float64) {
	e.reset()
	cols := e.Columns(containerWidth)
	e.page = page
	e.tiles = make([]Tile, count)
	for i := range count {
		e.tiles[i] = Tile{Index: i, Cell: Cell{Row: i / cols, Col: i % cols}}
	}
}

// SetEnabled toggles drag reordering. Disabling cancels a gesture. While
// disabled, presses never arm the dwell timer and every release is a click.
func (e *Engine) SetEnabled(enabled bool) {
	if !enabled {
		e.reset()
	}
	e.enabled = enabled
}

// Enabled reports whether drag reordering is on.
func (e *Engine) Enabled() bool { return e.enabled }

// Phase returns the current gesture phase.
func (e *Engine) Phase() Phase { return e.phase }

// Press starts a gesture on the button with data index index.
func (e *Engine) Press(index int, x, y float64) error {
	if e.phase != Idle {
		e.reset()
	}
	tile := e.tileFor(index)
	if tile < 0 {
		return fmt.Errorf("press: button index %d not in layout of %d", index, len(e.tiles))
	}

	e.phase = Pressed
	e.gesture = uuid.New()
	e.source = tile
	e.startX, e.startY = x, y
	e.pressedAt = e.opts.Now()

	if e.enabled && e.sched != nil {
		id := e.gesture
		e.stopDwell = e.sched.AfterFunc(e.opts.Dwell, func() { e.dwellElapsed(id) })
	}
	return nil
}

func (e *Engine) dwellElapsed(id uuid.UUID) {
	if e.phase != Pressed || e.gesture != id {
		slog.Debug("[DEBUG-REORDER] stale dwell timer ignored", "gesture", id)
		return
	}
	if e.source < 0 || e.source >= len(e.tiles) {
		e.reset()
		return
	}
	e.stopDwell = nil
	e.phase = Dragging
	cell := e.tiles[e.source].Cell
	e.placeholder = &cell
	slog.Debug("[DEBUG-REORDER] drag started", "gesture", id, "index", e.tiles[e.source].Index)
}

// Motion handles pointer movement. It returns the swap performed, if any.
// Zero container width (not laid out yet) skips the tick.
func (e *Engine) Motion(x, y float64, g Geometry) (Swap, bool, error) {
	if e.phase != Dragging || e.source < 0 || e.source >= len(e.tiles) {
		return Swap{}, false, nil
	}
	if g.Width <= 0 {
		return Swap{}, false, nil
	}
	rowHeight := g.SourceHeight + e.opts.RowGap
	if rowHeight <= 0 {
		return Swap{}, false, nil
	}

	cols := e.Columns(g.Width)
	colWidth := g.Width / float64(cols)
	col := int(math.Floor((x - g.OriginX) / colWidth))
	col = max(0, min(cols-1, col))
	row := int(math.Floor((y - g.OriginY) / rowHeight))

	target := e.tileAt(Cell{Row: row, Col: col})
	if target < 0 || target == e.source {
		return Swap{}, false, nil
	}

	src := &e.tiles[e.source]
	tgt := &e.tiles[target]
	if err := e.swapper.SwapButtons(e.page, src.Index, tgt.Index); err != nil {
		e.reset()
		return Swap{}, false, fmt.Errorf("swap during drag: %w", err)
	}

	swap := Swap{Page: e.page, From: src.Index, To: tgt.Index}
	src.Index, tgt.Index = tgt.Index, src.Index
	src.Cell, tgt.Cell = tgt.Cell, src.Cell
	return swap, true, nil
}

// Release ends the gesture. Cleanup is unconditional, including when the
// gesture never left Pressed.
func (e *Engine) Release() ReleaseResult {
	result := ReleaseResult{Index: -1}
	if e.phase != Idle && e.source >= 0 && e.source < len(e.tiles) {
		result.Index = e.tiles[e.source].Index
		result.Click = e.phase == Pressed
		result.Held = e.opts.Now().Sub(e.pressedAt)
	}
	e.reset()
	return result
}

// Cancel drops any gesture without reporting a click. It returns false when
// there was nothing to cancel.
func (e *Engine) Cancel() bool {
	if e.phase == Idle {
		return false
	}
	e.reset()
	return true
}

func (e *Engine) reset() {
	if e.stopDwell != nil {
		e.stopDwell()
		e.stopDwell = nil
	}
	e.phase = Idle
	e.gesture = uuid.Nil
	e.source = -1
	e.placeholder = nil
}

func (e *Engine) tileFor(index int) int {
	for i, t := range e.tiles {
		if t.Index == index {
			return i
		}
	}
	return -1
}

func (e *Engine) tileAt(cell Cell) int {
	for i, t := range e.tiles {
		if t.Cell == cell {
			return i
		}
	}
	return -1
}

// State is the renderable view of the engine.
type State struct {
	Phase       string `json:"phase"`
	Page        int    `json:"page"`
	Source      int    `json:"source"`
	Placeholder *Cell  `json:"placeholder,omitempty"`
	Tiles       []Tile `json:"tiles"`
	Enabled     bool   `json:"enabled"`
}

// Snapshot returns a copy of the current visual state. Source is the data
// index of the dragged button, or -1.
func (e *Engine) Snapshot() State {
	st := State{
		Phase:   e.phase.String(),
		Page:    e.page,
		Source:  -1,
		Tiles:   append([]Tile(nil), e.tiles...),
		Enabled: e.enabled,
	}
	if e.phase == Dragging && e.source >= 0 && e.source < len(e.tiles) {
		st.Source = e.tiles[e.source].Index
	}
	if e.placeholder != nil {
		cell := *e.placeholder
		st.Placeholder = &cell
	}
	return st
}
