// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package viewport

import (
	"context"
	"fmt"
	"time"

	"github.com/gogpu/cellwatch"
	"github.com/gogpu/cellwatch/ca"
	"github.com/gogpu/cellwatch/internal/assemble"
	"github.com/gogpu/cellwatch/internal/gpu/kernel"
	"github.com/gogpu/cellwatch/internal/gpu/present"
	"github.com/gogpu/cellwatch/internal/tilecache"
)

// Event is any runtime control event from the windowing collaborator. The
// concrete event types below are the only ones Apply recognizes.
type Event interface{ isEvent() }

type PointerDownEvent struct{ X, Y float64 }
type PointerMoveEvent struct{ X, Y float64 }
type PointerUpEvent struct{}
type ScrollEvent struct{ Delta, X, Y float64 }
type TouchDownEvent struct {
	ID   int
	X, Y float64
}
type TouchMoveEvent struct {
	ID   int
	X, Y float64
}
type TouchUpEvent struct{ ID int }
type ResizeEvent struct {
	Width, Height int
	DPIChange     bool
}
type ResetEvent struct{}
type FullscreenToggleEvent struct{}
type QuitEvent struct{}

func (PointerDownEvent) isEvent()      {}
func (PointerMoveEvent) isEvent()      {}
func (PointerUpEvent) isEvent()        {}
func (ScrollEvent) isEvent()           {}
func (TouchDownEvent) isEvent()        {}
func (TouchMoveEvent) isEvent()        {}
func (TouchUpEvent) isEvent()          {}
func (ResizeEvent) isEvent()           {}
func (ResetEvent) isEvent()            {}
func (FullscreenToggleEvent) isEvent() {}
func (QuitEvent) isEvent()             {}

// EventSource abstracts the windowing collaborator: it delivers runtime
// control events and drives the control loop's only suspension point, the
// event-wait with a debounce-driven timeout.
type EventSource interface {
	// Poll returns the next queued event, or false if none is pending.
	Poll() (Event, bool)
	// Wait blocks until an event is queued or deadline has passed,
	// whichever comes first.
	Wait(deadline time.Time)
}

// Apply dispatches a single event to the core's state machine.
func (c *Core) Apply(e Event) {
	switch ev := e.(type) {
	case PointerDownEvent:
		c.PointerDown(ev.X, ev.Y)
	case PointerMoveEvent:
		c.PointerMove(ev.X, ev.Y)
	case PointerUpEvent:
		c.PointerUp()
	case ScrollEvent:
		c.Scroll(ev.Delta, ev.X, ev.Y)
	case TouchDownEvent:
		c.TouchDown(ev.ID, ev.X, ev.Y)
	case TouchMoveEvent:
		c.TouchMove(ev.ID, ev.X, ev.Y)
	case TouchUpEvent:
		c.TouchUp(ev.ID)
	case ResizeEvent:
		c.Resize(ev.Width, ev.Height, ev.DPIChange)
	case ResetEvent:
		c.Reset()
	case FullscreenToggleEvent:
		c.FullscreenToggle()
	case QuitEvent:
		c.RequestQuit()
	}
}

// App ties the viewport, assembler, tile cache, and renderer into a
// single-threaded control loop. It holds no process-wide singletons:
// everything the pipeline needs is reachable from this struct.
type App struct {
	Core      *Core
	Assembler *assemble.Assembler
	Renderer  *present.Renderer
	Debounce  time.Duration

	Rule      ca.Rule
	State     ca.State
	StateHash uint64

	current *assemble.Output
}

// NewApp wires an assembler (over kd and cache) and a renderer into a
// fresh App for the given initial rule, state, and viewport window size.
func NewApp(kd *kernel.Dispatcher, cache *tilecache.Cache, tileSide int, renderer *present.Renderer, r ca.Rule, state ca.State, windowWidth, windowHeight int, debounce time.Duration) *App {
	return &App{
		Core:      NewCore(windowWidth, windowHeight),
		Assembler: assemble.New(kd, cache, tileSide),
		Renderer:  renderer,
		Debounce:  debounce,
		Rule:      r,
		State:     state,
		StateHash: state.Fingerprint(),
	}
}

// CurrentOutput returns the most recently assembled buffer, or nil before
// the first successful recompute.
func (a *App) CurrentOutput() *assemble.Output {
	return a.current
}

// Step drains every event currently queued on source, applying each to the
// core in arrival order, then performs a recompute if the debounce interval has
// elapsed and the resulting viewport is within the safety caps.
func (a *App) Step(ctx context.Context, source EventSource) error {
	for {
		ev, ok := source.Poll()
		if !ok {
			break
		}
		a.Core.Apply(ev)
	}

	if !a.Core.ShouldRecompute(a.Debounce) {
		return nil
	}

	visibleCellsX, visibleCellsY, ok := a.Core.SafeToCompute()
	if !ok {
		cellwatch.Logger().Warn("recompute request exceeds safety caps, skipping",
			"visible_cells_x", visibleCellsX, "visible_cells_y", visibleCellsY,
			"cell_size", a.Core.Viewport.CellSize)
		a.Core.ClearPending()
		return nil
	}

	out, err := a.Assembler.Assemble(ctx, a.Rule, a.State, a.StateHash,
		a.Core.Viewport.OffsetX, a.Core.Viewport.OffsetY, visibleCellsX, visibleCellsY)
	if err != nil {
		return fmt.Errorf("viewport: recompute: %w", err)
	}

	if a.current != nil {
		a.current.Release()
	}
	a.current = out
	a.Core.ClearPending()

	if a.Renderer != nil {
		a.Renderer.WriteUniform(a.uniformFor())
	}
	return nil
}

// uniformFor builds the renderer uniform from the current viewport,
// window size, and held output buffer. If no buffer
// has been assembled yet, visible/simulated dimensions are zero so the
// fragment shader's range check emits black everywhere.
func (a *App) uniformFor() present.Uniform {
	u := present.Uniform{
		CellSize:        uint32(a.Core.Viewport.CellSize),
		WindowWidth:     uint32(a.Core.WindowWidth),
		WindowHeight:    uint32(a.Core.WindowHeight),
		ViewportOffsetX: int32(floorToInt(a.Core.Viewport.OffsetX)),
		ViewportOffsetY: int32(floorToInt(a.Core.Viewport.OffsetY)),
	}
	if a.current != nil {
		u.VisibleWidth = uint32(a.current.SimWidth - 2*a.current.PaddingLeft)
		u.VisibleHeight = uint32(a.current.Height)
		u.SimulatedWidth = uint32(a.current.SimWidth)
		u.PaddingLeft = uint32(a.current.PaddingLeft)
		u.BufferOffsetX = int32(a.current.OffsetX)
		u.BufferOffsetY = int32(a.current.OffsetY)
	}
	return u
}

// WriteFrameUniform writes the current frame's uniform block, throttled by
// the caller to roughly 16 ms between updates. App itself applies no
// throttle and runs no frame loop.
func (a *App) WriteFrameUniform() {
	if a.Renderer != nil {
		a.Renderer.WriteUniform(a.uniformFor())
	}
}

func floorToInt(v float64) int64 {
	n := int64(v)
	if v < 0 && float64(n) != v {
		n--
	}
	return n
}
