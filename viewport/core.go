// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package viewport

import (
	"math"
	"time"

	"github.com/gogpu/cellwatch/viewport/zoomladder"
)

// dragState tracks an active single-pointer drag: the gesture's start
// position and the viewport as it stood when the drag began, so pan is
// computed relative to a fixed origin rather than accumulated per move
// event.
type dragState struct {
	active          bool
	startX, startY  float64
	viewportAtStart Viewport
}

// touchPoint is one active touch in a multi-touch gesture, identified by
// the windowing collaborator's touch id.
type touchPoint struct {
	id   int
	x, y float64
}

// pinchState tracks an active two-touch pinch gesture.
type pinchState struct {
	active          bool
	ids             [2]int
	initialDistance float64
	initialCellSize int
}

// Core is the viewport + input state machine: a single
// state with continuous attributes, mutated only by the event methods
// below. It is owned and driven from the single CPU control thread; no
// locking is used or needed.
type Core struct {
	Viewport                  Viewport
	WindowWidth, WindowHeight int

	drag    dragState
	touches []touchPoint
	pinch   pinchState

	pendingRecompute bool
	pendingSince     time.Time

	// Now returns the current time; overridable for deterministic tests.
	Now func() time.Time

	Quitting            bool
	FullscreenRequested bool
}

// NewCore creates a viewport + input core for a window of the given size,
// with the viewport in its startup configuration.
func NewCore(windowWidth, windowHeight int) *Core {
	c := &Core{
		WindowWidth:  windowWidth,
		WindowHeight: windowHeight,
		Now:          time.Now,
	}
	c.resetViewport()
	return c
}

func (c *Core) resetViewport() {
	c.Viewport.CellSize = DefaultCellSize
	vx, _ := VisibleCells(c.WindowWidth, c.WindowHeight, c.Viewport.CellSize)
	c.Viewport.OffsetX = -float64(vx) / 2
	c.Viewport.OffsetY = 0
}

func (c *Core) markPending() {
	c.pendingRecompute = true
	c.pendingSince = c.Now()
}

// ShouldRecompute reports whether enough of debounce has elapsed since the
// last viewport-mutating event to invoke a recompute now.
func (c *Core) ShouldRecompute(debounce time.Duration) bool {
	if !c.pendingRecompute {
		return false
	}
	return c.Now().Sub(c.pendingSince) >= debounce
}

// ClearPending marks the pending recompute as handled.
func (c *Core) ClearPending() {
	c.pendingRecompute = false
}

// VisibleCellsNow returns the visible cell counts for the current window
// size and cell size.
func (c *Core) VisibleCellsNow() (vx, vy int) {
	return VisibleCells(c.WindowWidth, c.WindowHeight, c.Viewport.CellSize)
}

// SafeToCompute reports whether the current viewport satisfies the §4.7
// safety caps, along with the visible cell counts a recompute would use.
func (c *Core) SafeToCompute() (visibleCellsX, visibleCellsY int, ok bool) {
	vx, vy := c.VisibleCellsNow()
	return vx, vy, WithinSafetyLimits(vx, vy, c.Viewport.CellSize)
}

// Reset restores the startup viewport. Applying
// Reset twice in a row is idempotent since it derives purely from window
// size and the fixed default cell size, not from the viewport's prior state.
func (c *Core) Reset() {
	c.resetViewport()
	c.markPending()
}

// PointerDown begins a single-pointer drag at (x, y) in window pixels.
func (c *Core) PointerDown(x, y float64) {
	c.drag = dragState{active: true, startX: x, startY: y, viewportAtStart: c.Viewport}
}

// PointerMove applies pan while a drag is active; a no-op otherwise.
func (c *Core) PointerMove(x, y float64) {
	if !c.drag.active {
		return
	}
	c.Viewport = pan(c.drag.viewportAtStart, c.drag.startX, c.drag.startY, x, y)
	c.markPending()
}

// PointerUp ends the active drag, if any.
func (c *Core) PointerUp() {
	c.drag.active = false
}

// pan computes the viewport after a pointer move from (startX, startY) to
// (px, py), relative to viewportAtStart, converting the pixel delta to a
// cell delta via the viewport's cell size at the start of the drag.
func pan(viewportAtStart Viewport, startX, startY, px, py float64) Viewport {
	cs := float64(viewportAtStart.CellSize)
	if cs < 1 {
		cs = 1
	}
	return Viewport{
		OffsetX:  viewportAtStart.OffsetX - (px-startX)/cs,
		OffsetY:  clampOffsetY(viewportAtStart.OffsetY - (py-startY)/cs),
		CellSize: viewportAtStart.CellSize,
	}
}

// Scroll zooms one ladder step up (delta > 0) or down (delta < 0),
// anchored at (x, y) in window pixels.
func (c *Core) Scroll(delta, x, y float64) {
	if delta == 0 {
		return
	}
	var next int
	if delta > 0 {
		next = zoomladder.Next(c.Viewport.CellSize)
	} else {
		next = zoomladder.Prev(c.Viewport.CellSize)
	}
	if next == c.Viewport.CellSize {
		return
	}
	c.Viewport = zoomAt(c.Viewport, next, x, y)
	c.markPending()
}

func (c *Core) touchIndex(id int) int {
	for i, t := range c.touches {
		if t.id == id {
			return i
		}
	}
	return -1
}

// TouchDown registers a new touch. A single touch drives pan like a
// pointer; a second touch starts a pinch gesture anchored at the pair's
// midpoint.
func (c *Core) TouchDown(id int, x, y float64) {
	if c.touchIndex(id) >= 0 {
		return
	}
	c.touches = append(c.touches, touchPoint{id: id, x: x, y: y})

	switch len(c.touches) {
	case 1:
		c.drag = dragState{active: true, startX: x, startY: y, viewportAtStart: c.Viewport}
	case 2:
		c.drag.active = false
		a, b := c.touches[0], c.touches[1]
		c.pinch = pinchState{
			active:          true,
			ids:             [2]int{a.id, b.id},
			initialDistance: distance(a.x, a.y, b.x, b.y),
			initialCellSize: c.Viewport.CellSize,
		}
	default:
		// More than two simultaneous touches are ignored beyond pinch
		// tracking; only single- and two-touch gestures drive the viewport.
	}
}

// TouchMove updates a touch's position and applies pan or pinch-zoom.
func (c *Core) TouchMove(id int, x, y float64) {
	i := c.touchIndex(id)
	if i < 0 {
		return
	}
	c.touches[i].x, c.touches[i].y = x, y

	if c.pinch.active {
		a, b := c.touches[0], c.touches[1]
		midX, midY := (a.x+b.x)/2, (a.y+b.y)/2
		dist := distance(a.x, a.y, b.x, b.y)
		newCellSize := zoomNearest(c.pinch.initialCellSize, c.pinch.initialDistance, dist)
		c.Viewport = zoomAt(c.Viewport, newCellSize, midX, midY)
		c.markPending()
		return
	}
	if len(c.touches) == 1 && c.drag.active {
		c.Viewport = pan(c.drag.viewportAtStart, c.drag.startX, c.drag.startY, x, y)
		c.markPending()
	}
}

// TouchUp removes a touch, ending any pinch it participated in. If this
// leaves exactly one touch, a new single-touch drag begins from its
// current position.
func (c *Core) TouchUp(id int) {
	i := c.touchIndex(id)
	if i < 0 {
		return
	}
	c.touches = append(c.touches[:i], c.touches[i+1:]...)
	c.pinch.active = false

	if len(c.touches) == 1 {
		t := c.touches[0]
		c.drag = dragState{active: true, startX: t.x, startY: t.y, viewportAtStart: c.Viewport}
	} else {
		c.drag.active = false
	}
}

func distance(x1, y1, x2, y2 float64) float64 {
	dx, dy := x2-x1, y2-y1
	return math.Sqrt(dx*dx + dy*dy)
}

// Resize updates the window size. A DPI change keeps the viewport offsets
// untouched; an active drag anchors the opposite edge so the user sees
// content stay put on the anchored side; otherwise the top-left corner
// stays anchored.
func (c *Core) Resize(width, height int, dpiChange bool) {
	oldW, oldH := c.WindowWidth, c.WindowHeight
	c.WindowWidth, c.WindowHeight = width, height

	if dpiChange {
		c.markPending()
		return
	}

	if c.drag.active && oldW > 0 && oldH > 0 {
		oldVX, oldVY := VisibleCells(oldW, oldH, c.Viewport.CellSize)
		newVX, newVY := VisibleCells(width, height, c.Viewport.CellSize)
		rightWorld := c.Viewport.OffsetX + float64(oldVX)
		bottomWorld := c.Viewport.OffsetY + float64(oldVY)
		c.Viewport.OffsetX = rightWorld - float64(newVX)
		c.Viewport.OffsetY = clampOffsetY(bottomWorld - float64(newVY))
	}
	c.markPending()
}

// FullscreenToggle requests the windowing collaborator switch display
// modes; it does not itself change the viewport. The
// caller drains FullscreenRequested after acting on it.
func (c *Core) FullscreenToggle() {
	c.FullscreenRequested = !c.FullscreenRequested
}

// RequestQuit marks the input loop for termination.
func (c *Core) RequestQuit() {
	c.Quitting = true
}
