// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package viewport implements the viewport and input core:
// a single continuous-attribute state machine driving pan, zoom, resize,
// and reset, plus the debounced recompute loop that ties the viewport to
// the assembler.
package viewport

import (
	"github.com/gogpu/cellwatch/viewport/zoomladder"
)

// Viewport is the screen-to-world mapping: the top-left pixel
// maps to world cell (OffsetX, OffsetY), CellSize pixels per cell in both
// axes. OffsetY is always clamped to >= 0 since the CA has no history
// before generation 0.
type Viewport struct {
	OffsetX  float64
	OffsetY  float64
	CellSize int
}

// DefaultCellSize is the viewport's cell size at startup and after reset.
const DefaultCellSize = 10

// Safety caps on compute requests: a viewport implying a
// recompute outside these bounds is rejected, logged, and the previous
// frame is kept.
const (
	MaxVisibleCellsX   = 5000
	MaxVisibleCellsY   = 5000
	MinComputeCellSize = 2
	MaxComputeCells    = 10_000_000
)

func clampOffsetY(y float64) float64 {
	if y < 0 {
		return 0
	}
	return y
}

// VisibleCells returns the integer cell counts needed to cover a window of
// windowWidth x windowHeight pixels at the given cell size.
func VisibleCells(windowWidth, windowHeight, cellSize int) (vx, vy int) {
	if cellSize < 1 {
		cellSize = 1
	}
	vx = ceilDiv(windowWidth, cellSize)
	vy = ceilDiv(windowHeight, cellSize)
	return
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// WithinSafetyLimits reports whether a compute request for a viewport of
// the given visible cell counts and cell size satisfies the §4.7 caps.
func WithinSafetyLimits(visibleCellsX, visibleCellsY, cellSize int) bool {
	if visibleCellsX > MaxVisibleCellsX || visibleCellsY > MaxVisibleCellsY {
		return false
	}
	if cellSize < MinComputeCellSize {
		return false
	}
	if visibleCellsX*visibleCellsY*3 > MaxComputeCells {
		return false
	}
	return true
}

// zoomAt computes the new viewport after a zoom step to newCellSize
// anchored at pixel (ax, ay), preserving the world coordinate under the
// anchor.
func zoomAt(v Viewport, newCellSize int, ax, ay float64) Viewport {
	oldCS := float64(v.CellSize)
	if oldCS < 1 {
		oldCS = 1
	}
	wx := v.OffsetX + ax/oldCS
	wy := v.OffsetY + ay/oldCS

	newCS := float64(newCellSize)
	if newCS < 1 {
		newCS = 1
	}
	return Viewport{
		OffsetX:  wx - ax/newCS,
		OffsetY:  clampOffsetY(wy - ay/newCS),
		CellSize: newCellSize,
	}
}

// zoomNearest is the pinch-zoom continuous target, snapped to the ladder
// entry with minimum absolute difference.
func zoomNearest(initialCellSize int, initialDistance, currentDistance float64) int {
	if initialDistance <= 0 {
		return initialCellSize
	}
	target := float64(initialCellSize) * (currentDistance / initialDistance)
	return zoomladder.Nearest(target)
}
