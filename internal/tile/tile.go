// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Package tile implements the tile computer: it produces a
// single T×T (configurable) tile covering a fixed region of the plane by
// running the compute kernel with padding sufficient for every cell in the
// tile to have valid neighbor history back to generation 0.
//
// The same geometry and region-computation machinery is reused, unaligned
// to any tile grid, by internal/assemble's direct-mode fallback, so that
// both paths share one source of truth for correctness.
package tile

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/cellwatch/ca"
	"github.com/gogpu/cellwatch/internal/gpu/kernel"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// kernelWaitTimeout bounds how long a region extraction copy waits for the
// device, mirroring the kernel package's own dispatch fence timeout.
const kernelWaitTimeout = 5 * time.Second

// ErrGeometryOverflow is returned when a region's coordinates would
// overflow 32-bit signed arithmetic, or when the generation range starts
// below 0 (generations are non-negative, so a negative starting generation
// is treated as a fatal configuration error rather than silently clamped).
var ErrGeometryOverflow = fmt.Errorf("tile: geometry overflow")

// Destroyer is the minimal device surface Payload needs to release its
// buffer. hal.Device satisfies it; tests elsewhere in the module (e.g.
// internal/tilecache) can supply a lightweight fake to construct payloads
// without a real GPU device.
type Destroyer interface {
	DestroyBuffer(hal.Buffer)
}

// Payload is a device-resident region buffer: an SW×H row-major array of
// 32-bit cells, where SW (stored in Width) = coreWidth + 2*PaddingLeft
// (padding is symmetric).
// Column c in [PaddingLeft, PaddingLeft+coreWidth) of the payload
// corresponds to a specific world column, per whichever caller produced it
// (tile.Compute for tile-aligned regions, assemble for the viewport's
// direct-mode region); both share this same padded-buffer convention so
// the renderer never needs to know which path produced a buffer.
type Payload struct {
	Buffer      hal.Buffer
	device      Destroyer
	PaddingLeft int64
	Width       int64 // SW: payload row width in cells
	Height      int64 // number of rows
}

// NewPayload constructs a Payload directly from a buffer and its owning
// device. Used internally by Compute and by tests that need a Payload
// without running a real tile computation.
func NewPayload(buf hal.Buffer, device Destroyer, paddingLeft, width, height int64) *Payload {
	return &Payload{Buffer: buf, device: device, PaddingLeft: paddingLeft, Width: width, Height: height}
}

// Release destroys the backing GPU buffer. Safe to call on a nil Payload
// or one already released. Invariant 3 (data model) requires every tile's
// buffer be released before its key leaves the cache, which is exactly
// what tilecache.Cache's eviction (evictOldest) does by calling Release
// before deleting the map entry.
func (p *Payload) Release() {
	if p == nil || p.Buffer == nil {
		return
	}
	p.device.DestroyBuffer(p.Buffer)
	p.Buffer = nil
}

// Geometry holds the derived padding and buffer dimensions for a world
// region [x0, x0+width) x [y0, y0+height) of generations.
type Geometry struct {
	X0, Y0        int64
	Width, Height int64
	GenerationEnd int64 // y0 + height (exclusive top generation)
	Padding       int64 // P = max(0, GenerationEnd)
	SimWidth      int64 // SW = Width + 2P
	BufferHeight  int64 // BH = GenerationEnd + 1
	SeedShift     int64 // P - x0: index of world column 0 in the seed row
}

// ComputeRegionGeometry derives the padding and buffer dimensions needed to
// correctly compute every cell in the world region [x0, x0+width) rows
// [y0, y0+height): every cell's rule evaluation depends on a triangular
// cone of ancestor cells reaching back to generation 0, so the seed row
// must be padded wide enough on both sides for the deepest generation in
// the region to still see valid history. Returns ErrGeometryOverflow if
// y0 < 0 or if any derived quantity would overflow a 32-bit signed integer.
func ComputeRegionGeometry(x0, y0, width, height int64) (Geometry, error) {
	if y0 < 0 {
		return Geometry{}, ErrGeometryOverflow
	}
	if width <= 0 || height <= 0 {
		return Geometry{}, ErrGeometryOverflow
	}

	generationEnd := y0 + height
	if generationEnd > math.MaxInt32 {
		return Geometry{}, ErrGeometryOverflow
	}
	padding := generationEnd
	if padding < 0 {
		padding = 0
	}
	simWidth := width + 2*padding
	bufferHeight := generationEnd + 1
	if simWidth > math.MaxInt32 || bufferHeight > math.MaxInt32 {
		return Geometry{}, ErrGeometryOverflow
	}
	if x0 > math.MaxInt32 || x0 < math.MinInt32 {
		return Geometry{}, ErrGeometryOverflow
	}
	seedShift := padding - x0

	return Geometry{
		X0:            x0,
		Y0:            y0,
		Width:         width,
		Height:        height,
		GenerationEnd: generationEnd,
		Padding:       padding,
		SimWidth:      simWidth,
		BufferHeight:  bufferHeight,
		SeedShift:     seedShift,
	}, nil
}

// ComputeGeometry derives the geometry for tile (tx, ty) of side T: the
// region [tx*T, (tx+1)*T) x [ty*T, (ty+1)*T).
func ComputeGeometry(tx, ty int32, tileSide int) (Geometry, error) {
	if ty < 0 {
		return Geometry{}, ErrGeometryOverflow
	}
	t := int64(tileSide)
	return ComputeRegionGeometry(int64(tx)*t, int64(ty)*t, t, t)
}

// BuildSeedRow materializes the SW-wide generation-0 seed row for the given
// geometry and initial state, ready to hand to the compute kernel.
func BuildSeedRow(g Geometry, state ca.State) []uint32 {
	seed := make([]uint32, g.SimWidth)
	for i := int64(0); i < g.SimWidth; i++ {
		worldCol := i - g.SeedShift
		seed[i] = uint32(state.At(worldCol))
	}
	return seed
}

// ComputeRegion runs the compute kernel over the padded geometry for an
// arbitrary world region and extracts exactly that region's rows into a
// new, smaller device buffer. The oversized history buffer is discarded.
// This is the shared implementation behind both Compute (tile-aligned) and
// the assembler's direct-mode fallback (viewport-aligned).
func ComputeRegion(ctx context.Context, kd *kernel.Dispatcher, r ca.Rule, state ca.State, g Geometry) (*Payload, error) {
	seed := BuildSeedRow(g, state)

	history, err := kd.Run(ctx, seed, uint32(g.SimWidth), uint32(g.BufferHeight), r)
	if err != nil {
		return nil, fmt.Errorf("tile: compute history: %w", err)
	}

	device := kd.Device()
	byteWidth := g.SimWidth * 4
	srcOffset := uint64(g.Y0 * byteWidth)
	size := uint64(g.Height * byteWidth)

	dst, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "cellwatch_region",
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		device.DestroyBuffer(history)
		return nil, fmt.Errorf("tile: allocate region buffer: %w", err)
	}

	if err := copyRows(kd, history, dst, srcOffset, size); err != nil {
		device.DestroyBuffer(history)
		device.DestroyBuffer(dst)
		return nil, err
	}

	device.DestroyBuffer(history)

	return NewPayload(dst, device, g.Padding, g.SimWidth, g.Height), nil
}

// Compute produces a tile payload for (tx, ty) under (rule, state), by
// invoking the compute kernel over the padded simulated width and history
// depth, then extracting the T rows belonging to this tile's generation
// range into a new, smaller device buffer. The oversized history buffer is
// discarded.
func Compute(ctx context.Context, kd *kernel.Dispatcher, r ca.Rule, state ca.State, tx, ty int32, tileSide int) (*Payload, error) {
	g, err := ComputeGeometry(tx, ty, tileSide)
	if err != nil {
		return nil, err
	}
	return ComputeRegion(ctx, kd, r, state, g)
}

// copyRows issues a device-to-device buffer copy of size bytes starting at
// srcOffset in src into dst at offset 0, and blocks until it completes.
func copyRows(kd *kernel.Dispatcher, src, dst hal.Buffer, srcOffset, size uint64) error {
	device := kd.Device()
	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "cellwatch_region_extract"})
	if err != nil {
		return fmt.Errorf("tile: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("cellwatch_region_extract"); err != nil {
		return fmt.Errorf("tile: begin encoding: %w", err)
	}

	encoder.CopyBufferToBuffer(src, dst, []hal.BufferCopy{
		{SrcOffset: srcOffset, DstOffset: 0, Size: size},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("tile: end encoding: %w", err)
	}
	defer device.FreeCommandBuffer(cmdBuf)

	fence, err := device.CreateFence()
	if err != nil {
		return fmt.Errorf("tile: create fence: %w", err)
	}
	defer device.DestroyFence(fence)

	queue := kd.Queue()
	if err := queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("tile: submit: %w", err)
	}
	ok, err := device.Wait(fence, 1, kernelWaitTimeout)
	if err != nil {
		return fmt.Errorf("tile: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("tile: GPU timeout extracting region rows")
	}
	return nil
}
