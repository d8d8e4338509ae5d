// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Package assemble implements the assembler: it covers a
// viewport's visible rectangle with tiles, fetching each from the tile
// cache (computing and inserting on a miss), and blits each tile's
// intersection with the viewport into a single output buffer the renderer
// can bind directly.
package assemble

import (
	"context"
	"fmt"
	"time"

	"github.com/gogpu/cellwatch/ca"
	"github.com/gogpu/cellwatch/internal/gpu/kernel"
	"github.com/gogpu/cellwatch/internal/tile"
	"github.com/gogpu/cellwatch/internal/tilecache"
	"github.com/gogpu/cellwatch/tilekey"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// blitWaitTimeout bounds how long an assembler blit waits for the device,
// mirroring the kernel and tile packages' own dispatch fence timeouts.
const blitWaitTimeout = 5 * time.Second

// Output is the assembled device buffer describing a viewport's visible
// rectangle, in the same padded row-major convention as tile.Payload.
type Output struct {
	Buffer      hal.Buffer
	device      tile.Destroyer
	PaddingLeft int64
	SimWidth    int64 // SW_out
	Height      int64 // output_height
	OffsetX     int64 // ox the buffer was computed for
	OffsetY     int64 // oy the buffer was computed for
}

// Release destroys the output buffer's backing GPU allocation. Safe to
// call on a nil Output or one already released.
func (o *Output) Release() {
	if o == nil || o.Buffer == nil {
		return
	}
	o.device.DestroyBuffer(o.Buffer)
	o.Buffer = nil
}

// Assembler owns the tile cache and drives tile computation through the
// compute kernel driver. It is touched only from the single CPU control
// thread; no internal locking is used or needed.
type Assembler struct {
	kd       *kernel.Dispatcher
	cache    *tilecache.Cache
	tileSide int
}

// New creates an assembler over kd using cache for tile reuse, with tiles
// of side tileSide cells.
func New(kd *kernel.Dispatcher, cache *tilecache.Cache, tileSide int) *Assembler {
	return &Assembler{kd: kd, cache: cache, tileSide: tileSide}
}

// floorDiv computes Euclidean floor division, so that negative tx/ty map
// correctly to tile coordinates.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// coveringTileRange computes the inclusive range of tile coordinates
// [txLo,txHi] x [tyLo,tyHi] of side tileSide whose world rectangles
// together cover x ∈ [ox, ox+vx), y ∈ [oy, oy+vy).5 step 2.
func coveringTileRange(ox, oy, vx, vy, tileSide int64) (txLo, txHi, tyLo, tyHi int64) {
	txLo = floorDiv(ox, tileSide)
	txHi = floorDiv(ox+vx-1, tileSide)
	tyLo = floorDiv(oy, tileSide)
	tyHi = floorDiv(oy+vy-1, tileSide)
	return
}

// Assemble computes the assembled output buffer for the world rectangle
// x ∈ [ox, ox+visibleCellsX), y ∈ [oy, oy+visibleCellsY), where
// ox = floor(offsetX) and oy = floor(max(0, offsetY)).5.
//
// stateHash must be the precomputed fingerprint of state (ca.State.Fingerprint),
// carried by the caller so tile keys stay O(1) to construct.
func (a *Assembler) Assemble(ctx context.Context, r ca.Rule, state ca.State, stateHash uint64, offsetX, offsetY float64, visibleCellsX, visibleCellsY int) (*Output, error) {
	if visibleCellsX <= 0 || visibleCellsY <= 0 {
		return nil, fmt.Errorf("assemble: non-positive viewport size %dx%d", visibleCellsX, visibleCellsY)
	}

	oy := offsetY
	if oy < 0 {
		oy = 0
	}
	ox := floorFloat(offsetX)
	oyi := floorFloat(oy)

	vx := int64(visibleCellsX)
	vy := int64(visibleCellsY)

	outPaddingLeft := oyi + vy
	if outPaddingLeft < 0 {
		outPaddingLeft = 0
	}
	simWidthOut := vx + 2*outPaddingLeft
	heightOut := vy + 1

	device := a.kd.Device()
	size := uint64(simWidthOut) * uint64(heightOut) * 4
	if size < 4 {
		size = 4
	}
	dst, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "cellwatch_assembled",
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("assemble: allocate output buffer: %w", err)
	}
	a.kd.Queue().WriteBuffer(dst, 0, make([]byte, size))

	txLo, txHi, tyLo, tyHi := coveringTileRange(ox, oyi, vx, vy, int64(a.tileSide))

	var copies []hal.BufferCopy
	for ty := tyLo; ty <= tyHi; ty++ {
		for tx := txLo; tx <= txHi; tx++ {
			payload, release, err := a.fetchTile(ctx, r, state, stateHash, tx, ty)
			if err != nil {
				device.DestroyBuffer(dst)
				return nil, err
			}

			rowLo := maxI64(ty*int64(a.tileSide), oyi)
			rowHi := minI64((ty+1)*int64(a.tileSide), oyi+vy)
			colLo := maxI64(tx*int64(a.tileSide), ox)
			colHi := minI64((tx+1)*int64(a.tileSide), ox+vx)
			if rowLo >= rowHi || colLo >= colHi {
				if release {
					payload.Release()
				}
				continue
			}
			runLen := uint64(colHi-colLo) * 4

			for y := rowLo; y < rowHi; y++ {
				srcRow := y - ty*int64(a.tileSide)
				srcCol := (colLo - tx*int64(a.tileSide)) + payload.PaddingLeft
				srcOffset := uint64(srcRow*payload.Width+srcCol) * 4

				dstRow := y - oyi
				dstCol := (colLo - ox) + outPaddingLeft
				dstOffset := uint64(dstRow*simWidthOut+dstCol) * 4

				copies = append(copies, hal.BufferCopy{SrcOffset: srcOffset, DstOffset: dstOffset, Size: runLen})
			}

			if err := a.blit(payload.Buffer, dst, copies); err != nil {
				device.DestroyBuffer(dst)
				if release {
					payload.Release()
				}
				return nil, err
			}
			copies = copies[:0]

			if release {
				payload.Release()
			}
		}
	}

	return &Output{
		Buffer:      dst,
		device:      device,
		PaddingLeft: outPaddingLeft,
		SimWidth:    simWidthOut,
		Height:      heightOut,
		OffsetX:     ox,
		OffsetY:     oyi,
	}, nil
}

// fetchTile returns the payload for tile (tx, ty), fetching it from the
// cache on a hit, or computing and inserting on a miss. If caching is
// disabled (capacity 0) it computes without inserting and reports that the
// caller must release the tile itself after use.
func (a *Assembler) fetchTile(ctx context.Context, r ca.Rule, state ca.State, stateHash uint64, tx, ty int64) (payload *tile.Payload, callerOwns bool, err error) {
	if ty < 0 {
		return nil, false, tile.ErrGeometryOverflow
	}
	key := tilekey.Key{Rule: r, StateHash: stateHash, TX: int32(tx), TY: int32(ty)}

	if p, ok := a.cache.Get(key); ok {
		return p, false, nil
	}

	p, err := tile.Compute(ctx, a.kd, r, state, int32(tx), int32(ty), a.tileSide)
	if err != nil {
		return nil, false, err
	}

	if a.cache.Capacity() == 0 {
		return p, true, nil
	}
	a.cache.Insert(key, p)
	return p, false, nil
}

// blit encodes and submits the given buffer copies in a single command
// buffer, then blocks until the device acknowledges completion.
func (a *Assembler) blit(src, dst hal.Buffer, copies []hal.BufferCopy) error {
	if len(copies) == 0 {
		return nil
	}
	device := a.kd.Device()
	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "cellwatch_assemble_blit"})
	if err != nil {
		return fmt.Errorf("assemble: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("cellwatch_assemble_blit"); err != nil {
		return fmt.Errorf("assemble: begin encoding: %w", err)
	}

	encoder.CopyBufferToBuffer(src, dst, copies)

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("assemble: end encoding: %w", err)
	}
	defer device.FreeCommandBuffer(cmdBuf)

	fence, err := device.CreateFence()
	if err != nil {
		return fmt.Errorf("assemble: create fence: %w", err)
	}
	defer device.DestroyFence(fence)

	queue := a.kd.Queue()
	if err := queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("assemble: submit: %w", err)
	}
	ok, err := device.Wait(fence, 1, blitWaitTimeout)
	if err != nil {
		return fmt.Errorf("assemble: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("assemble: GPU timeout during blit")
	}
	return nil
}

// DirectAssemble implements the alternative direct mode: when caching is
// disabled, a single region computation sized exactly for the viewport
// produces bit-identical output to the tiled path, without ever touching
// the cache. It shares tile package's region geometry so the two paths
// cannot drift apart.
func (a *Assembler) DirectAssemble(ctx context.Context, r ca.Rule, state ca.State, offsetX, offsetY float64, visibleCellsX, visibleCellsY int) (*Output, error) {
	if visibleCellsX <= 0 || visibleCellsY <= 0 {
		return nil, fmt.Errorf("assemble: non-positive viewport size %dx%d", visibleCellsX, visibleCellsY)
	}
	oy := offsetY
	if oy < 0 {
		oy = 0
	}
	ox := floorFloat(offsetX)
	oyi := floorFloat(oy)

	g, err := tile.ComputeRegionGeometry(ox, oyi, int64(visibleCellsX), int64(visibleCellsY))
	if err != nil {
		return nil, err
	}

	p, err := tile.ComputeRegion(ctx, a.kd, r, state, g)
	if err != nil {
		return nil, err
	}

	return &Output{
		Buffer:      p.Buffer,
		device:      a.kd.Device(),
		PaddingLeft: p.PaddingLeft,
		SimWidth:    p.Width,
		Height:      p.Height,
		OffsetX:     ox,
		OffsetY:     oyi,
	}, nil
}

func floorFloat(v float64) int64 {
	n := int64(v)
	if v < 0 && float64(n) != v {
		n--
	}
	return n
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
