// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command cellwatch is a standalone demo front door for the cellwatch
// viewer: it opens its own Vulkan device (no host application involved),
// assembles a single frame for the requested rule and initial state, and
// reports what it computed. A host application embeds the viewport.App and
// internal/gpu/present.Renderer directly instead of shelling out to this
// binary; see render.DeviceHandle for that integration point.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/cellwatch"
	"github.com/gogpu/cellwatch/config"
	"github.com/gogpu/cellwatch/internal/assemble"
	"github.com/gogpu/cellwatch/internal/gpu/kernel"
	"github.com/gogpu/cellwatch/internal/gpu/present"
	"github.com/gogpu/cellwatch/internal/tilecache"
	"github.com/gogpu/cellwatch/render"
	"github.com/gogpu/cellwatch/viewport"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// errDrawTimeout reports that the GPU did not acknowledge the offscreen
// present frame within the wait bound.
var errDrawTimeout = fmt.Errorf("cellwatch: GPU timeout during present frame")

// standaloneDeviceHandle implements render.DeviceHandle over the bare
// Vulkan device kernel.Bootstrap opens when no host application hands
// cellwatch a shared one. It exposes the real hal.Device/hal.Queue through
// HalDevice/HalQueue, the bridge internal/gpu/present.New looks for; the
// narrow gpucontext accessors are never called on this path and return nil.
type standaloneDeviceHandle struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
}

func (standaloneDeviceHandle) Device() gpucontext.Device   { return nil }
func (standaloneDeviceHandle) Queue() gpucontext.Queue     { return nil }
func (standaloneDeviceHandle) Adapter() gpucontext.Adapter { return nil }
func (h standaloneDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return h.format
}
func (h standaloneDeviceHandle) HalDevice() any { return h.device }
func (h standaloneDeviceHandle) HalQueue() any  { return h.queue }

var _ render.DeviceHandle = standaloneDeviceHandle{}

func main() {
	cfg := config.Default()

	var (
		rule       = flag.Int("rule", cfg.Rule, "Wolfram elementary CA rule number, [0,255]")
		initial    = flag.String("initial-state", cfg.InitialState, "initial state as a string of 0/1 characters, empty for single center cell")
		width      = flag.Int("width", cfg.Width, "initial window width in pixels, [500,8192]")
		height     = flag.Int("height", cfg.Height, "initial window height in pixels, [500,8192]")
		debounceMS = flag.Int("debounce-ms", cfg.DebounceMS, "recompute debounce interval in milliseconds, [0,5000]")
		cacheTiles = flag.Int("cache-tiles", cfg.CacheTiles, "LRU tile cache capacity, [0,256], 0 disables caching")
		tileSize   = flag.Int("tile-size", cfg.TileSize, "tile side length in cells, [64,1024]")
		fullscreen = flag.Bool("fullscreen", cfg.Fullscreen, "start in fullscreen mode")
		verbose    = flag.Bool("verbose", false, "enable info-level logging")
	)
	flag.Parse()

	cfg.Rule = *rule
	cfg.InitialState = *initial
	cfg.Width = *width
	cfg.Height = *height
	cfg.DebounceMS = *debounceMS
	cfg.CacheTiles = *cacheTiles
	cfg.TileSize = *tileSize
	cfg.Fullscreen = *fullscreen

	if *verbose {
		cellwatch.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	}

	r, state, err := cfg.Validate()
	if err != nil {
		log.Fatalf("cellwatch: invalid configuration: %v", err)
	}

	standalone, err := kernel.Bootstrap()
	if err != nil {
		log.Fatalf("cellwatch: could not open a GPU device: %v", err)
	}
	defer standalone.Close()

	kd := kernel.New(standalone.Device, standalone.Queue)
	if err := kd.Init(); err != nil {
		log.Fatalf("cellwatch: could not initialize compute pipeline: %v", err)
	}
	defer kd.Close()

	handle := standaloneDeviceHandle{
		device: standalone.Device,
		queue:  standalone.Queue,
		format: gputypes.TextureFormatBGRA8Unorm,
	}
	renderer, err := present.New(handle)
	if err != nil {
		log.Fatalf("cellwatch: could not bind renderer to device: %v", err)
	}
	if err := renderer.Init(); err != nil {
		log.Fatalf("cellwatch: could not initialize present pipeline: %v", err)
	}
	defer renderer.Close()

	cache := tilecache.New(cfg.CacheTiles)

	app := viewport.NewApp(kd, cache, cfg.TileSize, renderer, r, state, cfg.Width, cfg.Height,
		time.Duration(cfg.DebounceMS)*time.Millisecond)
	if cfg.Fullscreen {
		app.Core.FullscreenToggle()
	}

	src := viewport.NewReplayEventSource(time.Now(), viewport.ResetEvent{})
	app.Core.Now = src.Now

	ctx := context.Background()
	if err := app.Step(ctx, src); err != nil {
		log.Fatalf("cellwatch: initial recompute failed: %v", err)
	}
	if app.CurrentOutput() == nil {
		src.Advance(time.Duration(cfg.DebounceMS+1) * time.Millisecond)
		if err := app.Step(ctx, src); err != nil {
			log.Fatalf("cellwatch: initial recompute failed: %v", err)
		}
	}

	out := app.CurrentOutput()
	if out == nil {
		log.Fatalf("cellwatch: no frame was assembled")
	}
	defer out.Release()

	log.Printf("cellwatch: assembled rule=%d window=%dx%d sim_width=%d height=%d padding_left=%d offset=(%d,%d)",
		r, cfg.Width, cfg.Height, out.SimWidth, out.Height, out.PaddingLeft, out.OffsetX, out.OffsetY)

	if err := drawOffscreenFrame(standalone.Device, standalone.Queue, renderer, out, cfg.Width, cfg.Height); err != nil {
		log.Fatalf("cellwatch: draw failed: %v", err)
	}
	log.Printf("cellwatch: drew one frame to an offscreen %dx%d target", cfg.Width, cfg.Height)
}

// drawOffscreenFrame renders one frame of out into a throwaway offscreen
// color target, the same render pass shape a host window surface would
// present, to prove the present pipeline is live end to end. There is no
// window here to show the result; only a host application's DeviceHandle
// carries a real swapchain surface view for Renderer.Draw to target.
func drawOffscreenFrame(device hal.Device, queue hal.Queue, renderer *present.Renderer, out *assemble.Output, width, height int) error {
	target, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "cellwatch_offscreen_target",
		Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return err
	}
	defer device.DestroyTexture(target)

	view, err := device.CreateTextureView(target, &hal.TextureViewDescriptor{Label: "cellwatch_offscreen_target_view"})
	if err != nil {
		return err
	}
	defer device.DestroyTextureView(view)

	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "cellwatch_offscreen_frame"})
	if err != nil {
		return err
	}
	if err := encoder.BeginEncoding("cellwatch_offscreen_frame"); err != nil {
		return err
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "cellwatch_present_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	if err := renderer.Draw(rp, out.Buffer); err != nil {
		rp.End()
		return err
	}
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return err
	}
	defer device.FreeCommandBuffer(cmdBuf)

	fence, err := device.CreateFence()
	if err != nil {
		return err
	}
	defer device.DestroyFence(fence)

	if err := queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return err
	}
	ok, err := device.Wait(fence, 1, 5*time.Second)
	if err != nil {
		return err
	}
	if !ok {
		return errDrawTimeout
	}
	return nil
}
