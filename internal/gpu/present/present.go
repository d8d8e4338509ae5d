// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Package present implements the renderer: a fixed
// full-screen-quad render pipeline whose fragment shader samples the
// assembled cell buffer directly as a storage binding, with no CPU
// readback at any point.
package present

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/gogpu/cellwatch/render"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/present.wgsl
var presentShaderSource string

// uniformSize is the byte size of the renderer's uniform block: twelve
// 32-bit fields, 48 bytes, all little-endian.
const uniformSize = 48

// Uniform mirrors the WGSL Uniforms struct field-for-field; field order and
// sizes are load-bearing since the fragment shader reads them by offset.
type Uniform struct {
	VisibleWidth    uint32
	VisibleHeight   uint32
	SimulatedWidth  uint32
	PaddingLeft     uint32
	CellSize        uint32
	WindowWidth     uint32
	WindowHeight    uint32
	ViewportOffsetX int32
	ViewportOffsetY int32
	BufferOffsetX   int32
	BufferOffsetY   int32
}

func (u Uniform) toBytes() []byte {
	buf := make([]byte, uniformSize)
	binary.LittleEndian.PutUint32(buf[0:4], u.VisibleWidth)
	binary.LittleEndian.PutUint32(buf[4:8], u.VisibleHeight)
	binary.LittleEndian.PutUint32(buf[8:12], u.SimulatedWidth)
	binary.LittleEndian.PutUint32(buf[12:16], u.PaddingLeft)
	binary.LittleEndian.PutUint32(buf[16:20], u.CellSize)
	binary.LittleEndian.PutUint32(buf[20:24], u.WindowWidth)
	binary.LittleEndian.PutUint32(buf[24:28], u.WindowHeight)
	binary.LittleEndian.PutUint32(buf[28:32], uint32(u.ViewportOffsetX))
	binary.LittleEndian.PutUint32(buf[32:36], uint32(u.ViewportOffsetY))
	binary.LittleEndian.PutUint32(buf[36:40], uint32(u.BufferOffsetX))
	binary.LittleEndian.PutUint32(buf[40:44], uint32(u.BufferOffsetY))
	// Bytes 44:48 are the trailing _padding field; left zero.
	return buf
}

// ErrNoDevice mirrors kernel.ErrDeviceUnavailable for the renderer's own
// device-unavailable failure mode.
var ErrNoDevice = fmt.Errorf("present: GPU device unavailable")

// Renderer draws the assembled buffer to the window surface. It owns a
// persistent uniform buffer, rewritten every frame, and a bind group
// rebuilt only when the assembled buffer it points at changes (every
// recompute produces a newly allocated assembled buffer).
type Renderer struct {
	device        hal.Device
	queue         hal.Queue
	surfaceFormat gputypes.TextureFormat

	shader   hal.ShaderModule
	bgLayout hal.BindGroupLayout
	pLayout  hal.PipelineLayout
	pipeline hal.RenderPipeline

	uniformBuf hal.Buffer
	bindGroup  hal.BindGroup
	boundCells hal.Buffer

	initialized bool
}

// halProvider is satisfied by a render.DeviceHandle that also exposes its
// underlying HAL device and queue directly, rather than through
// gpucontext's narrow Device/Queue interfaces (which cover only Poll and
// Destroy, nowhere near what a render pipeline needs). Every DeviceHandle
// cellwatch actually drives, host-provided or the standalone bootstrap's
// own wrapper, implements this.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// New creates a renderer bound to handle's device, queue, and surface
// format. It must be initialized with Init before Draw can be called.
func New(handle render.DeviceHandle) (*Renderer, error) {
	hp, ok := handle.(halProvider)
	if !ok {
		return nil, fmt.Errorf("present: device handle does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("present: HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("present: HalQueue is not hal.Queue")
	}
	return &Renderer{
		device:        device,
		queue:         queue,
		surfaceFormat: handle.SurfaceFormat(),
	}, nil
}

// Init compiles the present shader, builds the render pipeline, and
// allocates the persistent uniform buffer. Safe to call multiple times.
func (r *Renderer) Init() error {
	if r.initialized {
		return nil
	}
	if r.device == nil || r.queue == nil {
		return ErrNoDevice
	}

	shader, err := r.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "cellwatch_present",
		Source: hal.ShaderSource{WGSL: presentShaderSource},
	})
	if err != nil {
		return fmt.Errorf("present: compile shader: %w", err)
	}
	r.shader = shader

	bgLayout, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "cellwatch_present_bgl",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
		},
	})
	if err != nil {
		r.device.DestroyShaderModule(shader)
		r.shader = nil
		return fmt.Errorf("present: create bind group layout: %w", err)
	}
	r.bgLayout = bgLayout

	pLayout, err := r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "cellwatch_present_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
	})
	if err != nil {
		r.device.DestroyBindGroupLayout(bgLayout)
		r.device.DestroyShaderModule(shader)
		r.bgLayout = nil
		r.shader = nil
		return fmt.Errorf("present: create pipeline layout: %w", err)
	}
	r.pLayout = pLayout

	pipeline, err := r.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "cellwatch_present",
		Layout: pLayout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    r.surfaceFormat,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		r.device.DestroyPipelineLayout(pLayout)
		r.device.DestroyBindGroupLayout(bgLayout)
		r.device.DestroyShaderModule(shader)
		r.pLayout = nil
		r.bgLayout = nil
		r.shader = nil
		return fmt.Errorf("present: create render pipeline: %w", err)
	}
	r.pipeline = pipeline

	uniformBuf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "cellwatch_present_uniform",
		Size:  uniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		r.device.DestroyRenderPipeline(pipeline)
		r.device.DestroyPipelineLayout(pLayout)
		r.device.DestroyBindGroupLayout(bgLayout)
		r.device.DestroyShaderModule(shader)
		r.pipeline = nil
		r.pLayout = nil
		r.bgLayout = nil
		r.shader = nil
		return fmt.Errorf("present: allocate uniform buffer: %w", err)
	}
	r.uniformBuf = uniformBuf

	r.initialized = true
	return nil
}

// Close releases all GPU resources held by the renderer.
func (r *Renderer) Close() {
	if r.bindGroup != nil {
		r.device.DestroyBindGroup(r.bindGroup)
		r.bindGroup = nil
	}
	if r.uniformBuf != nil {
		r.device.DestroyBuffer(r.uniformBuf)
		r.uniformBuf = nil
	}
	if r.pipeline != nil {
		r.device.DestroyRenderPipeline(r.pipeline)
		r.pipeline = nil
	}
	if r.pLayout != nil {
		r.device.DestroyPipelineLayout(r.pLayout)
		r.pLayout = nil
	}
	if r.bgLayout != nil {
		r.device.DestroyBindGroupLayout(r.bgLayout)
		r.bgLayout = nil
	}
	if r.shader != nil {
		r.device.DestroyShaderModule(r.shader)
		r.shader = nil
	}
	r.boundCells = nil
	r.initialized = false
}

// WriteUniform uploads u to the persistent uniform buffer. Callers write
// this on every rendered frame (throttled to roughly 16 ms between
// updates), and again immediately after a recompute so
// the new buffer is framed correctly on its first presentation.
func (r *Renderer) WriteUniform(u Uniform) {
	r.queue.WriteBuffer(r.uniformBuf, 0, u.toBytes())
}

// bindCells (re)creates the bind group only when cells differs from the
// buffer currently bound, since the assembled buffer is reallocated on
// each recompute but reused frame to frame in between.
func (r *Renderer) bindCells(cells hal.Buffer) error {
	if cells == r.boundCells && r.bindGroup != nil {
		return nil
	}
	bg, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "cellwatch_present_bg",
		Layout: r.bgLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Buffer: r.uniformBuf},
			{Binding: 1, Buffer: cells},
		},
	})
	if err != nil {
		return fmt.Errorf("present: create bind group: %w", err)
	}
	if r.bindGroup != nil {
		r.device.DestroyBindGroup(r.bindGroup)
	}
	r.bindGroup = bg
	r.boundCells = cells
	return nil
}

// Draw records the full-screen-quad draw sampling cells into rp, an
// already-open render pass owned by the caller's frame loop.
func (r *Renderer) Draw(rp hal.RenderPassEncoder, cells hal.Buffer) error {
	if !r.initialized {
		return ErrNoDevice
	}
	if err := r.bindCells(cells); err != nil {
		return err
	}
	rp.SetPipeline(r.pipeline)
	rp.SetBindGroup(0, r.bindGroup, nil)
	rp.Draw(6, 1, 0, 0)
	return nil
}
