// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Package kernel is the compute kernel driver: it owns a
// transient GPU buffer, seeds its first row, and advances the rule
// evaluator one generation at a time, batching dispatches between
// device-side synchronization points to bound command-queue depth.
package kernel

import (
	"context"
	_ "embed"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/gogpu/cellwatch/ca"
	"github.com/gogpu/cellwatch/internal/rule"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/step.wgsl
var stepShaderTemplate string

const (
	// workgroupSize is the WGSL @workgroup_size(256) used by step.wgsl.
	workgroupSize = 256

	// batchSize is the number of generations encoded into a single command
	// buffer before a device synchronization point.2
	// ("batched in groups of up to 32").
	batchSize = 32

	// fenceTimeout bounds how long Run waits for a batch to complete.
	fenceTimeout = 5 * time.Second

	// configSize is the byte size of the step shader's uniform Config
	// struct: width, rule, row_in, row_out, each a u32.
	configSize = 16
)

// ErrDeviceUnavailable is returned when the GPU device does not support
// the required compute and storage features, or no device has been
// provided to the dispatcher.
var ErrDeviceUnavailable = fmt.Errorf("kernel: GPU device unavailable")

// Dispatcher owns the compiled step pipeline and drives generation-by-
// generation evaluation on a device-resident buffer.
type Dispatcher struct {
	device hal.Device
	queue  hal.Queue

	shader   hal.ShaderModule
	bgLayout hal.BindGroupLayout
	pLayout  hal.PipelineLayout
	pipeline hal.ComputePipeline

	initialized bool
}

// New creates a dispatcher bound to a device and queue. It must be
// initialized with Init before Run can be called.
func New(device hal.Device, queue hal.Queue) *Dispatcher {
	return &Dispatcher{device: device, queue: queue}
}

// Device returns the HAL device this dispatcher is bound to, for use by
// sibling packages (internal/tile) that extract tile buffers via a direct
// device-to-device copy instead of the rule evaluator.
func (d *Dispatcher) Device() hal.Device { return d.device }

// Queue returns the HAL queue this dispatcher is bound to.
func (d *Dispatcher) Queue() hal.Queue { return d.queue }

// Init compiles the step shader and builds the compute pipeline. Safe to
// call multiple times; later calls are no-ops once initialized.
func (d *Dispatcher) Init() error {
	if d.initialized {
		return nil
	}
	if d.device == nil || d.queue == nil {
		return ErrDeviceUnavailable
	}

	src := strings.Replace(stepShaderTemplate, "__CA_RULE_SOURCE__", rule.Source, 1)

	shader, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "cellwatch_step",
		Source: hal.ShaderSource{WGSL: src},
	})
	if err != nil {
		return fmt.Errorf("kernel: compile step shader: %w", err)
	}
	d.shader = shader

	bgLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "cellwatch_step_bgl",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
			},
		},
	})
	if err != nil {
		d.device.DestroyShaderModule(shader)
		d.shader = nil
		return fmt.Errorf("kernel: create bind group layout: %w", err)
	}
	d.bgLayout = bgLayout

	pLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "cellwatch_step_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
	})
	if err != nil {
		d.device.DestroyBindGroupLayout(bgLayout)
		d.device.DestroyShaderModule(shader)
		d.bgLayout = nil
		d.shader = nil
		return fmt.Errorf("kernel: create pipeline layout: %w", err)
	}
	d.pLayout = pLayout

	pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "cellwatch_step",
		Layout: pLayout,
		Compute: hal.ComputeState{
			Module:     shader,
			EntryPoint: "main",
		},
	})
	if err != nil {
		d.device.DestroyPipelineLayout(pLayout)
		d.device.DestroyBindGroupLayout(bgLayout)
		d.device.DestroyShaderModule(shader)
		d.pLayout = nil
		d.bgLayout = nil
		d.shader = nil
		return fmt.Errorf("kernel: create compute pipeline: %w", err)
	}
	d.pipeline = pipeline

	d.initialized = true
	return nil
}

// Close releases all GPU resources held by the dispatcher.
func (d *Dispatcher) Close() {
	if d.pipeline != nil {
		d.device.DestroyComputePipeline(d.pipeline)
		d.pipeline = nil
	}
	if d.pLayout != nil {
		d.device.DestroyPipelineLayout(d.pLayout)
		d.pLayout = nil
	}
	if d.bgLayout != nil {
		d.device.DestroyBindGroupLayout(d.bgLayout)
		d.bgLayout = nil
	}
	if d.shader != nil {
		d.device.DestroyShaderModule(d.shader)
		d.shader = nil
	}
	d.initialized = false
}

func configBytes(width, ruleNum, rowIn, rowOut uint32) []byte {
	buf := make([]byte, configSize)
	binary.LittleEndian.PutUint32(buf[0:4], width)
	binary.LittleEndian.PutUint32(buf[4:8], ruleNum)
	binary.LittleEndian.PutUint32(buf[8:12], rowIn)
	binary.LittleEndian.PutUint32(buf[12:16], rowOut)
	return buf
}

// Run allocates a zeroed W*H device buffer, seeds row 0 from seed (a
// device-ready row of length W, little-endian u32 cells), and advances the
// rule evaluator for rows 1..H-1, batching up to batchSize generations
// between device synchronization points.
//
// If height == 0, returns an empty buffer. Device allocation failure is
// fatal and is propagated as an error; no partial buffer is ever returned.
func (d *Dispatcher) Run(ctx context.Context, seed []uint32, width, height uint32, r ca.Rule) (hal.Buffer, error) {
	if !d.initialized {
		return nil, ErrDeviceUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := uint64(width) * uint64(height) * 4
	if size < 4 {
		size = 4
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "cellwatch_ca_buffer",
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("kernel: allocate generation buffer: %w", err)
	}

	if height == 0 {
		return buf, nil
	}

	zeros := make([]byte, size)
	d.queue.WriteBuffer(buf, 0, zeros)

	seedBytes := make([]byte, len(seed)*4)
	for i, v := range seed {
		binary.LittleEndian.PutUint32(seedBytes[i*4:], v)
	}
	d.queue.WriteBuffer(buf, 0, seedBytes)

	if height == 1 {
		return buf, nil
	}

	configBufs := make([]hal.Buffer, batchSize)
	bindGroups := make([]hal.BindGroup, batchSize)
	defer func() {
		for i := range configBufs {
			if bindGroups[i] != nil {
				d.device.DestroyBindGroup(bindGroups[i])
			}
			if configBufs[i] != nil {
				d.device.DestroyBuffer(configBufs[i])
			}
		}
	}()

	for i := 0; i < batchSize; i++ {
		cb, cerr := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "cellwatch_step_config",
			Size:  configSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if cerr != nil {
			d.device.DestroyBuffer(buf)
			return nil, fmt.Errorf("kernel: allocate config buffer: %w", cerr)
		}
		configBufs[i] = cb

		bg, berr := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  "cellwatch_step_bg",
			Layout: d.bgLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Buffer: cb},
				{Binding: 1, Buffer: buf},
			},
		})
		if berr != nil {
			d.device.DestroyBuffer(buf)
			return nil, fmt.Errorf("kernel: create bind group: %w", berr)
		}
		bindGroups[i] = bg
	}

	wgCount := (width + workgroupSize - 1) / workgroupSize

	for gen := uint32(1); gen < height; gen += batchSize {
		end := gen + batchSize
		if end > height {
			end = height
		}
		n := end - gen

		for i := uint32(0); i < n; i++ {
			rowOut := gen + i
			rowIn := rowOut - 1
			d.queue.WriteBuffer(configBufs[i], 0, configBytes(width, uint32(r), rowIn, rowOut))
		}

		if err := d.runBatch(bindGroups[:n], wgCount); err != nil {
			d.device.DestroyBuffer(buf)
			return nil, err
		}
	}

	return buf, nil
}

func (d *Dispatcher) runBatch(bindGroups []hal.BindGroup, wgCount uint32) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "cellwatch_step_batch",
	})
	if err != nil {
		return fmt.Errorf("kernel: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("cellwatch_step_batch"); err != nil {
		return fmt.Errorf("kernel: begin encoding: %w", err)
	}

	for _, bg := range bindGroups {
		pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "cellwatch_step"})
		pass.SetPipeline(d.pipeline)
		pass.SetBindGroup(0, bg, nil)
		pass.Dispatch(wgCount, 1, 1)
		pass.End()
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("kernel: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("kernel: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("kernel: submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("kernel: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("kernel: GPU timeout after %v", fenceTimeout)
	}
	return nil
}
