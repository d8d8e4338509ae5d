// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package kernel

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import the Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Standalone opens a bare Vulkan instance, adapter, and device when no host
// application has handed cellwatch a shared device via render.DeviceHandle.
// Callers own the returned instance and must call Close on it (which also
// destroys the device) when done.
type Standalone struct {
	Instance hal.Instance
	Device   hal.Device
	Queue    hal.Queue
}

// Close tears down the standalone instance and device in reverse creation
// order.
func (s *Standalone) Close() {
	if s == nil {
		return
	}
	if s.Device != nil {
		s.Device.Destroy()
	}
	if s.Instance != nil {
		s.Instance.Destroy()
	}
}

// Bootstrap opens a standalone Vulkan device, preferring a discrete GPU and
// falling back to an integrated one, then the first adapter enumerated.
// Returns ErrDeviceUnavailable wrapped with context if no backend, adapter,
// or device could be obtained.
func Bootstrap() (*Standalone, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", ErrDeviceUnavailable)
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %v", ErrDeviceUnavailable, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no GPU adapters found", ErrDeviceUnavailable)
	}

	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU {
			selected = &adapters[i]
			break
		}
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: open device: %v", ErrDeviceUnavailable, err)
	}

	return &Standalone{Instance: instance, Device: openDev.Device, Queue: openDev.Queue}, nil
}
