// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render holds the device-handoff seam between cellwatch and a host
// graphics application.
package render

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
//
// This interface is the primary integration point between cellwatch and a
// host windowing/graphics shell (e.g. a gogpu.App, or any program that owns
// the OS window and GPU surface). The host implements DeviceHandle and
// passes it to present.New, allowing cellwatch to render on the host's
// device and queue instead of opening its own. present.New also requires
// the handle to expose HalDevice() any and HalQueue() any returning the
// concrete hal.Device and hal.Queue; a handle without them is rejected.
//
// Key principle: cellwatch RECEIVES the device from the host when one is
// available, it does NOT require creating one. viewport.App does not open
// a device itself; cmd/cellwatch instead opens one with the standalone
// bootstrap in internal/gpu/kernel (a bare Vulkan instance/adapter/device)
// and wraps it in its own DeviceHandle.
//
// Example implementation in a host application:
//
//	type windowDeviceHandle struct {
//	    win *myapp.Window
//	}
//
//	func (h *windowDeviceHandle) Device() gpucontext.Device { return h.win.Device() }
//	func (h *windowDeviceHandle) Queue() gpucontext.Queue   { return h.win.Queue() }
//
// DeviceHandle is an alias for gpucontext.DeviceProvider so any existing
// gpucontext-based host integration already satisfies it.
type DeviceHandle = gpucontext.DeviceProvider

// NullDeviceHandle is a DeviceHandle that provides nil implementations.
// It exposes no HAL device, so present.New rejects it.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// Ensure NullDeviceHandle implements DeviceHandle.
var _ DeviceHandle = NullDeviceHandle{}
