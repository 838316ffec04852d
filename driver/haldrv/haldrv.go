// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package haldrv implements the replay driver façade over gogpu/wgpu's
// hardware abstraction layer. It owns device bring-up (instance,
// adapter selection, device open) and maps each captured creation onto
// the closest hal object so the underlying driver compiles and caches
// the pipelines.
//
// The hal layer is WebGPU-shaped, so two captured kinds have no object
// to create: render passes (WebGPU encodes pass state per submission)
// and ray-tracing pipelines. Those replay as registrations with real
// handles, which keeps creation order and destruction accounting
// observable even though no driver object exists.
package haldrv

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/prewarm/capture"
	"github.com/gogpu/prewarm/internal/logging"
)

// Package errors.
var (
	// ErrNoBackend is returned when no hal backend is registered.
	ErrNoBackend = errors.New("haldrv: no GPU backend available")

	// ErrNoAdapter is returned when the instance exposes no adapters.
	ErrNoAdapter = errors.New("haldrv: no GPU adapters found")

	// ErrBadDeviceIndex is returned for an out-of-range device index.
	ErrBadDeviceIndex = errors.New("haldrv: device index out of range")

	// ErrUnknownHandle is returned when a create references a handle
	// this driver did not produce.
	ErrUnknownHandle = errors.New("haldrv: unknown object handle")
)

// Options configures device bring-up.
type Options struct {
	// DeviceIndex selects an adapter from the enumeration order; -1
	// picks the first discrete or integrated GPU.
	DeviceIndex int

	// Validation is noted at bring-up; the hal layer has no validation
	// toggle of its own, so the request is surfaced in the log only.
	Validation bool
}

// Driver is a driver.Driver over a hal device.
//
// Thread safety: resource maps are mutex-protected; hal create and
// destroy calls are issued concurrently, which the hal contract allows.
type Driver struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	gpuName  string

	nextID atomic.Uint64

	mu               sync.Mutex
	samplers         map[capture.Handle]hal.Sampler
	bindGroupLayouts map[capture.Handle]hal.BindGroupLayout
	pipelineLayouts  map[capture.Handle]hal.PipelineLayout
	shaderModules    map[capture.Handle]hal.ShaderModule
	renderPipelines  map[capture.Handle]hal.RenderPipeline
	computePipelines map[capture.Handle]hal.ComputePipeline
	registered       map[capture.Handle]capture.Tag // kinds with no hal object
}

// Open brings up the Vulkan hal backend and returns a replay driver.
func Open(opts Options) (*Driver, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, ErrNoBackend
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("haldrv: create instance: %w", err)
	}
	if opts.Validation {
		logging.L().Info("validation requested; hal backend has no layer toggle, relying on environment")
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	if opts.DeviceIndex >= 0 {
		if opts.DeviceIndex >= len(adapters) {
			return nil, fmt.Errorf("%w: %d of %d", ErrBadDeviceIndex, opts.DeviceIndex, len(adapters))
		}
		selected = &adapters[opts.DeviceIndex]
	} else {
		for i := range adapters {
			if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
				adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
				selected = &adapters[i]
				break
			}
		}
		if selected == nil {
			selected = &adapters[0]
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("haldrv: open device: %w", err)
	}

	d := &Driver{
		instance:         instance,
		device:           openDev.Device,
		queue:            openDev.Queue,
		gpuName:          selected.Info.Name,
		samplers:         make(map[capture.Handle]hal.Sampler),
		bindGroupLayouts: make(map[capture.Handle]hal.BindGroupLayout),
		pipelineLayouts:  make(map[capture.Handle]hal.PipelineLayout),
		shaderModules:    make(map[capture.Handle]hal.ShaderModule),
		renderPipelines:  make(map[capture.Handle]hal.RenderPipeline),
		computePipelines: make(map[capture.Handle]hal.ComputePipeline),
		registered:       make(map[capture.Handle]capture.Tag),
	}
	d.nextID.Store(1)
	logging.L().Info("GPU device opened", "gpu", d.gpuName)
	return d, nil
}

// Name implements driver.Driver.
func (d *Driver) Name() string { return "hal/" + d.gpuName }

// Close destroys the device.
func (d *Driver) Close() error {
	if d.device != nil {
		d.device.Destroy()
		d.device = nil
	}
	return nil
}

func (d *Driver) newHandle() capture.Handle {
	return capture.Handle(d.nextID.Add(1) - 1)
}

// register stores a handle for a kind with no hal object.
func (d *Driver) register(tag capture.Tag) capture.Handle {
	h := d.newHandle()
	d.mu.Lock()
	d.registered[h] = tag
	d.mu.Unlock()
	return h
}

func (d *Driver) unregister(h capture.Handle) {
	d.mu.Lock()
	delete(d.registered, h)
	d.mu.Unlock()
}
