// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package haldrv

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/prewarm/capture"
	"github.com/gogpu/prewarm/internal/hashutil"
)

// Captured enums use the low-level driver's numbering; the constants
// below name the values the translation distinguishes.
const (
	vkFilterLinear = 1

	vkAddressModeRepeat         = 0
	vkAddressModeMirroredRepeat = 1
	vkAddressModeClampToEdge    = 2

	vkDescriptorTypeSampler              = 0
	vkDescriptorTypeCombinedImageSampler = 1
	vkDescriptorTypeSampledImage         = 2
	vkDescriptorTypeStorageBuffer        = 7
	vkDescriptorTypeStorageBufferDynamic = 9

	vkShaderStageVertexBit   = 0x01
	vkShaderStageFragmentBit = 0x10
	vkShaderStageComputeBit  = 0x20
)

func filterMode(v uint32) gputypes.FilterMode {
	if v == vkFilterLinear {
		return gputypes.FilterModeLinear
	}
	return gputypes.FilterModeNearest
}

func addressMode(v uint32) gputypes.AddressMode {
	switch v {
	case vkAddressModeRepeat:
		return gputypes.AddressModeRepeat
	case vkAddressModeMirroredRepeat:
		return gputypes.AddressModeMirrorRepeat
	default:
		return gputypes.AddressModeClampToEdge
	}
}

func stageVisibility(stageFlags uint32) gputypes.ShaderStage {
	var vis gputypes.ShaderStage
	if stageFlags&vkShaderStageVertexBit != 0 {
		vis |= gputypes.ShaderStageVertex
	}
	if stageFlags&vkShaderStageFragmentBit != 0 {
		vis |= gputypes.ShaderStageFragment
	}
	if stageFlags&vkShaderStageComputeBit != 0 {
		vis |= gputypes.ShaderStageCompute
	}
	if vis == 0 {
		vis = gputypes.ShaderStageCompute
	}
	return vis
}

// CreateSampler implements driver.Driver.
func (d *Driver) CreateSampler(info *capture.SamplerCreateInfo) (capture.Handle, error) {
	s, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "prewarm_sampler",
		AddressModeU: addressMode(info.AddressModeU),
		AddressModeV: addressMode(info.AddressModeV),
		AddressModeW: addressMode(info.AddressModeW),
		MagFilter:    filterMode(info.MagFilter),
		MinFilter:    filterMode(info.MinFilter),
		MipmapFilter: filterMode(info.MipmapMode),
	})
	if err != nil {
		return 0, fmt.Errorf("haldrv: create sampler: %w", err)
	}
	h := d.newHandle()
	d.mu.Lock()
	d.samplers[h] = s
	d.mu.Unlock()
	return h, nil
}

// DestroySampler implements driver.Driver.
func (d *Driver) DestroySampler(h capture.Handle) {
	d.mu.Lock()
	s, ok := d.samplers[h]
	delete(d.samplers, h)
	d.mu.Unlock()
	if ok {
		d.device.DestroySampler(s)
	}
}

// CreateDescriptorSetLayout implements driver.Driver. Set layouts map
// onto bind group layouts; each binding picks the closest hal resource
// shape for its descriptor type.
func (d *Driver) CreateDescriptorSetLayout(info *capture.DescriptorSetLayoutCreateInfo) (capture.Handle, error) {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(info.Bindings))
	for _, b := range info.Bindings {
		entry := gputypes.BindGroupLayoutEntry{
			Binding:    b.Binding,
			Visibility: stageVisibility(b.StageFlags),
		}
		switch b.DescriptorType {
		case vkDescriptorTypeSampler:
			entry.Sampler = &gputypes.SamplerBindingLayout{
				Type: gputypes.SamplerBindingTypeFiltering,
			}
		case vkDescriptorTypeCombinedImageSampler, vkDescriptorTypeSampledImage:
			entry.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		case vkDescriptorTypeStorageBuffer, vkDescriptorTypeStorageBufferDynamic:
			entry.Buffer = &gputypes.BufferBindingLayout{
				Type: gputypes.BufferBindingTypeStorage,
			}
		default:
			entry.Buffer = &gputypes.BufferBindingLayout{
				Type: gputypes.BufferBindingTypeUniform,
			}
		}
		entries = append(entries, entry)
	}

	l, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "prewarm_set_layout",
		Entries: entries,
	})
	if err != nil {
		return 0, fmt.Errorf("haldrv: create bind group layout: %w", err)
	}
	h := d.newHandle()
	d.mu.Lock()
	d.bindGroupLayouts[h] = l
	d.mu.Unlock()
	return h, nil
}

// DestroyDescriptorSetLayout implements driver.Driver.
func (d *Driver) DestroyDescriptorSetLayout(h capture.Handle) {
	d.mu.Lock()
	l, ok := d.bindGroupLayouts[h]
	delete(d.bindGroupLayouts, h)
	d.mu.Unlock()
	if ok {
		d.device.DestroyBindGroupLayout(l)
	}
}

// CreatePipelineLayout implements driver.Driver. Null set layout slots
// are skipped; the hal layer has no gap notion.
func (d *Driver) CreatePipelineLayout(info *capture.PipelineLayoutCreateInfo) (capture.Handle, error) {
	layouts := make([]hal.BindGroupLayout, 0, len(info.SetLayouts))
	d.mu.Lock()
	for _, sl := range info.SetLayouts {
		if sl == 0 {
			continue
		}
		l, ok := d.bindGroupLayouts[sl]
		if !ok {
			d.mu.Unlock()
			return 0, fmt.Errorf("%w: set layout %#x", ErrUnknownHandle, uint64(sl))
		}
		layouts = append(layouts, l)
	}
	d.mu.Unlock()

	pl, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "prewarm_pipeline_layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return 0, fmt.Errorf("haldrv: create pipeline layout: %w", err)
	}
	h := d.newHandle()
	d.mu.Lock()
	d.pipelineLayouts[h] = pl
	d.mu.Unlock()
	return h, nil
}

// DestroyPipelineLayout implements driver.Driver.
func (d *Driver) DestroyPipelineLayout(h capture.Handle) {
	d.mu.Lock()
	pl, ok := d.pipelineLayouts[h]
	delete(d.pipelineLayouts, h)
	d.mu.Unlock()
	if ok {
		d.device.DestroyPipelineLayout(pl)
	}
}

// CreateShaderModule implements driver.Driver. The decoded SPIR-V words
// feed the hal module directly.
func (d *Driver) CreateShaderModule(info *capture.ShaderModuleCreateInfo) (capture.Handle, error) {
	m, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "prewarm_shader",
		Source: hal.ShaderSource{SPIRV: info.Code},
	})
	if err != nil {
		return 0, fmt.Errorf("haldrv: create shader module: %w", err)
	}
	h := d.newHandle()
	d.mu.Lock()
	d.shaderModules[h] = m
	d.mu.Unlock()
	return h, nil
}

// DestroyShaderModule implements driver.Driver.
func (d *Driver) DestroyShaderModule(h capture.Handle) {
	d.mu.Lock()
	m, ok := d.shaderModules[h]
	delete(d.shaderModules, h)
	d.mu.Unlock()
	if ok {
		d.device.DestroyShaderModule(m)
	}
}

// CreateRenderPass implements driver.Driver. The hal layer encodes pass
// state per submission, so the capture is registered without a driver
// object.
func (d *Driver) CreateRenderPass(info *capture.RenderPassCreateInfo) (capture.Handle, error) {
	_ = info
	return d.register(capture.TagRenderPass), nil
}

// DestroyRenderPass implements driver.Driver.
func (d *Driver) DestroyRenderPass(h capture.Handle) { d.unregister(h) }

// CreateRaytracingPipeline implements driver.Driver. Ray tracing has no
// hal mapping yet; the capture is registered so ordering and
// destruction accounting stay observable.
func (d *Driver) CreateRaytracingPipeline(info *capture.RayTracingPipelineCreateInfo) (capture.Handle, error) {
	_ = info
	return d.register(capture.TagRaytracingPipeline), nil
}

// DestroyRaytracingPipeline implements driver.Driver.
func (d *Driver) DestroyRaytracingPipeline(h capture.Handle) { d.unregister(h) }

func (d *Driver) lookupModule(h capture.Handle, tag capture.Tag, hash string) (hal.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.shaderModules[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s stage module %s", ErrUnknownHandle, tag, hash)
	}
	return m, nil
}

// CreateComputePipeline implements driver.Driver.
func (d *Driver) CreateComputePipeline(info *capture.ComputePipelineCreateInfo) (capture.Handle, error) {
	module, err := d.lookupModule(info.Stage.Module, capture.TagComputePipeline,
		hashutil.FormatHash(uint64(info.Stage.Module)))
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	layout, ok := d.pipelineLayouts[info.Layout]
	d.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%w: compute pipeline layout %#x", ErrUnknownHandle, uint64(info.Layout))
	}
	entry := info.Stage.Name
	if entry == "" {
		entry = "main"
	}

	p, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "prewarm_compute_pipeline",
		Layout: layout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: entry,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("haldrv: create compute pipeline: %w", err)
	}
	h := d.newHandle()
	d.mu.Lock()
	d.computePipelines[h] = p
	d.mu.Unlock()
	return h, nil
}

// DestroyComputePipeline implements driver.Driver.
func (d *Driver) DestroyComputePipeline(h capture.Handle) {
	d.mu.Lock()
	p, ok := d.computePipelines[h]
	delete(d.computePipelines, h)
	d.mu.Unlock()
	if ok {
		d.device.DestroyComputePipeline(p)
	}
}

// DestroyGraphicsPipeline implements driver.Driver. Pipelines that
// replayed as registrations (library fragments) have no hal object.
func (d *Driver) DestroyGraphicsPipeline(h capture.Handle) {
	d.mu.Lock()
	p, ok := d.renderPipelines[h]
	delete(d.renderPipelines, h)
	delete(d.registered, h)
	d.mu.Unlock()
	if ok {
		d.device.DestroyRenderPipeline(p)
	}
}
