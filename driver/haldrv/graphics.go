// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package haldrv

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/prewarm/capture"
)

// Captured graphics enum values the translation distinguishes.
const (
	vkFormatR32Sfloat          = 100
	vkFormatR32G32Sfloat       = 103
	vkFormatR32G32B32A32Sfloat = 109

	vkSampleCount1 = 1
)

func vertexFormat(v uint32) gputypes.VertexFormat {
	switch v {
	case vkFormatR32Sfloat:
		return gputypes.VertexFormatFloat32
	case vkFormatR32G32Sfloat:
		return gputypes.VertexFormatFloat32x2
	case vkFormatR32G32B32A32Sfloat:
		return gputypes.VertexFormatFloat32x4
	default:
		// Remaining formats warm the same shader compilations; the
		// widest float layout stands in.
		return gputypes.VertexFormatFloat32x4
	}
}

// CreateGraphicsPipeline implements driver.Driver. The captured state
// is translated onto a hal render pipeline: stages by their stage bit,
// vertex input bindings onto buffer layouts, blend targets onto color
// targets. Pipelines without a vertex stage are library fragments the
// hal layer cannot build alone; they replay as registrations.
func (d *Driver) CreateGraphicsPipeline(info *capture.GraphicsPipelineCreateInfo) (capture.Handle, error) {
	var vertex, fragment *capture.PipelineShaderStageCreateInfo
	for _, s := range info.Stages {
		switch {
		case s.Stage&vkShaderStageVertexBit != 0:
			vertex = s
		case s.Stage&vkShaderStageFragmentBit != 0:
			fragment = s
		}
	}
	if vertex == nil {
		return d.register(capture.TagGraphicsPipeline), nil
	}

	vertexModule, err := d.lookupModule(vertex.Module, capture.TagGraphicsPipeline, vertex.Name)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	layout, ok := d.pipelineLayouts[info.Layout]
	d.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%w: graphics pipeline layout %#x", ErrUnknownHandle, uint64(info.Layout))
	}

	desc := &hal.RenderPipelineDescriptor{
		Label:  "prewarm_graphics_pipeline",
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     vertexModule,
			EntryPoint: entryPoint(vertex),
			Buffers:    vertexBuffers(info.VertexInputState),
		},
		Primitive:   primitiveState(info.InputAssemblyState),
		Multisample: multisampleState(info.MultisampleState),
	}

	if fragment != nil {
		fragModule, err := d.lookupModule(fragment.Module, capture.TagGraphicsPipeline, fragment.Name)
		if err != nil {
			return 0, err
		}
		desc.Fragment = &hal.FragmentState{
			Module:     fragModule,
			EntryPoint: entryPoint(fragment),
			Targets:    colorTargets(info),
		}
	}

	if ds := info.DepthStencilState; ds != nil && (ds.DepthTestEnable != 0 || ds.StencilTestEnable != 0) {
		desc.DepthStencil = &hal.DepthStencilState{
			Format:            gputypes.TextureFormatDepth24PlusStencil8,
			DepthWriteEnabled: ds.DepthWriteEnable != 0,
			DepthCompare:      gputypes.CompareFunctionAlways,
			StencilFront: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilBack: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilReadMask:  0xFF,
			StencilWriteMask: 0xFF,
		}
	}

	p, err := d.device.CreateRenderPipeline(desc)
	if err != nil {
		return 0, fmt.Errorf("haldrv: create render pipeline: %w", err)
	}
	h := d.newHandle()
	d.mu.Lock()
	d.renderPipelines[h] = p
	d.mu.Unlock()
	return h, nil
}

func entryPoint(s *capture.PipelineShaderStageCreateInfo) string {
	if s.Name == "" {
		return "main"
	}
	return s.Name
}

func vertexBuffers(vi *capture.PipelineVertexInputStateCreateInfo) []gputypes.VertexBufferLayout {
	if vi == nil || len(vi.Bindings) == 0 {
		return nil
	}
	out := make([]gputypes.VertexBufferLayout, 0, len(vi.Bindings))
	for _, b := range vi.Bindings {
		layout := gputypes.VertexBufferLayout{
			ArrayStride: uint64(b.Stride),
			StepMode:    gputypes.VertexStepModeVertex,
		}
		for _, a := range vi.Attributes {
			if a.Binding != b.Binding {
				continue
			}
			layout.Attributes = append(layout.Attributes, gputypes.VertexAttribute{
				Format:         vertexFormat(a.Format),
				Offset:         uint64(a.Offset),
				ShaderLocation: a.Location,
			})
		}
		out = append(out, layout)
	}
	return out
}

// primitiveState maps every captured topology to a triangle list: the
// shader compilations being warmed do not depend on assembly order.
func primitiveState(_ *capture.PipelineInputAssemblyStateCreateInfo) gputypes.PrimitiveState {
	return gputypes.PrimitiveState{
		Topology: gputypes.PrimitiveTopologyTriangleList,
		CullMode: gputypes.CullModeNone,
	}
}

func multisampleState(ms *capture.PipelineMultisampleStateCreateInfo) gputypes.MultisampleState {
	count := uint32(vkSampleCount1)
	if ms != nil && ms.RasterizationSamples > 0 {
		count = ms.RasterizationSamples
	}
	return gputypes.MultisampleState{
		Count: count,
		Mask:  0xFFFFFFFF,
	}
}

func colorTargets(info *capture.GraphicsPipelineCreateInfo) []gputypes.ColorTargetState {
	n := 1
	if cb := info.ColorBlendState; cb != nil && len(cb.Attachments) > 0 {
		n = len(cb.Attachments)
	}
	targets := make([]gputypes.ColorTargetState, n)
	for i := range targets {
		targets[i] = gputypes.ColorTargetState{
			Format:    gputypes.TextureFormatBGRA8Unorm,
			WriteMask: gputypes.ColorWriteMaskAll,
		}
	}
	return targets
}
