// Package driver defines the narrow create/destroy façade the replay
// engine drives. The engine accepts a Driver at construction, so a real
// GPU backend (driver/haldrv) and the counting Recorder used by tests
// and dry runs are interchangeable.
//
// Implementations must be safe for concurrent use: the engine issues
// create and destroy calls from every worker without external
// synchronization.
package driver

import "github.com/gogpu/prewarm/capture"

// Driver is the replay target. Each create call submits one captured
// creation descriptor and returns the resulting object handle; each
// destroy releases a handle produced earlier. Handle slots inside the
// descriptors have been patched with resolved dependency handles before
// the call.
type Driver interface {
	// Name identifies the backend for logging.
	Name() string

	CreateSampler(info *capture.SamplerCreateInfo) (capture.Handle, error)
	DestroySampler(h capture.Handle)

	CreateDescriptorSetLayout(info *capture.DescriptorSetLayoutCreateInfo) (capture.Handle, error)
	DestroyDescriptorSetLayout(h capture.Handle)

	CreatePipelineLayout(info *capture.PipelineLayoutCreateInfo) (capture.Handle, error)
	DestroyPipelineLayout(h capture.Handle)

	CreateShaderModule(info *capture.ShaderModuleCreateInfo) (capture.Handle, error)
	DestroyShaderModule(h capture.Handle)

	CreateRenderPass(info *capture.RenderPassCreateInfo) (capture.Handle, error)
	DestroyRenderPass(h capture.Handle)

	CreateComputePipeline(info *capture.ComputePipelineCreateInfo) (capture.Handle, error)
	DestroyComputePipeline(h capture.Handle)

	CreateGraphicsPipeline(info *capture.GraphicsPipelineCreateInfo) (capture.Handle, error)
	DestroyGraphicsPipeline(h capture.Handle)

	CreateRaytracingPipeline(info *capture.RayTracingPipelineCreateInfo) (capture.Handle, error)
	DestroyRaytracingPipeline(h capture.Handle)

	// Close releases the device and any backend resources.
	Close() error
}

// Create dispatches a parsed descriptor to the create call for its tag.
// The descriptor's concrete type must match the tag.
func Create(d Driver, tag capture.Tag, desc any) (capture.Handle, error) {
	switch tag {
	case capture.TagSampler:
		return d.CreateSampler(desc.(*capture.SamplerCreateInfo))
	case capture.TagDescriptorSetLayout:
		return d.CreateDescriptorSetLayout(desc.(*capture.DescriptorSetLayoutCreateInfo))
	case capture.TagPipelineLayout:
		return d.CreatePipelineLayout(desc.(*capture.PipelineLayoutCreateInfo))
	case capture.TagShaderModule:
		return d.CreateShaderModule(desc.(*capture.ShaderModuleCreateInfo))
	case capture.TagRenderPass:
		return d.CreateRenderPass(desc.(*capture.RenderPassCreateInfo))
	case capture.TagComputePipeline:
		return d.CreateComputePipeline(desc.(*capture.ComputePipelineCreateInfo))
	case capture.TagGraphicsPipeline:
		return d.CreateGraphicsPipeline(desc.(*capture.GraphicsPipelineCreateInfo))
	case capture.TagRaytracingPipeline:
		return d.CreateRaytracingPipeline(desc.(*capture.RayTracingPipelineCreateInfo))
	}
	panic("driver: Create: tag " + tag.String() + " is not creatable")
}

// Destroy dispatches a handle to the destroy call for its tag.
func Destroy(d Driver, tag capture.Tag, h capture.Handle) {
	switch tag {
	case capture.TagSampler:
		d.DestroySampler(h)
	case capture.TagDescriptorSetLayout:
		d.DestroyDescriptorSetLayout(h)
	case capture.TagPipelineLayout:
		d.DestroyPipelineLayout(h)
	case capture.TagShaderModule:
		d.DestroyShaderModule(h)
	case capture.TagRenderPass:
		d.DestroyRenderPass(h)
	case capture.TagComputePipeline:
		d.DestroyComputePipeline(h)
	case capture.TagGraphicsPipeline:
		d.DestroyGraphicsPipeline(h)
	case capture.TagRaytracingPipeline:
		d.DestroyRaytracingPipeline(h)
	default:
		panic("driver: Destroy: tag " + tag.String() + " is not destroyable")
	}
}
