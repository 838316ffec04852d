package capture

// Structure type tags for extension chain records. Values follow the
// driver's numbering so captures interoperate with the capture layer.
const (
	STypePhysicalDeviceFeatures2               uint32 = 1000059000
	STypeVulkan11Features                      uint32 = 49
	STypeVulkan12Features                      uint32 = 51
	STypeVulkan13Features                      uint32 = 53
	STypeFragmentShadingRateFeatures           uint32 = 1000226003
	STypeShadingRateImageFeatures              uint32 = 1000164001
	STypeFragmentDensityMapFeatures            uint32 = 1000218000
	STypeRobustness2Features                   uint32 = 1000286000
	STypeSamplerReductionModeCreateInfo        uint32 = 1000130001
	STypeSamplerCustomBorderColorCreateInfo    uint32 = 1000287000
	STypeDescriptorSetLayoutBindingFlags       uint32 = 1000161000
	STypeRenderPassMultiviewCreateInfo         uint32 = 1000053000
	STypeShaderStageRequiredSubgroupSize       uint32 = 1000225001
	STypePipelineLibraryCreateInfo             uint32 = 1000290000
	STypeGraphicsPipelineLibraryCreateInfo     uint32 = 1000320002
	STypePipelineRenderingCreateInfo           uint32 = 1000044002
	STypeRayTracingPipelineInterfaceCreateInfo uint32 = 1000150016
)

// ChainEntry is one node of a descriptor's extension chain. The concrete
// type is selected by SType.
type ChainEntry interface {
	SType() uint32
}
