package capture

// Descriptor trees mirror the driver's creation structures. The driver's
// pointer-plus-count pairs become owning slices and its pNext chains
// become Chain slices of typed records. Handle-typed fields stay zero
// until the engine fires the fixups recorded against them.

// SamplerCreateInfo describes a sampler object.
type SamplerCreateInfo struct {
	Flags                   uint32
	MagFilter               uint32
	MinFilter               uint32
	MipmapMode              uint32
	AddressModeU            uint32
	AddressModeV            uint32
	AddressModeW            uint32
	MipLodBias              float32
	AnisotropyEnable        Bool32
	MaxAnisotropy           float32
	CompareEnable           Bool32
	CompareOp               uint32
	MinLod                  float32
	MaxLod                  float32
	BorderColor             uint32
	UnnormalizedCoordinates Bool32
	Chain                   []ChainEntry
}

// SamplerReductionModeCreateInfo selects min/max reduction sampling.
type SamplerReductionModeCreateInfo struct {
	ReductionMode uint32
}

func (*SamplerReductionModeCreateInfo) SType() uint32 { return STypeSamplerReductionModeCreateInfo }

// SamplerCustomBorderColorCreateInfo carries a custom border color.
type SamplerCustomBorderColorCreateInfo struct {
	CustomBorderColor [4]float32
	Format            uint32
}

func (*SamplerCustomBorderColorCreateInfo) SType() uint32 {
	return STypeSamplerCustomBorderColorCreateInfo
}

// DescriptorSetLayoutBinding is one binding slot of a set layout.
// ImmutableSamplers, when present, is a handle array backed by fixups.
type DescriptorSetLayoutBinding struct {
	Binding           uint32
	DescriptorType    uint32
	DescriptorCount   uint32
	StageFlags        uint32
	ImmutableSamplers []Handle
}

// DescriptorSetLayoutCreateInfo describes a descriptor set layout.
type DescriptorSetLayoutCreateInfo struct {
	Flags    uint32
	Bindings []DescriptorSetLayoutBinding
	Chain    []ChainEntry
}

// DescriptorSetLayoutBindingFlagsCreateInfo carries per-binding flags.
type DescriptorSetLayoutBindingFlagsCreateInfo struct {
	BindingFlags []uint32
}

func (*DescriptorSetLayoutBindingFlagsCreateInfo) SType() uint32 {
	return STypeDescriptorSetLayoutBindingFlags
}

// PushConstantRange is one push-constant window of a pipeline layout.
type PushConstantRange struct {
	StageFlags uint32
	Offset     uint32
	Size       uint32
}

// PipelineLayoutCreateInfo describes a pipeline layout. SetLayouts is a
// handle array backed by fixups against descriptor_set_layout entries.
type PipelineLayoutCreateInfo struct {
	Flags              uint32
	SetLayouts         []Handle
	PushConstantRanges []PushConstantRange
	Chain              []ChainEntry
}

// ShaderModuleCreateInfo describes a shader module. Code is the decoded
// SPIR-V word stream, aligned by the allocator to a 64-byte boundary in
// the source capture; in Go the slice backing array alignment is left to
// the runtime and the words are what matter.
type ShaderModuleCreateInfo struct {
	Flags    uint32
	CodeSize uint64 // bytes; len(Code) == CodeSize/4
	Code     []uint32
	Chain    []ChainEntry
}

// AttachmentDescription describes one render pass attachment.
type AttachmentDescription struct {
	Flags          uint32
	Format         uint32
	Samples        uint32
	LoadOp         uint32
	StoreOp        uint32
	StencilLoadOp  uint32
	StencilStoreOp uint32
	InitialLayout  uint32
	FinalLayout    uint32
}

// AttachmentReference points a subpass at an attachment index.
type AttachmentReference struct {
	Attachment uint32
	Layout     uint32
}

// SubpassDescription describes one subpass of a render pass.
type SubpassDescription struct {
	Flags                  uint32
	PipelineBindPoint      uint32
	InputAttachments       []AttachmentReference
	ColorAttachments       []AttachmentReference
	ResolveAttachments     []AttachmentReference
	DepthStencilAttachment *AttachmentReference
	PreserveAttachments    []uint32
}

// SubpassDependency describes an execution dependency between subpasses.
type SubpassDependency struct {
	SrcSubpass      uint32
	DstSubpass      uint32
	SrcStageMask    uint32
	DstStageMask    uint32
	SrcAccessMask   uint32
	DstAccessMask   uint32
	DependencyFlags uint32
}

// RenderPassCreateInfo describes a render pass.
type RenderPassCreateInfo struct {
	Flags        uint32
	Attachments  []AttachmentDescription
	Subpasses    []SubpassDescription
	Dependencies []SubpassDependency
	Chain        []ChainEntry
}

// RenderPassMultiviewCreateInfo enables multiview rendering.
type RenderPassMultiviewCreateInfo struct {
	ViewMasks        []uint32
	ViewOffsets      []int32
	CorrelationMasks []uint32
}

func (*RenderPassMultiviewCreateInfo) SType() uint32 { return STypeRenderPassMultiviewCreateInfo }

// ApplicationInfo captures the application identity and its requested
// device feature chain, replayed bit-exact at device creation.
type ApplicationInfo struct {
	ApplicationName    string
	EngineName         string
	ApplicationVersion uint32
	EngineVersion      uint32
	APIVersion         uint32
	Features           *Features2
	Extensions         []string
}
