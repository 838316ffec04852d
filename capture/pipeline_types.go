package capture

// SpecializationMapEntry maps one specialization constant into Data.
type SpecializationMapEntry struct {
	ConstantID uint32
	Offset     uint32
	Size       uint32
}

// SpecializationInfo carries shader specialization constants. Data is
// decoded from the capture's inline base64 blob.
type SpecializationInfo struct {
	MapEntries []SpecializationMapEntry
	Data       []byte
}

// PipelineShaderStageCreateInfo describes one shader stage. Module is a
// fixup-backed reference to a shader_module entry.
type PipelineShaderStageCreateInfo struct {
	Flags              uint32
	Stage              uint32
	Module             Handle
	Name               string
	SpecializationInfo *SpecializationInfo
	Chain              []ChainEntry
}

// ShaderStageRequiredSubgroupSizeCreateInfo pins the subgroup size.
type ShaderStageRequiredSubgroupSizeCreateInfo struct {
	RequiredSubgroupSize uint32
}

func (*ShaderStageRequiredSubgroupSizeCreateInfo) SType() uint32 {
	return STypeShaderStageRequiredSubgroupSize
}

// ComputePipelineCreateInfo describes a compute pipeline.
type ComputePipelineCreateInfo struct {
	Flags             uint32
	Stage             PipelineShaderStageCreateInfo
	Layout            Handle
	BasePipelineIndex int32
	Chain             []ChainEntry
}

// VertexInputBindingDescription describes one vertex buffer binding.
type VertexInputBindingDescription struct {
	Binding   uint32
	Stride    uint32
	InputRate uint32
}

// VertexInputAttributeDescription describes one vertex attribute.
type VertexInputAttributeDescription struct {
	Location uint32
	Binding  uint32
	Format   uint32
	Offset   uint32
}

// PipelineVertexInputStateCreateInfo describes the vertex input layout.
type PipelineVertexInputStateCreateInfo struct {
	Flags      uint32
	Bindings   []VertexInputBindingDescription
	Attributes []VertexInputAttributeDescription
}

// PipelineInputAssemblyStateCreateInfo describes primitive assembly.
type PipelineInputAssemblyStateCreateInfo struct {
	Flags                  uint32
	Topology               uint32
	PrimitiveRestartEnable Bool32
}

// PipelineTessellationStateCreateInfo describes tessellation patches.
type PipelineTessellationStateCreateInfo struct {
	Flags              uint32
	PatchControlPoints uint32
}

// Viewport is a viewport rectangle with a depth range.
type Viewport struct {
	X        float32
	Y        float32
	Width    float32
	Height   float32
	MinDepth float32
	MaxDepth float32
}

// Rect2D is an integer scissor rectangle.
type Rect2D struct {
	X      int32
	Y      int32
	Width  uint32
	Height uint32
}

// PipelineViewportStateCreateInfo describes viewports and scissors.
type PipelineViewportStateCreateInfo struct {
	Flags     uint32
	Viewports []Viewport
	Scissors  []Rect2D
}

// PipelineRasterizationStateCreateInfo describes rasterizer state.
type PipelineRasterizationStateCreateInfo struct {
	Flags                   uint32
	DepthClampEnable        Bool32
	RasterizerDiscardEnable Bool32
	PolygonMode             uint32
	CullMode                uint32
	FrontFace               uint32
	DepthBiasEnable         Bool32
	DepthBiasConstantFactor float32
	DepthBiasClamp          float32
	DepthBiasSlopeFactor    float32
	LineWidth               float32
}

// PipelineMultisampleStateCreateInfo describes multisampling.
type PipelineMultisampleStateCreateInfo struct {
	Flags                 uint32
	RasterizationSamples  uint32
	SampleShadingEnable   Bool32
	MinSampleShading      float32
	SampleMask            []uint32
	AlphaToCoverageEnable Bool32
	AlphaToOneEnable      Bool32
}

// StencilOpState describes one stencil face.
type StencilOpState struct {
	FailOp      uint32
	PassOp      uint32
	DepthFailOp uint32
	CompareOp   uint32
	CompareMask uint32
	WriteMask   uint32
	Reference   uint32
}

// PipelineDepthStencilStateCreateInfo describes depth/stencil state.
type PipelineDepthStencilStateCreateInfo struct {
	Flags                 uint32
	DepthTestEnable       Bool32
	DepthWriteEnable      Bool32
	DepthCompareOp        uint32
	DepthBoundsTestEnable Bool32
	StencilTestEnable     Bool32
	Front                 StencilOpState
	Back                  StencilOpState
	MinDepthBounds        float32
	MaxDepthBounds        float32
}

// PipelineColorBlendAttachmentState describes blending for one target.
type PipelineColorBlendAttachmentState struct {
	BlendEnable         Bool32
	SrcColorBlendFactor uint32
	DstColorBlendFactor uint32
	ColorBlendOp        uint32
	SrcAlphaBlendFactor uint32
	DstAlphaBlendFactor uint32
	AlphaBlendOp        uint32
	ColorWriteMask      uint32
}

// PipelineColorBlendStateCreateInfo describes the blend stage.
type PipelineColorBlendStateCreateInfo struct {
	Flags          uint32
	LogicOpEnable  Bool32
	LogicOp        uint32
	Attachments    []PipelineColorBlendAttachmentState
	BlendConstants [4]float32
}

// PipelineDynamicStateCreateInfo lists dynamically supplied state.
type PipelineDynamicStateCreateInfo struct {
	Flags         uint32
	DynamicStates []uint32
}

// GraphicsPipelineCreateInfo describes a graphics pipeline. Layout and
// RenderPass are fixup-backed references; a pipeline using dynamic
// rendering records a zero RenderPass hash and a rendering chain entry.
type GraphicsPipelineCreateInfo struct {
	Flags              uint32
	Stages             []*PipelineShaderStageCreateInfo
	VertexInputState   *PipelineVertexInputStateCreateInfo
	InputAssemblyState *PipelineInputAssemblyStateCreateInfo
	TessellationState  *PipelineTessellationStateCreateInfo
	ViewportState      *PipelineViewportStateCreateInfo
	RasterizationState *PipelineRasterizationStateCreateInfo
	MultisampleState   *PipelineMultisampleStateCreateInfo
	DepthStencilState  *PipelineDepthStencilStateCreateInfo
	ColorBlendState    *PipelineColorBlendStateCreateInfo
	DynamicState       *PipelineDynamicStateCreateInfo
	Layout             Handle
	RenderPass         Handle
	Subpass            uint32
	BasePipelineIndex  int32
	Chain              []ChainEntry
}

// PipelineLibraryCreateInfo links previously built pipeline libraries.
// Libraries is a handle array backed by fixups against pipeline entries.
type PipelineLibraryCreateInfo struct {
	Libraries []Handle
}

func (*PipelineLibraryCreateInfo) SType() uint32 { return STypePipelineLibraryCreateInfo }

// GraphicsPipelineLibraryCreateInfo marks which library parts this
// pipeline provides.
type GraphicsPipelineLibraryCreateInfo struct {
	Flags uint32
}

func (*GraphicsPipelineLibraryCreateInfo) SType() uint32 {
	return STypeGraphicsPipelineLibraryCreateInfo
}

// PipelineRenderingCreateInfo describes dynamic-rendering formats.
type PipelineRenderingCreateInfo struct {
	ViewMask               uint32
	ColorAttachmentFormats []uint32
	DepthAttachmentFormat  uint32
	StencilAttachmentFormat uint32
}

func (*PipelineRenderingCreateInfo) SType() uint32 { return STypePipelineRenderingCreateInfo }

// RayTracingShaderGroupCreateInfo describes one shader group.
type RayTracingShaderGroupCreateInfo struct {
	Type               uint32
	GeneralShader      uint32
	ClosestHitShader   uint32
	AnyHitShader       uint32
	IntersectionShader uint32
}

// RayTracingPipelineInterfaceCreateInfo sizes the ray payload interface
// between pipeline libraries.
type RayTracingPipelineInterfaceCreateInfo struct {
	MaxPipelineRayPayloadSize      uint32
	MaxPipelineRayHitAttributeSize uint32
}

// RayTracingPipelineCreateInfo describes a ray-tracing pipeline.
type RayTracingPipelineCreateInfo struct {
	Flags                        uint32
	Stages                       []*PipelineShaderStageCreateInfo
	Groups                       []RayTracingShaderGroupCreateInfo
	MaxPipelineRayRecursionDepth uint32
	LibraryInfo                  *PipelineLibraryCreateInfo
	LibraryInterface             *RayTracingPipelineInterfaceCreateInfo
	DynamicState                 *PipelineDynamicStateCreateInfo
	Layout                       Handle
	BasePipelineIndex            int32
	Chain                        []ChainEntry
}
