package capture

// Device features are captured as flat boolean vectors, index-aligned
// with per-type name tables. The vector form keeps the capture parser
// table-driven and lets the feature filter mask supported against
// requested bits with a single loop per chain entry.

// Core feature bit indices referenced by name elsewhere.
const (
	CoreRobustBufferAccess = 0
)

// coreFeatureNames is the canonical field order of the driver's core
// feature structure; the capture JSON uses these names.
var coreFeatureNames = []string{
	"robustBufferAccess", "fullDrawIndexUint32", "imageCubeArray",
	"independentBlend", "geometryShader", "tessellationShader",
	"sampleRateShading", "dualSrcBlend", "logicOp", "multiDrawIndirect",
	"drawIndirectFirstInstance", "depthClamp", "depthBiasClamp",
	"fillModeNonSolid", "depthBounds", "wideLines", "largePoints",
	"alphaToOne", "multiViewport", "samplerAnisotropy",
	"textureCompressionETC2", "textureCompressionASTC_LDR",
	"textureCompressionBC", "occlusionQueryPrecise",
	"pipelineStatisticsQuery", "vertexPipelineStoresAndAtomics",
	"fragmentStoresAndAtomics", "shaderTessellationAndGeometryPointSize",
	"shaderImageGatherExtended", "shaderStorageImageExtendedFormats",
	"shaderStorageImageMultisample", "shaderStorageImageReadWithoutFormat",
	"shaderStorageImageWriteWithoutFormat",
	"shaderUniformBufferArrayDynamicIndexing",
	"shaderSampledImageArrayDynamicIndexing",
	"shaderStorageBufferArrayDynamicIndexing",
	"shaderStorageImageArrayDynamicIndexing", "shaderClipDistance",
	"shaderCullDistance", "shaderFloat64", "shaderInt64", "shaderInt16",
	"shaderResourceResidency", "shaderResourceMinLod", "sparseBinding",
	"sparseResidencyBuffer", "sparseResidencyImage2D",
	"sparseResidencyImage3D", "sparseResidency2Samples",
	"sparseResidency4Samples", "sparseResidency8Samples",
	"sparseResidency16Samples", "sparseResidencyAliased",
	"variableMultisampleRate", "inheritedQueries",
}

// CoreFeatureCount is the number of core feature booleans.
var CoreFeatureCount = len(coreFeatureNames)

// FeatureChainType describes one known feature chain-entry type.
type FeatureChainType struct {
	// Name is the debug name of the structure.
	Name string

	// Extension is the device extension the entry belongs to, or ""
	// for core structures, which have no extension name to strip when
	// they are unlinked.
	Extension string

	// Fields is the capture JSON field-name table, index-aligned with
	// FeatureChainEntry.Bits.
	Fields []string
}

// featureChainTypes registers every chain-entry type the capture layer
// understands, keyed by sType. An sType outside this table is an
// UnknownExtension parse failure.
var featureChainTypes = map[uint32]*FeatureChainType{
	STypeVulkan11Features: {
		Name: "Vulkan11Features",
		Fields: []string{
			"storageBuffer16BitAccess", "uniformAndStorageBuffer16BitAccess",
			"storagePushConstant16", "storageInputOutput16", "multiview",
			"multiviewGeometryShader", "multiviewTessellationShader",
			"variablePointersStorageBuffer", "variablePointers",
			"protectedMemory", "samplerYcbcrConversion", "shaderDrawParameters",
		},
	},
	STypeVulkan12Features: {
		Name: "Vulkan12Features",
		Fields: []string{
			"samplerMirrorClampToEdge", "drawIndirectCount",
			"storageBuffer8BitAccess", "uniformAndStorageBuffer8BitAccess",
			"storagePushConstant8", "shaderBufferInt64Atomics",
			"shaderSharedInt64Atomics", "shaderFloat16", "shaderInt8",
			"descriptorIndexing", "shaderInputAttachmentArrayDynamicIndexing",
			"shaderUniformTexelBufferArrayDynamicIndexing",
			"shaderStorageTexelBufferArrayDynamicIndexing",
			"shaderUniformBufferArrayNonUniformIndexing",
			"shaderSampledImageArrayNonUniformIndexing",
			"shaderStorageBufferArrayNonUniformIndexing",
			"shaderStorageImageArrayNonUniformIndexing",
			"shaderInputAttachmentArrayNonUniformIndexing",
			"shaderUniformTexelBufferArrayNonUniformIndexing",
			"shaderStorageTexelBufferArrayNonUniformIndexing",
			"descriptorBindingUniformBufferUpdateAfterBind",
			"descriptorBindingSampledImageUpdateAfterBind",
			"descriptorBindingStorageImageUpdateAfterBind",
			"descriptorBindingStorageBufferUpdateAfterBind",
			"descriptorBindingUniformTexelBufferUpdateAfterBind",
			"descriptorBindingStorageTexelBufferUpdateAfterBind",
			"descriptorBindingUpdateUnusedWhilePending",
			"descriptorBindingPartiallyBound",
			"descriptorBindingVariableDescriptorCount",
			"runtimeDescriptorArray", "samplerFilterMinmax",
			"scalarBlockLayout", "imagelessFramebuffer",
			"uniformBufferStandardLayout", "shaderSubgroupExtendedTypes",
			"separateDepthStencilLayouts", "hostQueryReset",
			"timelineSemaphore", "bufferDeviceAddress",
			"bufferDeviceAddressCaptureReplay",
			"bufferDeviceAddressMultiDevice", "vulkanMemoryModel",
			"vulkanMemoryModelDeviceScope",
			"vulkanMemoryModelAvailabilityVisibilityChains",
			"shaderOutputViewportIndex", "shaderOutputLayer",
			"subgroupBroadcastDynamicId",
		},
	},
	STypeVulkan13Features: {
		Name: "Vulkan13Features",
		Fields: []string{
			"robustImageAccess", "inlineUniformBlock",
			"descriptorBindingInlineUniformBlockUpdateAfterBind",
			"pipelineCreationCacheControl", "privateData",
			"shaderDemoteToHelperInvocation", "shaderTerminateInvocation",
			"subgroupSizeControl", "computeFullSubgroups", "synchronization2",
			"textureCompressionASTC_HDR", "shaderZeroInitializeWorkgroupMemory",
			"dynamicRendering", "shaderIntegerDotProduct", "maintenance4",
		},
	},
	STypeFragmentShadingRateFeatures: {
		Name:      "FragmentShadingRateFeatures",
		Extension: "VK_KHR_fragment_shading_rate",
		Fields: []string{
			"pipelineFragmentShadingRate", "primitiveFragmentShadingRate",
			"attachmentFragmentShadingRate",
		},
	},
	STypeShadingRateImageFeatures: {
		Name:      "ShadingRateImageFeatures",
		Extension: "VK_NV_shading_rate_image",
		Fields: []string{
			"shadingRateImage", "shadingRateCoarseSampleOrder",
		},
	},
	STypeFragmentDensityMapFeatures: {
		Name:      "FragmentDensityMapFeatures",
		Extension: "VK_EXT_fragment_density_map",
		Fields: []string{
			"fragmentDensityMap", "fragmentDensityMapDynamic",
			"fragmentDensityMapNonSubsampledImages",
		},
	},
	STypeRobustness2Features: {
		Name:      "Robustness2Features",
		Extension: "VK_EXT_robustness_2",
		Fields: []string{
			"robustBufferAccess2", "robustImageAccess2", "nullDescriptor",
		},
	},
}

// FeatureChainTypeBySType looks up a registered chain-entry type.
func FeatureChainTypeBySType(sType uint32) (*FeatureChainType, bool) {
	t, ok := featureChainTypes[sType]
	return t, ok
}

// FeatureChainEntry is one feature chain record as a boolean vector.
type FeatureChainEntry struct {
	Type uint32
	Bits []Bool32 // index-aligned with the registered field table
}

// SType implements ChainEntry.
func (e *FeatureChainEntry) SType() uint32 { return e.Type }

// AllZero reports whether no bit of the entry is enabled.
func (e *FeatureChainEntry) AllZero() bool {
	for _, b := range e.Bits {
		if b != 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the entry.
func (e *FeatureChainEntry) Clone() *FeatureChainEntry {
	bits := make([]Bool32, len(e.Bits))
	copy(bits, e.Bits)
	return &FeatureChainEntry{Type: e.Type, Bits: bits}
}

// NewFeatureChainEntry builds a zeroed entry of a registered type.
// It panics on an unknown sType; callers validate first.
func NewFeatureChainEntry(sType uint32) *FeatureChainEntry {
	t, ok := featureChainTypes[sType]
	if !ok {
		panic("capture: NewFeatureChainEntry: unregistered sType")
	}
	return &FeatureChainEntry{Type: sType, Bits: make([]Bool32, len(t.Fields))}
}

// Features2 is a device feature request or capability report: the core
// boolean vector plus the extension chain.
type Features2 struct {
	Core  []Bool32 // index-aligned with coreFeatureNames
	Chain []*FeatureChainEntry
}

// NewFeatures2 returns an all-zero Features2.
func NewFeatures2() *Features2 {
	return &Features2{Core: make([]Bool32, CoreFeatureCount)}
}

// Entry returns the chain entry with the given sType, or nil.
func (f *Features2) Entry(sType uint32) *FeatureChainEntry {
	for _, e := range f.Chain {
		if e.Type == sType {
			return e
		}
	}
	return nil
}

// Clone returns a deep copy of the features.
func (f *Features2) Clone() *Features2 {
	out := &Features2{Core: make([]Bool32, len(f.Core))}
	copy(out.Core, f.Core)
	for _, e := range f.Chain {
		out.Chain = append(out.Chain, e.Clone())
	}
	return out
}

// CoreFeatureIndex returns the index of a core feature name.
func CoreFeatureIndex(name string) (int, bool) {
	for i, n := range coreFeatureNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// CoreFeatureName returns the canonical name of a core feature index.
func CoreFeatureName(i int) string { return coreFeatureNames[i] }
