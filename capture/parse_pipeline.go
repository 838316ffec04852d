package capture

import "fmt"

// stage parses one shader stage record. Stage records are allocated
// individually so fixup targets aimed at Module stay valid after the
// caller links the stage into its pipeline.
func (r *reader) stage() (*PipelineShaderStageCreateInfo, error) {
	s := &PipelineShaderStageCreateInfo{}
	err := r.object(func(key string) error {
		var err error
		switch key {
		case "flags":
			s.Flags, err = r.u32()
		case "stage":
			s.Stage, err = r.u32()
		case "module":
			err = r.handleTo(TagShaderModule, &s.Module)
		case "name":
			s.Name, err = r.str()
		case "specializationInfo":
			s.SpecializationInfo, err = r.specializationInfo()
		case "pNext":
			s.Chain, err = r.chain("shaderStage", stageChainParsers)
		default:
			err = r.unknown("shaderStage", key)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *reader) specializationInfo() (*SpecializationInfo, error) {
	info := &SpecializationInfo{}
	err := r.object(func(key string) error {
		var err error
		switch key {
		case "mapEntries":
			err = r.array(func() error {
				var e SpecializationMapEntry
				err := r.object(func(key string) error {
					var err error
					switch key {
					case "constantID":
						e.ConstantID, err = r.u32()
					case "offset":
						e.Offset, err = r.u32()
					case "size":
						e.Size, err = r.u32()
					default:
						err = r.unknown("specializationMapEntry", key)
					}
					return err
				})
				if err != nil {
					return err
				}
				info.MapEntries = append(info.MapEntries, e)
				return nil
			})
		case "data":
			info.Data, err = r.blob()
		default:
			err = r.unknown("specializationInfo", key)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

var stageChainParsers = map[uint32]chainParser{
	STypeShaderStageRequiredSubgroupSize: func(r *reader) (ChainEntry, error) {
		e := &ShaderStageRequiredSubgroupSizeCreateInfo{}
		err := r.fields(func(key string) error {
			var err error
			switch key {
			case "requiredSubgroupSize":
				e.RequiredSubgroupSize, err = r.u32()
			default:
				err = r.unknown("requiredSubgroupSize", key)
			}
			return err
		})
		return e, err
	},
}

// ParseComputePipeline deserializes a compute pipeline payload.
func ParseComputePipeline(data []byte, res Resolver) (*Result, error) {
	return parseDoc(data, TagComputePipeline, res, func(r *reader) (any, error) {
		info := &ComputePipelineCreateInfo{}
		err := r.object(func(key string) error {
			var err error
			switch key {
			case "flags":
				info.Flags, err = r.u32()
			case "stage":
				var s *PipelineShaderStageCreateInfo
				s, err = r.stage()
				if err == nil {
					// The stage record is parsed into its own
					// allocation; move the value but keep the fixup
					// target aimed at the original Module slot alive
					// by re-aiming it at the embedded copy.
					r.retargetModule(&s.Module, &info.Stage.Module)
					info.Stage = *s
				}
			case "layout":
				err = r.handleTo(TagPipelineLayout, &info.Layout)
			case "basePipelineHandle":
				err = r.basePipeline()
			case "basePipelineIndex":
				info.BasePipelineIndex, err = r.i32()
			case "pNext":
				info.Chain, err = r.chain("computePipeline", pipelineChainParsers)
			default:
				err = r.unknown("computePipeline", key)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		return info, nil
	})
}

// retargetModule re-aims any fixup recorded against from at to. Used
// when a parsed record is copied by value into its final slot.
func (r *reader) retargetModule(from, to *Handle) {
	for i := range r.fixups {
		if r.fixups[i].Target == from {
			r.fixups[i].Target = to
		}
	}
}

// pipelineChainParsers are the chain parsers shared by the pipeline
// kinds.
var pipelineChainParsers = map[uint32]chainParser{
	STypePipelineLibraryCreateInfo: func(r *reader) (ChainEntry, error) {
		e := &PipelineLibraryCreateInfo{}
		err := r.fields(func(key string) error {
			var err error
			switch key {
			case "libraries":
				e.Libraries, err = r.pipelineHandleArray()
			default:
				err = r.unknown("pipelineLibrary", key)
			}
			return err
		})
		return e, err
	},
	STypeGraphicsPipelineLibraryCreateInfo: func(r *reader) (ChainEntry, error) {
		e := &GraphicsPipelineLibraryCreateInfo{}
		err := r.fields(func(key string) error {
			var err error
			switch key {
			case "flags":
				e.Flags, err = r.u32()
			default:
				err = r.unknown("graphicsPipelineLibrary", key)
			}
			return err
		})
		return e, err
	},
	STypePipelineRenderingCreateInfo: func(r *reader) (ChainEntry, error) {
		e := &PipelineRenderingCreateInfo{}
		err := r.fields(func(key string) error {
			var err error
			switch key {
			case "viewMask":
				e.ViewMask, err = r.u32()
			case "colorAttachmentFormats":
				e.ColorAttachmentFormats, err = r.u32s()
			case "depthAttachmentFormat":
				e.DepthAttachmentFormat, err = r.u32()
			case "stencilAttachmentFormat":
				e.StencilAttachmentFormat, err = r.u32()
			default:
				err = r.unknown("pipelineRendering", key)
			}
			return err
		})
		return e, err
	},
}

// ParseGraphicsPipeline deserializes a graphics pipeline payload.
func ParseGraphicsPipeline(data []byte, res Resolver) (*Result, error) {
	return parseDoc(data, TagGraphicsPipeline, res, func(r *reader) (any, error) {
		info := &GraphicsPipelineCreateInfo{}
		err := r.object(func(key string) error {
			var err error
			switch key {
			case "flags":
				info.Flags, err = r.u32()
			case "stages":
				err = r.array(func() error {
					s, err := r.stage()
					if err != nil {
						return err
					}
					info.Stages = append(info.Stages, s)
					return nil
				})
			case "vertexInputState":
				info.VertexInputState, err = r.vertexInputState()
			case "inputAssemblyState":
				info.InputAssemblyState, err = r.inputAssemblyState()
			case "tessellationState":
				info.TessellationState, err = r.tessellationState()
			case "viewportState":
				info.ViewportState, err = r.viewportState()
			case "rasterizationState":
				info.RasterizationState, err = r.rasterizationState()
			case "multisampleState":
				info.MultisampleState, err = r.multisampleState()
			case "depthStencilState":
				info.DepthStencilState, err = r.depthStencilState()
			case "colorBlendState":
				info.ColorBlendState, err = r.colorBlendState()
			case "dynamicState":
				info.DynamicState, err = r.dynamicState()
			case "layout":
				err = r.handleTo(TagPipelineLayout, &info.Layout)
			case "renderPass":
				err = r.handleTo(TagRenderPass, &info.RenderPass)
			case "subpass":
				info.Subpass, err = r.u32()
			case "basePipelineHandle":
				err = r.basePipeline()
			case "basePipelineIndex":
				info.BasePipelineIndex, err = r.i32()
			case "pNext":
				info.Chain, err = r.chain("graphicsPipeline", pipelineChainParsers)
			default:
				err = r.unknown("graphicsPipeline", key)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		return info, nil
	})
}

// ParseRaytracingPipeline deserializes a ray-tracing pipeline payload.
func ParseRaytracingPipeline(data []byte, res Resolver) (*Result, error) {
	return parseDoc(data, TagRaytracingPipeline, res, func(r *reader) (any, error) {
		info := &RayTracingPipelineCreateInfo{}
		err := r.object(func(key string) error {
			var err error
			switch key {
			case "flags":
				info.Flags, err = r.u32()
			case "stages":
				err = r.array(func() error {
					s, err := r.stage()
					if err != nil {
						return err
					}
					info.Stages = append(info.Stages, s)
					return nil
				})
			case "groups":
				err = r.array(func() error {
					var g RayTracingShaderGroupCreateInfo
					err := r.object(func(key string) error {
						var err error
						switch key {
						case "type":
							g.Type, err = r.u32()
						case "generalShader":
							g.GeneralShader, err = r.u32()
						case "closestHitShader":
							g.ClosestHitShader, err = r.u32()
						case "anyHitShader":
							g.AnyHitShader, err = r.u32()
						case "intersectionShader":
							g.IntersectionShader, err = r.u32()
						default:
							err = r.unknown("shaderGroup", key)
						}
						return err
					})
					if err != nil {
						return err
					}
					info.Groups = append(info.Groups, g)
					return nil
				})
			case "maxPipelineRayRecursionDepth":
				info.MaxPipelineRayRecursionDepth, err = r.u32()
			case "libraryInfo":
				info.LibraryInfo, err = r.libraryInfo()
			case "libraryInterface":
				info.LibraryInterface, err = r.libraryInterface()
			case "dynamicState":
				info.DynamicState, err = r.dynamicState()
			case "layout":
				err = r.handleTo(TagPipelineLayout, &info.Layout)
			case "basePipelineHandle":
				err = r.basePipeline()
			case "basePipelineIndex":
				info.BasePipelineIndex, err = r.i32()
			case "pNext":
				info.Chain, err = r.chain("raytracingPipeline", pipelineChainParsers)
			default:
				err = r.unknown("raytracingPipeline", key)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		return info, nil
	})
}

// libraryInfo parses an embedded pipeline-library record. The record's
// sType is captured explicitly and must match.
func (r *reader) libraryInfo() (*PipelineLibraryCreateInfo, error) {
	info := &PipelineLibraryCreateInfo{}
	sTypeSeen := false
	err := r.object(func(key string) error {
		var err error
		switch key {
		case "sType":
			var sType uint32
			sType, err = r.u32()
			if err == nil {
				sTypeSeen = true
				if sType != STypePipelineLibraryCreateInfo {
					err = fmt.Errorf("%w: sType %d", ErrInvalidSTypeForLibraries, sType)
				}
			}
		case "libraries":
			info.Libraries, err = r.pipelineHandleArray()
		default:
			err = r.unknown("libraryInfo", key)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if !sTypeSeen {
		return nil, fmt.Errorf("%w: missing sType", ErrInvalidSTypeForLibraries)
	}
	return info, nil
}

func (r *reader) libraryInterface() (*RayTracingPipelineInterfaceCreateInfo, error) {
	info := &RayTracingPipelineInterfaceCreateInfo{}
	err := r.object(func(key string) error {
		var err error
		switch key {
		case "maxPipelineRayPayloadSize":
			info.MaxPipelineRayPayloadSize, err = r.u32()
		case "maxPipelineRayHitAttributeSize":
			info.MaxPipelineRayHitAttributeSize, err = r.u32()
		default:
			err = r.unknown("libraryInterface", key)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}
