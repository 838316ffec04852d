package capture

// Parsers for the graphics pipeline's fixed-function state blocks.

func (r *reader) vertexInputState() (*PipelineVertexInputStateCreateInfo, error) {
	info := &PipelineVertexInputStateCreateInfo{}
	err := r.object(func(key string) error {
		var err error
		switch key {
		case "flags":
			info.Flags, err = r.u32()
		case "bindings":
			err = r.array(func() error {
				var b VertexInputBindingDescription
				err := r.object(func(key string) error {
					var err error
					switch key {
					case "binding":
						b.Binding, err = r.u32()
					case "stride":
						b.Stride, err = r.u32()
					case "inputRate":
						b.InputRate, err = r.u32()
					default:
						err = r.unknown("vertexBinding", key)
					}
					return err
				})
				if err != nil {
					return err
				}
				info.Bindings = append(info.Bindings, b)
				return nil
			})
		case "attributes":
			err = r.array(func() error {
				var a VertexInputAttributeDescription
				err := r.object(func(key string) error {
					var err error
					switch key {
					case "location":
						a.Location, err = r.u32()
					case "binding":
						a.Binding, err = r.u32()
					case "format":
						a.Format, err = r.u32()
					case "offset":
						a.Offset, err = r.u32()
					default:
						err = r.unknown("vertexAttribute", key)
					}
					return err
				})
				if err != nil {
					return err
				}
				info.Attributes = append(info.Attributes, a)
				return nil
			})
		default:
			err = r.unknown("vertexInputState", key)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (r *reader) inputAssemblyState() (*PipelineInputAssemblyStateCreateInfo, error) {
	info := &PipelineInputAssemblyStateCreateInfo{}
	err := r.object(func(key string) error {
		var err error
		switch key {
		case "flags":
			info.Flags, err = r.u32()
		case "topology":
			info.Topology, err = r.u32()
		case "primitiveRestartEnable":
			info.PrimitiveRestartEnable, err = r.b32()
		default:
			err = r.unknown("inputAssemblyState", key)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (r *reader) tessellationState() (*PipelineTessellationStateCreateInfo, error) {
	info := &PipelineTessellationStateCreateInfo{}
	err := r.object(func(key string) error {
		var err error
		switch key {
		case "flags":
			info.Flags, err = r.u32()
		case "patchControlPoints":
			info.PatchControlPoints, err = r.u32()
		default:
			err = r.unknown("tessellationState", key)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (r *reader) viewportState() (*PipelineViewportStateCreateInfo, error) {
	info := &PipelineViewportStateCreateInfo{}
	err := r.object(func(key string) error {
		var err error
		switch key {
		case "flags":
			info.Flags, err = r.u32()
		case "viewports":
			err = r.array(func() error {
				var v Viewport
				err := r.object(func(key string) error {
					var err error
					switch key {
					case "x":
						v.X, err = r.f32()
					case "y":
						v.Y, err = r.f32()
					case "width":
						v.Width, err = r.f32()
					case "height":
						v.Height, err = r.f32()
					case "minDepth":
						v.MinDepth, err = r.f32()
					case "maxDepth":
						v.MaxDepth, err = r.f32()
					default:
						err = r.unknown("viewport", key)
					}
					return err
				})
				if err != nil {
					return err
				}
				info.Viewports = append(info.Viewports, v)
				return nil
			})
		case "scissors":
			err = r.array(func() error {
				var s Rect2D
				err := r.object(func(key string) error {
					var err error
					switch key {
					case "x":
						s.X, err = r.i32()
					case "y":
						s.Y, err = r.i32()
					case "width":
						s.Width, err = r.u32()
					case "height":
						s.Height, err = r.u32()
					default:
						err = r.unknown("scissor", key)
					}
					return err
				})
				if err != nil {
					return err
				}
				info.Scissors = append(info.Scissors, s)
				return nil
			})
		default:
			err = r.unknown("viewportState", key)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (r *reader) rasterizationState() (*PipelineRasterizationStateCreateInfo, error) {
	info := &PipelineRasterizationStateCreateInfo{}
	err := r.object(func(key string) error {
		var err error
		switch key {
		case "flags":
			info.Flags, err = r.u32()
		case "depthClampEnable":
			info.DepthClampEnable, err = r.b32()
		case "rasterizerDiscardEnable":
			info.RasterizerDiscardEnable, err = r.b32()
		case "polygonMode":
			info.PolygonMode, err = r.u32()
		case "cullMode":
			info.CullMode, err = r.u32()
		case "frontFace":
			info.FrontFace, err = r.u32()
		case "depthBiasEnable":
			info.DepthBiasEnable, err = r.b32()
		case "depthBiasConstantFactor":
			info.DepthBiasConstantFactor, err = r.f32()
		case "depthBiasClamp":
			info.DepthBiasClamp, err = r.f32()
		case "depthBiasSlopeFactor":
			info.DepthBiasSlopeFactor, err = r.f32()
		case "lineWidth":
			info.LineWidth, err = r.f32()
		default:
			err = r.unknown("rasterizationState", key)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (r *reader) multisampleState() (*PipelineMultisampleStateCreateInfo, error) {
	info := &PipelineMultisampleStateCreateInfo{}
	err := r.object(func(key string) error {
		var err error
		switch key {
		case "flags":
			info.Flags, err = r.u32()
		case "rasterizationSamples":
			info.RasterizationSamples, err = r.u32()
		case "sampleShadingEnable":
			info.SampleShadingEnable, err = r.b32()
		case "minSampleShading":
			info.MinSampleShading, err = r.f32()
		case "sampleMask":
			info.SampleMask, err = r.u32s()
		case "alphaToCoverageEnable":
			info.AlphaToCoverageEnable, err = r.b32()
		case "alphaToOneEnable":
			info.AlphaToOneEnable, err = r.b32()
		default:
			err = r.unknown("multisampleState", key)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (r *reader) stencilOpState() (StencilOpState, error) {
	var s StencilOpState
	err := r.object(func(key string) error {
		var err error
		switch key {
		case "failOp":
			s.FailOp, err = r.u32()
		case "passOp":
			s.PassOp, err = r.u32()
		case "depthFailOp":
			s.DepthFailOp, err = r.u32()
		case "compareOp":
			s.CompareOp, err = r.u32()
		case "compareMask":
			s.CompareMask, err = r.u32()
		case "writeMask":
			s.WriteMask, err = r.u32()
		case "reference":
			s.Reference, err = r.u32()
		default:
			err = r.unknown("stencilOpState", key)
		}
		return err
	})
	return s, err
}

func (r *reader) depthStencilState() (*PipelineDepthStencilStateCreateInfo, error) {
	info := &PipelineDepthStencilStateCreateInfo{}
	err := r.object(func(key string) error {
		var err error
		switch key {
		case "flags":
			info.Flags, err = r.u32()
		case "depthTestEnable":
			info.DepthTestEnable, err = r.b32()
		case "depthWriteEnable":
			info.DepthWriteEnable, err = r.b32()
		case "depthCompareOp":
			info.DepthCompareOp, err = r.u32()
		case "depthBoundsTestEnable":
			info.DepthBoundsTestEnable, err = r.b32()
		case "stencilTestEnable":
			info.StencilTestEnable, err = r.b32()
		case "front":
			info.Front, err = r.stencilOpState()
		case "back":
			info.Back, err = r.stencilOpState()
		case "minDepthBounds":
			info.MinDepthBounds, err = r.f32()
		case "maxDepthBounds":
			info.MaxDepthBounds, err = r.f32()
		default:
			err = r.unknown("depthStencilState", key)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (r *reader) colorBlendState() (*PipelineColorBlendStateCreateInfo, error) {
	info := &PipelineColorBlendStateCreateInfo{}
	err := r.object(func(key string) error {
		var err error
		switch key {
		case "flags":
			info.Flags, err = r.u32()
		case "logicOpEnable":
			info.LogicOpEnable, err = r.b32()
		case "logicOp":
			info.LogicOp, err = r.u32()
		case "attachments":
			err = r.array(func() error {
				var a PipelineColorBlendAttachmentState
				err := r.object(func(key string) error {
					var err error
					switch key {
					case "blendEnable":
						a.BlendEnable, err = r.b32()
					case "srcColorBlendFactor":
						a.SrcColorBlendFactor, err = r.u32()
					case "dstColorBlendFactor":
						a.DstColorBlendFactor, err = r.u32()
					case "colorBlendOp":
						a.ColorBlendOp, err = r.u32()
					case "srcAlphaBlendFactor":
						a.SrcAlphaBlendFactor, err = r.u32()
					case "dstAlphaBlendFactor":
						a.DstAlphaBlendFactor, err = r.u32()
					case "alphaBlendOp":
						a.AlphaBlendOp, err = r.u32()
					case "colorWriteMask":
						a.ColorWriteMask, err = r.u32()
					default:
						err = r.unknown("blendAttachment", key)
					}
					return err
				})
				if err != nil {
					return err
				}
				info.Attachments = append(info.Attachments, a)
				return nil
			})
		case "blendConstants":
			info.BlendConstants, err = r.f32x4()
		default:
			err = r.unknown("colorBlendState", key)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (r *reader) dynamicState() (*PipelineDynamicStateCreateInfo, error) {
	info := &PipelineDynamicStateCreateInfo{}
	err := r.object(func(key string) error {
		var err error
		switch key {
		case "flags":
			info.Flags, err = r.u32()
		case "dynamicStates":
			info.DynamicStates, err = r.u32s()
		default:
			err = r.unknown("dynamicState", key)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}
