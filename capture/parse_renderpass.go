package capture

// ParseRenderPass deserializes a render pass payload.
func ParseRenderPass(data []byte, res Resolver) (*Result, error) {
	return parseDoc(data, TagRenderPass, res, func(r *reader) (any, error) {
		info := &RenderPassCreateInfo{}
		err := r.object(func(key string) error {
			var err error
			switch key {
			case "flags":
				info.Flags, err = r.u32()
			case "attachments":
				err = r.array(func() error {
					var a AttachmentDescription
					err := r.object(func(key string) error {
						var err error
						switch key {
						case "flags":
							a.Flags, err = r.u32()
						case "format":
							a.Format, err = r.u32()
						case "samples":
							a.Samples, err = r.u32()
						case "loadOp":
							a.LoadOp, err = r.u32()
						case "storeOp":
							a.StoreOp, err = r.u32()
						case "stencilLoadOp":
							a.StencilLoadOp, err = r.u32()
						case "stencilStoreOp":
							a.StencilStoreOp, err = r.u32()
						case "initialLayout":
							a.InitialLayout, err = r.u32()
						case "finalLayout":
							a.FinalLayout, err = r.u32()
						default:
							err = r.unknown("attachment", key)
						}
						return err
					})
					if err != nil {
						return err
					}
					info.Attachments = append(info.Attachments, a)
					return nil
				})
			case "subpasses":
				err = r.array(func() error {
					s, err := r.subpass()
					if err != nil {
						return err
					}
					info.Subpasses = append(info.Subpasses, s)
					return nil
				})
			case "dependencies":
				err = r.array(func() error {
					var d SubpassDependency
					err := r.object(func(key string) error {
						var err error
						switch key {
						case "srcSubpass":
							d.SrcSubpass, err = r.u32()
						case "dstSubpass":
							d.DstSubpass, err = r.u32()
						case "srcStageMask":
							d.SrcStageMask, err = r.u32()
						case "dstStageMask":
							d.DstStageMask, err = r.u32()
						case "srcAccessMask":
							d.SrcAccessMask, err = r.u32()
						case "dstAccessMask":
							d.DstAccessMask, err = r.u32()
						case "dependencyFlags":
							d.DependencyFlags, err = r.u32()
						default:
							err = r.unknown("subpassDependency", key)
						}
						return err
					})
					if err != nil {
						return err
					}
					info.Dependencies = append(info.Dependencies, d)
					return nil
				})
			case "pNext":
				info.Chain, err = r.chain("renderPass", renderPassChainParsers)
			default:
				err = r.unknown("renderPass", key)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		return info, nil
	})
}

func (r *reader) subpass() (SubpassDescription, error) {
	var s SubpassDescription
	err := r.object(func(key string) error {
		var err error
		switch key {
		case "flags":
			s.Flags, err = r.u32()
		case "pipelineBindPoint":
			s.PipelineBindPoint, err = r.u32()
		case "inputAttachments":
			s.InputAttachments, err = r.attachmentRefs()
		case "colorAttachments":
			s.ColorAttachments, err = r.attachmentRefs()
		case "resolveAttachments":
			s.ResolveAttachments, err = r.attachmentRefs()
		case "depthStencilAttachment":
			var ref AttachmentReference
			ref, err = r.attachmentRef()
			if err == nil {
				s.DepthStencilAttachment = &ref
			}
		case "preserveAttachments":
			s.PreserveAttachments, err = r.u32s()
		default:
			err = r.unknown("subpass", key)
		}
		return err
	})
	return s, err
}

func (r *reader) attachmentRef() (AttachmentReference, error) {
	var ref AttachmentReference
	err := r.object(func(key string) error {
		var err error
		switch key {
		case "attachment":
			ref.Attachment, err = r.u32()
		case "layout":
			ref.Layout, err = r.u32()
		default:
			err = r.unknown("attachmentReference", key)
		}
		return err
	})
	return ref, err
}

func (r *reader) attachmentRefs() ([]AttachmentReference, error) {
	var out []AttachmentReference
	err := r.array(func() error {
		ref, err := r.attachmentRef()
		if err != nil {
			return err
		}
		out = append(out, ref)
		return nil
	})
	return out, err
}

var renderPassChainParsers = map[uint32]chainParser{
	STypeRenderPassMultiviewCreateInfo: func(r *reader) (ChainEntry, error) {
		e := &RenderPassMultiviewCreateInfo{}
		err := r.fields(func(key string) error {
			var err error
			switch key {
			case "viewMasks":
				e.ViewMasks, err = r.u32s()
			case "viewOffsets":
				e.ViewOffsets, err = r.i32s()
			case "correlationMasks":
				e.CorrelationMasks, err = r.u32s()
			default:
				err = r.unknown("renderPassMultiview", key)
			}
			return err
		})
		return e, err
	},
}
