package capture

import "fmt"

// ParseSampler deserializes a sampler payload.
func ParseSampler(data []byte, res Resolver) (*Result, error) {
	return parseDoc(data, TagSampler, res, func(r *reader) (any, error) {
		info := &SamplerCreateInfo{}
		err := r.object(func(key string) error {
			var err error
			switch key {
			case "flags":
				info.Flags, err = r.u32()
			case "magFilter":
				info.MagFilter, err = r.u32()
			case "minFilter":
				info.MinFilter, err = r.u32()
			case "mipmapMode":
				info.MipmapMode, err = r.u32()
			case "addressModeU":
				info.AddressModeU, err = r.u32()
			case "addressModeV":
				info.AddressModeV, err = r.u32()
			case "addressModeW":
				info.AddressModeW, err = r.u32()
			case "mipLodBias":
				info.MipLodBias, err = r.f32()
			case "anisotropyEnable":
				info.AnisotropyEnable, err = r.b32()
			case "maxAnisotropy":
				info.MaxAnisotropy, err = r.f32()
			case "compareEnable":
				info.CompareEnable, err = r.b32()
			case "compareOp":
				info.CompareOp, err = r.u32()
			case "minLod":
				info.MinLod, err = r.f32()
			case "maxLod":
				info.MaxLod, err = r.f32()
			case "borderColor":
				info.BorderColor, err = r.u32()
			case "unnormalizedCoordinates":
				info.UnnormalizedCoordinates, err = r.b32()
			case "pNext":
				info.Chain, err = r.chain("sampler", samplerChainParsers)
			default:
				err = r.unknown("sampler", key)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		return info, nil
	})
}

var samplerChainParsers = map[uint32]chainParser{
	STypeSamplerReductionModeCreateInfo: func(r *reader) (ChainEntry, error) {
		e := &SamplerReductionModeCreateInfo{}
		err := r.fields(func(key string) error {
			var err error
			switch key {
			case "reductionMode":
				e.ReductionMode, err = r.u32()
			default:
				err = r.unknown("samplerReductionMode", key)
			}
			return err
		})
		return e, err
	},
	STypeSamplerCustomBorderColorCreateInfo: func(r *reader) (ChainEntry, error) {
		e := &SamplerCustomBorderColorCreateInfo{}
		err := r.fields(func(key string) error {
			var err error
			switch key {
			case "customBorderColor":
				e.CustomBorderColor, err = r.f32x4()
			case "format":
				e.Format, err = r.u32()
			default:
				err = r.unknown("samplerCustomBorderColor", key)
			}
			return err
		})
		return e, err
	},
}

// ParseDescriptorSetLayout deserializes a descriptor set layout payload.
func ParseDescriptorSetLayout(data []byte, res Resolver) (*Result, error) {
	return parseDoc(data, TagDescriptorSetLayout, res, func(r *reader) (any, error) {
		info := &DescriptorSetLayoutCreateInfo{}
		err := r.object(func(key string) error {
			var err error
			switch key {
			case "flags":
				info.Flags, err = r.u32()
			case "bindings":
				err = r.array(func() error {
					var b DescriptorSetLayoutBinding
					err := r.object(func(key string) error {
						var err error
						switch key {
						case "binding":
							b.Binding, err = r.u32()
						case "descriptorType":
							b.DescriptorType, err = r.u32()
						case "descriptorCount":
							b.DescriptorCount, err = r.u32()
						case "stageFlags":
							b.StageFlags, err = r.u32()
						case "immutableSamplers":
							b.ImmutableSamplers, err = r.handleArray(TagSampler)
						default:
							err = r.unknown("setLayoutBinding", key)
						}
						return err
					})
					if err != nil {
						return err
					}
					info.Bindings = append(info.Bindings, b)
					return nil
				})
			case "pNext":
				info.Chain, err = r.chain("setLayout", setLayoutChainParsers)
			default:
				err = r.unknown("setLayout", key)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		return info, nil
	})
}

var setLayoutChainParsers = map[uint32]chainParser{
	STypeDescriptorSetLayoutBindingFlags: func(r *reader) (ChainEntry, error) {
		e := &DescriptorSetLayoutBindingFlagsCreateInfo{}
		err := r.fields(func(key string) error {
			var err error
			switch key {
			case "bindingFlags":
				e.BindingFlags, err = r.u32s()
			default:
				err = r.unknown("setLayoutBindingFlags", key)
			}
			return err
		})
		return e, err
	},
}

// ParsePipelineLayout deserializes a pipeline layout payload.
func ParsePipelineLayout(data []byte, res Resolver) (*Result, error) {
	return parseDoc(data, TagPipelineLayout, res, func(r *reader) (any, error) {
		info := &PipelineLayoutCreateInfo{}
		err := r.object(func(key string) error {
			var err error
			switch key {
			case "flags":
				info.Flags, err = r.u32()
			case "setLayouts":
				info.SetLayouts, err = r.handleArray(TagDescriptorSetLayout)
			case "pushConstantRanges":
				err = r.array(func() error {
					var p PushConstantRange
					err := r.object(func(key string) error {
						var err error
						switch key {
						case "stageFlags":
							p.StageFlags, err = r.u32()
						case "offset":
							p.Offset, err = r.u32()
						case "size":
							p.Size, err = r.u32()
						default:
							err = r.unknown("pushConstantRange", key)
						}
						return err
					})
					if err != nil {
						return err
					}
					info.PushConstantRanges = append(info.PushConstantRanges, p)
					return nil
				})
			default:
				err = r.unknown("pipelineLayout", key)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		return info, nil
	})
}

// ParseApplicationInfo deserializes the application identity record,
// including the requested device feature chain.
func ParseApplicationInfo(data []byte, res Resolver) (*Result, error) {
	return parseDoc(data, TagApplicationInfo, res, func(r *reader) (any, error) {
		info := &ApplicationInfo{}
		err := r.object(func(key string) error {
			var err error
			switch key {
			case "applicationName":
				info.ApplicationName, err = r.str()
			case "engineName":
				info.EngineName, err = r.str()
			case "applicationVersion":
				info.ApplicationVersion, err = r.u32()
			case "engineVersion":
				info.EngineVersion, err = r.u32()
			case "apiVersion":
				info.APIVersion, err = r.u32()
			case "features":
				info.Features, err = r.features2()
			case "extensions":
				err = r.array(func() error {
					s, err := r.str()
					if err != nil {
						return err
					}
					info.Extensions = append(info.Extensions, s)
					return nil
				})
			default:
				err = r.unknown("applicationInfo", key)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		return info, nil
	})
}

// features2 reads a features block: the named core booleans plus a
// pNext array of feature chain entries.
func (r *reader) features2() (*Features2, error) {
	f := NewFeatures2()
	err := r.object(func(key string) error {
		switch key {
		case "features":
			return r.object(func(name string) error {
				idx, ok := CoreFeatureIndex(name)
				if !ok {
					return r.unknown("features", name)
				}
				v, err := r.b32()
				if err != nil {
					return err
				}
				f.Core[idx] = v
				return nil
			})
		case "pNext":
			return r.array(func() error {
				if err := r.expectDelim('{'); err != nil {
					return err
				}
				key, err := r.key()
				if err != nil {
					return err
				}
				if key != "sType" {
					return fmt.Errorf("%w: feature chain entry must lead with sType", ErrInvalidJSON)
				}
				sType, err := r.u32()
				if err != nil {
					return err
				}
				typ, ok := FeatureChainTypeBySType(sType)
				if !ok {
					return fmt.Errorf("%w: feature sType %d", ErrUnknownExtension, sType)
				}
				entry := NewFeatureChainEntry(sType)
				err = r.fields(func(name string) error {
					for i, fieldName := range typ.Fields {
						if fieldName == name {
							v, err := r.b32()
							if err != nil {
								return err
							}
							entry.Bits[i] = v
							return nil
						}
					}
					return r.unknown(typ.Name, name)
				})
				if err != nil {
					return err
				}
				f.Chain = append(f.Chain, entry)
				return nil
			})
		default:
			return r.unknown("features2", key)
		}
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}
