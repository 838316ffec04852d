package capture

import (
	"bytes"
	"fmt"

	"github.com/gogpu/prewarm/internal/hashutil"
)

// ParseShaderModule deserializes a shader module payload. The payload is
// JSON describing the module, a single NUL terminator, then the
// varint-encoded SPIR-V word stream. The JSON carries the stream
// geometry: varintOffset/varintSize locate the encoded region within the
// trailing bytes and codeSize is the decoded size in bytes.
func ParseShaderModule(data []byte, res Resolver) (*Result, error) {
	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		return nil, ErrNoShaderCodePayload
	}
	jsonPart, stream := data[:nul], data[nul+1:]
	if len(stream) == 0 {
		return nil, ErrNoShaderCodePayload
	}

	var (
		varintOffset uint64
		varintSize   uint64
	)
	result, err := parseDoc(jsonPart, TagShaderModule, res, func(r *reader) (any, error) {
		info := &ShaderModuleCreateInfo{}
		err := r.object(func(key string) error {
			var err error
			switch key {
			case "flags":
				info.Flags, err = r.u32()
			case "codeSize":
				info.CodeSize, err = r.u64()
			case "varintOffset":
				varintOffset, err = r.u64()
			case "varintSize":
				varintSize, err = r.u64()
			default:
				err = r.unknown("shaderModule", key)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		return info, nil
	})
	if err != nil {
		return nil, err
	}

	info := result.Desc.(*ShaderModuleCreateInfo)
	if info.CodeSize == 0 || info.CodeSize%4 != 0 {
		return nil, fmt.Errorf("%w: codeSize %d", ErrInvalidShaderPayload, info.CodeSize)
	}
	end := varintOffset + varintSize
	if varintSize == 0 || end < varintOffset || end > uint64(len(stream)) {
		return nil, fmt.Errorf("%w: varint region [%d, %d) outside %d-byte stream",
			ErrInvalidShaderPayload, varintOffset, end, len(stream))
	}

	info.Code = make([]uint32, info.CodeSize/4)
	if err := hashutil.DecodeVarintWords(stream[varintOffset:end], info.Code); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShaderPayloadEncoding, err)
	}
	return result, nil
}
