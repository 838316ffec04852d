package capture

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gogpu/prewarm/internal/hashutil"
	"github.com/gogpu/prewarm/internal/logging"
)

// Resolver answers existence queries against the entry table while a
// payload is being parsed. A dependency hash that the resolver does not
// know is a NoHandle parse failure.
type Resolver interface {
	// Has reports whether (tag, hash) exists in the table.
	Has(tag Tag, hash uint64) bool

	// PipelineTag resolves a pipeline-library hash to the pipeline
	// family that actually holds it. Library references may cross
	// pipeline families, so the lookup spans all three pipeline tags.
	PipelineTag(hash uint64) (Tag, bool)
}

// Fixup records that a dependency's handle must be written to Target
// before the dependent's create call. A nil Target records a parse-order
// dependency with no slot to patch.
type Fixup struct {
	DepTag  Tag
	DepHash uint64
	Target  *Handle
}

// Result is the output of parsing one payload: the resolved descriptor
// tree plus the fixups the engine must fire during the create phase.
type Result struct {
	Version uint32
	Tag     Tag
	Hash    uint64
	Desc    any
	Fixups  []Fixup
}

// reader is a thin streaming layer over json.Decoder. All descriptor
// parsing goes through it so number/handle/blob handling and unknown
// field tolerance stay uniform across kinds.
type reader struct {
	dec    *json.Decoder
	res    Resolver
	fixups []Fixup
}

func newReader(data []byte, res Resolver) *reader {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return &reader{dec: dec, res: res}
}

func (r *reader) token() (json.Token, error) {
	tok, err := r.dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return tok, nil
}

func (r *reader) expectDelim(want rune) error {
	tok, err := r.token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || rune(d) != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrInvalidJSON, want, tok)
	}
	return nil
}

// key reads the next object key.
func (r *reader) key() (string, error) {
	tok, err := r.token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected object key, got %v", ErrInvalidJSON, tok)
	}
	return s, nil
}

// fields iterates the remaining keys of an already-opened object and
// consumes the closing brace.
func (r *reader) fields(fn func(key string) error) error {
	for r.dec.More() {
		key, err := r.key()
		if err != nil {
			return err
		}
		if err := fn(key); err != nil {
			return err
		}
	}
	return r.expectDelim('}')
}

// object reads a full JSON object, dispatching each key to fn.
func (r *reader) object(fn func(key string) error) error {
	if err := r.expectDelim('{'); err != nil {
		return err
	}
	return r.fields(fn)
}

// array reads a full JSON array, calling fn once per element.
func (r *reader) array(fn func() error) error {
	if err := r.expectDelim('['); err != nil {
		return err
	}
	for r.dec.More() {
		if err := fn(); err != nil {
			return err
		}
	}
	return r.expectDelim(']')
}

// skip consumes one complete value of any shape.
func (r *reader) skip() error {
	tok, err := r.token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return nil
	}
	if d != '{' && d != '[' {
		return fmt.Errorf("%w: unexpected delimiter %v", ErrInvalidJSON, d)
	}
	depth := 1
	for depth > 0 {
		tok, err := r.token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

// unknown tolerates an unrecognized field: its value is consumed and the
// occurrence logged.
func (r *reader) unknown(kind, key string) error {
	logging.L().Debug("ignoring unknown capture field", "kind", kind, "field", key)
	return r.skip()
}

func (r *reader) str() (string, error) {
	tok, err := r.token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected string, got %v", ErrInvalidJSON, tok)
	}
	return s, nil
}

func (r *reader) number() (json.Number, error) {
	tok, err := r.token()
	if err != nil {
		return "", err
	}
	n, ok := tok.(json.Number)
	if !ok {
		return "", fmt.Errorf("%w: expected number, got %v", ErrInvalidNumber, tok)
	}
	return n, nil
}

func (r *reader) u64() (uint64, error) {
	n, err := r.number()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, n.String())
	}
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	n, err := r.number()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(n.String(), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, n.String())
	}
	return uint32(v), nil
}

func (r *reader) i32() (int32, error) {
	n, err := r.number()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(n.String(), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, n.String())
	}
	return int32(v), nil
}

func (r *reader) f32() (float32, error) {
	n, err := r.number()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidFloat, err)
	}
	v, err := strconv.ParseFloat(n.String(), 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFloat, n.String())
	}
	return float32(v), nil
}

// b32 reads a 32-bit boolean; captures store these as 0/1 numbers but
// JSON true/false is tolerated.
func (r *reader) b32() (Bool32, error) {
	tok, err := r.token()
	if err != nil {
		return 0, err
	}
	switch v := tok.(type) {
	case json.Number:
		u, err := strconv.ParseUint(v.String(), 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, v.String())
		}
		return Bool32(u), nil
	case bool:
		return B32(v), nil
	}
	return 0, fmt.Errorf("%w: expected boolean, got %v", ErrInvalidNumber, tok)
}

func (r *reader) u32s() ([]uint32, error) {
	var out []uint32
	err := r.array(func() error {
		v, err := r.u32()
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

func (r *reader) i32s() ([]int32, error) {
	var out []int32
	err := r.array(func() error {
		v, err := r.i32()
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

func (r *reader) f32x4() ([4]float32, error) {
	var out [4]float32
	i := 0
	err := r.array(func() error {
		v, err := r.f32()
		if err != nil {
			return err
		}
		if i < 4 {
			out[i] = v
		}
		i++
		return nil
	})
	if err != nil {
		return out, err
	}
	if i != 4 {
		return out, fmt.Errorf("%w: expected 4 floats, got %d", ErrInvalidJSON, i)
	}
	return out, nil
}

// blob reads an inline base64 value.
func (r *reader) blob() ([]byte, error) {
	s, err := r.str()
	if err != nil {
		return nil, err
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	return b, nil
}

// hash reads a 16-hex-char content hash string.
func (r *reader) hash() (uint64, error) {
	s, err := r.str()
	if err != nil {
		return 0, err
	}
	h, err := hashutil.ParseHash(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a content hash", ErrInvalidJSON, s)
	}
	return h, nil
}

// handleTo reads a dependency hash and records a fixup aimed at slot.
// The all-zero hash means "no dependency": the slot stays null and no
// fixup is recorded.
func (r *reader) handleTo(tag Tag, slot *Handle) error {
	h, err := r.hash()
	if err != nil {
		return err
	}
	if h == 0 {
		return nil
	}
	if !r.res.Has(tag, h) {
		return fmt.Errorf("%w: %s %s", ErrNoHandle, tag, hashutil.FormatHash(h))
	}
	r.fixups = append(r.fixups, Fixup{DepTag: tag, DepHash: h, Target: slot})
	return nil
}

// handleArray reads an array of dependency hashes into a handle slice
// allocated at its final size, so each fixup target points directly at
// the element it will patch.
func (r *reader) handleArray(tag Tag) ([]Handle, error) {
	var hashes []uint64
	err := r.array(func() error {
		h, err := r.hash()
		if err != nil {
			return err
		}
		hashes = append(hashes, h)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(hashes) == 0 {
		return nil, nil
	}
	out := make([]Handle, len(hashes))
	for i, h := range hashes {
		if h == 0 {
			continue
		}
		if !r.res.Has(tag, h) {
			return nil, fmt.Errorf("%w: %s %s", ErrNoHandle, tag, hashutil.FormatHash(h))
		}
		r.fixups = append(r.fixups, Fixup{DepTag: tag, DepHash: h, Target: &out[i]})
	}
	return out, nil
}

// pipelineHandleArray reads library references, resolving each hash to
// whichever pipeline family actually holds it.
func (r *reader) pipelineHandleArray() ([]Handle, error) {
	var hashes []uint64
	err := r.array(func() error {
		h, err := r.hash()
		if err != nil {
			return err
		}
		hashes = append(hashes, h)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(hashes) == 0 {
		return nil, nil
	}
	out := make([]Handle, len(hashes))
	for i, h := range hashes {
		if h == 0 {
			continue
		}
		tag, ok := r.res.PipelineTag(h)
		if !ok {
			return nil, fmt.Errorf("%w: pipeline library %s", ErrNoHandle, hashutil.FormatHash(h))
		}
		r.fixups = append(r.fixups, Fixup{DepTag: tag, DepHash: h, Target: &out[i]})
	}
	return out, nil
}

// basePipeline reads a basePipelineHandle reference. Derivative
// pipelines are not replayed; any non-zero hash fails the root.
func (r *reader) basePipeline() error {
	h, err := r.hash()
	if err != nil {
		return err
	}
	if h != 0 {
		return fmt.Errorf("%w: base %s", ErrBasePipelinesNotSupported, hashutil.FormatHash(h))
	}
	return nil
}

// chainParser consumes the remaining fields of one chain entry after its
// sType has been read, including the entry's closing brace.
type chainParser func(r *reader) (ChainEntry, error)

// chain reads a pNext array of typed extension records. The first field
// of every record must be sType (the capture writer emits it first); an
// sType outside parsers fails the root with UnknownExtension.
func (r *reader) chain(kind string, parsers map[uint32]chainParser) ([]ChainEntry, error) {
	var out []ChainEntry
	err := r.array(func() error {
		if err := r.expectDelim('{'); err != nil {
			return err
		}
		key, err := r.key()
		if err != nil {
			return err
		}
		if key != "sType" {
			return fmt.Errorf("%w: chain entry in %s must lead with sType", ErrInvalidJSON, kind)
		}
		sType, err := r.u32()
		if err != nil {
			return err
		}
		p, ok := parsers[sType]
		if !ok {
			return fmt.Errorf("%w: sType %d in %s", ErrUnknownExtension, sType, kind)
		}
		entry, err := p(r)
		if err != nil {
			return err
		}
		out = append(out, entry)
		return nil
	})
	return out, err
}

// parseDoc handles the common document shell: a version field plus a
// single-key section object keyed by the content hash. body parses the
// descriptor value and runs with the reader positioned at it.
func parseDoc(data []byte, tag Tag, res Resolver, body func(r *reader) (any, error)) (*Result, error) {
	r := newReader(data, res)
	result := &Result{Tag: tag}
	seen := false
	err := r.object(func(key string) error {
		switch key {
		case "version":
			v, err := r.u32()
			if err != nil {
				return err
			}
			result.Version = v
			return nil
		case tag.Section():
			return r.object(func(hashKey string) error {
				if seen {
					return fmt.Errorf("%w: section %s holds more than one object", ErrInvalidJSON, key)
				}
				seen = true
				h, err := hashutil.ParseHash(hashKey)
				if err != nil {
					return fmt.Errorf("%w: section key %q is not a content hash", ErrInvalidJSON, hashKey)
				}
				result.Hash = h
				desc, err := body(r)
				if err != nil {
					return err
				}
				result.Desc = desc
				return nil
			})
		default:
			return r.unknown(tag.String(), key)
		}
	})
	if err != nil {
		return nil, err
	}
	if !seen {
		return nil, fmt.Errorf("%w: missing section %q", ErrInvalidJSON, tag.Section())
	}
	result.Fixups = r.fixups
	return result, nil
}
