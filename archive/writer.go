package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"github.com/klauspost/compress/flate"

	"github.com/gogpu/prewarm/capture"
	"github.com/gogpu/prewarm/internal/hashutil"
)

// Builder assembles an archive in memory. It backs the capture side of
// the toolchain and the test fixtures in this repository.
type Builder struct {
	payloads [capture.TagCount]map[uint64]builderPayload
}

type builderPayload struct {
	data     []byte
	compress bool
	// badCRC, when set, stamps the record with an intentionally wrong
	// checksum. Fixture-only.
	badCRC bool
}

// NewBuilder returns an empty archive builder.
func NewBuilder() *Builder {
	b := &Builder{}
	for tag := capture.Tag(0); tag < capture.TagCount; tag++ {
		b.payloads[tag] = make(map[uint64]builderPayload)
	}
	return b
}

// Add records a payload for (tag, hash), replacing any previous one.
func (b *Builder) Add(tag capture.Tag, hash uint64, payload []byte) *Builder {
	b.payloads[tag][hash] = builderPayload{data: payload}
	return b
}

// AddCompressed records a payload stored with DEFLATE.
func (b *Builder) AddCompressed(tag capture.Tag, hash uint64, payload []byte) *Builder {
	b.payloads[tag][hash] = builderPayload{data: payload, compress: true}
	return b
}

// AddCorrupt records a payload whose stored CRC will not match.
func (b *Builder) AddCorrupt(tag capture.Tag, hash uint64, payload []byte) *Builder {
	b.payloads[tag][hash] = builderPayload{data: payload, badCRC: true}
	return b
}

// Bytes serializes the archive.
func (b *Builder) Bytes() ([]byte, error) {
	type pending struct {
		rec    Entry
		stored []byte
	}
	var all []pending

	// Tables first, payload heap after; offsets are known once every
	// stored blob is sized.
	tableBytes := 0
	for tag := capture.Tag(0); tag < capture.TagCount; tag++ {
		tableBytes += 4 + len(b.payloads[tag])*recordSize
	}
	offset := uint64(headerSize + tableBytes)

	var counts [capture.TagCount]uint32
	for tag := capture.Tag(0); tag < capture.TagCount; tag++ {
		hashes := make([]uint64, 0, len(b.payloads[tag]))
		for h := range b.payloads[tag] {
			hashes = append(hashes, h)
		}
		sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
		counts[tag] = uint32(len(hashes))

		for _, h := range hashes {
			p := b.payloads[tag][h]
			stored := p.data
			flag := FlagRaw
			if p.compress {
				var buf bytes.Buffer
				fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
				if err != nil {
					return nil, fmt.Errorf("archive: deflate init: %w", err)
				}
				if _, err := fw.Write(p.data); err != nil {
					return nil, fmt.Errorf("archive: deflate: %w", err)
				}
				if err := fw.Close(); err != nil {
					return nil, fmt.Errorf("archive: deflate: %w", err)
				}
				stored = buf.Bytes()
				flag = FlagDeflate
			}
			crc := hashutil.Checksum(p.data)
			if p.badCRC {
				crc = ^crc
			}
			all = append(all, pending{
				rec: Entry{
					Tag:        tag,
					Hash:       h,
					Flag:       flag,
					CRC:        crc,
					StoredSize: uint64(len(stored)),
					DecompSize: uint64(len(p.data)),
					Offset:     offset,
				},
				stored: stored,
			})
			offset += uint64(len(stored))
		}
	}

	var out bytes.Buffer
	out.Grow(int(offset))
	out.WriteString(Magic)
	out.WriteByte(FormatVersion)
	out.Write([]byte{0, 0, 0})

	i := 0
	for tag := capture.Tag(0); tag < capture.TagCount; tag++ {
		var cnt [4]byte
		binary.BigEndian.PutUint32(cnt[:], counts[tag])
		out.Write(cnt[:])
		for j := uint32(0); j < counts[tag]; j++ {
			rec := all[i].rec
			i++
			var r [recordSize]byte
			r[0] = byte(rec.Tag)
			binary.BigEndian.PutUint64(r[1:], rec.Hash)
			r[9] = rec.Flag
			binary.BigEndian.PutUint32(r[10:], rec.CRC)
			binary.BigEndian.PutUint64(r[14:], rec.StoredSize)
			binary.BigEndian.PutUint64(r[22:], rec.DecompSize)
			binary.BigEndian.PutUint64(r[30:], rec.Offset)
			out.Write(r[:])
		}
	}
	for _, p := range all {
		out.Write(p.stored)
	}
	return out.Bytes(), nil
}

// WriteFile serializes the archive to path.
func (b *Builder) WriteFile(path string) error {
	data, err := b.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
