package archive

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/klauspost/compress/flate"
	"golang.org/x/sys/unix"

	"github.com/gogpu/prewarm/capture"
	"github.com/gogpu/prewarm/internal/hashutil"
)

// Entry is one captured object's archive locator. Entries are immutable
// after Open; replay state lives in the entry table, not here.
type Entry struct {
	Tag        capture.Tag
	Hash       uint64
	Flag       uint8
	CRC        uint32
	StoredSize uint64
	DecompSize uint64
	Offset     uint64
}

// Archive is a read-only, memory-mapped capture archive. It is safe for
// concurrent use: payload fetch reads the shared mapping and never
// mutates archive state.
type Archive struct {
	f    *os.File
	data []byte

	entries [capture.TagCount][]Entry
	byHash  [capture.TagCount]map[uint64]*Entry
}

// Open maps path read-only and parses the header and per-tag entry
// tables. Entries within a tag are ordered by ascending hash.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: stat %s: %w", path, err)
	}
	size := st.Size()
	if size < int64(headerSize) {
		f.Close()
		return nil, ErrTruncated
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: mmap %s: %w", path, err)
	}

	a := &Archive{f: f, data: data}
	if err := a.parse(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) parse() error {
	if string(a.data[:len(Magic)]) != Magic {
		return ErrBadMagic
	}
	if v := a.data[len(Magic)]; v != FormatVersion {
		return fmt.Errorf("%w: %d", ErrBadVersion, v)
	}

	pos := headerSize
	for tag := capture.Tag(0); tag < capture.TagCount; tag++ {
		if pos+4 > len(a.data) {
			return ErrTruncated
		}
		count := binary.BigEndian.Uint32(a.data[pos:])
		pos += 4
		need := int(count) * recordSize
		if pos+need > len(a.data) {
			return ErrTruncated
		}
		entries := make([]Entry, 0, count)
		for i := uint32(0); i < count; i++ {
			rec := a.data[pos : pos+recordSize]
			pos += recordSize
			e := Entry{
				Tag:        capture.Tag(rec[0]),
				Hash:       binary.BigEndian.Uint64(rec[1:]),
				Flag:       rec[9],
				CRC:        binary.BigEndian.Uint32(rec[10:]),
				StoredSize: binary.BigEndian.Uint64(rec[14:]),
				DecompSize: binary.BigEndian.Uint64(rec[22:]),
				Offset:     binary.BigEndian.Uint64(rec[30:]),
			}
			if !e.Tag.Valid() || e.Tag != tag {
				return fmt.Errorf("%w: tag %d in %s table", ErrTagOverflow, rec[0], tag)
			}
			end := e.Offset + e.StoredSize
			if end < e.Offset || end > uint64(len(a.data)) {
				return ErrTruncated
			}
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Hash < entries[j].Hash })
		a.entries[tag] = entries
		byHash := make(map[uint64]*Entry, len(entries))
		for i := range entries {
			byHash[entries[i].Hash] = &entries[i]
		}
		a.byHash[tag] = byHash
	}
	return nil
}

// Close unmaps the archive. Payload slices handed out earlier must not
// be dereferenced afterwards.
func (a *Archive) Close() error {
	var err error
	if a.data != nil {
		err = unix.Munmap(a.data)
		a.data = nil
	}
	if a.f != nil {
		if cerr := a.f.Close(); err == nil {
			err = cerr
		}
		a.f = nil
	}
	return err
}

// Get returns the entry for (tag, hash), or nil.
func (a *Archive) Get(tag capture.Tag, hash uint64) *Entry {
	if !tag.Valid() {
		return nil
	}
	return a.byHash[tag][hash]
}

// Entries returns the tag's entries in ascending hash order. The
// returned slice is shared and must not be mutated.
func (a *Archive) Entries(tag capture.Tag) []Entry {
	if !tag.Valid() {
		return nil
	}
	return a.entries[tag]
}

// Payload fetches and verifies an entry's payload. The result is
// returned in buf's storage when capacity allows; it stays valid until
// the caller reuses the buffer.
func (a *Archive) Payload(e *Entry, buf []byte) ([]byte, error) {
	raw := a.data[e.Offset : e.Offset+e.StoredSize]

	var out []byte
	switch e.Flag {
	case FlagRaw:
		if e.StoredSize != e.DecompSize {
			return nil, fmt.Errorf("%w: raw entry %s/%s sizes disagree",
				ErrDecompress, e.Tag, hashutil.FormatHash(e.Hash))
		}
		out = grow(buf, int(e.DecompSize))
		copy(out, raw)
	case FlagDeflate:
		out = grow(buf, int(e.DecompSize))
		fr := flate.NewReader(newByteReader(raw))
		if _, err := io.ReadFull(fr, out); err != nil {
			fr.Close()
			return nil, fmt.Errorf("%w: %s/%s: %v",
				ErrDecompress, e.Tag, hashutil.FormatHash(e.Hash), err)
		}
		// The stream must end exactly at the declared size.
		var one [1]byte
		if n, _ := fr.Read(one[:]); n != 0 {
			fr.Close()
			return nil, fmt.Errorf("%w: %s/%s: stream longer than declared",
				ErrDecompress, e.Tag, hashutil.FormatHash(e.Hash))
		}
		fr.Close()
	default:
		return nil, fmt.Errorf("%w: payload flag %d", ErrDecompress, e.Flag)
	}

	if err := hashutil.VerifyChecksum(out, e.CRC); err != nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrCRCMismatch, e.Tag, hashutil.FormatHash(e.Hash))
	}
	return out, nil
}

// grow returns a slice of length n, reusing buf's storage when it fits.
func grow(buf []byte, n int) []byte {
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]byte, n)
}

// byteReader is a minimal io.Reader over a mapped byte range, avoiding
// a bytes.Reader allocation per fetch.
type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader { return &byteReader{data: data} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func (r *byteReader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// Stats summarizes the archive contents.
type Stats struct {
	Entries      [capture.TagCount]int
	StoredBytes  uint64
	PayloadBytes uint64
}

// Stats computes per-tag entry counts and payload volume.
func (a *Archive) Stats() Stats {
	var s Stats
	for tag := capture.Tag(0); tag < capture.TagCount; tag++ {
		s.Entries[tag] = len(a.entries[tag])
		for i := range a.entries[tag] {
			s.StoredBytes += a.entries[tag][i].StoredSize
			s.PayloadBytes += a.entries[tag][i].DecompSize
		}
	}
	return s
}
