package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/prewarm/capture"
)

func writeArchive(t *testing.T, b *Builder) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pwc")
	if err := b.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestOpenRoundTrip(t *testing.T) {
	small := []byte(`{"version": 6}`)
	big := make([]byte, 64*1024)
	for i := range big {
		big[i] = byte(i * 31)
	}

	b := NewBuilder().
		Add(capture.TagSampler, 0xb, small).
		Add(capture.TagSampler, 0xa, []byte("second")).
		AddCompressed(capture.TagShaderModule, 0xc, big)
	a, err := Open(writeArchive(t, b))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	samplers := a.Entries(capture.TagSampler)
	if len(samplers) != 2 {
		t.Fatalf("sampler entries: %d", len(samplers))
	}
	if samplers[0].Hash != 0xa || samplers[1].Hash != 0xb {
		t.Errorf("entries not hash-ordered: %#x %#x", samplers[0].Hash, samplers[1].Hash)
	}

	got, err := a.Payload(a.Get(capture.TagSampler, 0xb), nil)
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if string(got) != string(small) {
		t.Errorf("payload mismatch: %q", got)
	}

	// Compressed payload decompresses to the declared size and content.
	sm := a.Get(capture.TagShaderModule, 0xc)
	if sm.Flag != FlagDeflate {
		t.Fatalf("expected deflate flag, got %d", sm.Flag)
	}
	if sm.StoredSize >= sm.DecompSize {
		t.Errorf("compression did not shrink payload: %d >= %d", sm.StoredSize, sm.DecompSize)
	}
	buf := make([]byte, 0, len(big))
	got, err = a.Payload(sm, buf)
	if err != nil {
		t.Fatalf("Payload(deflate): %v", err)
	}
	if len(got) != len(big) {
		t.Fatalf("decompressed size %d, want %d", len(got), len(big))
	}
	for i := range big {
		if got[i] != big[i] {
			t.Fatalf("byte %d differs", i)
		}
	}

	stats := a.Stats()
	if stats.Entries[capture.TagSampler] != 2 || stats.Entries[capture.TagShaderModule] != 1 {
		t.Errorf("stats: %+v", stats.Entries)
	}
}

func TestOpenBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pwc")
	if err := os.WriteFile(path, []byte("NOTANARCHIVEFILE....."), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("got %v, want ErrBadMagic", err)
	}
}

func TestOpenTruncated(t *testing.T) {
	b := NewBuilder().Add(capture.TagSampler, 1, []byte("payload"))
	data, err := b.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	for _, cut := range []int{4, headerSize + 2, len(data) - 3} {
		path := filepath.Join(t.TempDir(), "trunc.pwc")
		if err := os.WriteFile(path, data[:cut], 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Open(path); !errors.Is(err, ErrTruncated) {
			t.Errorf("cut at %d: got %v, want ErrTruncated", cut, err)
		}
	}
}

func TestOpenTagOverflow(t *testing.T) {
	b := NewBuilder().Add(capture.TagSampler, 1, []byte("payload"))
	data, err := b.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	// First record lives in the sampler table; overwrite its tag byte.
	// The tables before it are empty (4 bytes of count each).
	recStart := headerSize + 4*int(capture.TagSampler) + 4
	data[recStart] = byte(capture.TagCount) + 7
	path := filepath.Join(t.TempDir(), "overflow.pwc")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); !errors.Is(err, ErrTagOverflow) {
		t.Fatalf("got %v, want ErrTagOverflow", err)
	}
}

func TestPayloadCRCMismatch(t *testing.T) {
	b := NewBuilder().AddCorrupt(capture.TagSampler, 1, []byte("payload"))
	a, err := Open(writeArchive(t, b))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()
	if _, err := a.Payload(a.Get(capture.TagSampler, 1), nil); !errors.Is(err, ErrCRCMismatch) {
		t.Fatalf("got %v, want ErrCRCMismatch", err)
	}
}

func TestPayloadBadDeflate(t *testing.T) {
	b := NewBuilder().AddCompressed(capture.TagSampler, 1, []byte("some payload bytes"))
	data, err := b.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	// Corrupt the stored (compressed) stream.
	data[len(data)-4] ^= 0xff
	data[len(data)-5] ^= 0xff
	path := filepath.Join(t.TempDir(), "baddeflate.pwc")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()
	_, err = a.Payload(a.Get(capture.TagSampler, 1), nil)
	if !errors.Is(err, ErrDecompress) && !errors.Is(err, ErrCRCMismatch) {
		t.Fatalf("got %v, want ErrDecompress or ErrCRCMismatch", err)
	}
}

func TestGetMissing(t *testing.T) {
	a, err := Open(writeArchive(t, NewBuilder()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()
	if e := a.Get(capture.TagSampler, 0x123); e != nil {
		t.Errorf("expected nil entry, got %+v", e)
	}
}
