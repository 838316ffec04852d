package progress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/gogpu/prewarm/capture"
)

// Shared-memory block layout, all little-endian:
//
//	u32 magic, u32 version
//	per tag, per outcome: u64 counter
//
// Counters are bumped with atomic adds so the observer sees monotonic
// values without any locking on either side.
const (
	shmMagic   uint32 = 0x70777368 // "pwsh"
	shmVersion uint32 = 1

	shmHeaderSize = 8
	shmSize       = shmHeaderSize + int(capture.TagCount)*int(outcomeCount)*8
)

// ErrShortBlock is returned when the mapped descriptor is too small for
// the counter block.
var ErrShortBlock = errors.New("progress: shared memory block too small")

// SharedMem is a Sink that bumps counters in a shared mapping an
// external launcher watches. Safe for concurrent use.
type SharedMem struct {
	data []byte
}

// NewSharedMem maps fd and initializes the block header. The descriptor
// must refer to at least shmSize bytes (an ftruncated memfd or tmpfile).
func NewSharedMem(fd int) (*SharedMem, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, fmt.Errorf("progress: fstat shared block: %w", err)
	}
	if st.Size < int64(shmSize) {
		return nil, ErrShortBlock
	}
	data, err := unix.Mmap(fd, 0, shmSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("progress: mmap shared block: %w", err)
	}
	binary.LittleEndian.PutUint32(data[0:], shmMagic)
	binary.LittleEndian.PutUint32(data[4:], shmVersion)
	return &SharedMem{data: data}, nil
}

// Record implements Sink.
func (s *SharedMem) Record(tag capture.Tag, outcome Outcome) {
	if !tag.Valid() || outcome >= outcomeCount {
		return
	}
	off := shmHeaderSize + (int(tag)*int(outcomeCount)+int(outcome))*8
	ctr := (*atomic.Uint64)(unsafe.Pointer(&s.data[off]))
	ctr.Add(1)
}

// Counter reads one counter back; used by observers and tests.
func (s *SharedMem) Counter(tag capture.Tag, outcome Outcome) uint64 {
	if !tag.Valid() || outcome >= outcomeCount {
		return 0
	}
	off := shmHeaderSize + (int(tag)*int(outcomeCount)+int(outcome))*8
	return (*atomic.Uint64)(unsafe.Pointer(&s.data[off])).Load()
}

// Close unmaps the block. The fd stays open; it belongs to the caller.
func (s *SharedMem) Close() error {
	if s.data == nil {
		return nil
	}
	err := unix.Munmap(s.data)
	s.data = nil
	return err
}
