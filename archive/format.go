// Package archive implements the content-addressed pipeline capture
// archive: a memory-mapped, checksummed block store keyed by a 64-bit
// content hash tagged by object kind.
//
// Layout:
//
//	header:  16-byte magic, 1-byte format version, 3 reserved bytes
//	tables:  for each tag in enumeration order, a 4-byte big-endian
//	         entry count followed by that many entry records
//	payload: concatenated blobs at the offsets the records state
//
// An entry record is 38 bytes: 1-byte tag, 8-byte hash, 1-byte payload
// flag (0 raw, 1 deflate), 4-byte CRC-32, 8-byte stored size, 8-byte
// decompressed size, 8-byte file offset. Multi-byte fields are
// big-endian.
package archive

// Magic identifies a prewarm capture archive.
const Magic = "PREWARMPIPECACHE"

// FormatVersion is the archive format this package reads and writes.
const FormatVersion = 1

const (
	headerSize = len(Magic) + 4 // magic + version + 3 reserved
	recordSize = 1 + 8 + 1 + 4 + 8 + 8 + 8
)

// Payload flags.
const (
	// FlagRaw marks an uncompressed payload.
	FlagRaw uint8 = 0

	// FlagDeflate marks a DEFLATE-compressed payload.
	FlagDeflate uint8 = 1
)
