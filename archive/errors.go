package archive

import "errors"

// Package errors. Open failures are fatal to the replay; payload
// failures invalidate only the entry being fetched.
var (
	// ErrBadMagic is returned when the file does not start with Magic.
	ErrBadMagic = errors.New("archive: bad magic")

	// ErrBadVersion is returned for an unsupported format version.
	ErrBadVersion = errors.New("archive: unsupported format version")

	// ErrTruncated is returned when the header, a table, or a payload
	// extends past the end of the file.
	ErrTruncated = errors.New("archive: truncated file")

	// ErrTagOverflow is returned when an entry record carries a tag
	// outside the closed tag set or outside its own table section.
	ErrTagOverflow = errors.New("archive: entry tag out of range")

	// ErrCRCMismatch is returned when a payload fails its CRC-32 check.
	ErrCRCMismatch = errors.New("archive: payload checksum mismatch")

	// ErrDecompress is returned when DEFLATE decoding fails or yields
	// the wrong number of bytes.
	ErrDecompress = errors.New("archive: payload decompression failed")
)
