package wire

import "errors"

// Sentinel decode errors. Every wire-level parser bounds its reads by
// the remaining buffer length and returns one of these instead of
// panicking or reading past the slice; a malformed packet is dropped
// whole, never allowed to crash the process.
var (
	// ErrTruncated means the buffer ended before a fixed-size field
	// could be read in full.
	ErrTruncated = errors.New("wire: truncated")
	// ErrBadMagic means the message did not start with "RTPS".
	ErrBadMagic = errors.New("wire: bad magic")
	// ErrProtocolVersion means the message's major protocol version
	// differs from the one this implementation speaks.
	ErrProtocolVersion = errors.New("wire: unsupported protocol version")
	// ErrLengthOverrun means a length-prefixed field claims more
	// bytes than remain in the buffer.
	ErrLengthOverrun = errors.New("wire: length overrun")
)
