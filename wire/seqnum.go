package wire

import "encoding/binary"

// SequenceNumber is a signed 64-bit value transmitted as a (high
// int32, low uint32) pair, RTPS spec 9.3.2.
type SequenceNumber int64

// SeqNumUnknown is the reserved "no sequence number" value.
const SeqNumUnknown SequenceNumber = -1

// NewSequenceNumber assembles a SequenceNumber from its wire halves.
func NewSequenceNumber(hi int32, lo uint32) SequenceNumber {
	return SequenceNumber(int64(hi)<<32 | int64(lo))
}

// Hi and Lo split a SequenceNumber back into its wire halves.
func (s SequenceNumber) Hi() int32  { return int32(int64(s) >> 32) }
func (s SequenceNumber) Lo() uint32 { return uint32(int64(s)) }

// PutSequenceNumber writes s into b[0:8] in the given byte order.
func PutSequenceNumber(b []byte, order binary.ByteOrder, s SequenceNumber) {
	order.PutUint32(b[0:], uint32(s.Hi()))
	order.PutUint32(b[4:], s.Lo())
}

// GetSequenceNumber reads a SequenceNumber from b[0:8].
func GetSequenceNumber(b []byte, order binary.ByteOrder) SequenceNumber {
	return NewSequenceNumber(int32(order.Uint32(b[0:])), order.Uint32(b[4:]))
}

// Count is a signed, monotonically increasing per-series counter used
// for heartbeat and acknack numbering, RTPS spec 8.3.5.
type Count int32

// SequenceNumberSet encodes the "still missing" bitmap carried by
// ACKNACK (and, in a fuller implementation, GAP) submessages, RTPS
// spec 9.4.2.6. Bit i set means sequence BitmapBase+i is missing.
type SequenceNumberSet struct {
	BitmapBase SequenceNumber
	NumBits    uint32
	Bitmap     []uint32
}

// BitmapWords returns how many uint32 words the bitmap occupies.
func (s SequenceNumberSet) BitmapWords() int {
	return int((s.NumBits + 31) / 32)
}

// Has reports whether sn is marked missing in the set.
func (s SequenceNumberSet) Has(sn SequenceNumber) bool {
	off := int64(sn - s.BitmapBase)
	if off < 0 || off >= int64(s.NumBits) {
		return false
	}
	word := s.Bitmap[off/32]
	bit := uint(31 - off%32) // MSB-first per RTPS spec 9.4.2.6
	return word&(1<<bit) != 0
}

// NewSequenceNumberSet builds a set with bitmapBase and the given
// missing sequence numbers (which must all be >= bitmapBase).
func NewSequenceNumberSet(bitmapBase SequenceNumber, missing []SequenceNumber) SequenceNumberSet {
	maxOff := uint32(0)
	for _, sn := range missing {
		off := uint32(sn - bitmapBase + 1)
		if off > maxOff {
			maxOff = off
		}
	}
	s := SequenceNumberSet{BitmapBase: bitmapBase, NumBits: maxOff}
	if maxOff == 0 {
		return s
	}
	s.Bitmap = make([]uint32, s.BitmapWords())
	for _, sn := range missing {
		off := uint32(sn - bitmapBase)
		word := off / 32
		bit := uint(31 - off%32)
		s.Bitmap[word] |= 1 << bit
	}
	return s
}

// EncodedLen returns the number of bytes Encode will produce.
func (s SequenceNumberSet) EncodedLen() int {
	return 12 + s.BitmapWords()*4
}

// Encode writes the set into b, which must be at least EncodedLen()
// bytes, in the given byte order.
func (s SequenceNumberSet) Encode(b []byte, order binary.ByteOrder) {
	PutSequenceNumber(b[0:], order, s.BitmapBase)
	order.PutUint32(b[8:], s.NumBits)
	for i, w := range s.Bitmap {
		order.PutUint32(b[12+i*4:], w)
	}
}

// DecodeSequenceNumberSet parses a set out of b.
func DecodeSequenceNumberSet(b []byte, order binary.ByteOrder) (SequenceNumberSet, int, error) {
	if len(b) < 12 {
		return SequenceNumberSet{}, 0, ErrTruncated
	}
	s := SequenceNumberSet{
		BitmapBase: GetSequenceNumber(b[0:], order),
		NumBits:    order.Uint32(b[8:]),
	}
	if s.NumBits > 256 {
		return SequenceNumberSet{}, 0, ErrLengthOverrun
	}
	words := s.BitmapWords()
	if len(b) < 12+words*4 {
		return SequenceNumberSet{}, 0, ErrLengthOverrun
	}
	s.Bitmap = make([]uint32, words)
	for i := range s.Bitmap {
		s.Bitmap[i] = order.Uint32(b[12+i*4:])
	}
	return s, 12 + words*4, nil
}
