package wire

import (
	"encoding/binary"
	"time"
)

const nanosPerSec = 1e9

// Time is the RTPS NTP-derived Time_t: seconds since the Unix epoch
// plus a fraction of a second in units of 2^-32 seconds, RTPS spec
// 9.3.3.
type Time struct {
	Seconds  int32
	Fraction uint32
}

// TimeInvalid is the reserved "no timestamp" value.
var TimeInvalid = Time{Seconds: -1, Fraction: 0xffffffff}

// TimeFromGo converts a time.Time to its wire representation.
func TimeFromGo(t time.Time) Time {
	sec := uint32(t.Unix())
	frac := uint32((nanosPerSec - 1 + (int64(t.Nanosecond()) << 32)) / nanosPerSec)
	return Time{Seconds: int32(sec), Fraction: frac}
}

// ToGo converts a wire Time back to a time.Time (UTC).
func (t Time) ToGo() time.Time {
	nsec := (int64(t.Fraction) * nanosPerSec) >> 32
	return time.Unix(int64(t.Seconds), nsec).UTC()
}

// Encode writes t into b[0:8] in the given byte order.
func (t Time) Encode(b []byte, order binary.ByteOrder) {
	order.PutUint32(b[0:], uint32(t.Seconds))
	order.PutUint32(b[4:], t.Fraction)
}

// DecodeTime parses a Time out of b.
func DecodeTime(b []byte, order binary.ByteOrder) (Time, error) {
	if len(b) < 8 {
		return TimeInvalid, ErrTruncated
	}
	return Time{
		Seconds:  int32(order.Uint32(b[0:])),
		Fraction: order.Uint32(b[4:]),
	}, nil
}

// EncodeDuration writes d as whole seconds plus nanosecond remainder,
// matching this implementation's lease-duration parameters.
func EncodeDuration(d time.Duration, order binary.ByteOrder) []byte {
	b := make([]byte, 8)
	nsec := d.Nanoseconds()
	order.PutUint32(b[0:], uint32(nsec/nanosPerSec))
	order.PutUint32(b[4:], uint32(nsec%nanosPerSec))
	return b
}

// DecodeDuration parses the encoding produced by EncodeDuration.
func DecodeDuration(b []byte, order binary.ByteOrder) (time.Duration, error) {
	if len(b) < 8 {
		return 0, ErrTruncated
	}
	sec := order.Uint32(b[0:])
	nsec := order.Uint32(b[4:])
	return time.Duration(sec)*time.Second + time.Duration(nsec), nil
}
