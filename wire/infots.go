package wire

import "encoding/binary"

// FlagInfoTSInvalidate is submessage flag bit 1 on INFO_TS: when set,
// no timestamp payload follows.
const FlagInfoTSInvalidate uint8 = 0x02

// InfoTS carries the source timestamp applied to submessages that
// follow it within the same message.
type InfoTS struct {
	Invalidate bool
	Timestamp  Time
}

// Encode renders the submessage (header + body) in little-endian.
func (m InfoTS) Encode() []byte {
	flags := FlagEndianLittle
	if m.Invalidate {
		flags |= FlagInfoTSInvalidate
		hdr := SubmsgHeader{ID: SubmsgIDInfoTS, Flags: flags, Length: 0}
		b := make([]byte, SubmsgHeaderLen)
		hdr.Encode(b)
		return b
	}
	hdr := SubmsgHeader{ID: SubmsgIDInfoTS, Flags: flags, Length: 8}
	b := make([]byte, SubmsgHeaderLen+8)
	hdr.Encode(b)
	m.Timestamp.Encode(b[SubmsgHeaderLen:], binary.LittleEndian)
	return b
}

// DecodeInfoTS parses an already-split submessage body.
func DecodeInfoTS(sm RawSubmessage) (InfoTS, error) {
	invalidate := sm.Header.Flags&FlagInfoTSInvalidate != 0
	if invalidate {
		return InfoTS{Invalidate: true, Timestamp: TimeInvalid}, nil
	}
	t, err := DecodeTime(sm.Body, sm.Order)
	if err != nil {
		return InfoTS{}, err
	}
	return InfoTS{Timestamp: t}, nil
}

// InfoDst redirects subsequent submessages in the message to a
// specific participant's GuidPrefix.
type InfoDst struct {
	GuidPrefix GuidPrefix
}

// Encode renders the submessage.
func (m InfoDst) Encode() []byte {
	hdr := SubmsgHeader{ID: SubmsgIDInfoDst, Flags: FlagEndianLittle, Length: GuidPrefixLen}
	b := make([]byte, SubmsgHeaderLen+GuidPrefixLen)
	hdr.Encode(b)
	copy(b[SubmsgHeaderLen:], m.GuidPrefix[:])
	return b
}

// DecodeInfoDst parses an already-split submessage body.
func DecodeInfoDst(sm RawSubmessage) (InfoDst, error) {
	if len(sm.Body) < GuidPrefixLen {
		return InfoDst{}, ErrTruncated
	}
	var m InfoDst
	copy(m.GuidPrefix[:], sm.Body[:GuidPrefixLen])
	return m, nil
}
