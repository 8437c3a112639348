package wire

import "encoding/binary"

// ProtocolVersion is the RTPS wire protocol version this
// implementation speaks.
type ProtocolVersion struct {
	Major, Minor uint8
}

// SupportedVersion is the version this implementation writes; on read,
// a message whose major version differs from it is rejected.
var SupportedVersion = ProtocolVersion{Major: 2, Minor: 1}

// HeaderLen is the fixed size of the RTPS message header.
const HeaderLen = 4 + 2 + 2 + GuidPrefixLen

// Header opens every RTPS message.
type Header struct {
	Version    ProtocolVersion
	VendorID   VendorID
	GuidPrefix GuidPrefix
}

// Encode renders the 20-byte header.
func (h Header) Encode() []byte {
	b := make([]byte, HeaderLen)
	binary.BigEndian.PutUint32(b[0:], Magic)
	b[4], b[5] = h.Version.Major, h.Version.Minor
	binary.BigEndian.PutUint16(b[6:], uint16(h.VendorID))
	copy(b[8:], h.GuidPrefix[:])
	return b
}

// DecodeHeader parses and validates the header at the start of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, ErrTruncated
	}
	if binary.BigEndian.Uint32(b[0:]) != Magic {
		return Header{}, ErrBadMagic
	}
	h := Header{
		Version:  ProtocolVersion{Major: b[4], Minor: b[5]},
		VendorID: VendorID(binary.BigEndian.Uint16(b[6:])),
	}
	if h.Version.Major != SupportedVersion.Major {
		return Header{}, ErrProtocolVersion
	}
	copy(h.GuidPrefix[:], b[8:8+GuidPrefixLen])
	return h, nil
}

// Submessage ids implemented by this package.
const (
	SubmsgIDAckNack   uint8 = 0x06
	SubmsgIDHeartbeat uint8 = 0x07
	SubmsgIDInfoTS    uint8 = 0x09
	SubmsgIDInfoDst   uint8 = 0x0e
	SubmsgIDData      uint8 = 0x15
)

// FlagEndianLittle is submessage flag bit 0: set means the
// submessage body is little-endian.
const FlagEndianLittle uint8 = 0x01

// SubmsgHeaderLen is the fixed 4-byte submessage header size.
const SubmsgHeaderLen = 4

// SubmsgHeader is the 4-byte header preceding every submessage body.
type SubmsgHeader struct {
	ID     uint8
	Flags  uint8
	Length uint16 // bytes following this header; 0 on the last submessage means "to end of datagram"
}

// ByteOrder returns the byte order the flags indicate.
func (h SubmsgHeader) ByteOrder() binary.ByteOrder {
	if h.Flags&FlagEndianLittle != 0 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Encode writes the 4-byte submessage header into b.
func (h SubmsgHeader) Encode(b []byte) {
	b[0], b[1] = h.ID, h.Flags
	h.ByteOrder().PutUint16(b[2:], h.Length)
}

// RawSubmessage is a parsed-but-not-yet-decoded submessage: header
// plus its body bytes, with the byte order already resolved.
type RawSubmessage struct {
	Header SubmsgHeader
	Order  binary.ByteOrder
	Body   []byte
}

// SplitSubmessages walks the submessage stream following a message
// header, returning each one framed but undecoded. A submessage
// whose declared length would run past the end of the buffer is a
// Malformed condition: the whole packet is dropped,
// so this returns an error rather than the submessages parsed so far.
func SplitSubmessages(b []byte) ([]RawSubmessage, error) {
	var out []RawSubmessage
	for len(b) > 0 {
		if len(b) < SubmsgHeaderLen {
			return nil, ErrTruncated
		}
		hdr := SubmsgHeader{ID: b[0], Flags: b[1]}
		order := hdr.ByteOrder()
		hdr.Length = order.Uint16(b[2:])

		length := int(hdr.Length)
		if length == 0 {
			// "until end of datagram", valid only for the last submessage.
			length = len(b) - SubmsgHeaderLen
		}
		if length < 0 || len(b) < SubmsgHeaderLen+length {
			return nil, ErrLengthOverrun
		}
		out = append(out, RawSubmessage{
			Header: hdr,
			Order:  order,
			Body:   b[SubmsgHeaderLen : SubmsgHeaderLen+length],
		})
		b = b[SubmsgHeaderLen+length:]
	}
	return out, nil
}

// MessageBuilder accumulates encoded submessages behind a single
// message header.
type MessageBuilder struct {
	buf []byte
}

// NewMessageBuilder starts a message with the given header.
func NewMessageBuilder(h Header) *MessageBuilder {
	return &MessageBuilder{buf: append([]byte{}, h.Encode()...)}
}

// Append adds a fully-encoded submessage (header + body) to the message.
func (m *MessageBuilder) Append(encoded []byte) {
	m.buf = append(m.buf, encoded...)
}

// Bytes returns the accumulated datagram payload.
func (m *MessageBuilder) Bytes() []byte { return m.buf }
