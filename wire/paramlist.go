package wire

import "encoding/binary"

// ParamID identifies a PL_CDR parameter, RTPS spec 9.6.3.
type ParamID uint16

// Parameter ids handled by this implementation.
const (
	PIDPad                       ParamID = 0x0000
	PIDSentinel                  ParamID = 0x0001
	PIDParticipantLeaseDuration  ParamID = 0x0002
	PIDTopicName                 ParamID = 0x0005
	PIDTypeName                  ParamID = 0x0007
	PIDProtocolVersion           ParamID = 0x0015
	PIDVendorID                  ParamID = 0x0016
	PIDReliability               ParamID = 0x001a
	PIDDefaultUnicastLocator     ParamID = 0x0031
	PIDMetatrafficUnicastLocator ParamID = 0x0032
	PIDMetatrafficMcastLocator   ParamID = 0x0033
	PIDDefaultMulticastLocator   ParamID = 0x0048
	PIDParticipantGUID           ParamID = 0x0050
	PIDBuiltinEndpointSet        ParamID = 0x0058
	PIDEndpointGUID              ParamID = 0x005a
	PIDKeyHash                   ParamID = 0x0070
)

// Encapsulation scheme markers, RTPS spec 10.2.2.
const (
	SchemeCDRLE   uint16 = 0x0001
	SchemePLCDRLE uint16 = 0x0003
	SchemePLCDRBE uint16 = 0x0002
)

// EncapsulationHeader is the 4-byte prefix of a serialized payload:
// a 2-byte scheme (always big-endian on the wire) and 2 reserved
// option bytes.
type EncapsulationHeader struct {
	Scheme  uint16
	Options uint16
}

// Encode renders the 4-byte encapsulation header.
func (e EncapsulationHeader) Encode() []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint16(b[0:], e.Scheme)
	binary.LittleEndian.PutUint16(b[2:], e.Options)
	return b
}

// DecodeEncapsulationHeader parses the 4-byte prefix out of b.
func DecodeEncapsulationHeader(b []byte, order binary.ByteOrder) (EncapsulationHeader, error) {
	if len(b) < 4 {
		return EncapsulationHeader{}, ErrTruncated
	}
	return EncapsulationHeader{
		Scheme:  binary.BigEndian.Uint16(b[0:]),
		Options: order.Uint16(b[2:]),
	}, nil
}

// Param is one (id, value) pair from a PL_CDR parameter list. Value
// is already stripped of its 4-byte padding.
type Param struct {
	ID    ParamID
	Value []byte
}

// Encode writes id, its length, and its value, padded to a 4-byte
// boundary, appending to dst and returning the extended slice.
func (p Param) Encode(dst []byte) []byte {
	padded := (len(p.Value) + 3) &^ 3
	head := make([]byte, 4)
	binary.LittleEndian.PutUint16(head[0:], uint16(p.ID))
	binary.LittleEndian.PutUint16(head[2:], uint16(padded))
	dst = append(dst, head...)
	dst = append(dst, p.Value...)
	if pad := padded - len(p.Value); pad > 0 {
		dst = append(dst, make([]byte, pad)...)
	}
	return dst
}

// Sentinel is the PID_SENTINEL (0x0001, length 0) list terminator.
var Sentinel = Param{ID: PIDSentinel}

// EncodeParamList encodes params followed by the sentinel.
func EncodeParamList(params []Param) []byte {
	var out []byte
	for _, p := range params {
		out = p.Encode(out)
	}
	return Sentinel.Encode(out)
}

// PackString encodes s as a CDR string: a uint32 length (including
// the NUL terminator) followed by the bytes and terminator, padded
// to a 4-byte boundary.
func PackString(order binary.ByteOrder, s string) []byte {
	n := len(s) + 1
	b := make([]byte, (4+n+3)&^3)
	order.PutUint32(b[0:], uint32(n))
	copy(b[4:], s)
	return b
}

// UnpackString decodes the encoding produced by PackString.
func UnpackString(order binary.ByteOrder, b []byte) (string, error) {
	if len(b) < 4 {
		return "", ErrTruncated
	}
	n := int(order.Uint32(b[0:]))
	if n == 0 {
		return "", nil
	}
	if len(b) < 4+n {
		return "", ErrLengthOverrun
	}
	end := 4 + n - 1 // drop the NUL terminator
	if end < 4 {
		return "", nil
	}
	return string(b[4:end]), nil
}

// DecodeParamList walks a PL_CDR parameter list out of b, stopping at
// PID_SENTINEL or the end of the buffer. It returns the parsed
// parameters and the number of bytes consumed (including the
// sentinel, if one was found). Unknown parameter ids are returned
// like any other — callers decide what to do with them, satisfying
// the "tolerate unknown ids by skipping" contract by construction:
// skipping is just not looking at param.Value for ids you don't
// recognize.
func DecodeParamList(b []byte, order binary.ByteOrder) ([]Param, int, error) {
	var params []Param
	consumed := 0
	for len(b) >= 4 {
		id := ParamID(order.Uint16(b[0:]))
		length := int(order.Uint16(b[2:]))
		if len(b) < 4+length {
			return nil, 0, ErrLengthOverrun
		}
		consumed += 4 + length
		if id == PIDSentinel {
			return params, consumed, nil
		}
		params = append(params, Param{ID: id, Value: b[4 : 4+length]})
		b = b[4+length:]
	}
	return params, consumed, nil
}
