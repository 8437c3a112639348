package wire

import "encoding/binary"

// DATA submessage flags.
const (
	FlagDataInlineQoS uint8 = 0x02
	FlagDataPresent   uint8 = 0x04
	FlagDataKey       uint8 = 0x08
)

// dataFixedLen is the size of DATA's fixed fields: extraFlags(2) +
// octetsToInlineQoS(2) + readerId(4) + writerId(4) + writerSN(8).
const dataFixedLen = 2 + 2 + 4 + 4 + 8

// Data is the DATA submessage: the sole means of delivering a sample.
type Data struct {
	ReaderID          EntityID
	WriterID          EntityID
	WriterSN          SequenceNumber
	InlineQoS         []Param // nil if none present
	SerializedPayload []byte  // encapsulation header + CDR bytes, or nil
	LittleEndian      bool
}

// Encode renders the DATA submessage.
func (d Data) Encode() []byte {
	flags := FlagDataPresent
	if d.LittleEndian {
		flags |= FlagEndianLittle
	}
	order := orderFor(d.LittleEndian)

	body := make([]byte, dataFixedLen)
	octetsToInlineQoS := uint16(dataFixedLen - 4) // per RTPS spec: counted after extraFlags+this field
	order.PutUint16(body[0:], 0)                  // extraFlags
	order.PutUint16(body[2:], octetsToInlineQoS)
	PutEntityID(body[4:], d.ReaderID)
	PutEntityID(body[8:], d.WriterID)
	PutSequenceNumber(body[12:], order, d.WriterSN)

	if len(d.InlineQoS) > 0 {
		flags |= FlagDataInlineQoS
		body = append(body, EncodeParamList(d.InlineQoS)...)
	}
	if d.SerializedPayload != nil {
		body = append(body, d.SerializedPayload...)
	}

	hdr := SubmsgHeader{ID: SubmsgIDData, Flags: flags, Length: uint16(len(body))}
	out := make([]byte, SubmsgHeaderLen+len(body))
	hdr.Encode(out)
	copy(out[SubmsgHeaderLen:], body)
	return out
}

func orderFor(little bool) binary.ByteOrder {
	if little {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// DecodeData parses an already-split DATA submessage body.
func DecodeData(sm RawSubmessage) (Data, error) {
	b := sm.Body
	if len(b) < dataFixedLen {
		return Data{}, ErrTruncated
	}
	order := sm.Order
	d := Data{
		ReaderID:     GetEntityID(b[4:]),
		WriterID:     GetEntityID(b[8:]),
		WriterSN:     GetSequenceNumber(b[12:], order),
		LittleEndian: sm.Header.Flags&FlagEndianLittle != 0,
	}
	octetsToInlineQoS := order.Uint16(b[2:])
	if 4+int(octetsToInlineQoS) > len(b) {
		return Data{}, ErrLengthOverrun
	}
	rest := b[4+int(octetsToInlineQoS):]

	if sm.Header.Flags&FlagDataInlineQoS != 0 {
		params, n, err := DecodeParamList(rest, order)
		if err != nil {
			return Data{}, err
		}
		d.InlineQoS = params
		rest = rest[n:]
	}
	if sm.Header.Flags&FlagDataPresent != 0 {
		d.SerializedPayload = rest
	}
	return d, nil
}
