package wire

// HEARTBEAT submessage flags.
const (
	FlagHeartbeatFinal      uint8 = 0x02
	FlagHeartbeatLiveliness uint8 = 0x04
)

const heartbeatBodyLen = 4 + 4 + 8 + 8 + 4

// Heartbeat tells a reader which sequence numbers a writer currently
// holds.
type Heartbeat struct {
	ReaderID        EntityID
	WriterID        EntityID
	FirstSN, LastSN SequenceNumber
	Count           Count
	Final           bool
	LittleEndian    bool
}

// Encode renders the HEARTBEAT submessage.
func (h Heartbeat) Encode() []byte {
	flags := uint8(0)
	if h.LittleEndian {
		flags |= FlagEndianLittle
	}
	if h.Final {
		flags |= FlagHeartbeatFinal
	}
	order := orderFor(h.LittleEndian)

	body := make([]byte, heartbeatBodyLen)
	PutEntityID(body[0:], h.ReaderID)
	PutEntityID(body[4:], h.WriterID)
	PutSequenceNumber(body[8:], order, h.FirstSN)
	PutSequenceNumber(body[16:], order, h.LastSN)
	order.PutUint32(body[24:], uint32(h.Count))

	hdr := SubmsgHeader{ID: SubmsgIDHeartbeat, Flags: flags, Length: uint16(len(body))}
	out := make([]byte, SubmsgHeaderLen+len(body))
	hdr.Encode(out)
	copy(out[SubmsgHeaderLen:], body)
	return out
}

// DecodeHeartbeat parses an already-split HEARTBEAT submessage body.
func DecodeHeartbeat(sm RawSubmessage) (Heartbeat, error) {
	b := sm.Body
	if len(b) < heartbeatBodyLen {
		return Heartbeat{}, ErrTruncated
	}
	order := sm.Order
	return Heartbeat{
		ReaderID:     GetEntityID(b[0:]),
		WriterID:     GetEntityID(b[4:]),
		FirstSN:      GetSequenceNumber(b[8:], order),
		LastSN:       GetSequenceNumber(b[16:], order),
		Count:        Count(order.Uint32(b[24:])),
		Final:        sm.Header.Flags&FlagHeartbeatFinal != 0,
		LittleEndian: sm.Header.Flags&FlagEndianLittle != 0,
	}, nil
}
