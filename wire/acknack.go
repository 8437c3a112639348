package wire

// FlagAckNackFinal is submessage flag bit 1 on ACKNACK: set means
// the writer should not respond with a HEARTBEAT.
const FlagAckNackFinal uint8 = 0x02

const acknackFixedLen = 4 + 4 // readerId + writerId, before the SequenceNumberSet

// AckNack is a reader's reply to a HEARTBEAT.
type AckNack struct {
	ReaderID      EntityID
	WriterID      EntityID
	ReaderSNState SequenceNumberSet
	Count         Count
	Final         bool
	LittleEndian  bool
}

// Encode renders the ACKNACK submessage.
func (a AckNack) Encode() []byte {
	flags := uint8(0)
	if a.LittleEndian {
		flags |= FlagEndianLittle
	}
	if a.Final {
		flags |= FlagAckNackFinal
	}
	order := orderFor(a.LittleEndian)

	setLen := a.ReaderSNState.EncodedLen()
	body := make([]byte, acknackFixedLen+setLen+4)
	PutEntityID(body[0:], a.ReaderID)
	PutEntityID(body[4:], a.WriterID)
	a.ReaderSNState.Encode(body[acknackFixedLen:], order)
	order.PutUint32(body[acknackFixedLen+setLen:], uint32(a.Count))

	hdr := SubmsgHeader{ID: SubmsgIDAckNack, Flags: flags, Length: uint16(len(body))}
	out := make([]byte, SubmsgHeaderLen+len(body))
	hdr.Encode(out)
	copy(out[SubmsgHeaderLen:], body)
	return out
}

// DecodeAckNack parses an already-split ACKNACK submessage body.
func DecodeAckNack(sm RawSubmessage) (AckNack, error) {
	b := sm.Body
	if len(b) < acknackFixedLen {
		return AckNack{}, ErrTruncated
	}
	order := sm.Order
	a := AckNack{
		ReaderID:     GetEntityID(b[0:]),
		WriterID:     GetEntityID(b[4:]),
		Final:        sm.Header.Flags&FlagAckNackFinal != 0,
		LittleEndian: sm.Header.Flags&FlagEndianLittle != 0,
	}
	set, n, err := DecodeSequenceNumberSet(b[acknackFixedLen:], order)
	if err != nil {
		return AckNack{}, err
	}
	a.ReaderSNState = set
	rest := b[acknackFixedLen+n:]
	if len(rest) < 4 {
		return AckNack{}, ErrTruncated
	}
	a.Count = Count(order.Uint32(rest[0:]))
	return a, nil
}
