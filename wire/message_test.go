package wire

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

// TestDataRoundTrip encodes a DATA
// submessage with a known payload, writer sequence number, and entity
// ids; re-parse; every field must come back byte-equal.
func TestDataRoundTrip(t *testing.T) {
	writerSN := NewSequenceNumber(0, 42)
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	d := Data{
		ReaderID:          0x000001c7,
		WriterID:          0x000001c2,
		WriterSN:          writerSN,
		SerializedPayload: payload,
		LittleEndian:      true,
	}

	encoded := d.Encode()
	raws, err := SplitSubmessages(encoded)
	if err != nil {
		t.Fatalf("SplitSubmessages: %v", err)
	}
	if len(raws) != 1 {
		t.Fatalf("expected 1 submessage, got %d", len(raws))
	}
	if raws[0].Header.ID != SubmsgIDData {
		t.Fatalf("expected DATA submessage id, got 0x%x", raws[0].Header.ID)
	}

	got, err := DecodeData(raws[0])
	if err != nil {
		t.Fatalf("DecodeData: %v", err)
	}

	if got.ReaderID != d.ReaderID {
		t.Errorf("readerID mismatch: got %v want %v", got.ReaderID, d.ReaderID)
	}
	if got.WriterID != d.WriterID {
		t.Errorf("writerID mismatch: got %v want %v", got.WriterID, d.WriterID)
	}
	if got.WriterSN != d.WriterSN {
		t.Errorf("writerSN mismatch: got %d want %d", got.WriterSN, d.WriterSN)
	}
	if !bytes.Equal(got.SerializedPayload, payload) {
		t.Errorf("payload mismatch: got %x want %x", got.SerializedPayload, payload)
	}
}

func TestDecodeDataRejectsOctetsToInlineQoSOverrun(t *testing.T) {
	d := Data{
		ReaderID:          0x000001c7,
		WriterID:          0x000001c2,
		WriterSN:          NewSequenceNumber(0, 1),
		SerializedPayload: []byte{1, 2, 3, 4},
		LittleEndian:      true,
	}
	encoded := d.Encode()

	// corrupt octetsToInlineQoS to point far past the end of the body.
	binary.LittleEndian.PutUint16(encoded[SubmsgHeaderLen+2:], 0xffff)

	raws, err := SplitSubmessages(encoded)
	if err != nil {
		t.Fatalf("SplitSubmessages: %v", err)
	}
	if _, err := DecodeData(raws[0]); err != ErrLengthOverrun {
		t.Errorf("expected ErrLengthOverrun, got %v", err)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	var prefix GuidPrefix
	copy(prefix[:], []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
	h := Header{Version: SupportedVersion, VendorID: VendorIDFathom, GuidPrefix: prefix}

	encoded := h.Encode()
	got, err := DecodeHeader(encoded)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if got != h {
		t.Errorf("header mismatch: got %+v want %+v", got, h)
	}
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	b := make([]byte, HeaderLen)
	copy(b, []byte("RTPX"))
	if _, err := DecodeHeader(b); err != ErrBadMagic {
		t.Errorf("expected ErrBadMagic, got %v", err)
	}
}

func TestSplitSubmessagesRejectsLengthOverrun(t *testing.T) {
	// claims 100 bytes of body but the buffer only has 4 bytes total.
	b := []byte{SubmsgIDData, FlagEndianLittle, 100, 0}
	if _, err := SplitSubmessages(b); err != ErrLengthOverrun {
		t.Errorf("expected ErrLengthOverrun, got %v", err)
	}
}

func TestSplitSubmessagesSkipsUnknownID(t *testing.T) {
	// An unrecognized submessage id (0xff) must still be skippable
	// via its declared length so later submessages still parse.
	unknown := SubmsgHeader{ID: 0xff, Flags: FlagEndianLittle, Length: 4}
	b := make([]byte, SubmsgHeaderLen+4)
	unknown.Encode(b)

	ts := InfoTS{Timestamp: TimeFromGo(time.Now())}
	b = append(b, ts.Encode()...)

	raws, err := SplitSubmessages(b)
	if err != nil {
		t.Fatalf("SplitSubmessages: %v", err)
	}
	if len(raws) != 2 {
		t.Fatalf("expected 2 submessages, got %d", len(raws))
	}
	if raws[1].Header.ID != SubmsgIDInfoTS {
		t.Errorf("expected second submessage to be INFO_TS, got 0x%x", raws[1].Header.ID)
	}
}
