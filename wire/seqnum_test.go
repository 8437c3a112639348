package wire

import (
	"encoding/binary"
	"testing"
)

func TestSequenceNumberSetRoundTrip(t *testing.T) {
	order := binary.LittleEndian
	base := NewSequenceNumber(0, 10)
	missing := []SequenceNumber{base, base + 2}

	set := NewSequenceNumberSet(base, missing)
	encoded := make([]byte, set.EncodedLen())
	set.Encode(encoded, order)

	got, n, err := DecodeSequenceNumberSet(encoded, order)
	if err != nil {
		t.Fatalf("DecodeSequenceNumberSet: %v", err)
	}
	if n != set.EncodedLen() {
		t.Errorf("consumed %d bytes, want %d", n, set.EncodedLen())
	}
	if got.BitmapBase != base {
		t.Errorf("bitmapBase mismatch: got %d want %d", got.BitmapBase, base)
	}
	for _, sn := range missing {
		if !got.Has(sn) {
			t.Errorf("expected %d to be marked missing", sn)
		}
	}
	if got.Has(base + 1) {
		t.Errorf("did not expect %d to be marked missing", base+1)
	}
}

func TestSequenceNumberHiLo(t *testing.T) {
	sn := NewSequenceNumber(3, 7)
	if sn.Hi() != 3 || sn.Lo() != 7 {
		t.Errorf("got hi=%d lo=%d, want hi=3 lo=7", sn.Hi(), sn.Lo())
	}
}
