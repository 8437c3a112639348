package wire

import (
	"encoding/binary"
	"testing"
)

func TestPackStringRoundTrip(t *testing.T) {
	cases := []string{"i am a test", "test", ""}
	order := binary.LittleEndian

	for _, s := range cases {
		packed := PackString(order, s)
		if len(packed)%4 != 0 {
			t.Errorf("packed %q length %d not 32-bit aligned", s, len(packed))
		}
		got, err := UnpackString(order, packed)
		if err != nil {
			t.Errorf("UnpackString(%q): %v", s, err)
		}
		if got != s {
			t.Errorf("UnpackString roundtrip: got %q want %q", got, s)
		}
	}
}

func TestParamListRoundTrip(t *testing.T) {
	order := binary.LittleEndian
	params := []Param{
		{ID: PIDTopicName, Value: PackString(order, "chatter")},
		{ID: PIDTypeName, Value: PackString(order, "std_msgs::msg::dds_::String_")},
	}
	encoded := EncodeParamList(params)

	got, n, err := DecodeParamList(encoded, order)
	if err != nil {
		t.Fatalf("DecodeParamList: %v", err)
	}
	if n != len(encoded) {
		t.Errorf("consumed %d bytes, expected %d", n, len(encoded))
	}
	if len(got) != len(params) {
		t.Fatalf("got %d params, want %d", len(got), len(params))
	}
	for i, p := range params {
		if got[i].ID != p.ID {
			t.Errorf("[%d] id mismatch: got 0x%x want 0x%x", i, got[i].ID, p.ID)
		}
	}
}

func TestDecodeParamListSkipsUnknownParam(t *testing.T) {
	order := binary.LittleEndian
	unknown := Param{ID: 0x9999, Value: []byte{1, 2, 3, 4, 5, 6}}
	known := Param{ID: PIDTopicName, Value: PackString(order, "chatter")}
	encoded := EncodeParamList([]Param{unknown, known})

	got, _, err := DecodeParamList(encoded, order)
	if err != nil {
		t.Fatalf("DecodeParamList: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d params, want 2", len(got))
	}
	if got[0].ID != unknown.ID || len(got[0].Value) != 8 { // padded to 4-byte boundary
		t.Errorf("unknown param not preserved verbatim: %+v", got[0])
	}
}
