package rtps

import (
	"testing"

	"github.com/fathomdds/rtps/wire"
)

func newTestWriter(t *testing.T) *StatefulWriter {
	t.Helper()
	tx, _ := newFakeTransportPair()
	cfg := DefaultParticipantConfig()
	p := NewParticipant(wire.GuidPrefix{5}, cfg, tx, NopLogger{})
	guid := wire.GUID{Prefix: p.guidPrefix, Entity: userEntityID(1, wire.EntityKindWriterWithKey)}
	return newStatefulWriter(p, guid, TopicData{TopicName: "t", TypeName: "T", Reliability: Reliable, TopicKind: WithKey}, 10)
}

// TestWriterSequenceMonotonicity checks that consecutive successful
// NewChange calls return consecutive sequence numbers.
func TestWriterSequenceMonotonicity(t *testing.T) {
	w := newTestWriter(t)
	c1, ok := w.NewChange(ChangeAlive, []byte("a"))
	if !ok {
		t.Fatal("expected NewChange to succeed")
	}
	c2, ok := w.NewChange(ChangeAlive, []byte("b"))
	if !ok {
		t.Fatal("expected NewChange to succeed")
	}
	if c2.SN != c1.SN+1 {
		t.Errorf("sn_2 (%d) != sn_1 (%d) + 1", c2.SN, c1.SN)
	}
}

func TestWriterRejectsInvalidOnNoKeyTopic(t *testing.T) {
	tx, _ := newFakeTransportPair()
	cfg := DefaultParticipantConfig()
	p := NewParticipant(wire.GuidPrefix{6}, cfg, tx, NopLogger{})
	guid := wire.GUID{Prefix: p.guidPrefix, Entity: userEntityID(1, wire.EntityKindWriterNoKey)}
	w := newStatefulWriter(p, guid, TopicData{TopicName: "t", TypeName: "T", TopicKind: NoKey}, 10)

	c, ok := w.NewChange(ChangeNotAliveDisposed, []byte("x"))
	if ok {
		t.Fatalf("expected rejection of non-ALIVE kind on NoKey topic, got %v", c)
	}
	if c.Kind != ChangeInvalid {
		t.Errorf("expected sentinel invalid change, got %+v", c)
	}
}

func TestWriterRejectsInvalidKind(t *testing.T) {
	w := newTestWriter(t)
	_, ok := w.NewChange(ChangeInvalid, []byte("x"))
	if ok {
		t.Fatal("expected rejection of ChangeInvalid kind")
	}
}
