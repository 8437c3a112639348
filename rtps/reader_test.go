package rtps

import (
	"testing"

	"github.com/fathomdds/rtps/wire"
)

func newTestReader(t *testing.T) (*StatefulReader, *Participant) {
	t.Helper()
	tx, _ := newFakeTransportPair()
	cfg := DefaultParticipantConfig()
	p := NewParticipant(wire.GuidPrefix{1}, cfg, tx, NopLogger{})
	guid := wire.GUID{Prefix: p.guidPrefix, Entity: userEntityID(1, wire.EntityKindReaderWithKey)}
	r := newStatefulReader(p, guid, TopicData{TopicName: "t", TypeName: "T", Reliability: Reliable, TopicKind: WithKey})
	return r, p
}

// TestDuplicateSuppression re-injects an already-delivered sequence
// number and expects no second callback.
func TestDuplicateSuppression(t *testing.T) {
	r, _ := newTestReader(t)
	writerGUID := wire.GUID{Prefix: wire.GuidPrefix{9}, Entity: 7}
	loc := wire.NewUDPv4Locator(nil, 0)
	r.AddMatchedWriter(writerGUID, loc)

	var deliveries int
	r.RegisterCallback(func(SampleView) { deliveries++ })

	r.onData(writerGUID, wire.Data{WriterSN: 1, SerializedPayload: []byte("a")})
	r.onData(writerGUID, wire.Data{WriterSN: 1, SerializedPayload: []byte("a")})
	r.onData(writerGUID, wire.Data{WriterSN: 1, SerializedPayload: []byte("a")})

	if deliveries != 1 {
		t.Errorf("expected exactly 1 delivery for duplicate sn, got %d", deliveries)
	}
}

// TestExpectedSNGating exercises the gap path: a late sample that
// fills a tracked gap is delivered once as a repair, and expectedSN
// never decreases.
func TestExpectedSNGating(t *testing.T) {
	r, _ := newTestReader(t)
	writerGUID := wire.GUID{Prefix: wire.GuidPrefix{9}, Entity: 7}
	r.AddMatchedWriter(writerGUID, wire.NewUDPv4Locator(nil, 0))

	var delivered []wire.SequenceNumber
	r.RegisterCallback(func(v SampleView) { delivered = append(delivered, v.SequenceNumber) })

	r.onData(writerGUID, wire.Data{WriterSN: 1, SerializedPayload: []byte("1")})
	r.onData(writerGUID, wire.Data{WriterSN: 3, SerializedPayload: []byte("3")}) // gap: 2 missing
	r.onData(writerGUID, wire.Data{WriterSN: 2, SerializedPayload: []byte("2")}) // late repair of the gap
	r.onData(writerGUID, wire.Data{WriterSN: 2, SerializedPayload: []byte("2")}) // second copy: pure duplicate now

	r.mu.Lock()
	proxy := r.proxies[writerGUID]
	expectedSN := proxy.ExpectedSN
	stillMissing := proxy.HasMissing()
	r.mu.Unlock()

	if expectedSN < 4 {
		t.Errorf("expectedSN should never decrease below observed high-water mark+1, got %d", expectedSN)
	}
	if stillMissing {
		t.Error("missing-set should be empty after the repair arrived")
	}
	if len(delivered) != 3 {
		t.Errorf("expected 3 deliveries (1, 3, and the sn=2 repair exactly once), got %d: %v", len(delivered), delivered)
	}
}

// TestHeartbeatCountGating checks that a heartbeat whose count is not
// strictly greater than the last seen one is discarded.
func TestHeartbeatCountGating(t *testing.T) {
	r, _ := newTestReader(t)
	writerGUID := wire.GUID{Prefix: wire.GuidPrefix{9}, Entity: 7}
	r.AddMatchedWriter(writerGUID, wire.NewUDPv4Locator(nil, 0))

	r.onHeartbeat(writerGUID, wire.Heartbeat{FirstSN: 1, LastSN: 5, Count: 3})
	r.mu.Lock()
	lastCount := r.proxies[writerGUID].LastHeartbeatCount
	r.mu.Unlock()
	if lastCount != 3 {
		t.Fatalf("expected lastHeartbeatCount=3, got %d", lastCount)
	}

	// a heartbeat with count <= lastHeartbeatCount must be dropped and
	// must not advance state or trigger an ACKNACK.
	r.onHeartbeat(writerGUID, wire.Heartbeat{FirstSN: 1, LastSN: 10, Count: 3})
	r.mu.Lock()
	lastCount = r.proxies[writerGUID].LastHeartbeatCount
	r.mu.Unlock()
	if lastCount != 3 {
		t.Errorf("stale heartbeat must not update lastHeartbeatCount, got %d", lastCount)
	}
}

func TestStatelessReaderDeliversWithoutProxy(t *testing.T) {
	tx, _ := newFakeTransportPair()
	cfg := DefaultParticipantConfig()
	p := NewParticipant(wire.GuidPrefix{2}, cfg, tx, NopLogger{})
	guid := wire.GUID{Prefix: p.guidPrefix, Entity: userEntityID(1, wire.EntityKindReaderNoKey)}
	r := newStatelessReader(p, guid, TopicData{TopicName: "t", TypeName: "T"})

	var got SampleView
	r.RegisterCallback(func(v SampleView) { got = v })

	writerGUID := wire.GUID{Prefix: wire.GuidPrefix{3}, Entity: 5}
	r.onData(writerGUID, wire.Data{WriterSN: 1, SerializedPayload: []byte("hello")})

	if string(got.Payload) != "hello" || got.SequenceNumber != 1 {
		t.Errorf("unexpected delivery: %+v", got)
	}
}
