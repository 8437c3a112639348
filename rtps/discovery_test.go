package rtps

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fathomdds/rtps/wire"
)

// TestSPDPIgnoresOwnAnnouncement feeds the SPDP reader callback the
// participant's own announcement payload: the remote-participant
// table must stay empty.
func TestSPDPIgnoresOwnAnnouncement(t *testing.T) {
	tx, _ := newFakeTransportPair()
	p := NewParticipant(wire.GuidPrefix{4, 2}, DefaultParticipantConfig(), tx, NopLogger{})

	payload := p.spdp.encodeLocalProxyData()
	p.spdp.onAnnouncement(SampleView{
		WriterGUID: wire.GUID{Prefix: p.guidPrefix, Entity: wire.EntityIDSPDPBuiltinParticipantWriter},
		Payload:    payload,
	})

	if peers := p.ListRemoteParticipants(); len(peers) != 0 {
		t.Errorf("own announcement must not be added to the remote table, got %d entries", len(peers))
	}
}

// TestDiscoveryConvergence runs two full participants over an
// in-memory transport pair, each with one writer and one reader on
// the same topic, and waits for SPDP+SEDP to wire the user endpoints
// both ways and for a sample to flow end to end.
func TestDiscoveryConvergence(t *testing.T) {
	txA, txB := newFakeTransportPair()

	cfg := DefaultParticipantConfig()
	cfg.SPDPResendPeriod = 30 * time.Millisecond
	cfg.HeartbeatPeriod = 20 * time.Millisecond

	cfgB := cfg
	cfgB.ParticipantID = 1

	pA := NewParticipant(wire.GuidPrefix{0xa}, cfg, txA, NopLogger{})
	pB := NewParticipant(wire.GuidPrefix{0xb}, cfgB, txB, NopLogger{})

	topic := TopicData{
		TopicName:   "chatter",
		TypeName:    "std_msgs/String",
		Reliability: Reliable,
		TopicKind:   WithKey,
	}
	wA := pA.NewWriter(topic)
	rA := pA.NewReader(topic).(*StatefulReader)
	wB := pB.NewWriter(topic)
	rB := pB.NewReader(topic).(*StatefulReader)

	var mu sync.Mutex
	var gotOnB []byte
	rA.RegisterCallback(func(SampleView) {})
	rB.RegisterCallback(func(v SampleView) {
		mu.Lock()
		gotOnB = append([]byte(nil), v.Payload...)
		mu.Unlock()
	})

	ctx := context.Background()
	if err := pA.Start(ctx); err != nil {
		t.Fatalf("start A: %v", err)
	}
	if err := pB.Start(ctx); err != nil {
		t.Fatalf("start B: %v", err)
	}
	t.Cleanup(func() {
		pA.Stop()
		pB.Stop()
	})

	hasProxy := func(w *StatefulWriter, remote wire.GUID) bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.findProxy(remote) != nil
	}

	deadline := time.Now().Add(2 * time.Second)
	matched := false
	for time.Now().Before(deadline) {
		if hasProxy(wA, rB.GUID()) && hasProxy(wB, rA.GUID()) {
			matched = true
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !matched {
		t.Fatal("user endpoints did not match within the discovery window")
	}

	if _, ok := pA.FindRemoteParticipant(pB.GuidPrefix()); !ok {
		t.Error("A never detected B via SPDP")
	}
	if _, ok := pB.FindRemoteParticipant(pA.GuidPrefix()); !ok {
		t.Error("B never detected A via SPDP")
	}

	wA.NewChange(ChangeAlive, []byte("converged"))
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		ok := string(gotOnB) == "converged"
		mu.Unlock()
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("sample published after match was never delivered across participants")
}
