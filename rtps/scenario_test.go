package rtps

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fathomdds/rtps/wire"
)

// pairedEndpoints builds a writer and reader on two participants
// connected by an in-memory Transport pair, with proxies wired
// directly (bypassing SPDP/SEDP, which are exercised separately) so
// scenario tests can focus on the reliability protocol itself.
func pairedEndpoints(t *testing.T, reliability ReliabilityKind) (*StatefulWriter, *StatefulReader, *fakeTransport, *fakeTransport) {
	t.Helper()
	txW, txR := newFakeTransportPair()
	cfgW := DefaultParticipantConfig()
	cfgW.HeartbeatPeriod = 20 * time.Millisecond
	cfgR := cfgW

	pw := NewParticipant(wire.GuidPrefix{1}, cfgW, txW, NopLogger{})
	pr := NewParticipant(wire.GuidPrefix{2}, cfgR, txR, NopLogger{})

	topic := TopicData{TopicName: "chatter", TypeName: "std_msgs::String", Reliability: reliability, TopicKind: WithKey}

	wGUID := wire.GUID{Prefix: pw.guidPrefix, Entity: userEntityID(1, wire.EntityKindWriterWithKey)}
	w := newStatefulWriter(pw, wGUID, topic, 10)
	pw.localWriters[wGUID.Entity] = w

	rGUID := wire.GUID{Prefix: pr.guidPrefix, Entity: userEntityID(1, wire.EntityKindReaderWithKey)}
	r := newStatefulReader(pr, rGUID, topic)
	pr.localReaders[rGUID.Entity] = r

	readerLoc := wire.NewUDPv4Locator(nil, 1)
	writerLoc := wire.NewUDPv4Locator(nil, 2)
	w.AddReaderProxy(rGUID, readerLoc)
	r.AddMatchedWriter(wGUID, writerLoc)

	txW.SetReceiver(func(buf []byte, srcAddr string, srcPort, destPort uint16) {
		pw.dispatcher.AddIncoming(PacketInfo{Buffer: buf, SrcAddr: srcAddr, SrcPort: srcPort, DestPort: destPort})
	})
	txR.SetReceiver(func(buf []byte, srcAddr string, srcPort, destPort uint16) {
		pr.dispatcher.AddIncoming(PacketInfo{Buffer: buf, SrcAddr: srcAddr, SrcPort: srcPort, DestPort: destPort})
	})

	pw.dispatcher.Start(context.Background())
	pr.dispatcher.Start(context.Background())
	t.Cleanup(func() {
		pw.dispatcher.Stop()
		pr.dispatcher.Stop()
	})

	return w, r, txW, txR
}

// TestScenarioBestEffortUnicast publishes one best-effort sample and
// expects it at the reader unchanged.
func TestScenarioBestEffortUnicast(t *testing.T) {
	w, r, _, _ := pairedEndpoints(t, BestEffort)

	var mu sync.Mutex
	var got SampleView
	r.RegisterCallback(func(v SampleView) {
		mu.Lock()
		got = v
		mu.Unlock()
	})

	w.NewChange(ChangeAlive, []byte("hello"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		ok := string(got.Payload) == "hello" && got.SequenceNumber == 1
		mu.Unlock()
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("did not observe delivery of sn=1 payload hello within deadline, got %+v", got)
}

// TestScenarioReliableOrderedDelivery publishes a run of samples with
// no loss and expects the callback to fire exactly once per sequence
// number, in order.
func TestScenarioReliableOrderedDelivery(t *testing.T) {
	w, r, _, _ := pairedEndpoints(t, Reliable)

	var mu sync.Mutex
	var delivered []wire.SequenceNumber
	r.RegisterCallback(func(v SampleView) {
		mu.Lock()
		delivered = append(delivered, v.SequenceNumber)
		mu.Unlock()
	})

	// stay within the history depth so a slow writer goroutine cannot
	// evict a change before its first transmission.
	const n = 8
	for i := 0; i < n; i++ {
		w.NewChange(ChangeAlive, []byte{byte(i)})
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		got := len(delivered)
		mu.Unlock()
		if got >= n {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != n {
		t.Fatalf("expected exactly %d deliveries, got %d: %v", n, len(delivered), delivered)
	}
	for i, sn := range delivered {
		if sn != wire.SequenceNumber(i+1) {
			t.Fatalf("delivery %d out of order: got sn %d, want %d", i, sn, i+1)
		}
	}
}

// TestScenarioReliableWithLoss drops one DATA in transit and expects
// the heartbeat/ACKNACK handshake to repair it.
func TestScenarioReliableWithLoss(t *testing.T) {
	w, r, txW, _ := pairedEndpoints(t, Reliable)
	txW.dropSN(3) // transport drops writer SN 3 on first send

	var mu sync.Mutex
	var delivered []wire.SequenceNumber
	r.RegisterCallback(func(v SampleView) {
		mu.Lock()
		delivered = append(delivered, v.SequenceNumber)
		mu.Unlock()
	})

	for i := 0; i < 5; i++ {
		w.NewChange(ChangeAlive, []byte{byte(i)})
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(delivered)
		mu.Unlock()
		if n >= 5 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) < 5 {
		t.Fatalf("expected all 5 samples eventually delivered despite loss of sn=3, got %v", delivered)
	}
	seen := make(map[wire.SequenceNumber]bool)
	for _, sn := range delivered {
		seen[sn] = true
	}
	for sn := wire.SequenceNumber(1); sn <= 5; sn++ {
		if !seen[sn] {
			t.Errorf("sn %d was never delivered", sn)
		}
	}
}

// TestScenarioMalformedPacketDropped injects a datagram with a bad
// magic; it must be dropped whole without disturbing anything.
func TestScenarioMalformedPacketDropped(t *testing.T) {
	tx, _ := newFakeTransportPair()
	cfg := DefaultParticipantConfig()
	p := NewParticipant(wire.GuidPrefix{9}, cfg, tx, NopLogger{})
	p.dispatcher.Start(context.Background())
	t.Cleanup(p.dispatcher.Stop)

	bad := make([]byte, wire.HeaderLen)
	copy(bad, []byte("RTPX")) // bad magic

	if ok := p.dispatcher.AddIncoming(PacketInfo{Buffer: bad, SrcAddr: "127.0.0.1", SrcPort: 1, DestPort: 2}); !ok {
		t.Fatal("expected AddIncoming to accept the packet (drop happens at parse time)")
	}
	time.Sleep(20 * time.Millisecond) // let the reader goroutine process and drop it; no assertable state changes, no panic is the test
}
