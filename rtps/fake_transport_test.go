package rtps

import (
	"sync"

	"github.com/fathomdds/rtps/wire"
)

// fakeTransport is an in-memory Transport double: sends are delivered
// directly to the peer's receiver callback, optionally dropping
// datagrams whose decoded DATA writerSN is in dropSNs (used to
// simulate loss for the retransmit scenario).
type fakeTransport struct {
	mu       sync.Mutex
	peer     *fakeTransport
	receiver func(buf []byte, srcAddr string, srcPort, destPort uint16)
	dropSNs  map[wire.SequenceNumber]bool
	sent     [][]byte
	selfPort uint16
}

func newFakeTransportPair() (*fakeTransport, *fakeTransport) {
	a := &fakeTransport{dropSNs: make(map[wire.SequenceNumber]bool)}
	b := &fakeTransport{dropSNs: make(map[wire.SequenceNumber]bool)}
	a.peer, b.peer = b, a
	return a, b
}

func (f *fakeTransport) JoinMulticast(wire.Locator) error { return nil }

func (f *fakeTransport) BindUnicast(port uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selfPort = port
	return nil
}

func (f *fakeTransport) Send(dest wire.Locator, buf []byte) error {
	f.mu.Lock()
	f.sent = append(f.sent, append([]byte(nil), buf...))
	recv := f.peer.receiver
	shouldDrop := f.shouldDropLocked(buf)
	f.mu.Unlock()

	if shouldDrop || recv == nil {
		return nil
	}
	recv(buf, "127.0.0.1", f.selfPort, uint16(dest.Port))
	return nil
}

func (f *fakeTransport) shouldDropLocked(buf []byte) bool {
	if _, err := wire.DecodeHeader(buf); err != nil {
		return false
	}
	raws, err := wire.SplitSubmessages(buf[wire.HeaderLen:])
	if err != nil {
		return false
	}
	for _, raw := range raws {
		if raw.Header.ID != wire.SubmsgIDData {
			continue
		}
		d, err := wire.DecodeData(raw)
		if err != nil {
			continue
		}
		if f.dropSNs[d.WriterSN] {
			// drop only the first transmission: retransmits get through.
			delete(f.dropSNs, d.WriterSN)
			return true
		}
	}
	return false
}

func (f *fakeTransport) SetReceiver(fn func(buf []byte, srcAddr string, srcPort, destPort uint16)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiver = fn
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) dropSN(sn wire.SequenceNumber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropSNs[sn] = true
}
