package rtps

import (
	"sync"

	"github.com/fathomdds/rtps/wire"
)

// ChangeKind classifies a CacheChange.
type ChangeKind int

const (
	ChangeAlive ChangeKind = iota
	ChangeNotAliveDisposed
	ChangeNotAliveUnregistered
	ChangeInvalid
)

// CacheChange is one published sample.
type CacheChange struct {
	Kind   ChangeKind
	SN     wire.SequenceNumber
	Data   []byte
	sentTo map[wire.GUID]bool
}

// invalidChange is the sentinel returned by newChange on rejection.
var invalidChange = CacheChange{Kind: ChangeInvalid, SN: wire.SeqNumUnknown}

// History is a writer's bounded ring of CacheChange.
// Capacity is fixed at construction; on overflow the oldest change is
// evicted and minAvailableSN advances.
type History struct {
	mu             sync.Mutex
	capacity       int
	changes        []CacheChange // ordered oldest-first, len <= capacity
	lastSN         wire.SequenceNumber
	minAvailableSN wire.SequenceNumber
}

// NewHistory builds a History with the given ring capacity.
func NewHistory(capacity int) *History {
	return &History{
		capacity:       capacity,
		lastSN:         0,
		minAvailableSN: 1,
	}
}

// Add assigns the next sequence number to kind/data, appends it,
// evicting the oldest change if the ring is full. Returns the
// assigned CacheChange.
func (h *History) Add(kind ChangeKind, data []byte) CacheChange {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastSN++
	c := CacheChange{Kind: kind, SN: h.lastSN, Data: data, sentTo: make(map[wire.GUID]bool)}

	if len(h.changes) >= h.capacity {
		evicted := h.changes[0]
		h.changes = h.changes[1:]
		if evicted.SN >= h.minAvailableSN {
			h.minAvailableSN = evicted.SN + 1
		}
	}
	h.changes = append(h.changes, c)
	return c
}

// Remove drops sn from the retained set; a subsequent GetChange(sn)
// will miss. The other changes keep their sequence numbers, and
// minAvailableSN is not advanced.
func (h *History) Remove(sn wire.SequenceNumber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, c := range h.changes {
		if c.SN == sn {
			h.changes = append(h.changes[:i], h.changes[i+1:]...)
			return
		}
	}
}

// GetChange looks up a stored change by sequence number.
func (h *History) GetChange(sn wire.SequenceNumber) (CacheChange, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.changes {
		if c.SN == sn {
			return c, true
		}
	}
	return CacheChange{}, false
}

// LastSN returns the most recently assigned sequence number.
func (h *History) LastSN() wire.SequenceNumber {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastSN
}

// MinAvailableSN returns one past the newest evicted sequence number
// (1 before any eviction). With eviction as the only removal this is
// the lowest retained sequence number, or lastSN+1 while nothing has
// been added; Remove does not advance it.
func (h *History) MinAvailableSN() wire.SequenceNumber {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.minAvailableSN
}

// NextUnsentStateless returns the lowest stored change not yet marked
// sent to the given remote reader GUID, if any.
func (h *History) NextUnsentStateless(remote wire.GUID) (CacheChange, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.changes {
		if !c.sentTo[remote] {
			return c, true
		}
	}
	return CacheChange{}, false
}

// NextUnsentStateful returns the lowest stored change above
// highestAckedSN that has not been sent to remote, if any.
func (h *History) NextUnsentStateful(remote wire.GUID, highestAckedSN wire.SequenceNumber) (CacheChange, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.changes {
		if c.SN > highestAckedSN && !c.sentTo[remote] {
			return c, true
		}
	}
	return CacheChange{}, false
}

// MarkSent records that sn has been transmitted to remote.
func (h *History) MarkSent(sn wire.SequenceNumber, remote wire.GUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.changes {
		if h.changes[i].SN == sn {
			h.changes[i].sentTo[remote] = true
			return
		}
	}
}

// markUnsentFor clears the sent marker for sn against remote, so the
// next progress() pass retransmits it — used when an ACKNACK reports
// sn as still missing.
func (h *History) markUnsentFor(sn wire.SequenceNumber, remote wire.GUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.changes {
		if h.changes[i].SN == sn {
			delete(h.changes[i].sentTo, remote)
			return
		}
	}
}

// ResetSend marks every stored change unsent for every proxy; used by
// SPDP's periodic resend.
func (h *History) ResetSend() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.changes {
		h.changes[i].sentTo = make(map[wire.GUID]bool)
	}
}

// Snapshot returns a copy of the currently stored changes, oldest
// first, for callers that need to iterate without holding the lock.
func (h *History) Snapshot() []CacheChange {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]CacheChange, len(h.changes))
	copy(out, h.changes)
	return out
}
