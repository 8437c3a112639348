package rtps

import "github.com/fathomdds/rtps/wire"

// ReaderProxy is a writer's per-matched-reader bookkeeping.
type ReaderProxy struct {
	RemoteGUID         wire.GUID
	RemoteLocator      wire.Locator
	HighestAckedSN     wire.SequenceNumber
	ExpectsInlineQoS   bool
	IsReliable         bool
	nextHeartbeatCount wire.Count
	lastAckNackCount   wire.Count
}

func newReaderProxy(guid wire.GUID, loc wire.Locator, reliable bool) *ReaderProxy {
	return &ReaderProxy{RemoteGUID: guid, RemoteLocator: loc, IsReliable: reliable}
}

// NextHeartbeatCount returns the next heartbeat Count for this proxy
// and advances the counter.
func (p *ReaderProxy) NextHeartbeatCount() wire.Count {
	p.nextHeartbeatCount++
	return p.nextHeartbeatCount
}

// WriterProxy is a reader's per-matched-writer bookkeeping.
type WriterProxy struct {
	RemoteGUID         wire.GUID
	RemoteLocator      wire.Locator
	LastHeartbeatCount wire.Count
	ExpectedSN         wire.SequenceNumber // next in-order SN expected, initially 1
	missing            map[wire.SequenceNumber]bool
	nextAckNackCount   wire.Count
}

func newWriterProxy(guid wire.GUID, loc wire.Locator) *WriterProxy {
	return &WriterProxy{
		RemoteGUID:    guid,
		RemoteLocator: loc,
		ExpectedSN:    1,
		missing:       make(map[wire.SequenceNumber]bool),
	}
}

// NextAckNackCount returns the next ACKNACK Count for this proxy and
// advances the counter.
func (p *WriterProxy) NextAckNackCount() wire.Count {
	p.nextAckNackCount++
	return p.nextAckNackCount
}

// MarkMissing adds sn to the missing-set.
func (p *WriterProxy) MarkMissing(sn wire.SequenceNumber) {
	p.missing[sn] = true
}

// ClearMissing removes sn from the missing-set (delivered or given up on).
func (p *WriterProxy) ClearMissing(sn wire.SequenceNumber) {
	delete(p.missing, sn)
}

// MissingWithin returns the sorted-ascending subset of the missing-set
// that falls within [first, last], used to answer a HEARTBEAT.
func (p *WriterProxy) MissingWithin(first, last wire.SequenceNumber) []wire.SequenceNumber {
	var out []wire.SequenceNumber
	for sn := first; sn <= last; sn++ {
		if p.missing[sn] {
			out = append(out, sn)
		}
	}
	return out
}

// HasMissing reports whether the missing-set is non-empty.
func (p *WriterProxy) HasMissing() bool {
	return len(p.missing) > 0
}
