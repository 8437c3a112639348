package rtps

import (
	"time"

	"github.com/fathomdds/rtps/rtps/metrics"
	"github.com/fathomdds/rtps/wire"
)

// StatelessReader delivers every DATA the dispatcher routes to it
// (DATA addressed to its entity id, or to ENTITYID_UNKNOWN), with no
// per-writer tracking. It does not check the sending writer's topic.
type StatelessReader struct {
	endpointBase
	callback SampleCallback
}

func newStatelessReader(p *Participant, guid wire.GUID, topic TopicData) *StatelessReader {
	return &StatelessReader{endpointBase: endpointBase{guid: guid, topic: topic, participant: p}}
}

// RegisterCallback installs the sample callback.
func (r *StatelessReader) RegisterCallback(fn SampleCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callback = fn
}

// onData handles an inbound DATA submessage: deliver synchronously,
// no proxy bookkeeping.
func (r *StatelessReader) onData(writerGUID wire.GUID, d wire.Data) {
	r.mu.Lock()
	cb := r.callback
	r.mu.Unlock()
	if cb == nil {
		return
	}
	metrics.SamplesDelivered.WithLabelValues(r.topic.TopicName).Inc()
	cb(SampleView{WriterGUID: writerGUID, SequenceNumber: d.WriterSN, Payload: d.SerializedPayload})
}

// StatefulReader maintains a WriterProxy set and drives the
// heartbeat/ACKNACK handshake.
type StatefulReader struct {
	endpointBase
	callback SampleCallback
	proxies  map[wire.GUID]*WriterProxy
	reliable bool
}

func newStatefulReader(p *Participant, guid wire.GUID, topic TopicData) *StatefulReader {
	return &StatefulReader{
		endpointBase: endpointBase{guid: guid, topic: topic, participant: p},
		proxies:      make(map[wire.GUID]*WriterProxy),
		reliable:     topic.Reliability == Reliable,
	}
}

// RegisterCallback installs the sample callback.
func (r *StatefulReader) RegisterCallback(fn SampleCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callback = fn
}

// AddMatchedWriter wires a remote writer proxy onto this reader, via
// SEDP or direct user wiring.
func (r *StatefulReader) AddMatchedWriter(guid wire.GUID, loc wire.Locator) *WriterProxy {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.proxies[guid]; ok {
		return p
	}
	p := newWriterProxy(guid, loc)
	r.proxies[guid] = p
	return p
}

// RemoveMatchedWriter unmatches a writer by GUID, resetting the
// reader's view of it back to initial.
func (r *StatefulReader) RemoveMatchedWriter(guid wire.GUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.proxies, guid)
}

// onData handles an inbound DATA submessage from a known writer.
func (r *StatefulReader) onData(writerGUID wire.GUID, d wire.Data) {
	r.mu.Lock()
	proxy, known := r.proxies[writerGUID]
	if !known {
		r.mu.Unlock()
		r.participant.logger.Debugw("data from unmatched writer", "reader", r.guid, "writer", writerGUID)
		return
	}

	sn := d.WriterSN
	switch {
	case sn < proxy.ExpectedSN:
		// Below the high-water mark: either a repair for a sequence
		// number we reported missing, or a duplicate. Duplicates are
		// silently discarded.
		if !proxy.missing[sn] {
			r.mu.Unlock()
			return
		}
		proxy.ClearMissing(sn)
	case sn == proxy.ExpectedSN:
		proxy.ExpectedSN++
		proxy.ClearMissing(sn)
	default: // sn > proxy.ExpectedSN
		for missed := proxy.ExpectedSN; missed < sn; missed++ {
			proxy.MarkMissing(missed)
		}
		proxy.ExpectedSN = sn + 1
	}
	cb := r.callback
	r.mu.Unlock()

	if cb != nil {
		metrics.SamplesDelivered.WithLabelValues(r.topic.TopicName).Inc()
		cb(SampleView{WriterGUID: writerGUID, SequenceNumber: sn, Payload: d.SerializedPayload})
	}
}

// onHeartbeat handles an inbound HEARTBEAT from a known writer and
// answers it with an ACKNACK.
func (r *StatefulReader) onHeartbeat(writerGUID wire.GUID, hb wire.Heartbeat) {
	r.mu.Lock()
	proxy, known := r.proxies[writerGUID]
	if !known {
		r.mu.Unlock()
		return
	}
	if hb.Count <= proxy.LastHeartbeatCount {
		// stale heartbeat count: silently discarded.
		r.mu.Unlock()
		return
	}
	proxy.LastHeartbeatCount = hb.Count
	missing := proxy.MissingWithin(hb.FirstSN, hb.LastSN)
	// Everything at or above expectedSN within the advertised range
	// has never arrived at all; request it alongside the tracked gaps.
	start := proxy.ExpectedSN
	if hb.FirstSN > start {
		start = hb.FirstSN
	}
	for sn := start; sn <= hb.LastSN; sn++ {
		missing = append(missing, sn)
	}
	ackNackCount := proxy.NextAckNackCount()
	// The bitmap base is the lowest sequence number not yet in hand:
	// the writer reads it as "everything below is acknowledged", so
	// with an outstanding gap it must be the lowest missing SN, not
	// the high-water mark.
	base := proxy.ExpectedSN
	if len(missing) > 0 {
		base = missing[0]
	}
	loc := proxy.RemoteLocator
	r.mu.Unlock()

	r.sendAckNack(writerGUID, loc, base, missing, ackNackCount)
}

func (r *StatefulReader) sendAckNack(writerGUID wire.GUID, loc wire.Locator, bitmapBase wire.SequenceNumber, missing []wire.SequenceNumber, count wire.Count) {
	hdr := wire.Header{
		Version:    wire.SupportedVersion,
		VendorID:   wire.VendorID(r.participant.config.VendorID),
		GuidPrefix: r.participant.guidPrefix,
	}
	mb := wire.NewMessageBuilder(hdr)
	ts := wire.InfoTS{Timestamp: wire.TimeFromGo(time.Now())}
	mb.Append(ts.Encode())

	set := wire.NewSequenceNumberSet(bitmapBase, missing)
	an := wire.AckNack{
		ReaderID:      r.guid.Entity,
		WriterID:      writerGUID.Entity,
		ReaderSNState: set,
		Count:         count,
		LittleEndian:  true,
	}
	mb.Append(an.Encode())

	if err := r.participant.transport.Send(loc, mb.Bytes()); err != nil {
		r.participant.logger.Warnw("acknack send failed", "reader", r.guid, "err", err)
	}
}
