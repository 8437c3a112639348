package rtps

import (
	"sync"
	"time"

	"github.com/fathomdds/rtps/rtps/metrics"
	"github.com/fathomdds/rtps/wire"
)

// progressor is anything the dispatcher's writer goroutines can drive
// forward. progress returns true if the endpoint still has unsent
// work and should be re-enqueued immediately.
type progressor interface {
	progress() bool
}

// StatelessWriter sends without per-peer acknowledgement tracking.
// Used for SPDP.
type StatelessWriter struct {
	endpointBase
	history  *History
	proxies  []*ReaderProxy
	dispatch *Dispatcher
}

func newStatelessWriter(p *Participant, guid wire.GUID, topic TopicData, historyDepth int) *StatelessWriter {
	return &StatelessWriter{
		endpointBase: endpointBase{guid: guid, topic: topic, participant: p},
		history:      NewHistory(historyDepth),
		dispatch:     p.dispatcher,
	}
}

// NewChange allocates and appends a new sample.
// Rejects kind==Invalid, or non-ALIVE kinds on a NoKey topic.
func (w *StatelessWriter) NewChange(kind ChangeKind, data []byte) (CacheChange, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if kind == ChangeInvalid || (w.topic.TopicKind == NoKey && kind != ChangeAlive) {
		return invalidChange, false
	}
	c := w.history.Add(kind, data)
	metrics.SamplesPublished.WithLabelValues(w.topic.TopicName).Inc()
	w.dispatch.enqueueOutgoing(w)
	return c, true
}

// AddReaderProxy matches a remote reader onto this writer, e.g. from
// SPDP/SEDP wiring.
func (w *StatelessWriter) AddReaderProxy(guid wire.GUID, loc wire.Locator) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range w.proxies {
		if p.RemoteGUID == guid {
			return
		}
	}
	w.proxies = append(w.proxies, newReaderProxy(guid, loc, false))
	metrics.MatchedProxies.WithLabelValues(w.guid.String()).Set(float64(len(w.proxies)))
}

// UnsentChangesReset marks every change unsent for every proxy and
// re-enqueues the writer, driving SPDP's periodic resend.
func (w *StatelessWriter) UnsentChangesReset() {
	w.history.ResetSend()
	w.dispatch.enqueueOutgoing(w)
}

func (w *StatelessWriter) progress() bool {
	w.mu.Lock()
	proxies := append([]*ReaderProxy(nil), w.proxies...)
	w.mu.Unlock()

	moreWork := false
	for _, proxy := range proxies {
		for {
			change, ok := w.history.NextUnsentStateless(proxy.RemoteGUID)
			if !ok {
				break
			}
			w.sendData(proxy, change)
			w.history.MarkSent(change.SN, proxy.RemoteGUID)
		}
	}
	return moreWork
}

func (w *StatelessWriter) sendData(proxy *ReaderProxy, change CacheChange) {
	hdr := wire.Header{
		Version:    wire.SupportedVersion,
		VendorID:   wire.VendorID(w.participant.config.VendorID),
		GuidPrefix: w.participant.guidPrefix,
	}
	mb := wire.NewMessageBuilder(hdr)
	ts := wire.InfoTS{Timestamp: wire.TimeFromGo(time.Now())}
	mb.Append(ts.Encode())

	d := wire.Data{
		ReaderID:          proxy.RemoteGUID.Entity,
		WriterID:          w.guid.Entity,
		WriterSN:          change.SN,
		SerializedPayload: change.Data,
		LittleEndian:      true,
	}
	mb.Append(d.Encode())

	if err := w.participant.transport.Send(proxy.RemoteLocator, mb.Bytes()); err != nil {
		w.participant.logger.Warnw("stateless writer send failed", "writer", w.guid, "err", err)
	}
}

// StatefulWriter adds per-reader reliability state.
type StatefulWriter struct {
	endpointBase
	history         *History
	proxies         []*ReaderProxy
	dispatch        *Dispatcher
	heartbeatPeriod time.Duration
	lastHeartbeatAt time.Time
	hbStop          chan struct{}
	hbStopOnce      sync.Once
}

func newStatefulWriter(p *Participant, guid wire.GUID, topic TopicData, historyDepth int) *StatefulWriter {
	period := p.config.HeartbeatPeriod
	if period <= 0 {
		period = 500 * time.Millisecond
	}
	w := &StatefulWriter{
		endpointBase:    endpointBase{guid: guid, topic: topic, participant: p},
		history:         NewHistory(historyDepth),
		dispatch:        p.dispatcher,
		heartbeatPeriod: period,
		hbStop:          make(chan struct{}),
	}
	go w.heartbeatLoop()
	return w
}

// heartbeatLoop re-enqueues the writer on the outgoing queue once per
// heartbeat period while any reader is matched, so progress() keeps
// emitting periodic heartbeats even after the history has drained.
func (w *StatefulWriter) heartbeatLoop() {
	ticker := time.NewTicker(w.heartbeatPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-w.hbStop:
			return
		case <-ticker.C:
			w.mu.Lock()
			matched := len(w.proxies) > 0
			w.mu.Unlock()
			if matched {
				w.dispatch.enqueueOutgoing(w)
			}
		}
	}
}

// stopHeartbeats halts the periodic re-enqueue; called on participant
// teardown.
func (w *StatefulWriter) stopHeartbeats() {
	w.hbStopOnce.Do(func() { close(w.hbStop) })
}

// NewChange allocates and appends a new sample and enqueues for progress.
func (w *StatefulWriter) NewChange(kind ChangeKind, data []byte) (CacheChange, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if kind == ChangeInvalid || (w.topic.TopicKind == NoKey && kind != ChangeAlive) {
		return invalidChange, false
	}
	c := w.history.Add(kind, data)
	metrics.SamplesPublished.WithLabelValues(w.topic.TopicName).Inc()
	w.dispatch.enqueueOutgoing(w)
	return c, true
}

// AddReaderProxy matches a remote reliable reader onto this writer.
func (w *StatefulWriter) AddReaderProxy(guid wire.GUID, loc wire.Locator) *ReaderProxy {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range w.proxies {
		if p.RemoteGUID == guid {
			return p
		}
	}
	proxy := newReaderProxy(guid, loc, true)
	w.proxies = append(w.proxies, proxy)
	metrics.MatchedProxies.WithLabelValues(w.guid.String()).Set(float64(len(w.proxies)))
	w.dispatch.enqueueOutgoing(w)
	return proxy
}

// RemoveReaderProxy unmatches a reader by GUID.
func (w *StatefulWriter) RemoveReaderProxy(guid wire.GUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, p := range w.proxies {
		if p.RemoteGUID == guid {
			w.proxies = append(w.proxies[:i], w.proxies[i+1:]...)
			metrics.MatchedProxies.WithLabelValues(w.guid.String()).Set(float64(len(w.proxies)))
			return
		}
	}
}

// OnAckNack applies an incoming ACKNACK to the matching proxy.
func (w *StatefulWriter) OnAckNack(remote wire.GUID, an wire.AckNack) {
	w.mu.Lock()
	proxy := w.findProxy(remote)
	if proxy == nil {
		w.mu.Unlock()
		w.participant.logger.Debugw("acknack from unmatched reader", "writer", w.guid, "reader", remote)
		return
	}
	if an.Count <= proxy.lastAckNackCount {
		w.mu.Unlock()
		return
	}
	proxy.lastAckNackCount = an.Count
	proxy.HighestAckedSN = an.ReaderSNState.BitmapBase - 1
	if an.Final {
		// reader asked for no heartbeat in response; push the next
		// periodic one out a full period.
		w.lastHeartbeatAt = time.Now()
	}
	w.mu.Unlock()

	for i := uint32(0); i < an.ReaderSNState.NumBits; i++ {
		sn := an.ReaderSNState.BitmapBase + wire.SequenceNumber(i)
		if an.ReaderSNState.Has(sn) {
			w.history.markUnsentFor(sn, remote)
			metrics.Retransmits.WithLabelValues(w.guid.String()).Inc()
		}
	}
	w.dispatch.enqueueOutgoing(w)
}

func (w *StatefulWriter) findProxy(remote wire.GUID) *ReaderProxy {
	for _, p := range w.proxies {
		if p.RemoteGUID == remote {
			return p
		}
	}
	return nil
}

func (w *StatefulWriter) progress() bool {
	w.mu.Lock()
	proxies := append([]*ReaderProxy(nil), w.proxies...)
	dueHeartbeat := time.Since(w.lastHeartbeatAt) >= w.heartbeatPeriod
	if dueHeartbeat {
		w.lastHeartbeatAt = time.Now()
	}
	w.mu.Unlock()

	moreWork := false
	for _, proxy := range proxies {
		if change, ok := w.history.NextUnsentStateful(proxy.RemoteGUID, proxy.HighestAckedSN); ok {
			w.sendData(proxy, change)
			w.history.MarkSent(change.SN, proxy.RemoteGUID)
			if _, ok := w.history.NextUnsentStateful(proxy.RemoteGUID, proxy.HighestAckedSN); ok {
				moreWork = true
			}
		}
		if dueHeartbeat && proxy.IsReliable {
			w.sendHeartbeat(proxy)
		}
	}
	return moreWork
}

func (w *StatefulWriter) sendData(proxy *ReaderProxy, change CacheChange) {
	hdr := wire.Header{
		Version:    wire.SupportedVersion,
		VendorID:   wire.VendorID(w.participant.config.VendorID),
		GuidPrefix: w.participant.guidPrefix,
	}
	mb := wire.NewMessageBuilder(hdr)
	ts := wire.InfoTS{Timestamp: wire.TimeFromGo(time.Now())}
	mb.Append(ts.Encode())

	d := wire.Data{
		ReaderID:          proxy.RemoteGUID.Entity,
		WriterID:          w.guid.Entity,
		WriterSN:          change.SN,
		SerializedPayload: change.Data,
		LittleEndian:      true,
	}
	mb.Append(d.Encode())

	if err := w.participant.transport.Send(proxy.RemoteLocator, mb.Bytes()); err != nil {
		w.participant.logger.Warnw("stateful writer send failed", "writer", w.guid, "err", err)
	}
}

func (w *StatefulWriter) sendHeartbeat(proxy *ReaderProxy) {
	hdr := wire.Header{
		Version:    wire.SupportedVersion,
		VendorID:   wire.VendorID(w.participant.config.VendorID),
		GuidPrefix: w.participant.guidPrefix,
	}
	mb := wire.NewMessageBuilder(hdr)

	hb := wire.Heartbeat{
		ReaderID:     proxy.RemoteGUID.Entity,
		WriterID:     w.guid.Entity,
		FirstSN:      w.history.MinAvailableSN(),
		LastSN:       w.history.LastSN(),
		Count:        proxy.NextHeartbeatCount(),
		Final:        false,
		LittleEndian: true,
	}
	mb.Append(hb.Encode())

	if err := w.participant.transport.Send(proxy.RemoteLocator, mb.Bytes()); err != nil {
		w.participant.logger.Warnw("heartbeat send failed", "writer", w.guid, "err", err)
	}
}
