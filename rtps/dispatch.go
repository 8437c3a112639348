package rtps

import (
	"context"
	"sync"

	"github.com/fathomdds/rtps/rtps/metrics"
	"github.com/fathomdds/rtps/wire"
)

// PacketInfo is one inbound datagram plus the locality the transport
// received it on. SrcAddr appears in drop logs; routing uses the
// message header's GuidPrefix and any INFO_DST submessage, and replies
// go to the locators held by the matched proxies, not to these fields.
type PacketInfo struct {
	Buffer   []byte
	SrcAddr  string
	SrcPort  uint16
	DestPort uint16
}

// ring is a fixed-capacity FIFO guarded by a mutex with a buffered
// doorbell channel standing in for a counting semaphore.
type ring[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	doorbell chan struct{}
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{capacity: capacity, doorbell: make(chan struct{}, capacity)}
}

func (r *ring[T]) push(v T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) >= r.capacity {
		return false
	}
	r.items = append(r.items, v)
	select {
	case r.doorbell <- struct{}{}:
	default:
	}
	return true
}

func (r *ring[T]) pop() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	if len(r.items) == 0 {
		return zero, false
	}
	v := r.items[0]
	r.items = r.items[1:]
	return v, true
}

func (r *ring[T]) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}

// Dispatcher owns the two bounded queues and the reader/writer
// goroutine pools that drain them.
type Dispatcher struct {
	incoming *ring[PacketInfo]
	outgoing *ring[progressor]

	participant *Participant

	readerThreads int
	writerThreads int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newDispatcher(p *Participant, incomingDepth, outgoingDepth, readerThreads, writerThreads int) *Dispatcher {
	return &Dispatcher{
		incoming:      newRing[PacketInfo](incomingDepth),
		outgoing:      newRing[progressor](outgoingDepth),
		participant:   p,
		readerThreads: readerThreads,
		writerThreads: writerThreads,
	}
}

// AddIncoming enqueues a datagram for a reader goroutine to parse.
// Returns false if the queue is full; the caller (the transport)
// drops the packet.
func (d *Dispatcher) AddIncoming(pkt PacketInfo) bool {
	return d.incoming.push(pkt)
}

// enqueueOutgoing schedules w to have progress() called. Returns
// false if the outgoing queue is full; the writer will be retried on
// its next resetSend, backpressure rules.
func (d *Dispatcher) enqueueOutgoing(w progressor) bool {
	return d.outgoing.push(w)
}

// Start launches the reader and writer goroutine pools.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	for i := 0; i < d.readerThreads; i++ {
		d.wg.Add(1)
		go d.readerLoop(ctx)
	}
	for i := 0; i < d.writerThreads; i++ {
		d.wg.Add(1)
		go d.writerLoop(ctx)
	}
}

// Stop signals all goroutines to exit, waits for them, and drains
// both queues.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.incoming.clear()
	d.outgoing.clear()
}

func (d *Dispatcher) readerLoop(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.incoming.doorbell:
			for {
				pkt, ok := d.incoming.pop()
				if !ok {
					break
				}
				d.handlePacket(pkt)
			}
		}
	}
}

func (d *Dispatcher) writerLoop(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.outgoing.doorbell:
			for {
				w, ok := d.outgoing.pop()
				if !ok {
					break
				}
				if w.progress() {
					d.outgoing.push(w)
				}
			}
		}
	}
}

// handlePacket parses one RTPS message and routes its submessages. A
// malformed packet (bad magic, truncated framing) is dropped whole;
// every other error is absorbed and logged.
func (d *Dispatcher) handlePacket(pkt PacketInfo) {
	hdr, err := wire.DecodeHeader(pkt.Buffer)
	if err != nil {
		d.participant.logger.Debugw("dropping malformed packet", "err", err, "src", pkt.SrcAddr)
		metrics.MalformedPacketsDropped.Inc()
		return
	}
	if hdr.GuidPrefix == d.participant.guidPrefix {
		// our own transmission looped back (multicast echo); drop.
		return
	}

	raws, err := wire.SplitSubmessages(pkt.Buffer[wire.HeaderLen:])
	if err != nil {
		d.participant.logger.Debugw("dropping malformed packet", "err", err, "src", pkt.SrcAddr)
		metrics.MalformedPacketsDropped.Inc()
		return
	}

	ctx := submsgContext{srcGuidPrefix: hdr.GuidPrefix, srcAddr: pkt.SrcAddr, srcPort: pkt.SrcPort}
	for _, raw := range raws {
		d.dispatchSubmessage(raw, &ctx)
	}
}

// submsgContext threads INFO_TS/INFO_DST state across the submessages
// of one message.
type submsgContext struct {
	srcGuidPrefix wire.GuidPrefix
	srcAddr       string
	srcPort       uint16
	timestamp     wire.Time
	destPrefix    *wire.GuidPrefix
}

func (d *Dispatcher) dispatchSubmessage(raw wire.RawSubmessage, ctx *submsgContext) {
	if ctx.destPrefix != nil && *ctx.destPrefix != d.participant.guidPrefix {
		// INFO_DST redirected this and later submessages to a
		// different participant; still track INFO_TS/INFO_DST state
		// but stop routing DATA/HEARTBEAT/ACKNACK.
		switch raw.Header.ID {
		case wire.SubmsgIDInfoTS, wire.SubmsgIDInfoDst:
		default:
			return
		}
	}
	switch raw.Header.ID {
	case wire.SubmsgIDInfoTS:
		ts, err := wire.DecodeInfoTS(raw)
		if err != nil {
			d.participant.logger.Debugw("malformed INFO_TS", "err", err)
			return
		}
		ctx.timestamp = ts.Timestamp
	case wire.SubmsgIDInfoDst:
		id, err := wire.DecodeInfoDst(raw)
		if err != nil {
			d.participant.logger.Debugw("malformed INFO_DST", "err", err)
			return
		}
		ctx.destPrefix = &id.GuidPrefix
	case wire.SubmsgIDData:
		dd, err := wire.DecodeData(raw)
		if err != nil {
			d.participant.logger.Debugw("malformed DATA", "err", err)
			return
		}
		writerGUID := wire.GUID{Prefix: ctx.srcGuidPrefix, Entity: dd.WriterID}
		d.routeData(dd.ReaderID, writerGUID, dd)
	case wire.SubmsgIDHeartbeat:
		hb, err := wire.DecodeHeartbeat(raw)
		if err != nil {
			d.participant.logger.Debugw("malformed HEARTBEAT", "err", err)
			return
		}
		writerGUID := wire.GUID{Prefix: ctx.srcGuidPrefix, Entity: hb.WriterID}
		d.routeHeartbeat(hb.ReaderID, writerGUID, hb)
	case wire.SubmsgIDAckNack:
		an, err := wire.DecodeAckNack(raw)
		if err != nil {
			d.participant.logger.Debugw("malformed ACKNACK", "err", err)
			return
		}
		readerGUID := wire.GUID{Prefix: ctx.srcGuidPrefix, Entity: an.ReaderID}
		d.routeAckNack(an.WriterID, readerGUID, an)
	default:
		// unrecognized submessage id: skipped via its declared length
		// by SplitSubmessages already; nothing further to do.
		d.participant.logger.Debugw("unknown submessage id", "id", raw.Header.ID)
	}
}

func (d *Dispatcher) routeData(readerID wire.EntityID, writerGUID wire.GUID, dd wire.Data) {
	for _, ep := range d.participant.matchingReaders(readerID) {
		switch r := ep.(type) {
		case *StatelessReader:
			r.onData(writerGUID, dd)
		case *StatefulReader:
			r.onData(writerGUID, dd)
		}
	}
}

func (d *Dispatcher) routeHeartbeat(readerID wire.EntityID, writerGUID wire.GUID, hb wire.Heartbeat) {
	for _, ep := range d.participant.matchingReaders(readerID) {
		if r, ok := ep.(*StatefulReader); ok {
			r.onHeartbeat(writerGUID, hb)
		}
	}
}

func (d *Dispatcher) routeAckNack(writerID wire.EntityID, readerGUID wire.GUID, an wire.AckNack) {
	for _, ep := range d.participant.matchingWriters(writerID) {
		if w, ok := ep.(*StatefulWriter); ok {
			w.OnAckNack(readerGUID, an)
		}
	}
}
