package rtps

import (
	"context"
	"sync"
	"time"

	"github.com/fathomdds/rtps/rtps/metrics"
	"github.com/fathomdds/rtps/wire"
)

// ParticipantProxyData is what SPDP learns about a remote
// participant.
type ParticipantProxyData struct {
	GuidPrefix                  wire.GuidPrefix
	VendorID                    wire.VendorID
	MetatrafficUnicastLocator   wire.Locator
	MetatrafficMulticastLocator wire.Locator
	DefaultUnicastLocator       wire.Locator
	BuiltinEndpointSet          uint32
	LeaseDuration               time.Duration
	LastSeen                    time.Time
}

// BuiltinEndpointSet bits, RTPS spec 8.5.3.3, the subset this
// implementation produces and consumes.
const (
	BuiltinEndpointParticipantAnnouncer   uint32 = 1 << 0
	BuiltinEndpointParticipantDetector    uint32 = 1 << 1
	BuiltinEndpointPublicationsAnnouncer  uint32 = 1 << 2
	BuiltinEndpointPublicationsDetector   uint32 = 1 << 3
	BuiltinEndpointSubscriptionsAnnouncer uint32 = 1 << 4
	BuiltinEndpointSubscriptionsDetector  uint32 = 1 << 5
)

// Participant owns the local endpoint registry, GUID prefix, and the
// table of remote participants.
type Participant struct {
	guidPrefix wire.GuidPrefix
	config     ParticipantConfig
	transport  Transport
	logger     Logger
	dispatcher *Dispatcher

	mu                sync.Mutex
	localReaders      map[wire.EntityID]interface{}
	localWriters      map[wire.EntityID]interface{}
	nextUserEntityKey uint32

	remoteMu sync.Mutex
	remotes  map[wire.GuidPrefix]*ParticipantProxyData

	spdp *spdpAgent
	sedp *sedpAgent

	started bool
}

// NewParticipant constructs a participant with its built-in endpoints
// wired but not yet started. guidPrefix must already be unique
// (transport/udpnet derives it); config supplies queue depths and
// timing.
func NewParticipant(guidPrefix wire.GuidPrefix, config ParticipantConfig, transport Transport, logger Logger) *Participant {
	if logger == nil {
		logger = NopLogger{}
	}
	p := &Participant{
		guidPrefix:   guidPrefix,
		config:       config,
		transport:    transport,
		logger:       logger,
		localReaders: make(map[wire.EntityID]interface{}),
		localWriters: make(map[wire.EntityID]interface{}),
		remotes:      make(map[wire.GuidPrefix]*ParticipantProxyData),
	}
	p.dispatcher = newDispatcher(p, config.IncomingQueueDepth, config.OutgoingQueueDepth, config.ReaderThreads, config.WriterThreads)
	p.spdp = newSPDPAgent(p)
	p.sedp = newSEDPAgent(p)
	p.registerBuiltins()
	return p
}

// AddRemoteParticipant registers proxyData. Returns
// false if an entry with the same GuidPrefix already exists.
func (p *Participant) AddRemoteParticipant(proxyData *ParticipantProxyData) bool {
	p.remoteMu.Lock()
	defer p.remoteMu.Unlock()
	if _, exists := p.remotes[proxyData.GuidPrefix]; exists {
		return false
	}
	p.remotes[proxyData.GuidPrefix] = proxyData
	metrics.RemoteParticipants.Set(float64(len(p.remotes)))
	return true
}

// FindRemoteParticipant looks up a remote participant by prefix.
func (p *Participant) FindRemoteParticipant(prefix wire.GuidPrefix) (*ParticipantProxyData, bool) {
	p.remoteMu.Lock()
	defer p.remoteMu.Unlock()
	pd, ok := p.remotes[prefix]
	return pd, ok
}

// ListRemoteParticipants returns a snapshot of every remote
// participant currently known via SPDP, for diagnostics such as
// cmd/rtpsd's `discover` subcommand.
func (p *Participant) ListRemoteParticipants() []ParticipantProxyData {
	p.remoteMu.Lock()
	defer p.remoteMu.Unlock()
	out := make([]ParticipantProxyData, 0, len(p.remotes))
	for _, pd := range p.remotes {
		out = append(out, *pd)
	}
	return out
}

// RefreshRemoteParticipant updates LastSeen for an already-known peer.
func (p *Participant) RefreshRemoteParticipant(prefix wire.GuidPrefix) {
	p.remoteMu.Lock()
	defer p.remoteMu.Unlock()
	if pd, ok := p.remotes[prefix]; ok {
		pd.LastSeen = time.Now()
	}
}

// Reap removes remote participants whose last SPDP refresh is older
// than olderThan. Nothing calls this automatically: lease expiry is
// left to the host, which can drive it off LeaseDuration if it wants
// dead peers cleaned up.
func (p *Participant) Reap(olderThan time.Duration) []wire.GuidPrefix {
	p.remoteMu.Lock()
	defer p.remoteMu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var reaped []wire.GuidPrefix
	for prefix, pd := range p.remotes {
		if pd.LastSeen.Before(cutoff) {
			delete(p.remotes, prefix)
			reaped = append(reaped, prefix)
		}
	}
	if len(reaped) > 0 {
		metrics.RemoteParticipants.Set(float64(len(p.remotes)))
	}
	return reaped
}

// allocEntityKey returns the next free 3-byte user entity key,
// packed with a kind byte into an EntityID by userEntityID.
func (p *Participant) allocEntityKey() uint32 {
	p.nextUserEntityKey++
	return p.nextUserEntityKey
}

func userEntityID(key uint32, kind uint8) wire.EntityID {
	return wire.EntityID(key<<8 | uint32(kind))
}

// NewStatelessWriter creates and registers a user stateless writer.
// Present for completeness; SPDP is the only stateless writer this
// engine actually constructs internally.
func (p *Participant) NewStatelessWriter(topic TopicData) *StatelessWriter {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := userEntityID(p.allocEntityKey(), entityKindForWriter(topic.TopicKind))
	guid := wire.GUID{Prefix: p.guidPrefix, Entity: id}
	w := newStatelessWriter(p, guid, topic, p.config.WriterHistoryDepth)
	p.localWriters[id] = w
	return w
}

// NewWriter creates a user StatefulWriter (the common case: all user
// writers in this engine are reliable-capable stateful writers; a
// BestEffort TopicData simply skips heartbeat/acknack bookkeeping on
// the reader side).
func (p *Participant) NewWriter(topic TopicData) *StatefulWriter {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := userEntityID(p.allocEntityKey(), entityKindForWriter(topic.TopicKind))
	guid := wire.GUID{Prefix: p.guidPrefix, Entity: id}
	w := newStatefulWriter(p, guid, topic, p.config.WriterHistoryDepth)
	p.localWriters[id] = w
	p.sedp.announcePublication(w)
	return w
}

// NewReader creates a user reader. BestEffort
// topics get a StatelessReader; Reliable topics get a StatefulReader.
func (p *Participant) NewReader(topic TopicData) interface{} {
	p.mu.Lock()
	id := userEntityID(p.allocEntityKey(), entityKindForReader(topic.TopicKind))
	guid := wire.GUID{Prefix: p.guidPrefix, Entity: id}

	var r interface{}
	if topic.Reliability == Reliable {
		r = newStatefulReader(p, guid, topic)
	} else {
		r = newStatelessReader(p, guid, topic)
	}
	p.localReaders[id] = r
	p.mu.Unlock()

	p.sedp.announceSubscription(guid, topic)
	return r
}

func entityKindForWriter(tk TopicKind) uint8 {
	if tk == WithKey {
		return wire.EntityKindWriterWithKey
	}
	return wire.EntityKindWriterNoKey
}

func entityKindForReader(tk TopicKind) uint8 {
	if tk == WithKey {
		return wire.EntityKindReaderWithKey
	}
	return wire.EntityKindReaderNoKey
}

func (p *Participant) matchingReaders(readerID wire.EntityID) []interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if readerID != wire.EntityIDUnknown {
		if r, ok := p.localReaders[readerID]; ok {
			return []interface{}{r}
		}
		return nil
	}
	var out []interface{}
	for _, r := range p.localReaders {
		out = append(out, r)
	}
	return out
}

// localReader returns the local reader endpoint registered under id, if any.
func (p *Participant) localReader(id wire.EntityID) (interface{}, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.localReaders[id]
	return r, ok
}

// localWriter returns the local writer endpoint registered under id, if any.
func (p *Participant) localWriter(id wire.EntityID) (interface{}, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.localWriters[id]
	return w, ok
}

func (p *Participant) matchingWriters(writerID wire.EntityID) []interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.localWriters[writerID]; ok {
		return []interface{}{w}
	}
	return nil
}

// GuidPrefix returns the participant's identifying prefix.
func (p *Participant) GuidPrefix() wire.GuidPrefix { return p.guidPrefix }

// Config returns the participant's configuration.
func (p *Participant) Config() ParticipantConfig { return p.config }

// Start opens the transport's sockets, launches the dispatcher
// pools, and begins SPDP announcements.
func (p *Participant) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = true
	p.mu.Unlock()

	fail := func(msg string, err error) error {
		p.mu.Lock()
		p.started = false
		p.mu.Unlock()
		return wrapErr(ErrNotInitialized, msg, err)
	}

	if err := p.transport.BindUnicast(p.config.BuiltinUnicastPort()); err != nil {
		return fail("bind builtin unicast port", err)
	}
	if err := p.transport.BindUnicast(p.config.UserUnicastPort()); err != nil {
		return fail("bind user unicast port", err)
	}
	mcastLoc := wire.NewUDPv4Locator(multicastAddr(), p.config.BuiltinMulticastPort())
	if err := p.transport.JoinMulticast(mcastLoc); err != nil {
		return fail("join spdp multicast", err)
	}

	p.transport.SetReceiver(func(buf []byte, srcAddr string, srcPort, destPort uint16) {
		p.dispatcher.AddIncoming(PacketInfo{Buffer: buf, SrcAddr: srcAddr, SrcPort: srcPort, DestPort: destPort})
	})

	p.dispatcher.Start(ctx)
	p.spdp.start(ctx, mcastLoc)
	return nil
}

// Stop halts the SPDP timer, the dispatcher pools, and every
// heartbeat loop, then closes the transport.
func (p *Participant) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	p.mu.Unlock()

	p.spdp.stop()
	p.dispatcher.Stop()

	p.mu.Lock()
	for _, w := range p.localWriters {
		if sw, ok := w.(*StatefulWriter); ok {
			sw.stopHeartbeats()
		}
	}
	p.mu.Unlock()

	return p.transport.Close()
}

func (p *Participant) registerBuiltins() {
	p.mu.Lock()
	defer p.mu.Unlock()

	spdpWriterGUID := wire.GUID{Prefix: p.guidPrefix, Entity: wire.EntityIDSPDPBuiltinParticipantWriter}
	spdpWriter := newStatelessWriter(p, spdpWriterGUID, TopicData{TopicName: "DCPSParticipant", TypeName: "SPDPDiscoveredParticipantData", TopicKind: WithKey}, 8)
	p.localWriters[wire.EntityIDSPDPBuiltinParticipantWriter] = spdpWriter
	p.spdp.writer = spdpWriter

	spdpReaderGUID := wire.GUID{Prefix: p.guidPrefix, Entity: wire.EntityIDSPDPBuiltinParticipantReader}
	spdpReader := newStatelessReader(p, spdpReaderGUID, TopicData{TopicName: "DCPSParticipant", TypeName: "SPDPDiscoveredParticipantData", TopicKind: WithKey})
	p.localReaders[wire.EntityIDSPDPBuiltinParticipantReader] = spdpReader
	spdpReader.RegisterCallback(p.spdp.onAnnouncement)

	for _, b := range []struct {
		id    wire.EntityID
		topic string
	}{
		{wire.EntityIDSEDPBuiltinPublicationsWriter, "DCPSPublication"},
		{wire.EntityIDSEDPBuiltinSubscriptionsWriter, "DCPSSubscription"},
	} {
		guid := wire.GUID{Prefix: p.guidPrefix, Entity: b.id}
		w := newStatefulWriter(p, guid, TopicData{TopicName: b.topic, TypeName: "DiscoveredEndpointData", TopicKind: WithKey, Reliability: Reliable}, 8)
		p.localWriters[b.id] = w
	}
	p.sedp.pubWriter = p.localWriters[wire.EntityIDSEDPBuiltinPublicationsWriter].(*StatefulWriter)
	p.sedp.subWriter = p.localWriters[wire.EntityIDSEDPBuiltinSubscriptionsWriter].(*StatefulWriter)

	for _, b := range []struct {
		id    wire.EntityID
		topic string
	}{
		{wire.EntityIDSEDPBuiltinPublicationsReader, "DCPSPublication"},
		{wire.EntityIDSEDPBuiltinSubscriptionsReader, "DCPSSubscription"},
	} {
		guid := wire.GUID{Prefix: p.guidPrefix, Entity: b.id}
		r := newStatefulReader(p, guid, TopicData{TopicName: b.topic, TypeName: "DiscoveredEndpointData", TopicKind: WithKey, Reliability: Reliable})
		p.localReaders[b.id] = r
	}
	pubReader := p.localReaders[wire.EntityIDSEDPBuiltinPublicationsReader].(*StatefulReader)
	pubReader.RegisterCallback(p.sedp.onPublication)
	subReader := p.localReaders[wire.EntityIDSEDPBuiltinSubscriptionsReader].(*StatefulReader)
	subReader.RegisterCallback(p.sedp.onSubscription)
}
