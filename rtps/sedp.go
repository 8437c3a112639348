package rtps

import (
	"encoding/binary"
	"sync"

	"github.com/fathomdds/rtps/wire"
)

// discoveredEndpoint is the parsed content of one SEDP publication or
// subscription announcement.
type discoveredEndpoint struct {
	GUID    wire.GUID
	Topic   TopicData
	Locator wire.Locator
}

// sedpAgent implements Simple Endpoint Discovery: after an SPDP
// match, reliably exchanges publication/subscription metadata and
// wires matched reader/writer proxies on user endpoints.
type sedpAgent struct {
	participant *Participant
	pubWriter   *StatefulWriter
	subWriter   *StatefulWriter

	mu                 sync.Mutex
	localPublications  []discoveredEndpoint
	localSubscriptions []discoveredEndpoint
}

func newSEDPAgent(p *Participant) *sedpAgent {
	return &sedpAgent{participant: p}
}

// wireRemoteParticipant wires the four SEDP built-in endpoints against
// a newly discovered peer according to its BUILTIN_ENDPOINT_SET
// bitmask.
func (a *sedpAgent) wireRemoteParticipant(pd *ParticipantProxyData) {
	loc := pd.MetatrafficUnicastLocator

	if pd.BuiltinEndpointSet&BuiltinEndpointPublicationsDetector != 0 {
		remote := wire.GUID{Prefix: pd.GuidPrefix, Entity: wire.EntityIDSEDPBuiltinPublicationsReader}
		a.pubWriter.AddReaderProxy(remote, loc)
	}
	if pd.BuiltinEndpointSet&BuiltinEndpointSubscriptionsDetector != 0 {
		remote := wire.GUID{Prefix: pd.GuidPrefix, Entity: wire.EntityIDSEDPBuiltinSubscriptionsReader}
		a.subWriter.AddReaderProxy(remote, loc)
	}
	if pd.BuiltinEndpointSet&BuiltinEndpointPublicationsAnnouncer != 0 {
		remote := wire.GUID{Prefix: pd.GuidPrefix, Entity: wire.EntityIDSEDPBuiltinPublicationsWriter}
		if r, ok := a.participant.localReader(wire.EntityIDSEDPBuiltinPublicationsReader); ok {
			r.(*StatefulReader).AddMatchedWriter(remote, loc)
		}
	}
	if pd.BuiltinEndpointSet&BuiltinEndpointSubscriptionsAnnouncer != 0 {
		remote := wire.GUID{Prefix: pd.GuidPrefix, Entity: wire.EntityIDSEDPBuiltinSubscriptionsWriter}
		if r, ok := a.participant.localReader(wire.EntityIDSEDPBuiltinSubscriptionsReader); ok {
			r.(*StatefulReader).AddMatchedWriter(remote, loc)
		}
	}
}

// announcePublication publishes w's endpoint metadata on the SEDP
// publications writer.
func (a *sedpAgent) announcePublication(w *StatefulWriter) {
	a.mu.Lock()
	a.localPublications = append(a.localPublications, discoveredEndpoint{GUID: w.GUID(), Topic: w.Topic()})
	a.mu.Unlock()

	payload := encodeEndpointAnnouncement(w.GUID(), w.Topic())
	a.pubWriter.NewChange(ChangeAlive, payload)
}

// announceSubscription publishes a reader's endpoint metadata on the
// SEDP subscriptions writer.
func (a *sedpAgent) announceSubscription(guid wire.GUID, topic TopicData) {
	a.mu.Lock()
	a.localSubscriptions = append(a.localSubscriptions, discoveredEndpoint{GUID: guid, Topic: topic})
	a.mu.Unlock()

	payload := encodeEndpointAnnouncement(guid, topic)
	a.subWriter.NewChange(ChangeAlive, payload)
}

// onPublication is the SEDP publications reader's callback: for a
// remote writer announcement, match against local subscriptions on
// the same topic and type name.
func (a *sedpAgent) onPublication(sample SampleView) {
	remote, ok := decodeEndpointAnnouncement(sample.Payload)
	if !ok {
		return
	}
	remote.Locator = a.remoteUnicastLocator(remote.GUID.Prefix)

	a.mu.Lock()
	var matches []discoveredEndpoint
	for _, sub := range a.localSubscriptions {
		if sub.Topic.TopicName == remote.Topic.TopicName && sub.Topic.TypeName == remote.Topic.TypeName {
			matches = append(matches, sub)
		}
	}
	a.mu.Unlock()

	for _, sub := range matches {
		if r, ok := a.participant.localReader(sub.GUID.Entity); ok {
			if sr, ok := r.(*StatefulReader); ok {
				sr.AddMatchedWriter(remote.GUID, remote.Locator)
				a.participant.logger.Infow("sedp matched reader to writer", "topic", remote.Topic.TopicName, "writer", remote.GUID)
			}
		}
	}
}

// onSubscription is the SEDP subscriptions reader's callback,
// symmetric to onPublication.
func (a *sedpAgent) onSubscription(sample SampleView) {
	remote, ok := decodeEndpointAnnouncement(sample.Payload)
	if !ok {
		return
	}
	remote.Locator = a.remoteUnicastLocator(remote.GUID.Prefix)

	a.mu.Lock()
	var matches []discoveredEndpoint
	for _, pub := range a.localPublications {
		if pub.Topic.TopicName == remote.Topic.TopicName && pub.Topic.TypeName == remote.Topic.TypeName {
			matches = append(matches, pub)
		}
	}
	a.mu.Unlock()

	for _, pub := range matches {
		if w, ok := a.participant.localWriter(pub.GUID.Entity); ok {
			if sw, ok := w.(*StatefulWriter); ok {
				sw.AddReaderProxy(remote.GUID, remote.Locator)
				a.participant.logger.Infow("sedp matched writer to reader", "topic", remote.Topic.TopicName, "reader", remote.GUID)
			}
		}
	}
}

// remoteUnicastLocator resolves the locator to address a remote
// endpoint at: SEDP's "Parameters handled" set carries no per-endpoint
// locator, so this uses the owning participant's default unicast
// locator learned via SPDP.
func (a *sedpAgent) remoteUnicastLocator(prefix wire.GuidPrefix) wire.Locator {
	if pd, ok := a.participant.FindRemoteParticipant(prefix); ok {
		return pd.DefaultUnicastLocator
	}
	return wire.Locator{}
}

func encodeEndpointAnnouncement(guid wire.GUID, topic TopicData) []byte {
	var order binary.ByteOrder = binary.LittleEndian
	reliabilityByte := []byte{0}
	if topic.Reliability == Reliable {
		reliabilityByte[0] = 1
	}
	params := []wire.Param{
		{ID: wire.PIDEndpointGUID, Value: guid.Bytes()},
		{ID: wire.PIDTopicName, Value: wire.PackString(order, topic.TopicName)},
		{ID: wire.PIDTypeName, Value: wire.PackString(order, topic.TypeName)},
		{ID: wire.PIDReliability, Value: reliabilityByte},
		{ID: wire.PIDKeyHash, Value: guid.Bytes()},
	}
	enc := wire.EncapsulationHeader{Scheme: wire.SchemePLCDRLE}.Encode()
	return append(enc, wire.EncodeParamList(params)...)
}

func decodeEndpointAnnouncement(payload []byte) (discoveredEndpoint, bool) {
	if len(payload) < 4 {
		return discoveredEndpoint{}, false
	}
	var order binary.ByteOrder = binary.LittleEndian
	encHdr, err := wire.DecodeEncapsulationHeader(payload, order)
	if err != nil {
		return discoveredEndpoint{}, false
	}
	if encHdr.Scheme == wire.SchemePLCDRBE {
		order = binary.BigEndian
	}
	params, _, err := wire.DecodeParamList(payload[4:], order)
	if err != nil {
		return discoveredEndpoint{}, false
	}

	var d discoveredEndpoint
	var reliability ReliabilityKind
	for _, p := range params {
		switch p.ID {
		case wire.PIDEndpointGUID:
			if g, err := wire.GUIDFromBytes(p.Value); err == nil {
				d.GUID = g
			}
		case wire.PIDTopicName:
			if s, err := wire.UnpackString(order, p.Value); err == nil {
				d.Topic.TopicName = s
			}
		case wire.PIDTypeName:
			if s, err := wire.UnpackString(order, p.Value); err == nil {
				d.Topic.TypeName = s
			}
		case wire.PIDReliability:
			if len(p.Value) > 0 && p.Value[0] == 1 {
				reliability = Reliable
			}
		}
	}
	d.Topic.Reliability = reliability
	return d, !d.GUID.Unknown()
}
