package rtps

import (
	"context"
	"encoding/binary"
	"net"
	"time"

	"github.com/fathomdds/rtps/wire"
)

// spdpAgent implements Simple Participant Discovery: a periodic
// multicast announcement of the local participant plus inbound
// detection of peers.
type spdpAgent struct {
	participant *Participant
	writer      *StatelessWriter

	cancel context.CancelFunc
	done   chan struct{}
}

func newSPDPAgent(p *Participant) *spdpAgent {
	return &spdpAgent{participant: p}
}

func (a *spdpAgent) start(ctx context.Context, mcastLoc wire.Locator) {
	a.writer.AddReaderProxy(wire.GUID{Entity: wire.EntityIDSPDPBuiltinParticipantReader}, mcastLoc)

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})

	go func() {
		defer close(a.done)
		period := a.participant.config.SPDPResendPeriod
		if period <= 0 {
			period = time.Second
		}
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		a.announce()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.announce()
			}
		}
	}()
}

func (a *spdpAgent) stop() {
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}
}

// announce publishes the local ParticipantProxyData and marks every
// retained change unsent so the whole announcement set goes out again.
func (a *spdpAgent) announce() {
	payload := a.encodeLocalProxyData()
	a.writer.NewChange(ChangeAlive, payload)
	a.writer.UnsentChangesReset()
}

func (a *spdpAgent) encodeLocalProxyData() []byte {
	p := a.participant
	var order binary.ByteOrder = binary.LittleEndian

	selfGUID := wire.GUID{Prefix: p.guidPrefix, Entity: wire.EntityIDParticipant}
	unicastLoc := wire.NewUDPv4Locator(localUnicastIP(p.transport), p.config.BuiltinUnicastPort())
	mcastLoc := wire.NewUDPv4Locator(multicastAddr(), p.config.BuiltinMulticastPort())

	beSet := BuiltinEndpointParticipantAnnouncer | BuiltinEndpointParticipantDetector |
		BuiltinEndpointPublicationsAnnouncer | BuiltinEndpointPublicationsDetector |
		BuiltinEndpointSubscriptionsAnnouncer | BuiltinEndpointSubscriptionsDetector

	beBytes := make([]byte, 4)
	order.PutUint32(beBytes, beSet)

	vendorBytes := make([]byte, 2)
	order.PutUint16(vendorBytes, p.config.VendorID)

	params := []wire.Param{
		{ID: wire.PIDParticipantGUID, Value: selfGUID.Bytes()},
		{ID: wire.PIDProtocolVersion, Value: []byte{wire.SupportedVersion.Major, wire.SupportedVersion.Minor, 0, 0}},
		{ID: wire.PIDVendorID, Value: vendorBytes},
		{ID: wire.PIDMetatrafficUnicastLocator, Value: unicastLoc.Encode()},
		{ID: wire.PIDMetatrafficMcastLocator, Value: mcastLoc.Encode()},
		{ID: wire.PIDDefaultUnicastLocator, Value: unicastLoc.Encode()},
		{ID: wire.PIDBuiltinEndpointSet, Value: beBytes},
		{ID: wire.PIDParticipantLeaseDuration, Value: wire.EncodeDuration(10*a.participant.config.SPDPResendPeriod, order)},
	}
	enc := wire.EncapsulationHeader{Scheme: wire.SchemePLCDRLE}.Encode()
	return append(enc, wire.EncodeParamList(params)...)
}

// onAnnouncement is the SPDP reader's sample callback.
func (a *spdpAgent) onAnnouncement(sample SampleView) {
	p := a.participant
	if len(sample.Payload) < 4 {
		return
	}
	encHdr, err := wire.DecodeEncapsulationHeader(sample.Payload, binary.LittleEndian)
	if err != nil {
		p.logger.Debugw("malformed SPDP payload", "err", err)
		return
	}
	var order binary.ByteOrder = binary.LittleEndian
	if encHdr.Scheme == wire.SchemePLCDRBE {
		order = binary.BigEndian
	}
	params, _, err := wire.DecodeParamList(sample.Payload[4:], order)
	if err != nil {
		p.logger.Debugw("malformed SPDP param list", "err", err)
		return
	}

	pd := &ParticipantProxyData{LastSeen: time.Now()}
	var remoteGUID wire.GUID
	for _, param := range params {
		switch param.ID {
		case wire.PIDParticipantGUID:
			g, err := wire.GUIDFromBytes(param.Value)
			if err == nil {
				remoteGUID = g
				pd.GuidPrefix = g.Prefix
			}
		case wire.PIDMetatrafficUnicastLocator:
			if l, err := wire.DecodeLocator(param.Value); err == nil {
				pd.MetatrafficUnicastLocator = l
			}
		case wire.PIDMetatrafficMcastLocator:
			if l, err := wire.DecodeLocator(param.Value); err == nil {
				pd.MetatrafficMulticastLocator = l
			}
		case wire.PIDDefaultUnicastLocator:
			if l, err := wire.DecodeLocator(param.Value); err == nil {
				pd.DefaultUnicastLocator = l
			}
		case wire.PIDBuiltinEndpointSet:
			if len(param.Value) >= 4 {
				pd.BuiltinEndpointSet = order.Uint32(param.Value)
			}
		case wire.PIDParticipantLeaseDuration:
			if d, err := wire.DecodeDuration(param.Value, order); err == nil {
				pd.LeaseDuration = d
			}
		case wire.PIDVendorID:
			if len(param.Value) >= 2 {
				pd.VendorID = wire.VendorID(order.Uint16(param.Value))
			}
		}
	}

	if remoteGUID.Prefix == p.guidPrefix {
		// own announcement looped back via multicast; never add
		// ourselves to the remote table.
		return
	}

	if _, ok := p.FindRemoteParticipant(pd.GuidPrefix); ok {
		p.RefreshRemoteParticipant(pd.GuidPrefix)
		a.writer.UnsentChangesReset()
		return
	}

	if p.AddRemoteParticipant(pd) {
		p.logger.Infow("discovered participant", "prefix", pd.GuidPrefix)
		p.sedp.wireRemoteParticipant(pd)
		a.writer.UnsentChangesReset()
	}
}

// localUnicastIP is the participant's own address advertised in SPDP:
// the transport's LocalIP when it exposes one (transport/udpnet does,
// honoring ParticipantConfig.NetworkInterface), otherwise loopback,
// which only suits loopback-only test setups.
func localUnicastIP(t Transport) net.IP {
	if lt, ok := t.(interface{ LocalIP() net.IP }); ok {
		if ip := lt.LocalIP(); ip != nil {
			return ip
		}
	}
	return net.IPv4(127, 0, 0, 1)
}
