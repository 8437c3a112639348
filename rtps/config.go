package rtps

import (
	"net"
	"time"
)

// RTPS well-known port formula constants.
const (
	PortBase               = 7400
	DomainGain             = 250
	ParticipantGain        = 2
	OffsetBuiltinMulticast = 0
	OffsetBuiltinUnicast   = 10
	OffsetUserUnicast      = 11
)

// DefaultMulticastAddress is the well-known SPDP multicast group.
const DefaultMulticastAddress = "239.255.0.1"

// ParticipantConfig carries every tunable the engine needs, passed at
// construction rather than read from globals. yaml tags let cmd/rtpsd
// load it from a file.
type ParticipantConfig struct {
	DomainID      uint32 `yaml:"domain_id"`
	ParticipantID uint32 `yaml:"participant_id"`

	SPDPResendPeriod time.Duration `yaml:"spdp_resend_period"`
	HeartbeatPeriod  time.Duration `yaml:"heartbeat_period"`

	VendorID uint16 `yaml:"vendor_id"`

	WriterHistoryDepth int `yaml:"writer_history_depth"`
	ReaderQueueDepth   int `yaml:"reader_queue_depth"`
	IncomingQueueDepth int `yaml:"incoming_queue_depth"`
	OutgoingQueueDepth int `yaml:"outgoing_queue_depth"`

	ReaderThreads int `yaml:"reader_threads"`
	WriterThreads int `yaml:"writer_threads"`

	// NetworkInterface overrides the auto-selected network interface
	// name used for multicast join; empty means let the transport pick.
	NetworkInterface string `yaml:"network_interface"`
}

// DefaultParticipantConfig returns sane defaults: history depth 10
// for user writers, a 1s SPDP resend period, and single reader and
// writer goroutines.
func DefaultParticipantConfig() ParticipantConfig {
	return ParticipantConfig{
		DomainID:           0,
		ParticipantID:      0,
		SPDPResendPeriod:   time.Second,
		HeartbeatPeriod:    500 * time.Millisecond,
		VendorID:           0x1234,
		WriterHistoryDepth: 10,
		ReaderQueueDepth:   16,
		IncomingQueueDepth: 64,
		OutgoingQueueDepth: 64,
		ReaderThreads:      1,
		WriterThreads:      1,
	}
}

// BuiltinMulticastPort is the port SPDP announcements are sent/received on.
func (c ParticipantConfig) BuiltinMulticastPort() uint16 {
	return uint16(PortBase + DomainGain*c.DomainID + OffsetBuiltinMulticast)
}

// BuiltinUnicastPort is the per-participant port for built-in (SEDP, SPDP reply) unicast traffic.
func (c ParticipantConfig) BuiltinUnicastPort() uint16 {
	return uint16(PortBase + DomainGain*c.DomainID + OffsetBuiltinUnicast + ParticipantGain*c.ParticipantID)
}

// UserUnicastPort is the per-participant port for user endpoint unicast traffic.
func (c ParticipantConfig) UserUnicastPort() uint16 {
	return uint16(PortBase + DomainGain*c.DomainID + OffsetUserUnicast + ParticipantGain*c.ParticipantID)
}

// multicastAddr returns the well-known SPDP multicast group address.
func multicastAddr() net.IP {
	return net.ParseIP(DefaultMulticastAddress)
}
