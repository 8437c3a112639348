// Package wire implements the on-the-wire RTPS message format: the
// fixed message header, the submessage grammar, and the PL_CDR
// parameter-list encoding. It knows nothing about participants,
// endpoints, or reliability — only how to turn those concepts' values
// into bytes and back.
package wire

import (
	"encoding/binary"
	"fmt"
)

// GuidPrefixLen is the length in bytes of a GuidPrefix.
const GuidPrefixLen = 12

// Magic is the 4-byte "RTPS" marker that opens every message.
const Magic = 0x52545053

// VendorID identifies the implementation that produced a message.
type VendorID uint16

// VendorName resolves well-known RTPS vendor ids for diagnostics.
func VendorName(id VendorID) string {
	switch id {
	case 0x0101:
		return "RTI Connext"
	case 0x0102:
		return "PrismTech OpenSplice"
	case 0x0103:
		return "OCI OpenDDS"
	case 0x0104:
		return "MilSoft"
	case 0x0105:
		return "Gallium InterCOM"
	case 0x0106:
		return "TwinOaks CoreDX"
	case 0x0107:
		return "Lakota Technical Systems"
	case 0x0108:
		return "ICOUP Consulting"
	case 0x0109:
		return "ETRI"
	case 0x010a:
		return "RTI Connext Micro"
	case 0x010b:
		return "PrismTech Vortex Cafe"
	case 0x010c:
		return "PrismTech Vortex Gateway"
	case 0x010d:
		return "PrismTech Vortex Lite"
	case 0x010e:
		return "Technicolor Qeo"
	case 0x010f:
		return "eProsima"
	case 0x0120:
		return "PrismTech Vortex Cloud"
	case VendorIDFathom:
		return "fathomdds"
	default:
		return "unknown"
	}
}

// VendorIDFathom is this implementation's own vendor id.
const VendorIDFathom VendorID = 0x1234

// EntityID kind bytes and masks, RTPS spec 9.3.1.2.
const (
	EntityKindSourceMask    = 0xc0
	EntityKindSourceUser    = 0x00
	EntityKindSourceBuiltin = 0xc0
	EntityKindSourceVendor  = 0x40
	EntityKindMask          = 0x3f
	EntityKindWriterWithKey = 0x02
	EntityKindWriterNoKey   = 0x03
	EntityKindReaderNoKey   = 0x04
	EntityKindReaderWithKey = 0x07
	EntityKindAllocStep     = 0x100
	EntityKindParticipant   = 0x1c1
)

// Well-known EntityIDs for built-in endpoints, RTPS spec 8.5.4.
const (
	EntityIDUnknown                            EntityID = 0x0
	EntityIDParticipant                        EntityID = EntityKindParticipant
	EntityIDSPDPBuiltinParticipantWriter       EntityID = 0x100c2
	EntityIDSPDPBuiltinParticipantReader       EntityID = 0x100c7
	EntityIDSEDPBuiltinPublicationsWriter      EntityID = 0x3c2
	EntityIDSEDPBuiltinPublicationsReader      EntityID = 0x3c7
	EntityIDSEDPBuiltinSubscriptionsWriter     EntityID = 0x4c2
	EntityIDSEDPBuiltinSubscriptionsReader     EntityID = 0x4c7
	EntityIDP2PBuiltinParticipantMessageWriter EntityID = 0x200c2
	EntityIDP2PBuiltinParticipantMessageReader EntityID = 0x200c7
)

// EntityID is a 3-byte entity key plus a 1-byte kind, always carried
// as a big-endian uint32 regardless of the enclosing submessage's
// indicated byte order — RTPS spec 9.4.5.1.3 fixes EntityId_t's wire
// representation independently of CDR endianness.
type EntityID uint32

// Kind returns the entity-kind byte (low byte of the id).
func (e EntityID) Kind() uint8 { return uint8(e & 0xff) }

// IsWriter reports whether the id names a writer entity.
func (e EntityID) IsWriter() bool {
	switch e.Kind() & EntityKindMask {
	case EntityKindWriterWithKey, EntityKindWriterNoKey:
		return true
	}
	return false
}

// IsReader reports whether the id names a reader entity.
func (e EntityID) IsReader() bool {
	switch e.Kind() & EntityKindMask {
	case EntityKindReaderWithKey, EntityKindReaderNoKey:
		return true
	}
	return false
}

// IsBuiltin reports whether the id names a built-in (protocol-defined)
// entity rather than a user-created one.
func (e EntityID) IsBuiltin() bool {
	return e.Kind()&EntityKindSourceMask == EntityKindSourceBuiltin
}

func (e EntityID) String() string {
	return fmt.Sprintf("0x%08x", uint32(e))
}

// PutEntityID writes id big-endian into b[0:4].
func PutEntityID(b []byte, id EntityID) {
	binary.BigEndian.PutUint32(b, uint32(id))
}

// GetEntityID reads a big-endian EntityID from b[0:4].
func GetEntityID(b []byte) EntityID {
	return EntityID(binary.BigEndian.Uint32(b))
}

// GuidPrefix identifies a participant. It is opaque at the protocol
// level; this implementation fills it from the vendor id, the host's
// interface hardware address, and a process-unique suffix (see
// transport/udpnet for how it is generated).
type GuidPrefix [GuidPrefixLen]byte

func (g GuidPrefix) String() string {
	return fmt.Sprintf("%02x%02x%02x%02x-%02x%02x%02x%02x-%02x%02x%02x%02x",
		g[0], g[1], g[2], g[3], g[4], g[5], g[6], g[7], g[8], g[9], g[10], g[11])
}

// GUID is a GuidPrefix qualified by an EntityID: globally unique at
// the protocol level.
type GUID struct {
	Prefix GuidPrefix
	Entity EntityID
}

// Unknown reports whether g carries no identifying information.
func (g GUID) Unknown() bool {
	return g.Entity == EntityIDUnknown && g.Prefix == GuidPrefix{}
}

func (g GUID) String() string {
	return fmt.Sprintf("%s:%s", g.Prefix.String(), g.Entity.String())
}

// Bytes renders the GUID as the 16-byte value used inside
// PID_PARTICIPANT_GUID / PID_ENDPOINT_GUID / PID_KEY_HASH parameters:
// the 12-byte prefix followed by the entity id, big-endian.
func (g GUID) Bytes() []byte {
	b := make([]byte, GuidPrefixLen+4)
	copy(b, g.Prefix[:])
	PutEntityID(b[GuidPrefixLen:], g.Entity)
	return b
}

// GUIDFromBytes parses the 16-byte encoding produced by GUID.Bytes.
func GUIDFromBytes(b []byte) (GUID, error) {
	if len(b) < GuidPrefixLen+4 {
		return GUID{}, ErrTruncated
	}
	var g GUID
	copy(g.Prefix[:], b[:GuidPrefixLen])
	g.Entity = GetEntityID(b[GuidPrefixLen:])
	return g, nil
}
