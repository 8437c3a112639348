package wire

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Locator kinds, RTPS spec 9.3.2 (only UDPv4 is implemented).
const (
	LocatorKindInvalid = -1
	LocatorKindUDPv4   = 1
	LocatorKindUDPv6   = 2
)

// LocatorLen is the wire size of a Locator: kind(4) + port(4) + address(16).
const LocatorLen = 24

// Locator names a network endpoint. Only the last 4 bytes of Address
// are meaningful for LocatorKindUDPv4.
type Locator struct {
	Kind    int32
	Port    uint32
	Address [16]byte
}

// NewUDPv4Locator builds a Locator for an IPv4 address and UDP port.
func NewUDPv4Locator(ip net.IP, port uint16) Locator {
	var loc Locator
	loc.Kind = LocatorKindUDPv4
	loc.Port = uint32(port)
	v4 := ip.To4()
	copy(loc.Address[12:], v4)
	return loc
}

// IP returns the IPv4 address held in a UDPv4 locator.
func (l Locator) IP() net.IP {
	return net.IPv4(l.Address[12], l.Address[13], l.Address[14], l.Address[15])
}

func (l Locator) String() string {
	return fmt.Sprintf("%s:%d", l.IP().String(), l.Port)
}

// Encode renders the locator in the fixed 24-byte PID_*_LOCATOR shape,
// little-endian, per the encapsulation scheme carried by the
// enclosing parameter list.
func (l Locator) Encode() []byte {
	b := make([]byte, LocatorLen)
	binary.LittleEndian.PutUint32(b[0:], uint32(l.Kind))
	binary.LittleEndian.PutUint32(b[4:], l.Port)
	copy(b[8:], l.Address[:])
	return b
}

// DecodeLocator parses a locator out of b.
func DecodeLocator(b []byte) (Locator, error) {
	if len(b) < LocatorLen {
		return Locator{}, ErrTruncated
	}
	var l Locator
	l.Kind = int32(binary.LittleEndian.Uint32(b[0:]))
	l.Port = binary.LittleEndian.Uint32(b[4:])
	copy(l.Address[:], b[8:24])
	return l, nil
}
