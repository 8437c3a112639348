// Package udpnet is the one shipped rtps.Transport implementation,
// backed by net.UDPConn. It owns interface selection, multicast group
// membership, and the socket side of the RTPS well-known port
// formula; the core only ever sees it through the narrow
// rtps.Transport interface.
package udpnet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/fathomdds/rtps/wire"
)

// maxDatagram bounds the receive buffer. Some vendors (OpenSplice)
// emit datagrams past the standard MTU; this engine never fragments
// DATA, so it never produces such a datagram itself, but inbound
// buffers are sized generously for interop.
const maxDatagram = 4096

// socket is one bound net.UDPConn plus the goroutine reading it.
type socket struct {
	conn *net.UDPConn
	addr *net.UDPAddr
}

// Adapter implements rtps.Transport over real UDP sockets. The zero
// value is not usable; construct with New.
type Adapter struct {
	iface   *net.Interface
	localIP net.IP

	mu       sync.Mutex
	sockets  []*socket
	receiver func(buf []byte, srcAddr string, srcPort, destPort uint16)

	logger Logger
}

// Logger is the narrow structured-logging interface udpnet calls into
// for socket-level warnings, mirroring rtps.Logger's shape so the same
// zap-backed implementation serves both (see cmd/rtpsd).
type Logger interface {
	Warnw(msg string, kv ...interface{})
	Infow(msg string, kv ...interface{})
}

type nopLogger struct{}

func (nopLogger) Warnw(string, ...interface{}) {}
func (nopLogger) Infow(string, ...interface{}) {}

// New selects a network interface (honoring ifaceName if non-empty,
// the ParticipantConfig.NetworkInterface override) and builds an
// Adapter bound to its first IPv4 address.
func New(ifaceName string, logger Logger) (*Adapter, error) {
	if logger == nil {
		logger = nopLogger{}
	}
	iface, err := selectInterface(ifaceName)
	if err != nil {
		return nil, err
	}
	ip, err := interfaceIPv4(iface)
	if err != nil {
		return nil, err
	}
	return &Adapter{iface: iface, localIP: ip, logger: logger}, nil
}

// LocalIP returns the IPv4 address this adapter binds unicast sockets
// on, for SPDP to advertise as its default/metatraffic locator.
func (a *Adapter) LocalIP() net.IP { return a.localIP }

// hardwareAddrBytes returns this interface's hardware address,
// zero-padded or truncated to 6 bytes, for the middle of the
// GuidPrefix.
func (a *Adapter) hardwareAddrBytes() []byte {
	hw := a.iface.HardwareAddr
	if len(hw) == 0 {
		return make([]byte, 6)
	}
	if len(hw) > 6 {
		hw = hw[:6]
	}
	out := make([]byte, 6)
	copy(out[6-len(hw):], hw)
	return out
}

// JoinMulticast opens a new multicast-listening socket on loc's port,
// joining the group on the selected interface.
func (a *Adapter) JoinMulticast(loc wire.Locator) error {
	udpAddr := &net.UDPAddr{IP: loc.IP(), Port: int(loc.Port)}
	conn, err := net.ListenMulticastUDP("udp4", a.iface, udpAddr)
	if err != nil {
		return fmt.Errorf("udpnet: join multicast %s on %s: %w", udpAddr, a.iface.Name, err)
	}
	a.addSocket(conn, udpAddr)
	return nil
}

// BindUnicast opens a unicast receive socket on the adapter's local
// IP and the given port.
func (a *Adapter) BindUnicast(port uint16) error {
	udpAddr := &net.UDPAddr{IP: a.localIP, Port: int(port)}
	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return fmt.Errorf("udpnet: bind unicast %s: %w", udpAddr, err)
	}
	a.addSocket(conn, udpAddr)
	return nil
}

func (a *Adapter) addSocket(conn *net.UDPConn, addr *net.UDPAddr) {
	s := &socket{conn: conn, addr: addr}
	a.mu.Lock()
	a.sockets = append(a.sockets, s)
	a.mu.Unlock()
	go a.receiveLoop(s)
}

// receiveLoop reads one socket until it is closed, handing every
// datagram to the registered receiver with its source and
// destination locality attached.
func (a *Adapter) receiveLoop(s *socket) {
	buf := make([]byte, maxDatagram)
	for {
		n, srcAddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			a.logger.Warnw("udpnet read failed", "local", s.addr.String(), "err", err)
			continue
		}
		a.mu.Lock()
		recv := a.receiver
		a.mu.Unlock()
		if recv == nil {
			continue
		}
		owned := make([]byte, n)
		copy(owned, buf[:n])
		recv(owned, srcAddr.IP.String(), uint16(srcAddr.Port), uint16(s.addr.Port))
	}
}

// SetReceiver installs the inbound-datagram callback.
func (a *Adapter) SetReceiver(fn func(buf []byte, srcAddr string, srcPort, destPort uint16)) {
	a.mu.Lock()
	a.receiver = fn
	a.mu.Unlock()
}

// Send transmits buf to dest. Any open socket can originate the
// datagram; UDP sends do not need to match the local port to the
// destination.
func (a *Adapter) Send(dest wire.Locator, buf []byte) error {
	a.mu.Lock()
	sockets := a.sockets
	a.mu.Unlock()
	if len(sockets) == 0 {
		return fmt.Errorf("udpnet: no open sockets to send from")
	}
	udpAddr := &net.UDPAddr{IP: dest.IP(), Port: int(dest.Port)}
	_, err := sockets[0].conn.WriteToUDP(buf, udpAddr)
	return err
}

// Close releases every socket this adapter opened.
func (a *Adapter) Close() error {
	a.mu.Lock()
	sockets := a.sockets
	a.sockets = nil
	a.mu.Unlock()

	var firstErr error
	for _, s := range sockets {
		if err := s.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// selectInterface picks name, or the first up/broadcast/multicast
// interface if name is empty.
func selectInterface(name string) (*net.Interface, error) {
	if name != "" {
		return net.InterfaceByName(name)
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	mask := net.FlagUp | net.FlagBroadcast | net.FlagMulticast
	for i := range ifaces {
		ifi := ifaces[i]
		if ifi.Flags&mask == mask {
			return &ifi, nil
		}
	}
	return nil, fmt.Errorf("udpnet: no interface with up+broadcast+multicast flags found")
}

// interfaceIPv4 returns iface's first IPv4 address.
func interfaceIPv4(iface *net.Interface) (net.IP, error) {
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		if ipn, ok := addr.(*net.IPNet); ok {
			if v4 := ipn.IP.To4(); v4 != nil {
				return v4, nil
			}
		}
	}
	return nil, fmt.Errorf("udpnet: interface %s has no IPv4 address", iface.Name)
}

// NewGuidPrefix builds a GuidPrefix from vendorID, this adapter's
// interface hardware address, and a caller-supplied unique suffix.
func (a *Adapter) NewGuidPrefix(vendorID uint16, uniqueSuffix [4]byte) wire.GuidPrefix {
	var g wire.GuidPrefix
	binary.BigEndian.PutUint16(g[0:2], vendorID)
	copy(g[2:8], a.hardwareAddrBytes())
	copy(g[8:12], uniqueSuffix[:])
	return g
}
