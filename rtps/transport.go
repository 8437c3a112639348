package rtps

import "github.com/fathomdds/rtps/wire"

// Transport is the narrow capability set the core needs from the
// network layer. The core never touches a socket directly;
// transport/udpnet ships the one concrete implementation.
type Transport interface {
	// JoinMulticast subscribes to the multicast group named by loc on
	// the transport's bound interface.
	JoinMulticast(loc wire.Locator) error
	// Send transmits buf to dest. Implementations must not block
	// indefinitely; a slow peer must not stall the writer thread.
	Send(dest wire.Locator, buf []byte) error
	// BindUnicast opens the given local port for receiving. Inbound
	// datagrams are delivered to the handler previously registered
	// via SetReceiver.
	BindUnicast(port uint16) error
	// SetReceiver installs the callback invoked on the network's
	// receive path for every bound port. destPort distinguishes which
	// bound socket the datagram arrived on.
	SetReceiver(fn func(buf []byte, srcAddr string, srcPort, destPort uint16))
	// Close releases all sockets this Transport opened.
	Close() error
}
