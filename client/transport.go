package client

import (
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the minimal websocket surface the client needs from one live
// connection. *websocket.Conn satisfies it; tests substitute in-memory
// implementations.
type Conn interface {
	// ReadMessage reads the next message frame from the peer.
	ReadMessage() (messageType int, p []byte, err error)

	// WriteMessage writes one message frame to the peer.
	WriteMessage(messageType int, data []byte) error

	// SetReadDeadline bounds subsequent reads; the zero time clears it.
	SetReadDeadline(t time.Time) error

	// LocalAddr returns the local endpoint of the connection.
	LocalAddr() net.Addr

	// Close closes the underlying network connection.
	Close() error
}

// Dialer opens websocket connections for the client. The default
// implementation dials real sockets with gorilla/websocket; tests inject
// fakes to simulate SoHal, impostor services and dead ports.
type Dialer interface {
	Dial(url string) (Conn, error)
}

// DefaultDialer is the Dialer used when none is supplied.
type DefaultDialer struct {
	HandshakeTimeout time.Duration
}

func (d *DefaultDialer) Dial(url string) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// localTCPPort extracts the TCP port from a connection's local address,
// used to namespace correlation ids. Returns 0 when the address is not
// TCP (as with in-memory test connections).
func localTCPPort(addr net.Addr) int {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}
