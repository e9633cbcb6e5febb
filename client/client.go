package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hippy/protocol"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// DefaultHost is the address of a locally running SoHal server.
	DefaultHost = "localhost"
	// DefaultPort is the first port SoHal listens on by default.
	DefaultPort = 20641

	// Discovery probes the base port, then the well-known fallback, then
	// the rest of the base range.
	portRange    = 10
	fallbackPort = 8765

	defaultProbeTimeout     = 2 * time.Second
	defaultHandshakeTimeout = 5 * time.Second

	sendQueueSize        = 16
	reconnectSettleDelay = 100 * time.Millisecond
)

// link is the per-connection state owned by the pump goroutines. A new
// link is created on every (re)connect so that teardown of a stale
// connection can never clobber a newer one.
type link struct {
	conn Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// Client maintains one websocket connection to a SoHal device-control
// server and provides the synchronous call primitive every device wrapper
// is built on. All methods are safe for concurrent use; calls issued from
// different goroutines share the connection without interfering.
type Client struct {
	host         string
	basePort     int
	dialer       Dialer
	probeTimeout time.Duration

	ids *protocol.IDGenerator

	mu      sync.Mutex
	link    *link
	port    int
	commErr error

	pendingMu sync.Mutex
	pending   map[string]chan *protocol.Message

	cbMu       sync.Mutex
	subscriber NotificationFunc

	convMu     sync.RWMutex
	converters map[string]ParamConverter

	imgMu   sync.Mutex
	imgConn Conn
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the websocket dialer, mainly for tests.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithProbeTimeout bounds the echo validation round-trip on each
// candidate port during discovery.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Client) { c.probeTimeout = d }
}

// New creates a client for the SoHal server at host. port is the base of
// the discovery range; pass 0 for the defaults. The client does not
// connect until Connect is called.
func New(host string, port int, opts ...Option) *Client {
	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultPort
	}
	c := &Client{
		host:         host,
		basePort:     port,
		probeTimeout: defaultProbeTimeout,
		ids:          protocol.NewIDGenerator(),
		pending:      make(map[string]chan *protocol.Message),
		converters:   make(map[string]ParamConverter),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = &DefaultDialer{HandshakeTimeout: defaultHandshakeTimeout}
	}
	return c
}

// candidatePorts builds the ordered discovery list: the base port first,
// the well-known fallback second for fast common-case discovery, then the
// rest of the base range.
func candidatePorts(base int) []int {
	ports := make([]int, 0, portRange+1)
	ports = append(ports, base, fallbackPort)
	for p := base + 1; p < base+portRange; p++ {
		ports = append(ports, p)
	}
	return ports
}

// Connect probes the candidate ports and attaches to the first one that
// validates as SoHal via a system.echo round-trip with a random token.
// A candidate that fails to dial, echoes the wrong value, or does not
// answer within the probe timeout is skipped; exhausting every candidate
// returns a connection error.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.link != nil {
		c.mu.Unlock()
		return fmt.Errorf("hippy: already connected; call Close or Reconnect first")
	}
	c.mu.Unlock()

	token := uuid.NewString()
	probe, err := protocol.NewRequest(0, "system.echo", token).Encode()
	if err != nil {
		return err
	}

	for _, port := range candidatePorts(c.basePort) {
		url := fmt.Sprintf("ws://%s:%d", c.host, port)
		conn, err := c.dialer.Dial(url)
		if err != nil {
			slog.Debug("hippy: candidate not reachable", "url", url, "err", err)
			continue
		}
		if !validateEcho(conn, probe, token, c.probeTimeout) {
			slog.Debug("hippy: candidate failed echo validation", "url", url)
			conn.Close()
			continue
		}
		c.attach(conn, port)
		slog.Debug("hippy: connected", "host", c.host, "port", port)
		return nil
	}

	connErr := protocol.ConnectionError()
	c.mu.Lock()
	c.commErr = connErr
	c.mu.Unlock()
	return connErr
}

// validateEcho sends the probe request and accepts the peer only if it
// echoes the validation token back as the result.
func validateEcho(conn Conn, probe []byte, token string, timeout time.Duration) bool {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	if err := conn.WriteMessage(websocket.TextMessage, probe); err != nil {
		return false
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return false
	}
	msg, err := protocol.DecodeMessage(data)
	if err != nil {
		return false
	}
	var echoed string
	if err := json.Unmarshal(msg.Result, &echoed); err != nil {
		return false
	}
	return echoed == token
}

// attach installs a validated connection and starts its pump goroutines.
func (c *Client) attach(conn Conn, port int) {
	l := &link{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
	c.ids.Reset(localTCPPort(conn.LocalAddr()))
	c.mu.Lock()
	c.link = l
	c.port = port
	c.commErr = nil
	c.mu.Unlock()
	go c.readLoop(l)
	go c.writeLoop(l)
}

// Close tears down the connection, releasing every caller currently
// blocked in Call with a connection error, and closes the image stream
// socket if one is open. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	l := c.link
	c.mu.Unlock()
	if l != nil {
		c.teardown(l, protocol.ClosedError())
	}
	return c.CloseImageStream()
}

// Reconnect closes the current connection (if any) and runs discovery
// again with the same host and base port after a short settling delay.
// Devices opened and subscriptions registered on the old connection are
// not restored; the caller must open and subscribe again.
func (c *Client) Reconnect() error {
	_ = c.Close()
	time.Sleep(reconnectSettleDelay)
	return c.Connect()
}

// Connected reports whether a validated connection is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.link != nil
}

// Port returns the resolved server port after a successful Connect.
func (c *Client) Port() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port
}

// Call issues "<prefix>.<method>" with the given parameters and blocks
// the calling goroutine until the correlated response arrives, the server
// returns an error object, or the connection dies. It is the primitive
// every device method forwards to.
func (c *Client) Call(prefix, method string, params ...any) (json.RawMessage, error) {
	full := method
	if prefix != "" {
		full = prefix + "." + method
	}
	id := c.ids.Next()

	ch := make(chan *protocol.Message, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	// Unregistering on every exit path means a late response finds no
	// pending call and is dropped instead of reaching the next caller.
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	c.mu.Lock()
	l := c.link
	if l == nil {
		err := c.commErr
		c.mu.Unlock()
		if err == nil {
			err = protocol.ConnectionError()
		}
		return nil, err
	}
	c.mu.Unlock()

	data, err := protocol.NewRequest(id, full, params...).Encode()
	if err != nil {
		return nil, err
	}

	select {
	case l.send <- data:
	case <-l.done:
		return nil, c.connError()
	}

	select {
	case msg := <-ch:
		if msg.Error != nil {
			return nil, msg.Error
		}
		return msg.Result, nil
	case <-l.done:
		return nil, c.connError()
	}
}

// connError returns the recorded fatal cause of the last teardown.
func (c *Client) connError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.commErr != nil {
		return c.commErr
	}
	return protocol.ConnectionError()
}

// communicationError converts a transport failure into the typed error
// surfaced to callers.
func communicationError(err error) error {
	var perr *protocol.Error
	if errors.As(err, &perr) {
		return perr
	}
	return protocol.NewError(0x200, "200", err.Error())
}
