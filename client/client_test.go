package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"hippy/protocol"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wireRequest mirrors the JSON the client puts on the wire, decoded
// server-side in the fakes.
type wireRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

// fakeConn is an in-memory websocket connection. Writes are handed to
// onWrite (the fake server's logic); frames pushed with push are
// returned from ReadMessage.
type fakeConn struct {
	local    net.Addr
	incoming chan []byte
	onWrite  func(c *fakeConn, data []byte)

	mu     sync.Mutex
	closed bool
	writes [][]byte
}

func newFakeConn(localPort int, onWrite func(c *fakeConn, data []byte)) *fakeConn {
	return &fakeConn{
		local:    &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: localPort},
		incoming: make(chan []byte, 64),
		onWrite:  onWrite,
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	data, ok := <-f.incoming
	if !ok {
		return 0, nil, errors.New("use of closed network connection")
	}
	return websocket.TextMessage, data, nil
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return errors.New("use of closed network connection")
	}
	f.writes = append(f.writes, data)
	f.mu.Unlock()
	if f.onWrite != nil {
		f.onWrite(f, data)
	}
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) LocalAddr() net.Addr             { return f.local }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.incoming)
	}
	return nil
}

func (f *fakeConn) push(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.incoming <- data
	}
}

func (f *fakeConn) sentRequests(t *testing.T) []wireRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	reqs := make([]wireRequest, len(f.writes))
	for i, data := range f.writes {
		require.NoError(t, json.Unmarshal(data, &reqs[i]))
	}
	return reqs
}

// fakeDialer serves a fixed set of urls; everything else fails to dial.
type fakeDialer struct {
	mu    sync.Mutex
	conns map[string]func() Conn
	dials []string
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{conns: make(map[string]func() Conn)}
}

func (d *fakeDialer) serve(url string, mk func() Conn) { d.conns[url] = mk }

func (d *fakeDialer) Dial(url string) (Conn, error) {
	d.mu.Lock()
	d.dials = append(d.dials, url)
	mk := d.conns[url]
	d.mu.Unlock()
	if mk == nil {
		return nil, fmt.Errorf("dial %s: connection refused", url)
	}
	return mk(), nil
}

func resultFrame(id json.RawMessage, result any) []byte {
	res, err := json.Marshal(result)
	if err != nil {
		panic(err)
	}
	return []byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"result":%s}`, id, res))
}

func errorFrame(id json.RawMessage, e *protocol.Error) []byte {
	obj, err := json.Marshal(e)
	if err != nil {
		panic(err)
	}
	return []byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"error":%s}`, id, obj))
}

// echoThen builds a server handler that answers system.echo (both the
// validation probe and user calls) and forwards everything else to
// handle.
func echoThen(handle func(c *fakeConn, req wireRequest)) func(*fakeConn, []byte) {
	return func(c *fakeConn, data []byte) {
		var req wireRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return
		}
		if req.Method == "system.echo" && len(req.Params) == 1 {
			c.push(resultFrame(req.ID, json.RawMessage(req.Params[0])))
			return
		}
		if handle != nil {
			handle(c, req)
		}
	}
}

// newTestClient wires a client to a fake SoHal on the default port.
func newTestClient(t *testing.T, localPort int, handle func(c *fakeConn, req wireRequest)) (*Client, *fakeConn) {
	t.Helper()
	conn := newFakeConn(localPort, echoThen(handle))
	dialer := newFakeDialer()
	dialer.serve("ws://localhost:20641", func() Conn { return conn })
	c := New("localhost", 0, WithDialer(dialer), WithProbeTimeout(time.Second))
	require.NoError(t, c.Connect())
	t.Cleanup(func() { c.Close() })
	return c, conn
}

func TestConnectValidatesWithEcho(t *testing.T) {
	c, conn := newTestClient(t, 51234, nil)

	assert.True(t, c.Connected())
	assert.Equal(t, 20641, c.Port())

	reqs := conn.sentRequests(t)
	require.Len(t, reqs, 1)
	assert.Equal(t, "system.echo", reqs[0].Method)
	assert.Equal(t, "0", string(reqs[0].ID), "validation probe must use the numeric id 0")
	require.Len(t, reqs[0].Params, 1)
	var token string
	require.NoError(t, json.Unmarshal(reqs[0].Params[0], &token))
	assert.NotEmpty(t, token)
}

func TestConnectSkipsImpostor(t *testing.T) {
	dialer := newFakeDialer()
	// The base port is owned by some other websocket service that
	// answers the probe with a response that is not the token echoed
	// back.
	impostor := newFakeConn(40000, func(c *fakeConn, data []byte) {
		var req wireRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return
		}
		c.push(resultFrame(req.ID, "who are you"))
	})
	dialer.serve("ws://localhost:20641", func() Conn { return impostor })

	real := newFakeConn(40001, echoThen(nil))
	dialer.serve("ws://localhost:8765", func() Conn { return real })

	c := New("localhost", 0, WithDialer(dialer), WithProbeTimeout(time.Second))
	require.NoError(t, c.Connect())
	defer c.Close()

	assert.Equal(t, 8765, c.Port())
	assert.Equal(t, []string{"ws://localhost:20641", "ws://localhost:8765"}, dialer.dials)

	impostor.mu.Lock()
	assert.True(t, impostor.closed, "rejected candidate must be closed")
	impostor.mu.Unlock()
}

func TestConnectExhaustsCandidates(t *testing.T) {
	c := New("localhost", 30000, WithDialer(newFakeDialer()))

	err := c.Connect()
	var perr *protocol.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 0x200, perr.Code)
	assert.Equal(t, "Unable to connect to SoHal", perr.Message)

	// A call while disconnected fails fast with the recorded cause.
	_, err = c.Call("system", "echo", "hello")
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 0x200, perr.Code)
}

func TestCandidatePortOrder(t *testing.T) {
	ports := candidatePorts(20641)
	want := []int{20641, 8765, 20642, 20643, 20644, 20645, 20646, 20647, 20648, 20649, 20650}
	assert.Equal(t, want, ports)
}

func TestCallRoundTrip(t *testing.T) {
	c, conn := newTestClient(t, 51234, nil)

	raw, err := c.Call("system", "echo", "hello sohal")
	require.NoError(t, err)
	assert.Equal(t, `"hello sohal"`, string(raw))

	// The probe used the numeric id 0; the first real call carries the
	// connection-scoped id seeded with the local port.
	reqs := conn.sentRequests(t)
	require.Len(t, reqs, 2)
	assert.Equal(t, `"51234:1"`, string(reqs[1].ID))
}

func TestCallServerError(t *testing.T) {
	c, _ := newTestClient(t, 51234, func(conn *fakeConn, req wireRequest) {
		conn.push(errorFrame(req.ID, protocol.NewError(0x208, "208", "Device not connected")))
	})

	_, err := c.Call("touchmat", "open")
	var perr *protocol.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 0x208, perr.Code)
	assert.Equal(t, "Device not connected", perr.Message)
}

func TestConcurrentCallsCorrelateOutOfOrder(t *testing.T) {
	var (
		mu      sync.Mutex
		parked  []wireRequest
		release = make(chan struct{})
	)
	c, _ := newTestClient(t, 51234, func(conn *fakeConn, req wireRequest) {
		mu.Lock()
		parked = append(parked, req)
		ready := len(parked) == 2
		mu.Unlock()
		if ready {
			close(release)
			// Answer in reverse arrival order, each with its own
			// method name so the test can verify routing.
			mu.Lock()
			for i := len(parked) - 1; i >= 0; i-- {
				conn.push(resultFrame(parked[i].ID, parked[i].Method))
			}
			mu.Unlock()
		}
	})

	var wg sync.WaitGroup
	results := make([]string, 2)
	for i, method := range []string{"touchmat.state", "projector.state"} {
		wg.Add(1)
		go func(i int, method string) {
			defer wg.Done()
			raw, err := c.Call("", method)
			if assert.NoError(t, err) {
				var s string
				assert.NoError(t, json.Unmarshal(raw, &s))
				results[i] = s
			}
		}(i, method)
	}

	select {
	case <-release:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw both calls")
	}
	wg.Wait()

	assert.Equal(t, "touchmat.state", results[0])
	assert.Equal(t, "projector.state", results[1])
}

func TestCloseReleasesBlockedCallers(t *testing.T) {
	const callers = 4

	var arrived sync.WaitGroup
	arrived.Add(callers)
	// The server swallows every non-echo request.
	c, _ := newTestClient(t, 51234, func(conn *fakeConn, req wireRequest) {
		arrived.Done()
	})

	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			_, err := c.Call("system", fmt.Sprintf("slow%d", i))
			errs <- err
		}(i)
	}
	arrived.Wait()

	require.NoError(t, c.Close())

	for i := 0; i < callers; i++ {
		select {
		case err := <-errs:
			var perr *protocol.Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, 0x200, perr.Code)
			assert.Equal(t, "Connection closed", perr.Message)
		case <-time.After(2 * time.Second):
			t.Fatal("blocked caller was not released by Close")
		}
	}
	assert.False(t, c.Connected())
}

func TestReadFailureReleasesBlockedCallers(t *testing.T) {
	var arrived sync.WaitGroup
	arrived.Add(1)
	c, conn := newTestClient(t, 51234, func(fc *fakeConn, req wireRequest) {
		arrived.Done()
	})

	errs := make(chan error, 1)
	go func() {
		_, err := c.Call("system", "slow")
		errs <- err
	}()
	arrived.Wait()

	// The peer drops the connection under the caller.
	conn.Close()

	select {
	case err := <-errs:
		var perr *protocol.Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, 0x200, perr.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked caller was not released by the read failure")
	}
	assert.False(t, c.Connected())
}

func TestUnmatchedResponseIsDropped(t *testing.T) {
	c, conn := newTestClient(t, 51234, nil)

	conn.push(resultFrame(json.RawMessage(`"51234:999"`), "stale"))

	// The connection stays healthy and later calls still work.
	raw, err := c.Call("system", "echo", "still alive")
	require.NoError(t, err)
	assert.Equal(t, `"still alive"`, string(raw))
}

func TestReconnectResetsSequence(t *testing.T) {
	dialer := newFakeDialer()
	dialer.serve("ws://localhost:20641", func() Conn {
		return newFakeConn(51234, echoThen(nil))
	})
	c := New("localhost", 0, WithDialer(dialer))
	require.NoError(t, c.Connect())
	defer c.Close()

	_, err := c.Call("system", "echo", "one")
	require.NoError(t, err)

	require.NoError(t, c.Reconnect())

	raw, err := c.Call("system", "echo", "two")
	require.NoError(t, err)
	assert.Equal(t, `"two"`, string(raw))
	assert.True(t, c.Connected())
}

func TestSubscribeAndNotify(t *testing.T) {
	c, conn := newTestClient(t, 51234, func(fc *fakeConn, req wireRequest) {
		switch req.Method {
		case "touchmat.subscribe":
			fc.push(resultFrame(req.ID, 1))
		case "touchmat.unsubscribe":
			fc.push(resultFrame(req.ID, 0))
		}
	})

	type note struct {
		method string
		params any
	}
	got := make(chan note, 4)
	count, err := c.Subscribe("touchmat", func(method string, params any) {
		got <- note{method, params}
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	conn.push([]byte(`{"jsonrpc":"2.0","method":"touchmat.on_state","params":[{"touch":true}]}`))

	select {
	case n := <-got:
		assert.Equal(t, "touchmat.on_state", n.method)
		assert.Equal(t, map[string]any{"touch": true}, n.params)
	case <-time.After(2 * time.Second):
		t.Fatal("notification never reached the subscriber")
	}

	count, err = c.Unsubscribe("touchmat")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// After unsubscribing the callback must stay silent.
	conn.push([]byte(`{"jsonrpc":"2.0","method":"touchmat.on_state","params":[{"touch":false}]}`))
	_, err = c.Call("system", "echo", "fence")
	require.NoError(t, err)
	select {
	case n := <-got:
		t.Fatalf("unexpected notification after unsubscribe: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeNilCallback(t *testing.T) {
	c, _ := newTestClient(t, 51234, nil)

	_, err := c.Subscribe("touchmat", nil)
	var perr *protocol.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 0x204, perr.Code)
}

func TestBlockedCallbackDoesNotStallCalls(t *testing.T) {
	c, conn := newTestClient(t, 51234, func(fc *fakeConn, req wireRequest) {
		if req.Method == "system.subscribe" {
			fc.push(resultFrame(req.ID, 1))
		}
	})

	blocked := make(chan struct{})
	entered := make(chan struct{})
	_, err := c.Subscribe("system", func(method string, params any) {
		close(entered)
		<-blocked
	})
	require.NoError(t, err)
	defer close(blocked)

	conn.push([]byte(`{"jsonrpc":"2.0","method":"system.on_temperature","params":[55]}`))
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never ran")
	}

	// The read loop must still be pumping while the callback blocks.
	raw, err := c.Call("system", "echo", "pumping")
	require.NoError(t, err)
	assert.Equal(t, `"pumping"`, string(raw))
}

func TestParamConverter(t *testing.T) {
	c, conn := newTestClient(t, 51234, func(fc *fakeConn, req wireRequest) {
		if req.Method == "desklamp.subscribe" {
			fc.push(resultFrame(req.ID, 1))
		}
	})

	c.SetParamConverter("desklamp", func(method string, params []json.RawMessage) (any, error) {
		var s string
		if len(params) > 0 {
			if err := json.Unmarshal(params[0], &s); err != nil {
				return nil, err
			}
		}
		return "state:" + s, nil
	})

	got := make(chan any, 1)
	_, err := c.Subscribe("desklamp", func(method string, params any) {
		got <- params
	})
	require.NoError(t, err)

	conn.push([]byte(`{"jsonrpc":"2.0","method":"desklamp.on_state","params":["high"]}`))
	select {
	case params := <-got:
		assert.Equal(t, "state:high", params)
	case <-time.After(2 * time.Second):
		t.Fatal("notification never reached the subscriber")
	}
}

func TestDeviceOfAndStripIndex(t *testing.T) {
	tests := []struct {
		method   string
		device   string
		stripped string
	}{
		{"touchmat.on_open", "touchmat", "touchmat.on_open"},
		{"projector@1.on_state", "projector", "projector.on_state"},
		{"hirescamera@12.on_led_state", "hirescamera", "hirescamera.on_led_state"},
		{"system.on_temperature", "system", "system.on_temperature"},
		{"bare", "bare", "bare"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			assert.Equal(t, tt.device, DeviceOf(tt.method))
			assert.Equal(t, tt.stripped, StripIndex(tt.method))
		})
	}
}
