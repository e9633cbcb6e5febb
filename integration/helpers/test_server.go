//go:build integration

// Package helpers provides an in-process SoHal stand-in for integration
// tests: a websocket JSON-RPC endpoint with pluggable method handlers
// and a binary frame streaming endpoint.
package helpers

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"

	"hippy/protocol"

	"github.com/gorilla/websocket"
)

// Handler answers one JSON-RPC method. Returning a *protocol.Error
// produces an error response.
type Handler func(params []json.RawMessage) (any, *protocol.Error)

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *protocol.Error `json:"error,omitempty"`
}

type rpcNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

// SoHalServer is a mock SoHal control endpoint. It answers system.echo
// out of the box so the client's port validation succeeds.
type SoHalServer struct {
	listener   net.Listener
	httpServer *http.Server
	upgrader   websocket.Upgrader

	mu       sync.Mutex
	handlers map[string]Handler
	conns    map[*websocket.Conn]*sync.Mutex
	calls    []string
}

// NewSoHalServer starts a mock server on a free localhost port.
func NewSoHalServer() (*SoHalServer, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("unable to listen: %w", err)
	}

	s := &SoHalServer{
		listener: listener,
		handlers: make(map[string]Handler),
		conns:    make(map[*websocket.Conn]*sync.Mutex),
	}
	s.Handle("system.echo", func(params []json.RawMessage) (any, *protocol.Error) {
		if len(params) == 0 {
			return nil, nil
		}
		var value any
		if err := json.Unmarshal(params[0], &value); err != nil {
			return nil, protocol.NewError(0x204, "204", "Invalid parameter")
		}
		return value, nil
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveWS)
	s.httpServer = &http.Server{Handler: mux}
	go func() { _ = s.httpServer.Serve(listener) }()
	return s, nil
}

// Port returns the TCP port the server listens on.
func (s *SoHalServer) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Handle registers the handler answering a fully qualified method.
func (s *SoHalServer) Handle(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// Calls returns the methods received so far, in arrival order.
func (s *SoHalServer) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Notify pushes a notification to every connected client.
func (s *SoHalServer) Notify(method string, params ...any) error {
	frame, err := json.Marshal(rpcNotification{
		JSONRPC: protocol.Version,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, writeMu := range s.conns {
		writeMu.Lock()
		err = conn.WriteMessage(websocket.TextMessage, frame)
		writeMu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// Stop closes the listener and every open connection.
func (s *SoHalServer) Stop() {
	_ = s.httpServer.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.conns = make(map[*websocket.Conn]*sync.Mutex)
}

func (s *SoHalServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	writeMu := &sync.Mutex{}
	s.mu.Lock()
	s.conns[conn] = writeMu
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req rpcRequest
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}

		s.mu.Lock()
		s.calls = append(s.calls, req.Method)
		handler := s.handlers[req.Method]
		s.mu.Unlock()

		resp := rpcResponse{JSONRPC: protocol.Version, ID: req.ID}
		if handler == nil {
			resp.Error = protocol.NewError(0x203, "203", "Undefined method")
		} else if result, herr := handler(req.Params); herr != nil {
			resp.Error = herr
		} else {
			resp.Result = result
		}

		frame, err := json.Marshal(resp)
		if err != nil {
			continue
		}
		writeMu.Lock()
		err = conn.WriteMessage(websocket.TextMessage, frame)
		writeMu.Unlock()
		if err != nil {
			return
		}
	}
}
