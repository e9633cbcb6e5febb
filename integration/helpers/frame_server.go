//go:build integration

package helpers

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/http"
	"sync"

	"hippy/protocol"

	"github.com/gorilla/websocket"
)

// FrameServer is a mock frame streaming endpoint. The default reply
// builder answers every command with one small gray_8 frame per stream
// bit in the command's mask.
type FrameServer struct {
	listener   net.Listener
	httpServer *http.Server
	upgrader   websocket.Upgrader

	// Reply builds the binary frame set for a received command. Tests
	// may replace it before connecting.
	Reply func(cmd []byte) []byte

	mu       sync.Mutex
	commands [][]byte
}

// NewFrameServer starts a mock frame server on a free localhost port.
func NewFrameServer() (*FrameServer, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("unable to listen: %w", err)
	}

	s := &FrameServer{listener: listener}
	s.Reply = func(cmd []byte) []byte {
		var frames []protocol.Frame
		for i, stream := range protocol.MaskStreams(cmd[6]) {
			frames = append(frames, protocol.Frame{
				Stream: stream,
				Format: protocol.FormatGray8,
				Width:  2,
				Height: 2,
				Index:  i + 1,
				Data:   []byte{0x10, 0x20, 0x30, 0x40},
			})
		}
		return BuildFrameSet(frames)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveWS)
	s.httpServer = &http.Server{Handler: mux}
	go func() { _ = s.httpServer.Serve(listener) }()
	return s, nil
}

// Port returns the TCP port the server listens on.
func (s *FrameServer) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Commands returns the binary commands received so far.
func (s *FrameServer) Commands() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.commands...)
}

// Stop closes the listener.
func (s *FrameServer) Stop() {
	_ = s.httpServer.Close()
}

func (s *FrameServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	for {
		_, cmd, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.commands = append(s.commands, cmd)
		reply := s.Reply
		s.mu.Unlock()

		if err := conn.WriteMessage(websocket.BinaryMessage, reply(cmd)); err != nil {
			return
		}
	}
}

// BuildFrameSet serializes frames into the binary wire format the frame
// server sends: an 8-byte main header, then per stream a 16-byte header
// and the raw payload.
func BuildFrameSet(frames []protocol.Frame) []byte {
	var mask uint8
	for _, f := range frames {
		mask |= uint8(f.Stream)
	}

	set := []byte{0x50, 0xa1, 0xde, 0xca, protocol.FrameVersion, mask, 0x00, 0x00}
	for _, f := range frames {
		header := make([]byte, 16)
		binary.LittleEndian.PutUint16(header[0:2], uint16(f.Width))
		binary.LittleEndian.PutUint16(header[2:4], uint16(f.Height))
		binary.LittleEndian.PutUint16(header[4:6], uint16(f.Index))
		header[6] = uint8(f.Stream)
		header[7] = uint8(f.Format)
		binary.LittleEndian.PutUint64(header[8:16], f.Timestamp)
		set = append(set, header...)
		set = append(set, f.Data...)
	}
	return set
}
