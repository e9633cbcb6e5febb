package client

import (
	"fmt"

	"hippy/protocol"

	"github.com/gorilla/websocket"
)

// GrabFrame sends a binary frame command to the image streaming server
// and returns the raw frame set it answers with. The streaming socket is
// dialed lazily on first use against the port a camera's enable_streams
// call reported, then kept open for subsequent grabs. Any transport
// failure drops the socket so the next grab redials.
func (c *Client) GrabFrame(port int, cmd []byte) ([]byte, error) {
	c.imgMu.Lock()
	defer c.imgMu.Unlock()

	if c.imgConn == nil {
		if port <= 0 {
			return nil, protocol.NewError(0x200, "200",
				"Error connecting to SoHal frame streaming server")
		}
		conn, err := c.dialer.Dial(fmt.Sprintf("ws://%s:%d", c.host, port))
		if err != nil {
			return nil, protocol.NewError(0x200, "200",
				"Error connecting to SoHal frame streaming server")
		}
		c.imgConn = conn
	}

	if err := c.imgConn.WriteMessage(websocket.BinaryMessage, cmd); err != nil {
		c.dropImageStream()
		return nil, communicationError(err)
	}
	_, frame, err := c.imgConn.ReadMessage()
	if err != nil {
		c.dropImageStream()
		return nil, communicationError(err)
	}
	return frame, nil
}

// CloseImageStream closes the streaming socket if one is open.
func (c *Client) CloseImageStream() error {
	c.imgMu.Lock()
	defer c.imgMu.Unlock()
	if c.imgConn == nil {
		return nil
	}
	err := c.imgConn.Close()
	c.imgConn = nil
	return err
}

// dropImageStream discards a failed streaming socket. imgMu must be held.
func (c *Client) dropImageStream() {
	if c.imgConn != nil {
		_ = c.imgConn.Close()
		c.imgConn = nil
	}
}
