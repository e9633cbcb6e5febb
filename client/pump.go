package client

import (
	"log/slog"

	"hippy/protocol"

	"github.com/gorilla/websocket"
)

// readLoop is the sole reader of the connection. It routes responses to
// their pending calls and hands notifications to the dispatcher. Any
// read or decode failure is fatal to the connection.
func (c *Client) readLoop(l *link) {
	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			c.teardown(l, communicationError(err))
			return
		}
		msg, err := protocol.DecodeMessage(data)
		if err != nil {
			c.teardown(l, communicationError(err))
			return
		}
		if msg.IsResponse() {
			c.deliver(msg)
		} else {
			c.dispatch(msg)
		}
	}
}

// writeLoop is the sole writer of the connection, draining the outbound
// queue until it fails or the connection is torn down.
func (c *Client) writeLoop(l *link) {
	for {
		select {
		case data := <-l.send:
			if err := l.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.teardown(l, communicationError(err))
				return
			}
		case <-l.done:
			return
		}
	}
}

// deliver hands a response to the caller waiting on its id. A response
// with no pending call belongs to a caller that already gave up and is
// dropped.
func (c *Client) deliver(msg *protocol.Message) {
	id := msg.CorrelationID()
	c.pendingMu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
	if !ok {
		slog.Debug("hippy: dropping unmatched response", "id", id)
		return
	}
	ch <- msg
}

// teardown records the fatal cause and closes the link exactly once.
// Closing done releases every caller blocked in Call and stops the write
// loop; closing the socket stops the read loop. The client state is only
// cleared if this link is still the current one, so tearing down a stale
// connection cannot clobber a reconnect.
func (c *Client) teardown(l *link, err error) {
	l.once.Do(func() {
		c.mu.Lock()
		if c.link == l {
			c.link = nil
			c.commErr = err
		}
		c.mu.Unlock()
		close(l.done)
		_ = l.conn.Close()
		slog.Debug("hippy: connection closed", "err", err)
	})
}
