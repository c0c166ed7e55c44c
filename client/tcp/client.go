// Package tcp is the stream-mode client: dials a space-captain server,
// sends one legacy-framed request, and reads back exactly one response
// using the same framing.ReadMessage state machine the server's front
// end uses, so both sides stay provably in sync on the wire format.
package tcp

import (
	"net"
	"time"

	"github.com/mgreenly/space-captain/framing"
	"github.com/mgreenly/space-captain/pool"
	"github.com/mgreenly/space-captain/wire"
)

// Client is a single connection to a stream-mode server.
type Client struct {
	conn net.Conn
	cs   pool.ConnState
}

// Dial connects to addr with a connect timeout.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Request sends one legacy-framed message of type t with payload, then
// blocks for the single response frame.
func (c *Client) Request(t wire.Type, payload []byte) (wire.LegacyMessage, error) {
	msg := wire.LegacyMessage{Header: wire.LegacyHeader{Type: t}, Payload: payload}
	if _, err := c.conn.Write(msg.Encode()); err != nil {
		return wire.LegacyMessage{}, err
	}
	c.cs.Reset()
	return framing.ReadMessage(c.conn, &c.cs)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
