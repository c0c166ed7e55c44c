// Package udp is the secure-transport client: dials a space-captain
// server over DTLS using session.Dial, then sends/receives framed
// protocol messages.
package udp

import (
	"context"
	"time"

	"github.com/mgreenly/space-captain/errs"
	"github.com/mgreenly/space-captain/session"
	"github.com/mgreenly/space-captain/wire"
)

const maxFrame = wire.HeaderSize + wire.MaxMessageSize

// ResponseTimeout bounds how long Request waits for a reply. session.Read
// uses a short internal deadline (tuned for the server's per-session poll
// loop), so the client retries across CodeSessionWouldBlock until this
// overall deadline elapses.
const ResponseTimeout = 5 * time.Second

// Client is a single DTLS session to a secure-transport server.
type Client struct {
	sess *session.Session
	seq  uint32
}

// Dial establishes a DTLS session to addr under the given client
// Context (carrying the pinned certificate hash, if any).
func Dial(ctx context.Context, addr string, dtlsCtx *session.Context) (*Client, error) {
	sess, err := session.Dial(ctx, addr, dtlsCtx)
	if err != nil {
		return nil, err
	}
	return &Client{sess: sess}, nil
}

// Request sends one protocol message of type t with payload and blocks
// for the matching response, identified by echoing the request's
// sequence number.
func (c *Client) Request(t wire.Type, payload []byte) (wire.Message, error) {
	c.seq++
	req := wire.Message{
		Header: wire.Header{
			ProtocolVersion: wire.ProtocolVersion,
			MessageType:     t,
			SequenceNumber:  c.seq,
			Timestamp:       uint64(time.Now().UnixMilli()),
		},
		Payload: payload,
	}
	if err := c.sess.WriteMessage(req); err != nil {
		return wire.Message{}, err
	}

	buf := make([]byte, maxFrame)
	deadline := time.Now().Add(ResponseTimeout)
	for {
		n, err := c.sess.Read(buf)
		if err != nil {
			if errs.CodeOf(err) == errs.CodeSessionWouldBlock && time.Now().Before(deadline) {
				continue
			}
			return wire.Message{}, err
		}
		hdr, err := wire.DecodeHeader(buf[:n])
		if err != nil || hdr.SequenceNumber != c.seq {
			continue
		}
		payload := buf[wire.HeaderSize:n]
		if int(hdr.PayloadLength) <= len(payload) {
			payload = payload[:hdr.PayloadLength]
		}
		return wire.Message{Header: hdr, Payload: append([]byte(nil), payload...)}, nil
	}
}

// Close tears down the session.
func (c *Client) Close() error {
	return c.sess.Close()
}
