// Package framing implements the partial-read state machine: for any
// split of a valid frame's bytes across an arbitrary number of
// io.Reader.Read boundaries (including one byte at a time), ReadMessage
// emits exactly one message and resets the connection state to
// READING_HEADER with its counters zeroed.
//
// It is written against io.Reader rather than a raw epoll readiness loop
// so the same state machine drives both a blocking net.Conn (the stream
// transport's actual use) and a byte-at-a-time fake Reader in tests —
// the state machine's correctness does not depend on which one it is fed.
package framing

import (
	"io"

	"github.com/mgreenly/space-captain/errs"
	"github.com/mgreenly/space-captain/pool"
	"github.com/mgreenly/space-captain/wire"
)

// ReadMessage reads one complete legacy-framed message from r into c,
// looping over partial reads as needed. On success it returns the
// decoded message and resets c for the next message on the same
// connection. On a read error (including io.EOF, treated the same as
// any other "0 bytes read" disconnect) it returns the error unchanged
// so the caller can close the connection. On a framing violation
// (payload_length == 0 or > MAX_MESSAGE_SIZE) it returns a
// CodeFramingInvalidLength error; the caller must disconnect without
// enqueueing anything.
func ReadMessage(r io.Reader, c *pool.ConnState) (wire.LegacyMessage, error) {
	if c.State == pool.ReadingHeader {
		if err := readFull(r, c.HeaderBuf[:], &c.HeaderRead); err != nil {
			return wire.LegacyMessage{}, err
		}

		hdr, err := wire.DecodeLegacyHeader(c.HeaderBuf[:])
		if err != nil {
			return wire.LegacyMessage{}, err
		}
		if hdr.Length == 0 || hdr.Length > wire.MaxMessageSize {
			return wire.LegacyMessage{}, errs.New(errs.CodeFramingInvalidLength, "")
		}

		c.PayloadLength = int(hdr.Length)
		c.Payload = make([]byte, hdr.Length)
		c.State = pool.ReadingBody
	}

	if err := readFull(r, c.Payload, &c.PayloadRead); err != nil {
		return wire.LegacyMessage{}, err
	}

	hdr, _ := wire.DecodeLegacyHeader(c.HeaderBuf[:])
	msg := wire.LegacyMessage{Header: hdr, Payload: c.Payload}
	c.Reset()
	return msg, nil
}

// readFull reads into buf[*read:] until it is entirely filled, advancing
// *read across calls so a caller that re-invokes ReadMessage after a
// partial fill resumes exactly where it left off. Zero-byte, no-error
// reads are treated as "try again" (the non-blocking convention); any
// other error, including io.EOF, is returned as-is.
func readFull(r io.Reader, buf []byte, read *int) error {
	for *read < len(buf) {
		n, err := r.Read(buf[*read:])
		*read += n
		if err != nil {
			return err
		}
	}
	return nil
}
