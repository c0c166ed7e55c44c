package framing_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/mgreenly/space-captain/errs"
	"github.com/mgreenly/space-captain/framing"
	"github.com/mgreenly/space-captain/pool"
	"github.com/mgreenly/space-captain/wire"
)

// chunkedReader returns the bytes of buf in fixed-size chunks, one chunk
// per Read call, so tests can exercise arbitrary partial-read boundaries
// without a real socket.
type chunkedReader struct {
	buf       []byte
	pos       int
	chunkSize int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if c.pos >= len(c.buf) {
		return 0, io.EOF
	}
	n := c.chunkSize
	if n > len(p) {
		n = len(p)
	}
	if c.pos+n > len(c.buf) {
		n = len(c.buf) - c.pos
	}
	copy(p, c.buf[c.pos:c.pos+n])
	c.pos += n
	return n, nil
}

func frameBytes(t wire.Type, payload []byte) []byte {
	msg := wire.LegacyMessage{Header: wire.LegacyHeader{Type: t}, Payload: payload}
	return msg.Encode()
}

func TestReadMessageOneByteAtATime(t *testing.T) {
	payload := []byte("abcde\x00")
	raw := frameBytes(wire.LegacyReverse, payload)
	r := &chunkedReader{buf: raw, chunkSize: 1}
	c := &pool.ConnState{}

	msg, err := framing.ReadMessage(r, c)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatalf("payload mismatch: got %q want %q", msg.Payload, payload)
	}
	if msg.Header.Type != wire.LegacyReverse {
		t.Fatalf("type mismatch: got %v", msg.Header.Type)
	}
	if c.State != pool.ReadingHeader || c.HeaderRead != 0 || c.PayloadRead != 0 {
		t.Fatalf("connection state not reset after complete message: %+v", c)
	}
}

func TestReadMessageThreeByteChunks(t *testing.T) {
	payload := make([]byte, 10)
	for i := range payload {
		payload[i] = byte('a' + i)
	}
	raw := frameBytes(wire.LegacyEcho, payload)
	r := &chunkedReader{buf: raw, chunkSize: 3}
	c := &pool.ConnState{}

	msg, err := framing.ReadMessage(r, c)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatalf("payload mismatch: got %v want %v", msg.Payload, payload)
	}
}

func TestReadMessageWholeFrameAtOnce(t *testing.T) {
	payload := []byte("single-shot")
	raw := frameBytes(wire.LegacyTime, payload)
	r := bytes.NewReader(raw)
	c := &pool.ConnState{}

	msg, err := framing.ReadMessage(r, c)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatalf("payload mismatch: got %q want %q", msg.Payload, payload)
	}
}

func TestReadMessageZeroLengthDisconnectsWithoutEnqueue(t *testing.T) {
	hdr := wire.LegacyHeader{Type: wire.LegacyEcho, Length: 0}
	raw := hdr.Encode()
	r := bytes.NewReader(raw)
	c := &pool.ConnState{}

	_, err := framing.ReadMessage(r, c)
	if errs.CodeOf(err) != errs.CodeFramingInvalidLength {
		t.Fatalf("expected CodeFramingInvalidLength, got %v", err)
	}
}

func TestReadMessageOversizeDisconnectsWithoutEnqueue(t *testing.T) {
	hdr := wire.LegacyHeader{Type: wire.LegacyEcho, Length: wire.MaxMessageSize + 1}
	raw := hdr.Encode()
	r := bytes.NewReader(raw)
	c := &pool.ConnState{}

	_, err := framing.ReadMessage(r, c)
	if errs.CodeOf(err) != errs.CodeFramingInvalidLength {
		t.Fatalf("expected CodeFramingInvalidLength, got %v", err)
	}
}

func TestReadMessageSequentialMessagesOnSameConnection(t *testing.T) {
	payload1 := []byte("first")
	payload2 := []byte("second-message")
	raw := append(frameBytes(wire.LegacyEcho, payload1), frameBytes(wire.LegacyEcho, payload2)...)
	r := &chunkedReader{buf: raw, chunkSize: 4}
	c := &pool.ConnState{}

	msg1, err := framing.ReadMessage(r, c)
	if err != nil {
		t.Fatalf("first ReadMessage: %v", err)
	}
	if !bytes.Equal(msg1.Payload, payload1) {
		t.Fatalf("first payload mismatch: %q", msg1.Payload)
	}

	msg2, err := framing.ReadMessage(r, c)
	if err != nil {
		t.Fatalf("second ReadMessage: %v", err)
	}
	if !bytes.Equal(msg2.Payload, payload2) {
		t.Fatalf("second payload mismatch: %q", msg2.Payload)
	}
}

func TestReadMessageResumesAfterPartialHeaderAcrossCalls(t *testing.T) {
	// Simulate an event loop that only hands the framer whatever bytes
	// are currently available, calling ReadMessage again once more bytes
	// arrive — rather than one Reader that blocks until everything is
	// ready.
	payload := []byte("resumed")
	raw := frameBytes(wire.LegacyEcho, payload)
	c := &pool.ConnState{}

	// First call only sees the first 3 bytes of the header, then EOF.
	first := bytes.NewReader(raw[:3])
	_, err := framing.ReadMessage(first, c)
	if err == nil {
		t.Fatal("expected an error (EOF) from a short first read")
	}
	if c.HeaderRead != 3 {
		t.Fatalf("expected partial header progress recorded, got %d", c.HeaderRead)
	}

	// Second call resumes from byte 3 with the rest of the frame.
	second := bytes.NewReader(raw[3:])
	msg, err := framing.ReadMessage(second, c)
	if err != nil {
		t.Fatalf("ReadMessage resume: %v", err)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatalf("payload mismatch after resume: %q", msg.Payload)
	}
}
