// Package wire implements the space-captain application-layer frame: a
// fixed 18-byte header in network byte order followed by a variable
// payload. It is the one place that knows the wire layout; everything
// else in the module works with a decoded Header and a []byte payload.
package wire

import (
	"encoding/binary"

	"github.com/mgreenly/space-captain/errs"
)

// HeaderSize is the fixed, packed size of a Header on the wire: 2+2+4+8+2.
const HeaderSize = 18

// ProtocolVersion is the only version this implementation speaks.
const ProtocolVersion uint16 = 0x0001

// MaxMessageSize bounds payload_length.
const MaxMessageSize = 4096

// Header is the decoded form of the 18-byte frame header. Field order
// matches the wire layout; widths are chosen to match it exactly so a
// round-trip through Encode/Decode is field-wise lossless.
type Header struct {
	ProtocolVersion uint16
	MessageType     Type
	SequenceNumber  uint32
	Timestamp       uint64 // unix milliseconds
	PayloadLength   uint16
}

// Encode writes the header to a HeaderSize-length byte slice in network
// (big-endian) byte order.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(buf[0:2], h.ProtocolVersion)
	binary.BigEndian.PutUint16(buf[2:4], uint16(h.MessageType))
	binary.BigEndian.PutUint32(buf[4:8], h.SequenceNumber)
	binary.BigEndian.PutUint64(buf[8:16], h.Timestamp)
	binary.BigEndian.PutUint16(buf[16:18], h.PayloadLength)
	return buf
}

// DecodeHeader parses the first HeaderSize bytes of buf into a Header.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, errs.New(errs.CodeCodecShortHeader, "")
	}
	return Header{
		ProtocolVersion: binary.BigEndian.Uint16(buf[0:2]),
		MessageType:     Type(binary.BigEndian.Uint16(buf[2:4])),
		SequenceNumber:  binary.BigEndian.Uint32(buf[4:8]),
		Timestamp:       binary.BigEndian.Uint64(buf[8:16]),
		PayloadLength:   binary.BigEndian.Uint16(buf[16:18]),
	}, nil
}

// ValidatePayloadLength enforces the queue-admission invariant:
// 0 < payload_length <= MAX_MESSAGE_SIZE. Ping/pong, heartbeat and the
// three connection-management types are exempt from the lower bound
// (zero-length payloads are valid for them).
func ValidatePayloadLength(t Type, n int) error {
	if n > MaxMessageSize {
		return errs.New(errs.CodeCodecPayloadTooLarge, "")
	}
	if n == 0 && !allowsEmptyPayload(t) {
		return errs.New(errs.CodeCodecPayloadEmpty, "")
	}
	return nil
}

func allowsEmptyPayload(t Type) bool {
	switch t {
	case Ping, Pong, Heartbeat, ConnectionAccepted, ConnectionRejected, DisconnectNotify:
		return true
	default:
		return false
	}
}
