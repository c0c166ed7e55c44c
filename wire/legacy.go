package wire

import (
	"encoding/binary"

	"github.com/mgreenly/space-captain/errs"
)

// LegacyHeaderSize is the stream-mode header: a 4-byte type plus a
// 4-byte length, both network byte order. Two header formats coexist
// across the protocol's history; this implementation chooses one per
// transport and documents it here: the stream (TCP) transport speaks
// this 8-byte header and the secure (DTLS/UDP) transport speaks the
// 18-byte Header above. The two never mix on the wire.
const LegacyHeaderSize = 8

// LegacyHeader is the stream-mode frame header.
type LegacyHeader struct {
	Type   Type
	Length uint32
}

// Encode writes the legacy header in network byte order.
func (h LegacyHeader) Encode() []byte {
	buf := make([]byte, LegacyHeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(h.Type))
	binary.BigEndian.PutUint32(buf[4:8], h.Length)
	return buf
}

// DecodeLegacyHeader parses the first LegacyHeaderSize bytes of buf.
func DecodeLegacyHeader(buf []byte) (LegacyHeader, error) {
	if len(buf) < LegacyHeaderSize {
		return LegacyHeader{}, errs.New(errs.CodeCodecShortHeader, "")
	}
	return LegacyHeader{
		Type:   Type(binary.BigEndian.Uint32(buf[0:4])),
		Length: binary.BigEndian.Uint32(buf[4:8]),
	}, nil
}

// LegacyMessage is a fully framed stream-mode message.
type LegacyMessage struct {
	Header  LegacyHeader
	Payload []byte
}

// Encode serializes a legacy message to wire bytes.
func (m LegacyMessage) Encode() []byte {
	h := m.Header
	h.Length = uint32(len(m.Payload))
	buf := make([]byte, 0, LegacyHeaderSize+len(m.Payload))
	buf = append(buf, h.Encode()...)
	buf = append(buf, m.Payload...)
	return buf
}
