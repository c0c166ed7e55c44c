package wire

// Message is a fully framed protocol message: decoded header plus its
// payload bytes. It is the unit the network front end produces and the
// worker pool consumes.
type Message struct {
	Header  Header
	Payload []byte
}

// Encode serializes the message to wire bytes: HeaderSize + len(Payload).
func (m Message) Encode() []byte {
	h := m.Header
	h.PayloadLength = uint16(len(m.Payload))
	buf := make([]byte, 0, HeaderSize+len(m.Payload))
	buf = append(buf, h.Encode()...)
	buf = append(buf, m.Payload...)
	return buf
}

// NewResponse builds a reply message reusing the request's sequence
// number and timestamp, with a new type and payload — the common shape
// of every handler in worker/dispatch.go.
func NewResponse(t Type, req Header, payload []byte) Message {
	return Message{
		Header: Header{
			ProtocolVersion: ProtocolVersion,
			MessageType:     t,
			SequenceNumber:  req.SequenceNumber,
			Timestamp:       req.Timestamp,
			PayloadLength:   uint16(len(payload)),
		},
		Payload: payload,
	}
}
