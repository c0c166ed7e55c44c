package queue

import "github.com/mgreenly/space-captain/wire"

// Origin is the minimum identity needed to send a response on the peer a
// WorkItem came from: a stream connection for the TCP transport, a
// secure session for the DTLS transport. The C original's "prepend the
// fd to the payload" trick is a dubious stable contract; this port
// carries the origin as its own WorkItem field instead.
type Origin interface {
	// WriteMessage frames and sends msg back to the peer. It must fail
	// cleanly (return an error, never panic or write to an unrelated
	// peer) if the origin has since been closed or invalidated.
	WriteMessage(msg wire.Message) error

	// Close tears down the underlying connection or session.
	Close() error
}

// WorkItem pairs a decoded Message with the Origin a response should be
// written back to.
type WorkItem struct {
	Origin  Origin
	Message wire.Message
}
