package session

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	pdtls "github.com/pion/dtls/v3"

	"github.com/mgreenly/space-captain/errs"
	"github.com/mgreenly/space-captain/wire"
)

// State is the per-session state machine:
// NEW -> HANDSHAKING -> ESTABLISHED -> CLOSING -> CLOSED. An error from
// any state moves directly to CLOSED.
type State uint8

const (
	StateNew State = iota
	StateHandshaking
	StateEstablished
	StateClosing
	StateClosed
)

// Session is a per-peer DTLS session: the "Client session (secure
// variant)" record, minus the link into the live-session collection
// (that link is the map key the Manager holds it under).
type Session struct {
	mu sync.Mutex

	id   uuid.UUID
	conn *pdtls.Conn
	addr net.Addr

	state             State
	lastActivity      time.Time
	handshakeComplete bool
}

func newSession(conn *pdtls.Conn) *Session {
	return &Session{
		id:           uuid.New(),
		conn:         conn,
		addr:         conn.RemoteAddr(),
		state:        StateNew,
		lastActivity: time.Now(),
	}
}

// ID returns this session's process-local unique identifier, used for
// log correlation across the handshake, read loop, and reap paths for a
// single peer even if it later reconnects from the same address.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// PeerAddr is the address this session is bound to; used as the live-set
// key and as the demultiplexing identity for incoming datagrams.
func (s *Session) PeerAddr() net.Addr {
	return s.addr
}

// Handshake drives the DTLS handshake to completion, blocking in pion's
// HandshakeContext until it finishes or ctx ends. It returns OK (nil) on
// completion and CodeSessionHandshakeTimeout / CodeSessionCertVerify /
// CodeSessionHandshake on failure; it never returns CodeSessionWouldBlock.
func (s *Session) Handshake(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateHandshaking
	s.mu.Unlock()

	err := s.conn.HandshakeContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		s.state = StateEstablished
		s.handshakeComplete = true
		s.lastActivity = time.Now()
		return nil
	}

	s.state = StateClosed
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.CodeSessionHandshakeTimeout, err)
	}
	if isCertVerifyError(err) {
		return errs.Wrap(errs.CodeSessionCertVerify, err)
	}
	return errs.Wrap(errs.CodeSessionHandshake, err)
}

func isCertVerifyError(err error) bool {
	var ce errs.Error
	if errors.As(err, &ce) {
		return ce.Code() == errs.CodeSessionCertVerify
	}
	return false
}

// Read implements a non-blocking-flavored read: it sets a 50ms read
// deadline itself and returns WOULD_BLOCK when that deadline passes,
// PEER_CLOSED on graceful close, READ on any other error.
func (s *Session) Read(buf []byte) (int, error) {
	_ = s.conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	n, err := s.conn.Read(buf)
	if err == nil {
		s.mu.Lock()
		s.lastActivity = time.Now()
		s.mu.Unlock()
		return n, nil
	}

	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return 0, errs.New(errs.CodeSessionWouldBlock, "")
	}
	if errors.Is(err, io.EOF) {
		return 0, errs.New(errs.CodeSessionPeerClosed, "")
	}
	return 0, errs.Wrap(errs.CodeSessionRead, err)
}

// Write sends buf over the session. WOULD_BLOCK maps from a write
// timeout, PEER_CLOSED from EOF, WRITE from anything else.
func (s *Session) Write(buf []byte) (int, error) {
	n, err := s.conn.Write(buf)
	if err == nil {
		s.mu.Lock()
		s.lastActivity = time.Now()
		s.mu.Unlock()
		return n, nil
	}

	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return 0, errs.New(errs.CodeSessionWouldBlock, "")
	}
	if errors.Is(err, io.EOF) {
		return 0, errs.New(errs.CodeSessionPeerClosed, "")
	}
	return 0, errs.Wrap(errs.CodeSessionWrite, err)
}

// WriteMessage implements queue.Origin: it frames msg and writes it,
// satisfying the worker pool's response-send contract.
func (s *Session) WriteMessage(msg wire.Message) error {
	_, err := s.Write(msg.Encode())
	return err
}

// Close sends a close-notify and marks the session CLOSING then CLOSED.
// It does not free the Session value; the Manager removes it from the
// live set separately.
func (s *Session) Close() error {
	s.mu.Lock()
	s.state = StateClosing
	conn := s.conn
	s.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}

	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()

	return err
}

// LastActivity returns the last time this session successfully read or
// wrote application data (or completed its handshake).
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// HandshakeComplete reports whether ESTABLISHED has been reached.
func (s *Session) HandshakeComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handshakeComplete
}

// CurrentState returns the session's point in the NEW -> HANDSHAKING ->
// ESTABLISHED -> CLOSING -> CLOSED state machine.
func (s *Session) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Touch refreshes last_activity without performing I/O — used when a
// datagram (e.g. a HEARTBEAT) is observed for this peer outside of Read.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}
