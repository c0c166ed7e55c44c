// Package udp is the secure datagram front end: accepts DTLS peers via
// the session package, dispatches protocol-version-1 frames to the work
// queue, and echoes anything in a version it does not understand
// unchanged, the forward-compatibility rule for the secure transport.
package udp

import (
	"context"
	"net"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mgreenly/space-captain/errs"
	"github.com/mgreenly/space-captain/logger"
	"github.com/mgreenly/space-captain/queue"
	"github.com/mgreenly/space-captain/session"
	"github.com/mgreenly/space-captain/wire"
)

// HandshakeTimeout bounds how long a peer has to complete the DTLS
// handshake after the cookie exchange.
const HandshakeTimeout = 30 * time.Second

// maxFrame is large enough to hold one full secure-transport message in
// a single datagram read.
const maxFrame = wire.HeaderSize + wire.MaxMessageSize

// MaxConcurrentHandshakes bounds how many DTLS handshakes run at once;
// the cookie exchange already rejects spoofed-source floods, but the
// CPU cost of the ECDHE key exchange itself is still worth capping
// separately once a peer has a valid cookie.
const MaxConcurrentHandshakes = 256

// Server drives the secure transport's accept loop and per-session read
// loops, feeding decoded messages into a shared queue.Queue.
type Server struct {
	ln         *session.Listener
	mgr        *session.Manager
	q          *queue.Queue
	log        logger.Logger
	cancel     context.CancelFunc
	stopped    chan struct{}
	handshakes *semaphore.Weighted
}

// Listen binds addr under ctx's DTLS configuration and starts the
// session manager's reap loop.
func Listen(addr string, ctx *session.Context, q *queue.Queue, log logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.Nop()
	}
	ln, err := session.Listen(addr, ctx)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	mgr := session.NewManager(session.DefaultClientTimeout, log)
	go mgr.Run(runCtx, sendDisconnectNotify(log))

	return &Server{
		ln:         ln,
		mgr:        mgr,
		q:          q,
		log:        log,
		cancel:     cancel,
		stopped:    make(chan struct{}),
		handshakes: semaphore.NewWeighted(MaxConcurrentHandshakes),
	}, nil
}

// Addr returns the bound local address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts peers until the listener is closed, handshaking and
// reading each on its own goroutine.
func (s *Server) Serve() error {
	defer close(s.stopped)
	for {
		sess, err := s.ln.Accept()
		if err != nil {
			return err
		}
		go s.handleSession(sess)
	}
}

func (s *Server) handleSession(sess *session.Session) {
	log := s.log.WithField("peer", sess.PeerAddr().String()).WithField("session_id", sess.ID().String())

	ctx, cancel := context.WithTimeout(context.Background(), HandshakeTimeout)
	defer cancel()

	if err := s.handshakes.Acquire(ctx, 1); err != nil {
		log.Warn("handshake slot wait aborted", logger.Fields{"error": err.Error()})
		return
	}
	defer s.handshakes.Release(1)

	err := sess.Handshake(ctx)
	if err != nil {
		log.Warn("handshake failed", logger.Fields{"error": err.Error()})
		return
	}
	s.mgr.Put(sess)
	log.Info("session established")
	if err := sess.WriteMessage(wire.Message{Header: wire.Header{
		ProtocolVersion: wire.ProtocolVersion,
		MessageType:     wire.ConnectionAccepted,
	}}); err != nil {
		log.Warn("failed to send CONNECTION_ACCEPTED", logger.Fields{"error": err.Error()})
	}

	buf := make([]byte, maxFrame)
	for {
		n, err := sess.Read(buf)
		if err != nil {
			if errs.CodeOf(err) == errs.CodeSessionWouldBlock {
				continue
			}
			log.Debug("session ended", logger.Fields{"error": err.Error()})
			s.mgr.Remove(sess.PeerAddr())
			return
		}
		s.dispatch(log, sess, buf[:n])
	}
}

func (s *Server) dispatch(log logger.Logger, sess *session.Session, data []byte) {
	hdr, err := wire.DecodeHeader(data)
	if err != nil {
		log.Warn("short frame, ignoring", logger.Fields{"error": err.Error()})
		return
	}

	if hdr.ProtocolVersion != wire.ProtocolVersion {
		// Unknown protocol version: echo the datagram back unchanged,
		// the forward-compatibility rule for the secure transport.
		if _, err := sess.Write(data); err != nil {
			log.Warn("echo of unknown-version frame failed", logger.Fields{"error": err.Error()})
		}
		return
	}

	payload := data[wire.HeaderSize:]
	if int(hdr.PayloadLength) <= len(payload) {
		payload = payload[:hdr.PayloadLength]
	}
	if err := wire.ValidatePayloadLength(hdr.MessageType, len(payload)); err != nil {
		log.Warn("payload length violation, dropping", logger.Fields{"error": err.Error()})
		return
	}

	msg := wire.Message{Header: hdr, Payload: payload}
	item := queue.WorkItem{Origin: sess, Message: msg}
	if err := s.q.Add(item, queue.DefaultAddTimeout); err != nil {
		log.Warn("queue add failed, dropping message", logger.Fields{"error": err.Error()})
	}
}

// sendDisconnectNotify builds the Manager reap hook that writes a
// DISCONNECT_NOTIFY to a session the instant before it is closed for
// inactivity.
func sendDisconnectNotify(log logger.Logger) func(*session.Session) {
	return func(sess *session.Session) {
		err := sess.WriteMessage(wire.Message{Header: wire.Header{
			ProtocolVersion: wire.ProtocolVersion,
			MessageType:     wire.DisconnectNotify,
		}})
		if err != nil {
			log.Debug("failed to send DISCONNECT_NOTIFY on reap", logger.Fields{"error": err.Error()})
		}
	}
}

// Close stops the accept loop, the reap loop, and every live session.
func (s *Server) Close() error {
	s.cancel()
	err := s.ln.Close()
	<-s.stopped
	s.mgr.CloseAll()
	return err
}
