// Package tcp is the stream-mode front end: a plain TCP listener, one
// goroutine per accepted connection reading length-prefixed legacy
// frames and handing each off to the work queue. The C original drives
// this with epoll in edge-triggered mode over non-blocking sockets;
// idiomatic Go gets the same "many connections, no front-end thread
// starves" property from a blocking net.Conn per goroutine instead.
package tcp

import (
	"context"
	"net"

	"github.com/mgreenly/space-captain/errs"
	"github.com/mgreenly/space-captain/framing"
	"github.com/mgreenly/space-captain/logger"
	"github.com/mgreenly/space-captain/pool"
	"github.com/mgreenly/space-captain/queue"
	"github.com/mgreenly/space-captain/wire"
)

// Backlog is the listen(2) backlog for the stream-mode listener.
const Backlog = 128

// Server accepts stream-mode connections and feeds a shared queue.Queue.
type Server struct {
	ln   net.Listener
	pool *pool.Pool
	q    *queue.Queue
	log  logger.Logger
}

// Listen binds addr (e.g. ":7070") and returns a Server ready to Serve.
func Listen(addr string, connPool *pool.Pool, q *queue.Queue, log logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.Nop()
	}
	lc := net.ListenConfig{Control: reusePortControl}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, errs.Wrap(errs.CodeSessionInit, err)
	}
	return &Server{ln: ln, pool: connPool, q: q, log: log}, nil
}

// Addr returns the bound local address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts connections until the listener is closed, spawning one
// goroutine per connection. It returns when Close stops the accept loop.
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return err
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			if err := tc.SetNoDelay(true); err != nil {
				s.log.Warn("TCP_NODELAY failed", logger.Fields{"error": err.Error()})
			}
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error { return s.ln.Close() }

func (s *Server) handleConn(conn net.Conn) {
	origin := &Origin{conn: conn}
	cs := s.pool.Acquire()
	defer s.pool.Release(cs)
	defer conn.Close()

	log := s.log.WithField("remote_addr", conn.RemoteAddr().String())

	for {
		legacy, err := framing.ReadMessage(conn, cs)
		if err != nil {
			if errs.CodeOf(err) == errs.CodeFramingInvalidLength {
				log.Warn("framing violation, disconnecting", logger.Fields{"error": err.Error()})
			} else {
				log.Debug("connection closed", logger.Fields{"error": err.Error()})
			}
			return
		}

		msg := wire.Message{
			Header:  wire.Header{MessageType: legacy.Header.Type},
			Payload: legacy.Payload,
		}
		item := queue.WorkItem{Origin: origin, Message: msg}
		if err := s.q.Add(item, queue.DefaultAddTimeout); err != nil {
			log.Warn("queue add failed, dropping message", logger.Fields{"error": err.Error()})
		}
	}
}

// Origin adapts a net.Conn to queue.Origin, translating the protocol's
// 18-byte wire.Message back into the stream transport's 8-byte
// wire.LegacyMessage framing on the way out.
type Origin struct {
	conn net.Conn
}

// WriteMessage implements queue.Origin.
func (o *Origin) WriteMessage(msg wire.Message) error {
	legacy := wire.LegacyMessage{
		Header:  wire.LegacyHeader{Type: msg.Header.MessageType},
		Payload: msg.Payload,
	}
	_, err := o.conn.Write(legacy.Encode())
	if err != nil {
		return errs.Wrap(errs.CodeWorkerSendFailed, err)
	}
	return nil
}

// Close implements queue.Origin.
func (o *Origin) Close() error { return o.conn.Close() }
