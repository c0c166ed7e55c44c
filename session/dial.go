package session

import (
	"context"
	"net"

	pdtls "github.com/pion/dtls/v3"

	"github.com/mgreenly/space-captain/errs"
)

// Listener wraps pion's DTLS listener. Accept blocks until a peer
// completes the RFC 6347 cookie exchange and pion hands back a
// *dtls.Conn bound to that peer's address; the DTLS handshake proper
// (certificate exchange) still needs a Handshake call before the session
// is ESTABLISHED, matching the NEW -> HANDSHAKING state split.
type Listener struct {
	inner net.Listener
}

// Listen binds a UDP socket at addr and returns a Listener configured
// with ctx's certificate and cipher preferences (server role only).
func Listen(addr string, ctx *Context) (*Listener, error) {
	if ctx.role != RoleServer {
		return nil, errs.New(errs.CodeSessionInit, "Listen requires a server-role context")
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errs.Wrap(errs.CodeSessionInit, err)
	}

	l, err := pdtls.Listen("udp", udpAddr, ctx.config)
	if err != nil {
		return nil, errs.Wrap(errs.CodeSessionInit, err)
	}
	return &Listener{inner: l}, nil
}

// Accept returns the next cookie-verified peer as a NEW-state Session.
// The caller must still call Handshake before treating it as
// ESTABLISHED.
func (l *Listener) Accept() (*Session, error) {
	conn, err := l.inner.Accept()
	if err != nil {
		return nil, errs.Wrap(errs.CodeSessionHandshake, err)
	}
	dc, ok := conn.(*pdtls.Conn)
	if !ok {
		return nil, errs.New(errs.CodeSessionHandshake, "unexpected connection type from DTLS listener")
	}
	return newSession(dc), nil
}

// Close stops accepting new peers and releases the underlying socket.
func (l *Listener) Close() error {
	return l.inner.Close()
}

// Addr returns the bound local address, useful when the port was chosen
// by the OS (":0").
func (l *Listener) Addr() net.Addr {
	return l.inner.Addr()
}

// Dial performs a client-role DTLS handshake to addr, blocking until
// ESTABLISHED or ctx (the context.Context, not the DTLS Context) expires.
func Dial(ctx context.Context, addr string, dtlsCtx *Context) (*Session, error) {
	if dtlsCtx.role != RoleClient {
		return nil, errs.New(errs.CodeSessionInit, "Dial requires a client-role context")
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errs.Wrap(errs.CodeSessionInit, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, errs.Wrap(errs.CodeSessionInit, err)
	}

	dc, err := pdtls.ClientWithContext(ctx, conn, dtlsCtx.config)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errs.Wrap(errs.CodeSessionHandshakeTimeout, err)
		}
		if isCertVerifyError(err) {
			return nil, errs.Wrap(errs.CodeSessionCertVerify, err)
		}
		return nil, errs.Wrap(errs.CodeSessionHandshake, err)
	}

	s := newSession(dc)
	s.state = StateEstablished
	s.handshakeComplete = true
	return s, nil
}
