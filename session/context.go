// Package session implements the secure session layer: authenticated,
// confidential, ordered, reliable per-peer streams over a shared UDP
// socket.
//
// The underlying DTLS 1.2 engine is github.com/pion/dtls/v3 rather than
// a hand-rolled record layer. pion/dtls drives the handshake, generates
// and checks the RFC 6347 HelloVerifyRequest cookie transparently inside
// Listen (the cookie DoS protection), and demultiplexes datagrams by
// source address into one *dtls.Conn per peer (per-peer session
// demultiplexing) — both of which a from-scratch port would otherwise
// have to reimplement by hand.
package session

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"github.com/pion/dtls/v3"

	"github.com/mgreenly/space-captain/certs"
	"github.com/mgreenly/space-captain/errs"
)

// Role is the DTLS context's side of the handshake.
type Role uint8

const (
	RoleClient Role = iota
	RoleServer
)

// ReadTimeout is a 30-second handshake read timeout, in seconds. It is
// not passed to the DTLS configuration; handshakes are bounded only by
// the context given to Handshake or Dial.
const ReadTimeout = 30

// preferredCipherSuites lists ECDHE suites first, RSA then ECDSA
// signatures: AES-128-GCM (AEAD) is preferred outright; pion/dtls/v3
// exposes no ECDHE AES-256-GCM suite, so the AES-256-CBC pair is kept
// as a fallback rather than dropping 256-bit key support entirely. The
// CBC fallback is not AEAD.
var preferredCipherSuites = []dtls.CipherSuiteID{
	dtls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	dtls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	dtls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
	dtls.TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA,
}

// Context is the per-process DTLS configuration: role, certificate (server
// only), and pinned certificate hash (client only). One Context is built
// at startup and torn down at shutdown.
type Context struct {
	role       Role
	config     *dtls.Config
	pinnedHash [certs.HashSize]byte
	pinned     bool
}

// NewServerContext builds a server-role Context. A server role without
// both a certificate and a key is a configuration error: it fails with
// a CodeSessionInit error.
func NewServerContext(certFile, keyFile string) (*Context, error) {
	if certFile == "" || keyFile == "" {
		return nil, errs.New(errs.CodeSessionInit, "server role requires both certificate and key")
	}

	pair, err := certs.LoadPair(certFile, keyFile)
	if err != nil {
		return nil, errs.Wrap(errs.CodeSessionInit, err)
	}

	return &Context{
		role: RoleServer,
		config: &dtls.Config{
			Certificates:         []tls.Certificate{pair},
			CipherSuites:         preferredCipherSuites,
			ClientAuth:           dtls.NoClientCert,
			ExtendedMasterSecret: dtls.RequireExtendedMasterSecret,
		},
	}, nil
}

// NewClientContext builds a client-role Context. pinnedHash, if non-nil
// and HashSize bytes long, restricts the accepted server certificate to
// an exact DER-SHA-256 match; a nil/empty hash leaves verification at
// NONE, which is not a trust store.
func NewClientContext(pinnedHash []byte) (*Context, error) {
	c := &Context{
		role: RoleClient,
		config: &dtls.Config{
			CipherSuites:         preferredCipherSuites,
			ExtendedMasterSecret: dtls.RequireExtendedMasterSecret,
		},
	}

	if len(pinnedHash) == 0 {
		c.config.InsecureSkipVerify = true
		return c, nil
	}
	if len(pinnedHash) != certs.HashSize {
		return nil, errs.New(errs.CodeSessionInit, fmt.Sprintf("pinned hash must be %d bytes", certs.HashSize))
	}

	copy(c.pinnedHash[:], pinnedHash)
	c.pinned = true
	c.config.InsecureSkipVerify = true // we do our own pinning check below, not a CA-trust check
	c.config.VerifyPeerCertificate = c.verifyPinned
	return c, nil
}

// verifyPinned implements a pinning-only policy: SHA-256 over the
// presented DER, compared to the pinned bytes, at depth 0 only. A
// mismatch fails the handshake with CodeSessionCertVerify.
//
// This callback clears other verification failures in favor of the
// pinning decision alone — a pinning-only policy is intentional here,
// not a trust-store replacement, and operators should not expect CA
// validation to also run.
func (c *Context) verifyPinned(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return errs.New(errs.CodeSessionCertVerify, "no certificate presented")
	}
	got := certs.HashDER(rawCerts[0])
	if got != c.pinnedHash {
		return errs.New(errs.CodeSessionCertVerify, "certificate hash does not match pinned value")
	}
	return nil
}

// Role reports which role the Context was built for.
func (c *Context) Role() Role {
	return c.role
}
