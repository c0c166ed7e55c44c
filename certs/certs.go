// Package certs loads TLS certificate/key pairs and computes the
// DER-SHA-256 pinning hash used for connection authentication, adapted
// from a certificates/certs sub-package
// (certificates/certs/encode.go, certificates/cert.go) down to the two
// operations this domain needs: loading a server keypair and hashing a
// certificate for client-side pinning.
package certs

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/mgreenly/space-captain/errs"
)

// HashSize is the length of a pinned certificate hash: SHA-256 over the
// certificate's DER bytes.
const HashSize = 32

// LoadPair reads a PEM certificate and private key from disk and returns
// a tls.Certificate ready to hand to a DTLS/TLS config, mirroring
// certificates/certs.ParsePair's key+cert pairing but loading directly
// from paths (the only mode the server role needs).
func LoadPair(certFile, keyFile string) (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return tls.Certificate{}, errs.Wrap(errs.CodeCertLoad, err)
	}
	return cert, nil
}

// HashFile computes the SHA-256 hash of the DER bytes of the PEM
// certificate at path — the value a client pins against.
func HashFile(path string) ([HashSize]byte, error) {
	var out [HashSize]byte

	raw, err := os.ReadFile(path)
	if err != nil {
		return out, errs.Wrap(errs.CodeCertHash, err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return out, errs.New(errs.CodeCertHash, "no PEM block found")
	}

	return HashDER(block.Bytes), nil
}

// HashDER computes the SHA-256 hash of raw DER certificate bytes, the
// same computation the server-side tls.Certificate.Leaf.Raw bytes get
// hashed with at verification time.
func HashDER(der []byte) [HashSize]byte {
	return sha256.Sum256(der)
}

// ParseLeaf extracts the x509 leaf certificate from DER bytes, recovering
// the presented certificate's raw bytes at depth 0. The session package's
// pinning callback does not call it; it hashes the raw DER directly.
func ParseLeaf(der []byte) (*x509.Certificate, error) {
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, errs.Wrap(errs.CodeCertHash, err)
	}
	return leaf, nil
}
