package udp_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mgreenly/space-captain/logger"
	"github.com/mgreenly/space-captain/queue"
	udpserver "github.com/mgreenly/space-captain/server/udp"
	"github.com/mgreenly/space-captain/session"
)

func generateServerCert(t *testing.T) (certPath, keyPath string) {
	t.Helper()
	dir := t.TempDir()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "space-captain-server"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatal(err)
	}

	certPath = filepath.Join(dir, "server.crt")
	keyPath = filepath.Join(dir, "server.key")
	if err := os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}
	keyBytes, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certPath, keyPath
}

func TestListenAndClose(t *testing.T) {
	certPath, keyPath := generateServerCert(t)
	dtlsCtx, err := session.NewServerContext(certPath, keyPath)
	if err != nil {
		t.Fatal(err)
	}

	q, err := queue.New(4)
	if err != nil {
		t.Fatal(err)
	}

	srv, err := udpserver.Listen("127.0.0.1:0", dtlsCtx, q, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if srv.Addr() == nil {
		t.Fatal("expected a bound address")
	}

	done := make(chan struct{})
	go func() {
		srv.Serve()
		close(done)
	}()

	if err := srv.Close(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Serve to return after Close")
	}
}
