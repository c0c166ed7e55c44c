package certs_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mgreenly/space-captain/certs"
)

func genLeafDER() []byte {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	Expect(err).ToNot(HaveOccurred())

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "space-captain-pinning-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	Expect(err).ToNot(HaveOccurred())
	return der
}

var _ = Describe("certificate pinning", func() {
	var der []byte

	BeforeEach(func() {
		der = genLeafDER()
	})

	It("hashes DER bytes to a stable 32-byte digest", func() {
		h1 := certs.HashDER(der)
		h2 := certs.HashDER(der)
		Expect(h1).To(Equal(h2))
		Expect(h1).To(HaveLen(certs.HashSize))
	})

	It("produces different hashes for different leaf certificates", func() {
		other := genLeafDER()
		Expect(certs.HashDER(der)).ToNot(Equal(certs.HashDER(other)))
	})

	It("parses the leaf back out for depth-0 pin verification", func() {
		leaf, err := certs.ParseLeaf(der)
		Expect(err).ToNot(HaveOccurred())
		Expect(leaf.Subject.CommonName).To(Equal("space-captain-pinning-test"))
		Expect(certs.HashDER(leaf.Raw)).To(Equal(certs.HashDER(der)))
	})

	It("rejects garbage DER", func() {
		_, err := certs.ParseLeaf([]byte("not a certificate"))
		Expect(err).To(HaveOccurred())
	})
})
