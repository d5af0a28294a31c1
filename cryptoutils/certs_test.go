package cryptoutils

import (
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertificateAuthorityIssuesVerifiableServerCert(t *testing.T) {
	ca, err := NewCertificateAuthority(pkix.Name{CommonName: "app-ca", Organization: []string{"Dipme"}}, 24*time.Hour)
	require.NoError(t, err)

	certPEM, keyPEM, err := ca.IssueServerCertificate(
		pkix.Name{CommonName: "localhost"},
		[]string{"localhost", "127.0.0.1"},
		time.Hour,
	)
	require.NoError(t, err)

	// The pair must load as a TLS certificate.
	_, err = tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)

	require.NoError(t, VerifyCertificate(keyPEM, certPEM, "localhost"))

	// The leaf must chain to the CA.
	roots := x509.NewCertPool()
	require.True(t, roots.AppendCertsFromPEM(ca.CertPEM))

	block, _ := pem.Decode(certPEM)
	require.NotNil(t, block)
	leaf, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)

	_, err = leaf.Verify(x509.VerifyOptions{
		Roots:     roots,
		DNSName:   "localhost",
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
	require.NoError(t, err)

	assert.Contains(t, leaf.DNSNames, "localhost")
	require.Len(t, leaf.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", leaf.IPAddresses[0].String())
}

func TestCertificateAuthorityIssuesClientCert(t *testing.T) {
	ca, err := NewCertificateAuthority(pkix.Name{CommonName: "app-ca"}, 24*time.Hour)
	require.NoError(t, err)

	certPEM, keyPEM, err := ca.IssueClientCertificate(pkix.Name{CommonName: "client-app"}, time.Hour)
	require.NoError(t, err)

	require.NoError(t, VerifyCertificate(keyPEM, certPEM, "client-app"))

	block, _ := pem.Decode(certPEM)
	require.NotNil(t, block)
	leaf, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)

	assert.Equal(t, []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}, leaf.ExtKeyUsage)

	roots := x509.NewCertPool()
	require.True(t, roots.AppendCertsFromPEM(ca.CertPEM))
	_, err = leaf.Verify(x509.VerifyOptions{
		Roots:     roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	})
	require.NoError(t, err)
}

func TestVerifyCertificateRejectsWrongCN(t *testing.T) {
	ca, err := NewCertificateAuthority(pkix.Name{CommonName: "app-ca"}, 24*time.Hour)
	require.NoError(t, err)

	certPEM, keyPEM, err := ca.IssueClientCertificate(pkix.Name{CommonName: "client-app"}, time.Hour)
	require.NoError(t, err)

	err = VerifyCertificate(keyPEM, certPEM, "someone-else")
	assert.Error(t, err)
}

func TestVerifyCertificateRejectsMismatchedKey(t *testing.T) {
	ca, err := NewCertificateAuthority(pkix.Name{CommonName: "app-ca"}, 24*time.Hour)
	require.NoError(t, err)

	certPEM, _, err := ca.IssueClientCertificate(pkix.Name{CommonName: "client-app"}, time.Hour)
	require.NoError(t, err)
	_, otherKeyPEM, err := ca.IssueClientCertificate(pkix.Name{CommonName: "client-app"}, time.Hour)
	require.NoError(t, err)

	err = VerifyCertificate(otherKeyPEM, certPEM, "client-app")
	assert.Error(t, err)
}

func TestRandomCert(t *testing.T) {
	cert, err := RandomCert()
	require.NoError(t, err)
	assert.NotEmpty(t, cert.Certificate)
}
