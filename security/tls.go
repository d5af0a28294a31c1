package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// TLSOptions locates the server TLS material on disk and selects the
// negotiation mode.
type TLSOptions struct {
	// Enabled turns TLS on. When false the server listens in plaintext.
	Enabled bool

	// CertPath is the server certificate chain in PEM format.
	CertPath string

	// KeyPath is the server private key in PEM format.
	KeyPath string

	// CABundlePath is the PEM bundle used to verify client certificates
	// when MutualTLS is set.
	CABundlePath string

	// MutualTLS requires and verifies client certificates against the
	// CA bundle.
	MutualTLS bool
}

// BuildServerTLSConfig constructs the server TLS configuration from
// on-disk material.
//
// A nil config with a nil error means "serve plaintext": TLS disabled by
// configuration, or certificate/key files absent. Corrupt material is an
// error. When mutual TLS is requested but the CA bundle is missing or
// unreadable, the server degrades to standard TLS with a warning instead
// of locking every client out.
func BuildServerTLSConfig(opts TLSOptions, log *slog.Logger) (*tls.Config, error) {
	if !opts.Enabled {
		log.Info("TLS disabled in configuration")
		return nil, nil
	}

	if !fileExists(opts.CertPath) || !fileExists(opts.KeyPath) {
		log.Warn("TLS material not found, serving plaintext",
			"certPath", opts.CertPath,
			"keyPath", opts.KeyPath)
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(opts.CertPath, opts.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("loading TLS key pair: %w", err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if opts.MutualTLS {
		pool, err := loadClientCAs(opts.CABundlePath)
		if err != nil {
			log.Warn("Mutual TLS requested but CA bundle unusable, using standard TLS",
				"caBundlePath", opts.CABundlePath,
				"err", err)
		} else {
			cfg.ClientAuth = tls.RequireAndVerifyClientCert
			cfg.ClientCAs = pool
			log.Info("Mutual TLS enabled", "caBundlePath", opts.CABundlePath)
		}
	}

	return cfg, nil
}

func loadClientCAs(bundlePath string) (*x509.CertPool, error) {
	if bundlePath == "" {
		return nil, fmt.Errorf("no CA bundle path configured")
	}

	pemBytes, err := os.ReadFile(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("reading CA bundle: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemBytes) {
		return nil, fmt.Errorf("no certificates parsed from CA bundle %s", bundlePath)
	}
	return pool, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// NewRegistryHTTPClient builds the HTTP client used for service registry
// calls. Certificate verification is disabled: the registry deployment
// presents a self-signed certificate and shares this service's trust
// boundary. Do not reuse this client for requests that leave that
// boundary.
func NewRegistryHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}
