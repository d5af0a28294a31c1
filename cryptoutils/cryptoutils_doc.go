// Package cryptoutils provides the X.509 operations behind the service's
// TLS surface: a lightweight certificate authority for issuing server and
// client certificates, and helpers for verifying issued material.
//
// The package backs the certificate provisioning tool, which generates
// the CA, server, and client PEM files consumed by the HTTPS listener
// and by mutual TLS clients. All keys are ECDSA P-256; certificates and
// keys are exchanged exclusively in PEM format.
//
// # Certificate Authority
//
// NewCertificateAuthority creates a self-signed CA. The CA then issues
// leaf certificates:
//
//   - IssueServerCertificate - server authentication, with IP and DNS
//     subject alternative names for every listed host
//   - IssueClientCertificate - client authentication for mutual TLS
//
// # Verification Helpers
//
// VerifyCertificate checks that a PEM certificate carries the expected
// common name and matches a private key, which guards against mixing up
// generated files. RandomCert produces a throwaway self-signed
// certificate for tests and localhost servers where the chain of trust
// does not matter.
package cryptoutils
