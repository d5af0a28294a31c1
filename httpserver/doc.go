// Package httpserver serves the service's HTTP API and supervises its
// listeners.
//
// The primary listener serves HTTPS when a TLS configuration is present
// and plaintext otherwise. A plaintext fallback listener on the primary
// port plus 1000 may run alongside, but only while TLS is disabled:
// when TLS is the declared security posture the fallback is suppressed
// regardless of configuration, so no unauthenticated sibling port can
// appear next to the secured one.
//
// Endpoints:
//
//   - GET /                      service information
//   - GET /health                health document (503 when DOWN)
//   - GET /status                lifecycle status (registration,
//     heartbeat, listeners)
//   - GET /openapi.json          OpenAPI document
//   - GET /api/v1/count          read the counter
//   - GET /api/v1/count/details  full counter state
//   - GET /api/v1/count/increment  increment (role protected)
//   - GET /api/v1/count/reset      reset (role protected)
//   - GET /api/v1/count/protected  read, role protected
//   - GET /api/v1/count/verified   read, signature-verified token
//   - GET /livez, /readyz, /drain, /undrain  operational probes
//
// Role-protected endpoints use the claims-only validator; the verified
// endpoint demands full signature verification and is rate limited
// because each verification fetches the signing key set.
package httpserver
