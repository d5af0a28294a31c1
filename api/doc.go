/*
Package api defines the wire types and server configuration shared between
the HTTP layer and the binaries.

The package holds three kinds of declarations:

1. Response envelopes - the JSON documents returned by every endpoint
2. HTTPServerConfig - the full configuration of the HTTPS server surface
3. Shared protocol constants such as the X-Service-Name response header

# Response Envelopes

All endpoints return JSON. Successful counter operations use CounterResponse
or CounterDetailsResponse; endpoints behind JWT authorization add the
admitting scheme through ProtectedCounterResponse. Failures of any endpoint
use ErrorResponse with a single error string.

The health surface (HealthDocument) follows the registry convention: a
status of "UP" or "DOWN", a human-readable uptime, an RFC 3339 UTC
timestamp, and a flat map of process gauges. A DOWN document is always
served with HTTP 503 so that registry-side health checks and load
balancers agree with the document body.

ServiceStatusResponse aggregates the lifecycle view: registration state,
the lease renewal loop, and the state of every managed listener. It is
safe to poll concurrently with startup and shutdown transitions.

# Server Configuration

HTTPServerConfig carries everything the server supervisor needs: listen
addresses, timeouts, drain behavior, the structured logger, and the
optional TLS configuration. A nil TLSConfig selects plaintext listening,
which also unlocks the plaintext fallback listener.
*/
package api
