// Package registry implements the service registry lifecycle client:
// registration, periodic lease renewal, and deregistration against a
// Eureka-compatible discovery server.
//
// The client owns the instance identity for this process. The instance
// id is minted once at construction as {appName}:{uuid}, so a restarted
// process always registers as a new instance and never reuses a stale
// lease.
//
// # Protocol
//
// The registry speaks HTTPS REST with JSON bodies:
//
//   - POST {base}/apps/{appName} registers the instance document;
//     success is HTTP 204.
//   - PUT {base}/apps/{appName}/{instanceId} renews the lease;
//     success is HTTP 200.
//   - DELETE {base}/apps/{appName}/{instanceId} deregisters;
//     success is HTTP 200.
//
// The lease advertises a 30 second renewal interval and a 90 second
// duration. Expiry is tracked by the registry, not this client: a
// heartbeat failure is logged and retried on the next tick, and a
// prolonged outage lets the registry evict the lease on its own.
//
// # Failure posture
//
// No registry failure terminates the process. A missing APP_NAME
// disables every operation (each returns false), a failed registration
// leaves the instance serving unregistered, and deregistration is
// best-effort during shutdown.
//
// Registry calls skip TLS certificate verification because the registry
// deployment uses self-signed certificates; the registry endpoint must
// be trusted through the deployment instead.
package registry
