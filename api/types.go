package api

import (
	"github.com/linqra/counterapp/counter"
)

// ServiceNameHeader is attached to every HTTP response so gateways can
// attribute traffic to this service.
const ServiceNameHeader = "X-Service-Name"

// CounterResponse is returned by the counter read, increment, and reset
// endpoints.
type CounterResponse struct {
	// Count is the counter value after the operation.
	Count int64 `json:"count"`

	// Status describes the operation outcome (success, incremented, reset).
	Status string `json:"status"`

	// Metadata is the full counter state at response time.
	Metadata counter.Counter `json:"metadata"`
}

// CounterDetailsResponse contains the full counter state without the
// bare count shortcut.
type CounterDetailsResponse struct {
	// Status describes the operation outcome.
	Status string `json:"status"`

	// Counter is the full counter state.
	Counter counter.Counter `json:"counter"`
}

// ProtectedCounterResponse is returned by endpoints behind JWT role
// authorization. It mirrors CounterResponse and names the authentication
// scheme that admitted the request.
type ProtectedCounterResponse struct {
	// Count is the current counter value.
	Count int64 `json:"count"`

	// Status describes the operation outcome.
	Status string `json:"status"`

	// Metadata is the full counter state at response time.
	Metadata counter.Counter `json:"metadata"`

	// AuthType names the authentication scheme used to admit the request.
	AuthType string `json:"auth_type"`
}

// HomeResponse describes the service on its index page.
type HomeResponse struct {
	// Message is the service display name.
	Message string `json:"message"`

	// Status is the coarse run state, always "running" while serving.
	Status string `json:"status"`

	// Version is the build version of the running binary.
	Version string `json:"version"`

	// Environment is the deployment environment name.
	Environment string `json:"environment"`
}

// HealthDocument is the health surface consumed by the service registry
// and by operators. Status is "UP" or "DOWN"; a DOWN document is served
// with HTTP 503.
type HealthDocument struct {
	// ServiceID is the registered application name.
	ServiceID string `json:"serviceId"`

	// Status is "UP" when the process is within resource thresholds,
	// "DOWN" otherwise.
	Status string `json:"status"`

	// Uptime is the time since process start, formatted "XdXhXmXs".
	Uptime string `json:"uptime"`

	// Timestamp is the document creation time in RFC 3339 UTC ("Z" suffix).
	Timestamp string `json:"timestamp"`

	// Metrics holds process gauges: cpu, memory, and responseTime
	// (milliseconds) under normal operation, or error/message markers
	// when probing failed.
	Metrics map[string]float64 `json:"metrics"`
}

// HeartbeatStatus reports the registry lease renewal loop state.
type HeartbeatStatus struct {
	// Running reports whether the renewal loop is active.
	Running bool `json:"running"`

	// LastSentAt is the RFC 3339 time of the most recent renewal attempt,
	// empty before the first attempt.
	LastSentAt string `json:"lastSentAt,omitempty"`

	// LastResult is "ok" or "failed" for the most recent renewal attempt,
	// empty before the first attempt.
	LastResult string `json:"lastResult,omitempty"`
}

// ListenerStatus reports one listener managed by the server supervisor.
type ListenerStatus struct {
	// Name identifies the listener (e.g. "https-primary", "http-fallback").
	Name string `json:"name"`

	// State is one of stopped, starting, running, stopping.
	State string `json:"state"`
}

// ServiceStatusResponse aggregates the service lifecycle state for the
// status endpoint.
type ServiceStatusResponse struct {
	// ServiceID is the registered application name.
	ServiceID string `json:"serviceId"`

	// Registered reports whether registry registration succeeded.
	Registered bool `json:"registered"`

	// Heartbeat reports the lease renewal loop state.
	Heartbeat HeartbeatStatus `json:"heartbeat"`

	// Listeners reports the state of all managed listeners.
	Listeners []ListenerStatus `json:"listeners"`
}

// ErrorResponse is the JSON error envelope used across all endpoints.
type ErrorResponse struct {
	// Error is the human-readable failure description.
	Error string `json:"error"`
}
