package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/linqra/counterapp/api"
	"github.com/linqra/counterapp/common"
	"github.com/linqra/counterapp/counter"
	"github.com/linqra/counterapp/docstore"
	"github.com/linqra/counterapp/health"
	"github.com/linqra/counterapp/registry"
)

// Authentication scheme labels reported by protected endpoints.
const (
	authTypeRoles    = "JWT with Keycloak roles"
	authTypeVerified = "JWT with verified signature"
)

// RegistryStatus is the view of the registry client the status endpoint
// consumes.
type RegistryStatus interface {
	Registered() bool
	State() registry.HeartbeatState
}

// HandlerConfig assembles the collaborators behind the API endpoints.
type HandlerConfig struct {
	// ServiceName is reported as the service identifier.
	ServiceName string

	// Environment is the deployment environment reported on the home
	// endpoint.
	Environment string

	// Counter is the business counter behind the /api/v1/count routes.
	Counter *counter.Service

	// Health produces the health document.
	Health *health.Reporter

	// Documents serves the OpenAPI document. Nil means no document is
	// configured and /openapi.json responds 404.
	Documents docstore.Store

	// Registry feeds the status endpoint. Nil reports an unregistered
	// instance with no heartbeat.
	Registry RegistryStatus

	// RequireRoles guards role-protected endpoints. Nil admits every
	// request (tests only).
	RequireRoles func(http.Handler) http.Handler

	// RequireVerified guards the signature-verified endpoint. Nil admits
	// every request (tests only).
	RequireVerified func(http.Handler) http.Handler

	// Log is the structured logger for request handling.
	Log *slog.Logger
}

// Handler implements the service's API endpoints.
type Handler struct {
	cfg HandlerConfig
	log *slog.Logger
}

// NewHandler creates a Handler from its collaborators.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg, log: cfg.Log}
}

// HandleHome reports the service identity and run state.
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.HomeResponse{
		Message:     "CounterApp API",
		Status:      "running",
		Version:     common.Version,
		Environment: h.cfg.Environment,
	})
}

// HandleHealth serves the health document. A DOWN document is served
// with HTTP 503 so registry health checks agree with the body.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	doc := h.cfg.Health.Document()

	status := http.StatusOK
	if doc.Status == health.StatusDown {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, doc)
}

// HandleCount returns the current counter value with metadata.
func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.CounterResponse{
		Count:    h.cfg.Counter.Count(),
		Status:   string(counter.StatusSuccess),
		Metadata: h.cfg.Counter.Snapshot(),
	})
}

// HandleIncrement increments the counter and returns the new value.
func (h *Handler) HandleIncrement(w http.ResponseWriter, r *http.Request) {
	count := h.cfg.Counter.Increment()
	writeJSON(w, http.StatusOK, api.CounterResponse{
		Count:    count,
		Status:   string(counter.StatusIncremented),
		Metadata: h.cfg.Counter.Snapshot(),
	})
}

// HandleReset resets the counter to zero.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	count := h.cfg.Counter.Reset()
	writeJSON(w, http.StatusOK, api.CounterResponse{
		Count:    count,
		Status:   string(counter.StatusReset),
		Metadata: h.cfg.Counter.Snapshot(),
	})
}

// HandleDetails returns the full counter state.
func (h *Handler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.CounterDetailsResponse{
		Status:  string(counter.StatusSuccess),
		Counter: h.cfg.Counter.Snapshot(),
	})
}

// HandleProtectedCount returns the counter for callers admitted by the
// claims-only role check.
func (h *Handler) HandleProtectedCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.ProtectedCounterResponse{
		Count:    h.cfg.Counter.Count(),
		Status:   string(counter.StatusSuccess),
		Metadata: h.cfg.Counter.Snapshot(),
		AuthType: authTypeRoles,
	})
}

// HandleVerifiedCount returns the counter for callers admitted by full
// token signature verification.
func (h *Handler) HandleVerifiedCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.ProtectedCounterResponse{
		Count:    h.cfg.Counter.Count(),
		Status:   string(counter.StatusSuccess),
		Metadata: h.cfg.Counter.Snapshot(),
		AuthType: authTypeVerified,
	})
}

// HandleOpenAPI serves the OpenAPI document from the configured store.
// The document is fetched per request and validated as JSON before
// serving.
func (h *Handler) HandleOpenAPI(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Documents == nil {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "OpenAPI specification file not found"})
		return
	}

	doc, err := h.cfg.Documents.Fetch(r.Context())
	if errors.Is(err, docstore.ErrDocumentNotFound) {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "OpenAPI specification file not found"})
		return
	}
	if err != nil {
		h.log.Error("Failed to fetch OpenAPI document", "err", err, "store", h.cfg.Documents.Name())
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load OpenAPI specification"})
		return
	}

	if !json.Valid(doc) {
		h.log.Error("OpenAPI document is not valid JSON", "store", h.cfg.Documents.Name())
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "Invalid JSON in OpenAPI specification file"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// HandleStatus aggregates the lifecycle view: registration state,
// heartbeat loop, and listener states. Safe to poll concurrently with
// startup and shutdown.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request, listeners []api.ListenerStatus) {
	resp := api.ServiceStatusResponse{
		ServiceID: h.cfg.ServiceName,
		Listeners: listeners,
	}

	if h.cfg.Registry != nil {
		resp.Registered = h.cfg.Registry.Registered()
		state := h.cfg.Registry.State()
		resp.Heartbeat.Running = state.Running
		if !state.LastSentAt.IsZero() {
			resp.Heartbeat.LastSentAt = state.LastSentAt.UTC().Format(time.RFC3339)
		}
		resp.Heartbeat.LastResult = state.LastResult
	}

	writeJSON(w, http.StatusOK, resp)
}

// requireRoles returns the configured role middleware, or a pass-through
// when none is set.
func (h *Handler) requireRoles() func(http.Handler) http.Handler {
	if h.cfg.RequireRoles == nil {
		return passthrough
	}
	return h.cfg.RequireRoles
}

// requireVerified returns the configured verification middleware, or a
// pass-through when none is set.
func (h *Handler) requireVerified() func(http.Handler) http.Handler {
	if h.cfg.RequireVerified == nil {
		return passthrough
	}
	return h.cfg.RequireVerified
}

func passthrough(next http.Handler) http.Handler {
	return next
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
