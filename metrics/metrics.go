// Package metrics serves the Prometheus endpoint and holds the
// service's instrumentation counters.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Instrumentation counters. They are incremented from the registry and
// security packages and registered with the metrics server by New.
var (
	// RegistrationAttempts counts registry registration attempts by result
	// (ok, failed).
	RegistrationAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_registration_attempts_total",
		Help: "Service registry registration attempts by result.",
	}, []string{"result"})

	// Heartbeats counts lease renewal attempts by result (ok, failed).
	Heartbeats = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_heartbeats_total",
		Help: "Service registry lease renewals by result.",
	}, []string{"result"})

	// Deregistrations counts deregistration attempts by result (ok, failed).
	Deregistrations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_deregistrations_total",
		Help: "Service registry deregistrations by result.",
	}, []string{"result"})

	// AuthDenials counts JWT authorization denials by reason code.
	AuthDenials = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_denials_total",
		Help: "JWT authorization denials by reason.",
	}, []string{"reason"})
)

// MetricsServer serves the Prometheus scrape endpoint on its own listener.
type MetricsServer struct {
	srv      *http.Server
	registry *prometheus.Registry
}

// New creates a metrics server for the named service listening on addr.
// The registry includes Go runtime and process collectors alongside the
// package's instrumentation counters.
func New(name, addr string) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: name}),
		RegistrationAttempts,
		Heartbeats,
		Deregistrations,
		AuthDenials,
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &MetricsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		registry: registry,
	}, nil
}

// ListenAndServe blocks serving the scrape endpoint until Shutdown is
// called or the listener fails.
func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
