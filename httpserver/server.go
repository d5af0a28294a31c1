package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/atomic"

	"github.com/linqra/counterapp/api"
	"github.com/linqra/counterapp/common"
	"github.com/linqra/counterapp/metrics"
)

// Server is the primary API server. It serves HTTPS when a TLS
// configuration is present and plaintext otherwise, owns the optional
// plaintext fallback listener, and runs the metrics listener when a
// metrics address is configured.
type Server struct {
	cfg     *api.HTTPServerConfig
	isReady atomic.Bool
	state   atomic.String
	log     *slog.Logger

	name       string
	srv        *http.Server
	metricsSrv *metrics.MetricsServer
	handler    *Handler
	fallback   *FallbackListener
}

// New creates the server and, when the configuration allows it, the
// plaintext fallback listener on the primary port plus 1000. Nothing
// listens until RunInBackground.
func New(cfg *api.HTTPServerConfig, handler *Handler) (srv *Server, err error) {
	metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
	if err != nil {
		return nil, err
	}

	name := "http-primary"
	if cfg.TLSConfig != nil {
		name = "https-primary"
	}

	srv = &Server{
		cfg:        cfg,
		log:        cfg.Log,
		name:       name,
		metricsSrv: metricsSrv,
		handler:    handler,
	}
	srv.isReady.Store(true)
	srv.state.Store(StateStopped)

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.getRouter(),
		TLSConfig:    cfg.TLSConfig,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if cfg.HTTPEnabled && cfg.TLSConfig == nil {
		fallbackAddr, err := deriveFallbackAddr(cfg.ListenAddr)
		if err != nil {
			return nil, err
		}
		srv.fallback = NewFallbackListener(fallbackAddr, srv.srv.Handler, cfg.Log)
	} else if cfg.HTTPEnabled {
		cfg.Log.Warn("HTTP fallback requested but TLS is enabled, fallback listener disabled")
	}

	return srv, nil
}

func (srv *Server) getRouter() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(serviceNameHeader(srv.cfg.ServiceName))

	mux.With(srv.httpLogger).Get("/", srv.handler.HandleHome)
	mux.With(srv.httpLogger).Get("/health", srv.handler.HandleHealth)
	mux.With(srv.httpLogger).Get("/status", srv.handleStatus)
	mux.With(srv.httpLogger).Get("/openapi.json", srv.handler.HandleOpenAPI)

	requireRoles := srv.handler.requireRoles()
	requireVerified := srv.handler.requireVerified()

	mux.Route("/api/v1/count", func(r chi.Router) {
		r.With(srv.httpLogger).Get("/", srv.handler.HandleCount)
		r.With(srv.httpLogger).Get("/details", srv.handler.HandleDetails)

		r.With(srv.httpLogger, requireRoles).Get("/increment", srv.handler.HandleIncrement)
		r.With(srv.httpLogger, requireRoles).Get("/reset", srv.handler.HandleReset)
		r.With(srv.httpLogger, requireRoles).Get("/protected", srv.handler.HandleProtectedCount)

		// Each verified request fetches the signing key set, so the
		// route is rate limited ahead of the validator.
		r.With(srv.httpLogger, verifiedRateLimit(), requireVerified).Get("/verified", srv.handler.HandleVerifiedCount)
	})

	mux.With(srv.httpLogger).Get("/livez", srv.handleLivenessCheck)
	mux.With(srv.httpLogger).Get("/readyz", srv.handleReadinessCheck)
	mux.With(srv.httpLogger).Get("/drain", srv.handleDrain)
	mux.With(srv.httpLogger).Get("/undrain", srv.handleUndrain)

	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}
	return mux
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

// ListenerStatuses reports the state of every managed listener,
// starting with the primary.
func (srv *Server) ListenerStatuses() []api.ListenerStatus {
	statuses := []api.ListenerStatus{{Name: srv.name, State: srv.state.Load()}}
	if srv.fallback != nil {
		statuses = append(statuses, srv.fallback.Status())
	}
	return statuses
}

func (srv *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	srv.handler.HandleStatus(w, r, srv.ListenerStatuses())
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"alive"}`))
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (srv *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Swap(false) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"already draining"}`))
		return
	}

	srv.log.Info("Server marked as not ready")

	go func() {
		// Wait for the drain duration to allow load balancers to detect
		// the change before shutdown proceeds.
		time.Sleep(srv.cfg.DrainDuration)
		srv.log.Info("Drain period completed")
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"draining"}`))
}

func (srv *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if srv.isReady.Swap(true) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"already ready"}`))
		return
	}

	srv.log.Info("Server marked as ready")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// RunInBackground starts every listener on its own goroutine: metrics
// (when configured), the plaintext fallback (when allowed), and the
// primary listener, serving TLS when a TLS configuration is present.
func (srv *Server) RunInBackground() {
	// metrics
	if srv.cfg.MetricsAddr != "" {
		go func() {
			srv.log.With("metricsAddress", srv.cfg.MetricsAddr).Info("Starting metrics server")
			err := srv.metricsSrv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				srv.log.Error("Metrics server failed", "err", err)
			}
		}()
	}

	// plaintext fallback
	if srv.fallback != nil {
		srv.fallback.StartIfEnabled(srv.cfg.HTTPEnabled, srv.cfg.TLSConfig != nil)
	}

	// api
	srv.state.Store(StateStarting)
	go func() {
		srv.state.Store(StateRunning)
		var err error
		if srv.cfg.TLSConfig != nil {
			srv.log.Info("Starting HTTPS server", "listenAddress", srv.cfg.ListenAddr)
			err = srv.srv.ListenAndServeTLS("", "")
		} else {
			srv.log.Info("Starting HTTP server", "listenAddress", srv.cfg.ListenAddr)
			err = srv.srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("HTTP server failed", "err", err)
		}
		srv.state.Store(StateStopped)
	}()
}

// Shutdown stops the fallback listener first, then drains the primary
// listener within the graceful shutdown window, then stops the metrics
// server.
func (srv *Server) Shutdown() {
	// fallback
	if srv.fallback != nil {
		srv.fallback.Stop()
	}

	// api
	srv.state.Store(StateStopping)
	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error("Graceful HTTP server shutdown failed", "err", err)
	} else {
		srv.log.Info("HTTP server gracefully stopped")
	}
	srv.state.Store(StateStopped)

	// metrics
	if len(srv.cfg.MetricsAddr) != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
		defer cancel()

		if err := srv.metricsSrv.Shutdown(ctx); err != nil {
			srv.log.Error("Graceful metrics server shutdown failed", "err", err)
		} else {
			srv.log.Info("Metrics server gracefully stopped")
		}
	}
}

// deriveFallbackAddr computes the plaintext fallback address: same host
// as the primary listener, port plus the fixed offset.
func deriveFallbackAddr(listenAddr string) (string, error) {
	host, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "", fmt.Errorf("parsing listen address %q: %w", listenAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("parsing listen port %q: %w", portStr, err)
	}
	return net.JoinHostPort(host, strconv.Itoa(port+FallbackPortOffset)), nil
}
