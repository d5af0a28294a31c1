package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.uber.org/atomic"

	"github.com/linqra/counterapp/api"
)

// Listener states reported by Status.
const (
	StateStopped  = "stopped"
	StateStarting = "starting"
	StateRunning  = "running"
	StateStopping = "stopping"
)

// FallbackPortOffset derives the plaintext fallback port from the
// primary port.
const FallbackPortOffset = 1000

// fallbackJoinTimeout bounds how long Stop waits for the listener
// goroutine to exit.
const fallbackJoinTimeout = 5 * time.Second

// FallbackListener supervises the optional plaintext listener. It moves
// through stopped -> starting -> running -> stopping -> stopped and is
// only ever allowed to run while TLS is disabled for the whole
// instance.
type FallbackListener struct {
	name    string
	addr    string
	handler http.Handler
	log     *slog.Logger

	state atomic.String
	srv   *http.Server
	done  chan struct{}
}

// NewFallbackListener creates a supervisor for a plaintext listener on
// addr serving handler. The listener is not started until
// StartIfEnabled.
func NewFallbackListener(addr string, handler http.Handler, log *slog.Logger) *FallbackListener {
	l := &FallbackListener{
		name:    "http-fallback",
		addr:    addr,
		handler: handler,
		log:     log,
	}
	l.state.Store(StateStopped)
	return l
}

// StartIfEnabled starts the plaintext listener when httpEnabled is set
// and TLS is inactive. When TLS is active the listener is never started
// regardless of the flag; TLS takes precedence and the override is
// logged. Returns whether the listener was started.
//
// The listening socket is bound synchronously, so a true return means
// the listener is accepting connections on its own goroutine.
func (l *FallbackListener) StartIfEnabled(httpEnabled, tlsActive bool) bool {
	if !httpEnabled {
		return false
	}
	if tlsActive {
		l.log.Warn("Plaintext fallback listener requested but TLS is active, suppressing it",
			"addr", l.addr)
		return false
	}

	if !l.state.CompareAndSwap(StateStopped, StateStarting) {
		l.log.Debug("Fallback listener not in stopped state, ignoring start", "state", l.state.Load())
		return false
	}

	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		l.log.Error("Failed to bind fallback listener", "addr", l.addr, "err", err)
		l.state.Store(StateStopped)
		return false
	}

	l.srv = &http.Server{
		Addr:         ln.Addr().String(),
		Handler:      l.handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	l.done = make(chan struct{})
	l.state.Store(StateRunning)

	go func() {
		defer close(l.done)
		l.log.Info("Starting plaintext fallback listener", "addr", l.addr)
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.log.Error("Fallback listener failed", "err", err)
		}
	}()

	return true
}

// Stop signals the listener to halt and joins it with a bounded wait.
// If the goroutine is still alive after the timeout a forced-termination
// warning is logged and Stop returns anyway; it never blocks the
// shutdown sequence indefinitely.
func (l *FallbackListener) Stop() {
	if !l.state.CompareAndSwap(StateRunning, StateStopping) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), fallbackJoinTimeout)
	defer cancel()
	if err := l.srv.Shutdown(ctx); err != nil {
		l.log.Warn("Fallback listener shutdown incomplete", "err", err)
	}

	select {
	case <-l.done:
		l.log.Info("Fallback listener stopped")
	case <-time.After(fallbackJoinTimeout):
		l.log.Warn("Fallback listener did not stop within timeout, abandoning it",
			"timeout", fallbackJoinTimeout)
	}

	l.state.Store(StateStopped)
}

// Status is a pure read of the listener state, safe to call
// concurrently from health probes.
func (l *FallbackListener) Status() api.ListenerStatus {
	return api.ListenerStatus{
		Name:  l.name,
		State: l.state.Load(),
	}
}
