// Package lifecycle coordinates orderly shutdown of the service. The
// sequence matters: the listeners stop accepting work first, then the
// registry lease stops renewing, and only then does the instance
// deregister so the registry never advertises an instance that already
// refuses connections.
package lifecycle

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// deregisterTimeout bounds the final registry call so a hung registry
// cannot stall process exit.
const deregisterTimeout = 10 * time.Second

// Server is the listener side of shutdown. Shutdown must stop every
// listener the server owns, fallback included, before returning.
type Server interface {
	Shutdown()
}

// Registration is the registry side of shutdown.
type Registration interface {
	StopHeartbeat()
	Deregister(ctx context.Context) bool
}

// Coordinator runs the shutdown sequence exactly once per call and logs
// each phase. A nil Registration skips the registry phases, which is
// how the service runs when no registry is configured.
type Coordinator struct {
	srv Server
	reg Registration
	log *slog.Logger
}

func NewCoordinator(srv Server, reg Registration, log *slog.Logger) *Coordinator {
	return &Coordinator{srv: srv, reg: reg, log: log}
}

// WaitForSignal blocks until SIGINT or SIGTERM is delivered, or until
// ctx is done.
func (c *Coordinator) WaitForSignal(ctx context.Context) {
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(exit)

	select {
	case sig := <-exit:
		c.log.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		c.log.Info("Shutdown requested", "reason", ctx.Err())
	}
}

// Shutdown runs the ordered shutdown sequence: listeners first, then
// heartbeat, then deregistration. Registry failures are logged and do
// not abort the remaining phases.
func (c *Coordinator) Shutdown() {
	c.log.Info("Stopping listeners")
	c.srv.Shutdown()

	if c.reg == nil {
		c.log.Info("No registry client configured, shutdown complete")
		return
	}

	c.log.Info("Stopping registry heartbeat")
	c.reg.StopHeartbeat()

	ctx, cancel := context.WithTimeout(context.Background(), deregisterTimeout)
	defer cancel()
	if !c.reg.Deregister(ctx) {
		c.log.Warn("Registry deregistration did not succeed, lease will expire on its own")
	}
	c.log.Info("Shutdown complete")
}
