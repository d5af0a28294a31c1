package lifecycle

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingServer struct {
	phases *[]string
}

func (s *recordingServer) Shutdown() {
	*s.phases = append(*s.phases, "server")
}

type recordingRegistration struct {
	phases       *[]string
	deregisterOK bool
	deregCtx     context.Context
}

func (r *recordingRegistration) StopHeartbeat() {
	*r.phases = append(*r.phases, "heartbeat")
}

func (r *recordingRegistration) Deregister(ctx context.Context) bool {
	*r.phases = append(*r.phases, "deregister")
	r.deregCtx = ctx
	return r.deregisterOK
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestShutdownOrder(t *testing.T) {
	var phases []string
	reg := &recordingRegistration{phases: &phases, deregisterOK: true}
	c := NewCoordinator(&recordingServer{phases: &phases}, reg, testLogger())

	c.Shutdown()

	assert.Equal(t, []string{"server", "heartbeat", "deregister"}, phases)
}

func TestShutdownBoundsDeregistration(t *testing.T) {
	var phases []string
	reg := &recordingRegistration{phases: &phases, deregisterOK: true}
	c := NewCoordinator(&recordingServer{phases: &phases}, reg, testLogger())

	c.Shutdown()

	require.NotNil(t, reg.deregCtx)
	deadline, ok := reg.deregCtx.Deadline()
	require.True(t, ok, "deregistration must run under a deadline")
	assert.False(t, deadline.IsZero())
}

func TestShutdownContinuesPastFailedDeregistration(t *testing.T) {
	var phases []string
	reg := &recordingRegistration{phases: &phases, deregisterOK: false}
	c := NewCoordinator(&recordingServer{phases: &phases}, reg, testLogger())

	c.Shutdown()

	assert.Equal(t, []string{"server", "heartbeat", "deregister"}, phases)
}

func TestShutdownWithoutRegistry(t *testing.T) {
	var phases []string
	c := NewCoordinator(&recordingServer{phases: &phases}, nil, testLogger())

	c.Shutdown()

	assert.Equal(t, []string{"server"}, phases)
}

func TestWaitForSignalHonorsContext(t *testing.T) {
	c := NewCoordinator(&recordingServer{phases: new([]string)}, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.WaitForSignal(ctx) // must return promptly with a cancelled context
}
