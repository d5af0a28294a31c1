package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/linqra/counterapp/metrics"
	"github.com/linqra/counterapp/security"
)

// ErrAppNameMissing is reported when the client is constructed without a
// service identity. The client stays inert: every operation returns
// false instead of touching the registry.
var ErrAppNameMissing = errors.New("registry: app name not configured")

const (
	// requestTimeout bounds every registry HTTP call.
	requestTimeout = 10 * time.Second

	// heartbeatJoinTimeout bounds how long StopHeartbeat waits for the
	// renewal loop to observe the stop signal.
	heartbeatJoinTimeout = 5 * time.Second
)

// Heartbeat results recorded in HeartbeatState.
const (
	HeartbeatOK     = "ok"
	HeartbeatFailed = "failed"
)

// Config locates the registry and describes this instance to it.
type Config struct {
	// AppName is the service identity registered with the registry.
	// When empty the client performs no registry operations.
	AppName string

	// RegistryHost, RegistryPort, and RegistryPath locate the registry
	// REST endpoint. The full base URL becomes
	// https://{host}:{port}{path}.
	RegistryHost string
	RegistryPort string
	RegistryPath string

	// InstanceHost is the hostname advertised to the registry.
	InstanceHost string

	// InstancePort is the port this instance serves on.
	InstancePort int

	// SecurePortEnabled advertises the HTTPS port as active.
	SecurePortEnabled bool

	// NonSecurePortEnabled advertises the plaintext port as active.
	NonSecurePortEnabled bool

	// HeartbeatInterval overrides the lease renewal cadence. Zero means
	// the standard 30 second interval.
	HeartbeatInterval time.Duration

	// HTTPClient overrides the registry transport. Nil selects the
	// default client, which skips certificate verification for
	// self-signed registry deployments.
	HTTPClient *http.Client

	// Log is the structured logger for registry operations.
	Log *slog.Logger
}

// HeartbeatState is a point-in-time snapshot of the lease renewal loop.
type HeartbeatState struct {
	// Running reports whether the renewal loop is active.
	Running bool

	// LastSentAt is the time of the most recent renewal attempt, zero
	// before the first attempt.
	LastSentAt time.Time

	// LastResult is HeartbeatOK or HeartbeatFailed for the most recent
	// attempt, empty before the first attempt.
	LastResult string
}

// Client registers this instance with the service registry and keeps
// its lease alive. The instance id is minted once per process start;
// a restarted process registers as a fresh instance and the stale lease
// expires on the registry side.
//
// All methods are safe for concurrent use. The heartbeat loop runs on
// its own goroutine and is the only writer of the heartbeat state.
type Client struct {
	cfg        Config
	baseURL    string
	instanceID string
	ipAddr     string
	interval   time.Duration
	httpClient *http.Client
	log        *slog.Logger

	registered atomic.Bool

	mu         sync.Mutex
	hbRunning  atomic.Bool
	hbStop     chan struct{}
	hbDone     chan struct{}
	lastSentAt atomic.Time
	lastResult atomic.String
}

// NewClient creates a registry client for the described instance. The
// instance id is {appName}:{uuid}, unique to this process lifetime, and
// the advertised IP address is resolved immediately.
//
// A missing AppName is not an error: the client is returned inert and
// logs the condition once, so a misconfigured deployment serves traffic
// without registering rather than crash-looping.
func NewClient(cfg Config) *Client {
	log := cfg.Log
	if cfg.AppName == "" {
		log.Warn("APP_NAME is not set, registry operations disabled")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = security.NewRegistryHTTPClient(requestTimeout)
	}

	interval := cfg.HeartbeatInterval
	if interval <= 0 {
		interval = LeaseRenewalIntervalSeconds * time.Second
	}

	ipAddr := ResolveInstanceIP(log)
	if cfg.InstanceHost == "" {
		cfg.InstanceHost = ipAddr
	}

	return &Client{
		cfg:        cfg,
		baseURL:    fmt.Sprintf("https://%s:%s%s", cfg.RegistryHost, cfg.RegistryPort, cfg.RegistryPath),
		instanceID: fmt.Sprintf("%s:%s", cfg.AppName, uuid.New().String()),
		ipAddr:     ipAddr,
		interval:   interval,
		httpClient: httpClient,
		log:        log,
	}
}

// InstanceID returns the identity minted for this process lifetime.
func (c *Client) InstanceID() string {
	return c.instanceID
}

// Registered reports whether the last registration attempt succeeded.
func (c *Client) Registered() bool {
	return c.registered.Load()
}

// State returns a snapshot of the lease renewal loop, safe to call
// concurrently from health and status probes.
func (c *Client) State() HeartbeatState {
	return HeartbeatState{
		Running:    c.hbRunning.Load(),
		LastSentAt: c.lastSentAt.Load(),
		LastResult: c.lastResult.Load(),
	}
}

// Register announces this instance to the registry. Only the registry's
// "accepted, no content" response counts as success; any other status or
// transport failure is logged with the response body and reported as
// false. Registration is attempted once, without retries: an instance
// that cannot register serves traffic unregistered and never starts the
// heartbeat loop.
func (c *Client) Register(ctx context.Context) bool {
	if c.cfg.AppName == "" {
		c.log.Warn("Skipping registry registration", "err", ErrAppNameMissing)
		return false
	}

	doc, err := json.Marshal(c.instanceDocument())
	if err != nil {
		c.log.Error("Failed to encode instance document", "err", err)
		metrics.RegistrationAttempts.WithLabelValues("failed").Inc()
		return false
	}

	url := c.baseURL + "apps/" + c.cfg.AppName
	c.log.Info("Registering with service registry",
		"url", url,
		"instanceId", c.instanceID,
		"ipAddr", c.ipAddr)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(doc))
	if err != nil {
		c.log.Error("Failed to build registration request", "err", err)
		metrics.RegistrationAttempts.WithLabelValues("failed").Inc()
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("Registration request failed", "err", err, "url", url)
		metrics.RegistrationAttempts.WithLabelValues("failed").Inc()
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Error("Registration rejected by registry",
			"status", resp.StatusCode,
			"body", string(body))
		metrics.RegistrationAttempts.WithLabelValues("failed").Inc()
		return false
	}

	c.registered.Store(true)
	metrics.RegistrationAttempts.WithLabelValues("ok").Inc()
	c.log.Info("Registered with service registry", "instanceId", c.instanceID)
	return true
}

// StartHeartbeat starts the lease renewal loop. Calling it while the
// loop is running is a no-op, so exactly one loop exists at a time.
// Stopping and starting again yields a fresh loop.
//
// The first renewal fires one interval after start; the registration
// itself is the liveness proof at time zero.
func (c *Client) StartHeartbeat() {
	if c.cfg.AppName == "" {
		c.log.Warn("Skipping heartbeat start", "err", ErrAppNameMissing)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hbRunning.Load() {
		c.log.Debug("Heartbeat loop already running")
		return
	}

	c.hbStop = make(chan struct{})
	c.hbDone = make(chan struct{})
	c.hbRunning.Store(true)

	go c.heartbeatLoop(c.hbStop, c.hbDone)
	c.log.Info("Started registry heartbeat loop", "interval", c.interval)
}

// StopHeartbeat signals the renewal loop to exit and waits up to a
// bounded timeout for it to observe the signal. The loop is never
// force-killed: if it is mid-request the wait may time out, which is
// logged and tolerated since the process is usually shutting down.
func (c *Client) StopHeartbeat() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hbRunning.Load() || c.hbStop == nil {
		return
	}

	close(c.hbStop)
	c.hbStop = nil
	select {
	case <-c.hbDone:
		c.log.Info("Stopped registry heartbeat loop")
	case <-time.After(heartbeatJoinTimeout):
		c.log.Warn("Heartbeat loop did not stop within timeout", "timeout", heartbeatJoinTimeout)
	}
}

// Deregister removes this instance from the registry. It is best-effort:
// the process is already exiting when this runs, so failures are logged
// and reported as false but never escalated. The registry's lease expiry
// cleans up after a failed deregistration.
func (c *Client) Deregister(ctx context.Context) bool {
	if c.cfg.AppName == "" {
		c.log.Warn("Skipping registry deregistration", "err", ErrAppNameMissing)
		return false
	}

	url := c.baseURL + "apps/" + c.cfg.AppName + "/" + c.instanceID
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		c.log.Error("Failed to build deregistration request", "err", err)
		metrics.Deregistrations.WithLabelValues("failed").Inc()
		return false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("Deregistration request failed", "err", err, "url", url)
		metrics.Deregistrations.WithLabelValues("failed").Inc()
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("Deregistration rejected by registry", "status", resp.StatusCode)
		metrics.Deregistrations.WithLabelValues("failed").Inc()
		return false
	}

	c.registered.Store(false)
	metrics.Deregistrations.WithLabelValues("ok").Inc()
	c.log.Info("Deregistered from service registry", "instanceId", c.instanceID)
	return true
}

// heartbeatLoop renews the lease on a fixed cadence until stopped. A
// failed renewal is recorded and retried on the next tick, never treated
// as fatal: the registry's own lease expiry is the authoritative
// liveness timeout, so transient failures self-heal once connectivity
// returns.
func (c *Client) heartbeatLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer c.hbRunning.Store(false)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.sendHeartbeat()
		}
	}
}

// sendHeartbeat performs one lease renewal and records the outcome.
func (c *Client) sendHeartbeat() {
	c.lastSentAt.Store(time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	url := c.baseURL + "apps/" + c.cfg.AppName + "/" + c.instanceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, nil)
	if err != nil {
		c.recordHeartbeatFailure("building heartbeat request", err)
		return
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordHeartbeatFailure("sending heartbeat", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordHeartbeatFailure("heartbeat rejected", fmt.Errorf("registry returned status %d", resp.StatusCode))
		return
	}

	c.lastResult.Store(HeartbeatOK)
	metrics.Heartbeats.WithLabelValues("ok").Inc()
	c.log.Debug("Heartbeat renewed", "instanceId", c.instanceID)
}

func (c *Client) recordHeartbeatFailure(msg string, err error) {
	c.lastResult.Store(HeartbeatFailed)
	metrics.Heartbeats.WithLabelValues("failed").Inc()
	c.log.Warn("Heartbeat failed, retrying next tick", "op", msg, "err", err)
}
