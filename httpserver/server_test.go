package httpserver

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linqra/counterapp/api"
	"github.com/linqra/counterapp/cryptoutils"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func serverConfig(t *testing.T, port int, tlsCfg *tls.Config, httpEnabled bool) *api.HTTPServerConfig {
	t.Helper()
	return &api.HTTPServerConfig{
		ListenAddr:               net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
		ServiceName:              "counter-app",
		Log:                      testLogger(),
		TLSConfig:                tlsCfg,
		HTTPEnabled:              httpEnabled,
		DrainDuration:            10 * time.Millisecond,
		GracefulShutdownDuration: time.Second,
		ReadTimeout:              5 * time.Second,
		WriteTimeout:             5 * time.Second,
	}
}

func waitForServer(t *testing.T, client *http.Client, url string) *http.Response {
	t.Helper()
	var resp *http.Response
	require.Eventually(t, func() bool {
		var err error
		resp, err = client.Get(url)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	return resp
}

func TestServerServesPlaintextWithFallback(t *testing.T) {
	port := freePort(t)
	srv, err := New(serverConfig(t, port, nil, true), newTestHandler(t, nil, nil))
	require.NoError(t, err)
	require.NotNil(t, srv.fallback, "plaintext server with HTTP_ENABLED must own a fallback listener")

	srv.RunInBackground()
	defer srv.Shutdown()

	resp := waitForServer(t, http.DefaultClient, fmt.Sprintf("http://127.0.0.1:%d/livez", port))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "counter-app", resp.Header.Get(api.ServiceNameHeader))

	// The fallback listens on the derived port.
	fallbackResp := waitForServer(t, http.DefaultClient, fmt.Sprintf("http://127.0.0.1:%d/livez", port+FallbackPortOffset))
	defer fallbackResp.Body.Close()
	assert.Equal(t, http.StatusOK, fallbackResp.StatusCode)

	statuses := srv.ListenerStatuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "http-primary", statuses[0].Name)
	assert.Equal(t, StateRunning, statuses[0].State)
	assert.Equal(t, "http-fallback", statuses[1].Name)
	assert.Equal(t, StateRunning, statuses[1].State)
}

func TestServerSuppressesFallbackUnderTLS(t *testing.T) {
	cert, err := cryptoutils.RandomCert()
	require.NoError(t, err)
	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}}

	port := freePort(t)
	srv, err := New(serverConfig(t, port, tlsCfg, true), newTestHandler(t, nil, nil))
	require.NoError(t, err)
	assert.Nil(t, srv.fallback, "TLS must suppress the fallback listener regardless of HTTP_ENABLED")

	srv.RunInBackground()
	defer srv.Shutdown()

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	resp := waitForServer(t, client, fmt.Sprintf("https://127.0.0.1:%d/livez", port))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	statuses := srv.ListenerStatuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, "https-primary", statuses[0].Name)
}

func TestServerRoutes(t *testing.T) {
	port := freePort(t)
	srv, err := New(serverConfig(t, port, nil, false), newTestHandler(t, nil, nil))
	require.NoError(t, err)

	srv.RunInBackground()
	defer srv.Shutdown()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	waitForServer(t, http.DefaultClient, base+"/livez").Body.Close()

	tests := []struct {
		path     string
		wantCode int
	}{
		{"/", http.StatusOK},
		{"/health", http.StatusOK},
		{"/status", http.StatusOK},
		{"/api/v1/count/", http.StatusOK},
		{"/api/v1/count/details", http.StatusOK},
		{"/api/v1/count/increment", http.StatusOK}, // pass-through auth in tests
		{"/openapi.json", http.StatusNotFound},     // no document store configured
		{"/readyz", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(base + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantCode, resp.StatusCode)
		})
	}
}

func TestServerDrainUndrain(t *testing.T) {
	port := freePort(t)
	srv, err := New(serverConfig(t, port, nil, false), newTestHandler(t, nil, nil))
	require.NoError(t, err)

	srv.RunInBackground()
	defer srv.Shutdown()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	waitForServer(t, http.DefaultClient, base+"/livez").Body.Close()

	get := func(path string) int {
		resp, err := http.Get(base + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	require.Equal(t, http.StatusOK, get("/readyz"))
	require.Equal(t, http.StatusOK, get("/drain"))
	require.Equal(t, http.StatusServiceUnavailable, get("/readyz"))
	require.Equal(t, http.StatusOK, get("/undrain"))
	require.Equal(t, http.StatusOK, get("/readyz"))
}

func TestDeriveFallbackAddr(t *testing.T) {
	addr, err := deriveFallbackAddr("127.0.0.1:5001")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6001", addr)

	_, err = deriveFallbackAddr("no-port")
	assert.Error(t, err)
}
