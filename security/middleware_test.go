package security

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestRequireRoles(t *testing.T) {
	validator := NewRoleValidator(NewKeycloakConfig("", "", "", ""), testLogger())

	mux := chi.NewRouter()
	mux.With(RequireRoles(validator)).Get("/protected", okHandler)

	t.Run("missing token responds 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "No JWT token provided", decodeError(t, rec))
	})

	t.Run("insufficient roles respond 403", func(t *testing.T) {
		token := unsignedToken(t, rolesClaims([]string{"user"}, "linqra-gateway-client", []string{"viewer"}))
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Insufficient permissions", decodeError(t, rec))
	})

	t.Run("required roles admit the request", func(t *testing.T) {
		token := unsignedToken(t, rolesClaims(
			[]string{"gateway_admin_realm"}, "linqra-gateway-client", []string{"gateway_admin"}))
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireVerifiedToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	ts := newJWKSServer(t, key)

	cfg := NewKeycloakConfig("", "", "", "")
	cfg.JWKSetURI = ts.URL
	validator := NewKeySetValidator(cfg, testLogger())

	mux := chi.NewRouter()
	mux.With(RequireVerifiedToken(validator)).Get("/verified", okHandler)

	t.Run("missing token responds 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/verified", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unverifiable token responds 403", func(t *testing.T) {
		token := unsignedToken(t, verifiedClaims(
			"http://localhost:8281/realms/Linqra", "counter-app.read", time.Now().Add(time.Hour)))
		req := httptest.NewRequest(http.MethodGet, "/verified", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("verified token admits the request", func(t *testing.T) {
		token := signedToken(t, key, testKid, verifiedClaims(
			"http://localhost:8281/realms/Linqra", "counter-app.read", time.Now().Add(time.Hour)))
		req := httptest.NewRequest(http.MethodGet, "/verified", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
