package security

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKid = "test-key-1"

func newJWKSServer(t *testing.T, key *rsa.PrivateKey) *httptest.Server {
	t.Helper()
	pub := key.Public().(*rsa.PublicKey)
	keySet := map[string]any{
		"keys": []map[string]any{{
			"kid": testKid,
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(keySet)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func signedToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func verifiedClaims(issuer, scope string, exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":   issuer,
		"sub":   "tester",
		"scope": scope,
		"exp":   exp.Unix(),
	}
}

func newKeySetValidator(t *testing.T, jwkSetURI string) *KeySetValidator {
	t.Helper()
	cfg := NewKeycloakConfig("", "", "", "")
	cfg.JWKSetURI = jwkSetURI
	return NewKeySetValidator(cfg, testLogger())
}

func TestKeySetValidatorAcceptsValidToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	ts := newJWKSServer(t, key)
	validator := newKeySetValidator(t, ts.URL)

	token := signedToken(t, key, testKid, verifiedClaims(
		"http://localhost:8281/realms/Linqra",
		"openid profile counter-app.read",
		time.Now().Add(time.Hour),
	))

	decision := validator.Validate(context.Background(), token)
	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.Reason)
}

func TestKeySetValidatorDenials(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	ts := newJWKSServer(t, key)

	goodIssuer := "http://localhost:8281/realms/Linqra"
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{
			name: "disallowed issuer",
			token: func(t *testing.T) string {
				return signedToken(t, key, testKid, verifiedClaims("http://evil.example.com/realms/Linqra", "counter-app.read", future))
			},
		},
		{
			name: "missing scope",
			token: func(t *testing.T) string {
				return signedToken(t, key, testKid, verifiedClaims(goodIssuer, "openid profile", future))
			},
		},
		{
			name: "scope is a superstring, not a field",
			token: func(t *testing.T) string {
				return signedToken(t, key, testKid, verifiedClaims(goodIssuer, "counter-app.readonly", future))
			},
		},
		{
			name: "expired token",
			token: func(t *testing.T) string {
				return signedToken(t, key, testKid, verifiedClaims(goodIssuer, "counter-app.read", time.Now().Add(-time.Hour)))
			},
		},
		{
			name: "unknown kid",
			token: func(t *testing.T) string {
				return signedToken(t, key, "rotated-away", verifiedClaims(goodIssuer, "counter-app.read", future))
			},
		},
		{
			name: "missing kid header",
			token: func(t *testing.T) string {
				return signedToken(t, key, "", verifiedClaims(goodIssuer, "counter-app.read", future))
			},
		},
		{
			name: "signed by the wrong key",
			token: func(t *testing.T) string {
				return signedToken(t, otherKey, testKid, verifiedClaims(goodIssuer, "counter-app.read", future))
			},
		},
		{
			name: "unsigned token rejected on the verified path",
			token: func(t *testing.T) string {
				return unsignedToken(t, verifiedClaims(goodIssuer, "counter-app.read", future))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := newKeySetValidator(t, ts.URL)
			decision := validator.Validate(context.Background(), tt.token(t))
			assert.False(t, decision.Allowed)
			assert.Equal(t, ReasonInvalidToken, decision.Reason)
		})
	}
}

func TestKeySetValidatorKeySetUnavailable(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)

	validator := newKeySetValidator(t, ts.URL)
	token := signedToken(t, key, testKid, verifiedClaims(
		"http://localhost:8281/realms/Linqra", "counter-app.read", time.Now().Add(time.Hour)))

	decision := validator.Validate(context.Background(), token)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonInvalidToken, decision.Reason)
}

func TestJSONWebKeyPublicKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pub := key.Public().(*rsa.PublicKey)

	jwk := jsonWebKey{
		Kid: testKid,
		Kty: "RSA",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}

	parsed, err := jwk.publicKey()
	require.NoError(t, err)
	assert.Equal(t, 0, pub.N.Cmp(parsed.N))
	assert.Equal(t, pub.E, parsed.E)

	_, err = jsonWebKey{Kid: "ec", Kty: "EC"}.publicKey()
	assert.Error(t, err)
}
