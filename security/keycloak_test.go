package security

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func unsignedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return signed
}

func rolesClaims(realmRoles []string, clientID string, clientRoles []string) jwt.MapClaims {
	claims := jwt.MapClaims{"sub": "tester"}
	if realmRoles != nil {
		claims["realm_access"] = map[string]any{"roles": toAnySlice(realmRoles)}
	}
	if clientID != "" {
		claims["resource_access"] = map[string]any{
			clientID: map[string]any{"roles": toAnySlice(clientRoles)},
		}
	}
	return claims
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func TestRoleValidatorDecisions(t *testing.T) {
	validator := NewRoleValidator(NewKeycloakConfig("", "", "", ""), testLogger())

	tests := []struct {
		name    string
		claims  jwt.MapClaims
		allowed bool
		reason  ReasonCode
	}{
		{
			name:    "both roles present",
			claims:  rolesClaims([]string{"offline_access", "gateway_admin_realm"}, "linqra-gateway-client", []string{"gateway_admin"}),
			allowed: true,
		},
		{
			name:   "realm role only",
			claims: rolesClaims([]string{"gateway_admin_realm"}, "linqra-gateway-client", []string{"viewer"}),
			reason: ReasonMissingClientRole,
		},
		{
			name:   "client role only",
			claims: rolesClaims([]string{"user"}, "linqra-gateway-client", []string{"gateway_admin"}),
			reason: ReasonMissingRealmRole,
		},
		{
			name:   "no role claims at all",
			claims: jwt.MapClaims{"sub": "tester"},
			reason: ReasonMissingRealmRole,
		},
		{
			name:   "roles under a different client",
			claims: rolesClaims([]string{"gateway_admin_realm"}, "another-client", []string{"gateway_admin"}),
			reason: ReasonMissingClientRole,
		},
		{
			name: "malformed realm_access shape",
			claims: jwt.MapClaims{
				"realm_access":    "gateway_admin_realm",
				"resource_access": map[string]any{"linqra-gateway-client": map[string]any{"roles": []any{"gateway_admin"}}},
			},
			reason: ReasonMissingRealmRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := validator.ValidateToken(unsignedToken(t, tt.claims))
			assert.Equal(t, tt.allowed, decision.Allowed)
			assert.Equal(t, tt.reason, decision.Reason)
		})
	}
}

func TestRoleValidatorMalformedToken(t *testing.T) {
	validator := NewRoleValidator(NewKeycloakConfig("", "", "", ""), testLogger())

	decision := validator.ValidateToken("not-a-jwt")
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonInvalidToken, decision.Reason)
}

func TestRoleValidatorIgnoresSignature(t *testing.T) {
	// Claims-only validation must admit tokens regardless of who signed
	// them; the gateway upstream is responsible for authentication.
	validator := NewRoleValidator(NewKeycloakConfig("", "", "", ""), testLogger())

	claims := rolesClaims([]string{"gateway_admin_realm"}, "linqra-gateway-client", []string{"gateway_admin"})
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("some-unknown-hmac-key"))
	require.NoError(t, err)

	decision := validator.ValidateToken(signed)
	assert.True(t, decision.Allowed)
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
		found  bool
	}{
		{"bearer token", "Bearer abc.def.ghi", "abc.def.ghi", true},
		{"no header", "", "", false},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", false},
		{"lowercase scheme", "bearer abc.def.ghi", "", false},
		{"bare token", "abc.def.ghi", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, "/", nil)
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			token, found := ExtractBearerToken(req)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestNewKeycloakConfigDefaults(t *testing.T) {
	cfg := NewKeycloakConfig("", "", "", "")

	assert.Equal(t, "http://localhost:8281/realms/Linqra", cfg.IssuerURI)
	assert.Equal(t, "http://localhost:8281/realms/Linqra/protocol/openid-connect/certs", cfg.JWKSetURI)
	assert.Contains(t, cfg.AllowedIssuers, "http://localhost:8281/realms/Linqra")
	assert.Equal(t, "gateway_admin_realm", cfg.RequiredRealmRole)
	assert.Equal(t, "linqra-gateway-client", cfg.RequiredClientID)
	assert.Equal(t, "gateway_admin", cfg.RequiredClientRole)
	assert.Equal(t, "counter-app.read", cfg.RequiredScope)
}

func TestNewKeycloakConfigOverrides(t *testing.T) {
	cfg := NewKeycloakConfig("keycloak.internal", "8443", "https://sso.example.com/realms/Linqra", "https://sso.example.com/certs")

	assert.Equal(t, "https://sso.example.com/realms/Linqra", cfg.IssuerURI)
	assert.Equal(t, "https://sso.example.com/certs", cfg.JWKSetURI)
	assert.Contains(t, cfg.AllowedIssuers, "http://keycloak.internal:8443/realms/Linqra")
	assert.Contains(t, cfg.AllowedIssuers, "http://localhost:8281/realms/Linqra")
}
