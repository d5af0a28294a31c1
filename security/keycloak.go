package security

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// Default Keycloak claim requirements for admitting a request.
const (
	DefaultRealm              = "Linqra"
	DefaultRequiredRealmRole  = "gateway_admin_realm"
	DefaultRequiredClientID   = "linqra-gateway-client"
	DefaultRequiredClientRole = "gateway_admin"
	DefaultRequiredScope      = "counter-app.read"
)

// bearerPrefix is the only accepted Authorization header scheme.
const bearerPrefix = "Bearer "

// ReasonCode classifies an authorization decision.
type ReasonCode string

const (
	ReasonMissingToken      ReasonCode = "missing_token"
	ReasonInvalidToken      ReasonCode = "invalid_token"
	ReasonMissingRealmRole  ReasonCode = "missing_realm_role"
	ReasonMissingClientRole ReasonCode = "missing_client_role"
)

// Decision is the outcome of validating a request's JWT. A denied
// decision carries the reason; an allowed decision has an empty reason.
type Decision struct {
	Allowed bool
	Reason  ReasonCode
}

// KeycloakConfig holds the Keycloak endpoints and the claim
// requirements enforced by the validators.
type KeycloakConfig struct {
	// GatewayHost is the Keycloak host reachable from this service.
	GatewayHost string

	// GatewayPort is the Keycloak port.
	GatewayPort string

	// IssuerURI is the expected token issuer.
	IssuerURI string

	// JWKSetURI is the JWK set endpoint used for signature verification.
	JWKSetURI string

	// AllowedIssuers is the issuer allow-list for verified tokens.
	AllowedIssuers []string

	// RequiredRealmRole must appear in the token's realm_access roles.
	RequiredRealmRole string

	// RequiredClientID is the resource_access entry holding client roles.
	RequiredClientID string

	// RequiredClientRole must appear in the client's roles.
	RequiredClientRole string

	// RequiredScope must appear in the verified token's scope claim.
	RequiredScope string
}

// NewKeycloakConfig builds a KeycloakConfig with defaults filled in.
// Empty host, port, issuer, or JWK set values fall back to the local
// gateway convention (http://localhost:8281, realm Linqra).
func NewKeycloakConfig(gatewayHost, gatewayPort, issuerURI, jwkSetURI string) KeycloakConfig {
	if gatewayHost == "" {
		gatewayHost = "localhost"
	}
	if gatewayPort == "" {
		gatewayPort = "8281"
	}

	realmBase := fmt.Sprintf("http://%s:%s/realms/%s", gatewayHost, gatewayPort, DefaultRealm)
	if issuerURI == "" {
		issuerURI = realmBase
	}
	if jwkSetURI == "" {
		jwkSetURI = realmBase + "/protocol/openid-connect/certs"
	}

	return KeycloakConfig{
		GatewayHost:        gatewayHost,
		GatewayPort:        gatewayPort,
		IssuerURI:          issuerURI,
		JWKSetURI:          jwkSetURI,
		AllowedIssuers:     []string{realmBase, "http://localhost:8281/realms/" + DefaultRealm},
		RequiredRealmRole:  DefaultRequiredRealmRole,
		RequiredClientID:   DefaultRequiredClientID,
		RequiredClientRole: DefaultRequiredClientRole,
		RequiredScope:      DefaultRequiredScope,
	}
}

// ExtractBearerToken returns the JWT from the request's Authorization
// header. The second return is false when the header is absent or does
// not use the Bearer scheme.
func ExtractBearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, bearerPrefix) {
		return "", false
	}
	return auth[len(bearerPrefix):], true
}

// RoleValidator authorizes requests by Keycloak role claims.
//
// The token signature is NOT verified: tokens reach this service through
// the gateway, which authenticates them before forwarding. This
// validator only answers whether the already-authenticated caller holds
// the required roles. Endpoints guarded solely by RoleValidator must not
// be reachable except through the gateway.
type RoleValidator struct {
	cfg KeycloakConfig
	log *slog.Logger
}

// NewRoleValidator creates a RoleValidator with the given requirements.
func NewRoleValidator(cfg KeycloakConfig, log *slog.Logger) *RoleValidator {
	return &RoleValidator{cfg: cfg, log: log}
}

// ValidateToken decodes the token claims and checks that both the
// required realm role and the required client role are present. Any
// decode failure or missing claim denies the request.
func (v *RoleValidator) ValidateToken(tokenString string) Decision {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		v.log.Error("Failed to decode JWT claims", "err", err)
		return Decision{Reason: ReasonInvalidToken}
	}

	hasRealmRole := v.hasRealmRole(claims)
	hasClientRole := v.hasClientRole(claims)

	if hasRealmRole && hasClientRole {
		v.log.Debug("Required roles found in JWT token")
		return Decision{Allowed: true}
	}

	if !hasRealmRole {
		v.log.Warn("Missing required realm role", "role", v.cfg.RequiredRealmRole)
		return Decision{Reason: ReasonMissingRealmRole}
	}

	v.log.Warn("Missing required client role",
		"role", v.cfg.RequiredClientRole,
		"client", v.cfg.RequiredClientID)
	return Decision{Reason: ReasonMissingClientRole}
}

func (v *RoleValidator) hasRealmRole(claims jwt.MapClaims) bool {
	roles := nestedRoles(claims, "realm_access", "roles")
	for _, role := range roles {
		if role == v.cfg.RequiredRealmRole {
			return true
		}
	}
	return false
}

func (v *RoleValidator) hasClientRole(claims jwt.MapClaims) bool {
	roles := nestedRoles(claims, "resource_access", v.cfg.RequiredClientID, "roles")
	for _, role := range roles {
		if role == v.cfg.RequiredClientRole {
			return true
		}
	}
	return false
}

// nestedRoles walks a nested claim object along keys and returns the
// string list at the end of the path. Missing or malformed claims yield
// an empty result rather than an error.
func nestedRoles(claims jwt.MapClaims, keys ...string) []string {
	var node any = map[string]any(claims)
	for _, key := range keys {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = m[key]
	}

	list, ok := node.([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(list))
	for _, entry := range list {
		if role, ok := entry.(string); ok {
			roles = append(roles, role)
		}
	}
	return roles
}
