package security

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// jwkSetFetchTimeout bounds a single JWK set fetch.
const jwkSetFetchTimeout = 10 * time.Second

// KeySetValidator fully verifies JWTs against the Keycloak JWK set.
// It enforces the RS256 signature, token expiry, the issuer allow-list,
// and the required scope. Endpoints with elevated trust requirements use
// this validator instead of the claims-only RoleValidator.
//
// The JWK set is fetched on every validation. The verified path is
// low-traffic, and refetching tracks Keycloak key rotation without a
// cache invalidation protocol.
type KeySetValidator struct {
	cfg        KeycloakConfig
	httpClient *http.Client
	log        *slog.Logger
}

// NewKeySetValidator creates a KeySetValidator fetching keys from
// cfg.JWKSetURI.
func NewKeySetValidator(cfg KeycloakConfig, log *slog.Logger) *KeySetValidator {
	return &KeySetValidator{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: jwkSetFetchTimeout},
		log:        log,
	}
}

// Validate verifies the token signature and claims. Every failure mode
// (unverifiable signature, expiry, unknown kid, disallowed issuer,
// missing scope) denies with ReasonInvalidToken; details go to the log.
func (v *KeySetValidator) Validate(ctx context.Context, tokenString string) Decision {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))

	token, err := parser.ParseWithClaims(tokenString, claims, v.keyfunc(ctx))
	if err != nil {
		v.log.Error("JWT verification failed", "err", err)
		return Decision{Reason: ReasonInvalidToken}
	}
	if !token.Valid {
		v.log.Error("JWT rejected as invalid")
		return Decision{Reason: ReasonInvalidToken}
	}

	issuer, _ := claims["iss"].(string)
	if !slices.Contains(v.cfg.AllowedIssuers, issuer) {
		v.log.Error("JWT issuer not allowed", "issuer", issuer, "allowed", v.cfg.AllowedIssuers)
		return Decision{Reason: ReasonInvalidToken}
	}

	scope, _ := claims["scope"].(string)
	if !slices.Contains(strings.Fields(scope), v.cfg.RequiredScope) {
		v.log.Error("JWT missing required scope", "required", v.cfg.RequiredScope, "scope", scope)
		return Decision{Reason: ReasonInvalidToken}
	}

	v.log.Info("JWT verified", "issuer", issuer, "scope", scope)
	return Decision{Allowed: true}
}

// keyfunc resolves the verification key named by the token's kid header
// from a freshly fetched JWK set.
func (v *KeySetValidator) keyfunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token header missing kid")
		}

		keySet, err := v.fetchKeySet(ctx)
		if err != nil {
			return nil, err
		}

		for _, key := range keySet.Keys {
			if key.Kid == kid {
				return key.publicKey()
			}
		}
		return nil, fmt.Errorf("no key found for kid %q", kid)
	}
}

func (v *KeySetValidator) fetchKeySet(ctx context.Context) (*jsonWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.JWKSetURI, nil)
	if err != nil {
		return nil, fmt.Errorf("building JWK set request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching JWK set: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWK set endpoint returned status %d", resp.StatusCode)
	}

	var keySet jsonWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&keySet); err != nil {
		return nil, fmt.Errorf("decoding JWK set: %w", err)
	}
	return &keySet, nil
}

type jsonWebKeySet struct {
	Keys []jsonWebKey `json:"keys"`
}

type jsonWebKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// publicKey assembles an RSA public key from the JWK's modulus and
// exponent.
func (k jsonWebKey) publicKey() (*rsa.PublicKey, error) {
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("unsupported key type %q for kid %q", k.Kty, k.Kid)
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus for kid %q: %w", k.Kid, err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent for kid %q: %w", k.Kid, err)
	}

	exponent := 0
	for _, b := range eBytes {
		exponent = exponent<<8 | int(b)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: exponent,
	}, nil
}
