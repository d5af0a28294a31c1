package security

import (
	"encoding/json"
	"net/http"

	"github.com/linqra/counterapp/api"
	"github.com/linqra/counterapp/metrics"
)

// RequireRoles guards an endpoint with claims-only role authorization.
// A request without a Bearer token responds 401; a token failing role
// validation responds 403.
func RequireRoles(validator *RoleValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := ExtractBearerToken(r)
			if !ok {
				metrics.AuthDenials.WithLabelValues(string(ReasonMissingToken)).Inc()
				writeAuthError(w, http.StatusUnauthorized, "No JWT token provided")
				return
			}

			decision := validator.ValidateToken(token)
			if !decision.Allowed {
				metrics.AuthDenials.WithLabelValues(string(decision.Reason)).Inc()
				writeAuthError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireVerifiedToken guards an endpoint with full signature
// verification through the Keycloak JWK set. A request without a Bearer
// token responds 401; any verification failure responds 403.
func RequireVerifiedToken(validator *KeySetValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := ExtractBearerToken(r)
			if !ok {
				metrics.AuthDenials.WithLabelValues(string(ReasonMissingToken)).Inc()
				writeAuthError(w, http.StatusUnauthorized, "No JWT token provided")
				return
			}

			decision := validator.Validate(r.Context(), token)
			if !decision.Allowed {
				metrics.AuthDenials.WithLabelValues(string(decision.Reason)).Inc()
				writeAuthError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: message})
}
