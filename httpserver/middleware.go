package httpserver

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/linqra/counterapp/api"
)

// Rate limit for the signature-verified route. Each admitted request
// triggers a remote key-set fetch, so the bucket is kept small.
const (
	verifiedRequestsPerSecond = 5
	verifiedBurst             = 10
)

// serviceNameHeader attaches the service name to every response so
// gateways can attribute traffic.
func serviceNameHeader(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if name != "" {
				w.Header().Set(api.ServiceNameHeader, name)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// verifiedRateLimit bounds the request rate of routes whose
// authorization performs a synchronous network call.
func verifiedRateLimit() func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(verifiedRequestsPerSecond), verifiedBurst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"Too many requests"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
