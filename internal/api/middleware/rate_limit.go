package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// PublicRateLimiter limits requests per IP for gateway-facing routes.
func PublicRateLimiter(rps int) func(http.Handler) http.Handler {
	return httprate.Limit(rps, time.Second,
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
}
