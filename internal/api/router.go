package api

import (
	"github.com/altynbek07/invbot/internal/api/handler"
	"github.com/altynbek07/invbot/internal/api/middleware"
	"github.com/altynbek07/invbot/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Router assembles the gateway-facing HTTP surface: the callback
// endpoint plus health and metrics.
type Router struct {
	db        *pgxpool.Pool
	redis     redis.Cmdable
	callbacks *service.CallbackService

	allowedIPs  []string
	callbackRPS int
}

func NewRouter(db *pgxpool.Pool, rdb redis.Cmdable, callbacks *service.CallbackService, allowedIPs []string, callbackRPS int) *Router {
	if callbackRPS <= 0 {
		callbackRPS = 10
	}
	return &Router{
		db:          db,
		redis:       rdb,
		callbacks:   callbacks,
		allowedIPs:  allowedIPs,
		callbackRPS: callbackRPS,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RecoverMiddleware(zap.L()))
	r.Use(middleware.LoggingMiddleware(zap.L()))
	r.Use(middleware.MetricsMiddleware)

	healthHandler := handler.NewHealthHandler(api.db, api.redis)
	callbackHandler := handler.NewCallbackHandler(api.callbacks)

	r.Get("/healthz/live", healthHandler.Live)
	r.Get("/healthz/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.IPAllowlist(api.allowedIPs))
		r.Use(middleware.PublicRateLimiter(api.callbackRPS))
		r.Post("/callback", callbackHandler.Handle)
	})

	return r
}
