package api

import (
	"github.com/ayo6706/moneybank/internal/api/handler"
	"github.com/ayo6706/moneybank/internal/api/middleware"
	"github.com/ayo6706/moneybank/internal/api/spec"
	"github.com/ayo6706/moneybank/internal/config"
	"github.com/ayo6706/moneybank/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	svc       *service.ExchangeService
	idemStore middleware.IdempotencyStore
	health    map[string]handler.Pinger
}

// NewRouter wires handlers around svc. idemStore may be nil, in which case
// Idempotency-Key headers are ignored.
func NewRouter(cfg *config.Config, logger *zap.Logger, svc *service.ExchangeService, idemStore middleware.IdempotencyStore, health map[string]handler.Pinger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{cfg: cfg, logger: logger, svc: svc, idemStore: idemStore, health: health}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	healthHandler := handler.NewHealthHandler(api.health)
	rateHandler := handler.NewRateHandler(api.svc)
	reductionHandler := handler.NewReductionHandler(api.svc)

	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))

		r.Get("/rates", rateHandler.ListRates)
		r.Get("/rates/{from}/{to}", rateHandler.GetRate)
		r.Get("/rates/{from}/{to}/history", rateHandler.RateHistory)
		r.Post("/reductions", reductionHandler.Reduce)

		r.Group(func(r chi.Router) {
			if api.cfg.AuthEnabled() {
				auth := middleware.NewAuthenticator(api.cfg.JWTSecret, api.cfg.JWTIssuer, api.cfg.JWTAudience)
				r.Use(auth.Middleware)
				r.Use(middleware.RequireRole(middleware.RoleAdmin))
				r.Use(middleware.SubjectRateLimiter(api.cfg.PublicRateLimitRPS))
			}
			r.Use(middleware.IdempotencyMiddleware(api.idemStore, api.logger))
			r.Post("/rates", rateHandler.CreateRate)
		})
	})

	return r
}
