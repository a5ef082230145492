package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/rendezvous/internal/api/middleware"
	"github.com/eldtechnologies/rendezvous/internal/handlers"
	"github.com/eldtechnologies/rendezvous/internal/signaling"
)

// Options configures the router beyond its core dependencies.
type Options struct {
	Backend        string // store backend name, shown by /health
	MaxBodyBytes   int64
	CORSOrigins    []string
	RateLimit      middleware.RateLimiterConfig
	RateLimitRedis *redis.Client // rate limiting is off when nil
}

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, svc *signaling.Service, store handlers.Pinger, opts Options) *chi.Mux {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 * 1024
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(opts.MaxBodyBytes))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	if opts.RateLimitRedis != nil {
		limiter := middleware.NewRateLimiter(opts.RateLimitRedis, logger, opts.RateLimit)
		r.Use(limiter.Middleware)
	}

	// Browser peers poll from pages served elsewhere.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(svc, store, opts.Backend, logger)

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	r.Post("/join/{room}", h.Join)
	r.Post("/message/{room}/{peer}", h.SendMessage)
	r.Get("/message/{room}/{peer}", h.ReceiveMessage)
	r.Get("/room/{room}", h.InspectRoom)

	return r
}
