package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/rendezvous/internal/api"
	"github.com/eldtechnologies/rendezvous/internal/api/middleware"
	"github.com/eldtechnologies/rendezvous/internal/config"
	"github.com/eldtechnologies/rendezvous/internal/signaling"
	"github.com/eldtechnologies/rendezvous/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Run migrations
	if cfg.StoreBackend == store.BackendPostgres {
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed")
	}

	entities, err := store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		Dir:         cfg.StoreDir,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("store initialization failed")
	}
	defer entities.Close()
	logger.Info().Str("backend", cfg.StoreBackend).Msg("store ready")

	// Rate limiting shares the Redis store connection, or gets its own when
	// REDIS_URL is set next to another backend.
	var limiterClient *redis.Client
	if rs, ok := entities.Unwrap().(*store.RedisStore); ok {
		limiterClient = rs.Client()
	} else if cfg.RedisURL != "" {
		rs, err := store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer rs.Close()
		limiterClient = rs.Client()
		logger.Info().Msg("connected to Redis for rate limiting")
	}

	election, err := signaling.ElectionPolicyByName(cfg.ElectionPolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid ELECTION_POLICY")
	}
	replay, err := signaling.ReplayPolicyByName(cfg.ReplayPolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid REPLAY_POLICY")
	}

	svc := signaling.NewService(signaling.Config{
		Store:    entities,
		Election: election,
		Replay:   replay,
		Logger:   logger,
	})

	// Create router
	router := api.NewRouter(logger, svc, entities, api.Options{
		Backend:      cfg.StoreBackend,
		MaxBodyBytes: cfg.MaxPayloadBytes,
		CORSOrigins:  cfg.CORSOrigins,
		RateLimit: middleware.RateLimiterConfig{
			Whitelist:        cfg.RateLimitWhitelist,
			AutoBlockEnabled: cfg.AutoBlockEnabled,
		},
		RateLimitRedis: limiterClient,
	})

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("election", election.Name()).
			Str("replay", replay.Name()).
			Msg("starting rendezvous server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
