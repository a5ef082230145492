package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port string
	Env  string

	// Storage
	StoreBackend string // fs, memory, sqlite, postgres or redis
	StoreDir     string
	SQLitePath   string
	DatabaseURL  string
	RedisURL     string

	// Signaling
	ElectionPolicy  string
	ReplayPolicy    string
	MaxPayloadBytes int64

	// HTTP
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled   bool     // Enable auto-blocking after repeated violations
	CORSOrigins        []string
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics when the selected backend has no location.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		StoreBackend:     getEnv("STORE_BACKEND", "fs"),
		StoreDir:         getEnv("STORE_DIR", "./data/rooms"),
		SQLitePath:       getEnv("SQLITE_PATH", "./data/rendezvous.db"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		ElectionPolicy:   os.Getenv("ELECTION_POLICY"),
		ReplayPolicy:     os.Getenv("REPLAY_POLICY"),
		MaxPayloadBytes:  64 * 1024,
		AutoBlockEnabled: getEnv("AUTO_BLOCK_ENABLED", "false") == "true",
	}

	if v := os.Getenv("MAX_PAYLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			panic("MAX_PAYLOAD_BYTES must be a positive integer")
		}
		cfg.MaxPayloadBytes = n
	}

	cfg.RateLimitWhitelist = splitList(os.Getenv("RATE_LIMIT_WHITELIST"))
	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "*"))

	if cfg.Env == "production" {
		switch cfg.StoreBackend {
		case "postgres":
			if cfg.DatabaseURL == "" {
				panic("DATABASE_URL is required in production")
			}
		case "redis":
			if cfg.RedisURL == "" {
				panic("REDIS_URL is required in production")
			}
		case "memory":
			panic("memory store is not allowed in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// splitList parses a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
