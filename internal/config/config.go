// Package config handles application configuration.
//
// Go Pattern: Configuration via environment variables with sensible defaults,
// loaded once at startup into a plain struct. A .env file is honored in
// development (loaded by main via godotenv); after that everything goes
// through os.LookupEnv.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port    string
	GinMode string // "debug", "release", or "test"

	// Admin token for the stats/system-info/manual-code endpoints.
	// Compared verbatim against the X-Admin-Token header.
	AdminToken string

	// Result file handling
	ResultsDir string        // Where processed artifacts are written
	ResultTTL  time.Duration // How long an artifact survives after creation

	// Reclamation
	ReclaimInterval time.Duration // How often stale sessions/codes/payments are evicted

	// CORS
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		AdminToken: getEnv("ADMIN_TOKEN", ""),

		ResultsDir: getEnv("RESULTS_DIR", "results"),
		ResultTTL:  getEnvDuration("RESULT_TTL", time.Hour),

		ReclaimInterval: getEnvDuration("RECLAIM_INTERVAL", time.Hour),

		// In production, set this to the frontend URL.
		AllowedOrigins: []string{getEnv("CORS_ORIGIN", "http://localhost:5173")},
	}

	// Security: the admin endpoints MUST be protected in production.
	if cfg.GinMode == "release" && cfg.AdminToken == "" {
		return nil, fmt.Errorf("ADMIN_TOKEN must be set in production; this protects the admin endpoints")
	}

	return cfg, nil
}

// getEnv reads an environment variable with a fallback default.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvDuration reads a Go duration string (e.g. "30m") with a fallback.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	str := getEnv(key, "")
	if str == "" {
		return fallback
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return fallback
	}
	return d
}
