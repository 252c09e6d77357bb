package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DatabaseURL string
	RedisURL    string

	JWTSecret string

	MeiliSearchHost string
	MeiliMasterKey  string

	// CronSecret authenticates the external scheduler that triggers the
	// referral expiration sweep over HTTP.
	CronSecret string

	SweepInterval   time.Duration
	RateLimitSignup time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		// Must match the fallback in middleware.NewAuthMiddleware.
		JWTSecret: getEnv("JWT_SECRET", "change-me"),

		MeiliSearchHost: getEnv("MEILISEARCH_HOST", "http://localhost:7700"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		CronSecret: os.Getenv("CRON_SECRET"),
	}

	var err error
	cfg.SweepInterval, err = time.ParseDuration(getEnv("REFERRAL_SWEEP_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFERRAL_SWEEP_INTERVAL: %w", err)
	}
	cfg.RateLimitSignup, err = time.ParseDuration(getEnv("RATE_LIMIT_SIGNUP", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SIGNUP: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
