package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string
	Env  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Optional durable ledger. Empty means wagers live in Redis (or memory)
	// only.
	DatabaseURL string

	JWTSecret string
	TokenTTL  time.Duration

	// Hex server seed for the fairness engine. Empty generates a fresh one
	// at startup.
	ServerSeed string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		ServerSeed:    os.Getenv("SERVER_SEED"),
		TokenTTL:      24 * time.Hour,
	}

	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %v", err)
		}
		cfg.RedisDB = db
	}

	if ttlStr := os.Getenv("TOKEN_TTL"); ttlStr != "" {
		ttl, err := time.ParseDuration(ttlStr)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_TTL: %v", err)
		}
		cfg.TokenTTL = ttl
	}

	if cfg.JWTSecret == "" {
		if cfg.Env == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-secret-do-not-use-in-production"
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
