package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	HTTPAddress  string
	Storage      string
	PostgresConn string
	RedisAddr    string
	CacheTTL     time.Duration
	LogLevel     slog.Level
}

// Load reads .env files (if any) into the environment and builds the config from it.
// A missing .env file is logged and otherwise ignored.
func Load(log *slog.Logger, files ...string) (Config, error) {
	const op = "config.Load"

	if err := godotenv.Load(files...); err != nil {
		if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("no .env file, reading the environment only", slog.String("error", err.Error()))
	}

	cfg := Config{
		HTTPAddress:  getenv("HTTP_ADDRESS", ":8080"),
		Storage:      getenv("STORAGE", StoragePostgres),
		PostgresConn: os.Getenv("POSTGRES_CONN"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
	}

	ttl, err := time.ParseDuration(getenv("CACHE_TTL", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("%s: CACHE_TTL: %w", op, err)
	}
	cfg.CacheTTL = ttl

	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "debug"))); err != nil {
		return Config{}, fmt.Errorf("%s: LOG_LEVEL: %w", op, err)
	}

	switch cfg.Storage {
	case StoragePostgres:
		if cfg.PostgresConn == "" {
			return Config{}, fmt.Errorf("%s: POSTGRES_CONN is required for postgres storage", op)
		}
	case StorageMemory:
	default:
		return Config{}, fmt.Errorf("%s: unknown STORAGE %q", op, cfg.Storage)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
