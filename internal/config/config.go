package config

import (
	"os"
	"strconv"

	"statlab/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Limits   LimitConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// LimitConfig bounds upload and batch sizes
type LimitConfig struct {
	MaxUploadBytes int64
	MaxBatchSize   int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, errors.New("CONFIG_ERROR", "DATABASE_URL is required")
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:          dbURL,
			MaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 16),
			MaxIdleConns: envInt("DB_MAX_IDLE_CONNS", 4),
		},
		Server: ServerConfig{
			Port:    envString("PORT", "8080"),
			GinMode: envString("GIN_MODE", "release"),
		},
		Limits: LimitConfig{
			MaxUploadBytes: int64(envInt("MAX_UPLOAD_MB", 64)) << 20,
			MaxBatchSize:   envInt("MAX_BATCH_SIZE", 8),
		},
	}
	if cfg.Limits.MaxBatchSize < 1 {
		return nil, errors.New("CONFIG_ERROR", "MAX_BATCH_SIZE must be at least 1")
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
