package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/statlab?sslmode=disable")
	t.Setenv("PORT", "")
	t.Setenv("GIN_MODE", "")
	t.Setenv("MAX_UPLOAD_MB", "")
	t.Setenv("MAX_BATCH_SIZE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, int64(64<<20), cfg.Limits.MaxUploadBytes)
	assert.Equal(t, 8, cfg.Limits.MaxBatchSize)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/statlab?sslmode=disable")
	t.Setenv("PORT", "9000")
	t.Setenv("MAX_UPLOAD_MB", "8")
	t.Setenv("MAX_BATCH_SIZE", "2")
	t.Setenv("DB_MAX_OPEN_CONNS", "32")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, int64(8<<20), cfg.Limits.MaxUploadBytes)
	assert.Equal(t, 2, cfg.Limits.MaxBatchSize)
	assert.Equal(t, 32, cfg.Database.MaxOpenConns)
}

func TestLoad_RejectsZeroBatch(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/statlab?sslmode=disable")
	t.Setenv("MAX_BATCH_SIZE", "0")

	_, err := Load()
	require.Error(t, err)
}
