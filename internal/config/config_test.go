package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, []byte("s3cret"), cfg.Token.Secret)
	assert.Equal(t, time.Hour, cfg.Token.Lifetime)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr)
	assert.Equal(t, "postgres://postgres@localhost:5432/postgres?sslmode=disable", cfg.Primary.DSN)
	assert.Equal(t, 5, cfg.Primary.MaxConns)
	assert.False(t, cfg.HasReplica())
	assert.Equal(t, cfg.Primary, cfg.Replica)
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "revoked:", cfg.RevokedPrefix)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, int64(1), cfg.SnowflakeNode)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "k")
	t.Setenv("JWT_ACCESS_TOKEN_EXPIRE_HOURS", "12")
	t.Setenv("JWT_ISSUER", "loyalty")
	t.Setenv("DB_HOST", "primary.db")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_REPLICA_HOST", "replica.db")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LOG_DEV", "1")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 12*time.Hour, cfg.Token.Lifetime)
	assert.Equal(t, "loyalty", cfg.Token.Issuer)
	assert.Equal(t, "postgres://postgres:pw@primary.db:5432/postgres?sslmode=disable", cfg.Primary.DSN)
	assert.Equal(t, "postgres://postgres:pw@replica.db:5432/postgres?sslmode=disable", cfg.Replica.DSN)
	assert.True(t, cfg.HasReplica())
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.Log.Dev)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadDatabaseURLWins(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "k")
	t.Setenv("DATABASE_URL", "postgres://u@h:1/d")
	t.Setenv("DB_HOST", "ignored")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://u@h:1/d", cfg.Primary.DSN)
	assert.Equal(t, "postgres://u@h:1/d", cfg.Replica.DSN)
}

func TestLoadFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("JWT_SECRET_KEY=from-file\nJWT_ACCESS_TOKEN_EXPIRE_HOURS=2\n"), 0o600))
	// registered so t.Setenv restores the process env after godotenv sets it
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("JWT_ACCESS_TOKEN_EXPIRE_HOURS", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET_KEY"))
	require.NoError(t, os.Unsetenv("JWT_ACCESS_TOKEN_EXPIRE_HOURS"))

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, []byte("from-file"), cfg.Token.Secret)
	assert.Equal(t, 2*time.Hour, cfg.Token.Lifetime)
}

func TestLoadErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET_KEY", "")
		_, err := Load(missing)
		assert.ErrorIs(t, err, ErrMissingSecret)
	})
	t.Run("zero lifetime", func(t *testing.T) {
		t.Setenv("JWT_SECRET_KEY", "k")
		t.Setenv("JWT_ACCESS_TOKEN_EXPIRE_HOURS", "0")
		_, err := Load(missing)
		assert.ErrorIs(t, err, ErrInvalidLifetime)
	})
	t.Run("garbage port", func(t *testing.T) {
		t.Setenv("JWT_SECRET_KEY", "k")
		t.Setenv("REDIS_PORT", "six")
		_, err := Load(missing)
		assert.ErrorContains(t, err, "REDIS_PORT")
	})
}
