package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := LoadFrom(t.TempDir())
		require.NoError(t, err)

		assert.Equal(t, "lotledger", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, DriverPostgres, cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 3, cfg.Ledger.MaxRetries)
		assert.Equal(t, 10*time.Millisecond, cfg.Ledger.RetryBackoff)
		assert.Equal(t, 5*time.Second, cfg.Ledger.LockTimeout)
		assert.Equal(t, LockBackendLocal, cfg.Ledger.LockBackend)
		assert.Equal(t, 24*time.Hour, cfg.Import.ProcessedKeyTTL)
		assert.Equal(t, IdempotencyBackendMemory, cfg.Import.IdempotencyBackend)
		assert.False(t, cfg.Telemetry.MetricsEnabled)
	})

	t.Run("loads values from environment variables with LEDGER prefix", func(t *testing.T) {
		t.Setenv("LEDGER_APP_PORT", "9000")
		t.Setenv("LEDGER_DATABASE_DRIVER", "sqlite")
		t.Setenv("LEDGER_DATABASE_SQLITE_PATH", "/tmp/ledger.db")
		t.Setenv("LEDGER_LEDGER_MAX_RETRIES", "7")
		t.Setenv("LEDGER_LEDGER_LOCK_TIMEOUT", "250ms")
		t.Setenv("LEDGER_IMPORT_MAX_ERRORS", "50")

		cfg, err := LoadFrom(t.TempDir())
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, DriverSQLite, cfg.Database.Driver)
		assert.Equal(t, "/tmp/ledger.db", cfg.Database.SQLitePath)
		assert.Equal(t, 7, cfg.Ledger.MaxRetries)
		assert.Equal(t, 250*time.Millisecond, cfg.Ledger.LockTimeout)
		assert.Equal(t, 50, cfg.Import.MaxErrors)
	})

	t.Run("explicit zero retries is kept", func(t *testing.T) {
		t.Setenv("LEDGER_LEDGER_MAX_RETRIES", "0")

		cfg, err := LoadFrom(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, 0, cfg.Ledger.MaxRetries)
	})

	t.Run("reads config.toml", func(t *testing.T) {
		dir := t.TempDir()
		toml := `
[database]
driver = "memory"

[ledger]
max_retries = 5
lock_backend = "local"

[import]
processed_key_ttl = "1h"
`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o600))

		cfg, err := LoadFrom(dir)
		require.NoError(t, err)
		assert.Equal(t, DriverMemory, cfg.Database.Driver)
		assert.Equal(t, 5, cfg.Ledger.MaxRetries)
		assert.Equal(t, time.Hour, cfg.Import.ProcessedKeyTTL)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		t.Setenv("LEDGER_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("LEDGER_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := LoadFrom(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		t.Setenv("LEDGER_DATABASE_DRIVER", "mysql")

		_, err := LoadFrom(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("redis lock backend requires redis", func(t *testing.T) {
		t.Setenv("LEDGER_LEDGER_LOCK_BACKEND", "redis")

		_, err := LoadFrom(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis.enabled")

		t.Setenv("LEDGER_REDIS_ENABLED", "true")
		cfg, err := LoadFrom(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, LockBackendRedis, cfg.Ledger.LockBackend)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	t.Run("rejects memory store in production", func(t *testing.T) {
		t.Setenv("LEDGER_APP_ENV", "production")
		t.Setenv("LEDGER_DATABASE_DRIVER", "memory")

		_, err := LoadFrom(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not allowed in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		t.Setenv("LEDGER_APP_ENV", "production")
		t.Setenv("LEDGER_DATABASE_SSLMODE", "disable")

		_, err := LoadFrom(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		t.Setenv("LEDGER_APP_ENV", "production")
		t.Setenv("LEDGER_DATABASE_SSLMODE", "require")

		cfg, err := LoadFrom(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "/testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}
