package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vecinal/backend/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 48, cfg.AutoLogin.ExpireHours)
	assert.Equal(t, 60, cfg.RateLimit.WindowSeconds)
	assert.Equal(t, 10, cfg.RateLimit.AuthRequests)
	assert.Equal(t, 10, cfg.Database.MaxConns)
	assert.Equal(t, 2, cfg.Database.MinConns)
	assert.Equal(t, 30, cfg.Database.ConnLifetimeMin)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.InDelta(t, 50.0, cfg.Quorum.DefaultThresholdPct, 0.001)
	assert.NotEmpty(t, cfg.JWT.Secret)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("AUTO_LOGIN_EXPIRE_HOURS", "12")
	t.Setenv("QUORUM_DEFAULT_THRESHOLD_PCT", "66.7")
	t.Setenv("DB_MAX_CONNS", "25")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 12, cfg.AutoLogin.ExpireHours)
	assert.InDelta(t, 66.7, cfg.Quorum.DefaultThresholdPct, 0.001)
	assert.Equal(t, 25, cfg.Database.MaxConns)
}

func TestDatabaseDSN(t *testing.T) {
	t.Run("built from parts", func(t *testing.T) {
		db := config.DatabaseConfig{
			Host: "db", Port: "5432", User: "app", Password: "pw",
			DBName: "asambleas", SSLMode: "disable",
		}
		assert.Equal(t, "postgres://app:pw@db:5432/asambleas?sslmode=disable", db.DSN())
	})

	t.Run("url wins", func(t *testing.T) {
		db := config.DatabaseConfig{URL: "postgres://elsewhere/x"}
		assert.Equal(t, "postgres://elsewhere/x", db.DSN())
	})
}
