package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ConflictPolicyWait, cfg.Training.ConflictPolicy)
	assert.Equal(t, 10*time.Minute, cfg.Training.Timeout)
	assert.Equal(t, 0, cfg.Cache.MaxEntries)
	assert.False(t, cfg.Database.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("TRAINING_TIMEOUT", "30s")
	t.Setenv("TRAINING_CONFLICT_POLICY", "REJECT")
	t.Setenv("CACHE_MAX_ENTRIES", "16")
	t.Setenv("STORAGE_ROOT", "/var/lib/nlu")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Training.Timeout)
	assert.Equal(t, ConflictPolicyReject, cfg.Training.ConflictPolicy)
	assert.Equal(t, 16, cfg.Cache.MaxEntries)
	assert.Equal(t, "/var/lib/nlu", cfg.Storage.Root)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("bad timeout", func(t *testing.T) {
		t.Setenv("TRAINING_TIMEOUT", "soon")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad policy", func(t *testing.T) {
		t.Setenv("TRAINING_CONFLICT_POLICY", "queue")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5432, Name: "nlu", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/nlu?sslmode=disable", d.DSN())
}
