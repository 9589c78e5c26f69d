package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ".env", cfg.ArtifactPath)
	assert.Equal(t, "aes-gcm", cfg.EncryptionAlgorithm)
	assert.Equal(t, 90, cfg.RotationIntervalDays)
	assert.True(t, cfg.RotationBackupEnabled)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 25, cfg.DBMaxOpenConnections)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, "configvault", cfg.MetricsNamespace)
	assert.Empty(t, cfg.KMSKeyURI)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ARTIFACT_PATH", "/etc/app/.env")
	t.Setenv("ENCRYPTION_ALGORITHM", "chacha20-poly1305")
	t.Setenv("ROTATION_INTERVAL_DAYS", "30")
	t.Setenv("ROTATION_BACKUP_ENABLED", "false")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("METRICS_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, "/etc/app/.env", cfg.ArtifactPath)
	assert.Equal(t, "chacha20-poly1305", cfg.EncryptionAlgorithm)
	assert.Equal(t, 30, cfg.RotationIntervalDays)
	assert.False(t, cfg.RotationBackupEnabled)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.MetricsEnabled)
}

func TestConfig_RotationInterval(t *testing.T) {
	cfg := &Config{RotationIntervalDays: 90}
	assert.Equal(t, 90*24*time.Hour, cfg.RotationInterval())
}
