package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoad(t *testing.T) {
	t.Setenv("LIBRARY_STORE_PATH", "/var/lib/library/catalog.txt")
	t.Setenv("LIBRARY_FINE_RATE_PER_DAY", "2.5")
	t.Setenv("KAFKA_ADDRS", "kafka-1:9092,kafka-2:9092")

	cfg, err := load(WithLogLevel(zapcore.DebugLevel), WithWriteTimeout(time.Minute))
	require.NoError(t, err)

	require.Equal(t, StorageFile, cfg.Store.Driver)
	require.Equal(t, "/var/lib/library/catalog.txt", cfg.Store.Path)
	require.Equal(t, 7.0, cfg.Fines.GraceDays)
	require.Equal(t, 2.5, cfg.Fines.RatePerDay)
	require.Equal(t, "admin", cfg.Desk.AdminUser)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Addrs)
	require.Equal(t, zapcore.DebugLevel, cfg.Log.LogLevel)
	require.Equal(t, time.Minute, cfg.Server.WriteTimeout)
	require.False(t, cfg.Server.Enabled)
}

func TestLoad_EnvOverridesOption(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LIBRARY_HTTP_ENABLED", "true")

	cfg, err := load(WithLogLevel(zapcore.DebugLevel))
	require.NoError(t, err)
	require.Equal(t, zapcore.WarnLevel, cfg.Log.LogLevel)
	require.True(t, cfg.Server.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("LIBRARY_STORAGE", "s3")
	_, err := load()
	require.Error(t, err)

	t.Setenv("LIBRARY_STORAGE", StoragePostgres)
	t.Setenv("LIBRARY_FINE_GRACE_DAYS", "-1")
	_, err = load()
	require.Error(t, err)

	t.Setenv("LIBRARY_FINE_GRACE_DAYS", "seven")
	_, err = load()
	require.Error(t, err)
}

func TestLoad_EmptyPasswords(t *testing.T) {
	t.Setenv("LIBRARY_ADMIN_PASSWORD", "")
	_, err := load()
	require.Error(t, err)

	t.Setenv("LIBRARY_ADMIN_PASSWORD", "s3cret")
	t.Setenv("LIBRARY_MEMBER_PASSWORD", "")
	_, err = load()
	require.Error(t, err)
}
