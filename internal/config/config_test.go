package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "STORE_BACKEND", "REDIS_ADDR", "KAFKA_BROKERS", "ALERT_DEDUP_TTL", "SEED_DEMO", "NOTIFIER_WORKERS"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, time.Hour, cfg.AlertDedupTTL)
	assert.True(t, cfg.SeedDemo)
	assert.Equal(t, 4, cfg.NotifierWorkers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("ALERT_DEDUP_TTL", "15m")
	t.Setenv("SEED_DEMO", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 15*time.Minute, cfg.AlertDedupTTL)
	assert.False(t, cfg.SeedDemo)
}

func TestLoad_Rejects(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORE_BACKEND", "")
	t.Setenv("ALERT_DEDUP_TTL", "soon")
	_, err = Load()
	assert.Error(t, err)
}
