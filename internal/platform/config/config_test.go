package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("LEADGATE_ENCRYPTION_KEY", "test-key")
	t.Setenv("LEADGATE_DATABASE_URL", "postgres://localhost/leadgate")
}

func TestFromEnvDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("USER", "carol")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, []byte("test-key"), cfg.EncryptionKey)
	assert.Equal(t, "leadgate.audit", cfg.AuditTopic)
	assert.Equal(t, "leadgate_audit.jsonl", cfg.AuditLogPath)
	assert.Equal(t, 30*24*time.Hour, cfg.DedupTTL)
	assert.Equal(t, 10*time.Second, cfg.CallTimeout)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "https://api.agedleads.com/v1", cfg.MarketplaceURL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "carol", cfg.Actor, "batch runs are attributed to the invoking user")
}

func TestFromEnvMissingRequired(t *testing.T) {
	t.Setenv("LEADGATE_ENCRYPTION_KEY", "")
	t.Setenv("LEADGATE_DATABASE_URL", "postgres://localhost/leadgate")
	_, err := FromEnv()
	require.ErrorIs(t, err, ErrMissingEncryptionKey)

	t.Setenv("LEADGATE_ENCRYPTION_KEY", "test-key")
	t.Setenv("LEADGATE_DATABASE_URL", "")
	_, err = FromEnv()
	require.ErrorIs(t, err, ErrMissingDatabaseURL)
}

func TestFromEnvBrokerList(t *testing.T) {
	setRequired(t)
	t.Setenv("LEADGATE_KAFKA_BROKERS", "broker-1:9092, broker-2:9092,,")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
}

func TestFromEnvInvalidValuesFallBack(t *testing.T) {
	setRequired(t)
	t.Setenv("LEADGATE_CALL_TIMEOUT", "not-a-duration")
	t.Setenv("LEADGATE_WORKERS", "-3")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.CallTimeout)
	assert.Equal(t, 4, cfg.Workers)
}

func TestFromEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("LEADGATE_WORKERS", "16")
	t.Setenv("LEADGATE_DEDUP_TTL", "72h")
	t.Setenv("LEADGATE_HTTP_ADDR", ":9090")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Workers)
	assert.Equal(t, 72*time.Hour, cfg.DedupTTL)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
}
