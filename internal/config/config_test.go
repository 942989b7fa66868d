package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PUNCH_HTTP_ADDR", "PUNCH_ENV", "SQLITE_PATH", "PUNCH_STORE", "PUNCH_SEED_DEV",
		"PUNCH_DB_QUEUE", "MQTT_URL", "MQTT_SUB_TOPIC", "MQTT_CLIENT_ID", "MQTT_USERNAME",
		"MQTT_PASSWORD", "API_TOKEN", "LOG_LEVEL", "LOG_FORMAT", "HEALTH_INTERVAL_SECONDS",
	} {
		t.Setenv(k, "")
	}
}

func TestRead_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Read()

	assert.Equal(t, ":3000", cfg.HTTPAddr)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "./data/attendance.sqlite", cfg.DBPath)
	assert.Equal(t, "sqlite", cfg.StoreKind)
	assert.False(t, cfg.SeedDev)
	assert.Equal(t, 256, cfg.QueueDepth)
	assert.Equal(t, "aiface/+/sub", cfg.MQTTTopic)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 15, cfg.HealthIntervalSeconds)
}

func TestRead_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PUNCH_HTTP_ADDR", ":8081")
	t.Setenv("PUNCH_GRPC_ADDR", "")
	t.Setenv("PUNCH_ENV", "PROD")
	t.Setenv("PUNCH_STORE", "memory")
	t.Setenv("PUNCH_SEED_DEV", "yes")
	t.Setenv("MQTT_URL", " mqtt://broker:1883 ")
	t.Setenv("MQTT_SUB_TOPIC", "site/+/sub")
	t.Setenv("API_TOKEN", "s3cret")
	t.Setenv("HEALTH_INTERVAL_SECONDS", "5")

	cfg := Read()

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, "", cfg.GRPCAddr)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "memory", cfg.StoreKind)
	assert.True(t, cfg.SeedDev)
	assert.Equal(t, "mqtt://broker:1883", cfg.MQTTURL)
	assert.Equal(t, "site/+/sub", cfg.MQTTTopic)
	assert.Equal(t, "s3cret", cfg.APIToken)
	assert.Equal(t, 5, cfg.HealthIntervalSeconds)
}

func TestRead_FailSoft(t *testing.T) {
	clearEnv(t)
	t.Setenv("PUNCH_ENV", "staging")
	t.Setenv("PUNCH_STORE", "postgres")
	t.Setenv("HEALTH_INTERVAL_SECONDS", "soon")
	t.Setenv("PUNCH_SEED_DEV", "maybe")

	cfg := Read()

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "sqlite", cfg.StoreKind)
	assert.Equal(t, 15, cfg.HealthIntervalSeconds)
	assert.False(t, cfg.SeedDev)
}

func TestValidate_RequiresMQTTURLAndToken(t *testing.T) {
	clearEnv(t)

	err := Read().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MQTT_URL")
	assert.Contains(t, err.Error(), "API_TOKEN")

	t.Setenv("MQTT_URL", "mqtt://localhost:1883")
	err = Read().Validate()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "MQTT_URL")
	assert.Contains(t, err.Error(), "API_TOKEN")

	t.Setenv("API_TOKEN", "t")
	assert.NoError(t, Read().Validate())
}

func TestValidate_RejectsZeroInterval(t *testing.T) {
	cfg := Config{MQTTURL: "mqtt://x", APIToken: "t", HealthIntervalSeconds: 0}
	assert.Error(t, cfg.Validate())
}
