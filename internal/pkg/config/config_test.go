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

	assert.Equal(t, "blink.0", cfg.Namespace)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "CRON_TZ=Australia/Adelaide 0 3 * * *", cfg.CleanupSchedule)
	assert.Equal(t, 60*time.Second, cfg.BlinkCfg.PollInterval)
	assert.Equal(t, "blink", cfg.MqttCfg.Prefix)
	assert.Equal(t, "blink", cfg.InfluxCfg.Bucket)
	assert.Equal(t, "0.0.0.0:8000", cfg.ServerCfg.Addr)
	assert.Equal(t, 15*time.Minute, cfg.ServerCfg.TokenTTL)
	assert.Equal(t, "admin", cfg.ServerCfg.Username)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("BLINK_USERNAME", "user@example.com")
	t.Setenv("BLINK_PASSWORD", "obfuscated")
	t.Setenv("POLL_INTERVAL", "2m")
	t.Setenv("BLINK_TOKEN", "tok")
	t.Setenv("BLINK_REGION_ID", "u011")
	t.Setenv("BLINK_ACCOUNT_ID", "77")
	t.Setenv("STATE_NAMESPACE", "blink.1")
	t.Setenv("MQTT_HOST", "tcp://broker:1883")
	t.Setenv("INFLUX_URL", "http://influx:8086")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/blink")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, &BlinkConfig{
		Username:     "user@example.com",
		Password:     "obfuscated",
		PollInterval: 2 * time.Minute,
		Token:        "tok",
		RegionID:     "u011",
		AccountID:    "77",
	}, cfg.BlinkCfg)
	assert.Equal(t, "blink.1", cfg.Namespace)
	assert.Equal(t, "tcp://broker:1883", cfg.MqttCfg.Host)
	assert.Equal(t, "http://influx:8086", cfg.InfluxCfg.URL)
	assert.Equal(t, "secret", cfg.ServerCfg.JWTSecret)
	assert.Equal(t, "postgres://localhost/blink", cfg.DatabaseURL)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "soon")
	_, err := Load()
	assert.Error(t, err)
}
