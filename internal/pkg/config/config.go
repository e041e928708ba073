package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	BlinkCfg  *BlinkConfig
	MqttCfg   *MqttConfig
	InfluxCfg *InfluxConfig
	ServerCfg *ServerConfig

	DatabaseURL      string `env:"DATABASE_URL"`
	MigrationsFolder string `env:"MIGRATIONS_FOLDER"`
	// Namespace prefixes every state id, e.g. blink.0.home.armed.
	Namespace string `env:"STATE_NAMESPACE" envDefault:"blink.0"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"INFO"`
	// CleanupSchedule is the cron schedule of the nightly history cleanup.
	CleanupSchedule string `env:"CLEANUP_SCHEDULE" envDefault:"CRON_TZ=Australia/Adelaide 0 3 * * *"`
}

type BlinkConfig struct {
	Username string `env:"BLINK_USERNAME"`
	// Password is stored obfuscated and unwrapped at startup.
	Password     string        `env:"BLINK_PASSWORD"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"60s"`
	// Session continuation, passed to the client as is.
	Token     string `env:"BLINK_TOKEN"`
	RegionID  string `env:"BLINK_REGION_ID"`
	AccountID string `env:"BLINK_ACCOUNT_ID"`
	Host      string `env:"BLINK_HOST"`
	Network   string `env:"BLINK_NETWORK"`
}

type MqttConfig struct {
	Host     string `env:"MQTT_HOST"`
	Username string `env:"MQTT_USER"`
	Password string `env:"MQTT_PASS"`
	Prefix   string `env:"MQTT_PREFIX" envDefault:"blink"`
}

type InfluxConfig struct {
	URL    string `env:"INFLUX_URL"`
	Token  string `env:"INFLUX_TOKEN"`
	Org    string `env:"INFLUX_ORG"`
	Bucket string `env:"INFLUX_BUCKET" envDefault:"blink"`
}

type ServerConfig struct {
	Addr string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8000"`
	// JWTSecret enables bearer auth on the API when set.
	JWTSecret    string        `env:"JWT_SECRET"`
	TokenTTL     time.Duration `env:"JWT_TTL" envDefault:"15m"`
	Username     string        `env:"HTTP_USERNAME" envDefault:"admin"`
	PasswordHash string        `env:"HTTP_PASSWORD_HASH"`
}

// Load reads the whole configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		BlinkCfg:  &BlinkConfig{},
		MqttCfg:   &MqttConfig{},
		InfluxCfg: &InfluxConfig{},
		ServerCfg: &ServerConfig{},
	}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
