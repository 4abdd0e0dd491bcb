package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/LeonardoBeccarini/soil_advisor/internal/knowledge"
	"github.com/LeonardoBeccarini/soil_advisor/pkg/broker"
	"github.com/LeonardoBeccarini/soil_advisor/pkg/esp32"
)

// Config is read from the environment.
type Config struct {
	HTTPPort int `env:"HTTP_PORT,default=8080"`
	GRPCPort int `env:"GRPC_PORT,default=50051"`

	// board polling, disabled when ESP32_URL is empty
	ESP32URL      string        `env:"ESP32_URL"`
	ESP32Path     string        `env:"ESP32_PATH,default=/sensor"`
	PollInterval  time.Duration `env:"POLL_INTERVAL,default=10s"`
	FetchTimeout  time.Duration `env:"FETCH_TIMEOUT,default=5s"`
	FetchRetries  int           `env:"FETCH_RETRIES,default=2"`
	BreakerFails  int           `env:"CB_FAILS,default=3"`
	BreakerOpen   time.Duration `env:"CB_OPEN,default=30s"`
	StaleAfter    time.Duration `env:"STALE_AFTER,default=5m"`
	StrictMissing bool          `env:"STRICT_MISSING,default=false"`

	// MQTT, disabled when MQTT_HOST is empty
	MQTTHost       string `env:"MQTT_HOST"`
	MQTTPort       int    `env:"MQTT_PORT,default=1883"`
	MQTTUser       string `env:"MQTT_USER"`
	MQTTPassword   string `env:"MQTT_PASSWORD"`
	MQTTClientID   string `env:"MQTT_CLIENT_ID,default=soil-advisor"`
	SensorSubTopic string `env:"SENSOR_SUB_TOPIC,default=sensor/soil/#"`

	ThresholdsPath string `env:"THRESHOLDS_PATH"`
	MessagesPath   string `env:"MESSAGES_PATH"`
	CropsPath      string `env:"CROPS_PATH"`
	Lang           string `env:"MESSAGES_LANG,default=en"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	return loadConfig(ctx, envconfig.OsLookuper())
}

func loadConfig(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	cfg.ESP32URL = strings.TrimSpace(cfg.ESP32URL)
	cfg.MQTTHost = strings.TrimSpace(cfg.MQTTHost)
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive, got %s", cfg.PollInterval)
	}
	return &cfg, nil
}

func (c *Config) Knowledge() knowledge.Paths {
	return knowledge.Paths{
		Thresholds: c.ThresholdsPath,
		Messages:   c.MessagesPath,
		Crops:      c.CropsPath,
		Lang:       c.Lang,
	}
}

func (c *Config) ESP32() esp32.Config {
	return esp32.Config{
		BaseURL:      c.ESP32URL,
		Path:         c.ESP32Path,
		Timeout:      c.FetchTimeout,
		Retries:      c.FetchRetries,
		BreakerFails: c.BreakerFails,
		BreakerOpen:  c.BreakerOpen,
	}
}

func (c *Config) Broker() broker.Config {
	return broker.Config{
		Host:     c.MQTTHost,
		Port:     c.MQTTPort,
		User:     c.MQTTUser,
		Password: c.MQTTPassword,
		ClientID: c.MQTTClientID,
	}
}
