package advisor

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPPort != 8080 || cfg.GRPCPort != 50051 || cfg.PollInterval != 10*time.Second {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.ESP32URL != "" || cfg.MQTTHost != "" || cfg.SensorSubTopic != "sensor/soil/#" {
		t.Errorf("sources = %+v", cfg)
	}
	if cfg.Knowledge().Lang != "en" {
		t.Errorf("lang = %q", cfg.Knowledge().Lang)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := loadConfig(context.Background(), envconfig.MapLookuper(map[string]string{
		"ESP32_URL":      " 192.168.4.1 ",
		"POLL_INTERVAL":  "2s",
		"CB_FAILS":       "7",
		"STRICT_MISSING": "true",
		"MQTT_HOST":      "rabbit",
		"MESSAGES_LANG":  "bn",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ESP32URL != "192.168.4.1" || !cfg.StrictMissing || cfg.Knowledge().Lang != "bn" {
		t.Errorf("cfg = %+v", cfg)
	}
	if e := cfg.ESP32(); e.BreakerFails != 7 || e.Path != "/sensor" {
		t.Errorf("esp32 = %+v", e)
	}
	if b := cfg.Broker(); b.Host != "rabbit" || b.Port != 1883 {
		t.Errorf("broker = %+v", b)
	}
}

func TestLoadConfigRejectsBadInterval(t *testing.T) {
	for _, v := range []string{"0s", "soon"} {
		if _, err := loadConfig(context.Background(), envconfig.MapLookuper(map[string]string{"POLL_INTERVAL": v})); err == nil {
			t.Errorf("POLL_INTERVAL=%s accepted", v)
		}
	}
}
