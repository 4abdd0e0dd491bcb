package broker

import (
	"fmt"
	"strings"
)

const (
	SensorPrefix      = "sensor/soil"
	AlertPrefix       = "event/soilAlert"
	StateChangePrefix = "event/StateChange"
)

// QoSFor: eventi a QoS 1, letture sensore a QoS 0.
func QoSFor(topic string) byte {
	t := strings.TrimSpace(topic)
	if strings.HasPrefix(t, "event/") {
		return 1
	}
	return 0
}

func SensorTopic(field, sensor string) string {
	return fmt.Sprintf("%s/%s/%s", SensorPrefix, seg(field), seg(sensor))
}

func AlertTopic(field, sensor string) string {
	return fmt.Sprintf("%s/%s/%s", AlertPrefix, seg(field), seg(sensor))
}

func StateChangeTopic(field, sensor string) string {
	return fmt.Sprintf("%s/%s/%s", StateChangePrefix, seg(field), seg(sensor))
}

// SplitTopic returns the field and sensor segments of "<a>/<b>/{field}/{sensor}".
func SplitTopic(topic string) (field, sensor string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 {
		return "", "", false
	}
	return parts[2], parts[3], true
}

// wildcard e separatori non ammessi nei segmenti
func seg(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "default"
	}
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}
