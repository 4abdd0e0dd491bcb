package broker

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher sends JSON payloads; QoS is chosen from the topic.
type Publisher struct {
	client  mqtt.Client
	timeout time.Duration
}

func NewPublisher(client mqtt.Client) *Publisher {
	return &Publisher{client: client, timeout: 5 * time.Second}
}

// Publish marshals v (raw []byte and string are sent as is).
func (p *Publisher) Publish(topic string, v any) error {
	var payload []byte
	switch t := v.(type) {
	case []byte:
		payload = t
	case string:
		payload = []byte(t)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", topic, err)
		}
		payload = b
	}

	token := p.client.Publish(topic, QoSFor(topic), false, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish %s: timeout after %s", topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
