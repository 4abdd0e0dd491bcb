// Package broker wraps the paho MQTT client used by every service: connect with
// retry, publish, and topic subscriptions driven by a context.
package broker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string
	// MaxRetries bounds the connect attempts (default 5).
	MaxRetries int
}

func (c Config) addr() string {
	port := c.Port
	if port == 0 {
		port = 1883
	}
	return fmt.Sprintf("tcp://%s:%d", c.Host, port)
}

// Connect opens the MQTT session, retrying with exponential backoff. The
// client is disconnected when ctx is done.
func Connect(ctx context.Context, cfg Config) (mqtt.Client, error) {
	addr := cfg.addr()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(addr)
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	// handlers run on their own goroutine and may publish at QoS 1
	opts.SetOrderMatters(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("broker: connection lost addr=%s err=%v", addr, err)
	})

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 5
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Printf("broker: connect failed addr=%s err=%v", addr, token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(retries-1)), ctx))
	if err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", addr, err)
	}
	log.Printf("broker: connected addr=%s client_id=%s", addr, cfg.ClientID)

	go func() {
		<-ctx.Done()
		Close(client)
	}()
	return client, nil
}

// Close disconnects if still connected.
func Close(client mqtt.Client) {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		log.Println("broker: connection closed")
	}
}
