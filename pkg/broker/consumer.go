package broker

import (
	"context"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler gets the subscription filter and the message. A returned error is
// only logged: the stream keeps flowing.
type Handler func(topic string, msg mqtt.Message) error

// Consumer subscribes a set of topic filters to one handler.
type Consumer struct {
	client  mqtt.Client
	topics  []string
	handler Handler
}

func NewConsumer(client mqtt.Client, handler Handler, topics ...string) *Consumer {
	return &Consumer{client: client, topics: topics, handler: handler}
}

// Consume subscribes and blocks until ctx is done, then unsubscribes.
func (c *Consumer) Consume(ctx context.Context) {
	for _, topic := range c.topics {
		topic := topic
		token := c.client.Subscribe(topic, QoSFor(topic), func(_ mqtt.Client, msg mqtt.Message) {
			if c.handler == nil {
				log.Printf("broker: no handler topic=%s", topic)
				return
			}
			if err := c.handler(topic, msg); err != nil {
				log.Printf("broker: handler error topic=%s msg_topic=%s err=%v", topic, msg.Topic(), err)
			}
		})
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("broker: subscribe failed topic=%s err=%v", topic, err)
			continue
		}
		log.Printf("broker: subscribed topic=%s", topic)
	}

	<-ctx.Done()

	for _, topic := range c.topics {
		c.client.Unsubscribe(topic)
	}
}
