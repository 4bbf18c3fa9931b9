// Package notify delivers raised alerts to the MQTT bus and to RabbitMQ.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/dsa_handheld/internal/alerts"
)

// Publisher is the part of mqtt.Client the sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink publishes alerts as JSON on a single topic at QoS 1.
type MQTTSink struct {
	client Publisher
	topic  string
}

func NewMQTTSink(client Publisher, topic string) *MQTTSink {
	return &MQTTSink{client: client, topic: topic}
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Publish(ctx context.Context, a alerts.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	token := s.client.Publish(s.topic, 1, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", s.topic, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", s.topic, ctx.Err())
	}
}
