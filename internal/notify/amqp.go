package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/relabs-tech/dsa_handheld/internal/alerts"
)

// DefaultExchange is used when no exchange is configured.
const DefaultExchange = "dsa.alerts"

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSink publishes alerts to a durable topic exchange with routing key
// "alert.<level>", so consumers can bind by severity.
type AMQPSink struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
}

// DialAMQP connects to the broker and declares the exchange.
func DialAMQP(url, exchange string) (*AMQPSink, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &AMQPSink{conn: conn, ch: ch, exchange: exchange}, nil
}

func (s *AMQPSink) Name() string { return "amqp" }

// RoutingKey returns the key an alert is published under.
func RoutingKey(a alerts.Alert) string {
	return "alert." + a.Level.String()
}

func (s *AMQPSink) Publish(ctx context.Context, a alerts.Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	err = s.ch.PublishWithContext(ctx, s.exchange, RoutingKey(a), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    a.RaisedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", s.exchange, err)
	}
	return nil
}

func (s *AMQPSink) Close() error {
	if err := s.ch.Close(); err != nil {
		return fmt.Errorf("close channel: %w", err)
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
