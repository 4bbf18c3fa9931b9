package position

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/dsa_handheld/internal/gps"
)

// MQTTSource consumes the gps.Fix messages published by the GPS producer.
type MQTTSource struct {
	emitter

	client mqtt.Client
	topic  string

	mu         sync.Mutex
	subscribed bool
}

func NewMQTTSource(client mqtt.Client, topic string) *MQTTSource {
	return &MQTTSource{client: client, topic: topic}
}

func (s *MQTTSource) StartUpdates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribed {
		return
	}

	token := s.client.Subscribe(s.topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		s.handlePayload(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		s.errors.Send(fmt.Errorf("subscribe %s: %w", s.topic, token.Error()))
		return
	}
	s.subscribed = true
	log.Printf("position: subscribed to %s", s.topic)
}

func (s *MQTTSource) StopUpdates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.subscribed {
		return
	}
	token := s.client.Unsubscribe(s.topic)
	token.Wait()
	s.subscribed = false
}

func (s *MQTTSource) handlePayload(payload []byte) {
	var f gps.Fix
	if err := json.Unmarshal(payload, &f); err != nil {
		s.errors.Send(fmt.Errorf("gps fix unmarshal: %w", err))
		return
	}
	s.updates.Send(Update{Coordinate: CoordinateFromFix(f), Timestamp: time.Now()})
}
