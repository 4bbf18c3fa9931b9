package app

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/dsa_handheld/internal/geo"
	"github.com/relabs-tech/dsa_handheld/internal/notify"
)

// LocationMessage is what the handheld publishes on TOPIC_LOCATION.
type LocationMessage struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	Z         float64   `json:"z"`
	Heading   float64   `json:"heading"`
	Time      time.Time `json:"time"`
}

// locationPublisher shares the handheld's position and heading on the
// bus, retained so late subscribers see the last location.
type locationPublisher struct {
	client notify.Publisher
	topic  string
	now    func() time.Time

	mu      sync.Mutex
	heading float64
}

func newLocationPublisher(client notify.Publisher, topic string) *locationPublisher {
	return &locationPublisher{client: client, topic: topic, now: time.Now}
}

func (p *locationPublisher) onHeading(heading float64) {
	p.mu.Lock()
	p.heading = heading
	p.mu.Unlock()
}

func (p *locationPublisher) onLocation(pt geo.Point) {
	if pt.IsEmpty() {
		return
	}
	p.mu.Lock()
	msg := LocationMessage{Latitude: pt.Y, Longitude: pt.X, Z: pt.Z, Heading: p.heading, Time: p.now()}
	p.mu.Unlock()

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("handheld: location marshal error: %v", err)
		return
	}

	token := p.client.Publish(p.topic, 0, true, payload)
	if !token.WaitTimeout(time.Second) {
		log.Printf("handheld: location publish to %s timed out", p.topic)
		return
	}
	if token.Error() != nil {
		log.Printf("handheld: location publish error: %v", token.Error())
	}
}
