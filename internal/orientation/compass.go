// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/dsa_handheld/internal/event"
)

// Reading is one compass sample.
type Reading struct {
	Azimuth float64   `json:"azimuth"` // degrees from north, [0, 360)
	Time    time.Time `json:"time"`
}

// Compass is a heading provider independent of the position source.
type Compass interface {
	Start()
	Stop()
	OnReading(fn func(Reading)) *event.Subscription
}

// PayloadKind selects how MQTTCompass decodes messages.
type PayloadKind string

const (
	PayloadPose PayloadKind = "pose" // orientation.Pose, azimuth from yaw
	PayloadMag  PayloadKind = "mag"  // {"mx","my","mz"} raw magnetometer
)

type magPayload struct {
	Mx int16 `json:"mx"`
	My int16 `json:"my"`
	Mz int16 `json:"mz"`
}

// MQTTCompass turns pose or magnetometer messages published by the
// inertial producers into compass readings.
type MQTTCompass struct {
	client mqtt.Client
	topic  string
	kind   PayloadKind

	mu         sync.Mutex
	subscribed bool

	readings event.Feed[Reading]
}

func NewMQTTCompass(client mqtt.Client, topic string, kind PayloadKind) *MQTTCompass {
	return &MQTTCompass{client: client, topic: topic, kind: kind}
}

func (c *MQTTCompass) OnReading(fn func(Reading)) *event.Subscription {
	return c.readings.Subscribe(fn)
}

// Start subscribes to the topic. Calling it again is a no-op.
func (c *MQTTCompass) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribed {
		return
	}

	token := c.client.Subscribe(c.topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		r, err := c.decode(msg.Payload())
		if err != nil {
			log.Printf("compass: %s unmarshal error: %v", c.topic, err)
			return
		}
		c.readings.Send(r)
	})
	token.Wait()
	if token.Error() != nil {
		log.Printf("compass: subscribe %s error: %v", c.topic, token.Error())
		return
	}
	c.subscribed = true
	log.Printf("compass: subscribed to %s (%s)", c.topic, c.kind)
}

func (c *MQTTCompass) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.subscribed {
		return
	}
	token := c.client.Unsubscribe(c.topic)
	token.Wait()
	c.subscribed = false
}

func (c *MQTTCompass) decode(payload []byte) (Reading, error) {
	switch c.kind {
	case PayloadMag:
		var m magPayload
		if err := json.Unmarshal(payload, &m); err != nil {
			return Reading{}, err
		}
		return Reading{Azimuth: HeadingFromMag(float64(m.Mx), float64(m.My)), Time: time.Now()}, nil
	case PayloadPose, "":
		var p Pose
		if err := json.Unmarshal(payload, &p); err != nil {
			return Reading{}, err
		}
		return Reading{Azimuth: p.Heading(), Time: time.Now()}, nil
	default:
		return Reading{}, fmt.Errorf("unknown compass payload kind %q", c.kind)
	}
}

// MockCompass samples a Source on a ticker, for bench work without
// sensors.
type MockCompass struct {
	src      Source
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}

	readings event.Feed[Reading]
}

func NewMockCompass(interval time.Duration) *MockCompass {
	return &MockCompass{src: NewMockSource(), interval: interval}
}

func (c *MockCompass) OnReading(fn func(Reading)) *event.Subscription {
	return c.readings.Subscribe(fn)
}

func (c *MockCompass) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return
	}
	stop := make(chan struct{})
	c.stop = stop

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.sample()
			}
		}
	}()
}

func (c *MockCompass) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop == nil {
		return
	}
	close(c.stop)
	c.stop = nil
}

func (c *MockCompass) sample() {
	pose, err := c.src.Next()
	if err != nil {
		log.Printf("compass: mock source error: %v", err)
		return
	}
	c.readings.Send(Reading{Azimuth: pose.Heading(), Time: time.Now()})
}
