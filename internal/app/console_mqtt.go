package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/dsa_handheld/internal/alerts"
	"github.com/relabs-tech/dsa_handheld/internal/config"
	"github.com/relabs-tech/dsa_handheld/internal/gps"
)

// RunConsoleMQTT prints GPS fixes, handheld locations, alerts and
// condition definitions seen on the bus.
func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}

	// Subscribe to GPS
	if err := subscribe(client, cfg.TopicGPS, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: gps unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[GPS ]  time=%s date=%s lat=%.6f lon=%.6f alt=%.1f speed=%.1fkn course=%.1f° validity=%s sats=%d\n",
			f.Time, f.Date, f.Latitude, f.Longitude, f.Altitude, f.SpeedKnots, f.CourseDeg, f.Validity, f.Satellites,
		)
	}); err != nil {
		return err
	}
	log.Printf("console: subscribed to %s", cfg.TopicGPS)

	// Subscribe to handheld location
	if err := subscribe(client, cfg.TopicLocation, func(_ mqtt.Client, msg mqtt.Message) {
		var m LocationMessage
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Printf("console: location unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[LOC ]  lat=%.6f lon=%.6f z=%.1f heading=%5.1f° at %s\n",
			m.Latitude, m.Longitude, m.Z, m.Heading, m.Time.Format("15:04:05"),
		)
	}); err != nil {
		return err
	}
	log.Printf("console: subscribed to %s", cfg.TopicLocation)

	// Subscribe to alerts
	if err := subscribe(client, cfg.TopicAlerts, func(_ mqtt.Client, msg mqtt.Message) {
		var a alerts.Alert
		if err := json.Unmarshal(msg.Payload(), &a); err != nil {
			log.Printf("console: alert unmarshal error: %v", err)
			return
		}

		fmt.Printf("[ALRT]  %-8s %s: %s\n", a.Level, a.Condition, a.Description)
	}); err != nil {
		return err
	}
	log.Printf("console: subscribed to %s", cfg.TopicAlerts)

	// Subscribe to condition definitions
	if err := subscribe(client, cfg.TopicAlertConditions, func(_ mqtt.Client, msg mqtt.Message) {
		var spec alerts.ConditionSpec
		if err := json.Unmarshal(msg.Payload(), &spec); err != nil {
			log.Printf("console: condition unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[COND]  %s level=%s radius=%.0fm at lat=%.6f lon=%.6f\n",
			spec.Name, spec.Level, spec.RadiusMeters, spec.Latitude, spec.Longitude,
		)
	}); err != nil {
		return err
	}
	log.Printf("console: subscribed to %s", cfg.TopicAlertConditions)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
