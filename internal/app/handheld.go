// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/dsa_handheld/internal/alerts"
	"github.com/relabs-tech/dsa_handheld/internal/config"
	"github.com/relabs-tech/dsa_handheld/internal/geo"
	"github.com/relabs-tech/dsa_handheld/internal/highlight"
	"github.com/relabs-tech/dsa_handheld/internal/location"
	"github.com/relabs-tech/dsa_handheld/internal/metrics"
	"github.com/relabs-tech/dsa_handheld/internal/notify"
	"github.com/relabs-tech/dsa_handheld/internal/orientation"
	"github.com/relabs-tech/dsa_handheld/internal/position"
	"github.com/relabs-tech/dsa_handheld/internal/scene"
)

const (
	sceneName       = "handheld"
	mockCompassRate = 100 * time.Millisecond
	shutdownTimeout = 5 * time.Second
)

// RunHandheld runs the handheld client: live location on the scene,
// point highlight, alert conditions and the web UI, until SIGINT/SIGTERM.
func RunHandheld() error {
	cfg := config.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDHandheld)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	// ---- Scene and live location ----
	view := scene.NewView(sceneName)
	provider := scene.NewViewProvider(view)

	display := location.NewDisplay()
	display.SetDefaultSymbol(scene.NewMarkerSceneSymbol(scene.MarkerCone, "blue", 8, 12, 8, scene.AnchorCenter))
	view.AppendOverlay(display.Overlay())
	defer display.Close()

	src, err := newPositionSource(cfg, client)
	if err != nil {
		return err
	}
	instrumentSource(cfg.PositionSource, src)
	display.SetPositionSource(src)
	defer src.StopUpdates()

	if compass := newCompass(cfg, client); compass != nil {
		display.SetCompass(compass)
		defer compass.Stop()
	}

	highlighter := highlight.New(provider, cfg.HighlightTick())
	defer highlighter.Close()
	display.OnLocationChanged(highlighter.OnPointChanged)

	// ---- Alert conditions ----
	sinks := []alerts.Sink{notify.NewMQTTSink(client, cfg.TopicAlerts)}
	if cfg.AMQPURL != "" {
		amqpSink, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPAlertExchange)
		if err != nil {
			return err
		}
		defer amqpSink.Close()
		sinks = append(sinks, amqpSink)
		log.Printf("handheld: publishing alerts to AMQP exchange %s", cfg.AMQPAlertExchange)
	}

	var store *alerts.Store
	if cfg.DatabaseURL != "" {
		pool, err := alerts.OpenPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = alerts.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	model := alerts.NewConditionListModel()
	conditions := NewConditionService(model, store)
	if n, err := conditions.Restore(ctx); err != nil {
		return fmt.Errorf("restore alert conditions: %w", err)
	} else if n > 0 {
		log.Printf("handheld: restored %d alert conditions", n)
	}

	evaluator := alerts.NewEvaluator(model, sinks...)
	evaluator.Attach(display)
	defer evaluator.Close()

	if err := subscribe(client, cfg.TopicAlertConditions, func(_ mqtt.Client, msg mqtt.Message) {
		if err := conditions.HandleDefinition(ctx, msg.Payload()); err != nil {
			log.Printf("handheld: condition definition rejected: %v", err)
		}
	}); err != nil {
		return err
	}
	log.Printf("handheld: accepting condition definitions on %s", cfg.TopicAlertConditions)

	// ---- Bus publishing and UI events ----
	publisher := newLocationPublisher(client, cfg.TopicLocation)
	display.OnHeadingChanged(publisher.onHeading)
	display.OnLocationChanged(publisher.onLocation)

	hub := NewHub()
	web := &WebServer{
		Display:     display,
		Provider:    provider,
		Highlighter: highlighter,
		Conditions:  conditions,
		Evaluator:   evaluator,
		Hub:         hub,
		StaticDir:   "web",
	}
	web.forwardEvents()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: web.Handler(),
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Printf("web server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if cfg.DisplayEnabled {
		go func() {
			if err := RunStatusDisplay(ctx, cfg.DisplayInterval(), func() StatusSnapshot {
				return StatusSnapshot{
					Started:  display.IsStarted(),
					Location: display.LastKnownLocation(),
					Heading:  display.Heading(),
					Alerts:   evaluator.ActiveAlerts(),
				}
			}); err != nil {
				log.Printf("display: %v", err)
			}
		}()
	}

	display.Start()
	log.Printf("handheld: location display started (source=%s, compass=%s)", cfg.PositionSource, cfg.CompassSource)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("web server: %w", err)
	}

	log.Println("handheld: shutting down")
	highlighter.StopHighlight()
	display.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// forwardEvents pushes display, alert and registry changes to web
// clients.
func (s *WebServer) forwardEvents() {
	s.Display.OnLocationChanged(func(geo.Point) {
		s.Hub.Broadcast(Event{Type: "location", Data: s.locationStatus()})
	})
	s.Display.OnHeadingChanged(func(h float64) {
		metrics.HeadingDegrees.Set(h)
		s.Hub.Broadcast(Event{Type: "heading", Data: h})
	})
	s.Evaluator.OnAlert(func(a alerts.Alert) {
		s.Hub.Broadcast(Event{Type: "alert", Data: a})
	})
	s.Conditions.Model().OnRowEvent(func(alerts.RowEvent) {
		s.Hub.Broadcast(Event{Type: "conditions", Data: s.Conditions.List()})
	})
}

func newPositionSource(cfg *config.Config, client mqtt.Client) (position.Source, error) {
	switch cfg.PositionSource {
	case config.PositionSourceSerial:
		return position.NewSerialSource(cfg.GPSSerialPort, cfg.GPSBaudRate), nil
	case config.PositionSourceGPX:
		points, err := position.LoadGPXFile(cfg.GPXFile)
		if err != nil {
			return nil, err
		}
		log.Printf("handheld: replaying %d track points from %s", len(points), cfg.GPXFile)
		return position.NewGPXSimulator(points, cfg.GPXInterval(), cfg.GPXReplayLoop), nil
	default:
		return position.NewMQTTSource(client, cfg.TopicGPS), nil
	}
}

func newCompass(cfg *config.Config, client mqtt.Client) orientation.Compass {
	switch cfg.CompassSource {
	case config.CompassSourceMQTT:
		return orientation.NewMQTTCompass(client, cfg.TopicPoseFused, orientation.PayloadPose)
	case config.CompassSourceMag:
		return orientation.NewMQTTCompass(client, cfg.TopicMag, orientation.PayloadMag)
	case config.CompassSourceMock:
		return orientation.NewMockCompass(mockCompassRate)
	default:
		return nil
	}
}

// instrumentSource counts updates and errors. These subscriptions live
// as long as the source.
func instrumentSource(name string, src position.Source) {
	src.OnUpdate(func(u position.Update) {
		status := "valid"
		if !u.Coordinate.IsValid() {
			status = "invalid"
		}
		metrics.LocationUpdatesTotal.WithLabelValues(name, status).Inc()
	})
	src.OnError(func(err error) {
		metrics.PositionErrorsTotal.WithLabelValues(name).Inc()
		log.Printf("handheld: position source error: %v", err)
	})
}
