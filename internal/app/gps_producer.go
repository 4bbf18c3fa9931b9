package app

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/dsa_handheld/internal/config"
	"github.com/relabs-tech/dsa_handheld/internal/gps"
)

// RunGPSProducer opens the GPS serial port, parses NMEA sentences, and
// publishes combined GPS fixes as JSON on TOPIC_GPS. Handhelds running
// with POSITION_SOURCE=mqtt consume these.
func RunGPSProducer() error {
	cfg := config.Get()
	if cfg.GPSSerialPort == "" {
		return fmt.Errorf("GPS_SERIAL_PORT is required for the GPS producer")
	}

	// ---- 1) Connect to MQTT broker ----
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDGPS)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	// ---- 2) Open GPS serial port ----
	serialOpts := serial.OpenOptions{
		PortName:              cfg.GPSSerialPort,
		BaudRate:              uint(cfg.GPSBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return fmt.Errorf("open %s: %w", serialOpts.PortName, err)
	}
	defer port.Close()
	log.Printf("GPS serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	reader := bufio.NewReader(port)

	// RMC completes a fix; GGA adds altitude so the handheld gets 3-D points.
	var acc gps.Accumulator

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("gps read: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// noisy GPS or partial sentences
			continue
		}

		fix, complete := acc.Apply(sentence)
		if !complete {
			continue
		}

		payload, err := json.Marshal(fix)
		if err != nil {
			log.Printf("GPS JSON marshal error: %v", err)
			continue
		}

		token := client.Publish(cfg.TopicGPS, 0, true, payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("GPS publish error: %v", token.Error())
			continue
		}

		log.Printf("published GPS fix: lat=%.6f lon=%.6f alt=%.1f valid=%v", fix.Latitude, fix.Longitude, fix.Altitude, fix.Valid())
	}
}
