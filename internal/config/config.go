package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Position sources.
const (
	PositionSourceMQTT   = "mqtt"
	PositionSourceSerial = "serial"
	PositionSourceGPX    = "gpx"
)

// Compass sources. "mag" derives heading from raw magnetometer samples.
const (
	CompassSourceMQTT = "mqtt"
	CompassSourceMag  = "mag"
	CompassSourceMock = "mock"
	CompassSourceNone = "none"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDHandheld string
	MQTTClientIDGPS      string
	MQTTClientIDConsole  string

	// Topics
	TopicGPS             string
	TopicPoseFused       string
	TopicMag             string
	TopicLocation        string
	TopicAlerts          string
	TopicAlertConditions string

	// Position
	PositionSource    string
	GPSSerialPort     string
	GPSBaudRate       int
	GPXFile           string
	GPXUpdateInterval int // milliseconds
	GPXReplayLoop     bool

	// Heading
	CompassSource string

	// Highlight
	HighlightTickInterval int // milliseconds

	// Web Server
	WebServerPort int

	// Display
	DisplayEnabled        bool
	DisplayUpdateInterval int // milliseconds

	// Persistence and messaging. Empty disables the component.
	DatabaseURL       string
	AMQPURL           string
	AMQPAlertExchange string
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages must go through Get().
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config with every optional value set.
func Default() *Config {
	return &Config{
		MQTTClientIDHandheld:  "dsa-handheld",
		MQTTClientIDGPS:       "dsa-gps-producer",
		MQTTClientIDConsole:   "dsa-console",
		TopicGPS:              "sensors/gps",
		TopicPoseFused:        "orientation/pose/fused",
		TopicMag:              "sensors/mag",
		TopicLocation:         "dsa/location",
		TopicAlerts:           "dsa/alerts",
		TopicAlertConditions:  "dsa/alerts/conditions",
		PositionSource:        PositionSourceMQTT,
		GPSBaudRate:           9600,
		GPXUpdateInterval:     1000,
		CompassSource:         CompassSourceMQTT,
		HighlightTickInterval: 10,
		WebServerPort:         8080,
		DisplayUpdateInterval: 500,
		AMQPAlertExchange:     "dsa.alerts",
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default(). Blank lines and lines
// starting with # are skipped.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parsePositiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error

	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_HANDHELD":
		c.MQTTClientIDHandheld = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value

	// Topics
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_POSE_FUSED":
		c.TopicPoseFused = value
	case "TOPIC_MAG":
		c.TopicMag = value
	case "TOPIC_LOCATION":
		c.TopicLocation = value
	case "TOPIC_ALERTS":
		c.TopicAlerts = value
	case "TOPIC_ALERT_CONDITIONS":
		c.TopicAlertConditions = value

	// Position
	case "POSITION_SOURCE":
		switch v := strings.ToLower(value); v {
		case PositionSourceMQTT, PositionSourceSerial, PositionSourceGPX:
			c.PositionSource = v
		default:
			return fmt.Errorf("POSITION_SOURCE must be mqtt, serial or gpx, got %q", value)
		}
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = parsePositiveInt(key, value)
	case "GPX_FILE":
		c.GPXFile = value
	case "GPX_UPDATE_INTERVAL":
		c.GPXUpdateInterval, err = parsePositiveInt(key, value)
	case "GPX_REPLAY_LOOP":
		c.GPXReplayLoop, err = parseBool(key, value)

	// Heading
	case "COMPASS_SOURCE":
		switch v := strings.ToLower(value); v {
		case CompassSourceMQTT, CompassSourceMag, CompassSourceMock, CompassSourceNone:
			c.CompassSource = v
		default:
			return fmt.Errorf("COMPASS_SOURCE must be mqtt, mag, mock or none, got %q", value)
		}

	// Highlight
	case "HIGHLIGHT_TICK_INTERVAL":
		c.HighlightTickInterval, err = parsePositiveInt(key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		port, perr := strconv.Atoi(value)
		if perr != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, perr)
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", port)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_ENABLED":
		c.DisplayEnabled, err = parseBool(key, value)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parsePositiveInt(key, value)

	// Persistence and messaging
	case "DATABASE_URL":
		c.DatabaseURL = value
	case "AMQP_URL":
		c.AMQPURL = value
	case "AMQP_ALERT_EXCHANGE":
		c.AMQPAlertExchange = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	switch c.PositionSource {
	case PositionSourceSerial:
		if c.GPSSerialPort == "" {
			return fmt.Errorf("GPS_SERIAL_PORT is required when POSITION_SOURCE=serial")
		}
	case PositionSourceGPX:
		if c.GPXFile == "" {
			return fmt.Errorf("GPX_FILE is required when POSITION_SOURCE=gpx")
		}
	}
	return nil
}

// GPXInterval is GPX_UPDATE_INTERVAL as a duration.
func (c *Config) GPXInterval() time.Duration {
	return time.Duration(c.GPXUpdateInterval) * time.Millisecond
}

// HighlightTick is HIGHLIGHT_TICK_INTERVAL as a duration.
func (c *Config) HighlightTick() time.Duration {
	return time.Duration(c.HighlightTickInterval) * time.Millisecond
}

// DisplayInterval is DISPLAY_UPDATE_INTERVAL as a duration.
func (c *Config) DisplayInterval() time.Duration {
	return time.Duration(c.DisplayUpdateInterval) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
