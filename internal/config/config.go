// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Origin modes.
const (
	OriginFixed = "fixed" // ORIGIN_LAT / ORIGIN_LON
	OriginTopic = "topic" // first fix published on TOPIC_ORIGIN
	OriginAuto  = "auto"  // first valid fix on the fix stream
)

// Fix sources.
const (
	SourceMQTT   = "mqtt"
	SourceSerial = "serial"
	SourceReplay = "replay"
)

// Config holds all application configuration values. The yaml tags use the
// same keys as the KEY=VALUE format.
type Config struct {
	// MQTT
	MQTTBroker          string `yaml:"MQTT_BROKER"`
	MQTTClientIDMonitor string `yaml:"MQTT_CLIENT_ID_MONITOR"`
	MQTTClientIDGPS     string `yaml:"MQTT_CLIENT_ID_GPS"`
	MQTTClientIDConsole string `yaml:"MQTT_CLIENT_ID_CONSOLE"`
	MQTTClientIDDisplay string `yaml:"MQTT_CLIENT_ID_DISPLAY"`

	// Topics
	TopicGPS     string `yaml:"TOPIC_GPS"`
	TopicZone    string `yaml:"TOPIC_ZONE"`
	TopicOrigin  string `yaml:"TOPIC_ORIGIN"`
	TopicDataset string `yaml:"TOPIC_DATASET"`

	// Zone dataset
	DatasetPath    string  `yaml:"DATASET_PATH"`
	NameField      string  `yaml:"NAME_FIELD"`
	AltNameField   string  `yaml:"ALT_NAME_FIELD"`
	GeometryField  string  `yaml:"GEOMETRY_FIELD"`
	DriftThreshold float64 `yaml:"DRIFT_THRESHOLD"` // fraction of skipped pairs, 0-1

	// Local frame
	OriginMode string  `yaml:"ORIGIN_MODE"` // fixed, topic, auto
	OriginLat  float64 `yaml:"ORIGIN_LAT"`
	OriginLon  float64 `yaml:"ORIGIN_LON"`

	// Fix input
	FixSource      string `yaml:"FIX_SOURCE"` // mqtt, serial, replay
	GPSSerialPort  string `yaml:"GPS_SERIAL_PORT"`
	GPSBaudRate    int    `yaml:"GPS_BAUD_RATE"`
	ReplayFile     string `yaml:"REPLAY_FILE"`
	ReplayInterval int    `yaml:"REPLAY_INTERVAL"` // milliseconds between replayed fixes
	FixQueueSize   int    `yaml:"FIX_QUEUE_SIZE"`

	// Web Server
	WebServerPort int `yaml:"WEB_SERVER_PORT"` // 0 disables the server

	// Display
	DisplayI2CBus         string `yaml:"DISPLAY_I2C_BUS"`         // empty disables the OLED
	DisplayUpdateInterval int    `yaml:"DISPLAY_UPDATE_INTERVAL"` // milliseconds

	// Mock producer
	MockRadiusM  float64 `yaml:"MOCK_RADIUS_M"`
	MockInterval int     `yaml:"MOCK_INTERVAL"` // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Defaults returns a Config with every optional key filled in.
func Defaults() *Config {
	return &Config{
		MQTTClientIDMonitor:   "zone-monitor",
		MQTTClientIDGPS:       "zone-gps-producer",
		MQTTClientIDConsole:   "zone-console",
		MQTTClientIDDisplay:   "zone-display",
		TopicGPS:              "zone_tracker/gps",
		TopicZone:             "zone_tracker/zone",
		TopicOrigin:           "zone_tracker/origin",
		TopicDataset:          "zone_tracker/dataset",
		NameField:             "NAME",
		AltNameField:          "ALT_NAME",
		GeometryField:         "WKT",
		DriftThreshold:        0.1,
		OriginMode:            OriginAuto,
		FixSource:             SourceMQTT,
		GPSSerialPort:         "/dev/serial0",
		GPSBaudRate:           9600,
		ReplayInterval:        1000,
		FixQueueSize:          64,
		WebServerPort:         8080,
		DisplayUpdateInterval: 500,
		MockRadiusM:           50,
		MockInterval:          1000,
	}
}

// Load reads the configuration file and returns a Config struct. Files
// ending in .yaml or .yml are decoded as YAML, everything else as
// KEY=VALUE lines.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	cfg := Defaults()
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		err = cfg.decodeYAML(data)
	default:
		err = cfg.decodeText(data)
	}
	if err != nil {
		return nil, err
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) decodeText(data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
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
			return fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := c.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func (c *Config) decodeYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_MONITOR":
		c.MQTTClientIDMonitor = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_ZONE":
		c.TopicZone = value
	case "TOPIC_ORIGIN":
		c.TopicOrigin = value
	case "TOPIC_DATASET":
		c.TopicDataset = value

	// Zone dataset
	case "DATASET_PATH":
		c.DatasetPath = value
	case "NAME_FIELD":
		c.NameField = value
	case "ALT_NAME_FIELD":
		c.AltNameField = value
	case "GEOMETRY_FIELD":
		c.GeometryField = value
	case "DRIFT_THRESHOLD":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid DRIFT_THRESHOLD %q: %w", value, err)
		}
		c.DriftThreshold = val

	// Local frame
	case "ORIGIN_MODE":
		c.OriginMode = strings.ToLower(value)
	case "ORIGIN_LAT":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ORIGIN_LAT %q: %w", value, err)
		}
		c.OriginLat = val
	case "ORIGIN_LON":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ORIGIN_LON %q: %w", value, err)
		}
		c.OriginLon = val

	// Fix input
	case "FIX_SOURCE":
		c.FixSource = strings.ToLower(value)
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate
	case "REPLAY_FILE":
		c.ReplayFile = value
	case "REPLAY_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid REPLAY_INTERVAL %q: %w", value, err)
		}
		c.ReplayInterval = interval
	case "FIX_QUEUE_SIZE":
		size, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid FIX_QUEUE_SIZE %q: %w", value, err)
		}
		c.FixQueueSize = size

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	// Mock producer
	case "MOCK_RADIUS_M":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid MOCK_RADIUS_M %q: %w", value, err)
		}
		c.MockRadiusM = val
	case "MOCK_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOCK_INTERVAL %q: %w", value, err)
		}
		c.MockInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.DriftThreshold <= 0 || c.DriftThreshold > 1 {
		return fmt.Errorf("DRIFT_THRESHOLD must be in (0, 1], got %g", c.DriftThreshold)
	}
	switch c.OriginMode {
	case OriginFixed:
		if c.OriginLat < -90 || c.OriginLat > 90 || c.OriginLon < -180 || c.OriginLon > 180 {
			return fmt.Errorf("ORIGIN_LAT/ORIGIN_LON out of range: %g,%g", c.OriginLat, c.OriginLon)
		}
	case OriginTopic:
		if c.TopicOrigin == "" {
			return fmt.Errorf("TOPIC_ORIGIN is required when ORIGIN_MODE=topic")
		}
	case OriginAuto:
	default:
		return fmt.Errorf("ORIGIN_MODE must be fixed, topic or auto, got %q", c.OriginMode)
	}
	switch c.FixSource {
	case SourceMQTT:
		if c.TopicGPS == "" {
			return fmt.Errorf("TOPIC_GPS is required when FIX_SOURCE=mqtt")
		}
	case SourceSerial:
		if c.GPSSerialPort == "" {
			return fmt.Errorf("GPS_SERIAL_PORT is required when FIX_SOURCE=serial")
		}
		if c.GPSBaudRate <= 0 {
			return fmt.Errorf("GPS_BAUD_RATE is required when FIX_SOURCE=serial")
		}
	case SourceReplay:
		if c.ReplayFile == "" {
			return fmt.Errorf("REPLAY_FILE is required when FIX_SOURCE=replay")
		}
	default:
		return fmt.Errorf("FIX_SOURCE must be mqtt, serial or replay, got %q", c.FixSource)
	}
	if c.FixQueueSize <= 0 {
		return fmt.Errorf("FIX_QUEUE_SIZE must be positive, got %d", c.FixQueueSize)
	}
	return nil
}

// pairs lists every key in file order with its current value.
func (c *Config) pairs() [][2]string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	i := strconv.Itoa
	return [][2]string{
		{"MQTT_BROKER", c.MQTTBroker},
		{"MQTT_CLIENT_ID_MONITOR", c.MQTTClientIDMonitor},
		{"MQTT_CLIENT_ID_GPS", c.MQTTClientIDGPS},
		{"MQTT_CLIENT_ID_CONSOLE", c.MQTTClientIDConsole},
		{"MQTT_CLIENT_ID_DISPLAY", c.MQTTClientIDDisplay},
		{"TOPIC_GPS", c.TopicGPS},
		{"TOPIC_ZONE", c.TopicZone},
		{"TOPIC_ORIGIN", c.TopicOrigin},
		{"TOPIC_DATASET", c.TopicDataset},
		{"DATASET_PATH", c.DatasetPath},
		{"NAME_FIELD", c.NameField},
		{"ALT_NAME_FIELD", c.AltNameField},
		{"GEOMETRY_FIELD", c.GeometryField},
		{"DRIFT_THRESHOLD", f(c.DriftThreshold)},
		{"ORIGIN_MODE", c.OriginMode},
		{"ORIGIN_LAT", f(c.OriginLat)},
		{"ORIGIN_LON", f(c.OriginLon)},
		{"FIX_SOURCE", c.FixSource},
		{"GPS_SERIAL_PORT", c.GPSSerialPort},
		{"GPS_BAUD_RATE", i(c.GPSBaudRate)},
		{"REPLAY_FILE", c.ReplayFile},
		{"REPLAY_INTERVAL", i(c.ReplayInterval)},
		{"FIX_QUEUE_SIZE", i(c.FixQueueSize)},
		{"WEB_SERVER_PORT", i(c.WebServerPort)},
		{"DISPLAY_I2C_BUS", c.DisplayI2CBus},
		{"DISPLAY_UPDATE_INTERVAL", i(c.DisplayUpdateInterval)},
		{"MOCK_RADIUS_M", f(c.MockRadiusM)},
		{"MOCK_INTERVAL", i(c.MockInterval)},
	}
}

// Save writes the configuration back to path in the format its extension
// selects. Empty string values are written as comments.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
	default:
		buf.WriteString("# zone_tracker configuration\n")
		for _, kv := range c.pairs() {
			if kv[1] == "" {
				fmt.Fprintf(&buf, "# %s=\n", kv[0])
				continue
			}
			fmt.Fprintf(&buf, "%s=%s\n", kv[0], kv[1])
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
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

// Update applies fn to a copy of the global configuration and installs the
// copy. It is used when the dataset path or a topic changes at runtime.
func Update(fn func(c *Config)) *Config {
	configMu.Lock()
	defer configMu.Unlock()
	next := Defaults()
	if globalConfig != nil {
		*next = *globalConfig
	}
	fn(next)
	globalConfig = next
	return next
}
