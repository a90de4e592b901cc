// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDGPS      string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicHeading string
	TopicGPS     string
	TopicSensors string // retained sensor registrations, one subtopic per sensor
	TopicUsage   string // usage reports

	// Gyro source: "ads1115" for the real ADC, "sim" for the simulated channel
	GyroSource string

	// ADC hardware
	ADCI2CBus  string // empty = first available bus
	ADCI2CAddr uint16
	ADCChannel int

	// Gyro tuning. Zero values mean "use the driver defaults".
	GyroSensitivity    float64 // volts per degree per second
	GyroDeadbandVolts  float64
	CalibrationSeconds int
	CalibrationPreset  string // path to a preset JSON; empty = calibrate at startup
	HeadingSensorName  string

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Timing
	HeadingPublishInterval int // milliseconds

	// Web Server
	WebServerPort int

	// Display
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot access it directly.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access.
//
// External code must use InitGlobal() to set and Get() to read.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := &Config{}
	scanner := bufio.NewScanner(file)
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

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue assigns one KEY=VALUE pair to the matching field.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_HEADING":
		c.TopicHeading = value
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_SENSORS":
		c.TopicSensors = value
	case "TOPIC_USAGE":
		c.TopicUsage = value

	// Gyro source
	case "GYRO_SOURCE":
		if value != "ads1115" && value != "sim" {
			return fmt.Errorf("invalid GYRO_SOURCE %q (want ads1115 or sim)", value)
		}
		c.GyroSource = value

	// ADC hardware
	case "ADC_I2C_BUS":
		c.ADCI2CBus = value
	case "ADC_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid ADC_I2C_ADDR %q: %w", value, err)
		}
		c.ADCI2CAddr = uint16(addr)
	case "ADC_CHANNEL":
		ch, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ADC_CHANNEL %q: %w", value, err)
		}
		c.ADCChannel = ch

	// Gyro tuning
	case "GYRO_SENSITIVITY":
		s, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GYRO_SENSITIVITY %q: %w", value, err)
		}
		if s <= 0 {
			return fmt.Errorf("GYRO_SENSITIVITY must be positive, got %q", value)
		}
		c.GyroSensitivity = s
	case "GYRO_DEADBAND_VOLTS":
		d, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GYRO_DEADBAND_VOLTS %q: %w", value, err)
		}
		c.GyroDeadbandVolts = d
	case "CALIBRATION_SECONDS":
		s, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CALIBRATION_SECONDS %q: %w", value, err)
		}
		c.CalibrationSeconds = s
	case "CALIBRATION_PRESET":
		c.CalibrationPreset = value
	case "HEADING_SENSOR_NAME":
		c.HeadingSensorName = value

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Timing
	case "HEADING_PUBLISH_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid HEADING_PUBLISH_INTERVAL %q: %w", value, err)
		}
		c.HeadingPublishInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

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
	if c.TopicHeading == "" {
		return fmt.Errorf("TOPIC_HEADING is required")
	}
	if c.HeadingPublishInterval == 0 {
		return fmt.Errorf("HEADING_PUBLISH_INTERVAL is required")
	}
	if c.GyroSource == "" {
		return fmt.Errorf("GYRO_SOURCE is required")
	}
	if c.GyroSource == "ads1115" && c.ADCI2CAddr == 0 {
		return fmt.Errorf("ADC_I2C_ADDR is required when GYRO_SOURCE=ads1115")
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
