// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gyro_computer/internal/analog"
	"github.com/relabs-tech/gyro_computer/internal/config"
	"github.com/relabs-tech/gyro_computer/internal/gyro"
	"github.com/relabs-tech/gyro_computer/internal/heading"
	"github.com/relabs-tech/gyro_computer/internal/telemetry"
)

// RunGyroProducer brings up the gyro, calibrates it (or applies a stored
// preset) and publishes heading readings to MQTT until the process dies.
func RunGyroProducer() error {
	log.Println("starting gyro-computer heading producer")

	cfg := config.Get()

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("connected to MQTT broker at %s", cfg.MQTTBroker)

	// Sensor registrations and usage reports ride the same connection.
	gyro.SetTelemetry(telemetry.New(client, cfg.TopicSensors, cfg.TopicUsage))

	g, err := BuildGyro(cfg)
	if err != nil {
		return err
	}
	defer g.Close()

	name := cfg.HeadingSensorName
	if name == "" {
		name = "gyro0"
	}

	log.Printf("gyro ready: center=%d offset=%.4f", g.Center(), g.Offset())

	// main tick
	ticker := time.NewTicker(time.Duration(cfg.HeadingPublishInterval) * time.Millisecond)
	defer ticker.Stop()

	for t := range ticker.C {
		h := heading.Heading{
			Source:   name,
			AngleDeg: g.Angle(),
			RateDeg:  g.Rate(),
			Time:     t.Format(time.RFC3339),
		}

		payload, err := json.Marshal(h)
		if err != nil {
			log.Printf("heading marshal error: %v", err)
			continue
		}

		if token := client.Publish(cfg.TopicHeading, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (%s): %v", cfg.TopicHeading, token.Error())
			continue
		}

		log.Printf("%s tick: angle=%8.2f° rate=%7.2f°/s", t.Format(time.RFC3339), h.AngleDeg, h.RateDeg)
	}
	return nil
}

// BuildGyro constructs the configured gyro: real ADS1115 channel or the
// simulated one, calibrated at startup unless a stored preset is configured.
func BuildGyro(cfg *config.Config) (*gyro.Gyro, error) {
	var preset *gyro.Preset
	if cfg.CalibrationPreset != "" {
		p, err := gyro.LoadPreset(cfg.CalibrationPreset)
		if err != nil {
			return nil, fmt.Errorf("calibration preset: %w", err)
		}
		preset = &p
		log.Printf("using calibration preset from %s (center=%d offset=%.4f)", cfg.CalibrationPreset, p.Center, p.Offset)
	}

	sensitivity := cfg.GyroSensitivity
	if sensitivity == 0 {
		sensitivity = gyro.DefaultVoltsPerDegreePerSecond
	}

	var g *gyro.Gyro
	switch cfg.GyroSource {
	case "sim":
		log.Println("using simulated gyro channel")
		ch := analog.NewSimChannel(cfg.ADCChannel, sensitivity)
		if preset != nil {
			g = gyro.NewFromSourcePreset(ch, preset.Center, preset.Offset)
		} else {
			g = gyro.NewFromSource(ch)
		}
	default:
		if preset != nil {
			g = gyro.NewPreset(cfg.ADCChannel, preset.Center, preset.Offset)
		} else {
			g = gyro.New(cfg.ADCChannel)
		}
	}
	if err := g.Err(); err != nil {
		return nil, err
	}

	g.SetSensitivity(sensitivity)
	if preset != nil && preset.VoltsPerDegreePerSecond > 0 {
		g.SetSensitivity(preset.VoltsPerDegreePerSecond)
	}

	if preset == nil {
		window := gyro.DefaultCalibrationWindow
		if cfg.CalibrationSeconds > 0 {
			window = time.Duration(cfg.CalibrationSeconds) * time.Second
		}
		g.SetCalibrationWindow(window)

		log.Printf("calibrating gyro over %s, keep the sensor still...", window)
		if err := g.Calibrate(); err != nil {
			return nil, fmt.Errorf("calibration: %w", err)
		}
	}

	if cfg.GyroDeadbandVolts > 0 {
		g.SetDeadband(cfg.GyroDeadbandVolts)
		log.Printf("gyro deadband set to %.4f V", cfg.GyroDeadbandVolts)
	}

	return g, nil
}
