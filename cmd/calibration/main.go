// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// ./cmd/calibration/main.go
//
// One-shot gyro calibration. Runs the calibration window against the
// configured analog channel with the sensor held still, prints the resulting
// center/offset baseline, and writes it as a JSON preset. Point
// CALIBRATION_PRESET at the written file to skip the startup window in the
// producer.
//
// Run:
//
//	go run ./cmd/calibration -out ./calibration/gyro.json
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/gyro_computer/internal/analog"
	"github.com/relabs-tech/gyro_computer/internal/config"
	"github.com/relabs-tech/gyro_computer/internal/gyro"
)

func main() {
	configPath := flag.String("config", "./gyro_config.txt", "path to configuration file")
	outPath := flag.String("out", "./calibration/gyro.json", "where to write the calibration preset")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	var g *gyro.Gyro
	if cfg.GyroSource == "sim" {
		sensitivity := cfg.GyroSensitivity
		if sensitivity == 0 {
			sensitivity = gyro.DefaultVoltsPerDegreePerSecond
		}
		g = gyro.NewFromSource(analog.NewSimChannel(cfg.ADCChannel, sensitivity))
	} else {
		g = gyro.New(cfg.ADCChannel)
	}
	if err := g.Err(); err != nil {
		log.Fatalf("gyro setup: %v", err)
	}
	defer g.Close()

	if cfg.GyroSensitivity > 0 {
		g.SetSensitivity(cfg.GyroSensitivity)
	}

	window := gyro.DefaultCalibrationWindow
	if cfg.CalibrationSeconds > 0 {
		window = time.Duration(cfg.CalibrationSeconds) * time.Second
	}
	g.SetCalibrationWindow(window)

	fmt.Printf("Calibrating channel %d over %s. Keep the sensor completely still.\n", cfg.ADCChannel, window)

	if err := g.Calibrate(); err != nil {
		log.Fatalf("calibration failed: %v", err)
	}

	fmt.Printf("Calibration complete:\n")
	fmt.Printf("  center = %d\n", g.Center())
	fmt.Printf("  offset = %.6f\n", g.Offset())

	sensitivity := cfg.GyroSensitivity
	if sensitivity == 0 {
		sensitivity = gyro.DefaultVoltsPerDegreePerSecond
	}

	preset := gyro.Preset{
		CalibratedAt:            time.Now().Format(time.RFC3339),
		Channel:                 cfg.ADCChannel,
		Center:                  g.Center(),
		Offset:                  g.Offset(),
		VoltsPerDegreePerSecond: sensitivity,
	}

	if err := gyro.SavePreset(*outPath, preset); err != nil {
		log.Fatalf("failed to write preset: %v", err)
	}
	fmt.Printf("Preset written to %s\n", *outPath)
}
