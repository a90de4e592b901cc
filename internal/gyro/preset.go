// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gyro

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Preset is a stored calibration baseline, written by cmd/calibration and
// consumed by the producer to skip the startup calibration window.
type Preset struct {
	SchemaVersion int    `json:"schema_version"`
	CalibratedAt  string `json:"calibrated_at"` // RFC3339
	Channel       int    `json:"channel"`

	Center uint32  `json:"center"`
	Offset float64 `json:"offset"`

	VoltsPerDegreePerSecond float64 `json:"volts_per_degree_per_second"`
}

const presetSchemaVersion = 1

// SavePreset writes p as JSON, creating parent directories as needed.
func SavePreset(path string, p Preset) error {
	p.SchemaVersion = presetSchemaVersion

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create preset directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write preset: %w", err)
	}
	return nil
}

// LoadPreset reads a preset written by SavePreset.
func LoadPreset(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, fmt.Errorf("read preset: %w", err)
	}

	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return Preset{}, fmt.Errorf("parse preset %s: %w", path, err)
	}
	if p.SchemaVersion != presetSchemaVersion {
		return Preset{}, fmt.Errorf("preset %s: unsupported schema version %d", path, p.SchemaVersion)
	}
	return p, nil
}
