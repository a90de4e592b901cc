package gyro

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration", "gyro.json")

	in := Preset{
		CalibratedAt:            "2026-08-30T12:00:00Z",
		Channel:                 1,
		Center:                  20013,
		Offset:                  -0.3125,
		VoltsPerDegreePerSecond: 0.0125,
	}
	require.NoError(t, SavePreset(path, in))

	out, err := LoadPreset(path)
	require.NoError(t, err)

	assert.Equal(t, presetSchemaVersion, out.SchemaVersion)
	assert.Equal(t, in.Channel, out.Channel)
	assert.Equal(t, in.Center, out.Center)
	assert.InDelta(t, in.Offset, out.Offset, 1e-12)
	assert.InDelta(t, in.VoltsPerDegreePerSecond, out.VoltsPerDegreePerSecond, 1e-12)
}

func TestLoadPresetMissingFile(t *testing.T) {
	_, err := LoadPreset(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadPresetRejectsUnknownSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gyro.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version": 99}`), 0o644))

	_, err := LoadPreset(path)
	assert.ErrorContains(t, err, "schema version")
}
