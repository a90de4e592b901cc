package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gyro_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `# gyro-computer test config
MQTT_BROKER=tcp://localhost:1883
TOPIC_HEADING=gyro/heading
HEADING_PUBLISH_INTERVAL=100

GYRO_SOURCE=sim
ADC_CHANNEL=1
GYRO_SENSITIVITY=0.007
GYRO_DEADBAND_VOLTS=0.005
CALIBRATION_SECONDS=5
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, "gyro/heading", cfg.TopicHeading)
	assert.Equal(t, 100, cfg.HeadingPublishInterval)
	assert.Equal(t, "sim", cfg.GyroSource)
	assert.Equal(t, 1, cfg.ADCChannel)
	assert.InDelta(t, 0.007, cfg.GyroSensitivity, 1e-9)
	assert.InDelta(t, 0.005, cfg.GyroDeadbandVolts, 1e-9)
	assert.Equal(t, 5, cfg.CalibrationSeconds)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, validConfig+"NO_SUCH_KEY=1\n"))
	assert.ErrorContains(t, err, "unknown config key")
}

func TestLoadRejectsBadGyroSource(t *testing.T) {
	_, err := Load(writeConfig(t, "GYRO_SOURCE=mpu9250\n"))
	assert.ErrorContains(t, err, "GYRO_SOURCE")
}

func TestLoadRejectsNonPositiveSensitivity(t *testing.T) {
	_, err := Load(writeConfig(t, validConfig+"GYRO_SENSITIVITY=0\n"))
	assert.ErrorContains(t, err, "GYRO_SENSITIVITY")
}

func TestValidateRequiresBroker(t *testing.T) {
	_, err := Load(writeConfig(t, "TOPIC_HEADING=gyro/heading\nHEADING_PUBLISH_INTERVAL=100\nGYRO_SOURCE=sim\n"))
	assert.ErrorContains(t, err, "MQTT_BROKER")
}

func TestValidateRequiresADCAddressForHardwareSource(t *testing.T) {
	cfgText := `MQTT_BROKER=tcp://localhost:1883
TOPIC_HEADING=gyro/heading
HEADING_PUBLISH_INTERVAL=100
GYRO_SOURCE=ads1115
`
	_, err := Load(writeConfig(t, cfgText))
	assert.ErrorContains(t, err, "ADC_I2C_ADDR")
}
