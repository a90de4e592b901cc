// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gyro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gyro_computer/internal/analog"
)

// fakeSource is a scriptable accumulator channel. Configuration calls record
// what the driver programmed; reads return whatever the test staged.
type fakeSource struct {
	accumulator bool
	lsbWeight   float64

	averageBits    uint32
	oversampleBits uint32
	sampleRate     float64
	center         uint32
	deadband       int32

	value        int64
	count        uint32
	averageValue float64

	initCalls  int
	resetCalls int
	closed     bool
}

var _ analog.Source = (*fakeSource)(nil)

func newFakeSource() *fakeSource {
	return &fakeSource{accumulator: true, lsbWeight: 1.0}
}

func (f *fakeSource) IsAccumulatorChannel() bool { return f.accumulator }
func (f *fakeSource) SetAverageBits(bits uint32) { f.averageBits = bits }
func (f *fakeSource) SetOversampleBits(bits uint32) { f.oversampleBits = bits }
func (f *fakeSource) SetSampleRate(hz float64) { f.sampleRate = hz }
func (f *fakeSource) InitAccumulator() { f.initCalls++ }
func (f *fakeSource) ResetAccumulator() { f.resetCalls++ }
func (f *fakeSource) SetAccumulatorCenter(center uint32) { f.center = center }
func (f *fakeSource) SetAccumulatorDeadband(raw int32) { f.deadband = raw }
func (f *fakeSource) AccumulatorOutput() (int64, uint32) { return f.value, f.count }
func (f *fakeSource) AverageValue() float64 { return f.averageValue }
func (f *fakeSource) LSBWeight() float64 { return f.lsbWeight }
func (f *fakeSource) AverageBits() uint32 { return f.averageBits }
func (f *fakeSource) OversampleBits() uint32 { return f.oversampleBits }
func (f *fakeSource) SampleRate() float64 { return f.sampleRate }
func (f *fakeSource) Channel() int { return 0 }
func (f *fakeSource) Close() error { f.closed = true; return nil }

func TestCalibrateSplitsMeanIntoCenterAndOffset(t *testing.T) {
	f := newFakeSource()
	g := NewFromSource(f)
	require.NoError(t, g.Err())

	f.value = 1_000_400
	f.count = 2000 // mean 500.2
	g.SetCalibrationWindow(time.Millisecond)

	require.NoError(t, g.Calibrate())

	assert.Equal(t, uint32(500), g.Center())
	assert.InDelta(t, 0.2, g.Offset(), 1e-9)
	assert.Equal(t, uint32(500), f.center, "center must be programmed into the channel")
	assert.Equal(t, 1, f.initCalls)
	assert.Equal(t, 1, f.resetCalls, "accumulator must be cleared after the window")

	// center + offset reproduces the window mean
	assert.InDelta(t, 500.2, float64(g.Center())+g.Offset(), 1e-9)
}

func TestCalibrateRoundsCenterHalfUp(t *testing.T) {
	f := newFakeSource()
	g := NewFromSource(f)
	require.NoError(t, g.Err())

	f.value = 1001
	f.count = 2 // mean 500.5
	g.SetCalibrationWindow(time.Millisecond)

	require.NoError(t, g.Calibrate())

	assert.Equal(t, uint32(501), g.Center())
	assert.InDelta(t, -0.5, g.Offset(), 1e-9)
}

func TestCalibrateZeroSamplesFaults(t *testing.T) {
	f := newFakeSource()
	g := NewFromSource(f)
	require.NoError(t, g.Err())

	f.value = 12345
	f.count = 0
	g.SetCalibrationWindow(time.Millisecond)

	err := g.Calibrate()
	assert.ErrorIs(t, err, ErrCalibrationDegenerate)
	assert.ErrorIs(t, g.Err(), ErrCalibrationDegenerate)

	// faulted instance reads as an inert zero sensor
	f.value = 1_000_000_000
	f.count = 1000
	assert.Zero(t, g.Angle())
	assert.Zero(t, g.Rate())
}

func TestAngleScalesAccumulatorWithOffsetOnlyCorrection(t *testing.T) {
	f := newFakeSource()
	g := NewFromSourcePreset(f, 500, 0.2)
	require.NoError(t, g.Err())

	f.lsbWeight = 1000.0
	f.averageBits = 2
	f.sampleRate = 50000
	f.value = 1_000_000_000
	f.count = 1000
	g.SetSensitivity(0.007)

	// corrected = 1_000_000_000 - round(1000*0.2) = 999_999_800
	// angle = 999_999_800 * 1e-9 * 1000 * 4 / (50000 * 0.007)
	assert.InDelta(t, 11.4286, g.Angle(), 1e-3)
}

func TestAngleIsContinuousBeyondFullRotation(t *testing.T) {
	f := newFakeSource()
	g := NewFromSourcePreset(f, 0, 0)
	require.NoError(t, g.Err())

	// 1 V per LSB, unity scaling: angle in degrees equals the raw total
	f.lsbWeight = 1e9
	f.averageBits = 0
	f.sampleRate = 1
	g.SetSensitivity(1)

	f.value = 3 * 360
	f.count = 100

	assert.InDelta(t, 1080.0, g.Angle(), 1e-9, "three turns must not wrap into [0,360)")
}

func TestAngleZeroAfterReset(t *testing.T) {
	f := newFakeSource()
	g := NewFromSourcePreset(f, 500, 0.25)
	require.NoError(t, g.Err())

	g.Reset()
	f.value = 0
	f.count = 0

	assert.Zero(t, g.Angle())
}

func TestRateSubtractsFullBaseline(t *testing.T) {
	f := newFakeSource()
	g := NewFromSourcePreset(f, 500, 0.2)
	require.NoError(t, g.Err())

	f.lsbWeight = 1e9
	f.oversampleBits = 0
	f.averageValue = 600.7
	g.SetSensitivity(1)

	// (600.7 - (500 + 0.2)) * 1e-9 * 1e9 / (1 * 1)
	assert.InDelta(t, 100.5, g.Rate(), 1e-9)
}

func TestSetDeadbandMonotonic(t *testing.T) {
	f := newFakeSource()
	f.lsbWeight = 125000.0
	g := NewFromSource(f)
	require.NoError(t, g.Err())

	// initGyro programs a zero deadband
	assert.Equal(t, int32(0), f.deadband)

	prev := f.deadband
	for _, volts := range []float64{0.01, 0.05, 0.1} {
		g.SetDeadband(volts)
		assert.Greater(t, f.deadband, prev, "deadband must grow with the voltage threshold")
		prev = f.deadband
	}
}

func TestNilChannelFaults(t *testing.T) {
	g := NewFromSource(nil)

	assert.ErrorIs(t, g.Err(), ErrNilChannel)
	assert.Zero(t, g.Angle())
	assert.Zero(t, g.Rate())

	// no-ops, must not panic on the absent channel
	g.Reset()
	g.SetDeadband(0.1)
	assert.NoError(t, g.Close())

	require.Error(t, g.Calibrate())
}

func TestNonAccumulatorChannelFaults(t *testing.T) {
	f := newFakeSource()
	f.accumulator = false

	g := NewFromSource(f)

	assert.ErrorIs(t, g.Err(), ErrNotAccumulator)
	assert.Zero(t, g.Angle())
	assert.Equal(t, 0, f.initCalls, "faulted init must not touch the accumulator")
}

func TestPresetBypassesCalibrationWindow(t *testing.T) {
	f := newFakeSource()

	g := NewFromSourcePreset(f, 512, -0.125)
	require.NoError(t, g.Err())

	assert.Equal(t, 0, f.initCalls, "preset must not start a calibration window")
	assert.Equal(t, 1, f.resetCalls)
	assert.Equal(t, uint32(512), f.center, "preset center must be programmed immediately")
	assert.Equal(t, uint32(512), g.Center())
	assert.InDelta(t, -0.125, g.Offset(), 1e-9)
}

func TestCloseOnlyClosesOwnedChannel(t *testing.T) {
	f := newFakeSource()
	g := NewFromSource(f)
	require.NoError(t, g.Err())

	require.NoError(t, g.Close())
	assert.False(t, f.closed, "borrowed channels must never be closed")
}

type fakeTelemetry struct {
	registered []string
	reported   []string
}

func (ft *fakeTelemetry) RegisterSensor(name string, channel int) {
	ft.registered = append(ft.registered, name)
}

func (ft *fakeTelemetry) Report(resource string, channel int) {
	ft.reported = append(ft.reported, resource)
}

func TestInitReportsTelemetry(t *testing.T) {
	ft := &fakeTelemetry{}
	SetTelemetry(ft)
	defer SetTelemetry(nil)

	g := NewFromSource(newFakeSource())
	require.NoError(t, g.Err())

	assert.Equal(t, []string{"AnalogGyro"}, ft.registered)
	assert.Equal(t, []string{"gyro"}, ft.reported)
}
