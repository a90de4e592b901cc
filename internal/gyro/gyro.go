// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gyro drives a single-axis analog rate gyro through an
// accumulator-capable analog channel. The channel continuously sums samples;
// calibration measures the at-rest mean and splits it into an integer center
// (programmed into the channel so samples are pre-biased toward zero) and a
// fractional offset (corrected in software). The accumulated, bias-corrected
// sum is then the time integral of the rotation rate, which scales directly
// into a continuous angle.
package gyro

import (
	"errors"
	"log"
	"math"
	"time"

	"github.com/relabs-tech/gyro_computer/internal/analog"
)

// Sampling parameters for the supported gyro class. The channel is run at
// SamplesPerSecond effective samples after oversampling and averaging.
const (
	OversampleBits   = 10
	AverageBits      = 0
	SamplesPerSecond = 50.0

	// DefaultVoltsPerDegreePerSecond matches common single-axis analog
	// gyros (e.g. ADXRS150 class); override per datasheet with
	// SetSensitivity.
	DefaultVoltsPerDegreePerSecond = 0.007

	// DefaultCalibrationWindow is how long Calibrate samples the channel
	// at rest to establish the baseline.
	DefaultCalibrationWindow = 5 * time.Second

	// settleTime lets the channel's sampling settle after reconfiguration
	// before the deadband and calibration touch it.
	settleTime = 100 * time.Millisecond
)

// Faults that permanently disable a Gyro instance. Once latched, every
// reading returns zero and configuration calls are no-ops; there is no
// recovery short of constructing a new instance.
var (
	ErrNilChannel            = errors.New("gyro: nil analog channel")
	ErrNotAccumulator        = errors.New("gyro: channel cannot run in accumulating mode")
	ErrCalibrationDegenerate = errors.New("gyro: calibration window produced no samples")
)

// Telemetry receives fire-and-forget notifications when a gyro comes up.
// Both calls are best-effort; the driver never consumes a result.
type Telemetry interface {
	RegisterSensor(name string, channel int)
	Report(resource string, channel int)
}

// telemetry is optional and process-wide, set once at startup before any
// gyro is constructed.
var telemetry Telemetry

// SetTelemetry installs the telemetry sink used by subsequently constructed
// gyros.
func SetTelemetry(t Telemetry) { telemetry = t }

// Gyro integrates an analog rate gyro into a continuous heading.
//
// The instance is single-threaded: callers interleaving readings and
// configuration from multiple goroutines must serialize access themselves.
// The underlying channel may be shared between instances; only an owned
// channel (one the constructor opened itself) is closed by Close.
type Gyro struct {
	channel analog.Source
	owned   bool

	center uint32  // integer baseline, subtracted in the channel itself
	offset float64 // fractional residue, corrected in software

	voltsPerDegreePerSecond float64
	calibrationWindow       time.Duration

	fault error
}

// New opens ADS1115 input channelID and builds a gyro that owns the channel.
// Construction faults (bad channel id, unreachable ADC) are latched on the
// returned instance rather than returned: check Err before trusting
// readings.
func New(channelID int) *Gyro {
	g := &Gyro{owned: true}
	ch, err := analog.NewADS1115Channel(channelID)
	if err != nil {
		log.Printf("gyro: channel %d unavailable: %v", channelID, err)
		g.fault = err
		return g
	}
	g.channel = ch
	g.initGyro()
	return g
}

// NewFromSource builds a gyro over an externally owned channel. The channel
// is borrowed: it is never closed by this instance, and callers sharing it
// across instances must serialize access.
func NewFromSource(src analog.Source) *Gyro {
	g := &Gyro{channel: src}
	g.initGyro()
	return g
}

// NewPreset opens ADS1115 input channelID and applies a previously measured
// calibration baseline instead of running the calibration window.
func NewPreset(channelID int, center uint32, offset float64) *Gyro {
	g := New(channelID)
	g.applyPreset(center, offset)
	return g
}

// NewFromSourcePreset builds a gyro over a borrowed channel with a
// previously measured calibration baseline, bypassing the calibration
// window.
func NewFromSourcePreset(src analog.Source, center uint32, offset float64) *Gyro {
	g := NewFromSource(src)
	g.applyPreset(center, offset)
	return g
}

// initGyro configures the channel for accumulating operation. Calibration is
// a separate step (Calibrate or a preset).
func (g *Gyro) initGyro() {
	if g.fault != nil {
		return
	}
	if g.channel == nil {
		g.fault = ErrNilChannel
		return
	}
	if !g.channel.IsAccumulatorChannel() {
		g.fault = ErrNotAccumulator
		g.channel = nil
		return
	}

	g.voltsPerDegreePerSecond = DefaultVoltsPerDegreePerSecond
	g.calibrationWindow = DefaultCalibrationWindow

	g.channel.SetAverageBits(AverageBits)
	g.channel.SetOversampleBits(OversampleBits)
	sampleRate := SamplesPerSecond * float64(uint64(1)<<(AverageBits+OversampleBits))
	g.channel.SetSampleRate(sampleRate)
	time.Sleep(settleTime)

	g.SetDeadband(0)

	if telemetry != nil {
		telemetry.RegisterSensor("AnalogGyro", g.channel.Channel())
		telemetry.Report("gyro", g.channel.Channel())
	}
}

func (g *Gyro) applyPreset(center uint32, offset float64) {
	if g.fault != nil {
		return
	}
	g.center = center
	g.offset = offset
	g.channel.SetAccumulatorCenter(center)
	g.channel.ResetAccumulator()
}

// Calibrate samples the channel at rest for the calibration window and
// splits the measured mean into the integer center and fractional offset.
// The accumulator is cleared on return so integration starts from zero. The
// gyro must be motionless for the whole window.
//
// A window that produces no samples has no defined mean; it latches
// ErrCalibrationDegenerate instead of poisoning center and offset.
func (g *Gyro) Calibrate() error {
	if g.fault != nil {
		return g.fault
	}

	g.channel.InitAccumulator()
	time.Sleep(g.calibrationWindow)

	value, count := g.channel.AccumulatorOutput()
	if count == 0 {
		g.fault = ErrCalibrationDegenerate
		return g.fault
	}

	mean := float64(value) / float64(count)
	g.center = uint32(math.Floor(mean + 0.5))
	g.offset = mean - float64(g.center)

	g.channel.SetAccumulatorCenter(g.center)
	g.channel.ResetAccumulator()
	return nil
}

// Reset zeroes the integrated angle. It does not recalibrate and does not
// clear a latched fault.
func (g *Gyro) Reset() {
	if g.fault != nil {
		return
	}
	g.channel.ResetAccumulator()
}

// Angle returns the integrated rotation in degrees since the last reset.
//
// The angle is continuous: it keeps counting through 360°→361° and beyond,
// so algorithms tracking heading never see a wrap discontinuity. Only the
// fractional offset is corrected here; the integer center is already
// subtracted inside the channel.
func (g *Gyro) Angle() float64 {
	if g.fault != nil {
		return 0
	}

	value, count := g.channel.AccumulatorOutput()
	corrected := value - int64(math.Round(float64(count)*g.offset))

	return float64(corrected) * 1e-9 * g.channel.LSBWeight() *
		float64(uint64(1)<<g.channel.AverageBits()) /
		(g.channel.SampleRate() * g.voltsPerDegreePerSecond)
}

// Rate returns the current rotation rate in degrees per second, from the
// channel's rolling average sample.
//
// Unlike Angle, the full center+offset baseline is subtracted: the averaged
// sample path does not pass through the channel's center subtraction, so it
// still carries the whole DC bias.
func (g *Gyro) Rate() float64 {
	if g.fault != nil {
		return 0
	}

	return (g.channel.AverageValue() - (float64(g.center) + g.offset)) * 1e-9 *
		g.channel.LSBWeight() /
		(float64(uint64(1)<<g.channel.OversampleBits()) * g.voltsPerDegreePerSecond)
}

// Offset returns the fractional calibration residue. Together with Center it
// can seed a preset constructor to skip the calibration window on the next
// start.
func (g *Gyro) Offset() float64 { return g.offset }

// Center returns the integer calibration baseline.
func (g *Gyro) Center() uint32 { return g.center }

// SetSensitivity sets the gyro sensitivity in volts per degree per second,
// as found in the sensor datasheet. Must be positive; angle and rate are
// undefined otherwise.
func (g *Gyro) SetSensitivity(voltsPerDegreePerSecond float64) {
	g.voltsPerDegreePerSecond = voltsPerDegreePerSecond
}

// SetCalibrationWindow overrides how long Calibrate samples the channel.
func (g *Gyro) SetCalibrationWindow(d time.Duration) {
	g.calibrationWindow = d
}

// SetDeadband sets the neutral zone around the calibration center, in volts.
// Samples deviating from center by less than this are dropped from the
// accumulator, which suppresses drift at rest at the cost of sensitivity to
// slow rotation.
func (g *Gyro) SetDeadband(volts float64) {
	if g.fault != nil {
		return
	}

	raw := int32(math.Round(volts * 1e9 / g.channel.LSBWeight() *
		float64(uint64(1)<<g.channel.OversampleBits())))
	g.channel.SetAccumulatorDeadband(raw)
}

// Err returns the latched fault, or nil if the gyro is healthy. A faulted
// gyro reads as an inert zero-output sensor for the rest of its lifetime.
func (g *Gyro) Err() error { return g.fault }

// Close releases the channel if this instance owns it. Borrowed channels are
// left untouched.
func (g *Gyro) Close() error {
	if !g.owned || g.channel == nil {
		return nil
	}
	return g.channel.Close()
}
