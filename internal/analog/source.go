// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package analog

// Source is an analog input channel that can run in accumulating mode:
// it continuously sums center-corrected samples into a signed 64-bit total
// together with the number of samples that contributed to it.
//
// The (value, count) pair returned by AccumulatorOutput must be a consistent
// paired read. A torn read (value from one instant, count from another)
// corrupts any mean computed from it.
type Source interface {
	// IsAccumulatorChannel reports whether this channel supports
	// accumulating mode at all.
	IsAccumulatorChannel() bool

	// Sampling configuration.
	SetAverageBits(bits uint32)
	SetOversampleBits(bits uint32)
	SetSampleRate(hz float64)

	// InitAccumulator puts the channel into accumulating mode and clears
	// the running total. ResetAccumulator clears the total and count
	// without leaving accumulating mode.
	InitAccumulator()
	ResetAccumulator()

	// SetAccumulatorCenter sets the value subtracted from every sample
	// before it is added to the total.
	SetAccumulatorCenter(center uint32)

	// SetAccumulatorDeadband sets the minimum deviation from center, in
	// raw units, required before a sample contributes to the total.
	SetAccumulatorDeadband(raw int32)

	// AccumulatorOutput returns the running total and the number of
	// samples accumulated since the last reset, as one consistent pair.
	AccumulatorOutput() (value int64, count uint32)

	// AverageValue returns the current rolling average sample. This is a
	// smoothed instantaneous reading, separate from the accumulator
	// total, and is NOT center-corrected.
	AverageValue() float64

	// Channel geometry, used to scale raw units into volts.
	LSBWeight() float64 // nanovolts per least-significant bit
	AverageBits() uint32
	OversampleBits() uint32
	SampleRate() float64 // configured sample rate in Hz
	Channel() int

	Close() error
}
