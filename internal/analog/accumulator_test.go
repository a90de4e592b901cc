// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package analog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oneLSB samples a steady 125 µV, i.e. exactly one raw LSB at the ADS1115
// LSB weight.
func oneLSB() (float64, error) { return 0.000125, nil }

func newTestChannel() *AccumulatorChannel {
	ch := NewAccumulatorChannel(0, oneLSB, 125000.0)
	ch.SetOversampleBits(10)
	ch.SetSampleRate(1024000) // one oversampled sample per millisecond
	return ch
}

func TestAccumulatorSnapshotIsPaired(t *testing.T) {
	ch := newTestChannel()
	defer ch.Close()

	ch.InitAccumulator()
	time.Sleep(150 * time.Millisecond)

	value, count := ch.AccumulatorOutput()
	require.Greater(t, count, uint32(5), "sampling loop did not run")

	// Every accumulated sample is exactly raw<<10 = 1024 with a zero
	// center, so any mismatch here means the pair was torn.
	assert.Equal(t, int64(count)*1024, value)
}

func TestAccumulatorCenterSubtraction(t *testing.T) {
	ch := newTestChannel()
	defer ch.Close()

	ch.SetAccumulatorCenter(1024)
	ch.InitAccumulator()
	time.Sleep(100 * time.Millisecond)

	value, count := ch.AccumulatorOutput()
	require.Greater(t, count, uint32(0))
	assert.Zero(t, value, "center equal to the signal must accumulate zero")
}

func TestAccumulatorDeadbandExcludesSmallDeviations(t *testing.T) {
	ch := newTestChannel()
	defer ch.Close()

	ch.SetAccumulatorDeadband(2048) // deviation is 1024, below threshold
	ch.InitAccumulator()
	time.Sleep(100 * time.Millisecond)

	value, count := ch.AccumulatorOutput()
	assert.Zero(t, count)
	assert.Zero(t, value)

	ch.SetAccumulatorDeadband(1024) // deviation meets the threshold
	ch.ResetAccumulator()
	time.Sleep(100 * time.Millisecond)

	_, count = ch.AccumulatorOutput()
	assert.Greater(t, count, uint32(0))
}

func TestResetAccumulatorStartsSampling(t *testing.T) {
	ch := newTestChannel()
	defer ch.Close()

	// Preset constructors reset without ever calling InitAccumulator; the
	// loop must come up anyway.
	ch.ResetAccumulator()
	time.Sleep(100 * time.Millisecond)

	_, count := ch.AccumulatorOutput()
	assert.Greater(t, count, uint32(0))
}

func TestAverageValueTracksSignal(t *testing.T) {
	ch := newTestChannel()
	ch.SetAverageBits(2)
	defer ch.Close()

	ch.InitAccumulator()
	time.Sleep(100 * time.Millisecond)

	assert.InDelta(t, 1024.0, ch.AverageValue(), 1e-9)
}

func TestCloseStopsSampling(t *testing.T) {
	ch := newTestChannel()
	ch.InitAccumulator()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, ch.Close())

	value1, count1 := ch.AccumulatorOutput()
	time.Sleep(50 * time.Millisecond)
	value2, count2 := ch.AccumulatorOutput()

	assert.Equal(t, value1, value2)
	assert.Equal(t, count1, count2)
}

func TestSimSamplerAtRest(t *testing.T) {
	s := SimSampler(2.5, 0.007, func(time.Duration) float64 { return 0 })

	v, err := s()
	require.NoError(t, err)
	assert.InDelta(t, 2.5, v, 1e-9, "at rest the sim outputs the null voltage")
}
