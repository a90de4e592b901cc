// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package analog

import (
	"math"
	"time"
)

// SimSampler returns a Sampler that behaves like an analog rate gyro with the
// given null voltage and sensitivity, rotating at rateDeg(elapsed) °/s.
// Useful for developing the pipeline without hardware.
func SimSampler(biasVolts, voltsPerDegreePerSecond float64, rateDeg func(elapsed time.Duration) float64) Sampler {
	start := time.Now()
	return func() (float64, error) {
		return biasVolts + rateDeg(time.Since(start))*voltsPerDegreePerSecond, nil
	}
}

// SwayRate is a smooth back-and-forth rotation profile for the simulated
// channel, peaking at ±20 °/s.
func SwayRate(elapsed time.Duration) float64 {
	return 20 * math.Sin(elapsed.Seconds())
}

// NewSimChannel builds an accumulator channel over a simulated gyro swaying
// back and forth around a 2.5 V null.
func NewSimChannel(channelID int, voltsPerDegreePerSecond float64) *AccumulatorChannel {
	return NewAccumulatorChannel(channelID, SimSampler(2.5, voltsPerDegreePerSecond, SwayRate), adsLSBNanovolts)
}
