// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package analog

import (
	"io"
	"log"
	"math"
	"sync"
	"time"
)

// Sampler reads one instantaneous conversion from the underlying ADC and
// returns it in volts.
type Sampler func() (float64, error)

// AccumulatorChannel turns a plain one-shot ADC into an accumulator-capable
// channel. ADCs like the ADS1115 have no on-chip accumulator, so a background
// loop performs the center subtraction, deadband filtering and summing in
// software, at the effective oversampled-sample rate
// (sampleRate / 2^oversampleBits).
//
// One ADC conversion is taken per accumulated sample and scaled by
// 2^oversampleBits to stand in for the full oversample sum; for a signal that
// is steady across one oversample window the two are equal.
type AccumulatorChannel struct {
	channel   int
	sampler   Sampler
	lsbWeight float64 // nanovolts per bit
	closers   []io.Closer

	mu             sync.Mutex
	averageBits    uint32
	oversampleBits uint32
	sampleRate     float64
	center         uint32
	deadband       int32
	value          int64
	count          uint32
	avgWindow      []int64 // ring of recent oversampled samples
	avgNext        int
	avgFill        int

	running bool
	stop    chan struct{}
	done    chan struct{}
}

// The sampling loop cannot tick faster than this; the configured sample rate
// only enters the angle math, it does not speed up a software loop.
const minTick = time.Millisecond

// NewAccumulatorChannel wraps sampler in a software accumulator.
// lsbWeightNanovolts is the voltage of one raw LSB in nanovolts. Any closers
// are closed along with the channel.
func NewAccumulatorChannel(channel int, sampler Sampler, lsbWeightNanovolts float64, closers ...io.Closer) *AccumulatorChannel {
	return &AccumulatorChannel{
		channel:    channel,
		sampler:    sampler,
		lsbWeight:  lsbWeightNanovolts,
		closers:    closers,
		sampleRate: 1000,
		avgWindow:  make([]int64, 1),
	}
}

// IsAccumulatorChannel reports whether the channel can accumulate. True for
// every software-backed channel with a working sampler.
func (c *AccumulatorChannel) IsAccumulatorChannel() bool { return c.sampler != nil }

func (c *AccumulatorChannel) SetAverageBits(bits uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.averageBits = bits
	c.avgWindow = make([]int64, 1<<bits)
	c.avgNext = 0
	c.avgFill = 0
}

func (c *AccumulatorChannel) SetOversampleBits(bits uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.oversampleBits = bits
}

func (c *AccumulatorChannel) SetSampleRate(hz float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sampleRate = hz
}

// InitAccumulator clears the running total and starts the sampling loop if it
// is not already running.
func (c *AccumulatorChannel) InitAccumulator() {
	c.clearAndEnsureRunning()
}

// ResetAccumulator clears the running total and count. Like the hardware it
// stands in for, the channel keeps sampling across resets, so this also
// starts the loop when a caller skips InitAccumulator (calibration presets).
func (c *AccumulatorChannel) ResetAccumulator() {
	c.clearAndEnsureRunning()
}

func (c *AccumulatorChannel) clearAndEnsureRunning() {
	c.mu.Lock()
	c.value = 0
	c.count = 0
	start := !c.running
	if start {
		c.running = true
		c.stop = make(chan struct{})
		c.done = make(chan struct{})
	}
	c.mu.Unlock()

	if start {
		go c.run()
	}
}

func (c *AccumulatorChannel) SetAccumulatorCenter(center uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.center = center
}

func (c *AccumulatorChannel) SetAccumulatorDeadband(raw int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadband = raw
}

// AccumulatorOutput returns the running total and sample count as one
// consistent pair.
func (c *AccumulatorChannel) AccumulatorOutput() (int64, uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.count
}

// AverageValue returns the mean of the most recent 2^averageBits oversampled
// samples, without center correction.
func (c *AccumulatorChannel) AverageValue() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.avgFill == 0 {
		return 0
	}
	var sum int64
	for i := 0; i < c.avgFill; i++ {
		sum += c.avgWindow[i]
	}
	return float64(sum) / float64(c.avgFill)
}

func (c *AccumulatorChannel) LSBWeight() float64 { return c.lsbWeight }
func (c *AccumulatorChannel) Channel() int       { return c.channel }

func (c *AccumulatorChannel) AverageBits() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.averageBits
}

func (c *AccumulatorChannel) OversampleBits() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.oversampleBits
}

func (c *AccumulatorChannel) SampleRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sampleRate
}

// Close stops the sampling loop and closes the underlying device handles.
func (c *AccumulatorChannel) Close() error {
	c.mu.Lock()
	running := c.running
	c.running = false
	c.mu.Unlock()

	if running {
		close(c.stop)
		<-c.done
	}

	var firstErr error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// tick returns the current loop period: one oversampled sample per tick.
func (c *AccumulatorChannel) tick() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sampleRate <= 0 {
		return minTick
	}
	d := time.Duration(float64(uint64(1)<<c.oversampleBits) / c.sampleRate * float64(time.Second))
	if d < minTick {
		d = minTick
	}
	return d
}

func (c *AccumulatorChannel) run() {
	defer close(c.done)

	timer := time.NewTimer(c.tick())
	defer timer.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-timer.C:
		}
		timer.Reset(c.tick())

		volts, err := c.sampler()
		if err != nil {
			log.Printf("analog: channel %d sample error: %v", c.channel, err)
			continue
		}

		c.mu.Lock()
		raw := int64(math.Round(volts * 1e9 / c.lsbWeight))
		over := raw << c.oversampleBits

		c.avgWindow[c.avgNext] = over
		c.avgNext = (c.avgNext + 1) % len(c.avgWindow)
		if c.avgFill < len(c.avgWindow) {
			c.avgFill++
		}

		d := over - int64(c.center)
		if abs64(d) >= int64(c.deadband) {
			c.value += d
			c.count++
		}
		c.mu.Unlock()
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
