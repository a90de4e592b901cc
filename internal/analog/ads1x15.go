// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package analog

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gyro_computer/internal/config"
)

// ADS1115 geometry at the ±4.096 V full-scale range used here: one LSB of the
// signed 16-bit conversion is 125 µV.
const (
	adsFullScale    = 4096 * physic.MilliVolt
	adsLSBNanovolts = 125000.0
	adsDataRate     = 860 * physic.Hertz // chip maximum
)

// NewADS1115Channel opens ADS1115 input channelID (0-3) over I2C and wraps it
// in a software accumulator. Bus name and device address come from the
// configuration.
func NewADS1115Channel(channelID int) (*AccumulatorChannel, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("ADC channel %d: periph host init: %w", channelID, err)
	}

	cfg := config.Get()

	bus, err := i2creg.Open(cfg.ADCI2CBus)
	if err != nil {
		return nil, fmt.Errorf("ADC channel %d: open I2C bus %q: %w", channelID, cfg.ADCI2CBus, err)
	}

	opts := ads1x15.DefaultOpts
	if cfg.ADCI2CAddr != 0 {
		opts.I2cAddress = cfg.ADCI2CAddr
	}

	adc, err := ads1x15.NewADS1115(bus, &opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("ADC channel %d: ADS1115 at 0x%02X: %w", channelID, opts.I2cAddress, err)
	}

	var ch ads1x15.Channel
	switch channelID {
	case 0:
		ch = ads1x15.Channel0
	case 1:
		ch = ads1x15.Channel1
	case 2:
		ch = ads1x15.Channel2
	case 3:
		ch = ads1x15.Channel3
	default:
		bus.Close()
		return nil, fmt.Errorf("ADC channel %d: ADS1115 has channels 0-3", channelID)
	}

	pin, err := adc.PinForChannel(ch, adsFullScale, adsDataRate, ads1x15.SaveEnergy)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("ADC channel %d: pin setup: %w", channelID, err)
	}

	log.Printf("ADC channel %d: ADS1115 ready on bus %q addr 0x%02X", channelID, cfg.ADCI2CBus, opts.I2cAddress)

	sampler := func() (float64, error) {
		s, err := pin.Read()
		if err != nil {
			return 0, fmt.Errorf("ADS1115 read: %w", err)
		}
		return float64(s.V) / float64(physic.Volt), nil
	}

	return NewAccumulatorChannel(channelID, sampler, adsLSBNanovolts, haltCloser{pin}, bus), nil
}

// haltCloser adapts periph's Halt to io.Closer so the pin is parked when the
// channel closes.
type haltCloser struct {
	h interface{ Halt() error }
}

func (h haltCloser) Close() error { return h.h.Halt() }
