// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"image"
	"log"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
)

// SSD1306 is an OLED panel on I2C. host.Init must have been called.
type SSD1306 struct {
	*Frame
	bus i2c.BusCloser
	dev *ssd1306.Dev
}

// OpenSSD1306 opens the named I2C bus ("" for the default) and the panel on it.
func OpenSSD1306(busName string) (*SSD1306, error) {
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: SSD1306 initialized on %s", bus)
	return &SSD1306{Frame: NewFrame(), bus: bus, dev: dev}, nil
}

// Update pushes the canvas to the panel.
func (s *SSD1306) Update() error {
	return s.dev.Draw(s.dev.Bounds(), s.Image(), image.Point{})
}

// Close blanks the panel and releases the bus.
func (s *SSD1306) Close() error {
	if err := s.dev.Halt(); err != nil {
		log.Printf("display: halt error: %v", err)
	}
	return s.bus.Close()
}
