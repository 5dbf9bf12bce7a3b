// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/pushup_tracker/internal/imu"
)

// Synthetic generates a back-mounted push-up motion: gravity on z, a
// vertical oscillation per repetition and a matching pitch rate on gy.
// Sagging adds a slow roll that the posture head should flag.
type Synthetic struct {
	Period  time.Duration // one repetition
	Depth   float64       // peak vertical acceleration, g
	Pitch   float64       // peak pitch rate, deg/s
	Sagging bool

	start time.Time
	now   func() time.Time
}

// NewSynthetic creates a source repeating every period.
func NewSynthetic(period time.Duration) *Synthetic {
	return &Synthetic{
		Period: period,
		Depth:  0.3,
		Pitch:  40,
		now:    time.Now,
	}
}

// Read implements imu.Reader.
func (s *Synthetic) Read() (imu.Raw, error) {
	now := s.now()
	if s.start.IsZero() {
		s.start = now
	}
	return s.At(now.Sub(s.start)), nil
}

// At returns the sample at elapsed time t.
func (s *Synthetic) At(t time.Duration) imu.Raw {
	w := 2 * math.Pi * t.Seconds() / s.Period.Seconds()

	var r imu.Raw
	r.Accel[2] = float32(1 + s.Depth*math.Sin(w))
	r.Gyro[1] = float32(s.Pitch * math.Cos(w))
	if s.Sagging {
		r.Accel[1] = float32(0.15 * (1 - math.Cos(w)))
		r.Gyro[0] = float32(0.5 * s.Pitch * math.Sin(w))
	}
	return r
}
