// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package dsp

import (
	"math"
	"math/cmplx"
)

// Sections is the coefficient pair of a 4th-order cascade, first section first.
type Sections [2]Coefficients

// Duplicate returns Sections that apply c in both stages.
func Duplicate(c Coefficients) Sections {
	return Sections{c, c}
}

// DCGain returns the cascade gain at 0 Hz.
func (s Sections) DCGain() float64 {
	return s[0].DCGain() * s[1].DCGain()
}

// Cascade runs two biquad sections in series.
type Cascade struct {
	stages [2]Biquad
}

// NewCascade returns a cascade with zero state.
func NewCascade(s Sections) *Cascade {
	c := &Cascade{}
	for i := range s {
		c.stages[i].Coefficients = s[i]
	}
	return c
}

// Process feeds x through the first section and its output through the second.
func (c *Cascade) Process(x float32) float32 {
	return c.stages[1].Process(c.stages[0].Process(x))
}

// Reset clears both sections.
func (c *Cascade) Reset() {
	c.stages[0].Reset()
	c.stages[1].Reset()
}

// State returns a snapshot of both section states.
func (c *Cascade) State() [2][2]float32 {
	return [2][2]float32{c.stages[0].State(), c.stages[1].State()}
}

// Magnitude returns |H(e^jw)| of the section at freq for the given sample rate.
func (c Coefficients) Magnitude(freq, sampleRate float64) float64 {
	w := 2 * math.Pi * freq / sampleRate
	z1 := cmplx.Exp(complex(0, -w))
	z2 := z1 * z1
	num := complex(float64(c.B0), 0) + complex(float64(c.B1), 0)*z1 + complex(float64(c.B2), 0)*z2
	den := 1 + complex(float64(c.A1), 0)*z1 + complex(float64(c.A2), 0)*z2
	return cmplx.Abs(num / den)
}

// Magnitude returns the cascade response at freq.
func (s Sections) Magnitude(freq, sampleRate float64) float64 {
	return s[0].Magnitude(freq, sampleRate) * s[1].Magnitude(freq, sampleRate)
}
