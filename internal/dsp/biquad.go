// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package dsp

// Coefficients holds one second-order section with a0 normalized to 1.
//
//	y  = B0*x + w1
//	w1 = B1*x - A1*y + w2
//	w2 = B2*x - A2*y
type Coefficients struct {
	B0, B1, B2 float32 // feedforward
	A1, A2     float32 // feedback
}

// DCGain returns the section gain at 0 Hz.
func (c Coefficients) DCGain() float64 {
	den := 1 + float64(c.A1) + float64(c.A2)
	if den == 0 {
		return 0
	}
	return (float64(c.B0) + float64(c.B1) + float64(c.B2)) / den
}

// Biquad is a single second-order IIR section with its own state.
type Biquad struct {
	Coefficients

	w1, w2 float32
}

// NewBiquad returns a section with the given coefficients and zero state.
func NewBiquad(c Coefficients) *Biquad {
	return &Biquad{Coefficients: c}
}

// Process filters one sample.
func (b *Biquad) Process(x float32) float32 {
	y := b.B0*x + b.w1
	b.w1 = b.B1*x - b.A1*y + b.w2
	b.w2 = b.B2*x - b.A2*y
	return y
}

// Reset clears the state.
func (b *Biquad) Reset() {
	b.w1 = 0
	b.w2 = 0
}

// State returns [w1, w2].
func (b *Biquad) State() [2]float32 {
	return [2]float32{b.w1, b.w2}
}
