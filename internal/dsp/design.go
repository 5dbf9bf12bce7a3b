// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package dsp

import (
	"fmt"
	"math"
)

// Kind selects the response of a designed filter.
type Kind int

const (
	Lowpass Kind = iota
	Highpass
)

func (k Kind) String() string {
	switch k {
	case Lowpass:
		return "lowpass"
	case Highpass:
		return "highpass"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// butterworthOrder is the order of every cascade in the pipeline.
const butterworthOrder = 4

// ButterworthSOS designs a 4th-order Butterworth filter factored into two
// second-order sections via the bilinear transform. The lower-Q section comes
// first.
func ButterworthSOS(kind Kind, cutoff, sampleRate float64) (Sections, error) {
	if sampleRate <= 0 || cutoff <= 0 || cutoff >= sampleRate/2 {
		return Sections{}, fmt.Errorf("dsp: cutoff %.3f Hz outside (0, %.3f) for fs=%.3f Hz", cutoff, sampleRate/2, sampleRate)
	}

	var s Sections
	for i := range s {
		q := butterworthQ(butterworthOrder, len(s)-1-i)
		s[i] = secondOrder(kind, cutoff, q, sampleRate)
	}
	return s, nil
}

// butterworthQ returns the quality factor of section index (0..order/2-1).
func butterworthQ(order, index int) float64 {
	theta := math.Pi * float64(2*index+1) / (2 * float64(order))
	return 1 / (2 * math.Sin(theta))
}

// secondOrder is the bilinear-transformed analog section 1/(s^2 + s/q + 1),
// prewarped to freq.
func secondOrder(kind Kind, freq, q, sampleRate float64) Coefficients {
	w0 := 2 * math.Pi * freq / sampleRate
	cw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	a0 := 1 + alpha
	a1 := -2 * cw
	a2 := 1 - alpha

	var b0, b1, b2 float64
	switch kind {
	case Highpass:
		b0 = (1 + cw) / 2
		b1 = -(1 + cw)
		b2 = (1 + cw) / 2
	default:
		b0 = (1 - cw) / 2
		b1 = 1 - cw
		b2 = (1 - cw) / 2
	}

	return Coefficients{
		B0: float32(b0 / a0),
		B1: float32(b1 / a0),
		B2: float32(b2 / a0),
		A1: float32(a1 / a0),
		A2: float32(a2 / a0),
	}
}
