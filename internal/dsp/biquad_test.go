// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBiquadImpulseResponse(t *testing.T) {
	b := NewBiquad(Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04})

	want := []float32{0.25, 0.55, 0.35, 0.048}
	for i, w := range want {
		x := float32(0)
		if i == 0 {
			x = 1
		}
		assert.InDelta(t, w, b.Process(x), 1e-6, "sample %d", i)
	}
}

func TestBiquadReset(t *testing.T) {
	b := NewBiquad(Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04})
	b.Process(1)
	b.Process(0.5)
	assert.NotEqual(t, [2]float32{}, b.State())

	b.Reset()
	assert.Equal(t, [2]float32{}, b.State())
	assert.InDelta(t, 0.25, b.Process(1), 1e-6)
}

func TestCascadeFeedsFirstSectionIntoSecond(t *testing.T) {
	c1 := Coefficients{B0: 0.5}
	c2 := Coefficients{B0: 0.25, B1: 1}
	c := NewCascade(Sections{c1, c2})

	// x = 1, 0: first stage yields 0.5, 0; second yields 0.125, 0.5.
	assert.InDelta(t, 0.125, c.Process(1), 1e-7)
	assert.InDelta(t, 0.5, c.Process(0), 1e-7)

	c.Reset()
	assert.Equal(t, [2][2]float32{}, c.State())
}

func TestDuplicatedPresetDCGain(t *testing.T) {
	p := DuplicatedPreset()

	assert.InDelta(t, 1.0, p.AccelLowpass.Sections.DCGain(), 0.02)
	assert.InDelta(t, 0.0, p.GyroHighpass.Sections.DCGain(), 1e-6)
	assert.InDelta(t, 1.0, p.GravityLowpass.Sections.DCGain(), 0.02)
	assert.Equal(t, p.AccelLowpass.Sections[0], p.AccelLowpass.Sections[1])
}

func TestCascadeSettlesToDCGain(t *testing.T) {
	sos, err := SOSPreset(DefaultSampleRate, DefaultAccelCutoff, DefaultGyroCutoff, DefaultGravityCutoff)
	if err != nil {
		t.Fatalf("SOSPreset: %v", err)
	}

	tests := []struct {
		name    string
		design  Design
		samples int
		input   float32
		want    float32
		delta   float64
	}{
		{"duplicated accel low-pass", DuplicatedPreset().AccelLowpass, 2000, 0.8, 0.8, 1e-3},
		{"duplicated gravity low-pass", DuplicatedPreset().GravityLowpass, 8000, 1, 1, 1e-3},
		{"duplicated gyro high-pass", DuplicatedPreset().GyroHighpass, 40000, 1, 0, 1e-3},
		{"sos accel low-pass", sos.AccelLowpass, 2000, -1.5, -1.5, 1e-3},
		{"sos gravity low-pass", sos.GravityLowpass, 8000, 1, 1, 1e-3},
		{"sos gyro high-pass", sos.GyroHighpass, 40000, 1, 0, 1e-3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCascade(tt.design.Sections)
			var y float32
			for i := 0; i < tt.samples; i++ {
				y = c.Process(tt.input)
			}
			assert.InDelta(t, tt.want, y, tt.delta)
		})
	}
}
