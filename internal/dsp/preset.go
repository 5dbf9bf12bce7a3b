// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package dsp

import (
	"fmt"
)

// Preset names.
const (
	PresetDuplicated = "duplicated"
	PresetSOS        = "sos"
)

// Reference design point shared by both presets.
const (
	DefaultSampleRate    = 40.0 // Hz
	DefaultAccelCutoff   = 10.0 // Hz, accelerometer low-pass
	DefaultGyroCutoff    = 0.2  // Hz, gyroscope high-pass
	DefaultGravityCutoff = 0.5  // Hz, gravity low-pass
)

// Design is one filter role: its response, cutoff and coefficients.
type Design struct {
	Kind     Kind
	Cutoff   float64
	Sections Sections
}

// Preset is the full coefficient set of the conditioning pipeline.
// The two presets are not bit-compatible with each other.
type Preset struct {
	Name           string
	SampleRate     float64
	AccelLowpass   Design
	GyroHighpass   Design
	GravityLowpass Design
}

// DuplicatedPreset returns the reference firmware coefficients, where both
// cascade stages share one section. Fixed at fs=40 Hz with cutoffs
// 10 Hz (accel), 0.2 Hz (gyro) and 0.5 Hz (gravity).
func DuplicatedPreset() Preset {
	return Preset{
		Name:       PresetDuplicated,
		SampleRate: DefaultSampleRate,
		AccelLowpass: Design{
			Kind:   Lowpass,
			Cutoff: DefaultAccelCutoff,
			Sections: Duplicate(Coefficients{
				B0: 0.0947916, B1: 0.1895832, B2: 0.0947916,
				A1: -0.9149758, A2: 0.2941422,
			}),
		},
		GyroHighpass: Design{
			Kind:   Highpass,
			Cutoff: DefaultGyroCutoff,
			Sections: Duplicate(Coefficients{
				B0: 0.9968781, B1: -1.9937562, B2: 0.9968781,
				A1: -1.9937542, A2: 0.9937582,
			}),
		},
		GravityLowpass: Design{
			Kind:   Lowpass,
			Cutoff: DefaultGravityCutoff,
			Sections: Duplicate(Coefficients{
				B0: 0.0000152, B1: 0.0000304, B2: 0.0000152,
				A1: -1.9844048, A2: 0.9844656,
			}),
		},
	}
}

// SOSPreset designs each role as a proper second-order-sections Butterworth
// factorization at the given sample rate and cutoffs.
func SOSPreset(sampleRate, accelCutoff, gyroCutoff, gravityCutoff float64) (Preset, error) {
	p := Preset{Name: PresetSOS, SampleRate: sampleRate}

	roles := []struct {
		name   string
		kind   Kind
		cutoff float64
		dst    *Design
	}{
		{"accel low-pass", Lowpass, accelCutoff, &p.AccelLowpass},
		{"gyro high-pass", Highpass, gyroCutoff, &p.GyroHighpass},
		{"gravity low-pass", Lowpass, gravityCutoff, &p.GravityLowpass},
	}
	for _, r := range roles {
		s, err := ButterworthSOS(r.kind, r.cutoff, sampleRate)
		if err != nil {
			return Preset{}, fmt.Errorf("%s: %w", r.name, err)
		}
		*r.dst = Design{Kind: r.kind, Cutoff: r.cutoff, Sections: s}
	}
	return p, nil
}

// PresetByName resolves a preset. The duplicated preset only exists at the
// reference design point, so any other rate or cutoff is rejected for it.
func PresetByName(name string, sampleRate, accelCutoff, gyroCutoff, gravityCutoff float64) (Preset, error) {
	switch name {
	case PresetDuplicated:
		if sampleRate != DefaultSampleRate || accelCutoff != DefaultAccelCutoff ||
			gyroCutoff != DefaultGyroCutoff || gravityCutoff != DefaultGravityCutoff {
			return Preset{}, fmt.Errorf("dsp: preset %q is fixed at fs=%.0f Hz, cutoffs %.1f/%.1f/%.1f Hz",
				name, DefaultSampleRate, DefaultAccelCutoff, DefaultGyroCutoff, DefaultGravityCutoff)
		}
		return DuplicatedPreset(), nil
	case PresetSOS:
		return SOSPreset(sampleRate, accelCutoff, gyroCutoff, gravityCutoff)
	default:
		return Preset{}, fmt.Errorf("dsp: unknown filter preset %q", name)
	}
}
