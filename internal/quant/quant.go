// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package quant bridges conditioned float windows and the int8 domain of the
// classifier: normalization, affine quantization and output decoding.
package quant

import (
	"math"

	"github.com/relabs-tech/pushup_tracker/internal/imu"
)

// Representable int8 range.
const (
	MinQ = -128
	MaxQ = 127
)

// Params is an affine int8 mapping: float = Scale * (q - ZeroPoint).
type Params struct {
	Scale     float32 `json:"scale"`
	ZeroPoint int32   `json:"zero_point"`
}

// Quantize maps x to round(x/scale)+zp clamped to [-128, 127].
// Halves round away from zero.
func (p Params) Quantize(x float32) int8 {
	q := math.Round(float64(x)/float64(p.Scale)) + float64(p.ZeroPoint)
	if math.IsNaN(q) {
		return int8(clampZero(p.ZeroPoint))
	}
	if q < MinQ {
		return MinQ
	}
	if q > MaxQ {
		return MaxQ
	}
	return int8(q)
}

// Dequantize maps q back to the float domain.
func (p Params) Dequantize(q int8) float32 {
	return p.Scale * float32(int32(q)-p.ZeroPoint)
}

// Range returns the smallest and largest representable float values.
func (p Params) Range() (lo, hi float32) {
	return p.Dequantize(MinQ), p.Dequantize(MaxQ)
}

func clampZero(zp int32) int32 {
	return max(MinQ, min(MaxQ, zp))
}

// Epsilon guards the normalization against near-zero deviation.
const Epsilon = 1e-8

// Normalization holds per-channel calibration constants derived offline
// from training data.
type Normalization struct {
	Mean [imu.NumChannels]float32 `json:"mean"`
	Std  [imu.NumChannels]float32 `json:"std"`
}

// Identity leaves samples unchanged.
func Identity() Normalization {
	return Normalization{Std: [imu.NumChannels]float32{1, 1, 1, 1, 1, 1}}
}

// Apply returns (f - mean) / (std + epsilon) per channel.
func (n Normalization) Apply(f imu.Frame) imu.Frame {
	var out imu.Frame
	for ch := range f {
		out[ch] = (f[ch] - n.Mean[ch]) / (n.Std[ch] + Epsilon)
	}
	return out
}

// QuantizeWindow normalizes and quantizes a window into a time-major,
// channel-minor tensor of len(frames)*6 values.
func QuantizeWindow(frames []imu.Frame, n Normalization, p Params) []int8 {
	out := make([]int8, 0, len(frames)*imu.NumChannels)
	for _, f := range frames {
		for _, v := range n.Apply(f) {
			out = append(out, p.Quantize(v))
		}
	}
	return out
}

// DequantizeScores maps a classifier output tensor to per-class scores.
func DequantizeScores(q []int8, p Params) []float32 {
	out := make([]float32, len(q))
	for i, v := range q {
		out[i] = p.Dequantize(v)
	}
	return out
}

// ArgMax returns the index and value of the largest score. Ties go to the
// lowest index. It returns -1 for an empty slice.
func ArgMax(scores []float32) (int, float32) {
	best := -1
	var bestScore float32
	for i, s := range scores {
		if best < 0 || s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore
}
