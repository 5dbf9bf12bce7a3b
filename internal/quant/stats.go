// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package quant

import (
	"errors"

	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/pushup_tracker/internal/imu"
)

// ErrNoSamples is returned when statistics are requested over nothing.
var ErrNoSamples = errors.New("quant: no samples")

// ComputeNormalization derives per-channel mean and population standard
// deviation from conditioned frames.
func ComputeNormalization(frames []imu.Frame) (Normalization, error) {
	if len(frames) == 0 {
		return Normalization{}, ErrNoSamples
	}

	var n Normalization
	col := make([]float64, len(frames))
	for ch := 0; ch < imu.NumChannels; ch++ {
		for i, f := range frames {
			col[i] = float64(f[ch])
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		n.Mean[ch] = float32(mean)
		n.Std[ch] = float32(std)
	}
	return n, nil
}
