// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package dsp

import "github.com/relabs-tech/pushup_tracker/internal/imu"

// MedianTaps is the depth of the rolling median.
const MedianTaps = 3

// Median3 returns the middle value of a, b and c.
func Median3(a, b, c float32) float32 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
	}
	if a > b {
		return a
	}
	return b
}

// MedianDenoiser is a per-channel 3-tap rolling median. All six channels share
// one circular cursor, which advances once per frame. History starts at zero.
type MedianDenoiser struct {
	history [imu.NumChannels][MedianTaps]float32
	cursor  int
}

// Process stores the new frame and returns the per-channel median of the last
// three frames.
func (m *MedianDenoiser) Process(in imu.Frame) imu.Frame {
	var out imu.Frame
	for ch := range in {
		h := &m.history[ch]
		h[m.cursor] = in[ch]
		out[ch] = Median3(h[0], h[1], h[2])
	}
	m.cursor = (m.cursor + 1) % MedianTaps
	return out
}

// Reset zeroes the history and rewinds the cursor.
func (m *MedianDenoiser) Reset() {
	*m = MedianDenoiser{}
}
