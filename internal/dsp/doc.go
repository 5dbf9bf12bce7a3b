// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package dsp conditions raw IMU samples for the classifier.
//
// A [Biquad] is one Direct Form II Transposed second-order section. Two of
// them in series form a [Cascade], the 4th-order Butterworth response used for
// the accelerometer low-pass, the gyroscope high-pass and the gravity
// estimate. A [Conditioner] chains the 3-tap [MedianDenoiser] with those
// cascades and subtracts gravity, producing one conditioned frame per raw
// sample. All arithmetic is float32, matching the reference firmware.
package dsp
