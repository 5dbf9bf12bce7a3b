// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import "math"

// Tilt is the device attitude estimated from gravity alone, in degrees.
type Tilt struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
}

// TiltFromAccel computes roll and pitch from an accelerometer vector in any unit:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func TiltFromAccel(a [3]float32) Tilt {
	ax, ay, az := float64(a[0]), float64(a[1]), float64(a[2])
	return Tilt{
		Roll:  math.Atan2(ay, az) * 180 / math.Pi,
		Pitch: math.Atan2(-ax, math.Sqrt(ay*ay+az*az)) * 180 / math.Pi,
	}
}
