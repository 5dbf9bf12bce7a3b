// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// NumChannels is the number of channels in a Frame: ax, ay, az, gx, gy, gz.
const NumChannels = 6

// Channel indices into a Frame.
const (
	ChanAx = iota
	ChanAy
	ChanAz
	ChanGx
	ChanGy
	ChanGz
)

// Raw represents a single raw IMU sample in physical units.
type Raw struct {
	Accel [3]float32 `json:"accel"` // g
	Gyro  [3]float32 `json:"gyro"`  // deg/s
}

// Frame is one 6-axis sample laid out as [ax, ay, az, gx, gy, gz].
// Conditioned samples, window rows and wire frames all share this layout.
type Frame [NumChannels]float32

// Frame returns the raw sample in channel order.
func (r Raw) Frame() Frame {
	return Frame{r.Accel[0], r.Accel[1], r.Accel[2], r.Gyro[0], r.Gyro[1], r.Gyro[2]}
}

// Raw splits a frame back into accelerometer and gyroscope vectors.
func (f Frame) Raw() Raw {
	return Raw{
		Accel: [3]float32{f[ChanAx], f[ChanAy], f[ChanAz]},
		Gyro:  [3]float32{f[ChanGx], f[ChanGy], f[ChanGz]},
	}
}

// Reader is the IMU collaborator. Read returns an error on a transient I/O
// failure; callers treat it as "no new sample this tick".
type Reader interface {
	Read() (Raw, error)
}
