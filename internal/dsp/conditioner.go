// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package dsp

import "github.com/relabs-tech/pushup_tracker/internal/imu"

// Output is the result of conditioning one raw sample.
type Output struct {
	// Linear is the conditioned sample fed to the classifier:
	// gravity-free acceleration and drift-free angular rate.
	Linear imu.Frame
	// Motion keeps gravity in the (low-passed) acceleration channels and
	// shares the gyro channels with Linear. Orientation-dependent statistics
	// such as the vertical-acceleration plateau are computed on it.
	Motion imu.Frame
}

// Conditioner is the signal conditioning pipeline:
// median -> accel low-pass / gyro high-pass -> gravity low-pass -> subtraction.
type Conditioner struct {
	preset Preset
	median MedianDenoiser

	accelLowpass   [3]*Cascade
	gyroHighpass   [3]*Cascade
	gravityLowpass [3]*Cascade
}

// NewConditioner builds a pipeline with one cascade per channel and role.
func NewConditioner(p Preset) *Conditioner {
	c := &Conditioner{preset: p}
	for i := 0; i < 3; i++ {
		c.accelLowpass[i] = NewCascade(p.AccelLowpass.Sections)
		c.gyroHighpass[i] = NewCascade(p.GyroHighpass.Sections)
		c.gravityLowpass[i] = NewCascade(p.GravityLowpass.Sections)
	}
	return c
}

// Preset returns the coefficient preset in use.
func (c *Conditioner) Preset() Preset {
	return c.preset
}

// Process conditions one raw sample.
func (c *Conditioner) Process(raw imu.Raw) Output {
	m := c.median.Process(raw.Frame())

	var accel, gyro, gravity [3]float32
	for i := 0; i < 3; i++ {
		accel[i] = c.accelLowpass[i].Process(m[imu.ChanAx+i])
	}
	for i := 0; i < 3; i++ {
		gyro[i] = c.gyroHighpass[i].Process(m[imu.ChanGx+i])
	}
	for i := 0; i < 3; i++ {
		gravity[i] = c.gravityLowpass[i].Process(accel[i])
	}

	var out Output
	for i := 0; i < 3; i++ {
		out.Linear[imu.ChanAx+i] = accel[i] - gravity[i]
		out.Linear[imu.ChanGx+i] = gyro[i]
		out.Motion[imu.ChanAx+i] = accel[i]
		out.Motion[imu.ChanGx+i] = gyro[i]
	}
	return out
}

// Reset clears the median history and every filter state.
func (c *Conditioner) Reset() {
	c.median.Reset()
	for i := 0; i < 3; i++ {
		c.accelLowpass[i].Reset()
		c.gyroHighpass[i].Reset()
		c.gravityLowpass[i].Reset()
	}
}
