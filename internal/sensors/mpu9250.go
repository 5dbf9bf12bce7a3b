// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"

	"github.com/relabs-tech/pushup_tracker/internal/imu"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// Full-scale sensitivities at the smallest range setting.
const (
	accelCountsPerG   = 16384.0 // ±2g
	gyroCountsPerDegS = 131.0   // ±250°/s
)

var (
	accelRanges = []int{2, 4, 8, 16}
	gyroRanges  = []int{250, 500, 1000, 2000}
)

// Scale converts raw register counts to physical units for a range setting.
type Scale struct {
	Accel float32 // g per count
	Gyro  float32 // deg/s per count
}

// ScaleFor returns the conversion for the given range codes (0..3).
func ScaleFor(accelRange, gyroRange byte) (Scale, error) {
	if int(accelRange) >= len(accelRanges) {
		return Scale{}, fmt.Errorf("sensors: accel range %d out of range", accelRange)
	}
	if int(gyroRange) >= len(gyroRanges) {
		return Scale{}, fmt.Errorf("sensors: gyro range %d out of range", gyroRange)
	}
	return Scale{
		Accel: float32(int(1)<<accelRange) / accelCountsPerG,
		Gyro:  float32(int(1)<<gyroRange) / gyroCountsPerDegS,
	}, nil
}

// Convert applies the scale to one set of counts.
func (s Scale) Convert(accel, gyro [3]int16) imu.Raw {
	var r imu.Raw
	for i := range accel {
		r.Accel[i] = float32(accel[i]) * s.Accel
		r.Gyro[i] = float32(gyro[i]) * s.Gyro
	}
	return r
}

// MPU9250 reads accelerometer and gyroscope samples over SPI.
type MPU9250 struct {
	dev   *mpu9250.MPU9250
	scale Scale
}

// OpenMPU9250 initializes an MPU9250 on spiDev with chip select csPin,
// applies the ranges and runs the built-in calibration.
func OpenMPU9250(spiDev, csPin string, accelRange, gyroRange byte) (*MPU9250, error) {
	scale, err := ScaleFor(accelRange, gyroRange)
	if err != nil {
		return nil, err
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", spiDev, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := dev.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	log.Printf("IMU: accelerometer range set to %d (±%dg)", accelRange, accelRanges[accelRange])

	if err := dev.SetGyroRange(gyroRange); err != nil {
		return nil, fmt.Errorf("IMU: set gyro range: %w", err)
	}
	log.Printf("IMU: gyroscope range set to %d (±%d°/s)", gyroRange, gyroRanges[gyroRange])

	if err := dev.Calibrate(); err != nil {
		log.Printf("IMU: WARNING: calibration failed: %v", err)
	} else {
		log.Println("IMU: calibration complete")
	}

	return &MPU9250{dev: dev, scale: scale}, nil
}

// Read implements imu.Reader.
func (s *MPU9250) Read() (imu.Raw, error) {
	var accel, gyro [3]int16
	var err error

	if accel[0], err = s.dev.GetAccelerationX(); err != nil {
		return imu.Raw{}, fmt.Errorf("IMU accel X: %w", err)
	}
	if accel[1], err = s.dev.GetAccelerationY(); err != nil {
		return imu.Raw{}, fmt.Errorf("IMU accel Y: %w", err)
	}
	if accel[2], err = s.dev.GetAccelerationZ(); err != nil {
		return imu.Raw{}, fmt.Errorf("IMU accel Z: %w", err)
	}

	if gyro[0], err = s.dev.GetRotationX(); err != nil {
		return imu.Raw{}, fmt.Errorf("IMU gyro X: %w", err)
	}
	if gyro[1], err = s.dev.GetRotationY(); err != nil {
		return imu.Raw{}, fmt.Errorf("IMU gyro Y: %w", err)
	}
	if gyro[2], err = s.dev.GetRotationZ(); err != nil {
		return imu.Raw{}, fmt.Errorf("IMU gyro Z: %w", err)
	}

	return s.scale.Convert(accel, gyro), nil
}
