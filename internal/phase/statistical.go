// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package phase

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/pushup_tracker/internal/classifier"
	"github.com/relabs-tech/pushup_tracker/internal/imu"
)

// Thresholds are the calibration constants of the statistical detector.
// Accelerations are in g, angular rates in deg/s.
type Thresholds struct {
	LowMean     float64 // mean below this is moving
	HighMean    float64 // mean at or above this is at-bottom
	PlateauMin  float64
	PlateauMax  float64
	StableStd   float64 // std below this is a stable hold
	VarianceStd float64 // std above this is moving
	GyroActive  float64
	GyroStatic  float64

	VerticalAxis   int // accelerometer channel, imu.ChanAx..ChanAz
	RotationalAxis int // gyroscope channel, imu.ChanGx..ChanGz
}

// DefaultThresholds are tuned for the sensor mounted with z vertical at the
// top of the push-up and rotation mostly about y.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowMean:        0.70,
		HighMean:       1.12,
		PlateauMin:     0.72,
		PlateauMax:     1.10,
		StableStd:      0.10,
		VarianceStd:    0.20,
		GyroActive:     20,
		GyroStatic:     15,
		VerticalAxis:   imu.ChanAz,
		RotationalAxis: imu.ChanGy,
	}
}

// Stats are the window statistics the rules look at.
type Stats struct {
	Mean float64 // vertical acceleration mean
	Std  float64 // vertical acceleration population std
	Gyro float64 // mean |rate| on the rotational axis
}

// StatisticalDetector classifies a window by ordered threshold rules.
type StatisticalDetector struct {
	Thresholds Thresholds
}

// NewStatisticalDetector returns a detector with th.
func NewStatisticalDetector(th Thresholds) *StatisticalDetector {
	return &StatisticalDetector{Thresholds: th}
}

// Measure computes Stats over the window.
func (d *StatisticalDetector) Measure(motion []imu.Frame) Stats {
	vert := make([]float64, len(motion))
	rot := make([]float64, len(motion))
	for i, f := range motion {
		vert[i] = float64(f[d.Thresholds.VerticalAxis])
		rot[i] = float64(f[d.Thresholds.RotationalAxis])
	}
	mean, std := stat.PopMeanStdDev(vert, nil)
	return Stats{
		Mean: mean,
		Std:  std,
		Gyro: floats.Norm(rot, 1) / float64(len(rot)),
	}
}

// Classify applies the rules to s. The first matching rule wins.
func (d *StatisticalDetector) Classify(s Stats) Phase {
	th := d.Thresholds
	inPlateau := s.Mean >= th.PlateauMin && s.Mean <= th.PlateauMax

	switch {
	case s.Mean < th.LowMean:
		return Moving
	case s.Mean >= th.HighMean:
		return AtBottom
	case s.Gyro > th.GyroActive:
		return Moving
	case inPlateau && s.Std < th.StableStd && s.Gyro < th.GyroStatic:
		return AtTop
	case s.Std > th.VarianceStd:
		return Moving
	case inPlateau:
		return AtTop
	default:
		return Moving
	}
}

// Detect implements Detector. The classifier result is not used.
func (d *StatisticalDetector) Detect(motion []imu.Frame, _ classifier.Result) (Phase, bool) {
	if len(motion) == 0 {
		return 0, false
	}
	return d.Classify(d.Measure(motion)), true
}
