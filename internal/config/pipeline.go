// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"

	"github.com/relabs-tech/pushup_tracker/internal/aggregate"
	"github.com/relabs-tech/pushup_tracker/internal/classifier"
	"github.com/relabs-tech/pushup_tracker/internal/dsp"
	"github.com/relabs-tech/pushup_tracker/internal/imu"
	"github.com/relabs-tech/pushup_tracker/internal/phase"
	"github.com/relabs-tech/pushup_tracker/internal/quant"
	"github.com/relabs-tech/pushup_tracker/internal/rep"
)

// Preset resolves the filter preset at the configured sample rate.
func (c *Config) Preset() (dsp.Preset, error) {
	return dsp.PresetByName(c.FilterPreset, c.SampleRate(),
		c.FilterAccelCutoff, c.FilterGyroCutoff, c.FilterGravityCutoff)
}

// Normalization returns the per-channel calibration constants.
func (c *Config) Normalization() quant.Normalization {
	return quant.Normalization{Mean: c.NormMean, Std: c.NormStd}
}

// Layout returns the classifier output layout.
func (c *Config) Layout() classifier.Layout {
	return classifier.Layout{Posture: c.PostureOutput, Phase: c.PhaseOutput}
}

var axisChannels = map[string]int{
	"ax": imu.ChanAx, "ay": imu.ChanAy, "az": imu.ChanAz,
	"gx": imu.ChanGx, "gy": imu.ChanGy, "gz": imu.ChanGz,
}

// PhaseThresholds returns the statistical detector calibration.
func (c *Config) PhaseThresholds() (phase.Thresholds, error) {
	vert, ok := axisChannels[c.PhaseVerticalAxis]
	if !ok || vert > imu.ChanAz {
		return phase.Thresholds{}, fmt.Errorf("PHASE_VERTICAL_AXIS must be ax, ay or az, got %q", c.PhaseVerticalAxis)
	}
	rot, ok := axisChannels[c.PhaseRotationalAxis]
	if !ok || rot < imu.ChanGx {
		return phase.Thresholds{}, fmt.Errorf("PHASE_ROTATIONAL_AXIS must be gx, gy or gz, got %q", c.PhaseRotationalAxis)
	}
	return phase.Thresholds{
		LowMean:        c.PhaseLowMean,
		HighMean:       c.PhaseHighMean,
		PlateauMin:     c.PhasePlateauMin,
		PlateauMax:     c.PhasePlateauMax,
		StableStd:      c.PhaseStableStd,
		VarianceStd:    c.PhaseVarianceStd,
		GyroActive:     c.PhaseGyroActive,
		GyroStatic:     c.PhaseGyroStatic,
		VerticalAxis:   vert,
		RotationalAxis: rot,
	}, nil
}

// PhaseDetector builds the configured detector.
func (c *Config) PhaseDetector() (phase.Detector, error) {
	switch c.PhaseSource {
	case phase.SourceModel:
		m, err := phase.ParseClassMap(c.PhaseClassMap)
		if err != nil {
			return nil, fmt.Errorf("PHASE_CLASS_MAP: %w", err)
		}
		return phase.NewModelDetector(m), nil
	case phase.SourceStatistical:
		th, err := c.PhaseThresholds()
		if err != nil {
			return nil, err
		}
		return phase.NewStatisticalDetector(th), nil
	default:
		return nil, fmt.Errorf("unknown PHASE_SOURCE %q", c.PhaseSource)
	}
}

// RepConfig returns the state machine tuning.
func (c *Config) RepConfig() (rep.Config, error) {
	agg, err := aggregate.New(c.RepAggregator)
	if err != nil {
		return rep.Config{}, fmt.Errorf("REP_AGGREGATOR: %w", err)
	}
	cfg := rep.Config{
		ConfirmCount:     c.RepConfirmCount,
		Timeout:          Millis(c.RepTimeout),
		MinForceComplete: c.RepMinForceComplete,
		RingCapacity:     c.RepPredictionCapacity,
		Policy:           c.RepPolicy,
		Aggregator:       agg,
	}
	if err := cfg.Validate(); err != nil {
		return rep.Config{}, err
	}
	return cfg, nil
}
