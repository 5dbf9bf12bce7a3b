// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/pushup_tracker/internal/aggregate"
	"github.com/relabs-tech/pushup_tracker/internal/dsp"
	"github.com/relabs-tech/pushup_tracker/internal/imu"
	"github.com/relabs-tech/pushup_tracker/internal/phase"
	"github.com/relabs-tech/pushup_tracker/internal/rep"
)

func TestParseEmptyKeepsDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader("# nothing here\n\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 40.0, cfg.SampleRate())

	p, err := cfg.Preset()
	require.NoError(t, err)
	assert.Equal(t, dsp.DuplicatedPreset(), p)

	det, err := cfg.PhaseDetector()
	require.NoError(t, err)
	assert.IsType(t, &phase.StatisticalDetector{}, det)

	rc, err := cfg.RepConfig()
	require.NoError(t, err)
	assert.Equal(t, rep.PolicyAggregate, rc.Policy)
	assert.Equal(t, 10*time.Second, rc.Timeout)
	assert.Equal(t, aggregate.MajorityVote{MinVotes: 2}, rc.Aggregator)
}

func TestParseOverrides(t *testing.T) {
	in := `
MQTT_BROKER = tcp://broker:1883
SAMPLE_INTERVAL=10
FILTER_PRESET=sos
FILTER_ACCEL_CUTOFF=20
WINDOW_SIZE=50
NORM_MEAN=0,0,1, 0,0,0
NORM_STD=1,1,1,30,30,30
PHASE_SOURCE=model
PHASE_CLASS_MAP=at-top,moving,at-bottom
PHASE_VERTICAL_AXIS=ax
REP_POLICY=tally
REP_AGGREGATOR=weighted
DISPLAY_ENABLED=false
`
	cfg, err := Parse(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker:1883", cfg.MQTTBroker)
	assert.Equal(t, 100.0, cfg.SampleRate())
	assert.Equal(t, 50, cfg.WindowSize)
	assert.Equal(t, float32(30), cfg.Normalization().Std[imu.ChanGz])
	assert.False(t, cfg.DisplayEnabled)

	p, err := cfg.Preset()
	require.NoError(t, err)
	assert.Equal(t, dsp.PresetSOS, p.Name)
	assert.Equal(t, 100.0, p.SampleRate)

	det, err := cfg.PhaseDetector()
	require.NoError(t, err)
	md, ok := det.(*phase.ModelDetector)
	require.True(t, ok)
	assert.Equal(t, phase.ClassMap{0: phase.AtTop, 1: phase.Moving, 2: phase.AtBottom}, md.Classes)

	th, err := cfg.PhaseThresholds()
	require.NoError(t, err)
	assert.Equal(t, imu.ChanAx, th.VerticalAxis)
	assert.Equal(t, imu.ChanGy, th.RotationalAxis)

	rc, err := cfg.RepConfig()
	require.NoError(t, err)
	assert.Equal(t, rep.PolicyTally, rc.Policy)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing equals", "MQTT_BROKER"},
		{"unknown key", "FOO=bar"},
		{"bad int", "WINDOW_SIZE=many"},
		{"out of range", "IMU_ACCEL_RANGE=4"},
		{"short channel list", "NORM_MEAN=1,2,3"},
		{"bad float", "PHASE_LOW_MEAN=low"},
		{"empty broker", "MQTT_BROKER="},
		{"unknown imu source", "IMU_SOURCE=wii"},
		{"model phase without head", "PHASE_SOURCE=model\nPHASE_OUTPUT=-1"},
		{"same output twice", "POSTURE_OUTPUT=0"},
		{"inverted plateau", "PHASE_PLATEAU_MIN=1.2"},
		{"bad bool", "DISPLAY_ENABLED=maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestAccessorErrors(t *testing.T) {
	cfg := Default()
	cfg.SampleInterval = 10
	_, err := cfg.Preset()
	assert.Error(t, err, "duplicated preset only exists at 40 Hz")

	cfg = Default()
	cfg.PhaseVerticalAxis = "gy"
	_, err = cfg.PhaseDetector()
	assert.Error(t, err)

	cfg = Default()
	cfg.PhaseRotationalAxis = "az"
	_, err = cfg.PhaseThresholds()
	assert.Error(t, err)

	cfg = Default()
	cfg.RepAggregator = "mode"
	_, err = cfg.RepConfig()
	assert.Error(t, err)

	cfg = Default()
	cfg.RepPolicy = "vibes"
	_, err = cfg.RepConfig()
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte("IMU_SOURCE=synthetic\nHISTORY_DB=workouts.db\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "synthetic", cfg.IMUSource)
	assert.Equal(t, "workouts.db", cfg.HistoryDB)

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestShippedConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", DefaultPath))
	require.NoError(t, err)

	want := Default()
	want.ButtonPin = "GPIO17"
	want.HistoryDB = "pushup_history.db"
	assert.Equal(t, want, cfg)
}
