// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package rep

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/pushup_tracker/internal/aggregate"
	"github.com/relabs-tech/pushup_tracker/internal/classifier"
	"github.com/relabs-tech/pushup_tracker/internal/phase"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// driver feeds predictions one second apart.
type driver struct {
	t      *testing.T
	m      *Machine
	now    time.Time
	events []Event
}

func newDriver(t *testing.T, cfg Config) *driver {
	t.Helper()
	m, err := NewMachine(cfg)
	require.NoError(t, err)
	return &driver{t: t, m: m, now: t0}
}

func (d *driver) feed(posture int, phases ...phase.Phase) {
	for _, p := range phases {
		d.now = d.now.Add(time.Second)
		rec := aggregate.Record{Posture: posture, Phase: p, HasPhase: true, Confidence: 0.9, Time: d.now}
		d.events = append(d.events, d.m.Update(rec)...)
	}
}

// feedNoPhase feeds n windows for which the detector reported no phase.
func (d *driver) feedNoPhase(posture, n int) {
	for i := 0; i < n; i++ {
		d.now = d.now.Add(time.Second)
		rec := aggregate.Record{Posture: posture, Confidence: 0.9, Time: d.now}
		d.events = append(d.events, d.m.Update(rec)...)
	}
}

func (d *driver) reps() []Rep {
	var out []Rep
	for _, ev := range d.events {
		if ev.Kind == RepCompleted {
			out = append(out, ev.Rep)
		}
	}
	return out
}

var (
	top    = phase.AtTop
	moving = phase.Moving
	bottom = phase.AtBottom
)

func TestOneFullRepetition(t *testing.T) {
	d := newDriver(t, DefaultConfig())
	d.feed(classifier.PostureGood, top, moving, moving, bottom, bottom, moving, moving, top, top)

	reps := d.reps()
	require.Len(t, reps, 1)
	assert.Equal(t, AtTop, d.m.State())
	assert.True(t, reps[0].Good)
	assert.Equal(t, 1, reps[0].Number)
	assert.Equal(t, 6, reps[0].Predictions)
	assert.Equal(t, 6*time.Second, reps[0].Duration())
	assert.False(t, reps[0].Forced)

	c := d.m.Snapshot()
	assert.Equal(t, 1, c.Total)
	assert.Equal(t, 1, c.Good)
	assert.Equal(t, 0, c.Poor)
	assert.Empty(t, d.m.Cycle())
}

func TestStateChangesAreReported(t *testing.T) {
	d := newDriver(t, DefaultConfig())
	d.feed(classifier.PostureGood, top, moving, moving, bottom, bottom, moving, moving, top, top)

	var path []State
	for _, ev := range d.events {
		if ev.Kind == StateChanged {
			path = append(path, ev.To)
		}
	}
	assert.Equal(t, []State{AtTop, Descending, AtBottom, Ascending, AtTop}, path)
}

func TestSingleBlipDoesNotTransition(t *testing.T) {
	tests := []struct {
		name   string
		phases []phase.Phase
		want   State
	}{
		{"at top", []phase.Phase{top, top, moving, top, top}, AtTop},
		{"descending", []phase.Phase{top, moving, moving, moving, bottom, moving, moving}, Descending},
		{"at bottom", []phase.Phase{top, moving, moving, bottom, bottom, bottom, moving, bottom}, AtBottom},
		{"ascending", []phase.Phase{top, moving, moving, bottom, bottom, moving, moving, top, moving, moving}, Ascending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDriver(t, DefaultConfig())
			d.feed(classifier.PostureGood, tt.phases...)
			assert.Equal(t, tt.want, d.m.State())
			assert.Empty(t, d.reps())
		})
	}
}

func TestMismatchResetsConfirm(t *testing.T) {
	d := newDriver(t, DefaultConfig())
	d.feed(classifier.PostureGood, top, moving)
	assert.Equal(t, 1, d.m.Snapshot().Confirm)

	d.feed(classifier.PostureGood, bottom)
	assert.Equal(t, 0, d.m.Snapshot().Confirm)
	assert.Equal(t, AtTop, d.m.State())
}

func TestIdleIgnoresEverythingButTop(t *testing.T) {
	d := newDriver(t, DefaultConfig())
	d.feed(classifier.PostureGood, moving, bottom, moving)
	assert.Equal(t, Idle, d.m.State())
	d.feed(classifier.PostureGood, top)
	assert.Equal(t, AtTop, d.m.State())
}

func TestDescendingTimeoutDiscardsCycle(t *testing.T) {
	d := newDriver(t, DefaultConfig())
	d.feed(classifier.PostureGood, top, moving, moving)
	require.Equal(t, Descending, d.m.State())

	events := d.m.CheckTimeout(d.now.Add(10 * time.Second))
	assert.Empty(t, events, "timeout is strictly greater than the threshold")

	events = d.m.CheckTimeout(d.now.Add(11 * time.Second))
	require.Len(t, events, 2)
	assert.Equal(t, CycleDiscarded, events[0].Kind)
	assert.Equal(t, Descending, events[0].From)
	assert.Equal(t, StateChanged, events[1].Kind)
	assert.Equal(t, Idle, events[1].To)

	assert.Equal(t, Idle, d.m.State())
	assert.Equal(t, 0, d.m.Snapshot().Total)
	assert.Empty(t, d.m.Cycle())
}

func TestTimeoutCheckedOnUpdate(t *testing.T) {
	d := newDriver(t, DefaultConfig())
	d.feed(classifier.PostureGood, top, moving, moving, bottom)
	d.now = d.now.Add(30 * time.Second)
	d.feed(classifier.PostureGood, bottom)

	// The late prediction lands in Idle after the discard and is ignored.
	assert.Equal(t, Idle, d.m.State())
	assert.Equal(t, 0, d.m.Snapshot().Total)
}

func TestAscendingTimeoutForcesCompletion(t *testing.T) {
	d := newDriver(t, DefaultConfig())
	d.feed(classifier.PosturePoor, top, moving, moving, bottom, bottom, moving, moving)
	require.Equal(t, Ascending, d.m.State())

	events := d.m.CheckTimeout(d.now.Add(11 * time.Second))
	require.Len(t, events, 2)
	assert.Equal(t, RepCompleted, events[0].Kind)
	assert.True(t, events[0].Rep.Forced)
	assert.False(t, events[0].Rep.Good)
	assert.Equal(t, AtTop, events[1].To)

	c := d.m.Snapshot()
	assert.Equal(t, 1, c.Total)
	assert.Equal(t, 1, c.Poor)
	assert.Equal(t, AtTop, c.State)
}

func TestAscendingTimeoutWithTooFewPredictionsDiscards(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinForceComplete = 10
	d := newDriver(t, cfg)
	d.feed(classifier.PostureGood, top, moving, moving, bottom, bottom, moving, moving)

	events := d.m.CheckTimeout(d.now.Add(11 * time.Second))
	require.Len(t, events, 2)
	assert.Equal(t, CycleDiscarded, events[0].Kind)
	assert.Equal(t, Idle, d.m.State())
	assert.Equal(t, 0, d.m.Snapshot().Total)
}

func TestStuckAtTopReturnsToIdle(t *testing.T) {
	d := newDriver(t, DefaultConfig())
	d.feed(classifier.PostureGood, top)

	events := d.m.CheckTimeout(d.now.Add(11 * time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, StateChanged, events[0].Kind)
	assert.Equal(t, Idle, d.m.State())
}

func TestTallyPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy = PolicyTally
	d := newDriver(t, cfg)

	d.feed(classifier.PostureGood, top, moving)
	d.feed(classifier.PosturePoor, moving, bottom, bottom)
	d.feed(classifier.PostureGood, moving, moving)
	d.feed(classifier.PosturePoor, top, top)

	// Since the cycle started: poor x4, good x2. The closing window is
	// tallied after the rep completes.
	reps := d.reps()
	require.Len(t, reps, 1)
	assert.False(t, reps[0].Good)
	assert.InDelta(t, 4.0/6, reps[0].Confidence, 1e-6)
	assert.Equal(t, 1, d.m.Snapshot().RepPoor)
}

func TestTallyIgnoresPhaseAndCountsEveryWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy = PolicyTally
	d := newDriver(t, cfg)
	d.feed(classifier.PostureGood, top, moving, moving)

	rec := aggregate.Record{Posture: classifier.PosturePoor, Time: d.now.Add(time.Second)}
	d.m.Update(rec)
	c := d.m.Snapshot()
	assert.Equal(t, 1, c.RepGood)
	assert.Equal(t, 1, c.RepPoor)
	assert.Equal(t, Descending, c.State)
	assert.Len(t, d.m.Cycle(), 2)
}

func TestAggregatePolicyDisagreesWithTally(t *testing.T) {
	// Poor-form windows only at the top, where majority vote ignores them.
	d := newDriver(t, DefaultConfig())
	d.feed(classifier.PostureGood, top, moving, moving, bottom, bottom, moving, moving)
	d.feed(classifier.PosturePoor, top)
	for i := 0; i < 3; i++ {
		d.feed(classifier.PosturePoor, moving, top)
	}
	d.feed(classifier.PosturePoor, top)

	reps := d.reps()
	require.Len(t, reps, 1)
	assert.True(t, reps[0].Good)
}

func TestWindowsWithoutPhaseStillVote(t *testing.T) {
	d := newDriver(t, DefaultConfig())
	d.feed(classifier.PostureGood, top, moving, moving)
	d.feedNoPhase(classifier.PosturePoor, 6)
	assert.Equal(t, Descending, d.m.State())

	cycle := d.m.Cycle()
	require.Len(t, cycle, 7)
	for _, r := range cycle[1:] {
		assert.False(t, r.HasPhase)
	}

	d.feed(classifier.PostureGood, bottom, bottom, moving, moving, top, top)
	reps := d.reps()
	require.Len(t, reps, 1)
	assert.Equal(t, 12, reps[0].Predictions)
	assert.False(t, reps[0].Good, "6 poor windows outvote 5 good ones")
	assert.InDelta(t, 6.0/11, reps[0].Confidence, 1e-6)
}

func TestRingEvictionDuringLongCycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RingCapacity = 4
	d := newDriver(t, cfg)
	d.feed(classifier.PostureGood, top, moving, moving, bottom, bottom, bottom, bottom, bottom)
	assert.Len(t, d.m.Cycle(), 4)
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfirmCount = 0
	_, err := NewMachine(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Timeout = 0
	_, err = NewMachine(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Aggregator = nil
	_, err = NewMachine(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Policy = "coin-flip"
	_, err = NewMachine(cfg)
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	d := newDriver(t, DefaultConfig())
	d.feed(classifier.PostureGood, top, moving, moving, bottom, bottom, moving, moving, top, top)
	d.feed(classifier.PostureGood, moving, moving)

	d.m.Reset()
	assert.Equal(t, Counter{}, d.m.Snapshot())
	assert.Empty(t, d.m.Cycle())
}
