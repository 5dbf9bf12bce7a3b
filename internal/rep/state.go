// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package rep counts push-up repetitions from a stream of per-window phase
// and posture predictions.
package rep

import (
	"fmt"
	"time"

	"github.com/relabs-tech/pushup_tracker/internal/aggregate"
	"github.com/relabs-tech/pushup_tracker/internal/phase"
)

// State of the repetition cycle.
type State int

const (
	Idle State = iota
	AtTop
	Descending
	AtBottom
	Ascending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AtTop:
		return "at-top"
	case Descending:
		return "descending"
	case AtBottom:
		return "at-bottom"
	case Ascending:
		return "ascending"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// transition is one row of the state table.
type transition struct {
	trigger    phase.Phase
	next       State
	hysteresis bool
}

var table = map[State]transition{
	Idle:       {trigger: phase.AtTop, next: AtTop},
	AtTop:      {trigger: phase.Moving, next: Descending, hysteresis: true},
	Descending: {trigger: phase.AtBottom, next: AtBottom, hysteresis: true},
	AtBottom:   {trigger: phase.Moving, next: Ascending, hysteresis: true},
	Ascending:  {trigger: phase.AtTop, next: AtTop, hysteresis: true},
}

// Counter is the running tally of one workout.
type Counter struct {
	Total int
	Good  int
	Poor  int

	State     State
	Confirm   int       // consecutive matching phases toward the next state
	RepGood   int       // good-form windows since the cycle boundary
	RepPoor   int       // poor-form windows since the cycle boundary
	EnteredAt time.Time // last transition
}

// CycleTracker holds the predictions of the repetition in flight.
type CycleTracker struct {
	Active bool
	Ring   *aggregate.Ring
	Start  time.Time
	End    time.Time
}

func (c *CycleTracker) begin(at time.Time) {
	c.Ring.Reset()
	c.Active = true
	c.Start = at
	c.End = time.Time{}
}

func (c *CycleTracker) finish(at time.Time) {
	c.Active = false
	c.End = at
	c.Ring.Reset()
}
