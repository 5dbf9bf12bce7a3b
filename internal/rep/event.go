// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package rep

import (
	"time"
)

// EventKind identifies an Event.
type EventKind int

const (
	StateChanged EventKind = iota
	RepCompleted
	CycleDiscarded
)

func (k EventKind) String() string {
	switch k {
	case StateChanged:
		return "state_changed"
	case RepCompleted:
		return "rep_completed"
	case CycleDiscarded:
		return "cycle_discarded"
	default:
		return "unknown"
	}
}

// Rep describes a completed repetition.
type Rep struct {
	Number        int
	Good          bool
	Posture       int
	Confidence    float32
	Predictions   int
	Forced        bool // completed by timeout while ascending
	LowConfidence bool
	Start         time.Time
	End           time.Time
}

// Duration returns the time from cycle start to completion.
func (r Rep) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Event is emitted by the machine. Only the fields relevant to Kind are set.
type Event struct {
	Kind   EventKind
	At     time.Time
	From   State
	To     State
	Rep    Rep
	Reason string
}
