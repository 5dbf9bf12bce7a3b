// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package rep

import (
	"errors"
	"fmt"
	"time"

	"github.com/relabs-tech/pushup_tracker/internal/aggregate"
	"github.com/relabs-tech/pushup_tracker/internal/classifier"
	"github.com/relabs-tech/pushup_tracker/internal/phase"
)

// Rep-closing policies.
const (
	PolicyTally     = "tally"     // good unless poor windows outnumber good ones
	PolicyAggregate = "aggregate" // verdict of the configured Aggregator
)

// Config tunes the machine.
type Config struct {
	ConfirmCount     int           // consecutive phases needed for a hysteresis transition
	Timeout          time.Duration // max time in one non-idle state
	MinForceComplete int           // predictions needed to force-complete on timeout
	RingCapacity     int
	Policy           string
	Aggregator       aggregate.Aggregator
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		ConfirmCount:     2,
		Timeout:          10 * time.Second,
		MinForceComplete: 2,
		RingCapacity:     aggregate.DefaultCapacity,
		Policy:           PolicyAggregate,
		Aggregator:       aggregate.MajorityVote{MinVotes: 2},
	}
}

// Validate checks cfg.
func (c Config) Validate() error {
	if c.ConfirmCount < 1 {
		return fmt.Errorf("rep: confirm count must be >= 1, got %d", c.ConfirmCount)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("rep: timeout must be > 0, got %v", c.Timeout)
	}
	switch c.Policy {
	case PolicyTally:
	case PolicyAggregate:
		if c.Aggregator == nil {
			return errors.New("rep: aggregate policy needs an aggregator")
		}
	default:
		return fmt.Errorf("rep: unknown policy %q", c.Policy)
	}
	return nil
}

// Machine is the repetition state machine. It is not safe for concurrent use;
// the control loop owns it.
type Machine struct {
	cfg     Config
	counter Counter
	cycle   CycleTracker
}

// NewMachine returns a machine in Idle.
func NewMachine(cfg Config) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Machine{
		cfg:   cfg,
		cycle: CycleTracker{Ring: aggregate.NewRing(cfg.RingCapacity)},
	}, nil
}

// State returns the current state.
func (m *Machine) State() State { return m.counter.State }

// Snapshot returns a copy of the counter.
func (m *Machine) Snapshot() Counter { return m.counter }

// Cycle returns the predictions buffered for the repetition in flight.
func (m *Machine) Cycle() []aggregate.Record { return m.cycle.Ring.Records() }

// Update feeds one window's prediction. rec.Time is the current time and
// rec.Phase is only read when rec.HasPhase is set. Posture is always tallied.
func (m *Machine) Update(rec aggregate.Record) []Event {
	now := rec.Time
	events := m.CheckTimeout(now)

	if rec.HasPhase {
		events = append(events, m.step(rec.Phase, now)...)
	}

	if rec.Posture == classifier.PostureGood {
		m.counter.RepGood++
	} else {
		m.counter.RepPoor++
	}
	if m.cycle.Active {
		m.cycle.Ring.Add(rec)
	}
	return events
}

func (m *Machine) step(p phase.Phase, now time.Time) []Event {
	tr, ok := table[m.counter.State]
	if !ok || p != tr.trigger {
		m.counter.Confirm = 0
		return nil
	}
	if tr.hysteresis {
		m.counter.Confirm++
		if m.counter.Confirm < m.cfg.ConfirmCount {
			return nil
		}
	}

	from := m.counter.State
	var events []Event
	switch {
	case from == AtTop && tr.next == Descending:
		m.cycle.begin(now)
		m.resetTallies()
	case from == Ascending && tr.next == AtTop:
		events = append(events, m.complete(now, false))
	}
	return append(events, m.enter(tr.next, now))
}

// CheckTimeout applies the timeout policy. It is also called by Update, so
// callers only need it when no predictions are arriving.
func (m *Machine) CheckTimeout(now time.Time) []Event {
	s := m.counter.State
	if s == Idle || now.Sub(m.counter.EnteredAt) <= m.cfg.Timeout {
		return nil
	}

	if s == Ascending && m.cycle.Ring.Len() >= m.cfg.MinForceComplete {
		return []Event{m.complete(now, true), m.enter(AtTop, now)}
	}

	var events []Event
	if m.cycle.Active {
		events = append(events, Event{
			Kind:   CycleDiscarded,
			At:     now,
			From:   s,
			Reason: fmt.Sprintf("timeout in %s after %v", s, now.Sub(m.counter.EnteredAt).Round(time.Millisecond)),
		})
		m.cycle.finish(now)
	}
	m.resetTallies()
	return append(events, m.enter(Idle, now))
}

func (m *Machine) enter(next State, now time.Time) Event {
	ev := Event{Kind: StateChanged, At: now, From: m.counter.State, To: next}
	m.counter.State = next
	m.counter.Confirm = 0
	m.counter.EnteredAt = now
	return ev
}

func (m *Machine) complete(now time.Time, forced bool) Event {
	r := Rep{
		Forced:      forced,
		Predictions: m.cycle.Ring.Len(),
		Start:       m.cycle.Start,
		End:         now,
	}
	r.Posture, r.Confidence, r.LowConfidence = m.verdict()
	r.Good = r.Posture == classifier.PostureGood

	m.counter.Total++
	if r.Good {
		m.counter.Good++
	} else {
		m.counter.Poor++
	}
	r.Number = m.counter.Total

	m.cycle.finish(now)
	m.resetTallies()
	return Event{Kind: RepCompleted, At: now, Rep: r}
}

func (m *Machine) verdict() (posture int, confidence float32, low bool) {
	if m.cfg.Policy == PolicyAggregate {
		v, err := m.cfg.Aggregator.Aggregate(m.cycle.Ring.Records())
		if err == nil {
			return v.Class, v.Confidence, v.LowConfidence
		}
	}
	good, poor := m.counter.RepGood, m.counter.RepPoor
	if poor > good {
		return classifier.PosturePoor, float32(poor) / float32(good+poor), false
	}
	if good+poor == 0 {
		return classifier.PostureGood, 0, true
	}
	return classifier.PostureGood, float32(good) / float32(good+poor), false
}

func (m *Machine) resetTallies() {
	m.counter.RepGood = 0
	m.counter.RepPoor = 0
}

// Reset returns to Idle and clears all counts.
func (m *Machine) Reset() {
	m.counter = Counter{}
	m.cycle.Active = false
	m.cycle.Ring.Reset()
	m.cycle.Start, m.cycle.End = time.Time{}, time.Time{}
}
