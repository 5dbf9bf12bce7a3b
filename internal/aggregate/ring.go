// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package aggregate reduces the per-window predictions of one repetition
// cycle to a single posture verdict.
package aggregate

import (
	"time"

	"github.com/relabs-tech/pushup_tracker/internal/phase"
)

// DefaultCapacity is the number of predictions kept per cycle.
const DefaultCapacity = 32

// Record is one per-window prediction.
type Record struct {
	Posture      int
	Phase        phase.Phase
	HasPhase     bool      // false when the detector saw no phase; Phase is then unset
	PostureProbs []float32 // optional, used by ConfidenceWeighted
	Confidence   float32   // max posture probability
	Time         time.Time
}

// Ring is a bounded FIFO of records. Once full, the oldest record is evicted.
type Ring struct {
	buf   []Record
	start int
	n     int
}

// NewRing returns a ring holding at most capacity records. A non-positive
// capacity falls back to DefaultCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{buf: make([]Record, capacity)}
}

// Add appends r and reports whether an older record was evicted.
func (r *Ring) Add(rec Record) bool {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = rec
		r.n++
		return false
	}
	r.buf[r.start] = rec
	r.start = (r.start + 1) % len(r.buf)
	return true
}

// Records returns the buffered records, oldest first.
func (r *Ring) Records() []Record {
	out := make([]Record, r.n)
	for i := range out {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Len returns the number of buffered records.
func (r *Ring) Len() int { return r.n }

// Cap returns the ring capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Reset drops all records.
func (r *Ring) Reset() {
	clear(r.buf)
	r.start = 0
	r.n = 0
}
