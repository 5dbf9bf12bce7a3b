// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package aggregate

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/pushup_tracker/internal/phase"
)

// ErrNoPredictions is returned when a cycle has no records to vote on.
var ErrNoPredictions = errors.New("aggregate: no predictions")

// Verdict is the posture of one repetition.
type Verdict struct {
	Class      int
	Confidence float32
	Votes      int // records that contributed
	// LowConfidence is set when too few records qualified and the verdict
	// fell back to the most recent prediction.
	LowConfidence bool
}

// Aggregator reduces a cycle's records to one verdict.
type Aggregator interface {
	Aggregate(records []Record) (Verdict, error)
}

// Policy names.
const (
	PolicyMajority = "majority"
	PolicyWeighted = "weighted"
	PolicyLatest   = "latest"
)

// New returns the aggregator registered under name.
func New(name string) (Aggregator, error) {
	switch name {
	case PolicyMajority:
		return MajorityVote{MinVotes: 2}, nil
	case PolicyWeighted:
		return ConfidenceWeighted{}, nil
	case PolicyLatest:
		return Latest{}, nil
	default:
		return nil, fmt.Errorf("aggregate: unknown policy %q", name)
	}
}

// MajorityVote counts posture votes from records not taken at the top of the
// push-up. Records without a phase vote. Ties go to the lowest class. With fewer than MinVotes qualifying
// records it falls back to the most recent record.
type MajorityVote struct {
	MinVotes int
}

// Aggregate implements Aggregator.
func (m MajorityVote) Aggregate(records []Record) (Verdict, error) {
	if len(records) == 0 {
		return Verdict{}, ErrNoPredictions
	}

	votes := map[int]int{}
	qualifying := 0
	for _, r := range records {
		if r.HasPhase && r.Phase == phase.AtTop {
			continue
		}
		votes[r.Posture]++
		qualifying++
	}

	if qualifying < max(m.MinVotes, 1) {
		last := records[len(records)-1]
		return Verdict{
			Class:         last.Posture,
			Confidence:    last.Confidence,
			Votes:         qualifying,
			LowConfidence: true,
		}, nil
	}

	best, bestVotes := -1, 0
	for class, n := range votes {
		if n > bestVotes || (n == bestVotes && class < best) {
			best, bestVotes = class, n
		}
	}
	return Verdict{
		Class:      best,
		Confidence: float32(bestVotes) / float32(qualifying),
		Votes:      qualifying,
	}, nil
}

// ConfidenceWeighted accumulates score[c] += p[c] * max(p) over all records
// and returns the class with the highest score.
type ConfidenceWeighted struct{}

// Aggregate implements Aggregator.
func (ConfidenceWeighted) Aggregate(records []Record) (Verdict, error) {
	if len(records) == 0 {
		return Verdict{}, ErrNoPredictions
	}

	var scores []float64
	var total float64
	for _, r := range records {
		probs := r.PostureProbs
		weight := float64(r.Confidence)
		if len(probs) == 0 {
			probs = oneHot(r.Posture, r.Confidence)
		}
		for len(scores) < len(probs) {
			scores = append(scores, 0)
		}
		for c, p := range probs {
			s := float64(p) * weight
			scores[c] += s
			total += s
		}
	}

	best := 0
	for c, s := range scores {
		if s > scores[best] {
			best = c
		}
	}
	v := Verdict{Class: best, Votes: len(records)}
	if total > 0 {
		v.Confidence = float32(scores[best] / total)
	}
	return v, nil
}

func oneHot(class int, p float32) []float32 {
	if class < 0 {
		return nil
	}
	out := make([]float32, class+1)
	out[class] = p
	return out
}

// Latest returns the most recent record unchanged. It ignores the rest of
// the cycle.
type Latest struct{}

// Aggregate implements Aggregator.
func (Latest) Aggregate(records []Record) (Verdict, error) {
	if len(records) == 0 {
		return Verdict{}, ErrNoPredictions
	}
	last := records[len(records)-1]
	return Verdict{Class: last.Posture, Confidence: last.Confidence, Votes: 1}, nil
}
