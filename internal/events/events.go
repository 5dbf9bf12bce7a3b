// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package events defines the JSON messages the tracker exchanges over MQTT.
package events

import (
	"time"

	"github.com/relabs-tech/pushup_tracker/internal/classifier"
	"github.com/relabs-tech/pushup_tracker/internal/engine"
	"github.com/relabs-tech/pushup_tracker/internal/rep"
)

// RepMessage is published once per completed repetition.
type RepMessage struct {
	Time          time.Time `json:"time"`
	Number        int       `json:"number"`
	Good          bool      `json:"good"`
	Posture       string    `json:"posture"`
	Confidence    float32   `json:"confidence"`
	DurationSec   float64   `json:"duration_sec"`
	Predictions   int       `json:"predictions"`
	Forced        bool      `json:"forced,omitempty"`
	LowConfidence bool      `json:"low_confidence,omitempty"`
	Total         int       `json:"total"`
	GoodTotal     int       `json:"good_total"`
	PoorTotal     int       `json:"poor_total"`
}

// NewRepMessage builds the message for r given the counter after it.
func NewRepMessage(r rep.Rep, c rep.Counter) RepMessage {
	return RepMessage{
		Time:          r.End,
		Number:        r.Number,
		Good:          r.Good,
		Posture:       classifier.Label(classifier.PostureLabels, r.Posture),
		Confidence:    r.Confidence,
		DurationSec:   r.Duration().Seconds(),
		Predictions:   r.Predictions,
		Forced:        r.Forced,
		LowConfidence: r.LowConfidence,
		Total:         c.Total,
		GoodTotal:     c.Good,
		PoorTotal:     c.Poor,
	}
}

// InferenceMessage is published after every successful inference.
type InferenceMessage struct {
	Time         time.Time `json:"time"`
	LatencyMs    float64   `json:"latency_ms"`
	Posture      string    `json:"posture"`
	PostureConf  float32   `json:"posture_conf"`
	PostureProbs []float32 `json:"posture_probs"`
	ModelPhase   string    `json:"model_phase,omitempty"`
	Phase        string    `json:"phase,omitempty"`
	State        string    `json:"state"`
	Total        int       `json:"total"`
	GoodTotal    int       `json:"good_total"`
}

// NewInferenceMessage builds the message for inf.
func NewInferenceMessage(inf engine.Inference) InferenceMessage {
	m := InferenceMessage{
		Time:         inf.Time,
		LatencyMs:    float64(inf.Latency.Microseconds()) / 1000,
		Posture:      classifier.Label(classifier.PostureLabels, inf.Result.Posture.Class),
		PostureConf:  inf.Result.Posture.Confidence,
		PostureProbs: inf.Result.Posture.Probs,
		State:        inf.Counter.State.String(),
		Total:        inf.Counter.Total,
		GoodTotal:    inf.Counter.Good,
	}
	if inf.Result.HasPhase {
		m.ModelPhase = classifier.Label(classifier.PhaseLabels, inf.Result.Phase.Class)
	}
	if inf.HasPhase {
		m.Phase = inf.Phase.String()
	}
	return m
}

// Status values.
const (
	StatusReady   = "ready"
	StatusRunning = "running"
	StatusStopped = "stopped"
)

// StatusMessage reports whether inference is running. It is retained.
type StatusMessage struct {
	Time   time.Time `json:"time"`
	Status string    `json:"status"`
	State  string    `json:"state"`
	Total  int       `json:"total"`
}

// Control commands accepted on the control topic.
const (
	CommandToggle = "toggle"
	CommandStart  = "start"
	CommandStop   = "stop"
	CommandReset  = "reset"
)

// ControlMessage asks the tracker to change mode.
type ControlMessage struct {
	Command string `json:"command"`
}
