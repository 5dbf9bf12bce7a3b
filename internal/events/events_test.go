// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/pushup_tracker/internal/classifier"
	"github.com/relabs-tech/pushup_tracker/internal/engine"
	"github.com/relabs-tech/pushup_tracker/internal/phase"
	"github.com/relabs-tech/pushup_tracker/internal/rep"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                       { return true }
func (t doneToken) WaitTimeout(_ time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeClient struct {
	sent []published
	err  error
}

func (f *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	f.sent = append(f.sent, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return doneToken{err: f.err}
}

var topics = Topics{Reps: "pushup/reps", Inference: "pushup/inference", Status: "pushup/status"}

func TestPublishRep(t *testing.T) {
	c := &fakeClient{}
	p := NewPublisher(c, topics)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	r := rep.Rep{Number: 4, Good: false, Posture: classifier.PosturePoor, Confidence: 0.75,
		Predictions: 6, Start: start, End: start.Add(2500 * time.Millisecond)}
	require.NoError(t, p.Rep(NewRepMessage(r, rep.Counter{Total: 4, Good: 3, Poor: 1})))

	require.Len(t, c.sent, 1)
	assert.Equal(t, "pushup/reps", c.sent[0].topic)
	assert.False(t, c.sent[0].retained)

	var got RepMessage
	require.NoError(t, json.Unmarshal(c.sent[0].payload, &got))
	assert.Equal(t, "hips-sagging", got.Posture)
	assert.Equal(t, 2.5, got.DurationSec)
	assert.Equal(t, 3, got.GoodTotal)
	assert.True(t, got.Time.Equal(r.End))
}

func TestPublishStatusIsRetained(t *testing.T) {
	c := &fakeClient{}
	p := NewPublisher(c, topics)
	require.NoError(t, p.Status(StatusMessage{Status: StatusRunning, State: "idle"}))
	require.Len(t, c.sent, 1)
	assert.True(t, c.sent[0].retained)
}

func TestPublishErrorsAndEmptyTopic(t *testing.T) {
	c := &fakeClient{err: errors.New("not connected")}
	p := NewPublisher(c, topics)
	assert.Error(t, p.Status(StatusMessage{}))

	c = &fakeClient{}
	p = NewPublisher(c, Topics{})
	assert.NoError(t, p.Rep(RepMessage{}))
	assert.Empty(t, c.sent)
}

func TestInferenceMessage(t *testing.T) {
	inf := engine.Inference{
		Time:    time.Unix(100, 0),
		Latency: 1500 * time.Microsecond,
		Result: classifier.Result{
			Posture:  classifier.Head{Class: 0, Confidence: 0.8, Probs: []float32{0.8, 0.2}},
			Phase:    classifier.Head{Class: 3, Confidence: 0.9},
			HasPhase: true,
		},
		Phase:    phase.Moving,
		HasPhase: true,
		Counter:  rep.Counter{State: rep.Descending, Total: 2, Good: 1},
	}
	m := NewInferenceMessage(inf)
	assert.Equal(t, 1.5, m.LatencyMs)
	assert.Equal(t, "good-form", m.Posture)
	assert.Equal(t, "top", m.ModelPhase)
	assert.Equal(t, "moving", m.Phase)
	assert.Equal(t, "descending", m.State)

	inf.HasPhase = false
	inf.Result.HasPhase = false
	m = NewInferenceMessage(inf)
	assert.Empty(t, m.Phase)
	assert.Empty(t, m.ModelPhase)
}

func TestParseControl(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"toggle", CommandToggle, false},
		{"  START\n", CommandStart, false},
		{`{"command":"stop"}`, CommandStop, false},
		{`{"command":"Reset"}`, CommandReset, false},
		{`{"command":`, "", true},
		{"jump", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		m, err := ParseControl([]byte(tt.in))
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, m.Command)
	}
}
