// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/pushup_tracker/internal/classifier"
	"github.com/relabs-tech/pushup_tracker/internal/display"
	"github.com/relabs-tech/pushup_tracker/internal/dsp"
	"github.com/relabs-tech/pushup_tracker/internal/engine"
	"github.com/relabs-tech/pushup_tracker/internal/events"
	"github.com/relabs-tech/pushup_tracker/internal/history"
	"github.com/relabs-tech/pushup_tracker/internal/imu"
	"github.com/relabs-tech/pushup_tracker/internal/phase"
	"github.com/relabs-tech/pushup_tracker/internal/quant"
	"github.com/relabs-tech/pushup_tracker/internal/rep"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeModel struct {
	posture []int8
	err     error
	calls   int
}

func (f *fakeModel) InputParams() quant.Params { return quant.Params{Scale: 0.05} }

func (f *fakeModel) Invoke(_ context.Context, _ []int8) ([]classifier.Tensor, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []classifier.Tensor{{Data: f.posture, Params: quant.Params{Scale: 1.0 / 256, ZeroPoint: -128}}}, nil
}

type scripted struct{ phases []phase.Phase }

func (s *scripted) Detect(_ []imu.Frame, _ classifier.Result) (phase.Phase, bool) {
	if len(s.phases) == 0 {
		return 0, false
	}
	p := s.phases[0]
	s.phases = s.phases[1:]
	return p, true
}

type flatReader struct{ fail bool }

func (r flatReader) Read() (imu.Raw, error) {
	if r.fail {
		return imu.Raw{}, errors.New("spi timeout")
	}
	return imu.Raw{Accel: [3]float32{0, 0, 1}}, nil
}

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type message struct {
	topic   string
	payload []byte
}

type fakeClient struct{ sent []message }

func (f *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	f.sent = append(f.sent, message{topic: topic, payload: payload.([]byte)})
	return doneToken{}
}

func (f *fakeClient) on(topic string) []message {
	var out []message
	for _, m := range f.sent {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

var testTopics = events.Topics{Reps: "r", Inference: "i", Status: "s"}

const testWindow = 4

type fixture struct {
	tracker *Tracker
	model   *fakeModel
	client  *fakeClient
	store   *history.Store
	screen  *bytes.Buffer
}

func newFixture(t *testing.T, phases ...phase.Phase) *fixture {
	t.Helper()
	model := &fakeModel{posture: []int8{100, -100}}
	eng, err := engine.New(model, engine.Options{
		Preset:        dsp.DuplicatedPreset(),
		WindowSize:    testWindow,
		Normalization: quant.Identity(),
		Layout:        classifier.PostureOnly(),
		Detector:      &scripted{phases: phases},
		Rep:           rep.DefaultConfig(),
	})
	require.NoError(t, err)

	store, err := history.Open(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	client := &fakeClient{}
	screen := &bytes.Buffer{}
	tr := NewTracker(eng, flatReader{}, TrackerOptions{
		Display:   display.NewConsole(screen),
		Publisher: events.NewPublisher(client, testTopics),
		Store:     store,
		Preset:    dsp.PresetDuplicated,
		Policy:    rep.PolicyAggregate,
	})
	return &fixture{tracker: tr, model: model, client: client, store: store, screen: screen}
}

func lastStatus(t *testing.T, c *fakeClient) events.StatusMessage {
	t.Helper()
	msgs := c.on("s")
	require.NotEmpty(t, msgs)
	var m events.StatusMessage
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].payload, &m))
	return m
}

func TestTracker_FullRepWhileRunning(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, phase.AtTop, phase.Moving, phase.Moving, phase.AtBottom, phase.AtBottom,
		phase.Moving, phase.Moving, phase.AtTop, phase.AtTop)
	tr := f.tracker

	tr.Start(t0)
	assert.Equal(t, events.StatusReady, lastStatus(t, f.client).Status)
	assert.Contains(t, f.screen.String(), "GAINS | Ready!")

	for i := 0; i < testWindow; i++ {
		assert.True(t, tr.Sample())
	}

	// disabled: no model calls
	tr.Infer(ctx, t0)
	assert.Zero(t, f.model.calls)

	tr.Controls.Apply(events.ControlMessage{Command: events.CommandStart})
	tr.HandleControls(ctx, t0)
	assert.True(t, tr.Engine().Enabled())
	assert.Equal(t, events.StatusRunning, lastStatus(t, f.client).Status)

	for i := 1; i <= 9; i++ {
		tr.Infer(ctx, t0.Add(time.Duration(i)*time.Second))
	}
	assert.Equal(t, 9, f.model.calls)
	assert.Len(t, f.client.on("i"), 9)

	reps := f.client.on("r")
	require.Len(t, reps, 1)
	var rm events.RepMessage
	require.NoError(t, json.Unmarshal(reps[0].payload, &rm))
	assert.Equal(t, 1, rm.Number)
	assert.True(t, rm.Good)
	assert.Equal(t, "good-form", rm.Posture)
	assert.Contains(t, f.screen.String(), "Po: good-form")

	tr.Controls.Toggle.Raise()
	tr.HandleControls(ctx, t0.Add(time.Minute))
	assert.False(t, tr.Engine().Enabled())
	assert.Equal(t, events.StatusStopped, lastStatus(t, f.client).Status)
	assert.Contains(t, f.screen.String(), "GAINS | Stopped")

	sums, err := f.store.Summaries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, 1, sums[0].Total)
	assert.Equal(t, 1, sums[0].Good)
	assert.True(t, sums[0].Ended.Equal(t0.Add(time.Minute)))
}

func TestTracker_ControlsResolveToFinalState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.tracker

	// toggle then stop in one tick: stays stopped, nothing published
	tr.Controls.Toggle.Raise()
	tr.Controls.Stop.Raise()
	tr.HandleControls(ctx, t0)
	assert.False(t, tr.Engine().Enabled())
	assert.Empty(t, f.client.on("s"))

	tr.Controls.Toggle.Raise()
	tr.HandleControls(ctx, t0)
	assert.True(t, tr.Engine().Enabled())

	// a second start while running changes nothing
	tr.Controls.Start.Raise()
	tr.HandleControls(ctx, t0)
	assert.Len(t, f.client.on("s"), 1)
}

func TestTracker_ResetClearsBuffers(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker
	for i := 0; i < testWindow; i++ {
		tr.Sample()
	}
	require.True(t, tr.Engine().Ready())

	tr.Controls.Apply(events.ControlMessage{Command: events.CommandReset})
	tr.HandleControls(context.Background(), t0)
	assert.False(t, tr.Engine().Ready())
	assert.Zero(t, tr.Engine().Samples())
}

func TestTracker_FailuresAreSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, phase.AtTop)
	tr := f.tracker
	tr.Controls.Start.Raise()
	tr.HandleControls(ctx, t0)

	// window not full yet
	tr.Infer(ctx, t0.Add(time.Second))
	assert.Zero(t, f.model.calls)

	for i := 0; i < testWindow; i++ {
		tr.Sample()
	}
	f.model.err = errors.New("arena exhausted")
	tr.Infer(ctx, t0.Add(2*time.Second))
	assert.Equal(t, 1, f.model.calls)
	assert.Empty(t, f.client.on("i"))
	assert.Equal(t, rep.Idle, tr.Engine().Counter().State)

	bad := NewTracker(tr.Engine(), flatReader{fail: true}, TrackerOptions{})
	before := tr.Engine().Samples()
	assert.False(t, bad.Sample())
	assert.Equal(t, before, tr.Engine().Samples())
}

func TestProbSummary(t *testing.T) {
	got := probSummary(classifier.PhaseLabels, []float32{0.6, 0.05, 0.3, 0.05})
	assert.Equal(t, "moving-down=60% not-in-pushup=30%", got)
	assert.Empty(t, probSummary(classifier.PostureLabels, nil))
}

func TestScreenFor(t *testing.T) {
	inf := engine.Inference{
		Result: classifier.Result{
			Posture: classifier.Head{Class: classifier.PosturePoor, Confidence: 0.8},
		},
		Phase:    phase.AtBottom,
		HasPhase: true,
		Counter:  rep.Counter{Total: 3, Good: 2},
	}
	s := screenFor(inf)
	assert.Equal(t, "at-bottom", s.Phase)
	assert.Equal(t, "hips-sagging", s.Posture)
	assert.Equal(t, 3, s.Reps)
	assert.Equal(t, 2, s.Good)

	inf.HasPhase = false
	assert.Equal(t, "-", screenFor(inf).Phase)
}

func TestTracker_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	f.tracker.Run(ctx, time.Millisecond, 10*time.Millisecond)

	assert.Positive(t, f.tracker.Engine().Samples())
	assert.True(t, strings.Contains(f.screen.String(), "Stopped"))
}
