// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/relabs-tech/pushup_tracker/internal/classifier"
	"github.com/relabs-tech/pushup_tracker/internal/display"
	"github.com/relabs-tech/pushup_tracker/internal/engine"
	"github.com/relabs-tech/pushup_tracker/internal/events"
	"github.com/relabs-tech/pushup_tracker/internal/history"
	"github.com/relabs-tech/pushup_tracker/internal/imu"
	"github.com/relabs-tech/pushup_tracker/internal/rep"
	"github.com/relabs-tech/pushup_tracker/internal/window"
)

const (
	displayTitle = "GAINS"
	// probabilities at or below this are left out of the diagnostic log
	probLogFloor = 0.05
)

// Controls are the flags raised by the button and the control topic.
// The tracker loop is their only reader.
type Controls struct {
	Toggle engine.Signal
	Start  engine.Signal
	Stop   engine.Signal
	Reset  engine.Signal
}

// Apply raises the flag for a control command.
func (c *Controls) Apply(m events.ControlMessage) {
	switch m.Command {
	case events.CommandToggle:
		c.Toggle.Raise()
	case events.CommandStart:
		c.Start.Raise()
	case events.CommandStop:
		c.Stop.Raise()
	case events.CommandReset:
		c.Reset.Raise()
	}
}

// TrackerOptions are the tracker's optional collaborators.
type TrackerOptions struct {
	Display   display.Display
	Publisher *events.Publisher
	Store     *history.Store
	Preset    string
	Policy    string
	// minimum time between prediction redraws
	DisplayEvery time.Duration
	// fed once per sample tick
	Watchdog engine.Watchdog
}

// Tracker owns the engine and everything that reacts to it.
type Tracker struct {
	engine   *engine.Engine
	reader   imu.Reader
	opts     TrackerOptions
	Controls Controls

	session    history.Session
	hasSession bool
	readErrors uint64
	lastDraw   time.Time
}

// NewTracker wires an engine to its sample source.
func NewTracker(eng *engine.Engine, reader imu.Reader, opts TrackerOptions) *Tracker {
	return &Tracker{engine: eng, reader: reader, opts: opts}
}

// Engine returns the tracker's engine.
func (t *Tracker) Engine() *engine.Engine { return t.engine }

// Start shows the ready screen and publishes the initial status.
func (t *Tracker) Start(now time.Time) {
	t.showStatus("Ready!")
	t.publishStatus(now, events.StatusReady)
}

// Sample reads and ingests one IMU sample. A failed read skips the tick.
func (t *Tracker) Sample() bool {
	raw, err := t.reader.Read()
	if err != nil {
		t.readErrors++
		if t.readErrors == 1 || t.readErrors%100 == 0 {
			log.Printf("tracker: IMU read error (%d so far): %v", t.readErrors, err)
		}
		return false
	}
	t.engine.Ingest(raw)
	return true
}

// HandleControls applies any pending control flags.
func (t *Tracker) HandleControls(ctx context.Context, now time.Time) {
	if t.Controls.Reset.Take() {
		t.engine.Reset()
		log.Println("tracker: counters reset")
	}

	enabled := t.engine.Enabled()
	want := enabled
	if t.Controls.Toggle.Take() {
		want = !want
	}
	if t.Controls.Start.Take() {
		want = true
	}
	if t.Controls.Stop.Take() {
		want = false
	}
	if want == enabled {
		return
	}

	t.engine.SetEnabled(want)
	if want {
		log.Println("tracker: inference started")
		t.showStatus("Running...")
		t.publishStatus(now, events.StatusRunning)
		t.beginSession(ctx, now)
	} else {
		log.Println("tracker: inference stopped")
		t.showStatus("Stopped")
		t.publishStatus(now, events.StatusStopped)
		t.endSession(ctx, now)
	}
}

// Infer runs one inference when enabled. Missing data and model failures are
// logged and skipped; the timeout policy still runs.
func (t *Tracker) Infer(ctx context.Context, now time.Time) {
	if !t.engine.Enabled() {
		return
	}

	inf, err := t.engine.Infer(ctx, now)
	switch {
	case errors.Is(err, window.ErrInsufficientData):
		t.handleEvents(ctx, t.engine.CheckTimeout(now))
		return
	case err != nil:
		log.Printf("tracker: inference failed: %v", err)
		t.handleEvents(ctx, t.engine.CheckTimeout(now))
		return
	}

	logInference(inf)
	t.handleEvents(ctx, inf.Events)

	if t.opts.Display != nil && now.Sub(t.lastDraw) >= t.opts.DisplayEvery {
		t.lastDraw = now
		if err := display.ShowPrediction(t.opts.Display, screenFor(inf)); err != nil {
			log.Printf("tracker: display error: %v", err)
		}
	}
	if t.opts.Publisher != nil {
		if err := t.opts.Publisher.Inference(events.NewInferenceMessage(inf)); err != nil {
			log.Printf("tracker: publish inference: %v", err)
		}
	}
}

// Shutdown closes the running session and reports the final count.
func (t *Tracker) Shutdown(ctx context.Context, now time.Time) {
	c := t.engine.Counter()
	log.Printf("tracker: stopped with %d reps (%d good, %d poor)", c.Total, c.Good, c.Poor)
	t.endSession(ctx, now)
	t.showStatus("Stopped")
	t.publishStatus(now, events.StatusStopped)
}

func (t *Tracker) handleEvents(ctx context.Context, evs []rep.Event) {
	for _, ev := range evs {
		switch ev.Kind {
		case rep.StateChanged:
			log.Printf("tracker: %s -> %s", ev.From, ev.To)
		case rep.CycleDiscarded:
			log.Printf("tracker: cycle discarded (%s)", ev.Reason)
		case rep.RepCompleted:
			t.completed(ctx, ev.Rep)
		}
	}
}

func (t *Tracker) completed(ctx context.Context, r rep.Rep) {
	c := t.engine.Counter()
	form := "good"
	if !r.Good {
		form = "poor"
	}
	log.Printf("tracker: rep %d complete: %s form (%.0f%%, %d predictions, %v)",
		r.Number, form, r.Confidence*100, r.Predictions, r.Duration().Round(time.Millisecond))
	if r.Forced {
		log.Printf("tracker: rep %d completed by timeout", r.Number)
	}
	if r.LowConfidence {
		log.Printf("WARNING: tracker: rep %d posture verdict has low confidence", r.Number)
	}

	if t.opts.Publisher != nil {
		if err := t.opts.Publisher.Rep(events.NewRepMessage(r, c)); err != nil {
			log.Printf("tracker: publish rep: %v", err)
		}
	}
	if t.opts.Store != nil && t.hasSession {
		if err := t.opts.Store.RecordRep(ctx, t.session.ID, r); err != nil {
			log.Printf("tracker: history: %v", err)
		}
	}
}

func (t *Tracker) beginSession(ctx context.Context, now time.Time) {
	if t.opts.Store == nil || t.hasSession {
		return
	}
	s, err := t.opts.Store.StartSession(ctx, now, t.opts.Preset, t.opts.Policy)
	if err != nil {
		log.Printf("tracker: history: %v", err)
		return
	}
	t.session, t.hasSession = s, true
	log.Printf("tracker: history session %s", s.ID)
}

func (t *Tracker) endSession(ctx context.Context, now time.Time) {
	if t.opts.Store == nil || !t.hasSession {
		return
	}
	if err := t.opts.Store.EndSession(ctx, t.session.ID, now); err != nil {
		log.Printf("tracker: history: %v", err)
	}
	t.hasSession = false
}

func (t *Tracker) showStatus(status string) {
	if t.opts.Display == nil {
		return
	}
	if err := display.ShowStatus(t.opts.Display, displayTitle, status); err != nil {
		log.Printf("tracker: display error: %v", err)
	}
}

func (t *Tracker) publishStatus(now time.Time, status string) {
	if t.opts.Publisher == nil {
		return
	}
	c := t.engine.Counter()
	m := events.StatusMessage{Time: now, Status: status, State: c.State.String(), Total: c.Total}
	if err := t.opts.Publisher.Status(m); err != nil {
		log.Printf("tracker: publish status: %v", err)
	}
}

func screenFor(inf engine.Inference) display.Screen {
	s := display.Screen{
		Title:      displayTitle,
		Posture:    classifier.Label(classifier.PostureLabels, inf.Result.Posture.Class),
		PostureCon: inf.Result.Posture.Confidence,
		Reps:       inf.Counter.Total,
		Good:       inf.Counter.Good,
	}
	switch {
	case inf.HasPhase:
		s.Phase = inf.Phase.String()
		if inf.Result.HasPhase {
			s.PhaseConf = inf.Result.Phase.Confidence
		} else {
			s.PhaseConf = 1
		}
	case inf.Result.HasPhase:
		s.Phase = classifier.Label(classifier.PhaseLabels, inf.Result.Phase.Class)
		s.PhaseConf = inf.Result.Phase.Confidence
	default:
		s.Phase = "-"
	}
	return s
}

// probSummary lists the labelled probabilities above the log floor.
func probSummary(labels []string, probs []float32) string {
	var b strings.Builder
	for i, p := range probs {
		if p <= probLogFloor {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s=%.0f%%", classifier.Label(labels, i), p*100)
	}
	return b.String()
}

func logInference(inf engine.Inference) {
	line := fmt.Sprintf("tracker: inference %v posture [%s]",
		inf.Latency.Round(time.Microsecond),
		probSummary(classifier.PostureLabels, inf.Result.Posture.Probs))
	if inf.Result.HasPhase {
		line += fmt.Sprintf(" phase [%s]", probSummary(classifier.PhaseLabels, inf.Result.Phase.Probs))
	}
	if inf.HasPhase {
		line += " -> " + inf.Phase.String()
	}
	log.Println(line)
}

// Run drives the tracker until ctx is cancelled: one sample per sampleEvery,
// one inference per inferEvery, control flags checked every sample tick.
func (t *Tracker) Run(ctx context.Context, sampleEvery, inferEvery time.Duration) {
	t.Start(time.Now())

	samples := time.NewTicker(sampleEvery)
	defer samples.Stop()
	infers := time.NewTicker(inferEvery)
	defer infers.Stop()

	for {
		select {
		case <-ctx.Done():
			// ctx is done; history writes use a fresh one
			t.Shutdown(context.Background(), time.Now())
			return
		case now := <-samples.C:
			if t.opts.Watchdog != nil {
				t.opts.Watchdog.Feed()
			}
			t.HandleControls(ctx, now)
			t.Sample()
		case now := <-infers.C:
			t.Infer(ctx, now)
		}
	}
}
