// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package engine owns the tracker pipeline: conditioning, windowing,
// quantized classification, phase detection and the rep state machine.
// It is driven by a single control loop and is not safe for concurrent use.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/relabs-tech/pushup_tracker/internal/aggregate"
	"github.com/relabs-tech/pushup_tracker/internal/classifier"
	"github.com/relabs-tech/pushup_tracker/internal/dsp"
	"github.com/relabs-tech/pushup_tracker/internal/imu"
	"github.com/relabs-tech/pushup_tracker/internal/phase"
	"github.com/relabs-tech/pushup_tracker/internal/quant"
	"github.com/relabs-tech/pushup_tracker/internal/rep"
	"github.com/relabs-tech/pushup_tracker/internal/window"
)

// Options configures an Engine.
type Options struct {
	Preset           dsp.Preset
	WindowSize       int
	Normalization    quant.Normalization
	Layout           classifier.Layout
	Detector         phase.Detector
	Rep              rep.Config
	Watchdog         Watchdog
	InferenceTimeout time.Duration
}

// Inference is the outcome of one successful classifier run.
type Inference struct {
	Time     time.Time
	Latency  time.Duration
	Result   classifier.Result
	Phase    phase.Phase
	HasPhase bool
	Counter  rep.Counter
	Events   []rep.Event
}

// Engine is the single owned context of the tracker.
type Engine struct {
	cond   *dsp.Conditioner
	linear *window.Buffer
	motion *window.Buffer

	norm     quant.Normalization
	model    classifier.Classifier
	input    quant.Params
	layout   classifier.Layout
	detector phase.Detector
	machine  *rep.Machine
	watchdog Watchdog
	timeout  time.Duration

	enabled bool
	samples uint64
}

// New builds an engine around model. The model's input parameters are read
// once here.
func New(model classifier.Classifier, opts Options) (*Engine, error) {
	if model == nil {
		return nil, errors.New("engine: nil classifier")
	}
	if opts.Detector == nil {
		return nil, errors.New("engine: nil phase detector")
	}
	linear, err := window.NewBuffer(opts.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	motion, err := window.NewBuffer(opts.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	machine, err := rep.NewMachine(opts.Rep)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	wd := opts.Watchdog
	if wd == nil {
		wd = NopWatchdog{}
	}

	return &Engine{
		cond:     dsp.NewConditioner(opts.Preset),
		linear:   linear,
		motion:   motion,
		norm:     opts.Normalization,
		model:    model,
		input:    model.InputParams(),
		layout:   opts.Layout,
		detector: opts.Detector,
		machine:  machine,
		watchdog: wd,
		timeout:  opts.InferenceTimeout,
	}, nil
}

// Ingest conditions one raw sample and buffers it.
func (e *Engine) Ingest(raw imu.Raw) dsp.Output {
	out := e.cond.Process(raw)
	e.linear.Push(out.Linear)
	e.motion.Push(out.Motion)
	e.samples++
	return out
}

// Samples returns the number of samples ingested since the last reset.
func (e *Engine) Samples() uint64 { return e.samples }

// Ready reports whether a full window is buffered.
func (e *Engine) Ready() bool { return e.linear.Ready() }

// Infer classifies the current window and feeds the state machine.
// It returns window.ErrInsufficientData until the window is full, and an
// error wrapping classifier.ErrInvocationFailed when the model fails; in both
// cases the state machine is untouched.
func (e *Engine) Infer(ctx context.Context, now time.Time) (Inference, error) {
	lin, err := e.linear.Window()
	if err != nil {
		return Inference{}, err
	}
	mot, err := e.motion.Window()
	if err != nil {
		return Inference{}, err
	}

	tensor := quant.QuantizeWindow(lin, e.norm, e.input)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	e.watchdog.Feed()
	start := time.Now()
	outputs, err := e.model.Invoke(ctx, tensor)
	latency := time.Since(start)
	e.watchdog.Feed()

	if err != nil {
		return Inference{}, invocationError(err)
	}
	res, err := classifier.Decode(outputs, e.layout)
	if err != nil {
		return Inference{}, invocationError(err)
	}

	p, ok := e.detector.Detect(mot, res)
	rec := aggregate.Record{
		Posture:      res.Posture.Class,
		Phase:        p,
		HasPhase:     ok,
		PostureProbs: res.Posture.Probs,
		Confidence:   res.Posture.Confidence,
		Time:         now,
	}
	events := e.machine.Update(rec)

	return Inference{
		Time:     now,
		Latency:  latency,
		Result:   res,
		Phase:    p,
		HasPhase: ok,
		Counter:  e.machine.Snapshot(),
		Events:   events,
	}, nil
}

func invocationError(err error) error {
	if errors.Is(err, classifier.ErrInvocationFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", classifier.ErrInvocationFailed, err)
}

// CheckTimeout runs the state machine's timeout policy without a prediction.
func (e *Engine) CheckTimeout(now time.Time) []rep.Event {
	return e.machine.CheckTimeout(now)
}

// Counter returns the current rep counter.
func (e *Engine) Counter() rep.Counter { return e.machine.Snapshot() }

// Enabled reports whether inference is running.
func (e *Engine) Enabled() bool { return e.enabled }

// SetEnabled switches inference on or off.
func (e *Engine) SetEnabled(on bool) { e.enabled = on }

// Toggle flips inference and returns the new state.
func (e *Engine) Toggle() bool {
	e.enabled = !e.enabled
	return e.enabled
}

// Reset clears filter state, windows and counts.
func (e *Engine) Reset() {
	e.cond.Reset()
	e.linear.Reset()
	e.motion.Reset()
	e.machine.Reset()
	e.samples = 0
}
