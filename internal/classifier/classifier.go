// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package classifier defines the boundary to the quantized inference engine
// and decodes its output tensors into per-class probabilities.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/relabs-tech/pushup_tracker/internal/quant"
)

// ErrInvocationFailed marks a non-success status from the inference engine.
// Callers log and discard the window.
var ErrInvocationFailed = errors.New("classifier: invocation failed")

// Tensor is one int8 output of the engine with its quantization parameters.
type Tensor struct {
	Data   []int8
	Params quant.Params
}

// Classifier is an opaque quantized model: one time-major int8 window in,
// one or two class-score tensors out. InputParams is queried once at startup.
type Classifier interface {
	InputParams() quant.Params
	Invoke(ctx context.Context, input []int8) ([]Tensor, error)
}

// Reference label sets, in model output order.
var (
	PhaseLabels   = []string{"moving-down", "moving-up", "not-in-pushup", "top"}
	PostureLabels = []string{"good-form", "hips-sagging"}
)

// Posture classes.
const (
	PostureGood = 0
	PosturePoor = 1
)

// Layout locates the heads among the output tensors. -1 marks an absent head.
type Layout struct {
	Posture int
	Phase   int
}

// DefaultLayout is the reference multi-task model: phase first, posture second.
func DefaultLayout() Layout {
	return Layout{Posture: 1, Phase: 0}
}

// PostureOnly is a model without a phase head.
func PostureOnly() Layout {
	return Layout{Posture: 0, Phase: -1}
}

// Head is one decoded output.
type Head struct {
	Probs      []float32
	Class      int
	Confidence float32
}

// Result is the decoded output of one inference.
type Result struct {
	Posture  Head
	Phase    Head
	HasPhase bool
}

// Decode dequantizes the heads named by layout.
func Decode(outputs []Tensor, layout Layout) (Result, error) {
	var r Result
	h, err := decodeHead(outputs, layout.Posture, "posture")
	if err != nil {
		return Result{}, err
	}
	r.Posture = h

	if layout.Phase >= 0 {
		h, err := decodeHead(outputs, layout.Phase, "phase")
		if err != nil {
			return Result{}, err
		}
		r.Phase = h
		r.HasPhase = true
	}
	return r, nil
}

func decodeHead(outputs []Tensor, idx int, name string) (Head, error) {
	if idx < 0 || idx >= len(outputs) {
		return Head{}, fmt.Errorf("classifier: %s output %d not in %d tensors", name, idx, len(outputs))
	}
	t := outputs[idx]
	if len(t.Data) == 0 {
		return Head{}, fmt.Errorf("classifier: %s output %d is empty", name, idx)
	}
	probs := quant.DequantizeScores(t.Data, t.Params)
	class, conf := quant.ArgMax(probs)
	return Head{Probs: probs, Class: class, Confidence: conf}, nil
}

// Label returns labels[class] or a numbered fallback.
func Label(labels []string, class int) string {
	if class >= 0 && class < len(labels) {
		return labels[class]
	}
	return fmt.Sprintf("class-%d", class)
}
