// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package phase turns a window (or a model's phase head) into one of the
// three push-up phases consumed by the rep state machine.
package phase

import (
	"fmt"
	"strings"

	"github.com/relabs-tech/pushup_tracker/internal/classifier"
	"github.com/relabs-tech/pushup_tracker/internal/imu"
)

// Phase is the per-window phase classification.
type Phase int

const (
	AtTop    Phase = 0
	Moving   Phase = 1
	AtBottom Phase = 2
)

func (p Phase) String() string {
	switch p {
	case AtTop:
		return "at-top"
	case Moving:
		return "moving"
	case AtBottom:
		return "at-bottom"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Parse accepts the names produced by String.
func Parse(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "at-top", "top":
		return AtTop, nil
	case "moving":
		return Moving, nil
	case "at-bottom", "bottom":
		return AtBottom, nil
	default:
		return 0, fmt.Errorf("phase: unknown phase %q", s)
	}
}

// Detector classifies the current window. ok=false means "no phase this
// window" and the state machine must not be updated with a phase.
type Detector interface {
	Detect(motion []imu.Frame, r classifier.Result) (p Phase, ok bool)
}

// Detector names.
const (
	SourceModel       = "model"
	SourceStatistical = "statistical"
)
