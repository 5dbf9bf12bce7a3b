// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package phase

import (
	"fmt"
	"strings"

	"github.com/relabs-tech/pushup_tracker/internal/classifier"
	"github.com/relabs-tech/pushup_tracker/internal/imu"
)

// ClassMap maps model phase classes to phases. Classes missing from the map
// produce no phase.
type ClassMap map[int]Phase

// DefaultClassMap matches classifier.PhaseLabels:
// moving-down and moving-up are moving, top is at-top, not-in-pushup is unmapped.
func DefaultClassMap() ClassMap {
	return ClassMap{0: Moving, 1: Moving, 3: AtTop}
}

// ParseClassMap reads a comma-separated list of phases in class order,
// with "-" for unmapped classes, e.g. "moving,moving,-,at-top".
func ParseClassMap(s string) (ClassMap, error) {
	m := ClassMap{}
	for i, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "-" || field == "" {
			continue
		}
		p, err := Parse(field)
		if err != nil {
			return nil, fmt.Errorf("class %d: %w", i, err)
		}
		m[i] = p
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("phase: class map %q maps nothing", s)
	}
	return m, nil
}

// ModelDetector reads the phase from the classifier's phase head.
type ModelDetector struct {
	Classes ClassMap
}

// NewModelDetector returns a detector over classes.
func NewModelDetector(classes ClassMap) *ModelDetector {
	return &ModelDetector{Classes: classes}
}

// Detect implements Detector. The window is not used.
func (d *ModelDetector) Detect(_ []imu.Frame, r classifier.Result) (Phase, bool) {
	if !r.HasPhase {
		return 0, false
	}
	p, ok := d.Classes[r.Phase.Class]
	return p, ok
}
