// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/relabs-tech/pushup_tracker/internal/engine"
)

const buttonDebounce = 200 * time.Millisecond

// edgeWaiter is the part of gpio.PinIn the button watcher needs.
type edgeWaiter interface {
	WaitForEdge(timeout time.Duration) bool
}

// OpenButton configures pin name as a pulled-up input interrupting on the
// falling edge. host.Init must have been called.
func OpenButton(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("button: pin %q not found", name)
	}
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("button: configure %s: %w", name, err)
	}
	log.Printf("button: watching %s", name)
	return pin, nil
}

// WatchButton raises sig on every debounced edge until ctx is cancelled.
// It polls ctx at least once per poll interval.
func WatchButton(ctx context.Context, pin edgeWaiter, sig *engine.Signal, poll time.Duration) {
	var last time.Time
	for ctx.Err() == nil {
		if !pin.WaitForEdge(poll) {
			continue
		}
		now := time.Now()
		if !last.IsZero() && now.Sub(last) < buttonDebounce {
			continue
		}
		last = now
		sig.Raise()
	}
}
