// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package engine

import (
	"log"
	"sync/atomic"
	"time"
)

// Signal is a single-writer/single-reader flag raised asynchronously (button
// edge, control message) and consumed by the control loop at its own cadence.
// Raises between two Takes collapse into one.
type Signal struct {
	raised atomic.Bool
}

// Raise sets the flag. Safe to call from any goroutine.
func (s *Signal) Raise() {
	s.raised.Store(true)
}

// Take reports whether the flag was raised and clears it.
func (s *Signal) Take() bool {
	return s.raised.Swap(false)
}

// Watchdog is fed by the control loop to prove liveness.
type Watchdog interface {
	Feed()
}

// NopWatchdog ignores feeds.
type NopWatchdog struct{}

// Feed implements Watchdog.
func (NopWatchdog) Feed() {}

// SoftWatchdog records feed times so a supervisor goroutine can report a
// stalled control loop.
type SoftWatchdog struct {
	last atomic.Int64 // unix nanoseconds
}

// NewSoftWatchdog returns a watchdog fed at creation.
func NewSoftWatchdog() *SoftWatchdog {
	w := &SoftWatchdog{}
	w.Feed()
	return w
}

// Feed implements Watchdog.
func (w *SoftWatchdog) Feed() {
	w.last.Store(time.Now().UnixNano())
}

// Since returns the time elapsed since the last feed.
func (w *SoftWatchdog) Since(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, w.last.Load()))
}

// Expired reports whether the last feed is older than timeout.
func (w *SoftWatchdog) Expired(now time.Time, timeout time.Duration) bool {
	return w.Since(now) > timeout
}

// Supervise logs a warning every time the watchdog expires, until done is closed.
func (w *SoftWatchdog) Supervise(done <-chan struct{}, timeout time.Duration) {
	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			if w.Expired(now, timeout) {
				log.Printf("WARNING: watchdog: control loop not fed for %v", w.Since(now).Round(time.Millisecond))
			}
		}
	}
}
