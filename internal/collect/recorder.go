// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package collect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/pushup_tracker/internal/imu"
)

// Recorder drives a streamer over a link and captures its frames.
// One goroutine reads the link for the recorder's lifetime; it exits when
// the link returns an error, e.g. after the caller closes it. Frames that
// arrive while no recording is active are discarded, so the goroutine never
// blocks between recordings.
// Record must not be called concurrently.
type Recorder struct {
	link io.ReadWriter
	now  func() time.Time

	started   bool
	active    atomic.Bool
	discarded atomic.Uint64
	frames    chan imu.Frame
	readErr   error // set before frames is closed
}

// NewRecorder creates a recorder on link.
func NewRecorder(link io.ReadWriter) *Recorder {
	return &Recorder{
		link:   link,
		now:    time.Now,
		frames: make(chan imu.Frame, 256),
	}
}

func (r *Recorder) readLoop() {
	for {
		f, err := imu.ReadFrame(r.link)
		if err != nil {
			r.readErr = err
			close(r.frames)
			return
		}
		if !r.active.Load() {
			r.discarded.Add(1)
			continue
		}
		r.frames <- f
	}
}

// Discarded returns the number of frames received outside a recording.
func (r *Recorder) Discarded() uint64 { return r.discarded.Load() }

func (r *Recorder) send(cmd string) error {
	if _, err := io.WriteString(r.link, cmd+"\n"); err != nil {
		return fmt.Errorf("collect: send %s: %w", cmd, err)
	}
	return nil
}

// drain discards frames that arrived between recordings.
func (r *Recorder) drain() {
	for {
		select {
		case _, ok := <-r.frames:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Record sends START, captures frames until ctx is done or the link fails,
// then sends STOP. A clean end of stream is not an error.
func (r *Recorder) Record(ctx context.Context) ([]Sample, error) {
	r.active.Store(true)
	if r.started {
		r.drain()
	} else {
		r.started = true
		go r.readLoop()
	}

	if err := r.send(CmdStart); err != nil {
		r.active.Store(false)
		return nil, err
	}

	var (
		samples []Sample
		start   time.Time
		err     error
	)
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case f, ok := <-r.frames:
			if !ok {
				if !errors.Is(r.readErr, io.EOF) {
					err = fmt.Errorf("collect: read frame: %w", r.readErr)
				}
				break loop
			}
			now := r.now()
			if start.IsZero() {
				start = now
			}
			samples = append(samples, NewSample(now, now.Sub(start), f))
		}
	}

	r.active.Store(false)
	// frees a reader blocked on a full queue
	r.drain()

	if stopErr := r.send(CmdStop); stopErr != nil {
		log.Printf("collect: WARNING: %v", stopErr)
	}
	log.Printf("collect: captured %d frames", len(samples))
	return samples, err
}
