// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package window

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/pushup_tracker/internal/imu"
)

// ErrInsufficientData is returned by Window until the buffer has been filled
// once since the last reset. It is a normal startup condition.
var ErrInsufficientData = errors.New("window: insufficient data")

// Buffer is a fixed-capacity ring of conditioned frames.
// The zero value is not usable; create one with NewBuffer.
type Buffer struct {
	frames []imu.Frame
	next   int // write cursor, always in [0, cap)
	count  int // frames pushed since reset, saturates at cap
}

// NewBuffer returns a buffer holding the most recent size frames.
func NewBuffer(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window: invalid size %d", size)
	}
	return &Buffer{frames: make([]imu.Frame, size)}, nil
}

// Push stores f, overwriting the oldest frame once the buffer is full.
func (b *Buffer) Push(f imu.Frame) {
	b.frames[b.next] = f
	b.next = (b.next + 1) % len(b.frames)
	if b.count < len(b.frames) {
		b.count++
	}
}

// Window returns a copy of the buffered frames in chronological order.
func (b *Buffer) Window() ([]imu.Frame, error) {
	if b.count < len(b.frames) {
		return nil, fmt.Errorf("%w: have %d of %d samples", ErrInsufficientData, b.count, len(b.frames))
	}
	out := make([]imu.Frame, 0, len(b.frames))
	out = append(out, b.frames[b.next:]...)
	out = append(out, b.frames[:b.next]...)
	return out, nil
}

// Len returns the number of valid frames.
func (b *Buffer) Len() int { return b.count }

// Cap returns the window size.
func (b *Buffer) Cap() int { return len(b.frames) }

// Ready reports whether a full window is available.
func (b *Buffer) Ready() bool { return b.count == len(b.frames) }

// Reset discards all frames.
func (b *Buffer) Reset() {
	clear(b.frames)
	b.next = 0
	b.count = 0
}
