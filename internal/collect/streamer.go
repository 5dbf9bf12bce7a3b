// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package collect

import (
	"bufio"
	"context"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/pushup_tracker/internal/imu"
)

// Streamer writes one binary frame per period while started.
// Acknowledgements go to the log, never to the binary channel.
type Streamer struct {
	reader imu.Reader
	out    io.Writer
	period time.Duration

	streaming atomic.Bool
	buf       []byte
	sent      uint64
	skipped   uint64
}

// NewStreamer creates a streamer sampling r every period and writing frames to out.
func NewStreamer(r imu.Reader, out io.Writer, period time.Duration) *Streamer {
	return &Streamer{
		reader: r,
		out:    out,
		period: period,
		buf:    make([]byte, 0, imu.FrameSize),
	}
}

// Streaming reports whether frames are being written.
func (s *Streamer) Streaming() bool {
	return s.streaming.Load()
}

// Handle applies one command line. Unknown commands are logged and ignored.
func (s *Streamer) Handle(line string) {
	switch cmd := strings.TrimSpace(line); cmd {
	case "":
	case CmdStart:
		s.streaming.Store(true)
		log.Println("streamer: [CMD] streaming started")
	case CmdStop:
		s.streaming.Store(false)
		log.Println("streamer: [CMD] streaming stopped")
	default:
		log.Printf("streamer: unknown command %q", cmd)
	}
}

// Tick samples the IMU once and writes the frame if streaming.
// A failed read skips the sample; only a write error is returned.
func (s *Streamer) Tick() error {
	if !s.streaming.Load() {
		return nil
	}
	raw, err := s.reader.Read()
	if err != nil {
		s.skipped++
		return nil
	}
	s.buf = imu.AppendFrame(s.buf[:0], raw.Frame())
	if _, err := s.out.Write(s.buf); err != nil {
		return err
	}
	s.sent++
	return nil
}

// Counts returns frames written and samples skipped.
func (s *Streamer) Counts() (sent, skipped uint64) {
	return s.sent, s.skipped
}

// Run reads command lines from cmds and streams until ctx is cancelled or
// a write fails.
func (s *Streamer) Run(ctx context.Context, cmds io.Reader) error {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(cmds)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Printf("streamer: command channel error: %v", err)
		}
	}()

	log.Printf("streamer: ready, send %s to begin streaming", CmdStart)
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sent, skipped := s.Counts()
			log.Printf("streamer: stopped (%d frames sent, %d skipped)", sent, skipped)
			return nil
		case line := <-lines:
			s.Handle(line)
		case <-ticker.C:
			if err := s.Tick(); err != nil {
				return err
			}
		}
	}
}
