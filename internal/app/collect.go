// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/relabs-tech/pushup_tracker/internal/collect"
	"github.com/relabs-tech/pushup_tracker/internal/config"
	"github.com/relabs-tech/pushup_tracker/internal/dsp"
	"github.com/relabs-tech/pushup_tracker/internal/imu"
	"github.com/relabs-tech/pushup_tracker/internal/quant"
)

// RunStreamer streams raw IMU frames on the device's serial gadget port
// while the host has sent START.
func RunStreamer() error {
	cfg := config.Get()

	reader, err := openReader(cfg)
	if err != nil {
		return err
	}
	port, err := collect.OpenPort(cfg.StreamSerialPort, cfg.StreamBaudRate)
	if err != nil {
		return err
	}
	defer port.Close()
	log.Printf("streamer: %s at %d baud, %d ms period", cfg.StreamSerialPort, cfg.StreamBaudRate, cfg.SampleInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := collect.NewStreamer(reader, port, config.Millis(cfg.SampleInterval))
	return s.Run(ctx, port)
}

// CollectOptions describes one collection run.
type CollectOptions struct {
	Sessions int
	Duration time.Duration
	Pause    time.Duration
	Phase    string
	Posture  string
	Notes    string
}

// RunCollector records labelled sessions from a streamer and exports them.
func RunCollector(opts CollectOptions) error {
	cfg := config.Get()

	port, err := collect.OpenPort(cfg.CollectSerialPort, cfg.CollectBaudRate)
	if err != nil {
		return err
	}
	defer port.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions, err := recordSessions(ctx, collect.NewRecorder(port), opts, collect.Labels{
		Participant: cfg.CollectParticipant,
		Placement:   cfg.CollectPlacement,
		Phase:       opts.Phase,
		Posture:     opts.Posture,
		Notes:       opts.Notes,
	}, cfg.SampleRate())
	if len(sessions) == 0 {
		if err != nil {
			return err
		}
		return collect.ErrEmptyExport
	}
	if err != nil {
		log.Printf("WARNING: collector: %v (exporting %d sessions)", err, len(sessions))
	}

	if err := os.MkdirAll(cfg.CollectOutputDir, 0o755); err != nil {
		return err
	}
	now := time.Now()
	path := filepath.Join(cfg.CollectOutputDir, collect.FileName(now))
	if err := collect.NewExport(sessions, cfg.SampleRate(), now).Write(path); err != nil {
		return err
	}

	total := 0
	for _, s := range sessions {
		total += s.SampleCount
	}
	log.Printf("collector: exported %d sessions (%d samples) to %s", len(sessions), total, path)
	return nil
}

func recordSessions(ctx context.Context, rec *collect.Recorder, opts CollectOptions, labels collect.Labels, rate float64) ([]collect.Session, error) {
	var sessions []collect.Session
	for i := 0; i < opts.Sessions && ctx.Err() == nil; i++ {
		if i > 0 && opts.Pause > 0 {
			log.Printf("collector: next session in %v", opts.Pause)
			select {
			case <-ctx.Done():
				return sessions, nil
			case <-time.After(opts.Pause):
			}
		}

		log.Printf("collector: session %d/%d (%s/%s) recording for %v",
			i+1, opts.Sessions, labels.Phase, labels.Posture, opts.Duration)
		rctx, cancel := context.WithTimeout(ctx, opts.Duration)
		samples, err := rec.Record(rctx)
		cancel()

		if len(samples) == 0 {
			log.Printf("collector: no data captured in session %d", i+1)
		} else {
			s := collect.NewSession(samples, labels, rate, time.Now())
			log.Printf("collector: session saved: %d samples in %.1fs", s.SampleCount, s.DurationSec)
			sessions = append(sessions, s)
		}
		if err != nil {
			return sessions, err
		}
	}
	return sessions, nil
}

// NormStats computes normalization constants over the conditioned linear
// signal of every session, resetting the filters between sessions.
func NormStats(preset dsp.Preset, exports []collect.Export) (quant.Normalization, error) {
	cond := dsp.NewConditioner(preset)
	var frames []imu.Frame
	for _, e := range exports {
		for _, s := range e.Sessions {
			cond.Reset()
			for _, f := range s.Frames() {
				frames = append(frames, cond.Process(f.Raw()).Linear)
			}
		}
	}
	return quant.ComputeNormalization(frames)
}

func channelList(v [imu.NumChannels]float32) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(float64(x), 'g', -1, 32)
	}
	return strings.Join(parts, ",")
}

// WriteNormalization prints the constants as config lines.
func WriteNormalization(w io.Writer, n quant.Normalization) error {
	_, err := fmt.Fprintf(w, "NORM_MEAN=%s\nNORM_STD=%s\n", channelList(n.Mean), channelList(n.Std))
	return err
}

// RunNormStats prints NORM_MEAN and NORM_STD for the given export files.
func RunNormStats(paths []string) error {
	cfg := config.Get()
	preset, err := cfg.Preset()
	if err != nil {
		return err
	}

	exports := make([]collect.Export, 0, len(paths))
	for _, p := range paths {
		e, err := collect.Load(p)
		if err != nil {
			return err
		}
		log.Printf("normstats: %s: %d sessions", p, len(e.Sessions))
		exports = append(exports, e)
	}

	n, err := NormStats(preset, exports)
	if err != nil {
		return err
	}
	return WriteNormalization(os.Stdout, n)
}
