// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/host/v3"

	"github.com/relabs-tech/pushup_tracker/internal/classifier"
	"github.com/relabs-tech/pushup_tracker/internal/config"
	"github.com/relabs-tech/pushup_tracker/internal/display"
	"github.com/relabs-tech/pushup_tracker/internal/engine"
	"github.com/relabs-tech/pushup_tracker/internal/events"
	"github.com/relabs-tech/pushup_tracker/internal/history"
	"github.com/relabs-tech/pushup_tracker/internal/imu"
	"github.com/relabs-tech/pushup_tracker/internal/sensors"
)

const buttonPoll = 500 * time.Millisecond

// openReader returns the configured IMU source.
func openReader(cfg *config.Config) (imu.Reader, error) {
	switch cfg.IMUSource {
	case "synthetic":
		log.Println("tracker: using synthetic push-up source")
		return sensors.NewSynthetic(2 * time.Second), nil
	default:
		return sensors.OpenMPU9250(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUAccelRange, cfg.IMUGyroRange)
	}
}

// openDisplay returns the OLED panel, or the console when it is unavailable.
func openDisplay(cfg *config.Config) (display.Display, func()) {
	if !cfg.DisplayEnabled {
		return nil, func() {}
	}
	if _, err := host.Init(); err == nil {
		panel, err := display.OpenSSD1306(cfg.DisplayI2CBus)
		if err == nil {
			return panel, func() { panel.Close() }
		}
		log.Printf("WARNING: tracker: display unavailable, using console: %v", err)
	} else {
		log.Printf("WARNING: tracker: periph host init: %v", err)
	}
	return display.NewConsole(os.Stdout), func() {}
}

// NewEngine builds the inference engine from configuration.
func NewEngine(cfg *config.Config, model classifier.Classifier, wd engine.Watchdog) (*engine.Engine, error) {
	preset, err := cfg.Preset()
	if err != nil {
		return nil, err
	}
	detector, err := cfg.PhaseDetector()
	if err != nil {
		return nil, err
	}
	repCfg, err := cfg.RepConfig()
	if err != nil {
		return nil, err
	}
	return engine.New(model, engine.Options{
		Preset:           preset,
		WindowSize:       cfg.WindowSize,
		Normalization:    cfg.Normalization(),
		Layout:           cfg.Layout(),
		Detector:         detector,
		Rep:              repCfg,
		Watchdog:         wd,
		InferenceTimeout: config.Millis(cfg.InferenceTimeout),
	})
}

// RunTracker runs the on-device rep tracker until SIGINT or SIGTERM.
func RunTracker() error {
	cfg := config.Get()

	model, err := classifier.LoadDense(cfg.ModelPath)
	if err != nil {
		return err
	}
	log.Printf("tracker: model %s loaded (%d inputs)", cfg.ModelPath, model.Size)

	wd := engine.NewSoftWatchdog()
	eng, err := NewEngine(cfg, model, wd)
	if err != nil {
		return err
	}
	log.Printf("tracker: %s filters at %.0f Hz, window %d, phase from %s, %s rep policy",
		cfg.FilterPreset, cfg.SampleRate(), cfg.WindowSize, cfg.PhaseSource, cfg.RepPolicy)

	reader, err := openReader(cfg)
	if err != nil {
		return err
	}
	if raw, err := reader.Read(); err == nil {
		tilt := sensors.TiltFromAccel(raw.Accel)
		log.Printf("tracker: device roll %.1f° pitch %.1f°", tilt.Roll, tilt.Pitch)
	}

	screen, closeScreen := openDisplay(cfg)
	defer closeScreen()

	opts := TrackerOptions{
		Display:      screen,
		Preset:       cfg.FilterPreset,
		Policy:       cfg.RepPolicy,
		DisplayEvery: config.Millis(cfg.DisplayUpdateInterval),
		Watchdog:     wd,
	}

	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Store = store
		log.Printf("tracker: recording history in %s", cfg.HistoryDB)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tracker *Tracker
	if cfg.MQTTBroker != "" {
		client, err := events.Connect(cfg.MQTTBroker, cfg.MQTTClientIDTracker)
		if err != nil {
			log.Printf("WARNING: tracker: continuing without MQTT: %v", err)
		} else {
			defer client.Disconnect(250)
			opts.Publisher = events.NewPublisher(client, events.Topics{
				Reps:      cfg.TopicReps,
				Inference: cfg.TopicInference,
				Status:    cfg.TopicStatus,
			})
			tracker = NewTracker(eng, reader, opts)
			if cfg.TopicControl != "" {
				if err := events.SubscribeControl(client, cfg.TopicControl, tracker.Controls.Apply); err != nil {
					return fmt.Errorf("subscribe %s: %w", cfg.TopicControl, err)
				}
			}
		}
	}
	if tracker == nil {
		tracker = NewTracker(eng, reader, opts)
	}

	if cfg.ButtonPin != "" {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("periph host init: %w", err)
		}
		pin, err := OpenButton(cfg.ButtonPin)
		if err != nil {
			return err
		}
		go WatchButton(ctx, pin, &tracker.Controls.Toggle, buttonPoll)
	}

	if cfg.WatchdogTimeout > 0 {
		go wd.Supervise(ctx.Done(), config.Millis(cfg.WatchdogTimeout))
	}

	log.Println("tracker: ready, press the button or send start to begin")
	tracker.Run(ctx, config.Millis(cfg.SampleInterval), config.Millis(cfg.InferenceInterval))
	return nil
}
