// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"time"

	"github.com/relabs-tech/pushup_tracker/internal/app"
	"github.com/relabs-tech/pushup_tracker/internal/config"
)

func main() {
	configPath := flag.String("config", "./"+config.DefaultPath, "path to configuration file")
	sessions := flag.Int("sessions", 1, "number of sessions to record")
	duration := flag.Duration("duration", 10*time.Second, "length of each session")
	pause := flag.Duration("pause", 5*time.Second, "pause between sessions")
	phaseLabel := flag.String("phase", "moving-down", "phase label: moving-down, moving-up, not-in-pushup, top")
	postureLabel := flag.String("posture", "good-form", "posture label: good-form, hips-sagging")
	notes := flag.String("notes", "", "free-form session notes")
	flag.Parse()

	log.Println("starting pushup-tracker collector (serial → JSON)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if *sessions < 1 {
		log.Fatalf("-sessions must be at least 1")
	}

	err := app.RunCollector(app.CollectOptions{
		Sessions: *sessions,
		Duration: *duration,
		Pause:    *pause,
		Phase:    *phaseLabel,
		Posture:  *postureLabel,
		Notes:    *notes,
	})
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
