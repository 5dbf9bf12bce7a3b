// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/pushup_tracker/internal/app"
	"github.com/relabs-tech/pushup_tracker/internal/config"
)

func main() {
	configPath := flag.String("config", "./"+config.DefaultPath, "path to configuration file")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatalf("usage: normstats [-config file] export.json...")
	}

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunNormStats(flag.Args()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
