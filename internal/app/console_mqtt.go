// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/pushup_tracker/internal/config"
	"github.com/relabs-tech/pushup_tracker/internal/events"
)

// consolePrinter formats tracker messages for a terminal.
type consolePrinter struct {
	mu       sync.Mutex
	out      io.Writer
	every    time.Duration
	lastInfo time.Time
}

func (p *consolePrinter) rep(m events.RepMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	form := "GOOD"
	if !m.Good {
		form = "POOR"
	}
	flags := ""
	if m.Forced {
		flags += " forced"
	}
	if m.LowConfidence {
		flags += " low-confidence"
	}
	fmt.Fprintf(p.out, "[REP ] #%-3d %s  %-12s %3.0f%%  %.1fs  total=%d good=%d poor=%d%s\n",
		m.Number, form, m.Posture, m.Confidence*100, m.DurationSec, m.Total, m.GoodTotal, m.PoorTotal, flags)
}

// inference prints at most one line per interval.
func (p *consolePrinter) inference(m events.InferenceMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.lastInfo.IsZero() && m.Time.Sub(p.lastInfo) < p.every {
		return
	}
	p.lastInfo = m.Time
	phase := m.Phase
	if phase == "" {
		phase = "-"
	}
	fmt.Fprintf(p.out, "[INF ] %-12s %3.0f%%  phase=%-9s state=%-10s reps=%d  %.1fms\n",
		m.Posture, m.PostureConf*100, phase, m.State, m.Total, m.LatencyMs)
}

func (p *consolePrinter) status(m events.StatusMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "[STAT] %s  state=%s reps=%d\n", m.Status, m.State, m.Total)
}

func subscribeJSON[T any](client mqtt.Client, topic string, fn func(T)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var v T
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			log.Printf("console: %s unmarshal error: %v", topic, err)
			return
		}
		fn(v)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: subscribed to %s", topic)
	return nil
}

// RunConsoleMQTT prints tracker events until interrupted.
func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := events.Connect(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}

	p := &consolePrinter{out: os.Stdout, every: config.Millis(cfg.ConsoleLogInterval)}
	if err := subscribeJSON(client, cfg.TopicStatus, p.status); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicReps, p.rep); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicInference, p.inference); err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
