// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package events

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Connect opens an MQTT client to broker.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Printf("%s: connected to MQTT broker at %s", clientID, broker)
	return client, nil
}

// Topics names the tracker's MQTT topics.
type Topics struct {
	Reps      string
	Inference string
	Status    string
	Control   string
}

// Publishing is the slice of mqtt.Client the publisher needs.
type Publishing interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher sends tracker events as JSON.
type Publisher struct {
	client Publishing
	topics Topics
}

// NewPublisher returns a publisher on client.
func NewPublisher(client Publishing, topics Topics) *Publisher {
	return &Publisher{client: client, topics: topics}
}

func (p *Publisher) publish(topic string, retained bool, v any) error {
	if topic == "" {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	token := p.client.Publish(topic, 0, retained, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Rep publishes a completed repetition.
func (p *Publisher) Rep(m RepMessage) error {
	return p.publish(p.topics.Reps, false, m)
}

// Inference publishes one inference result.
func (p *Publisher) Inference(m InferenceMessage) error {
	return p.publish(p.topics.Inference, false, m)
}

// Status publishes the retained tracker status.
func (p *Publisher) Status(m StatusMessage) error {
	return p.publish(p.topics.Status, true, m)
}

// ParseControl accepts either a JSON ControlMessage or a bare command word.
func ParseControl(payload []byte) (ControlMessage, error) {
	var m ControlMessage
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &m); err != nil {
			return ControlMessage{}, fmt.Errorf("control message: %w", err)
		}
	} else {
		m.Command = trimmed
	}
	m.Command = strings.ToLower(strings.TrimSpace(m.Command))
	switch m.Command {
	case CommandToggle, CommandStart, CommandStop, CommandReset:
		return m, nil
	default:
		return ControlMessage{}, fmt.Errorf("unknown control command %q", m.Command)
	}
}

// SubscribeControl calls fn for every valid control message on topic.
// fn runs on the MQTT client's goroutine.
func SubscribeControl(client mqtt.Client, topic string, fn func(ControlMessage)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		m, err := ParseControl(msg.Payload())
		if err != nil {
			log.Printf("events: %v", err)
			return
		}
		fn(m)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("events: subscribed to %s", topic)
	return nil
}
