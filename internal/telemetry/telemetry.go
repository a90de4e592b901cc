// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher announces sensors and resource usage over MQTT. Registrations
// are retained so late subscribers (web, display) still see which sensors
// exist; usage reports are plain events. Both are fire-and-forget: publish
// failures are logged and dropped, never surfaced to the caller.
type Publisher struct {
	client       mqtt.Client
	sensorsTopic string
	usageTopic   string
}

// New builds a Publisher on an already connected MQTT client.
func New(client mqtt.Client, sensorsTopic, usageTopic string) *Publisher {
	return &Publisher{
		client:       client,
		sensorsTopic: sensorsTopic,
		usageTopic:   usageTopic,
	}
}

type registration struct {
	Name    string `json:"name"`
	Channel int    `json:"channel"`
	Time    string `json:"time"`
}

type usageReport struct {
	Resource string `json:"resource"`
	Channel  int    `json:"channel"`
	Time     string `json:"time"`
}

// RegisterSensor publishes a retained registration under the sensors topic.
func (p *Publisher) RegisterSensor(name string, channel int) {
	if p.sensorsTopic == "" {
		return
	}

	payload, err := json.Marshal(registration{
		Name:    name,
		Channel: channel,
		Time:    time.Now().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("telemetry: registration marshal error: %v", err)
		return
	}

	topic := fmt.Sprintf("%s/%s", p.sensorsTopic, name)
	if token := p.client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		log.Printf("telemetry: registration publish error (%s): %v", topic, token.Error())
	}
}

// Report publishes a usage report for a claimed resource.
func (p *Publisher) Report(resource string, channel int) {
	if p.usageTopic == "" {
		return
	}

	payload, err := json.Marshal(usageReport{
		Resource: resource,
		Channel:  channel,
		Time:     time.Now().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("telemetry: usage marshal error: %v", err)
		return
	}

	if token := p.client.Publish(p.usageTopic, 0, false, payload); token.Wait() && token.Error() != nil {
		log.Printf("telemetry: usage publish error: %v", token.Error())
	}
}
