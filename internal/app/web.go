// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/gyro_computer/internal/config"
	"github.com/relabs-tech/gyro_computer/internal/heading"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// RunWeb serves the latest heading over a JSON API and pushes live updates
// to websocket clients, fed from the MQTT heading topic.
func RunWeb() error {
	cfg := config.Get()

	var (
		mu          sync.RWMutex
		lastHeading heading.Heading
		haveHeading bool
	)

	var (
		connsMu sync.Mutex
		conns   = make(map[*websocket.Conn]bool)
	)

	broadcast := func(payload []byte) {
		connsMu.Lock()
		defer connsMu.Unlock()
		for conn := range conns {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("web: websocket write error, dropping client: %v", err)
				conn.Close()
				delete(conns, conn)
			}
		}
	}

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to the heading topic; fan out to websocket clients
	token := client.Subscribe(cfg.TopicHeading, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var h heading.Heading
		if err := json.Unmarshal(msg.Payload(), &h); err != nil {
			log.Printf("web: heading unmarshal error: %v", err)
			return
		}
		mu.Lock()
		lastHeading = h
		haveHeading = true
		mu.Unlock()

		broadcast(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to MQTT topic %s", cfg.TopicHeading)

	// 3) JSON API endpoint: latest heading
	http.HandleFunc("/api/heading", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()

		if !haveHeading {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(lastHeading); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	// 4) Websocket endpoint: live heading stream
	http.HandleFunc("/ws/heading", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}

		connsMu.Lock()
		conns[conn] = true
		connsMu.Unlock()
		log.Printf("web: websocket client connected (%s)", r.RemoteAddr)

		// Reader loop only exists to notice the client going away.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					connsMu.Lock()
					delete(conns, conn)
					connsMu.Unlock()
					conn.Close()
					log.Printf("web: websocket client disconnected (%s)", r.RemoteAddr)
					return
				}
			}
		}()
	})

	// 5) Static files from ./web as the root
	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	port := cfg.WebServerPort
	if port == 0 {
		port = 8080
	}
	addr := fmt.Sprintf(":%d", port)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}
