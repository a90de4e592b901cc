package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gyro_computer/internal/config"
	"github.com/relabs-tech/gyro_computer/internal/gps"
	"github.com/relabs-tech/gyro_computer/internal/heading"
)

// RunConsoleMQTT prints heading and GPS traffic from the broker until
// interrupted. Handy for eyeballing gyro drift against the GPS course.
func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to heading
	headingToken := client.Subscribe(cfg.TopicHeading, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var h heading.Heading
		if err := json.Unmarshal(msg.Payload(), &h); err != nil {
			log.Printf("console: heading unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[GYRO]  %-8s ANGLE=%9.2f°  RATE=%7.2f°/s\n",
			h.Source, h.AngleDeg, h.RateDeg,
		)
	})
	headingToken.Wait()
	if headingToken.Error() != nil {
		return headingToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicHeading)

	// Subscribe to GPS (optional; topic may be unset when no receiver is fitted)
	if cfg.TopicGPS != "" {
		gpsToken := client.Subscribe(cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
			var f gps.Fix
			if err := json.Unmarshal(msg.Payload(), &f); err != nil {
				log.Printf("console: gps unmarshal error: %v", err)
				return
			}

			if ref, ok := f.HeadingReference(); ok {
				fmt.Printf(
					"[GPS ]  course=%6.1f° speed=%.1fkn lat=%.6f lon=%.6f\n",
					ref, f.SpeedKnots, f.Latitude, f.Longitude,
				)
			} else {
				fmt.Printf(
					"[GPS ]  course unusable (validity=%s speed=%.1fkn)\n",
					f.Validity, f.SpeedKnots,
				)
			}
		})
		gpsToken.Wait()
		if gpsToken.Error() != nil {
			return gpsToken.Error()
		}
		log.Printf("console: subscribed to %s", cfg.TopicGPS)
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
