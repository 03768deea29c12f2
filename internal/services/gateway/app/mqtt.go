package app

import (
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
)

// MQTTHandler feeds readings published on sensor/data/<device> into the
// same relay as the HTTP ingest endpoint. Malformed payloads are logged and
// skipped, non bloccare lo stream.
func (g *Gateway) MQTTHandler(topic string, msg mqtt.Message) error {
	var reading model.SensorReading
	if err := json.Unmarshal(msg.Payload(), &reading); err != nil {
		g.logger.Printf("gateway: invalid JSON on %s: %v", topic, err)
		return nil
	}
	g.Relay(reading, "mqtt")
	return nil
}
