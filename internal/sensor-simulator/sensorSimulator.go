package sensor_simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
	"github.com/bob-jr-kab/Fire-Detection-Alert-System/pkg/mqttbus"
)

// Sink delivers one reading to the gateway over some transport.
type Sink interface {
	Send(ctx context.Context, reading model.SensorReading) error
	Close()
}

// SensorSimulator drives one simulated device: every tick it asks the
// generator for the next reading and pushes it to every configured sink.
type SensorSimulator struct {
	device    model.Device
	ip        string
	generator *DataGenerator
	sinks     []Sink
}

func NewSensorSimulator(device model.Device, ip string, gen *DataGenerator, sinks ...Sink) *SensorSimulator {
	return &SensorSimulator{
		device:    device,
		ip:        ip,
		generator: gen,
		sinks:     sinks,
	}
}

// Start publishes readings at the given interval until the context closes.
func (s *SensorSimulator) Start(ctx context.Context, interval time.Duration) {
	defer func() {
		for _, sink := range s.sinks {
			sink.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			reading := s.generator.Next(s.device, s.ip)
			log.Printf("sim: device=%s temp=%.1f smoke=%s flame=%v",
				reading.DeviceID, reading.Temperature, reading.SmokeLevel, reading.FlameDetected)
			for _, sink := range s.sinks {
				if err := sink.Send(ctx, reading); err != nil {
					log.Printf("sim: send failed: %v", err)
				}
			}
		}
	}
}

// HTTPSink posts readings to the gateway's ingest endpoint, the same path a
// real device on WiFi uses.
type HTTPSink struct {
	url string
	hc  *http.Client
}

func NewHTTPSink(gatewayURL string) *HTTPSink {
	return &HTTPSink{
		url: gatewayURL + "/api/sensor-data",
		hc:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *HTTPSink) Send(ctx context.Context, reading model.SensorReading) error {
	body, err := json.Marshal(reading)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<12))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ingest rejected: status %d", resp.StatusCode)
	}
	return nil
}

func (s *HTTPSink) Close() {}

// MQTTSink publishes readings on the broker topic the gateway consumes.
type MQTTSink struct {
	pub mqttbus.IPublisher
}

func NewMQTTSink(pub mqttbus.IPublisher) *MQTTSink {
	return &MQTTSink{pub: pub}
}

func (s *MQTTSink) Send(_ context.Context, reading model.SensorReading) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		return err
	}
	return s.pub.PublishMessage(payload)
}

func (s *MQTTSink) Close() {
	s.pub.Close()
}
