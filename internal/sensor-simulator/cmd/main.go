package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
	sensorSimulator "github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/sensor-simulator"
	"github.com/bob-jr-kab/Fire-Detection-Alert-System/pkg/mqttbus"
)

func main() {
	deviceID := flag.String("device-id", "esp32-sim-1", "unique device identifier")
	deviceName := flag.String("device-name", "", "display name (derived from the id when empty)")
	ip := flag.String("ip", "192.168.1.42", "ip address reported in the readings")
	gateway := flag.String("gateway", "http://localhost:3000", "gateway base URL (empty disables HTTP)")
	interval := flag.Duration("interval", 5*time.Second, "publish interval")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random walk seed")
	fireProb := flag.Float64("fire-prob", 0.01, "per-tick probability of a spontaneous fire")
	igniteAfter := flag.Duration("ignite-after", 0, "force a fire after this delay (0 disables)")
	fireDuration := flag.Duration("fire-duration", 3*time.Minute, "duration of a forced fire")
	mqttHost := flag.String("mqtt-host", "", "MQTT broker host (empty disables MQTT)")
	mqttPort := flag.Int("mqtt-port", 1883, "MQTT broker port")
	mqttTopic := flag.String("mqtt-topic", "sensor/data", "MQTT publish topic")
	flag.Parse()

	name := *deviceName
	if name == "" {
		name = model.FallbackDeviceName(*deviceID)
	}
	device := model.Device{ID: *deviceID, Name: name}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sinks []sensorSimulator.Sink
	if *gateway != "" {
		sinks = append(sinks, sensorSimulator.NewHTTPSink(*gateway))
	}
	if *mqttHost != "" {
		cfg := &mqttbus.Config{
			Host:     *mqttHost,
			Port:     *mqttPort,
			ClientID: "sim-" + *deviceID,
		}
		client, err := mqttbus.NewConn(cfg, ctx)
		if err != nil {
			log.Fatalf("mqtt connect: %v", err)
		}
		sinks = append(sinks, sensorSimulator.NewMQTTSink(mqttbus.NewPublisher(client, *mqttTopic)))
	}
	if len(sinks) == 0 {
		log.Fatal("no sink configured: set -gateway and/or -mqtt-host")
	}

	generator := sensorSimulator.NewDataGenerator(*seed, *fireProb)
	if *igniteAfter > 0 {
		time.AfterFunc(*igniteAfter, func() {
			log.Printf("sim: forcing a fire for %s", *fireDuration)
			generator.Ignite(*fireDuration)
		})
	}

	sim := sensorSimulator.NewSensorSimulator(device, *ip, generator, sinks...)
	log.Printf("sim: device %s (%s) publishing every %s", device.ID, device.Name, *interval)
	sim.Start(ctx, *interval)
}
