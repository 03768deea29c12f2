package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	mobileClient "github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/mobile-client"
	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
)

func main() {
	server := flag.String("server", "http://localhost:3000", "gateway base URL")
	registryPath := flag.String("registry", defaultRegistryPath(), "device registry file")
	listDevices := flag.Bool("list", false, "list registered devices and exit")
	selectID := flag.String("select", "", "select a registered device and exit")
	pairSSID := flag.String("pair-ssid", "", "pair a new device: WiFi SSID to hand over")
	pairPassword := flag.String("pair-password", "", "pair a new device: WiFi password")
	pairName := flag.String("pair-name", "", "pair a new device: display name")
	pairHost := flag.String("pair-host", mobileClient.DefaultAPHost, "pair a new device: provisioning host")
	flag.Parse()

	registry, err := mobileClient.LoadRegistry(*registryPath)
	if err != nil {
		log.Fatalf("load registry: %v", err)
	}
	client := mobileClient.NewClient(*server, registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *listDevices {
		selected, _ := registry.Selected()
		for _, d := range registry.Devices() {
			mark := " "
			if d.ID == selected.ID {
				mark = "*"
			}
			fmt.Printf("%s %s\t%s\n", mark, d.ID, d.Name)
		}
		return
	}

	if *selectID != "" {
		if err := registry.Select(*selectID); err != nil {
			log.Fatalf("select device: %v", err)
		}
		log.Printf("selected device %s", *selectID)
		return
	}

	if *pairSSID != "" {
		pairCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		d, err := client.PairDevice(pairCtx, mobileClient.PairRequest{
			APHost:     *pairHost,
			SSID:       *pairSSID,
			Password:   *pairPassword,
			DeviceName: *pairName,
		})
		if err != nil {
			log.Fatalf("pairing failed: %v", err)
		}
		log.Printf("paired device %s (%s)", d.ID, d.Name)
		return
	}

	policy := model.DefaultSeverityPolicy()
	go watchReadings(ctx, client, policy)

	log.Printf("listening to %s", *server)
	if err := client.Listen(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("stream: %v", err)
	}
}

// watchReadings polls the latest reading the way the app's home screen
// re-renders, logging a warning when the selected device turns critical.
func watchReadings(ctx context.Context, client *mobileClient.Client, policy model.SeverityPolicy) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var lastCritical bool
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reading, ok := client.LatestSelected()
			if !ok {
				continue
			}
			critical := policy.ReadingCritical(reading)
			if critical && !lastCritical {
				log.Printf("WARNING device %s critical: temp=%.1f smoke=%s flame=%v",
					reading.DeviceID, reading.Temperature, reading.SmokeLevel, reading.FlameDetected)
			}
			lastCritical = critical
		}
	}
}

func defaultRegistryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "devices.json"
	}
	return filepath.Join(home, ".fire-alerts", "devices.json")
}
