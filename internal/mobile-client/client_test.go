package mobile_client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/services/stream"
)

func TestPairPostsFormAndParsesDeviceID(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/config" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"deviceId": "esp32-0001A"})
	}))
	defer srv.Close()

	host := srv.Listener.Addr().String()
	id, err := Pair(context.Background(), srv.Client(), PairRequest{
		APHost:     host,
		SSID:       "HomeNet",
		Password:   "hunter2",
		DeviceName: "Kitchen",
	})
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	if id != "esp32-0001A" {
		t.Fatalf("expected device id esp32-0001A, got %q", id)
	}
	if gotForm.Get("ssid") != "HomeNet" || gotForm.Get("password") != "hunter2" || gotForm.Get("deviceName") != "Kitchen" {
		t.Fatalf("credentials not forwarded, got %v", gotForm)
	}
}

func TestPairRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := Pair(context.Background(), srv.Client(), PairRequest{
		APHost: srv.Listener.Addr().String(),
		SSID:   "HomeNet",
	})
	if err == nil {
		t.Fatalf("expected an error on a rejected pairing")
	}
}

func TestListenTracksLatestReadingAndAutoRegisters(t *testing.T) {
	hub := stream.NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			hub.ServeWS(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	registry, err := LoadRegistry(filepath.Join(t.TempDir(), "devices.json"))
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	client := NewClient(srv.URL, registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Listen(ctx)

	waitFor(t, func() bool { return hub.SessionCount() == 1 })

	hub.Broadcast(stream.EventSensorData, model.SensorReading{DeviceID: "esp32-0001A", Temperature: 24, SmokeLevel: 120})
	hub.Broadcast(stream.EventSensorData, model.SensorReading{DeviceID: "esp32-0001A", Temperature: 52, SmokeLevel: 900, FlameDetected: true})

	waitFor(t, func() bool {
		r, ok := client.Latest("esp32-0001A")
		return ok && r.Temperature == 52
	})

	r, _ := client.Latest("esp32-0001A")
	if r.SmokeLevel != 900 || !r.FlameDetected {
		t.Fatalf("latest reading must be the last broadcast, got %+v", r)
	}
	d, ok := registry.Selected()
	if !ok || d.ID != "esp32-0001A" {
		t.Fatalf("first device must auto-register and get selected, got %+v ok=%v", d, ok)
	}
}

func TestConfirmAlertUsesLatestReadingOfSelectedDevice(t *testing.T) {
	var gotSub model.AlertSubmission
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/fire-alerts/confirm-alert" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotSub); err != nil {
			t.Errorf("decode submission: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"message": "Alert added successfully", "id": "alert-1"})
	}))
	defer srv.Close()

	registry, err := LoadRegistry(filepath.Join(t.TempDir(), "devices.json"))
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if err := registry.Add(model.Device{ID: "dev1", Name: "Kitchen"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	client := NewClient(srv.URL, registry)
	client.apply(model.SensorReading{DeviceID: "dev1", Temperature: 52, SmokeLevel: 900})

	id, err := client.ConfirmAlert(context.Background(), []float64{34.05, -118.25},
		model.Address{Apartment: "4B", Street: "Elm St", District: "Central"})
	if err != nil {
		t.Fatalf("ConfirmAlert: %v", err)
	}
	if id != "alert-1" {
		t.Fatalf("expected alert id alert-1, got %q", id)
	}
	if gotSub.DeviceID != "dev1" {
		t.Fatalf("submission must carry the selected device, got %q", gotSub.DeviceID)
	}
	if gotSub.Temperature == nil || *gotSub.Temperature != 52 {
		t.Fatalf("submission must carry the latest temperature, got %+v", gotSub.Temperature)
	}
	if gotSub.SmokeLevel == nil || *gotSub.SmokeLevel != 900 {
		t.Fatalf("submission must carry the latest smoke level, got %+v", gotSub.SmokeLevel)
	}
}

func TestConfirmAlertWithoutSelectionFails(t *testing.T) {
	registry, err := LoadRegistry(filepath.Join(t.TempDir(), "devices.json"))
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	client := NewClient("http://localhost:0", registry)
	if _, err := client.ConfirmAlert(context.Background(), []float64{0, 0}, model.Address{}); err == nil {
		t.Fatalf("expected an error with no device selected")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within 2s")
}
