package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Pinger is the tiny slice of a store we need for liveness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthHandler struct {
	mqtt    mqtt.Client // nil when the MQTT ingest path is disabled
	primary Pinger
	mirror  Pinger
}

func NewHealthHandler(m mqtt.Client, primary, mirror Pinger) http.Handler {
	return &healthHandler{mqtt: m, primary: primary, mirror: mirror}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	type status struct {
		Status        string `json:"status"`
		MQTTConnected bool   `json:"mqtt_connected"`
		PrimaryOK     bool   `json:"primary_ok"`
		MirrorOK      bool   `json:"mirror_ok"`
	}
	st := status{
		MQTTConnected: h.mqtt == nil || h.mqtt.IsConnectionOpen(),
		PrimaryOK:     h.primary != nil && h.primary.Ping(ctx) == nil,
		MirrorOK:      h.mirror != nil && h.mirror.Ping(ctx) == nil,
	}

	switch {
	case st.PrimaryOK && st.MirrorOK && st.MQTTConnected:
		st.Status = "ok"
	case st.PrimaryOK || st.MirrorOK:
		st.Status = "degraded"
	default:
		st.Status = "down"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

type readyHandler struct {
	mqtt    mqtt.Client
	primary Pinger
	mirror  Pinger
}

// NewReadyHandler answers 200 only when every dependency is reachable.
func NewReadyHandler(m mqtt.Client, primary, mirror Pinger) http.Handler {
	return &readyHandler{mqtt: m, primary: primary, mirror: mirror}
}

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	ready := (h.mqtt == nil || h.mqtt.IsConnectionOpen()) &&
		h.primary != nil && h.primary.Ping(ctx) == nil &&
		h.mirror != nil && h.mirror.Ping(ctx) == nil
	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"ready": ready})
}
