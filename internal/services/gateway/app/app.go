package app

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/services/alerts"
	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/services/stream"
)

// Gateway is the HTTP API process: sensor ingest, the realtime fan-out and
// the alert confirmation/history endpoints. The broadcaster hub is an
// injected dependency, constructed once at startup, not a module-level
// singleton the handlers reach into.
type Gateway struct {
	hub     *stream.Hub
	alerts  *alerts.Service
	metrics *Metrics
	logger  *log.Logger
}

type Config struct {
	Hub    *stream.Hub
	Alerts *alerts.Service
	Logger *log.Logger
}

func NewGateway(cfg Config) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Hub == nil {
		// stesso contratto dell'handle condiviso: usarlo prima dell'init è fatale
		cfg.Logger.Fatal("gateway: broadcaster hub not initialized")
	}
	if cfg.Alerts == nil {
		cfg.Logger.Fatal("gateway: alert service not initialized")
	}
	return &Gateway{
		hub:     cfg.Hub,
		alerts:  cfg.Alerts,
		metrics: NewMetrics(cfg.Hub),
		logger:  cfg.Logger,
	}
}

// MetricsRegistry exposes the gateway's private prometheus registry for the
// /metrics endpoint.
func (g *Gateway) MetricsRegistry() *prometheus.Registry {
	return g.metrics.Registry
}

// Router wires the public surface. The ingest route is reachable both at
// /api/sensor-data and under /api/fire-alerts, as the devices in the field
// use either depending on firmware revision.
func (g *Gateway) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/sensor-data", g.HandleSensorData).Methods(http.MethodPost)
	r.HandleFunc("/api/fire-alerts/sensor-data", g.HandleSensorData).Methods(http.MethodPost)
	r.HandleFunc("/api/fire-alerts/confirm-alert", g.HandleConfirmAlert).Methods(http.MethodPost)
	r.HandleFunc("/api/fire-alerts", g.HandleHistory).Methods(http.MethodGet)

	r.HandleFunc("/ws", g.hub.ServeWS)

	return r
}
