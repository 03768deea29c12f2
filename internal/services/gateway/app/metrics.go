package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/services/stream"
)

// Metrics for the relay/confirmation path. Registered on a private registry
// so tests can build as many gateways as they like.
type Metrics struct {
	Registry *prometheus.Registry

	ReadingsIngested   *prometheus.CounterVec
	ReadingsBroadcast  prometheus.Counter
	Confirmations      *prometheus.CounterVec
	StoreWriteFailures *prometheus.CounterVec
}

func NewMetrics(hub *stream.Hub) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		Registry: reg,
		ReadingsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "firealert_readings_ingested_total",
			Help: "Sensor readings accepted for relay, by transport.",
		}, []string{"transport"}),
		ReadingsBroadcast: factory.NewCounter(prometheus.CounterOpts{
			Name: "firealert_readings_broadcast_total",
			Help: "Sensor readings fanned out to viewer sessions.",
		}),
		Confirmations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "firealert_confirmations_total",
			Help: "Alert confirmations by outcome.",
		}, []string{"outcome"}),
		StoreWriteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "firealert_store_write_failures_total",
			Help: "Durable store write failures, by store.",
		}, []string{"store"}),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "firealert_viewer_sessions",
		Help: "Currently connected realtime viewer sessions.",
	}, func() float64 { return float64(hub.SessionCount()) })

	return m
}
