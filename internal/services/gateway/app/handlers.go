package app

import (
	"encoding/json"
	"net/http"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/services/alerts"
	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/services/stream"
)

// HandleSensorData is the transient relay: no schema validation, no
// persistence. Decoding into SensorReading applies the canonical field
// allowlist (pairingToken included); everything else the device sends is
// dropped on the floor. Zero connected viewers is still a success.
func (g *Gateway) HandleSensorData(w http.ResponseWriter, r *http.Request) {
	var reading model.SensorReading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	g.Relay(reading, "http")

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Data received"))
}

// Relay pushes one reading to every viewer session. Shared by the HTTP
// ingest endpoint and the MQTT consumer.
func (g *Gateway) Relay(reading model.SensorReading, transport string) {
	g.metrics.ReadingsIngested.WithLabelValues(transport).Inc()
	if err := g.hub.Broadcast(stream.EventSensorData, reading); err != nil {
		// marshal failure only; fan-out loss is not an error
		g.logger.Printf("gateway: broadcast failed: %v", err)
		return
	}
	g.metrics.ReadingsBroadcast.Inc()
}

type confirmResponse struct {
	Message string         `json:"message"`
	ID      string         `json:"id,omitempty"`
	Stores  alerts.Outcome `json:"stores"`
	Error   string         `json:"error,omitempty"`
}

// HandleConfirmAlert validates and records one operator confirmation in
// both stores. 400 on bad payloads with nothing written, 201 whenever the
// primary copy exists (mirror status reported alongside), 500 only when the
// primary write failed.
func (g *Gateway) HandleConfirmAlert(w http.ResponseWriter, r *http.Request) {
	var sub model.AlertSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, confirmResponse{
			Message: "Incomplete or invalid fire alert data",
			Error:   err.Error(),
		})
		return
	}
	if err := sub.Validate(); err != nil {
		g.metrics.Confirmations.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusBadRequest, confirmResponse{
			Message: "Incomplete or invalid fire alert data",
			Error:   err.Error(),
		})
		return
	}

	alert, outcome, err := g.alerts.Confirm(r.Context(), &sub)
	if err != nil {
		g.metrics.Confirmations.WithLabelValues("failed").Inc()
		g.metrics.StoreWriteFailures.WithLabelValues("primary").Inc()
		writeJSON(w, http.StatusInternalServerError, confirmResponse{
			Message: "Error storing fire alert",
			Stores:  outcome,
			Error:   err.Error(),
		})
		return
	}

	msg := "Alert confirmed and stored"
	result := "confirmed"
	switch {
	case outcome.Primary == alerts.StoreDuplicate:
		// suppressed re-send, no write happened: not a "confirmed"
		msg = "Alert already confirmed"
		result = "duplicate"
	case outcome.Mirror == alerts.StoreFailed:
		msg = "Alert confirmed; mirror write failed"
		g.metrics.StoreWriteFailures.WithLabelValues("mirror").Inc()
	}
	g.metrics.Confirmations.WithLabelValues(result).Inc()
	writeJSON(w, http.StatusCreated, confirmResponse{
		Message: msg,
		ID:      alert.ID,
		Stores:  outcome,
	})
}

// HandleHistory returns every confirmed alert, newest first. Pagination is
// the caller's business.
func (g *Gateway) HandleHistory(w http.ResponseWriter, r *http.Request) {
	list, err := g.alerts.History(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"message": "Error fetching fire alerts",
			"error":   err.Error(),
		})
		return
	}
	if list == nil {
		list = []model.ConfirmedAlert{}
	}
	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
