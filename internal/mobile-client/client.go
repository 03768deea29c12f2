package mobile_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/services/stream"
)

// Client subscribes to the gateway's realtime stream and keeps the latest
// reading per device, last write wins. It also carries the confirm action
// a user triggers from the alert screen.
type Client struct {
	serverURL string // e.g. http://localhost:3000
	registry  *Registry
	hc        *http.Client

	mu     sync.Mutex
	latest map[string]model.SensorReading
}

func NewClient(serverURL string, registry *Registry) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		registry:  registry,
		hc:        &http.Client{Timeout: 10 * time.Second},
		latest:    make(map[string]model.SensorReading),
	}
}

func (c *Client) wsURL() string {
	u := c.serverURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// Listen connects to the stream and keeps reconnecting with backoff until
// the context is cancelled.
func (c *Client) Listen(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0

	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		if err := c.readLoop(ctx); err != nil {
			log.Printf("stream disconnected: %v", err)
			return err
		}
		return backoff.Permanent(ctx.Err())
	}
	err := backoff.Retry(op, backoff.WithContext(bo, ctx))
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Client) readLoop(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env stream.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			log.Printf("bad frame from stream, dropping: %v", err)
			continue
		}
		if env.Event != stream.EventSensorData {
			continue
		}
		var reading model.SensorReading
		if err := json.Unmarshal(env.Data, &reading); err != nil {
			log.Printf("bad sensor-data payload, dropping: %v", err)
			continue
		}
		c.apply(reading)
	}
}

func (c *Client) apply(reading model.SensorReading) {
	if reading.DeviceID == "" {
		return
	}
	c.mu.Lock()
	c.latest[reading.DeviceID] = reading
	c.mu.Unlock()

	if _, err := c.registry.Observe(reading); err != nil {
		log.Printf("device registry update failed: %v", err)
	}
}

// Latest returns the most recent reading seen for a device.
func (c *Client) Latest(deviceID string) (model.SensorReading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.latest[deviceID]
	return r, ok
}

// LatestSelected returns the most recent reading of the selected device.
func (c *Client) LatestSelected() (model.SensorReading, bool) {
	d, ok := c.registry.Selected()
	if !ok {
		return model.SensorReading{}, false
	}
	return c.Latest(d.ID)
}

// PairDevice provisions a sensor over its access point and records it in
// the registry under the given display name.
func (c *Client) PairDevice(ctx context.Context, req PairRequest) (model.Device, error) {
	id, err := Pair(ctx, c.hc, req)
	if err != nil {
		return model.Device{}, err
	}
	d := model.Device{ID: id, Name: req.DeviceName}
	if d.Name == "" {
		d.Name = model.FallbackDeviceName(id)
	}
	if err := c.registry.Add(d); err != nil {
		return model.Device{}, err
	}
	return d, nil
}

type confirmResult struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Error   string `json:"error,omitempty"`
}

// ConfirmAlert submits a confirmed fire alert for the selected device,
// filling the measurements from its latest reading.
func (c *Client) ConfirmAlert(ctx context.Context, location []float64, addr model.Address) (string, error) {
	d, ok := c.registry.Selected()
	if !ok {
		return "", fmt.Errorf("no device selected")
	}
	reading, ok := c.Latest(d.ID)
	if !ok {
		return "", fmt.Errorf("no reading available for device %s", d.ID)
	}

	temp := reading.Temperature
	smoke := reading.SmokeLevel
	sub := model.AlertSubmission{
		Location:    location,
		Address:     addr,
		Temperature: &temp,
		SmokeLevel:  &smoke,
		DeviceID:    d.ID,
	}
	body, err := json.Marshal(sub)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.serverURL+"/api/fire-alerts/confirm-alert", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("confirm request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", err
	}
	var cr confirmResult
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", fmt.Errorf("confirm response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		if cr.Error != "" {
			return "", fmt.Errorf("confirm rejected: %s", cr.Error)
		}
		return "", fmt.Errorf("confirm rejected: status %d", resp.StatusCode)
	}
	return cr.ID, nil
}
