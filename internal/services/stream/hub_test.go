package stream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
)

func dialViewer(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// the hub greets every viewer once it is registered
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("reading greeting: %v", err)
	}
	if env.Event != EventConnected {
		t.Fatalf("expected %q greeting, got %q", EventConnected, env.Event)
	}
	return conn
}

func TestBroadcastReachesEverySessionInOrder(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	const viewers = 3
	const readings = 5

	conns := make([]*websocket.Conn, 0, viewers)
	for i := 0; i < viewers; i++ {
		conns = append(conns, dialViewer(t, wsURL))
	}
	if got := hub.SessionCount(); got != viewers {
		t.Fatalf("expected %d sessions, got %d", viewers, got)
	}

	for i := 0; i < readings; i++ {
		r := model.SensorReading{DeviceID: "dev1", Temperature: float64(20 + i)}
		if err := hub.Broadcast(EventSensorData, r); err != nil {
			t.Fatalf("broadcast %d: %v", i, err)
		}
	}

	for vi, conn := range conns {
		for i := 0; i < readings; i++ {
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			var env Envelope
			if err := conn.ReadJSON(&env); err != nil {
				t.Fatalf("viewer %d, reading %d: %v", vi, i, err)
			}
			if env.Event != EventSensorData {
				t.Fatalf("viewer %d: unexpected event %q", vi, env.Event)
			}
			var r model.SensorReading
			if err := json.Unmarshal(env.Data, &r); err != nil {
				t.Fatalf("viewer %d: bad payload: %v", vi, err)
			}
			if r.Temperature != float64(20+i) {
				t.Fatalf("viewer %d: out of order, expected temp %d got %g", vi, 20+i, r.Temperature)
			}
		}
	}
}

func TestBroadcastWithNoViewersSucceeds(t *testing.T) {
	hub := NewHub()
	if err := hub.Broadcast(EventSensorData, model.SensorReading{DeviceID: "x"}); err != nil {
		t.Fatalf("lossy fan-out must succeed with zero subscribers: %v", err)
	}
}

func TestBroadcastSurvivesDisconnectChurn(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	// flood broadcasts while viewers hang up underneath them: a session
	// dropped between the snapshot and the enqueue must never blow up the
	// fan-out loop
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				if err := hub.Broadcast(EventSensorData, model.SensorReading{DeviceID: "dev1"}); err != nil {
					t.Errorf("broadcast: %v", err)
					return
				}
			}
		}
	}()

	for i := 0; i < 25; i++ {
		conn := dialViewer(t, wsURL)
		conn.Close()
	}
	close(done)
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for hub.SessionCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("sessions not reaped after churn, %d left", hub.SessionCount())
		}
		time.Sleep(10 * time.Millisecond)
	}

	// the hub must still serve new viewers afterwards
	conn := dialViewer(t, wsURL)
	if err := hub.Broadcast(EventSensorData, model.SensorReading{DeviceID: "dev2"}); err != nil {
		t.Fatalf("broadcast after churn: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("surviving viewer must keep receiving: %v", err)
	}
}

func TestSharedHandleReturnsInitializedHub(t *testing.T) {
	// Init twice or Handle before Init are fatal, so only the happy path is
	// testable in-process.
	hub := NewHub()
	Init(hub)
	if Handle() != hub {
		t.Fatalf("Handle must return the hub passed to Init")
	}
}

func TestDisconnectShrinksSessionSet(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn := dialViewer(t, wsURL)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.SessionCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session not reaped after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
