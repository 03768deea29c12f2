package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Event names on the realtime channel.
const (
	EventConnected  = "connected"
	EventSensorData = "sensor-data"
)

// Envelope is the wire frame: event name plus payload, mirroring the
// socket.emit shape the mobile app and dashboard already speak.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// session is one connected viewer. Outbound frames go through a buffered
// channel so one slow viewer cannot stall the broadcast loop; a viewer whose
// buffer fills is dropped, not retried.
type session struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans every ingested reading out to all connected viewer sessions.
// At-most-once, per-session FIFO, no replay, no per-device filtering
// (clients filter by device_id themselves).
type Hub struct {
	mu       sync.Mutex
	sessions map[*session]struct{}
	upgrader websocket.Upgrader

	sendBuf int
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[*session]struct{}),
		upgrader: websocket.Upgrader{
			// il server Express accettava qualunque origin, idem qui
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sendBuf: 64,
	}
}

// SessionCount reports how many viewers are currently connected.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// ServeWS upgrades the request and registers the viewer until it hangs up.
// Connection and disconnection are logged, nothing else is acted upon.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("stream: upgrade failed: %v", err)
		return
	}

	s := &session{conn: conn, send: make(chan []byte, h.sendBuf)}

	// greet before joining the broadcast set, so the greeting is always the
	// first frame a viewer sees
	if frame, err := marshalEnvelope(EventConnected, map[string]string{"status": "ok"}); err == nil {
		s.enqueue(frame)
	}

	h.mu.Lock()
	h.sessions[s] = struct{}{}
	n := len(h.sessions)
	h.mu.Unlock()
	log.Printf("stream: viewer connected (%s), sessions=%d", conn.RemoteAddr(), n)

	go h.writePump(s)

	// read loop: we expect nothing from viewers, it only detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(s)
	log.Printf("stream: viewer disconnected (%s)", conn.RemoteAddr())
}

// Broadcast delivers one event to every connected session. Zero sessions is
// a success: fan-out is best-effort and lossy.
//
// Enqueues happen under h.mu, the same lock drop closes the send channel
// under, so a viewer hanging up mid-broadcast can never race an enqueue
// against the close.
func (h *Hub) Broadcast(event string, payload any) error {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		return err
	}

	var slow []*session
	h.mu.Lock()
	for s := range h.sessions {
		if !s.enqueue(frame) {
			// buffer pieno: la sessione è troppo lenta, la chiudiamo
			slow = append(slow, s)
		}
	}
	for _, s := range slow {
		delete(h.sessions, s)
		close(s.send)
	}
	h.mu.Unlock()

	for _, s := range slow {
		_ = s.conn.Close()
		log.Printf("stream: dropped slow viewer (%s)", s.conn.RemoteAddr())
	}
	return nil
}

func (h *Hub) drop(s *session) {
	h.mu.Lock()
	_, ok := h.sessions[s]
	if ok {
		delete(h.sessions, s)
		// only ever closed while holding h.mu, see Broadcast
		close(s.send)
	}
	h.mu.Unlock()
	if ok {
		_ = s.conn.Close()
	}
}

func (h *Hub) writePump(s *session) {
	for frame := range s.send {
		if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
}

func (s *session) enqueue(frame []byte) bool {
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

func marshalEnvelope(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
