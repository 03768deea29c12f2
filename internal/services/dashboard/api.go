package dashboard

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
)

// Server is the dashboard backend: the live view over the mirror snapshots
// plus the proxied history view.
type Server struct {
	watcher *Watcher
	history *HistoryClient
	pager   Pager
}

func NewServer(watcher *Watcher, history *HistoryClient, pageSize int) *Server {
	if pageSize <= 0 {
		pageSize = 6
	}
	return &Server{watcher: watcher, history: history, pager: Pager{PageSize: pageSize}}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/dashboard/data", s.handleData).Methods(http.MethodGet)
	r.HandleFunc("/dashboard/stream", s.handleStream).Methods(http.MethodGet)
	r.HandleFunc("/dashboard/mute", s.handleMute).Methods(http.MethodPost)
	r.HandleFunc("/dashboard/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	return r
}

// handleData returns the current live view in one shot, including the
// connectivity indicator the UI renders instead of silently logging.
func (s *Server) handleData(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.watcher.State())
}

func (s *Server) handleMute(w http.ResponseWriter, _ *http.Request) {
	s.watcher.Mute()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.watcher.State())
}

// handleStream pushes every state change as a server-sent event until the
// client hangs up.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates, cancel := s.watcher.Subscribe()
	defer cancel()

	writeEvent := func(upd Update) bool {
		b, err := json.Marshal(upd)
		if err != nil {
			return false
		}
		if _, err := w.Write([]byte("data: " + string(b) + "\n\n")); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	// stato corrente subito, poi gli aggiornamenti
	if !writeEvent(s.watcher.State()) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if !writeEvent(upd) {
				return
			}
		}
	}
}

type historyResponse struct {
	Alerts  []model.ConfirmedAlert `json:"alerts"`
	Total   int                    `json:"total"`
	Visible int                    `json:"visible"`
	Live    bool                   `json:"live"`
}

// handleHistory proxies the gateway's full history and slices it by the
// growing visible count the history view passes back.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	visible := s.pager.PageSize
	if v := r.URL.Query().Get("visible"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			visible = n
		}
	}

	full, live := s.history.Fetch(r.Context())
	page := s.pager.Slice(full, visible)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(historyResponse{
		Alerts:  page,
		Total:   len(full),
		Visible: len(page),
		Live:    live,
	})
}
