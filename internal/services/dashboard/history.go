package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
)

// Pager reproduces the dashboard's client-side pagination: the server hands
// over the full result set and the view re-slices it with a growing visible
// count.
type Pager struct {
	PageSize int
}

func (p Pager) Slice(list []model.ConfirmedAlert, visible int) []model.ConfirmedAlert {
	if visible <= 0 {
		visible = p.PageSize
	}
	if visible > len(list) {
		visible = len(list)
	}
	return list[:visible]
}

// HistoryClient fetches the full alert history from the gateway, behind a
// circuit breaker, keeping the last good copy for when the gateway is down.
type HistoryClient struct {
	base    string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker

	mu       sync.Mutex
	lastGood []model.ConfirmedAlert
}

func NewHistoryClient(base string, timeout time.Duration) *HistoryClient {
	return &HistoryClient{
		base:   strings.TrimRight(strings.TrimSpace(base), "/"),
		client: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "gateway-history",
			Timeout: 10 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		}),
	}
}

// Fetch returns the newest-first alert list and whether it is live or the
// last cached copy.
func (h *HistoryClient) Fetch(ctx context.Context) ([]model.ConfirmedAlert, bool) {
	res, err := h.breaker.Execute(func() (any, error) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, h.base+"/api/fire-alerts", nil)
		resp, err := h.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("gateway history status %d", resp.StatusCode)
		}
		var list []model.ConfirmedAlert
		if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	})
	if err != nil {
		h.mu.Lock()
		cached := h.lastGood
		h.mu.Unlock()
		return cached, false
	}

	list := res.([]model.ConfirmedAlert)
	h.mu.Lock()
	h.lastGood = list
	h.mu.Unlock()
	return list, true
}
