package dashboard

import (
	"log"
	"sync"
	"time"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
)

// AlarmState is the siren: either silent or sounding.
type AlarmState string

const (
	AlarmSilent   AlarmState = "silent"
	AlarmSounding AlarmState = "sounding"
)

// Notification is one "new alert" signal: emitted exactly once per alert id,
// never for the ids already present in the baseline snapshot.
type Notification struct {
	AlertID  string    `json:"alert_id"`
	District string    `json:"district"`
	At       time.Time `json:"at"`
}

// Update is what stream subscribers receive after every state change.
type Update struct {
	Alerts    []model.ConfirmedAlert `json:"alerts"`
	Alarm     AlarmState             `json:"alarm"`
	Muted     bool                   `json:"muted"`
	Connected bool                   `json:"connected"`
	New       []Notification         `json:"new,omitempty"`
}

// Watcher consumes full-collection snapshots from the mirror store and runs
// the alarm policy. The first snapshot after start is the baseline and
// produces no notifications, otherwise every restart would replay a
// notification storm for the alerts already open.
type Watcher struct {
	mu        sync.Mutex
	policy    model.SeverityPolicy
	primed    bool
	known     map[string]struct{}
	alerts    []model.ConfirmedAlert
	alarm     AlarmState
	muted     bool
	connected bool

	subs map[chan Update]struct{}
	now  func() time.Time
}

func NewWatcher(policy model.SeverityPolicy) *Watcher {
	return &Watcher{
		policy: policy,
		known:  make(map[string]struct{}),
		alarm:  AlarmSilent,
		subs:   make(map[chan Update]struct{}),
		now:    time.Now,
	}
}

// Apply ingests one snapshot (the full current document set, not a diff)
// and returns the notifications for genuinely new qualifying alerts.
func (w *Watcher) Apply(snap []model.ConfirmedAlert) []Notification {
	w.mu.Lock()

	ids := make(map[string]struct{}, len(snap))
	var fresh []model.ConfirmedAlert
	for _, a := range snap {
		ids[a.ID] = struct{}{}
		if _, seen := w.known[a.ID]; !seen {
			fresh = append(fresh, a)
		}
	}

	var notes []Notification
	if w.primed {
		for _, a := range fresh {
			if !w.policy.AlertCritical(a) {
				continue
			}
			notes = append(notes, Notification{AlertID: a.ID, District: a.Address.District, At: w.now()})
		}
	}
	w.primed = true
	w.known = ids
	w.alerts = snap

	if len(notes) > 0 {
		// un nuovo allarme forza l'unmute e risuona
		w.muted = false
		w.alarm = AlarmSounding
	}
	if !w.anyQualifyingLocked() {
		w.alarm = AlarmSilent
	}

	upd := w.updateLocked(notes)
	w.mu.Unlock()

	w.publish(upd)
	return notes
}

// Mute silences the siren until the next new qualifying alert. The flag is
// session-local and never persisted.
func (w *Watcher) Mute() {
	w.mu.Lock()
	w.muted = true
	w.alarm = AlarmSilent
	upd := w.updateLocked(nil)
	w.mu.Unlock()
	w.publish(upd)
}

// SetConnected flips the visible connectivity indicator.
func (w *Watcher) SetConnected(up bool) {
	w.mu.Lock()
	if w.connected == up {
		w.mu.Unlock()
		return
	}
	w.connected = up
	upd := w.updateLocked(nil)
	w.mu.Unlock()
	w.publish(upd)
	if !up {
		log.Println("dashboard: mirror subscription lost")
	}
}

// State returns the current update payload.
func (w *Watcher) State() Update {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.updateLocked(nil)
}

// Subscribe registers a stream consumer; the returned cancel must be called
// when the consumer goes away.
func (w *Watcher) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 8)
	w.mu.Lock()
	w.subs[ch] = struct{}{}
	w.mu.Unlock()
	cancel := func() {
		w.mu.Lock()
		if _, ok := w.subs[ch]; ok {
			delete(w.subs, ch)
			close(ch)
		}
		w.mu.Unlock()
	}
	return ch, cancel
}

func (w *Watcher) anyQualifyingLocked() bool {
	for _, a := range w.alerts {
		if w.policy.AlertCritical(a) {
			return true
		}
	}
	return false
}

func (w *Watcher) updateLocked(notes []Notification) Update {
	alerts := make([]model.ConfirmedAlert, len(w.alerts))
	copy(alerts, w.alerts)
	return Update{
		Alerts:    alerts,
		Alarm:     w.alarm,
		Muted:     w.muted,
		Connected: w.connected,
		New:       notes,
	}
}

func (w *Watcher) publish(upd Update) {
	w.mu.Lock()
	for ch := range w.subs {
		select {
		case ch <- upd:
		default:
			// slow stream consumer: skip, the next update supersedes this one
		}
	}
	w.mu.Unlock()
}

// Run consumes snapshots until the channel closes or the context ends.
func (w *Watcher) Run(snapshots <-chan []model.ConfirmedAlert) {
	w.SetConnected(true)
	for snap := range snapshots {
		w.Apply(snap)
	}
	w.SetConnected(false)
}
