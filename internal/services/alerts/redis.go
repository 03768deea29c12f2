package alerts

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
)

const (
	mirrorHashKey   = "fireAlerts"
	mirrorSnapshotC = "fireAlerts:snapshot"
)

// mirrorDoc is the document shape in the mirror: same alert, but with the
// app-style ISO timestamp instead of the primary store's server time. The
// two stores hold overlapping, not identical, copies.
type mirrorDoc struct {
	ID          string        `json:"id"`
	Location    []float64     `json:"location"`
	Address     model.Address `json:"address"`
	Temperature float64       `json:"temperature"`
	SmokeLevel  string        `json:"smokeLevel"`
	DeviceID    string        `json:"device_id"`
	Timestamp   string        `json:"timestamp"`
}

// RedisMirror keeps the live copy in a hash keyed by alert id and publishes
// the full current document set on every change, so subscribers get
// Firestore-style whole-collection snapshots.
type RedisMirror struct {
	rdb *redis.Client
}

func NewRedisMirror(ctx context.Context, addr, password string, db int) (*RedisMirror, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, err
	}
	log.Printf("alerts: connected to redis mirror at %s", addr)
	return &RedisMirror{rdb: rdb}, nil
}

func (m *RedisMirror) Ping(ctx context.Context) error {
	return m.rdb.Ping(ctx).Err()
}

func (m *RedisMirror) SaveAlert(ctx context.Context, a model.ConfirmedAlert) error {
	doc := mirrorDoc{
		ID:          a.ID,
		Location:    a.Location,
		Address:     a.Address,
		Temperature: a.Temperature,
		SmokeLevel:  a.SmokeLevel.String(),
		DeviceID:    a.DeviceID,
		Timestamp:   time.Now().UTC().Format(time.RFC3339), // ISO string, come faceva l'app
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := m.rdb.HSet(ctx, mirrorHashKey, a.ID, b).Err(); err != nil {
		return err
	}
	return m.publishSnapshot(ctx)
}

// Snapshot returns the full current document set.
func (m *RedisMirror) Snapshot(ctx context.Context) ([]model.ConfirmedAlert, error) {
	raw, err := m.rdb.HGetAll(ctx, mirrorHashKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.ConfirmedAlert, 0, len(raw))
	for _, v := range raw {
		var doc mirrorDoc
		if err := json.Unmarshal([]byte(v), &doc); err != nil {
			log.Printf("alerts: skipping malformed mirror doc: %v", err)
			continue
		}
		out = append(out, docToAlert(doc))
	}
	return out, nil
}

func (m *RedisMirror) publishSnapshot(ctx context.Context) error {
	snap, err := m.Snapshot(ctx)
	if err != nil {
		return err
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return m.rdb.Publish(ctx, mirrorSnapshotC, b).Err()
}

// SubscribeSnapshots delivers the current document set immediately, then the
// full set again on every change, until ctx closes. Ordering between two
// rapid writes is whatever redis pub/sub provides: last snapshot wins.
func (m *RedisMirror) SubscribeSnapshots(ctx context.Context) (<-chan []model.ConfirmedAlert, error) {
	sub := m.rdb.Subscribe(ctx, mirrorSnapshotC)
	if _, err := sub.Receive(ctx); err != nil {
		return nil, err
	}

	out := make(chan []model.ConfirmedAlert, 8)

	initial, err := m.Snapshot(ctx)
	if err != nil {
		_ = sub.Close()
		return nil, err
	}
	out <- initial

	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var snap []model.ConfirmedAlert
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					log.Printf("alerts: malformed snapshot message: %v", err)
					continue
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func docToAlert(doc mirrorDoc) model.ConfirmedAlert {
	ts, _ := time.Parse(time.RFC3339, doc.Timestamp)
	smoke, _ := strconv.ParseFloat(doc.SmokeLevel, 64)
	return model.ConfirmedAlert{
		ID:          doc.ID,
		Location:    doc.Location,
		Address:     doc.Address,
		Temperature: doc.Temperature,
		SmokeLevel:  model.SmokeLevel(smoke),
		DeviceID:    doc.DeviceID,
		Timestamp:   ts,
	}
}
