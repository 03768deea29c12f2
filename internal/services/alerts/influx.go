package alerts

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
)

const alertMeasurement = "fire_alert"

// InfluxStore persists confirmed alerts as points: alert_id/device_id as
// tags, the rest as fields, server time as the point time.
type InfluxStore struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	bucket   string
}

type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

func NewInfluxStore(cfg InfluxConfig) (*InfluxStore, error) {
	if cfg.URL == "" || cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxStore{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		queryAPI: client.QueryAPI(cfg.Org),
		bucket:   cfg.Bucket,
	}, nil
}

func (s *InfluxStore) Ping(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("influx not ready")
	}
	return nil
}

func (s *InfluxStore) SaveAlert(ctx context.Context, a model.ConfirmedAlert) error {
	tags := map[string]string{
		"alert_id":  a.ID,
		"device_id": a.DeviceID,
	}
	fields := map[string]interface{}{
		"lon":         a.Location[0],
		"lat":         a.Location[1],
		"temperature": a.Temperature,
		"smoke_level": a.SmokeLevel.String(), // schema loosely typed, kept as string
		"apartment":   a.Address.Apartment,
		"street":      a.Address.Street,
		"district":    a.Address.District,
	}
	point := influxdb2.NewPoint(alertMeasurement, tags, fields, a.Timestamp)
	return s.writeAPI.WritePoint(ctx, point)
}

func buildHistoryFlux(bucket string) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: 0)
  |> filter(fn: (r) => r._measurement == %q)
  |> pivot(rowKey: ["_time", "alert_id", "device_id"], columnKey: ["_field"], valueColumn: "_value")
  |> sort(columns: ["_time"], desc: true)
`, bucket, alertMeasurement)
}

// History returns every confirmed alert, newest first. No server-side
// pagination or filtering: the dashboard slices the full set client-side.
func (s *InfluxStore) History(ctx context.Context) ([]model.ConfirmedAlert, error) {
	res, err := s.queryAPI.Query(ctx, buildHistoryFlux(s.bucket))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Close() }()

	var out []model.ConfirmedAlert
	for res.Next() {
		rec := res.Record()
		a := model.ConfirmedAlert{
			ID:          asString(rec.ValueByKey("alert_id")),
			DeviceID:    asString(rec.ValueByKey("device_id")),
			Location:    []float64{asFloat(rec.ValueByKey("lon")), asFloat(rec.ValueByKey("lat"))},
			Temperature: asFloat(rec.ValueByKey("temperature")),
			SmokeLevel:  model.SmokeLevel(asFloat(rec.ValueByKey("smoke_level"))),
			Address: model.Address{
				Apartment: asString(rec.ValueByKey("apartment")),
				Street:    asString(rec.ValueByKey("street")),
				District:  asString(rec.ValueByKey("district")),
			},
			Timestamp: rec.Time().UTC(),
		}
		out = append(out, a)
	}
	if res.Err() != nil {
		return nil, res.Err()
	}
	// la sort Flux dovrebbe bastare, ma l'ordinamento è parte del contratto
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return 0
}
