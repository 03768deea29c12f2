package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
)

type fakePrimary struct {
	saved   []model.ConfirmedAlert
	history []model.ConfirmedAlert
	err     error
}

func (f *fakePrimary) SaveAlert(_ context.Context, a model.ConfirmedAlert) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, a)
	return nil
}

func (f *fakePrimary) History(context.Context) ([]model.ConfirmedAlert, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.history, nil
}

type fakeMirror struct {
	saved []model.ConfirmedAlert
	err   error
}

func (f *fakeMirror) SaveAlert(_ context.Context, a model.ConfirmedAlert) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, a)
	return nil
}

func validSubmission() *model.AlertSubmission {
	temp := 52.0
	smoke := model.SmokeLevel(900)
	return &model.AlertSubmission{
		Location:    []float64{34.05, -118.25},
		Address:     model.Address{Apartment: "4B", Street: "Elm St", District: "Central"},
		Temperature: &temp,
		SmokeLevel:  &smoke,
		DeviceID:    "dev1",
	}
}

func newTestService(p PrimaryStore, m MirrorStore) *Service {
	s := NewService(p, m)
	s.writeTimeout = 200 * time.Millisecond // keep retry loops short in tests
	return s
}

func TestConfirmWritesBothStores(t *testing.T) {
	p := &fakePrimary{}
	m := &fakeMirror{}
	s := newTestService(p, m)

	alert, out, err := s.Confirm(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Primary != StoreOK || out.Mirror != StoreOK {
		t.Fatalf("expected ok/ok outcome, got %+v", out)
	}
	if alert.ID == "" {
		t.Fatalf("expected a generated id")
	}
	if len(p.saved) != 1 || len(m.saved) != 1 {
		t.Fatalf("expected one write per store, got primary=%d mirror=%d", len(p.saved), len(m.saved))
	}
	if p.saved[0].ID != m.saved[0].ID {
		t.Fatalf("stores must share the alert id")
	}
	if got := p.saved[0].Location; got[0] != 34.05 || got[1] != -118.25 {
		t.Fatalf("location must round-trip exactly, got %v", got)
	}
}

func TestConfirmRejectsBadLocation(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*model.AlertSubmission)
		want error
	}{
		{"missing", func(s *model.AlertSubmission) { s.Location = nil }, model.ErrNoLocation},
		{"one element", func(s *model.AlertSubmission) { s.Location = []float64{1} }, model.ErrBadLocation},
		{"three elements", func(s *model.AlertSubmission) { s.Location = []float64{1, 2, 3} }, model.ErrBadLocation},
	}
	for _, tc := range cases {
		p := &fakePrimary{}
		m := &fakeMirror{}
		s := newTestService(p, m)
		sub := validSubmission()
		tc.mut(sub)
		_, _, err := s.Confirm(context.Background(), sub)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if len(p.saved) != 0 || len(m.saved) != 0 {
			t.Fatalf("%s: no document may be written on validation failure", tc.name)
		}
	}
}

func TestConfirmRejectsMissingFields(t *testing.T) {
	sub := validSubmission()
	sub.Temperature = nil
	if _, _, err := newTestService(&fakePrimary{}, &fakeMirror{}).Confirm(context.Background(), sub); !errors.Is(err, model.ErrNoTemp) {
		t.Fatalf("missing temperature must be rejected, got %v", err)
	}

	sub = validSubmission()
	sub.SmokeLevel = nil
	if _, _, err := newTestService(&fakePrimary{}, &fakeMirror{}).Confirm(context.Background(), sub); !errors.Is(err, model.ErrNoSmoke) {
		t.Fatalf("missing smokeLevel must be rejected, got %v", err)
	}

	sub = validSubmission()
	sub.DeviceID = ""
	if _, _, err := newTestService(&fakePrimary{}, &fakeMirror{}).Confirm(context.Background(), sub); !errors.Is(err, model.ErrNoDeviceID) {
		t.Fatalf("missing device_id must be rejected, got %v", err)
	}
}

func TestConfirmMirrorFailureIsPartialSuccess(t *testing.T) {
	p := &fakePrimary{}
	m := &fakeMirror{err: errors.New("mirror down")}
	s := newTestService(p, m)

	_, out, err := s.Confirm(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("mirror-only failure must not fail the confirmation: %v", err)
	}
	if out.Primary != StoreOK || out.Mirror != StoreFailed {
		t.Fatalf("expected ok/failed outcome, got %+v", out)
	}
	if len(p.saved) != 1 {
		t.Fatalf("primary copy must exist, got %d", len(p.saved))
	}
}

func TestConfirmPrimaryFailureFails(t *testing.T) {
	p := &fakePrimary{err: errors.New("primary down")}
	m := &fakeMirror{}
	s := newTestService(p, m)

	_, out, err := s.Confirm(context.Background(), validSubmission())
	if err == nil {
		t.Fatalf("primary failure must surface as an error")
	}
	if out.Primary != StoreFailed {
		t.Fatalf("expected failed primary outcome, got %+v", out)
	}
	if len(m.saved) != 0 {
		t.Fatalf("writes are sequential: the mirror must not be written after a primary failure")
	}
}

func TestConfirmDuplicateSuppressed(t *testing.T) {
	p := &fakePrimary{}
	m := &fakeMirror{}
	s := newTestService(p, m)

	first, _, err := s.Confirm(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, out, err := s.Confirm(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Primary != StoreDuplicate || out.Mirror != StoreDuplicate {
		t.Fatalf("expected duplicate outcome, got %+v", out)
	}
	if first.ID != second.ID {
		t.Fatalf("duplicate must map to the same id (%s vs %s)", first.ID, second.ID)
	}
	if len(p.saved) != 1 || len(m.saved) != 1 {
		t.Fatalf("duplicate must not write again")
	}
}

func TestHistorySortedNewestFirst(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := &fakePrimary{history: []model.ConfirmedAlert{
		{ID: "b", Timestamp: base.Add(1 * time.Hour)},
		{ID: "c", Timestamp: base.Add(2 * time.Hour)},
		{ID: "a", Timestamp: base},
	}}
	s := newTestService(p, &fakeMirror{})

	list, err := s.History(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"c", "b", "a"}
	for i, id := range want {
		if list[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, list[i].ID)
		}
	}
}
