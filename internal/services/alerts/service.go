package alerts

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
	"github.com/bob-jr-kab/Fire-Detection-Alert-System/pkg/dedup"
)

// Store write status as reported back to the caller. Partial success is a
// distinct outcome, not collapsed into one generic error.
const (
	StoreOK        = "ok"
	StoreFailed    = "failed"
	StoreDuplicate = "duplicate"
)

// Outcome reports what happened per store for one confirmation.
type Outcome struct {
	Primary string `json:"primary"`
	Mirror  string `json:"mirror"`
}

// Service runs the confirmation pipeline: validate, then write the alert to
// the two independent stores, each behind its own circuit breaker with a
// bounded retry. The writes are sequential (primary first) and there is no
// compensating rollback: the mirror failing does not undo the primary.
type Service struct {
	primary PrimaryStore
	mirror  MirrorStore

	primaryCB *gobreaker.CircuitBreaker
	mirrorCB  *gobreaker.CircuitBreaker
	deduper   *dedup.Deduper

	writeTimeout time.Duration
	now          func() time.Time
}

func mkCB(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 10 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})
}

func NewService(primary PrimaryStore, mirror MirrorStore) *Service {
	return &Service{
		primary:      primary,
		mirror:       mirror,
		primaryCB:    mkCB("alerts-primary"),
		mirrorCB:     mkCB("alerts-mirror"),
		deduper:      dedup.New(10*time.Minute, 10000),
		writeTimeout: 5 * time.Second,
		now:          time.Now,
	}
}

// AlertID derives the alert id from the submission content, so a re-sent
// confirmation maps to the same id in both stores.
func AlertID(sub *model.AlertSubmission) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(sub.DedupKey())).String()
}

// Confirm validates and durably records one confirmation. The returned
// error is non-nil only when the primary write failed; a mirror-only
// failure is reported through the Outcome.
func (s *Service) Confirm(ctx context.Context, sub *model.AlertSubmission) (model.ConfirmedAlert, Outcome, error) {
	if err := sub.Validate(); err != nil {
		return model.ConfirmedAlert{}, Outcome{}, err
	}

	id := AlertID(sub)
	alert := sub.Alert(id, s.now().UTC())

	if !s.deduper.ShouldProcess(sub.DedupKey()) {
		// già confermato da poco: idempotente, nessuna nuova scrittura
		log.Printf("alerts: duplicate confirmation for %s suppressed", id)
		return alert, Outcome{Primary: StoreDuplicate, Mirror: StoreDuplicate}, nil
	}

	out := Outcome{Primary: StoreOK, Mirror: StoreOK}

	if err := s.write(ctx, s.primaryCB, func(c context.Context) error {
		return s.primary.SaveAlert(c, alert)
	}); err != nil {
		log.Printf("alerts: primary write failed for %s: %v", id, err)
		out.Primary = StoreFailed
		// nothing recorded: let the client retry immediately
		s.deduper.Forget(sub.DedupKey())
		return alert, out, fmt.Errorf("primary store: %w", err)
	}

	if err := s.write(ctx, s.mirrorCB, func(c context.Context) error {
		return s.mirror.SaveAlert(c, alert)
	}); err != nil {
		// partial success: the primary copy exists, report it as such
		log.Printf("alerts: mirror write failed for %s: %v", id, err)
		out.Mirror = StoreFailed
	}

	log.Printf("alerts: alert %s stored (primary=%s mirror=%s)", id, out.Primary, out.Mirror)
	return alert, out, nil
}

// write = breaker + bounded exponential retry around one store write.
func (s *Service) write(ctx context.Context, cb *gobreaker.CircuitBreaker, fn func(context.Context) error) error {
	_, err := cb.Execute(func() (any, error) {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 100 * time.Millisecond
		bo.MaxElapsedTime = s.writeTimeout
		return nil, backoff.Retry(func() error {
			c, cancel := context.WithTimeout(ctx, s.writeTimeout)
			defer cancel()
			return fn(c)
		}, backoff.WithContext(backoff.WithMaxRetries(bo, 2), ctx))
	})
	return err
}

// History returns everything the primary store has, newest first.
func (s *Service) History(ctx context.Context) ([]model.ConfirmedAlert, error) {
	res, err := s.primaryCB.Execute(func() (any, error) {
		c, cancel := context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
		return s.primary.History(c)
	})
	if err != nil {
		return nil, err
	}
	list := res.([]model.ConfirmedAlert)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Timestamp.After(list[j].Timestamp) })
	return list, nil
}
