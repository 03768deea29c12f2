package alerts

import (
	"context"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
)

// PrimaryStore is the durable system of record for confirmed alerts:
// server-assigned timestamp, generated id, history queryable in reverse
// chronological order.
type PrimaryStore interface {
	SaveAlert(ctx context.Context, a model.ConfirmedAlert) error
	History(ctx context.Context) ([]model.ConfirmedAlert, error)
}

// MirrorStore is the redundant copy the dashboards watch live. It keeps a
// client-style ISO timestamp and pushes the full current document set to
// subscribers on every change, not a diff.
type MirrorStore interface {
	SaveAlert(ctx context.Context, a model.ConfirmedAlert) error
}
