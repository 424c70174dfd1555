// Package notifications implements best-effort notification dispatch: the
// request path enqueues and forgets, the worker delivers with bounded
// retries and drops what it cannot deliver.
package notifications

import (
	"context"

	"go.uber.org/zap"

	"github.com/nexstage/events-backend/internal/models"
)

// Enqueuer pushes a notification job for the worker.
type Enqueuer interface {
	EnqueueNotification(ctx context.Context, n models.Notification) error
}

// Dispatcher hands notifications off to the delivery queue. It never reports
// failure to the caller: a notification that cannot even be enqueued is
// logged and lost, by policy.
type Dispatcher struct {
	queue  Enqueuer
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(queue Enqueuer, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{queue: queue, logger: logger}
}

// Dispatch schedules a notification for delivery, detached from the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, n models.Notification) {
	if n.Recipient == "" {
		d.logger.Debug("notification skipped, no recipient", zap.String("kind", n.Kind))
		return
	}
	if err := d.queue.EnqueueNotification(ctx, n); err != nil {
		d.logger.Error("notification enqueue failed, dropping",
			zap.Error(err),
			zap.String("kind", n.Kind),
			zap.String("recipient", n.Recipient),
		)
	}
}
