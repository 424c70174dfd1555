package notifications

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nexstage/events-backend/internal/models"
	"github.com/nexstage/events-backend/pkg/queue"
)

// Transport delivers one notification to the notifications service.
type Transport interface {
	Send(ctx context.Context, n models.Notification) error
}

// JobSource is the queue side the deliverer consumes.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
}

const dequeuePause = 5 * time.Second

// Deliverer is the worker loop: dequeue a job, attempt delivery with
// exponential backoff, drop after the attempt budget. There is no dead-letter
// queue; exhausted notifications are logged and abandoned.
type Deliverer struct {
	source      JobSource
	transport   Transport
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(time.Duration)
	logger      *zap.Logger
}

// NewDeliverer creates a delivery worker. baseDelay is the first retry delay,
// doubled after each failed attempt.
func NewDeliverer(source JobSource, transport Transport, maxAttempts int, baseDelay time.Duration, logger *zap.Logger) *Deliverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	return &Deliverer{
		source:      source,
		transport:   transport,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		sleep:       time.Sleep,
		logger:      logger,
	}
}

// Run consumes jobs until ctx is cancelled.
func (d *Deliverer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("notification worker stopping")
			return
		default:
		}

		job, err := d.source.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			d.logger.Warn("dequeue error", zap.Error(err))
			d.sleep(dequeuePause)
			continue
		}
		if job == nil {
			continue
		}
		d.Deliver(ctx, job.Notification)
	}
}

// Deliver attempts delivery with backoff: after every failed attempt it waits
// the current delay and doubles it, the last attempt included. A notification
// that survives all attempts is dropped without propagating the failure
// anywhere.
func (d *Deliverer) Deliver(ctx context.Context, n models.Notification) {
	delay := d.baseDelay
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		err := d.transport.Send(ctx, n)
		if err == nil {
			d.logger.Info("notification delivered",
				zap.String("kind", n.Kind),
				zap.String("recipient", n.Recipient),
				zap.Int("attempt", attempt),
			)
			return
		}
		d.logger.Error("notification delivery failed",
			zap.Error(err),
			zap.String("kind", n.Kind),
			zap.String("recipient", n.Recipient),
			zap.Int("attempt", attempt),
		)
		d.sleep(delay)
		delay *= 2
	}
	d.logger.Warn("notification abandoned after retries",
		zap.String("kind", n.Kind),
		zap.String("recipient", n.Recipient),
		zap.Int("attempts", d.maxAttempts),
	)
}
