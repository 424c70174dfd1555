package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nexstage/events-backend/internal/models"
)

// QueueNotifications is the Redis list key for notification delivery jobs.
const QueueNotifications = "worker:notifications"

// Job is a notification delivery job. Delivery retries happen inside the
// worker, so a job is only ever pushed once; there is no dead-letter queue,
// exhausted jobs are dropped.
type Job struct {
	ID           string              `json:"id"`
	Notification models.Notification `json:"notification"`
	CreatedAt    time.Time           `json:"created_at"`
}

// Queue enqueues and dequeues notification jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueNotification pushes a notification delivery job.
func (q *Queue) EnqueueNotification(ctx context.Context, n models.Notification) error {
	job := Job{
		ID:           uuid.New().String(),
		Notification: n,
		CreatedAt:    time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueNotifications, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued notification job",
		zap.String("job_id", job.ID),
		zap.String("kind", n.Kind),
		zap.String("recipient", n.Recipient),
	)
	return nil
}

// Dequeue blocks until a job is available or ctx is done.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, 0, QueueNotifications).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}
