package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Worker queues events in memory and delivers them in the background,
// retrying failures with exponential backoff. Delivery is best effort:
// events are dropped when the queue is full or retries run out.
type Worker struct {
	service     *Service
	logger      *slog.Logger
	queue       chan job
	maxAttempts int
	baseDelay   time.Duration
	now         func() time.Time
}

func NewWorker(service *Service, logger *slog.Logger) *Worker {
	return &Worker{
		service:     service,
		logger:      logger.With("component", "webhook"),
		queue:       make(chan job, defaultQueueSize),
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultRetryBaseInterval,
		now:         time.Now,
	}
}

// Publish queues an event. It never blocks.
func (w *Worker) Publish(eventType string, data interface{}) {
	if !w.service.Enabled() {
		return
	}

	payload, err := json.Marshal(EventPayload{
		ID:        uuid.New(),
		Type:      eventType,
		Data:      data,
		Timestamp: w.now().UTC(),
	})
	if err != nil {
		w.logger.Error("failed to marshal webhook event", "event", eventType, "error", err)
		return
	}

	select {
	case w.queue <- job{payload: payload, event: eventType}:
	default:
		w.logger.Warn("webhook queue full, event dropped", "event", eventType)
	}
}

func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("webhook worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("webhook worker stopped", "pending", len(w.queue))
			return
		case j := <-w.queue:
			w.process(ctx, j)
		}
	}
}

func (w *Worker) process(ctx context.Context, j job) {
	for {
		err := w.service.deliver(ctx, j.event, j.payload)
		if err == nil {
			w.logger.Debug("webhook delivered", "event", j.event, "attempts", j.attempts+1)
			return
		}

		j.attempts++
		if j.attempts >= w.maxAttempts {
			w.logger.Error("webhook delivery failed",
				"event", j.event,
				"attempts", j.attempts,
				"error", err,
			)
			return
		}

		delay := time.Duration(1<<(j.attempts-1)) * w.baseDelay
		w.logger.Info("webhook scheduled for retry",
			"event", j.event,
			"attempts", j.attempts,
			"delay", delay,
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
