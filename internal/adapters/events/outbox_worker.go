package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/ports"
)

type OutboxWorker struct {
	logger    *slog.Logger
	outbox    ports.OutboxRepository
	publisher ports.EventPublisher
	interval  time.Duration
	batchSize int
	nowFn     func() time.Time
}

func NewOutboxWorker(logger *slog.Logger, outbox ports.OutboxRepository, publisher ports.EventPublisher, interval time.Duration, batchSize int) *OutboxWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxWorker{
		logger:    logger,
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "outbox iteration failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// processOnce drains one batch. Score updates for a user must reach
// consumers in the order they were computed, so once an event for a
// partition key fails, later events with the same key wait for the next poll.
func (w *OutboxWorker) processOnce(ctx context.Context) error {
	records, err := w.outbox.FetchUnpublished(ctx, w.batchSize)
	if err != nil {
		return err
	}
	now := w.nowFn()
	blocked := make(map[string]struct{})
	var published, failed, deferred int
	for _, rec := range records {
		if _, stuck := blocked[rec.PartitionKey]; stuck {
			deferred++
			continue
		}
		if err := w.publisher.Publish(ctx, rec.EventType, rec.Payload, rec.PartitionKey); err != nil {
			w.logger.WarnContext(ctx, "outbox publish failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "publish",
				"outcome", "failure",
				"event_type", rec.EventType,
				"partition_key", rec.PartitionKey,
				"retry_count", rec.RetryCount,
				"error", err,
			)
			if markErr := w.outbox.MarkFailed(ctx, rec.OutboxID, err.Error(), now); markErr != nil {
				return markErr
			}
			if rec.PartitionKey != "" {
				blocked[rec.PartitionKey] = struct{}{}
			}
			failed++
			continue
		}
		if err := w.outbox.MarkPublished(ctx, rec.OutboxID, now); err != nil {
			return err
		}
		published++
	}
	if len(records) > 0 {
		w.logger.DebugContext(ctx, "outbox batch drained",
			"module", "events.outbox_worker",
			"layer", "adapter",
			"operation", "process_once",
			"outcome", "success",
			"published", published,
			"failed", failed,
			"deferred", deferred,
		)
	}
	return nil
}
