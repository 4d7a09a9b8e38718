package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/ports"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, event ports.OutboxEvent) error {
	rec := trustOutboxModel{
		OutboxID:         event.EventID,
		EventType:        event.EventType,
		PartitionKey:     event.PartitionKey,
		PartitionKeyPath: event.PartitionKeyPath,
		Payload:          string(event.Payload),
		SchemaVersion:    event.SchemaVersion,
		TraceID:          event.TraceID,
		CreatedAt:        event.OccurredAt,
		FirstSeenAt:      event.OccurredAt,
	}
	return storageErr(r.db.WithContext(ctx).Create(&rec).Error)
}

func (r *outboxRepository) FetchUnpublished(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	var rows []trustOutboxModel
	if err := r.db.WithContext(ctx).Where("published_at IS NULL").Order("created_at asc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, storageErr(err)
	}
	out := make([]ports.OutboxRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, ports.OutboxRecord{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      []byte(row.Payload),
			RetryCount:   row.RetryCount,
			PublishedAt:  row.PublishedAt,
			LastError:    row.LastError,
			LastErrorAt:  row.LastErrorAt,
			FirstSeenAt:  row.FirstSeenAt,
		})
	}
	return out, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error {
	return storageErr(r.db.WithContext(ctx).Model(&trustOutboxModel{}).Where("outbox_id = ?", outboxID).Update("published_at", at).Error)
}

func (r *outboxRepository) MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error {
	return storageErr(r.db.WithContext(ctx).Model(&trustOutboxModel{}).Where("outbox_id = ?", outboxID).Updates(map[string]any{
		"retry_count":   gorm.Expr("retry_count + 1"),
		"last_error":    errMsg,
		"last_error_at": at,
	}).Error)
}

type eventDedupRepository struct {
	db *gorm.DB
}

func (r *eventDedupRepository) IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&trustEventDedupModel{}).
		Where("event_id = ? AND expires_at > ?", eventID, now).
		Count(&count).Error
	return count > 0, storageErr(err)
}

func (r *eventDedupRepository) MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error {
	rec := trustEventDedupModel{
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now().UTC(),
		ExpiresAt:   expiresAt,
	}
	return storageErr(r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Assign(map[string]any{
			"event_type":   eventType,
			"processed_at": rec.ProcessedAt,
			"expires_at":   expiresAt,
		}).
		FirstOrCreate(&rec).Error)
}

type idempotencyRepository struct {
	db *gorm.DB
}

const (
	idempotencyReserved  = "reserved"
	idempotencyCompleted = "completed"
)

var errAlreadyReserved = errors.New("already reserved")

func (r *idempotencyRepository) Get(ctx context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	var rec trustIdempotencyModel
	err := r.db.WithContext(ctx).Where("idempotency_key = ? AND expires_at > ?", key, now).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageErr(err)
	}
	out := &ports.IdempotencyRecord{
		Key:         rec.IdempotencyKey,
		RequestHash: rec.RequestHash,
		Status:      rec.Status,
		ExpiresAt:   rec.ExpiresAt,
	}
	if rec.ResponseBody != nil {
		out.ResponseBody = []byte(*rec.ResponseBody)
	}
	return out, nil
}

// Reserve claims key until expiresAt. An expired reservation is released
// first so the same key can be reused after the retention window.
func (r *idempotencyRepository) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("idempotency_key = ? AND expires_at <= ?", key, now).
			Delete(&trustIdempotencyModel{}).Error; err != nil {
			return storageErr(err)
		}
		rec := trustIdempotencyModel{
			IdempotencyKey: key,
			RequestHash:    requestHash,
			Status:         idempotencyReserved,
			ExpiresAt:      expiresAt,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return errAlreadyReserved
			}
			return storageErr(err)
		}
		return nil
	})
}

func (r *idempotencyRepository) Complete(ctx context.Context, key string, responseBody []byte, at time.Time) error {
	payload := string(responseBody)
	return storageErr(r.db.WithContext(ctx).Model(&trustIdempotencyModel{}).
		Where("idempotency_key = ?", key).
		Updates(map[string]any{
			"status":        idempotencyCompleted,
			"response_body": payload,
			"updated_at":    at,
		}).Error)
}

// Release drops a reservation whose write failed. Completed keys are kept.
func (r *idempotencyRepository) Release(ctx context.Context, key string) error {
	return storageErr(r.db.WithContext(ctx).
		Where("idempotency_key = ? AND status = ?", key, idempotencyReserved).
		Delete(&trustIdempotencyModel{}).Error)
}

var (
	_ ports.OutboxRepository      = (*outboxRepository)(nil)
	_ ports.EventDedupRepository  = (*eventDedupRepository)(nil)
	_ ports.IdempotencyRepository = (*idempotencyRepository)(nil)
)
