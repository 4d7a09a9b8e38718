package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/carpoolnetwork/trust-service/internal/ports"
	"github.com/google/uuid"
)

const (
	eventTrustScoreUpdated = "trust.score_updated"
	eventDocumentSubmitted = "trust.document_submitted"
	eventDocumentReviewed  = "trust.document_reviewed"
)

type trustScoreUpdatedEventData struct {
	UserID        string `json:"user_id"`
	TrustScore    int    `json:"trust_score"`
	PreviousScore *int   `json:"previous_score,omitempty"`
	ComputedAt    string `json:"computed_at"`
}

type documentEventData struct {
	UserID       string `json:"user_id"`
	DocumentType string `json:"document_type"`
	DocumentID   string `json:"document_id"`
	Status       string `json:"status"`
	Reason       string `json:"reason,omitempty"`
	ReviewedBy   string `json:"reviewed_by,omitempty"`
	OccurredAt   string `json:"occurred_at"`
}

func (s *Service) enqueueTrustScoreUpdated(ctx context.Context, userID uuid.UUID, score domain.TrustScore, previous *int) error {
	return s.enqueue(ctx, eventTrustScoreUpdated, userID, trustScoreUpdatedEventData{
		UserID:        userID.String(),
		TrustScore:    score.Total,
		PreviousScore: previous,
		ComputedAt:    score.CalculatedAt.Format(time.RFC3339),
	})
}

func (s *Service) enqueueDocumentEvent(ctx context.Context, eventType string, userID uuid.UUID, data documentEventData) error {
	data.UserID = userID.String()
	data.OccurredAt = s.nowFn().Format(time.RFC3339)
	return s.enqueue(ctx, eventType, userID, data)
}

func (s *Service) enqueue(ctx context.Context, eventType string, userID uuid.UUID, data any) error {
	occurredAt := s.nowFn()
	eventID := uuid.New()
	payloadEnvelope := map[string]any{
		"event_id":           eventID.String(),
		"event_type":         eventType,
		"occurred_at":        occurredAt.Format(time.RFC3339),
		"source_service":     s.cfg.ServiceName,
		"trace_id":           "",
		"schema_version":     "1.0",
		"partition_key_path": "data.user_id",
		"partition_key":      userID.String(),
		"data":               data,
	}
	payload, err := json.Marshal(payloadEnvelope)
	if err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:          eventID,
		EventType:        eventType,
		PartitionKey:     userID.String(),
		PartitionKeyPath: "data.user_id",
		Payload:          payload,
		OccurredAt:       occurredAt,
		SchemaVersion:    "1.0",
	})
}

func hashRequest(v any) string {
	raw, _ := json.Marshal(v)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// runIdempotent executes write at most once per Idempotency-Key. A retry
// with the same request replays the stored response; a different request
// under the same key is a conflict. The key is released when write fails so
// the client can retry.
func runIdempotent[T any](ctx context.Context, s *Service, key, operation string, request any, write func() (T, error)) (T, error) {
	var zero T
	if key == "" {
		return write()
	}
	hash := hashRequest(request)
	existing, err := s.idempotency.Get(ctx, key, s.nowFn())
	if err != nil {
		return zero, err
	}
	if existing != nil {
		return replayIdempotent[T](existing, hash)
	}
	if err := s.idempotency.Reserve(ctx, key, hash, s.nowFn().Add(s.cfg.IdempotencyTTL)); err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			return zero, err
		}
		return zero, fmt.Errorf("%w: %v", domain.ErrIdempotencyConflict, err)
	}

	out, err := write()
	if err != nil {
		if releaseErr := s.idempotency.Release(ctx, key); releaseErr != nil {
			s.logger.WarnContext(ctx, "failed to release idempotency key",
				"module", "application.idempotency",
				"layer", "application",
				"operation", operation,
				"outcome", "failure",
				"error", releaseErr,
			)
		}
		return zero, err
	}
	body, err := json.Marshal(out)
	if err == nil {
		err = s.idempotency.Complete(ctx, key, body, s.nowFn())
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to store idempotent response",
			"module", "application.idempotency",
			"layer", "application",
			"operation", operation,
			"outcome", "failure",
			"error", err,
		)
	}
	return out, nil
}

func replayIdempotent[T any](rec *ports.IdempotencyRecord, hash string) (T, error) {
	var out T
	if rec.RequestHash != hash {
		return out, fmt.Errorf("%w: key already used for a different request", domain.ErrIdempotencyConflict)
	}
	if len(rec.ResponseBody) == 0 {
		return out, fmt.Errorf("%w: request with this key is still in progress", domain.ErrIdempotencyConflict)
	}
	if err := json.Unmarshal(rec.ResponseBody, &out); err != nil {
		return out, fmt.Errorf("decode stored response: %w", err)
	}
	return out, nil
}

func cacheKeyTrustScore(userID uuid.UUID) string {
	return "trust:v1:score:" + userID.String()
}

func cacheKeyRefreshRate(userID uuid.UUID) string {
	return "trust:v1:refresh_rate:" + userID.String()
}
