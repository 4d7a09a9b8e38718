package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/application"
	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/segmentio/kafka-go"
)

type Message struct {
	Topic     string
	EventType string
	Payload   []byte

	raw *kafka.Message
}

// Consumer delivers messages at least once. Poll does not advance the
// committed position; Commit acknowledges a message and everything before
// it on the same partition.
type Consumer interface {
	Poll(ctx context.Context, max int) ([]Message, error)
	Commit(ctx context.Context, msgs ...Message) error
}

// Handler is the inbound surface of the trust service.
type Handler interface {
	HandleUserRegistered(ctx context.Context, payload []byte) error
	HandleUserDeleted(ctx context.Context, payload []byte) error
	HandleVerificationUpdated(ctx context.Context, payload []byte) error
	HandleRideCompleted(ctx context.Context, payload []byte) error
	HandleReliabilityUpdated(ctx context.Context, payload []byte) error
	HandleRestrictionApplied(ctx context.Context, payload []byte) error
}

type ConsumerWorker struct {
	logger       *slog.Logger
	consumer     Consumer
	routes       map[string]func(context.Context, []byte) error
	eventByTopic map[string]string
	interval     time.Duration
	batchSize    int
	pending      []Message
}

func NewConsumerWorker(logger *slog.Logger, consumer Consumer, handler Handler, eventByTopic map[string]string, interval time.Duration, batchSize int) *ConsumerWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ConsumerWorker{
		logger:   logger,
		consumer: consumer,
		routes: map[string]func(context.Context, []byte) error{
			application.EventUserRegistered:      handler.HandleUserRegistered,
			application.EventUserDeleted:         handler.HandleUserDeleted,
			application.EventVerificationUpdated: handler.HandleVerificationUpdated,
			application.EventRideCompleted:       handler.HandleRideCompleted,
			application.EventReliabilityUpdated:  handler.HandleReliabilityUpdated,
			application.EventRestrictionApplied:  handler.HandleRestrictionApplied,
		},
		eventByTopic: eventByTopic,
		interval:     interval,
		batchSize:    batchSize,
	}
}

// ConsumedEventTypes lists the event types the worker dispatches.
func ConsumedEventTypes() []string {
	return []string{
		application.EventUserRegistered,
		application.EventUserDeleted,
		application.EventVerificationUpdated,
		application.EventRideCompleted,
		application.EventReliabilityUpdated,
		application.EventRestrictionApplied,
	}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "consumer iteration failed",
				"module", "events.consumer_worker",
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

// processOnce retries messages held back by an earlier failure before it
// polls for new ones.
func (w *ConsumerWorker) processOnce(ctx context.Context) error {
	if len(w.pending) > 0 {
		rest, err := w.drain(ctx, w.pending)
		w.pending = rest
		if err != nil || len(rest) > 0 {
			return err
		}
	}
	msgs, pollErr := w.consumer.Poll(ctx, w.batchSize)
	rest, err := w.drain(ctx, msgs)
	w.pending = rest
	if err != nil {
		return err
	}
	return pollErr
}

// drain handles msgs in order and commits each one once it is settled. It
// stops at the first retryable failure and returns the unsettled tail, so
// no later offset is committed past an event that was not applied.
func (w *ConsumerWorker) drain(ctx context.Context, msgs []Message) ([]Message, error) {
	for i, msg := range msgs {
		eventType := w.resolveEventType(msg)
		if err := w.dispatch(ctx, eventType, msg); err != nil {
			if retryable(err) {
				w.logger.WarnContext(ctx, "event handling failed, will retry",
					"module", "events.consumer_worker",
					"layer", "adapter",
					"operation", "dispatch",
					"outcome", "retry",
					"event_type", eventType,
					"held_back", len(msgs)-i,
					"error", err,
				)
				return msgs[i:], nil
			}
			w.logger.WarnContext(ctx, "event rejected",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "dispatch",
				"outcome", "rejected",
				"event_type", eventType,
				"error", err,
			)
		}
		if err := w.consumer.Commit(ctx, msg); err != nil {
			return msgs[i+1:], err
		}
	}
	return nil, nil
}

func (w *ConsumerWorker) dispatch(ctx context.Context, eventType string, msg Message) error {
	handle, ok := w.routes[eventType]
	if !ok {
		w.logger.DebugContext(ctx, "ignoring unrouted event",
			"module", "events.consumer_worker",
			"layer", "adapter",
			"operation", "dispatch",
			"outcome", "skipped",
			"topic", msg.Topic,
			"event_type", eventType,
		)
		return nil
	}
	return handle(ctx, msg.Payload)
}

// retryable reports whether redelivering the event can succeed. Malformed
// events and events for unknown users never will.
func retryable(err error) bool {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict):
		return false
	default:
		return true
	}
}

// resolveEventType prefers the message header, then the topic mapping, then
// the envelope's own event_type field.
func (w *ConsumerWorker) resolveEventType(msg Message) string {
	if msg.EventType != "" {
		return msg.EventType
	}
	if mapped, ok := w.eventByTopic[msg.Topic]; ok && mapped != "" {
		return mapped
	}
	var envelope struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(msg.Payload, &envelope); err == nil && envelope.EventType != "" {
		return envelope.EventType
	}
	return msg.Topic
}
