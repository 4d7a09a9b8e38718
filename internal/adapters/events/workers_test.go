package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/application"
	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/carpoolnetwork/trust-service/internal/ports"
	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type recordingHandler struct {
	mu       sync.Mutex
	calls    []string
	fail     map[string]error
	failOnce map[string]error
}

func (h *recordingHandler) record(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, name)
	if err, ok := h.failOnce[name]; ok {
		delete(h.failOnce, name)
		return err
	}
	return h.fail[name]
}

func (h *recordingHandler) HandleUserRegistered(context.Context, []byte) error {
	return h.record(application.EventUserRegistered)
}

func (h *recordingHandler) HandleUserDeleted(context.Context, []byte) error {
	return h.record(application.EventUserDeleted)
}

func (h *recordingHandler) HandleVerificationUpdated(context.Context, []byte) error {
	return h.record(application.EventVerificationUpdated)
}

func (h *recordingHandler) HandleRideCompleted(context.Context, []byte) error {
	return h.record(application.EventRideCompleted)
}

func (h *recordingHandler) HandleReliabilityUpdated(context.Context, []byte) error {
	return h.record(application.EventReliabilityUpdated)
}

func (h *recordingHandler) HandleRestrictionApplied(context.Context, []byte) error {
	return h.record(application.EventRestrictionApplied)
}

type staticConsumer struct {
	msgs      []Message
	err       error
	committed []string
}

func (c *staticConsumer) Poll(context.Context, int) ([]Message, error) {
	return c.msgs, c.err
}

func (c *staticConsumer) Commit(_ context.Context, msgs ...Message) error {
	for _, m := range msgs {
		c.committed = append(c.committed, string(m.Payload))
	}
	return nil
}

// batchConsumer hands out one queued batch per poll.
type batchConsumer struct {
	batches   [][]Message
	committed []string
}

func (c *batchConsumer) Poll(context.Context, int) ([]Message, error) {
	if len(c.batches) == 0 {
		return nil, nil
	}
	next := c.batches[0]
	c.batches = c.batches[1:]
	return next, nil
}

func (c *batchConsumer) Commit(_ context.Context, msgs ...Message) error {
	for _, m := range msgs {
		c.committed = append(c.committed, string(m.Payload))
	}
	return nil
}

func TestConsumerWorkerRoutesByHeaderTopicAndEnvelope(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{fail: map[string]error{
		application.EventRideCompleted: fmt.Errorf("%w: invalid ride.completed payload", domain.ErrInvalidInput),
	}}
	consumer := &staticConsumer{msgs: []Message{
		{Topic: "anything", EventType: application.EventUserRegistered, Payload: []byte(`{}`)},
		{Topic: "carpool.rides.completed", Payload: []byte(`{}`)},
		{Topic: "shared-topic", Payload: []byte(`{"event_type":"reliability.updated"}`)},
		{Topic: application.EventUserDeleted, Payload: []byte(`not json`)},
		{Topic: "payments.captured", Payload: []byte(`{}`)},
	}}
	w := NewConsumerWorker(discardLogger(), consumer, handler, map[string]string{
		"carpool.rides.completed": application.EventRideCompleted,
	}, time.Second, 10)

	if err := w.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce: %v", err)
	}
	want := []string{
		application.EventUserRegistered,
		application.EventRideCompleted,
		application.EventReliabilityUpdated,
		application.EventUserDeleted,
	}
	if len(handler.calls) != len(want) {
		t.Fatalf("expected %d dispatched events, got %v", len(want), handler.calls)
	}
	for i := range want {
		if handler.calls[i] != want[i] {
			t.Fatalf("call %d: expected %s, got %s", i, want[i], handler.calls[i])
		}
	}
	if len(consumer.committed) != len(consumer.msgs) {
		t.Fatalf("expected every settled message committed, got %d of %d", len(consumer.committed), len(consumer.msgs))
	}
}

func TestConsumerWorkerRetriesTransientFailureBeforeCommitting(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{failOnce: map[string]error{
		application.EventRideCompleted: fmt.Errorf("%w: connection reset", domain.ErrStorageUnavailable),
	}}
	consumer := &batchConsumer{batches: [][]Message{{
		{EventType: application.EventRideCompleted, Payload: []byte(`ride-1`)},
		{EventType: application.EventReliabilityUpdated, Payload: []byte(`reliability-1`)},
	}}}
	w := NewConsumerWorker(discardLogger(), consumer, handler, nil, time.Second, 10)
	ctx := context.Background()

	if err := w.processOnce(ctx); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if len(consumer.committed) != 0 {
		t.Fatalf("nothing may be committed past a failed event, got %v", consumer.committed)
	}
	if len(handler.calls) != 1 {
		t.Fatalf("later events must wait behind the failed one, got %v", handler.calls)
	}

	if err := w.processOnce(ctx); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	wantCalls := []string{application.EventRideCompleted, application.EventRideCompleted, application.EventReliabilityUpdated}
	if len(handler.calls) != len(wantCalls) {
		t.Fatalf("expected %v, got %v", wantCalls, handler.calls)
	}
	for i := range wantCalls {
		if handler.calls[i] != wantCalls[i] {
			t.Fatalf("call %d: expected %s, got %s", i, wantCalls[i], handler.calls[i])
		}
	}
	if len(consumer.committed) != 2 || consumer.committed[0] != "ride-1" || consumer.committed[1] != "reliability-1" {
		t.Fatalf("expected both events committed in order, got %v", consumer.committed)
	}
	if len(w.pending) != 0 {
		t.Fatalf("expected no held back events, got %d", len(w.pending))
	}
}

func TestRetryableClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("%w: bad payload", domain.ErrInvalidInput), false},
		{domain.ErrNotFound, false},
		{fmt.Errorf("%w: duplicate", domain.ErrConflict), false},
		{fmt.Errorf("%w: timeout", domain.ErrStorageUnavailable), true},
		{context.DeadlineExceeded, true},
	}
	for _, tc := range cases {
		if got := retryable(tc.err); got != tc.want {
			t.Fatalf("retryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestConsumerWorkerDispatchesPartialBatchBeforeReturningPollError(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{}
	consumer := &staticConsumer{
		msgs: []Message{{EventType: application.EventRestrictionApplied, Payload: []byte(`{}`)}},
		err:  errors.New("broker gone"),
	}
	w := NewConsumerWorker(discardLogger(), consumer, handler, nil, time.Second, 10)

	if err := w.processOnce(context.Background()); err == nil {
		t.Fatal("expected poll error to surface")
	}
	if len(handler.calls) != 1 || handler.calls[0] != application.EventRestrictionApplied {
		t.Fatalf("expected the polled message to be handled, got %v", handler.calls)
	}
}

func TestConsumedEventTypesCoversRoutes(t *testing.T) {
	t.Parallel()

	w := NewConsumerWorker(nil, NewNoopConsumer(), &recordingHandler{}, nil, 0, 0)
	for _, eventType := range ConsumedEventTypes() {
		if _, ok := w.routes[eventType]; !ok {
			t.Fatalf("event type %s has no route", eventType)
		}
	}
	if len(w.routes) != len(ConsumedEventTypes()) {
		t.Fatalf("routes and consumed types diverged")
	}
}

type memoryOutbox struct {
	mu        sync.Mutex
	records   []ports.OutboxRecord
	published map[uuid.UUID]time.Time
	failed    map[uuid.UUID]string
}

func (m *memoryOutbox) Enqueue(context.Context, ports.OutboxEvent) error { return nil }

func (m *memoryOutbox) FetchUnpublished(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit < len(m.records) {
		return m.records[:limit], nil
	}
	return m.records, nil
}

func (m *memoryOutbox) MarkPublished(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[id] = at
	return nil
}

func (m *memoryOutbox) MarkFailed(_ context.Context, id uuid.UUID, errMsg string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[id] = errMsg
	return nil
}

type selectivePublisher struct {
	rejectType string
	sent       []string
}

func (p *selectivePublisher) Publish(_ context.Context, eventType string, _ []byte, _ string) error {
	if eventType == p.rejectType {
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, eventType)
	return nil
}

func TestOutboxWorkerMarksPublishedAndFailed(t *testing.T) {
	t.Parallel()

	ok := uuid.New()
	bad := uuid.New()
	outbox := &memoryOutbox{
		records: []ports.OutboxRecord{
			{OutboxID: ok, EventType: "trust.score_updated", PartitionKey: "u1", Payload: []byte(`{}`)},
			{OutboxID: bad, EventType: "trust.document_reviewed", PartitionKey: "u2", Payload: []byte(`{}`)},
		},
		published: map[uuid.UUID]time.Time{},
		failed:    map[uuid.UUID]string{},
	}
	pub := &selectivePublisher{rejectType: "trust.document_reviewed"}
	w := NewOutboxWorker(discardLogger(), outbox, pub, time.Second, 10)
	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	w.nowFn = func() time.Time { return fixed }

	if err := w.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce: %v", err)
	}
	if at, done := outbox.published[ok]; !done || !at.Equal(fixed) {
		t.Fatalf("expected %s published at %s, got %v", ok, fixed, outbox.published)
	}
	if msg := outbox.failed[bad]; msg != "broker unavailable" {
		t.Fatalf("expected failure recorded for %s, got %q", bad, msg)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("expected one delivered event, got %v", pub.sent)
	}
}

func TestOutboxWorkerHoldsBackLaterEventsForFailedKey(t *testing.T) {
	t.Parallel()

	first := uuid.New()
	second := uuid.New()
	other := uuid.New()
	outbox := &memoryOutbox{
		records: []ports.OutboxRecord{
			{OutboxID: first, EventType: "trust.document_reviewed", PartitionKey: "u1", Payload: []byte(`{}`)},
			{OutboxID: second, EventType: "trust.score_updated", PartitionKey: "u1", Payload: []byte(`{}`)},
			{OutboxID: other, EventType: "trust.score_updated", PartitionKey: "u2", Payload: []byte(`{}`)},
		},
		published: map[uuid.UUID]time.Time{},
		failed:    map[uuid.UUID]string{},
	}
	pub := &selectivePublisher{rejectType: "trust.document_reviewed"}
	w := NewOutboxWorker(discardLogger(), outbox, pub, time.Second, 10)

	if err := w.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce: %v", err)
	}
	if _, done := outbox.published[second]; done {
		t.Fatal("score update for u1 must wait behind the failed event")
	}
	if _, marked := outbox.failed[second]; marked {
		t.Fatal("deferred event must not count as a failed attempt")
	}
	if _, done := outbox.published[other]; !done {
		t.Fatal("events for other users keep flowing")
	}
}

func TestKafkaPublisherTopicMapping(t *testing.T) {
	t.Parallel()

	if _, err := NewKafkaPublisher(nil, nil); err == nil {
		t.Fatal("expected error without brokers")
	}
	p, err := NewKafkaPublisher([]string{"localhost:9092"}, map[string]string{
		"trust.score_updated": "carpool.trust.score-updated",
	})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer p.Close()
	if got := p.TopicFor("trust.score_updated"); got != "carpool.trust.score-updated" {
		t.Fatalf("unexpected mapped topic %s", got)
	}
	if got := p.TopicFor("trust.document_submitted"); got != "trust.document_submitted" {
		t.Fatalf("unexpected default topic %s", got)
	}
}

func TestKafkaConsumerRequiresConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewKafkaConsumer(nil, "g", []string{"t"}); err == nil {
		t.Fatal("expected error without brokers")
	}
	if _, err := NewKafkaConsumer([]string{"b"}, "", []string{"t"}); err == nil {
		t.Fatal("expected error without group")
	}
	if _, err := NewKafkaConsumer([]string{"b"}, "g", nil); err == nil {
		t.Fatal("expected error without topics")
	}
}
