package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

func TestDrainRetriesFailedRowAndPublishesOthers(t *testing.T) {
	first := orderEvent(enums.EventOrderCreated, uuid.New(), 0)
	second := orderEvent(enums.EventOrderCreated, uuid.New(), 0)
	store := &memStore{rows: []models.OutboxEvent{first, second}}
	sink := &scriptedSink{errs: []error{errors.New("unavailable")}}
	r := newRelay(t, store, &memGraveyard{}, topicResolver{}, sink, config.OutboxConfig{BatchSize: 2})

	stats, err := r.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, Stats{Claimed: 2, Published: 1, Retried: 1}, stats)
	require.Equal(t, []uuid.UUID{first.ID}, store.failed)
	require.Equal(t, []uuid.UUID{second.ID}, store.published)
}

func TestDrainHoldsLaterEventsOfFailedOrder(t *testing.T) {
	orderID := uuid.New()
	created := orderEvent(enums.EventOrderCreated, orderID, 0)
	shipped := orderEvent(enums.EventOrderStatusChanged, orderID, 0)
	other := orderEvent(enums.EventOrderCreated, uuid.New(), 0)
	store := &memStore{rows: []models.OutboxEvent{created, shipped, other}}
	sink := &scriptedSink{errs: []error{errors.New("deadline exceeded")}}
	r := newRelay(t, store, &memGraveyard{}, topicResolver{}, sink, config.OutboxConfig{BatchSize: 10})

	stats, err := r.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Held)
	require.Len(t, sink.sent, 2)
	require.Equal(t, []uuid.UUID{other.ID}, store.published)
	require.Equal(t, []uuid.UUID{created.ID}, store.failed)
}

func TestDrainSetsAttributesAndOrderingKey(t *testing.T) {
	row := orderEvent(enums.EventOrderStatusChanged, uuid.New(), 0)
	sink := &scriptedSink{}
	r := newRelay(t, &memStore{rows: []models.OutboxEvent{row}}, &memGraveyard{}, topicResolver{}, sink, config.OutboxConfig{})

	_, err := r.Drain(context.Background())
	require.NoError(t, err)
	require.Len(t, sink.sent, 1)

	msg := sink.sent[0]
	require.Equal(t, "orders-topic", sink.topics[0])
	require.Equal(t, "order:"+row.AggregateID.String(), msg.OrderingKey)
	require.Equal(t, string(enums.EventOrderStatusChanged), msg.Attributes["event_type"])
	require.Equal(t, row.AggregateID.String(), msg.Attributes["aggregate_id"])
	require.Equal(t, "evt-"+row.ID.String(), msg.Attributes["event_id"])
	require.JSONEq(t, string(row.Payload), string(msg.Data))
}

func TestDrainBuriesUnresolvableRow(t *testing.T) {
	row := orderEvent(enums.EventOrderCreated, uuid.New(), 0)
	store := &memStore{rows: []models.OutboxEvent{row}}
	graveyard := &memGraveyard{}
	resolver := topicResolver{err: registry.NewNonRetryableError(errors.New("decode payload"))}
	sink := &scriptedSink{}
	r := newRelay(t, store, graveyard, resolver, sink, config.OutboxConfig{MaxAttempts: 4})

	stats, err := r.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.DeadLettered)
	require.Empty(t, sink.sent)
	require.Len(t, graveyard.buried, 1)
	require.Equal(t, row.ID, graveyard.buried[0].event.ID)
	require.Equal(t, enums.OutboxDLQReasonNonRetryable, graveyard.buried[0].reason)
	require.Equal(t, map[uuid.UUID]int{row.ID: 4}, store.terminal)
}

func TestDrainBuriesRowOnLastAttempt(t *testing.T) {
	row := orderEvent(enums.EventOrderPaymentStatusChanged, uuid.New(), 2)
	store := &memStore{rows: []models.OutboxEvent{row}}
	graveyard := &memGraveyard{}
	sink := &scriptedSink{errs: []error{errors.New("unavailable")}}
	r := newRelay(t, store, graveyard, topicResolver{}, sink, config.OutboxConfig{MaxAttempts: 3})

	stats, err := r.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.DeadLettered)
	require.Empty(t, store.failed)
	require.Len(t, graveyard.buried, 1)
	require.Equal(t, enums.OutboxDLQReasonMaxAttempts, graveyard.buried[0].reason)
}

func TestDrainPropagatesStoreFailure(t *testing.T) {
	store := &memStore{fetchErr: errors.New("connection reset")}
	r := newRelay(t, store, &memGraveyard{}, topicResolver{}, &scriptedSink{}, config.OutboxConfig{})

	_, err := r.Drain(context.Background())
	require.ErrorContains(t, err, "connection reset")
}

func TestRunAbortsWhenCheckFails(t *testing.T) {
	r, err := New(Params{
		Logger:    quietLogger(),
		Tx:        passthroughTx{},
		Store:     &memStore{},
		Graveyard: &memGraveyard{},
		Resolver:  topicResolver{},
		Sink:      &scriptedSink{},
		Checks: map[string]func(context.Context) error{
			"pubsub": func(context.Context) error { return errors.New("no credentials") },
		},
	})
	require.NoError(t, err)

	err = r.Run(context.Background())
	require.ErrorContains(t, err, "pubsub ping failed")
}

func TestRunStopsOnCancel(t *testing.T) {
	r := newRelay(t, &memStore{}, &memGraveyard{}, topicResolver{}, &scriptedSink{}, config.OutboxConfig{PollIntervalMS: 5})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, r.Run(ctx), context.DeadlineExceeded)
}

func TestBackoffIsCapped(t *testing.T) {
	require.GreaterOrEqual(t, backoff(500*time.Millisecond, 1), time.Second)
	require.Less(t, backoff(500*time.Millisecond, 1), time.Second+jitterWindow)
	require.GreaterOrEqual(t, backoff(500*time.Millisecond, 50), maxBackoff)
	require.Less(t, backoff(500*time.Millisecond, 50), maxBackoff+jitterWindow)
}

func TestPubSubSinkWithoutPublisherIsPermanent(t *testing.T) {
	_, err := PubSubSink{Topics: nilTopics{}}.Send(context.Background(), "orders-topic", &gcppubsub.Message{})
	var permanent registry.NonRetryableError
	require.ErrorAs(t, err, &permanent)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Logger: quietLogger()})
	require.Error(t, err)
}

func newRelay(t *testing.T, store Store, graveyard Graveyard, resolver Resolver, sink Sink, cfg config.OutboxConfig) *Relay {
	t.Helper()
	r, err := New(Params{
		Config:    cfg,
		Logger:    quietLogger(),
		Tx:        passthroughTx{},
		Store:     store,
		Graveyard: graveyard,
		Resolver:  resolver,
		Sink:      sink,
	})
	require.NoError(t, err)
	return r
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "relay-test", Output: io.Discard})
}

func orderEvent(eventType enums.OutboxEventType, orderID uuid.UUID, attempts int) models.OutboxEvent {
	id := uuid.New()
	payload, _ := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    "evt-" + id.String(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"orderId":"` + orderID.String() + `"}`),
	})
	return models.OutboxEvent{
		ID:            id,
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       payload,
		AttemptCount:  attempts,
		CreatedAt:     time.Now().Add(-time.Second),
	}
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type memStore struct {
	rows      []models.OutboxEvent
	fetchErr  error
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  map[uuid.UUID]int
}

func (m *memStore) FetchUnpublishedForPublish(_ *gorm.DB, limit, _ int) ([]models.OutboxEvent, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if len(m.rows) > limit {
		return m.rows[:limit], nil
	}
	return m.rows, nil
}

func (m *memStore) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	m.published = append(m.published, id)
	return nil
}

func (m *memStore) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	m.failed = append(m.failed, id)
	return nil
}

func (m *memStore) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, attempts int) error {
	if m.terminal == nil {
		m.terminal = make(map[uuid.UUID]int)
	}
	m.terminal[id] = attempts
	return nil
}

type burial struct {
	event  models.OutboxEvent
	reason enums.OutboxDLQErrorReason
}

type memGraveyard struct {
	buried []burial
}

func (m *memGraveyard) Bury(_ *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, _ error) error {
	m.buried = append(m.buried, burial{event: event, reason: reason})
	return nil
}

type topicResolver struct {
	err error
}

func (r topicResolver) Resolve(row models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if r.err != nil {
		return nil, r.err
	}
	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return nil, registry.NewNonRetryableError(err)
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{EventType: row.EventType, AggregateType: row.AggregateType, Topic: "orders-topic"},
		Envelope:   env,
	}, nil
}

// scriptedSink fails sends in order with errs, then succeeds.
type scriptedSink struct {
	errs   []error
	sent   []*gcppubsub.Message
	topics []string
}

func (s *scriptedSink) Send(_ context.Context, topic string, msg *gcppubsub.Message) (string, error) {
	s.sent = append(s.sent, msg)
	s.topics = append(s.topics, topic)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	return "server-id", nil
}

type nilTopics struct{}

func (nilTopics) Publisher(string) *gcppubsub.Publisher { return nil }
