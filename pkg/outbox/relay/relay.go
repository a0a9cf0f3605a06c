// Package relay moves committed outbox rows onto Pub/Sub.
//
// Rows are claimed in batches inside one transaction. Each row is either
// published, scheduled for another attempt or buried in the dead letter table.
// Events of one aggregate share a Pub/Sub ordering key, and a failed event
// holds back the rest of its aggregate until the next pass.
package relay

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	sendTimeout        = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Store is the outbox table as seen by the relay.
type Store interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type Graveyard interface {
	Bury(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error
}

type Resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// Sink sends one message and waits for the server acknowledgement.
type Sink interface {
	Send(ctx context.Context, topic string, msg *gcppubsub.Message) (string, error)
}

type Params struct {
	Config    config.OutboxConfig
	Logger    *logger.Logger
	Tx        Transactor
	Store     Store
	Graveyard Graveyard
	Resolver  Resolver
	Sink      Sink
	Metrics   *metrics.RelayMetrics
	// Checks run once before the first pass; any failure aborts Run.
	Checks map[string]func(context.Context) error
}

type Relay struct {
	logg        *logger.Logger
	tx          Transactor
	store       Store
	graveyard   Graveyard
	resolver    Resolver
	sink        Sink
	metrics     *metrics.RelayMetrics
	checks      map[string]func(context.Context) error
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

// Stats summarises one pass over the outbox.
type Stats struct {
	Claimed      int
	Published    int
	Retried      int
	DeadLettered int
	// Held counts rows skipped because an earlier event of the same
	// aggregate failed during the pass.
	Held int
}

func New(p Params) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.Tx == nil:
		return nil, errors.New("transactor is required")
	case p.Store == nil:
		return nil, errors.New("outbox store is required")
	case p.Graveyard == nil:
		return nil, errors.New("dead letter store is required")
	case p.Resolver == nil:
		return nil, errors.New("event resolver is required")
	case p.Sink == nil:
		return nil, errors.New("sink is required")
	}

	r := &Relay{
		logg:        p.Logger,
		tx:          p.Tx,
		store:       p.Store,
		graveyard:   p.Graveyard,
		resolver:    p.Resolver,
		sink:        p.Sink,
		metrics:     p.Metrics,
		checks:      p.Checks,
		batchSize:   p.Config.BatchSize,
		maxAttempts: p.Config.MaxAttempts,
		poll:        time.Duration(p.Config.PollIntervalMS) * time.Millisecond,
	}
	if r.batchSize <= 0 {
		r.batchSize = defaultBatchSize
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = defaultMaxAttempts
	}
	if r.poll <= 0 {
		r.poll = defaultPoll
	}
	return r, nil
}

// Run drains the outbox until ctx is cancelled. Full batches are followed
// immediately by another pass; otherwise the relay sleeps for the poll
// interval, or for an exponential backoff after a failed pass.
func (r *Relay) Run(ctx context.Context) error {
	for name, check := range r.checks {
		if err := check(ctx); err != nil {
			r.logg.Error(ctx, name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		stats, err := r.Drain(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			failures++
			wait = backoff(r.poll, failures)
			fctx := r.logg.WithFields(ctx, map[string]any{
				"consecutive_failures": failures,
				"retry_in":             wait.String(),
			})
			r.logg.Error(fctx, "outbox pass failed", err)
		case stats.Claimed == r.batchSize && stats.Retried == 0:
			failures = 0
			continue
		default:
			failures = 0
			wait = r.poll + jitter()
		}

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Drain runs a single pass: claim a batch, deliver each row and record the
// result, all inside one transaction.
func (r *Relay) Drain(ctx context.Context) (Stats, error) {
	var stats Stats
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		stats = Stats{}
		rows, err := r.store.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		stats.Claimed = len(rows)

		blocked := make(map[uuid.UUID]struct{})
		for _, row := range rows {
			if _, held := blocked[row.AggregateID]; held {
				stats.Held++
				continue
			}
			topic, sendErr := r.deliver(ctx, row)
			result, err := r.settle(ctx, tx, row, topic, sendErr)
			if err != nil {
				return err
			}
			switch result {
			case metrics.DeliveryPublished:
				stats.Published++
			case metrics.DeliveryRetried:
				stats.Retried++
				blocked[row.AggregateID] = struct{}{}
			case metrics.DeliveryDeadLettered:
				stats.DeadLettered++
			}
		}
		return nil
	})
	return stats, err
}

func (r *Relay) deliver(ctx context.Context, row models.OutboxEvent) (string, error) {
	resolved, err := r.resolver.Resolve(row)
	if err != nil {
		return "", err
	}
	topic := resolved.Descriptor.Topic

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	_, err = r.sink.Send(sendCtx, topic, message(row, resolved))
	return topic, err
}

// settle writes the delivery result back to the outbox and reports which
// result applied.
func (r *Relay) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, topic string, sendErr error) (string, error) {
	fields := rowFields(row, topic)

	if sendErr == nil {
		if err := r.store.MarkPublishedTx(tx, row.ID); err != nil {
			return "", fmt.Errorf("mark %s published: %w", row.ID, err)
		}
		r.metrics.ObserveDelivery(string(row.EventType), metrics.DeliveryPublished, row.CreatedAt)
		r.logg.Info(r.logg.WithFields(ctx, fields), "event published")
		return metrics.DeliveryPublished, nil
	}

	reason, terminal := r.classify(row, sendErr)
	fields["error"] = sendErr.Error()
	fields["attempt"] = row.AttemptCount + 1

	if !terminal {
		if err := r.store.MarkFailedTx(tx, row.ID, sendErr); err != nil {
			return "", fmt.Errorf("record failed attempt for %s: %w", row.ID, err)
		}
		r.metrics.ObserveDelivery(string(row.EventType), metrics.DeliveryRetried, row.CreatedAt)
		r.logg.Warn(r.logg.WithFields(ctx, fields), "event publish failed, will retry")
		return metrics.DeliveryRetried, nil
	}

	fields["dead_letter_reason"] = string(reason)
	if err := r.graveyard.Bury(tx, row, reason, sendErr); err != nil {
		return "", fmt.Errorf("dead letter %s: %w", row.ID, err)
	}
	if err := r.store.MarkTerminalTx(tx, row.ID, sendErr, r.maxAttempts); err != nil {
		return "", fmt.Errorf("retire %s: %w", row.ID, err)
	}
	r.metrics.ObserveDelivery(string(row.EventType), metrics.DeliveryDeadLettered, row.CreatedAt)
	r.logg.Warn(r.logg.WithFields(ctx, fields), "event moved to dead letters")
	return metrics.DeliveryDeadLettered, nil
}

func (r *Relay) classify(row models.OutboxEvent, err error) (enums.OutboxDLQErrorReason, bool) {
	if registry.IsNonRetryable(err) {
		return enums.OutboxDLQReasonNonRetryable, true
	}
	if row.AttemptCount+1 >= r.maxAttempts {
		return enums.OutboxDLQReasonMaxAttempts, true
	}
	return "", false
}

func message(row models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        row.Payload,
		OrderingKey: OrderingKey(row),
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

// OrderingKey groups the events of one order (or cart) on the topic.
func OrderingKey(row models.OutboxEvent) string {
	return string(row.AggregateType) + ":" + row.AggregateID.String()
}

func rowFields(row models.OutboxEvent, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
	}
	if topic != "" {
		fields["topic"] = topic
	}
	return fields
}

func backoff(base time.Duration, failures int) time.Duration {
	d := base
	for i := 0; i < failures && d < maxBackoff; i++ {
		d *= 2
	}
	return min(d, maxBackoff) + jitter()
}

func jitter() time.Duration {
	return rand.N(jitterWindow)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
