package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kir/internal/common/events"
	"kir/internal/common/logging"
	"kir/internal/common/metrics"
	"kir/internal/kir/domain"
)

// EventPublisher hands record events to a broker. Publish must return only once
// every envelope has been acknowledged.
type EventPublisher interface {
	Publish(ctx context.Context, envelopes []events.EventEnvelope) error
}

// OutboxRelay moves record events from the outbox to the broker. Delivery is at
// least once: an event is marked published in the same transaction that fetched it,
// after the broker acknowledged it.
type OutboxRelay struct {
	dataStore domain.AtomicExecutor
	publisher EventPublisher
	batchSize int
	interval  time.Duration
	now       func() time.Time
}

// NewOutboxRelay creates a relay.
func NewOutboxRelay(dataStore domain.AtomicExecutor, publisher EventPublisher, batchSize int, interval time.Duration) (*OutboxRelay, error) {
	if dataStore == nil {
		return nil, errors.New("datastore is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &OutboxRelay{
		dataStore: dataStore,
		publisher: publisher,
		batchSize: batchSize,
		interval:  interval,
		now:       time.Now,
	}, nil
}

// PublishPending publishes one batch and returns how many events went out.
func (r *OutboxRelay) PublishPending(ctx context.Context) (int, error) {
	published := 0
	err := r.dataStore.Atomic(ctx, func(repos domain.Repositories) error {
		entries, err := repos.Outbox().FetchUnpublished(ctx, r.batchSize)
		if err != nil {
			return fmt.Errorf("fetch outbox: %w", err)
		}
		if len(entries) == 0 {
			metrics.RecordOutboxBacklog(0, 0)
			return nil
		}
		metrics.RecordOutboxBacklog(len(entries), r.now().Sub(entries[0].OccurredAt))

		envelopes := make([]events.EventEnvelope, 0, len(entries))
		ids := make([]events.EventID, 0, len(entries))
		for _, e := range entries {
			envelopes = append(envelopes, events.EventEnvelope{
				EventID:       e.ID,
				EventType:     e.EventType,
				AggregateID:   e.AggregateID,
				OccurredAt:    e.OccurredAt,
				CorrelationID: e.CorrelationID,
				Payload:       e.Payload,
			})
			ids = append(ids, e.ID)
		}

		if err := r.publisher.Publish(ctx, envelopes); err != nil {
			return fmt.Errorf("publish outbox batch: %w", err)
		}
		if err := repos.Outbox().MarkPublished(ctx, ids); err != nil {
			return fmt.Errorf("mark outbox published: %w", err)
		}
		for _, e := range entries {
			metrics.RecordOutboxPublished(e.EventType)
		}
		published = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, nil
}

// Run polls the outbox until ctx is done. Full batches are followed immediately by
// another poll.
func (r *OutboxRelay) Run(ctx context.Context) {
	logging.InfoContext(ctx, "outbox relay started", "interval", r.interval.String(), "batch_size", r.batchSize)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			logging.InfoContext(ctx, "outbox relay stopped")
			return
		case <-timer.C:
		}

		n, err := r.PublishPending(ctx)
		if err != nil && ctx.Err() == nil {
			logging.WarnContext(ctx, "outbox relay batch failed", "error", err)
		}
		next := r.interval
		if n == r.batchSize {
			next = 0
		}
		timer.Reset(next)
	}
}

// LogPublisher writes events to the log instead of a broker. Used when no broker
// is configured so the outbox still drains.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, envelopes []events.EventEnvelope) error {
	for _, env := range envelopes {
		logging.InfoContext(ctx, "record event",
			"event_id", env.EventID.String(),
			"event_type", env.EventType,
			"aggregate_id", env.AggregateID,
		)
	}
	return nil
}
