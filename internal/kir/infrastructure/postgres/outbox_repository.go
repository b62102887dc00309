package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"kir/internal/common/events"
	vo "kir/internal/common/value_objects"
	"kir/internal/kir/domain"
)

// OutboxRepository implements domain.OutboxRepository using PostgreSQL.
//
// Events are written to the outbox within the same transaction as record changes,
// then published asynchronously by the outbox relay.
type OutboxRepository struct {
	db  Executor
	now func() time.Time
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(db Executor) *OutboxRepository {
	return &OutboxRepository{db: db, now: time.Now}
}

// Append adds an event to the outbox as part of the current transaction.
func (r *OutboxRepository) Append(ctx context.Context, entry *domain.OutboxEntry) error {
	correlation := pgtype.Text{String: entry.CorrelationID.String(), Valid: !entry.CorrelationID.IsEmpty()}
	_, err := r.db.Exec(ctx, `
		INSERT INTO kir.outbox (
			event_id, event_type, aggregate_id, correlation_id, payload, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID.String(),
		entry.EventType,
		entry.AggregateID,
		correlation,
		entry.Payload,
		entry.OccurredAt,
	)
	return translate(err)
}

// FetchUnpublished retrieves unpublished events for publishing.
// It locks rows with FOR UPDATE SKIP LOCKED to support concurrent relays,
// ordering by occurred_at and then by the time-ordered event id.
func (r *OutboxRepository) FetchUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT event_id, event_type, aggregate_id, correlation_id, payload, occurred_at, published_at
		FROM kir.outbox
		WHERE published_at IS NULL
		ORDER BY occurred_at, event_id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var entries []*domain.OutboxEntry
	for rows.Next() {
		var (
			eventID     string
			correlation pgtype.Text
			publishedAt pgtype.Timestamptz
			e           domain.OutboxEntry
		)
		if err := rows.Scan(&eventID, &e.EventType, &e.AggregateID, &correlation, &e.Payload, &e.OccurredAt, &publishedAt); err != nil {
			return nil, err
		}
		id, err := events.ParseEventID(eventID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid event_id: %v", domain.ErrCorruptData, err)
		}
		e.ID = id
		if correlation.Valid {
			if cid, err := vo.ParseCorrelationID(correlation.String); err == nil {
				e.CorrelationID = cid
			}
		}
		if publishedAt.Valid {
			at := publishedAt.Time
			e.PublishedAt = &at
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// MarkPublished marks events as published.
// It is a no-op when the input list is empty.
func (r *OutboxRepository) MarkPublished(ctx context.Context, ids []events.EventID) error {
	if len(ids) == 0 {
		return nil
	}

	stringIDs := make([]string, len(ids))
	for i, id := range ids {
		stringIDs[i] = id.String()
	}

	_, err := r.db.Exec(ctx, `
		UPDATE kir.outbox SET published_at = $1 WHERE event_id = ANY($2)`,
		r.now(), stringIDs,
	)
	return translate(err)
}

// Verify interface implementation.
var _ domain.OutboxRepository = (*OutboxRepository)(nil)
