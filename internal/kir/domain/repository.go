package domain

import (
	"context"
	"time"

	"kir/internal/common/events"
	vo "kir/internal/common/value_objects"
)

// RecordStore persists Record aggregates.
type RecordStore interface {
	// Save persists a record.
	// Implementations return ErrOptimisticLock if a version conflict is detected.
	Save(ctx context.Context, record *Record) error
	// FindByID returns ErrRecordNotFound when no record exists.
	FindByID(ctx context.Context, id RecordID) (*Record, error)
}

// NaturalKeyEntry maps a national ID to the record that owns it.
type NaturalKeyEntry struct {
	Key       NaturalKey
	RecordID  RecordID
	CreatedAt time.Time
}

// NaturalKeyIndex is the uniqueness index: one record per national ID.
type NaturalKeyIndex interface {
	// Get returns (nil, nil) when no entry exists.
	Get(ctx context.Context, key NaturalKey) (*NaturalKeyEntry, error)
	// SetIfAbsent atomically stores an entry if no entry exists.
	// Returns (true, entry, nil) if created, (false, existing, nil) if already exists.
	SetIfAbsent(ctx context.Context, entry *NaturalKeyEntry) (created bool, existing *NaturalKeyEntry, err error)
}

// MemberStore persists household members expanded from a record.
type MemberStore interface {
	// ReplaceForRecord swaps the member set of a record in one step.
	ReplaceForRecord(ctx context.Context, id RecordID, members []HouseholdMember) error
	// ListByRecord returns members ordered by position.
	ListByRecord(ctx context.Context, id RecordID) ([]HouseholdMember, error)
}

// Repositories provides access to all repositories within a transaction.
// This is used with the Atomic pattern to ensure all operations share the same transaction.
type Repositories interface {
	Records() RecordStore
	NaturalKeys() NaturalKeyIndex
	Members() MemberStore
	Outbox() OutboxRepository
}

// AtomicCallback is the function signature for atomic operations.
// Any error returned will cause the transaction to be rolled back.
type AtomicCallback func(repos Repositories) error

// AtomicExecutor runs a callback as one unit of work. Commits and rollbacks are
// left to the implementation.
//
// Example usage:
//
//	err := executor.Atomic(ctx, func(repos Repositories) error {
//	    created, existing, err := repos.NaturalKeys().SetIfAbsent(ctx, entry)
//	    if err != nil {
//	        return err
//	    }
//	    if !created {
//	        return &ConflictError{NaturalKey: entry.Key, ExistingID: existing.RecordID}
//	    }
//	    return repos.Records().Save(ctx, record)
//	})
type AtomicExecutor interface {
	// Atomic executes the callback within a database transaction.
	// If the callback returns nil, the transaction is committed.
	// If the callback returns an error, the transaction is rolled back.
	Atomic(ctx context.Context, fn AtomicCallback) error
}

// OutboxEntry represents a domain event waiting to be published.
type OutboxEntry struct {
	ID            events.EventID
	EventType     string
	AggregateID   string
	CorrelationID vo.CorrelationID
	Payload       []byte
	OccurredAt    time.Time
	PublishedAt   *time.Time
}

// OutboxRepository defines the interface for the outbox pattern.
// Events are written to the outbox within the same transaction as the domain changes,
// then published asynchronously by a separate process.
type OutboxRepository interface {
	// Append adds an event to the outbox.
	Append(ctx context.Context, entry *OutboxEntry) error
	// FetchUnpublished retrieves unpublished events, oldest first.
	FetchUnpublished(ctx context.Context, limit int) ([]*OutboxEntry, error)
	// MarkPublished marks events as published.
	MarkPublished(ctx context.Context, ids []events.EventID) error
}
