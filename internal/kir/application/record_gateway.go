package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kir/internal/common/events"
	"kir/internal/common/logging"
	"kir/internal/common/metrics"
	"kir/internal/kir/domain"
)

const maxOptimisticRetries = 3

// RecordGateway implements domain.RecordRepository on top of the Atomic datastore.
//
// Key design decisions:
//   - Create claims the natural key with SetIfAbsent in the same transaction that
//     inserts the record, so two sessions racing on one national ID cannot both win
//   - Every mutation appends a record event to the outbox in that transaction
//   - Optimistic lock conflicts on update are retried a bounded number of times
type RecordGateway struct {
	dataStore domain.AtomicExecutor
	repos     domain.Repositories
	now       func() time.Time
}

// NewRecordGateway creates a gateway.
// The dataStore must implement both AtomicExecutor and Repositories interfaces.
func NewRecordGateway(dataStore interface {
	domain.AtomicExecutor
	domain.Repositories
}, now func() time.Time) *RecordGateway {
	if now == nil {
		now = time.Now
	}
	return &RecordGateway{
		dataStore: dataStore,
		repos:     dataStore,
		now:       now,
	}
}

// FindIDByNaturalKey looks the key up in the uniqueness index.
func (g *RecordGateway) FindIDByNaturalKey(ctx context.Context, key domain.NaturalKey) (domain.RecordID, bool, error) {
	entry, err := g.repos.NaturalKeys().Get(ctx, key)
	if err != nil {
		return domain.RecordID{}, false, err
	}
	if entry == nil {
		return domain.RecordID{}, false, nil
	}
	return entry.RecordID, true, nil
}

// Create inserts a draft record and claims its natural key.
// This operation:
//   - Claims the key in the uniqueness index, failing with *ConflictError if taken
//   - Saves the record at version 1
//   - Writes a kir.record.created event to the outbox
//   - All within a single atomic transaction
func (g *RecordGateway) Create(ctx context.Context, key domain.NaturalKey, fields domain.Fields) (domain.RecordID, error) {
	if key.IsEmpty() {
		return domain.RecordID{}, domain.NewValidationError(0, domain.Violation{
			Field: domain.FieldNationalID, Label: "National ID", Message: "is required",
		})
	}
	var id domain.RecordID

	err := g.dataStore.Atomic(ctx, func(repos domain.Repositories) error {
		now := g.now()
		record := domain.NewRecord(key, fields, now)

		created, existing, err := repos.NaturalKeys().SetIfAbsent(ctx, &domain.NaturalKeyEntry{
			Key:       key,
			RecordID:  record.ID(),
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		if !created {
			conflict := &domain.ConflictError{NaturalKey: key}
			if existing != nil {
				conflict.ExistingID = existing.RecordID
			}
			return conflict
		}

		if err := repos.Records().Save(ctx, record); err != nil {
			return err
		}
		if err := appendRecordEvent(ctx, repos, domain.EventRecordCreated, record, 0); err != nil {
			return err
		}

		id = record.ID()
		return nil
	})
	if err != nil {
		return domain.RecordID{}, err
	}

	logging.InfoContext(ctx, "KIR record created",
		"record_id", id.String(),
		"national_id", key.Masked(),
	)
	return id, nil
}

// Update replaces the record's fields and status, retrying on version conflicts.
func (g *RecordGateway) Update(ctx context.Context, id domain.RecordID, status domain.RecordStatus, fields domain.Fields) error {
	eventType := domain.EventRecordUpdated
	memberCount := 0
	if status == domain.RecordStatusSubmitted {
		eventType = domain.EventRecordSubmitted
		memberCount = len(domain.MembersFromFields(id, fields))
	}

	var err error
	for attempt := 1; attempt <= maxOptimisticRetries; attempt++ {
		err = g.dataStore.Atomic(ctx, func(repos domain.Repositories) error {
			record, err := repos.Records().FindByID(ctx, id)
			if err != nil {
				return err
			}
			record.Revise(status, fields, g.now())
			if err := repos.Records().Save(ctx, record); err != nil {
				return err
			}
			return appendRecordEvent(ctx, repos, eventType, record, memberCount)
		})
		if !errors.Is(err, domain.ErrOptimisticLock) {
			break
		}
		metrics.RecordOptimisticLockConflict("records")
		logging.DebugContext(ctx, "record update hit version conflict, retrying",
			"record_id", id.String(), "attempt", attempt)
	}
	return err
}

// ExpandIntoRelatedRecords replaces the household member rows of a record.
func (g *RecordGateway) ExpandIntoRelatedRecords(ctx context.Context, id domain.RecordID, fields domain.Fields) error {
	members := domain.MembersFromFields(id, fields)
	return g.dataStore.Atomic(ctx, func(repos domain.Repositories) error {
		if _, err := repos.Records().FindByID(ctx, id); err != nil {
			return err
		}
		return repos.Members().ReplaceForRecord(ctx, id, members)
	})
}

// Get loads a record.
func (g *RecordGateway) Get(ctx context.Context, id domain.RecordID) (*domain.Record, error) {
	return g.repos.Records().FindByID(ctx, id)
}

// Members lists the expanded household members of a record.
func (g *RecordGateway) Members(ctx context.Context, id domain.RecordID) ([]domain.HouseholdMember, error) {
	return g.repos.Members().ListByRecord(ctx, id)
}

func appendRecordEvent(ctx context.Context, repos domain.Repositories, eventType string, record *domain.Record, memberCount int) error {
	payload, err := json.Marshal(domain.NewRecordEvent(record, memberCount))
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return repos.Outbox().Append(ctx, &domain.OutboxEntry{
		ID:            events.NewEventID(),
		EventType:     eventType,
		AggregateID:   record.ID().String(),
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		Payload:       payload,
		OccurredAt:    record.UpdatedAt(),
	})
}
