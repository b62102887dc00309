package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"kir/internal/kir/domain"
)

// NaturalKeyIndex implements domain.NaturalKeyIndex on kir.natural_keys.
// The primary key on national_id is what makes record creation unique.
type NaturalKeyIndex struct {
	db Executor
}

// NewNaturalKeyIndex creates a new NaturalKeyIndex.
func NewNaturalKeyIndex(db Executor) *NaturalKeyIndex {
	return &NaturalKeyIndex{db: db}
}

// Get returns (nil, nil) when the national ID is unclaimed.
func (idx *NaturalKeyIndex) Get(ctx context.Context, key domain.NaturalKey) (*domain.NaturalKeyEntry, error) {
	var (
		recordID  string
		createdAt time.Time
	)
	err := idx.db.QueryRow(ctx, `
		SELECT record_id, created_at
		FROM kir.natural_keys
		WHERE national_id = $1`,
		key.String(),
	).Scan(&recordID, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return entry(key, recordID, createdAt)
}

// SetIfAbsent claims the national ID for entry.RecordID.
// It uses a CTE to attempt the insert and return the existing row in one round-trip.
// When a concurrent claim commits while the insert waits, the CTE's snapshot cannot
// see the winner, so the row is read again in a fresh statement.
func (idx *NaturalKeyIndex) SetIfAbsent(ctx context.Context, e *domain.NaturalKeyEntry) (bool, *domain.NaturalKeyEntry, error) {
	var (
		recordID  string
		createdAt time.Time
		inserted  bool
	)
	err := idx.db.QueryRow(ctx, `
		WITH ins AS (
			INSERT INTO kir.natural_keys (national_id, record_id, created_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (national_id) DO NOTHING
			RETURNING record_id, created_at
		)
		SELECT record_id, created_at, TRUE FROM ins
		UNION ALL
		SELECT record_id, created_at, FALSE FROM kir.natural_keys
		WHERE national_id = $1 AND NOT EXISTS (SELECT 1 FROM ins)`,
		e.Key.String(), e.RecordID.String(), e.CreatedAt,
	).Scan(&recordID, &createdAt, &inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := idx.Get(ctx, e.Key)
		if getErr != nil {
			return false, nil, getErr
		}
		if existing == nil {
			return false, nil, fmt.Errorf("natural key %s vanished after conflict: %w", e.Key.Masked(), domain.ErrUnavailable)
		}
		return false, existing, nil
	}
	if err != nil {
		return false, nil, translate(err)
	}

	stored, err := entry(e.Key, recordID, createdAt)
	if err != nil {
		return false, nil, err
	}
	return inserted, stored, nil
}

func entry(key domain.NaturalKey, recordID string, createdAt time.Time) (*domain.NaturalKeyEntry, error) {
	id, err := domain.ParseRecordID(recordID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid record_id: %v", domain.ErrCorruptData, err)
	}
	return &domain.NaturalKeyEntry{Key: key, RecordID: id, CreatedAt: createdAt}, nil
}

// Verify interface implementation.
var _ domain.NaturalKeyIndex = (*NaturalKeyIndex)(nil)
