package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"kir/internal/common/metrics"
	"kir/internal/kir/domain"
)

// RecordRepository implements domain.RecordStore using PostgreSQL.
// The wizard field set is stored as one JSONB document.
type RecordRepository struct {
	db Executor
}

// NewRecordRepository creates a new RecordRepository.
func NewRecordRepository(db Executor) *RecordRepository {
	return &RecordRepository{db: db}
}

// Save inserts a version 1 record or updates one whose stored version is one behind.
// Uses optimistic locking via the version column.
func (r *RecordRepository) Save(ctx context.Context, record *domain.Record) error {
	fields, err := json.Marshal(record.Fields())
	if err != nil {
		return fmt.Errorf("encode record fields: %w", err)
	}

	if record.Version() == 1 {
		_, err = r.db.Exec(ctx, `
			INSERT INTO kir.records (
				id, national_id, status, fields, version, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			record.ID().String(),
			record.NaturalKey().String(),
			string(record.Status()),
			fields,
			record.Version(),
			record.CreatedAt(),
			record.UpdatedAt(),
		)
		if errors.Is(translate(err), domain.ErrConflict) {
			metrics.RecordOptimisticLockConflict("records")
			return domain.ErrOptimisticLock
		}
		return translate(err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE kir.records
		SET status = $1,
			fields = $2,
			version = $3,
			updated_at = $4
		WHERE id = $5 AND version = $6`,
		string(record.Status()),
		fields,
		record.Version(),
		record.UpdatedAt(),
		record.ID().String(),
		record.Version()-1,
	)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		metrics.RecordOptimisticLockConflict("records")
		return domain.ErrOptimisticLock
	}
	return nil
}

// FindByID retrieves a record by ID.
func (r *RecordRepository) FindByID(ctx context.Context, id domain.RecordID) (*domain.Record, error) {
	var (
		recordID   string
		nationalID string
		status     string
		rawFields  []byte
		version    int
		createdAt  time.Time
		updatedAt  time.Time
	)

	err := r.db.QueryRow(ctx, `
		SELECT id, national_id, status, fields, version, created_at, updated_at
		FROM kir.records
		WHERE id = $1`,
		id.String(),
	).Scan(&recordID, &nationalID, &status, &rawFields, &version, &createdAt, &updatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, translate(err)
	}

	parsedID, err := domain.ParseRecordID(recordID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id: %v", domain.ErrCorruptData, err)
	}
	key, err := domain.NormalizeNaturalKey(nationalID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid national_id: %v", domain.ErrCorruptData, err)
	}
	parsedStatus, err := domain.ParseRecordStatus(status)
	if err != nil {
		return nil, err
	}
	fields := domain.Fields{}
	if err := json.Unmarshal(rawFields, &fields); err != nil {
		return nil, fmt.Errorf("%w: invalid fields: %v", domain.ErrCorruptData, err)
	}

	return domain.ReconstructRecord(parsedID, key, parsedStatus, fields, version, createdAt, updatedAt), nil
}

// Verify interface implementation.
var _ domain.RecordStore = (*RecordRepository)(nil)
