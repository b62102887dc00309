package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"kir/internal/kir/domain"
)

// MemberRepository implements domain.MemberStore using PostgreSQL.
type MemberRepository struct {
	db Executor
}

// NewMemberRepository creates a new MemberRepository.
func NewMemberRepository(db Executor) *MemberRepository {
	return &MemberRepository{db: db}
}

// ReplaceForRecord deletes the record's members and inserts the new set in one batch.
// Call it inside Atomic; on the bare pool a failure can leave the set half written.
func (r *MemberRepository) ReplaceForRecord(ctx context.Context, id domain.RecordID, members []domain.HouseholdMember) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM kir.household_members WHERE record_id = $1`, id.String())
	for _, m := range members {
		batch.Queue(`
			INSERT INTO kir.household_members (
				id, record_id, position, name, relationship, national_id
			) VALUES ($1, $2, $3, $4, $5, $6)`,
			m.ID.String(), id.String(), m.Position, m.Name, m.Relationship, m.NationalID,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("replace members (statement %d): %w", i, translate(err))
		}
	}
	return results.Close()
}

// ListByRecord returns members ordered by position.
func (r *MemberRepository) ListByRecord(ctx context.Context, id domain.RecordID) ([]domain.HouseholdMember, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, position, name, relationship, national_id
		FROM kir.household_members
		WHERE record_id = $1
		ORDER BY position`,
		id.String(),
	)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var members []domain.HouseholdMember
	for rows.Next() {
		var (
			memberID string
			m        domain.HouseholdMember
		)
		if err := rows.Scan(&memberID, &m.Position, &m.Name, &m.Relationship, &m.NationalID); err != nil {
			return nil, err
		}
		parsed, err := domain.ParseMemberID(memberID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid member id: %v", domain.ErrCorruptData, err)
		}
		m.ID = parsed
		m.RecordID = id
		members = append(members, m)
	}
	return members, rows.Err()
}

// Verify interface implementation.
var _ domain.MemberStore = (*MemberRepository)(nil)
