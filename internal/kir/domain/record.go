package domain

import (
	"fmt"
	"time"
)

// RecordStatus is the lifecycle tag of a KIR record.
type RecordStatus string

const (
	RecordStatusDraft     RecordStatus = "draft"
	RecordStatusSubmitted RecordStatus = "submitted"
)

// ParseRecordStatus validates a stored or requested status.
func ParseRecordStatus(s string) (RecordStatus, error) {
	switch RecordStatus(s) {
	case RecordStatusDraft, RecordStatusSubmitted:
		return RecordStatus(s), nil
	default:
		return "", fmt.Errorf("record status %q: %w", s, ErrCorruptData)
	}
}

// Record is the head-of-household record aggregate. The repository, not the draft,
// is the source of truth once a record exists.
type Record struct {
	id         RecordID
	naturalKey NaturalKey
	status     RecordStatus
	fields     Fields
	version    int
	createdAt  time.Time
	updatedAt  time.Time
}

// NewRecord creates a draft record at version 1.
func NewRecord(key NaturalKey, fields Fields, now time.Time) *Record {
	return &Record{
		id:         NewRecordID(),
		naturalKey: key,
		status:     RecordStatusDraft,
		fields:     fields.Clone(),
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}
}

// ReconstructRecord rebuilds a Record from persisted state.
// It bypasses business validation since the data is assumed valid from storage.
func ReconstructRecord(
	id RecordID,
	key NaturalKey,
	status RecordStatus,
	fields Fields,
	version int,
	createdAt, updatedAt time.Time,
) *Record {
	return &Record{
		id:         id,
		naturalKey: key,
		status:     status,
		fields:     fields,
		version:    version,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

func (r *Record) ID() RecordID { return r.id }

func (r *Record) NaturalKey() NaturalKey { return r.naturalKey }

func (r *Record) Status() RecordStatus { return r.status }

// Fields returns a copy of the stored field set.
func (r *Record) Fields() Fields { return r.fields.Clone() }

func (r *Record) Version() int { return r.version }

func (r *Record) CreatedAt() time.Time { return r.createdAt }

func (r *Record) UpdatedAt() time.Time { return r.updatedAt }

// Revise replaces the field set and status and bumps the version.
// The natural key never changes, whatever the national_id field now says.
func (r *Record) Revise(status RecordStatus, fields Fields, now time.Time) {
	r.status = status
	r.fields = fields.Clone()
	r.version++
	r.updatedAt = now
}
