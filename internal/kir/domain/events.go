package domain

import "time"

// Event types written to the outbox and published on the record topic.
const (
	EventRecordCreated   = "kir.record.created"
	EventRecordUpdated   = "kir.record.updated"
	EventRecordSubmitted = "kir.record.submitted"
)

// RecordEvent is the payload of every record event. The national ID is masked.
type RecordEvent struct {
	RecordID    string    `json:"record_id"`
	NationalID  string    `json:"national_id"`
	Status      string    `json:"status"`
	Version     int       `json:"version"`
	MemberCount int       `json:"member_count,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewRecordEvent builds the payload for a record at its current version.
func NewRecordEvent(r *Record, memberCount int) RecordEvent {
	return RecordEvent{
		RecordID:    r.ID().String(),
		NationalID:  r.NaturalKey().Masked(),
		Status:      string(r.Status()),
		Version:     r.Version(),
		MemberCount: memberCount,
		OccurredAt:  r.UpdatedAt().UTC(),
	}
}
