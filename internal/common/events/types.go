package events

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrEmptyID is returned when parsing an empty string as an ID.
var ErrEmptyID = errors.New("id cannot be empty")

// ErrInvalidUUID is returned when parsing an invalid UUID format.
var ErrInvalidUUID = errors.New("invalid uuid format")

// EventID identifies one outbox entry. Consumers of the record topic deduplicate on it.
//
// New ids are UUIDv7, so two events written in the same millisecond still sort in
// the order they were appended. The outbox uses this as its tie-break.
type EventID struct {
	value string
}

// ParseEventID accepts any UUID; ids written before the switch to v7 stay valid.
func ParseEventID(s string) (EventID, error) {
	if s == "" {
		return EventID{}, fmt.Errorf("event_id: %w", ErrEmptyID)
	}
	if _, err := uuid.Parse(s); err != nil {
		return EventID{}, fmt.Errorf("event_id: %w", ErrInvalidUUID)
	}
	return EventID{value: s}, nil
}

// NewEventID returns a time-ordered id.
func NewEventID() EventID {
	id, err := uuid.NewV7()
	if err != nil {
		// Only fails when the random source does; fall back to v4.
		return EventID{value: uuid.NewString()}
	}
	return EventID{value: id.String()}
}

func (e EventID) String() string {
	return e.value
}

func (e EventID) IsEmpty() bool {
	return e.value == ""
}

// MarshalText lets an EventID travel as a plain JSON string.
func (e EventID) MarshalText() ([]byte, error) {
	return []byte(e.value), nil
}

// UnmarshalText validates the id the same way ParseEventID does.
func (e *EventID) UnmarshalText(text []byte) error {
	id, err := ParseEventID(string(text))
	if err != nil {
		return err
	}
	*e = id
	return nil
}
