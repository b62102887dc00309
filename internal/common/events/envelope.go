package events

import (
	"encoding/json"
	"fmt"
	"time"

	vo "kir/internal/common/value_objects"
)

// EventEnvelope wraps all domain events with standard metadata.
// This is the canonical structure written to the outbox and published to Kafka.
type EventEnvelope struct {
	EventID       EventID          `json:"event_id"`
	EventType     string           `json:"event_type"`
	AggregateID   string           `json:"aggregate_id"`
	OccurredAt    time.Time        `json:"occurred_at"`
	CorrelationID vo.CorrelationID `json:"correlation_id"`
	Payload       json.RawMessage  `json:"payload"`
}

// NewEventEnvelope creates a new event envelope with generated ID and timestamp.
func NewEventEnvelope(
	eventType string,
	aggregateID string,
	correlationID vo.CorrelationID,
	occurredAt time.Time,
	payload any,
) (EventEnvelope, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	return EventEnvelope{
		EventID:       NewEventID(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt.UTC(),
		CorrelationID: correlationID,
		Payload:       payloadBytes,
	}, nil
}

// UnmarshalPayload decodes the payload into the target struct.
func (e EventEnvelope) UnmarshalPayload(target any) error {
	return json.Unmarshal(e.Payload, target)
}

// eventEnvelopeJSON is an internal type for JSON marshaling/unmarshaling.
type eventEnvelopeJSON struct {
	EventID       EventID         `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// MarshalJSON implements json.Marshaler for EventEnvelope.
func (e EventEnvelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventEnvelopeJSON{
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateID:   e.AggregateID,
		OccurredAt:    e.OccurredAt,
		CorrelationID: e.CorrelationID.String(),
		Payload:       e.Payload,
	})
}

// UnmarshalJSON implements json.Unmarshaler for EventEnvelope.
// A missing correlation id is allowed; background writers have none.
func (e *EventEnvelope) UnmarshalJSON(data []byte) error {
	// EventID validates itself through UnmarshalText.
	var j eventEnvelopeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	if j.EventID.IsEmpty() {
		return fmt.Errorf("event_id: %w", ErrEmptyID)
	}

	var correlationID vo.CorrelationID
	if j.CorrelationID != "" {
		var err error
		correlationID, err = vo.ParseCorrelationID(j.CorrelationID)
		if err != nil {
			return err
		}
	}

	e.EventID = j.EventID
	e.EventType = j.EventType
	e.AggregateID = j.AggregateID
	e.OccurredAt = j.OccurredAt
	e.CorrelationID = correlationID
	e.Payload = j.Payload
	return nil
}
