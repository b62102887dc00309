package valueobjects

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrEmptyID is returned when parsing an empty string as an ID.
var ErrEmptyID = errors.New("id cannot be empty")

// ErrInvalidUUID is returned when parsing an invalid UUID format.
var ErrInvalidUUID = errors.New("invalid uuid format")

// ClientID identifies the browser or device that owns a wizard session and its draft.
// It is a struct wrapper to prevent accidental type confusion at compile time.
type ClientID struct {
	value string
}

// ParseClientID creates a ClientID from a string, validating it is non-empty.
func ParseClientID(s string) (ClientID, error) {
	if s == "" {
		return ClientID{}, fmt.Errorf("client_id: %w", ErrEmptyID)
	}
	return ClientID{value: s}, nil
}

// MustParseClientID creates a ClientID from a string, panicking on invalid input.
// Use only in tests or initialization code where panicking is acceptable.
func MustParseClientID(s string) ClientID {
	c, err := ParseClientID(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c ClientID) String() string {
	return c.value
}

// IsEmpty checks if the ClientID is empty.
func (c ClientID) IsEmpty() bool {
	return c.value == ""
}

// CorrelationID tracks a request across service boundaries.
type CorrelationID struct {
	value string
}

// ParseCorrelationID creates a CorrelationID from a string, validating it is non-empty.
func ParseCorrelationID(s string) (CorrelationID, error) {
	if s == "" {
		return CorrelationID{}, fmt.Errorf("correlation_id: %w", ErrEmptyID)
	}
	return CorrelationID{value: s}, nil
}

// MustParseCorrelationID panics on an empty string. Tests only.
func MustParseCorrelationID(s string) CorrelationID {
	c, err := ParseCorrelationID(s)
	if err != nil {
		panic(err)
	}
	return c
}

// NewCorrelationID generates a new unique CorrelationID.
func NewCorrelationID() CorrelationID {
	return CorrelationID{value: uuid.NewString()}
}

func (c CorrelationID) String() string {
	return c.value
}

// IsEmpty checks if the CorrelationID is empty.
func (c CorrelationID) IsEmpty() bool {
	return c.value == ""
}

// SessionID identifies one wizard session. It is never persisted in the draft.
type SessionID struct {
	value string
}

// NewSessionID generates a new random SessionID.
func NewSessionID() SessionID {
	return SessionID{value: uuid.NewString()}
}

// ParseSessionID validates UUID format.
func ParseSessionID(s string) (SessionID, error) {
	if s == "" {
		return SessionID{}, fmt.Errorf("session_id: %w", ErrEmptyID)
	}
	if _, err := uuid.Parse(s); err != nil {
		return SessionID{}, fmt.Errorf("session_id: %w", ErrInvalidUUID)
	}
	return SessionID{value: s}, nil
}

func (s SessionID) String() string {
	return s.value
}

// IsEmpty checks if the SessionID is empty.
func (s SessionID) IsEmpty() bool {
	return s.value == ""
}
