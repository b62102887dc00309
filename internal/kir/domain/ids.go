package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ErrEmptyRecordID is returned when parsing an empty record ID.
var ErrEmptyRecordID = errors.New("record_id cannot be empty")

// ErrInvalidRecordID is returned when parsing an invalid UUID format.
var ErrInvalidRecordID = errors.New("record_id: invalid uuid format")

// NaturalKeyLength is the number of digits in a national ID.
const NaturalKeyLength = 12

// RecordID uniquely identifies a KIR record.
// It is a struct wrapper to prevent accidental type confusion at compile time.
type RecordID struct {
	value string
}

// ParseRecordID creates a RecordID from a string, validating UUID format.
func ParseRecordID(s string) (RecordID, error) {
	if s == "" {
		return RecordID{}, ErrEmptyRecordID
	}
	if _, err := uuid.Parse(s); err != nil {
		return RecordID{}, fmt.Errorf("%w: %s", ErrInvalidRecordID, s)
	}
	return RecordID{value: s}, nil
}

// MustParseRecordID panics on invalid input. Tests only.
func MustParseRecordID(s string) RecordID {
	id, err := ParseRecordID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// NewRecordID generates a new unique RecordID.
func NewRecordID() RecordID {
	return RecordID{value: uuid.NewString()}
}

func (r RecordID) String() string {
	return r.value
}

// IsEmpty checks if the RecordID is empty.
func (r RecordID) IsEmpty() bool {
	return r.value == ""
}

// MemberID identifies a household member row expanded from a submitted record.
type MemberID struct {
	value string
}

// NewMemberID generates a new unique MemberID.
func NewMemberID() MemberID {
	return MemberID{value: uuid.NewString()}
}

// ParseMemberID validates UUID format.
func ParseMemberID(s string) (MemberID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return MemberID{}, fmt.Errorf("member_id: %w", ErrCorruptData)
	}
	return MemberID{value: s}, nil
}

func (m MemberID) String() string {
	return m.value
}

// NaturalKey is a normalized national ID: exactly twelve ASCII digits.
type NaturalKey struct {
	value string
}

// NormalizeNaturalKey strips spaces, dots and dashes from raw input and checks the
// remaining digits. Any other character or a wrong length is rejected.
func NormalizeNaturalKey(raw string) (NaturalKey, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '.' || unicode.IsSpace(r):
		default:
			return NaturalKey{}, errInvalidNaturalKey
		}
	}
	digits := b.String()
	if digits == "" {
		return NaturalKey{}, errEmptyNaturalKey
	}
	if len(digits) != NaturalKeyLength {
		return NaturalKey{}, errInvalidNaturalKey
	}
	return NaturalKey{value: digits}, nil
}

var (
	errEmptyNaturalKey   = errors.New("national ID is required")
	errInvalidNaturalKey = fmt.Errorf("national ID must be %d digits", NaturalKeyLength)
)

func (k NaturalKey) String() string {
	return k.value
}

// IsEmpty checks if the key is unset.
func (k NaturalKey) IsEmpty() bool {
	return k.value == ""
}

// Masked hides all but the last four digits for logs and error messages.
func (k NaturalKey) Masked() string {
	if len(k.value) <= 4 {
		return k.value
	}
	return strings.Repeat("*", len(k.value)-4) + k.value[len(k.value)-4:]
}
