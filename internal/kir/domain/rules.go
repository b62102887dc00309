package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	vo "kir/internal/common/value_objects"
)

// DateLayout is the format of every date field.
const DateLayout = "2006-01-02"

// RequiredWhen makes target required when field equals value (case-insensitive).
func RequiredWhen(field, value string, target FieldSpec) Rule {
	return func(f Fields) []Violation {
		if !strings.EqualFold(f.Text(field), value) {
			return nil
		}
		if f[target.Name].IsSatisfied() {
			return nil
		}
		return []Violation{{Field: target.Name, Label: target.Label, Message: "is required when " + field + " is " + value}}
	}
}

// NotBefore fails when both dates are present and later is chronologically before earlier.
// Unparseable dates are left to ValidDate.
func NotBefore(earlier, later FieldSpec) Rule {
	return func(f Fields) []Violation {
		a, okA := parseDate(f.Text(earlier.Name))
		b, okB := parseDate(f.Text(later.Name))
		if !okA || !okB {
			return nil
		}
		if b.Before(a) {
			return []Violation{{Field: later.Name, Label: later.Label, Message: "must not be before " + earlier.Label}}
		}
		return nil
	}
}

// ValidDate fails when the field holds text that is not a calendar date.
// An empty field passes; presence is checked separately.
func ValidDate(spec FieldSpec) Rule {
	return func(f Fields) []Violation {
		s := f.Text(spec.Name)
		if s == "" {
			return nil
		}
		if _, ok := parseDate(s); !ok {
			return []Violation{{Field: spec.Name, Label: spec.Label, Message: "must be a date (YYYY-MM-DD)"}}
		}
		return nil
	}
}

// NonNegativeAmount fails when the field is not a decimal amount at or above zero.
func NonNegativeAmount(spec FieldSpec) Rule {
	return func(f Fields) []Violation {
		s := f.Text(spec.Name)
		if s == "" {
			return nil
		}
		if _, err := vo.ParseNonNegativeAmount(s); err != nil {
			msg := "must be an amount"
			if errors.Is(err, vo.ErrNegativeAmount) {
				msg = "must not be negative"
			}
			return []Violation{{Field: spec.Name, Label: spec.Label, Message: msg}}
		}
		return nil
	}
}

// NationalIDFormat fails when a present national ID does not normalize.
func NationalIDFormat(spec FieldSpec) Rule {
	return func(f Fields) []Violation {
		s := f.Text(spec.Name)
		if s == "" {
			return nil
		}
		if _, err := NormalizeNaturalKey(s); err != nil {
			return []Violation{{Field: spec.Name, Label: spec.Label, Message: err.Error()}}
		}
		return nil
	}
}

// RowsComplete requires every row of a list field to carry the given sub-fields.
// Violations name the cell, e.g. members[1][name].
func RowsComplete(list FieldSpec, subs ...FieldSpec) Rule {
	return func(f Fields) []Violation {
		var out []Violation
		for i, row := range f.Rows(list.Name) {
			for _, sub := range subs {
				if strings.TrimSpace(row[sub.Name]) == "" {
					out = append(out, Violation{
						Field:   cellName(list.Name, i, sub.Name),
						Label:   list.Label + " " + sub.Label,
						Message: "is required",
					})
				}
			}
		}
		return out
	}
}

// RowsNationalID checks the national ID cell of every row when it is filled in.
func RowsNationalID(list FieldSpec, sub string) Rule {
	return func(f Fields) []Violation {
		var out []Violation
		for i, row := range f.Rows(list.Name) {
			s := strings.TrimSpace(row[sub])
			if s == "" {
				continue
			}
			if _, err := NormalizeNaturalKey(s); err != nil {
				out = append(out, Violation{Field: cellName(list.Name, i, sub), Label: list.Label + " national ID", Message: err.Error()})
			}
		}
		return out
	}
}

// RowsMaxLength caps the trimmed length, in characters, of one cell in every row.
func RowsMaxLength(list FieldSpec, sub FieldSpec, max int) Rule {
	return func(f Fields) []Violation {
		var out []Violation
		for i, row := range f.Rows(list.Name) {
			if utf8.RuneCountInString(strings.TrimSpace(row[sub.Name])) > max {
				out = append(out, Violation{
					Field:   cellName(list.Name, i, sub.Name),
					Label:   list.Label + " " + sub.Label,
					Message: fmt.Sprintf("must be at most %d characters", max),
				})
			}
		}
		return out
	}
}

func cellName(base string, index int, sub string) string {
	return fmt.Sprintf("%s[%d][%s]", base, index, sub)
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	return t, err == nil
}
