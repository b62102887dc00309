package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"strconv"
	"strings"
)

// MaxListRows bounds the index accepted in a structured field name.
const MaxListRows = 50

// FieldKind is the shape of a field value.
type FieldKind int

const (
	KindText FieldKind = iota
	KindFlag
	KindRows
)

// Row is one entry of a list field, keyed by sub-field name.
type Row map[string]string

// FieldValue holds a text, a boolean flag or a list of rows.
// The zero value is empty text.
type FieldValue struct {
	kind FieldKind
	text string
	flag bool
	rows []Row
}

// TextValue wraps a string. Dates and numbers are entered as text.
func TextValue(s string) FieldValue {
	return FieldValue{kind: KindText, text: s}
}

// FlagValue wraps a boolean, used by confirmation checkboxes.
func FlagValue(b bool) FieldValue {
	return FieldValue{kind: KindFlag, flag: b}
}

// RowsValue wraps a list of rows. The rows are copied.
func RowsValue(rows ...Row) FieldValue {
	return FieldValue{kind: KindRows, rows: cloneRows(rows)}
}

func (v FieldValue) Kind() FieldKind { return v.kind }

// Text returns the text content, or "" for other kinds.
func (v FieldValue) Text() string { return v.text }

// Flag returns the flag content, or false for other kinds.
func (v FieldValue) Flag() bool { return v.flag }

// Rows returns a copy of the rows.
func (v FieldValue) Rows() []Row { return cloneRows(v.rows) }

// IsSatisfied reports whether a required field counts as filled in:
// trimmed non-empty text, a true flag, or at least one row.
func (v FieldValue) IsSatisfied() bool {
	switch v.kind {
	case KindFlag:
		return v.flag
	case KindRows:
		return len(v.rows) > 0
	default:
		return strings.TrimSpace(v.text) != ""
	}
}

// Equal compares kind and content.
func (v FieldValue) Equal(other FieldValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindFlag:
		return v.flag == other.flag
	case KindRows:
		if len(v.rows) != len(other.rows) {
			return false
		}
		for i := range v.rows {
			if !maps.Equal(v.rows[i], other.rows[i]) {
				return false
			}
		}
		return true
	default:
		return v.text == other.text
	}
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindFlag:
		return json.Marshal(v.flag)
	case KindRows:
		rows := v.rows
		if rows == nil {
			rows = []Row{}
		}
		return json.Marshal(rows)
	default:
		return json.Marshal(v.text)
	}
}

// UnmarshalJSON accepts a string, a boolean, a list of string maps, a number
// (kept as its literal text) or null (empty text).
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("field value: %w", ErrCorruptData)
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextValue(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = FlagValue(b)
	case '[':
		var rows []Row
		if err := json.Unmarshal(data, &rows); err != nil {
			return err
		}
		*v = FieldValue{kind: KindRows, rows: rows}
	case 'n':
		*v = TextValue("")
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("field value %s: %w", data, ErrCorruptData)
		}
		*v = TextValue(n.String())
	}
	return nil
}

func cloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = maps.Clone(r)
		if out[i] == nil {
			out[i] = Row{}
		}
	}
	return out
}

// Fields is the flat name to value map collected by the wizard.
type Fields map[string]FieldValue

// Clone returns a deep copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = FieldValue{kind: v.kind, text: v.text, flag: v.flag, rows: cloneRows(v.rows)}
	}
	return out
}

// Text returns the trimmed text of a field, or "".
func (f Fields) Text(name string) string {
	return strings.TrimSpace(f[name].text)
}

// Flag returns the flag of a field, or false.
func (f Fields) Flag(name string) bool {
	return f[name].flag
}

// Rows returns the rows of a list field, or nil.
func (f Fields) Rows(name string) []Row {
	return f[name].Rows()
}

var structuredName = regexp.MustCompile(`^([A-Za-z_]\w*)\[(\d+)\]\[([A-Za-z_]\w*)\]$`)

// Apply merges one edit into f and reports whether anything was applied.
//
// A plain name replaces the whole value. A name shaped base[index][sub] sets one
// cell of the list field base, growing it with empty rows as needed; the value's
// text is used. Empty names, names containing brackets in any other shape and
// indexes at or beyond MaxListRows are ignored.
func (f Fields) Apply(name string, value FieldValue) bool {
	if name == "" {
		return false
	}
	if !strings.ContainsAny(name, "[]") {
		f[name] = FieldValue{kind: value.kind, text: value.text, flag: value.flag, rows: cloneRows(value.rows)}
		return true
	}

	m := structuredName.FindStringSubmatch(name)
	if m == nil {
		return false
	}
	index, err := strconv.Atoi(m[2])
	if err != nil || index >= MaxListRows {
		return false
	}
	base, sub := m[1], m[3]

	current := f[base]
	rows := cloneRows(current.rows)
	if current.kind != KindRows {
		rows = nil
	}
	for len(rows) <= index {
		rows = append(rows, Row{})
	}
	rows[index][sub] = value.text
	f[base] = FieldValue{kind: KindRows, rows: rows}
	return true
}
