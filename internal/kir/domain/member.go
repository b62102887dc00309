package domain

import "strings"

// Column widths of the household_members table.
const (
	MaxMemberNameLength   = 255
	MaxRelationshipLength = 100
)

// HouseholdMember is one related record expanded from the members list on submit.
type HouseholdMember struct {
	ID           MemberID
	RecordID     RecordID
	Position     int
	Name         string
	Relationship string
	NationalID   string // normalized, or "" when not given or unparseable
}

// MembersFromFields expands the members list field into member rows.
// Rows without a name are skipped; positions stay dense.
func MembersFromFields(id RecordID, fields Fields) []HouseholdMember {
	var members []HouseholdMember
	for _, row := range fields.Rows(FieldMembers) {
		name := strings.TrimSpace(row["name"])
		if name == "" {
			continue
		}
		var nid string
		if key, err := NormalizeNaturalKey(row["national_id"]); err == nil {
			nid = key.String()
		}
		members = append(members, HouseholdMember{
			ID:           NewMemberID(),
			RecordID:     id,
			Position:     len(members),
			Name:         name,
			Relationship: strings.TrimSpace(row["relationship"]),
			NationalID:   nid,
		})
	}
	return members
}
