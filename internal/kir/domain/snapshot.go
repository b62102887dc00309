package domain

import (
	"encoding/json"
	"fmt"
)

// DraftSnapshot is the persisted part of a wizard session, overwritten wholesale on every save.
//
//	{"recordId": string|null, "currentStep": int, "fields": {name: string|bool|[{...}]}}
type DraftSnapshot struct {
	RecordID    RecordID
	CurrentStep int
	Fields      Fields
}

// IsEmpty reports whether the snapshot carries nothing worth resuming.
func (s DraftSnapshot) IsEmpty() bool {
	return s.RecordID.IsEmpty() && len(s.Fields) == 0 && s.CurrentStep <= 1
}

type draftSnapshotJSON struct {
	RecordID    *string `json:"recordId"`
	CurrentStep int     `json:"currentStep"`
	Fields      Fields  `json:"fields"`
}

func (s DraftSnapshot) MarshalJSON() ([]byte, error) {
	j := draftSnapshotJSON{CurrentStep: s.CurrentStep, Fields: s.Fields}
	if j.Fields == nil {
		j.Fields = Fields{}
	}
	if !s.RecordID.IsEmpty() {
		id := s.RecordID.String()
		j.RecordID = &id
	}
	return json.Marshal(j)
}

func (s *DraftSnapshot) UnmarshalJSON(data []byte) error {
	var j draftSnapshotJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	var id RecordID
	if j.RecordID != nil && *j.RecordID != "" {
		parsed, err := ParseRecordID(*j.RecordID)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorruptData, err)
		}
		id = parsed
	}
	if j.CurrentStep < 1 {
		j.CurrentStep = 1
	}
	if j.Fields == nil {
		j.Fields = Fields{}
	}
	s.RecordID = id
	s.CurrentStep = j.CurrentStep
	s.Fields = j.Fields
	return nil
}
