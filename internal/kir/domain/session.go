package domain

import (
	vo "kir/internal/common/value_objects"
)

// WizardSession is the in-progress state of one pass through the wizard.
//
// Invariants:
//   - recordID is set at most once and never changes afterwards
//   - naturalKey is fixed together with recordID
//   - currentStep stays within [1, totalSteps]
//
// A session is owned by one Wizard and is not safe for concurrent use on its own.
type WizardSession struct {
	id          vo.SessionID
	recordID    RecordID
	naturalKey  NaturalKey
	currentStep int
	totalSteps  int
	fields      Fields
	resumed     bool
}

// NewWizardSession starts at step 1 with no fields and no record.
func NewWizardSession(totalSteps int) *WizardSession {
	if totalSteps < 1 {
		totalSteps = 1
	}
	return &WizardSession{
		id:          vo.NewSessionID(),
		currentStep: 1,
		totalSteps:  totalSteps,
		fields:      Fields{},
	}
}

// ResumeWizardSession rebuilds a session from a draft. The step is clamped into range.
// When the draft carries a record id, the natural key is recovered from keyField.
func ResumeWizardSession(snap DraftSnapshot, totalSteps int, keyField string) *WizardSession {
	s := NewWizardSession(totalSteps)
	s.fields = snap.Fields.Clone()
	s.currentStep = clampStep(snap.CurrentStep, s.totalSteps)
	s.resumed = true
	if !snap.RecordID.IsEmpty() {
		s.recordID = snap.RecordID
		if key, err := NormalizeNaturalKey(s.fields.Text(keyField)); err == nil {
			s.naturalKey = key
		}
	}
	return s
}

func clampStep(step, total int) int {
	switch {
	case step < 1:
		return 1
	case step > total:
		return total
	default:
		return step
	}
}

func (s *WizardSession) ID() vo.SessionID { return s.id }

func (s *WizardSession) RecordID() RecordID { return s.recordID }

func (s *WizardSession) NaturalKey() NaturalKey { return s.naturalKey }

func (s *WizardSession) CurrentStep() int { return s.currentStep }

func (s *WizardSession) TotalSteps() int { return s.totalSteps }

// Resumed reports whether the session was rebuilt from a stored draft.
func (s *WizardSession) Resumed() bool { return s.resumed }

// IsLastStep reports whether the session is on step N.
func (s *WizardSession) IsLastStep() bool {
	return s.currentStep == s.totalSteps
}

// Fields returns a copy of the collected fields.
func (s *WizardSession) Fields() Fields {
	return s.fields.Clone()
}

// SetField merges one edit. See Fields.Apply for the accepted names.
func (s *WizardSession) SetField(name string, value FieldValue) bool {
	return s.fields.Apply(name, value)
}

// AssignRecord binds the session to a record. Assigning the same id again is a no-op;
// a different id is rejected.
func (s *WizardSession) AssignRecord(id RecordID, key NaturalKey) error {
	if id.IsEmpty() {
		return ErrEmptyRecordID
	}
	if s.recordID.IsEmpty() {
		s.recordID = id
		s.naturalKey = key
		return nil
	}
	if s.recordID != id {
		return ErrRecordAlreadyAssigned
	}
	if s.naturalKey.IsEmpty() {
		s.naturalKey = key
	}
	return nil
}

// Advance moves forward one step, capped at N. It reports whether the step changed.
func (s *WizardSession) Advance() bool {
	if s.currentStep >= s.totalSteps {
		return false
	}
	s.currentStep++
	return true
}

// Retreat moves back one step, floored at 1.
func (s *WizardSession) Retreat() bool {
	if s.currentStep <= 1 {
		return false
	}
	s.currentStep--
	return true
}

// Snapshot returns the persistable part of the session.
func (s *WizardSession) Snapshot() DraftSnapshot {
	return DraftSnapshot{
		RecordID:    s.recordID,
		CurrentStep: s.currentStep,
		Fields:      s.fields.Clone(),
	}
}

// SessionView is a read-only copy handed to the presentation layer.
type SessionView struct {
	SessionID   string `json:"sessionId"`
	RecordID    string `json:"recordId,omitempty"`
	CurrentStep int    `json:"currentStep"`
	TotalSteps  int    `json:"totalSteps"`
	StepTitle   string `json:"stepTitle,omitempty"`
	Fields      Fields `json:"fields"`
}

// View copies the session into a SessionView.
func (s *WizardSession) View() SessionView {
	return SessionView{
		SessionID:   s.id.String(),
		RecordID:    s.recordID.String(),
		CurrentStep: s.currentStep,
		TotalSteps:  s.totalSteps,
		Fields:      s.fields.Clone(),
	}
}
