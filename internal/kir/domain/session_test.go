package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type SessionSuite struct {
	suite.Suite
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) TestStepCounterStaysInRange() {
	s.Run("retreating on step 1 is a no-op", func() {
		sess := NewWizardSession(3)
		s.False(sess.Retreat())
		s.Equal(1, sess.CurrentStep())
	})

	s.Run("advancing is capped at N", func() {
		sess := NewWizardSession(2)
		s.True(sess.Advance())
		s.False(sess.Advance())
		s.Equal(2, sess.CurrentStep())
		s.True(sess.IsLastStep())
	})

	s.Run("resume clamps an out-of-range step", func() {
		sess := ResumeWizardSession(DraftSnapshot{CurrentStep: 42, Fields: Fields{}}, 8, FieldNationalID)
		s.Equal(8, sess.CurrentStep())
	})
}

func (s *SessionSuite) TestAssignRecordIsWriteOnce() {
	key, err := NormalizeNaturalKey("123456789012")
	s.Require().NoError(err)
	first := NewRecordID()

	sess := NewWizardSession(8)
	s.Require().NoError(sess.AssignRecord(first, key))
	s.Require().NoError(sess.AssignRecord(first, key))
	s.ErrorIs(sess.AssignRecord(NewRecordID(), key), ErrRecordAlreadyAssigned)
	s.Equal(first, sess.RecordID())
	s.Equal(key, sess.NaturalKey())
	s.ErrorIs(sess.AssignRecord(RecordID{}, key), ErrEmptyRecordID)
}

func (s *SessionSuite) TestResumeRecoversNaturalKey() {
	id := NewRecordID()
	sess := ResumeWizardSession(DraftSnapshot{
		RecordID:    id,
		CurrentStep: 3,
		Fields:      Fields{FieldNationalID: TextValue("1234-5678-9012")},
	}, 8, FieldNationalID)

	s.Equal(id, sess.RecordID())
	s.Equal("123456789012", sess.NaturalKey().String())
	s.Equal(3, sess.CurrentStep())
}

func (s *SessionSuite) TestFieldsAreCopied() {
	sess := NewWizardSession(8)
	sess.SetField(FieldFullName, TextValue("Siti"))

	f := sess.Fields()
	f[FieldFullName] = TextValue("changed")
	s.Equal("Siti", sess.Fields().Text(FieldFullName))
}

func (s *SessionSuite) TestSnapshotJSON() {
	s.Run("empty record id encodes as null", func() {
		raw, err := json.Marshal(DraftSnapshot{CurrentStep: 1})
		s.Require().NoError(err)
		s.JSONEq(`{"recordId":null,"currentStep":1,"fields":{}}`, string(raw))
	})

	s.Run("mixed field kinds survive a save and load", func() {
		id := NewRecordID()
		snap := DraftSnapshot{
			RecordID:    id,
			CurrentStep: 5,
			Fields: Fields{
				FieldFullName:             TextValue("Budi"),
				FieldDeclarationConfirmed: FlagValue(true),
				FieldMembers:              RowsValue(Row{"name": "Ani", "relationship": "child"}),
			},
		}
		raw, err := json.Marshal(snap)
		s.Require().NoError(err)

		var got DraftSnapshot
		s.Require().NoError(json.Unmarshal(raw, &got))
		s.Equal(id, got.RecordID)
		s.Equal(5, got.CurrentStep)
		s.True(got.Fields[FieldDeclarationConfirmed].Flag())
		s.Equal("Ani", got.Fields.Rows(FieldMembers)[0]["name"])
	})

	s.Run("a bad record id is corrupt data", func() {
		var got DraftSnapshot
		err := json.Unmarshal([]byte(`{"recordId":"nope","currentStep":2,"fields":{}}`), &got)
		s.ErrorIs(err, ErrCorruptData)
	})

	s.Run("numbers decode as text", func() {
		var got DraftSnapshot
		s.Require().NoError(json.Unmarshal([]byte(`{"recordId":null,"currentStep":0,"fields":{"monthly_income":1500}}`), &got))
		s.Equal("1500", got.Fields.Text(FieldMonthlyIncome))
		s.Equal(1, got.CurrentStep)
	})
}

func (s *SessionSuite) TestSnapshotIsEmpty() {
	s.True(DraftSnapshot{}.IsEmpty())
	s.True(DraftSnapshot{CurrentStep: 1, Fields: Fields{}}.IsEmpty())
	s.False(DraftSnapshot{CurrentStep: 2}.IsEmpty())
	s.False(DraftSnapshot{Fields: Fields{"x": TextValue("")}}.IsEmpty())
}

func (s *SessionSuite) TestRecordRevise() {
	key, _ := NormalizeNaturalKey("123456789012")
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRecord(key, Fields{FieldFullName: TextValue("A")}, t0)
	s.Equal(RecordStatusDraft, r.Status())
	s.Equal(1, r.Version())

	r.Revise(RecordStatusSubmitted, Fields{FieldNationalID: TextValue("999999999999")}, t0.Add(time.Hour))
	s.Equal(RecordStatusSubmitted, r.Status())
	s.Equal(2, r.Version())
	s.Equal(key, r.NaturalKey())
	s.Equal(t0, r.CreatedAt())
}
