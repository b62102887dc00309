package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	vo "kir/internal/common/value_objects"
	"kir/internal/kir/application"
	"kir/internal/kir/domain"
	"kir/internal/kir/infrastructure/memory"
)

// ScenarioSuite runs the wizard against the real record gateway on the in-memory datastore.
type ScenarioSuite struct {
	suite.Suite
	ctx       context.Context
	dataStore *memory.DataStore
	gateway   *application.RecordGateway
	storage   *memory.DraftStorage
	clock     *fakeClock
	client    vo.ClientID
	wizard    *application.Wizard
}

func TestScenarioSuite(t *testing.T) {
	suite.Run(t, new(ScenarioSuite))
}

func (s *ScenarioSuite) SetupTest() {
	s.ctx = context.Background()
	s.dataStore = memory.NewDataStore()
	s.clock = newFakeClock()
	s.gateway = application.NewRecordGateway(s.dataStore, s.clock.Now)
	s.storage = memory.NewDraftStorage()
	s.client = vo.MustParseClientID("client-e2e")
	s.wizard = s.newWizard()
}

func (s *ScenarioSuite) newWizard() *application.Wizard {
	w, err := application.NewWizard(s.gateway, application.NewDraftStore(s.storage, s.client),
		application.WithClock(s.clock))
	s.Require().NoError(err)
	return w
}

func (s *ScenarioSuite) next() domain.SessionView {
	view, err := s.wizard.GoToNextStep(s.ctx)
	s.Require().NoError(err)
	return view
}

func (s *ScenarioSuite) record(id string) *domain.Record {
	rec, err := s.gateway.Get(s.ctx, domain.MustParseRecordID(id))
	s.Require().NoError(err)
	return rec
}

func (s *ScenarioSuite) TestEndToEnd() {
	s.wizard.Start(s.ctx, nil)
	fill(s.ctx, s.wizard, identity("123456789012"))

	view := s.next()
	s.Equal(2, view.CurrentStep)
	s.Require().NotEmpty(view.RecordID)
	recordID := view.RecordID

	key, err := domain.NormalizeNaturalKey("123456789012")
	s.Require().NoError(err)
	found, ok, err := s.gateway.FindIDByNaturalKey(s.ctx, key)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(recordID, found.String())

	s.wizard.UpdateField(s.ctx, domain.FieldMaritalStatus, domain.TextValue("single"))
	s.next()
	s.next()
	fill(s.ctx, s.wizard, map[string]string{
		domain.FieldAddress:  "Jl. Merdeka 10",
		domain.FieldDistrict: "Menteng",
		domain.FieldPhone:    "+62 812 0000 0000",
	})
	s.Require().NoError(s.wizard.SaveDraft(s.ctx))

	rec := s.record(recordID)
	s.Equal(domain.RecordStatusDraft, rec.Status())
	s.Equal("Menteng", rec.Fields().Text(domain.FieldDistrict))

	s.next()
	s.wizard.UpdateField(s.ctx, "members[0][name]", domain.TextValue("Budi"))
	s.wizard.UpdateField(s.ctx, "members[0][relationship]", domain.TextValue("child"))
	s.wizard.UpdateField(s.ctx, "members[1][name]", domain.TextValue("Ani"))
	s.wizard.UpdateField(s.ctx, "members[1][relationship]", domain.TextValue("child"))
	s.next()
	fill(s.ctx, s.wizard, map[string]string{
		domain.FieldEmploymentStatus: "employed",
		domain.FieldMonthlyIncome:    "1,500,000",
	})
	s.next()
	view = s.next()
	s.Equal(8, view.CurrentStep)

	s.wizard.UpdateField(s.ctx, domain.FieldDeclarationConfirmed, domain.FlagValue(true))
	id, err := s.wizard.Submit(s.ctx)
	s.Require().NoError(err)
	s.Equal(recordID, id.String())

	rec = s.record(recordID)
	s.Equal(domain.RecordStatusSubmitted, rec.Status())
	s.True(rec.Fields().Flag(domain.FieldDeclarationConfirmed))

	members, err := s.gateway.Members(s.ctx, id)
	s.Require().NoError(err)
	s.Len(members, 2)

	_, ok = application.NewDraftStore(s.storage, s.client).Load(s.ctx)
	s.False(ok)
	s.Equal(1, s.wizard.Session().CurrentStep)
	s.Empty(s.wizard.Session().RecordID)

	pending, err := s.dataStore.Outbox().FetchUnpublished(s.ctx, 100)
	s.Require().NoError(err)
	s.Require().NotEmpty(pending)
	s.Equal(domain.EventRecordCreated, pending[0].EventType)
	s.Equal(domain.EventRecordSubmitted, pending[len(pending)-1].EventType)
}

func (s *ScenarioSuite) TestCrossFieldRules() {
	s.wizard.Start(s.ctx, nil)
	fill(s.ctx, s.wizard, identity("123456789012"))
	s.next()

	s.wizard.UpdateField(s.ctx, domain.FieldMaritalStatus, domain.TextValue("Married"))
	view, err := s.wizard.GoToNextStep(s.ctx)
	s.ErrorIs(err, domain.ErrValidation)
	s.Equal(2, view.CurrentStep)

	s.wizard.UpdateField(s.ctx, domain.FieldMarriageDate, domain.TextValue("2010-06-01"))
	s.next()

	s.wizard.UpdateField(s.ctx, domain.FieldSeparationDate, domain.TextValue("2009-01-01"))
	view, err = s.wizard.GoToNextStep(s.ctx)
	s.ErrorIs(err, domain.ErrValidation)
	s.Equal(3, view.CurrentStep)

	s.wizard.UpdateField(s.ctx, domain.FieldSeparationDate, domain.TextValue("2015-01-01"))
	s.Equal(4, s.next().CurrentStep)
}

func (s *ScenarioSuite) TestTwoClientsOnOneNationalIDShareTheRecord() {
	other, err := application.NewWizard(s.gateway,
		application.NewDraftStore(s.storage, vo.MustParseClientID("client-other")),
		application.WithClock(s.clock))
	s.Require().NoError(err)

	s.wizard.Start(s.ctx, nil)
	other.Start(s.ctx, nil)
	fill(s.ctx, s.wizard, identity("123456789012"))
	fill(s.ctx, other, identity("1234-5678-9012"))

	first, err := s.wizard.EnsureRecordExists(s.ctx)
	s.Require().NoError(err)
	second, err := other.EnsureRecordExists(s.ctx)
	s.Require().NoError(err)
	s.Equal(first, second)
}

func (s *ScenarioSuite) TestResumeAfterRestart() {
	s.wizard.Start(s.ctx, nil)
	fill(s.ctx, s.wizard, identity("123456789012"))
	view := s.next()
	s.wizard.UpdateField(s.ctx, domain.FieldMaritalStatus, domain.TextValue("single"))
	s.clock.Advance(3 * time.Second)

	restarted := s.newWizard()
	resumed := restarted.Resume(s.ctx)
	s.Equal(2, resumed.CurrentStep)
	s.Equal(view.RecordID, resumed.RecordID)
	s.Equal("single", resumed.Fields.Text(domain.FieldMaritalStatus))

	rec := s.record(view.RecordID)
	s.Equal("single", rec.Fields().Text(domain.FieldMaritalStatus), "autosave pushes fields once a record exists")
}

// clockAdvancingRepository lets the debounce period pass while members are expanded.
type clockAdvancingRepository struct {
	*application.RecordGateway
	clock *fakeClock
}

func (r clockAdvancingRepository) ExpandIntoRelatedRecords(ctx context.Context, id domain.RecordID, fields domain.Fields) error {
	if err := r.RecordGateway.ExpandIntoRelatedRecords(ctx, id, fields); err != nil {
		return err
	}
	r.clock.Advance(3 * time.Second)
	return nil
}

func (s *ScenarioSuite) TestSubmittedRecordIsNotRevertedByAutosave() {
	s.wizard.Start(s.ctx, nil)
	fill(s.ctx, s.wizard, identity("123456789012"))
	recordID := s.next().RecordID
	s.Require().NotEmpty(recordID)

	fields := domain.Fields{}
	for name, v := range identity("123456789012") {
		fields[name] = domain.TextValue(v)
	}
	application.NewDraftStore(s.storage, s.client).Save(s.ctx, domain.DraftSnapshot{
		RecordID:    domain.MustParseRecordID(recordID),
		CurrentStep: 8,
		Fields:      fields,
	})

	w, err := application.NewWizard(clockAdvancingRepository{RecordGateway: s.gateway, clock: s.clock},
		application.NewDraftStore(s.storage, s.client), application.WithClock(s.clock))
	s.Require().NoError(err)
	w.Resume(s.ctx)
	w.UpdateField(s.ctx, domain.FieldDeclarationConfirmed, domain.FlagValue(true))

	_, err = w.Submit(s.ctx)
	s.Require().NoError(err)
	s.clock.Advance(3 * time.Second)

	rec := s.record(recordID)
	s.Equal(domain.RecordStatusSubmitted, rec.Status())
	s.True(rec.Fields().Flag(domain.FieldDeclarationConfirmed))
}
