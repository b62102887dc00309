package wizard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cucumber/godog"

	vo "kir/internal/common/value_objects"
	"kir/internal/kir/application"
	"kir/internal/kir/domain"
	"kir/internal/kir/infrastructure/memory"
)

type wizardState struct {
	ctx       context.Context
	dataStore *memory.DataStore
	gateway   *application.RecordGateway
	storage   *memory.DraftStorage
	clientID  vo.ClientID
	wizard    *application.Wizard
	other     *application.Wizard
	recordID  string
	submitted domain.RecordID
	lastError error
	members   int
}

func InitializeWizardScenario(ctx *godog.ScenarioContext) {
	state := &wizardState{ctx: context.Background()}

	// Background steps
	ctx.Step(`^a fresh record repository$`, state.aFreshRecordRepository)
	ctx.Step(`^I open the wizard as client "([^"]*)"$`, state.iOpenTheWizardAsClient)

	// Editing steps
	ctx.Step(`^I fill in the identity step for national ID "([^"]*)"$`, state.iFillInTheIdentityStep)
	ctx.Step(`^I fill in "([^"]*)" with "([^"]*)"$`, state.iFillInWith)
	ctx.Step(`^I add household member "([^"]*)" as "([^"]*)"$`, state.iAddHouseholdMember)
	ctx.Step(`^I confirm the declaration$`, state.iConfirmTheDeclaration)

	// Navigation steps
	ctx.Step(`^I go to the next step$`, state.iGoToTheNextStep)
	ctx.Step(`^I try to go to the next step$`, state.iTryToGoToTheNextStep)
	ctx.Step(`^I press next (\d+) times at once$`, state.iPressNextTimesAtOnce)
	ctx.Step(`^I submit the form$`, state.iSubmitTheForm)
	ctx.Step(`^I save the draft$`, state.iSaveTheDraft)
	ctx.Step(`^I try to save the draft$`, state.iTryToSaveTheDraft)
	ctx.Step(`^I open a fresh wizard on the same browser$`, state.iOpenAFreshWizardOnTheSameBrowser)
	ctx.Step(`^I reload the page$`, state.iReloadThePage)
	ctx.Step(`^I discard the wizard$`, state.iDiscardTheWizard)
	ctx.Step(`^another client completes the identity step for national ID "([^"]*)"$`, state.anotherClientCompletesTheIdentityStep)

	// Assertions
	ctx.Step(`^I should be on step (\d+)$`, state.iShouldBeOnStep)
	ctx.Step(`^a record should exist for national ID "([^"]*)"$`, state.aRecordShouldExistForNationalID)
	ctx.Step(`^exactly (\d+) records? should have been created$`, state.exactlyRecordsShouldHaveBeenCreated)
	ctx.Step(`^the record should be "([^"]*)" with (\d+) household members?$`, state.theRecordShouldBeWithMembers)
	ctx.Step(`^the draft should be cleared$`, state.theDraftShouldBeCleared)
	ctx.Step(`^the step should be rejected with violations for "([^"]*)"$`, state.theStepShouldBeRejectedWithViolationsFor)
	ctx.Step(`^the record id should be unchanged$`, state.theRecordIDShouldBeUnchanged)
	ctx.Step(`^the field "([^"]*)" should be "([^"]*)"$`, state.theFieldShouldBe)
	ctx.Step(`^both clients should share one record$`, state.bothClientsShouldShareOneRecord)
	ctx.Step(`^the record for national ID "([^"]*)" should still have full name "([^"]*)"$`, state.theRecordForNationalIDShouldStillHaveFullName)

	ctx.After(func(c context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		for _, w := range []*application.Wizard{state.wizard, state.other} {
			if w != nil {
				w.Flush(state.ctx)
			}
		}
		return c, nil
	})
}

func (s *wizardState) newWizard(client vo.ClientID) (*application.Wizard, error) {
	return application.NewWizard(s.gateway, application.NewDraftStore(s.storage, client),
		application.WithAutosaveDelay(time.Hour))
}

func (s *wizardState) aFreshRecordRepository() error {
	s.dataStore = memory.NewDataStore()
	s.gateway = application.NewRecordGateway(s.dataStore, time.Now)
	s.storage = memory.NewDraftStorage()
	return nil
}

func (s *wizardState) iOpenTheWizardAsClient(client string) error {
	id, err := vo.ParseClientID(client)
	if err != nil {
		return err
	}
	s.clientID = id
	s.wizard, err = s.newWizard(id)
	if err != nil {
		return err
	}
	s.wizard.Start(s.ctx, nil)
	return nil
}

func fillIdentity(ctx context.Context, w *application.Wizard, nationalID string) {
	w.UpdateField(ctx, domain.FieldNationalID, domain.TextValue(nationalID))
	w.UpdateField(ctx, domain.FieldFullName, domain.TextValue("Siti Rahma"))
	w.UpdateField(ctx, domain.FieldDateOfBirth, domain.TextValue("1980-04-12"))
	w.UpdateField(ctx, domain.FieldGender, domain.TextValue("female"))
}

func (s *wizardState) iFillInTheIdentityStep(nationalID string) error {
	fillIdentity(s.ctx, s.wizard, nationalID)
	return nil
}

func (s *wizardState) iFillInWith(field, value string) error {
	if !s.wizard.UpdateField(s.ctx, field, domain.TextValue(value)) {
		return fmt.Errorf("field %q was not accepted", field)
	}
	return nil
}

func (s *wizardState) iAddHouseholdMember(name, relationship string) error {
	prefix := fmt.Sprintf("%s[%d]", domain.FieldMembers, s.members)
	if !s.wizard.UpdateField(s.ctx, prefix+"[name]", domain.TextValue(name)) {
		return fmt.Errorf("member row %d was not accepted", s.members)
	}
	s.wizard.UpdateField(s.ctx, prefix+"[relationship]", domain.TextValue(relationship))
	s.members++
	return nil
}

func (s *wizardState) iConfirmTheDeclaration() error {
	s.wizard.UpdateField(s.ctx, domain.FieldDeclarationConfirmed, domain.FlagValue(true))
	return nil
}

func (s *wizardState) iGoToTheNextStep() error {
	view, err := s.wizard.GoToNextStep(s.ctx)
	if err != nil {
		return fmt.Errorf("step %d: %w", view.CurrentStep, err)
	}
	if view.RecordID != "" {
		s.recordID = view.RecordID
	}
	return nil
}

func (s *wizardState) iTryToGoToTheNextStep() error {
	_, s.lastError = s.wizard.GoToNextStep(s.ctx)
	return nil
}

func (s *wizardState) iPressNextTimesAtOnce(n int) error {
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.wizard.GoToNextStep(s.ctx); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		// Late clicks validate the next, still empty, step.
		if !errors.Is(err, domain.ErrValidation) {
			return err
		}
	}
	s.recordID = s.wizard.Session().RecordID
	return nil
}

func (s *wizardState) iSubmitTheForm() error {
	id, err := s.wizard.Submit(s.ctx)
	if err != nil {
		return err
	}
	s.submitted = id
	return nil
}

func (s *wizardState) iSaveTheDraft() error {
	return s.wizard.SaveDraft(s.ctx)
}

func (s *wizardState) iTryToSaveTheDraft() error {
	s.lastError = s.wizard.SaveDraft(s.ctx)
	return nil
}

// iOpenAFreshWizardOnTheSameBrowser starts a new pass while the old draft is still stored.
func (s *wizardState) iOpenAFreshWizardOnTheSameBrowser() error {
	if s.wizard != nil {
		s.wizard.Flush(s.ctx)
	}
	w, err := s.newWizard(s.clientID)
	if err != nil {
		return err
	}
	s.wizard = w
	w.Start(s.ctx, nil)
	return nil
}

func (s *wizardState) iReloadThePage() error {
	w, err := s.newWizard(s.clientID)
	if err != nil {
		return err
	}
	s.wizard = w
	w.Resume(s.ctx)
	return nil
}

func (s *wizardState) iDiscardTheWizard() error {
	s.wizard.Discard(s.ctx)
	return nil
}

func (s *wizardState) anotherClientCompletesTheIdentityStep(nationalID string) error {
	w, err := s.newWizard(vo.MustParseClientID("browser-2"))
	if err != nil {
		return err
	}
	s.other = w
	w.Start(s.ctx, nil)
	fillIdentity(s.ctx, w, nationalID)
	_, err = w.GoToNextStep(s.ctx)
	return err
}

func (s *wizardState) iShouldBeOnStep(step int) error {
	if got := s.wizard.Session().CurrentStep; got != step {
		return fmt.Errorf("expected step %d, got %d", step, got)
	}
	return nil
}

func (s *wizardState) aRecordShouldExistForNationalID(nationalID string) error {
	key, err := domain.NormalizeNaturalKey(nationalID)
	if err != nil {
		return err
	}
	id, ok, err := s.gateway.FindIDByNaturalKey(s.ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no record for national ID %s", key.Masked())
	}
	if s.recordID != "" && id.String() != s.recordID {
		return fmt.Errorf("expected record %s, index holds %s", s.recordID, id)
	}
	return nil
}

func (s *wizardState) exactlyRecordsShouldHaveBeenCreated(n int) error {
	entries, err := s.dataStore.Outbox().FetchUnpublished(s.ctx, 1000)
	if err != nil {
		return err
	}
	created := 0
	for _, e := range entries {
		if e.EventType == domain.EventRecordCreated {
			created++
		}
	}
	if created != n {
		return fmt.Errorf("expected %d records created, got %d", n, created)
	}
	return nil
}

func (s *wizardState) theRecordShouldBeWithMembers(status string, members int) error {
	if s.submitted.IsEmpty() {
		return fmt.Errorf("nothing was submitted")
	}
	if s.submitted.String() != s.recordID {
		return fmt.Errorf("submitted %s, but the wizard created %s", s.submitted, s.recordID)
	}
	rec, err := s.gateway.Get(s.ctx, s.submitted)
	if err != nil {
		return err
	}
	if string(rec.Status()) != status {
		return fmt.Errorf("expected status %q, got %q", status, rec.Status())
	}
	list, err := s.gateway.Members(s.ctx, s.submitted)
	if err != nil {
		return err
	}
	if len(list) != members {
		return fmt.Errorf("expected %d household members, got %d", members, len(list))
	}
	return nil
}

func (s *wizardState) theDraftShouldBeCleared() error {
	if _, ok := application.NewDraftStore(s.storage, s.clientID).Load(s.ctx); ok {
		return fmt.Errorf("draft still present")
	}
	return nil
}

func (s *wizardState) theStepShouldBeRejectedWithViolationsFor(fields string) error {
	var verr *domain.ValidationError
	if !errors.As(s.lastError, &verr) {
		return fmt.Errorf("expected a validation error, got %v", s.lastError)
	}
	got := verr.Fields()
	for _, f := range strings.Split(fields, ",") {
		if f = strings.TrimSpace(f); !slices.Contains(got, f) {
			return fmt.Errorf("expected a violation for %q, got %v", f, got)
		}
	}
	return nil
}

func (s *wizardState) theRecordIDShouldBeUnchanged() error {
	if got := s.wizard.Session().RecordID; got != s.recordID {
		return fmt.Errorf("expected record id %s, got %q", s.recordID, got)
	}
	return nil
}

func (s *wizardState) theFieldShouldBe(field, value string) error {
	if got := s.wizard.Session().Fields.Text(field); got != value {
		return fmt.Errorf("expected %s=%q, got %q", field, value, got)
	}
	return nil
}

func (s *wizardState) bothClientsShouldShareOneRecord() error {
	mine, theirs := s.wizard.Session().RecordID, s.other.Session().RecordID
	if mine == "" || mine != theirs {
		return fmt.Errorf("expected one shared record, got %q and %q", mine, theirs)
	}
	return nil
}

func (s *wizardState) theRecordForNationalIDShouldStillHaveFullName(nationalID, name string) error {
	key, err := domain.NormalizeNaturalKey(nationalID)
	if err != nil {
		return err
	}
	id, ok, err := s.gateway.FindIDByNaturalKey(s.ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no record for national ID %s", key.Masked())
	}
	rec, err := s.gateway.Get(s.ctx, id)
	if err != nil {
		return err
	}
	if got := rec.Fields().Text(domain.FieldFullName); got != name {
		return fmt.Errorf("expected full name %q, got %q", name, got)
	}
	return nil
}
