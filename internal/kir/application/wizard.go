package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"kir/internal/common/logging"
	"kir/internal/common/metrics"
	"kir/internal/kir/domain"
)

// DefaultAutosaveDelay is the quiet period before edits are flushed to the draft store.
const DefaultAutosaveDelay = 2 * time.Second

var tracer = otel.Tracer("kir/application")

// Wizard drives one client through the KIR steps.
//
// Key design decisions:
//   - The session is owned by the wizard and mutated only under mu; repository calls
//     never run while mu is held
//   - EnsureRecordExists is coalesced per session with singleflight, and it looks the
//     natural key up before every create, so retries after a failure are safe
//   - Every draft write takes persistMu and snapshots the session at write time, so a
//     later write always carries the newest state
//   - Errors leaving the wizard are ValidationError, ConflictError, ErrPermissionDenied
//     or ErrUnavailable
type Wizard struct {
	records  domain.RecordRepository
	drafts   *DraftStore
	steps    domain.Steps
	clock    Clock
	notifier Notifier
	keyField string
	delay    time.Duration

	mu      sync.Mutex
	session *domain.WizardSession

	persistMu sync.Mutex
	autosave  *autosave
	ensure    singleflight.Group
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithSteps replaces the KIR step catalogue.
func WithSteps(steps domain.Steps) Option {
	return func(w *Wizard) { w.steps = steps }
}

// WithClock injects the clock driving the autosave timer.
func WithClock(c Clock) Option {
	return func(w *Wizard) { w.clock = c }
}

// WithAutosaveDelay sets the debounce quiet period.
func WithAutosaveDelay(d time.Duration) Option {
	return func(w *Wizard) { w.delay = d }
}

// WithNotifier sets the collaborator told about submitted records.
func WithNotifier(n Notifier) Option {
	return func(w *Wizard) { w.notifier = n }
}

// WithNaturalKeyField names the field holding the national ID.
func WithNaturalKeyField(name string) Option {
	return func(w *Wizard) { w.keyField = name }
}

// NewWizard creates a wizard with a fresh session at step 1.
func NewWizard(records domain.RecordRepository, drafts *DraftStore, opts ...Option) (*Wizard, error) {
	if records == nil {
		return nil, errors.New("record repository is required")
	}
	if drafts == nil {
		return nil, errors.New("draft store is required")
	}
	w := &Wizard{
		records:  records,
		drafts:   drafts,
		steps:    domain.KIRSteps(),
		clock:    SystemClock{},
		notifier: noopNotifier{},
		keyField: domain.FieldNationalID,
		delay:    DefaultAutosaveDelay,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.delay <= 0 {
		return nil, fmt.Errorf("autosave delay must be positive, got %s", w.delay)
	}
	if w.steps.Count() == 0 {
		return nil, errors.New("step catalogue is required")
	}
	w.session = domain.NewWizardSession(w.steps.Count())
	w.autosave = newAutosave(w.clock, w.delay, w.flushAutosave)
	return w, nil
}

// Start begins a session. A non-empty resume snapshot is restored and written back to
// the draft store; otherwise the session is fresh and nothing is written. A fresh
// session never takes the record of a stale draft; use Discard to drop the draft.
func (w *Wizard) Start(ctx context.Context, resume *domain.DraftSnapshot) domain.SessionView {
	w.autosave.Cancel()

	resumed := resume != nil && !resume.IsEmpty()

	w.persistMu.Lock()
	w.mu.Lock()
	if resumed {
		w.session = domain.ResumeWizardSession(*resume, w.steps.Count(), w.keyField)
	} else {
		w.session = domain.NewWizardSession(w.steps.Count())
	}
	w.mu.Unlock()
	if resumed {
		w.writeLocked(ctx, false)
	}
	w.persistMu.Unlock()

	if resumed {
		logging.InfoContext(ctx, "wizard resumed from draft", "step", resume.CurrentStep)
	}
	return w.Session()
}

// Resume loads the client's draft and starts from it, or starts fresh when there is none.
func (w *Wizard) Resume(ctx context.Context) domain.SessionView {
	snap, ok := w.drafts.Load(ctx)
	if !ok {
		return w.Start(ctx, nil)
	}
	return w.Start(ctx, &snap)
}

// Session returns a copy of the current session.
func (w *Wizard) Session() domain.SessionView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewLocked()
}

func (w *Wizard) viewLocked() domain.SessionView {
	view := w.session.View()
	if step, ok := w.steps.Step(view.CurrentStep); ok {
		view.StepTitle = step.Title
	}
	return view
}

// UpdateField merges one edit and schedules the autosave. Empty or malformed
// structured names are ignored; the return value reports whether the edit applied.
func (w *Wizard) UpdateField(ctx context.Context, name string, value domain.FieldValue) bool {
	w.mu.Lock()
	applied := w.session.SetField(name, value)
	w.mu.Unlock()

	if !applied {
		logging.DebugContext(ctx, "field update ignored", "field", name)
		return false
	}
	w.autosave.Schedule(ctx)
	return true
}

// GoToNextStep validates the current step, makes sure the record exists and advances.
// On the last step it submits instead.
func (w *Wizard) GoToNextStep(ctx context.Context) (domain.SessionView, error) {
	w.mu.Lock()
	sess := w.session
	step := sess.CurrentStep()
	fields := sess.Fields()
	last := sess.IsLastStep()
	w.mu.Unlock()

	if last {
		_, err := w.Submit(ctx)
		return w.Session(), err
	}

	if err := w.steps.Validate(step, fields); err != nil {
		return w.Session(), err
	}
	if _, err := w.EnsureRecordExists(ctx); err != nil {
		return w.Session(), err
	}

	w.mu.Lock()
	if w.session == sess && sess.CurrentStep() == step {
		sess.Advance()
	}
	w.mu.Unlock()

	w.persist(ctx, w.autosave.Cancel())
	return w.Session(), nil
}

// GoToPreviousStep moves back one step, floored at 1. It never fails.
func (w *Wizard) GoToPreviousStep(ctx context.Context) domain.SessionView {
	w.mu.Lock()
	w.session.Retreat()
	w.mu.Unlock()

	w.persist(ctx, w.autosave.Cancel())
	return w.Session()
}

// EnsureRecordExists returns the session's record id, creating the record at most once.
//
// Resolution order:
//   - the id already held in memory
//   - the id held by the client's draft, for a session resumed from that draft and
//     only when it belongs to the same national ID
//   - the uniqueness index, adopting an existing record for the national ID
//   - a single create, after the creation step's required fields are checked
func (w *Wizard) EnsureRecordExists(ctx context.Context) (domain.RecordID, error) {
	w.mu.Lock()
	sess := w.session
	id := sess.RecordID()
	w.mu.Unlock()
	if !id.IsEmpty() {
		return id, nil
	}

	ctx, span := tracer.Start(ctx, "wizard.EnsureRecordExists",
		trace.WithAttributes(attribute.String("session_id", sess.ID().String())),
	)
	defer span.End()

	v, err, shared := w.ensure.Do(sess.ID().String(), func() (any, error) {
		return w.resolveRecord(ctx, sess)
	})
	span.SetAttributes(attribute.Bool("coalesced", shared))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Kind(err))
		return domain.RecordID{}, err
	}
	return v.(domain.RecordID), nil
}

func (w *Wizard) resolveRecord(ctx context.Context, sess *domain.WizardSession) (domain.RecordID, error) {
	w.mu.Lock()
	if id := sess.RecordID(); !id.IsEmpty() {
		w.mu.Unlock()
		return id, nil
	}
	fields := sess.Fields()
	current := sess.CurrentStep()
	resumed := sess.Resumed()
	w.mu.Unlock()

	rawKey := fields.Text(w.keyField)

	// Only a session restored from the draft may take the draft's record. A fresh
	// session must not inherit a record left behind by an earlier pass.
	if resumed {
		if snap, ok := w.drafts.Load(ctx); ok && !snap.RecordID.IsEmpty() {
			if id, adopted := w.adoptFromDraft(ctx, sess, snap, rawKey); adopted {
				return id, nil
			}
		}
	}

	key, err := domain.NormalizeNaturalKey(rawKey)
	if err != nil {
		return domain.RecordID{}, domain.NewValidationError(current, domain.Violation{
			Field:   w.keyField,
			Label:   w.keyLabel(),
			Message: err.Error(),
		})
	}

	existing, found, err := w.records.FindIDByNaturalKey(ctx, key)
	if err != nil {
		return domain.RecordID{}, classify(ctx, "find record by national ID", err)
	}
	if found {
		metrics.RecordEnsured("adopted")
		logging.InfoContext(ctx, "adopting existing record for national ID",
			"record_id", existing.String(), "national_id", key.Masked())
		return w.adopt(ctx, sess, existing, key), nil
	}

	creation := w.steps.CreationStep()
	if v := creation.Validate(fields); len(v) > 0 {
		return domain.RecordID{}, domain.NewValidationError(creation.Number, v...)
	}

	id, err := w.records.Create(ctx, key, fields)
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			return w.adoptWinner(ctx, sess, key, conflict)
		}
		return domain.RecordID{}, classify(ctx, "create record", err)
	}

	metrics.RecordEnsured("created")
	return w.adopt(ctx, sess, id, key), nil
}

// adoptFromDraft takes the draft's record id for a resumed session unless the
// draft now belongs to another national ID, which happens when another tab of the
// same client started over and saved in between.
func (w *Wizard) adoptFromDraft(ctx context.Context, sess *domain.WizardSession, snap domain.DraftSnapshot, rawKey string) (domain.RecordID, bool) {
	draftKey, draftErr := domain.NormalizeNaturalKey(snap.Fields.Text(w.keyField))
	sessionKey, sessionErr := domain.NormalizeNaturalKey(rawKey)

	key := draftKey
	switch {
	case rawKey == "":
	case sessionErr == nil && (draftErr != nil || sessionKey == draftKey):
		key = sessionKey
	default:
		logging.InfoContext(ctx, "ignoring draft record id for a different national ID",
			"record_id", snap.RecordID.String())
		return domain.RecordID{}, false
	}

	metrics.RecordEnsured("resumed")
	return w.adopt(ctx, sess, snap.RecordID, key), true
}

// adoptWinner resolves a lost create race by looking the key up again.
func (w *Wizard) adoptWinner(ctx context.Context, sess *domain.WizardSession, key domain.NaturalKey, conflict *domain.ConflictError) (domain.RecordID, error) {
	metrics.RecordCreateConflict()
	winner := conflict.ExistingID
	if winner.IsEmpty() {
		id, found, err := w.records.FindIDByNaturalKey(ctx, key)
		if err != nil {
			return domain.RecordID{}, classify(ctx, "find record after conflict", err)
		}
		if !found {
			logging.ErrorContext(ctx, "conflicting record not found on re-lookup", "national_id", key.Masked())
			return domain.RecordID{}, fmt.Errorf("resolve create conflict: %w", domain.ErrUnavailable)
		}
		winner = id
	}
	metrics.RecordEnsured("adopted")
	logging.InfoContext(ctx, "create lost natural key race, adopting winner",
		"record_id", winner.String(), "national_id", key.Masked())
	return w.adopt(ctx, sess, winner, key), nil
}

// adopt binds the record to the session and writes the draft before returning.
// If the session was replaced meanwhile, the id is returned but not bound.
func (w *Wizard) adopt(ctx context.Context, sess *domain.WizardSession, id domain.RecordID, key domain.NaturalKey) domain.RecordID {
	w.mu.Lock()
	if err := sess.AssignRecord(id, key); err != nil {
		id = sess.RecordID()
	}
	current := w.session == sess
	w.mu.Unlock()

	if current {
		w.persist(ctx, false)
	}
	return id
}

// SaveDraft makes sure the record exists and stores the current fields as a draft.
// The session stays open.
func (w *Wizard) SaveDraft(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "wizard.SaveDraft")
	defer span.End()

	err := w.saveDraft(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Kind(err))
	}
	return err
}

func (w *Wizard) saveDraft(ctx context.Context) error {
	id, err := w.EnsureRecordExists(ctx)
	if err != nil {
		return err
	}

	w.autosave.Cancel()
	w.persistMu.Lock()
	defer w.persistMu.Unlock()

	w.mu.Lock()
	snap := w.session.Snapshot()
	w.mu.Unlock()

	if err := w.records.Update(ctx, id, domain.RecordStatusDraft, snap.Fields); err != nil {
		return classify(ctx, "save draft", err)
	}
	w.drafts.Save(ctx, snap)
	logging.InfoContext(ctx, "draft saved", "record_id", id.String(), "step", snap.CurrentStep)
	return nil
}

// Submit finishes the wizard from the last step. On success the record is submitted,
// its members are expanded, the draft is cleared and a fresh session begins. On any
// failure the session is kept for a retry.
func (w *Wizard) Submit(ctx context.Context) (domain.RecordID, error) {
	ctx, span := tracer.Start(ctx, "wizard.Submit")
	defer span.End()

	id, err := w.submit(ctx)
	metrics.RecordSubmission(Kind(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Kind(err))
		return domain.RecordID{}, err
	}
	span.SetAttributes(attribute.String("record_id", id.String()))
	return id, nil
}

func (w *Wizard) submit(ctx context.Context) (domain.RecordID, error) {
	w.mu.Lock()
	sess := w.session
	step := sess.CurrentStep()
	last := sess.IsLastStep()
	fields := sess.Fields()
	w.mu.Unlock()

	if !last {
		return domain.RecordID{}, domain.NewValidationError(step, domain.Violation{
			Label:   "Final step",
			Message: "submit is only allowed on the last step",
		})
	}
	if err := w.steps.Validate(step, fields); err != nil {
		return domain.RecordID{}, err
	}

	id, err := w.EnsureRecordExists(ctx)
	if err != nil {
		return domain.RecordID{}, err
	}

	// A pending autosave would write the record back as a draft after the submit
	// landed, so it is dropped here and persistMu is held until the session is reset.
	w.autosave.Cancel()
	w.persistMu.Lock()

	// Fields may have changed while the record was being resolved.
	w.mu.Lock()
	fields = sess.Fields()
	w.mu.Unlock()

	if err := w.records.Update(ctx, id, domain.RecordStatusSubmitted, fields); err != nil {
		w.writeLocked(ctx, false)
		w.persistMu.Unlock()
		return domain.RecordID{}, classify(ctx, "submit record", err)
	}
	if err := w.records.ExpandIntoRelatedRecords(ctx, id, fields); err != nil {
		w.writeLocked(ctx, false)
		w.persistMu.Unlock()
		return domain.RecordID{}, classify(ctx, "expand household members", err)
	}

	w.resetLocked(ctx, sess)
	w.persistMu.Unlock()

	if err := w.notifier.RecordSubmitted(ctx, id); err != nil {
		logging.WarnContext(ctx, "submit notification failed", "record_id", id.String(), "error", err)
	}
	logging.InfoContext(ctx, "wizard submitted", "record_id", id.String())
	return id, nil
}

// Discard drops the draft and starts over at step 1. No repository calls are made.
func (w *Wizard) Discard(ctx context.Context) domain.SessionView {
	w.mu.Lock()
	sess := w.session
	w.mu.Unlock()

	w.reset(ctx, sess)
	logging.InfoContext(ctx, "wizard discarded")
	return w.Session()
}

// reset clears the draft and replaces sess with a fresh session, unless sess has
// already been replaced.
func (w *Wizard) reset(ctx context.Context, sess *domain.WizardSession) {
	w.autosave.Cancel()
	w.persistMu.Lock()
	defer w.persistMu.Unlock()
	w.resetLocked(ctx, sess)
}

// resetLocked is reset for callers already holding persistMu. Edits that arrived
// while the lock was held have scheduled a new autosave, which is dropped too.
func (w *Wizard) resetLocked(ctx context.Context, sess *domain.WizardSession) {
	w.autosave.Cancel()
	w.drafts.Clear(ctx)
	w.mu.Lock()
	if w.session == sess {
		w.session = domain.NewWizardSession(w.steps.Count())
	}
	w.mu.Unlock()
}

// persist writes the current snapshot to the draft store. With remote set and a
// record bound, the fields are also pushed to the repository as a draft; failures
// there are logged only.
func (w *Wizard) persist(ctx context.Context, remote bool) {
	w.persistMu.Lock()
	defer w.persistMu.Unlock()
	w.writeLocked(ctx, remote)
}

func (w *Wizard) writeLocked(ctx context.Context, remote bool) bool {
	w.mu.Lock()
	snap := w.session.Snapshot()
	w.mu.Unlock()

	w.drafts.Save(ctx, snap)
	if !remote || snap.RecordID.IsEmpty() {
		return true
	}
	if err := w.records.Update(ctx, snap.RecordID, domain.RecordStatusDraft, snap.Fields); err != nil {
		logging.WarnContext(ctx, "background record update failed",
			"record_id", snap.RecordID.String(), "kind", Kind(classify(ctx, "autosave record", err)))
		return false
	}
	return true
}

func (w *Wizard) flushAutosave(ctx context.Context, generation uint64) {
	w.persistMu.Lock()
	defer w.persistMu.Unlock()
	if !w.autosave.IsCurrent(generation) {
		return
	}
	if w.writeLocked(ctx, true) {
		metrics.RecordAutosaveFlush("ok")
	} else {
		metrics.RecordAutosaveFlush("remote_failed")
	}
}

// AutosavePending reports whether edits are waiting for the debounce to expire.
func (w *Wizard) AutosavePending() bool {
	return w.autosave.Pending()
}

// Flush runs a pending autosave now instead of waiting for the timer.
func (w *Wizard) Flush(ctx context.Context) {
	if w.autosave.Cancel() {
		w.persist(ctx, true)
	}
}

func (w *Wizard) keyLabel() string {
	for _, spec := range w.steps.CreationStep().Required {
		if spec.Name == w.keyField {
			return spec.Label
		}
	}
	return w.keyField
}
