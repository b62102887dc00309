package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"kir/internal/common/events"
	"kir/internal/kir/domain"
)

// DataStore implements domain.AtomicExecutor and domain.Repositories in memory.
// Atomic stages writes and commits them only when the callback succeeds.
// Concurrency: all access is serialized by one mutex, so SetIfAbsent on the
// natural key index is trivially race free.
type DataStore struct {
	mu          sync.Mutex
	records     map[string]storedRecord
	naturalKeys map[string]domain.NaturalKeyEntry
	members     map[string][]domain.HouseholdMember
	outbox      []*domain.OutboxEntry
	now         func() time.Time
}

// storedRecord is a detached copy so callers cannot mutate committed state.
type storedRecord struct {
	id        domain.RecordID
	key       domain.NaturalKey
	status    domain.RecordStatus
	fields    domain.Fields
	version   int
	createdAt time.Time
	updatedAt time.Time
}

func storeRecord(r *domain.Record) storedRecord {
	return storedRecord{
		id:        r.ID(),
		key:       r.NaturalKey(),
		status:    r.Status(),
		fields:    r.Fields(),
		version:   r.Version(),
		createdAt: r.CreatedAt(),
		updatedAt: r.UpdatedAt(),
	}
}

func (s storedRecord) load() *domain.Record {
	return domain.ReconstructRecord(s.id, s.key, s.status, s.fields.Clone(), s.version, s.createdAt, s.updatedAt)
}

// NewDataStore creates a new in-memory DataStore.
func NewDataStore() *DataStore {
	return &DataStore{
		records:     make(map[string]storedRecord),
		naturalKeys: make(map[string]domain.NaturalKeyEntry),
		members:     make(map[string][]domain.HouseholdMember),
		now:         time.Now,
	}
}

// Records returns a record store outside any transaction.
func (ds *DataStore) Records() domain.RecordStore { return directRepos{ds}.Records() }

// NaturalKeys returns the uniqueness index outside any transaction.
func (ds *DataStore) NaturalKeys() domain.NaturalKeyIndex { return directRepos{ds}.NaturalKeys() }

// Members returns the member store outside any transaction.
func (ds *DataStore) Members() domain.MemberStore { return directRepos{ds}.Members() }

// Outbox returns the outbox outside any transaction.
func (ds *DataStore) Outbox() domain.OutboxRepository { return directRepos{ds}.Outbox() }

// Atomic executes the callback atomically.
// It locks the store, runs the callback against a transactional snapshot,
// and commits staged changes only if the callback succeeds.
// Concurrency: the store is locked for the duration of the callback.
func (ds *DataStore) Atomic(ctx context.Context, fn domain.AtomicCallback) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.atomicLocked(fn)
}

func (ds *DataStore) atomicLocked(fn domain.AtomicCallback) error {
	tx := &transaction{
		parent:      ds,
		records:     make(map[string]storedRecord),
		naturalKeys: make(map[string]domain.NaturalKeyEntry),
		members:     make(map[string][]domain.HouseholdMember),
		published:   make(map[string]time.Time),
	}

	if err := fn(tx); err != nil {
		return err
	}

	for k, v := range tx.records {
		ds.records[k] = v
	}
	for k, v := range tx.naturalKeys {
		ds.naturalKeys[k] = v
	}
	for k, v := range tx.members {
		ds.members[k] = v
	}
	ds.outbox = append(ds.outbox, tx.outbox...)
	for _, e := range ds.outbox {
		if at, ok := tx.published[e.ID.String()]; ok {
			e.PublishedAt = &at
		}
	}
	return nil
}

// directRepos runs each call as its own single-statement transaction.
type directRepos struct {
	ds *DataStore
}

func (d directRepos) Records() domain.RecordStore         { return directRecords(d) }
func (d directRepos) NaturalKeys() domain.NaturalKeyIndex { return directKeys(d) }
func (d directRepos) Members() domain.MemberStore         { return directMembers(d) }
func (d directRepos) Outbox() domain.OutboxRepository     { return directOutbox(d) }

type directRecords directRepos

func (d directRecords) Save(ctx context.Context, r *domain.Record) error {
	return d.ds.Atomic(ctx, func(repos domain.Repositories) error { return repos.Records().Save(ctx, r) })
}

func (d directRecords) FindByID(ctx context.Context, id domain.RecordID) (*domain.Record, error) {
	var out *domain.Record
	err := d.ds.Atomic(ctx, func(repos domain.Repositories) error {
		var err error
		out, err = repos.Records().FindByID(ctx, id)
		return err
	})
	return out, err
}

type directKeys directRepos

func (d directKeys) Get(ctx context.Context, key domain.NaturalKey) (*domain.NaturalKeyEntry, error) {
	var out *domain.NaturalKeyEntry
	err := d.ds.Atomic(ctx, func(repos domain.Repositories) error {
		var err error
		out, err = repos.NaturalKeys().Get(ctx, key)
		return err
	})
	return out, err
}

func (d directKeys) SetIfAbsent(ctx context.Context, entry *domain.NaturalKeyEntry) (bool, *domain.NaturalKeyEntry, error) {
	var (
		created  bool
		existing *domain.NaturalKeyEntry
	)
	err := d.ds.Atomic(ctx, func(repos domain.Repositories) error {
		var err error
		created, existing, err = repos.NaturalKeys().SetIfAbsent(ctx, entry)
		return err
	})
	return created, existing, err
}

type directMembers directRepos

func (d directMembers) ReplaceForRecord(ctx context.Context, id domain.RecordID, members []domain.HouseholdMember) error {
	return d.ds.Atomic(ctx, func(repos domain.Repositories) error {
		return repos.Members().ReplaceForRecord(ctx, id, members)
	})
}

func (d directMembers) ListByRecord(ctx context.Context, id domain.RecordID) ([]domain.HouseholdMember, error) {
	var out []domain.HouseholdMember
	err := d.ds.Atomic(ctx, func(repos domain.Repositories) error {
		var err error
		out, err = repos.Members().ListByRecord(ctx, id)
		return err
	})
	return out, err
}

type directOutbox directRepos

func (d directOutbox) Append(ctx context.Context, entry *domain.OutboxEntry) error {
	return d.ds.Atomic(ctx, func(repos domain.Repositories) error { return repos.Outbox().Append(ctx, entry) })
}

func (d directOutbox) FetchUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEntry, error) {
	var out []*domain.OutboxEntry
	err := d.ds.Atomic(ctx, func(repos domain.Repositories) error {
		var err error
		out, err = repos.Outbox().FetchUnpublished(ctx, limit)
		return err
	})
	return out, err
}

func (d directOutbox) MarkPublished(ctx context.Context, ids []events.EventID) error {
	return d.ds.Atomic(ctx, func(repos domain.Repositories) error { return repos.Outbox().MarkPublished(ctx, ids) })
}

// transaction provides isolation for one Atomic call.
type transaction struct {
	parent      *DataStore
	records     map[string]storedRecord
	naturalKeys map[string]domain.NaturalKeyEntry
	members     map[string][]domain.HouseholdMember
	outbox      []*domain.OutboxEntry
	published   map[string]time.Time
}

func (tx *transaction) Records() domain.RecordStore         { return txRecords{tx} }
func (tx *transaction) NaturalKeys() domain.NaturalKeyIndex { return txKeys{tx} }
func (tx *transaction) Members() domain.MemberStore         { return txMembers{tx} }
func (tx *transaction) Outbox() domain.OutboxRepository     { return txOutbox{tx} }

type txRecords struct{ tx *transaction }

// Save inserts at version 1 or updates when the stored version is exactly one behind.
func (r txRecords) Save(_ context.Context, rec *domain.Record) error {
	key := rec.ID().String()
	current, exists := r.tx.records[key]
	if !exists {
		current, exists = r.tx.parent.records[key]
	}
	switch {
	case !exists && rec.Version() != 1:
		return domain.ErrOptimisticLock
	case exists && current.version != rec.Version()-1:
		return domain.ErrOptimisticLock
	}
	r.tx.records[key] = storeRecord(rec)
	return nil
}

func (r txRecords) FindByID(_ context.Context, id domain.RecordID) (*domain.Record, error) {
	key := id.String()
	// Check staged first
	if rec, ok := r.tx.records[key]; ok {
		return rec.load(), nil
	}
	if rec, ok := r.tx.parent.records[key]; ok {
		return rec.load(), nil
	}
	return nil, domain.ErrRecordNotFound
}

type txKeys struct{ tx *transaction }

func (k txKeys) Get(_ context.Context, key domain.NaturalKey) (*domain.NaturalKeyEntry, error) {
	if e, ok := k.tx.naturalKeys[key.String()]; ok {
		return &e, nil
	}
	if e, ok := k.tx.parent.naturalKeys[key.String()]; ok {
		return &e, nil
	}
	return nil, nil
}

func (k txKeys) SetIfAbsent(ctx context.Context, entry *domain.NaturalKeyEntry) (bool, *domain.NaturalKeyEntry, error) {
	existing, _ := k.Get(ctx, entry.Key)
	if existing != nil {
		return false, existing, nil
	}
	k.tx.naturalKeys[entry.Key.String()] = *entry
	return true, entry, nil
}

type txMembers struct{ tx *transaction }

func (m txMembers) ReplaceForRecord(_ context.Context, id domain.RecordID, members []domain.HouseholdMember) error {
	cp := slices.Clone(members)
	if cp == nil {
		cp = []domain.HouseholdMember{}
	}
	m.tx.members[id.String()] = cp
	return nil
}

func (m txMembers) ListByRecord(_ context.Context, id domain.RecordID) ([]domain.HouseholdMember, error) {
	if ms, ok := m.tx.members[id.String()]; ok {
		return slices.Clone(ms), nil
	}
	return slices.Clone(m.tx.parent.members[id.String()]), nil
}

type txOutbox struct{ tx *transaction }

func (o txOutbox) Append(_ context.Context, entry *domain.OutboxEntry) error {
	o.tx.outbox = append(o.tx.outbox, entry)
	return nil
}

func (o txOutbox) FetchUnpublished(_ context.Context, limit int) ([]*domain.OutboxEntry, error) {
	var entries []*domain.OutboxEntry
	for _, entry := range o.tx.parent.outbox {
		if entry.PublishedAt == nil {
			entries = append(entries, entry)
			if len(entries) >= limit {
				break
			}
		}
	}
	return entries, nil
}

func (o txOutbox) MarkPublished(_ context.Context, ids []events.EventID) error {
	now := o.tx.parent.now()
	for _, id := range ids {
		o.tx.published[id.String()] = now
	}
	return nil
}

// Verify interface implementations
var (
	_ domain.AtomicExecutor = (*DataStore)(nil)
	_ domain.Repositories   = (*DataStore)(nil)
)
