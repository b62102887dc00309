package application

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"kir/internal/common/logging"
	vo "kir/internal/common/value_objects"
	"kir/internal/kir/domain"
)

// SessionManager keeps one Wizard per client. A wizard is hydrated from the
// client's draft the first time it is requested.
type SessionManager struct {
	records domain.RecordRepository
	storage domain.DraftStorage
	clock   Clock
	opts    []Option

	create  singleflight.Group
	mu      sync.Mutex
	wizards map[string]*managedWizard
}

type managedWizard struct {
	wizard   *Wizard
	lastUsed time.Time
}

// NewSessionManager creates a manager. opts are applied to every wizard it builds.
func NewSessionManager(records domain.RecordRepository, storage domain.DraftStorage, clock Clock, opts ...Option) *SessionManager {
	if clock == nil {
		clock = SystemClock{}
	}
	return &SessionManager{
		records: records,
		storage: storage,
		clock:   clock,
		opts:    append([]Option{WithClock(clock)}, opts...),
		wizards: make(map[string]*managedWizard),
	}
}

// Get returns the client's wizard, creating and resuming it if needed. A new
// wizard is published only after it has resumed from the draft, and concurrent
// first requests for one client share that single resume.
func (m *SessionManager) Get(ctx context.Context, clientID vo.ClientID) (*Wizard, error) {
	if w, ok := m.lookup(clientID); ok {
		return w, nil
	}

	v, err, _ := m.create.Do(clientID.String(), func() (any, error) {
		if w, ok := m.lookup(clientID); ok {
			return w, nil
		}
		w, err := NewWizard(m.records, NewDraftStore(m.storage, clientID), m.opts...)
		if err != nil {
			return nil, err
		}
		// The resume is shared by every waiting request, so one caller's
		// cancellation must not cut it short.
		w.Resume(context.WithoutCancel(ctx))

		m.mu.Lock()
		m.wizards[clientID.String()] = &managedWizard{wizard: w, lastUsed: m.clock.Now()}
		m.mu.Unlock()
		return w, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Wizard), nil
}

func (m *SessionManager) lookup(clientID vo.ClientID) (*Wizard, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mw, ok := m.wizards[clientID.String()]
	if !ok {
		return nil, false
	}
	mw.lastUsed = m.clock.Now()
	return mw.wizard, true
}

// Len returns the number of live wizards.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.wizards)
}

// EvictIdle flushes and forgets wizards unused for longer than idle. Their drafts
// stay in storage, so the client resumes on its next request.
func (m *SessionManager) EvictIdle(ctx context.Context, idle time.Duration) int {
	cutoff := m.clock.Now().Add(-idle)

	m.mu.Lock()
	var evicted []*Wizard
	for id, mw := range m.wizards {
		if mw.lastUsed.Before(cutoff) {
			evicted = append(evicted, mw.wizard)
			delete(m.wizards, id)
		}
	}
	m.mu.Unlock()

	for _, w := range evicted {
		w.Flush(ctx)
	}
	if len(evicted) > 0 {
		logging.DebugContext(ctx, "evicted idle wizards", "count", len(evicted))
	}
	return len(evicted)
}

// Run evicts idle wizards every interval until ctx is done.
func (m *SessionManager) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle(ctx, idle)
		}
	}
}

// Shutdown flushes every pending autosave.
func (m *SessionManager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	wizards := make([]*Wizard, 0, len(m.wizards))
	for _, mw := range m.wizards {
		wizards = append(wizards, mw.wizard)
	}
	m.mu.Unlock()

	for _, w := range wizards {
		w.Flush(ctx)
	}
}
