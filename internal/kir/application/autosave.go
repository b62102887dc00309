package application

import (
	"context"
	"sync"
	"time"
)

// Clock abstracts time so the debounce can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the part of *time.Timer the autosave needs.
type Timer interface {
	Stop() bool
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// autosave is a single cancel-and-reschedule timer. Every Schedule or Cancel bumps
// a generation counter; a flush only runs for the generation it was scheduled with,
// so a timer that fires after being replaced does nothing.
type autosave struct {
	clock Clock
	delay time.Duration
	flush func(ctx context.Context, generation uint64)

	mu         sync.Mutex
	timer      Timer
	generation uint64
}

func newAutosave(clock Clock, delay time.Duration, flush func(context.Context, uint64)) *autosave {
	return &autosave{clock: clock, delay: delay, flush: flush}
}

// Schedule replaces any pending flush with one due after the quiet period.
// The flush runs with ctx detached from cancellation; the request that triggered
// the edit is usually finished by then.
func (a *autosave) Schedule(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.generation++
	gen := a.generation
	a.timer = a.clock.AfterFunc(a.delay, func() { a.fire(ctx, gen) })
}

func (a *autosave) fire(ctx context.Context, gen uint64) {
	a.mu.Lock()
	if gen != a.generation {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	a.mu.Unlock()

	a.flush(ctx, gen)
}

// Cancel drops the pending flush and reports whether one was pending.
func (a *autosave) Cancel() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generation++
	if a.timer == nil {
		return false
	}
	a.timer.Stop()
	a.timer = nil
	return true
}

// Pending reports whether a flush is scheduled.
func (a *autosave) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}

// IsCurrent reports whether gen is still the latest generation. A flush checks this
// again once it holds the write lock, since Cancel may have run in between.
func (a *autosave) IsCurrent(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return gen == a.generation
}
