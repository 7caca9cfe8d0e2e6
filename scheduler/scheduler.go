// Package scheduler provides the wake-up mechanism driving periodic
// cleanup sweeps. Each actor instance owns a single pending wake-up
// timestamp; when it comes due, the scheduler fires a callback.
package scheduler

import (
	"context"
	"sync"
	"time"
)

// Scheduler holds at most one future wake-up timestamp and fires a
// callback when it comes due. Setting a new wake-up replaces any
// pending one.
type Scheduler interface {
	// SetWake schedules (or reschedules) the wake-up for the given time.
	SetWake(ctx context.Context, at time.Time) error

	// Wake returns the pending wake-up time, or the zero time if none
	// is pending.
	Wake(ctx context.Context) (time.Time, error)

	// Stop cancels any pending wake-up and releases resources.
	Stop()
}

// Timer is an in-process Scheduler backed by time.Timer.
type Timer struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending time.Time
	fire    func()
}

// NewTimer creates a timer scheduler that invokes fire when a wake-up
// comes due. The callback runs on the timer goroutine.
func NewTimer(fire func()) *Timer {
	return &Timer{fire: fire}
}

// SetWake implements Scheduler.
func (t *Timer) SetWake(ctx context.Context, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.pending = at

	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		t.pending = time.Time{}
		t.mu.Unlock()
		t.fire()
	})
	return nil
}

// Wake implements Scheduler.
func (t *Timer) Wake(ctx context.Context) (time.Time, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending, nil
}

// Stop implements Scheduler.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.pending = time.Time{}
}

// Manual is a Scheduler for tests: wake-ups never fire on their own,
// the test triggers them with Fire.
type Manual struct {
	mu      sync.Mutex
	pending time.Time
	fire    func()
}

// NewManual creates a manual scheduler invoking fire on Fire.
func NewManual(fire func()) *Manual {
	return &Manual{fire: fire}
}

// SetWake implements Scheduler.
func (m *Manual) SetWake(ctx context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = at
	return nil
}

// Wake implements Scheduler.
func (m *Manual) Wake(ctx context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending, nil
}

// Stop implements Scheduler.
func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = time.Time{}
}

// Fire clears the pending wake-up and invokes the callback, simulating
// the wake-up coming due.
func (m *Manual) Fire() {
	m.mu.Lock()
	m.pending = time.Time{}
	fire := m.fire
	m.mu.Unlock()

	if fire != nil {
		fire()
	}
}
