package debounce

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDelay is used when a non-positive delay is requested.
const DefaultDelay = 500 * time.Millisecond

const (
	statePending int32 = iota
	stateFired
	stateCancelled
)

// PendingLookup is a scheduled but not yet fired invocation.
type PendingLookup struct {
	value string
	timer *time.Timer
	state atomic.Int32
}

// Value returns the input the lookup was scheduled with.
func (p *PendingLookup) Value() string {
	return p.value
}

// Cancel stops the lookup if it has not fired yet. It is safe to call on a nil,
// fired, or already cancelled lookup and reports whether this call cancelled it.
func (p *PendingLookup) Cancel() bool {
	if p == nil || !p.state.CompareAndSwap(statePending, stateCancelled) {
		return false
	}
	p.timer.Stop()

	return true
}

// Fired reports whether the action has been dispatched.
func (p *PendingLookup) Fired() bool {
	return p.state.Load() == stateFired
}

// Debouncer coalesces rapid calls into a single delayed action keyed by the
// latest value. At most one lookup is pending per Debouncer.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	pending *PendingLookup
}

// New creates a Debouncer whose default delay is delay, or DefaultDelay when
// delay is not positive.
func New(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}

	return &Debouncer{delay: delay}
}

// Delay returns the debouncer's default delay.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Schedule cancels any pending lookup and arranges for action(value) to run
// after delay. A non-positive delay falls back to the debouncer default.
//
// An empty value is ignored: nothing is scheduled and the pending lookup, if
// any, keeps running. The returned lookup is nil in that case.
func (d *Debouncer) Schedule(value string, delay time.Duration, action func(string)) *PendingLookup {
	if value == "" {
		return nil
	}
	if delay <= 0 {
		delay = d.delay
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending.Cancel()

	lookup := &PendingLookup{value: value}
	lookup.timer = time.AfterFunc(delay, func() {
		if !lookup.state.CompareAndSwap(statePending, stateFired) {
			return
		}
		d.release(lookup)
		action(value)
	})
	d.pending = lookup

	return lookup
}

// Pending reports whether a lookup is scheduled and has not fired yet.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.pending != nil && d.pending.state.Load() == statePending
}

// Cancel drops the pending lookup, if any. Calling it repeatedly is harmless.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending.Cancel()
	d.pending = nil
}

func (d *Debouncer) release(lookup *PendingLookup) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending == lookup {
		d.pending = nil
	}
}
