// Package schedule provides cancelable timed tasks whose callbacks run under
// a caller-supplied lock. Every (re)arm bumps a generation counter and a fire
// that observes a newer generation than the one it was armed with does
// nothing, so a cancel that races an in-flight fire always wins.
package schedule

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// Deferred runs a function once after a delay. Schedule replaces any pending
// run. All methods must be called with the guard held.
type Deferred struct {
	clock clock.WithDelayedExecution
	guard sync.Locker

	gen   uint64
	timer clock.Timer
}

// NewDeferred returns an idle Deferred whose callbacks run with guard held.
func NewDeferred(clk clock.WithDelayedExecution, guard sync.Locker) *Deferred {
	return &Deferred{clock: clk, guard: guard}
}

// Schedule arms fn to run after d, canceling a pending run.
func (d *Deferred) Schedule(after time.Duration, fn func()) {
	d.stop()
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(after, func() {
		d.guard.Lock()
		defer d.guard.Unlock()
		if gen != d.gen || d.timer == nil {
			return
		}
		d.timer = nil
		fn()
	})
}

// Cancel drops the pending run, if any. It reports whether one was pending.
func (d *Deferred) Cancel() bool {
	pending := d.timer != nil
	d.stop()
	d.gen++
	return pending
}

// Pending reports whether a run is armed and has not fired yet.
func (d *Deferred) Pending() bool {
	return d.timer != nil
}

func (d *Deferred) stop() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Repeating runs a function on every tick of a fixed interval until stopped.
// All methods must be called with the guard held.
type Repeating struct {
	clock clock.WithTicker
	guard sync.Locker

	gen  uint64
	stop chan struct{}
}

// NewRepeating returns an idle Repeating whose callbacks run with guard held.
func NewRepeating(clk clock.WithTicker, guard sync.Locker) *Repeating {
	return &Repeating{clock: clk, guard: guard}
}

// Start begins calling fn every interval. It returns false and keeps the
// current schedule if the task is already running.
func (r *Repeating) Start(every time.Duration, fn func()) bool {
	if r.stop != nil {
		return false
	}

	r.gen++
	gen := r.gen
	stop := make(chan struct{})
	r.stop = stop
	ticker := r.clock.NewTicker(every)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				r.guard.Lock()
				if gen != r.gen {
					r.guard.Unlock()
					return
				}
				fn()
				r.guard.Unlock()
			}
		}
	}()

	return true
}

// Stop halts the task. It reports whether the task was running.
func (r *Repeating) Stop() bool {
	if r.stop == nil {
		return false
	}
	close(r.stop)
	r.stop = nil
	r.gen++
	return true
}

// Running reports whether the task is started.
func (r *Repeating) Running() bool {
	return r.stop != nil
}
