// Package optimistic tracks in-flight edits of records and what should be displayed for them
// before and after the server settles.
package optimistic

import (
	"fmt"
	"sync"
)

type State int

const (
	Viewing State = iota
	Editing
	Submitting
	Failed
)

func (s State) String() string {
	switch s {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrInvalidTransition is returned when an event does not apply to the record's current state.
type ErrInvalidTransition struct {
	From  State
	Event string
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("optimistic: cannot %s while %s", e.Event, e.From)
}

type Record[V any] struct {
	State     State
	Confirmed V // last known good value
	Pending   V // value submitted and not yet confirmed
	Err       error
}

// Display returns the pending value while submitting and the confirmed one otherwise.
func (r Record[V]) Display() V {
	if r.State == Submitting {
		return r.Pending
	}
	return r.Confirmed
}

// Controller holds one Record per key. It is safe for concurrent use.
type Controller[K comparable, V any] struct {
	mu      sync.Mutex
	records map[K]*Record[V]
}

func NewController[K comparable, V any]() *Controller[K, V] {
	return &Controller[K, V]{records: make(map[K]*Record[V])}
}

// Load sets the confirmed value of k (e.g. after a data refresh) and puts it back to Viewing,
// unless a submission is in flight.
func (c *Controller[K, V]) Load(k K, confirmed V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[k]
	if !ok {
		c.records[k] = &Record[V]{State: Viewing, Confirmed: confirmed}
		return
	}
	rec.Confirmed = confirmed
	if rec.State != Submitting {
		rec.State = Viewing
		rec.Err = nil
	}
}

// Edit: Viewing -> Editing.
func (c *Controller[K, V]) Edit(k K) error {
	return c.transition(k, "edit", func(rec *Record[V]) bool {
		if rec.State != Viewing {
			return false
		}
		rec.State = Editing
		return true
	})
}

// Cancel: Editing -> Viewing.
func (c *Controller[K, V]) Cancel(k K) error {
	return c.transition(k, "cancel", func(rec *Record[V]) bool {
		if rec.State != Editing {
			return false
		}
		rec.State = Viewing
		return true
	})
}

// Submit: Editing|Viewing -> Submitting, displaying pending right away.
func (c *Controller[K, V]) Submit(k K, pending V) error {
	return c.transition(k, "submit", func(rec *Record[V]) bool {
		if rec.State != Editing && rec.State != Viewing {
			return false
		}
		rec.State = Submitting
		rec.Pending = pending
		rec.Err = nil
		return true
	})
}

// Settle: Submitting -> Viewing with the value the server confirmed.
func (c *Controller[K, V]) Settle(k K, confirmed V) error {
	return c.transition(k, "settle", func(rec *Record[V]) bool {
		if rec.State != Submitting {
			return false
		}
		var zero V
		rec.State = Viewing
		rec.Confirmed = confirmed
		rec.Pending = zero
		return true
	})
}

// Fail: Submitting -> Failed. The display falls back to the last known good value.
func (c *Controller[K, V]) Fail(k K, err error) error {
	return c.transition(k, "fail", func(rec *Record[V]) bool {
		if rec.State != Submitting {
			return false
		}
		rec.State = Failed
		rec.Err = err
		return true
	})
}

// Revert: Failed -> Viewing, dropping the rejected value.
func (c *Controller[K, V]) Revert(k K) error {
	return c.transition(k, "revert", func(rec *Record[V]) bool {
		if rec.State != Failed {
			return false
		}
		var zero V
		rec.State = Viewing
		rec.Pending = zero
		return true
	})
}

// Forget drops the record of k.
func (c *Controller[K, V]) Forget(k K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, k)
}

// Len returns the number of tracked records.
func (c *Controller[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Get returns a copy of the record of k.
func (c *Controller[K, V]) Get(k K) (Record[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[k]
	if !ok {
		return Record[V]{}, false
	}
	return *rec, true
}

func (c *Controller[K, V]) Display(k K) (V, bool) {
	rec, ok := c.Get(k)
	return rec.Display(), ok
}

func (c *Controller[K, V]) transition(k K, event string, apply func(rec *Record[V]) bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[k]
	if !ok {
		rec = &Record[V]{State: Viewing}
		c.records[k] = rec
	}
	from := rec.State
	if !apply(rec) {
		return ErrInvalidTransition{From: from, Event: event}
	}
	return nil
}
