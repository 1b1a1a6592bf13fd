package handle

import (
	"sync"

	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/native"
)

// Table maps native object identities to generation-checked refs and tracks
// which of the refs it issued have been destroyed.
type Table struct {
	arena     *arena
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{arena: newArena()}
}

// Issue returns the ref for key, allocating one if the key has no live ref.
// The same live key always yields the same ref, so refs compare equal exactly
// when they address the same native object.
func (t *Table) Issue(key Key, owner native.Handle) (Ref, error) {
	if key.Handle.IsZero() {
		return Ref{}, errors.InvalidInput(errors.PhaseResolve, "cannot issue a ref for the zero handle")
	}

	e := Entry{Key: key, Owner: owner}
	ref, created, err := t.arena.issue(e)
	if err != nil {
		return Ref{}, err
	}
	if created {
		t.notify(Event{Type: EventIssued, Ref: ref, Entry: e})
	}
	return ref, nil
}

// IssueEntity is Issue for an entity handle.
func (t *Table) IssueEntity(h native.Handle) (Ref, error) {
	return t.Issue(Key{Handle: h, Kind: KindEntity}, native.Handle{})
}

// Resolve returns the entry of a live ref. A ref whose object was destroyed
// yields a KindDestroyed error; a ref that was never issued yields
// KindInvalidHandle.
func (t *Table) Resolve(r Ref) (Entry, error) {
	return t.arena.resolve(r)
}

// Lookup returns the live ref for key without issuing one.
func (t *Table) Lookup(key Key) (Ref, bool) {
	return t.arena.lookup(key)
}

// LookupEntity is Lookup for an entity handle.
func (t *Table) LookupEntity(h native.Handle) (Ref, bool) {
	return t.arena.lookup(Key{Handle: h, Kind: KindEntity})
}

// Invalidate destroys every ref issued for h, and every ref owned by h.
// It returns the number of refs invalidated.
func (t *Table) Invalidate(h native.Handle) int {
	events := t.arena.invalidate(func(e Entry) bool {
		return e.Handle == h || e.Owner == h
	})
	for _, ev := range events {
		t.notify(ev)
	}
	return len(events)
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live refs.
func (t *Table) Len() int {
	return t.arena.len()
}

// Each iterates over all live refs until fn returns false.
func (t *Table) Each(fn func(Ref, Entry) bool) {
	t.arena.each(fn)
}

// Close invalidates every live ref and stops issuing new ones.
func (t *Table) Close() error {
	events := t.arena.invalidate(func(Entry) bool { return true })
	t.arena.close()
	for _, ev := range events {
		t.notify(ev)
	}
	return nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	obs := make([]Observer, len(t.observers))
	copy(obs, t.observers)
	t.obsMu.RUnlock()

	for _, o := range obs {
		o.OnHandleEvent(e)
	}
}
