package handle

import (
	"sync"

	"github.com/wippyai/scriptlib/errors"
)

// arena stores entries in generation-checked slots.
// A slot's generation is bumped when its entry is invalidated, so refs issued
// before that point resolve to a destroyed error instead of to the next occupant.
type arena struct {
	slots    []slot
	freeList []uint32
	byKey    map[Key]uint32
	mu       sync.RWMutex
	closed   bool
}

type slot struct {
	entry Entry
	gen   uint32
	live  bool
}

func newArena() *arena {
	return &arena{
		slots:    make([]slot, 0, 64),
		freeList: make([]uint32, 0, 16),
		byKey:    make(map[Key]uint32),
	}
}

// issue returns the live ref for e.Key or allocates one. The boolean is true
// when a new ref was allocated.
func (a *arena) issue(e Entry) (Ref, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return Ref{}, false, errors.New(errors.PhaseResolve, errors.KindInvalidState).
			Detail("handle table closed").
			Build()
	}

	if idx, ok := a.byKey[e.Key]; ok {
		return Ref{Index: idx + 1, Gen: a.slots[idx].gen}, false, nil
	}

	var idx uint32
	if n := len(a.freeList); n > 0 {
		idx = a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
	} else {
		a.slots = append(a.slots, slot{gen: 1})
		idx = uint32(len(a.slots) - 1)
	}

	s := &a.slots[idx]
	s.entry = e
	s.live = true
	a.byKey[e.Key] = idx

	return Ref{Index: idx + 1, Gen: s.gen}, true, nil
}

func (a *arena) resolve(r Ref) (Entry, error) {
	if r.IsZero() {
		return Entry{}, errors.InvalidHandle(errors.PhaseResolve, r.String())
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	idx := r.Index - 1
	if int(idx) >= len(a.slots) {
		return Entry{}, errors.InvalidHandle(errors.PhaseResolve, r.String())
	}

	s := a.slots[idx]
	switch {
	case s.live && s.gen == r.Gen:
		return s.entry, nil
	case generationBefore(r.Gen, s.gen):
		return Entry{}, errors.Destroyed(errors.PhaseResolve, r.String())
	default:
		return Entry{}, errors.InvalidHandle(errors.PhaseResolve, r.String())
	}
}

func (a *arena) lookup(k Key) (Ref, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	idx, ok := a.byKey[k]
	if !ok {
		return Ref{}, false
	}
	return Ref{Index: idx + 1, Gen: a.slots[idx].gen}, true
}

// invalidate kills every live entry matched by fn and returns what was killed.
func (a *arena) invalidate(fn func(Entry) bool) []Event {
	a.mu.Lock()
	defer a.mu.Unlock()

	var events []Event
	for i := range a.slots {
		s := &a.slots[i]
		if !s.live || !fn(s.entry) {
			continue
		}
		events = append(events, Event{
			Type:  EventInvalidated,
			Ref:   Ref{Index: uint32(i) + 1, Gen: s.gen},
			Entry: s.entry,
		})
		a.kill(uint32(i))
	}
	return events
}

func (a *arena) kill(idx uint32) {
	s := &a.slots[idx]
	delete(a.byKey, s.entry.Key)
	s.live = false
	s.entry = Entry{}
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	a.freeList = append(a.freeList, idx)
}

func (a *arena) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}

func (a *arena) len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.byKey)
}

func (a *arena) each(fn func(Ref, Entry) bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for i, s := range a.slots {
		if s.live {
			if !fn(Ref{Index: uint32(i) + 1, Gen: s.gen}, s.entry) {
				break
			}
		}
	}
}

// generationBefore reports whether a was issued before b, tolerating wrap-around.
func generationBefore(a, b uint32) bool {
	return a != 0 && int32(b-a) > 0
}
