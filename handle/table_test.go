package handle

import (
	"sync"
	"testing"

	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/native"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnHandleEvent(e Event) {
	o.events = append(o.events, e)
}

func entity(id native.ID) native.Handle {
	return native.Handle{Scene: 1, Object: id}
}

func TestTable_Basic(t *testing.T) {
	table := NewTable()

	ref, err := table.IssueEntity(entity(7))
	if err != nil {
		t.Fatalf("IssueEntity failed: %v", err)
	}
	if ref.IsZero() {
		t.Fatal("Expected non-zero ref")
	}

	entry, err := table.Resolve(ref)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if entry.Handle != entity(7) || entry.Kind != KindEntity {
		t.Fatalf("Resolve = %+v", entry)
	}

	again, err := table.IssueEntity(entity(7))
	if err != nil {
		t.Fatalf("IssueEntity failed: %v", err)
	}
	if again != ref {
		t.Fatalf("Expected same ref for same handle, got %v and %v", ref, again)
	}

	if table.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", table.Len())
	}
}

func TestTable_IssueZeroHandle(t *testing.T) {
	table := NewTable()
	if _, err := table.IssueEntity(native.Handle{}); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Fatalf("Expected invalid input, got %v", err)
	}
}

func TestTable_DestroyedVsInvalid(t *testing.T) {
	table := NewTable()

	ref, _ := table.IssueEntity(entity(1))
	if n := table.Invalidate(entity(1)); n != 1 {
		t.Fatalf("Invalidate = %d, want 1", n)
	}

	_, err := table.Resolve(ref)
	if !errors.IsKind(err, errors.KindDestroyed) {
		t.Fatalf("Expected destroyed, got %v", err)
	}

	tests := []struct {
		name string
		ref  Ref
	}{
		{"zero", Ref{}},
		{"out of range", Ref{Index: 99, Gen: 1}},
		{"future generation", Ref{Index: ref.Index, Gen: ref.Gen + 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := table.Resolve(tt.ref)
			if !errors.IsKind(err, errors.KindInvalidHandle) {
				t.Errorf("Expected invalid handle, got %v", err)
			}
		})
	}
}

func TestTable_SlotReuseKeepsOldRefDead(t *testing.T) {
	table := NewTable()

	old, _ := table.IssueEntity(entity(1))
	table.Invalidate(entity(1))

	fresh, _ := table.IssueEntity(entity(2))
	if fresh.Index != old.Index {
		t.Fatalf("Expected slot reuse, got index %d and %d", old.Index, fresh.Index)
	}
	if fresh.Gen == old.Gen {
		t.Fatal("Expected generation bump on reuse")
	}

	if _, err := table.Resolve(old); !errors.IsKind(err, errors.KindDestroyed) {
		t.Fatalf("Old ref should stay destroyed, got %v", err)
	}
	entry, err := table.Resolve(fresh)
	if err != nil || entry.Handle != entity(2) {
		t.Fatalf("Resolve(fresh) = %+v, %v", entry, err)
	}
}

func TestTable_OwnerInvalidation(t *testing.T) {
	table := NewTable()

	ent, _ := table.IssueEntity(entity(1))
	comp, _ := table.Issue(Key{Handle: entity(1), Kind: KindComponent, Tag: 1}, entity(1))
	other, _ := table.Issue(Key{Handle: entity(40), Kind: KindComponent, Tag: 2}, entity(1))
	asset, _ := table.Issue(Key{Handle: native.Handle{Object: 500}, Kind: KindAsset}, native.Handle{})

	if ent == comp {
		t.Fatal("Entity and component sharing a handle must get distinct refs")
	}

	if n := table.Invalidate(entity(1)); n != 3 {
		t.Fatalf("Invalidate = %d, want 3", n)
	}
	for _, r := range []Ref{ent, comp, other} {
		if _, err := table.Resolve(r); !errors.IsKind(err, errors.KindDestroyed) {
			t.Errorf("Resolve(%v) should be destroyed, got %v", r, err)
		}
	}
	if _, err := table.Resolve(asset); err != nil {
		t.Errorf("Unrelated asset was invalidated: %v", err)
	}
}

func TestTable_Lookup(t *testing.T) {
	table := NewTable()

	if _, ok := table.LookupEntity(entity(3)); ok {
		t.Fatal("Lookup should not issue")
	}
	ref, _ := table.IssueEntity(entity(3))
	got, ok := table.LookupEntity(entity(3))
	if !ok || got != ref {
		t.Fatalf("LookupEntity = %v, %v", got, ok)
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	ref, _ := table.IssueEntity(entity(1))
	table.IssueEntity(entity(1))
	if len(obs.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventIssued || obs.events[0].Ref != ref {
		t.Fatalf("Unexpected event %+v", obs.events[0])
	}

	table.Invalidate(entity(1))
	if len(obs.events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(obs.events))
	}
	if obs.events[1].Type != EventInvalidated || obs.events[1].Entry.Handle != entity(1) {
		t.Fatalf("Unexpected event %+v", obs.events[1])
	}

	table.Unsubscribe(obs)
	table.IssueEntity(entity(2))
	if len(obs.events) != 2 {
		t.Fatal("Should not receive events after Unsubscribe")
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	a, _ := table.IssueEntity(entity(1))
	table.IssueEntity(entity(2))

	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("Len() = %d after Close", table.Len())
	}
	if _, err := table.Resolve(a); !errors.IsKind(err, errors.KindDestroyed) {
		t.Fatalf("Expected destroyed after Close, got %v", err)
	}
	if _, err := table.IssueEntity(entity(3)); !errors.IsKind(err, errors.KindInvalidState) {
		t.Fatalf("Expected Issue to fail after Close, got %v", err)
	}
	if len(obs.events) != 4 {
		t.Fatalf("Expected 2 issued + 2 invalidated events, got %d", len(obs.events))
	}
}

func TestTable_Each(t *testing.T) {
	table := NewTable()
	for i := native.ID(1); i <= 5; i++ {
		table.IssueEntity(entity(i))
	}
	table.Invalidate(entity(3))

	seen := 0
	table.Each(func(r Ref, e Entry) bool {
		if e.Handle == entity(3) {
			t.Errorf("Each visited invalidated entry")
		}
		seen++
		return true
	})
	if seen != 4 {
		t.Fatalf("Each visited %d, want 4", seen)
	}

	seen = 0
	table.Each(func(Ref, Entry) bool {
		seen++
		return false
	})
	if seen != 1 {
		t.Fatalf("Each should stop early, visited %d", seen)
	}
}

func TestTable_Concurrent(t *testing.T) {
	table := NewTable()
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				h := entity(native.ID(g*1000 + i + 1))
				ref, err := table.IssueEntity(h)
				if err != nil {
					t.Errorf("IssueEntity: %v", err)
					return
				}
				if _, err := table.Resolve(ref); err != nil {
					t.Errorf("Resolve: %v", err)
					return
				}
				if i%2 == 0 {
					table.Invalidate(h)
				}
			}
		}(g)
	}
	wg.Wait()

	if table.Len() != 400 {
		t.Fatalf("Len() = %d, want 400", table.Len())
	}
}

func TestGenerationBefore(t *testing.T) {
	tests := []struct {
		a, b uint32
		want bool
	}{
		{1, 2, true},
		{2, 1, false},
		{3, 3, false},
		{0, 5, false},
		{0xFFFFFFFF, 1, true},
	}
	for _, tt := range tests {
		if got := generationBefore(tt.a, tt.b); got != tt.want {
			t.Errorf("generationBefore(%d, %d) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
