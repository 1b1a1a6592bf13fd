package behaviors

import (
	"context"
	"testing"

	"github.com/wippyai/scriptlib/host"
	"github.com/wippyai/scriptlib/marshal"
	"github.com/wippyai/scriptlib/native"
	"github.com/wippyai/scriptlib/native/sim"
	"github.com/wippyai/scriptlib/vec"
)

type fixture struct {
	eng    *sim.Engine
	h      *host.Host
	ground native.Handle
	box    native.Handle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	eng := sim.New()
	scene := eng.NewScene()
	ground, err := eng.Spawn(scene, sim.EntitySpec{
		Name:     "Ground",
		Actor:    native.ActorStatic,
		Collider: &sim.ColliderSpec{HalfExtents: vec.Vector3{X: 10, Y: 0.5, Z: 10}, Trigger: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	box, err := eng.Spawn(scene, sim.EntitySpec{
		Name:     "Box",
		Position: vec.Vector3{Y: 3},
		Actor:    native.ActorDynamic,
		Collider: &sim.ColliderSpec{HalfExtents: vec.Splat3(0.5)},
	})
	if err != nil {
		t.Fatal(err)
	}
	h := host.New(eng, scene)
	if err := Register(h); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return &fixture{eng: eng, h: h, ground: ground, box: box}
}

func (f *fixture) attach(t *testing.T, entity native.Handle, name string) host.InstanceID {
	t.Helper()
	id, err := f.h.AttachBehavior(entity, name)
	if err != nil {
		t.Fatalf("AttachBehavior(%s) error = %v", name, err)
	}
	return id
}

func (f *fixture) tick(t *testing.T, n int, dt float32) {
	t.Helper()
	for i := 0; i < n; i++ {
		stats, err := f.h.Tick(context.Background(), dt)
		if err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
		if stats.Faults != 0 {
			t.Fatalf("frame %d: %d faults", stats.Frame, stats.Faults)
		}
	}
}

func (f *fixture) messages() []string {
	var out []string
	for _, l := range f.eng.Logs() {
		out = append(out, l.Level.String()+" "+l.Message)
	}
	return out
}

func (f *fixture) y(t *testing.T) float32 {
	t.Helper()
	p, err := f.eng.Position(f.box)
	if err != nil {
		t.Fatal(err)
	}
	return p.Y
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRegister_Types(t *testing.T) {
	f := newFixture(t)
	if got := len(f.h.Types(host.KindBehavior)); got != 4 {
		t.Fatalf("behavior types = %d, want 4", got)
	}
	if got := len(f.h.Types(host.KindSystem)); got != 1 {
		t.Fatalf("system types = %d, want 1", got)
	}
}

func TestSpinner(t *testing.T) {
	f := newFixture(t)
	f.attach(t, f.box, "Spinner")
	f.tick(t, 1, 0.5)

	q, err := f.eng.Rotation(f.box)
	if err != nil {
		t.Fatal(err)
	}
	want := vec.FromEuler(0.5, 0, 0)
	if d := q.Y - want.Y; d > 1e-5 || d < -1e-5 {
		t.Fatalf("rotation = %+v, want %+v", q, want)
	}
}

func TestSpawner(t *testing.T) {
	f := newFixture(t)
	f.eng.AddPrefab("Crate", sim.EntitySpec{Name: "Crate"})
	id := f.attach(t, f.ground, "Spawner")
	for name, v := range map[string]any{"Prefab": "Crate", "Interval": 0.5, "Limit": 2} {
		if err := f.h.SetField(id, name, v); err != nil {
			t.Fatalf("SetField(%s) error = %v", name, err)
		}
	}

	f.tick(t, 4, 0.5)

	if got := len(f.h.World().Entities()); got != 4 {
		t.Fatalf("entities = %d, want 4", got)
	}
	want := []string{"trace spawned Crate #1", "trace spawned Crate #2"}
	if got := f.messages(); !equal(got, want) {
		t.Fatalf("logs = %v, want %v", got, want)
	}
	crate, ok := f.h.World().FindEntity("Crate")
	if !ok {
		t.Fatal("crate not found")
	}
	if p, err := crate.Position(); err != nil || p != (vec.Vector3{Y: 2}) {
		t.Fatalf("crate position = %+v, %v", p, err)
	}
}

func TestSpawner_MissingPrefabFaults(t *testing.T) {
	f := newFixture(t)
	f.attach(t, f.ground, "Spawner")
	stats, err := f.h.Tick(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Faults != 1 {
		t.Fatalf("faults = %d, want 1", stats.Faults)
	}
}

func TestKillzone(t *testing.T) {
	f := newFixture(t)
	f.attach(t, f.ground, "Killzone")
	f.tick(t, 1, 0.1)

	if err := f.h.DispatchTrigger(context.Background(), f.ground, f.box, true); err != nil {
		t.Fatal(err)
	}
	if got, want := f.messages(), []string{"warn killzone destroyed Box"}; !equal(got, want) {
		t.Fatalf("logs = %v, want %v", got, want)
	}
	if _, err := f.eng.Position(f.box); err == nil {
		t.Fatal("box should be destroyed")
	}
}

func TestJumper(t *testing.T) {
	f := newFixture(t)
	id := f.attach(t, f.box, "Jumper")
	ctx := context.Background()
	f.eng.SetKey(int32(marshal.KeySpace), true)

	f.tick(t, 1, 0.1)
	if y := f.y(t); y != 3 {
		t.Fatalf("y = %v, want 3 while airborne", y)
	}

	if err := f.h.DispatchCollision(ctx, f.ground, f.box, true); err != nil {
		t.Fatal(err)
	}
	f.tick(t, 1, 0.1)
	if y := f.y(t); y != 5 {
		t.Fatalf("y = %v, want 5 after jump", y)
	}
	f.tick(t, 1, 0.1)
	if y := f.y(t); y != 5 {
		t.Fatalf("y = %v, want 5 until landing again", y)
	}

	ok, err := f.h.Invoke(ctx, id, "Jump")
	if err != nil || !ok {
		t.Fatalf("Invoke(Jump) = %v, %v", ok, err)
	}
	if y := f.y(t); y != 7 {
		t.Fatalf("y = %v, want 7 after invoked jump", y)
	}
}

func TestCensus(t *testing.T) {
	f := newFixture(t)
	id, err := f.h.AddSystem("Census", host.NameSelector("Box"))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.h.SetField(id, "Every", 2); err != nil {
		t.Fatal(err)
	}
	if err := f.h.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.tick(t, 4, 0.1)

	want := []string{"trace scene loaded with 2 entities", "trace census 1", "trace census 1"}
	if got := f.messages(); !equal(got, want) {
		t.Fatalf("logs = %v, want %v", got, want)
	}
}
