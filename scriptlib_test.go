package scriptlib

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/marshal"
	"github.com/wippyai/scriptlib/native"
	"github.com/wippyai/scriptlib/native/sim"
	"github.com/wippyai/scriptlib/vec"
)

type fixture struct {
	eng    *sim.Engine
	b      *Binding
	logs   *observer.ObservedLogs
	ground Entity
	box    Entity
}

type fakeBehaviors struct {
	byEntity map[native.Handle][]any
}

func (f *fakeBehaviors) Behavior(h native.Handle, name string) (any, bool) {
	for _, inst := range f.byEntity[h] {
		if n, ok := inst.(interface{ TypeName() string }); ok && n.TypeName() == name {
			return inst, true
		}
	}
	return nil, false
}

func (f *fakeBehaviors) Behaviors(h native.Handle) []any {
	return f.byEntity[h]
}

type mover struct{ Speed float32 }

func (*mover) TypeName() string { return "Mover" }

type unused struct{}

// shadow is a user behavior that shares a built-in component's name.
type shadow struct{}

func (*shadow) TypeName() string { return "Transform" }

func newFixture(t *testing.T, opts ...BindingOption) *fixture {
	t.Helper()
	eng := sim.New()
	scene := eng.NewScene()
	g, err := eng.Spawn(scene, sim.EntitySpec{
		Name:     "Ground",
		Actor:    native.ActorStatic,
		Collider: &sim.ColliderSpec{HalfExtents: vec.Vector3{X: 10, Y: 0.5, Z: 10}},
	})
	if err != nil {
		t.Fatal(err)
	}
	bx, err := eng.Spawn(scene, sim.EntitySpec{
		Name:        "Box",
		Position:    vec.Vector3{Y: 3},
		Actor:       native.ActorDynamic,
		Gravity:     true,
		Collider:    &sim.ColliderSpec{HalfExtents: vec.Splat3(0.5)},
		AudioSource: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	core, logs := observer.New(zap.DebugLevel)
	b := NewBinding(eng, scene, append([]BindingOption{WithLogger(zap.New(core))}, opts...)...)
	ground, err := b.Entity(g)
	if err != nil {
		t.Fatal(err)
	}
	box, err := b.Entity(bx)
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{eng: eng, b: b, logs: logs, ground: ground, box: box}
}

func TestTransform_RoundTrip(t *testing.T) {
	f := newFixture(t)

	tr, ok, err := f.box.Transform()
	if err != nil || !ok {
		t.Fatalf("Transform() = %v, %v", ok, err)
	}

	tests := []struct {
		name string
		set  func() error
		get  func() (any, error)
		want any
	}{
		{
			name: "position",
			set:  func() error { return tr.SetPosition(vec.Vector3{X: 1, Y: 2, Z: 3}) },
			get:  func() (any, error) { return tr.Position() },
			want: vec.Vector3{X: 1, Y: 2, Z: 3},
		},
		{
			name: "rotation",
			set:  func() error { return tr.SetRotation(vec.Quaternion{W: 0, X: 1}) },
			get:  func() (any, error) { return tr.Rotation() },
			want: vec.Quaternion{W: 0, X: 1},
		},
		{
			name: "scale",
			set:  func() error { return tr.SetScale(vec.Splat3(2)) },
			get:  func() (any, error) { return tr.Scale() },
			want: vec.Splat3(2),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.set(); err != nil {
				t.Fatalf("set failed: %v", err)
			}
			got, err := tt.get()
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPhysicsActor_Kinds(t *testing.T) {
	f := newFixture(t)

	box, ok, err := GetComponent[DynamicActor](f.box)
	if err != nil || !ok {
		t.Fatalf("GetComponent[DynamicActor] = %v, %v", ok, err)
	}
	if g, err := box.HasGravity(); err != nil || !g {
		t.Fatalf("HasGravity = %v, %v", g, err)
	}
	if err := box.SetHasGravity(false); err != nil {
		t.Fatalf("SetHasGravity failed: %v", err)
	}
	if g, _ := box.HasGravity(); g {
		t.Fatal("HasGravity should be false after SetHasGravity(false)")
	}
	if err := box.SetMass(4); err != nil {
		t.Fatal(err)
	}
	if m, _ := box.Mass(); m != 4 {
		t.Fatalf("Mass = %v", m)
	}

	if _, ok, _ := GetComponent[DynamicActor](f.ground); ok {
		t.Fatal("Ground must not resolve as a dynamic actor")
	}

	ground, ok, err := f.ground.Actor()
	if err != nil || !ok {
		t.Fatalf("Actor() = %v, %v", ok, err)
	}
	if k, _ := ground.Kind(); k != native.ActorStatic {
		t.Fatalf("Kind = %v", k)
	}
	if _, err := ground.HasGravity(); !errors.IsKind(err, errors.KindWrongKind) {
		t.Fatalf("Expected wrong kind on static actor, got %v", err)
	}
	if err := ground.TeleportTo(vec.Vector3{Y: -1}); err != nil {
		t.Fatalf("TeleportTo on static actor failed: %v", err)
	}
	if pos, _ := f.ground.Position(); pos != (vec.Vector3{Y: -1}) {
		t.Fatalf("Position after teleport = %v", pos)
	}
}

func TestEntity_Destroyed(t *testing.T) {
	f := newFixture(t)

	tr, _, _ := f.box.Transform()
	src, _, _ := f.box.AudioSource()
	clip := f.eng.AddAsset(native.AssetAudio, "beep")
	audio, ok := f.b.World().Audio("beep")
	if !ok {
		t.Fatal("audio asset not found")
	}
	inst, err := src.CreateInstance(audio)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	if err := inst.Play(); err != nil {
		t.Fatal(err)
	}
	_ = clip

	if err := f.box.Destroy(); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	checks := []struct {
		name string
		call func() error
	}{
		{"entity name", func() error { _, err := f.box.Name(); return err }},
		{"destroy twice", f.box.Destroy},
		{"transform", func() error { return tr.SetPosition(vec.Vector3{}) }},
		{"audio source", func() error { return src.SetVolume(0.5) }},
		{"audio instance", inst.Stop},
	}
	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			if err := c.call(); !errors.IsKind(err, errors.KindDestroyed) {
				t.Fatalf("Expected destroyed, got %v", err)
			}
		})
	}

	if f.box.Valid() {
		t.Fatal("Valid() should be false after Destroy")
	}
	if _, ok := f.b.World().FindEntity("Box"); ok {
		t.Fatal("Destroyed entity should not be found")
	}

	misuse := f.logs.FilterField(zap.String("category", CategoryInvalidHandle))
	if misuse.Len() != len(checks) {
		t.Fatalf("Expected %d invalid handle logs, got %d", len(checks), misuse.Len())
	}
	for _, e := range misuse.All() {
		if e.Level != zap.ErrorLevel {
			t.Fatalf("Invalid handle logged at %v", e.Level)
		}
	}
}

func TestEntity_ZeroValue(t *testing.T) {
	var e Entity
	if _, err := e.Name(); !errors.IsKind(err, errors.KindInvalidHandle) {
		t.Fatalf("Expected invalid handle, got %v", err)
	}
	if e.Valid() {
		t.Fatal("Zero entity must not be valid")
	}
	var c Camera
	if _, err := c.FoV(); !errors.IsKind(err, errors.KindInvalidHandle) {
		t.Fatalf("Expected invalid handle, got %v", err)
	}
}

func TestEntity_Equality(t *testing.T) {
	f := newFixture(t)

	found, ok := f.b.World().FindEntity("Box")
	if !ok {
		t.Fatal("FindEntity(Box) failed")
	}
	if found != f.box {
		t.Fatal("Proxies of the same entity must compare equal")
	}
	if found == f.ground {
		t.Fatal("Proxies of different entities must differ")
	}

	t1, _, _ := f.box.Transform()
	t2, _, _ := GetComponent[Transform](found)
	if t1 != t2 {
		t.Fatal("Transform proxies of the same entity must compare equal")
	}
}

func TestGetComponent_Precedence(t *testing.T) {
	behaviors := &fakeBehaviors{byEntity: map[native.Handle][]any{}}
	f := newFixture(t, WithBehaviors(behaviors))
	h, _ := f.box.Native()
	m := &mover{Speed: 2}
	behaviors.byEntity[h] = []any{m}

	got, ok, err := GetComponent[*mover](f.box)
	if err != nil || !ok || got != m {
		t.Fatalf("GetComponent[*mover] = %v, %v, %v", got, ok, err)
	}
	if _, ok, _ := GetComponent[*unused](f.box); ok {
		t.Fatal("Unattached behavior type should be absent")
	}
	if _, ok, _ := GetComponent[mover](f.box); ok {
		t.Fatal("Lookup must match the exact dynamic type")
	}
	if inst, ok, _ := f.box.Behavior("Mover"); !ok || inst != m {
		t.Fatalf("Behavior(Mover) = %v, %v", inst, ok)
	}

	if _, ok, err := GetComponent[Camera](f.box); ok || err != nil {
		t.Fatalf("Camera should be absent, got %v, %v", ok, err)
	}
	if _, ok, _ := GetComponent[PhysicsActor](f.box); !ok {
		t.Fatal("PhysicsActor should resolve dynamic actors")
	}
	if _, ok, _ := GetComponent[StaticActor](f.ground); !ok {
		t.Fatal("StaticActor should resolve on the ground")
	}
	if c, ok, _ := GetComponent[Collider](f.box); !ok {
		t.Fatal("Unnamed collider should resolve")
	} else if trig, _ := c.IsTrigger(); trig {
		t.Fatal("Box collider is not a trigger")
	}
}

func TestGetComponent_BuiltinShadowedByBehavior(t *testing.T) {
	behaviors := &fakeBehaviors{byEntity: map[native.Handle][]any{}}
	f := newFixture(t, WithBehaviors(behaviors))
	gh, _ := f.ground.Native()
	bh, err := f.eng.Spawn(gh.Scene, sim.EntitySpec{Name: "Marker", NoTransform: true})
	if err != nil {
		t.Fatal(err)
	}
	marker, err := f.b.Entity(bh)
	if err != nil {
		t.Fatal(err)
	}
	sh := &shadow{}
	behaviors.byEntity[bh] = []any{sh}

	if inst, ok, _ := marker.Behavior("Transform"); !ok || inst != sh {
		t.Fatalf("Behavior(Transform) = %v, %v", inst, ok)
	}

	tests := []struct {
		name string
		call func() (bool, error)
	}{
		{"GetComponent", func() (bool, error) {
			_, ok, err := GetComponent[Transform](marker)
			return ok, err
		}},
		{"Transform", func() (bool, error) {
			_, ok, err := marker.Transform()
			return ok, err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.call()
			if ok || err != nil {
				t.Fatalf("Transform should be absent, got %v, %v", ok, err)
			}
		})
	}
}

func TestEntity_PositionWithoutTransform(t *testing.T) {
	f := newFixture(t)
	gh, _ := f.ground.Native()
	bh, err := f.eng.Spawn(gh.Scene, sim.EntitySpec{Name: "Marker", NoTransform: true})
	if err != nil {
		t.Fatal(err)
	}
	marker, err := f.b.Entity(bh)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := marker.Position(); !errors.IsKind(err, errors.KindNotFound) {
		t.Fatalf("Position err = %v, want not found", err)
	}
	if err := marker.SetPosition(vec.Vector3{X: 1}); !errors.IsKind(err, errors.KindNotFound) {
		t.Fatalf("SetPosition err = %v, want not found", err)
	}
	if p, err := f.box.Position(); err != nil || p.Y != 3 {
		t.Fatalf("Box position = %v, %v", p, err)
	}
}

func TestWorld_Raycast(t *testing.T) {
	f := newFixture(t)
	w := f.b.World()

	hit, ok, err := w.Raycast(vec.Vector3{Y: 10}, vec.Vector3{Y: -1}, 100)
	if err != nil || !ok {
		t.Fatalf("Raycast = %v, %v", ok, err)
	}
	if hit.Object != f.box || hit.Distance != 6.5 {
		t.Fatalf("Unexpected hit %+v", hit)
	}

	hit, ok, err = w.Raycast(vec.Vector3{Y: 10}, vec.Vector3{Y: 1}, 100)
	if err != nil || ok || hit != (RaycastHit{}) {
		t.Fatalf("Miss should be absent, got %+v, %v, %v", hit, ok, err)
	}
}

func TestWorld_InstantiateAndAssets(t *testing.T) {
	f := newFixture(t)
	w := f.b.World()
	f.eng.AddPrefab("Crate", sim.EntitySpec{Name: "Crate", Renderer: true})
	f.eng.AddAsset(native.AssetMaterial, "Wood")

	prefab, ok := w.Prefab("Crate")
	if !ok {
		t.Fatal("Prefab(Crate) not found")
	}
	crate, err := prefab.Instantiate(vec.Vector3{X: 2})
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	if pos, _ := crate.Position(); pos != (vec.Vector3{X: 2}) {
		t.Fatalf("Crate position = %v", pos)
	}

	clone, err := w.Instantiate(f.box, vec.Vector3{Z: 5})
	if err != nil {
		t.Fatalf("Instantiate entity failed: %v", err)
	}
	if clone == f.box {
		t.Fatal("Clone must be a distinct entity")
	}

	r, ok, err := crate.MeshRenderer()
	if err != nil || !ok {
		t.Fatalf("MeshRenderer = %v, %v", ok, err)
	}
	if m, err := r.Material(); err != nil || m.Valid() {
		t.Fatalf("Unset material should be an invalid proxy, got %v, %v", m, err)
	}
	wood, _ := w.Material("Wood")
	if err := r.SetMaterial(wood); err != nil {
		t.Fatal(err)
	}
	if m, _ := r.Material(); m != wood {
		t.Fatal("Material proxies of the same asset must compare equal")
	}

	if _, ok := w.Mesh("missing"); ok {
		t.Fatal("Unknown mesh should be absent")
	}
	if len(w.Entities()) != 4 {
		t.Fatalf("Entities = %d", len(w.Entities()))
	}
}

func TestWorld_InputAndLog(t *testing.T) {
	f := newFixture(t)
	w := f.b.World()
	f.eng.SetKey(int32(marshal.KeyW), true)
	f.eng.SetMouseButton(int32(marshal.MouseLeft), true)

	in := w.Input()
	if !in.IsKeyDown(marshal.KeyW) || in.IsKeyDown(marshal.KeyA) {
		t.Fatal("Key state mismatch")
	}
	if !in.IsMouseButtonDown(marshal.MouseLeft) {
		t.Fatal("Mouse state mismatch")
	}
	if in.IsKeyDown(marshal.Key(2)) {
		t.Fatal("Unknown key must read as up")
	}
	if f.logs.FilterField(zap.String("category", CategoryMisconfiguration)).Len() != 1 {
		t.Fatal("Unknown key should be reported as misconfiguration")
	}

	if err := w.StartPhysics(); err != nil || !f.eng.Simulating() {
		t.Fatalf("StartPhysics = %v", err)
	}
	if err := w.StopPhysics(); err != nil || f.eng.Simulating() {
		t.Fatalf("StopPhysics = %v", err)
	}

	w.Log().Warn("hello")
	if logs := f.eng.Logs(); len(logs) != 1 || logs[0].Message != "hello" {
		t.Fatalf("Logs = %+v", logs)
	}
}

func TestCollisionEvent_Other(t *testing.T) {
	f := newFixture(t)
	ev := CollisionEvent{Object1: f.ground, Object2: f.box, Start: true}
	if ev.Other(f.ground) != f.box || ev.Other(f.box) != f.ground {
		t.Fatal("Other mismatch")
	}
}

func TestHook_Names(t *testing.T) {
	if h, ok := ParseHook("OnTriggerWasLeft"); !ok || h != HookTriggerWasLeft {
		t.Fatalf("ParseHook = %v, %v", h, ok)
	}
	if _, ok := ParseHook("OnFire"); ok {
		t.Fatal("Unknown hook should not parse")
	}
	set := HookInit | HookUpdate
	if set.String() != "Init|Update" || !set.Has(HookUpdate) || set.Has(HookShutdown) {
		t.Fatalf("Hook set %v", set)
	}
	if !HookAll.Has(HookSceneLoaded | HookInit) {
		t.Fatal("HookAll incomplete")
	}
}
