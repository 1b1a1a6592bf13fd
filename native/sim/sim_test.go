package sim

import (
	"errors"
	"testing"

	"github.com/wippyai/scriptlib/native"
	"github.com/wippyai/scriptlib/vec"
)

func groundAndBox(t *testing.T, e *Engine) (native.ID, native.Handle, native.Handle) {
	t.Helper()
	scene := e.NewScene()
	ground, err := e.Spawn(scene, EntitySpec{
		Name:     "Ground",
		Actor:    native.ActorStatic,
		Collider: &ColliderSpec{HalfExtents: vec.Vector3{X: 10, Y: 0.5, Z: 10}},
	})
	if err != nil {
		t.Fatalf("Spawn ground: %v", err)
	}
	box, err := e.Spawn(scene, EntitySpec{
		Name:     "Box",
		Position: vec.Vector3{Y: 3},
		Actor:    native.ActorDynamic,
		Gravity:  true,
		Collider: &ColliderSpec{HalfExtents: vec.Splat3(0.5)},
	})
	if err != nil {
		t.Fatalf("Spawn box: %v", err)
	}
	return scene, ground, box
}

func TestEngine_VersionedIDs(t *testing.T) {
	e := New()
	scene := e.NewScene()

	a, _ := e.Spawn(scene, EntitySpec{Name: "a"})
	if err := e.Destroy(a); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	b, _ := e.Spawn(scene, EntitySpec{Name: "b"})

	if uint32(a.Object) != uint32(b.Object) {
		t.Fatalf("Expected slot reuse, got %v and %v", a, b)
	}
	if a == b {
		t.Fatal("Recycled slot must not repeat an id")
	}
	if _, err := e.Name(a); !errors.Is(err, ErrNoObject) {
		t.Fatalf("Expected ErrNoObject for stale id, got %v", err)
	}
	if name, err := e.Name(b); err != nil || name != "b" {
		t.Fatalf("Name = %q, %v", name, err)
	}
}

func TestEngine_Components(t *testing.T) {
	e := New()
	scene, ground, box := groundAndBox(t, e)
	cam, _ := e.Spawn(scene, EntitySpec{Name: "Cam", Camera: true})

	tests := []struct {
		name string
		h    native.Handle
		c    native.ComponentType
		want bool
	}{
		{"transform always", cam, native.ComponentTransform, true},
		{"static actor", ground, native.ComponentStaticActor, true},
		{"not dynamic", ground, native.ComponentDynamicActor, false},
		{"dynamic actor", box, native.ComponentDynamicActor, true},
		{"camera", cam, native.ComponentCamera, true},
		{"no renderer", box, native.ComponentMeshRenderer, false},
		{"collider", box, native.ComponentCollider, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := e.Component(tt.h, tt.c)
			if ok != tt.want {
				t.Fatalf("Component(%s) = %v, want %v", tt.c, ok, tt.want)
			}
		})
	}

	if fov, err := e.FoV(cam); err != nil || fov != 60 {
		t.Fatalf("FoV = %v, %v", fov, err)
	}
	if _, err := e.Mass(ground); !errors.Is(err, ErrNoComponent) {
		t.Fatalf("Mass on static actor should fail, got %v", err)
	}
}

func TestEngine_StepCollision(t *testing.T) {
	e := New()
	_, ground, box := groundAndBox(t, e)
	if err := e.SetSimulating(true); err != nil {
		t.Fatal(err)
	}

	var starts []Contact
	for i := 0; i < 120; i++ {
		for _, c := range e.Step(1.0 / 60) {
			if !c.Start {
				t.Fatalf("Unexpected contact end at step %d: %+v", i, c)
			}
			starts = append(starts, c)
		}
	}
	if len(starts) != 1 {
		t.Fatalf("Expected exactly one collision start, got %d", len(starts))
	}
	c := starts[0]
	if !(c.A == ground && c.B == box) || c.Trigger {
		t.Fatalf("Unexpected contact %+v", c)
	}

	pos, _ := e.Position(box)
	if pos.Y != 1 {
		t.Fatalf("Box should rest on the ground at y=1, got %v", pos.Y)
	}

	if err := e.Teleport(box, vec.Vector3{Y: 20}); err != nil {
		t.Fatal(err)
	}
	ends := e.Step(1.0 / 60)
	if len(ends) != 1 || ends[0].Start {
		t.Fatalf("Expected one contact end after teleport, got %+v", ends)
	}
}

func TestEngine_StepPaused(t *testing.T) {
	e := New()
	_, _, box := groundAndBox(t, e)
	e.Step(1)
	pos, _ := e.Position(box)
	if pos.Y != 3 {
		t.Fatalf("Box moved while physics stopped: %v", pos)
	}
}

func TestEngine_Trigger(t *testing.T) {
	e := New()
	scene := e.NewScene()
	zone, _ := e.Spawn(scene, EntitySpec{
		Name:     "Zone",
		Actor:    native.ActorStatic,
		Collider: &ColliderSpec{HalfExtents: vec.Splat3(1), Trigger: true},
	})
	player, _ := e.Spawn(scene, EntitySpec{
		Name:     "Player",
		Position: vec.Vector3{X: 5},
		Actor:    native.ActorDynamic,
		Collider: &ColliderSpec{HalfExtents: vec.Splat3(0.5)},
	})

	if got := e.Step(0.1); len(got) != 0 {
		t.Fatalf("Unexpected contacts %+v", got)
	}
	e.Teleport(player, vec.Vector3{})
	got := e.Step(0.1)
	if len(got) != 1 || !got[0].Trigger || !got[0].Start || got[0].A != zone || got[0].B != player {
		t.Fatalf("Expected trigger enter with zone first, got %+v", got)
	}
	pos, _ := e.Position(player)
	if pos != (vec.Vector3{}) {
		t.Fatalf("Trigger contact must not push the actor, got %v", pos)
	}
}

func TestEngine_Raycast(t *testing.T) {
	e := New()
	scene, ground, _ := groundAndBox(t, e)

	hit, ok, err := e.Raycast(scene, vec.Vector3{X: 5, Y: 10}, vec.Vector3{Y: -1}, 100)
	if err != nil || !ok {
		t.Fatalf("Raycast = %v, %v", ok, err)
	}
	if hit.Object != ground || hit.Distance != 9.5 {
		t.Fatalf("Unexpected hit %+v", hit)
	}

	hit, ok, _ = e.Raycast(scene, vec.Vector3{Y: 10}, vec.Vector3{Y: -2}, 100)
	if !ok || hit.Distance != 6.5 {
		t.Fatalf("Expected box hit at 6.5, got %+v %v", hit, ok)
	}

	if _, ok, _ := e.Raycast(scene, vec.Vector3{Y: 10}, vec.Vector3{Y: 1}, 100); ok {
		t.Fatal("Ray pointing away should miss")
	}
	if _, ok, _ := e.Raycast(scene, vec.Vector3{X: 5, Y: 10}, vec.Vector3{Y: -1}, 5); ok {
		t.Fatal("Ray shorter than the distance should miss")
	}
}

func TestEngine_Instantiate(t *testing.T) {
	e := New()
	scene, _, box := groundAndBox(t, e)
	crate := e.AddPrefab("Crate", EntitySpec{Name: "Crate", Actor: native.ActorDynamic})

	clone, err := e.Instantiate(box, vec.Vector3{X: 4})
	if err != nil {
		t.Fatalf("Instantiate entity: %v", err)
	}
	if name, _ := e.Name(clone); name != "Box" {
		t.Fatalf("Clone name = %q", name)
	}
	if pos, _ := e.Position(clone); pos != (vec.Vector3{X: 4}) {
		t.Fatalf("Clone position = %v", pos)
	}
	e.SetIsTrigger(clone, true)
	if trig, _ := e.IsTrigger(box); trig {
		t.Fatal("Clone must not share collider state with its template")
	}

	inst, err := e.Instantiate(crate, vec.Vector3{Z: 2})
	if err != nil {
		t.Fatalf("Instantiate prefab: %v", err)
	}
	if inst.Scene != scene {
		t.Fatalf("Prefab spawned into scene %d, want %d", inst.Scene, scene)
	}
	if got, ok := e.Find(scene, "Crate"); !ok || got != inst {
		t.Fatalf("Find(Crate) = %v, %v", got, ok)
	}
	if n := len(e.Entities(scene)); n != 4 {
		t.Fatalf("Entities = %d, want 4", n)
	}
}

func TestEngine_Audio(t *testing.T) {
	e := New()
	scene := e.NewScene()
	speaker, _ := e.Spawn(scene, EntitySpec{Name: "Speaker", AudioSource: true})
	clip := e.AddAsset(native.AssetAudio, "beep")

	inst, err := e.NewAudioInstance(speaker, clip)
	if err != nil {
		t.Fatalf("NewAudioInstance: %v", err)
	}
	e.Play(inst)
	if !e.Playing(inst) {
		t.Fatal("Expected instance to play")
	}
	e.Stop(inst)
	if e.Playing(inst) {
		t.Fatal("Expected instance to stop")
	}

	if err := e.OneShot(speaker, clip); err != nil {
		t.Fatal(err)
	}
	if len(e.OneShots()) != 1 {
		t.Fatal("Expected one one-shot")
	}
	if err := e.OneShot(speaker, native.Handle{Object: 999}); !errors.Is(err, ErrNoObject) {
		t.Fatalf("Unknown clip should fail, got %v", err)
	}
}

func TestEngine_Input(t *testing.T) {
	e := New()
	e.SetKey(87, true)
	e.MoveMouse(vec.Vector2{X: 10, Y: 5})
	e.MoveMouse(vec.Vector2{X: 12, Y: 4})

	if !e.KeyDown(87) || e.KeyDown(65) {
		t.Fatal("Key state mismatch")
	}
	if d := e.MouseDelta(); d != (vec.Vector2{X: 2, Y: -1}) {
		t.Fatalf("MouseDelta = %v", d)
	}
	e.ClearInput()
	if e.KeyDown(87) || e.MouseDelta() != (vec.Vector2{}) {
		t.Fatal("ClearInput should reset keys and deltas")
	}
	if e.MousePosition() != (vec.Vector2{X: 12, Y: 4}) {
		t.Fatal("ClearInput should keep the cursor position")
	}

	e.Warn("careful")
	if logs := e.Logs(); len(logs) != 1 || logs[0].Level != LevelWarn || logs[0].Message != "careful" {
		t.Fatalf("Logs = %+v", logs)
	}
}
