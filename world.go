package scriptlib

import (
	"go.uber.org/zap"

	"github.com/wippyai/scriptlib/handle"
	"github.com/wippyai/scriptlib/marshal"
	"github.com/wippyai/scriptlib/native"
	"github.com/wippyai/scriptlib/vec"
)

// Template is anything World.Instantiate can clone: an Entity or a Prefab.
type Template interface {
	templateHandle() (native.Handle, error)
}

// World is the scene-scoped API available to every hook.
type World struct {
	b *Binding
}

// Instantiate spawns a copy of t at the given position.
func (w World) Instantiate(t Template, at vec.Vector3) (Entity, error) {
	h, err := t.templateHandle()
	if err != nil {
		return Entity{}, err
	}
	nh, err := w.b.engine.Instantiate(h, at)
	if err != nil {
		return Entity{}, w.b.nativeErr("World", "Instantiate", err)
	}
	return w.b.Entity(nh)
}

// Destroy destroys an entity. See Entity.Destroy.
func (w World) Destroy(e Entity) error {
	return e.Destroy()
}

// FindEntity returns the first entity in the scene with the given name.
func (w World) FindEntity(name string) (Entity, bool) {
	h, ok := w.b.engine.Find(w.b.scene, name)
	if !ok {
		return Entity{}, false
	}
	e, err := w.b.Entity(h)
	if err != nil {
		w.b.misconfigured("entity not issued", zap.String("entity", name), zap.Error(err))
		return Entity{}, false
	}
	return e, true
}

// EntityByRef returns the entity proxy for a ref received as a scalar. See
// Binding.EntityByRef.
func (w World) EntityByRef(ref handle.Ref) Entity {
	return w.b.EntityByRef(ref)
}

// Entities returns every live entity of the scene.
func (w World) Entities() []Entity {
	hs := w.b.engine.Entities(w.b.scene)
	out := make([]Entity, 0, len(hs))
	for _, h := range hs {
		e, err := w.b.Entity(h)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Raycast casts a ray into the scene. No hit is reported as
// (RaycastHit{}, false, nil).
func (w World) Raycast(origin, direction vec.Vector3, maxDistance float32) (RaycastHit, bool, error) {
	hit, ok, err := w.b.engine.Raycast(w.b.scene, origin, direction, maxDistance)
	if err != nil {
		return RaycastHit{}, false, w.b.nativeErr("World", "Raycast", err)
	}
	if !ok {
		return RaycastHit{}, false, nil
	}
	e, err := w.b.Entity(hit.Object)
	if err != nil {
		return RaycastHit{}, false, err
	}
	return RaycastHit{Object: e, Distance: hit.Distance}, true, nil
}

// StartPhysics resumes the physics simulation.
func (w World) StartPhysics() error {
	if err := w.b.engine.SetSimulating(true); err != nil {
		return w.b.nativeErr("World", "StartPhysics", err)
	}
	return nil
}

// StopPhysics pauses the physics simulation.
func (w World) StopPhysics() error {
	if err := w.b.engine.SetSimulating(false); err != nil {
		return w.b.nativeErr("World", "StopPhysics", err)
	}
	return nil
}

func (w World) Input() Input { return Input{b: w.b} }

func (w World) Log() Log { return Log{sink: w.b.engine} }

// System returns the scene's system registered under name.
func (w World) System(name string) (any, bool) {
	if w.b.systems == nil {
		return nil, false
	}
	return w.b.systems.System(name)
}

// SystemOf returns the scene's system registered under name if it has type T.
func SystemOf[T any](w World, name string) (T, bool) {
	var zero T
	s, ok := w.System(name)
	if !ok {
		return zero, false
	}
	v, ok := s.(T)
	return v, ok
}

func (w World) Mesh(name string) (Mesh, bool) {
	p, ok := w.b.lookupAsset(native.AssetMesh, name)
	return Mesh{p}, ok
}

func (w World) Material(name string) (Material, bool) {
	p, ok := w.b.lookupAsset(native.AssetMaterial, name)
	return Material{p}, ok
}

func (w World) Audio(name string) (Audio, bool) {
	p, ok := w.b.lookupAsset(native.AssetAudio, name)
	return Audio{p}, ok
}

func (w World) Prefab(name string) (Prefab, bool) {
	p, ok := w.b.lookupAsset(native.AssetPrefab, name)
	return Prefab{p}, ok
}

// Input queries keyboard and mouse state for the current frame.
type Input struct {
	b *Binding
}

// IsKeyDown reports whether k is held. Codes outside the key table are
// reported as not held.
func (i Input) IsKeyDown(k marshal.Key) bool {
	if !k.Valid() {
		i.b.misconfigured("unknown key code", zap.Int32("code", int32(k)))
		return false
	}
	return i.b.engine.KeyDown(int32(k))
}

func (i Input) IsMouseButtonDown(m marshal.MouseKey) bool {
	if !m.Valid() {
		i.b.misconfigured("unknown mouse button", zap.Int32("code", int32(m)))
		return false
	}
	return i.b.engine.MouseButtonDown(int32(m))
}

func (i Input) MousePosition() vec.Vector2 { return i.b.engine.MousePosition() }

func (i Input) MouseDelta() vec.Vector2 { return i.b.engine.MouseDelta() }

func (i Input) ScrollDelta() float64 { return i.b.engine.ScrollDelta() }

// Log writes script messages to the engine's log sink.
type Log struct {
	sink native.LogSink
}

func (l Log) Trace(msg string) { l.sink.Trace(msg) }

func (l Log) Warn(msg string) { l.sink.Warn(msg) }

func (l Log) Error(msg string) { l.sink.Error(msg) }
