package scriptlib

import (
	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/handle"
	"github.com/wippyai/scriptlib/native"
	"github.com/wippyai/scriptlib/vec"
)

// Transform is an entity's position, rotation and scale.
type Transform struct{ proxy }

func (t Transform) Position() (vec.Vector3, error) {
	h, err := t.handle("Transform.Position")
	if err != nil {
		return vec.Vector3{}, err
	}
	v, err := t.b.engine.Position(h)
	if err != nil {
		return vec.Vector3{}, t.b.nativeErr("Transform", "Position", err)
	}
	return v, nil
}

func (t Transform) SetPosition(v vec.Vector3) error {
	h, err := t.handle("Transform.SetPosition")
	if err != nil {
		return err
	}
	if err := t.b.engine.SetPosition(h, v); err != nil {
		return t.b.nativeErr("Transform", "SetPosition", err)
	}
	return nil
}

func (t Transform) Rotation() (vec.Quaternion, error) {
	h, err := t.handle("Transform.Rotation")
	if err != nil {
		return vec.Quaternion{}, err
	}
	q, err := t.b.engine.Rotation(h)
	if err != nil {
		return vec.Quaternion{}, t.b.nativeErr("Transform", "Rotation", err)
	}
	return q, nil
}

func (t Transform) SetRotation(q vec.Quaternion) error {
	h, err := t.handle("Transform.SetRotation")
	if err != nil {
		return err
	}
	if err := t.b.engine.SetRotation(h, q); err != nil {
		return t.b.nativeErr("Transform", "SetRotation", err)
	}
	return nil
}

func (t Transform) Scale() (vec.Vector3, error) {
	h, err := t.handle("Transform.Scale")
	if err != nil {
		return vec.Vector3{}, err
	}
	v, err := t.b.engine.Scale(h)
	if err != nil {
		return vec.Vector3{}, t.b.nativeErr("Transform", "Scale", err)
	}
	return v, nil
}

func (t Transform) SetScale(v vec.Vector3) error {
	h, err := t.handle("Transform.SetScale")
	if err != nil {
		return err
	}
	if err := t.b.engine.SetScale(h, v); err != nil {
		return t.b.nativeErr("Transform", "SetScale", err)
	}
	return nil
}

// PhysicsActor is a rigid body, either static or dynamic. TeleportTo and
// Rotate apply to both kinds and bypass integration; the remaining accessors
// require a dynamic actor and fail with errors.KindWrongKind otherwise.
type PhysicsActor struct{ proxy }

// Kind reports whether the actor is static or dynamic.
func (a PhysicsActor) Kind() (native.ActorKind, error) {
	e, err := a.entry("PhysicsActor.Kind")
	if err != nil {
		return 0, err
	}
	return actorKind(e), nil
}

func actorKind(e handle.Entry) native.ActorKind {
	if native.ComponentType(e.Tag) == native.ComponentDynamicActor {
		return native.ActorDynamic
	}
	return native.ActorStatic
}

func (a PhysicsActor) dynamic(op string) (native.Handle, error) {
	target := "PhysicsActor." + op
	e, err := a.entry(target)
	if err != nil {
		return native.Handle{}, err
	}
	if k := actorKind(e); k != native.ActorDynamic {
		return native.Handle{}, errors.WrongKind(errors.PhaseBoundary, target, native.ActorDynamic.String(), k.String())
	}
	return e.Handle, nil
}

// TeleportTo moves the actor instantly.
func (a PhysicsActor) TeleportTo(v vec.Vector3) error {
	h, err := a.handle("PhysicsActor.TeleportTo")
	if err != nil {
		return err
	}
	if err := a.b.engine.Teleport(h, v); err != nil {
		return a.b.nativeErr("PhysicsActor", "TeleportTo", err)
	}
	return nil
}

// Rotate sets the actor's rotation instantly.
func (a PhysicsActor) Rotate(q vec.Quaternion) error {
	h, err := a.handle("PhysicsActor.Rotate")
	if err != nil {
		return err
	}
	if err := a.b.engine.Rotate(h, q); err != nil {
		return a.b.nativeErr("PhysicsActor", "Rotate", err)
	}
	return nil
}

func (a PhysicsActor) Kinematic() (bool, error) {
	h, err := a.dynamic("Kinematic")
	if err != nil {
		return false, err
	}
	v, err := a.b.engine.Kinematic(h)
	if err != nil {
		return false, a.b.nativeErr("PhysicsActor", "Kinematic", err)
	}
	return v, nil
}

func (a PhysicsActor) SetKinematic(v bool) error {
	h, err := a.dynamic("SetKinematic")
	if err != nil {
		return err
	}
	if err := a.b.engine.SetKinematic(h, v); err != nil {
		return a.b.nativeErr("PhysicsActor", "SetKinematic", err)
	}
	return nil
}

func (a PhysicsActor) HasGravity() (bool, error) {
	h, err := a.dynamic("HasGravity")
	if err != nil {
		return false, err
	}
	v, err := a.b.engine.Gravity(h)
	if err != nil {
		return false, a.b.nativeErr("PhysicsActor", "HasGravity", err)
	}
	return v, nil
}

func (a PhysicsActor) SetHasGravity(v bool) error {
	h, err := a.dynamic("SetHasGravity")
	if err != nil {
		return err
	}
	if err := a.b.engine.SetGravity(h, v); err != nil {
		return a.b.nativeErr("PhysicsActor", "SetHasGravity", err)
	}
	return nil
}

func (a PhysicsActor) Mass() (float32, error) {
	h, err := a.dynamic("Mass")
	if err != nil {
		return 0, err
	}
	v, err := a.b.engine.Mass(h)
	if err != nil {
		return 0, a.b.nativeErr("PhysicsActor", "Mass", err)
	}
	return v, nil
}

func (a PhysicsActor) SetMass(v float32) error {
	h, err := a.dynamic("SetMass")
	if err != nil {
		return err
	}
	if err := a.b.engine.SetMass(h, v); err != nil {
		return a.b.nativeErr("PhysicsActor", "SetMass", err)
	}
	return nil
}

// Collider is a collision shape attached to an entity.
type Collider struct{ proxy }

func (c Collider) IsTrigger() (bool, error) {
	h, err := c.handle("Collider.IsTrigger")
	if err != nil {
		return false, err
	}
	v, err := c.b.engine.IsTrigger(h)
	if err != nil {
		return false, c.b.nativeErr("Collider", "IsTrigger", err)
	}
	return v, nil
}

func (c Collider) SetIsTrigger(v bool) error {
	h, err := c.handle("Collider.SetIsTrigger")
	if err != nil {
		return err
	}
	if err := c.b.engine.SetIsTrigger(h, v); err != nil {
		return c.b.nativeErr("Collider", "SetIsTrigger", err)
	}
	return nil
}

// MeshRenderer draws a mesh with a material.
type MeshRenderer struct{ proxy }

func (r MeshRenderer) Mesh() (Mesh, error) {
	h, err := r.handle("MeshRenderer.Mesh")
	if err != nil {
		return Mesh{}, err
	}
	m, err := r.b.engine.Mesh(h)
	if err != nil {
		return Mesh{}, r.b.nativeErr("MeshRenderer", "Mesh", err)
	}
	p, err := r.b.asset(native.AssetMesh, m)
	return Mesh{p}, err
}

func (r MeshRenderer) SetMesh(m Mesh) error {
	h, err := r.handle("MeshRenderer.SetMesh")
	if err != nil {
		return err
	}
	mh, err := m.handle("Mesh")
	if err != nil {
		return err
	}
	if err := r.b.engine.SetMesh(h, mh); err != nil {
		return r.b.nativeErr("MeshRenderer", "SetMesh", err)
	}
	return nil
}

func (r MeshRenderer) Material() (Material, error) {
	h, err := r.handle("MeshRenderer.Material")
	if err != nil {
		return Material{}, err
	}
	m, err := r.b.engine.Material(h)
	if err != nil {
		return Material{}, r.b.nativeErr("MeshRenderer", "Material", err)
	}
	p, err := r.b.asset(native.AssetMaterial, m)
	return Material{p}, err
}

func (r MeshRenderer) SetMaterial(m Material) error {
	h, err := r.handle("MeshRenderer.SetMaterial")
	if err != nil {
		return err
	}
	mh, err := m.handle("Material")
	if err != nil {
		return err
	}
	if err := r.b.engine.SetMaterial(h, mh); err != nil {
		return r.b.nativeErr("MeshRenderer", "SetMaterial", err)
	}
	return nil
}

// Camera is a scene camera.
type Camera struct{ proxy }

func (c Camera) get(op string, fn func(native.Engine, native.Handle) (float32, error)) (float32, error) {
	h, err := c.handle("Camera." + op)
	if err != nil {
		return 0, err
	}
	v, err := fn(c.b.engine, h)
	if err != nil {
		return 0, c.b.nativeErr("Camera", op, err)
	}
	return v, nil
}

func (c Camera) set(op string, v float32, fn func(native.Engine, native.Handle, float32) error) error {
	h, err := c.handle("Camera." + op)
	if err != nil {
		return err
	}
	if err := fn(c.b.engine, h, v); err != nil {
		return c.b.nativeErr("Camera", op, err)
	}
	return nil
}

// FoV returns the vertical field of view in degrees.
func (c Camera) FoV() (float32, error) { return c.get("FoV", native.Engine.FoV) }

func (c Camera) SetFoV(v float32) error { return c.set("SetFoV", v, native.Engine.SetFoV) }

func (c Camera) NearClip() (float32, error) { return c.get("NearClip", native.Engine.NearClip) }

func (c Camera) SetNearClip(v float32) error { return c.set("SetNearClip", v, native.Engine.SetNearClip) }

func (c Camera) FarClip() (float32, error) { return c.get("FarClip", native.Engine.FarClip) }

func (c Camera) SetFarClip(v float32) error { return c.set("SetFarClip", v, native.Engine.SetFarClip) }
