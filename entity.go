package scriptlib

import (
	"reflect"

	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/handle"
	"github.com/wippyai/scriptlib/native"
	"github.com/wippyai/scriptlib/vec"
)

// Entity is a scene object. Two Entity values are equal exactly when they
// address the same live native entity.
type Entity struct{ proxy }

// GameObject is the earlier name of Entity.
type GameObject = Entity

// Native returns the engine handle of the entity.
func (e Entity) Native() (native.Handle, error) {
	return e.handle("Entity")
}

func (e Entity) Name() (string, error) {
	h, err := e.handle("Entity.Name")
	if err != nil {
		return "", err
	}
	name, err := e.b.engine.Name(h)
	if err != nil {
		return "", e.b.nativeErr("Entity", "Name", err)
	}
	return name, nil
}

// Tags returns the entity's tag bitmask.
func (e Entity) Tags() (uint64, error) {
	h, err := e.handle("Entity.Tags")
	if err != nil {
		return 0, err
	}
	tags, err := e.b.engine.Tags(h)
	if err != nil {
		return 0, e.b.nativeErr("Entity", "Tags", err)
	}
	return tags, nil
}

// Destroy removes the entity from its scene. Every proxy of the entity and of
// its components becomes invalid for every holder.
func (e Entity) Destroy() error {
	h, err := e.handle("Entity.Destroy")
	if err != nil {
		return err
	}
	if err := e.b.engine.Destroy(h); err != nil {
		return e.b.nativeErr("Entity", "Destroy", err)
	}
	e.b.table.Invalidate(h)
	return nil
}

func (e Entity) templateHandle() (native.Handle, error) {
	return e.handle("Entity.Instantiate")
}

// component resolves a built-in component and issues its ref. The component
// ref is owned by the entity.
func (e Entity) component(target string, c native.ComponentType) (proxy, bool, error) {
	h, err := e.handle(target)
	if err != nil {
		return proxy{}, false, err
	}
	ch, ok := e.b.engine.Component(h, c)
	if !ok {
		return proxy{}, false, nil
	}
	p, err := e.b.issue(handle.KindComponent, ch, h, uint32(c))
	if err != nil {
		return proxy{}, false, err
	}
	return p, true, nil
}

// Transform returns the entity's transform. Every entity has one; a missing
// transform is reported as absent.
func (e Entity) Transform() (Transform, bool, error) {
	p, ok, err := e.component("Entity.Transform", native.ComponentTransform)
	return Transform{p}, ok, err
}

func (e Entity) MeshRenderer() (MeshRenderer, bool, error) {
	p, ok, err := e.component("Entity.MeshRenderer", native.ComponentMeshRenderer)
	return MeshRenderer{p}, ok, err
}

// Actor returns the entity's physics actor, dynamic or static.
func (e Entity) Actor() (PhysicsActor, bool, error) {
	p, ok, err := e.component("Entity.Actor", native.ComponentDynamicActor)
	if err != nil || ok {
		return PhysicsActor{p}, ok, err
	}
	p, ok, err = e.component("Entity.Actor", native.ComponentStaticActor)
	return PhysicsActor{p}, ok, err
}

func (e Entity) AudioSource() (AudioSource, bool, error) {
	p, ok, err := e.component("Entity.AudioSource", native.ComponentAudioSource)
	return AudioSource{p}, ok, err
}

func (e Entity) AudioListener() (AudioListener, bool, error) {
	p, ok, err := e.component("Entity.AudioListener", native.ComponentAudioListener)
	return AudioListener{p}, ok, err
}

func (e Entity) Camera() (Camera, bool, error) {
	p, ok, err := e.component("Entity.Camera", native.ComponentCamera)
	return Camera{p}, ok, err
}

// Collider returns the named collider of the entity.
func (e Entity) Collider(name string) (Collider, bool, error) {
	h, err := e.handle("Entity.Collider")
	if err != nil {
		return Collider{}, false, err
	}
	ch, ok := e.b.engine.Collider(h, name)
	if !ok {
		return Collider{}, false, nil
	}
	p, err := e.b.issue(handle.KindCollider, ch, h, nameTag(name))
	if err != nil {
		return Collider{}, false, err
	}
	return Collider{p}, true, nil
}

// Behavior returns the instance of the named behavior type attached to the
// entity.
func (e Entity) Behavior(typeName string) (any, bool, error) {
	h, err := e.handle("Entity.Behavior")
	if err != nil {
		return nil, false, err
	}
	if e.b.behaviors == nil {
		return nil, false, nil
	}
	inst, ok := e.b.behaviors.Behavior(h, typeName)
	return inst, ok, nil
}

// Marker types requesting a physics actor of a specific kind from
// GetComponent. Both resolve to a PhysicsActor.
type (
	DynamicActor struct{ PhysicsActor }
	StaticActor  struct{ PhysicsActor }
)

// GetComponent resolves a component of type T on e.
//
// Built-in component types are matched first, by exact requested type;
// Collider resolves the entity's unnamed collider.
// Any other T is looked up among the entity's behaviors by exact dynamic type.
// A missing component is reported as (zero, false, nil).
func GetComponent[T any](e Entity) (T, bool, error) {
	var zero T
	var (
		p   proxy
		ok  bool
		err error
	)
	switch any(zero).(type) {
	case Transform:
		p, ok, err = e.component("GetComponent", native.ComponentTransform)
	case MeshRenderer:
		p, ok, err = e.component("GetComponent", native.ComponentMeshRenderer)
	case PhysicsActor:
		var a PhysicsActor
		a, ok, err = e.Actor()
		p = a.proxy
	case DynamicActor:
		p, ok, err = e.component("GetComponent", native.ComponentDynamicActor)
	case StaticActor:
		p, ok, err = e.component("GetComponent", native.ComponentStaticActor)
	case AudioSource:
		p, ok, err = e.component("GetComponent", native.ComponentAudioSource)
	case AudioListener:
		p, ok, err = e.component("GetComponent", native.ComponentAudioListener)
	case Camera:
		p, ok, err = e.component("GetComponent", native.ComponentCamera)
	case Collider:
		var c Collider
		c, ok, err = e.Collider("")
		p = c.proxy
	default:
		return behaviorOf[T](e)
	}
	if err != nil || !ok {
		return zero, false, err
	}
	return wrap[T](p), true, nil
}

// wrap builds the built-in proxy type T around p.
func wrap[T any](p proxy) T {
	var v any
	var zero T
	switch any(zero).(type) {
	case Transform:
		v = Transform{p}
	case MeshRenderer:
		v = MeshRenderer{p}
	case PhysicsActor:
		v = PhysicsActor{p}
	case DynamicActor:
		v = DynamicActor{PhysicsActor{p}}
	case StaticActor:
		v = StaticActor{PhysicsActor{p}}
	case AudioSource:
		v = AudioSource{p}
	case AudioListener:
		v = AudioListener{p}
	case Camera:
		v = Camera{p}
	case Collider:
		v = Collider{p}
	}
	return v.(T)
}

func behaviorOf[T any](e Entity) (T, bool, error) {
	var zero T
	h, err := e.handle("GetComponent")
	if err != nil || e.b.behaviors == nil {
		return zero, false, err
	}
	want := reflect.TypeFor[T]()
	for _, inst := range e.b.behaviors.Behaviors(h) {
		if reflect.TypeOf(inst) == want {
			return inst.(T), true, nil
		}
	}
	return zero, false, nil
}

// Position is shorthand for the entity transform's position.
func (e Entity) Position() (vec.Vector3, error) {
	t, ok, err := e.Transform()
	if err != nil {
		return vec.Vector3{}, err
	}
	if !ok {
		return vec.Vector3{}, errors.NotFound(errors.PhaseResolve, "component", "Transform")
	}
	return t.Position()
}

// SetPosition is shorthand for the entity transform's SetPosition.
func (e Entity) SetPosition(v vec.Vector3) error {
	t, ok, err := e.Transform()
	if err != nil {
		return err
	}
	if !ok {
		return errors.NotFound(errors.PhaseResolve, "component", "Transform")
	}
	return t.SetPosition(v)
}
