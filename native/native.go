// Package native declares the boundary the binding depends on: the calls a
// native engine collaborator implements so that hosted scripts can reach its
// entity, physics, audio, rendering and input subsystems.
//
// Every method is a single synchronous call. Implementations own all native
// state; the binding never caches what these calls return beyond one hook
// invocation. Absent results are reported with a boolean, never with an error;
// an error always means the native side failed.
package native

import (
	"fmt"

	"github.com/wippyai/scriptlib/vec"
)

// ID is an opaque engine-assigned object identifier. Zero is never valid.
type ID uint64

// Handle addresses a native object. Scene is zero when the engine uses
// single-id addressing.
type Handle struct {
	Scene  ID
	Object ID
}

// IsZero reports whether h addresses nothing.
func (h Handle) IsZero() bool {
	return h.Object == 0
}

func (h Handle) String() string {
	if h.Scene == 0 {
		return fmt.Sprintf("#%d", h.Object)
	}
	return fmt.Sprintf("%d#%d", h.Scene, h.Object)
}

// ComponentType is the wire value of a built-in component type.
// Values are part of the boundary contract; append, never renumber.
type ComponentType uint32

const (
	ComponentTransform ComponentType = iota + 1
	ComponentMeshRenderer
	ComponentDynamicActor
	ComponentStaticActor
	ComponentAudioSource
	ComponentAudioListener
	ComponentCamera
	ComponentCollider
)

var componentNames = [...]string{
	ComponentTransform:     "Transform",
	ComponentMeshRenderer:  "MeshRenderer",
	ComponentDynamicActor:  "DynamicActor",
	ComponentStaticActor:   "StaticActor",
	ComponentAudioSource:   "AudioSource",
	ComponentAudioListener: "AudioListener",
	ComponentCamera:        "Camera",
	ComponentCollider:      "Collider",
}

func (c ComponentType) String() string {
	if int(c) < len(componentNames) && componentNames[c] != "" {
		return componentNames[c]
	}
	return fmt.Sprintf("ComponentType(%d)", uint32(c))
}

// ParseComponentType resolves a component type by its name.
func ParseComponentType(name string) (ComponentType, bool) {
	for i, n := range componentNames {
		if n != "" && n == name {
			return ComponentType(i), true
		}
	}
	return 0, false
}

// ActorKind tags a physics actor.
type ActorKind uint8

const (
	ActorStatic ActorKind = iota + 1
	ActorDynamic
)

func (k ActorKind) String() string {
	switch k {
	case ActorStatic:
		return "static"
	case ActorDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// AssetKind tags a named asset.
type AssetKind uint8

const (
	AssetMesh AssetKind = iota + 1
	AssetMaterial
	AssetAudio
	AssetPrefab
)

func (k AssetKind) String() string {
	switch k {
	case AssetMesh:
		return "mesh"
	case AssetMaterial:
		return "material"
	case AssetAudio:
		return "audio"
	case AssetPrefab:
		return "prefab"
	default:
		return "unknown"
	}
}

// Hit is a single raycast hit.
type Hit struct {
	Object   Handle
	Distance float32
}

// Entities covers entity and scene level calls.
type Entities interface {
	// Component resolves the handle of a built-in component on an entity.
	Component(entity Handle, c ComponentType) (Handle, bool)

	// Collider resolves a named collider on an entity.
	Collider(entity Handle, name string) (Handle, bool)

	// Instantiate clones an entity or prefab template at the given position.
	Instantiate(template Handle, at vec.Vector3) (Handle, error)

	// Destroy removes an entity from its scene.
	Destroy(entity Handle) error

	// Name returns the display name of an entity.
	Name(entity Handle) (string, error)

	// Find returns the entity with the given name in a scene.
	Find(scene ID, name string) (Handle, bool)

	// Entities lists the live entities of a scene.
	Entities(scene ID) []Handle

	// Tags returns the tag bitmask of an entity.
	Tags(entity Handle) (uint64, error)

	// Asset resolves a named asset.
	Asset(kind AssetKind, name string) (Handle, bool)
}

// Transforms covers the transform component.
type Transforms interface {
	Position(h Handle) (vec.Vector3, error)
	SetPosition(h Handle, v vec.Vector3) error
	Rotation(h Handle) (vec.Quaternion, error)
	SetRotation(h Handle, q vec.Quaternion) error
	Scale(h Handle) (vec.Vector3, error)
	SetScale(h Handle, v vec.Vector3) error
}

// Physics covers physics actors, colliders and scene queries.
type Physics interface {
	ActorKind(h Handle) (ActorKind, error)
	Teleport(h Handle, to vec.Vector3) error
	Rotate(h Handle, q vec.Quaternion) error
	Kinematic(h Handle) (bool, error)
	SetKinematic(h Handle, v bool) error
	Gravity(h Handle) (bool, error)
	SetGravity(h Handle, v bool) error
	Mass(h Handle) (float32, error)
	SetMass(h Handle, v float32) error

	IsTrigger(collider Handle) (bool, error)
	SetIsTrigger(collider Handle, v bool) error

	// Raycast returns the first hit along the ray, or false when the ray
	// traveled maxDistance without hitting anything.
	Raycast(scene ID, origin, direction vec.Vector3, maxDistance float32) (Hit, bool, error)

	SetSimulating(on bool) error
}

// Audio covers audio sources, instances and listeners.
type Audio interface {
	NewAudioInstance(source, clip Handle) (Handle, error)
	OneShot(source, clip Handle) error
	Play(instance Handle) error
	Stop(instance Handle) error
	Muted(source Handle) (bool, error)
	SetMuted(source Handle, v bool) error
	Volume(source Handle) (float32, error)
	SetVolume(source Handle, v float32) error
	SetSourcePosition(source Handle, v vec.Vector3) error
	SetSourceRotation(source Handle, q vec.Quaternion) error
	SetSourceVelocity(source Handle, v vec.Vector3) error
	ListenerEnabled(listener Handle) (bool, error)
	SetListenerEnabled(listener Handle, v bool) error
}

// Rendering covers mesh renderers and cameras.
type Rendering interface {
	Mesh(renderer Handle) (Handle, error)
	SetMesh(renderer Handle, mesh Handle) error
	Material(renderer Handle) (Handle, error)
	SetMaterial(renderer Handle, material Handle) error
	FoV(camera Handle) (float32, error)
	SetFoV(camera Handle, v float32) error
	NearClip(camera Handle) (float32, error)
	SetNearClip(camera Handle, v float32) error
	FarClip(camera Handle) (float32, error)
	SetFarClip(camera Handle, v float32) error
}

// Input covers keyboard and mouse queries. Codes are the marshal.Key and
// marshal.MouseKey wire values.
type Input interface {
	KeyDown(code int32) bool
	MouseButtonDown(code int32) bool
	MousePosition() vec.Vector2
	MouseDelta() vec.Vector2
	ScrollDelta() float64
}

// LogSink receives script log lines. Calls are fire-and-forget.
type LogSink interface {
	Trace(msg string)
	Warn(msg string)
	Error(msg string)
}

// Engine is the full boundary implemented by the native collaborator.
type Engine interface {
	Entities
	Transforms
	Physics
	Audio
	Rendering
	Input
	LogSink
}
