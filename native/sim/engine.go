// Package sim is an in-memory native.Engine.
//
// It keeps just enough state to drive the binding end to end: scenes of
// entities with built-in components, named assets, input state and a log
// capture. Physics is a toy: gravity integration and axis-aligned box overlap.
//
//	eng := sim.New()
//	scene := eng.NewScene()
//	ground := eng.Spawn(scene, sim.EntitySpec{
//		Name:     "Ground",
//		Actor:    native.ActorStatic,
//		Collider: &sim.ColliderSpec{HalfExtents: vec.Vector3{X: 10, Y: 0.5, Z: 10}},
//	})
//
// Entity object ids are versioned (version<<32 | index) so that a recycled
// slot never repeats an id.
package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/wippyai/scriptlib/native"
	"github.com/wippyai/scriptlib/vec"
)

var (
	// ErrNoObject is returned for handles that address nothing live.
	ErrNoObject = errors.New("sim: no such object")
	// ErrNoComponent is returned when an entity lacks the addressed component.
	ErrNoComponent = errors.New("sim: component not present")
)

// DefaultGravity is applied to dynamic actors with gravity enabled.
var DefaultGravity = vec.Vector3{Y: -9.81}

// ColliderSpec describes an entity's box collider.
type ColliderSpec struct {
	Name        string
	HalfExtents vec.Vector3
	Trigger     bool
}

// EntitySpec describes an entity to spawn. Zero values mean "component absent"
// where that is meaningful.
type EntitySpec struct {
	Name     string
	Position vec.Vector3
	Rotation vec.Quaternion
	Scale    vec.Vector3
	Tags     uint64

	Mesh     native.Handle
	Material native.Handle
	Renderer bool

	Actor     native.ActorKind
	Kinematic bool
	Gravity   bool
	Mass      float32
	Collider  *ColliderSpec

	AudioSource   bool
	AudioListener bool
	Camera        bool

	// NoTransform spawns an entity without a transform component.
	NoTransform bool
}

type entity struct {
	id    native.ID
	scene native.ID
	name  string
	tags  uint64

	pos         vec.Vector3
	rot         vec.Quaternion
	scale       vec.Vector3
	untransform bool

	renderer bool
	mesh     native.Handle
	material native.Handle

	actor     native.ActorKind
	kinematic bool
	gravity   bool
	mass      float32
	velocity  vec.Vector3
	collider  *ColliderSpec

	source   *audioSource
	listener *listener
	camera   *camera
}

type scene struct {
	id       native.ID
	slots    []*entity
	versions []uint32
	free     []uint32
}

// Engine is the in-memory native engine. It is safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	scenes    map[native.ID]*scene
	nextScene native.ID
	active    native.ID

	nextObject native.ID
	assets     map[native.AssetKind]map[string]native.Handle
	prefabs    map[native.ID]EntitySpec
	instances  map[native.ID]*audioInstance
	oneShots   []OneShot

	simulating bool
	gravity    vec.Vector3
	contacts   map[pair]bool

	input inputState
	logs  []LogLine
}

// New creates an empty engine.
func New() *Engine {
	return &Engine{
		scenes:    make(map[native.ID]*scene),
		assets:    make(map[native.AssetKind]map[string]native.Handle),
		prefabs:   make(map[native.ID]EntitySpec),
		instances: make(map[native.ID]*audioInstance),
		contacts:  make(map[pair]bool),
		gravity:   DefaultGravity,
		input:     newInputState(),
	}
}

var _ native.Engine = (*Engine)(nil)

// NewScene creates a scene. The first scene created becomes the active one.
func (e *Engine) NewScene() native.ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextScene++
	id := e.nextScene
	e.scenes[id] = &scene{id: id}
	if e.active == 0 {
		e.active = id
	}
	return id
}

// SetActiveScene selects where prefab instances are spawned.
func (e *Engine) SetActiveScene(id native.ID) {
	e.mu.Lock()
	e.active = id
	e.mu.Unlock()
}

// SetWorldGravity overrides DefaultGravity.
func (e *Engine) SetWorldGravity(g vec.Vector3) {
	e.mu.Lock()
	e.gravity = g
	e.mu.Unlock()
}

// Spawn adds an entity built from spec to a scene.
func (e *Engine) Spawn(sceneID native.ID, spec EntitySpec) (native.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.scenes[sceneID]
	if !ok {
		return native.Handle{}, fmt.Errorf("spawn %q: scene %d: %w", spec.Name, sceneID, ErrNoObject)
	}
	return e.spawn(s, spec), nil
}

func (e *Engine) spawn(s *scene, spec EntitySpec) native.Handle {
	ent := fromSpec(spec)
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
		s.versions[idx]++
	} else {
		idx = uint32(len(s.slots))
		s.slots = append(s.slots, nil)
		s.versions = append(s.versions, 1)
	}
	ent.id = native.ID(uint64(s.versions[idx])<<32 | uint64(idx))
	ent.scene = s.id
	s.slots[idx] = ent
	return native.Handle{Scene: s.id, Object: ent.id}
}

func fromSpec(spec EntitySpec) *entity {
	ent := &entity{
		name:      spec.Name,
		tags:      spec.Tags,
		pos:       spec.Position,
		rot:       spec.Rotation,
		scale:     spec.Scale,
		renderer:  spec.Renderer || !spec.Mesh.IsZero() || !spec.Material.IsZero(),
		mesh:      spec.Mesh,
		material:  spec.Material,
		actor:     spec.Actor,
		kinematic: spec.Kinematic,
		gravity:   spec.Gravity,
		mass:      spec.Mass,

		untransform: spec.NoTransform,
	}
	if ent.rot == (vec.Quaternion{}) {
		ent.rot = vec.Identity
	}
	if ent.scale == (vec.Vector3{}) {
		ent.scale = vec.Splat3(1)
	}
	if ent.actor == native.ActorDynamic && ent.mass == 0 {
		ent.mass = 1
	}
	if spec.Collider != nil {
		c := *spec.Collider
		ent.collider = &c
	}
	if spec.AudioSource {
		ent.source = &audioSource{volume: 1}
	}
	if spec.AudioListener {
		ent.listener = &listener{enabled: true}
	}
	if spec.Camera {
		ent.camera = &camera{fov: 60, near: 0.1, far: 1000}
	}
	return ent
}

func (e *Engine) entity(h native.Handle) (*entity, error) {
	s, ok := e.scenes[h.Scene]
	if !ok {
		return nil, fmt.Errorf("%v: %w", h, ErrNoObject)
	}
	idx := uint32(h.Object)
	ver := uint32(h.Object >> 32)
	if int(idx) >= len(s.slots) || s.versions[idx] != ver || s.slots[idx] == nil {
		return nil, fmt.Errorf("%v: %w", h, ErrNoObject)
	}
	return s.slots[idx], nil
}

func (e *Engine) handleOf(ent *entity) native.Handle {
	return native.Handle{Scene: ent.scene, Object: ent.id}
}

// Component implements native.Entities. Components are addressed through their
// entity's handle.
func (e *Engine) Component(h native.Handle, c native.ComponentType) (native.Handle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.entity(h)
	if err != nil {
		return native.Handle{}, false
	}
	var ok bool
	switch c {
	case native.ComponentTransform:
		ok = !ent.untransform
	case native.ComponentMeshRenderer:
		ok = ent.renderer
	case native.ComponentDynamicActor:
		ok = ent.actor == native.ActorDynamic
	case native.ComponentStaticActor:
		ok = ent.actor == native.ActorStatic
	case native.ComponentAudioSource:
		ok = ent.source != nil
	case native.ComponentAudioListener:
		ok = ent.listener != nil
	case native.ComponentCamera:
		ok = ent.camera != nil
	case native.ComponentCollider:
		ok = ent.collider != nil
	}
	if !ok {
		return native.Handle{}, false
	}
	return h, true
}

func (e *Engine) Collider(h native.Handle, name string) (native.Handle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.entity(h)
	if err != nil || ent.collider == nil || ent.collider.Name != name {
		return native.Handle{}, false
	}
	return h, true
}

// Instantiate clones an entity into its own scene, or a prefab into the
// active scene.
func (e *Engine) Instantiate(template native.Handle, at vec.Vector3) (native.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if spec, ok := e.prefabs[template.Object]; ok && template.Scene == 0 {
		s, ok := e.scenes[e.active]
		if !ok {
			return native.Handle{}, fmt.Errorf("instantiate: no active scene: %w", ErrNoObject)
		}
		spec.Position = at
		return e.spawn(s, spec), nil
	}

	src, err := e.entity(template)
	if err != nil {
		return native.Handle{}, fmt.Errorf("instantiate: %w", err)
	}
	h := e.spawn(e.scenes[src.scene], EntitySpec{})
	dst, _ := e.entity(h)
	id := dst.id
	*dst = *src
	dst.id = id
	dst.pos = at
	dst.velocity = vec.Vector3{}
	if src.collider != nil {
		c := *src.collider
		dst.collider = &c
	}
	if src.source != nil {
		s := *src.source
		dst.source = &s
	}
	if src.listener != nil {
		l := *src.listener
		dst.listener = &l
	}
	if src.camera != nil {
		c := *src.camera
		dst.camera = &c
	}
	return h, nil
}

func (e *Engine) Destroy(h native.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.entity(h); err != nil {
		return err
	}
	s := e.scenes[h.Scene]
	idx := uint32(h.Object)
	s.slots[idx] = nil
	s.free = append(s.free, idx)
	for p := range e.contacts {
		if p.a == h || p.b == h {
			delete(e.contacts, p)
		}
	}
	return nil
}

func (e *Engine) Name(h native.Handle) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.entity(h)
	if err != nil {
		return "", err
	}
	return ent.name, nil
}

func (e *Engine) Find(sceneID native.ID, name string) (native.Handle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.scenes[sceneID]
	if !ok {
		return native.Handle{}, false
	}
	for _, ent := range s.slots {
		if ent != nil && ent.name == name {
			return e.handleOf(ent), true
		}
	}
	return native.Handle{}, false
}

// Entities lists live entities in slot order.
func (e *Engine) Entities(sceneID native.ID) []native.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.scenes[sceneID]
	if !ok {
		return nil
	}
	out := make([]native.Handle, 0, len(s.slots))
	for _, ent := range s.slots {
		if ent != nil {
			out = append(out, e.handleOf(ent))
		}
	}
	return out
}

func (e *Engine) Tags(h native.Handle) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.entity(h)
	if err != nil {
		return 0, err
	}
	return ent.tags, nil
}

// AddAsset registers a named asset and returns its handle. Assets live
// outside any scene.
func (e *Engine) AddAsset(kind native.AssetKind, name string) native.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addAsset(kind, name)
}

func (e *Engine) addAsset(kind native.AssetKind, name string) native.Handle {
	m, ok := e.assets[kind]
	if !ok {
		m = make(map[string]native.Handle)
		e.assets[kind] = m
	}
	if h, ok := m[name]; ok {
		return h
	}
	e.nextObject++
	h := native.Handle{Object: e.nextObject}
	m[name] = h
	return h
}

// AddPrefab registers a prefab asset whose instances are spawned from spec.
func (e *Engine) AddPrefab(name string, spec EntitySpec) native.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.addAsset(native.AssetPrefab, name)
	e.prefabs[h.Object] = spec
	return h
}

func (e *Engine) Asset(kind native.AssetKind, name string) (native.Handle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.assets[kind][name]
	return h, ok
}

func (e *Engine) Position(h native.Handle) (vec.Vector3, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.entity(h)
	if err != nil {
		return vec.Vector3{}, err
	}
	return ent.pos, nil
}

func (e *Engine) SetPosition(h native.Handle, v vec.Vector3) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.entity(h)
	if err != nil {
		return err
	}
	ent.pos = v
	return nil
}

func (e *Engine) Rotation(h native.Handle) (vec.Quaternion, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.entity(h)
	if err != nil {
		return vec.Quaternion{}, err
	}
	return ent.rot, nil
}

func (e *Engine) SetRotation(h native.Handle, q vec.Quaternion) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.entity(h)
	if err != nil {
		return err
	}
	ent.rot = q
	return nil
}

func (e *Engine) Scale(h native.Handle) (vec.Vector3, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.entity(h)
	if err != nil {
		return vec.Vector3{}, err
	}
	return ent.scale, nil
}

func (e *Engine) SetScale(h native.Handle, v vec.Vector3) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.entity(h)
	if err != nil {
		return err
	}
	ent.scale = v
	return nil
}
