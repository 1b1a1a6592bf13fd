package sim

import (
	"fmt"
	"math"

	"github.com/wippyai/scriptlib/native"
	"github.com/wippyai/scriptlib/vec"
)

const contactEpsilon = 1e-4

// Contact is a collision or trigger transition reported by Step. For trigger
// contacts A is the trigger and B the actor that crossed it.
type Contact struct {
	A, B    native.Handle
	Start   bool
	Trigger bool
}

type pair struct {
	a, b native.Handle
}

func (e *Engine) actor(h native.Handle) (*entity, error) {
	ent, err := e.entity(h)
	if err != nil {
		return nil, err
	}
	if ent.actor == 0 {
		return nil, fmt.Errorf("%v actor: %w", h, ErrNoComponent)
	}
	return ent, nil
}

func (e *Engine) dynamic(h native.Handle) (*entity, error) {
	ent, err := e.actor(h)
	if err != nil {
		return nil, err
	}
	if ent.actor != native.ActorDynamic {
		return nil, fmt.Errorf("%v is %s: %w", h, ent.actor, ErrNoComponent)
	}
	return ent, nil
}

func (e *Engine) ActorKind(h native.Handle) (native.ActorKind, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.actor(h)
	if err != nil {
		return 0, err
	}
	return ent.actor, nil
}

// Teleport moves an actor instantly and clears its velocity.
func (e *Engine) Teleport(h native.Handle, to vec.Vector3) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.actor(h)
	if err != nil {
		return err
	}
	ent.pos = to
	ent.velocity = vec.Vector3{}
	return nil
}

func (e *Engine) Rotate(h native.Handle, q vec.Quaternion) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.actor(h)
	if err != nil {
		return err
	}
	ent.rot = q
	return nil
}

func (e *Engine) Kinematic(h native.Handle) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.dynamic(h)
	if err != nil {
		return false, err
	}
	return ent.kinematic, nil
}

func (e *Engine) SetKinematic(h native.Handle, v bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.dynamic(h)
	if err != nil {
		return err
	}
	ent.kinematic = v
	return nil
}

func (e *Engine) Gravity(h native.Handle) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.dynamic(h)
	if err != nil {
		return false, err
	}
	return ent.gravity, nil
}

func (e *Engine) SetGravity(h native.Handle, v bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.dynamic(h)
	if err != nil {
		return err
	}
	ent.gravity = v
	return nil
}

func (e *Engine) Mass(h native.Handle) (float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.dynamic(h)
	if err != nil {
		return 0, err
	}
	return ent.mass, nil
}

func (e *Engine) SetMass(h native.Handle, v float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.dynamic(h)
	if err != nil {
		return err
	}
	if v <= 0 {
		return fmt.Errorf("mass %v must be positive", v)
	}
	ent.mass = v
	return nil
}

func (e *Engine) IsTrigger(h native.Handle) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.entity(h)
	if err != nil {
		return false, err
	}
	if ent.collider == nil {
		return false, fmt.Errorf("%v collider: %w", h, ErrNoComponent)
	}
	return ent.collider.Trigger, nil
}

func (e *Engine) SetIsTrigger(h native.Handle, v bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.entity(h)
	if err != nil {
		return err
	}
	if ent.collider == nil {
		return fmt.Errorf("%v collider: %w", h, ErrNoComponent)
	}
	ent.collider.Trigger = v
	return nil
}

// Velocity returns the current velocity of an actor.
func (e *Engine) Velocity(h native.Handle) (vec.Vector3, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.actor(h)
	if err != nil {
		return vec.Vector3{}, err
	}
	return ent.velocity, nil
}

func (e *Engine) SetSimulating(on bool) error {
	e.mu.Lock()
	e.simulating = on
	e.mu.Unlock()
	return nil
}

// Simulating reports whether Step integrates motion.
func (e *Engine) Simulating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.simulating
}

// Raycast tests the ray against every non-trigger box collider in the scene
// and returns the nearest hit within maxDistance.
func (e *Engine) Raycast(sceneID native.ID, origin, direction vec.Vector3, maxDistance float32) (native.Hit, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.scenes[sceneID]
	if !ok {
		return native.Hit{}, false, fmt.Errorf("raycast: scene %d: %w", sceneID, ErrNoObject)
	}
	dir := direction.Normalize()
	if dir == (vec.Vector3{}) {
		return native.Hit{}, false, fmt.Errorf("raycast: zero direction")
	}

	var best native.Hit
	found := false
	for _, ent := range s.slots {
		if ent == nil || ent.collider == nil || ent.collider.Trigger {
			continue
		}
		d, ok := rayBox(origin, dir, ent.pos, ent.halfExtents())
		if !ok || d > maxDistance {
			continue
		}
		if !found || d < best.Distance {
			best = native.Hit{Object: e.handleOf(ent), Distance: d}
			found = true
		}
	}
	return best, found, nil
}

func (ent *entity) halfExtents() vec.Vector3 {
	h := ent.collider.HalfExtents
	return vec.Vector3{X: h.X * ent.scale.X, Y: h.Y * ent.scale.Y, Z: h.Z * ent.scale.Z}
}

// rayBox is the slab test. A ray starting inside the box hits at distance 0.
func rayBox(origin, dir, center, half vec.Vector3) (float32, bool) {
	o := [3]float64{float64(origin.X), float64(origin.Y), float64(origin.Z)}
	d := [3]float64{float64(dir.X), float64(dir.Y), float64(dir.Z)}
	c := [3]float64{float64(center.X), float64(center.Y), float64(center.Z)}
	h := [3]float64{float64(half.X), float64(half.Y), float64(half.Z)}

	tmin, tmax := 0.0, math.Inf(1)
	for i := 0; i < 3; i++ {
		lo, hi := c[i]-h[i], c[i]+h[i]
		if d[i] == 0 {
			if o[i] < lo || o[i] > hi {
				return 0, false
			}
			continue
		}
		t1 := (lo - o[i]) / d[i]
		t2 := (hi - o[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return float32(tmin), true
}

// Step advances every scene by dt and returns the contacts that started or
// ended during the step. Motion is integrated only while simulating; contact
// detection always runs so that teleports are observed.
func (e *Engine) Step(dt float32) []Contact {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.simulating {
		for _, s := range e.sortedScenes() {
			for _, ent := range s.slots {
				if ent == nil || ent.actor != native.ActorDynamic || ent.kinematic {
					continue
				}
				if ent.gravity {
					ent.velocity = ent.velocity.Add(e.gravity.Scale(dt))
				}
				ent.pos = ent.pos.Add(ent.velocity.Scale(dt))
			}
		}
	}

	var out []Contact
	seen := make(map[pair]bool)
	for _, s := range e.sortedScenes() {
		for i, a := range s.slots {
			if a == nil || a.collider == nil || a.actor == 0 {
				continue
			}
			for _, b := range s.slots[i+1:] {
				if b == nil || b.collider == nil || b.actor == 0 {
					continue
				}
				if !overlaps(a, b) {
					continue
				}
				p, trigger := orient(e.handleOf(a), e.handleOf(b), a, b)
				seen[p] = true
				if !trigger {
					resolve(a, b)
				}
				if !e.contacts[p] {
					e.contacts[p] = true
					out = append(out, Contact{A: p.a, B: p.b, Start: true, Trigger: trigger})
				}
			}
		}
	}
	for p := range e.contacts {
		if seen[p] {
			continue
		}
		delete(e.contacts, p)
		trigger := false
		if a, err := e.entity(p.a); err == nil && a.collider != nil {
			trigger = a.collider.Trigger
		}
		out = append(out, Contact{A: p.a, B: p.b, Trigger: trigger})
	}
	return out
}

func (e *Engine) sortedScenes() []*scene {
	out := make([]*scene, 0, len(e.scenes))
	for id := native.ID(1); id <= e.nextScene; id++ {
		if s, ok := e.scenes[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// orient puts the trigger first in trigger pairs.
func orient(ha, hb native.Handle, a, b *entity) (pair, bool) {
	switch {
	case a.collider.Trigger:
		return pair{ha, hb}, true
	case b.collider.Trigger:
		return pair{hb, ha}, true
	default:
		return pair{ha, hb}, false
	}
}

func overlaps(a, b *entity) bool {
	ha, hb := a.halfExtents(), b.halfExtents()
	d := a.pos.Sub(b.pos)
	return abs(d.X) <= ha.X+hb.X+contactEpsilon &&
		abs(d.Y) <= ha.Y+hb.Y+contactEpsilon &&
		abs(d.Z) <= ha.Z+hb.Z+contactEpsilon
}

// resolve rests a falling dynamic actor on top of a static one.
func resolve(a, b *entity) {
	if a.actor == native.ActorStatic && b.actor == native.ActorDynamic {
		a, b = b, a
	}
	if a.actor != native.ActorDynamic || b.actor != native.ActorStatic || a.kinematic {
		return
	}
	if a.velocity.Y > 0 || a.pos.Y < b.pos.Y {
		return
	}
	a.pos.Y = b.pos.Y + b.halfExtents().Y + a.halfExtents().Y
	a.velocity = vec.Vector3{}
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
