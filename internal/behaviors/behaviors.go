// Package behaviors holds the Go behaviors and systems the scene runner
// offers to scene files.
package behaviors

import (
	"fmt"

	"github.com/wippyai/scriptlib"
	"github.com/wippyai/scriptlib/host"
	"github.com/wippyai/scriptlib/marshal"
	"github.com/wippyai/scriptlib/vec"
)

// Register registers every behavior and system of the package on h.
func Register(h *host.Host) error {
	for name, f := range map[string]host.Factory{
		"Spinner":  func() any { return &Spinner{Speed: 1} },
		"Spawner":  func() any { return &Spawner{Interval: 1, Offset: vec.Vector3{Y: 2}} },
		"Killzone": func() any { return &Killzone{} },
		"Jumper":   func() any { return &Jumper{Height: 2} },
	} {
		if err := h.RegisterBehavior(name, f); err != nil {
			return err
		}
	}
	return h.RegisterSystem("Census", func() any { return &Census{Every: 60} })
}

// Spinner turns its entity around the Y axis.
type Spinner struct {
	// Speed in radians per second.
	Speed float32
}

func (s *Spinner) Update(ctx scriptlib.Context, dt float32) error {
	t, ok, err := ctx.Self.Transform()
	if err != nil || !ok {
		return err
	}
	q, err := t.Rotation()
	if err != nil {
		return err
	}
	return t.SetRotation(q.Mul(vec.FromEuler(s.Speed*dt, 0, 0)))
}

// Spawner instantiates a prefab above its entity every Interval seconds,
// up to Limit copies when Limit is positive.
type Spawner struct {
	Prefab   string
	Interval float32
	Limit    int
	Offset   vec.Vector3

	prefab  scriptlib.Prefab
	elapsed float32
	spawned int
}

func (s *Spawner) Init(ctx scriptlib.Context) error {
	p, ok := ctx.World.Prefab(s.Prefab)
	if !ok {
		return fmt.Errorf("prefab %q not found", s.Prefab)
	}
	s.prefab = p
	return nil
}

func (s *Spawner) Update(ctx scriptlib.Context, dt float32) error {
	if s.prefab == (scriptlib.Prefab{}) || (s.Limit > 0 && s.spawned >= s.Limit) {
		return nil
	}
	s.elapsed += dt
	if s.elapsed < s.Interval {
		return nil
	}
	s.elapsed -= s.Interval

	at, err := ctx.Self.Position()
	if err != nil {
		return err
	}
	if _, err := s.prefab.Instantiate(at.Add(s.Offset)); err != nil {
		return err
	}
	s.spawned++
	ctx.Log().Trace(fmt.Sprintf("spawned %s #%d", s.Prefab, s.spawned))
	return nil
}

// Killzone destroys every actor that enters its trigger.
type Killzone struct{}

func (k *Killzone) OnTriggerWasEntered(ctx scriptlib.Context, ev scriptlib.TriggerEvent) error {
	name, err := ev.Actor.Name()
	if err != nil {
		return err
	}
	if err := ev.Actor.Destroy(); err != nil {
		return err
	}
	ctx.Log().Warn("killzone destroyed " + name)
	return nil
}

// Jumper teleports its actor up by Height while SPACE is held and it is
// resting. Jump can also be invoked by name.
type Jumper struct {
	Height float32

	grounded bool
}

func (j *Jumper) OnCollisionStart(ctx scriptlib.Context, ev scriptlib.CollisionEvent) error {
	j.grounded = true
	return nil
}

func (j *Jumper) OnCollisionEnd(ctx scriptlib.Context, ev scriptlib.CollisionEvent) error {
	j.grounded = false
	return nil
}

func (j *Jumper) Update(ctx scriptlib.Context, dt float32) error {
	if !j.grounded || !ctx.World.Input().IsKeyDown(marshal.KeySpace) {
		return nil
	}
	return j.Jump(ctx)
}

// Jump lifts the actor by Height.
func (j *Jumper) Jump(ctx scriptlib.Context) error {
	actor, ok, err := ctx.Self.Actor()
	if err != nil || !ok {
		return err
	}
	at, err := ctx.Self.Position()
	if err != nil {
		return err
	}
	j.grounded = false
	return actor.TeleportTo(at.Add(vec.Vector3{Y: j.Height}))
}

// Census logs how many entities its selector matches, once when the scene
// loads and then every Every frames.
type Census struct {
	Every int

	frames int
}

func (c *Census) OnSceneLoaded(ctx scriptlib.Context) error {
	ctx.Log().Trace(fmt.Sprintf("scene loaded with %d entities", len(ctx.World.Entities())))
	return nil
}

func (c *Census) Update(ctx scriptlib.Context, dt float32, entities []scriptlib.Entity) error {
	c.frames++
	if c.Every <= 0 || c.frames%c.Every != 0 {
		return nil
	}
	ctx.Log().Trace(fmt.Sprintf("census %d", len(entities)))
	return nil
}
