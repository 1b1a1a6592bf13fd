package jsscript

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/scriptlib"
	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/host"
	"github.com/wippyai/scriptlib/marshal"
	"github.com/wippyai/scriptlib/native"
	"github.com/wippyai/scriptlib/native/sim"
	"github.com/wippyai/scriptlib/vec"
)

type scene struct {
	eng    *sim.Engine
	h      *host.Host
	ground native.Handle
	box    native.Handle
}

func newScene(t *testing.T) *scene {
	t.Helper()
	eng := sim.New()
	id := eng.NewScene()
	ground, err := eng.Spawn(id, sim.EntitySpec{
		Name:     "Ground",
		Actor:    native.ActorStatic,
		Collider: &sim.ColliderSpec{HalfExtents: vec.Vector3{X: 10, Y: 0.5, Z: 10}},
	})
	require.NoError(t, err)
	box, err := eng.Spawn(id, sim.EntitySpec{
		Name:     "Box",
		Position: vec.Vector3{Y: 3},
		Actor:    native.ActorDynamic,
		Collider: &sim.ColliderSpec{HalfExtents: vec.Splat3(0.5)},
	})
	require.NoError(t, err)
	return &scene{eng: eng, h: host.New(eng, id), ground: ground, box: box}
}

func (s *scene) messages() []string {
	var out []string
	for _, line := range s.eng.Logs() {
		out = append(out, line.Level.String()+" "+line.Message)
	}
	return out
}

func (s *scene) tick(t *testing.T, n int, dt float32) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := s.h.Tick(context.Background(), dt)
		require.NoError(t, err)
	}
}

const mover = `
(function () {
	return {
		speed: 1,
		init() {
			log.trace("init " + this.entity.name());
		},
		update(dt) {
			const p = this.entity.position();
			this.entity.setPosition(p.x + this.speed * dt, p.y, p.z);
		},
	};
})
`

func TestLoad(t *testing.T) {
	s, err := Load("Mover", mover)
	require.NoError(t, err)
	assert.Equal(t, "Mover", s.Name())
	assert.Equal(t, scriptlib.HookInit|scriptlib.HookUpdate, s.Hooks())

	tests := []struct {
		name   string
		source string
	}{
		{"syntax error", "(function ( {"},
		{"runtime error", "throw new Error('boom')"},
		{"not a function", "42"},
		{"factory throws", "(function () { throw new Error('no') })"},
		{"factory returns nothing", "(function () {})"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("Bad", tt.source)
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.KindInvalidInput))
		})
	}
}

func TestBehavior_MovesEntity(t *testing.T) {
	sc := newScene(t)
	_, err := RegisterBehavior(sc.h, "Mover", mover)
	require.NoError(t, err)

	id, err := sc.h.AttachBehavior(sc.box, "Mover")
	require.NoError(t, err)
	require.NoError(t, sc.h.SetField(id, "speed", 2.0))

	fields, err := sc.h.Fields(id)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"speed": 2.0}, fields)

	sc.tick(t, 4, 0.5)

	pos, err := sc.eng.Position(sc.box)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, pos.X, 1e-5)
	assert.InDelta(t, 3.0, pos.Y, 1e-5)
	assert.Equal(t, []string{"trace init Box"}, sc.messages())
}

const faulty = `
(function () {
	let frames = 0;
	return {
		update(dt) {
			frames++;
			if (frames === 1) {
				throw new Error("first frame fails");
			}
			log.warn("frame " + frames);
		},
	};
})
`

func TestBehavior_ExceptionIsFault(t *testing.T) {
	sc := newScene(t)
	_, err := RegisterBehavior(sc.h, "Faulty", faulty)
	require.NoError(t, err)
	_, err = sc.h.AttachBehavior(sc.box, "Faulty")
	require.NoError(t, err)

	stats, err := sc.h.Tick(context.Background(), 0.1)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Faults)

	sc.tick(t, 1, 0.1)
	assert.Equal(t, uint64(1), sc.h.Faults())
	assert.Equal(t, []string{"warn frame 2"}, sc.messages())
}

const collider = `
(function () {
	return {
		onCollisionStart(ev) {
			log.warn("start " + ev.other.name() + " " + ev.start);
		},
		onCollisionEnter(other) {
			log.trace("enter " + other.name());
		},
		onCollisionEnd(ev) {
			log.warn("end " + ev.other.name());
		},
		onTriggerEnter(ev) {
			log.trace("trigger " + ev.trigger.name() + " " + ev.actor.equals(this.entity));
		},
	};
})
`

func TestBehavior_Events(t *testing.T) {
	sc := newScene(t)
	_, err := RegisterBehavior(sc.h, "Collider", collider)
	require.NoError(t, err)
	_, err = sc.h.AttachBehavior(sc.box, "Collider")
	require.NoError(t, err)
	sc.tick(t, 1, 0.1)

	ctx := context.Background()
	require.NoError(t, sc.h.DispatchCollision(ctx, sc.ground, sc.box, true))
	require.NoError(t, sc.h.DispatchCollision(ctx, sc.ground, sc.box, false))
	require.NoError(t, sc.h.DispatchTrigger(ctx, sc.ground, sc.box, true))

	assert.Equal(t, []string{
		"warn start Ground true",
		"trace enter Ground",
		"warn end Ground",
		"trace trigger Ground true",
	}, sc.messages())
}

const scanner = `
(function () {
	let total = 0;
	return {
		update(dt) {
			const hit = physics.raycast(0, 10, 0, 0, -1, 0);
			if (hit !== null) {
				log.trace("hit " + hit.entity.name() + " at " + hit.distance);
			}
			const ground = world.find("Ground");
			log.trace("found " + (ground !== null) + " self " + ground.equals(this.entity));
			if (input.keyDown("SPACE")) {
				log.warn("jump");
			}
			if (world.find("Nope") === null) {
				log.trace("no Nope");
			}
		},
		add(n) {
			total += n;
			log.trace("total " + total);
		},
	};
})
`

func TestBehavior_SceneAPI(t *testing.T) {
	sc := newScene(t)
	_, err := RegisterBehavior(sc.h, "Scanner", scanner)
	require.NoError(t, err)
	id, err := sc.h.AttachBehavior(sc.ground, "Scanner")
	require.NoError(t, err)

	sc.eng.SetKey(int32(marshal.KeySpace), true)
	sc.tick(t, 1, 0.1)

	assert.Equal(t, []string{
		"trace hit Box at 6.5",
		"trace found true self true",
		"warn jump",
		"trace no Nope",
	}, sc.messages())

	ctx := context.Background()
	ok, err := sc.h.Invoke(ctx, id, "Add", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = sc.h.Invoke(ctx, id, "add", 3.5)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = sc.h.Invoke(ctx, id, "Missing")
	require.NoError(t, err)
	assert.False(t, ok)

	msgs := sc.messages()
	assert.Equal(t, []string{"trace total 2", "trace total 5.5"}, msgs[len(msgs)-2:])
}

const counter = `
(function () {
	return {
		onSceneLoaded() {
			log.trace("loaded");
		},
		update(dt, entities) {
			log.trace("entities " + entities.length + " first " + entities[0].name());
		},
	};
})
`

func TestSystem(t *testing.T) {
	sc := newScene(t)
	s, err := RegisterSystem(sc.h, "Counter", counter)
	require.NoError(t, err)
	assert.Equal(t, scriptlib.HookUpdate|scriptlib.HookSceneLoaded, s.Hooks())

	_, err = sc.h.AddSystem("Counter", host.NameSelector("Box"))
	require.NoError(t, err)
	require.NoError(t, sc.h.Start(context.Background()))
	sc.tick(t, 1, 0.1)

	assert.Equal(t, []string{"trace loaded", "trace entities 1 first Box"}, sc.messages())
}

func TestBehavior_APIOutsideHookFailsLoad(t *testing.T) {
	_, err := Load("Eager", `log.trace("too early"); (function () { return {}; })`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only available inside hooks")
}

const spinner = `
(function () {
	return {
		update(dt) {
			for (;;) {}
		},
	};
})
`

func TestBehavior_CancelInterrupts(t *testing.T) {
	sc := newScene(t)
	_, err := RegisterBehavior(sc.h, "Spinner", spinner)
	require.NoError(t, err)
	_, err = sc.h.AttachBehavior(sc.box, "Spinner")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	stats, err := sc.h.Tick(ctx, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Faults)
}
