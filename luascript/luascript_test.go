package luascript

import (
	"context"
	"testing"

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
local Mover = { speed = 1 }

function Mover:Init()
	log.trace("init " .. self.entity:name())
end

function Mover:Update(dt)
	local x, y, z = self.entity:position()
	self.entity:set_position(x + self.speed * dt, y, z)
end

return Mover
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
		{"syntax error", "local x = "},
		{"runtime error", "error('boom')"},
		{"not a table", "return 42"},
		{"nothing returned", "local x = 1"},
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
local Faulty = {}

function Faulty:Update(dt)
	self.frames = (self.frames or 0) + 1
	if self.frames == 1 then
		error("first frame fails")
	end
	log.warn("frame " .. tostring(self.frames))
end

return Faulty
`

func TestBehavior_LuaErrorIsFault(t *testing.T) {
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
local Collider = {}

function Collider:OnCollisionStart(ev)
	log.warn("start " .. ev.other:name() .. " " .. tostring(ev.start))
end

function Collider:OnCollisionEnter(other)
	log.trace("enter " .. other:name())
end

function Collider:OnCollisionEnd(ev)
	log.warn("end " .. ev.other:name())
end

function Collider:OnTriggerEnter(ev)
	log.trace("trigger " .. ev.trigger:name())
end

return Collider
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
		"trace trigger Ground",
	}, sc.messages())
}

const scanner = `
local Scanner = {}

function Scanner:Update(dt)
	local hit, dist = physics.raycast(0, 10, 0, 0, -1, 0)
	if hit then
		log.trace("hit " .. hit:name() .. " at " .. tostring(dist))
	end
	local ground = world.find("Ground")
	log.trace("found " .. tostring(ground ~= nil) .. " self " .. tostring(ground == self.entity))
	if input.key_down("SPACE") then
		log.warn("jump")
	end
	if world.find("Nope") == nil then
		log.trace("no Nope")
	end
end

function Scanner:Add(n)
	self.total = (self.total or 0) + n
	log.trace("total " .. tostring(self.total))
end

return Scanner
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
	ok, err = sc.h.Invoke(ctx, id, "Add", 3.5)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = sc.h.Invoke(ctx, id, "Missing")
	require.NoError(t, err)
	assert.False(t, ok)

	msgs := sc.messages()
	assert.Equal(t, []string{"trace total 2", "trace total 5.5"}, msgs[len(msgs)-2:])
}

const counter = `
local Counter = {}

function Counter:OnSceneLoaded()
	log.trace("loaded")
end

function Counter:Update(dt, entities)
	log.trace("entities " .. tostring(#entities) .. " first " .. entities[1]:name())
end

return Counter
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
	_, err := Load("Eager", `log.trace("too early") return {}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only available inside hooks")
}
