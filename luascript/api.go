package luascript

import (
	"github.com/Shopify/go-lua"

	"github.com/wippyai/scriptlib"
	"github.com/wippyai/scriptlib/marshal"
	"github.com/wippyai/scriptlib/vec"
)

// openAPI installs the entity metatable and the log, input, physics and
// world globals.
func (a *adapter) openAPI() {
	l := a.l

	lua.NewMetaTable(l, entityTypeName)
	l.NewTable()
	lua.SetFunctions(l, []lua.RegistryFunction{
		{Name: "name", Function: entityName},
		{Name: "valid", Function: entityValid},
		{Name: "tags", Function: entityTags},
		{Name: "position", Function: entityPosition},
		{Name: "set_position", Function: entitySetPosition},
		{Name: "teleport", Function: entityTeleport},
		{Name: "destroy", Function: entityDestroy},
	}, 0)
	l.SetField(-2, "__index")
	lua.SetFunctions(l, []lua.RegistryFunction{
		{Name: "__eq", Function: entityEq},
		{Name: "__tostring", Function: entityString},
	}, 0)
	l.Pop(1)

	a.global("log", []lua.RegistryFunction{
		{Name: "trace", Function: a.logTrace},
		{Name: "warn", Function: a.logWarn},
		{Name: "error", Function: a.logError},
	})
	a.global("input", []lua.RegistryFunction{
		{Name: "key_down", Function: a.keyDown},
		{Name: "mouse_down", Function: a.mouseDown},
	})
	a.global("physics", []lua.RegistryFunction{
		{Name: "raycast", Function: a.raycast},
	})
	a.global("world", []lua.RegistryFunction{
		{Name: "find", Function: a.find},
	})
}

func (a *adapter) global(name string, fns []lua.RegistryFunction) {
	a.l.NewTable()
	lua.SetFunctions(a.l, fns, 0)
	a.l.SetGlobal(name)
}

// world returns the scene API of the hook in progress. Calls made while the
// chunk loads, outside any hook, raise a Lua error.
func (a *adapter) world(l *lua.State) scriptlib.World {
	if a.ctx.World == (scriptlib.World{}) {
		lua.Errorf(l, "scene API is only available inside hooks")
	}
	return a.ctx.World
}

func (a *adapter) pushEntity(e scriptlib.Entity) {
	if e == (scriptlib.Entity{}) {
		a.l.PushNil()
		return
	}
	a.l.PushUserData(e)
	lua.SetMetaTableNamed(a.l, entityTypeName)
}

func checkEntity(l *lua.State, index int) scriptlib.Entity {
	ud := lua.CheckUserData(l, index, entityTypeName)
	e, ok := ud.(scriptlib.Entity)
	if !ok {
		lua.ArgumentError(l, index, "entity expected")
	}
	return e
}

func checkVector(l *lua.State, first int) vec.Vector3 {
	return vec.Vector3{
		X: float32(lua.CheckNumber(l, first)),
		Y: float32(lua.CheckNumber(l, first+1)),
		Z: float32(lua.CheckNumber(l, first+2)),
	}
}

func entityName(l *lua.State) int {
	name, err := checkEntity(l, 1).Name()
	if err != nil {
		l.PushNil()
		return 1
	}
	l.PushString(name)
	return 1
}

func entityValid(l *lua.State) int {
	l.PushBoolean(checkEntity(l, 1).Valid())
	return 1
}

func entityTags(l *lua.State) int {
	tags, err := checkEntity(l, 1).Tags()
	if err != nil {
		l.PushNil()
		return 1
	}
	l.PushInteger(int(tags))
	return 1
}

func entityPosition(l *lua.State) int {
	p, err := checkEntity(l, 1).Position()
	if err != nil {
		l.PushNil()
		return 1
	}
	l.PushNumber(float64(p.X))
	l.PushNumber(float64(p.Y))
	l.PushNumber(float64(p.Z))
	return 3
}

func entitySetPosition(l *lua.State) int {
	e := checkEntity(l, 1)
	l.PushBoolean(e.SetPosition(checkVector(l, 2)) == nil)
	return 1
}

func entityTeleport(l *lua.State) int {
	e := checkEntity(l, 1)
	to := checkVector(l, 2)
	actor, ok, err := e.Actor()
	if err != nil || !ok {
		l.PushBoolean(false)
		return 1
	}
	l.PushBoolean(actor.TeleportTo(to) == nil)
	return 1
}

func entityDestroy(l *lua.State) int {
	l.PushBoolean(checkEntity(l, 1).Destroy() == nil)
	return 1
}

func entityEq(l *lua.State) int {
	a, aok := l.ToUserData(1).(scriptlib.Entity)
	b, bok := l.ToUserData(2).(scriptlib.Entity)
	l.PushBoolean(aok && bok && a == b)
	return 1
}

func entityString(l *lua.State) int {
	e := checkEntity(l, 1)
	name, err := e.Name()
	if err != nil {
		name = "<destroyed>"
	}
	l.PushString("entity(" + name + ")")
	return 1
}

func (a *adapter) logTrace(l *lua.State) int {
	a.world(l).Log().Trace(lua.CheckString(l, 1))
	return 0
}

func (a *adapter) logWarn(l *lua.State) int {
	a.world(l).Log().Warn(lua.CheckString(l, 1))
	return 0
}

func (a *adapter) logError(l *lua.State) int {
	a.world(l).Log().Error(lua.CheckString(l, 1))
	return 0
}

func (a *adapter) keyDown(l *lua.State) int {
	key, err := marshal.ParseKey(lua.CheckString(l, 1))
	if err != nil {
		lua.ArgumentError(l, 1, err.Error())
	}
	l.PushBoolean(a.world(l).Input().IsKeyDown(key))
	return 1
}

func (a *adapter) mouseDown(l *lua.State) int {
	button, err := marshal.ParseMouseKey(lua.CheckString(l, 1))
	if err != nil {
		lua.ArgumentError(l, 1, err.Error())
	}
	l.PushBoolean(a.world(l).Input().IsMouseButtonDown(button))
	return 1
}

// raycast(ox, oy, oz, dx, dy, dz [, max]) returns the entity hit and the
// distance, or nil.
func (a *adapter) raycast(l *lua.State) int {
	origin := checkVector(l, 1)
	dir := checkVector(l, 4)
	maxDist := float32(lua.OptNumber(l, 7, 1000))
	hit, ok, err := a.world(l).Raycast(origin, dir, maxDist)
	if err != nil || !ok {
		l.PushNil()
		return 1
	}
	a.pushEntity(hit.Object)
	l.PushNumber(float64(hit.Distance))
	return 2
}

func (a *adapter) find(l *lua.State) int {
	e, ok := a.world(l).FindEntity(lua.CheckString(l, 1))
	if !ok {
		l.PushNil()
		return 1
	}
	a.pushEntity(e)
	return 1
}
