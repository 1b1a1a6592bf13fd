package jsscript

import (
	"github.com/dop251/goja"

	"github.com/wippyai/scriptlib"
	"github.com/wippyai/scriptlib/marshal"
	"github.com/wippyai/scriptlib/vec"
)

// openAPI installs the log, input, physics and world globals.
func (a *adapter) openAPI() {
	vm := a.vm
	_ = vm.Set("log", map[string]any{
		"trace": func(msg string) { a.world().Log().Trace(msg) },
		"warn":  func(msg string) { a.world().Log().Warn(msg) },
		"error": func(msg string) { a.world().Log().Error(msg) },
	})
	_ = vm.Set("input", map[string]any{
		"keyDown":   a.keyDown,
		"mouseDown": a.mouseDown,
	})
	_ = vm.Set("physics", map[string]any{
		"raycast": a.raycast,
	})
	_ = vm.Set("world", map[string]any{
		"find": a.find,
	})
}

// world returns the scene API of the hook in progress. Calls made while the
// program loads, outside any hook, throw.
func (a *adapter) world() scriptlib.World {
	if a.ctx.World == (scriptlib.World{}) {
		panic(a.vm.NewTypeError("scene API is only available inside hooks"))
	}
	return a.ctx.World
}

func (a *adapter) keyDown(name string) bool {
	key, err := marshal.ParseKey(name)
	if err != nil {
		panic(a.vm.NewTypeError(err.Error()))
	}
	return a.world().Input().IsKeyDown(key)
}

func (a *adapter) mouseDown(name string) bool {
	button, err := marshal.ParseMouseKey(name)
	if err != nil {
		panic(a.vm.NewTypeError(err.Error()))
	}
	return a.world().Input().IsMouseButtonDown(button)
}

// raycast(ox, oy, oz, dx, dy, dz, [max]) returns {entity, distance} or null.
func (a *adapter) raycast(call goja.FunctionCall) goja.Value {
	origin := a.vectorArg(call, 0)
	dir := a.vectorArg(call, 3)
	maxDist := float32(1000)
	if arg := call.Argument(6); !goja.IsUndefined(arg) {
		maxDist = float32(arg.ToFloat())
	}
	hit, ok, err := a.world().Raycast(origin, dir, maxDist)
	if err != nil || !ok {
		return goja.Null()
	}
	obj := a.vm.NewObject()
	_ = obj.Set("entity", a.entity(hit.Object))
	_ = obj.Set("distance", float64(hit.Distance))
	return obj
}

func (a *adapter) find(name string) goja.Value {
	e, ok := a.world().FindEntity(name)
	if !ok {
		return goja.Null()
	}
	return a.entity(e)
}

func (a *adapter) vectorArg(call goja.FunctionCall, first int) vec.Vector3 {
	return vec.Vector3{
		X: float32(call.Argument(first).ToFloat()),
		Y: float32(call.Argument(first + 1).ToFloat()),
		Z: float32(call.Argument(first + 2).ToFloat()),
	}
}

// entity wraps an entity proxy as a JavaScript object. Two wrappers of the
// same entity compare equal through equals().
func (a *adapter) entity(e scriptlib.Entity) goja.Value {
	if e == (scriptlib.Entity{}) {
		return goja.Null()
	}
	vm := a.vm
	obj := vm.NewObject()
	_ = obj.Set("ref", marshal.PackRef(e.Ref()))
	_ = obj.Set("name", func() goja.Value {
		name, err := e.Name()
		if err != nil {
			return goja.Null()
		}
		return vm.ToValue(name)
	})
	_ = obj.Set("valid", e.Valid)
	_ = obj.Set("tags", func() goja.Value {
		tags, err := e.Tags()
		if err != nil {
			return goja.Null()
		}
		return vm.ToValue(tags)
	})
	_ = obj.Set("position", func() goja.Value {
		p, err := e.Position()
		if err != nil {
			return goja.Null()
		}
		return a.vector(p)
	})
	_ = obj.Set("setPosition", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(e.SetPosition(a.vectorArg(call, 0)) == nil)
	})
	_ = obj.Set("teleport", func(call goja.FunctionCall) goja.Value {
		actor, ok, err := e.Actor()
		if err != nil || !ok {
			return vm.ToValue(false)
		}
		return vm.ToValue(actor.TeleportTo(a.vectorArg(call, 0)) == nil)
	})
	_ = obj.Set("destroy", func() bool { return e.Destroy() == nil })
	_ = obj.Set("equals", func(other goja.Value) bool {
		if goja.IsUndefined(other) || goja.IsNull(other) {
			return false
		}
		ref := other.ToObject(vm).Get("ref")
		return ref != nil && ref.Export() == obj.Get("ref").Export()
	})
	return obj
}
