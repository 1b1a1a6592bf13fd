package luascript

import (
	"fmt"

	"github.com/Shopify/go-lua"

	"github.com/wippyai/scriptlib"
	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/host"
	"github.com/wippyai/scriptlib/vec"
)

const (
	entityTypeName = "scriptlib.entity"
	selfKey        = "scriptlib.self"
)

// Script is a loaded Lua class. The chunk must return a table whose function
// fields are the hooks:
//
//	local Spinner = { speed = 90 }
//
//	function Spinner:Update(dt)
//	    local x, y, z = self.entity:position()
//	    self.entity:set_position(x, y + dt, z)
//	end
//
//	return Spinner
type Script struct {
	name   string
	source string
	hooks  scriptlib.Hook
}

// Load compiles source and discovers the hooks its class defines.
func Load(name, source string) (*Script, error) {
	s := &Script{name: name, source: source}
	a, err := s.instantiate()
	if err != nil {
		return nil, err
	}
	s.hooks = a.classHooks
	return s, nil
}

// Name returns the script's name.
func (s *Script) Name() string { return s.name }

// Hooks returns the hooks the class defines.
func (s *Script) Hooks() scriptlib.Hook { return s.hooks }

// Behavior returns a factory producing behavior instances of the script.
func (s *Script) Behavior() host.Factory {
	return func() any { return &Behavior{s.mustInstantiate()} }
}

// System returns a factory producing system instances of the script. A system
// Update receives the matched entities as an array after dt.
func (s *Script) System() host.Factory {
	return func() any { return &System{s.mustInstantiate()} }
}

// RegisterBehavior loads source and registers it on h as a behavior.
func RegisterBehavior(h *host.Host, name, source string) (*Script, error) {
	s, err := Load(name, source)
	if err != nil {
		return nil, err
	}
	return s, h.RegisterBehavior(name, s.Behavior())
}

// RegisterSystem loads source and registers it on h as a system.
func RegisterSystem(h *host.Host, name, source string) (*Script, error) {
	s, err := Load(name, source)
	if err != nil {
		return nil, err
	}
	return s, h.RegisterSystem(name, s.System())
}

func (s *Script) mustInstantiate() *adapter {
	a, err := s.instantiate()
	if err != nil {
		panic(err)
	}
	return a
}

// instantiate creates a fresh Lua state, runs the chunk and stores an
// instance table whose metatable indexes the class.
func (s *Script) instantiate() (*adapter, error) {
	l := lua.NewState()
	lua.OpenLibraries(l)
	a := &adapter{script: s, l: l, fields: make(map[string]any)}
	a.openAPI()

	if err := lua.LoadBuffer(l, s.source, s.name, ""); err != nil {
		return nil, errors.Load(fmt.Sprintf("lua script %s", s.name), err)
	}
	if err := l.ProtectedCall(0, 1, 0); err != nil {
		return nil, errors.Load(fmt.Sprintf("lua script %s", s.name), err)
	}
	if l.TypeOf(-1) != lua.TypeTable {
		l.Pop(1)
		return nil, errors.Load(fmt.Sprintf("lua script %s must return a class table", s.name), nil)
	}

	a.classHooks = classHooks(l, -1)

	l.NewTable()
	l.NewTable()
	l.PushValue(-3)
	l.SetField(-2, "__index")
	l.SetMetaTable(-2)
	l.SetField(lua.RegistryIndex, selfKey)
	l.Pop(1)
	return a, nil
}

func classHooks(l *lua.State, index int) scriptlib.Hook {
	index = l.AbsIndex(index)
	var h scriptlib.Hook
	l.PushNil()
	for l.Next(index) {
		if l.TypeOf(-2) == lua.TypeString && l.TypeOf(-1) == lua.TypeFunction {
			name, _ := l.ToString(-2)
			if hook, ok := scriptlib.ParseHook(name); ok {
				h |= hook
			}
		}
		l.Pop(1)
	}
	return h
}

// adapter implements the hook interfaces shared by behaviors and systems on
// top of one Lua state.
type adapter struct {
	script     *Script
	l          *lua.State
	ctx        scriptlib.Context
	classHooks scriptlib.Hook
	fields     map[string]any
}

func (a *adapter) Hooks() scriptlib.Hook { return a.classHooks }

// call invokes method fn on the instance table with push supplying nargs
// arguments after self. A missing method is not an error.
func (a *adapter) call(ctx scriptlib.Context, fn string, nargs int, push func()) error {
	l := a.l
	prev := a.ctx
	a.ctx = ctx
	top := l.Top()
	defer func() {
		l.SetTop(top)
		a.ctx = prev
	}()

	l.Field(lua.RegistryIndex, selfKey)
	if ctx.Self != (scriptlib.Entity{}) {
		a.pushEntity(ctx.Self)
		l.SetField(-2, "entity")
	}
	l.Field(-1, fn)
	if l.TypeOf(-1) != lua.TypeFunction {
		return nil
	}
	l.PushValue(-2)
	if push != nil {
		push()
	}
	if err := l.ProtectedCall(1+nargs, 0, 0); err != nil {
		return errors.ScriptFault(a.script.name, fn, err)
	}
	return nil
}

func (a *adapter) has(fn string) bool {
	l := a.l
	top := l.Top()
	defer l.SetTop(top)
	l.Field(lua.RegistryIndex, selfKey)
	l.Field(-1, fn)
	return l.TypeOf(-1) == lua.TypeFunction
}

func (a *adapter) Init(ctx scriptlib.Context) error {
	return a.call(ctx, "Init", 0, nil)
}

func (a *adapter) Initialize(ctx scriptlib.Context) error {
	return a.call(ctx, "Initialize", 0, nil)
}

func (a *adapter) Shutdown(ctx scriptlib.Context) error {
	return a.call(ctx, "Shutdown", 0, nil)
}

func (a *adapter) OnSceneLoaded(ctx scriptlib.Context) error {
	return a.call(ctx, "OnSceneLoaded", 0, nil)
}

func (a *adapter) OnCollisionStart(ctx scriptlib.Context, ev scriptlib.CollisionEvent) error {
	return a.call(ctx, "OnCollisionStart", 1, func() { a.pushCollision(ctx, ev) })
}

func (a *adapter) OnCollisionEnd(ctx scriptlib.Context, ev scriptlib.CollisionEvent) error {
	return a.call(ctx, "OnCollisionEnd", 1, func() { a.pushCollision(ctx, ev) })
}

func (a *adapter) OnCollisionEnter(ctx scriptlib.Context, other scriptlib.Entity) error {
	return a.call(ctx, "OnCollisionEnter", 1, func() { a.pushEntity(other) })
}

func (a *adapter) OnTriggerEnter(ctx scriptlib.Context, ev scriptlib.TriggerEvent) error {
	return a.call(ctx, "OnTriggerEnter", 1, func() { a.pushTrigger(ev) })
}

func (a *adapter) OnTriggerLeave(ctx scriptlib.Context, ev scriptlib.TriggerEvent) error {
	return a.call(ctx, "OnTriggerLeave", 1, func() { a.pushTrigger(ev) })
}

func (a *adapter) OnTriggerWasEntered(ctx scriptlib.Context, ev scriptlib.TriggerEvent) error {
	return a.call(ctx, "OnTriggerWasEntered", 1, func() { a.pushTrigger(ev) })
}

func (a *adapter) OnTriggerWasLeft(ctx scriptlib.Context, ev scriptlib.TriggerEvent) error {
	return a.call(ctx, "OnTriggerWasLeft", 1, func() { a.pushTrigger(ev) })
}

// Invoke calls a method of the instance table by name.
func (a *adapter) Invoke(ctx scriptlib.Context, name string, args ...any) (bool, error) {
	if !a.has(name) {
		return false, nil
	}
	for i, arg := range args {
		if !pushable(arg) {
			return true, errors.TypeMismatch(errors.PhaseMarshal, fmt.Sprintf("%s arg %d", name, i), "lua value", fmt.Sprintf("%T", arg))
		}
	}
	return true, a.call(ctx, name, len(args), func() {
		for _, arg := range args {
			a.pushValue(arg)
		}
	})
}

// SetField stores a designer parameter on the instance table.
func (a *adapter) SetField(name string, value any) error {
	if !pushable(value) {
		return errors.TypeMismatch(errors.PhaseMarshal, name, "lua value", fmt.Sprintf("%T", value))
	}
	l := a.l
	top := l.Top()
	defer l.SetTop(top)
	l.Field(lua.RegistryIndex, selfKey)
	a.pushValue(value)
	l.SetField(-2, name)
	a.fields[name] = value
	return nil
}

// Fields returns the parameters set through SetField.
func (a *adapter) Fields() map[string]any {
	out := make(map[string]any, len(a.fields))
	for k, v := range a.fields {
		out[k] = v
	}
	return out
}

// Behavior is a Lua behavior instance.
type Behavior struct{ *adapter }

func (b *Behavior) Update(ctx scriptlib.Context, dt float32) error {
	return b.call(ctx, "Update", 1, func() { b.l.PushNumber(float64(dt)) })
}

// System is a Lua system instance.
type System struct{ *adapter }

func (s *System) Update(ctx scriptlib.Context, dt float32, entities []scriptlib.Entity) error {
	return s.call(ctx, "Update", 2, func() {
		s.l.PushNumber(float64(dt))
		s.l.CreateTable(len(entities), 0)
		for i, e := range entities {
			s.pushEntity(e)
			s.l.RawSetInt(-2, i+1)
		}
	})
}

func pushable(v any) bool {
	switch v.(type) {
	case nil, bool, string, float32, float64, int, int32, int64, uint32,
		scriptlib.Entity, vec.Vector3:
		return true
	default:
		return false
	}
}

func (a *adapter) pushValue(v any) {
	l := a.l
	switch v := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(v)
	case string:
		l.PushString(v)
	case float32:
		l.PushNumber(float64(v))
	case float64:
		l.PushNumber(v)
	case int:
		l.PushInteger(v)
	case int32:
		l.PushInteger(int(v))
	case int64:
		l.PushInteger(int(v))
	case uint32:
		l.PushInteger(int(v))
	case scriptlib.Entity:
		a.pushEntity(v)
	case vec.Vector3:
		a.pushVector(v)
	default:
		l.PushNil()
	}
}

func (a *adapter) pushVector(v vec.Vector3) {
	l := a.l
	l.CreateTable(0, 3)
	l.PushNumber(float64(v.X))
	l.SetField(-2, "x")
	l.PushNumber(float64(v.Y))
	l.SetField(-2, "y")
	l.PushNumber(float64(v.Z))
	l.SetField(-2, "z")
}

func (a *adapter) pushCollision(ctx scriptlib.Context, ev scriptlib.CollisionEvent) {
	l := a.l
	l.CreateTable(0, 4)
	a.pushEntity(ev.Object1)
	l.SetField(-2, "object1")
	a.pushEntity(ev.Object2)
	l.SetField(-2, "object2")
	a.pushEntity(ev.Other(ctx.Self))
	l.SetField(-2, "other")
	l.PushBoolean(ev.Start)
	l.SetField(-2, "start")
}

func (a *adapter) pushTrigger(ev scriptlib.TriggerEvent) {
	l := a.l
	l.CreateTable(0, 3)
	a.pushEntity(ev.Trigger)
	l.SetField(-2, "trigger")
	a.pushEntity(ev.Actor)
	l.SetField(-2, "actor")
	l.PushBoolean(ev.Enter)
	l.SetField(-2, "enter")
}
