package jsscript

import (
	"context"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/dop251/goja"

	"github.com/wippyai/scriptlib"
	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/host"
	"github.com/wippyai/scriptlib/vec"
)

// Script is a compiled JavaScript behavior. The program must evaluate to a
// factory function returning the instance object:
//
//	(function () {
//	    return {
//	        speed: 1,
//	        update(dt) {
//	            const p = this.entity.position();
//	            this.entity.setPosition(p.x + this.speed * dt, p.y, p.z);
//	        },
//	    };
//	})
type Script struct {
	name    string
	program *goja.Program
	hooks   scriptlib.Hook
}

// Load compiles source and discovers the hooks its instances define.
func Load(name, source string) (*Script, error) {
	program, err := goja.Compile(name, source, true)
	if err != nil {
		return nil, errors.Load(fmt.Sprintf("js script %s", name), err)
	}
	s := &Script{name: name, program: program}
	a, err := s.instantiate()
	if err != nil {
		return nil, err
	}
	s.hooks = a.hooks
	return s, nil
}

// Name returns the script's name.
func (s *Script) Name() string { return s.name }

// Hooks returns the hooks the script's instances define.
func (s *Script) Hooks() scriptlib.Hook { return s.hooks }

// Behavior returns a factory producing behavior instances of the script.
func (s *Script) Behavior() host.Factory {
	return func() any { return &Behavior{s.mustInstantiate()} }
}

// System returns a factory producing system instances of the script.
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

func (s *Script) instantiate() (*adapter, error) {
	vm := goja.New()
	a := &adapter{script: s, vm: vm, fields: make(map[string]any)}
	a.openAPI()

	v, err := vm.RunProgram(s.program)
	if err != nil {
		return nil, errors.Load(fmt.Sprintf("js script %s", s.name), err)
	}
	factory, ok := goja.AssertFunction(v)
	if !ok {
		return nil, errors.Load(fmt.Sprintf("js script %s must evaluate to a factory function", s.name), nil)
	}
	obj, err := factory(goja.Undefined())
	if err != nil {
		return nil, errors.Load(fmt.Sprintf("js script %s factory", s.name), err)
	}
	if goja.IsUndefined(obj) || goja.IsNull(obj) {
		return nil, errors.Load(fmt.Sprintf("js script %s factory returned no object", s.name), nil)
	}
	a.obj = obj.ToObject(vm)

	for bit := scriptlib.Hook(1); bit <= scriptlib.HookAll; bit <<= 1 {
		if _, ok := goja.AssertFunction(a.obj.Get(jsName(bit.String()))); ok {
			a.hooks |= bit
		}
	}
	return a, nil
}

// jsName turns a hook method name into its JavaScript spelling.
func jsName(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[n:]
}

type adapter struct {
	script *Script
	vm     *goja.Runtime
	obj    *goja.Object
	ctx    scriptlib.Context
	hooks  scriptlib.Hook
	fields map[string]any
}

func (a *adapter) Hooks() scriptlib.Hook { return a.hooks }

// call invokes method fn on the instance object. A missing method is not an
// error. Cancelling ctx interrupts the script.
func (a *adapter) call(ctx scriptlib.Context, fn string, args func() []goja.Value) error {
	f, ok := goja.AssertFunction(a.obj.Get(fn))
	if !ok {
		return nil
	}

	prev := a.ctx
	a.ctx = ctx
	defer func() { a.ctx = prev }()

	if ctx.Context != nil {
		stop := context.AfterFunc(ctx.Context, func() { a.vm.Interrupt(ctx.Err()) })
		defer func() {
			if !stop() {
				a.vm.ClearInterrupt()
			}
		}()
	}

	if ctx.Self != (scriptlib.Entity{}) {
		_ = a.obj.Set("entity", a.entity(ctx.Self))
	}
	var argv []goja.Value
	if args != nil {
		argv = args()
	}
	if _, err := f(a.obj, argv...); err != nil {
		return errors.ScriptFault(a.script.name, fn, err)
	}
	return nil
}

func (a *adapter) Init(ctx scriptlib.Context) error { return a.call(ctx, "init", nil) }

func (a *adapter) Initialize(ctx scriptlib.Context) error { return a.call(ctx, "initialize", nil) }

func (a *adapter) Shutdown(ctx scriptlib.Context) error { return a.call(ctx, "shutdown", nil) }

func (a *adapter) OnSceneLoaded(ctx scriptlib.Context) error {
	return a.call(ctx, "onSceneLoaded", nil)
}

func (a *adapter) OnCollisionStart(ctx scriptlib.Context, ev scriptlib.CollisionEvent) error {
	return a.call(ctx, "onCollisionStart", func() []goja.Value { return []goja.Value{a.collision(ctx, ev)} })
}

func (a *adapter) OnCollisionEnd(ctx scriptlib.Context, ev scriptlib.CollisionEvent) error {
	return a.call(ctx, "onCollisionEnd", func() []goja.Value { return []goja.Value{a.collision(ctx, ev)} })
}

func (a *adapter) OnCollisionEnter(ctx scriptlib.Context, other scriptlib.Entity) error {
	return a.call(ctx, "onCollisionEnter", func() []goja.Value { return []goja.Value{a.entity(other)} })
}

func (a *adapter) OnTriggerEnter(ctx scriptlib.Context, ev scriptlib.TriggerEvent) error {
	return a.call(ctx, "onTriggerEnter", func() []goja.Value { return []goja.Value{a.trigger(ev)} })
}

func (a *adapter) OnTriggerLeave(ctx scriptlib.Context, ev scriptlib.TriggerEvent) error {
	return a.call(ctx, "onTriggerLeave", func() []goja.Value { return []goja.Value{a.trigger(ev)} })
}

func (a *adapter) OnTriggerWasEntered(ctx scriptlib.Context, ev scriptlib.TriggerEvent) error {
	return a.call(ctx, "onTriggerWasEntered", func() []goja.Value { return []goja.Value{a.trigger(ev)} })
}

func (a *adapter) OnTriggerWasLeft(ctx scriptlib.Context, ev scriptlib.TriggerEvent) error {
	return a.call(ctx, "onTriggerWasLeft", func() []goja.Value { return []goja.Value{a.trigger(ev)} })
}

// Invoke calls a method of the instance object. Both the Go spelling
// ("Jump") and the JavaScript spelling ("jump") are looked up.
func (a *adapter) Invoke(ctx scriptlib.Context, name string, args ...any) (bool, error) {
	fn := name
	if _, ok := goja.AssertFunction(a.obj.Get(fn)); !ok {
		fn = jsName(name)
		if _, ok := goja.AssertFunction(a.obj.Get(fn)); !ok {
			return false, nil
		}
	}
	return true, a.call(ctx, fn, func() []goja.Value {
		argv := make([]goja.Value, len(args))
		for i, arg := range args {
			argv[i] = a.value(arg)
		}
		return argv
	})
}

// SetField stores a designer parameter on the instance object.
func (a *adapter) SetField(name string, value any) error {
	if err := a.obj.Set(name, a.value(value)); err != nil {
		return errors.Wrap(errors.PhaseMarshal, errors.KindTypeMismatch, err, name)
	}
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

// Behavior is a JavaScript behavior instance.
type Behavior struct{ *adapter }

func (b *Behavior) Update(ctx scriptlib.Context, dt float32) error {
	return b.call(ctx, "update", func() []goja.Value {
		return []goja.Value{b.vm.ToValue(float64(dt))}
	})
}

// System is a JavaScript system instance. Its update receives dt and the
// matched entities as an array.
type System struct{ *adapter }

func (s *System) Update(ctx scriptlib.Context, dt float32, entities []scriptlib.Entity) error {
	return s.call(ctx, "update", func() []goja.Value {
		items := make([]any, len(entities))
		for i, e := range entities {
			items[i] = s.entity(e)
		}
		return []goja.Value{s.vm.ToValue(float64(dt)), s.vm.NewArray(items...)}
	})
}

func (a *adapter) value(v any) goja.Value {
	switch v := v.(type) {
	case scriptlib.Entity:
		return a.entity(v)
	case vec.Vector3:
		return a.vector(v)
	case float32:
		return a.vm.ToValue(float64(v))
	default:
		return a.vm.ToValue(v)
	}
}

func (a *adapter) vector(v vec.Vector3) goja.Value {
	obj := a.vm.NewObject()
	_ = obj.Set("x", float64(v.X))
	_ = obj.Set("y", float64(v.Y))
	_ = obj.Set("z", float64(v.Z))
	return obj
}

func (a *adapter) collision(ctx scriptlib.Context, ev scriptlib.CollisionEvent) goja.Value {
	obj := a.vm.NewObject()
	_ = obj.Set("object1", a.entity(ev.Object1))
	_ = obj.Set("object2", a.entity(ev.Object2))
	_ = obj.Set("other", a.entity(ev.Other(ctx.Self)))
	_ = obj.Set("start", ev.Start)
	return obj
}

func (a *adapter) trigger(ev scriptlib.TriggerEvent) goja.Value {
	obj := a.vm.NewObject()
	_ = obj.Set("trigger", a.entity(ev.Trigger))
	_ = obj.Set("actor", a.entity(ev.Actor))
	_ = obj.Set("enter", ev.Enter)
	return obj
}
