package wasmscript

import (
	"context"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/scriptlib"
	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/host"
	"github.com/wippyai/scriptlib/marshal"
)

// hookExports maps guest exports to hooks. Entity pairs are packed refs:
// (object1, object2) for collisions and (trigger, actor) for triggers.
var hookExports = []struct {
	hook   scriptlib.Hook
	name   string
	params []api.ValueType
}{
	{scriptlib.HookInit, "init", nil},
	{scriptlib.HookUpdate, "update", []api.ValueType{api.ValueTypeF32}},
	{scriptlib.HookShutdown, "shutdown", nil},
	{scriptlib.HookCollisionStart, "on_collision_start", []api.ValueType{i64, i64}},
	{scriptlib.HookCollisionEnd, "on_collision_end", []api.ValueType{i64, i64}},
	{scriptlib.HookTriggerEnter, "on_trigger_enter", []api.ValueType{i64, i64}},
	{scriptlib.HookTriggerLeave, "on_trigger_leave", []api.ValueType{i64, i64}},
}

func exportName(h scriptlib.Hook) string {
	for _, e := range hookExports {
		if e.hook == h {
			return e.name
		}
	}
	return h.String()
}

// Script is a compiled WebAssembly behavior.
type Script struct {
	r        *Runtime
	name     string
	compiled wazero.CompiledModule
	hooks    scriptlib.Hook
}

// Name returns the script's name.
func (s *Script) Name() string { return s.name }

// Hooks returns the hooks the module exports.
func (s *Script) Hooks() scriptlib.Hook { return s.hooks }

// Behavior returns a factory producing behavior instances of the script.
// Each instance is a fresh module instance with its own memory.
func (s *Script) Behavior() host.Factory {
	return func() any {
		b, err := s.Instantiate(context.Background())
		if err != nil {
			panic(err)
		}
		return b
	}
}

// RegisterBehavior loads bin on r and registers it on h as a behavior.
func RegisterBehavior(h *host.Host, r *Runtime, name string, bin []byte) (*Script, error) {
	s, err := r.Load(context.Background(), name, bin)
	if err != nil {
		return nil, err
	}
	return s, h.RegisterBehavior(name, s.Behavior())
}

// Instantiate creates one module instance of the script.
func (s *Script) Instantiate(ctx context.Context) (*Behavior, error) {
	mod, err := s.r.rt.InstantiateModule(ctx, s.compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, errors.Load(fmt.Sprintf("instantiate wasm script %s", s.name), err)
	}
	b := &Behavior{script: s, mod: mod, fns: make(map[scriptlib.Hook]api.Function)}
	for _, e := range hookExports {
		if s.hooks.Has(e.hook) {
			b.fns[e.hook] = mod.ExportedFunction(e.name)
		}
	}
	return b, nil
}

// Close releases the compiled module.
func (s *Script) Close(ctx context.Context) error {
	return s.compiled.Close(ctx)
}

// Behavior is one module instance driven as a behavior.
type Behavior struct {
	script *Script
	mod    api.Module
	fns    map[scriptlib.Hook]api.Function
}

func (b *Behavior) Hooks() scriptlib.Hook { return b.script.hooks }

func (b *Behavior) call(ctx scriptlib.Context, hook scriptlib.Hook, params ...uint64) error {
	fn := b.fns[hook]
	if fn == nil {
		return nil
	}
	if _, err := fn.Call(withHook(ctx), params...); err != nil {
		return errors.ScriptFault(b.script.name, exportName(hook), err)
	}
	return nil
}

func (b *Behavior) Init(ctx scriptlib.Context) error {
	return b.call(ctx, scriptlib.HookInit)
}

func (b *Behavior) Update(ctx scriptlib.Context, dt float32) error {
	return b.call(ctx, scriptlib.HookUpdate, api.EncodeF32(dt))
}

func (b *Behavior) Shutdown(ctx scriptlib.Context) error {
	return b.call(ctx, scriptlib.HookShutdown)
}

func (b *Behavior) OnCollisionStart(ctx scriptlib.Context, ev scriptlib.CollisionEvent) error {
	return b.call(ctx, scriptlib.HookCollisionStart, refOf(ev.Object1), refOf(ev.Object2))
}

func (b *Behavior) OnCollisionEnd(ctx scriptlib.Context, ev scriptlib.CollisionEvent) error {
	return b.call(ctx, scriptlib.HookCollisionEnd, refOf(ev.Object1), refOf(ev.Object2))
}

func (b *Behavior) OnTriggerEnter(ctx scriptlib.Context, ev scriptlib.TriggerEvent) error {
	return b.call(ctx, scriptlib.HookTriggerEnter, refOf(ev.Trigger), refOf(ev.Actor))
}

func (b *Behavior) OnTriggerLeave(ctx scriptlib.Context, ev scriptlib.TriggerEvent) error {
	return b.call(ctx, scriptlib.HookTriggerLeave, refOf(ev.Trigger), refOf(ev.Actor))
}

// Invoke calls any other exported function. Arguments are converted to the
// export's parameter types; entities pass as packed refs.
func (b *Behavior) Invoke(ctx scriptlib.Context, name string, args ...any) (bool, error) {
	fn := b.mod.ExportedFunction(name)
	if fn == nil {
		return false, nil
	}
	types := fn.Definition().ParamTypes()
	if len(types) != len(args) {
		return true, errors.InvalidInput(errors.PhaseDispatch,
			fmt.Sprintf("%s takes %d arguments, got %d", name, len(types), len(args)))
	}
	params := make([]uint64, len(args))
	for i, arg := range args {
		p, err := encodeArg(types[i], arg)
		if err != nil {
			return true, err
		}
		params[i] = p
	}
	if _, err := fn.Call(withHook(ctx), params...); err != nil {
		return true, errors.ScriptFault(b.script.name, name, err)
	}
	return true, nil
}

// Close releases the module instance.
func (b *Behavior) Close() error {
	return b.mod.Close(context.Background())
}

func refOf(e scriptlib.Entity) uint64 {
	return marshal.PackRef(e.Ref())
}

func encodeArg(t api.ValueType, arg any) (uint64, error) {
	if e, ok := arg.(scriptlib.Entity); ok {
		if t != api.ValueTypeI64 {
			return 0, errors.TypeMismatch(errors.PhaseMarshal, "argument", api.ValueTypeName(t), "entity")
		}
		return refOf(e), nil
	}

	var f float64
	switch v := arg.(type) {
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint32:
		f = float64(v)
	case float32:
		f = float64(v)
	case float64:
		f = v
	case bool:
		f = float64(marshal.FromBool(v))
	default:
		return 0, errors.TypeMismatch(errors.PhaseMarshal, "argument", api.ValueTypeName(t), fmt.Sprintf("%T", arg))
	}

	switch t {
	case api.ValueTypeI32:
		if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxUint32 {
			return 0, errors.TypeMismatch(errors.PhaseMarshal, "argument", "i32", fmt.Sprint(arg))
		}
		return api.EncodeI32(int32(int64(f))), nil
	case api.ValueTypeI64:
		if f != math.Trunc(f) {
			return 0, errors.TypeMismatch(errors.PhaseMarshal, "argument", "i64", fmt.Sprint(arg))
		}
		return api.EncodeI64(int64(f)), nil
	case api.ValueTypeF32:
		return api.EncodeF32(float32(f)), nil
	case api.ValueTypeF64:
		return api.EncodeF64(f), nil
	default:
		return 0, errors.TypeMismatch(errors.PhaseMarshal, "argument", api.ValueTypeName(t), fmt.Sprintf("%T", arg))
	}
}
