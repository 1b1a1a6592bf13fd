package wasmscript

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/scriptlib"
	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/marshal"
	"github.com/wippyai/scriptlib/vec"
)

// Status codes returned by host imports.
const (
	StatusOK        = 0
	StatusAbsent    = 1
	StatusDestroyed = 2
	StatusError     = 3
)

type hookKey struct{}

// withHook makes the hook context visible to host imports called by the
// guest while it runs.
func withHook(c scriptlib.Context) context.Context {
	base := c.Context
	if base == nil {
		base = context.Background()
	}
	return context.WithValue(base, hookKey{}, c)
}

func hookFrom(ctx context.Context) (scriptlib.Context, bool) {
	c, ok := ctx.Value(hookKey{}).(scriptlib.Context)
	return c, ok && c.World != (scriptlib.World{})
}

func status(err error) uint64 {
	switch {
	case err == nil:
		return StatusOK
	case errors.IsKind(err, errors.KindDestroyed), errors.IsKind(err, errors.KindInvalidHandle):
		return StatusDestroyed
	default:
		return StatusError
	}
}

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

// hostModule declares the scriptlib import module. Entity arguments are
// packed refs; vectors and quaternions are read from and written to guest
// memory in the marshal layout.
func (r *Runtime) hostModule() wazero.HostModuleBuilder {
	b := r.rt.NewHostModuleBuilder(HostModule)

	logFn := func(level string, emit func(scriptlib.Log, string)) api.GoModuleFunc {
		return func(ctx context.Context, mod api.Module, stack []uint64) {
			c, ok := hookFrom(ctx)
			if !ok {
				return
			}
			msg, ok := r.readString(mod, api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
			if !ok {
				r.logger.Warn("guest log message unreadable",
					zap.String("category", scriptlib.CategoryMisconfiguration),
					zap.String("level", level),
					zap.String("type", c.Type))
				return
			}
			emit(c.Log(), msg)
		}
	}
	b = b.NewFunctionBuilder().
		WithGoModuleFunction(logFn("trace", scriptlib.Log.Trace), []api.ValueType{i32, i32}, nil).
		Export("log_trace")
	b = b.NewFunctionBuilder().
		WithGoModuleFunction(logFn("warn", scriptlib.Log.Warn), []api.ValueType{i32, i32}, nil).
		Export("log_warn")
	b = b.NewFunctionBuilder().
		WithGoModuleFunction(logFn("error", scriptlib.Log.Error), []api.ValueType{i32, i32}, nil).
		Export("log_error")

	b = b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, _ api.Module, stack []uint64) {
			c, ok := hookFrom(ctx)
			if !ok {
				stack[0] = 0
				return
			}
			stack[0] = marshal.PackRef(c.Self.Ref())
		}), nil, []api.ValueType{i64}).
		Export("self")

	b = b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, _ api.Module, stack []uint64) {
			c, ok := hookFrom(ctx)
			if !ok {
				stack[0] = StatusError
				return
			}
			stack[0] = status(c.World.EntityByRef(marshal.UnpackRef(stack[0])).Destroy())
		}), []api.ValueType{i64}, []api.ValueType{i32}).
		Export("entity_destroy")

	b = b.NewFunctionBuilder().
		WithGoModuleFunction(r.transformFunc(func(t scriptlib.Transform, mem api.Memory, ptr uint32) error {
			p, err := t.Position()
			if err != nil {
				return err
			}
			return writeValue(mem, ptr, p)
		}), []api.ValueType{i64, i32}, []api.ValueType{i32}).
		Export("transform_get_position")
	b = b.NewFunctionBuilder().
		WithGoModuleFunction(r.transformFunc(func(t scriptlib.Transform, mem api.Memory, ptr uint32) error {
			var p vec.Vector3
			if err := readValue(mem, ptr, &p); err != nil {
				return err
			}
			return t.SetPosition(p)
		}), []api.ValueType{i64, i32}, []api.ValueType{i32}).
		Export("transform_set_position")
	b = b.NewFunctionBuilder().
		WithGoModuleFunction(r.transformFunc(func(t scriptlib.Transform, mem api.Memory, ptr uint32) error {
			q, err := t.Rotation()
			if err != nil {
				return err
			}
			return writeValue(mem, ptr, q)
		}), []api.ValueType{i64, i32}, []api.ValueType{i32}).
		Export("transform_get_rotation")
	b = b.NewFunctionBuilder().
		WithGoModuleFunction(r.transformFunc(func(t scriptlib.Transform, mem api.Memory, ptr uint32) error {
			var q vec.Quaternion
			if err := readValue(mem, ptr, &q); err != nil {
				return err
			}
			return t.SetRotation(q)
		}), []api.ValueType{i64, i32}, []api.ValueType{i32}).
		Export("transform_set_rotation")

	b = b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, _ api.Module, stack []uint64) {
			c, ok := hookFrom(ctx)
			if !ok {
				stack[0] = 0
				return
			}
			key, err := marshal.KeyFromCode(api.DecodeI32(stack[0]))
			if err != nil {
				stack[0] = 0
				return
			}
			stack[0] = uint64(marshal.FromBool(c.World.Input().IsKeyDown(key)))
		}), []api.ValueType{i32}, []api.ValueType{i32}).
		Export("key_down")

	return b
}

// transformFunc adapts a transform accessor taking (entity ref, ptr) into a
// host import returning a status code.
func (r *Runtime) transformFunc(fn func(scriptlib.Transform, api.Memory, uint32) error) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		c, ok := hookFrom(ctx)
		if !ok {
			stack[0] = StatusError
			return
		}
		e := c.World.EntityByRef(marshal.UnpackRef(stack[0]))
		ptr := api.DecodeU32(stack[1])
		t, ok, err := e.Transform()
		switch {
		case err != nil:
			stack[0] = status(err)
		case !ok:
			stack[0] = StatusAbsent
		default:
			stack[0] = status(fn(t, mod.Memory(), ptr))
		}
	}
}

func (r *Runtime) readString(mod api.Module, ptr, n uint32) (string, bool) {
	mem := mod.Memory()
	if mem == nil {
		return "", false
	}
	b, ok := mem.Read(ptr, n)
	if !ok {
		return "", false
	}
	s, err := marshal.DecodeString(b, r.encoding)
	if err != nil {
		return "", false
	}
	return s, true
}

func writeValue(mem api.Memory, ptr uint32, v any) error {
	b, err := marshal.Encode(v)
	if err != nil {
		return err
	}
	if mem == nil || !mem.Write(ptr, b) {
		return errors.OutOfBounds(errors.PhaseMarshal, "guest memory", int(ptr)+len(b), memSize(mem))
	}
	return nil
}

func readValue(mem api.Memory, ptr uint32, out any) error {
	n := marshal.SizeOf(out)
	if mem == nil {
		return errors.OutOfBounds(errors.PhaseMarshal, "guest memory", int(ptr)+n, 0)
	}
	b, ok := mem.Read(ptr, uint32(n))
	if !ok {
		return errors.OutOfBounds(errors.PhaseMarshal, "guest memory", int(ptr)+n, memSize(mem))
	}
	return marshal.Decode(b, out)
}

func memSize(mem api.Memory) int {
	if mem == nil {
		return 0
	}
	return int(mem.Size())
}
