package host

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/scriptlib"
	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/native"
)

// FrameStats summarizes one Tick.
type FrameStats struct {
	Frame       uint64
	Initialized int
	Updated     int
	TornDown    int
	Faults      int
	Duration    time.Duration
}

// Tick advances one frame: pending instances are initialized, systems are
// updated with the entities their selectors match, behaviors are updated,
// and teardowns queued during the frame are drained.
func (h *Host) Tick(ctx context.Context, dt float32) (FrameStats, error) {
	if err := h.enter("Tick"); err != nil {
		return FrameStats{}, err
	}
	defer h.leave()

	start := time.Now()
	h.mu.Lock()
	h.frame++
	frame := h.frame
	faults, retired := h.faults, h.retired
	h.mu.Unlock()

	ctx, span := h.tracer.Start(ctx, "scriptlib.frame", trace.WithAttributes(
		attribute.Int64("scriptlib.frame", int64(frame)),
		attribute.Float64("scriptlib.dt", float64(dt)),
	))
	defer span.End()

	stats := FrameStats{Frame: frame}
	stats.Initialized = h.initPending(ctx)

	h.mu.Lock()
	var systems, behaviors []*instance
	for _, inst := range h.order {
		if inst.state == StateInitialized {
			inst.state = StateActive
		}
		if inst.state != StateActive || !inst.typ.Hooks.Has(scriptlib.HookUpdate) {
			continue
		}
		if inst.typ.Kind == KindSystem {
			systems = append(systems, inst)
		} else {
			behaviors = append(behaviors, inst)
		}
	}
	h.mu.Unlock()

	for _, inst := range systems {
		if !h.is(inst, StateActive) {
			continue
		}
		entities := h.match(inst.selector)
		h.call(ctx, inst, scriptlib.HookUpdate, func(c scriptlib.Context) error {
			return inst.value.(scriptlib.SystemUpdater).Update(c, dt, entities)
		})
		stats.Updated++
	}
	for _, inst := range behaviors {
		if !h.is(inst, StateActive) {
			continue
		}
		h.call(ctx, inst, scriptlib.HookUpdate, func(c scriptlib.Context) error {
			return inst.value.(scriptlib.Updater).Update(c, dt)
		})
		stats.Updated++
	}

	h.drain(ctx)

	h.mu.Lock()
	stats.Faults = int(h.faults - faults)
	stats.TornDown = int(h.retired - retired)
	h.mu.Unlock()
	stats.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("scriptlib.initialized", stats.Initialized),
		attribute.Int("scriptlib.updated", stats.Updated),
		attribute.Int("scriptlib.faults", stats.Faults),
	)
	if stats.Faults > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d script faults", stats.Faults))
	}
	return stats, nil
}

// initPending runs Init, or Initialize when Init is absent, on every
// instance constructed since the last frame. Instances attached while this
// runs wait for the next frame.
func (h *Host) initPending(ctx context.Context) int {
	h.mu.Lock()
	pending := h.pending
	h.pending = nil
	h.mu.Unlock()

	n := 0
	for _, inst := range pending {
		h.mu.Lock()
		if inst.state != StateConstructed {
			h.mu.Unlock()
			continue
		}
		inst.inited = true
		h.mu.Unlock()

		hooks := inst.typ.Hooks
		switch {
		case hooks.Has(scriptlib.HookInit):
			h.call(ctx, inst, scriptlib.HookInit, func(c scriptlib.Context) error {
				return inst.value.(scriptlib.Initializer).Init(c)
			})
		case hooks.Has(scriptlib.HookInitialize):
			h.call(ctx, inst, scriptlib.HookInitialize, func(c scriptlib.Context) error {
				return inst.value.(scriptlib.LegacyInitializer).Initialize(c)
			})
		}

		h.mu.Lock()
		if inst.state == StateConstructed {
			inst.state = StateInitialized
		}
		h.mu.Unlock()
		n++
	}
	return n
}

func (h *Host) is(inst *instance, s State) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return inst.state == s
}

func (h *Host) isLive(inst *instance) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return inst.live()
}

// match collects the scene entities a system selector accepts this frame.
func (h *Host) match(sel Selector) []scriptlib.Entity {
	var out []scriptlib.Entity
	for _, handle := range h.engine.Entities(h.scene) {
		name, err := h.engine.Name(handle)
		if err != nil {
			continue
		}
		tags, err := h.engine.Tags(handle)
		if err != nil {
			continue
		}
		e, err := h.binding.Entity(handle)
		if err != nil {
			continue
		}
		c := Candidate{Entity: e, Name: name, Tags: tags, engine: h.engine, handle: handle}
		if sel.Match(c) {
			out = append(out, e)
		}
	}
	return out
}

// DispatchCollision delivers a contact between a and b. Behaviors on both
// entities get OnCollisionStart or OnCollisionEnd; on start they also get
// OnCollisionEnter with the other entity. Systems see every event.
func (h *Host) DispatchCollision(ctx context.Context, a, b native.Handle, start bool) error {
	if err := h.enter("DispatchCollision"); err != nil {
		return err
	}
	defer h.leave()

	ea, err := h.binding.Entity(a)
	if err != nil {
		return err
	}
	eb, err := h.binding.Entity(b)
	if err != nil {
		return err
	}
	ev := scriptlib.CollisionEvent{Object1: ea, Object2: eb, Start: start}

	deliver := func(inst *instance, other scriptlib.Entity) {
		hooks := inst.typ.Hooks
		if start {
			if hooks.Has(scriptlib.HookCollisionStart) && h.isLive(inst) {
				h.call(ctx, inst, scriptlib.HookCollisionStart, func(c scriptlib.Context) error {
					return inst.value.(scriptlib.CollisionStarter).OnCollisionStart(c, ev)
				})
			}
			if hooks.Has(scriptlib.HookCollisionEnter) && h.isLive(inst) {
				h.call(ctx, inst, scriptlib.HookCollisionEnter, func(c scriptlib.Context) error {
					return inst.value.(scriptlib.CollisionEnterer).OnCollisionEnter(c, other)
				})
			}
			return
		}
		if hooks.Has(scriptlib.HookCollisionEnd) && h.isLive(inst) {
			h.call(ctx, inst, scriptlib.HookCollisionEnd, func(c scriptlib.Context) error {
				return inst.value.(scriptlib.CollisionEnder).OnCollisionEnd(c, ev)
			})
		}
	}

	for _, inst := range h.behaviorsOf(a) {
		deliver(inst, eb)
	}
	for _, inst := range h.behaviorsOf(b) {
		deliver(inst, ea)
	}
	for _, inst := range h.systemSnapshot() {
		deliver(inst, scriptlib.Entity{})
	}
	h.drain(ctx)
	return nil
}

// DispatchTrigger delivers an actor entering or leaving a trigger volume.
// The actor's behaviors get OnTriggerEnter or OnTriggerLeave, the trigger's
// behaviors get OnTriggerWasEntered or OnTriggerWasLeft, and systems get
// OnTriggerEnter or OnTriggerLeave.
func (h *Host) DispatchTrigger(ctx context.Context, trigger, actor native.Handle, enter bool) error {
	if err := h.enter("DispatchTrigger"); err != nil {
		return err
	}
	defer h.leave()

	et, err := h.binding.Entity(trigger)
	if err != nil {
		return err
	}
	ea, err := h.binding.Entity(actor)
	if err != nil {
		return err
	}
	ev := scriptlib.TriggerEvent{Trigger: et, Actor: ea, Enter: enter}

	actorSide := func(inst *instance) {
		hooks := inst.typ.Hooks
		switch {
		case enter && hooks.Has(scriptlib.HookTriggerEnter) && h.isLive(inst):
			h.call(ctx, inst, scriptlib.HookTriggerEnter, func(c scriptlib.Context) error {
				return inst.value.(scriptlib.TriggerEnterer).OnTriggerEnter(c, ev)
			})
		case !enter && hooks.Has(scriptlib.HookTriggerLeave) && h.isLive(inst):
			h.call(ctx, inst, scriptlib.HookTriggerLeave, func(c scriptlib.Context) error {
				return inst.value.(scriptlib.TriggerLeaver).OnTriggerLeave(c, ev)
			})
		}
	}

	for _, inst := range h.behaviorsOf(actor) {
		actorSide(inst)
	}
	for _, inst := range h.behaviorsOf(trigger) {
		hooks := inst.typ.Hooks
		switch {
		case enter && hooks.Has(scriptlib.HookTriggerWasEntered) && h.isLive(inst):
			h.call(ctx, inst, scriptlib.HookTriggerWasEntered, func(c scriptlib.Context) error {
				return inst.value.(scriptlib.TriggerEnteredObserver).OnTriggerWasEntered(c, ev)
			})
		case !enter && hooks.Has(scriptlib.HookTriggerWasLeft) && h.isLive(inst):
			h.call(ctx, inst, scriptlib.HookTriggerWasLeft, func(c scriptlib.Context) error {
				return inst.value.(scriptlib.TriggerLeftObserver).OnTriggerWasLeft(c, ev)
			})
		}
	}
	for _, inst := range h.systemSnapshot() {
		actorSide(inst)
	}
	h.drain(ctx)
	return nil
}

func (h *Host) behaviorsOf(entity native.Handle) []*instance {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*instance, 0, len(h.byEntity[entity]))
	for _, inst := range h.byEntity[entity] {
		if inst.live() {
			out = append(out, inst)
		}
	}
	return out
}

func (h *Host) systemSnapshot() []*instance {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.liveSystems()
}

// Invoke calls a named method on an instance. Types implementing
// scriptlib.Invoker handle the call themselves; otherwise an exported method
// whose first parameter is scriptlib.Context is called with args. A missing
// method reports false with no error. Lifecycle hooks cannot be invoked, and
// an instance cannot be invoked before its Init has run.
//
// Outside a hook Invoke is a frame-driving call. From inside a hook, pass the
// hook's Context so the call nests in the running dispatch.
func (h *Host) Invoke(ctx context.Context, id InstanceID, name string, args ...any) (bool, error) {
	switch name {
	case "Init", "Initialize", "Shutdown":
		return false, errors.InvalidInput(errors.PhaseDispatch, fmt.Sprintf("%s is driven by the host and cannot be invoked", name))
	}
	if ctx.Value(dispatchKey{}) != h {
		if err := h.enter("Invoke"); err != nil {
			return false, err
		}
		defer h.leave()
	}

	h.mu.Lock()
	inst, ok := h.instances[id]
	var state State
	if ok {
		state = inst.state
	}
	h.mu.Unlock()

	switch {
	case !ok:
		return false, errors.NotFound(errors.PhaseDispatch, "instance", id.String())
	case state >= StateShuttingDown:
		return false, errors.Destroyed(errors.PhaseDispatch, id.String())
	case state == StateConstructed:
		return false, errors.InvalidState(errors.PhaseDispatch, id.String(), state.String(), "Invoke")
	}

	if inv, ok := inst.value.(scriptlib.Invoker); ok {
		var found bool
		err := h.run(ctx, inst, name, func(c scriptlib.Context) error {
			var err error
			found, err = inv.Invoke(c, name, args...)
			return err
		})
		return found, err
	}

	method := reflect.ValueOf(inst.value).MethodByName(name)
	if !method.IsValid() {
		return false, nil
	}
	in, err := invokeArgs(name, method.Type(), args)
	if err != nil {
		return false, err
	}
	err = h.run(ctx, inst, name, func(c scriptlib.Context) error {
		in[0] = reflect.ValueOf(c)
		out := method.Call(in)
		if len(out) == 0 {
			return nil
		}
		if e, ok := out[len(out)-1].Interface().(error); ok {
			return e
		}
		return nil
	})
	return true, err
}

var contextType = reflect.TypeOf(scriptlib.Context{})

func invokeArgs(name string, mt reflect.Type, args []any) ([]reflect.Value, error) {
	if mt.IsVariadic() || mt.NumIn() == 0 || mt.In(0) != contextType {
		return nil, errors.TypeMismatch(errors.PhaseDispatch, name, "func(scriptlib.Context, ...)", mt.String())
	}
	if mt.NumIn()-1 != len(args) {
		return nil, errors.New(errors.PhaseDispatch, errors.KindInvalidInput).
			Target(name).
			Detail("want %d arguments, got %d", mt.NumIn()-1, len(args)).
			Build()
	}
	in := make([]reflect.Value, mt.NumIn())
	for i, arg := range args {
		want := mt.In(i + 1)
		v := reflect.ValueOf(arg)
		switch {
		case !v.IsValid():
			in[i+1] = reflect.Zero(want)
		case v.Type().AssignableTo(want):
			in[i+1] = v
		case convertible(v, want):
			in[i+1] = v.Convert(want)
		default:
			return nil, errors.TypeMismatch(errors.PhaseMarshal, fmt.Sprintf("%s arg %d", name, i), want.String(), v.Type().String())
		}
	}
	return in, nil
}

// call runs one hook with fault isolation.
func (h *Host) call(ctx context.Context, inst *instance, hook scriptlib.Hook, fn func(scriptlib.Context) error) bool {
	return h.run(ctx, inst, hook.String(), fn) == nil
}

// run invokes fn as hook on inst. A returned error or a panic becomes a
// script fault: it is logged, counted, recorded on the frame span and
// returned. Teardowns queued while the outermost hook ran are drained after
// it returns.
func (h *Host) run(ctx context.Context, inst *instance, hook string, fn func(scriptlib.Context) error) error {
	h.mu.Lock()
	h.depth++
	frame := h.frame
	h.mu.Unlock()

	c := scriptlib.Context{
		Context:  context.WithValue(ctx, dispatchKey{}, h),
		Self:     inst.self,
		World:    h.binding.World(),
		Instance: inst.id.String(),
		Type:     inst.typ.Name,
	}
	err := guard(fn, c)
	if err != nil {
		err = h.fault(ctx, inst, hook, frame, err)
	}

	h.mu.Lock()
	h.depth--
	idle := h.depth == 0
	h.mu.Unlock()

	if idle {
		h.drain(ctx)
	}
	return err
}

// dispatchKey marks a context as belonging to a hook the host is running.
type dispatchKey struct{}

type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string { return fmt.Sprintf("panic: %v", p.value) }

func guard(fn func(scriptlib.Context) error, c scriptlib.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()
	return fn(c)
}

func (h *Host) fault(ctx context.Context, inst *instance, hook string, frame uint64, cause error) error {
	h.mu.Lock()
	h.faults++
	h.mu.Unlock()

	err := cause
	if !errors.IsKind(cause, errors.KindScriptFault) {
		err = errors.ScriptFault(inst.typ.Name, hook, cause)
	}

	fields := []zap.Field{
		zap.String("instance", inst.id.String()),
		zap.String("type", inst.typ.Name),
		zap.String("hook", hook),
		zap.String("category", scriptlib.CategoryScriptFault),
		zap.Uint64("frame", frame),
		zap.Error(cause),
	}
	if p, ok := cause.(*panicError); ok {
		fields = append(fields, zap.ByteString("stack", p.stack))
	}
	h.logger.Error("script fault", fields...)

	trace.SpanFromContext(ctx).RecordError(err, trace.WithAttributes(
		attribute.String("scriptlib.instance", inst.id.String()),
		attribute.String("scriptlib.type", inst.typ.Name),
		attribute.String("scriptlib.hook", hook),
	))
	return err
}

// shutdown queues an instance for teardown and drains the queue when no hook
// is running.
func (h *Host) shutdown(ctx context.Context, inst *instance) {
	h.mu.Lock()
	if !inst.alive() {
		h.mu.Unlock()
		return
	}
	inst.state = StateShuttingDown
	h.teardown = append(h.teardown, inst)
	h.mu.Unlock()

	h.drain(ctx)
}

// drain runs Shutdown on queued instances and marks them Destroyed. It does
// nothing while a hook is running; the outermost hook drains on return.
func (h *Host) drain(ctx context.Context) {
	h.mu.Lock()
	if h.draining || h.depth > 0 {
		h.mu.Unlock()
		return
	}
	h.draining = true
	h.mu.Unlock()

	for {
		h.mu.Lock()
		if len(h.teardown) == 0 {
			h.draining = false
			h.mu.Unlock()
			return
		}
		inst := h.teardown[0]
		h.teardown = h.teardown[1:]
		runHook := inst.inited && inst.state == StateShuttingDown && inst.typ.Hooks.Has(scriptlib.HookShutdown)
		h.mu.Unlock()

		if runHook {
			h.call(ctx, inst, scriptlib.HookShutdown, func(c scriptlib.Context) error {
				return inst.value.(scriptlib.Shutdowner).Shutdown(c)
			})
		}
		h.retire(inst)
		release(inst.value)
	}
}

// release frees resources held by a script value that implements io.Closer,
// such as an interpreter state or a module instance.
func release(v any) {
	if c, ok := v.(io.Closer); ok {
		_ = c.Close()
	}
}

// retire marks an instance Destroyed and drops it from dispatch lists. The
// most recent keepRetired instances stay known by ID so their state can still
// be queried; older ones are forgotten.
func (h *Host) retire(inst *instance) {
	h.mu.Lock()
	defer h.mu.Unlock()

	inst.state = StateDestroyed
	h.retired++
	h.graveyard = append(h.graveyard, inst.id)
	for len(h.graveyard) > h.keepRetired {
		delete(h.instances, h.graveyard[0])
		h.graveyard = h.graveyard[1:]
	}
	h.order = without(h.order, inst)
	if inst.typ.Kind == KindSystem {
		if h.systems[inst.typ.Name] == inst {
			delete(h.systems, inst.typ.Name)
		}
		return
	}
	rest := without(h.byEntity[inst.entity], inst)
	if len(rest) == 0 {
		delete(h.byEntity, inst.entity)
	} else {
		h.byEntity[inst.entity] = rest
	}
}

func without(list []*instance, inst *instance) []*instance {
	out := list[:0:0]
	for _, it := range list {
		if it != inst {
			out = append(out, it)
		}
	}
	return out
}
