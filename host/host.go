package host

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/scriptlib"
	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/handle"
	"github.com/wippyai/scriptlib/native"
)

const tracerName = "github.com/wippyai/scriptlib/host"

// Host owns the script instances of one scene and drives their hooks.
//
// Frame-driving calls (Start, Tick, DispatchCollision, DispatchTrigger,
// Invoke, Close) must not overlap; an overlapping or re-entrant call fails
// with errors.KindReentrant. Registration, attachment and lookups may be
// called from inside hooks.
type Host struct {
	mu sync.Mutex

	binding *scriptlib.Binding
	table   *handle.Table
	engine  native.Engine
	scene   native.ID
	logger  *zap.Logger
	tracer  trace.Tracer

	behaviorTypes map[string]*TypeInfo
	systemTypes   map[string]*TypeInfo

	instances map[InstanceID]*instance
	order     []*instance
	byEntity  map[native.Handle][]*instance
	systems   map[string]*instance
	pending   []*instance
	teardown  []*instance

	graveyard   []InstanceID
	keepRetired int

	running  atomic.Bool
	depth    int
	draining bool
	started  bool
	closed   bool

	frame   uint64
	faults  uint64
	retired uint64
}

// DefaultKeepRetired is how many destroyed instances a host remembers by ID.
const DefaultKeepRetired = 256

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host's logger. The default is the package Logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// WithTracerProvider sets where frame spans are recorded. The default is the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *Host) { h.tracer = tp.Tracer(tracerName) }
}

// WithKeepRetired sets how many destroyed instances stay queryable by ID.
// Older ones are forgotten and report errors.KindNotFound.
func WithKeepRetired(n int) Option {
	return func(h *Host) { h.keepRetired = max(n, 0) }
}

// WithTable shares a handle table with other bindings.
func WithTable(t *handle.Table) Option {
	return func(h *Host) { h.table = t }
}

// New creates a host for one scene of engine.
func New(engine native.Engine, scene native.ID, opts ...Option) *Host {
	h := &Host{
		engine:        engine,
		scene:         scene,
		behaviorTypes: make(map[string]*TypeInfo),
		systemTypes:   make(map[string]*TypeInfo),
		instances:     make(map[InstanceID]*instance),
		byEntity:      make(map[native.Handle][]*instance),
		systems:       make(map[string]*instance),
		keepRetired:   DefaultKeepRetired,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = Logger()
	}
	if h.tracer == nil {
		h.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	h.binding = scriptlib.NewBinding(engine, scene, h.bindingOptions()...)
	h.binding.Table().Subscribe(h)
	return h
}

func (h *Host) bindingOptions() []scriptlib.BindingOption {
	opts := []scriptlib.BindingOption{
		scriptlib.WithBehaviors(h),
		scriptlib.WithSystems(h),
		scriptlib.WithLogger(h.logger),
	}
	if h.table != nil {
		opts = append(opts, scriptlib.WithTable(h.table))
	}
	return opts
}

// Binding returns the binding the host's proxies are issued from.
func (h *Host) Binding() *scriptlib.Binding { return h.binding }

// World returns the scene API.
func (h *Host) World() scriptlib.World { return h.binding.World() }

// RegisterBehavior registers a behavior type under name.
func (h *Host) RegisterBehavior(name string, factory Factory) error {
	return h.register(name, KindBehavior, factory, false)
}

// RegisterSystem registers a system type under name.
func (h *Host) RegisterSystem(name string, factory Factory) error {
	return h.register(name, KindSystem, factory, false)
}

// Reload replaces the factory of a registered type and re-runs hook
// discovery. Live instances of the type are shut down and replaced by fresh
// instances that keep their entity, selector and designer parameters and are
// initialized again on the next frame.
func (h *Host) Reload(ctx context.Context, name string, factory Factory) error {
	h.mu.Lock()
	_, isBehavior := h.behaviorTypes[name]
	_, isSystem := h.systemTypes[name]
	h.mu.Unlock()

	switch {
	case isBehavior:
		return h.reload(ctx, name, KindBehavior, factory)
	case isSystem:
		return h.reload(ctx, name, KindSystem, factory)
	default:
		return errors.NotFound(errors.PhaseRegister, "type", name)
	}
}

func (h *Host) register(name string, kind Kind, factory Factory, replace bool) error {
	info, err := discover(name, kind, factory)
	if err != nil {
		return err
	}
	return h.install(info, replace)
}

func (h *Host) install(info *TypeInfo, replace bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	types := h.typesOf(info.Kind)
	if _, exists := types[info.Name]; exists && !replace {
		return errors.Registration(info.Name, fmt.Errorf("%s already registered", info.Kind))
	}
	types[info.Name] = info

	h.logger.Debug("registered type",
		zap.String("type", info.Name),
		zap.Stringer("kind", info.Kind),
		zap.Stringer("hooks", info.Hooks))
	return nil
}

func (h *Host) typesOf(kind Kind) map[string]*TypeInfo {
	if kind == KindSystem {
		return h.systemTypes
	}
	return h.behaviorTypes
}

// reload constructs every replacement before touching the registered type or
// its live instances, so a failing factory leaves both as they were.
func (h *Host) reload(ctx context.Context, name string, kind Kind, factory Factory) error {
	info, err := discover(name, kind, factory)
	if err != nil {
		return err
	}

	h.mu.Lock()
	var stale []*instance
	for _, inst := range h.order {
		if inst.typ.Name == name && inst.typ.Kind == kind && inst.alive() {
			stale = append(stale, inst)
		}
	}
	h.mu.Unlock()

	values := make([]any, 0, len(stale))
	for range stale {
		value, err := construct(info.factory)
		if err != nil {
			for _, v := range values {
				release(v)
			}
			return errors.Registration(name, err)
		}
		values = append(values, value)
	}
	if err := h.install(info, true); err != nil {
		return err
	}

	for i, old := range stale {
		value := values[i]
		fields := old.fields
		h.shutdown(ctx, old)

		fresh := h.newInstance(info, value, old.entity, old.self, old.selector)
		for k, v := range fields {
			if err := setField(value, k, v); err != nil {
				h.logger.Warn("field dropped on reload",
					zap.String("type", name),
					zap.String("field", k),
					zap.String("category", scriptlib.CategoryMisconfiguration),
					zap.Error(err))
				continue
			}
			fresh.fields[k] = v
		}
		h.mu.Lock()
		h.adopt(fresh)
		h.mu.Unlock()
	}
	return nil
}

// Types returns the registered types of a kind.
func (h *Host) Types(kind Kind) []TypeInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]TypeInfo, 0, len(h.typesOf(kind)))
	for _, t := range h.typesOf(kind) {
		out = append(out, *t)
	}
	return out
}

func (h *Host) newInstance(info *TypeInfo, value any, entity native.Handle, self scriptlib.Entity, sel Selector) *instance {
	return &instance{
		id:       InstanceID(uuid.New()),
		typ:      info,
		value:    value,
		entity:   entity,
		self:     self,
		selector: sel,
		state:    StateConstructed,
		fields:   make(map[string]any),
	}
}

// adopt registers a constructed instance. Caller holds h.mu.
func (h *Host) adopt(inst *instance) {
	h.instances[inst.id] = inst
	h.order = append(h.order, inst)
	h.pending = append(h.pending, inst)
	if inst.typ.Kind == KindSystem {
		h.systems[inst.typ.Name] = inst
	} else {
		h.byEntity[inst.entity] = append(h.byEntity[inst.entity], inst)
	}
}

// AttachBehavior creates an instance of the named behavior on an entity.
// The instance is initialized at the start of the next frame. An entity holds
// at most one instance of each behavior type.
func (h *Host) AttachBehavior(entity native.Handle, name string) (InstanceID, error) {
	self, err := h.binding.Entity(entity)
	if err != nil {
		return InstanceID{}, err
	}
	return h.Attach(self, name)
}

// Attach is AttachBehavior for an entity proxy.
func (h *Host) Attach(self scriptlib.Entity, name string) (InstanceID, error) {
	entity, err := self.Native()
	if err != nil {
		return InstanceID{}, err
	}

	h.mu.Lock()
	info, ok := h.behaviorTypes[name]
	closed := h.closed
	var dup bool
	for _, inst := range h.byEntity[entity] {
		if inst.typ.Name == name && inst.alive() {
			dup = true
		}
	}
	h.mu.Unlock()

	switch {
	case closed:
		return InstanceID{}, errors.InvalidState(errors.PhaseDispatch, "host", "closed", "attach")
	case !ok:
		return InstanceID{}, errors.NotFound(errors.PhaseRegister, "behavior", name)
	case dup:
		return InstanceID{}, errors.New(errors.PhaseRegister, errors.KindInvalidState).
			Target(entity.String()).
			Detail("behavior %s already attached", name).
			Build()
	}

	value, err := construct(info.factory)
	if err != nil {
		return InstanceID{}, errors.Registration(name, err)
	}
	inst := h.newInstance(info, value, entity, self, nil)

	h.mu.Lock()
	h.adopt(inst)
	h.mu.Unlock()
	return inst.id, nil
}

// AddSystem creates the scene's instance of the named system. A nil selector
// matches every entity.
func (h *Host) AddSystem(name string, sel Selector) (InstanceID, error) {
	h.mu.Lock()
	info, ok := h.systemTypes[name]
	existing, dup := h.systems[name]
	closed := h.closed
	h.mu.Unlock()

	switch {
	case closed:
		return InstanceID{}, errors.InvalidState(errors.PhaseDispatch, "host", "closed", "add system")
	case !ok:
		return InstanceID{}, errors.NotFound(errors.PhaseRegister, "system", name)
	case dup && existing.alive():
		return InstanceID{}, errors.New(errors.PhaseRegister, errors.KindInvalidState).
			Detail("system %s already added to scene", name).
			Build()
	}
	if sel == nil {
		sel = AllSelector()
	}

	value, err := construct(info.factory)
	if err != nil {
		return InstanceID{}, errors.Registration(name, err)
	}
	inst := h.newInstance(info, value, native.Handle{}, scriptlib.Entity{}, sel)

	h.mu.Lock()
	h.adopt(inst)
	h.mu.Unlock()
	return inst.id, nil
}

// SetField sets a designer parameter. Parameters can only be set while the
// instance is still Constructed.
func (h *Host) SetField(id InstanceID, name string, value any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	inst, ok := h.instances[id]
	if !ok {
		return errors.NotFound(errors.PhaseDispatch, "instance", id.String())
	}
	if inst.state != StateConstructed {
		return errors.InvalidState(errors.PhaseDispatch, id.String(), inst.state.String(), "SetField")
	}
	if err := setField(inst.value, name, value); err != nil {
		return err
	}
	inst.fields[name] = value
	return nil
}

// Fields returns the designer parameters of an instance.
func (h *Host) Fields(id InstanceID) (map[string]any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	inst, ok := h.instances[id]
	if !ok {
		return nil, errors.NotFound(errors.PhaseDispatch, "instance", id.String())
	}
	return fieldsOf(inst.value), nil
}

// Instance returns a snapshot of an instance. Destroyed instances are
// reported until the host's retention limit forgets them.
func (h *Host) Instance(id InstanceID) (Info, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	inst, ok := h.instances[id]
	if !ok {
		return Info{}, false
	}
	return inst.info(), true
}

// Value returns the script value behind an instance.
func (h *Host) Value(id InstanceID) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	inst, ok := h.instances[id]
	if !ok {
		return nil, false
	}
	return inst.value, true
}

// Instances returns snapshots of every instance in attach order.
func (h *Host) Instances() []Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Info, 0, len(h.order))
	for _, inst := range h.order {
		out = append(out, inst.info())
	}
	return out
}

// Behavior implements scriptlib.BehaviorResolver.
func (h *Host) Behavior(entity native.Handle, typeName string) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, inst := range h.byEntity[entity] {
		if inst.typ.Name == typeName && inst.alive() {
			return inst.value, true
		}
	}
	return nil, false
}

// Behaviors implements scriptlib.BehaviorResolver.
func (h *Host) Behaviors(entity native.Handle) []any {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []any
	for _, inst := range h.byEntity[entity] {
		if inst.alive() {
			out = append(out, inst.value)
		}
	}
	return out
}

// System implements scriptlib.SystemRegistry.
func (h *Host) System(name string) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	inst, ok := h.systems[name]
	if !ok || !inst.alive() {
		return nil, false
	}
	return inst.value, true
}

// OnHandleEvent implements handle.Observer. Destroying an entity moves its
// instances to ShuttingDown at once; Shutdown runs after the hook in progress
// returns, or right away when no hook is running.
func (h *Host) OnHandleEvent(ev handle.Event) {
	if ev.Type != handle.EventInvalidated || ev.Entry.Kind != handle.KindEntity {
		return
	}
	h.mu.Lock()
	for _, inst := range h.byEntity[ev.Entry.Handle] {
		if inst.alive() {
			inst.state = StateShuttingDown
			h.teardown = append(h.teardown, inst)
		}
	}
	idle := h.depth == 0
	h.mu.Unlock()

	if idle {
		h.drain(context.Background())
	}
}

// EntityDestroyed tells the host that the engine removed an entity on its
// own.
func (h *Host) EntityDestroyed(entity native.Handle) {
	h.binding.EntityDestroyed(entity)
}

// enter claims the frame-driving slot.
func (h *Host) enter(op string) error {
	if !h.running.CompareAndSwap(false, true) {
		return errors.New(errors.PhaseDispatch, errors.KindReentrant).
			Target("host").
			Detail("%s while another frame call is in progress", op).
			Build()
	}
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		h.running.Store(false)
		return errors.InvalidState(errors.PhaseDispatch, "host", "closed", op)
	}
	return nil
}

func (h *Host) leave() {
	h.running.Store(false)
}

// Start initializes every pending instance and then fires OnSceneLoaded on
// systems. Calling Start is optional; Tick initializes pending instances too.
func (h *Host) Start(ctx context.Context) error {
	if err := h.enter("Start"); err != nil {
		return err
	}
	defer h.leave()

	h.initPending(ctx)

	h.mu.Lock()
	already := h.started
	h.started = true
	systems := h.liveSystems()
	h.mu.Unlock()

	if already {
		return nil
	}
	for _, inst := range systems {
		if !inst.typ.Hooks.Has(scriptlib.HookSceneLoaded) {
			continue
		}
		h.call(ctx, inst, scriptlib.HookSceneLoaded, func(c scriptlib.Context) error {
			return inst.value.(scriptlib.SceneLoader).OnSceneLoaded(c)
		})
	}
	return nil
}

// liveSystems returns initialized or active systems in attach order. Caller
// holds h.mu.
func (h *Host) liveSystems() []*instance {
	var out []*instance
	for _, inst := range h.order {
		if inst.typ.Kind == KindSystem && (inst.state == StateInitialized || inst.state == StateActive) {
			out = append(out, inst)
		}
	}
	return out
}

// Close shuts down every live instance and closes the handle table.
func (h *Host) Close(ctx context.Context) error {
	if err := h.enter("Close"); err != nil {
		return err
	}
	defer h.leave()

	h.mu.Lock()
	var live []*instance
	for _, inst := range h.order {
		if inst.alive() {
			live = append(live, inst)
		}
	}
	h.mu.Unlock()

	for i := len(live) - 1; i >= 0; i-- {
		h.shutdown(ctx, live[i])
	}
	h.drain(ctx)

	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	h.binding.Table().Unsubscribe(h)
	return h.binding.Table().Close()
}

// Faults returns how many hook invocations have failed so far.
func (h *Host) Faults() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.faults
}

// Frame returns the number of the last frame ticked.
func (h *Host) Frame() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame
}
