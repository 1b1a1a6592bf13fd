package scriptlib

import (
	"hash/fnv"

	"go.uber.org/zap"

	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/handle"
	"github.com/wippyai/scriptlib/native"
)

// BehaviorResolver finds the behavior instances attached to an entity.
// The dispatch host implements it.
type BehaviorResolver interface {
	// Behavior returns the instance of the named behavior type on entity.
	Behavior(entity native.Handle, typeName string) (any, bool)

	// Behaviors returns every live behavior instance on entity in attach order.
	Behaviors(entity native.Handle) []any
}

// SystemRegistry resolves the singleton system of a scene by declared name.
type SystemRegistry interface {
	System(name string) (any, bool)
}

// Binding ties proxies to one native engine and one scene. Every proxy holds
// the binding that issued it.
type Binding struct {
	table     *handle.Table
	engine    native.Engine
	scene     native.ID
	behaviors BehaviorResolver
	systems   SystemRegistry
	logger    *zap.Logger
}

// BindingOption configures a Binding.
type BindingOption func(*Binding)

// WithTable shares an existing handle table.
func WithTable(t *handle.Table) BindingOption {
	return func(b *Binding) { b.table = t }
}

// WithLogger sets the logger for invalid-handle and misconfiguration reports.
func WithLogger(l *zap.Logger) BindingOption {
	return func(b *Binding) { b.logger = l }
}

// WithBehaviors sets the resolver used by Entity.Behavior and GetComponent.
func WithBehaviors(r BehaviorResolver) BindingOption {
	return func(b *Binding) { b.behaviors = r }
}

// WithSystems sets the registry used by World.System.
func WithSystems(r SystemRegistry) BindingOption {
	return func(b *Binding) { b.systems = r }
}

// NewBinding creates a binding for one scene of engine.
func NewBinding(engine native.Engine, scene native.ID, opts ...BindingOption) *Binding {
	b := &Binding{
		engine: engine,
		scene:  scene,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.table == nil {
		b.table = handle.NewTable()
	}
	if b.logger == nil {
		b.logger = Logger()
	}
	return b
}

// Table returns the binding's handle table.
func (b *Binding) Table() *handle.Table { return b.table }

// Engine returns the native collaborator.
func (b *Binding) Engine() native.Engine { return b.engine }

// Scene returns the scene the binding is scoped to.
func (b *Binding) Scene() native.ID { return b.scene }

// World returns the scene-level API.
func (b *Binding) World() World { return World{b: b} }

// Entity returns the proxy for a native entity handle, typically one received
// from the engine in an event.
func (b *Binding) Entity(h native.Handle) (Entity, error) {
	ref, err := b.table.IssueEntity(h)
	if err != nil {
		return Entity{}, err
	}
	return Entity{proxy{b: b, ref: ref}}, nil
}

// EntityByRef returns the proxy for a ref previously issued by this binding,
// as carried by backends that pass refs as scalars. The ref is not checked
// until the proxy is used.
func (b *Binding) EntityByRef(ref handle.Ref) Entity {
	return Entity{proxy{b: b, ref: ref}}
}

// EntityDestroyed invalidates every ref of an entity that the engine removed
// on its own.
func (b *Binding) EntityDestroyed(h native.Handle) {
	b.table.Invalidate(h)
}

func (b *Binding) issue(kind handle.Kind, h, owner native.Handle, tag uint32) (proxy, error) {
	ref, err := b.table.Issue(handle.Key{Handle: h, Kind: kind, Tag: tag}, owner)
	if err != nil {
		return proxy{}, err
	}
	return proxy{b: b, ref: ref}, nil
}

func (b *Binding) nativeErr(target, op string, err error) error {
	return errors.Native(target, op, err)
}

func (b *Binding) misconfigured(msg string, fields ...zap.Field) {
	b.logger.Warn(msg, append(fields, zap.String("category", CategoryMisconfiguration))...)
}

func nameTag(name string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return h.Sum32()
}

// proxy is the state shared by every capability proxy.
type proxy struct {
	b   *Binding
	ref handle.Ref
}

// Ref returns the table ref the proxy holds.
func (p proxy) Ref() handle.Ref { return p.ref }

// Valid reports whether the proxy still addresses a live native object.
func (p proxy) Valid() bool {
	if p.b == nil {
		return false
	}
	_, err := p.b.table.Resolve(p.ref)
	return err == nil
}

// entry resolves the ref. Misuse of a destroyed or foreign ref is logged at
// error severity and the native engine is never reached.
func (p proxy) entry(target string) (handle.Entry, error) {
	if p.b == nil {
		return handle.Entry{}, errors.InvalidHandle(errors.PhaseResolve, target)
	}
	e, err := p.b.table.Resolve(p.ref)
	if err != nil {
		p.b.logger.Error("handle misuse",
			zap.String("category", CategoryInvalidHandle),
			zap.String("target", target),
			zap.Stringer("ref", p.ref),
			zap.Error(err))
		return handle.Entry{}, err
	}
	return e, nil
}

func (p proxy) handle(target string) (native.Handle, error) {
	e, err := p.entry(target)
	if err != nil {
		return native.Handle{}, err
	}
	return e.Handle, nil
}
