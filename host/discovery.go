package host

import (
	"fmt"
	"reflect"

	"github.com/wippyai/scriptlib"
	"github.com/wippyai/scriptlib/errors"
)

// Factory creates a fresh, unconfigured instance of a registered type.
type Factory func() any

// Kind tells behaviors and systems apart.
type Kind uint8

const (
	KindBehavior Kind = iota + 1
	KindSystem
)

func (k Kind) String() string {
	switch k {
	case KindBehavior:
		return "behavior"
	case KindSystem:
		return "system"
	default:
		return "unknown"
	}
}

// TypeInfo is the result of hook discovery for one registered type.
type TypeInfo struct {
	Name    string
	Kind    Kind
	Hooks   scriptlib.Hook
	GoType  reflect.Type
	factory Factory
}

// discover probes one instance from factory and records which hook
// interfaces its type implements. It runs at registration and on reload,
// never per dispatch.
func discover(name string, kind Kind, factory Factory) (*TypeInfo, error) {
	if name == "" {
		return nil, errors.Registration("<empty>", fmt.Errorf("name cannot be empty"))
	}
	if factory == nil {
		return nil, errors.Registration(name, fmt.Errorf("factory is nil"))
	}

	probe, err := construct(factory)
	if err != nil {
		return nil, errors.Registration(name, err)
	}
	defer release(probe)

	hooks := hooksOf(probe, kind)
	if r, ok := probe.(scriptlib.HookReporter); ok {
		hooks &= r.Hooks()
	}

	if kind == KindBehavior {
		if _, ok := probe.(scriptlib.SystemUpdater); ok {
			return nil, errors.Registration(name, fmt.Errorf("%T implements the system Update signature", probe))
		}
	} else if _, ok := probe.(scriptlib.Updater); ok {
		return nil, errors.Registration(name, fmt.Errorf("%T implements the behavior Update signature", probe))
	}

	return &TypeInfo{
		Name:    name,
		Kind:    kind,
		Hooks:   hooks,
		GoType:  reflect.TypeOf(probe),
		factory: factory,
	}, nil
}

func hooksOf(v any, kind Kind) scriptlib.Hook {
	var h scriptlib.Hook
	if _, ok := v.(scriptlib.Initializer); ok {
		h |= scriptlib.HookInit
	}
	if _, ok := v.(scriptlib.LegacyInitializer); ok {
		h |= scriptlib.HookInitialize
	}
	if _, ok := v.(scriptlib.Shutdowner); ok {
		h |= scriptlib.HookShutdown
	}
	if _, ok := v.(scriptlib.CollisionStarter); ok {
		h |= scriptlib.HookCollisionStart
	}
	if _, ok := v.(scriptlib.CollisionEnder); ok {
		h |= scriptlib.HookCollisionEnd
	}
	if _, ok := v.(scriptlib.TriggerEnterer); ok {
		h |= scriptlib.HookTriggerEnter
	}
	if _, ok := v.(scriptlib.TriggerLeaver); ok {
		h |= scriptlib.HookTriggerLeave
	}

	switch kind {
	case KindBehavior:
		if _, ok := v.(scriptlib.Updater); ok {
			h |= scriptlib.HookUpdate
		}
		if _, ok := v.(scriptlib.CollisionEnterer); ok {
			h |= scriptlib.HookCollisionEnter
		}
		if _, ok := v.(scriptlib.TriggerEnteredObserver); ok {
			h |= scriptlib.HookTriggerWasEntered
		}
		if _, ok := v.(scriptlib.TriggerLeftObserver); ok {
			h |= scriptlib.HookTriggerWasLeft
		}
	case KindSystem:
		if _, ok := v.(scriptlib.SystemUpdater); ok {
			h |= scriptlib.HookUpdate
		}
		if _, ok := v.(scriptlib.SceneLoader); ok {
			h |= scriptlib.HookSceneLoaded
		}
	}
	return h
}

// construct calls factory, turning a panic or a nil result into an error.
func construct(factory Factory) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("factory panicked: %v", r)
		}
	}()
	v = factory()
	if v == nil {
		return nil, fmt.Errorf("factory returned nil")
	}
	return v, nil
}
