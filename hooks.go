package scriptlib

import (
	"context"
	"strings"
)

// Context is passed to every hook. It carries the dispatch context, the
// entity the instance is attached to (zero for systems) and the scene API.
type Context struct {
	context.Context

	Self     Entity
	World    World
	Instance string
	Type     string
}

// Log is shorthand for c.World.Log().
func (c Context) Log() Log { return c.World.Log() }

// Hook identifies a lifecycle or event hook.
type Hook uint16

const (
	HookInit Hook = 1 << iota
	HookInitialize
	HookUpdate
	HookShutdown
	HookCollisionStart
	HookCollisionEnd
	HookCollisionEnter
	HookTriggerEnter
	HookTriggerLeave
	HookTriggerWasEntered
	HookTriggerWasLeft
	HookSceneLoaded

	// HookAll is every hook a type can declare.
	HookAll = HookSceneLoaded<<1 - 1
)

var hookNames = []struct {
	hook Hook
	name string
}{
	{HookInit, "Init"},
	{HookInitialize, "Initialize"},
	{HookUpdate, "Update"},
	{HookShutdown, "Shutdown"},
	{HookCollisionStart, "OnCollisionStart"},
	{HookCollisionEnd, "OnCollisionEnd"},
	{HookCollisionEnter, "OnCollisionEnter"},
	{HookTriggerEnter, "OnTriggerEnter"},
	{HookTriggerLeave, "OnTriggerLeave"},
	{HookTriggerWasEntered, "OnTriggerWasEntered"},
	{HookTriggerWasLeft, "OnTriggerWasLeft"},
	{HookSceneLoaded, "OnSceneLoaded"},
}

// Has reports whether every hook in o is set in h.
func (h Hook) Has(o Hook) bool { return h&o == o }

func (h Hook) String() string {
	if h == 0 {
		return "none"
	}
	var parts []string
	for _, hn := range hookNames {
		if h&hn.hook != 0 {
			parts = append(parts, hn.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseHook resolves a single hook by its method name.
func ParseHook(name string) (Hook, bool) {
	for _, hn := range hookNames {
		if hn.name == name {
			return hn.hook, true
		}
	}
	return 0, false
}

// Hook interfaces. A behavior or system type opts into a hook by implementing
// its interface; the dispatch host checks once per type, at registration.
type (
	// Initializer runs once, before any other hook of the instance.
	Initializer interface {
		Init(ctx Context) error
	}

	// LegacyInitializer is the earlier name of Init. It is used only when
	// Init is not implemented.
	LegacyInitializer interface {
		Initialize(ctx Context) error
	}

	// Updater runs once per frame on behaviors.
	Updater interface {
		Update(ctx Context, dt float32) error
	}

	// SystemUpdater runs once per frame on systems, with the entities the
	// system's selector matched this frame.
	SystemUpdater interface {
		Update(ctx Context, dt float32, entities []Entity) error
	}

	// Shutdowner runs once when the instance is torn down.
	Shutdowner interface {
		Shutdown(ctx Context) error
	}

	CollisionStarter interface {
		OnCollisionStart(ctx Context, ev CollisionEvent) error
	}

	CollisionEnder interface {
		OnCollisionEnd(ctx Context, ev CollisionEvent) error
	}

	// CollisionEnterer receives the other participant when a collision
	// starts. It is the earlier form of CollisionStarter.
	CollisionEnterer interface {
		OnCollisionEnter(ctx Context, other Entity) error
	}

	// TriggerEnterer runs on the actor that entered a trigger, and on systems.
	TriggerEnterer interface {
		OnTriggerEnter(ctx Context, ev TriggerEvent) error
	}

	// TriggerLeaver runs on the actor that left a trigger, and on systems.
	TriggerLeaver interface {
		OnTriggerLeave(ctx Context, ev TriggerEvent) error
	}

	// TriggerEnteredObserver runs on the trigger that was entered.
	TriggerEnteredObserver interface {
		OnTriggerWasEntered(ctx Context, ev TriggerEvent) error
	}

	// TriggerLeftObserver runs on the trigger that was left.
	TriggerLeftObserver interface {
		OnTriggerWasLeft(ctx Context, ev TriggerEvent) error
	}

	// SceneLoader runs on systems once the scene is started.
	SceneLoader interface {
		OnSceneLoaded(ctx Context) error
	}
)

// HookReporter narrows the hooks found by interface checks. Script backends
// implement every hook interface on one adapter type and report which hooks
// the script actually defines.
type HookReporter interface {
	Hooks() Hook
}

// Invoker handles named calls that are not lifecycle hooks.
type Invoker interface {
	Invoke(ctx Context, name string, args ...any) (bool, error)
}

// FieldSetter lets a type control how designer parameters are applied.
// Types that do not implement it have their exported struct fields set by
// name.
type FieldSetter interface {
	SetField(name string, value any) error
	Fields() map[string]any
}
