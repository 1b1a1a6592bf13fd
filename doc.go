// Package scriptlib is the scripting side of a native game engine binding.
//
// Gameplay code never touches native state directly. It holds capability
// proxies (Entity, Transform, PhysicsActor, AudioSource, ...) that carry a
// generation-checked ref into a handle table, and every accessor is a single
// synchronous call across the boundary into a native.Engine.
//
// # Architecture Overview
//
//	scriptlib/           Root package: proxies, event payloads, hook interfaces
//	├── vec/             Vector and quaternion value types
//	├── handle/          Generation-checked handle table
//	├── marshal/         Wire layouts, key codes, string encodings
//	├── native/          Boundary interfaces implemented by the engine
//	│   └── sim/         In-memory reference engine
//	├── host/            Behavior and system dispatch host
//	├── luascript/       Lua-authored scripts
//	├── jsscript/        JavaScript-authored scripts
//	├── wasmscript/      WebAssembly-authored scripts
//	├── config/          Environment configuration and logger setup
//	├── errors/          Structured error types
//	├── internal/
//	│   ├── behaviors/   Stock Go behaviors and systems
//	│   ├── runner/      Scene files and the step/dispatch/tick loop
//	│   └── wasmenc/     Minimal wasm binary encoder for guest fixtures
//	└── cmd/scriptrun/   Scene runner with a terminal UI
//
// # Quick Start
//
// Declare a behavior by implementing the hook interfaces it needs:
//
//	type Spinner struct {
//	    Speed float32
//	}
//
//	func (s *Spinner) Update(ctx scriptlib.Context, dt float32) error {
//	    t, _, err := ctx.Self.Transform()
//	    if err != nil {
//	        return err
//	    }
//	    return t.SetRotation(vec.FromEuler(s.Speed*dt, 0, 0))
//	}
//
// Register it with a host and drive frames:
//
//	h := host.New(engine, scene)
//	h.RegisterBehavior("Spinner", func() any { return &Spinner{Speed: 1} })
//	h.AttachBehavior(entity, "Spinner")
//	h.Start(ctx)
//	h.Tick(ctx, 1.0/60)
//
// # Handles
//
// Proxies compare equal exactly when they address the same live native object.
// Once an entity is destroyed, every proxy of it and of its components fails
// with errors.KindDestroyed; the engine is never called with a stale handle.
//
// # Absent Results
//
// Lookups that can legitimately find nothing (GetComponent, FindEntity,
// Raycast, asset lookups) report absence with a boolean, never an error.
package scriptlib
