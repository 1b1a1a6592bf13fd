// Package host dispatches lifecycle and event hooks to behaviors and systems.
//
// Types are registered by name with a factory. Hook discovery runs once per
// type: the host checks which of the scriptlib hook interfaces the factory's
// value implements and never repeats the check per call.
//
//	h := host.New(engine, scene, host.WithLogger(logger))
//	h.RegisterBehavior("Spinner", func() any { return &Spinner{Speed: 90} })
//	id, _ := h.AttachBehavior(entity, "Spinner")
//	h.SetField(id, "Speed", 180.0)
//
//	for {
//	    h.Tick(ctx, dt)
//	}
//
// Instances move through Constructed, Initialized, Active, ShuttingDown and
// Destroyed. Init runs exactly once before any other hook of an instance.
// When an entity is destroyed its instances stop receiving hooks at once;
// their Shutdown runs after the hook in progress returns.
//
// A hook that returns an error or panics is a script fault: the host logs it
// with category=script_fault, records it on the frame span and moves on to
// the next instance.
package host
