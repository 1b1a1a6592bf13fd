// Package handle implements the binding's handle table.
//
// Native engine objects are addressed by opaque native.Handle values that mean
// nothing outside the engine instance that issued them. Hosted code never holds
// those directly; it holds a Ref, an index into the table plus a generation:
//
//	table := handle.NewTable()
//
//	ref, err := table.IssueEntity(h)   // same live handle, same ref
//	entry, err := table.Resolve(ref)   // checked on every use
//
//	table.Invalidate(h)                // entity destroyed
//	_, err = table.Resolve(ref)        // errors.KindDestroyed
//
// Invalidating an entity also invalidates every ref whose Entry.Owner is that
// entity, so component proxies die with their entity.
//
// # Observers
//
// Observers are notified after a ref is issued and after it is invalidated.
// The dispatch host uses this to tear down script instances of destroyed
// entities:
//
//	table.Subscribe(observer)
//
// Observers run on the goroutine that caused the event, after the table lock
// is released, so they may call back into the table.
package handle
