// Package jsscript hosts behaviors and systems written in JavaScript on the
// goja interpreter.
//
// A script evaluates to a factory function; each instance gets its own
// runtime and the object the factory returns. Hooks are the object's methods
// in JavaScript spelling (init, update, onCollisionStart, ...). The instance
// entity is available as this.entity, and four globals are installed:
//
//	log.trace(msg) log.warn(msg) log.error(msg)
//	input.keyDown("SPACE") input.mouseDown("LEFT")
//	physics.raycast(ox, oy, oz, dx, dy, dz [, max]) -> {entity, distance} | null
//	world.find(name) -> entity | null
//
// Entities are objects with name, valid, tags, position, setPosition,
// teleport, destroy and equals methods. A thrown exception inside a hook is a
// script fault; cancelling the hook context interrupts the script.
package jsscript
