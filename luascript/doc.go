// Package luascript hosts behaviors and systems written in Lua.
//
// Each instance runs in its own Lua state. The chunk returns a class table;
// an instance is a table whose metatable indexes the class, so designer
// parameters set on the instance shadow class defaults. Hooks are the class
// functions named after the hook methods (Init, Update, OnCollisionStart,
// ...), called with colon syntax.
//
// Scripts see self.entity and four globals:
//
//	log.trace(msg) log.warn(msg) log.error(msg)
//	input.key_down("SPACE") input.mouse_down("LEFT")
//	physics.raycast(ox, oy, oz, dx, dy, dz [, max]) -> entity, distance
//	world.find(name) -> entity
//
// Entities are userdata with name, valid, tags, position, set_position,
// teleport and destroy methods. A Lua error inside a hook is a script fault.
package luascript
