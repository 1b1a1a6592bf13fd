// Package wasmscript hosts behaviors compiled to WebAssembly core modules,
// run on wazero.
//
// A guest exports any of these hooks:
//
//	init()
//	update(dt f32)
//	shutdown()
//	on_collision_start(object1 i64, object2 i64)
//	on_collision_end(object1 i64, object2 i64)
//	on_trigger_enter(trigger i64, actor i64)
//	on_trigger_leave(trigger i64, actor i64)
//
// and imports its scene API from the "scriptlib" module:
//
//	log_trace(ptr i32, len i32)    log_warn(ptr, len)    log_error(ptr, len)
//	self() i64
//	entity_destroy(entity i64) i32
//	transform_get_position(entity i64, ptr i32) i32
//	transform_set_position(entity i64, ptr i32) i32
//	transform_get_rotation(entity i64, ptr i32) i32
//	transform_set_rotation(entity i64, ptr i32) i32
//	key_down(code i32) i32
//
// Entities cross the boundary as packed refs (generation in the high half).
// Vectors and quaternions are read from and written to guest memory as
// packed little-endian float32 fields. Imports that take an entity return a
// status: 0 ok, 1 absent, 2 destroyed, 3 error. A trap inside a hook is a
// script fault.
package wasmscript
