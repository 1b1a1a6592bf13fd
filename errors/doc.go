// Package errors provides structured error types for the scripting binding.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the target identity (handle, instance, hook), an optional
// type name and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseBoundary, errors.KindWrongKind).
//		Target("entity#3").
//		Type("DynamicActor").
//		Detail("mass is only defined for dynamic actors").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Destroyed(errors.PhaseBoundary, "entity#3")
//	err := errors.ScriptFault("Scripts.Ground", "Update", cause)
//
// Absent results (no such component, raycast without a hit) are never errors;
// they are reported through an (value, ok) pair. Only boundary misuse, native
// failures and script faults produce an *Error.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
