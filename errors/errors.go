package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in the binding the error occurred
type Phase string

const (
	PhaseResolve  Phase = "resolve"  // handle and component resolution
	PhaseMarshal  Phase = "marshal"  // value conversion across the boundary
	PhaseBoundary Phase = "boundary" // proxy call into the native engine
	PhaseDispatch Phase = "dispatch" // hook invocation
	PhaseRegister Phase = "register" // script type registration
	PhaseLoad     Phase = "load"     // script source loading
	PhaseConfig   Phase = "config"   // configuration parsing
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindInvalidHandle Kind = "invalid_handle"
	KindDestroyed     Kind = "destroyed"
	KindWrongKind     Kind = "wrong_kind"
	KindTypeMismatch  Kind = "type_mismatch"
	KindInvalidEnum   Kind = "invalid_enum"
	KindInvalidUTF8   Kind = "invalid_utf8"
	KindOutOfBounds   Kind = "out_of_bounds"
	KindInvalidInput  Kind = "invalid_input"
	KindInvalidState  Kind = "invalid_state"
	KindScriptFault   Kind = "script_fault"
	KindRegistration  Kind = "registration"
	KindNative        Kind = "native"
	KindReentrant     Kind = "reentrant"
)

// Error is the structured error type used throughout the binding
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Type   string
	Target string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Target != "" {
		b.WriteString(" at ")
		b.WriteString(e.Target)
	}

	if e.Type != "" {
		b.WriteString(": type ")
		b.WriteString(e.Type)
	}

	if e.Detail != "" {
		if e.Type != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsKind reports whether err or any error in its chain is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// KindOf returns the kind of the outermost *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Target sets the identity of the object the error concerns
func (b *Builder) Target(target string) *Builder {
	b.err.Target = target
	return b
}

// Type sets the type name
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidHandle creates an error for a handle that was never issued or is zero
func InvalidHandle(phase Phase, target string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Target: target,
		Detail: "handle was not issued by this binding",
	}
}

// Destroyed creates a use-after-destroy error
func Destroyed(phase Phase, target string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDestroyed,
		Target: target,
		Detail: "object was destroyed",
	}
}

// WrongKind creates an error for an accessor used on the wrong variant
func WrongKind(phase Phase, target, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindWrongKind,
		Target: target,
		Detail: fmt.Sprintf("requires %s, object is %s", want, got),
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, target, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Target: target,
		Type:   want,
		Detail: fmt.Sprintf("cannot use %s", got),
	}
}

// InvalidEnum creates an invalid enum value error
func InvalidEnum(phase Phase, value any, enumType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEnum,
		Type:   enumType,
		Detail: fmt.Sprintf("invalid enum value %v for %s", value, enumType),
		Value:  value,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, what string, need, have int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Type:   what,
		Detail: fmt.Sprintf("need %d bytes, have %d", need, have),
		Value:  have,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidState creates an error for an operation not allowed in the current lifecycle state
func InvalidState(phase Phase, target, state, op string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidState,
		Target: target,
		Detail: fmt.Sprintf("%s not allowed in state %s", op, state),
	}
}

// ScriptFault creates an error for a hook that failed or panicked
func ScriptFault(target, hook string, cause error) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindScriptFault,
		Target: target,
		Detail: "hook " + hook + " failed",
		Cause:  cause,
	}
}

// Registration creates a registration error
func Registration(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s", name),
		Cause:  cause,
	}
}

// Native wraps a failure reported by the native collaborator
func Native(target, op string, cause error) *Error {
	return &Error{
		Phase:  PhaseBoundary,
		Kind:   KindNative,
		Target: target,
		Detail: op,
		Cause:  cause,
	}
}

// Load creates a script loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
