package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseBoundary,
				Kind:   KindWrongKind,
				Target: "entity#4",
				Type:   "DynamicActor",
				Detail: "mass",
			},
			contains: []string{"[boundary]", "wrong_kind", "entity#4", "DynamicActor", "mass"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseMarshal,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[marshal]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseDispatch,
				Kind:   KindScriptFault,
				Detail: "hook Update failed",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[dispatch]", "script_fault", "Update", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseBoundary,
		Kind:  KindNative,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find cause in chain")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:  PhaseBoundary,
		Kind:   KindDestroyed,
		Target: "entity#1",
	}

	if !err.Is(&Error{Phase: PhaseBoundary, Kind: KindDestroyed}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseResolve, Kind: KindDestroyed}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseBoundary, Kind: KindInvalidHandle}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, &Error{Phase: PhaseBoundary, Kind: KindDestroyed}) {
		t.Error("errors.Is should match")
	}
}

func TestIsKind(t *testing.T) {
	inner := Destroyed(PhaseBoundary, "entity#9")
	outer := ScriptFault("Scripts.Ground", "Update", inner)
	wrapped := fmt.Errorf("frame 3: %w", outer)

	if !IsKind(wrapped, KindScriptFault) {
		t.Error("IsKind should find the outer kind")
	}
	if !IsKind(wrapped, KindDestroyed) {
		t.Error("IsKind should find the kind of the cause")
	}
	if IsKind(wrapped, KindNotFound) {
		t.Error("IsKind matched a kind that is not in the chain")
	}
	if IsKind(errors.New("plain"), KindNotFound) {
		t.Error("IsKind matched a plain error")
	}
	if got := KindOf(wrapped); got != KindScriptFault {
		t.Errorf("KindOf = %q, want %q", got, KindScriptFault)
	}
	if got := KindOf(nil); got != "" {
		t.Errorf("KindOf(nil) = %q", got)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseBoundary, KindWrongKind).
		Target("entity#2").
		Type("StaticActor").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "dynamic", "static").
		Build()

	if err.Phase != PhaseBoundary {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseBoundary)
	}
	if err.Kind != KindWrongKind {
		t.Errorf("Kind = %v, want %v", err.Kind, KindWrongKind)
	}
	if err.Target != "entity#2" {
		t.Errorf("Target = %v", err.Target)
	}
	if err.Type != "StaticActor" {
		t.Errorf("Type = %v", err.Type)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected dynamic, got static" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		kind Kind
	}{
		{"InvalidHandle", InvalidHandle(PhaseResolve, "ref#0"), KindInvalidHandle},
		{"Destroyed", Destroyed(PhaseBoundary, "entity#1"), KindDestroyed},
		{"WrongKind", WrongKind(PhaseBoundary, "actor#1", "dynamic", "static"), KindWrongKind},
		{"TypeMismatch", TypeMismatch(PhaseDispatch, "Speed", "float32", "string"), KindTypeMismatch},
		{"InvalidEnum", InvalidEnum(PhaseMarshal, 999, "Key"), KindInvalidEnum},
		{"InvalidUTF8", InvalidUTF8(PhaseMarshal, []byte{0xff, 0xfe}), KindInvalidUTF8},
		{"OutOfBounds", OutOfBounds(PhaseMarshal, "Vector3", 12, 4), KindOutOfBounds},
		{"NotFound", NotFound(PhaseRegister, "behavior", "Scripts.X"), KindNotFound},
		{"InvalidInput", InvalidInput(PhaseConfig, "bad"), KindInvalidInput},
		{"InvalidState", InvalidState(PhaseDispatch, "i", "Active", "SetField"), KindInvalidState},
		{"ScriptFault", ScriptFault("i", "Init", errors.New("x")), KindScriptFault},
		{"Registration", Registration("Scripts.X", errors.New("x")), KindRegistration},
		{"Native", Native("entity#1", "set position", errors.New("x")), KindNative},
		{"Load", Load("parse lua", errors.New("x")), KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
			if tt.err.Error() == "" {
				t.Error("empty message")
			}
		})
	}

	t.Run("InvalidUTF8 preview is truncated", func(t *testing.T) {
		data := make([]byte, 100)
		for i := range data {
			data[i] = 0xff
		}
		err := InvalidUTF8(PhaseMarshal, data)
		if len(err.Detail) > 100 {
			t.Errorf("Detail too long: %d", len(err.Detail))
		}
	})
}
