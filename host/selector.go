package host

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"go.uber.org/zap"

	"github.com/wippyai/scriptlib"
	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/native"
)

// Candidate is an entity offered to a system's selector.
type Candidate struct {
	Entity scriptlib.Entity
	Name   string
	Tags   uint64
	engine native.Entities
	handle native.Handle
}

// Has reports whether the entity has the named built-in component.
func (c Candidate) Has(component string) bool {
	ct, ok := native.ParseComponentType(component)
	if !ok {
		return false
	}
	_, ok = c.engine.Component(c.handle, ct)
	return ok
}

// Selector picks the entities a system updates each frame.
type Selector interface {
	Match(c Candidate) bool
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(Candidate) bool

func (f SelectorFunc) Match(c Candidate) bool { return f(c) }

// AllSelector matches every entity.
func AllSelector() Selector {
	return SelectorFunc(func(Candidate) bool { return true })
}

// TagSelector matches entities carrying every tag bit in mask.
func TagSelector(mask uint64) Selector {
	return SelectorFunc(func(c Candidate) bool { return c.Tags&mask == mask })
}

// NameSelector matches entities by name.
func NameSelector(names ...string) Selector {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return SelectorFunc(func(c Candidate) bool {
		_, ok := set[c.Name]
		return ok
	})
}

type exprEnv struct {
	Name    string                 `expr:"name"`
	Tags    int                    `expr:"tags"`
	Has     func(string) bool      `expr:"has"`
	HasTags func(mask int) bool    `expr:"hasTags"`
	Tagged  func(bits ...int) bool `expr:"tagged"`
}

type exprSelector struct {
	src     string
	program *vm.Program
}

// ExprSelector compiles a boolean expression over the entity:
//
//	name == "Player" || has("Camera")
//	hasTags(4) && !has("StaticActor")
//	tagged(0, 2)
//
// name is the entity name, tags its tag bitmask, has(component) tests for a
// built-in component, hasTags(mask) tests every bit of mask and tagged(bits...)
// tests bit positions.
func ExprSelector(src string) (Selector, error) {
	program, err := expr.Compile(src, expr.Env(exprEnv{}), expr.AsBool())
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detail("selector %q", src).
			Cause(err).
			Build()
	}
	return &exprSelector{src: src, program: program}, nil
}

func (s *exprSelector) Match(c Candidate) bool {
	env := exprEnv{
		Name: c.Name,
		Tags: int(c.Tags),
		Has:  c.Has,
		HasTags: func(mask int) bool {
			return c.Tags&uint64(mask) == uint64(mask)
		},
		Tagged: func(bits ...int) bool {
			for _, b := range bits {
				if b < 0 || b > 63 || c.Tags&(1<<uint(b)) == 0 {
					return false
				}
			}
			return true
		},
	}
	out, err := expr.Run(s.program, env)
	if err != nil {
		Logger().Warn("selector failed",
			zap.String("selector", s.src),
			zap.String("entity", c.Name),
			zap.String("category", scriptlib.CategoryMisconfiguration),
			zap.Error(err))
		return false
	}
	ok, _ := out.(bool)
	return ok
}

func (s *exprSelector) String() string { return s.src }
