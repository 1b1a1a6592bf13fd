package host

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/wippyai/scriptlib"
	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/native"
)

// InstanceID identifies one script instance within a host.
type InstanceID uuid.UUID

func (id InstanceID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether id is the zero ID.
func (id InstanceID) IsZero() bool { return id == InstanceID{} }

// State is the lifecycle state of a script instance. States only move forward.
type State uint8

const (
	StateConstructed State = iota
	StateInitialized
	StateActive
	StateShuttingDown
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateInitialized:
		return "initialized"
	case StateActive:
		return "active"
	case StateShuttingDown:
		return "shutting_down"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

type instance struct {
	id       InstanceID
	typ      *TypeInfo
	value    any
	entity   native.Handle
	self     scriptlib.Entity
	selector Selector
	state    State
	fields   map[string]any

	// inited is set when Init starts, so Shutdown pairs with it.
	inited bool
}

func (i *instance) alive() bool {
	return i.state < StateShuttingDown
}

// live reports whether the instance receives events.
func (i *instance) live() bool {
	return i.state == StateInitialized || i.state == StateActive
}

// Info is a snapshot of an instance for inspection.
type Info struct {
	ID     InstanceID
	Type   string
	Kind   Kind
	State  State
	Entity native.Handle
}

func (i *instance) info() Info {
	return Info{ID: i.id, Type: i.typ.Name, Kind: i.typ.Kind, State: i.state, Entity: i.entity}
}

// setField applies one designer parameter to v. FieldSetter implementations
// take precedence; otherwise v must point to a struct with an exported field
// of that name whose type the value converts to.
func setField(v any, name string, value any) error {
	if fs, ok := v.(scriptlib.FieldSetter); ok {
		return fs.SetField(name, value)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return errors.TypeMismatch(errors.PhaseDispatch, name, "pointer to struct", fmt.Sprintf("%T", v))
	}
	sf, ok := rv.Elem().Type().FieldByName(name)
	if !ok || !sf.IsExported() {
		return errors.NotFound(errors.PhaseDispatch, "field", name)
	}
	field := rv.Elem().FieldByIndex(sf.Index)

	val := reflect.ValueOf(value)
	switch {
	case !val.IsValid():
		field.SetZero()
	case val.Type().AssignableTo(field.Type()):
		field.Set(val)
	case convertible(val, field.Type()):
		field.Set(val.Convert(field.Type()))
	default:
		return errors.TypeMismatch(errors.PhaseDispatch, name, field.Type().String(), val.Type().String())
	}
	return nil
}

// convertible limits conversions to numeric and string kinds so that a
// designer float64 can land in a float32 field but an int never turns into a
// string.
func convertible(v reflect.Value, to reflect.Type) bool {
	if !v.Type().ConvertibleTo(to) {
		return false
	}
	from := v.Kind()
	switch {
	case isNumeric(from) && isNumeric(to.Kind()):
		return true
	case from == reflect.String && to.Kind() == reflect.String:
		return true
	case from == reflect.Bool && to.Kind() == reflect.Bool:
		return true
	default:
		return false
	}
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// fieldsOf lists the designer parameters of v.
func fieldsOf(v any) map[string]any {
	if fs, ok := v.(scriptlib.FieldSetter); ok {
		return fs.Fields()
	}
	out := make(map[string]any)
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return out
	}
	rv = rv.Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() || f.Anonymous {
			continue
		}
		out[f.Name] = rv.Field(i).Interface()
	}
	return out
}
