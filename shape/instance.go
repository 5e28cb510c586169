package shape

import (
	"fmt"
	"reflect"
	"strings"
)

// KeepDefault is a sentinel value for NewInstance: passing it for a
// field means "do not override the field's default". It lets callers
// forward unset placeholders without clobbering a declared default.
var KeepDefault any = keepDefault{}

type keepDefault struct{}

// Instance is an immutable value conforming to exactly one Shape.
// Instances are only produced by NewInstance; there is no way to
// promote a plain map into an Instance. Slice and map field values
// are copied at construction, so mutating the originals afterwards
// does not affect the instance; values returned by Get are interior
// references and must be treated as read-only.
type Instance struct {
	shape  *Shape
	values []any // by field index, declaration order
}

// NewInstance builds an Instance of s from the given field values.
// Defaults are filled first, then overridden by values. It fails if
// values names an unknown field, if a required field ends up missing,
// or if any field value fails Check against the field's type.
func NewInstance(s *Shape, values map[string]any) (*Instance, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil shape", ErrDecl)
	}
	for name := range values {
		if _, ok := s.index[name]; !ok {
			return nil, fmt.Errorf("%w: %s has no field %q", ErrCheck, s, name)
		}
	}
	inst := &Instance{
		shape:  s,
		values: make([]any, len(s.fields)),
	}
	for i, nf := range s.fields {
		v, supplied := values[nf.name]
		if !supplied || v == KeepDefault {
			if !nf.field.HasDefault {
				return nil, fmt.Errorf("%w: missing required field %q of %s", ErrCheck, nf.name, s)
			}
			inst.values[i] = nf.field.Default
			continue
		}
		inst.values[i] = v
	}
	for i, nf := range s.fields {
		v := inst.values[i]
		if v == nil && nf.field.Optional {
			continue
		}
		if err := check(v, nf.field.Type); err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrCheck, nf.name, err)
		}
	}
	// Collections are copied so the instance cannot be mutated through
	// references the caller kept, and so shared defaults stay pristine.
	for i := range inst.values {
		inst.values[i] = copyValue(inst.values[i])
	}
	return inst, nil
}

func copyValue(v any) any {
	if v == nil {
		return nil
	}
	if _, ok := v.(*Instance); ok {
		return v
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			if cv := copyValue(rv.Index(i).Interface()); cv != nil {
				out.Index(i).Set(reflect.ValueOf(cv))
			}
		}
		return out.Interface()
	case reflect.Map:
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		for _, key := range rv.MapKeys() {
			cv := copyValue(rv.MapIndex(key).Interface())
			if cv == nil {
				out.SetMapIndex(key, reflect.Zero(rv.Type().Elem()))
				continue
			}
			out.SetMapIndex(key, reflect.ValueOf(cv))
		}
		return out.Interface()
	}
	return v
}

// MustNewInstance is NewInstance, panicking on error.
func MustNewInstance(s *Shape, values map[string]any) *Instance {
	inst, err := NewInstance(s, values)
	if err != nil {
		panic(err)
	}
	return inst
}

// Shape returns the instance's type.
func (inst *Instance) Shape() *Shape { return inst.shape }

// Get returns the value of the named field.
func (inst *Instance) Get(name string) (any, bool) {
	i, ok := inst.shape.index[name]
	if !ok {
		return nil, false
	}
	return inst.values[i], true
}

// IsInstance reports whether v is an Instance of exactly s.
func IsInstance(v any, s *Shape) bool {
	inst, ok := v.(*Instance)
	return ok && inst.shape == s
}

func (inst *Instance) String() string {
	parts := make([]string, len(inst.shape.fields))
	for i, nf := range inst.shape.fields {
		parts[i] = nf.name + "=" + formatValue(inst.values[i])
	}
	return "shape(" + strings.Join(parts, ", ") + ")"
}

// Equal reports field-for-field value equality. Both instances must
// have the same shape (by identity).
func (inst *Instance) Equal(other *Instance) bool {
	if inst == nil || other == nil {
		return inst == other
	}
	if inst.shape != other.shape {
		return false
	}
	for i := range inst.values {
		if !valueEqual(inst.values[i], other.values[i]) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	ai, aok := a.(*Instance)
	bi, bok := b.(*Instance)
	if aok || bok {
		return aok && bok && ai.Equal(bi)
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.Slice && rb.Kind() == reflect.Slice {
		if ra.Len() != rb.Len() {
			return false
		}
		for i := 0; i < ra.Len(); i++ {
			if !valueEqual(ra.Index(i).Interface(), rb.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	if ra.Kind() == reflect.Map && rb.Kind() == reflect.Map {
		if ra.Len() != rb.Len() {
			return false
		}
		for _, key := range ra.MapKeys() {
			bv := rb.MapIndex(key)
			if !bv.IsValid() {
				return false
			}
			if !valueEqual(ra.MapIndex(key).Interface(), bv.Interface()) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
