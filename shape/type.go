package shape

import (
	"fmt"
	"strings"
)

// Type is the closed set of types a shape field can carry. The only
// implementations are the ones in this package: Primitive, the Path
// and TargetRef markers, *Shape, ListType, DictType, UnionType,
// EnumType, *Alias and ForeignRef.
type Type interface {
	// String renders the type for diagnostics, eg "list(int)".
	String() string

	sealed()
}

// Primitive is a scalar type kind.
type Primitive int

const (
	Bool Primitive = iota
	Int
	Float
	String
)

func (p Primitive) sealed() {}

func (p Primitive) String() string {
	switch p {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "str"
	}
	return fmt.Sprintf("primitive(%d)", int(p))
}

type pathType struct{}

func (pathType) sealed()        {}
func (pathType) String() string { return "path" }

type targetType struct{}

func (targetType) sealed()        {}
func (targetType) String() string { return "target" }

// Path is the type of syntactic filesystem paths. Values are checked
// as strings; no filesystem access happens.
var Path Type = pathType{}

// TargetRef is the type of opaque build-target references. Values are
// strings with target syntax; they receive special treatment at
// serialization time (see Policy).
var TargetRef Type = targetType{}

// ListType is a homogeneous list. Construct with ListOf.
type ListType struct {
	Item Type
}

func (ListType) sealed() {}

func (l ListType) String() string { return "list(" + l.Item.String() + ")" }

// DictType is a homogeneous map. Construct with DictOf.
type DictType struct {
	Key   Type
	Value Type
}

func (DictType) sealed() {}

func (d DictType) String() string {
	return "dict(" + d.Key.String() + ", " + d.Value.String() + ")"
}

// UnionType is an ordered list of alternatives. Matching is a linear
// scan in declared order with early exit; the order is significant
// and part of the type's meaning.
type UnionType struct {
	Alts []Type
}

func (UnionType) sealed() {}

func (u UnionType) String() string {
	alts := make([]string, len(u.Alts))
	for i, t := range u.Alts {
		alts[i] = t.String()
	}
	return "union(" + strings.Join(alts, ", ") + ")"
}

// EnumType is a closed set of string literals.
type EnumType struct {
	Values []string
}

func (EnumType) sealed() {}

func (e EnumType) String() string {
	return "enum(" + strings.Join(e.Values, ", ") + ")"
}

// ForeignRef names a shape type declared by another module's target.
// It only exists so that declaration files can reference dependency
// types; the referenced definition lives in that dependency's IR, so
// values of a foreign type cannot be checked locally.
type ForeignRef struct {
	Target string
	Name   string
}

func (ForeignRef) sealed() {}

func (f ForeignRef) String() string { return f.Target + "#" + f.Name }

// Foreign returns a reference to name declared by the given shape
// target.
func Foreign(target, name string) Type {
	return ForeignRef{Target: target, Name: name}
}

// Alias binds a declared name to a non-shape type. Checking and
// serialization see through it; the IR extractor hoists the
// underlying type under the alias name. Like shapes, aliases have
// pointer identity: the same *Alias used from several fields extracts
// once.
type Alias struct {
	name string
	T    Type
}

func (*Alias) sealed() {}

func (a *Alias) String() string { return a.name }

// Name returns the declared alias name.
func (a *Alias) Name() string { return a.name }

// NewAlias binds name to t.
func NewAlias(name string, t Type) *Alias {
	return &Alias{name: name, T: t}
}

// ListOf returns the type of homogeneous lists of item.
func ListOf(item Type) Type {
	return ListType{Item: item}
}

// DictOf returns the type of homogeneous maps from key to value.
func DictOf(key, value Type) Type {
	return DictType{Key: key, Value: value}
}

// UnionOf returns the ordered union of alts. Fewer than two
// alternatives is a declaration error, reported when the union is
// attached to a shape with New.
func UnionOf(alts ...Type) Type {
	cp := make([]Type, len(alts))
	copy(cp, alts)
	return UnionType{Alts: cp}
}

// EnumOf returns the enum of the given string literals.
func EnumOf(values ...string) Type {
	cp := make([]string, len(values))
	copy(cp, values)
	return EnumType{Values: cp}
}

// validateType checks declaration-time invariants of t. It is called
// by New on every field type and recurses through collections and
// unions. Nested *Shape values were validated by their own New call
// and are trusted here.
func validateType(t Type) error {
	switch ty := t.(type) {
	case Primitive:
		if ty < Bool || ty > String {
			return fmt.Errorf("unknown primitive kind %d", int(ty))
		}
		return nil
	case pathType, targetType:
		return nil
	case ForeignRef:
		if ty.Target == "" || ty.Name == "" {
			return fmt.Errorf("foreign reference needs a target and a name")
		}
		return nil
	case *Alias:
		if ty == nil || ty.T == nil {
			return fmt.Errorf("nil alias type")
		}
		if ty.name == "" {
			return fmt.Errorf("alias without a name")
		}
		return validateType(ty.T)
	case *Shape:
		if ty == nil {
			return fmt.Errorf("nil shape type")
		}
		return nil
	case ListType:
		if ty.Item == nil {
			return fmt.Errorf("list with nil item type")
		}
		return validateType(ty.Item)
	case DictType:
		if ty.Key == nil || ty.Value == nil {
			return fmt.Errorf("dict with nil key or value type")
		}
		if err := validateType(ty.Key); err != nil {
			return err
		}
		return validateType(ty.Value)
	case UnionType:
		if len(ty.Alts) < 2 {
			return fmt.Errorf("union needs at least 2 alternatives, got %d", len(ty.Alts))
		}
		for _, alt := range ty.Alts {
			if alt == nil {
				return fmt.Errorf("union with nil alternative")
			}
			if err := validateType(alt); err != nil {
				return err
			}
		}
		return nil
	case EnumType:
		if len(ty.Values) == 0 {
			return fmt.Errorf("enum needs at least 1 value")
		}
		seen := map[string]bool{}
		for _, v := range ty.Values {
			if seen[v] {
				return fmt.Errorf("duplicate enum value %q", v)
			}
			seen[v] = true
		}
		return nil
	}
	return fmt.Errorf("unknown type %T", t)
}
