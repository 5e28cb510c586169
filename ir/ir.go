package ir

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind discriminates the Type tagged union.
type Kind string

const (
	KindPrimitive Kind = "primitive"
	KindList      Kind = "list"
	KindMap       Kind = "map"
	KindStruct    Kind = "struct"
	KindUnion     Kind = "union"
	KindEnum      Kind = "enum"
	// KindRef names another top-level type of the same module.
	KindRef     Kind = "ref"
	KindForeign Kind = "foreign"
)

// Primitive is a scalar IR type.
type Primitive string

const (
	Bool   Primitive = "bool"
	I64    Primitive = "i64"
	Double Primitive = "double"
	PStr   Primitive = "string"
	PPath  Primitive = "path"
	// PTarget is an opaque build-target reference. Runtimes represent
	// it as a string; its build-time resolution is not the type
	// system's concern.
	PTarget Primitive = "target"
)

// Type is one IR type. It is a tagged union: Kind selects which of
// the other fields are meaningful.
type Type struct {
	Kind Kind `json:"kind"`

	// KindPrimitive
	Primitive Primitive `json:"primitive,omitempty"`

	// KindList
	Item *Type `json:"item,omitempty"`

	// KindMap
	Key   *Type `json:"key,omitempty"`
	Value *Type `json:"value,omitempty"`

	// KindStruct
	Fields []*Field `json:"fields,omitempty"`

	// KindUnion; ordered, first match wins
	Alts []*Type `json:"alts,omitempty"`

	// KindEnum
	Options []string `json:"options,omitempty"`

	// Name is set for named struct/union/enum types and for foreign
	// references.
	Name string `json:"name,omitempty"`

	// KindForeign
	Target Target `json:"target,omitempty"`

	// Wire reports whether a struct opted into binary wire
	// serialization. Wire-enabled structs carry a ThriftID on every
	// field.
	Wire bool `json:"wire,omitempty"`
}

// Field is one struct field, in declaration order within
// Type.Fields. Declaration order is semantic and is never sorted.
type Field struct {
	Name     string `json:"name"`
	Type     *Type  `json:"type"`
	Required bool   `json:"required"`

	// Default is the canonical JSON rendering of the field's default
	// value, empty if the field has none.
	Default json.RawMessage `json:"default,omitempty"`

	// ThriftID is the wire field id; 0 means the field has none.
	ThriftID int16 `json:"thrift_id,omitempty"`
}

// HasDefault reports whether the field carries a default literal.
func (f *Field) HasDefault() bool { return len(f.Default) > 0 }

// NamedType is one top-level type of a Module.
type NamedType struct {
	Name string `json:"name"`
	Type *Type  `json:"type"`
}

// Module holds all types extracted from one shape target.
type Module struct {
	Name      string       `json:"name"`
	Target    Target       `json:"target"`
	Types     []*NamedType `json:"types"`
	Docstring string       `json:"docstring,omitempty"`
}

// GetType returns the named top-level type, or nil.
func (m *Module) GetType(name string) *Type {
	for _, nt := range m.Types {
		if nt.Name == name {
			return nt.Type
		}
	}
	return nil
}

// Validate checks the structural invariants of the module: unique
// type names, tag/field consistency of every type, and positive
// unique thrift ids within each wire-enabled struct.
func (m *Module) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: module has no name", ErrIR)
	}
	if _, err := ParseTarget(string(m.Target)); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, nt := range m.Types {
		if nt.Name == "" {
			return fmt.Errorf("%w: unnamed top-level type in module %q", ErrIR, m.Name)
		}
		if seen[nt.Name] {
			return fmt.Errorf("%w: duplicate type %q in module %q", ErrIR, nt.Name, m.Name)
		}
		seen[nt.Name] = true
		if err := nt.Type.validate(); err != nil {
			return fmt.Errorf("type %q: %w", nt.Name, err)
		}
	}
	for _, nt := range m.Types {
		if err := m.checkRefs(nt.Type); err != nil {
			return fmt.Errorf("type %q: %w", nt.Name, err)
		}
	}
	return m.checkAcyclic()
}

// checkAcyclic rejects reference cycles between named types. The IR
// is a DAG; a shape cannot directly or indirectly contain itself.
func (m *Module) checkAcyclic() error {
	const (
		visiting = 1
		done     = 2
	)
	state := map[string]int{}
	var visitType func(t *Type) error
	var visitNamed func(name string) error
	visitType = func(t *Type) error {
		switch t.Kind {
		case KindRef:
			return visitNamed(t.Name)
		case KindList:
			return visitType(t.Item)
		case KindMap:
			if err := visitType(t.Key); err != nil {
				return err
			}
			return visitType(t.Value)
		case KindStruct:
			for _, f := range t.Fields {
				if err := visitType(f.Type); err != nil {
					return err
				}
			}
		case KindUnion:
			for _, alt := range t.Alts {
				if err := visitType(alt); err != nil {
					return err
				}
			}
		}
		return nil
	}
	visitNamed = func(name string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("%w: type %q is part of a reference cycle", ErrIR, name)
		case done:
			return nil
		}
		state[name] = visiting
		if t := m.GetType(name); t != nil {
			if err := visitType(t); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}
	for _, nt := range m.Types {
		if err := visitNamed(nt.Name); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) checkRefs(t *Type) error {
	switch t.Kind {
	case KindRef:
		if m.GetType(t.Name) == nil {
			return fmt.Errorf("%w: ref to unknown type %q", ErrIR, t.Name)
		}
	case KindList:
		return m.checkRefs(t.Item)
	case KindMap:
		if err := m.checkRefs(t.Key); err != nil {
			return err
		}
		return m.checkRefs(t.Value)
	case KindStruct:
		for _, f := range t.Fields {
			if err := m.checkRefs(f.Type); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
	case KindUnion:
		for _, alt := range t.Alts {
			if err := m.checkRefs(alt); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Type) validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil type", ErrIR)
	}
	switch t.Kind {
	case KindPrimitive:
		switch t.Primitive {
		case Bool, I64, Double, PStr, PPath, PTarget:
			return nil
		}
		return fmt.Errorf("%w: unknown primitive %q", ErrIR, t.Primitive)
	case KindList:
		if t.Item == nil {
			return fmt.Errorf("%w: list without item type", ErrIR)
		}
		return t.Item.validate()
	case KindMap:
		if t.Key == nil || t.Value == nil {
			return fmt.Errorf("%w: map without key or value type", ErrIR)
		}
		if err := t.Key.validate(); err != nil {
			return err
		}
		return t.Value.validate()
	case KindStruct:
		return t.validateStruct()
	case KindUnion:
		if len(t.Alts) < 2 {
			return fmt.Errorf("%w: union with %d alternatives", ErrIR, len(t.Alts))
		}
		for _, alt := range t.Alts {
			if err := alt.validate(); err != nil {
				return err
			}
		}
		return nil
	case KindEnum:
		if len(t.Options) == 0 {
			return fmt.Errorf("%w: enum with no options", ErrIR)
		}
		return nil
	case KindRef:
		if t.Name == "" {
			return fmt.Errorf("%w: ref without a name", ErrIR)
		}
		return nil
	case KindForeign:
		if t.Name == "" {
			return fmt.Errorf("%w: foreign reference without a name", ErrIR)
		}
		_, err := ParseTarget(string(t.Target))
		return err
	}
	return fmt.Errorf("%w: unknown kind %q", ErrIR, t.Kind)
}

func (t *Type) validateStruct() error {
	names := map[string]bool{}
	ids := map[int16]string{}
	for _, f := range t.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: unnamed field in struct %q", ErrIR, t.Name)
		}
		if names[f.Name] {
			return fmt.Errorf("%w: duplicate field %q in struct %q", ErrIR, f.Name, t.Name)
		}
		names[f.Name] = true
		if f.Type == nil {
			return fmt.Errorf("%w: field %q has no type", ErrIR, f.Name)
		}
		if err := f.Type.validate(); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		if !t.Wire {
			if f.ThriftID != 0 {
				return fmt.Errorf("%w: field %q has a thrift id but struct %q is not wire-enabled", ErrIR, f.Name, t.Name)
			}
			continue
		}
		if f.ThriftID <= 0 {
			return fmt.Errorf("%w: field %q of wire-enabled struct %q needs a positive thrift id", ErrIR, f.Name, t.Name)
		}
		if prev, dup := ids[f.ThriftID]; dup {
			return fmt.Errorf("%w: fields %q and %q of struct %q share thrift id %d", ErrIR, prev, f.Name, t.Name, f.ThriftID)
		}
		ids[f.ThriftID] = f.Name
	}
	return nil
}

// SortedTypes returns the module's types ordered so that every type
// comes after everything it references, with ties broken by name.
// Code generators emit in this order so that no forward declarations
// are needed; the IR is acyclic, so ordering by transitive dependency
// count is a valid topological order.
func (m *Module) SortedTypes() []*NamedType {
	memo := map[string]int{}
	out := make([]*NamedType, len(m.Types))
	copy(out, m.Types)
	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := m.depCount(out[i].Type, memo), m.depCount(out[j].Type, memo)
		if wi != wj {
			return wi < wj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// depCount counts how many types t (transitively) depends on,
// including itself for non-primitives, resolving local refs through
// the module.
func (m *Module) depCount(t *Type, memo map[string]int) int {
	switch t.Kind {
	case KindPrimitive:
		return 0
	case KindList:
		return 1 + m.depCount(t.Item, memo)
	case KindMap:
		return 2 + m.depCount(t.Key, memo) + m.depCount(t.Value, memo)
	case KindStruct:
		n := 1
		for _, f := range t.Fields {
			n += m.depCount(f.Type, memo)
		}
		return n
	case KindUnion:
		n := 1
		for _, alt := range t.Alts {
			n += m.depCount(alt, memo)
		}
		return n
	case KindEnum:
		return 1
	case KindRef:
		if n, ok := memo[t.Name]; ok {
			return n
		}
		// Mark before recursing; Validate rejects cycles so this is
		// only a guard against pathological hand-built modules.
		memo[t.Name] = 1
		if ref := m.GetType(t.Name); ref != nil {
			memo[t.Name] = 1 + m.depCount(ref, memo)
		}
		return memo[t.Name]
	case KindForeign:
		return 1
	}
	return 0
}

