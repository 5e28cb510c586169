package extract

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shape-lang/go-shape/debug"
	"github.com/shape-lang/go-shape/ir"
	"github.com/shape-lang/go-shape/shape"
)

// Option configures extraction.
type Option func(*extractor)

// Deps supplies the IR of dependency modules. Foreign references in
// the extracted module must resolve to a type declared by one of
// them.
func Deps(mods ...*ir.Module) Option {
	return func(x *extractor) {
		x.deps = append(x.deps, mods...)
	}
}

// RequireWire makes extraction fail unless every root shape opted
// into binary wire serialization.
func RequireWire() Option {
	return func(x *extractor) { x.requireWire = true }
}

// Doc attaches a documentation string to the extracted module.
func Doc(text string) Option {
	return func(x *extractor) { x.doc = text }
}

type extractor struct {
	deps        []*ir.Module
	requireWire bool
	doc         string

	// byShape and byAlias dedup hoisted types by identity: a shape or
	// alias referenced from several fields is emitted as one top-level
	// type.
	byShape map[*shape.Shape]string
	byAlias map[*shape.Alias]string
	names   map[string]bool
	types   []*ir.NamedType
}

// Module extracts the IR module for the given root shapes. Every
// complex type reachable from a root becomes a named top-level type;
// the roots themselves must carry declared names. Types are sorted by
// name, so extraction output is deterministic.
func Module(name string, target ir.Target, roots []*shape.Shape, opts ...Option) (*ir.Module, error) {
	if _, err := ir.ParseTarget(string(target)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtract, err)
	}
	x := &extractor{
		byShape: map[*shape.Shape]string{},
		byAlias: map[*shape.Alias]string{},
		names:   map[string]bool{},
	}
	for _, opt := range opts {
		opt(x)
	}
	for _, root := range roots {
		if root.Name() == "" {
			return nil, fmt.Errorf("%w: top-level shape %s must be named", ErrExtract, root)
		}
		if x.requireWire && !root.HasThrift() {
			return nil, fmt.Errorf("%w: shape %s has no thrift field ids but wire serialization was required", ErrExtract, root)
		}
		if _, err := x.visitShape(root, root.Name()); err != nil {
			return nil, err
		}
	}
	sort.Slice(x.types, func(i, j int) bool {
		return x.types[i].Name < x.types[j].Name
	})
	mod := &ir.Module{
		Name:      name,
		Target:    target,
		Types:     x.types,
		Docstring: x.doc,
	}
	if err := mod.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtract, err)
	}
	if err := x.resolveForeign(mod); err != nil {
		return nil, err
	}
	if debug.Extract() {
		debug.Logf("extract: module %s (%s): %d types\n", name, target, len(mod.Types))
	}
	return mod, nil
}

// visitShape hoists s as a named top-level struct and returns its
// name. Anonymous shapes take the derived hint name.
func (x *extractor) visitShape(s *shape.Shape, hint string) (string, error) {
	if name, ok := x.byShape[s]; ok {
		return name, nil
	}
	name := s.Name()
	if name == "" {
		name = hint
	}
	if err := x.reserve(name); err != nil {
		return "", err
	}
	x.byShape[s] = name

	t := &ir.Type{
		Kind: ir.KindStruct,
		Name: name,
		Wire: s.HasThrift(),
	}
	if t.Wire {
		if err := checkThriftCover(s); err != nil {
			return "", err
		}
	}
	for _, fname := range s.FieldNames() {
		f, _ := s.FieldByName(fname)
		if t.Wire {
			if err := checkWireable(f.Type); err != nil {
				return "", fmt.Errorf("%w: field %q of wire-enabled shape %s: %v", ErrExtract, fname, name, err)
			}
		}
		irf, err := x.field(name, fname, f, s.ThriftID(fname))
		if err != nil {
			return "", err
		}
		t.Fields = append(t.Fields, irf)
	}
	x.types = append(x.types, &ir.NamedType{Name: name, Type: t})
	return name, nil
}

func (x *extractor) field(owner, fname string, f shape.Field, tid int16) (*ir.Field, error) {
	ft, err := x.typeOf(f.Type, owner+"_"+fname)
	if err != nil {
		return nil, fmt.Errorf("%w: field %q of %s: %v", ErrExtract, fname, owner, err)
	}
	irf := &ir.Field{
		Name:     fname,
		Type:     ft,
		Required: !f.Optional,
		ThriftID: tid,
	}
	if f.HasDefault && f.Default != nil {
		// Canonical JSON keeps generated defaults byte-stable. A
		// TargetRef default can never be rendered outside the build
		// host, so it is a declaration error.
		js, err := shape.ValueToJSON(f.Default, f.Type, shape.PolicyFailOnTarget)
		if err != nil {
			return nil, fmt.Errorf("%w: default for field %q of %s: %v", ErrExtract, fname, owner, err)
		}
		irf.Default = js
	}
	return irf, nil
}

// typeOf converts a shape type to IR, hoisting complex types under
// the given derived-name hint.
func (x *extractor) typeOf(t shape.Type, hint string) (*ir.Type, error) {
	switch ty := t.(type) {
	case shape.Primitive:
		var p ir.Primitive
		switch ty {
		case shape.Bool:
			p = ir.Bool
		case shape.Int:
			p = ir.I64
		case shape.Float:
			p = ir.Double
		case shape.String:
			p = ir.PStr
		default:
			return nil, fmt.Errorf("unknown primitive %s", ty)
		}
		return &ir.Type{Kind: ir.KindPrimitive, Primitive: p}, nil
	case *shape.Shape:
		name, err := x.visitShape(ty, hint)
		if err != nil {
			return nil, err
		}
		return &ir.Type{Kind: ir.KindRef, Name: name}, nil
	case shape.ListType:
		item, err := x.typeOf(ty.Item, hint)
		if err != nil {
			return nil, err
		}
		return &ir.Type{Kind: ir.KindList, Item: item}, nil
	case shape.DictType:
		key, err := x.typeOf(ty.Key, hint+"_key")
		if err != nil {
			return nil, err
		}
		if !scalarKey(key, x.types) {
			return nil, fmt.Errorf("dict key type %s is not scalar", ty.Key)
		}
		value, err := x.typeOf(ty.Value, hint+"_value")
		if err != nil {
			return nil, err
		}
		return &ir.Type{Kind: ir.KindMap, Key: key, Value: value}, nil
	case shape.UnionType:
		u := &ir.Type{Kind: ir.KindUnion, Name: hint}
		for i, alt := range ty.Alts {
			at, err := x.typeOf(alt, hint+"_"+strconv.Itoa(i))
			if err != nil {
				return nil, err
			}
			u.Alts = append(u.Alts, at)
		}
		if err := x.hoist(hint, u); err != nil {
			return nil, err
		}
		return &ir.Type{Kind: ir.KindRef, Name: hint}, nil
	case shape.EnumType:
		e := &ir.Type{
			Kind:    ir.KindEnum,
			Name:    hint,
			Options: append([]string(nil), ty.Values...),
		}
		if err := x.hoist(hint, e); err != nil {
			return nil, err
		}
		return &ir.Type{Kind: ir.KindRef, Name: hint}, nil
	case shape.ForeignRef:
		target, err := ir.ParseTarget(ty.Target)
		if err != nil {
			return nil, err
		}
		return &ir.Type{Kind: ir.KindForeign, Name: ty.Name, Target: target}, nil
	case *shape.Alias:
		if name, ok := x.byAlias[ty]; ok {
			return &ir.Type{Kind: ir.KindRef, Name: name}, nil
		}
		switch ty.T.(type) {
		case shape.EnumType, shape.UnionType:
			// The underlying hoist takes the alias name.
			x.byAlias[ty] = ty.Name()
			return x.typeOf(ty.T, ty.Name())
		}
		return x.typeOf(ty.T, hint)
	}
	// shape.Path and shape.TargetRef are unexported singletons.
	switch t {
	case shape.Path:
		return &ir.Type{Kind: ir.KindPrimitive, Primitive: ir.PPath}, nil
	case shape.TargetRef:
		return &ir.Type{Kind: ir.KindPrimitive, Primitive: ir.PTarget}, nil
	}
	return nil, fmt.Errorf("unhandled type %T", t)
}

// scalarKey reports whether t can key a map in every generated
// language: primitives and enums qualify, containers and structs do
// not.
func scalarKey(t *ir.Type, types []*ir.NamedType) bool {
	switch t.Kind {
	case ir.KindPrimitive, ir.KindEnum:
		return true
	case ir.KindRef:
		for _, nt := range types {
			if nt.Name == t.Name {
				return nt.Type.Kind == ir.KindEnum
			}
		}
	}
	return false
}

func (x *extractor) hoist(name string, t *ir.Type) error {
	if err := x.reserve(name); err != nil {
		return err
	}
	x.types = append(x.types, &ir.NamedType{Name: name, Type: t})
	return nil
}

func (x *extractor) reserve(name string) error {
	if x.names[name] {
		return fmt.Errorf("%w: type name %q declared twice; rename one of the colliding shapes or fields", ErrExtract, name)
	}
	x.names[name] = true
	return nil
}

// checkThriftCover verifies the declared thrift mapping names exactly
// the shape's field set.
func checkThriftCover(s *shape.Shape) error {
	declared := map[string]bool{}
	for _, name := range s.ThriftNames() {
		declared[name] = true
	}
	for _, name := range s.FieldNames() {
		if !declared[name] {
			return fmt.Errorf("%w: shape %s: field %q has no thrift id", ErrExtract, s, name)
		}
		delete(declared, name)
	}
	for name := range declared {
		return fmt.Errorf("%w: shape %s: thrift id declared for unknown field %q", ErrExtract, s, name)
	}
	return nil
}

// checkWireable rejects field types that have no binary wire
// encoding: unions, and nested shapes that did not themselves opt
// into wire ids.
func checkWireable(t shape.Type) error {
	switch ty := t.(type) {
	case shape.UnionType:
		return fmt.Errorf("union types cannot be wire-serialized")
	case *shape.Shape:
		if !ty.HasThrift() {
			return fmt.Errorf("nested shape %s has no thrift field ids", ty)
		}
		return nil
	case shape.ListType:
		return checkWireable(ty.Item)
	case shape.DictType:
		if err := checkWireable(ty.Key); err != nil {
			return err
		}
		return checkWireable(ty.Value)
	case *shape.Alias:
		return checkWireable(ty.T)
	}
	return nil
}

// resolveForeign checks every foreign reference against the declared
// dependency modules.
func (x *extractor) resolveForeign(mod *ir.Module) error {
	var walk func(t *ir.Type) error
	walk = func(t *ir.Type) error {
		switch t.Kind {
		case ir.KindForeign:
			dep := x.depByTarget(t.Target)
			if dep == nil {
				return fmt.Errorf("%w: foreign reference %s#%s: no dependency module has target %s", ErrExtract, t.Target, t.Name, t.Target)
			}
			if dep.GetType(t.Name) == nil {
				return fmt.Errorf("%w: foreign reference %s#%s: module %q declares no such type", ErrExtract, t.Target, t.Name, dep.Name)
			}
		case ir.KindList:
			return walk(t.Item)
		case ir.KindMap:
			if err := walk(t.Key); err != nil {
				return err
			}
			return walk(t.Value)
		case ir.KindStruct:
			for _, f := range t.Fields {
				if err := walk(f.Type); err != nil {
					return err
				}
			}
		case ir.KindUnion:
			for _, alt := range t.Alts {
				if err := walk(alt); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, nt := range mod.Types {
		if err := walk(nt.Type); err != nil {
			return fmt.Errorf("type %q: %w", nt.Name, err)
		}
	}
	return nil
}

func (x *extractor) depByTarget(target ir.Target) *ir.Module {
	for _, dep := range x.deps {
		if dep.Target == target {
			return dep
		}
	}
	return nil
}
