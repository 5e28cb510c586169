package shape

import (
	"fmt"
	"sort"
	"strings"
)

// reservedPrefix marks field names reserved for internal use.
const reservedPrefix = "__"

// Field describes one field of a Shape.
type Field struct {
	Type     Type
	Optional bool

	// Default is the field's default value; it is only meaningful
	// when HasDefault is set. An optional field with no explicit
	// default gets an implicit nil default.
	Default    any
	HasDefault bool
}

type namedField struct {
	name  string
	field Field
}

// Shape is an ordered record type. Shapes are immutable after New
// returns; identity (pointer equality) is type identity, so two
// structurally identical shapes declared separately are distinct
// types.
type Shape struct {
	name   string
	fields []namedField
	index  map[string]int

	// thrift maps field names to wire field ids when the shape opts
	// into binary wire support. Consistency with the field set is
	// validated by the IR extractor, not here.
	thrift map[string]int16

	docstring string
}

func (s *Shape) sealed() {}

func (s *Shape) String() string {
	if s.name != "" {
		return s.name
	}
	parts := make([]string, len(s.fields))
	for i, nf := range s.fields {
		parts[i] = nf.name + "=" + nf.field.Type.String()
	}
	return "shape(" + strings.Join(parts, ", ") + ")"
}

// Name returns the declared type name, or "" for anonymous shapes.
func (s *Shape) Name() string { return s.name }

// Docstring returns the declared documentation text, if any.
func (s *Shape) Docstring() string { return s.docstring }

// NumFields returns the number of declared fields.
func (s *Shape) NumFields() int { return len(s.fields) }

// FieldNames returns the field names in declaration order.
func (s *Shape) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, nf := range s.fields {
		names[i] = nf.name
	}
	return names
}

// FieldByName returns the named field.
func (s *Shape) FieldByName(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i].field, true
}

// ThriftID returns the wire field id of name, or 0 if the shape does
// not declare wire ids or the field has none.
func (s *Shape) ThriftID(name string) int16 {
	return s.thrift[name]
}

// HasThrift reports whether the shape opted into wire serialization
// by declaring a thrift field-id mapping.
func (s *Shape) HasThrift() bool { return s.thrift != nil }

// ThriftNames returns the field names of the declared thrift mapping,
// sorted. The mapping may disagree with the field set; the IR
// extractor reports that as an error.
func (s *Shape) ThriftNames() []string {
	names := make([]string, 0, len(s.thrift))
	for name := range s.thrift {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Option configures a Shape under construction. The field options F
// appends fields in call order, which becomes the declaration order.
type Option func(*Shape) error

// FieldOption configures a single field declaration.
type FieldOption func(*Field)

// Optional marks the field as optional. An optional field with no
// explicit default defaults to nil.
func Optional() FieldOption {
	return func(f *Field) { f.Optional = true }
}

// Default sets the field's default value. The value must pass the
// field's type check; New fails otherwise.
func Default(v any) FieldOption {
	return func(f *Field) {
		f.Default = v
		f.HasDefault = true
	}
}

// F declares a field.
func F(name string, t Type, opts ...FieldOption) Option {
	return func(s *Shape) error {
		f := Field{Type: t}
		for _, opt := range opts {
			opt(&f)
		}
		if name == "" {
			return fmt.Errorf("%w: empty field name", ErrDecl)
		}
		if strings.HasPrefix(name, reservedPrefix) {
			return fmt.Errorf("%w: field name must not start with %s: %q", ErrDecl, reservedPrefix, name)
		}
		if _, dup := s.index[name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrDecl, name)
		}
		if t == nil {
			return fmt.Errorf("%w: field %q has nil type", ErrDecl, name)
		}
		s.index[name] = len(s.fields)
		s.fields = append(s.fields, namedField{name: name, field: f})
		return nil
	}
}

// Name sets the shape's type name, used in diagnostics and carried
// into the IR.
func Name(name string) Option {
	return func(s *Shape) error {
		s.name = name
		return nil
	}
}

// Doc attaches a documentation string to the shape.
func Doc(text string) Option {
	return func(s *Shape) error {
		s.docstring = text
		return nil
	}
}

// Thrift declares the wire field-id mapping, opting the shape into
// binary wire serialization. The mapping must cover the field set
// exactly; that consistency check happens at IR extraction.
func Thrift(ids map[string]int16) Option {
	return func(s *Shape) error {
		cp := make(map[string]int16, len(ids))
		for k, v := range ids {
			cp[k] = v
		}
		s.thrift = cp
		return nil
	}
}

// New constructs a Shape from the given options, validating every
// declaration-time invariant: field names are unique, non-empty and
// unreserved; unions carry at least two alternatives; enums carry
// only string literals; defaults pass their field's type check.
func New(opts ...Option) (*Shape, error) {
	s := &Shape{index: map[string]int{}}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	for i := range s.fields {
		nf := &s.fields[i]
		if err := validateType(nf.field.Type); err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrDecl, nf.name, err)
		}
		if nf.field.Optional && !nf.field.HasDefault {
			nf.field.Default = nil
			nf.field.HasDefault = true
		}
		if !nf.field.HasDefault {
			continue
		}
		if nf.field.Default == nil {
			if !nf.field.Optional {
				return nil, fmt.Errorf("%w: field %q: nil default on required field", ErrDecl, nf.name)
			}
			continue
		}
		if err := Check(nf.field.Default, nf.field.Type); err != nil {
			return nil, fmt.Errorf("%w: field %q: bad default: %v", ErrDecl, nf.name, err)
		}
	}
	return s, nil
}

// MustNew is New, panicking on declaration errors. Declarations are
// build-time configuration, so a bad one fails the build loudly.
func MustNew(opts ...Option) *Shape {
	s, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return s
}
