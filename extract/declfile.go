package extract

import (
	"fmt"
	"math"
	"os"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/expr-lang/expr"
	"github.com/goccy/go-yaml"

	"github.com/shape-lang/go-shape/debug"
	"github.com/shape-lang/go-shape/ir"
	"github.com/shape-lang/go-shape/shape"
)

// File is a parsed YAML declaration file. Top-level types are a
// sequence, so declaration order survives parsing.
type File struct {
	Name   string     `yaml:"name"`
	Target string     `yaml:"target"`
	Doc    string     `yaml:"doc,omitempty"`
	Types  []TypeDecl `yaml:"types"`
}

// TypeDecl declares one named type. Either Fields (a struct) or Type
// (an alias for an enum, union or collection) is set, never both.
type TypeDecl struct {
	Name   string      `yaml:"name"`
	Doc    string      `yaml:"doc,omitempty"`
	Wire   bool        `yaml:"wire,omitempty"`
	Fields []FieldDecl `yaml:"fields,omitempty"`
	Type   *TypeExpr   `yaml:"type,omitempty"`
}

// FieldDecl declares one struct field. Default and DefaultExpr are
// mutually exclusive; DefaultExpr is a constant expression evaluated
// at load time.
type FieldDecl struct {
	Name        string   `yaml:"name"`
	Type        TypeExpr `yaml:"type"`
	Doc         string   `yaml:"doc,omitempty"`
	Optional    bool     `yaml:"optional,omitempty"`
	Default     any      `yaml:"default,omitempty"`
	DefaultExpr string   `yaml:"default-expr,omitempty"`
	ThriftID    int16    `yaml:"thrift-id,omitempty"`
}

// TypeExpr is one type expression. Scalars name a primitive or a
// local type ("str", "person"); maps select a composite form:
//
//	type: {list: str}
//	type: {dict: {key: str, value: int}}
//	type: {union: [int, str]}
//	type: {enum: [a, b, c]}
//	type: {foreign: {target: "//dep:defs.shape", name: person}}
type TypeExpr struct {
	Named   string
	List    *TypeExpr
	Dict    *dictExpr
	Union   []TypeExpr
	Enum    []string
	Foreign *foreignExpr
}

type dictExpr struct {
	Key   TypeExpr `yaml:"key"`
	Value TypeExpr `yaml:"value"`
}

type foreignExpr struct {
	Target string `yaml:"target"`
	Name   string `yaml:"name"`
}

type typeExprForms struct {
	List    *TypeExpr    `yaml:"list"`
	Dict    *dictExpr    `yaml:"dict"`
	Union   []TypeExpr   `yaml:"union"`
	Enum    []string     `yaml:"enum"`
	Foreign *foreignExpr `yaml:"foreign"`
}

// UnmarshalYAML accepts either a scalar type name or one of the
// composite map forms.
func (e *TypeExpr) UnmarshalYAML(b []byte) error {
	var named string
	if err := yaml.Unmarshal(b, &named); err == nil {
		if named == "" {
			return fmt.Errorf("empty type expression")
		}
		e.Named = named
		return nil
	}
	var forms typeExprForms
	if err := yaml.UnmarshalWithOptions(b, &forms, yaml.Strict()); err != nil {
		return fmt.Errorf("bad type expression: %v", err)
	}
	set := 0
	if forms.List != nil {
		set++
	}
	if forms.Dict != nil {
		set++
	}
	if forms.Union != nil {
		set++
	}
	if forms.Enum != nil {
		set++
	}
	if forms.Foreign != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("type expression must have exactly one of list, dict, union, enum, foreign")
	}
	e.List = forms.List
	e.Dict = forms.Dict
	e.Union = forms.Union
	e.Enum = forms.Enum
	e.Foreign = forms.Foreign
	return nil
}

// LoadFile reads a YAML declaration file and applies overlay files on
// top of it, in order. Overlays are JSON merge patches (RFC 7386)
// written in YAML: scalar values replace, nulls delete, maps merge
// recursively.
func LoadFile(path string, overlays ...string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeclFile, err)
	}
	doc, err := yaml.YAMLToJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeclFile, path, err)
	}
	for _, opath := range overlays {
		oraw, err := os.ReadFile(opath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeclFile, err)
		}
		patch, err := yaml.YAMLToJSON(oraw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDeclFile, opath, err)
		}
		doc, err = jsonpatch.MergePatch(doc, patch)
		if err != nil {
			return nil, fmt.Errorf("%w: overlay %s: %v", ErrDeclFile, opath, err)
		}
	}
	if debug.Declfile() {
		debug.Logf("declfile: %s with %d overlays: %s\n", path, len(overlays), doc)
	}
	return ParseFile(doc)
}

// ParseFile parses declaration-file bytes. JSON is accepted too,
// being a YAML subset.
func ParseFile(raw []byte) (*File, error) {
	var f File
	if err := yaml.UnmarshalWithOptions(raw, &f, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeclFile, err)
	}
	if f.Name == "" {
		return nil, fmt.Errorf("%w: missing module name", ErrDeclFile)
	}
	if f.Target == "" {
		return nil, fmt.Errorf("%w: missing module target", ErrDeclFile)
	}
	for _, decl := range f.Types {
		if decl.Name == "" {
			return nil, fmt.Errorf("%w: unnamed type declaration", ErrDeclFile)
		}
		if (decl.Fields != nil) == (decl.Type != nil) {
			return nil, fmt.Errorf("%w: type %q must declare exactly one of fields, type", ErrDeclFile, decl.Name)
		}
	}
	return &f, nil
}

// Module builds the file's shapes and extracts their IR.
func (f *File) Module(opts ...Option) (*ir.Module, error) {
	target, err := ir.ParseTarget(f.Target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeclFile, err)
	}
	b := &fileBuilder{
		file:    f,
		decls:   map[string]*TypeDecl{},
		built:   map[string]shape.Type{},
		visited: map[string]bool{},
	}
	for i := range f.Types {
		decl := &f.Types[i]
		if _, dup := b.decls[decl.Name]; dup {
			return nil, fmt.Errorf("%w: type %q declared twice", ErrDeclFile, decl.Name)
		}
		b.decls[decl.Name] = decl
	}
	var roots []*shape.Shape
	for i := range f.Types {
		t, err := b.resolve(f.Types[i].Name)
		if err != nil {
			return nil, err
		}
		if s, ok := t.(*shape.Shape); ok {
			roots = append(roots, s)
		}
	}
	if f.Doc != "" {
		opts = append(opts, Doc(f.Doc))
	}
	return Module(f.Name, target, roots, opts...)
}

type fileBuilder struct {
	file    *File
	decls   map[string]*TypeDecl
	built   map[string]shape.Type
	visited map[string]bool
}

// resolve builds the named local type, memoized. Shapes are values,
// not references, so a declaration cycle can never be built; it is
// reported instead.
func (b *fileBuilder) resolve(name string) (shape.Type, error) {
	if t, ok := b.built[name]; ok {
		return t, nil
	}
	if b.visited[name] {
		return nil, fmt.Errorf("%w: type %q is part of a declaration cycle", ErrDeclFile, name)
	}
	b.visited[name] = true
	decl := b.decls[name]
	var t shape.Type
	var err error
	if decl.Fields != nil {
		t, err = b.buildShape(decl)
	} else {
		t, err = b.typeOf(*decl.Type)
		switch ty := t.(type) {
		case shape.EnumType, shape.UnionType:
			// A named enum or union keeps its declared name in the
			// extracted IR instead of a derived one.
			t = shape.NewAlias(name, t)
		case *shape.Alias:
			t = shape.NewAlias(name, ty.T)
		case *shape.Shape:
			// The extractor dedups shapes by identity, so a second name
			// for the same struct would silently vanish from the module.
			return nil, fmt.Errorf("%w: type %q: aliasing struct type %q is not supported; declare fields instead", ErrDeclFile, name, ty.Name())
		}
	}
	if err != nil {
		return nil, err
	}
	b.built[name] = t
	return t, nil
}

func (b *fileBuilder) buildShape(decl *TypeDecl) (*shape.Shape, error) {
	opts := []shape.Option{shape.Name(decl.Name)}
	if decl.Doc != "" {
		opts = append(opts, shape.Doc(decl.Doc))
	}
	thrift := map[string]int16{}
	for _, fd := range decl.Fields {
		ft, err := b.typeOf(fd.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q of %q: %v", ErrDeclFile, fd.Name, decl.Name, err)
		}
		var fopts []shape.FieldOption
		if fd.Optional {
			fopts = append(fopts, shape.Optional())
		}
		dflt, hasDflt, err := fieldDefault(fd)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q of %q: %v", ErrDeclFile, fd.Name, decl.Name, err)
		}
		if hasDflt {
			fopts = append(fopts, shape.Default(dflt))
		}
		opts = append(opts, shape.F(fd.Name, ft, fopts...))
		if fd.ThriftID != 0 {
			thrift[fd.Name] = fd.ThriftID
		}
	}
	if decl.Wire {
		opts = append(opts, shape.Thrift(thrift))
	} else if len(thrift) > 0 {
		return nil, fmt.Errorf("%w: type %q declares thrift ids without wire: true", ErrDeclFile, decl.Name)
	}
	s, err := shape.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: type %q: %v", ErrDeclFile, decl.Name, err)
	}
	return s, nil
}

func (b *fileBuilder) typeOf(e TypeExpr) (shape.Type, error) {
	switch {
	case e.Named != "":
		switch e.Named {
		case "bool":
			return shape.Bool, nil
		case "int":
			return shape.Int, nil
		case "float":
			return shape.Float, nil
		case "str":
			return shape.String, nil
		case "path":
			return shape.Path, nil
		case "target":
			return shape.TargetRef, nil
		}
		if _, ok := b.decls[e.Named]; !ok {
			return nil, fmt.Errorf("unknown type %q", e.Named)
		}
		return b.resolve(e.Named)
	case e.List != nil:
		item, err := b.typeOf(*e.List)
		if err != nil {
			return nil, err
		}
		return shape.ListOf(item), nil
	case e.Dict != nil:
		key, err := b.typeOf(e.Dict.Key)
		if err != nil {
			return nil, err
		}
		value, err := b.typeOf(e.Dict.Value)
		if err != nil {
			return nil, err
		}
		return shape.DictOf(key, value), nil
	case e.Union != nil:
		alts := make([]shape.Type, len(e.Union))
		for i, ae := range e.Union {
			alt, err := b.typeOf(ae)
			if err != nil {
				return nil, err
			}
			alts[i] = alt
		}
		return shape.UnionOf(alts...), nil
	case e.Enum != nil:
		return shape.EnumOf(e.Enum...), nil
	case e.Foreign != nil:
		return shape.Foreign(e.Foreign.Target, e.Foreign.Name), nil
	}
	return nil, fmt.Errorf("empty type expression")
}

// fieldDefault resolves a field's default from either the literal
// default or a constant default-expr.
func fieldDefault(fd FieldDecl) (any, bool, error) {
	if fd.Default != nil && fd.DefaultExpr != "" {
		return nil, false, fmt.Errorf("default and default-expr are mutually exclusive")
	}
	if fd.DefaultExpr != "" {
		prog, err := expr.Compile(fd.DefaultExpr)
		if err != nil {
			return nil, false, fmt.Errorf("default-expr: %v", err)
		}
		out, err := expr.Run(prog, map[string]any{})
		if err != nil {
			return nil, false, fmt.Errorf("default-expr: %v", err)
		}
		v, err := normalizeValue(out)
		if err != nil {
			return nil, false, fmt.Errorf("default-expr: %v", err)
		}
		return v, true, nil
	}
	if fd.Default == nil {
		return nil, false, nil
	}
	v, err := normalizeValue(fd.Default)
	if err != nil {
		return nil, false, fmt.Errorf("default: %v", err)
	}
	return v, true, nil
}

// normalizeValue maps decoder-specific scalar representations onto
// the value vocabulary the type checker accepts: signed ints, plain
// maps and slices.
func normalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, int, int64, float64:
		return x, nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint:
		return normalizeUint(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return normalizeUint(x)
	case float32:
		return float64(x), nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			ne, err := normalizeValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = ne
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			ne, err := normalizeValue(e)
			if err != nil {
				return nil, err
			}
			out[k] = ne
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v", k)
			}
			ne, err := normalizeValue(e)
			if err != nil {
				return nil, err
			}
			out[ks] = ne
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}

func normalizeUint(x uint64) (any, error) {
	if x > math.MaxInt64 {
		return nil, fmt.Errorf("%d overflows int64", x)
	}
	return int64(x), nil
}
