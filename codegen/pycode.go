package codegen

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/shape-lang/go-shape/ir"
)

// pyFile is the template context of the pydantic backend. Generated
// models are frozen, matching the immutability of instances on the
// declaration side. Wire methods are not generated for Python.
type pyFile struct {
	Module *ir.Module
	Types  []*ir.NamedType
}

func pyContext(mod *ir.Module, opts Options) (any, error) {
	return &pyFile{
		Module: mod,
		Types:  mod.SortedTypes(),
	}, nil
}

func (f *pyFile) resolve(name string) *ir.Type {
	return f.Module.GetType(name)
}

// ClassName maps an IR type name to its Python class name.
func (f *pyFile) ClassName(name string) string { return exportName(name) }

// DepImports lists one import line per foreign module referenced by
// this one. Foreign modules are expected to be generated next to this
// file, named after their target basename.
func (f *pyFile) DepImports() []string {
	targets := map[ir.Target]bool{}
	var walk func(t *ir.Type)
	walk = func(t *ir.Type) {
		switch t.Kind {
		case ir.KindForeign:
			targets[t.Target] = true
		case ir.KindList:
			walk(t.Item)
		case ir.KindMap:
			walk(t.Key)
			walk(t.Value)
		case ir.KindStruct:
			for _, fl := range t.Fields {
				walk(fl.Type)
			}
		case ir.KindUnion:
			for _, alt := range t.Alts {
				walk(alt)
			}
		}
	}
	for _, nt := range f.Types {
		walk(nt.Type)
	}
	var lines []string
	for target := range targets {
		lines = append(lines, fmt.Sprintf("from .%s import *  # %s", pyModuleName(target.Basename()), target))
	}
	sort.Strings(lines)
	return lines
}

// PyType renders the Python annotation of t.
func (f *pyFile) PyType(t *ir.Type) (string, error) {
	switch t.Kind {
	case ir.KindPrimitive:
		switch t.Primitive {
		case ir.Bool:
			return "bool", nil
		case ir.I64:
			return "int", nil
		case ir.Double:
			return "float", nil
		case ir.PStr, ir.PPath, ir.PTarget:
			return "str", nil
		}
		return "", fmt.Errorf("unknown primitive %q", t.Primitive)
	case ir.KindList:
		item, err := f.PyType(t.Item)
		if err != nil {
			return "", err
		}
		return "typing.List[" + item + "]", nil
	case ir.KindMap:
		key, err := f.PyType(t.Key)
		if err != nil {
			return "", err
		}
		value, err := f.PyType(t.Value)
		if err != nil {
			return "", err
		}
		return "typing.Dict[" + key + ", " + value + "]", nil
	case ir.KindRef, ir.KindForeign:
		return exportName(t.Name), nil
	}
	return "", fmt.Errorf("cannot map %s type to python", t.Kind)
}

// UnionExpr renders a named union as a typing.Union alias, preserving
// the declared alternative order.
func (f *pyFile) UnionExpr(nt *ir.NamedType) (string, error) {
	alts := make([]string, len(nt.Type.Alts))
	for i, at := range nt.Type.Alts {
		s, err := f.PyType(at)
		if err != nil {
			return "", err
		}
		alts[i] = s
	}
	return "typing.Union[" + strings.Join(alts, ", ") + "]", nil
}

// EnumMember names one enum member.
func (f *pyFile) EnumMember(opt string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(opt) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" || unicode.IsDigit(rune(name[0])) {
		name = "V_" + name
	}
	return name
}

// FieldDef renders one model field line: annotation plus default.
func (f *pyFile) FieldDef(fl *ir.Field) (string, error) {
	ann, err := f.PyType(fl.Type)
	if err != nil {
		return "", err
	}
	switch {
	case fl.HasDefault():
		dflt, err := f.pyDefault(fl)
		if err != nil {
			return "", err
		}
		if !fl.Required {
			ann = "typing.Optional[" + ann + "]"
		}
		return fmt.Sprintf("%s: %s = %s", fl.Name, ann, dflt), nil
	case !fl.Required:
		return fmt.Sprintf("%s: typing.Optional[%s] = None", fl.Name, ann), nil
	}
	return fmt.Sprintf("%s: %s", fl.Name, ann), nil
}

// pyDefault renders the canonical default literal. Mutable values go
// through default_factory so instances never share state; struct
// defaults are rebuilt through their model's constructor.
func (f *pyFile) pyDefault(fl *ir.Field) (string, error) {
	var v any
	if err := json.Unmarshal(fl.Default, &v); err != nil {
		return "", fmt.Errorf("bad default literal %s: %v", fl.Default, err)
	}
	lit := pyLiteral(v)
	if rt := f.resolve(fl.Type.Name); fl.Type.Kind == ir.KindRef && rt != nil && rt.Kind == ir.KindStruct {
		return fmt.Sprintf("pydantic.Field(default_factory=lambda: %s(**%s))", exportName(fl.Type.Name), lit), nil
	}
	switch v.(type) {
	case []any, map[string]any:
		return fmt.Sprintf("pydantic.Field(default_factory=lambda: %s)", lit), nil
	}
	return lit, nil
}

func pyLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		b, _ := json.Marshal(x)
		return string(b)
	case float64:
		b, _ := json.Marshal(x)
		return string(b)
	case []any:
		elems := make([]string, len(x))
		for i, e := range x {
			elems[i] = pyLiteral(e)
		}
		return "[" + strings.Join(elems, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			kb, _ := json.Marshal(k)
			pairs[i] = string(kb) + ": " + pyLiteral(x[k])
		}
		return "{" + strings.Join(pairs, ", ") + "}"
	}
	return fmt.Sprintf("%v", v)
}

// pyModuleName lowercases name to a legal Python module name.
func pyModuleName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "shapes"
	}
	return b.String()
}
