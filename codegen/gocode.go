package codegen

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/shape-lang/go-shape/ir"
)

// goFile is the template context of the go backend. The template
// drives layout; these methods do the type mapping and emit the wire
// method bodies.
type goFile struct {
	Module  *ir.Module
	Package string
	Runtime string
	Types   []*ir.NamedType
}

func goContext(mod *ir.Module, opts Options) (any, error) {
	pkg := opts.Package
	if pkg == "" {
		pkg = mod.Name
	}
	return &goFile{
		Module:  mod,
		Package: packageName(pkg),
		Runtime: opts.Runtime,
		Types:   mod.SortedTypes(),
	}, nil
}

func (f *goFile) resolve(name string) *ir.Type {
	return f.Module.GetType(name)
}

// TypeName maps an IR type name to its exported Go name.
func (f *goFile) TypeName(name string) string { return exportName(name) }

// FieldName maps an IR field name to its exported Go name.
func (f *goFile) FieldName(name string) string { return exportName(name) }

// GoType renders the Go type of t: struct references are pointers,
// enums and unions are value types.
func (f *goFile) GoType(t *ir.Type) (string, error) {
	switch t.Kind {
	case ir.KindPrimitive:
		switch t.Primitive {
		case ir.Bool:
			return "bool", nil
		case ir.I64:
			return "int64", nil
		case ir.Double:
			return "float64", nil
		case ir.PStr, ir.PPath, ir.PTarget:
			return "string", nil
		}
		return "", fmt.Errorf("unknown primitive %q", t.Primitive)
	case ir.KindList:
		item, err := f.GoType(t.Item)
		if err != nil {
			return "", err
		}
		return "[]" + item, nil
	case ir.KindMap:
		key, err := f.GoType(t.Key)
		if err != nil {
			return "", err
		}
		value, err := f.GoType(t.Value)
		if err != nil {
			return "", err
		}
		return "map[" + key + "]" + value, nil
	case ir.KindRef:
		rt := f.resolve(t.Name)
		if rt != nil && rt.Kind == ir.KindStruct {
			return "*" + exportName(t.Name), nil
		}
		return exportName(t.Name), nil
	case ir.KindForeign:
		// Foreign modules are generated into the same output package.
		return "*" + exportName(t.Name), nil
	case ir.KindEnum:
		// Inline enums only occur in hand-written IR; extracted IR
		// hoists them to named types.
		return "string", nil
	}
	return "", fmt.Errorf("cannot map %s type to go", t.Kind)
}

// Wrapped reports whether the field is stored behind an extra pointer
// so that "unset" is representable.
func (f *goFile) Wrapped(fl *ir.Field) (bool, error) {
	base, err := f.GoType(fl.Type)
	if err != nil {
		return false, err
	}
	if strings.HasPrefix(base, "*") {
		return false, nil
	}
	return !fl.Required || fl.HasDefault(), nil
}

// FieldType renders the struct field type, pointer-wrapped for
// optional and defaulted fields.
func (f *goFile) FieldType(fl *ir.Field) (string, error) {
	base, err := f.GoType(fl.Type)
	if err != nil {
		return "", err
	}
	wrapped, err := f.Wrapped(fl)
	if err != nil {
		return "", err
	}
	if wrapped {
		return "*" + base, nil
	}
	return base, nil
}

// JSONTag renders the field's json struct tag value.
func (f *goFile) JSONTag(fl *ir.Field) (string, error) {
	wrapped, err := f.Wrapped(fl)
	if err != nil {
		return "", err
	}
	base, _ := f.GoType(fl.Type)
	if wrapped || strings.HasPrefix(base, "*") {
		return fl.Name + ",omitempty", nil
	}
	return fl.Name, nil
}

// Getter names the default-applying accessor of a defaulted field.
func (f *goFile) Getter(fl *ir.Field) string {
	return "Get" + exportName(fl.Name)
}

// DefaultVar names the lazy default holder of a field.
func (f *goFile) DefaultVar(nt *ir.NamedType, fl *ir.Field) string {
	return "default" + exportName(nt.Name) + exportName(fl.Name)
}

// DefaultJSON renders the canonical default literal as a Go string
// literal.
func (f *goFile) DefaultJSON(fl *ir.Field) string {
	return strconv.Quote(string(fl.Default))
}

// Deref renders the field value expression, dereferencing wrapped
// fields.
func (f *goFile) Deref(fl *ir.Field) (string, error) {
	wrapped, err := f.Wrapped(fl)
	if err != nil {
		return "", err
	}
	if wrapped {
		return "*s." + exportName(fl.Name), nil
	}
	return "s." + exportName(fl.Name), nil
}

// EnumMember names one enum constant.
func (f *goFile) EnumMember(nt *ir.NamedType, opt string) string {
	return exportName(nt.Name) + exportName(opt)
}

// EnumMemberList renders all enum constants, comma separated.
func (f *goFile) EnumMemberList(nt *ir.NamedType) string {
	members := make([]string, len(nt.Type.Options))
	for i, opt := range nt.Type.Options {
		members[i] = f.EnumMember(nt, opt)
	}
	return strings.Join(members, ", ")
}

// unionAlt describes one union alternative for the template.
type unionAlt struct {
	// Field is the alternative's field name in the generated struct.
	Field string
	// FieldType is the field's (pointer) type.
	FieldType string
	// Base is the type UnmarshalJSON probes with.
	Base string
	// TakeAddr is the expression assigned to the field on match.
	TakeAddr string
	// MarshalExpr is the expression MarshalJSON serializes.
	MarshalExpr string
	// Cond is the match condition after probing.
	Cond string
}

// UnionAlts describes the union's alternatives in declared order,
// which is the match order.
func (f *goFile) UnionAlts(nt *ir.NamedType) ([]unionAlt, error) {
	var alts []unionAlt
	used := map[string]bool{}
	for i, at := range nt.Type.Alts {
		base, err := f.GoType(at)
		if err != nil {
			return nil, err
		}
		name := altName(at)
		if used[name] {
			name += strconv.Itoa(i)
		}
		used[name] = true
		a := unionAlt{Field: name, Cond: "err == nil"}
		if strings.HasPrefix(base, "*") {
			a.FieldType = base
			a.Base = base
			a.TakeAddr = "v"
			a.MarshalExpr = "u." + name
		} else {
			a.FieldType = "*" + base
			a.Base = base
			a.TakeAddr = "&v"
			a.MarshalExpr = "*u." + name
		}
		if rt := f.resolve(at.Name); at.Kind == ir.KindRef && rt != nil && rt.Kind == ir.KindEnum {
			a.Cond = "err == nil && v.Validate() == nil"
		}
		alts = append(alts, a)
	}
	return alts, nil
}

func altName(t *ir.Type) string {
	switch t.Kind {
	case ir.KindPrimitive:
		switch t.Primitive {
		case ir.Bool:
			return "Bool"
		case ir.I64:
			return "I64"
		case ir.Double:
			return "Double"
		case ir.PStr:
			return "Str"
		case ir.PPath:
			return "Path"
		case ir.PTarget:
			return "Target"
		}
	case ir.KindList:
		return "List"
	case ir.KindMap:
		return "Map"
	case ir.KindRef, ir.KindForeign:
		return exportName(t.Name)
	}
	return "Alt"
}

// WireFields returns the struct's fields in ascending thrift id
// order, the order generated writers emit them in.
func (f *goFile) WireFields(nt *ir.NamedType) []*ir.Field {
	out := make([]*ir.Field, len(nt.Type.Fields))
	copy(out, nt.Type.Fields)
	sort.Slice(out, func(i, j int) bool {
		return out[i].ThriftID < out[j].ThriftID
	})
	return out
}

// wireTypeOf maps an IR type to its wire type constant.
func (f *goFile) wireTypeOf(t *ir.Type) (string, error) {
	switch t.Kind {
	case ir.KindPrimitive:
		switch t.Primitive {
		case ir.Bool:
			return "wire.TBool", nil
		case ir.I64:
			return "wire.TI64", nil
		case ir.Double:
			return "wire.TDouble", nil
		case ir.PStr, ir.PPath, ir.PTarget:
			return "wire.TString", nil
		}
	case ir.KindList:
		return "wire.TList", nil
	case ir.KindMap:
		return "wire.TMap", nil
	case ir.KindRef:
		rt := f.resolve(t.Name)
		if rt == nil {
			return "", fmt.Errorf("unresolved ref %q", t.Name)
		}
		switch rt.Kind {
		case ir.KindStruct:
			return "wire.TStruct", nil
		case ir.KindEnum:
			return "wire.TString", nil
		}
		return "", fmt.Errorf("type %q has no wire encoding", t.Name)
	case ir.KindForeign:
		return "wire.TStruct", nil
	}
	return "", fmt.Errorf("%s type has no wire encoding", t.Kind)
}

// srcBuf accumulates generated statements. Indentation is coarse;
// formatGo canonicalizes it afterwards.
type srcBuf struct {
	b bytes.Buffer
}

func (b *srcBuf) add(line string) {
	b.b.WriteByte('\t')
	b.b.WriteString(line)
	b.b.WriteByte('\n')
}

func (b *srcBuf) addf(format string, args ...any) {
	b.add(fmt.Sprintf(format, args...))
}

// EncodeBody emits the body of the struct's Encode method: fields in
// ascending id order, nil optionals skipped, a stop marker last.
func (f *goFile) EncodeBody(nt *ir.NamedType) (string, error) {
	b := &srcBuf{}
	for _, fl := range f.WireFields(nt) {
		wt, err := f.wireTypeOf(fl.Type)
		if err != nil {
			return "", fmt.Errorf("field %q: %v", fl.Name, err)
		}
		wrapped, err := f.Wrapped(fl)
		if err != nil {
			return "", err
		}
		base, _ := f.GoType(fl.Type)
		optional := wrapped || strings.HasPrefix(base, "*")
		expr := "s." + exportName(fl.Name)
		if optional {
			b.addf("if %s != nil {", expr)
		}
		if wrapped {
			expr = "(*" + expr + ")"
		}
		b.addf("if err := w.WriteFieldBegin(%s, %d); err != nil {", wt, fl.ThriftID)
		b.add("return err")
		b.add("}")
		if err := f.writeValue(b, fl.Type, expr, 0); err != nil {
			return "", fmt.Errorf("field %q: %v", fl.Name, err)
		}
		if optional {
			b.add("}")
		}
	}
	b.add("return w.WriteFieldStop()")
	return b.b.String(), nil
}

func (f *goFile) writeValue(b *srcBuf, t *ir.Type, expr string, depth int) error {
	switch t.Kind {
	case ir.KindPrimitive:
		var call string
		switch t.Primitive {
		case ir.Bool:
			call = "WriteBool"
		case ir.I64:
			call = "WriteI64"
		case ir.Double:
			call = "WriteDouble"
		case ir.PStr, ir.PPath, ir.PTarget:
			call = "WriteString"
		default:
			return fmt.Errorf("unknown primitive %q", t.Primitive)
		}
		b.addf("if err := w.%s(%s); err != nil {", call, expr)
		b.add("return err")
		b.add("}")
		return nil
	case ir.KindRef:
		rt := f.resolve(t.Name)
		if rt != nil && rt.Kind == ir.KindEnum {
			b.addf("if err := w.WriteString(string(%s)); err != nil {", expr)
			b.add("return err")
			b.add("}")
			return nil
		}
		fallthrough
	case ir.KindForeign:
		b.addf("if err := %s.Encode(w); err != nil {", expr)
		b.add("return err")
		b.add("}")
		return nil
	case ir.KindList:
		elem, err := f.wireTypeOf(t.Item)
		if err != nil {
			return err
		}
		b.addf("if err := w.WriteListBegin(%s, len(%s)); err != nil {", elem, expr)
		b.add("return err")
		b.add("}")
		ev := fmt.Sprintf("e%d", depth)
		b.addf("for _, %s := range %s {", ev, expr)
		if err := f.writeValue(b, t.Item, ev, depth+1); err != nil {
			return err
		}
		b.add("}")
		return nil
	case ir.KindMap:
		kt, err := f.wireTypeOf(t.Key)
		if err != nil {
			return err
		}
		vt, err := f.wireTypeOf(t.Value)
		if err != nil {
			return err
		}
		keyGo, err := f.GoType(t.Key)
		if err != nil {
			return err
		}
		b.addf("if err := w.WriteMapBegin(%s, %s, len(%s)); err != nil {", kt, vt, expr)
		b.add("return err")
		b.add("}")
		// Sorted keys keep the encoding byte-stable across runs.
		keys := fmt.Sprintf("keys%d", depth)
		kv := fmt.Sprintf("k%d", depth)
		b.addf("%s := make([]%s, 0, len(%s))", keys, keyGo, expr)
		b.addf("for %s := range %s {", kv, expr)
		b.addf("%s = append(%s, %s)", keys, keys, kv)
		b.add("}")
		b.addf("sort.Slice(%s, func(i, j int) bool { return %s[i] < %s[j] })", keys, keys, keys)
		b.addf("for _, %s := range %s {", kv, keys)
		if err := f.writeValue(b, t.Key, kv, depth+1); err != nil {
			return err
		}
		if err := f.writeValue(b, t.Value, expr+"["+kv+"]", depth+1); err != nil {
			return err
		}
		b.add("}")
		return nil
	}
	return fmt.Errorf("%s type has no wire encoding", t.Kind)
}

// DecodeBody emits the body of the struct's Decode method: a field
// loop keyed on thrift ids, Skip for unknown ids, and missing-field
// checks for required fields once the stop marker arrives.
func (f *goFile) DecodeBody(nt *ir.NamedType) (string, error) {
	b := &srcBuf{}
	var required []*ir.Field
	for _, fl := range nt.Type.Fields {
		if fl.Required && !fl.HasDefault() {
			required = append(required, fl)
			b.addf("var seen%s bool", exportName(fl.Name))
		}
	}
	b.add("for {")
	b.add("typ, id, err := r.ReadFieldBegin()")
	b.add("if err != nil {")
	b.add("return err")
	b.add("}")
	b.add("if typ == wire.Stop {")
	b.add("break")
	b.add("}")
	b.add("switch id {")
	for _, fl := range f.WireFields(nt) {
		wt, err := f.wireTypeOf(fl.Type)
		if err != nil {
			return "", fmt.Errorf("field %q: %v", fl.Name, err)
		}
		b.addf("case %d:", fl.ThriftID)
		b.addf("if typ != %s {", wt)
		b.addf("return &wire.TypeMismatchError{Struct: %q, Field: %q, Want: %s, Got: typ}",
			nt.Name, fl.Name, wt)
		b.add("}")
		dst := "v" + strconv.Itoa(int(fl.ThriftID))
		if err := f.readValue(b, fl.Type, dst, nt.Name, fl.Name, 0); err != nil {
			return "", fmt.Errorf("field %q: %v", fl.Name, err)
		}
		wrapped, err := f.Wrapped(fl)
		if err != nil {
			return "", err
		}
		if wrapped {
			b.addf("s.%s = &%s", exportName(fl.Name), dst)
		} else {
			b.addf("s.%s = %s", exportName(fl.Name), dst)
		}
		if fl.Required && !fl.HasDefault() {
			b.addf("seen%s = true", exportName(fl.Name))
		}
	}
	b.add("default:")
	b.add("if err := r.Skip(typ); err != nil {")
	b.add("return err")
	b.add("}")
	b.add("}")
	b.add("}")
	for _, fl := range required {
		b.addf("if !seen%s {", exportName(fl.Name))
		b.addf("return &wire.MissingFieldError{Struct: %q, Field: %q, ID: %d}",
			nt.Name, fl.Name, fl.ThriftID)
		b.add("}")
	}
	b.add("return nil")
	return b.b.String(), nil
}

// readValue emits statements declaring dst with one decoded value of
// type t.
func (f *goFile) readValue(b *srcBuf, t *ir.Type, dst, structName, fieldName string, depth int) error {
	switch t.Kind {
	case ir.KindPrimitive:
		var call string
		switch t.Primitive {
		case ir.Bool:
			call = "ReadBool"
		case ir.I64:
			call = "ReadI64"
		case ir.Double:
			call = "ReadDouble"
		case ir.PStr, ir.PPath, ir.PTarget:
			call = "ReadString"
		default:
			return fmt.Errorf("unknown primitive %q", t.Primitive)
		}
		b.addf("%s, err := r.%s()", dst, call)
		b.add("if err != nil {")
		b.add("return err")
		b.add("}")
		return nil
	case ir.KindRef:
		rt := f.resolve(t.Name)
		if rt != nil && rt.Kind == ir.KindEnum {
			b.addf("%sRaw, err := r.ReadString()", dst)
			b.add("if err != nil {")
			b.add("return err")
			b.add("}")
			b.addf("%s := %s(%sRaw)", dst, exportName(t.Name), dst)
			b.addf("if err := %s.Validate(); err != nil {", dst)
			b.add("return err")
			b.add("}")
			return nil
		}
		fallthrough
	case ir.KindForeign:
		b.addf("%s := new(%s)", dst, exportName(t.Name))
		b.addf("if err := %s.Decode(r); err != nil {", dst)
		b.add("return err")
		b.add("}")
		return nil
	case ir.KindList:
		elem, err := f.wireTypeOf(t.Item)
		if err != nil {
			return err
		}
		itemGo, err := f.GoType(t.Item)
		if err != nil {
			return err
		}
		ev := fmt.Sprintf("elem%d%s", depth, dst)
		nv := fmt.Sprintf("n%d%s", depth, dst)
		iv := fmt.Sprintf("i%d%s", depth, dst)
		b.addf("%s, %s, err := r.ReadListBegin()", ev, nv)
		b.add("if err != nil {")
		b.add("return err")
		b.add("}")
		b.addf("if %s != %s {", ev, elem)
		b.addf("return &wire.TypeMismatchError{Struct: %q, Field: %q, Want: %s, Got: %s}",
			structName, fieldName, elem, ev)
		b.add("}")
		b.addf("%s := make([]%s, 0, %s)", dst, itemGo, nv)
		b.addf("for %s := 0; %s < %s; %s++ {", iv, iv, nv, iv)
		inner := dst + "e"
		if err := f.readValue(b, t.Item, inner, structName, fieldName, depth+1); err != nil {
			return err
		}
		b.addf("%s = append(%s, %s)", dst, dst, inner)
		b.add("}")
		return nil
	case ir.KindMap:
		kt, err := f.wireTypeOf(t.Key)
		if err != nil {
			return err
		}
		vt, err := f.wireTypeOf(t.Value)
		if err != nil {
			return err
		}
		keyGo, err := f.GoType(t.Key)
		if err != nil {
			return err
		}
		valGo, err := f.GoType(t.Value)
		if err != nil {
			return err
		}
		kv := fmt.Sprintf("key%d%s", depth, dst)
		vv := fmt.Sprintf("val%d%s", depth, dst)
		nv := fmt.Sprintf("n%d%s", depth, dst)
		iv := fmt.Sprintf("i%d%s", depth, dst)
		b.addf("%s, %s, %s, err := r.ReadMapBegin()", kv, vv, nv)
		b.add("if err != nil {")
		b.add("return err")
		b.add("}")
		b.addf("if %s != %s {", kv, kt)
		b.addf("return &wire.TypeMismatchError{Struct: %q, Field: %q, Want: %s, Got: %s}",
			structName, fieldName, kt, kv)
		b.add("}")
		b.addf("if %s != %s {", vv, vt)
		b.addf("return &wire.TypeMismatchError{Struct: %q, Field: %q, Want: %s, Got: %s}",
			structName, fieldName, vt, vv)
		b.add("}")
		b.addf("%s := make(map[%s]%s, %s)", dst, keyGo, valGo, nv)
		b.addf("for %s := 0; %s < %s; %s++ {", iv, iv, nv, iv)
		innerK, innerV := dst+"k", dst+"v"
		if err := f.readValue(b, t.Key, innerK, structName, fieldName, depth+1); err != nil {
			return err
		}
		if err := f.readValue(b, t.Value, innerV, structName, fieldName, depth+1); err != nil {
			return err
		}
		b.addf("%s[%s] = %s", dst, innerK, innerV)
		b.add("}")
		return nil
	}
	return fmt.Errorf("%s type has no wire encoding", t.Kind)
}

// exportName maps a snake_case IR name to an exported Go identifier.
func exportName(name string) string {
	var b strings.Builder
	up := true
	for _, r := range name {
		if r == '_' || r == '-' || r == '.' {
			up = true
			continue
		}
		if b.Len() == 0 && unicode.IsDigit(r) {
			b.WriteByte('X')
		}
		if up {
			b.WriteRune(unicode.ToUpper(r))
			up = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// packageName lowercases name to a legal Go package identifier.
func packageName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if b.Len() == 0 && unicode.IsDigit(r) {
				b.WriteByte('x')
			}
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "shapes"
	}
	return b.String()
}
