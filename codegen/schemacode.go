package codegen

import (
	"encoding/json"
	"fmt"

	"github.com/shape-lang/go-shape/ir"
)

// schemaFile is the template context of the jsonschema backend. The
// whole document is built programmatically and marshaled; the
// template only frames it. Marshaling map keys sorts them, so output
// is deterministic.
type schemaFile struct {
	Module *ir.Module
}

func schemaContext(mod *ir.Module, opts Options) (any, error) {
	return &schemaFile{Module: mod}, nil
}

// SchemaJSON renders the module as one JSON Schema document with a
// $defs entry per type.
func (f *schemaFile) SchemaJSON() (string, error) {
	defs := map[string]any{}
	for _, nt := range f.Module.Types {
		s, err := f.typeSchema(nt.Type)
		if err != nil {
			return "", fmt.Errorf("type %q: %v", nt.Name, err)
		}
		defs[nt.Name] = s
	}
	doc := map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"$id":     string(f.Module.Target),
		"title":   f.Module.Name,
		"$defs":   defs,
	}
	if f.Module.Docstring != "" {
		doc["description"] = f.Module.Docstring
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (f *schemaFile) typeSchema(t *ir.Type) (any, error) {
	switch t.Kind {
	case ir.KindPrimitive:
		switch t.Primitive {
		case ir.Bool:
			return map[string]any{"type": "boolean"}, nil
		case ir.I64:
			return map[string]any{"type": "integer"}, nil
		case ir.Double:
			return map[string]any{"type": "number"}, nil
		case ir.PStr, ir.PPath, ir.PTarget:
			return map[string]any{"type": "string"}, nil
		}
		return nil, fmt.Errorf("unknown primitive %q", t.Primitive)
	case ir.KindList:
		item, err := f.typeSchema(t.Item)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "array", "items": item}, nil
	case ir.KindMap:
		value, err := f.typeSchema(t.Value)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "object", "additionalProperties": value}, nil
	case ir.KindStruct:
		props := map[string]any{}
		var required []string
		for _, fl := range t.Fields {
			fs, err := f.typeSchema(fl.Type)
			if err != nil {
				return nil, fmt.Errorf("field %q: %v", fl.Name, err)
			}
			if fl.HasDefault() {
				var dflt any
				if err := json.Unmarshal(fl.Default, &dflt); err != nil {
					return nil, fmt.Errorf("field %q: bad default: %v", fl.Name, err)
				}
				if m, ok := fs.(map[string]any); ok {
					m["default"] = dflt
				}
			}
			props[fl.Name] = fs
			if fl.Required && !fl.HasDefault() {
				required = append(required, fl.Name)
			}
		}
		s := map[string]any{
			"type":                 "object",
			"properties":           props,
			"additionalProperties": false,
		}
		if len(required) > 0 {
			s["required"] = required
		}
		return s, nil
	case ir.KindUnion:
		alts := make([]any, len(t.Alts))
		for i, at := range t.Alts {
			as, err := f.typeSchema(at)
			if err != nil {
				return nil, err
			}
			alts[i] = as
		}
		return map[string]any{"anyOf": alts}, nil
	case ir.KindEnum:
		return map[string]any{"type": "string", "enum": t.Options}, nil
	case ir.KindRef:
		return map[string]any{"$ref": "#/$defs/" + t.Name}, nil
	case ir.KindForeign:
		return map[string]any{"$ref": string(t.Target) + "#/$defs/" + t.Name}, nil
	}
	return nil, fmt.Errorf("unknown kind %q", t.Kind)
}
