package shape

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Policy governs how TargetRef leaves are handled during
// serialization. It is passed by value through the whole recursive
// transform; there is no ambient serialization state.
type Policy int

const (
	// PolicyFailOnTarget makes serialization fail on any reachable
	// TargetRef, at any nesting depth. Target-carrying data cannot be
	// safely cached: the target's output path is only known to the
	// build host at build time.
	PolicyFailOnTarget Policy = iota

	// PolicyResolveTarget serializes a TargetRef as
	//
	//	{"name": <target>, "path": "$(location <target>)"}
	//
	// deferring path resolution to the build host. The placeholder is
	// deliberately not a literal filesystem path, which keeps the
	// serialized form cache-correct.
	PolicyResolveTarget
)

func (p Policy) String() string {
	switch p {
	case PolicyFailOnTarget:
		return "fail"
	case PolicyResolveTarget:
		return "resolve"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ToPlain converts inst to a plain JSON-compatible value: shapes
// become map[string]any, lists []any, dicts map[string]any with
// stringified keys. Fields are visited in declaration order, so the
// first error for a given instance is deterministic.
func ToPlain(inst *Instance, policy Policy) (map[string]any, error) {
	out := make(map[string]any, len(inst.shape.fields))
	for i, nf := range inst.shape.fields {
		v := inst.values[i]
		if v == nil {
			out[nf.name] = nil
			continue
		}
		pv, err := toPlainValue(v, nf.field.Type, policy)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", nf.name, err)
		}
		out[nf.name] = pv
	}
	return out, nil
}

// AsDict returns a shallow map of inst's field values, in no
// particular serialized form. Nested instances stay instances.
func AsDict(inst *Instance) map[string]any {
	out := make(map[string]any, len(inst.shape.fields))
	for i, nf := range inst.shape.fields {
		out[nf.name] = inst.values[i]
	}
	return out
}

func toPlainValue(v any, t Type, policy Policy) (any, error) {
	switch ty := t.(type) {
	case Primitive, pathType, EnumType:
		return v, nil
	case targetType:
		target := v.(string)
		if policy == PolicyFailOnTarget {
			return nil, fmt.Errorf("%w: target %q cannot safely be serialized: "+
				"its build-time path is unknown here; pass it through a "+
				"build-time indirection (resolve policy) instead of caching it",
				ErrSerialize, target)
		}
		return map[string]any{
			"name": target,
			"path": "$(location " + target + ")",
		}, nil
	case *Shape:
		return ToPlain(v.(*Instance), policy)
	case ListType:
		rv := reflect.ValueOf(v)
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			pv, err := toPlainValue(rv.Index(i).Interface(), ty.Item, policy)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = pv
		}
		return out, nil
	case DictType:
		rv := reflect.ValueOf(v)
		out := make(map[string]any, rv.Len())
		for _, key := range sortedMapKeys(rv) {
			pv, err := toPlainValue(rv.MapIndex(key).Interface(), ty.Value, policy)
			if err != nil {
				return nil, fmt.Errorf("key %v: %w", formatValue(key.Interface()), err)
			}
			out[fmt.Sprint(key.Interface())] = pv
		}
		return out, nil
	case *Alias:
		return toPlainValue(v, ty.T, policy)
	case ForeignRef:
		return nil, fmt.Errorf("%w: cannot serialize a value of foreign type %s here", ErrSerialize, ty)
	case UnionType:
		// Same first-match rule as Check: the lowest-indexed matching
		// branch picks the serializer.
		for _, alt := range ty.Alts {
			if check(v, alt) == nil {
				return toPlainValue(v, alt, policy)
			}
		}
		return nil, fmt.Errorf("%w: %v does not match %s", ErrSerialize, formatValue(v), ty)
	}
	panic(fmt.Sprintf("shape: unknown type %T", t))
}

// ToJSON serializes inst to JSON with shape fields emitted in
// declaration order and dict keys sorted, so output is reproducible
// byte for byte.
func ToJSON(inst *Instance, policy Policy) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSONValue(&buf, inst, inst.shape, policy); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ValueToJSON is ToJSON generalized to any value/type pair. The IR
// extractor uses it to render canonical default literals.
func ValueToJSON(v any, t Type, policy Policy) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSONValue(&buf, v, t, policy); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSONValue(buf *bytes.Buffer, v any, t Type, policy Policy) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}
	switch ty := t.(type) {
	case Primitive, pathType, EnumType:
		return writeJSONScalar(buf, v)
	case targetType:
		pv, err := toPlainValue(v, t, policy)
		if err != nil {
			return err
		}
		resolved := pv.(map[string]any)
		buf.WriteString(`{"name":`)
		if err := writeJSONScalar(buf, resolved["name"]); err != nil {
			return err
		}
		buf.WriteString(`,"path":`)
		if err := writeJSONScalar(buf, resolved["path"]); err != nil {
			return err
		}
		buf.WriteByte('}')
		return nil
	case *Shape:
		inst := v.(*Instance)
		buf.WriteByte('{')
		for i, nf := range inst.shape.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONScalar(buf, nf.name); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeJSONValue(buf, inst.values[i], nf.field.Type, policy); err != nil {
				return fmt.Errorf("field %q: %w", nf.name, err)
			}
		}
		buf.WriteByte('}')
		return nil
	case ListType:
		rv := reflect.ValueOf(v)
		buf.WriteByte('[')
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONValue(buf, rv.Index(i).Interface(), ty.Item, policy); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	case DictType:
		rv := reflect.ValueOf(v)
		buf.WriteByte('{')
		for i, key := range sortedMapKeys(rv) {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONScalar(buf, fmt.Sprint(key.Interface())); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeJSONValue(buf, rv.MapIndex(key).Interface(), ty.Value, policy); err != nil {
				return fmt.Errorf("key %v: %w", formatValue(key.Interface()), err)
			}
		}
		buf.WriteByte('}')
		return nil
	case *Alias:
		return writeJSONValue(buf, v, ty.T, policy)
	case ForeignRef:
		return fmt.Errorf("%w: cannot serialize a value of foreign type %s here", ErrSerialize, ty)
	case UnionType:
		for _, alt := range ty.Alts {
			if check(v, alt) == nil {
				return writeJSONValue(buf, v, alt, policy)
			}
		}
		return fmt.Errorf("%w: %v does not match %s", ErrSerialize, formatValue(v), ty)
	}
	panic(fmt.Sprintf("shape: unknown type %T", t))
}

func writeJSONScalar(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
