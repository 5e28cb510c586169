package shape

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Check validates v against t. A nil result means v conforms. The
// returned error wraps ErrCheck and names the offending value; for
// unions it aggregates every branch's failure reason.
//
// Unknown Type implementations are a programming error and panic.
func Check(v any, t Type) error {
	if err := check(v, t); err != nil {
		return fmt.Errorf("%w: %v", ErrCheck, err)
	}
	return nil
}

func check(v any, t Type) error {
	switch ty := t.(type) {
	case Primitive:
		return checkPrimitive(v, ty)
	case pathType:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected path, got %v", formatValue(v))
		}
		return nil
	case targetType:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected target, got %v", formatValue(v))
		}
		return checkTargetSyntax(s)
	case ForeignRef:
		// The definition lives in another module; only that module's
		// generated code can validate values.
		return fmt.Errorf("cannot check a value against foreign type %s here", ty)
	case *Alias:
		return check(v, ty.T)
	case *Shape:
		inst, ok := v.(*Instance)
		if !ok || inst.shape != ty {
			return fmt.Errorf("%v is not an instance of %s", formatValue(v), ty)
		}
		// The instance was validated by NewInstance; its fields are
		// trusted and not re-walked here.
		return nil
	case ListType:
		rv := reflect.ValueOf(v)
		if v == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return fmt.Errorf("expected %s, got %v", ty, formatValue(v))
		}
		for i := 0; i < rv.Len(); i++ {
			if err := check(rv.Index(i).Interface(), ty.Item); err != nil {
				return fmt.Errorf("index %d: %v", i, err)
			}
		}
		return nil
	case DictType:
		rv := reflect.ValueOf(v)
		if v == nil || rv.Kind() != reflect.Map {
			return fmt.Errorf("expected %s, got %v", ty, formatValue(v))
		}
		for _, key := range sortedMapKeys(rv) {
			if err := check(key.Interface(), ty.Key); err != nil {
				return fmt.Errorf("key %v: %v", formatValue(key.Interface()), err)
			}
			if err := check(rv.MapIndex(key).Interface(), ty.Value); err != nil {
				return fmt.Errorf("value for key %v: %v", formatValue(key.Interface()), err)
			}
		}
		return nil
	case UnionType:
		// Ordered linear scan with early exit. The declared order is
		// the tie-break rule for values matching several branches.
		var reasons []string
		for _, alt := range ty.Alts {
			err := check(v, alt)
			if err == nil {
				return nil
			}
			reasons = append(reasons, err.Error())
		}
		return fmt.Errorf("%v not matched in %s: %s",
			formatValue(v), ty, strings.Join(reasons, "; "))
	case EnumType:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected %s, got %v", ty, formatValue(v))
		}
		for _, want := range ty.Values {
			if s == want {
				return nil
			}
		}
		return fmt.Errorf("%v is not one of %s", formatValue(v), ty)
	}
	panic(fmt.Sprintf("shape: unknown type %T", t))
}

func checkPrimitive(v any, p Primitive) error {
	switch p {
	case Bool:
		if _, ok := v.(bool); ok {
			return nil
		}
	case Int:
		if isInt(v) {
			return nil
		}
	case Float:
		// Ints widen to float.
		if isInt(v) || isFloat(v) {
			return nil
		}
	case String:
		if _, ok := v.(string); ok {
			return nil
		}
	}
	return fmt.Errorf("expected %s, got %v", p, formatValue(v))
}

func isInt(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64:
		return true
	}
	return false
}

func isFloat(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

// checkTargetSyntax validates the syntactic form of a target
// reference: exactly one ':' separator, at most one '//' scheme
// marker, and either a local reference (":name") or an absolute one
// ("cell//pkg/path:name", with an optional '@' cell prefix).
func checkTargetSyntax(s string) error {
	switch n := strings.Count(s, ":"); {
	case n == 0:
		return fmt.Errorf("invalid target %q: missing ':' separator", s)
	case n > 1:
		return fmt.Errorf("invalid target %q: more than one ':' separator", s)
	}
	if strings.Count(s, "//") > 1 {
		return fmt.Errorf("invalid target %q: too many '//' scheme markers", s)
	}
	if strings.HasPrefix(s, ":") {
		return nil
	}
	pkg := s[:strings.Index(s, ":")]
	if !strings.Contains(pkg, "//") {
		return fmt.Errorf("invalid target %q: must start with ':' or contain '//' before the ':'", s)
	}
	return nil
}

// formatValue renders a value for an error message. Strings are
// quoted so that empty or whitespace values stay visible.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", x)
	case *Instance:
		return x.String()
	}
	return fmt.Sprintf("%v", v)
}

// sortedMapKeys returns rv's keys in a deterministic order so that
// the first reported failure is stable across runs.
func sortedMapKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	return keys
}
