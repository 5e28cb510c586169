// Package shape implements a small structural type system for
// build-configuration records.
//
// A Shape is an ordered record type: named fields, each with a type,
// optionality and an optional default value. Shapes are declared with
// the constructor surface in this package:
//
//	person, err := shape.New(
//	    shape.Name("Person"),
//	    shape.F("first_name", shape.String),
//	    shape.F("last_name", shape.String, shape.Optional()),
//	)
//
//	greet, err := shape.New(
//	    shape.Name("Greet"),
//	    shape.F("greeting", shape.EnumOf("hello", "good-day"), shape.Default("hello")),
//	    shape.F("to", person),
//	    shape.Thrift(map[string]int16{"greeting": 1, "to": 2}),
//	)
//
// Values conforming to a Shape are represented by Instance. An
// Instance can only be produced by NewInstance, which fills defaults
// and validates every field with Check. There is no implicit
// promotion of maps into shape-typed values: a nested shape field
// only accepts an Instance of exactly that shape.
//
// Check(v, t) validates an arbitrary value against a type and is pure;
// ToPlain converts an Instance to a plain JSON-compatible value under
// an explicit target-reference Policy.
//
// # Types
//
// The type language is a closed set:
//
//   - Primitive: Bool, Int, Float, String
//   - Path: a string-shaped filesystem path (syntactic only)
//   - TargetRef: an opaque build-target reference (see Check for the
//     accepted syntax)
//   - *Shape: a nested record
//   - ListOf(item), DictOf(key, value): homogeneous collections
//   - UnionOf(t1, t2, ...): ordered alternatives, first match wins
//   - EnumOf("a", "b", ...): closed string sets
//
// Types are immutable once constructed and form a DAG: a shape cannot
// directly or indirectly contain itself.
package shape
