package shape

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestToPlainFailOnTarget(t *testing.T) {
	s := MustNew(Name("dep"), F("src", TargetRef))
	inst := MustNewInstance(s, map[string]any{"src": "//some/project:lib"})

	_, err := ToPlain(inst, PolicyFailOnTarget)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrSerialize) {
		t.Errorf("expected ErrSerialize, got %v", err)
	}
	if !strings.Contains(err.Error(), "cannot safely be serialized") {
		t.Errorf("got %v", err)
	}
	if !strings.Contains(err.Error(), `field "src"`) {
		t.Errorf("error %v should name the field", err)
	}
}

func TestToPlainResolveTarget(t *testing.T) {
	s := MustNew(Name("dep"), F("src", TargetRef))
	inst := MustNewInstance(s, map[string]any{"src": "//some/project:lib"})

	out, err := ToPlain(inst, PolicyResolveTarget)
	if err != nil {
		t.Fatalf("ToPlain: %v", err)
	}
	want := map[string]any{
		"src": map[string]any{
			"name": "//some/project:lib",
			"path": "$(location //some/project:lib)",
		},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("ToPlain mismatch (-want +got):\n%s", diff)
	}
}

func TestToPlainNestedTargetStillFails(t *testing.T) {
	inner := MustNew(Name("inner"), F("src", TargetRef))
	outer := MustNew(Name("outer"), F("deps", ListOf(inner)))
	in := MustNewInstance(inner, map[string]any{"src": ":lib"})
	out := MustNewInstance(outer, map[string]any{"deps": []any{in}})

	if _, err := ToPlain(out, PolicyFailOnTarget); err == nil {
		t.Error("targets must fail at any nesting depth")
	}
	if _, err := ToPlain(out, PolicyResolveTarget); err != nil {
		t.Errorf("resolve policy: %v", err)
	}
}

func TestToJSONDeterministic(t *testing.T) {
	s := MustNew(
		Name("task"),
		F("zeta", Int),
		F("alpha", Int),
		F("dict", DictOf(String, Int)),
	)
	inst := MustNewInstance(s, map[string]any{
		"zeta":  1,
		"alpha": 2,
		"dict":  map[string]any{"b": 2, "a": 1},
	})
	got, err := ToJSON(inst, PolicyFailOnTarget)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	// Fields in declaration order, dict keys sorted.
	want := `{"zeta":1,"alpha":2,"dict":{"a":1,"b":2}}`
	if string(got) != want {
		t.Errorf("ToJSON = %s, want %s", got, want)
	}
}

func TestSerializeUnionFirstMatch(t *testing.T) {
	s := MustNew(Name("v"), F("x", UnionOf(Int, String)))

	// "5" is a string, not an int: the str branch serializes it.
	inst := MustNewInstance(s, map[string]any{"x": "5"})
	got, err := ToJSON(inst, PolicyFailOnTarget)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if want := `{"x":"5"}`; string(got) != want {
		t.Errorf("ToJSON = %s, want %s", got, want)
	}

	inst = MustNewInstance(s, map[string]any{"x": 5})
	got, err = ToJSON(inst, PolicyFailOnTarget)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if want := `{"x":5}`; string(got) != want {
		t.Errorf("ToJSON = %s, want %s", got, want)
	}
}

func TestAsDictShallow(t *testing.T) {
	person := MustNew(Name("person"), F("name", String))
	greet := MustNew(Name("greet"), F("to", person))
	ada := MustNewInstance(person, map[string]any{"name": "ada"})
	inst := MustNewInstance(greet, map[string]any{"to": ada})

	d := AsDict(inst)
	if !IsInstance(d["to"], person) {
		t.Errorf("AsDict should keep nested instances, got %T", d["to"])
	}
}

func TestValueToJSONCanonicalDefaults(t *testing.T) {
	got, err := ValueToJSON([]any{3, 1, 2}, ListOf(Int), PolicyFailOnTarget)
	if err != nil {
		t.Fatalf("ValueToJSON: %v", err)
	}
	if want := `[3,1,2]`; string(got) != want {
		t.Errorf("ValueToJSON = %s, want %s", got, want)
	}
	if _, err := ValueToJSON(":lib", TargetRef, PolicyFailOnTarget); err == nil {
		t.Error("target defaults must not serialize under the fail policy")
	}
}

func TestZeroFieldShape(t *testing.T) {
	empty := MustNew(Name("empty"))
	inst, err := NewInstance(empty, nil)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	plain, err := ToPlain(inst, PolicyFailOnTarget)
	if err != nil || len(plain) != 0 {
		t.Errorf("ToPlain = %v, %v", plain, err)
	}
	js, err := ToJSON(inst, PolicyFailOnTarget)
	if err != nil || string(js) != "{}" {
		t.Errorf("ToJSON = %s, %v", js, err)
	}
}

func TestEmptyListSerializes(t *testing.T) {
	if err := Check([]any{}, ListOf(Int)); err != nil {
		t.Errorf("empty list should validate: %v", err)
	}
	s := MustNew(Name("box"), F("xs", ListOf(Int)))
	inst := MustNewInstance(s, map[string]any{"xs": []any{}})
	js, err := ToJSON(inst, PolicyFailOnTarget)
	if err != nil || string(js) != `{"xs":[]}` {
		t.Errorf("ToJSON = %s, %v", js, err)
	}
	plain, err := ToPlain(inst, PolicyFailOnTarget)
	if err != nil {
		t.Fatal(err)
	}
	if xs := plain["xs"].([]any); len(xs) != 0 {
		t.Errorf("xs = %v", xs)
	}
}
