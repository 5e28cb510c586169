package shape

import (
	"errors"
	"strings"
	"testing"
)

func TestNewValidatesFieldNames(t *testing.T) {
	if _, err := New(F("", String)); err == nil {
		t.Error("empty field name must fail")
	}
	_, err := New(F("__hidden", String))
	if err == nil || !strings.Contains(err.Error(), "must not start with __") {
		t.Errorf("reserved prefix: got %v", err)
	}
	if _, err := New(F("a", String), F("a", Int)); err == nil {
		t.Error("duplicate field must fail")
	}
	if _, err := New(F("a", nil)); err == nil {
		t.Error("nil field type must fail")
	}
}

func TestNewValidatesTypes(t *testing.T) {
	if _, err := New(F("u", UnionOf(Int))); err == nil {
		t.Error("single-alternative union must fail")
	}
	if _, err := New(F("e", EnumOf())); err == nil {
		t.Error("empty enum must fail")
	}
	if _, err := New(F("e", EnumOf("a", "a"))); err == nil {
		t.Error("duplicate enum value must fail")
	}
}

func TestNewValidatesDefaults(t *testing.T) {
	_, err := New(F("n", Int, Default("five")))
	if err == nil || !errors.Is(err, ErrDecl) {
		t.Errorf("mistyped default: got %v", err)
	}
	if _, err := New(F("n", Int, Default(nil))); err == nil {
		t.Error("nil default on required field must fail")
	}
	if _, err := New(F("n", Int, Optional(), Default(nil))); err != nil {
		t.Errorf("nil default on optional field: %v", err)
	}
}

func TestOptionalImplicitNilDefault(t *testing.T) {
	s := MustNew(F("n", Int, Optional()))
	f, ok := s.FieldByName("n")
	if !ok {
		t.Fatal("field n missing")
	}
	if !f.HasDefault || f.Default != nil {
		t.Errorf("optional field should default to nil, got HasDefault=%v Default=%v", f.HasDefault, f.Default)
	}
}

func TestFieldOrderIsDeclarationOrder(t *testing.T) {
	s := MustNew(F("z", Int), F("a", Int), F("m", Int))
	got := s.FieldNames()
	want := []string{"z", "a", "m"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("FieldNames() = %v, want %v", got, want)
		}
	}
}

func TestShapeString(t *testing.T) {
	anon := MustNew(F("a", Int), F("b", ListOf(String)))
	if got, want := anon.String(), "shape(a=int, b=list(str))"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	named := MustNew(Name("task"), F("a", Int))
	if got := named.String(); got != "task" {
		t.Errorf("String() = %q, want task", got)
	}
}

func TestThriftDeclaration(t *testing.T) {
	s := MustNew(
		Name("task"),
		F("name", String),
		F("count", Int, Default(0)),
		Thrift(map[string]int16{"name": 1, "count": 2}),
	)
	if !s.HasThrift() {
		t.Fatal("HasThrift() = false")
	}
	if got := s.ThriftID("count"); got != 2 {
		t.Errorf("ThriftID(count) = %d, want 2", got)
	}
	names := s.ThriftNames()
	if len(names) != 2 || names[0] != "count" || names[1] != "name" {
		t.Errorf("ThriftNames() = %v", names)
	}
	plain := MustNew(F("a", Int))
	if plain.HasThrift() {
		t.Error("shape without Thrift option must not report wire support")
	}
}

func TestMustNewPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustNew should panic on declaration errors")
		}
	}()
	MustNew(F("a", String), F("a", String))
}
