package shape

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckPrimitives(t *testing.T) {
	tests := []struct {
		v  any
		ty Type
		ok bool
	}{
		{true, Bool, true},
		{1, Bool, false},
		{1, Int, true},
		{int64(5), Int, true},
		{1.5, Int, false},
		{"1", Int, false},
		{1, Float, true},
		{1.5, Float, true},
		{"x", String, true},
		{nil, String, false},
		{"some/path", Path, true},
		{5, Path, false},
	}
	for _, tt := range tests {
		err := Check(tt.v, tt.ty)
		if tt.ok && err != nil {
			t.Errorf("Check(%v, %s): unexpected error %v", tt.v, tt.ty, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("Check(%v, %s): expected error", tt.v, tt.ty)
		}
	}
}

func TestCheckWrapsErrCheck(t *testing.T) {
	err := Check("x", Int)
	if !errors.Is(err, ErrCheck) {
		t.Errorf("expected ErrCheck, got %v", err)
	}
}

func TestCheckTargetSyntax(t *testing.T) {
	ok := []string{
		":foo",
		"//some/project:foo",
		"cell//some/project:foo",
		"@cell//some/project:foo",
	}
	for _, s := range ok {
		if err := Check(s, TargetRef); err != nil {
			t.Errorf("Check(%q, target): unexpected error %v", s, err)
		}
	}
	bad := map[string]string{
		"foo":           "missing ':' separator",
		"a:b:c":         "more than one ':' separator",
		"//a//b:c":      "too many '//' scheme markers",
		"some/project:foo": "must start with ':'",
	}
	for s, want := range bad {
		err := Check(s, TargetRef)
		if err == nil {
			t.Errorf("Check(%q, target): expected error", s)
			continue
		}
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Check(%q, target) = %v, want %q in message", s, err, want)
		}
	}
}

func TestCheckList(t *testing.T) {
	ty := ListOf(Int)
	if err := Check([]any{1, 2, 3}, ty); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := Check([]any{1, "two"}, ty)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "index 1") {
		t.Errorf("error %v should name index 1", err)
	}
	if err := Check("nope", ty); err == nil {
		t.Error("expected error for non-list value")
	}
}

func TestCheckDict(t *testing.T) {
	ty := DictOf(String, Int)
	if err := Check(map[string]any{"a": 1}, ty); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := Check(map[string]any{"a": 1, "b": "x"}, ty)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), `value for key "b"`) {
		t.Errorf("error %v should name key b", err)
	}
}

func TestCheckUnionAggregatesReasons(t *testing.T) {
	ty := UnionOf(Bool, Int)
	if err := Check(7, ty); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := Check("foo", ty)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{
		`"foo" not matched in union(bool, int)`,
		`expected bool, got "foo"`,
		`expected int, got "foo"`,
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q should contain %q", msg, want)
		}
	}
}

func TestCheckUnionFirstMatchOrder(t *testing.T) {
	// int widens to float; the int branch must win for ints anyway
	// since matching scans in declared order.
	ty := UnionOf(Int, Float)
	if err := Check(3, ty); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Check(3.5, ty); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCheckEnum(t *testing.T) {
	ty := EnumOf("a", "b")
	if err := Check("a", ty); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := Check("c", ty)
	if err == nil || !strings.Contains(err.Error(), "is not one of") {
		t.Errorf("unexpected error %v", err)
	}
	if err := Check(1, ty); err == nil {
		t.Error("expected error for non-string enum value")
	}
}

func TestCheckInstance(t *testing.T) {
	s := MustNew(Name("person"), F("name", String))
	other := MustNew(Name("person"), F("name", String))
	inst := MustNewInstance(s, map[string]any{"name": "ada"})

	if err := Check(inst, s); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := Check(inst, other)
	if err == nil || !strings.Contains(err.Error(), "is not an instance of") {
		t.Errorf("structurally equal but distinct shapes must not match, got %v", err)
	}
	err = Check(map[string]any{"name": "ada"}, s)
	if err == nil {
		t.Error("plain maps must not be promoted to instances")
	}
}

func TestCheckForeign(t *testing.T) {
	ty := Foreign("//dep:defs.shape", "person")
	if err := Check(map[string]any{}, ty); err == nil {
		t.Error("foreign types must not be checkable locally")
	}
}
