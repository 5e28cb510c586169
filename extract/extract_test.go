package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/shape-lang/go-shape/ir"
	"github.com/shape-lang/go-shape/shape"
)

const target = ir.Target("//some/project:defs.shape")

func TestModuleBasic(t *testing.T) {
	task := shape.MustNew(
		shape.Name("task"),
		shape.F("name", shape.String),
		shape.F("count", shape.Int, shape.Default(0)),
		shape.F("tags", shape.ListOf(shape.String), shape.Optional()),
	)
	mod, err := Module("defs", target, []*shape.Shape{task})
	if err != nil {
		t.Fatalf("Module: %v", err)
	}
	tt := mod.GetType("task")
	if tt == nil || tt.Kind != ir.KindStruct {
		t.Fatalf("task type = %+v", tt)
	}
	if got := tt.Fields[0].Name; got != "name" {
		t.Errorf("first field = %q, field order must be declaration order", got)
	}
	count := tt.Fields[1]
	if count.Required != true || string(count.Default) != "0" {
		t.Errorf("count = %+v", count)
	}
	tags := tt.Fields[2]
	if tags.Required {
		t.Error("optional field extracted as required")
	}
	if tags.Type.Kind != ir.KindList || tags.Type.Item.Primitive != ir.PStr {
		t.Errorf("tags type = %+v", tags.Type)
	}
}

func TestModuleHoistsNestedTypes(t *testing.T) {
	task := shape.MustNew(
		shape.Name("task"),
		shape.F("status", shape.EnumOf("todo", "done")),
		shape.F("owner", shape.MustNew(shape.F("name", shape.String))),
	)
	mod, err := Module("defs", target, []*shape.Shape{task})
	if err != nil {
		t.Fatalf("Module: %v", err)
	}
	if mod.GetType("task_status") == nil {
		t.Error("nested enum should hoist as task_status")
	}
	if mod.GetType("task_owner") == nil {
		t.Error("anonymous nested shape should hoist as task_owner")
	}
	st := mod.GetType("task").Fields[0].Type
	if st.Kind != ir.KindRef || st.Name != "task_status" {
		t.Errorf("status field = %+v, want ref", st)
	}
}

func TestModuleDedupsSharedShapes(t *testing.T) {
	person := shape.MustNew(shape.Name("person"), shape.F("name", shape.String))
	a := shape.MustNew(shape.Name("a"), shape.F("p", person))
	b := shape.MustNew(shape.Name("b"), shape.F("p", person))
	mod, err := Module("defs", target, []*shape.Shape{a, b})
	if err != nil {
		t.Fatalf("Module: %v", err)
	}
	if len(mod.Types) != 3 {
		names := make([]string, len(mod.Types))
		for i, nt := range mod.Types {
			names[i] = nt.Name
		}
		t.Errorf("shared shape should extract once, got %v", names)
	}
}

func TestModuleNameCollision(t *testing.T) {
	a := shape.MustNew(shape.Name("x"), shape.F("n", shape.Int))
	b := shape.MustNew(shape.Name("x"), shape.F("n", shape.Int))
	_, err := Module("defs", target, []*shape.Shape{a, b})
	if err == nil || !strings.Contains(err.Error(), `"x" declared twice`) {
		t.Errorf("got %v", err)
	}
}

func TestModuleRequiresNamedRoots(t *testing.T) {
	anon := shape.MustNew(shape.F("n", shape.Int))
	_, err := Module("defs", target, []*shape.Shape{anon})
	if err == nil || !strings.Contains(err.Error(), "must be named") {
		t.Errorf("got %v", err)
	}
}

func TestThriftCover(t *testing.T) {
	missing := shape.MustNew(
		shape.Name("task"),
		shape.F("name", shape.String),
		shape.F("count", shape.Int),
		shape.Thrift(map[string]int16{"name": 1}),
	)
	_, err := Module("defs", target, []*shape.Shape{missing})
	if err == nil || !strings.Contains(err.Error(), `field "count" has no thrift id`) {
		t.Errorf("got %v", err)
	}

	extra := shape.MustNew(
		shape.Name("task"),
		shape.F("name", shape.String),
		shape.Thrift(map[string]int16{"name": 1, "ghost": 2}),
	)
	_, err = Module("defs", target, []*shape.Shape{extra})
	if err == nil || !strings.Contains(err.Error(), `unknown field "ghost"`) {
		t.Errorf("got %v", err)
	}
}

func TestWireRejectsUnions(t *testing.T) {
	s := shape.MustNew(
		shape.Name("task"),
		shape.F("v", shape.UnionOf(shape.Int, shape.String)),
		shape.Thrift(map[string]int16{"v": 1}),
	)
	_, err := Module("defs", target, []*shape.Shape{s})
	if err == nil || !strings.Contains(err.Error(), "cannot be wire-serialized") {
		t.Errorf("got %v", err)
	}
}

func TestWireRequiresNestedThrift(t *testing.T) {
	inner := shape.MustNew(shape.Name("inner"), shape.F("n", shape.Int))
	outer := shape.MustNew(
		shape.Name("outer"),
		shape.F("in", inner),
		shape.Thrift(map[string]int16{"in": 1}),
	)
	_, err := Module("defs", target, []*shape.Shape{outer})
	if err == nil || !strings.Contains(err.Error(), "no thrift field ids") {
		t.Errorf("got %v", err)
	}
}

func TestRequireWire(t *testing.T) {
	plain := shape.MustNew(shape.Name("task"), shape.F("n", shape.Int))
	_, err := Module("defs", target, []*shape.Shape{plain}, RequireWire())
	if err == nil || !errors.Is(err, ErrExtract) {
		t.Errorf("got %v", err)
	}
}

func TestTargetDefaultIsDeclarationError(t *testing.T) {
	s := shape.MustNew(
		shape.Name("dep"),
		shape.F("src", shape.TargetRef, shape.Default(":lib")),
	)
	_, err := Module("defs", target, []*shape.Shape{s})
	if err == nil || !strings.Contains(err.Error(), "default for field") {
		t.Errorf("got %v", err)
	}
}

func TestDictKeyMustBeScalar(t *testing.T) {
	inner := shape.MustNew(shape.Name("inner"), shape.F("n", shape.Int))
	s := shape.MustNew(
		shape.Name("bad"),
		shape.F("m", shape.DictOf(inner, shape.Int)),
	)
	_, err := Module("defs", target, []*shape.Shape{s})
	if err == nil || !strings.Contains(err.Error(), "not scalar") {
		t.Errorf("got %v", err)
	}
}

func TestForeignResolution(t *testing.T) {
	dep := &ir.Module{
		Name:   "dep",
		Target: "//dep:defs.shape",
		Types: []*ir.NamedType{
			{Name: "person", Type: &ir.Type{Kind: ir.KindStruct, Name: "person", Fields: []*ir.Field{
				{Name: "name", Type: &ir.Type{Kind: ir.KindPrimitive, Primitive: ir.PStr}, Required: true},
			}}},
		},
	}
	s := shape.MustNew(
		shape.Name("greet"),
		shape.F("to", shape.Foreign("//dep:defs.shape", "person")),
	)
	if _, err := Module("defs", target, []*shape.Shape{s}, Deps(dep)); err != nil {
		t.Errorf("Module: %v", err)
	}
	if _, err := Module("defs", target, []*shape.Shape{s}); err == nil {
		t.Error("unresolvable foreign ref must fail without deps")
	}
	bad := shape.MustNew(
		shape.Name("greet"),
		shape.F("to", shape.Foreign("//dep:defs.shape", "nobody")),
	)
	_, err := Module("defs", target, []*shape.Shape{bad}, Deps(dep))
	if err == nil || !strings.Contains(err.Error(), "no such type") {
		t.Errorf("got %v", err)
	}
}

func TestAliasKeepsDeclaredName(t *testing.T) {
	status := shape.NewAlias("status", shape.EnumOf("todo", "done"))
	a := shape.MustNew(shape.Name("a"), shape.F("state", status))
	b := shape.MustNew(shape.Name("b"), shape.F("state", status))
	mod, err := Module("defs", target, []*shape.Shape{a, b})
	if err != nil {
		t.Fatalf("Module: %v", err)
	}
	st := mod.GetType("status")
	if st == nil || st.Kind != ir.KindEnum {
		t.Fatalf("status = %+v, alias should hoist under its own name", st)
	}
	for _, name := range []string{"a", "b"} {
		ft := mod.GetType(name).Fields[0].Type
		if ft.Kind != ir.KindRef || ft.Name != "status" {
			t.Errorf("%s.state = %+v, want ref to status", name, ft)
		}
	}
}

func TestWireSeesThroughAlias(t *testing.T) {
	v := shape.NewAlias("value", shape.UnionOf(shape.Int, shape.String))
	s := shape.MustNew(
		shape.Name("task"),
		shape.F("v", v),
		shape.Thrift(map[string]int16{"v": 1}),
	)
	_, err := Module("defs", target, []*shape.Shape{s})
	if err == nil || !strings.Contains(err.Error(), "cannot be wire-serialized") {
		t.Errorf("got %v", err)
	}
}

func TestTypesSortedByName(t *testing.T) {
	b := shape.MustNew(shape.Name("beta"), shape.F("n", shape.Int))
	a := shape.MustNew(shape.Name("alpha"), shape.F("n", shape.Int))
	mod, err := Module("defs", target, []*shape.Shape{b, a})
	if err != nil {
		t.Fatalf("Module: %v", err)
	}
	if mod.Types[0].Name != "alpha" || mod.Types[1].Name != "beta" {
		t.Errorf("types not sorted: %v, %v", mod.Types[0].Name, mod.Types[1].Name)
	}
}
