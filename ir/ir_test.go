package ir

import (
	"bytes"
	"strings"
	"testing"
)

func prim(p Primitive) *Type {
	return &Type{Kind: KindPrimitive, Primitive: p}
}

func wireStruct(name string, fields ...*Field) *NamedType {
	return &NamedType{Name: name, Type: &Type{Kind: KindStruct, Name: name, Wire: true, Fields: fields}}
}

func testModule() *Module {
	return &Module{
		Name:   "task",
		Target: "//some/project:task.shape",
		Types: []*NamedType{
			wireStruct("task",
				&Field{Name: "name", Type: prim(PStr), Required: true, ThriftID: 1},
				&Field{Name: "count", Type: prim(I64), Required: true, Default: []byte("0"), ThriftID: 2},
			),
		},
	}
}

func TestValidateOK(t *testing.T) {
	if err := testModule().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateDuplicateTypes(t *testing.T) {
	m := testModule()
	m.Types = append(m.Types, wireStruct("task"))
	if err := m.Validate(); err == nil || !strings.Contains(err.Error(), `duplicate type "task"`) {
		t.Errorf("got %v", err)
	}
}

func TestValidateThriftIDs(t *testing.T) {
	m := testModule()
	m.Types[0].Type.Fields[1].ThriftID = 1
	if err := m.Validate(); err == nil || !strings.Contains(err.Error(), "share thrift id 1") {
		t.Errorf("dup id: got %v", err)
	}

	m = testModule()
	m.Types[0].Type.Fields[1].ThriftID = 0
	if err := m.Validate(); err == nil || !strings.Contains(err.Error(), "needs a positive thrift id") {
		t.Errorf("missing id: got %v", err)
	}

	m = testModule()
	m.Types[0].Type.Wire = false
	if err := m.Validate(); err == nil || !strings.Contains(err.Error(), "not wire-enabled") {
		t.Errorf("ids without wire: got %v", err)
	}
}

func TestValidateUnknownRef(t *testing.T) {
	m := testModule()
	m.Types[0].Type.Fields[0].Type = &Type{Kind: KindRef, Name: "nope"}
	if err := m.Validate(); err == nil || !strings.Contains(err.Error(), `ref to unknown type "nope"`) {
		t.Errorf("got %v", err)
	}
}

func TestValidateRejectsCycles(t *testing.T) {
	m := &Module{
		Name:   "cyc",
		Target: ":cyc.shape",
		Types: []*NamedType{
			{Name: "a", Type: &Type{Kind: KindStruct, Name: "a", Fields: []*Field{
				{Name: "b", Type: &Type{Kind: KindRef, Name: "b"}, Required: true},
			}}},
			{Name: "b", Type: &Type{Kind: KindStruct, Name: "b", Fields: []*Field{
				{Name: "a", Type: &Type{Kind: KindRef, Name: "a"}, Required: true},
			}}},
		},
	}
	if err := m.Validate(); err == nil || !strings.Contains(err.Error(), "reference cycle") {
		t.Errorf("got %v", err)
	}
}

func TestSortedTypesDependencyOrder(t *testing.T) {
	m := &Module{
		Name:   "mod",
		Target: ":mod.shape",
		Types: []*NamedType{
			{Name: "outer", Type: &Type{Kind: KindStruct, Name: "outer", Fields: []*Field{
				{Name: "in", Type: &Type{Kind: KindRef, Name: "inner"}, Required: true},
				{Name: "st", Type: &Type{Kind: KindRef, Name: "status"}, Required: true},
			}}},
			{Name: "inner", Type: &Type{Kind: KindStruct, Name: "inner", Fields: []*Field{
				{Name: "n", Type: prim(I64), Required: true},
			}}},
			{Name: "status", Type: &Type{Kind: KindEnum, Name: "status", Options: []string{"on", "off"}}},
		},
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	sorted := m.SortedTypes()
	pos := map[string]int{}
	for i, nt := range sorted {
		pos[nt.Name] = i
	}
	if pos["inner"] > pos["outer"] || pos["status"] > pos["outer"] {
		names := make([]string, len(sorted))
		for i, nt := range sorted {
			names[i] = nt.Name
		}
		t.Errorf("outer emitted before its dependencies: %v", names)
	}
}

func TestParseTarget(t *testing.T) {
	if _, err := ParseTarget("//some/project:defs.shape"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseTarget(":defs.shape"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseTarget("//some/project:defs"); err == nil {
		t.Error("missing .shape suffix must fail")
	}
	if _, err := ParseTarget("defs.shape"); err == nil {
		t.Error("missing ':' must fail")
	}
	if _, err := ParseTarget("a:b:defs.shape"); err == nil {
		t.Error("two ':' must fail")
	}
}

func TestTargetNames(t *testing.T) {
	tgt := Target("cell//a/b:x.shape")
	if got := tgt.Basename(); got != "x" {
		t.Errorf("Basename() = %q, want x", got)
	}
	if got := tgt.BaseTarget(); got != "//a/b:x" {
		t.Errorf("BaseTarget() = %q, want //a/b:x", got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	m := testModule()
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, m); err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	got, err := DecodeJSON(&buf)
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if got.Name != m.Name || got.Target != m.Target || len(got.Types) != 1 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	f := got.Types[0].Type.Fields[1]
	if !f.HasDefault() || string(f.Default) != "0" {
		t.Errorf("default lost in round trip: %+v", f)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	_, err := DecodeJSON(strings.NewReader(`{"name":"x","target":":x.shape","types":[],"bogus":1}`))
	if err == nil {
		t.Error("unknown fields must be rejected")
	}
}
