package instances

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/svlang/elaborate/internal/ast"
	"github.com/svlang/elaborate/internal/definitions"
	"github.com/svlang/elaborate/internal/params"
	"github.com/svlang/elaborate/internal/sourcelib"
)

// fixedRangeEvaluator reports a canned bounds pair for every expression, or
// an error diagnostic when configured to fail.
type fixedRangeEvaluator struct {
	lo, hi int
	fail   bool
}

func (f fixedRangeEvaluator) EvalRange(expr hcl.Expression) (int, int, hcl.Diagnostics) {
	if f.fail {
		return 0, -1, hcl.Diagnostics{&hcl.Diagnostic{Severity: hcl.DiagError, Summary: "cannot evaluate"}}
	}
	return f.lo, f.hi, nil
}

func testDefinition(t *testing.T) *definitions.Definition {
	t.Helper()
	libs := sourcelib.NewRegistry()
	lib := libs.Register("rtl")
	defs := definitions.NewRegistry(libs)
	return defs.Register(&ast.Definition{Name: "fifo", Kind: ast.KindModule}, lib)
}

func TestBuilderCreateScalarInstance(t *testing.T) {
	def := testDefinition(t)
	b := &Builder{
		Definition: def,
		ParamBuild: params.NewBuilder(nil),
		Ranges:     fixedRangeEvaluator{},
	}
	syntax := &ast.InstanceSyntax{SyntaxID: "s1", Name: "u_fifo"}
	elem, diags := b.Create(syntax, nil, nil, nil, nil)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	inst, ok := elem.(*Instance)
	if !ok || inst.Name != "u_fifo" {
		t.Fatalf("Create() = %#v, want a scalar *Instance named u_fifo", elem)
	}
	if inst.Body.Syntax != syntax {
		t.Error("InstanceBody.Syntax must be the syntax it was built from")
	}
}

func TestBuilderCreateThreadsStatementAttributes(t *testing.T) {
	def := testDefinition(t)
	b := &Builder{
		Definition: def,
		ParamBuild: params.NewBuilder(nil),
		Ranges:     fixedRangeEvaluator{},
	}
	syntax := &ast.InstanceSyntax{SyntaxID: "s1", Name: "u_fifo"}
	attrs := []ast.Attribute{{Name: "keep_hierarchy"}}
	elem, diags := b.Create(syntax, attrs, nil, nil, nil)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	inst, ok := elem.(*Instance)
	if !ok || len(inst.Attributes) != 1 || inst.Attributes[0].Name != "keep_hierarchy" {
		t.Fatalf("Create() Attributes = %#v, want the statement's attributes carried onto the instance", elem)
	}
}

func TestBuilderCreateArrayExpandsBounds(t *testing.T) {
	def := testDefinition(t)
	b := &Builder{
		Definition: def,
		ParamBuild: params.NewBuilder(nil),
		Ranges:     fixedRangeEvaluator{lo: 0, hi: 2},
	}
	syntax := &ast.InstanceSyntax{
		SyntaxID:   "s1",
		Name:       "u_fifo",
		Dimensions: []hcl.Expression{dummyExpr{}},
	}
	elem, diags := b.Create(syntax, nil, nil, nil, nil)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	arr, ok := elem.(*InstanceArray)
	if !ok {
		t.Fatalf("Create() = %#v, want *InstanceArray", elem)
	}
	if arr.Name != "u_fifo" {
		t.Errorf("outermost array Name = %q, want u_fifo", arr.Name)
	}
	if arr.Len() != 3 || len(arr.Elements) != 3 {
		t.Fatalf("array length = %d (elements %d), want 3", arr.Len(), len(arr.Elements))
	}
	for i, el := range arr.Elements {
		inst, ok := el.(*Instance)
		if !ok {
			t.Fatalf("element %d = %#v, want *Instance", i, el)
		}
		if inst.Name != "" {
			t.Errorf("interior array element %d Name = %q, want empty (only the outer array keeps the name)", i, inst.Name)
		}
		if len(inst.ArrayPath) != 1 || inst.ArrayPath[0] != i {
			t.Errorf("element %d ArrayPath = %v, want [%d]", i, inst.ArrayPath, i)
		}
	}
}

func TestBuilderCreateDimensionEvalFailureSubstitutesEmptyArray(t *testing.T) {
	def := testDefinition(t)
	b := &Builder{
		Definition: def,
		ParamBuild: params.NewBuilder(nil),
		Ranges:     fixedRangeEvaluator{fail: true},
	}
	syntax := &ast.InstanceSyntax{
		SyntaxID:   "s1",
		Name:       "u_fifo",
		Dimensions: []hcl.Expression{dummyExpr{}},
	}
	elem, diags := b.Create(syntax, nil, nil, nil, nil)
	if !diags.HasErrors() {
		t.Fatal("expected a diagnostic when a dimension cannot be evaluated")
	}
	arr, ok := elem.(*InstanceArray)
	if !ok {
		t.Fatalf("Create() = %#v, want *InstanceArray even on failure", elem)
	}
	if arr.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 for a substituted empty array", arr.Len())
	}
}

func TestBuilderCreateArrayTooLarge(t *testing.T) {
	def := testDefinition(t)
	b := &Builder{
		Definition: def,
		ParamBuild: params.NewBuilder(nil),
		Ranges:     fixedRangeEvaluator{lo: 0, hi: 10},
		MaxArray:   5,
	}
	syntax := &ast.InstanceSyntax{
		SyntaxID:   "s1",
		Name:       "u_fifo",
		Dimensions: []hcl.Expression{dummyExpr{}},
	}
	_, diags := b.Create(syntax, nil, nil, nil, nil)
	if !diags.HasErrors() {
		t.Fatal("expected an error when the array width exceeds MaxArray")
	}
}

func TestInstanceBodySetMembersOnceOnly(t *testing.T) {
	body := &InstanceBody{}
	if body.MembersReady() {
		t.Fatal("MembersReady() = true before SetMembers was ever called")
	}
	body.SetMembers([]ast.BodyItem{&ast.Opaque{}})
	if !body.MembersReady() {
		t.Fatal("MembersReady() = false after SetMembers")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected SetMembers called a second time to panic")
		}
	}()
	body.SetMembers([]ast.BodyItem{})
}

func TestInstanceBodySetPortConnectionsIdempotent(t *testing.T) {
	body := &InstanceBody{}
	first := map[string]ast.PortConnection{"clk": {Name: "clk"}}
	body.SetPortConnections(first)
	second := map[string]ast.PortConnection{"rst": {Name: "rst"}}
	body.SetPortConnections(second) // no-op: already set

	got, ready := body.PortConnections()
	if !ready {
		t.Fatal("PortConnections() ready = false after SetPortConnections")
	}
	if _, ok := got["clk"]; !ok {
		t.Fatal("expected the first SetPortConnections call to win")
	}
	if _, ok := got["rst"]; ok {
		t.Fatal("second SetPortConnections call must be a no-op")
	}
}

// dummyExpr is a minimal hcl.Expression fixture; its actual value never
// matters because fixedRangeEvaluator ignores the expression it's given.
type dummyExpr struct{}

func (dummyExpr) Value(*hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
	return cty.NilVal, nil
}
func (dummyExpr) Variables() []hcl.Traversal { return nil }
func (dummyExpr) Range() hcl.Range           { return hcl.Range{} }
func (dummyExpr) StartRange() hcl.Range      { return hcl.Range{} }

