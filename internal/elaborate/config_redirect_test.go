package elaborate

import (
	"testing"

	"github.com/hashicorp/hcl/v2"

	"github.com/svlang/elaborate/internal/ast"
	"github.com/svlang/elaborate/internal/hdlconfig"
	"github.com/svlang/elaborate/internal/instances"
)

// TestElaborateDesignMidTreeConfigRedirect covers hierarchical config
// redirection: a non-top instantiation statement whose cell is overridden
// to "use" a config re-roots at that config's sole top cell instead of
// being rejected outright, and the redirected config's own instance
// overrides apply beneath the new root using its own top-cell name, not
// the real hierarchy path.
func TestElaborateDesignMidTreeConfigRedirect(t *testing.T) {
	comp := newTestCompilation(Options{ExplicitTop: []TopSpec{{Config: "cfg1"}}})
	rtl := comp.Libraries.Register("rtl")
	lib1 := comp.Libraries.Register("lib1")

	top := &ast.Definition{
		Name: "top",
		Kind: ast.KindModule,
		Body: []ast.BodyItem{instStmt("placeholder", "b")},
	}
	baz := &ast.Definition{
		Name: "baz",
		Kind: ast.KindModule,
		Body: []ast.BodyItem{instStmt("foo", "f1")},
	}
	fooRTL := &ast.Definition{Name: "foo", Kind: ast.KindModule}
	modLib1 := &ast.Definition{Name: "mod", Kind: ast.KindModule}

	comp.Definitions.Register(top, rtl)
	comp.Definitions.Register(baz, rtl)
	comp.Definitions.Register(fooRTL, rtl)
	comp.Definitions.Register(modLib1, lib1)

	cfg2 := hdlconfig.NewConfigBlock("cfg2", hcl.Range{})
	cfg2.AddTopCell(hdlconfig.ConfigCellId{Cell: "baz"})
	if err := cfg2.AddInstanceOverride([]string{"baz", "f1"}, &hdlconfig.ConfigRule{
		UseCell:     &hdlconfig.ConfigCellId{Library: lib1, Cell: "mod"},
		SourceRange: hcl.Range{Filename: "cfg2"},
	}); err != nil {
		t.Fatalf("AddInstanceOverride: %v", err)
	}
	comp.Definitions.RegisterConfig(cfg2, rtl)

	cfg1 := hdlconfig.NewConfigBlock("cfg1", hcl.Range{})
	cfg1.AddTopCell(hdlconfig.ConfigCellId{Cell: "top"})
	if err := cfg1.AddInstanceOverride([]string{"top", "b"}, &hdlconfig.ConfigRule{
		UseCell:     &hdlconfig.ConfigCellId{Cell: "cfg2", TargetConfig: true},
		SourceRange: hcl.Range{Filename: "cfg1"},
	}); err != nil {
		t.Fatalf("AddInstanceOverride: %v", err)
	}
	comp.Definitions.RegisterConfig(cfg1, rtl)

	el := NewElaborator(comp, noopRangeEvaluator{}, nil)
	tops, diags := el.ElaborateDesign()
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(tops) != 1 || tops[0].Name != "top" {
		t.Fatalf("tops = %v, want exactly [top]", tops)
	}

	b, ok := tops[0].Body.Children[0].(*instances.Instance)
	if !ok || b.Name != "b" {
		t.Fatalf("top's child = %#v, want *Instance named b", tops[0].Body.Children[0])
	}
	if b.Body.Definition.Name() != "baz" {
		t.Fatalf("b resolved to %q, want baz (cfg2's sole top cell)", b.Body.Definition.Name())
	}
	if b.ResolvedConfig == nil || b.ResolvedConfig.UseConfig != cfg2 {
		t.Fatalf("b.ResolvedConfig = %#v, want a fresh context rooted at cfg2", b.ResolvedConfig)
	}

	if len(b.Body.Children) != 1 {
		t.Fatalf("b.Body.Children = %v, want exactly one child (f1)", b.Body.Children)
	}
	f1, ok := b.Body.Children[0].(*instances.Instance)
	if !ok || f1.Name != "f1" {
		t.Fatalf("b's child = %#v, want *Instance named f1", b.Body.Children[0])
	}
	if f1.Body.Definition == nil || f1.Body.Definition.Name() != "mod" {
		t.Fatalf("f1 resolved to %v, want cfg2's lib1.mod override to apply beneath the re-rooted instance", f1.Body.Definition)
	}
}

// TestElaborateDesignInvalidInstanceForParent covers §4.7 step 6: a config
// override forcing an interface instance to "use" a program must be
// rejected with an InvalidInstanceForParent diagnostic, aborting only that
// one instance rather than the whole design.
func TestElaborateDesignInvalidInstanceForParent(t *testing.T) {
	comp := newTestCompilation(Options{ExplicitTop: []TopSpec{{Config: "cfg"}}})
	lib := comp.Libraries.Register("work")

	iface := &ast.Definition{
		Name: "bus_if",
		Kind: ast.KindInterface,
		Body: []ast.BodyItem{instStmt("placeholder", "p")},
	}
	prog := &ast.Definition{Name: "prog", Kind: ast.KindProgram}
	comp.Definitions.Register(iface, lib)
	comp.Definitions.Register(prog, lib)

	cfg := hdlconfig.NewConfigBlock("cfg", hcl.Range{})
	cfg.AddTopCell(hdlconfig.ConfigCellId{Cell: "bus_if"})
	if err := cfg.AddInstanceOverride([]string{"bus_if", "p"}, &hdlconfig.ConfigRule{
		UseCell:     &hdlconfig.ConfigCellId{Cell: "prog"},
		SourceRange: hcl.Range{Filename: "cfg"},
	}); err != nil {
		t.Fatalf("AddInstanceOverride: %v", err)
	}
	comp.Definitions.RegisterConfig(cfg, lib)

	el := NewElaborator(comp, noopRangeEvaluator{}, nil)
	tops, diags := el.ElaborateDesign()
	if !diags.HasErrors() {
		t.Fatal("expected an InvalidInstanceForParent diagnostic")
	}
	found := false
	for _, d := range diags {
		if d.Summary == "InvalidInstanceForParent" {
			found = true
		}
	}
	if !found {
		t.Fatalf("diagnostics = %v, want one summarized InvalidInstanceForParent", diags)
	}
	if len(tops) != 1 || len(tops[0].Body.Children) != 0 {
		t.Fatalf("top's tree = %#v, want the offending instance dropped but the rest of elaboration to proceed", tops)
	}
}

// TestElaborateDesignConfigTopFansOutToMultipleRoots covers Scenario 6: a
// config used as an explicit top whose design statement names more than
// one cell produces one root per cell, not an error.
func TestElaborateDesignConfigTopFansOutToMultipleRoots(t *testing.T) {
	comp := newTestCompilation(Options{ExplicitTop: []TopSpec{{Config: "cfg1"}}})
	lib := comp.Libraries.Register("work")

	foo := &ast.Definition{
		Name: "foo",
		Kind: ast.KindModule,
		Body: []ast.BodyItem{instStmt("placeholder", "a")},
	}
	bar := &ast.Definition{
		Name: "bar",
		Kind: ast.KindModule,
		Body: []ast.BodyItem{instStmt("placeholder", "a")},
	}
	m1 := &ast.Definition{Name: "m1", Kind: ast.KindModule}
	m2 := &ast.Definition{Name: "m2", Kind: ast.KindModule}
	comp.Definitions.Register(foo, lib)
	comp.Definitions.Register(bar, lib)
	comp.Definitions.Register(m1, lib)
	comp.Definitions.Register(m2, lib)

	cfg1 := hdlconfig.NewConfigBlock("cfg1", hcl.Range{})
	cfg1.AddTopCell(hdlconfig.ConfigCellId{Cell: "foo"})
	cfg1.AddTopCell(hdlconfig.ConfigCellId{Cell: "bar"})
	if err := cfg1.AddInstanceOverride([]string{"foo", "a"}, &hdlconfig.ConfigRule{
		UseCell:     &hdlconfig.ConfigCellId{Cell: "m1"},
		SourceRange: hcl.Range{Filename: "cfg1"},
	}); err != nil {
		t.Fatalf("AddInstanceOverride: %v", err)
	}
	if err := cfg1.AddInstanceOverride([]string{"bar", "a"}, &hdlconfig.ConfigRule{
		UseCell:     &hdlconfig.ConfigCellId{Cell: "m2"},
		SourceRange: hcl.Range{Filename: "cfg1"},
	}); err != nil {
		t.Fatalf("AddInstanceOverride: %v", err)
	}
	comp.Definitions.RegisterConfig(cfg1, lib)

	el := NewElaborator(comp, noopRangeEvaluator{}, nil)
	tops, diags := el.ElaborateDesign()
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(tops) != 2 {
		t.Fatalf("tops = %v, want exactly two roots (foo and bar)", tops)
	}
	byName := make(map[string]*instances.Instance)
	for _, top := range tops {
		byName[top.Name] = top
	}
	if byName["foo"] == nil || byName["bar"] == nil {
		t.Fatalf("tops = %v, want roots named foo and bar", tops)
	}

	fooA, ok := byName["foo"].Body.Children[0].(*instances.Instance)
	if !ok || fooA.Body.Definition == nil || fooA.Body.Definition.Name() != "m1" {
		t.Fatalf("foo.a resolved to %#v, want m1 per cfg1's instance override", byName["foo"].Body.Children)
	}
	barA, ok := byName["bar"].Body.Children[0].(*instances.Instance)
	if !ok || barA.Body.Definition == nil || barA.Body.Definition.Name() != "m2" {
		t.Fatalf("bar.a resolved to %#v, want m2 per cfg1's instance override", byName["bar"].Body.Children)
	}
}

// TestElaborateInstanceMaterializesUninstantiatedPlaceholder covers §4.3:
// an instantiation statement inside a generate branch that was not taken
// still produces an inert placeholder Instance, with every parameter
// forced invalid, instead of being silently dropped.
func TestElaborateInstanceMaterializesUninstantiatedPlaceholder(t *testing.T) {
	comp := newTestCompilation(Options{})
	lib := comp.Libraries.Register("work")

	widget := &ast.Definition{
		Name: "widget",
		Kind: ast.KindModule,
		Parameters: []*ast.ParameterDecl{
			{Name: "WIDTH"},
		},
	}
	top := &ast.Definition{
		Name: "top",
		Kind: ast.KindModule,
		Body: []ast.BodyItem{
			&ast.GenerateConditional{
				TakenBranch: nil,
				UntakenBranches: [][]ast.BodyItem{
					{instStmt("widget", "u_widget")},
				},
			},
		},
	}
	comp.Definitions.Register(widget, lib)
	comp.Definitions.Register(top, lib)

	el := NewElaborator(comp, noopRangeEvaluator{}, nil)
	tops, diags := el.ElaborateDesign()
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(tops) != 1 {
		t.Fatalf("tops = %v, want exactly [top]", tops)
	}
	if len(tops[0].Body.Children) != 1 {
		t.Fatalf("top.Body.Children = %v, want exactly one placeholder child", tops[0].Body.Children)
	}
	placeholder, ok := tops[0].Body.Children[0].(*instances.Instance)
	if !ok || placeholder.Name != "u_widget" {
		t.Fatalf("top's child = %#v, want a placeholder *Instance named u_widget", tops[0].Body.Children[0])
	}
	if !placeholder.Body.IsUninstantiated {
		t.Fatal("placeholder.Body.IsUninstantiated = false, want true for content inside an untaken generate branch")
	}
	if len(placeholder.Body.Parameters) != 1 || !placeholder.Body.Parameters[0].Invalid {
		t.Fatalf("placeholder.Body.Parameters = %v, want WIDTH forced Invalid", placeholder.Body.Parameters)
	}
}
