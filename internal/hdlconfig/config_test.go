package hdlconfig

import (
	"testing"

	"github.com/hashicorp/hcl/v2"

	"github.com/svlang/elaborate/internal/ast"
	"github.com/svlang/elaborate/internal/sourcelib"
)

func TestAddTopCellDropsEmptyName(t *testing.T) {
	c := NewConfigBlock("cfg", hcl.Range{})
	c.AddTopCell(ConfigCellId{Cell: "top"})
	c.AddTopCell(ConfigCellId{Cell: ""})
	if len(c.TopCells) != 1 {
		t.Fatalf("expected malformed empty-name top cell to be dropped, got %d entries", len(c.TopCells))
	}
}

func TestRedirectTargetSingleTop(t *testing.T) {
	c := NewConfigBlock("cfg", hcl.Range{})
	c.AddTopCell(ConfigCellId{Cell: "top"})
	target, err := c.RedirectTarget()
	if err != nil {
		t.Fatalf("RedirectTarget() error = %v", err)
	}
	if target.Cell != "top" {
		t.Fatalf("RedirectTarget() = %+v, want Cell=top", target)
	}
}

func TestRedirectTargetZeroTopsIsError(t *testing.T) {
	c := NewConfigBlock("cfg", hcl.Range{})
	if _, err := c.RedirectTarget(); err == nil {
		t.Fatal("expected an error redirecting to a config with no top cells")
	}
}

func TestRedirectTargetMultipleTopsIsError(t *testing.T) {
	c := NewConfigBlock("cfg", hcl.Range{})
	c.AddTopCell(ConfigCellId{Cell: "a"})
	c.AddTopCell(ConfigCellId{Cell: "b"})
	if _, err := c.RedirectTarget(); err == nil {
		t.Fatal("expected an error redirecting to a config with more than one top cell")
	}
}

func TestAddInstanceOverrideMergeConflict(t *testing.T) {
	c := NewConfigBlock("cfg", hcl.Range{})
	reg := sourcelib.NewRegistry()
	libA := reg.Register("a")
	libB := reg.Register("b")

	r1 := &ConfigRule{UseCell: &ConfigCellId{Library: libA, Cell: "fifo"}, SourceRange: hcl.Range{Filename: "cfg.sv", Start: hcl.Pos{Line: 1}}}
	r2 := &ConfigRule{UseCell: &ConfigCellId{Library: libB, Cell: "fifo"}, SourceRange: hcl.Range{Filename: "cfg.sv", Start: hcl.Pos{Line: 2}}}

	if err := c.AddInstanceOverride([]string{"top", "u_fifo"}, r1); err != nil {
		t.Fatalf("first AddInstanceOverride: %v", err)
	}
	err := c.AddInstanceOverride([]string{"top", "u_fifo"}, r2)
	if err == nil {
		t.Fatal("expected an error merging two conflicting use-cell rules at the same instance path")
	}
}

func TestAddInstanceOverrideMergeCompatible(t *testing.T) {
	c := NewConfigBlock("cfg", hcl.Range{})
	r1 := &ConfigRule{ParamOverrides: []ast.ParamConnection{{Name: "WIDTH"}}}
	r2 := &ConfigRule{Liblist: nil}
	if err := c.AddInstanceOverride([]string{"top"}, r1); err != nil {
		t.Fatalf("first AddInstanceOverride: %v", err)
	}
	if err := c.AddInstanceOverride([]string{"top"}, r2); err != nil {
		t.Fatalf("merging an orthogonal empty rule should not conflict: %v", err)
	}
}

func TestLookupCellOverridePrefersSpecificLibrary(t *testing.T) {
	c := NewConfigBlock("cfg", hcl.Range{})
	reg := sourcelib.NewRegistry()
	libA := reg.Register("a")

	generic := &ConfigRule{}
	specific := &ConfigRule{}
	c.AddCellOverride("fifo", nil, generic)
	c.AddCellOverride("fifo", libA, specific)

	if got := c.LookupCellOverride("fifo", libA); got != specific {
		t.Errorf("LookupCellOverride with matching library = %v, want the specific rule", got)
	}
	if got := c.LookupCellOverride("fifo", nil); got != generic {
		t.Errorf("LookupCellOverride with no library context = %v, want the generic rule", got)
	}
}

func TestLookupInstanceOverrideMarksVisited(t *testing.T) {
	c := NewConfigBlock("cfg", hcl.Range{})
	rule := &ConfigRule{SourceRange: hcl.Range{Filename: "cfg.sv"}}
	if err := c.AddInstanceOverride([]string{"top", "u_fifo"}, rule); err != nil {
		t.Fatalf("AddInstanceOverride: %v", err)
	}

	if got := c.LookupInstanceOverride([]string{"top", "u_fifo"}); got != rule {
		t.Fatalf("LookupInstanceOverride = %v, want %v", got, rule)
	}

	diags := c.UnresolvedInstanceOverrides()
	if diags.HasErrors() || len(diags) != 0 {
		t.Fatalf("visited instance override should not be reported unresolved, got %v", diags)
	}
}

func TestUnresolvedInstanceOverridesWarnsForUnvisitedPaths(t *testing.T) {
	c := NewConfigBlock("cfg", hcl.Range{})
	rule := &ConfigRule{SourceRange: hcl.Range{Filename: "cfg.sv"}}
	if err := c.AddInstanceOverride([]string{"top", "u_never_instantiated"}, rule); err != nil {
		t.Fatalf("AddInstanceOverride: %v", err)
	}

	diags := c.UnresolvedInstanceOverrides()
	if len(diags) != 1 {
		t.Fatalf("expected 1 unresolved-override warning, got %d: %v", len(diags), diags)
	}
	if diags[0].Severity != hcl.DiagWarning {
		t.Errorf("unresolved instance override severity = %v, want DiagWarning", diags[0].Severity)
	}
}

func TestHasInstanceOverrideBelow(t *testing.T) {
	c := NewConfigBlock("cfg", hcl.Range{})
	rule := &ConfigRule{}
	if err := c.AddInstanceOverride([]string{"top", "u_a", "u_b"}, rule); err != nil {
		t.Fatalf("AddInstanceOverride: %v", err)
	}
	if !c.HasInstanceOverrideBelow([]string{"top", "u_a"}) {
		t.Error("expected a rule to be found below top.u_a")
	}
	if c.HasInstanceOverrideBelow([]string{"top", "u_other"}) {
		t.Error("did not expect a rule below an unrelated path")
	}
}
