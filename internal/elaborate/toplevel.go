package elaborate

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/svlang/elaborate/internal/ast"
	"github.com/svlang/elaborate/internal/definitions"
	"github.com/svlang/elaborate/internal/diagutil"
)

// detectImplicitTops finds every module or program definition that is never
// named by an InstantiationStmt anywhere in the design (a bind directive's
// statement included) and whose declared
// parameters can all be resolved from their own defaults (since no
// instantiation site exists to supply an override). A definition that
// qualifies structurally but has an unresolvable parameter is skipped with a
// diagnostic explaining why, rather than silently treated as non-top.
func (e *Elaborator) detectImplicitTops() ([]*definitions.Definition, hcl.Diagnostics) {
	var diags hcl.Diagnostics

	instantiated := make(map[string]bool)
	for _, def := range e.Comp.Definitions.AllDefinitions() {
		for _, item := range def.Body() {
			collectInstantiatedNames(item, instantiated)
		}
		for _, b := range def.Binds() {
			if b.Stmt != nil {
				instantiated[b.Stmt.DefName] = true
			}
		}
	}
	for _, binds := range e.bindsByDefName {
		for _, b := range binds {
			if b.Stmt != nil {
				instantiated[b.Stmt.DefName] = true
			}
		}
	}
	for _, b := range e.pathBinds {
		if b.Stmt != nil {
			instantiated[b.Stmt.DefName] = true
		}
	}

	var candidates []*definitions.Definition
	for _, def := range e.Comp.Definitions.AllDefinitions() {
		if def.Kind() != ast.KindModule && def.Kind() != ast.KindProgram {
			continue
		}
		if instantiated[def.Name()] {
			continue
		}
		if missing := firstParameterWithoutDefault(def); missing != "" {
			diags = diagutil.Warnf(diags, def.Location().Ptr(), "Not usable as an implicit top",
				"%q is never instantiated but declares parameter %q with no default, so it cannot be elaborated without an explicit --top override.", def.Name(), missing)
			continue
		}
		candidates = append(candidates, def)
	}

	return candidates, diags
}

func collectInstantiatedNames(item ast.BodyItem, out map[string]bool) {
	switch it := item.(type) {
	case *ast.InstantiationStmt:
		out[it.DefName] = true
	case *ast.GenerateConditional:
		for _, sub := range it.TakenBranch {
			collectInstantiatedNames(sub, out)
		}
	}
}

func firstParameterWithoutDefault(def *definitions.Definition) string {
	for _, p := range def.Parameters() {
		if p.IsLocalParam {
			continue
		}
		if p.IsTypeParam {
			if p.DefaultType == nil {
				return p.Name
			}
			continue
		}
		if p.DefaultExpr == nil {
			return p.Name
		}
	}
	return ""
}
