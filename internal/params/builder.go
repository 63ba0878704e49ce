// Package params implements the ParameterBuilder: it accumulates declared
// parameters plus override values from instantiation syntax and from
// hierarchy-override nodes, and produces resolved parameter values for an
// instance body.
//
// The precedence cascade across sources - a configuration rule's
// paramOverrides beat instantiation-syntax `#(...)` connections, which beat
// a defparam-style hierarchy override, which beats the parameter's own
// declared default - is this repository's resolution of the open question
// the distilled spec leaves implicit (see DESIGN.md): IEEE 1800 configs are
// specified to let a `config` block's parameter assignments supersede
// whatever the source text says at the instantiation site, and a defparam
// is a fallback applied only when nothing more specific assigned the
// parameter a value.
package params

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/svlang/elaborate/internal/ast"
	"github.com/svlang/elaborate/internal/overrides"
)

// Symbol is a fully resolved parameter belonging to one instance body.
type Symbol struct {
	Decl  *ast.ParameterDecl
	Value hcl.Expression // the winning unevaluated expression, for the type-checking collaborator to evaluate
	// Invalid marks a parameter whose value could not be determined (a
	// missing default on a body/local parameter, or a value forced invalid
	// because the owning body is uninstantiated). Downstream expression
	// evaluation is expected to short-circuit on Invalid without emitting
	// further diagnostics, per §4.3's policy for uninstantiated bodies.
	Invalid bool
}

// Builder constructs the ordered Symbol list for one instance body.
type Builder struct {
	decls []*ast.ParameterDecl // port parameters first, then body parameters, in declaration order within each group
}

// NewBuilder orders a definition's declared parameters with port parameters
// first and body parameters after, preserving relative declaration order
// within each group.
func NewBuilder(declared []*ast.ParameterDecl) *Builder {
	b := &Builder{}
	for _, d := range declared {
		if d.IsPortParam {
			b.decls = append(b.decls, d)
		}
	}
	for _, d := range declared {
		if !d.IsPortParam {
			b.decls = append(b.decls, d)
		}
	}
	return b
}

// Connections is the instantiation-syntax parameter list for one instance,
// already split into ordered and named per ast.ParamConnection.Name.
type Connections []ast.ParamConnection

// Build resolves the final Symbol list for one instance.
//
//   - connections are this instance's `#(...)` assignments.
//   - configOverrides, if non-nil, is the winning configuration rule's
//     paramOverrides for this instantiation (already chosen by the
//     Elaborator per the instance>cell>default precedence of ConfigRule
//     selection; see internal/hdlconfig).
//   - overrideNode, if non-nil, is this instance's hierarchy override node,
//     whose Overrides map supplies defparam-style fallback values.
//   - uninstantiated forces every resolved parameter to Invalid, per §4.3's
//     policy that uninstantiated bodies must not produce further
//     diagnostics downstream.
func (b *Builder) Build(
	connections Connections,
	configOverrides []ast.ParamConnection,
	overrideNode *overrides.Node,
	uninstantiated bool,
) ([]*Symbol, hcl.Diagnostics) {
	var diags hcl.Diagnostics

	symbols := make([]*Symbol, len(b.decls))
	byName := make(map[string]int, len(b.decls))
	for i, d := range b.decls {
		symbols[i] = &Symbol{Decl: d, Value: d.DefaultExpr, Invalid: uninstantiated}
		byName[d.Name] = i
	}

	// 1. Lowest precedence: defparam-style hierarchy overrides.
	if overrideNode != nil {
		for path, v := range overrideNode.Overrides {
			idx, ok := byName[path]
			if !ok {
				continue // targets a nested scope, not a top-level parameter of this body
			}
			if symbols[idx].Decl.IsLocalParam {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Cannot override local parameter",
					Detail:   fmt.Sprintf("Parameter %q is declared localparam and cannot be targeted by a hierarchical (defparam) override.", path),
					Subject:  symbols[idx].Decl.Location.Ptr(),
				})
				continue
			}
			symbols[idx] = &Symbol{Decl: symbols[idx].Decl, Value: valueExpr(v), Invalid: uninstantiated}
		}
	}

	// 2. Next: instantiation-syntax connections.
	ordinal := 0
	for _, conn := range connections {
		if conn.Name == "" {
			// Ordered assignments bind positionally to port parameters only.
			portIdx := nthPortParam(b.decls, ordinal)
			ordinal++
			if portIdx < 0 {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Too many ordered parameter assignments",
					Detail:   "There are more ordered parameter assignments than port parameters declared by this definition.",
					Subject:  conn.Value.Range().Ptr(),
				})
				continue
			}
			symbols[portIdx] = &Symbol{Decl: symbols[portIdx].Decl, Value: conn.Value, Invalid: uninstantiated}
			continue
		}

		idx, ok := byName[conn.Name]
		if !ok {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unknown parameter",
				Detail:   fmt.Sprintf("This definition declares no parameter named %q.", conn.Name),
				Subject:  conn.Value.Range().Ptr(),
			})
			continue
		}
		if symbols[idx].Decl.IsLocalParam {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Cannot override local parameter",
				Detail:   fmt.Sprintf("Parameter %q is declared localparam and cannot be assigned by an instantiation.", conn.Name),
				Subject:  conn.Value.Range().Ptr(),
			})
			continue
		}
		symbols[idx] = &Symbol{Decl: symbols[idx].Decl, Value: conn.Value, Invalid: uninstantiated}
	}

	// 3. Highest precedence: the winning configuration rule's overrides.
	for _, conn := range configOverrides {
		idx, ok := byName[conn.Name]
		if !ok {
			continue // stale config override referencing a renamed/removed parameter; not this component's diagnostic to own
		}
		if symbols[idx].Decl.IsLocalParam {
			continue
		}
		symbols[idx] = &Symbol{Decl: symbols[idx].Decl, Value: conn.Value, Invalid: uninstantiated}
	}

	// Final invariant check: every non-port parameter (and every port
	// parameter that still has no value at all) must have ended up with
	// either a default or an override.
	for _, s := range symbols {
		if s.Value == nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Missing parameter value",
				Detail:   fmt.Sprintf("Parameter %q has no default and was not given a value.", s.Decl.Name),
				Subject:  s.Decl.Location.Ptr(),
			})
			s.Invalid = true
		}
	}

	return symbols, diags
}

func nthPortParam(decls []*ast.ParameterDecl, n int) int {
	count := 0
	for i, d := range decls {
		if !d.IsPortParam {
			continue
		}
		if count == n {
			return i
		}
		count++
	}
	return -1
}

// valueExpr wraps an already-resolved cty.Value as a literal hcl.Expression
// so defparam overrides (which carry plain values, not syntax, per the data
// model's HierarchyOverrideNode.overrides: map<ParamPath, Value>) can flow
// through the same Symbol.Value field as syntax-sourced overrides.
func valueExpr(v cty.Value) hcl.Expression {
	return staticValueExpr{v: v}
}

type staticValueExpr struct {
	v cty.Value
}

func (e staticValueExpr) Value(_ *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
	return e.v, nil
}
func (staticValueExpr) Variables() []hcl.Traversal { return nil }
func (staticValueExpr) Range() hcl.Range           { return hcl.Range{} }
func (staticValueExpr) StartRange() hcl.Range      { return hcl.Range{} }
