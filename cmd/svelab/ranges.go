package main

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/svlang/elaborate/internal/diagutil"
)

// noParserRangeEvaluator stands in for the type-checking collaborator that
// would normally evaluate an instance array's `[hi:lo]` dimension
// expressions to concrete bounds. This binary ships no expression evaluator
// of its own (expression evaluation is explicitly out of this repository's
// scope); it exists so the Elaborator has something to call, and reports a
// clear diagnostic rather than panicking if a real front-end ever does wire
// ast.Definition values carrying instance arrays into this CLI without also
// supplying its own evaluator.
type noParserRangeEvaluator struct{}

func (noParserRangeEvaluator) EvalRange(expr hcl.Expression) (int, int, hcl.Diagnostics) {
	rng := expr.Range()
	diags := diagutil.Errorf(nil, &rng, "No expression evaluator configured",
		"This build of svelab has no source-language front end wired in, so instance array dimensions cannot be evaluated.")
	return 0, -1, diags
}
