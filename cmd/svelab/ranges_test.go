package main

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

func TestNoParserRangeEvaluatorReportsDiagnostic(t *testing.T) {
	expr := &hclsyntax.LiteralValueExpr{Val: cty.NumberIntVal(0), SrcRange: hcl.Range{Filename: "top.sv"}}
	_, hi, diags := noParserRangeEvaluator{}.EvalRange(expr)
	if !diags.HasErrors() {
		t.Fatal("expected an error diagnostic reporting no expression evaluator is wired in")
	}
	if hi >= 0 {
		t.Fatalf("hi = %d, want a negative sentinel signaling an empty/failed range", hi)
	}
}
