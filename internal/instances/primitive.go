package instances

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/svlang/elaborate/internal/diagutil"
)

// GateClass categorizes a built-in gate primitive's port-arity shape, per
// §4.7 step 5's "gate-type specific port arity rules (N-input/N-output
// gates)".
type GateClass int

const (
	// GateNInput gates (and, nand, or, nor, xor, xnor) have exactly one
	// output port followed by one or more input ports.
	GateNInput GateClass = iota
	// GateNOutput gates (not, buf) have exactly one input port followed by
	// one or more output ports.
	GateNOutput
	// GateEnable gates (bufif0/1, notif0/1) are fixed-arity: one output, one
	// data input, one enable.
	GateEnable
)

// gateCatalog is the closed set of built-in gate primitives this elaborator
// understands arity for. A primitive definition whose name isn't listed
// here gets no dedicated arity check beyond the generic ordered-connection
// overflow diagnostic resolvePortConnections already applies to every
// definition kind.
var gateCatalog = map[string]GateClass{
	"and": GateNInput, "nand": GateNInput, "or": GateNInput, "nor": GateNInput,
	"xor": GateNInput, "xnor": GateNInput,
	"not": GateNOutput, "buf": GateNOutput,
	"bufif0": GateEnable, "bufif1": GateEnable, "notif0": GateEnable, "notif1": GateEnable,
}

// CheckGateArity validates a gate-primitive instantiation's supplied
// ordered-connection count against the gate's declared port count
// (declaredCount, i.e. len(def.Ports()), which fixes a specific registered
// "and"/"or"/etc. definition's actual input or output width the same way a
// module's Ports() fixes its port list). It mirrors InstanceBuilder's
// expand-then-diagnose shape elsewhere in this package (see
// expandDimension's too-large-array handling): on an arity mismatch it
// still returns a usable connection count rather than refusing to build
// the instance, truncating any excess so the gate is still created.
//
// gateName not in the catalogue, or a primitive registered with no
// declared ports at all, means this gate's arity isn't under this
// elaborator's control (a library-defined primitive outside the built-in
// set); CheckGateArity then does nothing.
func CheckGateArity(gateName string, loc hcl.Range, suppliedCount, declaredCount int) (keep int, diags hcl.Diagnostics) {
	class, known := gateCatalog[gateName]
	if !known || declaredCount == 0 {
		return suppliedCount, nil
	}

	switch class {
	case GateNInput, GateNOutput:
		if suppliedCount <= declaredCount {
			return suppliedCount, nil
		}
		diags = diagutil.Errorf(nil, &loc, "Gate arity error",
			"%q connects %d signals but only %d are declared; the extra connections are dropped.",
			gateName, suppliedCount, declaredCount)
		return declaredCount, diags

	case GateEnable:
		if suppliedCount == declaredCount {
			return suppliedCount, nil
		}
		diags = diagutil.Errorf(nil, &loc, "Gate arity error",
			"%q is a fixed-arity gate requiring exactly %d connections (output, input, enable), got %d.",
			gateName, declaredCount, suppliedCount)
		if suppliedCount > declaredCount {
			return declaredCount, diags
		}
		return suppliedCount, diags

	default:
		return suppliedCount, nil
	}
}
