// Package debugdump renders an elaborated design as JSON for interactive
// debugging. The shape of the output is deliberately not a stability
// commitment: it exists so a developer (or a test) can eyeball what a
// compilation produced, not as a format other tools should parse.
package debugdump

import (
	"encoding/json"

	"github.com/hashicorp/hcl/v2"

	"github.com/svlang/elaborate/internal/instances"
)

// Node is the JSON shape of one element in the dumped tree.
type Node struct {
	Kind           string            `json:"kind"` // "instance", "array", or "uninstantiated"
	Name           string            `json:"name"`
	ArrayPath      []int             `json:"arrayPath,omitempty"`
	Definition     string            `json:"definition,omitempty"`
	Parameters     map[string]string `json:"parameters,omitempty"`
	IsFromBind     bool              `json:"isFromBind,omitempty"`
	Bounds         *bounds           `json:"bounds,omitempty"`
	Children       []Node            `json:"children,omitempty"`
	UnresolvedWhy  string            `json:"unresolvedWhy,omitempty"`
}

type bounds struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// Design is the top-level JSON document: a compilation ID and one Node per
// elaborated top instance.
type Design struct {
	CompilationID string `json:"compilationId"`
	Tops          []Node `json:"tops"`
}

// Dump renders every elaborated top instance into a Design document.
func Dump(compilationID string, tops []*instances.Instance) Design {
	d := Design{CompilationID: compilationID}
	for _, top := range tops {
		d.Tops = append(d.Tops, instanceNode(top))
	}
	return d
}

// Marshal is a convenience wrapper producing indented JSON bytes, since the
// sole consumer of this package is a human reading terminal output.
func Marshal(d Design) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

func instanceNode(inst *instances.Instance) Node {
	n := Node{
		Kind:       "instance",
		Name:       inst.Name,
		ArrayPath:  inst.ArrayPath,
		IsFromBind: inst.Body.IsFromBind,
	}
	if def := inst.Body.Definition; def != nil {
		n.Definition = def.Name()
	}
	if len(inst.Body.Parameters) > 0 {
		n.Parameters = make(map[string]string, len(inst.Body.Parameters))
		for _, p := range inst.Body.Parameters {
			if p.Invalid {
				n.Parameters[p.Decl.Name] = "<invalid>"
				continue
			}
			n.Parameters[p.Decl.Name] = exprSource(p.Value)
		}
	}
	for _, c := range inst.Body.Children {
		n.Children = append(n.Children, elementNode(c))
	}
	return n
}

func elementNode(el instances.Element) Node {
	switch v := el.(type) {
	case *instances.Instance:
		return instanceNode(v)
	case *instances.InstanceArray:
		n := Node{Kind: "array", Name: v.Name, Bounds: &bounds{Lo: v.Lo, Hi: v.Hi}}
		for _, child := range v.Elements {
			n.Children = append(n.Children, elementNode(child))
		}
		return n
	case *instances.UninstantiatedDef:
		return Node{Kind: "uninstantiated", Name: v.Name, Definition: v.AttemptedDefName, UnresolvedWhy: v.UnresolvedWhyMessage}
	default:
		return Node{Kind: "unknown"}
	}
}

func exprSource(v hcl.Expression) string {
	if v == nil {
		return "<none>"
	}
	return v.Range().String()
}
