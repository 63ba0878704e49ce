// Package overrides implements the HierarchyOverrideGraph: a trie mirroring
// the instance hierarchy that carries defparam-style parameter overrides
// and bind directives, indexed both by child-syntax identity and by child
// name (because a defparam may target either a specific syntactic
// occurrence or an unambiguous name).
//
// The dual keying mirrors the teacher's instances.expanderModule, which
// keys child module instances by addrs.ModuleInstanceStep (a syntactic,
// positional identity) while still supporting name-based traversal through
// moduleCalls; here both keys are first-class since defparam resolution,
// unlike count/for_each expansion, genuinely needs either one depending on
// how the override was written.
package overrides

import (
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/svlang/elaborate/internal/ast"
)

// ChildKey addresses one child slot beneath a Node: either a specific
// syntactic instance occurrence (by SyntaxID, with an array index when the
// occurrence is an instance array element) or, when no syntax identity is
// available to the caller, a bare child name. ArrayIndex is the comma-joined
// form of the element's array path (e.g. "2" or "1,0" for a nested array),
// not a []int, since a map key must be comparable and a slice isn't; build
// one with NewChildKey rather than joining by hand.
type ChildKey struct {
	SyntaxID   string
	ArrayIndex string // "" for a non-array instance
}

// NewChildKey builds a ChildKey for a specific syntactic occurrence,
// optionally at a specific array path (nil/empty for a scalar instance).
func NewChildKey(syntaxID string, arrayPath []int) ChildKey {
	if len(arrayPath) == 0 {
		return ChildKey{SyntaxID: syntaxID}
	}
	parts := make([]string, len(arrayPath))
	for i, v := range arrayPath {
		parts[i] = strconv.Itoa(v)
	}
	return ChildKey{SyntaxID: syntaxID, ArrayIndex: strings.Join(parts, ",")}
}

// Node is one level of the override trie, corresponding to one instance (or
// instance-array element) in the hierarchy.
type Node struct {
	// Overrides maps a dotted parameter path local to this instance's body
	// (e.g. "WIDTH" or, for an escaped hierarchical defparam landing partway
	// through a generate scope, "gen[2].WIDTH") to its override value.
	Overrides map[string]cty.Value

	Binds []*ast.BindDirective

	ChildrenBySyntax map[ChildKey]*Node
	ChildrenByName   map[string]*Node
}

// NewNode constructs an empty override node.
func NewNode() *Node {
	return &Node{
		Overrides:        make(map[string]cty.Value),
		ChildrenBySyntax: make(map[ChildKey]*Node),
		ChildrenByName:   make(map[string]*Node),
	}
}

// SetOverride records a defparam-style value override reached by
// hierarchical path, targeting a parameter local to this node's instance
// body.
func (n *Node) SetOverride(paramPath string, value cty.Value) {
	n.Overrides[paramPath] = value
}

// AddBind appends a bind directive that targets this node's instance.
func (n *Node) AddBind(b *ast.BindDirective) {
	n.Binds = append(n.Binds, b)
}

// ChildBySyntax returns (creating if necessary) the child node for a
// specific syntactic occurrence, additionally registering it under
// childName so a later lookup that only has the name can still find it.
func (n *Node) ChildBySyntax(key ChildKey, childName string) *Node {
	if child, ok := n.ChildrenBySyntax[key]; ok {
		return child
	}
	child := NewNode()
	n.ChildrenBySyntax[key] = child
	// Only register the by-name shortcut if the name is unambiguous within
	// this node, i.e. not already claimed by a different syntactic
	// occurrence (which would happen for two elements of the same instance
	// array, or two differently-named instances that happen to collide -
	// which can't happen - or generate-loop replication under one name).
	if _, exists := n.ChildrenByName[childName]; !exists {
		n.ChildrenByName[childName] = child
	} else if n.ChildrenByName[childName] != child {
		// Ambiguous: more than one syntactic occurrence shares this name.
		// Remove the shortcut so name-based lookups correctly report "no
		// unambiguous match" instead of picking one arbitrarily.
		delete(n.ChildrenByName, childName)
	}
	return child
}

// Lookup finds the child node for a syntactic occurrence, falling back to
// by-name lookup per InstanceBuilder's matching rule (§4.4): first the
// syntactic key, then the bare name, then nil.
func (n *Node) Lookup(key ChildKey, childName string) (*Node, bool) {
	if child, ok := n.ChildrenBySyntax[key]; ok {
		return child, true
	}
	if child, ok := n.ChildrenByName[childName]; ok {
		return child, true
	}
	return nil, false
}

// Graph owns the root of the override trie for one compilation's worth of
// hierarchy overrides (defparam statements and out-of-scope bind
// directives collected ahead of elaboration). A fresh Graph normally has
// one top-level Node per top instance; the Elaborator threads the relevant
// Node down through InstanceBody construction as each instance is created.
type Graph struct {
	roots map[string]*Node
}

// NewGraph constructs an empty override graph.
func NewGraph() *Graph {
	return &Graph{roots: make(map[string]*Node)}
}

// Root returns (creating if necessary) the override node for a named top
// instance.
func (g *Graph) Root(topInstanceName string) *Node {
	if n, ok := g.roots[topInstanceName]; ok {
		return n
	}
	n := NewNode()
	g.roots[topInstanceName] = n
	return n
}

// RootIfPresent returns the override node for a named top instance without
// creating one, for callers that should treat "no overrides at all" as a
// nil HierarchyOverrideNode per the data model.
func (g *Graph) RootIfPresent(topInstanceName string) (*Node, bool) {
	n, ok := g.roots[topInstanceName]
	return n, ok
}
