// Package instances implements the Instance/InstanceArray data model, the
// ResolvedConfig per-instance configuration context, and InstanceBuilder,
// which materializes a single instance or an n-dimensional instance array
// from a definition, a parameter builder, and an override context.
//
// The dimension-expansion logic is grounded directly on the teacher's
// internal/instances/expander.go: that component expands a module call's
// count/for_each into concrete addrs.ModuleInstance keys one dimension at a
// time and tolerates an unevaluatable or absent expansion by treating the
// call as having no instances rather than aborting the whole walk. The same
// shape - evaluate, widen one dimension at a time, substitute empty on
// failure so at most one diagnostic escapes a dangling reference - applies
// here to n-dimensional `[hi:lo]` instance arrays.
package instances

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"

	"github.com/svlang/elaborate/internal/ast"
	"github.com/svlang/elaborate/internal/definitions"
	"github.com/svlang/elaborate/internal/hdlconfig"
	"github.com/svlang/elaborate/internal/overrides"
	"github.com/svlang/elaborate/internal/params"
	"github.com/svlang/elaborate/internal/sourcelib"
)

// Element is either an *Instance or an *InstanceArray: the realized result
// of one InstanceSyntax occurrence.
type Element interface {
	// elementName returns the declared instance name, or "" for an interior array
	// node (only the outermost array in a nested replication keeps the
	// user's name, per the data model).
	elementName() string
}

// ResolvedConfig is the per-instance configuration context threaded down an
// elaboration traversal rooted at one top instance bound to a config. It is
// inherited by child instances unless a more specific rule overrides it.
type ResolvedConfig struct {
	UseConfig  *hdlconfig.ConfigBlock
	Root       *Instance
	Liblist    []*sourcelib.Library
	ConfigRule *hdlconfig.ConfigRule

	// RootDepth and RootPrefix rebase an absolute hierarchy path into one
	// relative to UseConfig's own top cell, for instance-override trie
	// lookups. UseConfig's instance overrides are written against its own
	// design hierarchy (e.g. "baz.f1"), which only coincides with the real
	// hierarchy path when this ResolvedConfig was established at the real
	// top. A config reached through a mid-tree redirect (§4.7 step 4) is
	// rooted at whatever instance redirected to it, under whatever name
	// that instance happens to carry, so its trie must be addressed
	// relative to its own root instead: RootDepth is the length of the
	// absolute path at the instance that established this context, and
	// RootPrefix is the name segment(s) to substitute for it.
	RootDepth  int
	RootPrefix []string
}

// Instance is a realized occurrence of a definition in the hierarchy.
type Instance struct {
	Name           string
	Location       hcl.Range
	ArrayPath      []int
	Body           *InstanceBody
	ResolvedConfig *ResolvedConfig
	Attributes     []ast.Attribute
}

func (i *Instance) elementName() string { return i.Name }

// InstanceBody is the lazily-expanded body of an Instance.
type InstanceBody struct {
	ParentInstance        *Instance
	Definition             *definitions.Definition
	HierarchyOverrideNode  *overrides.Node
	IsUninstantiated       bool
	IsFromBind             bool
	Parameters             []*params.Symbol

	// Syntax is the InstanceSyntax this body was built from, kept around so
	// port-connection resolution (which runs lazily, separately from
	// parameter resolution) can see the original connection list. It is nil
	// for synthesized top-level roots, which have no enclosing instantiation
	// statement.
	Syntax *ast.InstanceSyntax

	// Children holds every Element instantiated directly inside this body,
	// appended by the Elaborator as it expands members. Order matches the
	// order instantiation statements were encountered, not declaration order
	// of anything else in Members.
	Children []Element

	// members and its readiness are one-shot: Unset until the Elaborator's
	// lazy member expansion runs once, then Ready. Re-entrant observation
	// during expansion returns the partially-built slice rather than
	// recursing, per §4.5's memoisation guard.
	members      []ast.BodyItem
	membersReady bool

	// portConnections memoises getPortConnections()'s result so re-entrant
	// calls (port-connection resolution for an interface port can re-enter
	// elaboration of port parameter expressions, which may call
	// getPortList again) observe the already-computed map rather than
	// redoing the work, per §4.5 and the Re-entrancy testable property.
	portConnections     map[string]ast.PortConnection
	portConnectionsReady bool
}

// SetMembers installs the fully-expanded member list exactly once. Calling
// it twice is a bug in the caller (the Elaborator), since re-entrant
// expansion must observe MembersReady and skip redoing the work.
func (b *InstanceBody) SetMembers(members []ast.BodyItem) {
	if b.membersReady {
		panic("InstanceBody.SetMembers called twice")
	}
	b.members = members
	b.membersReady = true
}

// MembersReady reports whether SetMembers has run.
func (b *InstanceBody) MembersReady() bool { return b.membersReady }

// Members returns the expanded member list, or nil before SetMembers runs.
func (b *InstanceBody) Members() []ast.BodyItem { return b.members }

// SetPortConnections installs the resolved port connection map exactly
// once; subsequent calls are no-ops, implementing the idempotent
// getPortConnections() contract from the Re-entrancy testable property.
func (b *InstanceBody) SetPortConnections(conns map[string]ast.PortConnection) {
	if b.portConnectionsReady {
		return
	}
	b.portConnections = conns
	b.portConnectionsReady = true
}

// PortConnections returns the memoised port connection map, or (nil, false)
// before it has been computed.
func (b *InstanceBody) PortConnections() (map[string]ast.PortConnection, bool) {
	return b.portConnections, b.portConnectionsReady
}

// InstanceArray represents an n-dimensional replication of an instance.
type InstanceArray struct {
	Name     string // "" for an interior node; only the outermost array keeps the user's name
	Location hcl.Range
	Lo, Hi   int // inclusive bounds; Hi < Lo for a descending range; the empty array substituted after a dimension-evaluation failure has Lo 0, Hi -1 and no Elements
	Elements []Element
}

func (a *InstanceArray) elementName() string { return a.Name }

// Len reports the number of elements the declared range implies, in either
// direction. The empty array substituted after an evaluation failure
// reports 0.
func (a *InstanceArray) Len() int {
	if a.Hi < a.Lo {
		if len(a.Elements) == 0 {
			return 0
		}
		return a.Lo - a.Hi + 1
	}
	return a.Hi - a.Lo + 1
}

// UninstantiatedDef is a placeholder used when a name cannot be resolved, or
// occurs inside an untaken generate branch. It carries the textual
// parameter/port connections for later diagnostics, rather than discarding
// them.
type UninstantiatedDef struct {
	Name                 string
	Location             hcl.Range
	AttemptedDefName     string
	ParamConnections     []ast.ParamConnection
	PortConnections      []ast.PortConnection
	UnresolvedWhyMessage string
}

func (u *UninstantiatedDef) elementName() string { return u.Name }

// RangeEvaluator evaluates one dimension's range expression to concrete
// bounds. Expression evaluation itself belongs to the type-checking
// collaborator (§1 Out of scope); the elaboration core only needs bounds
// back, plus diagnostics on failure.
type RangeEvaluator interface {
	EvalRange(expr hcl.Expression) (lo, hi int, diags hcl.Diagnostics)
}

// Builder materializes Instances/InstanceArrays from InstanceSyntax nodes.
type Builder struct {
	Definition  *definitions.Definition
	ParamBuild  *params.Builder
	ConfigCtx   *ResolvedConfig
	IsFromBind  bool
	Ranges      RangeEvaluator
	MaxArray    int // §4.4's maxInstanceArray cap; 0 means "use a conservative built-in default"
}

const defaultMaxInstanceArray = 1 << 20

// Create materializes one InstanceSyntax into an Element, descending into
// parentOverride (if non-nil) to find any matching child override node by
// syntactic identity first, then by name (§4.4). attrs carries the
// enclosing InstantiationStmt's attributes, shared by every instance (and
// every array element) the statement names.
func (b *Builder) Create(syntax *ast.InstanceSyntax, attrs []ast.Attribute, connections params.Connections, configOverrides []ast.ParamConnection, parentOverride *overrides.Node) (Element, hcl.Diagnostics) {
	var diags hcl.Diagnostics

	maxArray := b.MaxArray
	if maxArray <= 0 {
		maxArray = defaultMaxInstanceArray
	}

	if len(syntax.Dimensions) == 0 {
		overrideNode := b.lookupOverride(parentOverride, syntax, nil)
		inst, d := b.buildLeaf(syntax, syntax.Name, syntax.Location, nil, attrs, connections, configOverrides, overrideNode)
		diags = append(diags, d...)
		return inst, diags
	}

	elem, d := b.expandDimension(syntax, 0, nil, attrs, connections, configOverrides, parentOverride, maxArray)
	diags = append(diags, d...)
	if arr, ok := elem.(*InstanceArray); ok {
		arr.Name = syntax.Name // only the outermost array keeps the name
	}
	return elem, diags
}

func (b *Builder) expandDimension(
	syntax *ast.InstanceSyntax,
	dimIdx int,
	arrayPathPrefix []int,
	attrs []ast.Attribute,
	connections params.Connections,
	configOverrides []ast.ParamConnection,
	parentOverride *overrides.Node,
	maxArray int,
) (Element, hcl.Diagnostics) {
	var diags hcl.Diagnostics

	if dimIdx == len(syntax.Dimensions) {
		overrideNode := b.lookupOverride(parentOverride, syntax, arrayPathPrefix)
		return b.buildLeaf(syntax, "", syntax.Location, arrayPathPrefix, attrs, connections, configOverrides, overrideNode)
	}

	expr := syntax.Dimensions[dimIdx]
	lo, hi, rangeDiags := b.Ranges.EvalRange(expr)
	diags = append(diags, rangeDiags...)
	if rangeDiags.HasErrors() {
		return &InstanceArray{Location: syntax.Location, Lo: 0, Hi: -1}, diags
	}

	width := hi - lo + 1
	if width < 0 {
		width = lo - hi + 1
	}
	if width > maxArray {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Instance array too large",
			Detail:   fmt.Sprintf("An instance array of %d elements exceeds the configured maximum of %d.", width, maxArray),
			Subject:  expr.Range().Ptr(),
		})
		return &InstanceArray{Location: syntax.Location, Lo: 0, Hi: -1}, diags
	}

	arr := &InstanceArray{Location: syntax.Location, Lo: lo, Hi: hi}
	step := 1
	if hi < lo {
		step = -1
	}
	idx := lo
	for {
		path := append(append([]int{}, arrayPathPrefix...), idx)
		child, childDiags := b.expandDimension(syntax, dimIdx+1, path, attrs, connections, configOverrides, parentOverride, maxArray)
		diags = append(diags, childDiags...)
		arr.Elements = append(arr.Elements, child)
		if idx == hi {
			break
		}
		idx += step
	}
	return arr, diags
}

func (b *Builder) lookupOverride(parentOverride *overrides.Node, syntax *ast.InstanceSyntax, arrayPath []int) *overrides.Node {
	if parentOverride == nil {
		return nil
	}
	key := overrides.NewChildKey(syntax.SyntaxID, arrayPath)
	node, ok := parentOverride.Lookup(key, syntax.Name)
	if !ok {
		return nil
	}
	return node
}

func (b *Builder) buildLeaf(
	syntax *ast.InstanceSyntax,
	name string,
	loc hcl.Range,
	arrayPath []int,
	attrs []ast.Attribute,
	connections params.Connections,
	configOverrides []ast.ParamConnection,
	overrideNode *overrides.Node,
) (*Instance, hcl.Diagnostics) {
	symbols, diags := b.ParamBuild.Build(connections, configOverrides, overrideNode, false)

	body := &InstanceBody{
		Definition:            b.Definition,
		HierarchyOverrideNode: overrideNode,
		IsFromBind:            b.IsFromBind,
		Parameters:            symbols,
		Syntax:                syntax,
	}
	inst := &Instance{
		Name:           name,
		Location:       loc,
		ArrayPath:      arrayPath,
		Body:           body,
		ResolvedConfig: b.ConfigCtx,
		Attributes:     attrs,
	}
	body.ParentInstance = inst
	return inst, diags
}
