// Package ast defines the parsed-tree types that the elaboration core
// consumes. It intentionally contains no lexer or parser: lexing, parsing
// and AST construction are collaborators outside this repository's scope.
// Tests in the other packages build these values directly as Go struct
// literals, the same way internal/configs tests build small hcl.Body
// fixtures without going through a real source file.
package ast

import (
	"github.com/hashicorp/hcl/v2"
)

// Kind identifies which of the design-unit forms a Definition represents.
type Kind int

const (
	KindModule Kind = iota
	KindInterface
	KindProgram
	KindPrimitive
	KindChecker
	KindPackage
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindInterface:
		return "interface"
	case KindProgram:
		return "program"
	case KindPrimitive:
		return "primitive"
	case KindChecker:
		return "checker"
	case KindPackage:
		return "package"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// NetType names a net kind usable as a scope's default net type.
type NetType string

// Lifetime is a variable/parameter lifetime qualifier.
type Lifetime int

const (
	LifetimeStatic Lifetime = iota
	LifetimeAutomatic
)

// TimeScale is the `timeunit/timeprecision` pair attached to a definition,
// inherited per the textbook rule: explicit wins, otherwise the nearest
// lexically preceding directive in the same library compilation unit,
// otherwise the global default.
type TimeScale struct {
	Unit      string
	Precision string
	Explicit  bool
}

// Definition is the parsed form of a module/interface/program/primitive/
// checker/package/config declaration, as produced by the out-of-scope
// parser.
type Definition struct {
	Kind Kind
	Name string

	Parameters []*ParameterDecl
	Ports      []*PortDecl

	// Body is the ordered list of body items belonging to this definition.
	// It is walked by the Elaborator during lazy member expansion.
	Body []BodyItem

	// Binds are bind directives lexically declared inside this definition's
	// body (as opposed to ones targeting it from elsewhere).
	Binds []*BindDirective

	// PackageImports are the header "import pkg::*;" style imports, in
	// textual order. The standard package import is implicit and is not
	// listed here; the elaborator prepends it.
	PackageImports []*PackageImport

	DefaultNetType NetType
	DefaultLife    Lifetime
	TimeScale      TimeScale

	Location hcl.Range
}

// ParameterDecl is the parsed form of a parameter/localparam declaration.
type ParameterDecl struct {
	Name          string
	IsTypeParam   bool
	IsLocalParam  bool
	IsPortParam   bool
	HasSyntax     bool
	DefaultExpr   hcl.Expression // set when this is a value parameter with a default
	DefaultType   hcl.Expression // set when this is a type parameter with a default type expression
	Location      hcl.Range
}

// PortDecl is a parsed port declaration. Direction/type detail beyond what
// the elaboration core needs (interface-port matching, default-value path
// for wildcard connections) is represented as opaque syntax handed back to
// the type-checking collaborator.
type PortDecl struct {
	Name  string
	// InterfaceDef is non-empty when this is an interface port, naming the
	// required interface (and, optionally, modport) definition.
	InterfaceDef string
	Modport      string
	Default      hcl.Expression // default connection value, if any
	Location     hcl.Range
}

// PackageImport is a header `import pkg::name;` or `import pkg::*;`.
type PackageImport struct {
	Package    string
	MemberName string // empty for wildcard import
	Wildcard   bool
	Location   hcl.Range
}

// BodyItem is any member that can appear inside a definition body. Only the
// forms that drive elaboration are modeled in detail; everything else
// passes through as an Opaque member so it is preserved verbatim in
// InstanceBody.Members.
type BodyItem interface {
	bodyItem()
}

// Opaque wraps any body content the elaboration core does not need to
// understand (statements, continuous assignments, property declarations,
// and so on). It is carried through verbatim.
type Opaque struct {
	Description string
	Location    hcl.Range
}

func (*Opaque) bodyItem() {}

// ParamMember re-surfaces a parameter declaration as a body item, for
// definitions (checkers, generate blocks) that declare parameters inline
// among other members rather than in a separate parameter port list.
type ParamMember struct {
	Decl *ParameterDecl
}

func (*ParamMember) bodyItem() {}

// InstantiationStmt is one `defName inst1(...), inst2(...);`-shaped
// statement: a single definition name instantiated as one or more named
// instances (or instance arrays), optionally library-qualified.
type InstantiationStmt struct {
	// Library is set when the name was qualified as lib.cell; ConfigRule
	// lookups bypass the liblist in that case.
	Library string

	DefName string

	// ParamConnections are the `#(...)` parameter overrides shared by every
	// instance named in this statement.
	ParamConnections []ParamConnection

	Instances []*InstanceSyntax

	Attributes []Attribute

	// IsCheckerCall marks an instantiation that must resolve via local
	// (name-scoped) lookup first, per checker-instantiation semantics.
	IsCheckerCall bool

	Location hcl.Range
}

func (*InstantiationStmt) bodyItem() {}

// ParamConnection is one parameter override in instantiation syntax, either
// ordered (Name == "") or named.
type ParamConnection struct {
	Name  string
	Value hcl.Expression
}

// Attribute is a `(* key = value *)` style attribute attached to a syntax
// node.
type Attribute struct {
	Name  string
	Value hcl.Expression
}

// InstanceSyntax is a single named instance occurrence within an
// InstantiationStmt, possibly carrying array dimensions.
type InstanceSyntax struct {
	// SyntaxID is a stable identity for this specific syntactic occurrence,
	// used to key HierarchyOverrideNode.ChildrenBySyntax. Two InstanceSyntax
	// values built from genuinely different source locations must have
	// distinct SyntaxIDs.
	SyntaxID string

	Name string

	// Dimensions holds zero or more unevaluated range expressions, evaluated
	// left to right by InstanceBuilder.
	Dimensions []hcl.Expression

	PortConnections []PortConnection
	// HasWildcardConnection records a bare `.*` in the connection list.
	HasWildcardConnection bool

	Location hcl.Range
}

// PortConnection is one `.port(expr)` or ordered `(expr)` port connection.
type PortConnection struct {
	Name string // empty for ordered connections
	// Expr is nil for an explicit empty named connection `.port()`.
	Expr     hcl.Expression
	Location hcl.Range
}

// BindDirective inserts an instantiation into another scope from outside
// that scope. Target selects which instance(s) receive it.
type BindDirective struct {
	Target BindTarget
	Stmt   *InstantiationStmt
	// Location is the source range of the bind directive itself.
	Location hcl.Range
}

// BindTarget selects where a bind directive attaches. Exactly one of the
// fields is meaningful, discriminated by Kind.
type BindTarget struct {
	Kind BindTargetKind
	// InstancePath is used when Kind == BindTargetInstancePath: a
	// dot-separated hierarchical path from a top instance.
	InstancePath []string
	// DefinitionName is used when Kind == BindTargetDefinitionName: the
	// bind applies to every instance of this definition, including ones
	// discovered after the bind directive's own textual position.
	DefinitionName string
}

type BindTargetKind int

const (
	BindTargetInstancePath BindTargetKind = iota
	BindTargetDefinitionName
)

// ExportDirective is a package `export *::*;`, `export P::*;`, or
// `export P::name;` declaration, controlling whether names imported through
// a package may be re-exported to importers of that package.
type ExportDirective struct {
	// FromPackage is "" for the `export *::*` form (re-export everything
	// imported from anywhere).
	FromPackage string
	// MemberName is "" for a wildcard export of FromPackage.
	MemberName string
	Location   hcl.Range
}

func (*ExportDirective) bodyItem() {}

// GenerateConditional models an `if/else` or `case` generate construct that
// the type-checking collaborator has already resolved to a single taken
// branch (or none). TakenBranch is walked normally by the elaborator.
// UntakenBranches holds the body items of every branch that was not taken,
// one slice per branch, so the elaborator can still discover instantiation
// statements nested inside them and turn each into an uninstantiated
// placeholder instance, instead of silently dropping them.
type GenerateConditional struct {
	TakenBranch     []BodyItem   // nil if no branch was taken
	UntakenBranches [][]BodyItem // one slice per branch not taken
	Location        hcl.Range
}

func (*GenerateConditional) bodyItem() {}
