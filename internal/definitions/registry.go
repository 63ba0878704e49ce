// Package definitions implements the DefinitionRegistry: it indexes parsed
// definitions by (name, library) and resolves a name, caller scope, and
// optional configuration rule into a concrete definition, following the
// search-order and tie-breaking algorithm in the specification's §4.1.
//
// This mirrors the way internal/configs.Config.Descendent walks a module
// tree by name, except the lookup here fans out across an ordered set of
// libraries instead of a single child map, and can be redirected by a
// configuration rule.
package definitions

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"

	"github.com/svlang/elaborate/internal/ast"
	"github.com/svlang/elaborate/internal/hdlconfig"
	"github.com/svlang/elaborate/internal/sourcelib"
)

// Definition is an immutable, registered design unit: a module, interface,
// program, primitive, checker, or package. Configs are tracked separately
// in the registry's config index and returned as *hdlconfig.ConfigBlock,
// since their internal shape (top cells, rule trie) is unrelated to a
// module-like body.
type Definition struct {
	Syntax  *ast.Definition
	Library *sourcelib.Library
}

func (d *Definition) Kind() ast.Kind            { return d.Syntax.Kind }
func (d *Definition) Name() string              { return d.Syntax.Name }
func (d *Definition) Parameters() []*ast.ParameterDecl { return d.Syntax.Parameters }
func (d *Definition) Ports() []*ast.PortDecl     { return d.Syntax.Ports }
func (d *Definition) Body() []ast.BodyItem       { return d.Syntax.Body }
func (d *Definition) Binds() []*ast.BindDirective { return d.Syntax.Binds }
func (d *Definition) Location() hcl.Range        { return d.Syntax.Location }

// Resolution is the result of a successful lookup: exactly one of Def or
// Config is set.
type Resolution struct {
	Def    *Definition
	Config *hdlconfig.ConfigBlock
}

func (r *Resolution) IsConfig() bool { return r.Config != nil }

// key is the (name, library) index key. For the default library's slot, lib
// is the sentinel returned by sourcelib.Registry.Default().
type key struct {
	name string
	lib  *sourcelib.Library
}

// Registry indexes definitions by (name, library) and answers lookups per
// §4.1. It is not safe for concurrent use.
type Registry struct {
	libs *sourcelib.Registry

	defs    map[key]*Definition
	configs map[key]*hdlconfig.ConfigBlock
}

// NewRegistry constructs an empty registry backed by the given library
// registry (used to compute default search orders).
func NewRegistry(libs *sourcelib.Registry) *Registry {
	return &Registry{
		libs:    libs,
		defs:    make(map[key]*Definition),
		configs: make(map[key]*hdlconfig.ConfigBlock),
	}
}

// Register indexes a parsed definition under (syntax.Name, lib). It is the
// caller's responsibility to ensure syntax.Kind != ast.KindConfig; use
// RegisterConfig for those.
func (r *Registry) Register(syntax *ast.Definition, lib *sourcelib.Library) *Definition {
	d := &Definition{Syntax: syntax, Library: lib}
	r.defs[key{name: syntax.Name, lib: lib}] = d
	return d
}

// RegisterConfig indexes a parsed config block under (name, lib).
func (r *Registry) RegisterConfig(cfg *hdlconfig.ConfigBlock, lib *sourcelib.Library) {
	r.configs[key{name: cfg.Name, lib: lib}] = cfg
}

// lookupInLibrary returns whichever of a module-like definition or a config
// block is registered under name in lib, or (nil, nil, false) if neither
// is.
func (r *Registry) lookupInLibrary(name string, lib *sourcelib.Library) (*Definition, *hdlconfig.ConfigBlock, bool) {
	k := key{name: name, lib: lib}
	if d, ok := r.defs[k]; ok {
		return d, nil, true
	}
	if c, ok := r.configs[k]; ok {
		return nil, c, true
	}
	return nil, nil, false
}

// ResolveQualified performs the bypass-liblist lookup for a lib.cell
// qualified name (§4.1 step 5).
func (r *Registry) ResolveQualified(libName, cell string, subject *hcl.Range) (*Resolution, hcl.Diagnostics) {
	lib, ok := r.libs.ByName(libName)
	if !ok {
		return nil, hcl.Diagnostics{&hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unknown library",
			Detail:   fmt.Sprintf("No source library named %q is registered.", libName),
			Subject:  subject,
		}}
	}
	def, cfg, ok := r.lookupInLibrary(cell, lib)
	if !ok {
		return nil, hcl.Diagnostics{&hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unknown module",
			Detail:   fmt.Sprintf("Library %q does not define a cell named %q.", libName, cell),
			Subject:  subject,
		}}
	}
	return &Resolution{Def: def, Config: cfg}, nil
}

// Lookup implements §4.1's unqualified resolution algorithm (steps 1-4 and
// 6; step 5 is ResolveQualified above).
//
// target is the (library?, cell, targetConfig) to resolve, already computed
// by the caller from rule.UseCell or the bare name per step 1.
//
// inheritedLiblist is the liblist carried by the enclosing ResolvedConfig,
// if any (nil otherwise) - step 2's third bullet. globalOrder is the
// compilation's configured library search order (explicit -L order, or the
// registry's DefaultSearchOrder) - step 2's final bullet, consulted only
// when target is unqualified, rule.Liblist is unset, and there's no
// inherited liblist.
func (r *Registry) Lookup(
	target hdlconfig.ConfigCellId,
	callerScope *sourcelib.Library,
	rule *hdlconfig.ConfigRule,
	inheritedLiblist []*sourcelib.Library,
	globalOrder []*sourcelib.Library,
	subject *hcl.Range,
) (*Resolution, hcl.Diagnostics) {
	searchOrder := r.effectiveSearchOrder(target, callerScope, rule, inheritedLiblist, globalOrder)

	for _, lib := range searchOrder {
		def, cfg, ok := r.lookupInLibrary(target.Cell, lib)
		if !ok {
			continue
		}
		if target.TargetConfig && cfg == nil {
			// A target explicitly asking for a config found a non-config
			// cell in this library; keep searching subsequent libraries
			// rather than treating this as the match.
			continue
		}
		return &Resolution{Def: def, Config: cfg}, nil
	}

	return nil, hcl.Diagnostics{&hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Unknown module",
		Detail:   fmt.Sprintf("No library in the search order %s defines a cell named %q.", describeOrder(searchOrder), target.Cell),
		Subject:  subject,
	}}
}

func (r *Registry) effectiveSearchOrder(
	target hdlconfig.ConfigCellId,
	callerScope *sourcelib.Library,
	rule *hdlconfig.ConfigRule,
	inheritedLiblist []*sourcelib.Library,
	globalOrder []*sourcelib.Library,
) []*sourcelib.Library {
	switch {
	case target.Library != nil:
		return []*sourcelib.Library{target.Library}
	case rule != nil && rule.Liblist != nil:
		return rule.Liblist
	case inheritedLiblist != nil:
		return inheritedLiblist
	default:
		order := make([]*sourcelib.Library, 0, len(globalOrder)+1)
		order = append(order, callerScope)
		for _, lib := range globalOrder {
			if lib == callerScope {
				continue
			}
			order = append(order, lib)
		}
		return order
	}
}

func describeOrder(order []*sourcelib.Library) string {
	out := "["
	for i, lib := range order {
		if i > 0 {
			out += ", "
		}
		out += lib.Name()
	}
	return out + "]"
}

// TargetFromRule computes target per §4.1 step 1: the rule's UseCell if
// set, otherwise an unqualified reference to name.
func TargetFromRule(name string, rule *hdlconfig.ConfigRule) hdlconfig.ConfigCellId {
	if rule != nil && rule.UseCell != nil {
		return *rule.UseCell
	}
	return hdlconfig.ConfigCellId{Cell: name}
}

// AllDefinitions returns every registered module-like definition, in no
// particular order, for callers that need to scan the whole design (implicit
// top-level detection, the debug dump).
func (r *Registry) AllDefinitions() []*Definition {
	out := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	return out
}

// AllConfigs returns every registered config block, in no particular order.
func (r *Registry) AllConfigs() []*hdlconfig.ConfigBlock {
	out := make([]*hdlconfig.ConfigBlock, 0, len(r.configs))
	for _, c := range r.configs {
		out = append(out, c)
	}
	return out
}
