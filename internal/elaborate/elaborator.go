// Package elaborate implements the Elaborator: the component that walks
// from a set of top cells down through instantiation statements, resolving
// each one against the DefinitionRegistry (honoring any active
// configuration), materializing instances through InstanceBuilder, threading
// the HierarchyOverrideGraph down to each child, and applying bind
// directives - including the by-definition-name form that must reach
// instances discovered anywhere in the design, not only ones lexically
// nearby.
//
// The traversal style - recursively walk a tree of named nodes, looking up
// each child by name against a registry, memoizing expensive per-node
// results behind a ready flag - is grounded on internal/configs.Config's
// DeepEach/Descendent walk combined with internal/instances.Expander's
// per-call memoisation, adapted from a module-call tree (one child map) to
// a definition-instantiation tree (children resolved through a
// library-ordered registry, and potentially redirected by a config).
package elaborate

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/svlang/elaborate/internal/ast"
	"github.com/svlang/elaborate/internal/definitions"
	"github.com/svlang/elaborate/internal/diagutil"
	"github.com/svlang/elaborate/internal/hdlconfig"
	"github.com/svlang/elaborate/internal/instances"
	"github.com/svlang/elaborate/internal/params"
	"github.com/svlang/elaborate/internal/pkgexports"
	"github.com/svlang/elaborate/internal/sourcelib"
)

// Elaborator drives one compilation's worth of top-down elaboration.
type Elaborator struct {
	Comp   *Compilation
	Ranges instances.RangeEvaluator

	pkgs *pkgexports.Resolver

	// bindsByDefName indexes every `bind <definition-name> ...` directive
	// found anywhere in the design, assembled once before elaboration
	// begins. Because all bind directives are already parsed before
	// elaboration starts, this table is complete from the first instance
	// created onward, which is what gives by-definition-name binds their
	// "reaches instances discovered later" semantics: there is no ordering
	// problem to solve, only a lookup keyed by definition name instead of
	// by path.
	bindsByDefName map[string][]*ast.BindDirective

	// pathBinds holds every `bind <instance-path> ...` directive, applied in
	// a pass after a top's whole tree has been built, since a path bind may
	// target an instance anywhere in the hierarchy, including ones that
	// elaborate after the bind's own lexical position.
	pathBinds []*ast.BindDirective

	// matchedPathBinds records which pathBinds resolved against some top's
	// tree, so a bind naming a path that exists in no top at all can be
	// reported once, rather than once per top that failed to find it.
	matchedPathBinds map[*ast.BindDirective]bool
}

// NewElaborator constructs an Elaborator over comp, indexing allBinds (every
// BindDirective belonging to every registered definition, gathered by the
// caller ahead of time) by target kind.
func NewElaborator(comp *Compilation, ranges instances.RangeEvaluator, allBinds []*ast.BindDirective) *Elaborator {
	e := &Elaborator{
		Comp:             comp,
		Ranges:           ranges,
		bindsByDefName:   make(map[string][]*ast.BindDirective),
		matchedPathBinds: make(map[*ast.BindDirective]bool),
	}
	for _, b := range allBinds {
		switch b.Target.Kind {
		case ast.BindTargetDefinitionName:
			e.bindsByDefName[b.Target.DefinitionName] = append(e.bindsByDefName[b.Target.DefinitionName], b)
		case ast.BindTargetInstancePath:
			e.pathBinds = append(e.pathBinds, b)
		}
	}
	e.pkgs = pkgexports.NewResolver(e.elaboratePackageForExports)
	return e
}

// RegisterPackage tells the PackageExportResolver about one package
// definition's export directives, ahead of any import lookups that may
// force-elaborate it. Callers should register every package before calling
// ElaborateDesign.
func (e *Elaborator) RegisterPackage(pkg *definitions.Definition, exports []ast.ExportDirective) {
	e.pkgs.Register(pkg, exports)
}

// ElaborateDesign resolves every configured top cell (explicit, or detected
// implicitly when none were given) and elaborates each one's full tree.
func (e *Elaborator) ElaborateDesign() ([]*instances.Instance, hcl.Diagnostics) {
	var diags hcl.Diagnostics

	specs := e.Comp.Options.ExplicitTop
	if len(specs) == 0 {
		defs, d := e.detectImplicitTops()
		diags = append(diags, d...)
		for _, def := range defs {
			specs = append(specs, TopSpec{Name: def.Name()})
		}
	}

	if len(specs) == 0 {
		diags = diagutil.Errorf(diags, nil, "No top-level design unit found",
			"No --top was given and no module could be identified as an implicit top (every module is instantiated somewhere, or none qualifies).")
		return nil, diags
	}

	var tops []*instances.Instance
	seen := make(map[string]bool)
	for _, spec := range specs {
		insts, d := e.resolveTop(spec)
		diags = append(diags, d...)

		for _, inst := range insts {
			if seen[inst.Name] {
				diags = diagutil.Errorf(diags, &inst.Location, "Duplicate top instance name",
					"More than one top cell resolved to the name %q; top instance names must be unique.", inst.Name)
				continue
			}
			seen[inst.Name] = true

			d = e.elaborateInstance(inst, []string{inst.Name}, 0)
			diags = append(diags, d...)

			d = e.applyPathBinds(inst)
			diags = append(diags, d...)

			tops = append(tops, inst)
		}
	}

	// A config used as a top can fan out into several roots (Scenario 6);
	// each shares the same UseConfig, so its unresolved-override sweep is
	// reported once for the whole config, after every one of its roots has
	// had a chance to elaborate and mark the trie nodes it visited.
	reportedCfgs := make(map[*hdlconfig.ConfigBlock]bool)
	for _, inst := range tops {
		rcfg := inst.ResolvedConfig
		if rcfg == nil || rcfg.UseConfig == nil || reportedCfgs[rcfg.UseConfig] {
			continue
		}
		reportedCfgs[rcfg.UseConfig] = true
		diags = append(diags, rcfg.UseConfig.UnresolvedInstanceOverrides()...)
	}

	for _, bind := range e.pathBinds {
		if !e.matchedPathBinds[bind] {
			diags = diagutil.Warnf(diags, &bind.Location, "Bind target not found",
				"No instance at path %s was found in any elaborated top; this bind directive had no effect.", pathString(bind.Target.InstancePath))
		}
	}

	return tops, diags
}

// resolveTop resolves one TopSpec to its root Instance(s). Ordinarily this
// is exactly one instance, but a TopSpec naming a config directly fans out
// into one root per design cell that config declares (§4.7 step 4 applied
// at the top level, Scenario 6); a config naming exactly one cell that is
// itself a config is chased further down the same redirect chain first.
func (e *Elaborator) resolveTop(spec TopSpec) ([]*instances.Instance, hcl.Diagnostics) {
	var diags hcl.Diagnostics

	name := spec.Name
	if spec.Config != "" {
		name = spec.Config
	}

	res, d := e.resolveUnqualified(name, spec.Library, nil)
	diags = append(diags, d...)
	if res == nil {
		return nil, diags
	}

	if !res.IsConfig() {
		inst, d := e.buildTopInstance(spec.Name, "", res.Def, nil, nil)
		diags = append(diags, d...)
		if inst == nil {
			return nil, diags
		}
		return []*instances.Instance{inst}, diags
	}

	tops, d := e.resolveConfigRoots(res.Config, spec.Name, 0, &res.Config.Location)
	diags = append(diags, d...)
	return tops, diags
}

// resolveConfigRoots expands cfg, used as a top-level config, into one root
// Instance per entry of cfg.TopCells. A cell that itself names another
// config is chased one level further (depth-bounded against redirect
// cycles) only when cfg names exactly that one cell; a multi-cell config
// whose cell names a config has no unambiguous resolution and is reported
// rather than guessed at.
func (e *Elaborator) resolveConfigRoots(cfg *hdlconfig.ConfigBlock, explicitName string, depth int, loc *hcl.Range) ([]*instances.Instance, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	if depth > e.Comp.Options.maxRecursionDepth() {
		diags = diagutil.Errorf(diags, loc, "Config redirect loop",
			"Resolving config %q through a chain of config redirects exceeded the recursion limit; the configs likely redirect to each other in a cycle.", cfg.Name)
		return nil, diags
	}
	if len(cfg.TopCells) == 0 {
		diags = diagutil.Errorf(diags, &cfg.Location, "Invalid top-level config",
			"config %q has no design statement and cannot be used as a top.", cfg.Name)
		return nil, diags
	}

	liblist := cfg.DefaultLiblist

	var tops []*instances.Instance
	for _, cellID := range cfg.TopCells {
		next, d := e.Comp.Definitions.Lookup(cellID, e.Comp.Libraries.Default(), nil, liblist, e.globalOrder(), &cfg.Location)
		diags = append(diags, d...)
		if next == nil {
			continue
		}
		if next.IsConfig() {
			if len(cfg.TopCells) != 1 {
				diags = diagutil.Errorf(diags, &cfg.Location, "Invalid top-level config",
					"config %q names %d design cells, and %q is itself a config; a multi-cell top config's cells must each resolve to a module-like definition.",
					cfg.Name, len(cfg.TopCells), cellID.Cell)
				continue
			}
			sub, d := e.resolveConfigRoots(next.Config, explicitName, depth+1, &next.Config.Location)
			diags = append(diags, d...)
			tops = append(tops, sub...)
			continue
		}

		instName := explicitName
		if instName == "" || len(cfg.TopCells) > 1 {
			instName = next.Def.Name()
		}
		inst, d := e.buildTopInstance(instName, cellID.Cell, next.Def, cfg, liblist)
		diags = append(diags, d...)
		if inst != nil {
			tops = append(tops, inst)
		}
	}
	return tops, diags
}

// buildTopInstance constructs one top-level root Instance for def, seeding
// its ResolvedConfig (if useCfg is non-nil) and its HierarchyOverrideNode
// from the compilation's override graph. cellName is the design cell name
// useCfg's own top-cell entry names (used to address its instance-override
// trie); it may differ from instName when an explicit -top name was given.
func (e *Elaborator) buildTopInstance(instName, cellName string, def *definitions.Definition, useCfg *hdlconfig.ConfigBlock, liblist []*sourcelib.Library) (*instances.Instance, hcl.Diagnostics) {
	if instName == "" {
		instName = def.Name()
	}

	var rcfg *instances.ResolvedConfig
	if useCfg != nil {
		if cellName == "" {
			cellName = def.Name()
		}
		rcfg = &instances.ResolvedConfig{
			UseConfig:  useCfg,
			Liblist:    liblist,
			RootDepth:  1,
			RootPrefix: []string{cellName},
		}
	}

	pb := params.NewBuilder(def.Parameters())
	overrideNode, _ := e.Comp.Overrides.RootIfPresent(instName)
	symbols, diags := pb.Build(nil, nil, overrideNode, false)

	body := &instances.InstanceBody{
		Definition:            def,
		HierarchyOverrideNode: overrideNode,
		Parameters:            symbols,
	}
	inst := &instances.Instance{
		Name:           instName,
		Location:       def.Location(),
		Body:           body,
		ResolvedConfig: rcfg,
	}
	body.ParentInstance = inst
	if rcfg != nil {
		rcfg.Root = inst
	}
	return inst, diags
}

// resolveUnqualified looks up name (optionally library-qualified) from
// top-level scope, with no active configuration rule.
func (e *Elaborator) resolveUnqualified(name, library string, subject *hcl.Range) (*definitions.Resolution, hcl.Diagnostics) {
	if library != "" {
		return e.Comp.Definitions.ResolveQualified(library, name, subject)
	}
	target := hdlconfig.ConfigCellId{Cell: name}
	return e.Comp.Definitions.Lookup(target, e.Comp.Libraries.Default(), nil, nil, e.globalOrder(), subject)
}

func (e *Elaborator) globalOrder() []*sourcelib.Library {
	if e.Comp.Options.LibrarySearchOrder != nil {
		order, err := e.Comp.Libraries.ParseExplicitOrder(e.Comp.Options.LibrarySearchOrder)
		if err == nil {
			return order
		}
	}
	return e.Comp.Libraries.DefaultSearchOrder()
}

func childPath(parent []string, name string) []string {
	out := make([]string, 0, len(parent)+1)
	out = append(out, parent...)
	out = append(out, name)
	return out
}

func pathString(path []string) string {
	out := ""
	for i, seg := range path {
		if i > 0 {
			out += "."
		}
		out += seg
	}
	return out
}
