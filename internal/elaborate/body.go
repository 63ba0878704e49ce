package elaborate

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/hcl/v2"

	"github.com/svlang/elaborate/internal/ast"
	"github.com/svlang/elaborate/internal/definitions"
	"github.com/svlang/elaborate/internal/diagutil"
	"github.com/svlang/elaborate/internal/hdlconfig"
	"github.com/svlang/elaborate/internal/instances"
	"github.com/svlang/elaborate/internal/params"
	"github.com/svlang/elaborate/internal/sourcelib"
)

// flattenBody walks a definition's body, replacing every GenerateConditional
// with whichever branch the type-checking collaborator already selected (or
// nothing, if none was taken). Untaken-branch content never appears in the
// returned member list; elaborateInstance separately walks the original,
// unflattened body (via collectUninstantiatedStmts) to turn any
// instantiation nested inside an untaken branch into an uninstantiated
// placeholder instance rather than silently discarding it.
func flattenBody(items []ast.BodyItem) []ast.BodyItem {
	out := make([]ast.BodyItem, 0, len(items))
	for _, item := range items {
		if gc, ok := item.(*ast.GenerateConditional); ok {
			out = append(out, flattenBody(gc.TakenBranch)...)
			continue
		}
		out = append(out, item)
	}
	return out
}

// collectUninstantiatedStmts walks a definition's unflattened body and
// returns every InstantiationStmt found inside an untaken generate branch,
// at any depth: this level's conditionals, and ones nested inside the
// branch that was taken (which may itself contain further conditionals with
// their own untaken arms).
func collectUninstantiatedStmts(items []ast.BodyItem) []*ast.InstantiationStmt {
	var out []*ast.InstantiationStmt
	for _, item := range items {
		gc, ok := item.(*ast.GenerateConditional)
		if !ok {
			continue
		}
		for _, branch := range gc.UntakenBranches {
			out = append(out, allInstantiationStmts(branch)...)
		}
		out = append(out, collectUninstantiatedStmts(gc.TakenBranch)...)
	}
	return out
}

// allInstantiationStmts walks items unconditionally: once a generate branch
// is untaken, nothing beneath it is ever semantically evaluated, so a
// nested conditional's own taken/untaken split no longer matters - every
// InstantiationStmt anywhere inside it becomes an uninstantiated
// placeholder.
func allInstantiationStmts(items []ast.BodyItem) []*ast.InstantiationStmt {
	var out []*ast.InstantiationStmt
	for _, item := range items {
		switch v := item.(type) {
		case *ast.InstantiationStmt:
			out = append(out, v)
		case *ast.GenerateConditional:
			out = append(out, allInstantiationStmts(v.TakenBranch)...)
			for _, branch := range v.UntakenBranches {
				out = append(out, allInstantiationStmts(branch)...)
			}
		}
	}
	return out
}

// buildUninstantiatedPlaceholders materializes one inert Instance per
// InstanceSyntax named by stmt, found inside an untaken generate branch.
// Each body is marked IsUninstantiated so the ParameterBuilder forces every
// resolved parameter invalid (§4.3) and its members are never expanded.
// Lookup/parameter diagnostics are suppressed: content inside an untaken
// branch was never semantically live, so a dangling reference there is not
// a real error.
func (e *Elaborator) buildUninstantiatedPlaceholders(parent *instances.Instance, stmt *ast.InstantiationStmt) {
	res, _ := e.resolveUnqualified(stmt.DefName, stmt.Library, nil)
	var def *definitions.Definition
	if res != nil && !res.IsConfig() {
		def = res.Def
	}
	var decls []*ast.ParameterDecl
	if def != nil {
		decls = def.Parameters()
	}
	pb := params.NewBuilder(decls)
	for _, syntax := range stmt.Instances {
		symbols, _ := pb.Build(nil, nil, nil, true)
		body := &instances.InstanceBody{
			Definition:       def,
			IsUninstantiated: true,
			Parameters:       symbols,
			Syntax:           syntax,
		}
		placeholder := &instances.Instance{
			Name:       syntax.Name,
			Location:   syntax.Location,
			Body:       body,
			Attributes: stmt.Attributes,
		}
		body.ParentInstance = placeholder
		body.SetMembers(nil)
		body.SetPortConnections(map[string]ast.PortConnection{})
		parent.Body.Children = append(parent.Body.Children, placeholder)
	}
}

// elaborateInstance expands one instance body's members exactly once
// (MembersReady guards re-entrant calls), applies any bind-by-definition-name
// directives targeting this instance's definition, and recurses into every
// child instantiation it finds.
func (e *Elaborator) elaborateInstance(inst *instances.Instance, path []string, checkerDepth int) hcl.Diagnostics {
	body := inst.Body
	if body.MembersReady() {
		return nil
	}

	def := body.Definition
	if def == nil || def.Kind() == ast.KindPrimitive {
		body.SetMembers(nil)
		return nil
	}

	if len(path) > e.Comp.Options.maxRecursionDepth() {
		return diagutil.Errorf(nil, &inst.Location, "Elaboration recursion limit exceeded",
			"Hierarchy path %s exceeds the configured recursion depth; this usually means a definition instantiates itself without a terminating condition.", pathString(path))
	}

	members := flattenBody(def.Body())
	body.SetMembers(members)

	var diags hcl.Diagnostics

	for _, stmt := range collectUninstantiatedStmts(def.Body()) {
		e.buildUninstantiatedPlaceholders(inst, stmt)
	}

	nextCheckerDepth := checkerDepth
	if def.Kind() == ast.KindChecker {
		nextCheckerDepth++
		if nextCheckerDepth > e.Comp.Options.maxCheckerDepth() {
			return diagutil.Errorf(diags, def.Location().Ptr(), "Checker nesting too deep",
				"Checker %q nests more than %d levels deep.", def.Name(), e.Comp.Options.maxCheckerDepth())
		}
	}

	diags = append(diags, e.applyDefinitionNameBinds(inst, path, nextCheckerDepth)...)

	for _, item := range members {
		stmt, ok := item.(*ast.InstantiationStmt)
		if !ok {
			continue
		}
		if def.Kind() == ast.KindChecker && !stmt.IsCheckerCall {
			diags = diagutil.Errorf(diags, &stmt.Location, "Invalid instantiation inside checker",
				"A checker body may only instantiate other checkers, not %q.", stmt.DefName)
			continue
		}

		children, d := e.resolveInstantiationStmt(inst, path, stmt, false)
		diags = append(diags, d...)
		body.Children = append(body.Children, children...)

		for _, c := range children {
			switch v := c.(type) {
			case *instances.Instance:
				diags = append(diags, e.elaborateInstance(v, childPath(path, v.Name), nextCheckerDepth)...)
				diags = append(diags, e.resolvePortConnections(v)...)
			case *instances.InstanceArray:
				diags = append(diags, e.elaborateArray(v, v.Name, path, nextCheckerDepth)...)
			}
		}
	}

	return diags
}

func (e *Elaborator) elaborateArray(arr *instances.InstanceArray, arrayName string, parentPath []string, checkerDepth int) hcl.Diagnostics {
	var diags hcl.Diagnostics
	for _, el := range arr.Elements {
		switch v := el.(type) {
		case *instances.Instance:
			seg := fmt.Sprintf("%s[%s]", arrayName, joinInts(v.ArrayPath))
			diags = append(diags, e.elaborateInstance(v, childPath(parentPath, seg), checkerDepth)...)
			diags = append(diags, e.resolvePortConnections(v)...)
		case *instances.InstanceArray:
			diags = append(diags, e.elaborateArray(v, arrayName, parentPath, checkerDepth)...)
		}
	}
	return diags
}

func joinInts(vs []int) string {
	out := ""
	for i, v := range vs {
		if i > 0 {
			out += ","
		}
		out += strconv.Itoa(v)
	}
	return out
}

// resolveInstantiationStmt resolves every InstanceSyntax named in one
// InstantiationStmt against the DefinitionRegistry and materializes it
// through InstanceBuilder. Each syntactic occurrence is resolved
// independently so a per-instance configuration override (an instance-level
// "use" or "liblist" rule reaching only one sibling) is always honored
// correctly; this gives up the bulk fast path the algorithm permits when no
// override differs across siblings, trading a constant-factor performance
// optimization for a single, always-correct code path.
func (e *Elaborator) resolveInstantiationStmt(parent *instances.Instance, path []string, stmt *ast.InstantiationStmt, fromBind bool) ([]instances.Element, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	var elems []instances.Element

	parentCfg := parent.ResolvedConfig
	var callerLib *sourcelib.Library
	if parent.Body.Definition != nil {
		callerLib = parent.Body.Definition.Library
	}

	for _, syntax := range stmt.Instances {
		instPath := childPath(path, syntax.Name)
		rule := e.ruleForInstance(parentCfg, callerLib, stmt, instPath)

		target := definitions.TargetFromRule(stmt.DefName, rule)
		if stmt.Library != "" {
			lib, ok := e.Comp.Libraries.ByName(stmt.Library)
			if !ok {
				diags = diagutil.Errorf(diags, &stmt.Location, "Unknown library", "No source library named %q is registered.", stmt.Library)
				continue
			}
			target.Library = lib
		}

		res, d := e.Comp.Definitions.Lookup(target, callerLib, rule, inheritedLiblist(parentCfg), e.globalOrder(), &syntax.Location)
		diags = append(diags, d...)
		if res == nil {
			elems = append(elems, &instances.UninstantiatedDef{
				Name:                 syntax.Name,
				Location:             syntax.Location,
				AttemptedDefName:     stmt.DefName,
				ParamConnections:     stmt.ParamConnections,
				PortConnections:      syntax.PortConnections,
				UnresolvedWhyMessage: "definition could not be resolved",
			})
			continue
		}

		// §4.7 step 4: a resolution that names a ConfigBlock re-roots this
		// instance at a fresh configuration context instead of being
		// instantiated directly; the config's sole top cell supplies the
		// actual definition.
		var rerootCfg *instances.ResolvedConfig
		if res.IsConfig() {
			reroot, freshCfg, d := e.reRootInstantiationConfig(res.Config, &syntax.Location)
			diags = append(diags, d...)
			if reroot == nil {
				continue
			}
			res = reroot
			rerootCfg = freshCfg
			rerootCfg.RootDepth = len(instPath)
		}

		def := res.Def
		if fromBind && def.Kind() == ast.KindPrimitive {
			diags = diagutil.Errorf(diags, &stmt.Location, "Invalid bind content", "A bind directive may not instantiate a primitive.")
			continue
		}

		// §4.7 step 6: static parent/child kind containment rules.
		if parent.Body.Definition != nil && parentContainmentViolation(parent.Body.Definition.Kind(), def.Kind()) {
			diags = diagutil.Errorf(diags, &syntax.Location, "InvalidInstanceForParent",
				"Instance %q names %s %q, which cannot be instantiated inside %s %q.",
				syntax.Name, def.Kind(), def.Name(), parent.Body.Definition.Kind(), parent.Name)
			continue
		}

		var rcfg *instances.ResolvedConfig
		switch {
		case rerootCfg != nil:
			rcfg = rerootCfg
		case parentCfg != nil:
			rcfg = &instances.ResolvedConfig{
				UseConfig:  parentCfg.UseConfig,
				Root:       parentCfg.Root,
				Liblist:    effectiveChildLiblist(parentCfg, rule),
				ConfigRule: rule,
				RootDepth:  parentCfg.RootDepth,
				RootPrefix: parentCfg.RootPrefix,
			}
		}

		var configOverrides []ast.ParamConnection
		if rerootCfg == nil && rule != nil {
			configOverrides = rule.ParamOverrides
		}

		b := &instances.Builder{
			Definition: def,
			ParamBuild: params.NewBuilder(def.Parameters()),
			ConfigCtx:  rcfg,
			IsFromBind: fromBind,
			Ranges:     e.Ranges,
			MaxArray:   e.Comp.Options.MaxInstanceArray,
		}
		elem, d := b.Create(syntax, stmt.Attributes, params.Connections(stmt.ParamConnections), configOverrides, parent.Body.HierarchyOverrideNode)
		diags = append(diags, d...)
		elems = append(elems, elem)

		if rerootCfg != nil {
			if inst, ok := elem.(*instances.Instance); ok {
				rerootCfg.Root = inst
			}
		}
	}

	return elems, diags
}

// reRootInstantiationConfig implements §4.7 step 4 for a non-top
// instantiation whose resolved definition is a ConfigBlock: it chases that
// config's sole top cell - following further single-cell config-to-config
// redirects the same way a top-level config redirect does - and returns the
// definition resolution it ultimately names, plus a fresh ResolvedConfig
// rooted at the instance about to be built. A config with zero or more than
// one top cell has no unambiguous sole replacement definition and is not a
// valid redirect target here; that aborts just this occurrence.
func (e *Elaborator) reRootInstantiationConfig(cfg *hdlconfig.ConfigBlock, loc *hcl.Range) (*definitions.Resolution, *instances.ResolvedConfig, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	var liblist []*sourcelib.Library
	depth := 0
	for {
		depth++
		if depth > e.Comp.Options.maxRecursionDepth() {
			diags = diagutil.Errorf(diags, loc, "Config redirect loop",
				"Resolving config %q through a chain of config redirects exceeded the recursion limit; the configs likely redirect to each other in a cycle.", cfg.Name)
			return nil, nil, diags
		}
		if cfg.DefaultLiblist != nil {
			liblist = cfg.DefaultLiblist
		}
		target, err := cfg.RedirectTarget()
		if err != nil {
			diags = diagutil.Errorf(diags, &cfg.Location, "Invalid config redirect", "%s", err.Error())
			return nil, nil, diags
		}
		next, d := e.Comp.Definitions.Lookup(target, e.Comp.Libraries.Default(), nil, liblist, e.globalOrder(), &cfg.Location)
		diags = append(diags, d...)
		if next == nil {
			return nil, nil, diags
		}
		if !next.IsConfig() {
			// The rebuilt ResolvedConfig's trie must be addressed relative
			// to this config's own top cell name (target.Cell), not the
			// real hierarchy path of the instance that redirected here;
			// resolveInstantiationStmt fills in RootDepth once the
			// redirected instance's absolute path length is known.
			return next, &instances.ResolvedConfig{
				UseConfig:  cfg,
				Liblist:    liblist,
				RootPrefix: []string{target.Cell},
			}, diags
		}
		cfg = next.Config
	}
}

// parentContainmentViolation implements the static half of §4.7 step 6: a
// program may not contain a module; an interface may contain a module but
// not a program. (Checker containment and bind-placement rules are enforced
// elsewhere, closer to where those contexts are already tracked.)
func parentContainmentViolation(parentKind, childKind ast.Kind) bool {
	switch parentKind {
	case ast.KindProgram:
		return childKind == ast.KindModule
	case ast.KindInterface:
		return childKind == ast.KindProgram
	}
	return false
}

// ruleForInstance implements §4.7 step 3: an instance-path override in the
// active config beats a cell-name override, which beats no rule at all.
func (e *Elaborator) ruleForInstance(parentCfg *instances.ResolvedConfig, callerLib *sourcelib.Library, stmt *ast.InstantiationStmt, instPath []string) *hdlconfig.ConfigRule {
	if parentCfg == nil || parentCfg.UseConfig == nil {
		return nil
	}
	cfg := parentCfg.UseConfig
	if r := cfg.LookupInstanceOverride(configRelativePath(parentCfg, instPath)); r != nil {
		return r
	}
	return cfg.LookupCellOverride(stmt.DefName, callerLib)
}

// configRelativePath rebases an absolute hierarchy path onto cfg's own
// RootPrefix/RootDepth, so an instance-override trie built against a
// config's own top-cell name can be looked up correctly regardless of
// where in the real hierarchy that config was attached (directly at the
// real top, or re-rooted mid-tree per §4.7 step 4). A cfg with no
// RootPrefix recorded (the zero value) rebases to a no-op, which is the
// correct behavior for any ResolvedConfig built before this rebasing was
// introduced.
func configRelativePath(cfg *instances.ResolvedConfig, absPath []string) []string {
	if cfg == nil || len(cfg.RootPrefix) == 0 || len(absPath) < cfg.RootDepth {
		return absPath
	}
	out := make([]string, 0, len(cfg.RootPrefix)+len(absPath)-cfg.RootDepth)
	out = append(out, cfg.RootPrefix...)
	out = append(out, absPath[cfg.RootDepth:]...)
	return out
}

func inheritedLiblist(cfg *instances.ResolvedConfig) []*sourcelib.Library {
	if cfg == nil {
		return nil
	}
	return cfg.Liblist
}

func effectiveChildLiblist(parentCfg *instances.ResolvedConfig, rule *hdlconfig.ConfigRule) []*sourcelib.Library {
	if rule != nil && rule.Liblist != nil {
		return rule.Liblist
	}
	return parentCfg.Liblist
}

// applyDefinitionNameBinds injects every bind directive registered against
// inst's definition name, recursing into the synthesized bind content the
// same way as any other child instantiation.
func (e *Elaborator) applyDefinitionNameBinds(inst *instances.Instance, path []string, checkerDepth int) hcl.Diagnostics {
	def := inst.Body.Definition
	if def == nil {
		return nil
	}
	binds := e.bindsByDefName[def.Name()]
	if len(binds) == 0 {
		return nil
	}

	var diags hcl.Diagnostics
	for _, bind := range binds {
		if def.Kind() == ast.KindPrimitive {
			diags = diagutil.Errorf(diags, &bind.Location, "Invalid bind target",
				"Primitive definition %q cannot be the target of a bind directive.", def.Name())
			continue
		}
		if inst.Body.IsFromBind {
			diags = diagutil.Errorf(diags, &bind.Location, "Bind beneath bind",
				"A bind directive may not target an instance that was itself created by another bind.")
			continue
		}

		children, d := e.resolveInstantiationStmt(inst, path, bind.Stmt, true)
		diags = append(diags, d...)
		inst.Body.Children = append(inst.Body.Children, children...)

		for _, c := range children {
			switch v := c.(type) {
			case *instances.Instance:
				diags = append(diags, e.elaborateInstance(v, childPath(path, "(bind)."+v.Name), checkerDepth)...)
				diags = append(diags, e.resolvePortConnections(v)...)
			case *instances.InstanceArray:
				diags = append(diags, e.elaborateArray(v, v.Name, path, checkerDepth)...)
			}
		}
	}
	return diags
}

// applyPathBinds resolves every instance-path bind directive against one
// top's fully-elaborated tree, marking each match found in e.matchedPathBinds
// so ElaborateDesign can report a dangling bind target once all tops have
// been tried.
func (e *Elaborator) applyPathBinds(top *instances.Instance) hcl.Diagnostics {
	var diags hcl.Diagnostics
	for _, bind := range e.pathBinds {
		target, targetPath, ok := findByPath(top, bind.Target.InstancePath)
		if !ok {
			continue
		}
		e.matchedPathBinds[bind] = true

		def := target.Body.Definition
		if def == nil || def.Kind() == ast.KindPrimitive {
			diags = diagutil.Errorf(diags, &bind.Location, "Invalid bind target",
				"%s cannot be the target of a bind directive.", pathString(bind.Target.InstancePath))
			continue
		}
		if target.Body.IsFromBind {
			diags = diagutil.Errorf(diags, &bind.Location, "Bind beneath bind",
				"A bind directive may not target an instance that was itself created by another bind.")
			continue
		}

		children, d := e.resolveInstantiationStmt(target, targetPath, bind.Stmt, true)
		diags = append(diags, d...)
		target.Body.Children = append(target.Body.Children, children...)

		for _, c := range children {
			switch v := c.(type) {
			case *instances.Instance:
				diags = append(diags, e.elaborateInstance(v, childPath(targetPath, "(bind)."+v.Name), 0)...)
				diags = append(diags, e.resolvePortConnections(v)...)
			case *instances.InstanceArray:
				diags = append(diags, e.elaborateArray(v, v.Name, targetPath, 0)...)
			}
		}
	}
	return diags
}

// findByPath walks segs from root by plain instance name. Array elements
// are not addressable through this path form (a defparam/bind path
// component never names a generate-array index in the subset of the syntax
// this repository models), which is a known, documented limitation rather
// than an oversight; see DESIGN.md.
func findByPath(root *instances.Instance, segs []string) (*instances.Instance, []string, bool) {
	if len(segs) == 0 || segs[0] != root.Name {
		return nil, nil, false
	}
	cur := root
	path := []string{root.Name}
	for _, seg := range segs[1:] {
		found := false
		for _, c := range cur.Body.Children {
			if ci, ok := c.(*instances.Instance); ok && ci.Name == seg {
				cur = ci
				found = true
				break
			}
		}
		if !found {
			return nil, nil, false
		}
		path = append(path, seg)
	}
	return cur, path, true
}
