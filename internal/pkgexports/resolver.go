// Package pkgexports implements wildcard/explicit re-export handling across
// packages during import lookup, including the cyclic-import tolerance
// described in the design notes: package A may import package B which
// exports back into A, resolved via force-elaboration plus memoisation,
// guarded by an in-progress flag so a cyclic lookup returns "not found"
// rather than looping.
package pkgexports

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/svlang/elaborate/internal/ast"
	"github.com/svlang/elaborate/internal/definitions"
)

// state is the one-shot lazy-field cell described in the design notes:
// Unset | InProgress | Ready(T).
type state int

const (
	stateUnset state = iota
	stateInProgress
	stateReady
)

// ImportedName records where one name visible inside a package actually
// came from, for export-rule evaluation.
type ImportedName struct {
	FromPackage string
}

// Elaborator force-elaborates a package's body on first demand so its
// wildcard imports can be discovered, returning the names declared
// directly in the package and the names it imports (mapped to their
// source package). This is supplied by the Elaborator, which is the only
// component that knows how to walk a package body; pkgexports only needs
// the result.
type Elaborator func(pkg *definitions.Definition) (declared map[string]bool, imported map[string]ImportedName, diags hcl.Diagnostics)

type packageInfo struct {
	def      *definitions.Definition
	state    state
	declared map[string]bool
	imported map[string]ImportedName
	exports  []ast.ExportDirective
}

// Resolver tracks per-package lazy elaboration state and answers whether a
// name reached via an import of a package may be re-exported by it.
type Resolver struct {
	elaborate Elaborator
	infos     map[string]*packageInfo // keyed by package name
}

// NewResolver constructs a resolver that force-elaborates packages on
// demand using elaborate.
func NewResolver(elaborate Elaborator) *Resolver {
	return &Resolver{elaborate: elaborate, infos: make(map[string]*packageInfo)}
}

// Register records a package's export directives ahead of any lookups.
func (r *Resolver) Register(def *definitions.Definition, exports []ast.ExportDirective) {
	r.infos[def.Name()] = &packageInfo{def: def, exports: exports}
}

// Lookup resolves name within pkg, force-elaborating it on first demand.
// It returns the package the name ultimately resolves to (pkg itself for a
// directly-declared name, or the source package for a re-exported import)
// and whether the lookup succeeded.
func (r *Resolver) Lookup(pkgName, name string) (sourcePackage string, ok bool, diags hcl.Diagnostics) {
	info, known := r.infos[pkgName]
	if !known {
		return "", false, nil
	}

	if info.declared != nil && info.declared[name] {
		return pkgName, true, nil
	}

	switch info.state {
	case stateInProgress:
		// Cyclic lookup: A imports B which (transitively) asks about A
		// again before A has finished elaborating. Report "not found"
		// rather than recursing forever; the caller that started the cycle
		// will see its own wildcard import come up empty for this name,
		// which is the correct outcome for a name that genuinely isn't
		// declared anywhere outside the cycle.
		return "", false, nil
	case stateUnset:
		info.state = stateInProgress
		declared, imported, d := r.elaborate(info.def)
		diags = append(diags, d...)
		info.declared = declared
		info.imported = imported
		info.state = stateReady
	}

	if info.declared[name] {
		return pkgName, true, diags
	}

	imp, ok := info.imported[name]
	if !ok {
		return "", false, diags
	}
	if !r.isReExportable(info, imp, name) {
		return "", false, diags
	}

	// The name is re-exportable; resolve it transitively in case it passed
	// through more than one package.
	src, found, d := r.Lookup(imp.FromPackage, name)
	diags = append(diags, d...)
	if !found {
		return "", false, diags
	}
	return src, true, diags
}

// DeclaredNames force-elaborates pkgName on first demand and returns the set
// of names it declares directly (not names it merely imports or
// re-exports). Callers use this to expand a wildcard `import pkg::*;`
// without needing to ask about one name at a time; a cyclic request (pkgName
// is already being elaborated higher up the same call stack) returns an
// empty set rather than recursing, the same tolerance Lookup applies.
func (r *Resolver) DeclaredNames(pkgName string) (map[string]bool, hcl.Diagnostics) {
	info, ok := r.infos[pkgName]
	if !ok {
		return nil, nil
	}
	if info.state == stateInProgress {
		return nil, nil
	}
	if info.state == stateUnset {
		info.state = stateInProgress
		declared, imported, diags := r.elaborate(info.def)
		info.declared = declared
		info.imported = imported
		info.state = stateReady
		return declared, diags
	}
	return info.declared, nil
}

func (r *Resolver) isReExportable(info *packageInfo, imp ImportedName, name string) bool {
	for _, ex := range info.exports {
		if ex.FromPackage == "" {
			return true // export *::*
		}
		if ex.FromPackage != imp.FromPackage {
			continue
		}
		if ex.MemberName == "" || ex.MemberName == name {
			return true // export P::* or export P::name
		}
	}
	return false
}
