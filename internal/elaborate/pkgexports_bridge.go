package elaborate

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/svlang/elaborate/internal/ast"
	"github.com/svlang/elaborate/internal/definitions"
	"github.com/svlang/elaborate/internal/pkgexports"
)

// elaboratePackageForExports is the pkgexports.Elaborator callback: it walks
// a package definition's body well enough to answer "what does this package
// declare, and what does it import from elsewhere", which is all
// PackageExportResolver needs to evaluate export directives. Name
// resolution for anything beyond parameters and header imports (typedefs,
// functions, and other package members the ast package represents only as
// opaque body content) is out of reach here, a known limitation documented
// in DESIGN.md: this repository's ast intentionally stops short of modeling
// full package member declarations, since nothing else in the elaboration
// core needs to see inside them.
func (e *Elaborator) elaboratePackageForExports(pkg *definitions.Definition) (map[string]bool, map[string]pkgexports.ImportedName, hcl.Diagnostics) {
	var diags hcl.Diagnostics

	declared := make(map[string]bool)
	for _, item := range pkg.Body() {
		if pm, ok := item.(*ast.ParamMember); ok {
			declared[pm.Decl.Name] = true
		}
	}
	for _, p := range pkg.Parameters() {
		declared[p.Name] = true
	}

	imported := make(map[string]pkgexports.ImportedName)
	for _, imp := range pkg.Syntax.PackageImports {
		if !imp.Wildcard {
			imported[imp.MemberName] = pkgexports.ImportedName{FromPackage: imp.Package}
			continue
		}
		names, d := e.pkgs.DeclaredNames(imp.Package)
		diags = append(diags, d...)
		for name := range names {
			imported[name] = pkgexports.ImportedName{FromPackage: imp.Package}
		}
	}

	return declared, imported, diags
}
