package elaborate

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/svlang/elaborate/internal/ast"
	"github.com/svlang/elaborate/internal/definitions"
	"github.com/svlang/elaborate/internal/diagutil"
	"github.com/svlang/elaborate/internal/instances"
)

// resolvePortConnections computes and memoises one instance's resolved port
// connection map, implementing §4.6: diagnosing mixed ordered/named
// connections, expanding a `.*` wildcard to one implicit per-port lookup for
// every port not named explicitly, leaving an explicit empty `.port()`
// unconnected, falling back to the port's own default only for a port that
// is neither named nor covered by a wildcard, matching interface ports, and
// auto-instantiating an unconnected top-level interface port when
// the compilation allows it.
//
// It is idempotent: PortConnections()/SetPortConnections on InstanceBody
// guard re-entrant calls, which matters because resolving one interface
// port's default expression can itself need this same instance's other port
// connections (the Re-entrancy testable property).
func (e *Elaborator) resolvePortConnections(inst *instances.Instance) hcl.Diagnostics {
	if _, ready := inst.Body.PortConnections(); ready {
		return nil
	}

	def := inst.Body.Definition
	if def == nil {
		inst.Body.SetPortConnections(map[string]ast.PortConnection{})
		return nil
	}

	syntax := inst.Body.Syntax
	isTopRoot := syntax == nil
	conns := make(map[string]ast.PortConnection, len(def.Ports()))
	var diags hcl.Diagnostics

	if isTopRoot {
		// Synthesized top-level root: no connection list exists at all. Ports
		// fall back to their own declared defaults, same as an unconnected
		// named port below.
		for _, port := range def.Ports() {
			if port.Default != nil {
				conns[port.Name] = ast.PortConnection{Name: port.Name, Expr: port.Default, Location: port.Location}
			}
		}
		diags = append(diags, e.autoInstantiateUnconnectedIfacePorts(inst, def, conns)...)
		inst.Body.SetPortConnections(conns)
		return diags
	}

	hasOrdered, hasNamed := false, false
	for _, pc := range syntax.PortConnections {
		if pc.Name == "" {
			hasOrdered = true
		} else {
			hasNamed = true
		}
	}
	if hasOrdered && hasNamed {
		diags = diagutil.Errorf(diags, &syntax.Location, "Mixed port connection styles",
			"Instance %q mixes ordered and named port connections; an instantiation must use one style consistently.", syntax.Name)
	}

	switch {
	case hasOrdered:
		ports := def.Ports()
		keep := len(syntax.PortConnections)
		if def.Kind() == ast.KindPrimitive {
			var d hcl.Diagnostics
			keep, d = instances.CheckGateArity(def.Name(), syntax.Location, len(syntax.PortConnections), len(ports))
			diags = append(diags, d...)
		}
		for i, pc := range syntax.PortConnections {
			if i >= keep {
				break
			}
			if i >= len(ports) {
				diags = diagutil.Errorf(diags, &pc.Location, "Too many port connections",
					"This instantiation supplies more ordered port connections than %q declares ports.", def.Name())
				break
			}
			conns[ports[i].Name] = pc
		}

	default:
		named := make(map[string]ast.PortConnection, len(syntax.PortConnections))
		for _, pc := range syntax.PortConnections {
			named[pc.Name] = pc
		}
		for _, port := range def.Ports() {
			pc, explicit := named[port.Name]
			switch {
			case explicit && pc.Expr != nil:
				conns[port.Name] = pc
			case explicit:
				// `.port()`: explicitly left unconnected. Does not fall
				// through to a wildcard lookup or a declared default.
			case syntax.HasWildcardConnection:
				conns[port.Name] = ast.PortConnection{Name: port.Name, Expr: implicitNetRefExpr(port.Name, syntax.Location), Location: syntax.Location}
			case port.Default != nil:
				conns[port.Name] = ast.PortConnection{Name: port.Name, Expr: port.Default, Location: port.Location}
			}
			delete(named, port.Name)
		}
		for name, pc := range named {
			diags = diagutil.Errorf(diags, &pc.Location, "Unknown port",
				"%q declares no port named %q.", def.Name(), name)
		}
	}

	inst.Body.SetPortConnections(conns)
	return diags
}

// autoInstantiateUnconnectedIfacePorts implements the AllowTopLevelIfacePorts
// compatibility behavior: a top instance's interface port left without a
// connection is bound to a freshly instantiated interface rather than
// treated as an error, since a top has no enclosing scope to supply one.
func (e *Elaborator) autoInstantiateUnconnectedIfacePorts(inst *instances.Instance, def *definitions.Definition, conns map[string]ast.PortConnection) hcl.Diagnostics {
	if !e.Comp.Options.AllowTopLevelIfacePorts {
		return nil
	}
	var diags hcl.Diagnostics
	for _, port := range def.Ports() {
		if port.InterfaceDef == "" {
			continue
		}
		if _, connected := conns[port.Name]; connected {
			continue
		}
		child, d := e.autoInstantiateInterfacePort(inst, port)
		diags = append(diags, d...)
		if child != nil {
			inst.Body.Children = append(inst.Body.Children, child)
			diags = append(diags, e.elaborateInstance(child, []string{inst.Name, child.Name}, 0)...)
			diags = append(diags, e.resolvePortConnections(child)...)
			conns[port.Name] = ast.PortConnection{Name: port.Name, Expr: implicitNetRefExpr(child.Name, port.Location), Location: port.Location}
		}
	}
	return diags
}

// autoInstantiateInterfacePort synthesizes an anonymous instance of an
// unconnected top-level interface port's required interface definition, the
// compatibility behavior AllowTopLevelIfacePorts exists to provide (tools
// commonly auto-bind a top's own interface ports to freshly instantiated
// interfaces rather than requiring a wrapping testbench module).
func (e *Elaborator) autoInstantiateInterfacePort(parent *instances.Instance, port *ast.PortDecl) (*instances.Instance, hcl.Diagnostics) {
	res, diags := e.resolveUnqualified(port.InterfaceDef, "", &port.Location)
	if res == nil || res.IsConfig() || res.Def.Kind() != ast.KindInterface {
		diags = diagutil.Errorf(diags, &port.Location, "Cannot auto-instantiate interface port",
			"Port %q requires interface %q, which could not be resolved to an interface definition.", port.Name, port.InterfaceDef)
		return nil, diags
	}

	name := fmt.Sprintf("__auto_%s", port.Name)
	body := &instances.InstanceBody{Definition: res.Def}
	child := &instances.Instance{Name: name, Location: port.Location, Body: body, ResolvedConfig: parent.ResolvedConfig}
	body.ParentInstance = child
	return child, diags
}

// implicitNetRefExpr stands in for a `.*` wildcard connection or an
// auto-instantiated interface port connection: an expression whose only job
// is to name a single identifier in the enclosing scope, evaluated by the
// type-checking collaborator exactly as if the user had written
// `.port(port)` or `.port(instanceName)` by hand.
func implicitNetRefExpr(name string, rng hcl.Range) hcl.Expression {
	return implicitRefExpr{name: name, rng: rng}
}

type implicitRefExpr struct {
	name string
	rng  hcl.Range
}

func (e implicitRefExpr) Value(*hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
	return cty.DynamicVal, nil
}

func (e implicitRefExpr) Variables() []hcl.Traversal {
	return []hcl.Traversal{{
		hcl.TraverseRoot{Name: e.name, SrcRange: e.rng},
	}}
}

func (e implicitRefExpr) Range() hcl.Range { return e.rng }

func (e implicitRefExpr) StartRange() hcl.Range { return e.rng }
