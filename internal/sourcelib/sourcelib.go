// Package sourcelib implements the SourceLibrary registry: a named, ordered
// collection of libraries, each with a stable priority used to break ties
// when more than one library declares a cell of the same name.
package sourcelib

import "fmt"

// Library is a named source library. Identity is by pointer: two libraries
// registered with equal names are distinct, the same way two
// addrs.ModuleCall values with equal Name fields but different occurrences
// in the teacher's instances.Expander are tracked as separate expansions
// keyed by their own map entries rather than by name equality alone.
type Library struct {
	name      string
	priority  int
	isDefault bool
}

func (l *Library) Name() string    { return l.name }
func (l *Library) Priority() int   { return l.priority }
func (l *Library) IsDefault() bool { return l.isDefault }

func (l *Library) String() string {
	if l == nil {
		return "<nil library>"
	}
	return l.name
}

// defaultPriority is a sentinel value that no explicitly registered library
// receives (those count up from 0). The default library's place last in
// search order comes from DefaultSearchOrder, which appends it after every
// registered library, not from this value; a caller may still list it
// explicitly. Per the design notes, this sentinel
// is a plain field on a Library value owned by a Registry, not a package
// global, so that two Compilations never share (or race on) a "the"
// default library.
const defaultPriority = -1

// Registry is the ordered collection of libraries known to one compilation.
// It is not safe for concurrent use, matching the single-threaded
// elaboration model.
type Registry struct {
	libs      []*Library
	byName    map[string]*Library
	def       *Library
	nextOrder int
}

// NewRegistry constructs an empty registry and seeds it with the sentinel
// default library.
func NewRegistry() *Registry {
	r := &Registry{
		byName: make(map[string]*Library),
	}
	r.def = &Library{name: "(default)", priority: defaultPriority, isDefault: true}
	return r
}

// Default returns the sentinel default library for this registry.
func (r *Registry) Default() *Library {
	return r.def
}

// Register adds a new named library with the next-available priority
// (later registrations are lower priority, i.e. searched later, unless an
// explicit search order overrides this). Registering the same name twice
// produces two distinct *Library values, per the identity rule in the data
// model: the second registration shadows the first in ByName lookups but
// both remain reachable via All.
func (r *Registry) Register(name string) *Library {
	lib := &Library{name: name, priority: r.nextOrder}
	r.nextOrder++
	r.libs = append(r.libs, lib)
	r.byName[name] = lib
	return lib
}

// ByName looks up the most-recently-registered library with the given name.
// It returns (nil, false) for the default library's reserved name
// "(default)" as well as for any name never registered; callers that need the default
// library should use Default instead.
func (r *Registry) ByName(name string) (*Library, bool) {
	lib, ok := r.byName[name]
	return lib, ok
}

// All returns every explicitly registered library (not including the
// default library) in registration order.
func (r *Registry) All() []*Library {
	out := make([]*Library, len(r.libs))
	copy(out, r.libs)
	return out
}

// DefaultSearchOrder returns the registry's natural fallback search order:
// every explicitly registered library by registration order, followed by
// the sentinel default library.
func (r *Registry) DefaultSearchOrder() []*Library {
	out := make([]*Library, 0, len(r.libs)+1)
	out = append(out, r.libs...)
	out = append(out, r.def)
	return out
}

// ParseExplicitOrder resolves a `-L lib1,lib2,...` style name list into a
// concrete liblist, reporting an error for any name not registered. The
// default library may be named explicitly using its reserved name
// "(default)" or simply omitted, in which case it is NOT implicitly
// appended: an explicit order is exactly what the caller asked for.
func (r *Registry) ParseExplicitOrder(names []string) ([]*Library, error) {
	out := make([]*Library, 0, len(names))
	for _, name := range names {
		if name == r.def.name {
			out = append(out, r.def)
			continue
		}
		lib, ok := r.byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown library %q in explicit search order", name)
		}
		out = append(out, lib)
	}
	return out, nil
}
