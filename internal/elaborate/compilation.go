package elaborate

import (
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/svlang/elaborate/internal/definitions"
	"github.com/svlang/elaborate/internal/diagutil"
	"github.com/svlang/elaborate/internal/overrides"
	"github.com/svlang/elaborate/internal/sourcelib"
)

// Compilation is the arena a single elaboration run is scoped to: every
// Definition, Instance, InstanceBody and override Node allocated while
// elaborating one design lives only as long as this struct does. There is
// deliberately no per-node handle type here - plain Go pointers stand in for
// the addrs.Xxx identifier types the teacher uses, since a whole compilation
// is thrown away at once rather than incrementally garbage collected node by
// node.
type Compilation struct {
	ID uuid.UUID

	Libraries   *sourcelib.Registry
	Definitions *definitions.Registry
	Overrides   *overrides.Graph

	Options Options
	Logger  hclog.Logger

	Diags diagutil.Sink
}

// NewCompilation wires together a fresh registry set and mints a
// Compilation.ID, used only to tag debug output; nothing in the elaboration
// algorithm itself depends on it.
func NewCompilation(opts Options, logger hclog.Logger) *Compilation {
	libs := sourcelib.NewRegistry()
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Compilation{
		ID:          uuid.New(),
		Libraries:   libs,
		Definitions: definitions.NewRegistry(libs),
		Overrides:   overrides.NewGraph(),
		Options:     opts,
		Logger:      logger,
	}
}
