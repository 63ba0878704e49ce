package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/hcl/v2"
	"github.com/mitchellh/cli"

	"github.com/svlang/elaborate/internal/debugdump"
	"github.com/svlang/elaborate/internal/elaborate"
	"github.com/svlang/elaborate/internal/librarymap"
)

// ElaborateCommand wires -L, --libmap and --top into a Compilation and runs
// the Elaborator over it, printing diagnostics and exiting non-zero on any
// fatal one, per the driver contract.
type ElaborateCommand struct {
	Ui cli.Ui
}

func (c *ElaborateCommand) Help() string {
	return strings.TrimSpace(`
Usage: svelab elaborate [options]

  Elaborates a hierarchical design from a library map and reports
  diagnostics.

Options:

  -L lib1,lib2         Explicit library search order.
  -libmap FILE          Library map file to load (required).
  -top NAME[:config]    Top cell to elaborate; may be repeated. Omit to let
                        svelab detect an implicit top.
  -allow-top-iface-ports
                        Auto-instantiate a top's unconnected interface ports.
  -allow-bare-val-param-assignment
                        Accept a legacy bare-value parameter override
                        (e.g. "mod #3 u1(...)") at the parser collaborator,
                        instead of requiring "#(3)". Carried through to
                        Options for that collaborator; the core itself has
                        no parser to apply it to.
  -json                 Print the elaborated tree as JSON instead of a
                        summary line.
`)
}

func (c *ElaborateCommand) Synopsis() string {
	return "Elaborate a hierarchical design"
}

func (c *ElaborateCommand) Run(args []string) int {
	fs := flag.NewFlagSet("elaborate", flag.ContinueOnError)
	var libOrder, libmapPath string
	var tops stringSliceFlag
	var allowIfacePorts, allowBareValParam, asJSON, verbose bool
	fs.StringVar(&libOrder, "L", "", "explicit library search order, comma separated")
	fs.StringVar(&libmapPath, "libmap", "", "library map file to load")
	fs.Var(&tops, "top", "top cell to elaborate (repeatable), NAME or NAME:config")
	fs.BoolVar(&allowIfacePorts, "allow-top-iface-ports", false, "auto-instantiate unconnected top-level interface ports")
	fs.BoolVar(&allowBareValParam, "allow-bare-val-param-assignment", false, "accept a legacy bare-value parameter override at the parser collaborator")
	fs.BoolVar(&asJSON, "json", false, "print the elaborated tree as JSON")
	fs.BoolVar(&verbose, "v", false, "enable trace-level logging")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if libmapPath == "" {
		c.Ui.Error("-libmap is required")
		return 1
	}

	logger := hclog.NewNullLogger()
	if verbose {
		logger = hclog.New(&hclog.LoggerOptions{Name: "svelab", Level: hclog.Trace})
	}

	opts := elaborate.Options{
		AllowTopLevelIfacePorts:     allowIfacePorts,
		AllowBareValParamAssignment: allowBareValParam,
	}
	if libOrder != "" {
		opts.LibrarySearchOrder = strings.Split(libOrder, ",")
	}
	for _, t := range tops {
		name, cfg, _ := strings.Cut(t, ":")
		opts.ExplicitTop = append(opts.ExplicitTop, elaborate.TopSpec{Name: name, Config: cfg})
	}

	comp := elaborate.NewCompilation(opts, logger)

	entries, err := librarymap.Load(libmapPath, comp.Libraries)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("loading library map: %s", err))
		return 1
	}
	totalFiles := 0
	for _, e := range entries {
		totalFiles += len(e.Files)
		logger.Debug("loaded library", "name", e.Library.Name(), "files", len(e.Files))
	}
	c.Ui.Output(fmt.Sprintf("loaded %d librar%s, %d source file(s) matched (parsing them into definitions is outside this build's scope)",
		len(entries), plural(len(entries), "y", "ies"), totalFiles))

	el := elaborate.NewElaborator(comp, noParserRangeEvaluator{}, nil)
	tops2, diags := el.ElaborateDesign()

	for _, d := range diags {
		msg := fmt.Sprintf("%s: %s", d.Summary, d.Detail)
		if d.Severity == hcl.DiagError {
			c.Ui.Error(msg)
		} else {
			c.Ui.Warn(msg)
		}
	}

	if asJSON {
		out, err := debugdump.Marshal(debugdump.Dump(comp.ID.String(), tops2))
		if err != nil {
			c.Ui.Error(fmt.Sprintf("rendering debug dump: %s", err))
			return 1
		}
		c.Ui.Output(string(out))
	} else {
		c.Ui.Output(fmt.Sprintf("elaborated %d top instance(s)", len(tops2)))
	}

	if diags.HasErrors() {
		return 1
	}
	return 0
}

func plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// stringSliceFlag accumulates repeated -top flags into a slice.
type stringSliceFlag []string

func (s *stringSliceFlag) String() string { return strings.Join(*s, ",") }
func (s *stringSliceFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}
