// Command svelab drives hierarchical elaboration over a library-mapped
// design: it loads source libraries from a library-map file, resolves the
// configured top cells, elaborates the full instance tree, and reports
// diagnostics, following the same mitchellh/cli driver shape the teacher
// uses for its own command dispatch.
package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/cli"
)

// Ui is the cli.Ui used for all command output, matching the teacher's
// package-level Ui variable so a single instance is shared by every command.
var Ui cli.Ui

func main() {
	os.Exit(realMain())
}

func realMain() int {
	Ui = &cli.ColoredUi{
		Ui: &cli.BasicUi{
			Reader:      os.Stdin,
			Writer:      os.Stdout,
			ErrorWriter: os.Stderr,
		},
		OutputColor: cli.UiColorNone,
		ErrorColor:  cli.UiColorRed,
		WarnColor:   cli.UiColorYellow,
	}

	c := cli.NewCLI("svelab", version)
	c.Args = os.Args[1:]
	c.Commands = map[string]cli.CommandFactory{
		"elaborate": func() (cli.Command, error) {
			return &ElaborateCommand{Ui: Ui}, nil
		},
	}

	exitCode, err := c.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error executing CLI: %s\n", err)
		return 1
	}
	return exitCode
}

const version = "0.1.0"
