package main

import (
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/occ-lang/occ/internal/maincmd"
)

var (
	// placeholder values, replaced on build
	version   = "{v}" // must be N.N[.N]
	buildDate = "{d}" // must be YYYY-mm-DD
)

func main() {
	os.Exit(int(run()))
}

// run wraps Cmd.Main with a panic recovery boundary: lang/compiler and
// lang/parser panic on internal invariant violations (malformed AST shapes
// that should never reach codegen), and those are reported here as an
// ordinary failure exit instead of a raw Go stack trace.
func run() (code mainer.ExitCode) {
	stdio := mainer.CurrentStdio()
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stdio.Stderr, "occ: internal error: %v\n", r)
			code = mainer.Failure
		}
	}()
	c := maincmd.Cmd{BuildVersion: version, BuildDate: buildDate}
	return c.Main(os.Args, stdio)
}
