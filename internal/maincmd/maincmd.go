// Package maincmd implements the occ command-line driver: flag parsing,
// default output naming, and the temp-file/external-assembler invocation
// around the core pipeline in lang/lexer, lang/cpp, lang/parser,
// lang/resolver and lang/compiler.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/mainer"
)

const binName = "occ"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <file>
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <file>
       %[1]s -h|--help

A compiler for a substantial subset of C, emitting GNU-assembler-compatible
x86-64 text.

Valid flag options are:
       -o <path>                 Output path. With -E, '-' means stdout; with
                                 -S or -c, '-' is used as a file name.
                                 Default: the input filename with '.c'
                                 replaced by '.o' or '.s'.
       -S                        Stop after assembly generation; do not run
                                 the assembler.
       -c                        Compile to an object file (the default
                                 terminal step, since this compiler does not
                                 link).
       -E                        Preprocess only; write expanded tokens to
                                 stdout.
       -M                        Emit a make dependency rule instead of
                                 compiling.
       -MD                       Emit make dependency information alongside
                                 normal compilation.
       -MP                       Add phony targets for each dependency.
       -MT <target>              Override the dependency rule's target name.
       -MF <path>                Write dependency output to <path> instead of
                                 stdout/the default '.d' path.
       -I<dir>                   Append an include search path.
       -D<name>[=<value>]        Pre-define a macro.
       -fpic, -fPIC              Emit position-independent code.
       -fno-pic, -fno-PIC        Disable position-independent code (default).
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
`, binName)
)

// Cmd holds the driver's parsed flags and positional arguments, following
// mainer's struct-tag convention.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Output string `flag:"o"`

	AssembleOnly   bool `flag:"S"`
	CompileOnly    bool `flag:"c"`
	PreprocessOnly bool `flag:"E"`

	Deps       bool   `flag:"M"`
	DepsMD     bool   `flag:"MD"`
	DepsPhony  bool   `flag:"MP"`
	DepsTarget string `flag:"MT"`
	DepsFile   string `flag:"MF"`

	IncludeDirs []string `flag:"I"`
	Defines     []string `flag:"D"`

	PIC1   bool `flag:"fpic"`
	PIC2   bool `flag:"fPIC"`
	NoPIC1 bool `flag:"fno-pic"`
	NoPIC2 bool `flag:"fno-PIC"`

	args  []string
	flags map[string]bool
}

func (c *Cmd) SetArgs(args []string)        { c.args = args }
func (c *Cmd) SetFlags(flags map[string]bool) { c.flags = flags }

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) == 0 {
		return errors.New("no input file specified")
	}
	if len(c.args) > 1 {
		return fmt.Errorf("only one input file is supported, got %d", len(c.args))
	}
	if (c.flags["fpic"] || c.flags["fPIC"]) && (c.flags["fno-pic"] || c.flags["fno-PIC"]) {
		return errors.New("-fpic/-fPIC and -fno-pic/-fno-PIC are mutually exclusive")
	}
	return nil
}

// pic resolves the effective PIC setting: -fno-pic/-fno-PIC is the default,
// so only an explicit -fpic/-fPIC turns it on (Validate already rejects
// combining -fpic/-fPIC with -fno-pic/-fno-PIC).
func (c *Cmd) pic() bool {
	return c.PIC1 || c.PIC2
}

func printError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s: %s\n", binName, err)
	}
	return err
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := printError(stdio, c.compile(ctx, stdio)); err != nil {
		return mainer.Failure
	}
	return mainer.Success
}
