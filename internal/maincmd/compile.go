package maincmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mna/mainer"
	"github.com/occ-lang/occ/internal/config"
	"github.com/occ-lang/occ/internal/diag"
	"github.com/occ-lang/occ/lang/compiler"
	"github.com/occ-lang/occ/lang/cpp"
	"github.com/occ-lang/occ/lang/lexer"
	"github.com/occ-lang/occ/lang/parser"
	"github.com/occ-lang/occ/lang/resolver"
	"github.com/occ-lang/occ/lang/token"
)

// defaultIncludeDirs lists the paths searched for angle-bracket includes
// after every -I path, matching the layout a GNU/Linux toolchain installs
// its own headers under.
func defaultIncludeDirs() []string {
	dir := "."
	if exe, err := os.Executable(); err == nil {
		dir = filepath.Dir(exe)
	}
	return []string{
		filepath.Join(dir, "include"),
		"/usr/local/include",
		"/usr/include/x86_64-linux-gnu",
		"/usr/include",
	}
}

// wantsDeps implements the -MD gating rule: dependency output is only
// produced when -M, -MD or -MP was explicitly given, matching documented
// GCC behavior rather than being on by default whenever -MF/-MT appear.
func (c *Cmd) wantsDeps() bool {
	return c.Deps || c.DepsMD || c.DepsPhony
}

func (c *Cmd) compile(ctx context.Context, stdio mainer.Stdio) error {
	srcPath := c.args[0]
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", srcPath, err)
	}

	srcDir := filepath.Dir(srcPath)
	env, pf, err := config.Load(srcDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfgIncludes, cfgDefines := config.Merge(env, pf)

	includeDirs := append(append([]string{}, c.IncludeDirs...), cfgIncludes...)
	includeDirs = append(includeDirs, defaultIncludeDirs()...)

	defines := map[string]string{}
	for _, d := range cfgDefines {
		name, val := splitDefine(d)
		defines[name] = val
	}
	for _, d := range c.Defines {
		name, val := splitDefine(d)
		defines[name] = val
	}

	fset := token.NewFileSet()
	f := fset.AddFile(srcPath, src)
	toks, err := lexer.Tokenize(srcPath, f.No, src)
	if err != nil {
		return err
	}

	ppOpts := cpp.Options{
		IncludePaths: includeDirs,
		Defines:      defines,
		Date:         time.Now().Format("Jan _2 2006"),
		Time:         time.Now().Format("15:04:05"),
	}
	toks, err = cpp.Preprocess(ctx, toks, fset, ppOpts)
	if err != nil {
		return err
	}

	if c.wantsDeps() {
		if err := c.writeDeps(stdio, fset, srcPath); err != nil {
			return err
		}
		if c.Deps {
			return nil
		}
	}

	if c.PreprocessOnly {
		return writePreprocessed(c.Output, toks, stdio)
	}

	d := diag.New(nil, false)
	prog, err := parser.Parse(toks, fset, d)
	if err != nil {
		return err
	}
	if errs := resolver.Resolve(prog); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(stdio.Stderr, "%s\n", e)
		}
		return fmt.Errorf("%s: resolution failed with %d error(s)", srcPath, len(errs))
	}
	if d.HasErrors() {
		fmt.Fprint(stdio.Stderr, d.Render(fset))
		return fmt.Errorf("%s: compilation failed", srcPath)
	}

	asmPath := c.outputPath(srcPath, ".s")
	if !c.AssembleOnly {
		tmp, err := os.CreateTemp("", "occ-*.s")
		if err != nil {
			return err
		}
		asmPath = tmp.Name()
		defer os.Remove(asmPath)
		if err := tmp.Close(); err != nil {
			return err
		}
	}

	asmFile, err := os.Create(asmPath)
	if err != nil {
		return err
	}
	err = compiler.Emit(asmFile, prog, compiler.Options{PIC: c.pic()})
	if cerr := asmFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	if c.AssembleOnly {
		return nil
	}

	objPath := c.outputPath(srcPath, ".o")
	assembler := env.Assembler
	if assembler == "" {
		assembler = "as"
	}
	cmd := exec.CommandContext(ctx, assembler, asmPath, "-o", objPath)
	cmd.Stdout = stdio.Stdout
	cmd.Stderr = stdio.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("assemble %s: %w", asmPath, err)
	}
	return nil
}

// outputPath resolves -o, defaulting to the source name with its extension
// replaced by ext. "-" means stdout is handled by the specific caller that
// needs it (writePreprocessed); the assembler and object-file paths always
// need a real file on disk.
func (c *Cmd) outputPath(srcPath, ext string) string {
	if c.Output != "" {
		return c.Output
	}
	base := filepath.Base(srcPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + ext
}

func splitDefine(d string) (name, val string) {
	if i := strings.IndexByte(d, '='); i >= 0 {
		return d[:i], d[i+1:]
	}
	return d, "1"
}

func writePreprocessed(path string, toks []*token.Token, stdio mainer.Stdio) error {
	var w io.Writer = stdio.Stdout
	if path != "" && path != "-" {
		out, err := os.Create(path)
		if err != nil {
			return err
		}
		defer out.Close()
		w = out
	}
	line := -1
	for _, t := range toks {
		if t.Kind == token.EOF {
			break
		}
		if t.Line != line {
			if line != -1 {
				fmt.Fprintln(w)
			}
			line = t.Line
		} else {
			fmt.Fprint(w, " ")
		}
		fmt.Fprint(w, t.Text)
	}
	fmt.Fprintln(w)
	return nil
}

// writeDeps emits a make(1) rule listing every file token.FileSet collected
// (the source plus every file #include pulled in), since the preprocessor
// itself keeps no separate include list.
func (c *Cmd) writeDeps(stdio mainer.Stdio, fset *token.FileSet, srcPath string) error {
	target := c.DepsTarget
	if target == "" {
		base := filepath.Base(srcPath)
		base = strings.TrimSuffix(base, filepath.Ext(base))
		target = base + ".o"
	}

	names := make([]string, 0, len(fset.Files()))
	seen := map[string]bool{}
	for _, f := range fset.Files() {
		if !seen[f.Name] {
			seen[f.Name] = true
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)

	var w io.Writer = stdio.Stdout
	depPath := c.DepsFile
	if depPath == "" && c.DepsMD {
		base := filepath.Base(srcPath)
		base = strings.TrimSuffix(base, filepath.Ext(base))
		depPath = base + ".d"
	}
	if depPath != "" {
		out, err := os.Create(depPath)
		if err != nil {
			return err
		}
		defer out.Close()
		w = out
	}

	fmt.Fprintf(w, "%s:", target)
	for _, n := range names {
		fmt.Fprintf(w, " \\\n  %s", n)
	}
	fmt.Fprintln(w)

	if c.DepsPhony {
		for _, n := range names {
			if n == srcPath {
				continue
			}
			fmt.Fprintf(w, "%s:\n", n)
		}
	}
	return nil
}
