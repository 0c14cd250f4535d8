package cpp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/occ-lang/occ/lang/lexer"
	"github.com/occ-lang/occ/lang/token"
)

// Options configures one Preprocess run.
type Options struct {
	IncludePaths []string          // searched in order for <...> includes, after the including file's own directory for "..."
	Defines      map[string]string // -D NAME=VALUE, applied as object-like macros before the first token is seen
	Date, Time   string            // for __DATE__/__TIME__; callers should pass a fixed value for reproducible builds
}

// condFrame tracks one level of #if/#ifdef/#ifndef nesting.
type condFrame struct {
	tok          *token.Token
	included     bool // true if the currently-active branch should emit tokens
	everIncluded bool // true if any branch so far (including the current one) was taken
	sawElse      bool
}

// Preprocessor holds all of the preprocessor's mutable per-translation-unit
// state: the macro table, the conditional-inclusion stack, and the include
// search path list.
type Preprocessor struct {
	macros       *table
	cond         []*condFrame
	includePaths []string
	fset         *token.FileSet
	nextFileNo   int
	date, time   string
}

// Preprocess runs the full preprocessing pass over toks (as produced by
// lang/lexer) and returns the resulting token slice,
// including the post-passes (adjacent-string concatenation, pp-number
// typing, keyword re-kinding).
func Preprocess(ctx context.Context, toks []*token.Token, fset *token.FileSet, opts Options) ([]*token.Token, error) {
	p := &Preprocessor{
		macros:       newTable(),
		includePaths: opts.IncludePaths,
		fset:         fset,
		nextFileNo:   len(fset.Files()) + 1,
		date:         opts.Date,
		time:         opts.Time,
	}
	installBuiltins(p)
	for name, val := range opts.Defines {
		if err := p.defineFromFlag(name, val); err != nil {
			return nil, err
		}
	}

	out, err := p.run(ctx, toks)
	if err != nil {
		return nil, err
	}
	if len(p.cond) > 0 {
		return nil, fmt.Errorf("%s: unterminated #if", p.cond[len(p.cond)-1].tok.Pos())
	}

	out = joinAdjacentStrings(out)
	out, err = typePPNumbers(out)
	if err != nil {
		return nil, err
	}
	out = rekindKeywords(out)
	return out, nil
}

func (p *Preprocessor) including() bool {
	for _, f := range p.cond {
		if !f.included {
			return false
		}
	}
	return true
}

// run is the interleaved directive-processing/macro-expansion main loop.
func (p *Preprocessor) run(ctx context.Context, toks []*token.Token) ([]*token.Token, error) {
	var out []*token.Token
	i := 0
	for i < len(toks) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		t := toks[i]
		if t.Kind == token.EOF {
			out = append(out, t)
			break
		}
		if t.AtBOL && t.Text == "#" {
			line := t.Line
			j := i + 1
			for j < len(toks) && toks[j].Line == line && toks[j].Kind != token.EOF {
				j++
			}
			repl, err := p.directive(t, toks[i+1:j])
			if err != nil {
				return nil, err
			}
			if len(repl) > 0 {
				toks = append(append(append([]*token.Token{}, toks[:i]...), repl...), toks[j:]...)
				continue
			}
			i = j
			continue
		}

		if !p.including() {
			i++
			continue
		}

		repl, n, ok, err := p.tryExpand(toks, i)
		if err != nil {
			return nil, err
		}
		if !ok {
			out = append(out, t)
			i++
			continue
		}
		rest := append(append([]*token.Token{}, repl...), toks[i+n:]...)
		toks = append(toks[:i], rest...)
	}
	return out, nil
}

func (p *Preprocessor) defineFromFlag(name, val string) error {
	if val == "" {
		val = "1"
	}
	toks, err := lexer.Tokenize("<command-line>", 0, []byte(val))
	if err != nil {
		return err
	}
	p.macros.set(&Macro{Name: name, Body: toks[:len(toks)-1]})
	return nil
}

// searchInclude resolves an #include path: quoted includes search the
// including file's own directory first, then the include path list;
// angle-bracket includes search only the include path list.
func (p *Preprocessor) searchInclude(curDir, name string, angled bool) (string, []byte, error) {
	var dirs []string
	if !angled {
		dirs = append(dirs, curDir)
	}
	dirs = append(dirs, p.includePaths...)
	for _, d := range dirs {
		path := filepath.Join(d, name)
		if b, err := os.ReadFile(path); err == nil {
			return path, b, nil
		}
	}
	return "", nil, fmt.Errorf("%s: no such file or directory", name)
}
