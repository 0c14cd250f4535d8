// Package resolver implements a post-parse pass: it walks the whole
// translation unit once the parser has seen every top-level declaration,
// re-resolving call sites whose callee type was guessed (implicit int)
// before the real prototype or definition was reached, and re-validating
// that every goto target is reachable.
//
// This fixes the stale-FuncType problem the parser's single pass cannot
// avoid on its own: a call that appears textually before the function it
// names is declared gets "implicit declaration of function" treatment at
// parse time, but if that function does get declared later in the same
// file, the call site should use its real signature rather than the
// assumed `int f()`.
package resolver

import (
	"fmt"

	"github.com/occ-lang/occ/lang/ast"
	"github.com/occ-lang/occ/lang/ir"
)

// Resolve re-resolves every ND_FUNCALL left with a nil FuncType (an assumed
// implicit declaration) against the final set of functions known to prog,
// and re-validates every goto/label pair. It returns every unresolved goto
// it finds, though in practice the parser's own per-function check already
// catches these and Resolve will find nothing new.
func Resolve(prog *ir.Program) []error {
	var errs []error
	for _, fn := range prog.Functions {
		if fn.Body == nil {
			continue
		}
		fixupCalls(prog, fn.Body)
		errs = append(errs, checkGotos(fn)...)
	}
	return errs
}

func fixupCalls(prog *ir.Program, body *ast.Node) {
	ast.Walk(body, ast.VisitFunc(func(n *ast.Node) bool {
		if n.Kind == ast.ND_FUNCALL && n.FuncType == nil {
			if callee := prog.FindFunction(n.FuncName); callee != nil {
				n.FuncType = callee.Type
				n.Type = callee.Type.Return
			}
		}
		return true
	}))
}

// checkGotos collects every ND_LABEL and ND_GOTO in fn's body and confirms
// each goto has a matching label. The parser already performs this check
// within funcDef; this is a whole-program re-validation kept independent of
// the parser's internal bookkeeping.
func checkGotos(fn *ir.Function) []error {
	labels := map[string]bool{}
	var gotos []*ast.Node

	ast.Walk(fn.Body, ast.VisitFunc(func(n *ast.Node) bool {
		switch n.Kind {
		case ast.ND_LABEL:
			labels[n.Label] = true
		case ast.ND_GOTO:
			gotos = append(gotos, n)
		}
		return true
	}))

	var errs []error
	for _, g := range gotos {
		if !labels[g.Label] {
			errs = append(errs, fmt.Errorf("%s: use of undeclared label %q in function %q", g.Tok.Pos(), g.Label, fn.Name))
		}
	}
	return errs
}
