package resolver_test

import (
	"context"
	"testing"

	"github.com/occ-lang/occ/lang/ast"
	"github.com/occ-lang/occ/lang/cpp"
	"github.com/occ-lang/occ/lang/lexer"
	"github.com/occ-lang/occ/lang/parser"
	"github.com/occ-lang/occ/lang/resolver"
	"github.com/occ-lang/occ/lang/token"
	"github.com/stretchr/testify/require"
)

func TestForwardCallResolvedToRealSignature(t *testing.T) {
	src := `int caller(void) { return callee(1); }
double callee(double x) { return x; }`
	fset := token.NewFileSet()
	f := fset.AddFile("t.c", []byte(src))
	toks, err := lexer.Tokenize("t.c", f.No, []byte(src))
	require.NoError(t, err)
	toks, err = cpp.Preprocess(context.Background(), toks, fset, cpp.Options{})
	require.NoError(t, err)
	prog, err := parser.Parse(toks, fset, nil)
	require.NoError(t, err)

	caller := prog.FindFunction("caller")
	require.NotNil(t, caller)

	errs := resolver.Resolve(prog)
	require.Empty(t, errs)

	callee := prog.FindFunction("callee")
	require.NotNil(t, callee)

	var call *ast.Node
	ast.Walk(caller.Body, ast.VisitFunc(func(n *ast.Node) bool {
		if n.Kind == ast.ND_FUNCALL && n.FuncName == "callee" {
			call = n
		}
		return true
	}))
	require.NotNil(t, call)
	require.Same(t, callee.Type, call.FuncType)
}

func TestGotoStillValidatedAfterResolve(t *testing.T) {
	src := "void f(void) { goto done; done: return; }"
	fset := token.NewFileSet()
	f := fset.AddFile("t.c", []byte(src))
	toks, err := lexer.Tokenize("t.c", f.No, []byte(src))
	require.NoError(t, err)
	prog, err := parser.Parse(toks, fset, nil)
	require.NoError(t, err)

	errs := resolver.Resolve(prog)
	require.Empty(t, errs)
}
