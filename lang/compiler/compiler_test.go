package compiler_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/occ-lang/occ/lang/compiler"
	"github.com/occ-lang/occ/lang/cpp"
	"github.com/occ-lang/occ/lang/lexer"
	"github.com/occ-lang/occ/lang/parser"
	"github.com/occ-lang/occ/lang/resolver"
	"github.com/occ-lang/occ/lang/token"
	"github.com/stretchr/testify/require"
)

func emit(t *testing.T, src string) string {
	t.Helper()
	fset := token.NewFileSet()
	f := fset.AddFile("t.c", []byte(src))
	toks, err := lexer.Tokenize("t.c", f.No, []byte(src))
	require.NoError(t, err)
	toks, err = cpp.Preprocess(context.Background(), toks, fset, cpp.Options{})
	require.NoError(t, err)
	prog, err := parser.Parse(toks, fset, nil)
	require.NoError(t, err)
	require.Empty(t, resolver.Resolve(prog))

	var buf bytes.Buffer
	require.NoError(t, compiler.Emit(&buf, prog, compiler.Options{}))
	return buf.String()
}

func TestFunctionPrologueEpilogueShape(t *testing.T) {
	out := emit(t, "int f(void) { return 1; }")
	require.Contains(t, out, "f:\n")
	require.Contains(t, out, "push rbp\n")
	require.Contains(t, out, "mov rbp, rsp\n")
	require.Contains(t, out, ".L.return.f:\n")
	require.Contains(t, out, "pop rbp\n")
	require.Contains(t, out, "ret\n")
}

func TestSimpleArithmetic(t *testing.T) {
	out := emit(t, "int f(int a, int b) { return a + b * 2; }")
	require.Contains(t, out, "imul")
	require.Contains(t, out, "add")
}

func TestBitfieldAccess(t *testing.T) {
	src := `struct s { int a : 3; int b : 5; };
int f(struct s *p) { p->b = 7; return p->b; }`
	out := emit(t, src)
	require.Contains(t, out, "and")
	require.Contains(t, out, "or")
}

func TestStructAssignment(t *testing.T) {
	src := `struct p { int x; int y; };
void f(struct p *a, struct p *b) { *a = *b; }`
	out := emit(t, src)
	require.Contains(t, out, "rep movsb")
}

func TestVariadicCall(t *testing.T) {
	src := `int printf(const char *fmt, ...);
void f(void) { printf("%d %d", 1, 2); }`
	out := emit(t, src)
	require.Contains(t, out, "call printf\n")
	require.Contains(t, out, "mov rax, 0\n")
}

func TestVaStart(t *testing.T) {
	// This test calls the compiler builtin that the predefined
	// va_start(ap, n) macro expands to, rather than the macro itself.
	src := `void f(int n, ...) {
  va_list ap;
  __builtin_va_start(ap);
}`
	out := emit(t, src)
	require.Contains(t, out, ".L.return.f:\n")
}

func TestRegisterStackBalancedAcrossNestedCalls(t *testing.T) {
	src := `int g(int x) { return x; }
int f(int a, int b) { return g(a) + g(b) * g(a + b); }`
	require.NotPanics(t, func() { emit(t, src) })
}
