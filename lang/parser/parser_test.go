package parser_test

import (
	"context"
	"testing"

	"github.com/occ-lang/occ/internal/diag"
	"github.com/occ-lang/occ/lang/ast"
	"github.com/occ-lang/occ/lang/cpp"
	"github.com/occ-lang/occ/lang/ir"
	"github.com/occ-lang/occ/lang/lexer"
	"github.com/occ-lang/occ/lang/parser"
	"github.com/occ-lang/occ/lang/token"
	"github.com/occ-lang/occ/lang/types"
	"github.com/stretchr/testify/require"
)

func parseProgram(t *testing.T, src string, d *diag.Diag) *ir.Program {
	t.Helper()
	fset := token.NewFileSet()
	f := fset.AddFile("t.c", []byte(src))
	toks, err := lexer.Tokenize("t.c", f.No, []byte(src))
	require.NoError(t, err)
	toks, err = cpp.Preprocess(context.Background(), toks, fset, cpp.Options{})
	require.NoError(t, err)
	prog, err := parser.Parse(toks, fset, d)
	require.NoError(t, err)
	return prog
}

func TestGlobalVarWithInitializer(t *testing.T) {
	prog := parseProgram(t, "int x = 42;", nil)
	require.Len(t, prog.Globals, 1)
	require.Equal(t, "x", prog.Globals[0].Name)
	require.Equal(t, types.Int, prog.Globals[0].Type)
	require.Equal(t, int64(42), int64(prog.Globals[0].InitData[0]))
}

func TestFunctionDefinitionAndReturn(t *testing.T) {
	prog := parseProgram(t, "int add(int a, int b) { return a + b; }", nil)
	require.Len(t, prog.Functions, 1)
	fn := prog.Functions[0]
	require.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	require.True(t, fn.IsDefined)
	require.NotNil(t, fn.Body)
}

func TestStructMemberAccessAndBitfields(t *testing.T) {
	src := `struct S { int a; unsigned b:3; unsigned c:3; } s;
int use(void) { return s.a + s.b; }`
	prog := parseProgram(t, src, nil)
	require.Len(t, prog.Globals, 1)
	st := prog.Globals[0].Type
	require.Equal(t, types.STRUCT, st.Kind)
	require.Len(t, st.Members, 3)
	require.True(t, st.Members[1].IsBitfield)
	require.Equal(t, int64(3), st.Members[1].BitWidth)
}

func TestPointerArithmeticDesugaring(t *testing.T) {
	prog := parseProgram(t, "int f(int *p) { return *(p + 1); }", nil)
	fn := prog.Functions[0]
	ret := fn.Body.Body[0]
	require.Equal(t, ast.ND_RETURN, ret.Kind)
	deref := ret.Lhs
	require.Equal(t, ast.ND_DEREF, deref.Kind)
	add := deref.Lhs
	require.Equal(t, ast.ND_ADD, add.Kind)
	// The right-hand side must have been rewritten to `1 * sizeof(int)`.
	require.Equal(t, ast.ND_MUL, add.Rhs.Kind)
}

func TestImplicitFunctionDeclarationWarns(t *testing.T) {
	d := diag.New(nil, false)
	_ = parseProgram(t, "int f(void) { return g(1); }", d)
	require.False(t, d.HasErrors())
	require.NotEmpty(t, d.Entries())
}

func TestCompoundAssignmentDesugaring(t *testing.T) {
	prog := parseProgram(t, "int f(int *p) { *p += 3; return 0; }", nil)
	fn := prog.Functions[0]
	exprStmt := fn.Body.Body[0]
	require.Equal(t, ast.ND_EXPR_STMT, exprStmt.Kind)
	require.Equal(t, ast.ND_COMMA, exprStmt.Lhs.Kind)
}

func TestArrayLengthInferredFromStringInitializer(t *testing.T) {
	prog := parseProgram(t, `char msg[] = "hi";`, nil)
	// 2 characters plus the implicit NUL terminator.
	require.Equal(t, int64(3), prog.Globals[0].Type.Len)
}

func TestGotoLabelResolution(t *testing.T) {
	parseProgram(t, "void f(void) { goto done; done: return; }", nil)
}

func TestUndeclaredLabelErrors(t *testing.T) {
	fset := token.NewFileSet()
	src := "void f(void) { goto nowhere; }"
	f := fset.AddFile("t.c", []byte(src))
	toks, err := lexer.Tokenize("t.c", f.No, []byte(src))
	require.NoError(t, err)
	_, err = parser.Parse(toks, fset, nil)
	require.Error(t, err)
}
