package cpp

import (
	"context"
	"testing"

	"github.com/occ-lang/occ/lang/lexer"
	"github.com/occ-lang/occ/lang/token"
	"github.com/stretchr/testify/require"
)

func preprocess(t *testing.T, src string) string {
	t.Helper()
	fset := token.NewFileSet()
	f := fset.AddFile("t.c", []byte(src))
	toks, err := lexer.Tokenize("t.c", f.No, []byte(src))
	require.NoError(t, err)
	out, err := Preprocess(context.Background(), toks, fset, Options{Date: "Jan  1 2026", Time: "00:00:00"})
	require.NoError(t, err)
	var sb string
	for _, tok := range out {
		if tok.Kind == token.EOF {
			continue
		}
		if sb != "" {
			sb += " "
		}
		sb += spelling(tok)
	}
	return sb
}

func TestObjectLikeMacro(t *testing.T) {
	require.Equal(t, "int x = 5 ;", preprocess(t, "#define N 5\nint x = N;"))
}

func TestFunctionLikeMacro(t *testing.T) {
	got := preprocess(t, "#define ADD(a,b) ((a)+(b))\nint main(){return ADD(2,3);}")
	require.Equal(t, `int main ( ) { return ( ( 2 ) + ( 3 ) ) ; }`, got)
}

func TestRecursiveMacroStopsAtHideset(t *testing.T) {
	require.Equal(t, "X", preprocess(t, "#define X X\nX"))
}

func TestIndirectRecursiveMacro(t *testing.T) {
	// A -> B -> A must also terminate, leaving "A" unexpanded the second time.
	require.Equal(t, "A", preprocess(t, "#define A B\n#define B A\nA"))
}

func TestStringize(t *testing.T) {
	require.Equal(t, `"1+2"`, preprocess(t, "#define STR(x) #x\nSTR(1+2)"))
}

func TestTokenPaste(t *testing.T) {
	require.Equal(t, "foobar", preprocess(t, "#define CAT(a,b) a##b\nCAT(foo,bar)"))
}

func TestVariadicMacro(t *testing.T) {
	got := preprocess(t, "#define LOG(fmt, ...) printf(fmt, __VA_ARGS__)\nLOG(\"x\", 1, 2)")
	require.Equal(t, `printf ( "x" , 1 , 2 )`, got)
}

func TestUndef(t *testing.T) {
	require.Equal(t, "N", preprocess(t, "#define N 1\n#undef N\nN"))
}

func TestIfdef(t *testing.T) {
	require.Equal(t, "yes", preprocess(t, "#define FOO\n#ifdef FOO\nyes\n#else\nno\n#endif"))
}

func TestIfElifElse(t *testing.T) {
	got := preprocess(t, "#if 0\na\n#elif 1\nb\n#else\nc\n#endif")
	require.Equal(t, "b", got)
}

func TestFunctionLikeMacroWithoutParenIsIdentifier(t *testing.T) {
	// A function-like macro's name not followed by '(' must fall through to
	// being treated as a plain identifier.
	got := preprocess(t, "#define F(x) (x)\nint F;")
	require.Equal(t, "int F ;", got)
}

func TestAdjacentStringConcatenation(t *testing.T) {
	got := preprocess(t, `"ab" "cd"`)
	require.Equal(t, `"abcd"`, got)
}

func TestDefinedOperator(t *testing.T) {
	require.Equal(t, "yes", preprocess(t, "#define FOO 1\n#if defined(FOO)\nyes\n#else\nno\n#endif"))
	require.Equal(t, "no", preprocess(t, "#if defined BAR\nyes\n#else\nno\n#endif"))
}

func TestBuiltinLine(t *testing.T) {
	got := preprocess(t, "int x = __LINE__;\nint y = __LINE__;")
	require.Equal(t, "int x = 1 ; int y = 2 ;", got)
}
