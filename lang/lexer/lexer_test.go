package lexer

import (
	"testing"

	"github.com/occ-lang/occ/lang/token"
	"github.com/stretchr/testify/require"
)

func kinds(toks []*token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func texts(toks []*token.Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}

func TestTokenizeBasic(t *testing.T) {
	toks, err := Tokenize("t.c", 1, []byte("int main(){return 2+3*4;}"))
	require.NoError(t, err)
	require.Equal(t, []string{
		"int", "main", "(", ")", "{", "return", "2", "+", "3", "*", "4", ";", "}", "",
	}, texts(toks))
	require.Equal(t, token.EOF, toks[len(toks)-1].Kind)
}

func TestTokenizeMultiCharPunct(t *testing.T) {
	toks, err := Tokenize("t.c", 1, []byte("a <<= b; c ... d"))
	require.NoError(t, err)
	require.Equal(t, "<<=", toks[1].Text)
	require.Equal(t, "...", toks[5].Text)
}

func TestTokenizeStringEscape(t *testing.T) {
	toks, err := Tokenize("t.c", 1, []byte(`"a\nb\x41"`))
	require.NoError(t, err)
	require.Equal(t, token.STRING, toks[0].Kind)
	require.Equal(t, []byte{'a', '\n', 'b', 'A', 0}, toks[0].Str)
}

func TestTokenizeCharLiteral(t *testing.T) {
	toks, err := Tokenize("t.c", 1, []byte(`'\0'`))
	require.NoError(t, err)
	require.Equal(t, token.CHAR, toks[0].Kind)
	require.EqualValues(t, 0, toks[0].CharVal)
}

func TestTokenizeComments(t *testing.T) {
	toks, err := Tokenize("t.c", 1, []byte("int/*c*/x;//trailing\ny;"))
	require.NoError(t, err)
	require.Equal(t, []string{"int", "x", ";", "y", ";", ""}, texts(toks))
}

func TestTokenizeHasSpaceAtBOL(t *testing.T) {
	toks, err := Tokenize("t.c", 1, []byte("a b\nc"))
	require.NoError(t, err)
	require.True(t, toks[0].AtBOL)
	require.False(t, toks[0].HasSpace)
	require.True(t, toks[1].HasSpace)
	require.True(t, toks[2].AtBOL)
}

func TestBackslashNewlinePreservesLineNumbers(t *testing.T) {
	src := []byte("a\\\nb\nc")
	toks, err := Tokenize("t.c", 1, src)
	require.NoError(t, err)
	// "a" and "b" join onto physical line 1, but "c" must still be line 3.
	require.Equal(t, 1, toks[0].Line)
	require.Equal(t, 3, toks[2].Line)
}

func TestPPNumber(t *testing.T) {
	toks, err := Tokenize("t.c", 1, []byte("0x1Ap+3 1.5e-10 0b101"))
	require.NoError(t, err)
	require.Equal(t, token.PP_NUM, toks[0].Kind)
	require.Equal(t, "0x1Ap+3", toks[0].Text)
	require.Equal(t, "1.5e-10", toks[1].Text)
	require.Equal(t, "0b101", toks[2].Text)
}

func TestUnterminatedString(t *testing.T) {
	_, err := Tokenize("t.c", 1, []byte(`"abc`))
	require.Error(t, err)
}
