// Package lexer implements the first pipeline stage: turning a source byte
// buffer into a flat token slice. It recognizes pp-numbers, string/char
// literals, identifiers, comments, and punctuators, and records per-token
// line/column plus the has-space/at-bol flags the preprocessor needs.
package lexer

import (
	"fmt"

	"github.com/occ-lang/occ/lang/token"
)

// Error is a lexical error with source position context.
type Error struct {
	Pos token.Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// lexer is the mutable cursor state threaded through recognition functions;
// it is never exposed outside this package, an explicit context struct
// rather than module-level globals.
type lexer struct {
	file *token.File
	src  []byte
	off  int // byte offset of cur
	cur  byte

	line, col int
	atBOL     bool
	hadSpace  bool

	toks []*token.Token
}

// punctuators tried longest-first so a longer operator always wins over a
// shorter prefix of it.
var punct3 = []string{"<<=", ">>=", "..."}
var punct2 = []string{
	"==", "!=", "<=", ">=", "->", "+=", "-=", "*=", "/=", "++", "--",
	"%=", "&=", "|=", "^=", "&&", "||", "<<", ">>", "##",
}

// Tokenize runs the full recognition pass over src and returns the token
// slice, always ending with an EOF sentinel. fileNo is used to number the
// token.File for multi-file compiles (#include).
func Tokenize(filename string, fileNo int, src []byte) ([]*token.Token, error) {
	src = removeBackslashNewline(src)
	f := &token.File{Name: filename, No: fileNo, Src: src}

	lx := &lexer{file: f, src: src, line: 1, col: 1, atBOL: true}
	if len(src) > 0 {
		lx.cur = src[0]
	} else {
		lx.cur = 0
	}

	for lx.off < len(lx.src) {
		if err := lx.scanOne(); err != nil {
			return nil, err
		}
	}
	lx.emit(token.EOF, "")
	return lx.toks, nil
}

func (lx *lexer) peekByte(n int) byte {
	if lx.off+n >= len(lx.src) {
		return 0
	}
	return lx.src[lx.off+n]
}

func (lx *lexer) advance() {
	if lx.off >= len(lx.src) {
		return
	}
	if lx.src[lx.off] == '\n' {
		lx.line++
		lx.col = 1
		lx.atBOL = true
	} else {
		lx.col++
	}
	lx.off++
	if lx.off < len(lx.src) {
		lx.cur = lx.src[lx.off]
	} else {
		lx.cur = 0
	}
}

func (lx *lexer) errorf(format string, args ...any) error {
	return &Error{Pos: token.Position{Filename: lx.file.Name, Line: lx.line, Col: lx.col}, Msg: fmt.Sprintf(format, args...)}
}

func (lx *lexer) emit(kind token.Kind, text string) *token.Token {
	t := &token.Token{
		Kind: kind, Text: text, File: lx.file,
		Line: lx.line, Col: lx.col - len(text),
		HasSpace: lx.hadSpace, AtBOL: lx.atBOL,
	}
	lx.hadSpace = false
	lx.atBOL = false
	lx.toks = append(lx.toks, t)
	return t
}

func isDigit(b byte) bool  { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool  { return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
func isAlnum(b byte) bool  { return isAlpha(b) || isDigit(b) }
func isSpace(b byte) bool  { return b == ' ' || b == '\t' || b == '\v' || b == '\f' || b == '\r' }

func (lx *lexer) scanOne() error {
	switch {
	case lx.cur == '\n':
		lx.advance()
		return nil
	case isSpace(lx.cur):
		lx.hadSpace = true
		lx.advance()
		return nil
	case lx.cur == '/' && lx.peekByte(1) == '/':
		lx.skipLineComment()
		return nil
	case lx.cur == '/' && lx.peekByte(1) == '*':
		return lx.skipBlockComment()
	case isDigit(lx.cur) || (lx.cur == '.' && isDigit(lx.peekByte(1))):
		return lx.scanPPNumber()
	case lx.cur == '"':
		return lx.scanString()
	case lx.cur == '\'':
		return lx.scanChar()
	case isAlpha(lx.cur):
		lx.scanIdent()
		return nil
	default:
		return lx.scanPunct()
	}
}

func (lx *lexer) scanIdent() {
	start := lx.off
	for lx.off < len(lx.src) && isAlnum(lx.cur) {
		lx.advance()
	}
	lx.emit(token.IDENT, string(lx.src[start:lx.off]))
}

func (lx *lexer) scanPunct() error {
	rest := lx.src[lx.off:]
	for _, p := range punct3 {
		if hasPrefix(rest, p) {
			for range p {
				lx.advance()
			}
			lx.emit(token.PUNCT, p)
			return nil
		}
	}
	for _, p := range punct2 {
		if hasPrefix(rest, p) {
			for range p {
				lx.advance()
			}
			lx.emit(token.PUNCT, p)
			return nil
		}
	}
	if !isPunctByte(lx.cur) {
		return lx.errorf("invalid token: %q", rune(lx.cur))
	}
	c := lx.cur
	lx.advance()
	lx.emit(token.PUNCT, string(c))
	return nil
}

func hasPrefix(b []byte, s string) bool {
	if len(b) < len(s) {
		return false
	}
	return string(b[:len(s)]) == s
}

func isPunctByte(b byte) bool {
	switch b {
	case '+', '-', '*', '/', '%', '=', '!', '<', '>', '&', '|', '^', '~',
		'(', ')', '[', ']', '{', '}', ',', ';', ':', '.', '?', '#', '\\':
		return true
	}
	return false
}
