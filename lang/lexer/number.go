package lexer

import "github.com/occ-lang/occ/lang/token"

// scanPPNumber recognizes a pp-number: a digit or '.'-digit, followed by any
// run of [0-9a-zA-Z_.] plus the exponent-sign pairs e+/e-/E+/E-/p+/p-. It
// does not interpret the value or type — that happens once macro expansion
// has run, via lang/cpp's post-pass typing in lang/cpp/ppnum.go.
func (lx *lexer) scanPPNumber() error {
	start := lx.off
	lx.advance() // first digit or '.'
	for lx.off < len(lx.src) {
		c := lx.cur
		n := lx.peekByte(1)
		if (c == 'e' || c == 'E' || c == 'p' || c == 'P') && (n == '+' || n == '-') {
			lx.advance()
			lx.advance()
			continue
		}
		if isAlnum(c) || c == '.' {
			lx.advance()
			continue
		}
		break
	}
	lx.emit(token.PP_NUM, string(lx.src[start:lx.off]))
	return nil
}
