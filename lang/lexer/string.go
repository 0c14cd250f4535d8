package lexer

import "github.com/occ-lang/occ/lang/token"

// scanString recognizes a double-quoted string literal, decoding escapes,
// and appends the C-mandated trailing NUL to Str.
func (lx *lexer) scanString() error {
	startLine := lx.line
	lx.advance() // opening quote
	var buf []byte
	for {
		if lx.off >= len(lx.src) || lx.cur == '\n' {
			return lx.errorf("unterminated string literal starting at line %d", startLine)
		}
		if lx.cur == '"' {
			lx.advance()
			break
		}
		if lx.cur == '\\' {
			b, err := lx.readEscape()
			if err != nil {
				return err
			}
			buf = append(buf, b)
			continue
		}
		buf = append(buf, lx.cur)
		lx.advance()
	}
	buf = append(buf, 0)
	t := lx.emit(token.STRING, "")
	t.Str = buf
	return nil
}

// scanChar recognizes a single-quoted character constant. Multi-byte
// character constants ('ab') are not supported (non-goal); exactly one
// escape-decoded byte is expected between the quotes.
func (lx *lexer) scanChar() error {
	startLine := lx.line
	lx.advance() // opening quote
	var v int64
	if lx.off >= len(lx.src) {
		return lx.errorf("unterminated char literal starting at line %d", startLine)
	}
	if lx.cur == '\\' {
		b, err := lx.readEscape()
		if err != nil {
			return err
		}
		v = int64(int8(b))
	} else {
		v = int64(int8(lx.cur))
		lx.advance()
	}
	if lx.off >= len(lx.src) || lx.cur != '\'' {
		return lx.errorf("unterminated char literal starting at line %d", startLine)
	}
	lx.advance()
	t := lx.emit(token.CHAR, "")
	t.CharVal = v
	return nil
}

// readEscape decodes one backslash-escape and returns its byte value:
// octal \ooo, hex \xhh..., the standard named escapes, or \X -> X for any
// other character.
func (lx *lexer) readEscape() (byte, error) {
	lx.advance() // consume '\\'
	if lx.off >= len(lx.src) {
		return 0, lx.errorf("unterminated escape sequence")
	}
	c := lx.cur
	switch {
	case c >= '0' && c <= '7':
		v := 0
		for i := 0; i < 3 && lx.cur >= '0' && lx.cur <= '7'; i++ {
			v = v*8 + int(lx.cur-'0')
			lx.advance()
		}
		return byte(v), nil
	case c == 'x':
		lx.advance()
		if !isHex(lx.cur) {
			return 0, lx.errorf("invalid hex escape sequence")
		}
		v := 0
		for isHex(lx.cur) {
			v = v*16 + hexVal(lx.cur)
			lx.advance()
		}
		return byte(v), nil
	default:
		lx.advance()
		switch c {
		case 'a':
			return 7, nil
		case 'b':
			return 8, nil
		case 't':
			return 9, nil
		case 'n':
			return 10, nil
		case 'v':
			return 11, nil
		case 'f':
			return 12, nil
		case 'r':
			return 13, nil
		case 'e':
			return 27, nil
		case '\\', '\'', '"', '?':
			return c, nil
		default:
			return c, nil
		}
	}
}

func isHex(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexVal(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	default:
		return int(b-'A') + 10
	}
}
