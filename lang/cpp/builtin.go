package cpp

import (
	"strconv"

	"github.com/occ-lang/occ/lang/lexer"
	"github.com/occ-lang/occ/lang/token"
)

// installBuiltins registers the dynamic macros (__FILE__, __LINE__,
// __DATE__, __TIME__) and the fixed list of platform predefines.
func installBuiltins(p *Preprocessor) {
	p.macros.set(&Macro{Name: "__FILE__", Handler: builtinFile})
	p.macros.set(&Macro{Name: "__LINE__", Handler: builtinLine})
	p.macros.set(&Macro{Name: "__DATE__", Handler: builtinString(p.date)})
	p.macros.set(&Macro{Name: "__TIME__", Handler: builtinString(p.time)})

	for name, val := range predefines {
		toks, err := lexer.Tokenize("<built-in>", 0, []byte(val))
		if err != nil {
			continue
		}
		p.macros.set(&Macro{Name: name, Body: toks[:len(toks)-1]})
	}

	installVaStart(p)
}

// installVaStart defines the stdarg.h `va_start(ap, last)` macro directly,
// since this compiler has no system headers to supply it: it expands to the
// single-argument `__builtin_va_start(ap)` the back-end special-cases,
// discarding the (unused, by this ABI) `last` parameter.
func installVaStart(p *Preprocessor) {
	toks, err := lexer.Tokenize("<built-in>", 0, []byte("__builtin_va_start ( ap )"))
	if err != nil {
		return
	}
	p.macros.set(&Macro{Name: "va_start", Params: []string{"ap", "last"}, Body: toks[:len(toks)-1]})
}

var predefines = map[string]string{
	"__STDC__":           "1",
	"__STDC_VERSION__":   "201112L",
	"__STDC_HOSTED__":    "1",
	"__SIZEOF_INT__":     "4",
	"__SIZEOF_LONG__":    "8",
	"__SIZEOF_SHORT__":   "2",
	"__SIZEOF_POINTER__": "8",
	"__SIZEOF_DOUBLE__":  "8",
	"__SIZEOF_FLOAT__":   "4",
	"__x86_64__":         "1",
	"__linux__":          "1",
	"__gnu_linux__":      "1",
	"__LP64__":           "1",
	"__ELF__":            "1",
	"__CHAR_BIT__":       "8",
}

func builtinFile(p *Preprocessor, callTok *token.Token) []*token.Token {
	name := "<unknown>"
	if callTok.File != nil {
		name = callTok.File.Name
	}
	nt := callTok.Clone()
	nt.Kind = token.STRING
	nt.Str = append([]byte(name), 0)
	return []*token.Token{nt}
}

func builtinLine(p *Preprocessor, callTok *token.Token) []*token.Token {
	nt := callTok.Clone()
	nt.Kind = token.NUM
	nt.IVal = int64(callTok.Line)
	nt.Text = strconv.Itoa(callTok.Line)
	return []*token.Token{nt}
}

func builtinString(s string) func(*Preprocessor, *token.Token) []*token.Token {
	return func(p *Preprocessor, callTok *token.Token) []*token.Token {
		nt := callTok.Clone()
		nt.Kind = token.STRING
		nt.Str = append([]byte(s), 0)
		return []*token.Token{nt}
	}
}
