// Package parser implements the recursive-descent parser and combined type
// checker: it consumes the preprocessor's typed, keyword-rekinded token
// slice and produces an *ir.Program, performing declarator disambiguation,
// initializer lowering, constant folding and usual-arithmetic-conversion
// insertion along the way.
package parser

import (
	"fmt"

	"github.com/occ-lang/occ/internal/diag"
	"github.com/occ-lang/occ/lang/ast"
	"github.com/occ-lang/occ/lang/ir"
	"github.com/occ-lang/occ/lang/token"
	"github.com/occ-lang/occ/lang/types"
)

// parser holds all per-translation-unit state, threaded explicitly instead
// of through package-level globals.
type parser struct {
	toks []*token.Token
	pos  int
	fset *token.FileSet
	diag *diag.Diag

	scopes *scopeStack

	prog *ir.Program

	curFn      *ir.Function
	curFnLabel int // counter for unique goto/switch/string labels within this function

	gotos  []*ast.Node // pending goto statements, resolved against labels at function end
	labels []*ast.Node

	breakLabels    []string
	continueLabels []string

	curSwitchCases   *[]*ast.Node
	curSwitchDefault *ast.Node

	stringLabel int
	anonLabel   int
}

// Parse runs the full parser/type-checker pass over toks and returns the
// resulting program. err is non-nil only for a fatal diagnostic; non-fatal
// diagnostics are recorded on d and do not stop parsing.
func Parse(toks []*token.Token, fset *token.FileSet, d *diag.Diag) (prog *ir.Program, err error) {
	if d == nil {
		d = diag.New(nil, false)
	}
	p := &parser{
		toks:   toks,
		fset:   fset,
		diag:   d,
		scopes: newScopeStack(),
		prog:   &ir.Program{},
	}
	installBuiltinTypedefs(p)
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(parseError); ok {
				err = fmt.Errorf("%s", pe.msg)
				return
			}
			panic(r)
		}
	}()
	p.program()
	return p.prog, nil
}

// parseError is the type panicked by p.errorf to unwind to Parse's recover,
// mirroring the source material's longjmp-on-fatal-error behavior without
// needing a sentinel error value threaded through every return.
type parseError struct{ msg string }

func (p *parser) errorf(tok *token.Token, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	pos := tok.Pos()
	p.diag.Errorf(pos, "%s", msg)
	panic(parseError{msg: fmt.Sprintf("%s: %s", pos, msg)})
}

func (p *parser) warnf(tok *token.Token, format string, args ...any) {
	p.diag.Warnf(tok.Pos(), format, args...)
}

func (p *parser) cur() *token.Token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return &token.Token{Kind: token.EOF}
}

func (p *parser) peek(n int) *token.Token {
	i := p.pos + n
	if i < len(p.toks) {
		return p.toks[i]
	}
	return &token.Token{Kind: token.EOF}
}

func (p *parser) advance() *token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

// is reports whether the current token is a PUNCT/KEYWORD/IDENT spelled s.
func (p *parser) is(s string) bool { return p.cur().Is(s) }

// consume advances past a token spelled s, or fatals.
func (p *parser) consume(s string) *token.Token {
	if !p.is(s) {
		p.errorf(p.cur(), "expected %q", s)
	}
	return p.advance()
}

// accept advances past a token spelled s if present, reporting whether it did.
func (p *parser) accept(s string) bool {
	if p.is(s) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectIdent() string {
	if p.cur().Kind != token.IDENT {
		p.errorf(p.cur(), "expected an identifier")
	}
	return p.advance().Text
}

func (p *parser) newLabel() string {
	p.stringLabel++
	return fmt.Sprintf(".L..%d", p.stringLabel)
}

// program := (typedef | funcdef | gvar-decl)*
func (p *parser) program() {
	for p.cur().Kind != token.EOF {
		attr := declAttr{}
		base := p.typespec(&attr)
		if p.accept(";") {
			continue
		}
		if attr.isTypedef {
			p.parseTypedef(base)
			continue
		}
		isFuncDef := false
		for i := 0; ; i++ {
			if i > 0 {
				p.consume(",")
			}
			a := attr
			name, ty := p.declarator(base, &a)
			if ty.Kind == types.FUNC {
				if p.is("{") {
					p.funcDef(name, ty, a)
					isFuncDef = true
					break
				}
				p.registerFuncProto(name, ty, a)
			} else {
				p.globalVar(name, ty, a)
			}
			if p.is(";") {
				break
			}
		}
		if !isFuncDef {
			p.consume(";")
		}
	}
}

// parseTypedef handles `typedef base D1, D2, ...;`.
func (p *parser) parseTypedef(base *types.Type) {
	first := true
	for !p.is(";") {
		if !first {
			p.consume(",")
		}
		first = false
		a := declAttr{isTypedef: true}
		name, ty := p.declarator(base, &a)
		p.scopes.pushTypedef(name, ty)
	}
	p.consume(";")
}

type declAttr struct {
	isTypedef bool
	isStatic  bool
	isExtern  bool
	isInline  bool
	align     int64
}
