package parser

import (
	"github.com/occ-lang/occ/lang/ast"
	"github.com/occ-lang/occ/lang/types"
)

// stmt parses a single statement.
func (p *parser) stmt() *ast.Node {
	t := p.cur()
	switch {
	case t.Is("return"):
		return p.returnStmt()
	case t.Is("if"):
		return p.ifStmt()
	case t.Is("switch"):
		return p.switchStmt()
	case t.Is("case"):
		return p.caseStmt(false)
	case t.Is("default"):
		return p.caseStmt(true)
	case t.Is("for"):
		return p.forStmt()
	case t.Is("while"):
		return p.whileStmt()
	case t.Is("do"):
		return p.doStmt()
	case t.Is("break"):
		p.advance()
		p.consume(";")
		if len(p.breakLabels) == 0 {
			p.errorf(t, "break outside a loop/switch")
		}
		return &ast.Node{Kind: ast.ND_BREAK, Tok: t, Label: p.breakLabels[len(p.breakLabels)-1]}
	case t.Is("continue"):
		p.advance()
		p.consume(";")
		if len(p.continueLabels) == 0 {
			p.errorf(t, "continue outside a loop")
		}
		return &ast.Node{Kind: ast.ND_CONTINUE, Tok: t, Label: p.continueLabels[len(p.continueLabels)-1]}
	case t.Is("goto"):
		p.advance()
		name := p.expectIdent()
		p.consume(";")
		n := &ast.Node{Kind: ast.ND_GOTO, Tok: t, Label: name}
		p.gotos = append(p.gotos, n)
		return n
	case t.IsIdent() && p.peek(1).Is(":"):
		name := p.advance().Text
		p.advance() // ":"
		n := &ast.Node{Kind: ast.ND_LABEL, Tok: t, Label: name, Lhs: p.stmt()}
		n.UniqueLabel = p.newLabel()
		p.labels = append(p.labels, n)
		return n
	case t.Is("{"):
		p.advance()
		p.scopes.enter()
		body := p.compoundStmtBody()
		p.scopes.leave()
		return &ast.Node{Kind: ast.ND_BLOCK, Body: body, Tok: t}
	default:
		return p.exprStmt()
	}
}

func (p *parser) returnStmt() *ast.Node {
	t := p.advance()
	if p.accept(";") {
		return &ast.Node{Kind: ast.ND_RETURN, Tok: t}
	}
	e := p.expr()
	p.consume(";")
	if p.curFn != nil && p.curFn.Type.Return.Kind != types.VOID {
		e = ast.NewCast(e, p.curFn.Type.Return)
	}
	return &ast.Node{Kind: ast.ND_RETURN, Lhs: e, Tok: t}
}

func (p *parser) ifStmt() *ast.Node {
	t := p.advance()
	p.consume("(")
	cond := p.expr()
	p.consume(")")
	then := p.stmt()
	n := &ast.Node{Kind: ast.ND_IF, Cond: cond, Then: then, Tok: t}
	if p.accept("else") {
		n.Els = p.stmt()
	}
	return n
}

func (p *parser) whileStmt() *ast.Node {
	t := p.advance()
	p.consume("(")
	cond := p.expr()
	p.consume(")")
	brk, cont := p.pushLoopLabels()
	body := p.stmt()
	p.popLoopLabels()
	return &ast.Node{Kind: ast.ND_FOR, Cond: cond, Then: body, Tok: t, BreakLabel: brk, ContinueLabel: cont}
}

func (p *parser) doStmt() *ast.Node {
	t := p.advance()
	brk, cont := p.pushLoopLabels()
	body := p.stmt()
	p.popLoopLabels()
	p.consume("while")
	p.consume("(")
	cond := p.expr()
	p.consume(")")
	p.consume(";")
	return &ast.Node{Kind: ast.ND_DO, Then: body, Cond: cond, Tok: t, BreakLabel: brk, ContinueLabel: cont}
}

func (p *parser) forStmt() *ast.Node {
	t := p.advance()
	p.consume("(")
	p.scopes.enter()
	defer p.scopes.leave()

	n := &ast.Node{Kind: ast.ND_FOR, Tok: t}
	if p.isTypenameStart(false) {
		n.Init = p.declStmt()
	} else if !p.is(";") {
		n.Init = p.exprStmtRaw()
	} else {
		p.advance()
	}
	if !p.is(";") {
		n.Cond = p.expr()
	}
	p.consume(";")
	if !p.is(")") {
		n.Inc = p.expr()
	}
	p.consume(")")

	n.BreakLabel, n.ContinueLabel = p.pushLoopLabels()
	n.Then = p.stmt()
	p.popLoopLabels()
	return n
}

func (p *parser) pushLoopLabels() (string, string) {
	brk, cont := p.newLabel(), p.newLabel()
	p.breakLabels = append(p.breakLabels, brk)
	p.continueLabels = append(p.continueLabels, cont)
	return brk, cont
}

func (p *parser) popLoopLabels() {
	p.breakLabels = p.breakLabels[:len(p.breakLabels)-1]
	p.continueLabels = p.continueLabels[:len(p.continueLabels)-1]
}

func (p *parser) switchStmt() *ast.Node {
	t := p.advance()
	p.consume("(")
	cond := p.expr()
	p.consume(")")

	n := &ast.Node{Kind: ast.ND_SWITCH, Cond: cond, Tok: t}
	n.BreakLabel = p.newLabel()
	p.breakLabels = append(p.breakLabels, n.BreakLabel)

	savedCases, savedDefault := p.curSwitchCases, p.curSwitchDefault
	p.curSwitchCases, p.curSwitchDefault = &n.Cases, nil
	n.Then = p.stmt()
	n.DefaultCase = p.curSwitchDefault
	p.curSwitchCases, p.curSwitchDefault = savedCases, savedDefault

	p.breakLabels = p.breakLabels[:len(p.breakLabels)-1]
	return n
}

func (p *parser) caseStmt(isDefault bool) *ast.Node {
	t := p.advance()
	n := &ast.Node{Kind: ast.ND_CASE, Tok: t, IsDefault: isDefault}
	if !isDefault {
		n.CaseBegin = p.constExpr()
		n.CaseEnd = n.CaseBegin
		if p.accept("...") { // GNU case ranges: `case LO ... HI:`
			n.CaseEnd = p.constExpr()
		}
	}
	p.consume(":")
	n.UniqueLabel = p.newLabel()
	n.Lhs = p.stmt()
	if isDefault {
		p.curSwitchDefault = n
	} else if p.curSwitchCases != nil {
		*p.curSwitchCases = append(*p.curSwitchCases, n)
	}
	return n
}

// compoundStmtBody parses statements (and declarations) up to a closing "}",
// which it consumes.
func (p *parser) compoundStmtBody() []*ast.Node {
	var body []*ast.Node
	for !p.is("}") {
		if p.isTypenameStart(false) && !p.is("typeof") {
			body = append(body, p.declStmt())
			continue
		}
		body = append(body, p.stmt())
	}
	p.advance() // "}"
	return body
}

// declStmt parses one local `typespec declarator (= initializer)? (, ...)?
// ;` group and returns a single ND_BLOCK wrapping the (possibly several)
// assignment expression statements it expands to.
func (p *parser) declStmt() *ast.Node {
	tok := p.cur()
	attr := declAttr{}
	base := p.typespec(&attr)

	var stmts []*ast.Node
	first := true
	for !p.is(";") {
		if !first {
			p.consume(",")
		}
		first = false
		a := attr
		name, ty := p.declarator(base, &a)
		if a.isTypedef {
			p.scopes.pushTypedef(name, ty)
			continue
		}
		if ty.Kind == types.VOID {
			p.errorf(p.cur(), "variable %q declared void", name)
		}
		v := p.addLocal(name, ty, a)
		if p.accept("=") {
			stmts = append(stmts, p.localInitializer(v, ty))
		}
	}
	p.consume(";")
	return &ast.Node{Kind: ast.ND_BLOCK, Body: stmts, Tok: tok}
}

func (p *parser) exprStmt() *ast.Node {
	if p.accept(";") {
		return &ast.Node{Kind: ast.ND_NULL_EXPR}
	}
	t := p.cur()
	e := p.expr()
	p.consume(";")
	return &ast.Node{Kind: ast.ND_EXPR_STMT, Lhs: e, Tok: t}
}

// exprStmtRaw parses an expression statement for a for-loop's init clause
// without requiring a trailing ";" to already have been consumed by the
// caller (the for-loop grammar consumes it itself).
func (p *parser) exprStmtRaw() *ast.Node {
	t := p.cur()
	e := p.expr()
	p.consume(";")
	return &ast.Node{Kind: ast.ND_EXPR_STMT, Lhs: e, Tok: t}
}
