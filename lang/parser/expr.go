package parser

import (
	"strconv"

	"github.com/occ-lang/occ/lang/ast"
	"github.com/occ-lang/occ/lang/ir"
	"github.com/occ-lang/occ/lang/token"
	"github.com/occ-lang/occ/lang/types"
)

// expr := assign ("," expr)?
func (p *parser) expr() *ast.Node {
	n := p.assign()
	if p.accept(",") {
		return ast.NewBinary(ast.ND_COMMA, n, p.expr(), n.Tok)
	}
	return n
}

var assignOps = map[string]ast.Kind{
	"+=": ast.ND_ADD, "-=": ast.ND_SUB, "*=": ast.ND_MUL, "/=": ast.ND_DIV,
	"%=": ast.ND_MOD, "&=": ast.ND_BITAND, "|=": ast.ND_BITOR, "^=": ast.ND_BITXOR,
	"<<=": ast.ND_SHL, ">>=": ast.ND_SHR,
}

// assign := conditional (assign-op assign)?
func (p *parser) assign() *ast.Node {
	n := p.conditional()
	tok := p.cur()
	if p.accept("=") {
		return p.typeExpr(ast.NewBinary(ast.ND_ASSIGN, n, p.assign(), tok))
	}
	if kind, ok := assignOps[tok.Text]; ok && tok.Kind == token.PUNCT {
		p.advance()
		return p.toAssign(n, kind, p.assign(), tok)
	}
	return n
}

// toAssign lowers `A op= B` into `tmp = &A, *tmp = *tmp op B` via an
// anonymous pointer local, avoiding double evaluation of A.
func (p *parser) toAssign(lhs *ast.Node, op ast.Kind, rhs *ast.Node, tok *token.Token) *ast.Node {
	p.typeExpr(lhs)
	tmp := p.addAnonLocal(types.PointerTo(lhs.Type))
	addrExpr := p.typeExpr(ast.NewUnary(ast.ND_ADDR, lhs, tok))
	assignTmp := p.typeExpr(ast.NewBinary(ast.ND_ASSIGN, p.varNode(tmp, tok), addrExpr, tok))

	deref1 := p.typeExpr(ast.NewUnary(ast.ND_DEREF, p.varNode(tmp, tok), tok))
	binop := p.typeExpr(p.newBinaryArith(op, deref1, rhs, tok))
	deref2 := p.typeExpr(ast.NewUnary(ast.ND_DEREF, p.varNode(tmp, tok), tok))
	storeAssign := p.typeExpr(ast.NewBinary(ast.ND_ASSIGN, deref2, binop, tok))

	n := ast.NewBinary(ast.ND_COMMA, assignTmp, storeAssign, tok)
	n.Type = storeAssign.Type
	return n
}

func (p *parser) varNode(v *ir.Var, tok *token.Token) *ast.Node {
	n := ast.NewVar(v.Name, v, tok)
	n.Type = v.Type
	return n
}

func (p *parser) addAnonLocal(ty *types.Type) *ir.Var {
	p.curFnLabel++
	name := ".tmp" + strconv.Itoa(p.curFnLabel)
	v := &ir.Var{Name: name, Type: ty, IsLocal: true}
	if p.curFn != nil {
		p.curFn.Locals = append(p.curFn.Locals, v)
	}
	p.scopes.pushVar(name, v)
	return v
}

// conditional := logor ("?" expr ":" conditional)?
func (p *parser) conditional() *ast.Node {
	cond := p.logor()
	if !p.accept("?") {
		return cond
	}
	tok := p.toks[p.pos-1]
	then := p.expr()
	p.consume(":")
	els := p.conditional()
	n := &ast.Node{Kind: ast.ND_COND, Cond: cond, Then: then, Els: els, Tok: tok}
	return p.typeExpr(n)
}

func (p *parser) binaryLevel(next func() *ast.Node, ops map[string]ast.Kind) *ast.Node {
	n := next()
	for {
		t := p.cur()
		kind, ok := ops[t.Text]
		if !ok || t.Kind != token.PUNCT {
			return n
		}
		p.advance()
		n = p.typeExpr(p.newBinaryArith(kind, n, next(), t))
	}
}

func (p *parser) logor() *ast.Node {
	n := p.logand()
	for p.is("||") {
		t := p.advance()
		n = p.typeExpr(ast.NewBinary(ast.ND_LOGOR, n, p.logand(), t))
	}
	return n
}

func (p *parser) logand() *ast.Node {
	n := p.bitor()
	for p.is("&&") {
		t := p.advance()
		n = p.typeExpr(ast.NewBinary(ast.ND_LOGAND, n, p.bitor(), t))
	}
	return n
}

func (p *parser) bitor() *ast.Node {
	return p.binaryLevel(p.bitxor, map[string]ast.Kind{"|": ast.ND_BITOR})
}
func (p *parser) bitxor() *ast.Node {
	return p.binaryLevel(p.bitand, map[string]ast.Kind{"^": ast.ND_BITXOR})
}
func (p *parser) bitand() *ast.Node {
	return p.binaryLevel(p.equality, map[string]ast.Kind{"&": ast.ND_BITAND})
}
func (p *parser) equality() *ast.Node {
	return p.binaryLevel(p.relational, map[string]ast.Kind{"==": ast.ND_EQ, "!=": ast.ND_NE})
}
func (p *parser) relational() *ast.Node {
	n := p.shift()
	for {
		t := p.cur()
		switch t.Text {
		case "<":
			p.advance()
			n = p.typeExpr(ast.NewBinary(ast.ND_LT, n, p.shift(), t))
		case "<=":
			p.advance()
			n = p.typeExpr(ast.NewBinary(ast.ND_LE, n, p.shift(), t))
		case ">":
			p.advance()
			n = p.typeExpr(ast.NewBinary(ast.ND_LT, p.shift(), n, t))
		case ">=":
			p.advance()
			n = p.typeExpr(ast.NewBinary(ast.ND_LE, p.shift(), n, t))
		default:
			return n
		}
	}
}
func (p *parser) shift() *ast.Node {
	return p.binaryLevel(p.add, map[string]ast.Kind{"<<": ast.ND_SHL, ">>": ast.ND_SHR})
}

// add/sub implement pointer arithmetic desugaring: `ptr + int`
// becomes `ptr + int*sizeof(*ptr)`, `ptr - ptr` becomes `(ptr-ptr)/sizeof`.
func (p *parser) add() *ast.Node {
	n := p.mul()
	for {
		t := p.cur()
		switch t.Text {
		case "+":
			p.advance()
			n = p.newAdd(n, p.mul(), t)
		case "-":
			p.advance()
			n = p.newSub(n, p.mul(), t)
		default:
			return n
		}
	}
}

func (p *parser) newAdd(lhs, rhs *ast.Node, tok *token.Token) *ast.Node {
	p.typeExpr(lhs)
	p.typeExpr(rhs)
	switch {
	case lhs.Type.IsNumeric() && rhs.Type.IsNumeric():
		return p.typeExpr(ast.NewBinary(ast.ND_ADD, lhs, rhs, tok))
	case lhs.Type.IsPointerLike() && rhs.Type.IsPointerLike():
		p.errorf(tok, "invalid operands for +")
	case !lhs.Type.IsPointerLike() && rhs.Type.IsPointerLike():
		lhs, rhs = rhs, lhs
	}
	sz := ast.NewNum(elemSize(lhs.Type), tok)
	rhs = ast.NewBinary(ast.ND_MUL, rhs, sz, tok)
	return p.typeExpr(ast.NewBinary(ast.ND_ADD, lhs, rhs, tok))
}

func (p *parser) newSub(lhs, rhs *ast.Node, tok *token.Token) *ast.Node {
	p.typeExpr(lhs)
	p.typeExpr(rhs)
	switch {
	case lhs.Type.IsNumeric() && rhs.Type.IsNumeric():
		return p.typeExpr(ast.NewBinary(ast.ND_SUB, lhs, rhs, tok))
	case lhs.Type.IsPointerLike() && rhs.Type.IsPointerLike():
		diff := p.typeExpr(ast.NewBinary(ast.ND_SUB, lhs, rhs, tok))
		diff.Type = types.Long
		sz := ast.NewNum(elemSize(lhs.Type), tok)
		return p.typeExpr(ast.NewBinary(ast.ND_DIV, diff, sz, tok))
	default:
		sz := ast.NewNum(elemSize(lhs.Type), tok)
		rhs = ast.NewBinary(ast.ND_MUL, rhs, sz, tok)
		return p.typeExpr(ast.NewBinary(ast.ND_SUB, lhs, rhs, tok))
	}
}

func elemSize(ptrTy *types.Type) int64 {
	if ptrTy.Base != nil {
		return ptrTy.Base.Size
	}
	return 1
}

// newBinaryArith builds a plain arithmetic/bitwise/shift binary node (used
// by compound-assignment desugaring, where pointer arithmetic does not
// apply since the lhs has already been dereferenced).
func (p *parser) newBinaryArith(kind ast.Kind, lhs, rhs *ast.Node, tok *token.Token) *ast.Node {
	switch kind {
	case ast.ND_ADD:
		return p.newAdd(lhs, rhs, tok)
	case ast.ND_SUB:
		return p.newSub(lhs, rhs, tok)
	default:
		return ast.NewBinary(kind, lhs, rhs, tok)
	}
}

func (p *parser) mul() *ast.Node {
	n := p.cast()
	for {
		t := p.cur()
		switch t.Text {
		case "*":
			p.advance()
			n = p.typeExpr(ast.NewBinary(ast.ND_MUL, n, p.cast(), t))
		case "/":
			p.advance()
			n = p.typeExpr(ast.NewBinary(ast.ND_DIV, n, p.cast(), t))
		case "%":
			p.advance()
			n = p.typeExpr(ast.NewBinary(ast.ND_MOD, n, p.cast(), t))
		default:
			return n
		}
	}
}

// cast := "(" typename ")" cast | unary
func (p *parser) cast() *ast.Node {
	if p.is("(") && p.isTypenameStartAt(1) {
		tok := p.cur()
		p.advance()
		ty := p.typename()
		p.consume(")")
		if p.is("{") {
			// compound literal: treat as a cast applied to a brace initializer
			// stored in an anonymous local/global (delegated to the initializer
			// lowering helpers).
			return p.compoundLiteral(ty, tok)
		}
		n := ast.NewCast(p.cast(), ty)
		return p.typeExpr(n)
	}
	return p.unary()
}

func (p *parser) isTypenameStartAt(offset int) bool {
	save := p.pos
	p.pos += offset
	ok := p.isTypenameStart(false)
	p.pos = save
	return ok
}

func (p *parser) typename() *types.Type {
	base := p.typespec(nil)
	return p.abstractDeclarator(base)
}

// unary := ("+" | "-" | "*" | "&" | "!" | "~") cast | ("++" | "--") unary | postfix
func (p *parser) unary() *ast.Node {
	t := p.cur()
	switch t.Text {
	case "+":
		p.advance()
		return p.cast()
	case "-":
		p.advance()
		return p.typeExpr(ast.NewUnary(ast.ND_NEG, p.cast(), t))
	case "&":
		p.advance()
		return p.typeExpr(ast.NewUnary(ast.ND_ADDR, p.cast(), t))
	case "*":
		p.advance()
		return p.typeExpr(ast.NewUnary(ast.ND_DEREF, p.cast(), t))
	case "!":
		p.advance()
		return p.typeExpr(ast.NewUnary(ast.ND_NOT, p.cast(), t))
	case "~":
		p.advance()
		return p.typeExpr(ast.NewUnary(ast.ND_BITNOT, p.cast(), t))
	case "++":
		p.advance()
		return p.toAssign(p.unary(), ast.ND_ADD, ast.NewNum(1, t), t)
	case "--":
		p.advance()
		return p.toAssign(p.unary(), ast.ND_SUB, ast.NewNum(1, t), t)
	}
	if t.Text == "sizeof" {
		return p.sizeofExpr()
	}
	if t.Text == "_Alignof" {
		return p.alignofExpr()
	}
	return p.postfix()
}

func (p *parser) sizeofExpr() *ast.Node {
	t := p.advance()
	if p.is("(") && p.isTypenameStartAt(1) {
		p.advance()
		ty := p.typename()
		p.consume(")")
		return ast.NewNum(ty.Size, t)
	}
	n := p.unary()
	p.typeExpr(n)
	return ast.NewNum(n.Type.Size, t)
}

func (p *parser) alignofExpr() *ast.Node {
	t := p.advance()
	p.consume("(")
	ty := p.typename()
	p.consume(")")
	return ast.NewNum(ty.Align, t)
}

// postfix := primary ("[" expr "]" | "." ident | "->" ident | "++" | "--")*
func (p *parser) postfix() *ast.Node {
	n := p.primary()
	for {
		t := p.cur()
		switch {
		case p.accept("["):
			idx := p.expr()
			p.consume("]")
			n = p.newAdd(n, idx, t)
			n = p.typeExpr(ast.NewUnary(ast.ND_DEREF, n, t))
		case p.accept("."):
			n = p.memberAccess(n, t)
		case p.accept("->"):
			n = p.typeExpr(ast.NewUnary(ast.ND_DEREF, n, t))
			n = p.memberAccess(n, t)
		case p.is("++"):
			p.advance()
			n = p.postIncDec(n, ast.ND_ADD, t)
		case p.is("--"):
			p.advance()
			n = p.postIncDec(n, ast.ND_SUB, t)
		default:
			return n
		}
	}
}

// postIncDec lowers `A++`/`A--` to `tmp=&A, *tmp=*tmp op 1, *tmp-1`,
// returning the pre-increment value.
func (p *parser) postIncDec(lhs *ast.Node, op ast.Kind, tok *token.Token) *ast.Node {
	p.typeExpr(lhs)
	inner := p.toAssign(lhs, op, ast.NewNum(1, tok), tok)
	back := p.newBinaryArith(invert(op), inner, ast.NewNum(1, tok), tok)
	return p.typeExpr(back)
}

func invert(op ast.Kind) ast.Kind {
	if op == ast.ND_ADD {
		return ast.ND_SUB
	}
	return ast.ND_ADD
}

func (p *parser) memberAccess(lhs *ast.Node, tok *token.Token) *ast.Node {
	p.typeExpr(lhs)
	if lhs.Type.Kind != types.STRUCT {
		p.errorf(tok, "not a struct/union")
	}
	name := p.expectIdent()
	m := types.FindMember(lhs.Type, name)
	if m == nil {
		p.errorf(tok, "no member named %q", name)
	}
	n := &ast.Node{Kind: ast.ND_MEMBER, Lhs: lhs, Member: m, Tok: tok, Type: m.Type}
	return n
}

// compoundLiteral lowers `(T){ ... }` to an anonymous local/global initialized
// the same way a named declaration of type T would be.
func (p *parser) compoundLiteral(ty *types.Type, tok *token.Token) *ast.Node {
	if p.curFn == nil {
		v := p.addGlobalAnon(ty)
		p.globalInitializer(v, ty)
		n := p.varNode(v, tok)
		return n
	}
	v := p.addAnonLocal(ty)
	init := p.localInitializer(v, ty)
	n := ast.NewBinary(ast.ND_COMMA, init, p.varNode(v, tok), tok)
	n.Type = ty
	return n
}

// primary := "(" "{" compound-stmt "}" ")" | "(" expr ")" | ident | str | num
func (p *parser) primary() *ast.Node {
	t := p.cur()
	switch {
	case t.Is("("):
		if p.peek(1).Is("{") {
			return p.stmtExpr()
		}
		p.advance()
		n := p.expr()
		p.consume(")")
		return n
	case t.Kind == token.NUM:
		p.advance()
		if t.Typ != nil && t.Typ.IsFlonum() {
			n := &ast.Node{Kind: ast.ND_NUM, FVal: t.FVal, Tok: t, Type: t.Typ}
			return n
		}
		n := ast.NewNum(t.IVal, t)
		if t.Typ != nil {
			n.Type = t.Typ
		}
		return n
	case t.Kind == token.STRING:
		p.advance()
		return p.stringLiteral(t)
	case t.Kind == token.CHAR:
		p.advance()
		n := ast.NewNum(t.CharVal, t)
		n.Type = types.Int
		return n
	case t.Is("sizeof"):
		return p.sizeofExpr()
	case t.IsIdent():
		return p.identExpr()
	}
	p.errorf(t, "expected an expression")
	return nil
}

func (p *parser) identExpr() *ast.Node {
	name := p.advance().Text
	tok := p.toks[p.pos-1]
	if p.is("(") {
		return p.funcall(name, tok)
	}
	if vs := p.scopes.findVar(name); vs != nil {
		if vs.varRef != nil {
			return p.varNode(vs.varRef, tok)
		}
		if vs.enumTy != nil {
			n := ast.NewNum(vs.enumVal, tok)
			n.Type = vs.enumTy
			return n
		}
	}
	p.errorf(tok, "undeclared identifier %q", name)
	return nil
}

func (p *parser) funcall(name string, tok *token.Token) *ast.Node {
	p.consume("(")
	var args []*ast.Node
	for !p.is(")") {
		if len(args) > 0 {
			p.consume(",")
		}
		a := p.assign()
		p.typeExpr(a)
		args = append(args, a)
	}
	p.consume(")")

	n := &ast.Node{Kind: ast.ND_FUNCALL, FuncName: name, Args: args, Tok: tok}
	if fn := p.prog.FindFunction(name); fn != nil {
		n.FuncType = fn.Type
		n.Type = fn.Type.Return
	} else if vs := p.scopes.findVar(name); vs != nil && vs.varRef != nil && vs.varRef.Type.Kind == types.FUNC {
		n.FuncType = vs.varRef.Type
		n.Type = vs.varRef.Type.Return
	} else {
		// Implicit declaration of an undeclared function: warn, assume `int
		// f()` the way a pre-C99 compiler does.
		p.warnf(tok, "implicit declaration of function %q", name)
		n.Type = types.Int
	}
	return n
}

// stmtExpr parses a GNU statement expression `({ ... })`.
func (p *parser) stmtExpr() *ast.Node {
	tok := p.advance() // "("
	p.consume("{")
	p.scopes.enter()
	defer p.scopes.leave()
	body := p.compoundStmtBody()
	p.consume(")")

	n := &ast.Node{Kind: ast.ND_STMT_EXPR, Body: body, Tok: tok}
	if len(body) > 0 && body[len(body)-1].Kind == ast.ND_EXPR_STMT {
		last := body[len(body)-1]
		n.Type = last.Lhs.Type
	} else {
		n.Type = types.Void
	}
	return n
}

