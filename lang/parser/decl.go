package parser

import (
	"strconv"

	"github.com/occ-lang/occ/lang/ast"
	"github.com/occ-lang/occ/lang/ir"
	"github.com/occ-lang/occ/lang/token"
	"github.com/occ-lang/occ/lang/types"
)

func (p *parser) addLocal(name string, ty *types.Type, attr declAttr) *ir.Var {
	v := &ir.Var{Name: name, Type: ty, IsLocal: true, Align: attr.align}
	if p.curFn != nil {
		p.curFn.Locals = append(p.curFn.Locals, v)
	}
	p.scopes.pushVar(name, v)
	return v
}

func (p *parser) addGlobal(name string, ty *types.Type, attr declAttr) *ir.Var {
	v := &ir.Var{Name: name, Type: ty, IsStatic: attr.isStatic, IsDefined: !attr.isExtern, Align: attr.align}
	p.prog.Globals = append(p.prog.Globals, v)
	p.scopes.pushVar(name, v)
	return v
}

func (p *parser) addGlobalAnon(ty *types.Type) *ir.Var {
	p.anonLabel++
	v := &ir.Var{Name: ".LC" + strconv.Itoa(p.anonLabel), Type: ty, IsStatic: true, IsDefined: true}
	p.prog.Globals = append(p.prog.Globals, v)
	return v
}

// globalVar parses the optional initializer of a file-scope declaration.
func (p *parser) globalVar(name string, ty *types.Type, attr declAttr) {
	v := p.addGlobal(name, ty, attr)
	v.Tok = p.toks[p.pos-1]
	if p.accept("=") {
		v.IsDefined = true
		p.globalInitializer(v, ty)
	}
}

// registerFuncProto ensures a Function stub exists for a prototype-only
// declaration, so a later call site (possibly before the real definition is
// reached by a single-pass parser) can still resolve its signature; any gap
// left by true forward references across translation units is fixed up by
// lang/resolver's post-parse pass.
func (p *parser) registerFuncProto(name string, ty *types.Type, attr declAttr) {
	if fn := p.prog.FindFunction(name); fn != nil {
		return
	}
	p.prog.Functions = append(p.prog.Functions, &ir.Function{
		Name: name, Type: ty, IsStatic: attr.isStatic, IsVariadic: ty.IsVariadic,
	})
}

func (p *parser) funcDef(name string, ty *types.Type, attr declAttr) {
	fn := p.prog.FindFunction(name)
	if fn == nil {
		fn = &ir.Function{Name: name}
		p.prog.Functions = append(p.prog.Functions, fn)
	}
	fn.Type = ty
	fn.IsStatic = attr.isStatic
	fn.IsVariadic = ty.IsVariadic
	fn.IsDefined = true

	savedFn := p.curFn
	savedGotos, savedLabels := p.gotos, p.labels
	p.curFn, p.gotos, p.labels = fn, nil, nil

	p.scopes.enter()
	for i, paramTy := range ty.Params {
		n := ""
		if i < len(ty.ParamNames) {
			n = ty.ParamNames[i]
		}
		v := p.addLocal(n, paramTy, declAttr{})
		fn.Params = append(fn.Params, v)
	}

	tok := p.consume("{")
	fn.Body = &ast.Node{Kind: ast.ND_BLOCK, Body: p.compoundStmtBody(), Tok: tok}
	p.resolveGotos()
	p.scopes.leave()

	p.curFn, p.gotos, p.labels = savedFn, savedGotos, savedLabels
}

// resolveGotos matches every pending `goto NAME` against a label with the
// same name parsed anywhere in the current function, assigning the label's
// UniqueLabel as the goto's target. A whole-program walk validates this in
// the general case, but within a single function body this direct match
// suffices since C forbids jumping into another function.
func (p *parser) resolveGotos() {
	for _, g := range p.gotos {
		found := false
		for _, l := range p.labels {
			if l.Label == g.Label {
				g.UniqueLabel = l.UniqueLabel
				found = true
				break
			}
		}
		if !found {
			p.errorf(g.Tok, "use of undeclared label %q", g.Label)
		}
	}
}

// stringLiteral allocates a read-only global for a STRING token and returns
// a reference to it; C's array-to-pointer decay for the expression is the
// back-end's concern (gen_addr on an array-typed Var already yields the
// address), not the parser's.
func (p *parser) stringLiteral(t *token.Token) *ast.Node {
	p.anonLabel++
	name := ".LC" + strconv.Itoa(p.anonLabel)
	ty := types.ArrayOf(types.Char, int64(len(t.Str)))
	v := &ir.Var{Name: name, Type: ty, IsStatic: true, IsDefined: true, InitData: append([]byte{}, t.Str...), Align: 1}
	p.prog.Globals = append(p.prog.Globals, v)
	n := ast.NewVar(name, v, t)
	n.Type = ty
	return n
}
