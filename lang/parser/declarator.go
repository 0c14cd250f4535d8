package parser

import (
	"github.com/occ-lang/occ/lang/types"
)

// declarator := pointers ("(" declarator ")" | ident)? type-suffix
//
// T (D) S is disambiguated recursively: a placeholder type stands in for the
// eventual base type while D is parsed, and the placeholder is filled in
// once S (the array/function suffix) has built the real type.
func (p *parser) declarator(base *types.Type, attr *declAttr) (string, *types.Type) {
	ty := p.pointers(base)

	if p.accept("(") {
		placeholder := &types.Type{}
		name, _ := p.declarator(placeholder, attr)
		p.consume(")")
		*placeholder = *p.typeSuffix(ty)
		return name, placeholder
	}

	name := ""
	if p.cur().IsIdent() {
		name = p.advance().Text
	}
	return name, p.typeSuffix(ty)
}

// abstractDeclarator parses a declarator with no identifier (used for cast
// target types, sizeof(T), and parameter types written without a name).
func (p *parser) abstractDeclarator(base *types.Type) *types.Type {
	ty := p.pointers(base)
	if p.accept("(") {
		placeholder := &types.Type{}
		ty2 := p.abstractDeclarator(placeholder)
		p.consume(")")
		*placeholder = *p.typeSuffix(ty)
		return ty2
	}
	return p.typeSuffix(ty)
}

func (p *parser) pointers(base *types.Type) *types.Type {
	ty := base
	for p.accept("*") {
		ty = types.PointerTo(ty)
		for p.accept("const") || p.accept("volatile") || p.accept("restrict") ||
			p.accept("__restrict") || p.accept("__restrict__") {
			ty.IsConst = ty.IsConst || p.toks[p.pos-1].Text == "const"
		}
	}
	return ty
}

// typeSuffix := "(" func-params | "[" array-dims | ε
func (p *parser) typeSuffix(ty *types.Type) *types.Type {
	if p.accept("(") {
		return p.funcParams(ty)
	}
	if p.accept("[") {
		return p.arrayDims(ty)
	}
	return ty
}

func (p *parser) funcParams(ret *types.Type) *types.Type {
	var params []*types.Type
	var names []string
	variadic := false

	if p.is("void") && p.peek(1).Is(")") {
		p.advance()
		p.advance()
		return types.FuncType(ret, nil, nil, false)
	}

	for !p.is(")") {
		if len(params) > 0 {
			p.consume(",")
		}
		if p.accept("...") {
			variadic = true
			break
		}
		base := p.typespec(nil)
		name, ty := p.declarator(base, &declAttr{})
		if ty.Kind == types.ARRAY {
			// Array parameters decay to pointer-to-element (C's parameter
			// adjustment rule).
			ty = types.PointerTo(ty.Base)
		} else if ty.Kind == types.FUNC {
			ty = types.PointerTo(ty)
		}
		params = append(params, ty)
		names = append(names, name)
	}
	p.consume(")")
	return types.FuncType(ret, params, names, variadic)
}

func (p *parser) arrayDims(base *types.Type) *types.Type {
	for p.accept("static") || p.accept("const") {
	}
	if p.accept("]") {
		ty := p.typeSuffix(base)
		return types.ArrayOf(ty, -1)
	}
	length := p.constExpr()
	p.consume("]")
	ty := p.typeSuffix(base)
	return types.ArrayOf(ty, length)
}
