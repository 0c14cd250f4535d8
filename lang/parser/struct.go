package parser

import (
	"github.com/occ-lang/occ/lang/types"
)

// structUnionDecl := ("struct" | "union") ident? ("{" struct-members "}")?
func (p *parser) structUnionDecl(isUnion bool) *types.Type {
	p.advance() // "struct" or "union"

	var tag string
	if p.cur().IsIdent() {
		tag = p.advance().Text
	}

	if tag != "" && !p.is("{") {
		if ts := p.scopes.findTag(tag); ts != nil {
			return ts.ty
		}
		ty := types.NewStruct(tag, isUnion)
		p.scopes.pushTag(tag, ty)
		return ty
	}

	var ty *types.Type
	if tag != "" {
		if ts := p.scopes.findTagAtCurrentDepth(tag); ts != nil {
			ty = ts.ty
		}
	}
	if ty == nil {
		ty = types.NewStruct(tag, isUnion)
		if tag != "" {
			p.scopes.pushTag(tag, ty)
		}
	}

	p.consume("{")
	members := p.structMembers()
	p.consume("}")
	types.Complete(ty, members)
	return ty
}

// structMembers parses a brace-delimited list of `typespec declarator-list
// (":" const-expr)? ";"` entries, including anonymous struct/union members.
func (p *parser) structMembers() []*types.Member {
	var members []*types.Member
	for !p.is("}") {
		attr := declAttr{}
		base := p.typespec(&attr)
		first := true

		// An anonymous nested struct/union with no declarator contributes its
		// own members transparently (handled by FindMember's recursion), but
		// here it is stored as a single unnamed member of that aggregate type.
		if base.Kind == types.STRUCT && p.is(";") {
			p.advance()
			members = append(members, &types.Member{Name: "", Type: base})
			continue
		}

		for !p.is(";") {
			if !first {
				p.consume(",")
			}
			first = false
			name, ty := p.declarator(base, &declAttr{})
			m := &types.Member{Name: name, Type: ty}
			if p.accept(":") {
				m.IsBitfield = true
				m.BitWidth = p.constExpr()
			}
			members = append(members, m)
		}
		p.consume(";")
	}
	return members
}

// enumSpecifier := "enum" ident? ("{" enumerator-list "}")?
func (p *parser) enumSpecifier() *types.Type {
	p.advance() // "enum"

	var tag string
	if p.cur().IsIdent() {
		tag = p.advance().Text
	}

	if tag != "" && !p.is("{") {
		ts := p.scopes.findTag(tag)
		if ts == nil || ts.ty.Kind != types.ENUM {
			p.errorf(p.cur(), "unknown enum tag %q", tag)
		}
		return ts.ty
	}

	ty := types.NewEnum(tag)
	p.consume("{")
	val := int64(0)
	first := true
	for !p.is("}") {
		if !first {
			p.consume(",")
			if p.is("}") {
				break
			}
		}
		first = false
		name := p.expectIdent()
		if p.accept("=") {
			val = p.constExpr()
		}
		p.scopes.pushEnumConst(name, ty, val)
		val++
	}
	p.consume("}")
	if tag != "" {
		p.scopes.pushTag(tag, ty)
	}
	return ty
}
