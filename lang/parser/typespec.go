package parser

import (
	"github.com/occ-lang/occ/lang/token"
	"github.com/occ-lang/occ/lang/types"
)

// Typespec accumulator bit layout: two bits per built-in keyword so repeated
// keywords (`long long`) can be distinguished from a single occurrence.
const (
	tsVoid     = 1 << 0
	tsBool     = 1 << 2
	tsChar     = 1 << 4
	tsShort    = 1 << 6
	tsInt      = 1 << 8
	tsLong     = 1 << 10
	tsFloat    = 1 << 12
	tsDouble   = 1 << 14
	tsOther    = 1 << 16 // struct/union/enum/typedef-name
	tsSigned   = 1 << 17
	tsUnsigned = 1 << 18
)

// typespec parses `(storage | type-qualifier | built-in | struct-decl |
// union-decl | enum-specifier | typedef-name | "_Alignas" ...)*` and returns
// the resulting primitive/aggregate type, recording storage-class keywords
// into attr.
func (p *parser) typespec(attr *declAttr) *types.Type {
	var counter int
	var userType *types.Type
	isConst := false

	for p.isTypenameStart(userType != nil) {
		if p.isStorageClass() {
			p.parseStorageClass(attr)
			continue
		}
		switch {
		case p.accept("const"), p.accept("volatile"), p.accept("restrict"),
			p.accept("__restrict"), p.accept("__restrict__"), p.accept("_Atomic"):
			if p.toks[p.pos-1].Text == "const" {
				isConst = true
			}
			continue
		case p.is("_Alignas"):
			p.advance()
			p.consume("(")
			if attr != nil {
				if p.isTypenameStart(false) {
					ty := p.typespec(nil)
					attr.align = ty.Align
				} else {
					attr.align = p.constExpr()
				}
			} else {
				p.constExpr()
			}
			p.consume(")")
			continue
		case p.is("struct"):
			userType = p.structUnionDecl(false)
			counter += tsOther
			continue
		case p.is("union"):
			userType = p.structUnionDecl(true)
			counter += tsOther
			continue
		case p.is("enum"):
			userType = p.enumSpecifier()
			counter += tsOther
			continue
		case p.is("typeof"):
			p.advance()
			p.consume("(")
			ty := p.constExprType()
			p.consume(")")
			userType = ty
			counter += tsOther
			continue
		}

		if counter == 0 && p.cur().Kind == token.IDENT {
			if vs := p.scopes.findVar(p.cur().Text); vs != nil && vs.typedef != nil {
				userType = vs.typedef
				counter += tsOther
				p.advance()
				continue
			}
		}

		switch p.cur().Text {
		case "void":
			counter += tsVoid
		case "_Bool":
			counter += tsBool
		case "char":
			counter += tsChar
		case "short":
			counter += tsShort
		case "int":
			counter += tsInt
		case "long":
			counter += tsLong
		case "float":
			counter += tsFloat
		case "double":
			counter += tsDouble
		case "signed":
			counter += tsSigned
		case "unsigned":
			counter += tsUnsigned
		default:
			p.errorf(p.cur(), "unexpected typespec token %q", p.cur().Text)
		}
		p.advance()
	}

	if counter == 0 && userType == nil {
		p.errorf(p.cur(), "expected a type")
	}
	if counter&tsOther != 0 {
		if isConst {
			c := types.Copy(userType)
			c.IsConst = true
			return c
		}
		return userType
	}
	return p.resolveBuiltin(counter)
}

// isTypenameStart reports whether the current token can begin (or continue)
// a typespec. haveUserType suppresses further built-in/storage scanning once
// a struct/union/enum/typedef-name has already been consumed, since C
// disallows combining those with keywords like `int`.
func (p *parser) isTypenameStart(haveUserType bool) bool {
	t := p.cur()
	if t.Kind != token.KEYWORD && t.Kind != token.IDENT {
		return false
	}
	switch t.Text {
	case "void", "_Bool", "char", "short", "int", "long", "float", "double",
		"signed", "unsigned", "const", "volatile", "restrict", "__restrict",
		"__restrict__", "_Atomic", "_Alignas", "struct", "union", "enum",
		"typeof", "static", "extern", "inline", "typedef", "register",
		"_Noreturn", "_Thread_local":
		return true
	}
	if haveUserType {
		return false
	}
	if t.Kind == token.IDENT {
		vs := p.scopes.findVar(t.Text)
		return vs != nil && vs.typedef != nil
	}
	return false
}

func (p *parser) isStorageClass() bool {
	switch p.cur().Text {
	case "typedef", "static", "extern", "inline", "register", "_Noreturn", "_Thread_local":
		return p.cur().Kind == token.KEYWORD
	}
	return false
}

func (p *parser) parseStorageClass(attr *declAttr) {
	text := p.advance().Text
	if attr == nil {
		return
	}
	switch text {
	case "typedef":
		attr.isTypedef = true
	case "static":
		attr.isStatic = true
	case "extern":
		attr.isExtern = true
	case "inline":
		attr.isInline = true
	}
}

// resolveBuiltin maps an exhaustive counter value to a primitive type,
// erroring on invalid combinations such as `char int`.
func (p *parser) resolveBuiltin(counter int) *types.Type {
	switch counter {
	case tsVoid:
		return types.Void
	case tsBool:
		return types.BoolTy
	case tsChar, tsSigned + tsChar:
		return types.Char
	case tsUnsigned + tsChar:
		return types.UChar
	case tsShort, tsShort + tsInt, tsSigned + tsShort, tsSigned + tsShort + tsInt:
		return types.Short
	case tsUnsigned + tsShort, tsUnsigned + tsShort + tsInt:
		return types.UShort
	case tsInt, tsSigned, tsSigned + tsInt:
		return types.Int
	case tsUnsigned, tsUnsigned + tsInt:
		return types.UInt
	case tsLong, tsLong + tsInt, tsLong + tsLong, tsLong + tsLong + tsInt,
		tsSigned + tsLong, tsSigned + tsLong + tsInt, tsSigned + tsLong + tsLong, tsSigned + tsLong + tsLong + tsInt:
		return types.Long
	case tsUnsigned + tsLong, tsUnsigned + tsLong + tsInt, tsUnsigned + tsLong + tsLong, tsUnsigned + tsLong + tsLong + tsInt:
		return types.ULong
	case tsFloat:
		return types.FloatTy
	case tsDouble, tsLong + tsDouble:
		return types.Double
	default:
		p.errorf(p.cur(), "invalid type combination")
		return types.Int
	}
}
