package parser

import (
	"math"

	"github.com/occ-lang/occ/lang/ast"
	"github.com/occ-lang/occ/lang/ir"
	"github.com/occ-lang/occ/lang/token"
	"github.com/occ-lang/occ/lang/types"
)

// initItem is one parsed initializer tree node: either a leaf expression or
// an aggregate (array/struct) with one child per element/member. A nil
// entry in Children means "no initializer given for this element", which
// initializer lowering turns into an explicit zero.
type initItem struct {
	Expr     *ast.Node
	Children []*initItem
	Ty       *types.Type
}

// parseInitializer parses the `{ ... } | assign | STRING` initializer
// grammar for a declaration of type ty.
func (p *parser) parseInitializer(ty *types.Type) *initItem {
	if ty.Kind == types.ARRAY && ty.Base.Kind == types.CHAR && p.cur().Kind == token.STRING {
		return p.stringInitializer(ty)
	}
	if p.is("{") {
		return p.aggregateInitializer(ty)
	}
	e := p.assign()
	p.typeExpr(e)
	return &initItem{Expr: e, Ty: ty}
}

func (p *parser) stringInitializer(ty *types.Type) *initItem {
	t := p.advance()
	n := int64(len(t.Str))
	if ty.Len >= 0 && ty.Len < n {
		n = ty.Len
	}
	if ty.Len < 0 {
		types2SetArrayLen(ty, int64(len(t.Str)))
	}
	children := make([]*initItem, 0, n)
	for i := int64(0); i < n; i++ {
		var v int64
		if i < int64(len(t.Str)) {
			v = int64(t.Str[i])
		}
		children = append(children, &initItem{Expr: &ast.Node{Kind: ast.ND_NUM, IVal: v, Type: types.Char, Tok: t}, Ty: types.Char})
	}
	return &initItem{Children: children, Ty: ty}
}

// types2SetArrayLen finalizes an array type whose length was unknown at
// declaration time by inferring it from the initializer actually supplied.
func types2SetArrayLen(ty *types.Type, n int64) {
	ty.Len = n
	ty.Size = ty.Base.Size * n
	ty.IsIncomplete = false
}

func (p *parser) aggregateInitializer(ty *types.Type) *initItem {
	p.consume("{")
	item := &initItem{Ty: ty}

	switch ty.Kind {
	case types.ARRAY:
		var idx int64
		for !p.is("}") {
			if idx > 0 {
				if !p.accept(",") {
					break
				}
				if p.is("}") {
					break
				}
			}
			if ty.Len >= 0 && idx >= ty.Len {
				p.skipInitializer()
				idx++
				continue
			}
			item.Children = append(item.Children, p.parseInitializer(ty.Base))
			idx++
		}
		if ty.Len < 0 {
			types2SetArrayLen(ty, idx)
		}
	case types.STRUCT:
		if ty.IsUnion {
			if !p.is("}") {
				if len(ty.Members) > 0 {
					item.Children = []*initItem{p.parseInitializer(ty.Members[0].Type)}
				} else {
					p.skipInitializer()
				}
			}
			p.accept(",")
		} else {
			mi := 0
			for !p.is("}") && mi < len(ty.Members) {
				if mi > 0 {
					if !p.accept(",") {
						break
					}
					if p.is("}") {
						break
					}
				}
				item.Children = append(item.Children, p.parseInitializer(ty.Members[mi].Type))
				mi++
			}
			for !p.is("}") {
				p.skipInitializer()
				if !p.accept(",") {
					break
				}
			}
		}
	default:
		item.Children = append(item.Children, p.parseInitializer(ty))
		p.accept(",")
	}
	p.consume("}")
	return item
}

// skipInitializer consumes and discards one excess initializer element,
// reported as a warning rather than a fatal error.
func (p *parser) skipInitializer() {
	t := p.cur()
	p.warnf(t, "excess elements in initializer")
	if p.is("{") {
		depth := 0
		for {
			if p.is("{") {
				depth++
			} else if p.is("}") {
				depth--
			}
			p.advance()
			if depth == 0 {
				return
			}
		}
	}
	p.assign()
}

// localInitializer lowers an initializer into a comma-sequenced tree of
// assignments into v's storage, returned as a single ND_EXPR_STMT-wrapped
// expression. When the initializer supplies fewer elements than
// the aggregate declares, the whole variable is zeroed first via
// ND_MEMZERO so the omitted tail reads as zero rather than whatever garbage
// was already on the stack.
func (p *parser) localInitializer(v *ir.Var, ty *types.Type) *ast.Node {
	item := p.parseInitializer(ty)
	tok := v.Tok
	root := p.varNode(v, tok)

	var e *ast.Node
	if initNeedsZero(item) {
		e = &ast.Node{Kind: ast.ND_MEMZERO, Var: root.Var, Type: ty, Tok: tok}
	}
	if assign := p.lowerLocal(item, root, tok); assign != nil {
		if e != nil {
			e = ast.NewBinary(ast.ND_COMMA, e, assign, tok)
		} else {
			e = assign
		}
	}
	if e == nil {
		e = &ast.Node{Kind: ast.ND_NULL_EXPR, Tok: tok}
	}
	return &ast.Node{Kind: ast.ND_EXPR_STMT, Lhs: e, Tok: tok}
}

// initNeedsZero reports whether item, at any level, supplies fewer elements
// than its aggregate type declares.
func initNeedsZero(item *initItem) bool {
	if item == nil || item.Expr != nil {
		return false
	}
	switch item.Ty.Kind {
	case types.ARRAY:
		if item.Ty.Len >= 0 && int64(len(item.Children)) < item.Ty.Len {
			return true
		}
	case types.STRUCT:
		if !item.Ty.IsUnion && len(item.Children) < len(item.Ty.Members) {
			return true
		}
	}
	for _, c := range item.Children {
		if initNeedsZero(c) {
			return true
		}
	}
	return false
}

func (p *parser) lowerLocal(item *initItem, lvalue *ast.Node, tok *token.Token) *ast.Node {
	if item == nil {
		return nil
	}
	if item.Expr != nil && item.Children == nil {
		p.typeExpr(lvalue)
		a := ast.NewBinary(ast.ND_ASSIGN, lvalue, ast.NewCast(item.Expr, lvalue.Type), tok)
		a.IsInit = true
		return p.typeExpr(a)
	}

	var result *ast.Node
	join := func(n *ast.Node) {
		if n == nil {
			return
		}
		if result == nil {
			result = n
			return
		}
		result = ast.NewBinary(ast.ND_COMMA, result, n, tok)
	}

	switch item.Ty.Kind {
	case types.ARRAY:
		for i, child := range item.Children {
			idx := ast.NewNum(int64(i), tok)
			elem := p.typeExpr(ast.NewUnary(ast.ND_DEREF, p.newAdd(lvalue, idx, tok), tok))
			join(p.lowerLocal(child, elem, tok))
		}
	case types.STRUCT:
		members := item.Ty.Members
		for i, child := range item.Children {
			if i >= len(members) {
				break
			}
			m := members[i]
			elem := &ast.Node{Kind: ast.ND_MEMBER, Lhs: lvalue, Member: m, Tok: tok, Type: m.Type}
			join(p.lowerLocal(child, elem, tok))
		}
	}
	if result == nil {
		result = &ast.Node{Kind: ast.ND_NULL_EXPR, Tok: tok}
	}
	return result
}

// globalInitializer lowers an initializer into v's InitData byte buffer,
// plus Relocations for address-valued leaves.
func (p *parser) globalInitializer(v *ir.Var, ty *types.Type) {
	item := p.parseInitializer(ty)
	v.Type = ty // may have been completed (array length inference)
	v.InitData = make([]byte, ty.Size)
	p.lowerGlobal(item, v, 0)
}

func (p *parser) lowerGlobal(item *initItem, v *ir.Var, offset int64) {
	if item == nil {
		return
	}
	if item.Expr != nil && item.Children == nil {
		p.writeGlobalLeaf(item.Expr, item.Ty, v, offset)
		return
	}
	switch item.Ty.Kind {
	case types.ARRAY:
		elemSz := item.Ty.Base.Size
		for i, child := range item.Children {
			p.lowerGlobal(child, v, offset+int64(i)*elemSz)
		}
	case types.STRUCT:
		members := item.Ty.Members
		for i, child := range item.Children {
			if i >= len(members) {
				continue
			}
			m := members[i]
			if m.IsBitfield {
				p.writeGlobalBitfield(child, m, v, offset)
				continue
			}
			p.lowerGlobal(child, v, offset+m.Offset)
		}
	}
}

func (p *parser) writeGlobalLeaf(e *ast.Node, ty *types.Type, v *ir.Var, offset int64) {
	if ty.IsFlonum() {
		f := p.evalDouble(e)
		if ty.Kind == types.FLOAT {
			putFloat32(v.InitData, offset, float32(f))
		} else {
			putFloat64(v.InitData, offset, f)
		}
		return
	}
	if gv, addrOff, ok := p.evalAddr(e); ok {
		v.Relocations = append(v.Relocations, ir.Relocation{Offset: offset, Label: gv.Name, Addend: addrOff})
		return
	}
	n := p.eval(e)
	putInt(v.InitData, offset, n, ty.Size)
}

func (p *parser) writeGlobalBitfield(item *initItem, m *types.Member, v *ir.Var, structOffset int64) {
	if item == nil || item.Expr == nil {
		return
	}
	n := p.eval(item.Expr)
	byteOff := structOffset + m.Offset
	sz := m.Type.Size
	if byteOff < 0 || int(byteOff)+int(sz) > len(v.InitData) {
		return
	}
	cur := readIntLE(v.InitData, byteOff, sz)
	mask := (int64(1) << uint(m.BitWidth)) - 1
	cur = (cur &^ (mask << uint(m.BitOffset))) | ((n & mask) << uint(m.BitOffset))
	writeIntLE(v.InitData, byteOff, cur, sz)
}

func putInt(buf []byte, offset, v int64, size int64) {
	if offset < 0 || int(offset)+int(size) > len(buf) {
		return
	}
	for i := int64(0); i < size; i++ {
		buf[offset+i] = byte(v >> (8 * i))
	}
}

func readIntLE(buf []byte, offset int64, size int64) int64 {
	var v int64
	for i := int64(0); i < size && int(offset+i) < len(buf); i++ {
		v |= int64(buf[offset+i]) << (8 * i)
	}
	return v
}

func writeIntLE(buf []byte, offset int64, v int64, size int64) {
	for i := int64(0); i < size && int(offset+i) < len(buf); i++ {
		buf[offset+i] = byte(v >> (8 * i))
	}
}

func putFloat32(buf []byte, offset int64, f float32) {
	putInt(buf, offset, int64(math.Float32bits(f)), 4)
}

func putFloat64(buf []byte, offset int64, f float64) {
	putInt(buf, offset, int64(math.Float64bits(f)), 8)
}
