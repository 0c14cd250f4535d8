package parser

import (
	"github.com/occ-lang/occ/lang/ast"
	"github.com/occ-lang/occ/lang/ir"
	"github.com/occ-lang/occ/lang/types"
)

// constExpr parses a conditional-expression and folds it to an int64,
// erroring if it is not a compile-time constant.
func (p *parser) constExpr() int64 {
	n := p.conditional()
	return p.eval(n)
}

// constExprType parses a conditional-expression purely to recover its type
// (used by `typeof(expr)`), discarding the value.
func (p *parser) constExprType() *types.Type {
	n := p.conditional()
	return n.Type
}

// eval recursively folds an integer constant expression.
func (p *parser) eval(n *ast.Node) int64 {
	if n.Type != nil && n.Type.IsFlonum() {
		return int64(p.evalDouble(n))
	}
	switch n.Kind {
	case ast.ND_ADD:
		return p.eval(n.Lhs) + p.eval(n.Rhs)
	case ast.ND_SUB:
		return p.eval(n.Lhs) - p.eval(n.Rhs)
	case ast.ND_MUL:
		return p.eval(n.Lhs) * p.eval(n.Rhs)
	case ast.ND_DIV:
		r := p.eval(n.Rhs)
		if r == 0 {
			p.errorf(n.Tok, "division by zero in constant expression")
		}
		if n.Type != nil && n.Type.IsUnsigned {
			return int64(uint64(p.eval(n.Lhs)) / uint64(r))
		}
		return p.eval(n.Lhs) / r
	case ast.ND_MOD:
		r := p.eval(n.Rhs)
		if r == 0 {
			p.errorf(n.Tok, "division by zero in constant expression")
		}
		return p.eval(n.Lhs) % r
	case ast.ND_BITAND:
		return p.eval(n.Lhs) & p.eval(n.Rhs)
	case ast.ND_BITOR:
		return p.eval(n.Lhs) | p.eval(n.Rhs)
	case ast.ND_BITXOR:
		return p.eval(n.Lhs) ^ p.eval(n.Rhs)
	case ast.ND_SHL:
		return p.eval(n.Lhs) << uint(p.eval(n.Rhs))
	case ast.ND_SHR:
		return p.eval(n.Lhs) >> uint(p.eval(n.Rhs))
	case ast.ND_EQ:
		return b2i(p.eval(n.Lhs) == p.eval(n.Rhs))
	case ast.ND_NE:
		return b2i(p.eval(n.Lhs) != p.eval(n.Rhs))
	case ast.ND_LT:
		return b2i(p.eval(n.Lhs) < p.eval(n.Rhs))
	case ast.ND_LE:
		return b2i(p.eval(n.Lhs) <= p.eval(n.Rhs))
	case ast.ND_LOGAND:
		return b2i(p.eval(n.Lhs) != 0 && p.eval(n.Rhs) != 0)
	case ast.ND_LOGOR:
		return b2i(p.eval(n.Lhs) != 0 || p.eval(n.Rhs) != 0)
	case ast.ND_NOT:
		return b2i(p.eval(n.Lhs) == 0)
	case ast.ND_BITNOT:
		return ^p.eval(n.Lhs)
	case ast.ND_NEG:
		return -p.eval(n.Lhs)
	case ast.ND_COND:
		if p.eval(n.Cond) != 0 {
			return p.eval(n.Then)
		}
		return p.eval(n.Els)
	case ast.ND_COMMA:
		p.eval(n.Lhs)
		return p.eval(n.Rhs)
	case ast.ND_CAST:
		v := p.eval(n.Lhs)
		return castInt(v, n.Type)
	case ast.ND_NUM:
		return n.IVal
	case ast.ND_ADDR:
		_, v, ok := p.evalAddr(n)
		if !ok {
			p.errorf(n.Tok, "not a compile-time constant")
		}
		return v
	case ast.ND_MEMBER:
		if n.Member != nil && n.Member.IsBitfield {
			p.errorf(n.Tok, "not a compile-time constant")
		}
	}
	p.errorf(n.Tok, "not a compile-time constant")
	return 0
}

func castInt(v int64, ty *types.Type) int64 {
	if ty == nil {
		return v
	}
	switch ty.Size {
	case 1:
		v &= 0xff
		if !ty.IsUnsigned && v&0x80 != 0 {
			v |= ^int64(0xff)
		}
	case 2:
		v &= 0xffff
		if !ty.IsUnsigned && v&0x8000 != 0 {
			v |= ^int64(0xffff)
		}
	case 4:
		v &= 0xffffffff
		if !ty.IsUnsigned && v&0x80000000 != 0 {
			v |= ^int64(0xffffffff)
		}
	}
	return v
}

// evalDouble folds a floating constant expression.
func (p *parser) evalDouble(n *ast.Node) float64 {
	if n.Type != nil && n.Type.IsInteger() {
		return float64(p.eval(n))
	}
	switch n.Kind {
	case ast.ND_ADD:
		return p.evalDouble(n.Lhs) + p.evalDouble(n.Rhs)
	case ast.ND_SUB:
		return p.evalDouble(n.Lhs) - p.evalDouble(n.Rhs)
	case ast.ND_MUL:
		return p.evalDouble(n.Lhs) * p.evalDouble(n.Rhs)
	case ast.ND_DIV:
		return p.evalDouble(n.Lhs) / p.evalDouble(n.Rhs)
	case ast.ND_NEG:
		return -p.evalDouble(n.Lhs)
	case ast.ND_COND:
		if p.evalDouble(n.Cond) != 0 {
			return p.evalDouble(n.Then)
		}
		return p.evalDouble(n.Els)
	case ast.ND_COMMA:
		p.evalDouble(n.Lhs)
		return p.evalDouble(n.Rhs)
	case ast.ND_CAST:
		if n.Lhs.Type.IsFlonum() {
			return p.evalDouble(n.Lhs)
		}
		return float64(p.eval(n.Lhs))
	case ast.ND_NUM:
		return n.FVal
	}
	p.errorf(n.Tok, "not a compile-time constant")
	return 0
}

// evalAddr folds `&global + constant`-shaped expressions, returning the
// referenced Var and the constant byte offset. Used for global initializers
// that need a Relocation instead of inline bytes.
func (p *parser) evalAddr(n *ast.Node) (*ir.Var, int64, bool) {
	switch n.Kind {
	case ast.ND_VAR:
		if v, ok := n.Var.Ref.(*ir.Var); ok && !v.IsLocal {
			return v, 0, true
		}
		return nil, 0, false
	case ast.ND_ADDR:
		return p.evalAddr(n.Lhs)
	case ast.ND_DEREF:
		return p.evalAddr(n.Lhs)
	case ast.ND_MEMBER:
		v, off, ok := p.evalAddr(n.Lhs)
		if !ok {
			return nil, 0, false
		}
		return v, off + n.Member.Offset, true
	case ast.ND_ADD:
		if v, off, ok := p.evalAddr(n.Lhs); ok {
			return v, off + p.eval(n.Rhs), true
		}
		if v, off, ok := p.evalAddr(n.Rhs); ok {
			return v, off + p.eval(n.Lhs), true
		}
		return nil, 0, false
	case ast.ND_SUB:
		if v, off, ok := p.evalAddr(n.Lhs); ok {
			return v, off - p.eval(n.Rhs), true
		}
		return nil, 0, false
	case ast.ND_CAST:
		return p.evalAddr(n.Lhs)
	}
	return nil, 0, false
}
