package parser

import (
	"github.com/occ-lang/occ/lang/ast"
	"github.com/occ-lang/occ/lang/types"
)

// typeExpr assigns n.Type (if not already set) assuming every child of n
// already carries a type, inserting ND_CAST nodes for the usual arithmetic
// conversion on binary arithmetic/comparison operators. This mirrors the
// source material's single bottom-up add_type pass, called by the parser
// immediately after constructing each node rather than as a separate
// top-down walk, since every child is already typed at construction time.
func (p *parser) typeExpr(n *ast.Node) *ast.Node {
	if n == nil || n.Type != nil {
		return n
	}

	switch n.Kind {
	case ast.ND_ADD, ast.ND_SUB, ast.ND_MUL, ast.ND_DIV, ast.ND_MOD,
		ast.ND_BITAND, ast.ND_BITOR, ast.ND_BITXOR:
		common := types.CommonType(n.Lhs.Type, n.Rhs.Type)
		n.Lhs = ast.NewCast(n.Lhs, common)
		n.Rhs = ast.NewCast(n.Rhs, common)
		n.Type = common

	case ast.ND_SHL, ast.ND_SHR:
		n.Lhs = ast.NewCast(n.Lhs, promoteInt(n.Lhs.Type))
		n.Type = n.Lhs.Type

	case ast.ND_EQ, ast.ND_NE, ast.ND_LT, ast.ND_LE:
		common := types.CommonType(n.Lhs.Type, n.Rhs.Type)
		n.Lhs = ast.NewCast(n.Lhs, common)
		n.Rhs = ast.NewCast(n.Rhs, common)
		n.Type = types.Int

	case ast.ND_LOGAND, ast.ND_LOGOR, ast.ND_NOT:
		n.Type = types.Int

	case ast.ND_BITNOT, ast.ND_NEG:
		n.Type = n.Lhs.Type

	case ast.ND_ASSIGN:
		if n.Lhs.Type.Kind == types.ARRAY {
			p.errorf(n.Tok, "not an lvalue")
		}
		if n.Lhs.Type.Kind != types.STRUCT {
			n.Rhs = ast.NewCast(n.Rhs, n.Lhs.Type)
		}
		n.Type = n.Lhs.Type

	case ast.ND_COMMA:
		n.Type = n.Rhs.Type

	case ast.ND_MEMBER:
		// Type already set at construction (m.Type).

	case ast.ND_ADDR:
		if n.Lhs.Type.Kind == types.ARRAY {
			n.Type = types.PointerTo(n.Lhs.Type.Base)
		} else {
			n.Type = types.PointerTo(n.Lhs.Type)
		}

	case ast.ND_DEREF:
		base := n.Lhs.Type
		if base.Kind != types.PTR && base.Kind != types.ARRAY {
			p.errorf(n.Tok, "invalid pointer dereference")
		}
		if base.Base.Kind == types.VOID {
			p.errorf(n.Tok, "dereferencing a pointer to incomplete type")
		}
		n.Type = base.Base

	case ast.ND_COND:
		if n.Then.Type.IsNumeric() && n.Then.Type.Kind != types.VOID && n.Els.Type.Kind != types.VOID {
			n.Type = types.CommonType(n.Then.Type, n.Els.Type)
		} else {
			n.Type = n.Then.Type
		}

	case ast.ND_FUNCALL, ast.ND_VAR, ast.ND_NUM, ast.ND_CAST:
		// Already set by the caller.

	case ast.ND_STMT_EXPR:
		// Already set by stmtExpr.

	default:
		n.Type = types.Int
	}
	return n
}

// promoteInt widens char/short/bool to int, leaving wider integer types
// alone (used for the shift operators, which do not apply the usual
// arithmetic conversion to both operands).
func promoteInt(t *types.Type) *types.Type {
	if t.Size < 4 {
		return types.Int
	}
	return t
}
