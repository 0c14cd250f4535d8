package ast

import (
	"github.com/occ-lang/occ/lang/token"
	"github.com/occ-lang/occ/lang/types"
)

// NewBinary returns a new binary-operator node.
func NewBinary(kind Kind, lhs, rhs *Node, tok *token.Token) *Node {
	return &Node{Kind: kind, Lhs: lhs, Rhs: rhs, Tok: tok}
}

// NewUnary returns a new unary-operator node.
func NewUnary(kind Kind, lhs *Node, tok *token.Token) *Node {
	return &Node{Kind: kind, Lhs: lhs, Tok: tok}
}

// NewNum returns a new integer-literal node.
func NewNum(v int64, tok *token.Token) *Node {
	return &Node{Kind: ND_NUM, IVal: v, Tok: tok, Type: types.Long}
}

// NewVar returns a new variable-reference node bound to ref (an *ir.Var
// passed as any, see VarRef).
func NewVar(name string, ref any, tok *token.Token) *Node {
	return &Node{Kind: ND_VAR, Var: &VarRef{Name: name, Ref: ref}, Tok: tok}
}

// NewCast wraps expr in an ND_CAST node targeting ty. Unlike the source
// material (which special-cases "don't wrap if already this type" inside
// every caller), the one-line check lives here so every call site gets it
// for free.
func NewCast(expr *Node, ty *types.Type) *Node {
	if expr.Type == ty {
		return expr
	}
	return &Node{Kind: ND_CAST, Lhs: expr, Type: ty, Tok: expr.Tok}
}
