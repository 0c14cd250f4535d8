package compiler

import (
	"fmt"

	"github.com/occ-lang/occ/lang/ast"
	"github.com/occ-lang/occ/lang/types"
)

// genStmt emits n, a statement node; it never leaves a value on either
// evaluation stack.
func (cg *codegen) genStmt(n *ast.Node) {
	if n == nil {
		return
	}
	if n.Tok != nil {
		cg.genLoc(n.Tok)
	}
	switch n.Kind {
	case ast.ND_NULL_EXPR:
		return
	case ast.ND_EXPR_STMT:
		cg.genExpr(n.Lhs)
		cg.discard(n.Lhs.Type)
	case ast.ND_BLOCK:
		for _, s := range n.Body {
			cg.genStmt(s)
		}
	case ast.ND_RETURN:
		if n.Lhs != nil {
			cg.genExpr(n.Lhs)
			cg.genReturnValue(n.Lhs.Type)
		}
		cg.printf("  jmp .L.return.%s\n", cg.fn.Name)
	case ast.ND_IF:
		cg.genIf(n)
	case ast.ND_FOR:
		cg.genFor(n)
	case ast.ND_DO:
		cg.genDo(n)
	case ast.ND_SWITCH:
		cg.genSwitch(n)
	case ast.ND_CASE:
		cg.printf("%s:\n", n.UniqueLabel)
		cg.genStmt(n.Lhs)
	case ast.ND_LABEL:
		cg.printf("%s:\n", n.UniqueLabel)
		cg.genStmt(n.Lhs)
	case ast.ND_GOTO:
		cg.printf("  jmp %s\n", n.UniqueLabel)
	case ast.ND_BREAK, ast.ND_CONTINUE:
		cg.printf("  jmp %s\n", n.Label)
	default:
		panic(fmt.Sprintf("compiler: not a statement: kind %d", n.Kind))
	}
}

// genReturnValue moves the just-evaluated return expression into rax/xmm0,
// popping it off whichever evaluation stack it's on.
func (cg *codegen) genReturnValue(ty *types.Type) {
	if ty.IsFlonum() {
		f := cg.freg.pop()
		if ty.Kind == types.FLOAT {
			cg.printf("  movss xmm0, %s\n", f)
		} else {
			cg.printf("  movsd xmm0, %s\n", f)
		}
		return
	}
	r := cg.ireg.pop()
	cg.printf("  mov rax, %s\n", r)
}

func (cg *codegen) genIf(n *ast.Node) {
	elseLabel := cg.newLabel()
	endLabel := elseLabel
	if n.Els != nil {
		endLabel = cg.newLabel()
	}
	cg.genExpr(n.Cond)
	cg.genTruthTest(n.Cond.Type)
	cg.printf("  je %s\n", elseLabel)
	cg.genStmt(n.Then)
	if n.Els != nil {
		cg.printf("  jmp %s\n", endLabel)
		cg.printf("%s:\n", elseLabel)
		cg.genStmt(n.Els)
	}
	cg.printf("%s:\n", endLabel)
}

// genFor also handles `while` (Init/Inc nil, per ast.ND_FOR's doc comment).
func (cg *codegen) genFor(n *ast.Node) {
	begin := cg.newLabel()
	if n.Init != nil {
		cg.genStmt(n.Init)
	}
	cg.printf("%s:\n", begin)
	if n.Cond != nil {
		cg.genExpr(n.Cond)
		cg.genTruthTest(n.Cond.Type)
		cg.printf("  je %s\n", n.BreakLabel)
	}
	cg.genStmt(n.Then)
	cg.printf("%s:\n", n.ContinueLabel)
	if n.Inc != nil {
		cg.genExpr(n.Inc)
		cg.discard(n.Inc.Type)
	}
	cg.printf("  jmp %s\n", begin)
	cg.printf("%s:\n", n.BreakLabel)
}

func (cg *codegen) genDo(n *ast.Node) {
	begin := cg.newLabel()
	cg.printf("%s:\n", begin)
	cg.genStmt(n.Then)
	cg.printf("%s:\n", n.ContinueLabel)
	cg.genExpr(n.Cond)
	cg.genTruthTest(n.Cond.Type)
	cg.printf("  jne %s\n", begin)
	cg.printf("%s:\n", n.BreakLabel)
}

// genSwitch evaluates the controlling expression once, compares it against
// each case's range with a chain of cmp/jcc pairs (GNU case ranges:
// CaseBegin..CaseEnd, equal for an ordinary single-value case), then falls
// through to the default label or the end of the switch.
func (cg *codegen) genSwitch(n *ast.Node) {
	cg.genExpr(n.Cond)
	r := cg.ireg.cur()
	for _, c := range n.Cases {
		if c.CaseBegin == c.CaseEnd {
			cg.printf("  cmp %s, %d\n", r, c.CaseBegin)
			cg.printf("  je %s\n", c.UniqueLabel)
			continue
		}
		skip := cg.newLabel()
		cg.printf("  cmp %s, %d\n", r, c.CaseBegin)
		cg.printf("  jl %s\n", skip)
		cg.printf("  cmp %s, %d\n", r, c.CaseEnd)
		cg.printf("  jg %s\n", skip)
		cg.printf("  jmp %s\n", c.UniqueLabel)
		cg.printf("%s:\n", skip)
	}
	cg.ireg.pop()
	if n.DefaultCase != nil {
		cg.printf("  jmp %s\n", n.DefaultCase.UniqueLabel)
	} else {
		cg.printf("  jmp %s\n", n.BreakLabel)
	}
	cg.genStmt(n.Then)
	cg.printf("%s:\n", n.BreakLabel)
}
