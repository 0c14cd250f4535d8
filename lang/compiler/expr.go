package compiler

import (
	"fmt"
	"math"

	"github.com/occ-lang/occ/lang/ast"
	"github.com/occ-lang/occ/lang/ir"
	"github.com/occ-lang/occ/lang/token"
	"github.com/occ-lang/occ/lang/types"
)

// genAddr computes the address of an lvalue node into the next integer
// register and leaves it there (ireg.top is one greater on return).
func (cg *codegen) genAddr(n *ast.Node) {
	switch n.Kind {
	case ast.ND_VAR:
		v := n.Var.Ref.(*ir.Var)
		r := cg.ireg.push()
		if v.IsLocal {
			cg.printf("  lea %s, [rbp-%d]\n", r, -v.Offset)
			return
		}
		if cg.opts.PIC {
			cg.printf("  mov %s, %s@GOTPCREL[rip]\n", r, v.Name)
			return
		}
		cg.printf("  lea %s, %s[rip]\n", r, v.Name)
	case ast.ND_DEREF:
		cg.genExpr(n.Lhs)
	case ast.ND_COMMA:
		cg.genExpr(n.Lhs)
		cg.ireg.pop()
		cg.genAddr(n.Rhs)
	case ast.ND_MEMBER:
		cg.genAddr(n.Lhs)
		if off := n.Member.Offset; off != 0 {
			cg.printf("  add %s, %d\n", cg.ireg.cur(), off)
		}
	case ast.ND_FUNCALL:
		// A function returning a struct/union by value is a non-goal; this
		// path only exists so the ND_MEMBER case above can recurse through it
		// uniformly.
		cg.genExpr(n)
	default:
		panic(fmt.Sprintf("compiler: not an lvalue: kind %d", n.Kind))
	}
}

// genExpr emits n and leaves its value in ireg.cur() (integers, pointers)
// or freg.cur() (float/double); ireg/freg.top is one greater on return.
func (cg *codegen) genExpr(n *ast.Node) {
	if n.Tok != nil {
		cg.genLoc(n.Tok)
	}
	switch n.Kind {
	case ast.ND_NULL_EXPR:
		return
	case ast.ND_NUM:
		cg.genNum(n)
	case ast.ND_VAR:
		cg.genAddr(n)
		cg.genLoad(n.Type)
	case ast.ND_MEMBER:
		if n.Member.IsBitfield {
			cg.genBitfieldLoad(n)
		} else {
			cg.genAddr(n)
			cg.genLoad(n.Type)
		}
	case ast.ND_ADDR:
		cg.genAddr(n.Lhs)
	case ast.ND_DEREF:
		cg.genExpr(n.Lhs)
		cg.genLoad(n.Type)
	case ast.ND_CAST:
		cg.genExpr(n.Lhs)
		cg.genCast(n.Lhs.Type, n.Type)
	case ast.ND_NOT:
		cg.genExpr(n.Lhs)
		cg.genNot(n.Lhs.Type)
	case ast.ND_BITNOT:
		cg.genExpr(n.Lhs)
		cg.printf("  not %s\n", cg.ireg.cur())
	case ast.ND_NEG:
		cg.genExpr(n.Lhs)
		cg.genNeg(n.Type)
	case ast.ND_ASSIGN:
		cg.genAssign(n)
	case ast.ND_COMMA:
		cg.genExpr(n.Lhs)
		cg.discard(n.Lhs.Type)
		cg.genExpr(n.Rhs)
	case ast.ND_COND:
		cg.genCond(n)
	case ast.ND_LOGAND:
		cg.genLogAnd(n)
	case ast.ND_LOGOR:
		cg.genLogOr(n)
	case ast.ND_FUNCALL:
		cg.genFuncall(n)
	case ast.ND_STMT_EXPR:
		cg.genStmtExpr(n)
	case ast.ND_MEMZERO:
		cg.genMemzero(n)
	default:
		cg.genBinary(n)
	}
}

// genLoc emits a `.loc` line-marker directive the first time a given
// file/line pair is seen in sequence, so the emitted assembly stays
// readable without a flood of redundant directives.
func (cg *codegen) genLoc(tok *token.Token) {
	if tok.File == nil {
		return
	}
	if tok.File.No == cg.curFile && tok.Line == cg.curLine {
		return
	}
	cg.curFile, cg.curLine = tok.File.No, tok.Line
	cg.printf("  .loc %d %d\n", tok.File.No, tok.Line)
}

func (cg *codegen) genNum(n *ast.Node) {
	if n.Type != nil && n.Type.IsFlonum() {
		r := cg.ireg.push()
		if n.Type.Kind == types.FLOAT {
			bits := int64(math.Float32bits(float32(n.FVal)))
			cg.printf("  mov %s, %d\n", dwordOf(r), bits)
		} else {
			bits := int64(math.Float64bits(n.FVal))
			cg.printf("  movabs %s, %d\n", r, bits)
		}
		f := cg.freg.push()
		if n.Type.Kind == types.FLOAT {
			cg.printf("  movd %s, %s\n", f, dwordOf(r))
		} else {
			cg.printf("  movq %s, %s\n", f, r)
		}
		cg.ireg.pop()
		return
	}
	r := cg.ireg.push()
	cg.printf("  movabs %s, %d\n", r, n.IVal)
}

// genLoad dereferences the address currently on top of ireg (or, for
// floats, moves it into freg), following C's "array and struct/union
// values are their own address" rule: ARRAY and STRUCT never load.
func (cg *codegen) genLoad(ty *types.Type) {
	if ty == nil {
		return
	}
	switch ty.Kind {
	case types.ARRAY, types.STRUCT:
		return
	case types.FLOAT:
		addr := cg.ireg.pop()
		f := cg.freg.push()
		cg.printf("  movss %s, [%s]\n", f, addr)
	case types.DOUBLE:
		addr := cg.ireg.pop()
		f := cg.freg.push()
		cg.printf("  movsd %s, [%s]\n", f, addr)
	default:
		r := cg.ireg.cur()
		cg.emitIntLoad(r, r, ty)
	}
}

// emitIntLoad reads an integer-kinded value of type ty from [addrReg] into
// dst, sign- or zero-extending per ty's signedness the way every narrower-
// than-register C integer load must.
func (cg *codegen) emitIntLoad(dst, addrReg string, ty *types.Type) {
	switch ty.Size {
	case 1:
		if ty.IsUnsigned {
			cg.printf("  movzx %s, byte ptr [%s]\n", dst, addrReg)
		} else {
			cg.printf("  movsx %s, byte ptr [%s]\n", dst, addrReg)
		}
	case 2:
		if ty.IsUnsigned {
			cg.printf("  movzx %s, word ptr [%s]\n", dst, addrReg)
		} else {
			cg.printf("  movsx %s, word ptr [%s]\n", dst, addrReg)
		}
	case 4:
		if ty.IsUnsigned {
			cg.printf("  mov %s, dword ptr [%s]\n", dwordOf(dst), addrReg)
		} else {
			cg.printf("  movsxd %s, dword ptr [%s]\n", dst, addrReg)
		}
	default:
		cg.printf("  mov %s, [%s]\n", dst, addrReg)
	}
}

// genBitfieldLoad reads a bitfield member: it loads the whole container of
// the member's base type (already sign/zero-extended to 64 bits by
// emitIntLoad), shifts the field up to the top of the 64-bit register and
// back down, which drops the neighbouring bits and sign- or zero-extends it.
func (cg *codegen) genBitfieldLoad(n *ast.Node) {
	cg.genAddr(n.Lhs)
	r := cg.ireg.cur()
	m := n.Member
	cg.emitIntLoad(r, r, m.Type)
	width := int64(64)
	shiftLeft := width - m.BitOffset - m.BitWidth
	cg.printf("  shl %s, %d\n", r, shiftLeft)
	if m.Type.IsUnsigned {
		cg.printf("  shr %s, %d\n", r, width-m.BitWidth)
	} else {
		cg.printf("  sar %s, %d\n", r, width-m.BitWidth)
	}
}

// genCast emits a conversion from `from` to `to`, using a small matrix of
// size/sign/float conversions.
func (cg *codegen) genCast(from, to *types.Type) {
	if to == nil || to.Kind == types.VOID {
		return
	}
	fromFlo, toFlo := from != nil && from.IsFlonum(), to.IsFlonum()
	switch {
	case !fromFlo && !toFlo:
		cg.genIntToInt(from, to)
	case fromFlo && toFlo:
		cg.genFloatToFloat(from, to)
	case fromFlo && !toFlo:
		cg.genFloatToInt(from, to)
	default:
		cg.genIntToFloat(from, to)
	}
}

func (cg *codegen) genIntToInt(from, to *types.Type) {
	if to.Kind == types.BOOL {
		r := cg.ireg.cur()
		cg.printf("  cmp %s, 0\n", r)
		cg.printf("  setne al\n")
		cg.printf("  movzx %s, al\n", r)
		return
	}
	r := cg.ireg.cur()
	if from == nil || to.Size <= from.Size {
		return
	}
	switch {
	case to.Size == 8 && from.Size == 4 && !from.IsUnsigned:
		cg.printf("  movsxd %s, %s\n", r, dwordOf(r))
	case to.Size == 8 && from.Size == 4:
		cg.printf("  mov %s, %s\n", dwordOf(r), dwordOf(r))
	case from.IsUnsigned:
		cg.printf("  movzx %s, %s\n", r, regName(r, from.Size))
	default:
		cg.printf("  movsx %s, %s\n", r, regName(r, from.Size))
	}
}

func (cg *codegen) genFloatToFloat(from, to *types.Type) {
	f := cg.freg.cur()
	if from.Kind == to.Kind {
		return
	}
	if to.Kind == types.DOUBLE {
		cg.printf("  cvtss2sd %s, %s\n", f, f)
	} else {
		cg.printf("  cvtsd2ss %s, %s\n", f, f)
	}
}

func (cg *codegen) genFloatToInt(from, to *types.Type) {
	f := cg.freg.pop()
	r := cg.ireg.push()
	conv := "cvttss2si"
	if from.Kind == types.DOUBLE {
		conv = "cvttsd2si"
	}
	cg.printf("  %s %s, %s\n", conv, r, f)
	if to.Size <= 4 {
		cg.printf("  movsxd %s, %s\n", r, dwordOf(r))
	}
	if to.Kind == types.BOOL {
		cg.printf("  cmp %s, 0\n", r)
		cg.printf("  setne al\n")
		cg.printf("  movzx %s, al\n", r)
	}
}

func (cg *codegen) genIntToFloat(from, to *types.Type) {
	r := cg.ireg.pop()
	f := cg.freg.push()
	conv := "cvtsi2ss"
	if to.Kind == types.DOUBLE {
		conv = "cvtsi2sd"
	}
	cg.printf("  %s %s, %s\n", conv, f, r)
}

func (cg *codegen) genNot(ty *types.Type) {
	if ty != nil && ty.IsFlonum() {
		f := cg.freg.pop()
		r := cg.ireg.push()
		zero := cg.freg.push()
		cg.printf("  xorps %s, %s\n", zero, zero)
		cg.freg.pop()
		cmp := "ucomiss"
		if ty.Kind == types.DOUBLE {
			cmp = "ucomisd"
		}
		cg.printf("  %s %s, %s\n", cmp, f, zero)
		cg.printf("  sete al\n")
		cg.printf("  movzx %s, al\n", r)
		return
	}
	r := cg.ireg.cur()
	cg.printf("  cmp %s, 0\n", r)
	cg.printf("  sete al\n")
	cg.printf("  movzx %s, al\n", r)
}

func (cg *codegen) genNeg(ty *types.Type) {
	if ty != nil && ty.IsFlonum() {
		f := cg.freg.cur()
		if ty.Kind == types.FLOAT {
			cg.printf("  xorps %s, [rip+.L.negbit32]\n", f)
		} else {
			cg.printf("  xorpd %s, [rip+.L.negbit64]\n", f)
		}
		return
	}
	cg.printf("  neg %s\n", cg.ireg.cur())
}

// discard drops the value genExpr just pushed, matching which stack (or
// neither, for a void-typed expression such as a void function call) it
// landed on. Used by ND_COMMA's left operand and expression statements.
func (cg *codegen) discard(ty *types.Type) {
	if ty == nil || ty.Kind == types.VOID {
		return
	}
	if ty.IsFlonum() {
		cg.freg.pop()
		return
	}
	cg.ireg.pop()
}

func (cg *codegen) genAssign(n *ast.Node) {
	if n.Lhs.Kind == ast.ND_MEMBER && n.Lhs.Member.IsBitfield {
		cg.genBitfieldAssign(n)
		return
	}
	if n.Type != nil && n.Type.Kind == types.STRUCT {
		cg.genStructAssign(n)
		return
	}
	cg.genExpr(n.Rhs)
	cg.genAddr(n.Lhs)
	cg.genStore(n.Type)
}

// genStore pops the address on top of the integer stack and writes the value
// just below it (or freg.cur(), for floats) to that address, leaving the
// value as the single result — mirroring the value of a C assignment
// expression being the assigned value.
func (cg *codegen) genStore(ty *types.Type) {
	if ty != nil && ty.IsFlonum() {
		f := cg.freg.cur()
		addr := cg.ireg.pop()
		if ty.Kind == types.FLOAT {
			cg.printf("  movss [%s], %s\n", addr, f)
		} else {
			cg.printf("  movsd [%s], %s\n", addr, f)
		}
		return
	}
	addr := cg.ireg.pop()
	r := cg.ireg.cur()
	sz := int64(8)
	if ty != nil {
		sz = ty.Size
	}
	cg.printf("  mov [%s], %s\n", addr, regName(r, sz))
}

// genBitfieldAssign stores a bitfield member with a load/mask/or/store
// sequence, parameterized on the containing member's base-type width
// exactly as writeGlobalBitfield parameterizes the equivalent constant-fold
// path for global initializers.
func (cg *codegen) genBitfieldAssign(n *ast.Node) {
	m := n.Lhs.Member
	mask := (int64(1) << uint(m.BitWidth)) - 1

	cg.genExpr(n.Rhs)
	val := cg.ireg.cur()
	cg.printf("  and %s, %d\n", val, mask)

	cg.genAddr(n.Lhs.Lhs)
	addr := cg.ireg.cur()
	if m.Offset != 0 {
		cg.printf("  add %s, %d\n", addr, m.Offset)
	}
	tmp := cg.ireg.push()
	cg.emitIntLoad(tmp, addr, m.Type)
	cg.printf("  and %s, %d\n", regName(tmp, m.Type.Size), ^(mask << uint(m.BitOffset)))
	cg.printf("  mov rax, %s\n", val)
	cg.printf("  shl rax, %d\n", m.BitOffset)
	cg.printf("  or %s, rax\n", tmp)
	cg.printf("  mov [%s], %s\n", addr, regName(tmp, m.Type.Size))

	cg.ireg.pop() // tmp
	cg.ireg.pop() // addr; val remains at the new top
}

// genStructAssign copies n.Type.Size bytes from the rhs address to the lhs
// address, used for whole-aggregate `struct S a = b;` assignment.
func (cg *codegen) genStructAssign(n *ast.Node) {
	cg.genAddr(n.Rhs)
	cg.genAddr(n.Lhs)
	dst := cg.ireg.pop()
	src := cg.ireg.cur()
	cg.printf("  mov rcx, %d\n", n.Type.Size)
	cg.printf("  mov rsi, %s\n", src)
	cg.printf("  mov rdi, %s\n", dst)
	cg.printf("  rep movsb\n")
	cg.printf("  mov %s, %s\n", src, dst)
}

func (cg *codegen) genCond(n *ast.Node) {
	elseLabel := cg.newLabel()
	endLabel := cg.newLabel()
	cg.genExpr(n.Cond)
	cg.genTruthTest(n.Cond.Type)
	cg.printf("  je %s\n", elseLabel)
	cg.genExpr(n.Then)
	isFlo := n.Then.Type != nil && n.Then.Type.IsFlonum()
	if isFlo {
		cg.freg.pop()
	} else {
		cg.ireg.pop()
	}
	cg.printf("  jmp %s\n", endLabel)
	cg.printf("%s:\n", elseLabel)
	cg.genExpr(n.Els)
	cg.printf("%s:\n", endLabel)
}

// genTruthTest pops the evaluated condition and leaves CPU flags set for a
// following je/jne, collapsing floats to an integer comparison first.
func (cg *codegen) genTruthTest(ty *types.Type) {
	if ty != nil && ty.IsFlonum() {
		f := cg.freg.pop()
		zero := cg.freg.push()
		cg.printf("  xorps %s, %s\n", zero, zero)
		cg.freg.pop()
		cmp := "ucomiss"
		if ty.Kind == types.DOUBLE {
			cmp = "ucomisd"
		}
		cg.printf("  %s %s, %s\n", cmp, f, zero)
		return
	}
	r := cg.ireg.pop()
	cg.printf("  cmp %s, 0\n", r)
}

func (cg *codegen) genLogAnd(n *ast.Node) {
	falseLabel := cg.newLabel()
	endLabel := cg.newLabel()
	cg.genExpr(n.Lhs)
	cg.genTruthTest(n.Lhs.Type)
	cg.printf("  je %s\n", falseLabel)
	cg.genExpr(n.Rhs)
	cg.genTruthTest(n.Rhs.Type)
	cg.printf("  je %s\n", falseLabel)
	r := cg.ireg.push()
	cg.printf("  mov %s, 1\n", r)
	cg.printf("  jmp %s\n", endLabel)
	cg.printf("%s:\n", falseLabel)
	cg.printf("  mov %s, 0\n", r)
	cg.printf("%s:\n", endLabel)
}

func (cg *codegen) genLogOr(n *ast.Node) {
	trueLabel := cg.newLabel()
	endLabel := cg.newLabel()
	cg.genExpr(n.Lhs)
	cg.genTruthTest(n.Lhs.Type)
	cg.printf("  jne %s\n", trueLabel)
	cg.genExpr(n.Rhs)
	cg.genTruthTest(n.Rhs.Type)
	cg.printf("  jne %s\n", trueLabel)
	r := cg.ireg.push()
	cg.printf("  mov %s, 0\n", r)
	cg.printf("  jmp %s\n", endLabel)
	cg.printf("%s:\n", trueLabel)
	cg.printf("  mov %s, 1\n", r)
	cg.printf("%s:\n", endLabel)
}

func (cg *codegen) genStmtExpr(n *ast.Node) {
	for i, s := range n.Body {
		if i == len(n.Body)-1 && s.Kind == ast.ND_EXPR_STMT {
			cg.genExpr(s.Lhs)
			return
		}
		cg.genStmt(s)
	}
	r := cg.ireg.push()
	cg.printf("  xor %s, %s\n", r, r)
}

// genMemzero zeroes v's entire storage with rep stosb, used for the tail of
// a partially supplied aggregate initializer. Its result (an unspecified
// value left on the integer stack) is always the discarded left operand of
// a comma, never read.
func (cg *codegen) genMemzero(n *ast.Node) {
	v := n.Var.Ref.(*ir.Var)
	r := cg.ireg.push()
	if v.IsLocal {
		cg.printf("  lea %s, [rbp-%d]\n", r, -v.Offset)
	} else {
		cg.printf("  lea %s, %s[rip]\n", r, v.Name)
	}
	cg.printf("  mov rdi, %s\n", r)
	cg.printf("  mov rcx, %d\n", n.Type.Size)
	cg.printf("  xor al, al\n")
	cg.printf("  rep stosb\n")
}

// genBinary emits the remaining arithmetic/bitwise/shift/comparison binary
// operators: evaluate lhs, evaluate rhs, combine in place, pop rhs.
func (cg *codegen) genBinary(n *ast.Node) {
	cg.genExpr(n.Lhs)
	cg.genExpr(n.Rhs)
	if n.Lhs.Type != nil && n.Lhs.Type.IsFlonum() {
		cg.genFloatBinary(n)
		return
	}
	cg.genIntBinary(n)
}

func (cg *codegen) genFloatBinary(n *ast.Node) {
	isDouble := n.Lhs.Type.Kind == types.DOUBLE
	rhs := cg.freg.pop()
	lhs := cg.freg.cur()
	suffix := "ss"
	if isDouble {
		suffix = "sd"
	}
	switch n.Kind {
	case ast.ND_ADD:
		cg.printf("  add%s %s, %s\n", suffix, lhs, rhs)
	case ast.ND_SUB:
		cg.printf("  sub%s %s, %s\n", suffix, lhs, rhs)
	case ast.ND_MUL:
		cg.printf("  mul%s %s, %s\n", suffix, lhs, rhs)
	case ast.ND_DIV:
		cg.printf("  div%s %s, %s\n", suffix, lhs, rhs)
	case ast.ND_EQ, ast.ND_NE, ast.ND_LT, ast.ND_LE:
		cmp := "ucomiss"
		if isDouble {
			cmp = "ucomisd"
		}
		cg.printf("  %s %s, %s\n", cmp, lhs, rhs)
		cg.freg.pop()
		r := cg.ireg.push()
		cg.printf("  %s al\n", floatSetcc(n.Kind))
		cg.printf("  movzx %s, al\n", r)
	default:
		panic(fmt.Sprintf("compiler: unsupported float binary op kind %d", n.Kind))
	}
}

func floatSetcc(kind ast.Kind) string {
	switch kind {
	case ast.ND_EQ:
		return "sete"
	case ast.ND_NE:
		return "setne"
	case ast.ND_LT:
		return "setb"
	case ast.ND_LE:
		return "setbe"
	}
	panic("compiler: not a comparison")
}

func (cg *codegen) genIntBinary(n *ast.Node) {
	rhs := cg.ireg.pop()
	lhs := cg.ireg.cur()
	unsigned := n.Lhs.Type != nil && n.Lhs.Type.IsUnsigned

	switch n.Kind {
	case ast.ND_ADD:
		cg.printf("  add %s, %s\n", lhs, rhs)
	case ast.ND_SUB:
		cg.printf("  sub %s, %s\n", lhs, rhs)
	case ast.ND_MUL:
		cg.printf("  imul %s, %s\n", lhs, rhs)
	case ast.ND_DIV, ast.ND_MOD:
		cg.genIntDivMod(n.Kind, lhs, rhs, unsigned)
	case ast.ND_BITAND:
		cg.printf("  and %s, %s\n", lhs, rhs)
	case ast.ND_BITOR:
		cg.printf("  or %s, %s\n", lhs, rhs)
	case ast.ND_BITXOR:
		cg.printf("  xor %s, %s\n", lhs, rhs)
	case ast.ND_SHL:
		cg.printf("  mov rcx, %s\n", rhs)
		cg.printf("  shl %s, cl\n", lhs)
	case ast.ND_SHR:
		cg.printf("  mov rcx, %s\n", rhs)
		if unsigned {
			cg.printf("  shr %s, cl\n", lhs)
		} else {
			cg.printf("  sar %s, cl\n", lhs)
		}
	case ast.ND_EQ, ast.ND_NE, ast.ND_LT, ast.ND_LE:
		cg.printf("  cmp %s, %s\n", lhs, rhs)
		cg.printf("  %s al\n", intSetcc(n.Kind, unsigned))
		cg.printf("  movzx %s, al\n", lhs)
	default:
		panic(fmt.Sprintf("compiler: unsupported int binary op kind %d", n.Kind))
	}
}

// genIntDivMod lowers to idiv/div, sign- or zero-extending rax into rdx:rax
// first as the instruction requires, then moving the quotient or remainder
// back into lhs.
func (cg *codegen) genIntDivMod(kind ast.Kind, lhs, rhs string, unsigned bool) {
	cg.printf("  mov rax, %s\n", lhs)
	if unsigned {
		cg.printf("  xor edx, edx\n")
		cg.printf("  div %s\n", rhs)
	} else {
		cg.printf("  cqo\n")
		cg.printf("  idiv %s\n", rhs)
	}
	if kind == ast.ND_DIV {
		cg.printf("  mov %s, rax\n", lhs)
	} else {
		cg.printf("  mov %s, rdx\n", lhs)
	}
}

func intSetcc(kind ast.Kind, unsigned bool) string {
	switch kind {
	case ast.ND_EQ:
		return "sete"
	case ast.ND_NE:
		return "setne"
	case ast.ND_LT:
		if unsigned {
			return "setb"
		}
		return "setl"
	case ast.ND_LE:
		if unsigned {
			return "setbe"
		}
		return "setle"
	}
	panic("compiler: not a comparison")
}
