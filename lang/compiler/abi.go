package compiler

import (
	"github.com/occ-lang/occ/lang/ast"
	"github.com/occ-lang/occ/lang/types"
)

var argFloatRegs = []string{"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7"}

// staged is one evaluated, spilled call argument awaiting its final ABI
// location.
type staged struct {
	isFloat bool
	ty      *types.Type
	off     int64
}

// genFuncall evaluates every argument, stages it through the frame's call
// spill area (so evaluating one argument can never clobber another that's
// already been computed, regardless of which eval registers overlap with
// the real ABI argument registers), then loads the ABI registers and calls.
func (cg *codegen) genFuncall(n *ast.Node) {
	if n.FuncName == "__builtin_va_start" {
		cg.genVaStart(n)
		return
	}

	var args []staged
	for slot, a := range n.Args {
		cg.genExpr(a)
		isFloat := a.Type != nil && a.Type.IsFlonum()
		off := cg.callSpillOffset(slot)
		if isFloat {
			f := cg.freg.pop()
			if a.Type.Kind == types.FLOAT {
				cg.printf("  movss [rbp-%d], %s\n", off, f)
			} else {
				cg.printf("  movsd [rbp-%d], %s\n", off, f)
			}
		} else {
			r := cg.ireg.pop()
			cg.printf("  mov [rbp-%d], %s\n", off, r)
		}
		args = append(args, staged{isFloat: isFloat, ty: a.Type, off: off})
	}

	// Spill the caller-saved evaluation registers (both of them are already
	// empty here since every arg was staged above, but a funcall nested as
	// an argument to an outer, still-pending operation may have left the
	// outer operation's partial results alive in R0/R1/F0..F5).
	cg.spillCallerSaved()

	gp, fp := 0, 0
	var stackArgs []staged
	for _, a := range args {
		if a.isFloat {
			if fp < 8 {
				cg.printf("  movsd %s, [rbp-%d]\n", argFloatRegs[fp], a.off)
				fp++
				continue
			}
		} else {
			if gp < 6 {
				cg.printf("  mov %s, [rbp-%d]\n", argIntRegs[gp], a.off)
				gp++
				continue
			}
		}
		stackArgs = append(stackArgs, a)
	}

	if len(stackArgs)%2 != 0 {
		cg.printf("  sub rsp, 8\n")
	}
	for i := len(stackArgs) - 1; i >= 0; i-- {
		cg.printf("  push qword ptr [rbp-%d]\n", stackArgs[i].off)
	}

	if n.FuncType == nil || n.FuncType.IsVariadic {
		cg.printf("  mov rax, %d\n", fp)
	}
	cg.printf("  call %s\n", n.FuncName)
	if len(stackArgs) > 0 {
		extra := int64(len(stackArgs)) * 8
		if len(stackArgs)%2 != 0 {
			extra += 8
		}
		cg.printf("  add rsp, %d\n", extra)
	}

	cg.restoreCallerSaved()

	if n.Type == nil || n.Type.Kind == types.VOID {
		return
	}
	if n.Type.IsFlonum() {
		f := cg.freg.push()
		if n.Type.Kind == types.FLOAT {
			cg.printf("  movss %s, xmm0\n", f)
		} else {
			cg.printf("  movsd %s, xmm0\n", f)
		}
		return
	}
	r := cg.ireg.push()
	if n.Type.Kind == types.BOOL {
		cg.printf("  movzx eax, al\n")
	}
	cg.printf("  mov %s, rax\n", r)
}

// callSpillOffset returns the rbp-relative offset (as a positive byte
// count) of the i-th call-argument staging slot, a fixed area at the
// bottom of the frame reserved by assignLVarOffsets.
func (cg *codegen) callSpillOffset(i int) int64 {
	return cg.fn.StackSize - int64(i)*8
}

// callerSavedSpillOffset returns the offset of the i-th caller-saved-spill
// slot, a region immediately below the argument-staging area so spilling
// around a call can never clobber args already staged there.
func (cg *codegen) callerSavedSpillOffset(i int) int64 {
	return cg.fn.StackSize - argStageBytes - int64(i)*8
}

// spillCallerSaved and restoreCallerSaved save/restore R0, R1 and F0..F5 —
// the evaluation stack's caller-saved registers — around a call.
func (cg *codegen) spillCallerSaved() {
	cg.printf("  mov [rbp-%d], r10\n", cg.callerSavedSpillOffset(0))
	cg.printf("  mov [rbp-%d], r11\n", cg.callerSavedSpillOffset(1))
	for i, f := range fregNames {
		cg.printf("  movsd [rbp-%d], %s\n", cg.callerSavedSpillOffset(2+i), f)
	}
}

func (cg *codegen) restoreCallerSaved() {
	cg.printf("  mov r10, [rbp-%d]\n", cg.callerSavedSpillOffset(0))
	cg.printf("  mov r11, [rbp-%d]\n", cg.callerSavedSpillOffset(1))
	for i, f := range fregNames {
		cg.printf("  movsd %s, [rbp-%d]\n", f, cg.callerSavedSpillOffset(2+i))
	}
}

// genVaStart writes the canonical va_list layout (gp_offset, fp_offset,
// overflow_arg_area pointer, reg_save_area pointer) into the storage named
// by its single argument.
func (cg *codegen) genVaStart(n *ast.Node) {
	ap := n.Args[0]
	cg.genExpr(ap)
	apAddr := cg.ireg.cur()

	gp, fp := 0, 0
	for _, p := range cg.fn.Params {
		if p.Type.IsFlonum() {
			fp++
		} else {
			gp++
		}
	}

	base := -cg.fn.VaAreaOffset

	cg.printf("  mov dword ptr [%s], %d\n", apAddr, gp*8)
	cg.printf("  mov dword ptr [%s+4], %d\n", apAddr, 48+fp*16)
	cg.printf("  lea rax, [rbp+16]\n")
	cg.printf("  mov [%s+8], rax\n", apAddr)
	cg.printf("  lea rax, [rbp-%d]\n", base)
	cg.printf("  mov [%s+16], rax\n", apAddr)

	cg.ireg.pop()
	r := cg.ireg.push()
	cg.printf("  xor %s, %s\n", r, r)
}
