// Package compiler is the back-end: it walks a parsed and resolved
// ir.Program and emits GNU-assembler-compatible x86-64 text, following the
// System V AMD64 calling convention. There is no intermediate machine-code
// representation; Emit writes textual instructions directly to its
// io.Writer, the same "state struct, not package globals" discipline the
// rest of this compiler uses for its other stages.
package compiler

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/occ-lang/occ/lang/ast"
	"github.com/occ-lang/occ/lang/ir"
	"github.com/occ-lang/occ/lang/token"
	"github.com/occ-lang/occ/lang/types"
)

// Options configures one Emit run.
type Options struct {
	PIC bool // -fpic/-fPIC: address globals through the GOT instead of absolute RIP-relative loads
}

// argStageBytes is the scratch area reserved in every frame to stage
// outgoing call arguments before they're loaded into their final ABI
// registers, large enough for the worst case of 6 integer + 8 float args.
const argStageBytes = 14 * 8

// callerSavedSpillBytes holds R0, R1 and F0..F5 around a call; it sits
// right below argStageBytes so the two scratch regions never alias.
const callerSavedSpillBytes = 8 * 8

const callSpillBytes = argStageBytes + callerSavedSpillBytes

// vaAreaBytes is the canonical size of the register-save area written by a
// variadic function's prologue: 6 integer slots (8 bytes) + 8 floating
// slots (16 bytes each, matching the ABI's padding) = 48 + 128.
const vaAreaBytes = 176

// calleeSaved are the evaluation stack's four upper integer registers; the
// ABI requires a callee to preserve them, so the prologue spills them once
// and the epilogue restores them once, rather than around every use.
var calleeSaved = []string{"rbx", "r12", "r13", "r14"}

// iregNames backs the integer evaluation stack: reg[top-1] always holds the
// most recently computed integer result.
// The first two are already caller-saved per the ABI and so need spilling
// only around calls; the rest are callee-saved and spilled once in the
// prologue.
var iregNames = []string{"r10", "r11", "rbx", "r12", "r13", "r14"}

// fregNames backs the floating evaluation stack. All XMM registers are
// caller-saved, so every one of them is spilled around a call regardless of
// position.
var fregNames = []string{"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5"}

var argIntRegs = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

// codegen holds all per-translation-unit and per-function mutable state,
// threaded explicitly rather than kept in package-level globals.
type codegen struct {
	w    *bufio.Writer
	opts Options
	prog *ir.Program

	fn     *ir.Function
	ireg   regStack
	freg   regStack
	labelN int

	breakLabel    string
	continueLabel string

	curFile int
	curLine int
}

// regStack is the fixed-depth evaluation stack: after emitting an
// expression, top is one greater than on entry and the result occupies
// names[top-1].
type regStack struct {
	names []string
	top   int
}

func (r *regStack) push() string {
	name := r.names[r.top]
	r.top++
	return name
}

func (r *regStack) pop() string {
	r.top--
	return r.names[r.top]
}

func (r *regStack) cur() string { return r.names[r.top-1] }

// Emit writes the full translation unit prog as x86-64 assembly to w.
func Emit(w io.Writer, prog *ir.Program, opts Options) error {
	cg := &codegen{w: bufio.NewWriter(w), opts: opts, prog: prog}
	assignLVarOffsets(prog)

	cg.printf(".intel_syntax noprefix\n")
	cg.emitFileTable()
	cg.emitFloatNegBits()
	cg.emitData()
	cg.emitText()
	return cg.w.Flush()
}

// emitFileTable writes a `.file` directive for every source file referenced
// anywhere in prog, so the `.loc` directives genLoc emits resolve to a name
// the assembler's line-table/DWARF output can show.
func (cg *codegen) emitFileTable() {
	seen := map[int]*token.File{}
	see := func(tok *token.Token) {
		if tok != nil && tok.File != nil {
			seen[tok.File.No] = tok.File
		}
	}
	for _, v := range cg.prog.Globals {
		see(v.Tok)
	}
	for _, fn := range cg.prog.Functions {
		if fn.Body != nil {
			ast.Walk(fn.Body, ast.VisitFunc(func(n *ast.Node) bool {
				see(n.Tok)
				return true
			}))
		}
	}
	nos := make([]int, 0, len(seen))
	for no := range seen {
		nos = append(nos, no)
	}
	sort.Ints(nos)
	for _, no := range nos {
		cg.printf("  .file %d %q\n", no, seen[no].Name)
	}
}

func (cg *codegen) printf(format string, args ...any) {
	fmt.Fprintf(cg.w, format, args...)
}

func (cg *codegen) newLabel() string {
	cg.labelN++
	return ".L.compiler." + strconv.Itoa(cg.labelN)
}

// assignLVarOffsets lays out every function's locals (which include its
// parameters, added to Function.Locals by the parser) on the stack,
// largest-alignment-first is not required here because each Var already
// carries its own natural alignment; offsets only need to satisfy that
// alignment individually.
func assignLVarOffsets(prog *ir.Program) {
	for _, fn := range prog.Functions {
		if !fn.IsDefined {
			continue
		}
		var offset int64 = 0
		// Reserve the callee-saved register spill slots and, for variadic
		// functions, the register-save area, below rbp before locals.
		offset += int64(len(calleeSaved)) * 8
		if fn.IsVariadic {
			fn.VaAreaOffset = -offset - vaAreaBytes
			offset += vaAreaBytes
		}
		for _, v := range fn.Locals {
			align := v.Align
			if align == 0 {
				align = v.Type.Align
			}
			offset = types.AlignTo(offset+v.Type.Size, align)
			v.Offset = -offset
		}
		offset = types.AlignTo(offset+callSpillBytes, 16)
		fn.StackSize = offset
	}
}

func (cg *codegen) emitText() {
	for _, fn := range cg.prog.Functions {
		if !fn.IsDefined {
			continue
		}
		cg.genFunction(fn)
	}
}

func (cg *codegen) genFunction(fn *ir.Function) {
	cg.fn = fn
	cg.ireg = regStack{names: iregNames}
	cg.freg = regStack{names: fregNames}

	if !fn.IsStatic {
		cg.printf("  .globl %s\n", fn.Name)
	}
	cg.printf("  .text\n")
	cg.printf("%s:\n", fn.Name)

	cg.printf("  push rbp\n")
	cg.printf("  mov rbp, rsp\n")
	cg.printf("  sub rsp, %d\n", fn.StackSize)
	for i, r := range calleeSaved {
		cg.printf("  mov [rbp-%d], %s\n", (i+1)*8, r)
	}

	if fn.IsVariadic {
		cg.genVaAreaSave(fn)
	}

	cg.genParamCopy(fn)

	cg.genStmt(fn.Body)

	if cg.ireg.top != 0 || cg.freg.top != 0 {
		panic(fmt.Sprintf("compiler: register stack not empty at end of %s: ireg=%d freg=%d", fn.Name, cg.ireg.top, cg.freg.top))
	}

	cg.printf(".L.return.%s:\n", fn.Name)
	for i, r := range calleeSaved {
		cg.printf("  mov %s, [rbp-%d]\n", r, (i+1)*8)
	}
	cg.printf("  mov rsp, rbp\n")
	cg.printf("  pop rbp\n")
	cg.printf("  ret\n")
}

// genVaAreaSave writes the canonical register-save area: rdi,rsi,rdx,rcx,
// r8,r9 (8 bytes each) followed by xmm0..xmm7 (16 bytes each, the ABI's
// save-area layout), unconditionally, regardless of how many named
// parameters the function declares.
func (cg *codegen) genVaAreaSave(fn *ir.Function) {
	base := -fn.VaAreaOffset
	for i, r := range argIntRegs {
		cg.printf("  mov [rbp-%d], %s\n", base-int64(i*8), r)
	}
	for i := 0; i < 8; i++ {
		cg.printf("  movsd [rbp-%d], xmm%d\n", base-48-int64(i*16), i)
	}
}

// genParamCopy copies each named parameter out of its ABI argument
// register (or stack slot, for parameters past the register count) and
// into the stack slot assignLVarOffsets gave it.
func (cg *codegen) genParamCopy(fn *ir.Function) {
	gp, fp := 0, 0
	stackOff := int64(16) // first stack-passed argument, above saved rbp and return address
	for _, p := range fn.Params {
		if p.Type.IsFlonum() {
			fp++
			if fp <= 8 {
				cg.storeParamFloat(p, fp-1)
				continue
			}
		} else {
			gp++
			if gp <= 6 {
				cg.storeParamInt(p, gp-1)
				continue
			}
		}
		cg.printf("  mov rax, [rbp+%d]\n", stackOff)
		cg.printf("  mov [rbp-%d], %s\n", -p.Offset, regName("rax", p.Type.Size))
		stackOff += 8
	}
}

func (cg *codegen) storeParamFloat(p *ir.Var, slot int) {
	if p.Type.Kind == types.FLOAT {
		cg.printf("  movss [rbp-%d], xmm%d\n", -p.Offset, slot)
	} else {
		cg.printf("  movsd [rbp-%d], xmm%d\n", -p.Offset, slot)
	}
}

func (cg *codegen) storeParamInt(p *ir.Var, slot int) {
	cg.printf("  mov [rbp-%d], %s\n", -p.Offset, regName(argIntRegs[slot], p.Type.Size))
}
