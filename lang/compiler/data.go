package compiler

import (
	"sort"

	"github.com/occ-lang/occ/lang/ir"
)

// emitFloatNegBits writes the two fixed sign-bit masks genNeg xors a
// float/double against to negate it without a dedicated FPU negate
// instruction.
func (cg *codegen) emitFloatNegBits() {
	cg.printf("  .section .rodata\n")
	cg.printf("  .align 16\n")
	cg.printf(".L.negbit32:\n")
	cg.printf("  .long 0x80000000\n")
	cg.printf("  .long 0\n")
	cg.printf("  .long 0\n")
	cg.printf("  .long 0\n")
	cg.printf("  .align 16\n")
	cg.printf(".L.negbit64:\n")
	cg.printf("  .quad 0x8000000000000000\n")
	cg.printf("  .quad 0\n")
}

// emitData writes every global variable: undefined globals are skipped (an
// `extern` declaration with no definition has no storage to emit), defined
// globals with no initializer go to .bss as a zero-fill run, and defined
// globals with an initializer go to .data as a byte/relocation stream.
func (cg *codegen) emitData() {
	for _, v := range cg.prog.Globals {
		if !v.IsDefined {
			continue
		}
		align := v.Align
		if align == 0 {
			align = v.Type.Align
		}

		if v.InitData == nil {
			cg.printf("  .bss\n")
			if !v.IsStatic {
				cg.printf("  .globl %s\n", v.Name)
			}
			cg.printf("  .align %d\n", align)
			cg.printf("%s:\n", v.Name)
			cg.printf("  .zero %d\n", v.Type.Size)
			continue
		}

		cg.printf("  .data\n")
		if !v.IsStatic {
			cg.printf("  .globl %s\n", v.Name)
		}
		cg.printf("  .align %d\n", align)
		cg.printf("%s:\n", v.Name)
		cg.emitInitData(v)
	}
}

// emitInitData walks v's byte buffer emitting `.byte` runs, splicing in a
// `.quad label+addend` wherever a Relocation lands (always 8 bytes wide:
// every relocation this compiler produces is a pointer-valued leaf).
func (cg *codegen) emitInitData(v *ir.Var) {
	relAt := make(map[int64]ir.Relocation, len(v.Relocations))
	for _, r := range v.Relocations {
		relAt[r.Offset] = r
	}
	var offsets []int64
	for off := range relAt {
		offsets = append(offsets, off)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	data := v.InitData
	pos := int64(0)
	oi := 0
	for pos < int64(len(data)) {
		if oi < len(offsets) && offsets[oi] == pos {
			r := relAt[pos]
			if r.Addend != 0 {
				cg.printf("  .quad %s+%d\n", r.Label, r.Addend)
			} else {
				cg.printf("  .quad %s\n", r.Label)
			}
			pos += 8
			oi++
			continue
		}
		cg.printf("  .byte %d\n", data[pos])
		pos++
	}
}
