package compiler

// regWidths maps every 64-bit register name this package ever emits to its
// 32/16/8-bit sub-register spellings, keyed the way Intel-syntax mnemonics
// expect them.
var regWidths = map[string][4]string{
	"rax": {"rax", "eax", "ax", "al"},
	"rdi": {"rdi", "edi", "di", "dil"},
	"rsi": {"rsi", "esi", "si", "sil"},
	"rdx": {"rdx", "edx", "dx", "dl"},
	"rcx": {"rcx", "ecx", "cx", "cl"},
	"r8":  {"r8", "r8d", "r8w", "r8b"},
	"r9":  {"r9", "r9d", "r9w", "r9b"},
	"r10": {"r10", "r10d", "r10w", "r10b"},
	"r11": {"r11", "r11d", "r11w", "r11b"},
	"rbx": {"rbx", "ebx", "bx", "bl"},
	"r12": {"r12", "r12d", "r12w", "r12b"},
	"r13": {"r13", "r13d", "r13w", "r13b"},
	"r14": {"r14", "r14d", "r14w", "r14b"},
	"r15": {"r15", "r15d", "r15w", "r15b"},
}

// regName returns reg64's spelling at the given operand size in bytes (1,
// 2, 4 or 8).
func regName(reg64 string, size int64) string {
	w, ok := regWidths[reg64]
	if !ok {
		return reg64
	}
	switch size {
	case 1:
		return w[3]
	case 2:
		return w[2]
	case 4:
		return w[1]
	default:
		return w[0]
	}
}

func dwordOf(reg64 string) string { return regName(reg64, 4) }
