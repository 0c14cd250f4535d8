package parser

import "github.com/occ-lang/occ/lang/types"

// installBuiltinTypedefs seeds va_list, since this compiler has no system
// headers to supply stdarg.h: struct { gp_offset, fp_offset uint; 2 void* }
// matches the System V psABI register-save-area layout genVaStart writes,
// wrapped in a length-1 array so it decays to a pointer when passed to a
// function, matching glibc's own `va_list[1]` trick.
func installBuiltinTypedefs(p *parser) {
	uint32Ty := &types.Type{Kind: types.INT, Size: 4, Align: 4, IsUnsigned: true}
	voidPtr := types.PointerTo(types.Void)
	st := &types.Type{
		Kind:  types.STRUCT,
		Align: 8,
		Tag:   "__va_list_tag",
		Members: []*types.Member{
			{Name: "gp_offset", Type: uint32Ty, Offset: 0, Align: 4},
			{Name: "fp_offset", Type: uint32Ty, Offset: 4, Align: 4},
			{Name: "overflow_arg_area", Type: voidPtr, Offset: 8, Align: 8},
			{Name: "reg_save_area", Type: voidPtr, Offset: 16, Align: 8},
		},
	}
	st.Size = 24
	arr := types.ArrayOf(st, 1)
	p.scopes.pushTypedef("va_list", arr)
	p.scopes.pushTypedef("__builtin_va_list", arr)
}
