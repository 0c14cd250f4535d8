// Package ir holds the representation the parser builds and the back-end
// consumes: global/local variable storage (Var), global initializer
// relocations, and the whole-translation-unit Program.
package ir

import (
	"github.com/occ-lang/occ/lang/ast"
	"github.com/occ-lang/occ/lang/token"
	"github.com/occ-lang/occ/lang/types"
)

// Relocation is one entry in a global variable's initializer describing an
// address reference resolved at assemble/link time: `.quad Label+Addend` at
// byte offset Offset within the owning Var's data.
type Relocation struct {
	Offset int64
	Label  string
	Addend int64
}

// Var represents one named storage object, local or global. A Var is never
// shared between Function.Locals and Program.Globals (data model invariant).
type Var struct {
	Name string
	Type *types.Type

	IsLocal bool
	Offset  int64 // local: negative, RBP-relative

	IsStatic  bool // global: internal linkage (file-scope `static`)
	IsDefined bool // global: has a definition, not just a `extern` declaration

	InitData    []byte
	Relocations []Relocation

	Align int64

	Tok *token.Token // for diagnostics
}

// Function is one function definition (or prototype-only declaration with a
// nil Body).
type Function struct {
	Name       string
	Type       *types.Type
	Params     []*Var
	Body       *ast.Node
	Locals     []*Var
	StackSize  int64
	IsStatic   bool
	IsVariadic bool
	IsDefined  bool

	// VaAreaOffset is the RBP-relative offset of the 176-byte variadic
	// register-save area, valid only when IsVariadic.
	VaAreaOffset int64
}

// Program is the parser's final output: every global variable and every
// function definition of one translation unit.
type Program struct {
	Globals   []*Var
	Functions []*Function
}

// FindFunction returns the Function named name, or nil.
func (p *Program) FindFunction(name string) *Function {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}
