package parser

import (
	"github.com/occ-lang/occ/lang/ir"
	"github.com/occ-lang/occ/lang/types"
)

// varScope is one entry of the variable/typedef/enum-constant namespace.
// Exactly one of Var, Typedef, or (EnumTy set) is non-nil/meaningful.
type varScope struct {
	name  string
	depth int

	varRef  *ir.Var
	typedef *types.Type

	enumTy  *types.Type
	enumVal int64
}

// tagScope is one entry of the struct/union/enum tag namespace.
type tagScope struct {
	name  string
	depth int
	ty    *types.Type
}

// scopeStack holds the parser's two parallel scope stacks plus the shared
// depth counter, threaded through an explicit struct rather than
// package-level globals.
type scopeStack struct {
	vars  []*varScope
	tags  []*tagScope
	depth int
}

func newScopeStack() *scopeStack {
	return &scopeStack{}
}

func (s *scopeStack) enter() {
	s.depth++
}

func (s *scopeStack) leave() {
	s.depth--
	for len(s.vars) > 0 && s.vars[len(s.vars)-1].depth > s.depth {
		s.vars = s.vars[:len(s.vars)-1]
	}
	for len(s.tags) > 0 && s.tags[len(s.tags)-1].depth > s.depth {
		s.tags = s.tags[:len(s.tags)-1]
	}
}

func (s *scopeStack) pushVar(name string, ref *ir.Var) *varScope {
	vs := &varScope{name: name, depth: s.depth, varRef: ref}
	s.vars = append(s.vars, vs)
	return vs
}

func (s *scopeStack) pushTypedef(name string, ty *types.Type) *varScope {
	vs := &varScope{name: name, depth: s.depth, typedef: ty}
	s.vars = append(s.vars, vs)
	return vs
}

func (s *scopeStack) pushEnumConst(name string, ty *types.Type, val int64) *varScope {
	vs := &varScope{name: name, depth: s.depth, enumTy: ty, enumVal: val}
	s.vars = append(s.vars, vs)
	return vs
}

func (s *scopeStack) pushTag(name string, ty *types.Type) *tagScope {
	ts := &tagScope{name: name, depth: s.depth, ty: ty}
	s.tags = append(s.tags, ts)
	return ts
}

// findVar returns the nearest (innermost) varScope named name, or nil.
func (s *scopeStack) findVar(name string) *varScope {
	for i := len(s.vars) - 1; i >= 0; i-- {
		if s.vars[i].name == name {
			return s.vars[i]
		}
	}
	return nil
}

// findVarAtCurrentDepth returns the varScope named name only if it was
// declared at the current depth (used for redeclaration checks).
func (s *scopeStack) findVarAtCurrentDepth(name string) *varScope {
	for i := len(s.vars) - 1; i >= 0; i-- {
		if s.vars[i].depth != s.depth {
			break
		}
		if s.vars[i].name == name {
			return s.vars[i]
		}
	}
	return nil
}

func (s *scopeStack) findTag(name string) *tagScope {
	for i := len(s.tags) - 1; i >= 0; i-- {
		if s.tags[i].name == name {
			return s.tags[i]
		}
	}
	return nil
}

func (s *scopeStack) findTagAtCurrentDepth(name string) *tagScope {
	for i := len(s.tags) - 1; i >= 0; i-- {
		if s.tags[i].depth != s.depth {
			break
		}
		if s.tags[i].name == name {
			return s.tags[i]
		}
	}
	return nil
}
