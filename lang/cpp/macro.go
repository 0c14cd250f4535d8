// Package cpp implements the preprocessor: directive handling and
// Prosser's-hideset-based macro expansion, turning one token slice into
// another.
package cpp

import (
	"github.com/dolthub/swiss"
	"github.com/occ-lang/occ/lang/token"
)

// Macro is one #define entry. An object-like macro has Params == nil; a
// function-like macro (even with zero parameters, e.g. `FOO()`) has
// Params != nil.
type Macro struct {
	Name     string
	Params   []string
	Variadic bool // trailing "..." bound to the implicit __VA_ARGS__ parameter
	Body     []*token.Token
	Deleted  bool // #undef keeps the entry (to shadow an earlier #define) but disables lookup

	// Dynamic built-ins (__FILE__, __LINE__, __DATE__, __TIME__) are expanded
	// by calling Handler instead of substituting Body.
	Handler func(p *Preprocessor, callTok *token.Token) []*token.Token
}

// table is the preprocessor's macro table: an unordered name->Macro mapping,
// backed by a swiss-table hash map. A macro table is exactly the kind of
// high-churn, lookup-dominated string-keyed map a swiss table suits well.
type table struct {
	m *swiss.Map[string, *Macro]
}

func newTable() *table {
	return &table{m: swiss.NewMap[string, *Macro](64)}
}

func (t *table) get(name string) *Macro {
	m, ok := t.m.Get(name)
	if !ok || m.Deleted {
		return nil
	}
	return m
}

func (t *table) set(m *Macro) {
	t.m.Put(m.Name, m)
}

func (t *table) undef(name string) {
	if m, ok := t.m.Get(name); ok {
		m.Deleted = true
		return
	}
	t.m.Put(name, &Macro{Name: name, Deleted: true})
}
