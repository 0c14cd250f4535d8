package cpp

import (
	"fmt"
	"strings"

	"github.com/occ-lang/occ/lang/lexer"
	"github.com/occ-lang/occ/lang/token"
)

// arg binds one macro parameter name to its unexpanded argument tokens.
type arg struct {
	name string
	toks []*token.Token
}

// tryExpand attempts to expand the macro invocation starting at toks[i]. It
// returns the replacement tokens and how many input tokens they consumed, or
// ok == false if toks[i] is not an expandable macro invocation (plain
// identifier, hidden macro name, or a function-like macro name not followed
// by '(' — this last case must fall through to being treated as a plain
// identifier, not an error).
func (p *Preprocessor) tryExpand(toks []*token.Token, i int) (out []*token.Token, consumed int, ok bool, err error) {
	t := toks[i]
	if t.Kind != token.IDENT {
		return nil, 0, false, nil
	}
	m := p.macros.get(t.Text)
	if m == nil {
		return nil, 0, false, nil
	}
	if t.Hideset.Contains(m.Name) {
		return nil, 0, false, nil
	}

	if m.Handler != nil {
		return m.Handler(p, t), 1, true, nil
	}

	if m.Params == nil {
		hs := t.Hideset.Add(m.Name)
		return applyHideset(cloneToks(m.Body), hs), 1, true, nil
	}

	// Function-like macro: the invocation requires an immediately-following
	// '(' token (spacing allowed at the call site; only the #define's own
	// NAME( must be adjacent). If absent, this is not a macro call — fall
	// through to identifier; this is explicitly not an error condition.
	if i+1 >= len(toks) || toks[i+1].Text != "(" {
		return nil, 0, false, nil
	}

	args, rparenIdx, err := p.readArgs(toks, i+2, m, t)
	if err != nil {
		return nil, 0, false, err
	}
	rparen := toks[rparenIdx]
	hs := token.Intersect(t.Hideset, rparen.Hideset).Add(m.Name)

	body, err := p.subst(m, args)
	if err != nil {
		return nil, 0, false, err
	}
	return applyHideset(body, hs), rparenIdx - i + 1, true, nil
}

func cloneToks(in []*token.Token) []*token.Token {
	out := make([]*token.Token, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}

func applyHideset(toks []*token.Token, hs *token.Hideset) []*token.Token {
	for _, t := range toks {
		t.Hideset = token.Union(t.Hideset, hs)
	}
	return toks
}

// readArgs collects a function-like macro's arguments starting right after
// the opening '(' (idx points at the first token of the first argument, or
// at ')' for a zero-argument call). Commas nested inside parens do not
// split arguments; the variadic "rest" argument (if m.Variadic) joins every
// remaining comma-separated argument with its original commas.
func (p *Preprocessor) readArgs(toks []*token.Token, idx int, m *Macro, nameTok *token.Token) ([]arg, int, error) {
	// A macro declared with zero named parameters and no "..." only accepts
	// an empty argument list, e.g. `FOO()`.
	niladic := len(m.Params) == 0 && !m.Variadic

	var segments [][]*token.Token
	var cur []*token.Token
	depth := 0
	sawAny := false

	i := idx
	for {
		if i >= len(toks) || toks[i].Kind == token.EOF {
			return nil, 0, fmt.Errorf("%s: unterminated macro argument list for %q", nameTok.Pos(), m.Name)
		}
		tk := toks[i]
		if tk.Text == "(" {
			depth++
			cur = append(cur, tk)
			sawAny = true
			i++
			continue
		}
		if tk.Text == ")" {
			if depth == 0 {
				if sawAny || len(segments) > 0 {
					segments = append(segments, cur)
				}
				i++
				break
			}
			depth--
			cur = append(cur, tk)
			sawAny = true
			i++
			continue
		}
		// A comma only splits arguments once every named parameter has
		// claimed a segment; once we're into the variadic "rest", further
		// commas belong to that single argument's token run.
		if tk.Text == "," && depth == 0 && len(segments) < len(m.Params) {
			segments = append(segments, cur)
			cur = nil
			i++
			continue
		}
		cur = append(cur, tk)
		sawAny = true
		i++
	}

	if niladic {
		if len(segments) > 0 {
			return nil, 0, fmt.Errorf("%s: macro %q takes no arguments", nameTok.Pos(), m.Name)
		}
		return nil, i - 1, nil
	}

	var args []arg
	for idx, seg := range segments {
		name := ""
		if idx < len(m.Params) {
			name = m.Params[idx]
		} else if m.Variadic {
			name = "__VA_ARGS__"
		}
		args = append(args, arg{name: name, toks: seg})
	}
	if m.Variadic && len(segments) <= len(m.Params) {
		args = append(args, arg{name: "__VA_ARGS__", toks: nil})
	}
	return args, i - 1, nil
}

// subst implements the function-like-macro body substitution rules:
// #param stringizing, ## pasting (both between two body tokens and where
// one side is a parameter), and fully-macro-expanded parameter substitution
// everywhere else.
func (p *Preprocessor) subst(m *Macro, args []arg) ([]*token.Token, error) {
	findArg := func(name string) (arg, bool) {
		for _, a := range args {
			if a.name == name {
				return a, true
			}
		}
		return arg{}, false
	}

	var out []*token.Token
	body := m.Body
	for i := 0; i < len(body); i++ {
		t := body[i]

		// "# param" -> stringize
		if t.Text == "#" && i+1 < len(body) {
			if a, ok := findArg(body[i+1].Text); ok {
				out = append(out, stringize(t, a.toks))
				i++
				continue
			}
		}

		// "lhs ## rhs"
		if i+1 < len(body) && body[i+1].Text == "##" {
			lhsToks := []*token.Token{t}
			if a, ok := findArg(t.Text); ok {
				lhsToks = a.toks
			}
			i += 2 // skip lhs and "##"
			if i >= len(body) {
				return nil, fmt.Errorf("%s: '##' cannot appear at end of macro expansion", t.Pos())
			}
			rhsTok := body[i]
			rhsToks := []*token.Token{rhsTok}
			if a, ok := findArg(rhsTok.Text); ok {
				rhsToks = a.toks
			}
			pasted, err := paste(lhsToks, rhsToks)
			if err != nil {
				return nil, err
			}
			out = append(out, pasted...)
			continue
		}

		if a, ok := findArg(t.Text); ok {
			expanded, err := p.expandTokens(cloneToks(a.toks))
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
			continue
		}

		out = append(out, t.Clone())
	}
	return out, nil
}

// stringize builds a single string token whose spelling is the argument
// tokens concatenated with single-space separators wherever HasSpace was
// set.
func stringize(hashTok *token.Token, toks []*token.Token) *token.Token {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 && t.HasSpace {
			sb.WriteByte(' ')
		}
		sb.WriteString(spelling(t))
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(sb.String())
	buf := append([]byte(escaped), 0)
	nt := hashTok.Clone()
	nt.Kind = token.STRING
	nt.Text = ""
	nt.Str = buf
	return nt
}

func spelling(t *token.Token) string {
	switch t.Kind {
	case token.STRING:
		s := string(t.Str)
		return `"` + strings.TrimSuffix(s, "\x00") + `"`
	default:
		return t.Text
	}
}

// paste implements "##": concatenate the spelling of the last lhs token and
// the first rhs token, and re-tokenize. If that produces more than one
// token, it's an error. Empty-argument corners (x##ε -> x, ε##y -> y) fall
// out naturally from simply concatenating the available tokens.
func paste(lhs, rhs []*token.Token) ([]*token.Token, error) {
	if len(lhs) == 0 {
		return cloneToks(rhs), nil
	}
	if len(rhs) == 0 {
		return cloneToks(lhs), nil
	}
	left := lhs[len(lhs)-1]
	right := rhs[0]
	combined := left.Text + right.Text

	retoks, err := lexer.Tokenize("<paste>", left.Pos().Line, []byte(combined))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid token pasted by '##': %q", left.Pos(), combined)
	}
	// Tokenize always appends an EOF sentinel.
	retoks = retoks[:len(retoks)-1]
	if len(retoks) != 1 {
		return nil, fmt.Errorf("%s: pasting %q and %q does not give a valid token", left.Pos(), left.Text, right.Text)
	}
	pasted := retoks[0]
	pasted.File = left.File
	pasted.Line = left.Line
	pasted.HasSpace = left.HasSpace
	pasted.AtBOL = left.AtBOL

	var out []*token.Token
	out = append(out, cloneToks(lhs[:len(lhs)-1])...)
	out = append(out, pasted)
	out = append(out, cloneToks(rhs[1:])...)
	return out, nil
}

// expandTokens runs full macro expansion over a standalone token slice (used
// to pre-expand a macro argument before substitution). It reuses the same
// splice-and-rescan loop as the top-level driver but does not handle
// directives (arguments never contain them).
func (p *Preprocessor) expandTokens(toks []*token.Token) ([]*token.Token, error) {
	var out []*token.Token
	i := 0
	for i < len(toks) {
		repl, n, ok, err := p.tryExpand(toks, i)
		if err != nil {
			return nil, err
		}
		if !ok {
			out = append(out, toks[i])
			i++
			continue
		}
		rest := append(append([]*token.Token{}, repl...), toks[i+n:]...)
		toks = append(toks[:i], rest...)
	}
	return out, nil
}
