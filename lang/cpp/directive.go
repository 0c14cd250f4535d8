package cpp

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/occ-lang/occ/lang/lexer"
	"github.com/occ-lang/occ/lang/token"
)

// directive processes one "#...\n" directive line. hashTok is the '#'
// token; rest is every token on the same logical line after it (possibly
// empty, a lone "#" is a no-op null directive). It returns tokens to splice
// into the stream in place of the directive (non-empty only for a
// successful #include) or nil.
func (p *Preprocessor) directive(hashTok *token.Token, rest []*token.Token) ([]*token.Token, error) {
	if len(rest) == 0 {
		return nil, nil // null directive
	}
	name := rest[0]
	args := rest[1:]

	// Directives nested inside a false #if branch: only conditional
	// directives themselves are still honored, so nesting balances.
	if !p.including() {
		switch name.Text {
		case "if", "ifdef", "ifndef":
			p.cond = append(p.cond, &condFrame{tok: hashTok, included: false, everIncluded: true})
			return nil, nil
		case "elif":
			return nil, p.doElif(hashTok, args)
		case "else":
			return nil, p.doElse(hashTok)
		case "endif":
			return nil, p.doEndif(hashTok)
		default:
			return nil, nil
		}
	}

	switch name.Text {
	case "include":
		return p.doInclude(hashTok, args)
	case "define":
		return nil, p.doDefine(args)
	case "undef":
		if len(args) == 0 {
			return nil, fmt.Errorf("%s: macro name missing after #undef", hashTok.Pos())
		}
		p.macros.undef(args[0].Text)
		return nil, nil
	case "if":
		v, err := p.evalConstExpr(args)
		if err != nil {
			return nil, err
		}
		p.cond = append(p.cond, &condFrame{tok: hashTok, included: v != 0, everIncluded: v != 0})
		return nil, nil
	case "ifdef":
		v := len(args) > 0 && p.macros.get(args[0].Text) != nil
		p.cond = append(p.cond, &condFrame{tok: hashTok, included: v, everIncluded: v})
		return nil, nil
	case "ifndef":
		v := len(args) == 0 || p.macros.get(args[0].Text) == nil
		p.cond = append(p.cond, &condFrame{tok: hashTok, included: v, everIncluded: v})
		return nil, nil
	case "elif":
		return nil, p.doElif(hashTok, args)
	case "else":
		return nil, p.doElse(hashTok)
	case "endif":
		return nil, p.doEndif(hashTok)
	case "error":
		return nil, fmt.Errorf("%s: #error %s", hashTok.Pos(), joinText(args))
	case "pragma", "line":
		return nil, nil // accepted, no effect (non-goal)
	default:
		return nil, fmt.Errorf("%s: invalid preprocessing directive #%s", hashTok.Pos(), name.Text)
	}
}

func (p *Preprocessor) doElif(hashTok *token.Token, args []*token.Token) error {
	f, err := p.top(hashTok, "#elif")
	if err != nil {
		return err
	}
	if f.sawElse {
		return fmt.Errorf("%s: #elif after #else", hashTok.Pos())
	}
	if f.everIncluded {
		f.included = false
		return nil
	}
	v, err := p.evalConstExpr(args)
	if err != nil {
		return err
	}
	f.included = v != 0
	f.everIncluded = f.everIncluded || f.included
	return nil
}

func (p *Preprocessor) doElse(hashTok *token.Token) error {
	f, err := p.top(hashTok, "#else")
	if err != nil {
		return err
	}
	if f.sawElse {
		return fmt.Errorf("%s: stray #else", hashTok.Pos())
	}
	f.sawElse = true
	f.included = !f.everIncluded
	f.everIncluded = true
	return nil
}

func (p *Preprocessor) doEndif(hashTok *token.Token) error {
	if len(p.cond) == 0 {
		return fmt.Errorf("%s: stray #endif", hashTok.Pos())
	}
	p.cond = p.cond[:len(p.cond)-1]
	return nil
}

func (p *Preprocessor) top(hashTok *token.Token, directive string) (*condFrame, error) {
	if len(p.cond) == 0 {
		return nil, fmt.Errorf("%s: stray %s", hashTok.Pos(), directive)
	}
	return p.cond[len(p.cond)-1], nil
}

func (p *Preprocessor) doInclude(hashTok *token.Token, args []*token.Token) ([]*token.Token, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: expected a filename after #include", hashTok.Pos())
	}
	curDir := "."
	if hashTok.File != nil {
		curDir = filepath.Dir(hashTok.File.Name)
	}

	var name string
	var angled bool
	switch {
	case args[0].Kind == token.STRING:
		name = strings.TrimSuffix(string(args[0].Str), "\x00")
	case args[0].Text == "<":
		var sb strings.Builder
		i := 1
		for i < len(args) && args[i].Text != ">" {
			sb.WriteString(args[i].Text)
			i++
		}
		if i >= len(args) {
			return nil, fmt.Errorf("%s: expected '>'", hashTok.Pos())
		}
		name = sb.String()
		angled = true
	default:
		// #include MACRO: expand and retry.
		expanded, err := p.expandTokens(cloneToks(args))
		if err != nil {
			return nil, err
		}
		if len(expanded) == 0 {
			return nil, fmt.Errorf("%s: expected a filename after #include", hashTok.Pos())
		}
		return p.doInclude(hashTok, expanded)
	}

	path, src, err := p.searchInclude(curDir, name, angled)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", hashTok.Pos(), name, err)
	}
	f := p.fset.AddFile(path, src)
	toks, err := lexer.Tokenize(path, f.No, src)
	if err != nil {
		return nil, err
	}
	return toks[:len(toks)-1], nil // drop the included file's own EOF sentinel
}

func (p *Preprocessor) doDefine(args []*token.Token) error {
	if len(args) == 0 {
		return fmt.Errorf("macro name missing after #define")
	}
	nameTok := args[0]
	rest := args[1:]

	// A function-like macro's '(' must be immediately adjacent to the name
	// (no intervening whitespace).
	if len(rest) > 0 && rest[0].Text == "(" && !rest[0].HasSpace {
		params, variadic, bodyStart, err := parseParams(rest)
		if err != nil {
			return err
		}
		if params == nil {
			params = []string{}
		}
		p.macros.set(&Macro{Name: nameTok.Text, Params: params, Variadic: variadic, Body: cloneToks(rest[bodyStart:])})
		return nil
	}
	p.macros.set(&Macro{Name: nameTok.Text, Body: cloneToks(rest)})
	return nil
}

func parseParams(toks []*token.Token) (params []string, variadic bool, bodyStart int, err error) {
	i := 1 // skip '('
	if i < len(toks) && toks[i].Text == ")" {
		return nil, false, i + 1, nil
	}
	for {
		if i >= len(toks) {
			return nil, false, 0, fmt.Errorf("unterminated macro parameter list")
		}
		if toks[i].Text == "..." {
			variadic = true
			i++
			if i >= len(toks) || toks[i].Text != ")" {
				return nil, false, 0, fmt.Errorf("expected ')' after '...'")
			}
			i++
			break
		}
		if toks[i].Kind != token.IDENT {
			return nil, false, 0, fmt.Errorf("expected a parameter name, got %q", toks[i].Text)
		}
		params = append(params, toks[i].Text)
		i++
		if i < len(toks) && toks[i].Text == ")" {
			i++
			break
		}
		if i >= len(toks) || toks[i].Text != "," {
			return nil, false, 0, fmt.Errorf("expected ',' or ')' in macro parameter list")
		}
		i++
	}
	return params, variadic, i, nil
}

func joinText(toks []*token.Token) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}
