package token

import "github.com/occ-lang/occ/lang/types"

// Kind identifies the lexical class of a Token.
type Kind int8

//nolint:revive
const (
	ILLEGAL Kind = iota
	EOF

	IDENT     // identifier, or a keyword before keyword re-kinding
	KEYWORD   // identifier re-kinded to a reserved word after preprocessing
	NUM       // typed numeric literal (int or float payload)
	PP_NUM    // untyped pp-number, only exists between lexer and cpp's post-pass
	STRING    // "..."
	CHAR      // '...'  (already decoded to its single integer value)
	PUNCT     // punctuator, see Text for the exact spelling

	maxKind
)

var kindNames = [...]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",
	IDENT:   "IDENT",
	KEYWORD: "KEYWORD",
	NUM:     "NUM",
	PP_NUM:  "PP_NUM",
	STRING:  "STRING",
	CHAR:    "CHAR",
	PUNCT:   "PUNCT",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "UNKNOWN"
}

// Hideset is the set of macro names by which a token has already been
// produced. It is represented as a small sorted-free linked list of interned
// names rather than a full set type: in practice a hideset rarely grows
// beyond a handful of entries, so linear membership tests are cheap and the
// representation is trivially structurally shared between sibling tokens.
type Hideset struct {
	Name string
	Next *Hideset
}

// Contains reports whether name is a member of hs.
func (hs *Hideset) Contains(name string) bool {
	for h := hs; h != nil; h = h.Next {
		if h.Name == name {
			return true
		}
	}
	return false
}

// Add returns a new Hideset containing every member of hs plus name. If name
// is already a member, hs is returned unchanged.
func (hs *Hideset) Add(name string) *Hideset {
	if hs.Contains(name) {
		return hs
	}
	return &Hideset{Name: name, Next: hs}
}

// Union returns a Hideset containing the members of both a and b.
func Union(a, b *Hideset) *Hideset {
	if a == nil {
		return b
	}
	out := b
	for h := a; h != nil; h = h.Next {
		out = out.Add(h.Name)
	}
	return out
}

// Intersect returns a Hideset containing only the members present in both a
// and b.
func Intersect(a, b *Hideset) *Hideset {
	var out *Hideset
	for h := a; h != nil; h = h.Next {
		if b.Contains(h.Name) {
			out = out.Add(h.Name)
		}
	}
	return out
}

// Token is one lexical unit. Tokens are produced as a flat slice (not a
// linked list): the source material this compiler is grounded on threads
// tokens as a singly linked list so that macro expansion can splice new
// token runs in place, but a Go slice with an explicit rest-index passed
// between pipeline stages is the idiomatic equivalent and plays nicer with
// the garbage collector, so that's what every stage here consumes and
// produces.
type Token struct {
	Kind Kind
	Text string // the token's exact spelling, sliced from File.Src where possible

	File *File
	Line int
	Col  int

	HasSpace bool // at least one space/tab preceded this token on its line
	AtBOL    bool // this token is the first on its source line

	Hideset *Hideset

	// NUM payload.
	IVal int64
	FVal float64
	Typ  *types.Type // int or float type inferred for a NUM token

	// STRING/CHAR payload. Str holds the decoded bytes (NUL-terminated for
	// STRING, as C string literals are). CharVal holds CHAR's single decoded
	// value, already widened to int per C's "character constants have type
	// int" rule.
	Str     []byte
	CharVal int64
}

// Pos returns a human-readable source position for diagnostics.
func (t *Token) Pos() Position {
	if t == nil || t.File == nil {
		return Position{}
	}
	return Position{Filename: t.File.Name, Line: t.Line, Col: t.Col}
}

// Is reports whether t is a PUNCT or KEYWORD token with the exact spelling s.
func (t *Token) Is(s string) bool {
	return (t.Kind == PUNCT || t.Kind == KEYWORD || t.Kind == IDENT) && t.Text == s
}

// IsEOF reports whether t is the end-of-stream sentinel.
func (t *Token) IsEOF() bool {
	return t.Kind == EOF
}

// IsIdent reports whether t is an identifier (not yet, or never, re-kinded
// to a keyword).
func (t *Token) IsIdent() bool {
	return t.Kind == IDENT
}

// Clone returns a shallow copy of t, used when the preprocessor needs to
// attach a different Hideset to an otherwise-identical token.
func (t *Token) Clone() *Token {
	c := *t
	return &c
}
