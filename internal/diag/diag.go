// Package diag is the parser's diagnostic sink: the parser reports its
// errors and warnings through a *Diag. The lexer and preprocessor return
// plain errors, the resolver returns a list of errors, and the back-end
// panics on internal invariant violations; none of them use a *Diag.
package diag

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/hashicorp/logutils"
	"github.com/occ-lang/occ/lang/token"
)

// Severity classifies a single diagnostic.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "ERROR"
	}
	return "WARN"
}

// Entry is one reported diagnostic.
type Entry struct {
	Severity Severity
	Pos      token.Position
	Message  string
}

// Diag accumulates diagnostics for one compilation and renders them with a
// source-line caret, the way this compiler's error_at/warn_tok pair does in
// the material it's grounded on.
type Diag struct {
	entries []Entry
	logger  *log.Logger
	filter  *logutils.LevelFilter
}

// New returns a Diag that writes [WARN]-and-above output to w (os.Stderr if
// w is nil), filtered through logutils the way qjcg-driving's CLI wires it.
func New(w *os.File, verbose bool) *Diag {
	if w == nil {
		w = os.Stderr
	}
	filter := &logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "WARN", "ERROR"},
		MinLevel: logutils.LogLevel("WARN"),
		Writer:   w,
	}
	if verbose {
		filter.MinLevel = logutils.LogLevel("DEBUG")
	}
	return &Diag{
		logger: log.New(filter, "", 0),
		filter: filter,
	}
}

// Warnf records a non-fatal diagnostic at pos.
func (d *Diag) Warnf(pos token.Position, format string, args ...any) {
	d.report(Warning, pos, format, args...)
}

// Errorf records a fatal diagnostic at pos. The caller is still responsible
// for unwinding the current pipeline stage; Errorf does not panic or exit.
func (d *Diag) Errorf(pos token.Position, format string, args ...any) {
	d.report(Error, pos, format, args...)
}

func (d *Diag) report(sev Severity, pos token.Position, format string, args ...any) {
	e := Entry{Severity: sev, Pos: pos, Message: fmt.Sprintf(format, args...)}
	d.entries = append(d.entries, e)
	if d.logger != nil {
		d.logger.Printf("[%s] %s", sev, formatEntry(e, ""))
	}
}

// WarnfSrc records a non-fatal diagnostic and renders a caret line under the
// offending column using the given source line text.
func (d *Diag) WarnfSrc(pos token.Position, srcLine string, format string, args ...any) {
	e := Entry{Severity: Warning, Pos: pos, Message: fmt.Sprintf(format, args...)}
	d.entries = append(d.entries, e)
	if d.logger != nil {
		d.logger.Printf("[WARN] %s", formatEntry(e, srcLine))
	}
}

// HasErrors reports whether any fatal diagnostic was recorded.
func (d *Diag) HasErrors() bool {
	for _, e := range d.entries {
		if e.Severity == Error {
			return true
		}
	}
	return false
}

// Entries returns every recorded diagnostic, in report order.
func (d *Diag) Entries() []Entry { return d.entries }

// Render formats all entries with source-line carets, reading the relevant
// line out of fset. Used by internal/maincmd to print a final summary.
func (d *Diag) Render(fset *token.FileSet) string {
	var buf bytes.Buffer
	for _, e := range d.entries {
		var line string
		if fset != nil && e.Pos.Filename != "" {
			if f := fset.File(e.Pos.Filename); f != nil {
				line = f.Line(e.Pos.Line)
			}
		}
		fmt.Fprintf(&buf, "%s\n", formatEntry(e, line))
	}
	return buf.String()
}

func formatEntry(e Entry, line string) string {
	head := fmt.Sprintf("%s: %s", e.Pos, e.Message)
	if line == "" || e.Pos.Col <= 0 {
		return head
	}
	caretCol := e.Pos.Col - 1
	if caretCol > len(line) {
		caretCol = len(line)
	}
	caret := fmt.Sprintf("%s\n%s^ %s", line, spaces(caretCol), e.Message)
	return fmt.Sprintf("%s: %s", e.Pos, caret)
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
