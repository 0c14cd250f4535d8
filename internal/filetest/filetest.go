// Package filetest provides golden-file comparison helpers: a test feeds a
// directory of source fixtures through the pipeline and diffs the result
// against a checked-in "golden" file, rather than asserting on exact output
// inline in Go source. Its user is internal/maincmd's -E golden test.
package filetest

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/kylelemons/godebug/diff"
)

var testUpdateGolden = flag.Bool("test.update-golden", false, "If set, overwrite golden files with the actual output instead of comparing.")

// SourceFiles returns the list of regular files in dir with the given
// extension (leading dot optional), sorted by filename (the order
// os.ReadDir returns).
func SourceFiles(t *testing.T, dir, ext string) []os.FileInfo {
	t.Helper()

	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}

	dents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	res := make([]os.FileInfo, 0, len(dents))
	for _, dent := range dents {
		if !dent.Type().IsRegular() {
			continue
		}
		if ext != "" && filepath.Ext(dent.Name()) != ext {
			continue
		}
		fi, err := dent.Info()
		if err != nil {
			t.Fatal(err)
		}
		res = append(res, fi)
	}
	return res
}

// DiffAssembly compares the generated assembly for fi against the golden
// ".s.want" file in resultDir.
func DiffAssembly(t *testing.T, fi os.FileInfo, asm, resultDir string) {
	t.Helper()
	Diff(t, filepath.Join(resultDir, fi.Name()+".s.want"), asm)
}

// DiffTokens compares a -E style token dump against the golden ".tok.want"
// file in resultDir.
func DiffTokens(t *testing.T, fi os.FileInfo, dump, resultDir string) {
	t.Helper()
	Diff(t, filepath.Join(resultDir, fi.Name()+".tok.want"), dump)
}

// Diff compares got against goldFile's contents, failing the test and
// printing a unified diff on mismatch. With -test.update-golden, it
// overwrites goldFile with got instead of comparing.
func Diff(t *testing.T, goldFile, got string) {
	t.Helper()

	if *testUpdateGolden {
		if err := os.WriteFile(goldFile, []byte(got), 0o600); err != nil {
			t.Fatal(err)
		}
		return
	}

	wantb, err := os.ReadFile(goldFile)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	want := string(wantb)
	if patch := diff.Diff(want, got); patch != "" {
		if testing.Verbose() {
			t.Logf("want:\n%s\ngot:\n%s\n", want, got)
		}
		t.Errorf("diff against %s:\n%s\n", goldFile, patch)
	}
}
