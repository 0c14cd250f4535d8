package maincmd_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"
	"github.com/occ-lang/occ/internal/filetest"
	"github.com/occ-lang/occ/internal/maincmd"
	"github.com/stretchr/testify/require"
)

// TestPreprocessOnlyGolden runs -E over every fixture in testdata/in and
// diffs its token dump against the matching golden file in testdata/out,
// using internal/filetest's SourceFiles/DiffTokens helpers.
func TestPreprocessOnlyGolden(t *testing.T) {
	srcDir, outDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")
	for _, fi := range filetest.SourceFiles(t, srcDir, ".c") {
		t.Run(fi.Name(), func(t *testing.T) {
			var out, errb bytes.Buffer
			c := maincmd.Cmd{}
			code := c.Main([]string{"occ", "-E", "-o", "-", filepath.Join(srcDir, fi.Name())}, mainer.Stdio{Stdout: &out, Stderr: &errb})
			require.Equal(t, mainer.Success, code, errb.String())
			filetest.DiffTokens(t, fi, out.String(), outDir)
		})
	}
}
