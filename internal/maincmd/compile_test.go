package maincmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"
	"github.com/occ-lang/occ/internal/maincmd"
	"github.com/stretchr/testify/require"
)

func writeSrc(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func runCmd(args []string) (stdout, stderr string, code mainer.ExitCode) {
	var out, errb bytes.Buffer
	c := maincmd.Cmd{}
	code = c.Main(append([]string{"occ"}, args...), mainer.Stdio{Stdout: &out, Stderr: &errb})
	return out.String(), errb.String(), code
}

func TestDepsOnlyWithoutMDFlagsProducesNothing(t *testing.T) {
	dir := t.TempDir()
	src := writeSrc(t, dir, "a.c", "int f(void) { return 1; }\n")
	asm := filepath.Join(dir, "a.s")

	// No -M/-MD/-MP given: -MF alone must not trigger dependency output,
	// matching gcc's documented -MD gating.
	_, _, code := runCmd([]string{"-S", "-o", asm, "-MF", filepath.Join(dir, "a.d"), src})
	require.Equal(t, mainer.Success, code)
	_, err := os.Stat(filepath.Join(dir, "a.d"))
	require.True(t, os.IsNotExist(err))
}

func TestDashMWritesDependencyRuleToStdout(t *testing.T) {
	dir := t.TempDir()
	src := writeSrc(t, dir, "b.c", "int f(void) { return 1; }\n")

	stdout, _, code := runCmd([]string{"-M", src})
	require.Equal(t, mainer.Success, code)
	require.Contains(t, stdout, "b.o:")
	require.Contains(t, stdout, "b.c")
}

func TestAssembleOnlyWritesAssemblyFile(t *testing.T) {
	dir := t.TempDir()
	src := writeSrc(t, dir, "c.c", "int f(void) { return 1; }\n")
	asm := filepath.Join(dir, "c.s")

	_, stderr, code := runCmd([]string{"-S", "-o", asm, src})
	require.Equal(t, mainer.Success, code, stderr)

	b, err := os.ReadFile(asm)
	require.NoError(t, err)
	require.Contains(t, string(b), "f:\n")
}

func TestMissingInputFileIsInvalidArgs(t *testing.T) {
	_, stderr, code := runCmd(nil)
	require.Equal(t, mainer.InvalidArgs, code)
	require.Contains(t, stderr, "no input file")
}

func TestHelpFlagPrintsUsage(t *testing.T) {
	stdout, _, code := runCmd([]string{"--help"})
	require.Equal(t, mainer.Success, code)
	require.Contains(t, stdout, "usage: occ")
}
