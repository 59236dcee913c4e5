package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pkgbatch/internal/errors"
	"pkgbatch/internal/pkgfile/pkgfiletest"
	"pkgbatch/pkg/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the command tree with a config path that does not exist,
// so every test starts from the defaults.
func execute(t *testing.T, ctx context.Context, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err = cmd.ExecuteContext(ctx)
	return testutils.StripANSI(out.String()), errOut.String(), err
}

func TestRootRunsOnePass(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTestFiles(t, dir, "a.pkg", "b.pkg", "c.txt")
	tool, invocations := testutils.WriteToolScript(t, `exit 0`)

	out, _, err := execute(t, context.Background(), "--dir", dir, "--tool", tool)
	require.NoError(t, err)

	// The listing order is whatever the directory yields; the output
	// follows it.
	order := testutils.ReadInvocations(t, invocations)
	assert.ElementsMatch(t, []string{"a.pkg", "b.pkg"}, order)
	require.Len(t, order, 2)
	assert.Equal(t, "pkgFiles [\""+order[0]+"\" \""+order[1]+"\"]\n"+
		"Renaming "+order[0]+"\nRenaming "+order[1]+"\n", out)
}

func TestRootStopsWhenCancelled(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTestFiles(t, dir, "a.pkg", "b.pkg")
	tool, invocations := testutils.WriteToolScript(t, `exit 0`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, _, err := execute(t, ctx, "--dir", dir, "--tool", tool)
	require.Error(t, err, "an interrupted pass fails the run")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, out, "error")
	assert.Empty(t, testutils.ReadInvocations(t, invocations))
}

func TestRootToolFailuresDoNotFailTheRun(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTestFiles(t, dir, "a.pkg")
	tool, _ := testutils.WriteToolScript(t, `exit 1`)

	out, _, err := execute(t, context.Background(), "-d", dir, "--tool", tool)
	require.NoError(t, err)
	assert.Equal(t, "pkgFiles [\"a.pkg\"]\nRenaming a.pkg\n"+tool+" error\n", out)
}

func TestRootMissingDirectory(t *testing.T) {
	_, stderr, err := execute(t, context.Background(), "--dir", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.IsDirectoryAccess(err))
	assert.Contains(t, stderr, "cannot list directory")
}

func TestRootReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTestFiles(t, dir, "keep.pkg", "skip-me.pkg")
	tool, invocations := testutils.WriteToolScript(t, `exit 0`)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"directories:\n  base: "+dir+"\n"+
			"batch:\n  tool: "+tool+"\n  ignore: [\"skip-*\"]\n"), 0o644))

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, []string{"keep.pkg"}, testutils.ReadInvocations(t, invocations))
}

func TestRootRejectsInvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("batch:\n  extension: pkg\n"), 0o644))

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath})
	err := cmd.Execute()
	assert.True(t, errors.IsInvalidConfig(err))
}

func TestListCommand(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTestFiles(t, dir, "b.pkg", "a.pkg", ".pkg", "x.PKG")

	out, _, err := execute(t, context.Background(), "list", dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.pkg", "b.pkg"}, strings.Fields(out))
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestInspectCommand(t *testing.T) {
	dir := t.TempDir()
	path := pkgfiletest.Write(t, dir, "game.pkg", pkgfiletest.Package{
		Title:     "Tearaway",
		ContentID: "EP9000-PCSF00214_00-0000000000000000",
	})

	out, _, err := execute(t, context.Background(), "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, path+"\n")
	assert.Contains(t, out, "title:      Tearaway\n")
	assert.Contains(t, out, "region:     EUR\n")
	assert.Contains(t, out, "dlc:        no\n")
	assert.Contains(t, out, "new name:   Tearaway [PCSF00214] [EUR].pkg\n")
	assert.Regexp(t, `size:\s+\d+ B`, out)
}

func TestInspectReportsUnreadablePackages(t *testing.T) {
	dir := t.TempDir()
	good := pkgfiletest.Write(t, dir, "good.pkg", pkgfiletest.Package{Title: "T", ContentID: "UP0000-PCSA00001_00-0000000000000000"})
	testutils.CreateTestFilesWithContent(t, dir, map[string]string{"bad.pkg": "junk"})

	out, stderr, err := execute(t, context.Background(), "inspect", good, filepath.Join(dir, "bad.pkg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 packages")
	assert.Contains(t, out, "T [PCSA00001] [USA].pkg")
	assert.Contains(t, stderr, "cannot inspect package")
}

func TestWatchCommandStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTestFiles(t, dir, "a.pkg")
	tool, invocations := testutils.WriteToolScript(t, `exit 0`)

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, _, err := execute(t, ctx, "watch", "--dir", dir, "--tool", tool, "--settle", "20ms")
		done <- result{out, err}
	}()

	require.Eventually(t, func() bool {
		return len(testutils.ReadInvocations(t, invocations)) == 1
	}, 5*time.Second, 20*time.Millisecond)

	testutils.CreateTestFiles(t, dir, "b.pkg")
	require.Eventually(t, func() bool {
		return len(testutils.ReadInvocations(t, invocations)) == 2
	}, 5*time.Second, 20*time.Millisecond)
	cancel()

	res := <-done
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.out, "pkgFiles [\"a.pkg\"]\nRenaming a.pkg\n"))
	assert.Contains(t, res.out, "Renaming b.pkg\n")
	assert.Equal(t, []string{"a.pkg", "b.pkg"}, testutils.ReadInvocations(t, invocations))
}

func TestWatchRejectsNegativeSettle(t *testing.T) {
	_, _, err := execute(t, context.Background(), "watch", "--settle", "-1s")
	assert.True(t, errors.IsInvalidConfig(err))
}

func TestWatchRejectsMalformedSettle(t *testing.T) {
	dir := t.TempDir()
	tool, invocations := testutils.WriteToolScript(t, `exit 0`)
	testutils.CreateTestFiles(t, dir, "a.pkg")

	_, _, err := execute(t, context.Background(), "watch", "--dir", dir, "--tool", tool, "--settle", "soon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settle")
	assert.Empty(t, testutils.ReadInvocations(t, invocations), "nothing runs with a bad flag")
}
