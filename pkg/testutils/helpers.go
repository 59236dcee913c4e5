package testutils

import (
	"bufio"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateTestFilesWithContent creates test files with specific content
func CreateTestFilesWithContent(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
		require.NoError(t, err)
	}
}

// CreateTestFiles creates empty files named names in dir
func CreateTestFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
}

// CreateTestDirs creates subdirectories named names in dir
func CreateTestDirs(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o755))
	}
}

// Chdir changes the working directory for the duration of the test
func Chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

// SkipOnWindows skips tests that rely on POSIX shell scripts or symlinks
func SkipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

// WriteToolScript writes an executable shell script standing in for the
// renaming tool. Every invocation appends its first argument to the
// returned log file before body runs, so tests can check what was invoked
// and in which order.
func WriteToolScript(t *testing.T, body string) (tool string, invocations string) {
	t.Helper()
	SkipOnWindows(t)

	dir := t.TempDir()
	tool = filepath.Join(dir, "renametool")
	invocations = filepath.Join(dir, "invocations.log")
	script := "#!/bin/sh\n" +
		"printf '%s\\n' \"$1\" >> '" + invocations + "'\n" +
		body + "\n"
	require.NoError(t, os.WriteFile(tool, []byte(script), 0o755))
	return tool, invocations
}

// ReadInvocations returns the arguments recorded by a WriteToolScript tool,
// one per invocation, in order.
func ReadInvocations(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	defer f.Close()

	var args []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		args = append(args, s.Text())
	}
	require.NoError(t, s.Err())
	return args
}

// StripANSI removes ANSI escape sequences from a string
func StripANSI(str string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range str {
		if r == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
				inEscape = false
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
