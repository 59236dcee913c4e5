package batch

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"pkgbatch/internal/errors"
	"pkgbatch/pkg/types"
)

// Invoker runs the renaming tool for one file.
type Invoker interface {
	// Invoke runs the tool with name as its only argument, with dir as the
	// working directory, and blocks until it exits.
	Invoke(ctx context.Context, dir, name string) types.RenameResult
}

// ExecInvoker runs the tool as a child process.
type ExecInvoker struct {
	Tool   string
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecInvoker creates an invoker for tool that shares this process's
// stdout and stderr. A relative tool path containing a separator is
// resolved against the current directory, since the child runs elsewhere.
func NewExecInvoker(tool string) *ExecInvoker {
	if strings.ContainsAny(tool, `/\`) && !filepath.IsAbs(tool) {
		if abs, err := filepath.Abs(tool); err == nil {
			tool = abs
		}
	}
	return &ExecInvoker{Tool: tool, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Invoke implements Invoker.
func (e *ExecInvoker) Invoke(ctx context.Context, dir, name string) types.RenameResult {
	cmd := exec.CommandContext(ctx, e.Tool, name)
	// A bare tool name found only in the current directory is accepted,
	// matching how the tool is usually shipped next to the packages.
	if errors.Is(cmd.Err, exec.ErrDot) {
		cmd.Err = nil
		if abs, err := filepath.Abs(cmd.Path); err == nil {
			cmd.Path = abs
		}
	}
	cmd.Dir = dir
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	err := cmd.Run()
	if err == nil {
		return types.RenameResult{Name: name, Outcome: types.Renamed, ExitCode: 0}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		return types.RenameResult{
			Name:     name,
			Outcome:  types.ToolFailed,
			ExitCode: code,
			Error:    errors.NewInvocationError(e.Tool, name, errors.ToolFailed, code, err),
		}
	}
	return types.RenameResult{
		Name:     name,
		Outcome:  types.NotLaunched,
		ExitCode: -1,
		Error:    errors.NewInvocationError(e.Tool, name, errors.ToolNotLaunched, -1, err),
	}
}
