// Package ui renders the diagnostic text a batch pass writes to standard
// output.
package ui

import (
	"fmt"
	"io"
	"strings"

	"pkgbatch/pkg/types"
)

// TextNotifier writes batch diagnostics as lines of text.
type TextNotifier struct {
	out    io.Writer
	notice string
	styles Styles
}

// NewTextNotifier creates a notifier writing to out. Failed attempts are
// reported with the fixed notice "<tool> error".
func NewTextNotifier(out io.Writer, tool string) *TextNotifier {
	return &TextNotifier{
		out:    out,
		notice: FailureNotice(tool),
		styles: NewStyles(out),
	}
}

// FailureNotice is the fixed text printed for any failed invocation of tool.
func FailureNotice(tool string) string {
	return tool + " error"
}

// Matched prints the full list of matched names before processing starts.
func (n *TextNotifier) Matched(names []string) {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	fmt.Fprintf(n.out, "%s [%s]\n", n.styles.Label.Render("pkgFiles"), strings.Join(quoted, " "))
}

// Renaming prints the line emitted right before a file's invocation.
func (n *TextNotifier) Renaming(name string) {
	fmt.Fprintf(n.out, "Renaming %s\n", n.styles.Name.Render(name))
}

// Failed prints the fixed failure notice. Outcome and exit code only go
// to the debug log.
func (n *TextNotifier) Failed(types.RenameResult) {
	fmt.Fprintln(n.out, n.styles.Failure.Render(n.notice))
}
