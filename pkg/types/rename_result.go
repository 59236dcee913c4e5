package types

// Outcome is the end state of a single rename attempt. Every attempt ends
// in exactly one outcome; none of them stops the batch.
type Outcome int

const (
	// Renamed means the tool ran and exited with status 0.
	Renamed Outcome = iota
	// ToolFailed means the tool ran but exited non-zero or abnormally.
	ToolFailed
	// NotLaunched means the tool could not be started at all.
	NotLaunched
)

func (o Outcome) String() string {
	switch o {
	case Renamed:
		return "renamed"
	case ToolFailed:
		return "tool failed"
	case NotLaunched:
		return "not launched"
	default:
		return "unknown"
	}
}

// RenameResult holds the outcome of one tool invocation for a single file
type RenameResult struct {
	Name     string  `json:"name"`
	Outcome  Outcome `json:"outcome"`
	ExitCode int     `json:"exit_code"` // -1 when the tool produced none
	Error    error   `json:"-"`
}

// OK reports whether the tool ran successfully.
func (r RenameResult) OK() bool {
	return r.Outcome == Renamed
}
