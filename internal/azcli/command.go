package azcli

import (
	"strconv"
	"strings"
	"time"
)

// Command is a structured invocation of an external program. Arguments are
// passed verbatim to the process, no shell is involved.
type Command struct {
	Path    string
	Args    []string
	Env     []string // appended to the environment of the current process
	Timeout time.Duration
}

// String renders the command for logs, quoting arguments which need it.
func (c Command) String() string {
	var sb strings.Builder
	sb.WriteString(c.Path)
	for _, a := range c.Args {
		sb.WriteByte(' ')
		if a == "" || strings.ContainsAny(a, " \t\n'\"{}[]$`\\;|&") {
			sb.WriteString(strconv.Quote(a))
			continue
		}
		sb.WriteString(a)
	}
	return sb.String()
}

// Attempt is the outcome of a single execution.
type Attempt struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandResult is the result of the last attempt of Runner.Run
// together with the number of attempts consumed.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Attempts int
}

func (r CommandResult) OK() bool {
	return r.ExitCode == 0
}
