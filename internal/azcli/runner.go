package azcli

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 5 * time.Second
)

// Runner executes commands and retries failed attempts with a fixed delay.
// A non-zero exit code is never turned into an error, callers inspect
// CommandResult.ExitCode.
type Runner struct {
	exec       Executor
	maxRetries int
	retryDelay time.Duration
}

func NewRunner(exec Executor) Runner {
	if exec == nil {
		exec = ProcessExecutor{}
	}
	return Runner{
		exec:       exec,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
	}
}

// WithRetries returns a copy of the runner with a different retry policy.
// maxRetries is the total number of attempts and is at least 1.
func (r Runner) WithRetries(maxRetries int, delay time.Duration) Runner {
	r.maxRetries = max(maxRetries, 1)
	r.retryDelay = max(delay, 0)
	return r
}

// Run executes cmd up to maxRetries times until it exits with zero and returns the
// last attempt. The wait between attempts ends early when ctx is done, in which case
// the last failed attempt is returned.
func (r Runner) Run(ctx context.Context, cmd Command) CommandResult {
	var ret CommandResult
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		a := r.exec.Exec(ctx, cmd)
		ret = CommandResult{
			Stdout:   a.Stdout,
			Stderr:   a.Stderr,
			ExitCode: a.ExitCode,
			Attempts: attempt,
		}
		if a.ExitCode == 0 {
			return ret
		}

		slog.WarnContext(ctx, "command failed",
			"cmd", cmd.String(),
			"attempt", attempt,
			"exit_code", a.ExitCode,
			"error", a.Stderr,
		)
		if attempt == r.maxRetries {
			break
		}
		slog.InfoContext(ctx, "retrying command", "delay", r.retryDelay.String())
		if !sleep(ctx, r.retryDelay) {
			slog.WarnContext(ctx, "retry wait interrupted", "error", ctx.Err())
			break
		}
	}
	return ret
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
