package azcli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ExitStartFailure is reported when the process could not be started at all.
const ExitStartFailure = -1

// Executor runs one attempt of a command.
type Executor interface {
	Exec(ctx context.Context, cmd Command) Attempt
}

// ProcessExecutor runs commands as child processes using os/exec.
type ProcessExecutor struct{}

func (ProcessExecutor) Exec(ctx context.Context, proto Command) Attempt {
	if proto.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, proto.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, proto.Path, proto.Args...)
	if len(proto.Env) > 0 {
		cmd.Env = append(os.Environ(), proto.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	slog.DebugContext(ctx, "command finished", "cmd", proto.String(), "elapsed", time.Since(started).String())

	ret := Attempt{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if err == nil {
		return ret
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr) && exitErr.ExitCode() > 0:
		ret.ExitCode = exitErr.ExitCode()
	default:
		// not started, killed by a signal or by the timeout
		ret.ExitCode = ExitStartFailure
		if ctx.Err() != nil {
			err = errors.Join(err, ctx.Err())
		}
		if ret.Stderr == "" {
			ret.Stderr = err.Error()
		} else {
			ret.Stderr += "\n" + err.Error()
		}
	}
	return ret
}
