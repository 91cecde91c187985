// Package azclitest provides a scriptable azcli.Executor for tests.
package azclitest

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/CZERTAINLY/azsnap/internal/azcli"
)

// HandlerFunc produces the attempt for one command execution.
type HandlerFunc func(ctx context.Context, cmd azcli.Command) azcli.Attempt

// Fake records every executed command and tracks how many run at the same time.
type Fake struct {
	handler  HandlerFunc
	mx       sync.Mutex
	calls    []azcli.Command
	inFlight atomic.Int64
	peak     atomic.Int64
}

func New(handler HandlerFunc) *Fake {
	return &Fake{handler: handler}
}

func (f *Fake) Exec(ctx context.Context, cmd azcli.Command) azcli.Attempt {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if cur <= peak || f.peak.CompareAndSwap(peak, cur) {
			break
		}
	}

	f.mx.Lock()
	f.calls = append(f.calls, cmd)
	f.mx.Unlock()
	return f.handler(ctx, cmd)
}

func (f *Fake) Calls() []azcli.Command {
	f.mx.Lock()
	defer f.mx.Unlock()
	return slices.Clone(f.calls)
}

// Count returns the number of calls whose arguments start with prefix,
// e.g. Count("snapshot", "create").
func (f *Fake) Count(prefix ...string) int {
	var n int
	for _, c := range f.Calls() {
		if HasPrefix(c, prefix...) {
			n++
		}
	}
	return n
}

// Peak is the highest number of concurrently executing commands observed.
func (f *Fake) Peak() int {
	return int(f.peak.Load())
}

func HasPrefix(cmd azcli.Command, prefix ...string) bool {
	return len(cmd.Args) >= len(prefix) && slices.Equal(cmd.Args[:len(prefix)], prefix)
}

// Arg returns the value following flag, e.g. Arg(cmd, "--ids").
func Arg(cmd azcli.Command, flag string) string {
	i := slices.Index(cmd.Args, flag)
	if i < 0 || i+1 >= len(cmd.Args) {
		return ""
	}
	return cmd.Args[i+1]
}

func OK(stdout string) azcli.Attempt {
	return azcli.Attempt{Stdout: strings.TrimSpace(stdout)}
}

func Fail(code int, stderr string) azcli.Attempt {
	return azcli.Attempt{ExitCode: code, Stderr: stderr}
}

// Router dispatches on the first two arguments ("account set", "vm show", ...).
// Commands without a route fail with exit code 2.
type Router map[string]HandlerFunc

func (r Router) Handle(ctx context.Context, cmd azcli.Command) azcli.Attempt {
	if len(cmd.Args) >= 2 {
		if h, ok := r[cmd.Args[0]+" "+cmd.Args[1]]; ok {
			return h(ctx, cmd)
		}
	}
	return Fail(2, "azclitest: no route for "+cmd.String())
}
