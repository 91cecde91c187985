package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/CZERTAINLY/azsnap/internal/azcli"
	"github.com/CZERTAINLY/azsnap/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type commandRunner interface {
	Run(ctx context.Context, cmd azcli.Command) azcli.CommandResult
}

// Appender persists produced identifiers.
type Appender interface {
	Append(id string) error
}

// Name builds the snapshot name `<prefix>_<tag>_<vm>_<timestamp>`. Every part is
// sanitized and empty parts are left out.
func Name(prefix, tag, vm, timestamp string) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{prefix, tag, vm, timestamp} {
		if p = model.SanitizeName(strings.TrimSpace(p)); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "_")
}

func commandDetail(res azcli.CommandResult) string {
	return fmt.Sprintf("exit code %d after %d attempt(s): %s", res.ExitCode, res.Attempts, res.Stderr)
}

// event marks a state transition on the span of the current item, if any.
func event(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}
