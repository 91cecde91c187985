package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/CZERTAINLY/azsnap/internal/azcli"
	"github.com/CZERTAINLY/azsnap/internal/log"
)

var ErrAccountList = errors.New("listing subscriptions failed")

type commandRunner interface {
	Run(ctx context.Context, cmd azcli.Command) azcli.CommandResult
}

// Entry is one VM of the collected inventory.
type Entry struct {
	ResourceID string `json:"SubscriptionId"`
	Name       string `json:"Name"`
}

type subscription struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CollectStats reports how a collection went.
type CollectStats struct {
	Subscriptions int
	Skipped       int
}

// Collector lists Linux VMs across all subscriptions visible to the az login.
type Collector struct {
	az     azcli.Az
	runner commandRunner
}

func NewCollector(az azcli.Az, runner commandRunner) Collector {
	return Collector{az: az, runner: runner}
}

// Collect switches to every subscription in turn and lists its Linux VMs.
// Subscriptions which can't be switched to or listed are logged and skipped.
// Switching is sequential because the active subscription is global az state.
func (c Collector) Collect(ctx context.Context) ([]Entry, CollectStats, error) {
	var stats CollectStats
	res := c.runner.Run(ctx, c.az.AccountList())
	if !res.OK() {
		return nil, stats, fmt.Errorf("%w: exit code %d: %s", ErrAccountList, res.ExitCode, res.Stderr)
	}
	subs, err := azcli.DecodeList[subscription](res.Stdout)
	if err != nil {
		return nil, stats, fmt.Errorf("%w: %w", ErrAccountList, err)
	}
	stats.Subscriptions = len(subs)

	var ret []Entry
	for _, sub := range subs {
		subCtx := log.ContextAttrs(ctx, slog.String("scope", sub.ID), slog.String("subscription_name", sub.Name))
		slog.InfoContext(subCtx, "setting subscription")
		if res := c.runner.Run(subCtx, c.az.AccountSet(sub.ID)); !res.OK() {
			slog.ErrorContext(subCtx, "setting subscription failed", "error", res.Stderr)
			stats.Skipped++
			continue
		}

		res := c.runner.Run(subCtx, c.az.VMListLinux())
		if !res.OK() {
			slog.ErrorContext(subCtx, "listing vms failed", "error", res.Stderr)
			stats.Skipped++
			continue
		}
		vms, err := azcli.DecodeList[Entry](res.Stdout)
		if err != nil {
			slog.ErrorContext(subCtx, "listing vms failed", "error", err)
			stats.Skipped++
			continue
		}
		slog.DebugContext(subCtx, "vms listed", "count", len(vms))
		ret = append(ret, vms...)
	}
	return ret, stats, nil
}

// WriteInventory writes the Header followed by one `<resourceId> <name>` line per entry.
func WriteInventory(w io.Writer, entries []Entry) error {
	if _, err := fmt.Fprintln(w, Header); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s %s\n", e.ResourceID, e.Name); err != nil {
			return err
		}
	}
	return nil
}
