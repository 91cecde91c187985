package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/CZERTAINLY/azsnap/internal/azcli"
	"github.com/CZERTAINLY/azsnap/internal/model"
	"github.com/CZERTAINLY/azsnap/internal/outcome"
	"go.opentelemetry.io/otel/attribute"
)

// CreateOptions name and tag the snapshots of one run.
type CreateOptions struct {
	Prefix     string
	Tag        string
	Timestamp  string
	ExpireDays int
	RunID      string
	Started    time.Time
}

// CreateOptionsFor derives the options from the configuration and the run.
func CreateOptionsFor(cfg model.Snapshot, run model.RunConfig) CreateOptions {
	return CreateOptions{
		Prefix:     cfg.NamePrefix,
		Tag:        run.Tag,
		Timestamp:  run.Timestamp,
		ExpireDays: cfg.ExpireDays,
		RunID:      run.ID,
		Started:    run.Started,
	}
}

// Creator snapshots the OS disk of a VM and records the snapshot id in the ledger.
type Creator struct {
	az     azcli.Az
	runner commandRunner
	ledger Appender
	opts   CreateOptions
}

func NewCreator(az azcli.Az, runner commandRunner, ledger Appender, opts CreateOptions) Creator {
	return Creator{
		az:     az,
		runner: runner,
		ledger: ledger,
		opts:   opts,
	}
}

// Tags returns the key=value tags put on every snapshot.
func (c Creator) Tags() []string {
	var ret []string
	if c.opts.ExpireDays > 0 {
		expires := c.opts.Started.AddDate(0, 0, c.opts.ExpireDays)
		ret = append(ret, "expires="+expires.Format(time.DateOnly))
	}
	if c.opts.RunID != "" {
		ret = append(ret, "azsnap-run="+c.opts.RunID)
	}
	return ret
}

func (c Creator) SnapshotName(item model.WorkItem) string {
	return Name(c.opts.Prefix, c.opts.Tag, item.ItemID, c.opts.Timestamp)
}

// Process expects the subscription of item to be active.
func (c Creator) Process(ctx context.Context, item model.WorkItem) outcome.Outcome {
	slog.InfoContext(ctx, "processing vm", "resource_id", item.ResourceID)

	// ScopeReady -> DetailsFetched
	res := c.runner.Run(ctx, c.az.VMShow(item.ResourceID))
	if !res.OK() {
		slog.ErrorContext(ctx, "fetching vm details failed", "exit_code", res.ExitCode, "error", res.Stderr)
		return outcome.Failure(item, outcome.ReasonDetailsFetch, commandDetail(res))
	}
	obj, err := azcli.DecodeObject(res.Stdout)
	if err != nil {
		slog.ErrorContext(ctx, "parsing vm details failed", "error", err)
		return outcome.Failure(item, outcome.ReasonDetailsMissing, err.Error())
	}
	resourceGroup, ok := azcli.LookupString(obj, "resourceGroup")
	if !ok {
		slog.ErrorContext(ctx, "vm details without resource group")
		return outcome.Failure(item, outcome.ReasonDetailsMissing, "resourceGroup is missing")
	}
	diskID, ok := azcli.LookupString(obj, "diskId")
	if !ok {
		slog.ErrorContext(ctx, "vm details without os disk")
		return outcome.Failure(item, outcome.ReasonDetailsMissing, "diskId is missing")
	}
	slog.DebugContext(ctx, "vm details fetched", "resource_group", resourceGroup, "disk_id", diskID)
	event(ctx, "details fetched", attribute.String("resource_group", resourceGroup))

	// DetailsFetched -> ActionIssued
	name := c.SnapshotName(item)
	res = c.runner.Run(ctx, c.az.SnapshotCreate(name, resourceGroup, diskID, c.Tags()...))
	if !res.OK() {
		slog.ErrorContext(ctx, "creating snapshot failed", "snapshot", name, "exit_code", res.ExitCode, "error", res.Stderr)
		return outcome.Failure(item, outcome.ReasonAction, commandDetail(res))
	}
	event(ctx, "snapshot created", attribute.String("snapshot", name))
	slog.DebugContext(ctx, "snapshot create output", "stdout", res.Stdout)

	var id string
	if obj, err := azcli.DecodeObject(res.Stdout); err == nil {
		id, _ = azcli.LookupString(obj, "id")
	}
	if id == "" {
		slog.WarnContext(ctx, "could not extract snapshot resource id", "snapshot", name)
		return outcome.Failure(item, outcome.ReasonMissingID, fmt.Sprintf("snapshot %s: no id in output", name))
	}

	// ActionIssued -> Succeeded
	if err := c.ledger.Append(id); err != nil {
		slog.ErrorContext(ctx, "writing ledger failed", "snapshot_id", id, "error", err)
		return outcome.Failure(item, outcome.ReasonLedgerWrite, err.Error())
	}
	slog.InfoContext(ctx, "snapshot created", "snapshot", name, "snapshot_id", id)
	return outcome.Success(item, id, name)
}
