package snapshot

import (
	"context"
	"log/slog"

	"github.com/CZERTAINLY/azsnap/internal/azcli"
	"github.com/CZERTAINLY/azsnap/internal/model"
	"github.com/CZERTAINLY/azsnap/internal/outcome"
)

// Validator checks that a snapshot listed in the ledger exists.
type Validator struct {
	az     azcli.Az
	runner commandRunner
}

func NewValidator(az azcli.Az, runner commandRunner) Validator {
	return Validator{az: az, runner: runner}
}

func (v Validator) Process(ctx context.Context, item model.WorkItem) outcome.Outcome {
	res := v.runner.Run(ctx, v.az.SnapshotShow(item.ResourceID))
	if !res.OK() {
		slog.ErrorContext(ctx, "snapshot not found", "snapshot_id", item.ResourceID, "error", res.Stderr)
		return outcome.Failure(item, outcome.ReasonNotFound, commandDetail(res))
	}
	obj, err := azcli.DecodeObject(res.Stdout)
	if err != nil {
		slog.ErrorContext(ctx, "parsing snapshot details failed", "snapshot_id", item.ResourceID, "error", err)
		return outcome.Failure(item, outcome.ReasonDetailsMissing, err.Error())
	}

	info := model.SnapshotInfo{ID: item.ResourceID}
	fields := []struct {
		key string
		dst *string
	}{
		{"name", &info.Name},
		{"resourceGroup", &info.ResourceGroup},
		{"timeCreated", &info.TimeCreated},
		{"diskSizeGb", &info.DiskSizeGB},
		{"provisioningState", &info.ProvisioningState},
	}
	for _, f := range fields {
		s, ok := azcli.LookupString(obj, f.key)
		if !ok {
			slog.ErrorContext(ctx, "snapshot details incomplete", "snapshot_id", item.ResourceID, "field", f.key)
			return outcome.Failure(item, outcome.ReasonDetailsMissing, f.key+" is missing")
		}
		*f.dst = s
	}
	event(ctx, "snapshot validated")
	slog.InfoContext(ctx, "snapshot exists", "snapshot", info.Name, "state", info.ProvisioningState)

	ret := outcome.Success(item, item.ResourceID, info.Name)
	ret.Snapshot = &info
	return ret
}
