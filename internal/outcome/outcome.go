// Package outcome collects the terminal result of every work item of a run and
// persists the identifiers produced by successful operations.
package outcome

import (
	"github.com/CZERTAINLY/azsnap/internal/model"
)

// FailureReason classifies why an item failed.
type FailureReason string

const (
	ReasonScopeSwitch    FailureReason = "scope switch failed"
	ReasonDetailsFetch   FailureReason = "details fetch failed"
	ReasonDetailsMissing FailureReason = "details missing field"
	ReasonAction         FailureReason = "action failed"
	ReasonMissingID      FailureReason = "missing identifier"
	ReasonLedgerWrite    FailureReason = "ledger write failed"
	ReasonNotFound       FailureReason = "snapshot not found"
	ReasonCancelled      FailureReason = "cancelled"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Outcome is the terminal result of one work item. Success outcomes carry the
// ProducedID, failures the Reason and a free text Detail.
type Outcome struct {
	Status     Status
	ItemID     string
	ScopeID    string
	ResourceID string
	ProducedID string
	Label      string
	Reason     FailureReason
	Detail     string
	Snapshot   *model.SnapshotInfo
}

func Success(item model.WorkItem, producedID, label string) Outcome {
	return Outcome{
		Status:     StatusSucceeded,
		ItemID:     item.ItemID,
		ScopeID:    item.ScopeID,
		ResourceID: item.ResourceID,
		ProducedID: producedID,
		Label:      label,
	}
}

func Failure(item model.WorkItem, reason FailureReason, detail string) Outcome {
	return Outcome{
		Status:     StatusFailed,
		ItemID:     item.ItemID,
		ScopeID:    item.ScopeID,
		ResourceID: item.ResourceID,
		Reason:     reason,
		Detail:     detail,
	}
}

func (o Outcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}
