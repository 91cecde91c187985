// Package report renders run summaries for the console and for the report files.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CZERTAINLY/azsnap/internal/model"
	"github.com/CZERTAINLY/azsnap/internal/outcome"
)

const na = "N/A"

func title(action string) string {
	switch action {
	case model.ActionValidate:
		return "Snapshot Validation Summary"
	default:
		return "Snapshot Creation Summary"
	}
}

func underline(s string) string {
	return s + "\n" + strings.Repeat("=", len(s)) + "\n"
}

// WriteSummary writes the totals followed by the successful and failed items.
func WriteSummary(w io.Writer, s outcome.RunSummary) error {
	var sb strings.Builder
	sb.WriteString(underline(title(s.Action)))
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "Run ID: %s\n", s.RunID)
	if s.Tag != "" {
		fmt.Fprintf(&sb, "Tag: %s\n", s.Tag)
	}
	if !s.Started.IsZero() {
		fmt.Fprintf(&sb, "Started: %s\n", s.Started.Format(time.RFC3339))
		fmt.Fprintf(&sb, "Finished: %s\n", s.Finished.Format(time.RFC3339))
		fmt.Fprintf(&sb, "Runtime: %.2f seconds\n", s.Finished.Sub(s.Started).Seconds())
	}
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "Total items processed: %d\n", s.Total)
	fmt.Fprintf(&sb, "Succeeded: %d\n", s.Succeeded)
	fmt.Fprintf(&sb, "Failed: %d\n", s.Failed)
	for _, r := range s.Reasons() {
		fmt.Fprintf(&sb, "  %s: %d\n", r, s.ByReason[r])
	}

	sb.WriteString("\nSucceeded:\n")
	for _, o := range s.Successes() {
		fmt.Fprintf(&sb, "- %s: %s\n", o.ItemID, successText(o))
	}
	sb.WriteString("\nFailed:\n")
	for _, o := range s.Failures() {
		fmt.Fprintf(&sb, "- %s: %s", o.ItemID, o.Reason)
		if o.Detail != "" {
			fmt.Fprintf(&sb, " (%s)", oneLine(o.Detail))
		}
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteValidation writes one block per validated snapshot followed by the totals.
func WriteValidation(w io.Writer, s outcome.RunSummary) error {
	var sb strings.Builder
	sb.WriteString(underline("Snapshot Validation Results"))
	sb.WriteByte('\n')
	for _, o := range s.Outcomes {
		fmt.Fprintf(&sb, "Snapshot ID: %s\n", idOf(o))
		if !o.Succeeded() || o.Snapshot == nil {
			fmt.Fprintf(&sb, "Exists: No\nReason: %s\n\n", o.Reason)
			continue
		}
		fmt.Fprintf(&sb, "Exists: Yes\n")
		fmt.Fprintf(&sb, "Name: %s\n", o.Snapshot.Name)
		fmt.Fprintf(&sb, "Resource Group: %s\n", o.Snapshot.ResourceGroup)
		fmt.Fprintf(&sb, "Time Created: %s\n", o.Snapshot.TimeCreated)
		fmt.Fprintf(&sb, "Size (GB): %s\n", o.Snapshot.DiskSizeGB)
		fmt.Fprintf(&sb, "State: %s\n\n", o.Snapshot.ProvisioningState)
	}
	fmt.Fprintf(&sb, "\nTotal snapshots processed: %d\n", s.Total)
	fmt.Fprintf(&sb, "Existing snapshots: %d\n", s.Succeeded)
	fmt.Fprintf(&sb, "Non-existing snapshots: %d\n", s.Failed)
	if !s.Started.IsZero() {
		fmt.Fprintf(&sb, "Runtime: %.2f seconds\n", s.Finished.Sub(s.Started).Seconds())
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteFile creates path and its directory and writes the report with fn.
func WriteFile(path string, s outcome.RunSummary, fn func(io.Writer, outcome.RunSummary) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f, s)
}

func successText(o outcome.Outcome) string {
	switch {
	case o.Label != "" && o.ProducedID != "" && o.Label != o.ProducedID:
		return o.Label + " (" + o.ProducedID + ")"
	case o.Label != "":
		return o.Label
	default:
		return o.ProducedID
	}
}

func idOf(o outcome.Outcome) string {
	if o.ResourceID != "" {
		return o.ResourceID
	}
	return o.ItemID
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
