package report

import (
	"strconv"

	"github.com/CZERTAINLY/azsnap/internal/outcome"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	colorAccent  = lipgloss.Color("#7B68EE")
	colorSuccess = lipgloss.Color("#50C878")
	colorError   = lipgloss.Color("#FF6961")
	colorMuted   = lipgloss.Color("#808080")
	colorBorder  = lipgloss.Color("#3A3A5C")

	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	styleCell   = lipgloss.NewStyle().Padding(0, 1)
	styleOK     = styleCell.Foreground(colorSuccess)
	styleErr    = styleCell.Foreground(colorError)
	styleDim    = styleCell.Foreground(colorMuted)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(headers...)
}

// SummaryTable renders the totals of a run with one row per failure reason.
func SummaryTable(s outcome.RunSummary) string {
	rows := [][]string{
		{"Total items processed", strconv.Itoa(s.Total)},
		{"Succeeded", strconv.Itoa(s.Succeeded)},
		{"Failed", strconv.Itoa(s.Failed)},
	}
	for _, r := range s.Reasons() {
		rows = append(rows, []string{"  " + string(r), strconv.Itoa(s.ByReason[r])})
	}
	return newTable("Category", "Count").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styleHeader
			case row == 1:
				return styleOK
			case row >= 2:
				return styleErr
			}
			return styleCell
		}).
		Rows(rows...).
		Render()
}

// OutcomeTable lists every item with its snapshot or failure reason.
func OutcomeTable(s outcome.RunSummary) string {
	rows := make([][]string, 0, len(s.Outcomes))
	for _, o := range s.Outcomes {
		result := string(o.Reason)
		if o.Succeeded() {
			result = o.Label
		}
		rows = append(rows, []string{o.ItemID, o.ScopeID, string(o.Status), result})
	}
	return newTable("Item", "Subscription", "Status", "Snapshot / Reason").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if col == 2 {
				if s.Outcomes[row].Succeeded() {
					return styleOK
				}
				return styleErr
			}
			return styleCell
		}).
		Rows(rows...).
		Render()
}

// ValidationTable renders the attributes of every validated snapshot.
func ValidationTable(s outcome.RunSummary) string {
	rows := make([][]string, 0, len(s.Outcomes))
	for _, o := range s.Outcomes {
		row := []string{idOf(o), na, "no", na, na, na, na}
		if info := o.Snapshot; o.Succeeded() && info != nil {
			row = []string{idOf(o), info.Name, "yes", info.ResourceGroup, info.TimeCreated, info.DiskSizeGB, info.ProvisioningState}
		}
		rows = append(rows, row)
	}
	return newTable("Snapshot ID", "Name", "Exists", "Resource Group", "Time Created", "Size (GB)", "State").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styleHeader
			case col == 2 && s.Outcomes[row].Succeeded():
				return styleOK
			case col == 2:
				return styleErr
			case col == 0:
				return styleDim
			}
			return styleCell
		}).
		Rows(rows...).
		Render()
}
