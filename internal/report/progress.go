package report

import (
	"fmt"
	"io"

	"github.com/CZERTAINLY/azsnap/internal/outcome"
	"github.com/charmbracelet/bubbles/progress"
)

// Progress redraws a single progress line for every observed outcome.
// It is not safe for concurrent use, the driver serializes observer calls.
type Progress struct {
	w      io.Writer
	bar    progress.Model
	label  string
	total  int
	done   int
	failed int
}

func NewProgress(w io.Writer, label string, total int) *Progress {
	return &Progress{
		w:     w,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		label: label,
		total: total,
	}
}

func (p *Progress) Observe(o outcome.Outcome) {
	p.done++
	if !o.Succeeded() {
		p.failed++
	}
	_, _ = io.WriteString(p.w, "\r"+p.View())
}

func (p *Progress) View() string {
	var pct float64
	if p.total > 0 {
		pct = float64(p.done) / float64(p.total)
	}
	return fmt.Sprintf("%s %s %d/%d (%d failed)", p.label, p.bar.ViewAs(pct), p.done, p.total, p.failed)
}

// Finish ends the progress line.
func (p *Progress) Finish() {
	_, _ = io.WriteString(p.w, "\n")
}
