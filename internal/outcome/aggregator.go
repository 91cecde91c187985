package outcome

import (
	"slices"
	"sync"
	"time"
)

// RunSummary is the read-only aggregate of a finished run. Outcomes are in
// completion order.
type RunSummary struct {
	RunID     string
	Action    string
	Tag       string
	Started   time.Time
	Finished  time.Time
	Total     int
	Succeeded int
	Failed    int
	ByReason  map[FailureReason]int
	Outcomes  []Outcome
}

// Aggregator is a concurrency safe collection of outcomes.
type Aggregator struct {
	mx       sync.Mutex
	outcomes []Outcome
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

func (a *Aggregator) Record(o Outcome) {
	a.mx.Lock()
	a.outcomes = append(a.outcomes, o)
	a.mx.Unlock()
}

func (a *Aggregator) Len() int {
	a.mx.Lock()
	defer a.mx.Unlock()
	return len(a.outcomes)
}

// Summarize counts the recorded outcomes. The returned summary holds a copy of
// them, later calls to Record do not change it.
func (a *Aggregator) Summarize() RunSummary {
	a.mx.Lock()
	outcomes := slices.Clone(a.outcomes)
	a.mx.Unlock()

	ret := RunSummary{
		Total:    len(outcomes),
		ByReason: make(map[FailureReason]int),
		Outcomes: outcomes,
	}
	for _, o := range outcomes {
		if o.Succeeded() {
			ret.Succeeded++
			continue
		}
		ret.Failed++
		ret.ByReason[o.Reason]++
	}
	return ret
}

// Successes returns the successful outcomes in completion order.
func (s RunSummary) Successes() []Outcome {
	var ret []Outcome
	for _, o := range s.Outcomes {
		if o.Succeeded() {
			ret = append(ret, o)
		}
	}
	return ret
}

// Failures returns the failed outcomes in completion order.
func (s RunSummary) Failures() []Outcome {
	var ret []Outcome
	for _, o := range s.Outcomes {
		if !o.Succeeded() {
			ret = append(ret, o)
		}
	}
	return ret
}

// Reasons returns the failure reasons present in the summary, sorted.
func (s RunSummary) Reasons() []FailureReason {
	ret := make([]FailureReason, 0, len(s.ByReason))
	for r := range s.ByReason {
		ret = append(ret, r)
	}
	slices.Sort(ret)
	return ret
}
