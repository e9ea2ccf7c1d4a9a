package report

import (
	"sync"

	"github.com/sbl8/flightloop/harness"
)

// RunResult is everything observed during one run.
type RunResult struct {
	Info    harness.RunInfo
	Records []harness.CycleRecord
	Summary harness.Summary
}

// Recorder keeps every run in memory for the exporters.
type Recorder struct {
	mu      sync.Mutex
	runs    []RunResult
	current *RunResult
}

func (r *Recorder) RunStarted(info harness.RunInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = &RunResult{
		Info:    info,
		Records: make([]harness.CycleRecord, 0, info.Cycles),
	}
}

func (r *Recorder) CycleCompleted(rec harness.CycleRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		r.current.Records = append(r.current.Records, rec)
	}
}

func (r *Recorder) RunFinished(sum harness.Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return
	}
	r.current.Summary = sum
	r.runs = append(r.runs, *r.current)
	r.current = nil
}

// Runs returns the completed runs in order.
func (r *Recorder) Runs() []RunResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RunResult, len(r.runs))
	copy(out, r.runs)
	return out
}
