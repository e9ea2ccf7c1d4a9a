package harness

import (
	"time"

	"github.com/sbl8/flightloop/kernels"
)

// Observer receives run events in order: RunStarted once, CycleCompleted once
// per cycle, RunFinished once. Calls happen on the run goroutine.
type Observer interface {
	RunStarted(info RunInfo)
	CycleCompleted(rec CycleRecord)
	RunFinished(sum Summary)
}

// RunInfo describes a run before its first cycle.
type RunInfo struct {
	Variant       kernels.Variant
	Points        int
	Cycles        int
	BudgetMs      float64
	OverheadMs    float64
	ForcedDelayMs float64
	JitterMs      float64
	// SpikeCycle is the 1-based cycle that carries the jitter addend, 0 if none.
	SpikeCycle int
	Started    time.Time
}

// CycleRecord is the accounting of one cycle.
type CycleRecord struct {
	Cycle         int             `yaml:"cycle"`
	Variant       kernels.Variant `yaml:"-"`
	ComputeMs     float64         `yaml:"compute_ms"`
	OverheadMs    float64         `yaml:"overhead_ms"`
	ForcedDelayMs float64         `yaml:"forced_delay_ms"`
	JitterMs      float64         `yaml:"jitter_ms"`
	TotalMs       float64         `yaml:"total_ms"`
	BudgetMs      float64         `yaml:"budget_ms"`
	Met           bool            `yaml:"met"`
	Spike         bool            `yaml:"spike"`
}

// Outcome returns "Met" or "Miss".
func (r CycleRecord) Outcome() string {
	if r.Met {
		return "Met"
	}
	return "Miss"
}

// HeadroomMs is the budget left over, negative on a miss.
func (r CycleRecord) HeadroomMs() float64 {
	return r.BudgetMs - r.TotalMs
}

// Summary aggregates the records of one run.
type Summary struct {
	Variant       kernels.Variant `yaml:"-"`
	Cycles        int             `yaml:"cycles"`
	Met           int             `yaml:"met"`
	Missed        int             `yaml:"missed"`
	MeanComputeMs float64         `yaml:"mean_compute_ms"`
	MaxComputeMs  float64         `yaml:"max_compute_ms"`
	WorstTotalMs  float64         `yaml:"worst_total_ms"`
	Elapsed       time.Duration   `yaml:"elapsed"`
}

func (s *Summary) add(rec CycleRecord) {
	s.Cycles++
	if rec.Met {
		s.Met++
	} else {
		s.Missed++
	}
	// running mean keeps the sum bounded on long runs
	s.MeanComputeMs += (rec.ComputeMs - s.MeanComputeMs) / float64(s.Cycles)
	if rec.ComputeMs > s.MaxComputeMs {
		s.MaxComputeMs = rec.ComputeMs
	}
	if rec.TotalMs > s.WorstTotalMs {
		s.WorstTotalMs = rec.TotalMs
	}
}

// AllMet reports whether no cycle missed its budget.
func (s Summary) AllMet() bool {
	return s.Missed == 0
}

// Observers fans events out to each member in order.
type Observers []Observer

func (o Observers) RunStarted(info RunInfo) {
	for _, obs := range o {
		obs.RunStarted(info)
	}
}

func (o Observers) CycleCompleted(rec CycleRecord) {
	for _, obs := range o {
		obs.CycleCompleted(rec)
	}
}

func (o Observers) RunFinished(sum Summary) {
	for _, obs := range o {
		obs.RunFinished(sum)
	}
}
