package report

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sbl8/flightloop/harness"
)

var now = time.Now

type snapshot struct {
	GeneratedAt time.Time     `yaml:"generated_at"`
	Runs        []runSnapshot `yaml:"runs"`
}

type runSnapshot struct {
	Variant       string                `yaml:"variant"`
	Points        int                   `yaml:"points"`
	BudgetMs      float64               `yaml:"budget_ms"`
	OverheadMs    float64               `yaml:"overhead_ms"`
	ForcedDelayMs float64               `yaml:"forced_delay_ms"`
	JitterMs      float64               `yaml:"jitter_ms"`
	SpikeCycle    int                   `yaml:"spike_cycle"`
	Summary       harness.Summary       `yaml:"summary"`
	Cycles        []harness.CycleRecord `yaml:"cycles"`
}

// WriteYAML writes a timestamped snapshot of runs.
func WriteYAML(w io.Writer, runs []RunResult) error {
	if len(runs) == 0 {
		return ErrNoRuns
	}
	snap := snapshot{GeneratedAt: now().UTC(), Runs: make([]runSnapshot, 0, len(runs))}
	for _, r := range runs {
		snap.Runs = append(snap.Runs, runSnapshot{
			Variant:       r.Info.Variant.String(),
			Points:        r.Info.Points,
			BudgetMs:      r.Info.BudgetMs,
			OverheadMs:    r.Info.OverheadMs,
			ForcedDelayMs: r.Info.ForcedDelayMs,
			JitterMs:      r.Info.JitterMs,
			SpikeCycle:    r.Info.SpikeCycle,
			Summary:       r.Summary,
			Cycles:        r.Records,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return enc.Close()
}
