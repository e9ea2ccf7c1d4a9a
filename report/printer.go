// Package report turns harness records into text, YAML, spreadsheet and chart
// output. Nothing here feeds back into timing.
package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/sbl8/flightloop/harness"
)

// ErrNoRuns is returned by the exporters when there is nothing to write.
var ErrNoRuns = errors.New("report: no runs recorded")

// Printer writes the human-readable cycle log. The first write error is kept
// and later output is dropped.
type Printer struct {
	w   io.Writer
	err error
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Err returns the first write error, if any.
func (p *Printer) Err() error { return p.err }

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) RunStarted(info harness.RunInfo) {
	p.printf("=== Flight Loop Simulation: %s ===\n", info.Variant)
	p.printf("Sensor Points: %d | Overhead: %.1f ms | Forced Delay: %.1f ms\n",
		info.Points, info.OverheadMs, info.ForcedDelayMs)
	p.printf("Budget: %.1f ms | Cycles: %d\n\n", info.BudgetMs, info.Cycles)
}

func (p *Printer) CycleCompleted(rec harness.CycleRecord) {
	p.printf("%s\n", FormatCycle(rec))
}

func (p *Printer) RunFinished(sum harness.Summary) {
	p.printf("%s: %d/%d met | Mean transform: %.2f ms | Max transform: %.2f ms | Worst total: %.2f ms\n\n",
		sum.Variant, sum.Met, sum.Cycles, sum.MeanComputeMs, sum.MaxComputeMs, sum.WorstTotalMs)
}

// FormatCycle renders one cycle line. The spike cycle carries a jitter note.
func FormatCycle(rec harness.CycleRecord) string {
	line := fmt.Sprintf("Cycle %2d | Transform: %5.2f ms | Delay: %4.2f ms | Total: %5.2f ms | %s",
		rec.Cycle, rec.ComputeMs, rec.ForcedDelayMs, rec.TotalMs, rec.Outcome())
	if rec.Spike {
		line += fmt.Sprintf(" (jitter +%.2f ms)", rec.JitterMs)
	}
	return line
}
