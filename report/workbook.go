package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// SummarySheet is the name of the per-variant overview sheet.
const SummarySheet = "Summary"

var (
	cycleHeaders = []any{
		"Cycle", "Transform (ms)", "Overhead (ms)", "Delay (ms)",
		"Jitter (ms)", "Total (ms)", "Budget (ms)", "Outcome",
	}
	summaryHeaders = []any{
		"Variant", "Points", "Cycles", "Met", "Missed",
		"Mean transform (ms)", "Max transform (ms)", "Worst total (ms)",
	}
)

// WriteWorkbook saves runs as an XLSX file at path: a Summary sheet followed
// by one sheet of cycle rows per run. Parent directories are created.
func WriteWorkbook(path string, runs []RunResult) error {
	if len(runs) == 0 {
		return ErrNoRuns
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return fmt.Errorf("workbook: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("workbook: %w", err)
	}

	if err := writeRow(f, SummarySheet, 1, summaryHeaders); err != nil {
		return err
	}
	_ = f.SetRowStyle(SummarySheet, 1, 1, bold)

	used := make(map[string]int)
	for i, r := range runs {
		s := r.Summary
		row := []any{
			r.Info.Variant.String(), r.Info.Points, s.Cycles, s.Met, s.Missed,
			s.MeanComputeMs, s.MaxComputeMs, s.WorstTotalMs,
		}
		if err := writeRow(f, SummarySheet, i+2, row); err != nil {
			return err
		}

		sheet := sheetName(r.Info.Variant.String(), used)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("workbook: %w", err)
		}
		if err := writeRow(f, sheet, 1, cycleHeaders); err != nil {
			return err
		}
		_ = f.SetRowStyle(sheet, 1, 1, bold)
		for j, rec := range r.Records {
			row := []any{
				rec.Cycle, rec.ComputeMs, rec.OverheadMs, rec.ForcedDelayMs,
				rec.JitterMs, rec.TotalMs, rec.BudgetMs, rec.Outcome(),
			}
			if err := writeRow(f, sheet, j+2, row); err != nil {
				return err
			}
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("workbook: create directory: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("workbook: save %s: %w", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("workbook: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("workbook: %s row %d: %w", sheet, row, err)
	}
	return nil
}

// sheetName returns name, suffixed when the same variant ran more than once.
func sheetName(name string, used map[string]int) string {
	used[name]++
	if n := used[name]; n > 1 {
		return fmt.Sprintf("%s (%d)", name, n)
	}
	return name
}
