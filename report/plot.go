package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Chart dimensions
const (
	PlotWidth  = 8 * vg.Inch
	PlotHeight = 5 * vg.Inch
	PlotDPI    = 150
)

// WritePlot renders total cycle time per variant as a PNG at path, with the
// budget drawn as a dashed horizontal line.
func WritePlot(path string, runs []RunResult) error {
	if len(runs) == 0 {
		return ErrNoRuns
	}

	p := plot.New()
	p.Title.Text = "Cycle total vs budget"
	p.X.Label.Text = "cycle"
	p.Y.Label.Text = "total (ms)"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	maxCycle := 1
	budget := runs[0].Info.BudgetMs
	for i, r := range runs {
		if len(r.Records) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(r.Records))
		for j, rec := range r.Records {
			pts[j].X = float64(rec.Cycle)
			pts[j].Y = rec.TotalMs
			if rec.Cycle > maxCycle {
				maxCycle = rec.Cycle
			}
		}
		line, marks, err := plotter.NewLinePoints(pts)
		if err != nil {
			return fmt.Errorf("plot %s: %w", r.Info.Variant, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		marks.Color = plotutil.Color(i)
		marks.Shape = plotutil.Shape(i)
		p.Add(line, marks)
		p.Legend.Add(r.Info.Variant.String(), line, marks)
	}

	limit, err := plotter.NewLine(plotter.XYs{{X: 1, Y: budget}, {X: float64(maxCycle), Y: budget}})
	if err != nil {
		return fmt.Errorf("plot budget: %w", err)
	}
	limit.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
	limit.Width = vg.Points(2)
	p.Add(limit)
	p.Legend.Add(fmt.Sprintf("budget %.1f ms", budget), limit)

	return savePNG(p, path)
}

func savePNG(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("plot: create directory: %w", err)
	}

	c := vgimg.NewWith(vgimg.UseWH(PlotWidth, PlotHeight), vgimg.UseDPI(PlotDPI))
	p.Draw(draw.New(c))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("plot: write png: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("plot: write png: %w", err)
	}
	return f.Close()
}
