package stats

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"knapevo/internal/model"
)

var (
	bestColor    = color.RGBA{R: 220, A: 255}
	averageColor = color.RGBA{G: 160, A: 255}
	worstColor   = color.RGBA{B: 220, A: 255}
)

// PlotFitness renders best, average and worst fitness per generation. The
// image format follows the extension of path (png, svg, pdf, ...).
func PlotFitness(history []model.FitnessRecord, title, path string) error {
	if len(history) == 0 {
		return fmt.Errorf("fitness history is empty")
	}
	if title == "" {
		title = "Fitness Evolution"
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = "Fitness"
	p.Add(plotter.NewGrid())

	best := make(plotter.XYs, len(history))
	average := make(plotter.XYs, len(history))
	worst := make(plotter.XYs, len(history))
	for i, record := range history {
		x := float64(record.Generation)
		best[i] = plotter.XY{X: x, Y: record.Best}
		average[i] = plotter.XY{X: x, Y: record.Average}
		worst[i] = plotter.XY{X: x, Y: record.Worst}
	}

	series := []struct {
		label string
		data  plotter.XYs
		color color.Color
	}{
		{"Best Fitness", best, bestColor},
		{"Average Fitness", average, averageColor},
		{"Worst Fitness", worst, worstColor},
	}
	for _, s := range series {
		line, err := plotter.NewLine(s.data)
		if err != nil {
			return fmt.Errorf("plot %s: %w", s.label, err)
		}
		line.Color = s.color
		p.Add(line)
		p.Legend.Add(s.label, line)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}
