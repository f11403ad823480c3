// Package chart renders the demo figures with gonum/plot. The output format
// follows the file extension of path (png, svg, pdf, eps, jpg, tif).
package chart

import (
	"image/color"
	"sort"

	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	darkOrange = color.NRGBA{R: 255, G: 140, A: 255}
	navy       = color.NRGBA{B: 128, A: 255}
	blue       = color.NRGBA{B: 255, A: 255}
	black      = color.NRGBA{A: 255}
)

const (
	figWidth  = 6 * vg.Inch
	figHeight = 4 * vg.Inch
)

// ValidationCurve draws mean train and test scores against a log-scaled
// parameter axis, each with a ±1 standard deviation band. Row i of train
// and test holds the per-fold scores for paramRange[i].
func ValidationCurve(path string, paramRange []float64, train, test mat.Matrix) error {
	tr, _ := train.Dims()
	te, _ := test.Dims()
	if tr != len(paramRange) || te != len(paramRange) {
		return errors.NewDimensionError("chart.ValidationCurve", len(paramRange), tr, 0)
	}
	for _, v := range paramRange {
		if v <= 0 {
			return errors.NewValidationError("paramRange", "must be positive on a log axis", v)
		}
	}

	p := plot.New()
	p.Title.Text = "Validation Curve with SVM"
	p.X.Label.Text = "γ"
	p.Y.Label.Text = "Score"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Min, p.Y.Max = 0, 1.1

	series := []struct {
		label  string
		scores mat.Matrix
		col    color.NRGBA
	}{
		{"Training score", train, darkOrange},
		{"Cross-validation score", test, navy},
	}
	for _, s := range series {
		mean, lo, hi := bandOf(paramRange, s.scores)

		band, err := plotter.NewPolygon(append(lo, reverse(hi)...))
		if err != nil {
			return errors.Wrap(err, "chart.ValidationCurve")
		}
		fill := s.col
		fill.A = 51
		band.Color = fill
		band.LineStyle.Width = 0

		line, err := plotter.NewLine(mean)
		if err != nil {
			return errors.Wrap(err, "chart.ValidationCurve")
		}
		line.LineStyle.Color = s.col
		line.LineStyle.Width = vg.Points(2)

		p.Add(band, line)
		p.Legend.Add(s.label, line)
	}
	p.Legend.Top = true

	return save(p, path)
}

// bandOf returns the per-row mean and the mean∓std boundaries.
func bandOf(xs []float64, scores mat.Matrix) (mean, lo, hi plotter.XYs) {
	n := len(xs)
	mean = make(plotter.XYs, n)
	lo = make(plotter.XYs, n)
	hi = make(plotter.XYs, n)
	for i, x := range xs {
		m, sd := stat.PopMeanStdDev(mat.Row(nil, i, scores), nil)
		mean[i] = plotter.XY{X: x, Y: m}
		lo[i] = plotter.XY{X: x, Y: m - sd}
		hi[i] = plotter.XY{X: x, Y: m + sd}
	}
	return mean, lo, hi
}

func reverse(pts plotter.XYs) plotter.XYs {
	out := make(plotter.XYs, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// RegressionLine draws the fitted values of a least-squares model against
// one feature. Ticks are hidden; only the shape of the fit matters.
func RegressionLine(path string, x, yPred []float64) error {
	if len(x) != len(yPred) {
		return errors.NewDimensionError("chart.RegressionLine", len(x), len(yPred), 0)
	}
	if len(x) == 0 {
		return errors.NewValueError("chart.RegressionLine", "no points to draw")
	}
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i] = plotter.XY{X: x[i], Y: yPred[i]}
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].X < pts[j].X })

	p := plot.New()
	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "chart.RegressionLine")
	}
	line.LineStyle.Color = blue
	line.LineStyle.Width = vg.Points(3)
	p.Add(line)
	p.X.Tick.Marker = plot.ConstantTicks(nil)
	p.Y.Tick.Marker = plot.ConstantTicks(nil)

	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	if err := p.Save(figWidth, figHeight, path); err != nil {
		return errors.Wrapf(err, "chart: save %s", path)
	}
	return nil
}
