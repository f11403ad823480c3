package chart

import (
	"image/color"
	"math"

	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// DecisionFunc returns one signed score per row of X (an n x 1 matrix).
type DecisionFunc func(X mat.Matrix) (mat.Matrix, error)

// Grid samples a DecisionFunc on a regular Steps x Steps lattice over the
// bounding box of the first two columns of X.
type Grid struct {
	xs, ys []float64
	z      *mat.Dense // z[r][c] is the score at (xs[c], ys[r])
}

// NewGrid evaluates decision on the lattice spanning X[:, 0] and X[:, 1].
func NewGrid(X mat.Matrix, decision DecisionFunc, steps int) (*Grid, error) {
	r, c := X.Dims()
	if r == 0 || c < 2 {
		return nil, errors.NewValueError("chart.NewGrid", "need at least one row and two columns")
	}
	if steps < 2 {
		return nil, errors.NewValidationError("steps", "must be >= 2", steps)
	}
	xcol := mat.Col(nil, 0, X)
	ycol := mat.Col(nil, 1, X)
	g := &Grid{xs: span(xcol, steps), ys: span(ycol, steps)}

	pts := mat.NewDense(steps*steps, 2, nil)
	for i, y := range g.ys {
		for j, x := range g.xs {
			pts.Set(i*steps+j, 0, x)
			pts.Set(i*steps+j, 1, y)
		}
	}
	scores, err := decision(pts)
	if err != nil {
		return nil, errors.Wrap(err, "chart.NewGrid")
	}
	if n, _ := scores.Dims(); n != steps*steps {
		return nil, errors.NewDimensionError("chart.NewGrid", steps*steps, n, 0)
	}
	g.z = mat.NewDense(steps, steps, nil)
	for i := 0; i < steps; i++ {
		for j := 0; j < steps; j++ {
			g.z.Set(i, j, scores.At(i*steps+j, 0))
		}
	}
	return g, nil
}

// span covers [min, max] of v; a constant column is widened so the lattice
// stays strictly increasing.
func span(v []float64, steps int) []float64 {
	lo, hi := floats.Min(v), floats.Max(v)
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	return floats.Span(make([]float64, steps), lo, hi)
}

// Dims implements plotter.GridXYZ.
func (g *Grid) Dims() (c, r int) { return len(g.xs), len(g.ys) }

// Z implements plotter.GridXYZ.
func (g *Grid) Z(c, r int) float64 { return g.z.At(r, c) }

// X implements plotter.GridXYZ.
func (g *Grid) X(c int) float64 { return g.xs[c] }

// Y implements plotter.GridXYZ.
func (g *Grid) Y(r int) float64 { return g.ys[r] }

// sideGrid maps scores to 0/1 by sign for the filled background.
type sideGrid struct{ *Grid }

func (s sideGrid) Z(c, r int) float64 {
	if s.Grid.Z(c, r) > 0 {
		return 1
	}
	return 0
}

type fixedPalette []color.Color

var _ palette.Palette = fixedPalette(nil)

func (p fixedPalette) Colors() []color.Color { return p }

var (
	negativeFill = color.NRGBA{R: 166, G: 206, B: 227, A: 255}
	positiveFill = color.NRGBA{R: 253, G: 191, B: 111, A: 255}
	negativeDot  = color.NRGBA{R: 31, G: 120, B: 180, A: 255}
	positiveDot  = color.NRGBA{R: 227, G: 26, B: 28, A: 255}
)

// DecisionSurface draws the sign of the decision function as a filled
// background, its -0.5/0/+0.5 level lines, every sample coloured by label
// and a ring around each sample for which testMask is true. Labels > 0 are
// the positive class.
func DecisionSurface(path, title string, X mat.Matrix, y []float64, testMask []bool, grid *Grid) error {
	n, _ := X.Dims()
	if len(y) != n {
		return errors.NewDimensionError("chart.DecisionSurface", n, len(y), 0)
	}
	if testMask != nil && len(testMask) != n {
		return errors.NewDimensionError("chart.DecisionSurface", n, len(testMask), 0)
	}
	if grid == nil {
		return errors.NewValueError("chart.DecisionSurface", "grid is required")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "feature 0"
	p.Y.Label.Text = "feature 1"

	hm := plotter.NewHeatMap(sideGrid{grid}, fixedPalette{negativeFill, positiveFill})
	hm.Min, hm.Max = 0, 1
	p.Add(hm)

	if lo, hi := floats.Min(grid.z.RawMatrix().Data), floats.Max(grid.z.RawMatrix().Data); lo < hi && !math.IsInf(hi-lo, 0) {
		levels := []float64{-0.5, 0, 0.5}
		ct := plotter.NewContour(grid, levels, fixedPalette{color.Black})
		dashed := draw.LineStyle{Color: color.Black, Width: vg.Points(1), Dashes: []vg.Length{vg.Points(4), vg.Points(3)}}
		solid := draw.LineStyle{Color: color.Black, Width: vg.Points(1)}
		ct.LineStyles = []draw.LineStyle{dashed, solid, dashed}
		p.Add(ct)
	}

	var neg, pos, tests plotter.XYs
	for i := 0; i < n; i++ {
		pt := plotter.XY{X: X.At(i, 0), Y: X.At(i, 1)}
		if y[i] > 0 {
			pos = append(pos, pt)
		} else {
			neg = append(neg, pt)
		}
		if testMask != nil && testMask[i] {
			tests = append(tests, pt)
		}
	}
	for _, grp := range []struct {
		pts plotter.XYs
		col color.Color
	}{{neg, negativeDot}, {pos, positiveDot}} {
		if len(grp.pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(grp.pts)
		if err != nil {
			return errors.Wrap(err, "chart.DecisionSurface")
		}
		sc.GlyphStyle.Color = grp.col
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
	}
	if len(tests) > 0 {
		ring, err := plotter.NewScatter(tests)
		if err != nil {
			return errors.Wrap(err, "chart.DecisionSurface")
		}
		ring.GlyphStyle.Color = black
		ring.GlyphStyle.Shape = draw.RingGlyph{}
		ring.GlyphStyle.Radius = vg.Points(6)
		p.Add(ring)
	}

	return save(p, path)
}
