package chart

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/scibench/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func nonEmptyFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestValidationCurve(t *testing.T) {
	params := []float64{1e-6, 1e-4, 1e-2}
	train := mat.NewDense(3, 4, []float64{
		0.5, 0.5, 0.6, 0.4,
		0.8, 0.9, 0.85, 0.8,
		1, 1, 1, 1,
	})
	test := mat.NewDense(3, 4, []float64{
		0.5, 0.4, 0.6, 0.5,
		0.8, 0.7, 0.8, 0.9,
		0.6, 0.5, 0.7, 0.6,
	})

	for _, ext := range []string{"png", "svg"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "curve."+ext)
			require.NoError(t, ValidationCurve(path, params, train, test))
			nonEmptyFile(t, path)
		})
	}
}

func TestValidationCurveRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	scores := mat.NewDense(2, 2, []float64{1, 1, 1, 1})

	err := ValidationCurve(filepath.Join(dir, "a.png"), []float64{1, 2, 3}, scores, scores)
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	err = ValidationCurve(filepath.Join(dir, "b.png"), []float64{0, 1}, scores, scores)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestBandOf(t *testing.T) {
	scores := mat.NewDense(1, 2, []float64{0.2, 0.4})
	mean, lo, hi := bandOf([]float64{10}, scores)
	assert.InDelta(t, 0.3, mean[0].Y, 1e-12)
	assert.InDelta(t, 0.2, lo[0].Y, 1e-12)
	assert.InDelta(t, 0.4, hi[0].Y, 1e-12)
	assert.Equal(t, 10.0, mean[0].X)
}

// signOfX scores each point by its first coordinate.
func signOfX(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, X.At(i, 0))
	}
	return out, nil
}

func TestNewGrid(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{-1, 0, 1, 2, 0, 4})
	g, err := NewGrid(X, signOfX, 5)
	require.NoError(t, err)

	c, r := g.Dims()
	assert.Equal(t, 5, c)
	assert.Equal(t, 5, r)
	assert.Equal(t, -1.0, g.X(0))
	assert.Equal(t, 1.0, g.X(4))
	assert.Equal(t, 0.0, g.Y(0))
	assert.Equal(t, 4.0, g.Y(4))
	assert.Equal(t, g.X(3), g.Z(3, 1))

	side := sideGrid{g}
	assert.Equal(t, 0.0, side.Z(0, 0))
	assert.Equal(t, 1.0, side.Z(4, 0))
}

func TestNewGridConstantColumn(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{3, 1, 3, 2})
	g, err := NewGrid(X, signOfX, 3)
	require.NoError(t, err)
	assert.Equal(t, 2.5, g.X(0))
	assert.Equal(t, 3.5, g.X(2))
}

func TestNewGridErrors(t *testing.T) {
	_, err := NewGrid(mat.NewDense(2, 1, nil), signOfX, 5)
	assert.Error(t, err)

	_, err = NewGrid(mat.NewDense(2, 2, []float64{0, 0, 1, 1}), signOfX, 1)
	assert.Error(t, err)

	failing := func(mat.Matrix) (mat.Matrix, error) { return nil, errors.New("boom") }
	_, err = NewGrid(mat.NewDense(2, 2, []float64{0, 0, 1, 1}), failing, 4)
	assert.Error(t, err)
}

func TestDecisionSurface(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{-2, -1, -1, 1, 1, -1, 2, 1})
	y := []float64{-1, -1, 1, 1}
	g, err := NewGrid(X, signOfX, 20)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "linear.png")
	require.NoError(t, DecisionSurface(path, "linear", X, y, []bool{false, true, false, true}, g))
	nonEmptyFile(t, path)
}

func TestDecisionSurfaceFlatScores(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{0, 0, 1, 1})
	flat := func(X mat.Matrix) (mat.Matrix, error) {
		r, _ := X.Dims()
		return mat.NewVecDense(r, nil), nil
	}
	g, err := NewGrid(X, flat, 4)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "flat.png")
	require.NoError(t, DecisionSurface(path, "flat", X, []float64{1, 1}, nil, g))
	nonEmptyFile(t, path)
}

func TestDecisionSurfaceErrors(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{0, 0, 1, 1})
	g, err := NewGrid(X, signOfX, 3)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "x.png")

	assert.Error(t, DecisionSurface(path, "t", X, []float64{1}, nil, g))
	assert.Error(t, DecisionSurface(path, "t", X, []float64{1, -1}, []bool{true}, g))
	assert.Error(t, DecisionSurface(path, "t", X, []float64{1, -1}, nil, nil))
}

func TestRegressionLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ols.png")
	require.NoError(t, RegressionLine(path, []float64{3, 1, 2}, []float64{6, 2, 4}))
	nonEmptyFile(t, path)

	assert.Error(t, RegressionLine(path, []float64{1}, nil))
	assert.Error(t, RegressionLine(path, nil, nil))
}

func TestSaveUnknownExtension(t *testing.T) {
	err := RegressionLine(filepath.Join(t.TempDir(), "ols.unknown"), []float64{1, 2}, []float64{1, 2})
	assert.Error(t, err)
}
