package linear_model

import (
	"testing"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var _ model.Fitter = (*LinearRegression)(nil)

func TestLinearRegressionRecoversLine(t *testing.T) {
	// y = 2*x1 - 3*x2 + 5
	X := mat.NewDense(5, 2, []float64{
		1, 0,
		0, 1,
		1, 1,
		2, 3,
		4, 1,
	})
	y := mat.NewVecDense(5, nil)
	for i := 0; i < 5; i++ {
		y.SetVec(i, 2*X.At(i, 0)-3*X.At(i, 1)+5)
	}

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	assert.InDeltaSlice(t, []float64{2, -3}, lr.Coef(), 1e-10)
	assert.InDelta(t, 5.0, lr.Intercept(), 1e-10)
	assert.Equal(t, 2, lr.Rank())

	score, err := lr.Score(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-12)
}

func TestLinearRegressionWithoutIntercept(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewVecDense(3, []float64{2, 4, 6})

	lr := NewLinearRegression(WithLRFitIntercept(false))
	require.NoError(t, lr.Fit(X, y))
	assert.InDelta(t, 2.0, lr.Coef()[0], 1e-12)
	assert.Equal(t, 0.0, lr.Intercept())
	assert.Equal(t, false, lr.GetParams()["fit_intercept"])
}

func TestLinearRegressionUnderdetermined(t *testing.T) {
	// More features than samples: minimum-norm solution interpolates y.
	X := mat.NewDense(3, 5, []float64{
		1, 0, 2, 0, 1,
		0, 1, 0, 3, 0,
		1, 1, 1, 1, 1,
	})
	y := mat.NewVecDense(3, []float64{1, 2, 3})

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	pred, err := lr.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, y.AtVec(i), pred.At(i, 0), 1e-9)
	}
	assert.LessOrEqual(t, lr.Rank(), 2)
}

func TestLinearRegressionCollinearColumns(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 2, 2, 4, 3, 6, 4, 8})
	y := mat.NewVecDense(4, []float64{1, 2, 3, 4})

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	assert.Equal(t, 1, lr.Rank())
	pred, err := lr.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, y.AtVec(i), pred.At(i, 0), 1e-9)
	}
}

func TestLinearRegressionErrors(t *testing.T) {
	lr := NewLinearRegression()
	_, err := lr.Predict(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	assert.Error(t, lr.Fit(X, mat.NewVecDense(2, []float64{1, 2})))

	require.NoError(t, lr.Fit(X, mat.NewVecDense(3, []float64{1, 2, 4})))
	_, err = lr.Predict(mat.NewDense(1, 2, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	assert.Error(t, lr.SetParams(map[string]interface{}{"normalize": true}))
}
