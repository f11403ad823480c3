package preprocessing

import (
	"testing"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var _ model.Transformer = (*StandardScaler)(nil)

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
		4, 5,
	})
	s := NewStandardScaler()
	Xs, err := s.FitTransform(X)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{2.5, 5}, s.Mean(), 1e-12)
	// constant column keeps scale 1
	assert.InDeltaSlice(t, []float64{1.118033988749895, 1}, s.Scale(), 1e-12)

	col := mat.Col(nil, 0, Xs)
	assert.InDelta(t, 0, col[0]+col[1]+col[2]+col[3], 1e-12)
	assert.Equal(t, 0.0, Xs.At(2, 1))

	back, err := s.InverseTransform(Xs)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))
}

func TestStandardScalerOptions(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{2, 4})

	s := NewStandardScaler(WithMean(false))
	Xs, err := s.FitTransform(X)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, Xs.At(0, 0), 1e-12)

	s = NewStandardScaler(WithStd(false))
	Xs, err = s.FitTransform(X)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, Xs.At(0, 0), 1e-12)
	assert.Equal(t, map[string]interface{}{"with_mean": true, "with_std": false}, s.GetParams())
}

func TestStandardScalerErrors(t *testing.T) {
	s := NewStandardScaler()
	_, err := s.Transform(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	assert.Error(t, s.Fit(&mat.Dense{}))

	require.NoError(t, s.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = s.Transform(mat.NewDense(1, 3, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}
