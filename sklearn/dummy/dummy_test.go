package dummy

import (
	"testing"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var (
	_ model.ProbabilisticClassifier = (*DummyClassifier)(nil)
	_ model.Seeded                  = (*DummyClassifier)(nil)
)

func fixture() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(10, 1, nil)
	y := model.ColumnOf([]float64{1, 1, 1, 1, 1, 1, 0, 0, 0, 0})
	return X, y
}

func TestDummyPrior(t *testing.T) {
	X, y := fixture()
	d := NewDummyClassifier()
	require.NoError(t, d.Fit(X, y))

	pred, err := d.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		assert.Equal(t, 1.0, pred.At(i, 0))
	}

	proba, err := d.PredictProba(X)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, proba.At(0, 0), 1e-12)
	assert.InDelta(t, 0.6, proba.At(0, 1), 1e-12)
}

func TestDummyRandomStrategiesAreSeeded(t *testing.T) {
	for _, strategy := range []string{"stratified", "uniform"} {
		t.Run(strategy, func(t *testing.T) {
			X, y := fixture()
			run := func() mat.Matrix {
				d := NewDummyClassifier(WithStrategy(strategy))
				d.SetRandomState(3)
				require.NoError(t, d.Fit(X, y))
				p, err := d.Predict(X)
				require.NoError(t, err)
				return p
			}
			p1, p2 := run(), run()
			assert.True(t, mat.Equal(p1, p2))
			for i := 0; i < 10; i++ {
				assert.Contains(t, []float64{0, 1}, p1.At(i, 0))
			}
		})
	}
}

func TestDummyErrors(t *testing.T) {
	X, y := fixture()

	_, err := NewDummyClassifier().Predict(X)
	var nfe *errors.NotFittedError
	assert.True(t, errors.As(err, &nfe))

	assert.Error(t, NewDummyClassifier(WithStrategy("constant")).Fit(X, y))

	d := NewDummyClassifier()
	require.NoError(t, d.Fit(X, y))
	_, err = d.Predict(mat.NewDense(2, 3, nil))
	assert.Error(t, err)
}
