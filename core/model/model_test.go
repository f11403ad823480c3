package model

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/scibench/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestStateManager(t *testing.T) {
	sm := NewStateManager()
	assert.False(t, sm.IsFitted())

	err := sm.RequireFitted("DummyClassifier", "Predict")
	require.Error(t, err)
	var nfe *errors.NotFittedError
	assert.True(t, errors.As(err, &nfe))

	sm.SetDimensions(4, 10)
	sm.SetFitted()
	assert.NoError(t, sm.RequireFitted("DummyClassifier", "Predict"))
	assert.NoError(t, sm.CheckFeatures("Predict", 4))

	err = sm.CheckFeatures("Predict", 3)
	var dimErr *errors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 3, dimErr.Got)

	sm.Reset()
	assert.False(t, sm.IsFitted())
	f, n := sm.GetDimensions()
	assert.Zero(t, f)
	assert.Zero(t, n)
}

type payload struct {
	Name   string
	Values []float64
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "payload.gob")
	in := payload{Name: "mnist", Values: []float64{0, 0.5, 1}}

	require.NoError(t, SaveModel(in, path))

	var out payload
	require.NoError(t, LoadModel(&out, path))
	assert.Equal(t, in, out)

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestLoadModelErrors(t *testing.T) {
	var out payload
	assert.Error(t, LoadModel(&out, filepath.Join(t.TempDir(), "missing.gob")))
	assert.Error(t, LoadModelFromReader(&out, bytes.NewBufferString("not gob")))
}

func TestCheckXy(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})

	n, f, err := CheckXy("Fit", X, ColumnOf([]float64{0, 1, 0}))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, f)

	_, _, err = CheckXy("Fit", X, ColumnOf([]float64{0, 1}))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	_, _, err = CheckXy("Fit", X, mat.NewDense(3, 2, nil))
	assert.Error(t, err)

	_, _, err = CheckXy("Fit", X, ColumnOf([]float64{0, math.NaN(), 1}))
	assert.Error(t, err)
}

func TestClassesAndEncoding(t *testing.T) {
	y := ColumnOf([]float64{7, 3, 7, 5})
	classes := UniqueClasses(y)
	assert.Equal(t, []float64{3, 5, 7}, classes)
	assert.Equal(t, []int{2, 0, 2, 1}, EncodeLabels(y, classes))
}

func TestAsDense(t *testing.T) {
	d := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	assert.Same(t, d, AsDense(d))

	tr := AsDense(d.T())
	r, c := tr.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 4.0, tr.At(0, 1))
}
