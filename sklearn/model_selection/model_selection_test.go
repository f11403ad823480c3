package model_selection

import (
	"slices"
	"testing"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/core/random"
	"github.com/YuminosukeSato/scibench/datasets"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"github.com/YuminosukeSato/scibench/sklearn/dummy"
	"github.com/YuminosukeSato/scibench/sklearn/svm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var (
	_ Splitter = (*KFold)(nil)
	_ Splitter = (*StratifiedKFold)(nil)
)

func rows(n int) (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y.SetVec(i, float64(i%3))
	}
	return X, y
}

func assertPartition(t *testing.T, folds []CVFold, n int) {
	t.Helper()
	seen := make([]int, n)
	for _, f := range folds {
		assert.Equal(t, n, len(f.TrainIndices)+len(f.TestIndices))
		for _, i := range f.TestIndices {
			seen[i]++
		}
		all := append(slices.Clone(f.TrainIndices), f.TestIndices...)
		slices.Sort(all)
		for i, v := range all {
			require.Equal(t, i, v)
		}
	}
	for i, c := range seen {
		assert.Equal(t, 1, c, "sample %d tested %d times", i, c)
	}
}

func TestKFold(t *testing.T) {
	X, y := rows(10)
	folds := NewKFold(3, false, nil).Split(X, y)
	require.Len(t, folds, 3)
	assert.Equal(t, []int{0, 1, 2, 3}, folds[0].TestIndices)
	assert.Equal(t, []int{4, 5, 6}, folds[1].TestIndices)
	assert.Equal(t, []int{7, 8, 9}, folds[2].TestIndices)
	assertPartition(t, folds, 10)

	shuffled := NewKFold(3, true, random.Seed(1)).Split(X, y)
	assertPartition(t, shuffled, 10)
	again := NewKFold(3, true, random.Seed(1)).Split(X, y)
	assert.Equal(t, shuffled, again)

	assert.Equal(t, 5, NewKFold(1, false, nil).GetNSplits())
}

func TestStratifiedKFold(t *testing.T) {
	X, y := rows(30)
	skf := NewStratifiedKFold(5, false, nil)
	folds := skf.Split(X, y)
	require.Len(t, folds, skf.GetNSplits())
	assertPartition(t, folds, 30)

	for _, f := range folds {
		counts := map[float64]int{}
		for _, i := range f.TestIndices {
			counts[y.AtVec(i)]++
		}
		assert.Equal(t, map[float64]int{0: 2, 1: 2, 2: 2}, counts)
		assert.True(t, slices.IsSorted(f.TestIndices))
	}

	a := NewStratifiedKFold(5, true, random.Seed(3)).Split(X, y)
	b := NewStratifiedKFold(5, true, random.Seed(3)).Split(X, y)
	assert.Equal(t, a, b)
	assertPartition(t, a, 30)
}

func TestTrainTestSplit(t *testing.T) {
	X, y := rows(10)
	s, err := TrainTestSplit(X, y, 0.25, random.Seed(42))
	require.NoError(t, err)

	r, _ := s.XTest.Dims()
	assert.Equal(t, 3, r) // ceil(2.5)
	r, _ = s.XTrain.Dims()
	assert.Equal(t, 7, r)

	var got []int
	for i := 0; i < s.YTest.Len(); i++ {
		assert.Equal(t, float64(int(s.XTest.At(i, 0))%3), s.YTest.AtVec(i))
		got = append(got, int(s.XTest.At(i, 0)))
	}
	for i := 0; i < s.YTrain.Len(); i++ {
		got = append(got, int(s.XTrain.At(i, 0)))
	}
	slices.Sort(got)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)

	require.Len(t, s.TestIndices, 3)
	for i, idx := range s.TestIndices {
		assert.Equal(t, float64(idx), s.XTest.At(i, 0))
	}
	assert.Len(t, s.TrainIndices, 7)

	again, err := TrainTestSplit(X, y, 0.25, random.Seed(42))
	require.NoError(t, err)
	assert.True(t, mat.Equal(s.XTest, again.XTest))
}

func TestTrainTestSplitErrors(t *testing.T) {
	X, y := rows(4)
	_, err := TrainTestSplit(X, y, 0, nil)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = TrainTestSplit(X, mat.NewVecDense(3, nil), 0.5, nil)
	assert.Error(t, err)

	_, err = TrainTestSplit(mat.NewDense(1, 1, nil), mat.NewVecDense(1, nil), 0.5, nil)
	assert.Error(t, err)
}

func TestValidationCurve(t *testing.T) {
	X, y, err := datasets.MakeClassification(
		datasets.WithNSamples(120), datasets.WithNFeatures(4),
		datasets.WithNInformative(2), datasets.WithNRedundant(0),
		datasets.WithClassSep(2), datasets.WithRandomState(0),
	)
	require.NoError(t, err)

	params := []float64{1e-4, 1e-1}
	factory := func(g float64) model.Classifier { return svm.NewSVC(svm.WithGamma(g)) }
	res, err := ValidationCurve(factory, X, y, params, NewStratifiedKFold(3, false, nil), 2)
	require.NoError(t, err)

	r, c := res.TestScores.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)

	trainMean, trainStd := res.TrainMeanStd()
	testMean, _ := res.TestMeanStd()
	assert.Len(t, trainStd, 2)
	assert.Greater(t, trainMean[1], trainMean[0])
	assert.GreaterOrEqual(t, testMean[1], 0.8)
}

func TestValidationCurvePropagatesErrors(t *testing.T) {
	X, y := rows(9)
	factory := func(float64) model.Classifier { return dummy.NewDummyClassifier(dummy.WithStrategy("bogus")) }
	_, err := ValidationCurve(factory, X, y, []float64{1}, NewKFold(3, false, nil), 1)
	assert.Error(t, err)

	_, err = ValidationCurve(factory, X, y, nil, NewKFold(3, false, nil), 1)
	assert.Error(t, err)
}
