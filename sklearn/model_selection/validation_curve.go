package model_selection

import (
	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/core/parallel"
	"github.com/YuminosukeSato/scibench/metrics"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ClassifierFactory builds a fresh classifier for one parameter value.
type ClassifierFactory func(param float64) model.Classifier

// CurveResult stores the accuracy of every (parameter, fold) pair.
type CurveResult struct {
	ParamRange  []float64
	TrainScores *mat.Dense // len(ParamRange) x nSplits
	TestScores  *mat.Dense
}

func rowMeanStd(m *mat.Dense) (mean, std []float64) {
	r, _ := m.Dims()
	mean = make([]float64, r)
	std = make([]float64, r)
	for i := 0; i < r; i++ {
		mean[i], std[i] = stat.PopMeanStdDev(m.RawRowView(i), nil)
	}
	return mean, std
}

// TrainMeanStd returns the per-parameter mean and standard deviation of
// the training accuracy.
func (r *CurveResult) TrainMeanStd() ([]float64, []float64) { return rowMeanStd(r.TrainScores) }

// TestMeanStd returns the per-parameter mean and standard deviation of the
// held-out accuracy.
func (r *CurveResult) TestMeanStd() ([]float64, []float64) { return rowMeanStd(r.TestScores) }

// ValidationCurve fits one classifier per (parameter, fold) pair on up to
// nJobs workers and scores it with accuracy on both sides of the fold.
func ValidationCurve(factory ClassifierFactory, X, y mat.Matrix, paramRange []float64, cv Splitter, nJobs int) (*CurveResult, error) {
	if len(paramRange) == 0 {
		return nil, errors.NewValueError("ValidationCurve", "empty parameter range")
	}
	folds := cv.Split(X, y)
	nFolds := len(folds)

	result := &CurveResult{
		ParamRange:  append([]float64(nil), paramRange...),
		TrainScores: mat.NewDense(len(paramRange), nFolds, nil),
		TestScores:  mat.NewDense(len(paramRange), nFolds, nil),
	}

	type part struct {
		X *mat.Dense
		y *mat.VecDense
	}
	train := make([]part, nFolds)
	test := make([]part, nFolds)
	for i, f := range folds {
		train[i].X, train[i].y = Subset(X, y, f.TrainIndices)
		test[i].X, test[i].y = Subset(X, y, f.TestIndices)
	}

	err := parallel.ForEach(len(paramRange)*nFolds, nJobs, func(task int) error {
		p, f := task/nFolds, task%nFolds
		clf := factory(paramRange[p])
		if err := clf.Fit(train[f].X, train[f].y); err != nil {
			return errors.Wrapf(err, "fold %d, param %g", f, paramRange[p])
		}
		trainScore, err := score(clf, train[f].X, train[f].y)
		if err != nil {
			return err
		}
		testScore, err := score(clf, test[f].X, test[f].y)
		if err != nil {
			return err
		}
		result.TrainScores.Set(p, f, trainScore)
		result.TestScores.Set(p, f, testScore)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func score(clf model.Classifier, X *mat.Dense, y *mat.VecDense) (float64, error) {
	pred, err := clf.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyScore(y, pred)
}
