package metrics

import (
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ZeroOneLoss returns the fraction of rows where yPred differs from yTrue.
// Both inputs must be n×1 column vectors. The result is in [0, 1] and is
// 0 exactly when every prediction matches.
func ZeroOneLoss(yTrue, yPred mat.Matrix) (float64, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 {
		return 0, errors.NewValueError("ZeroOneLoss", "empty label vector")
	}
	if cTrue != 1 || cPred != 1 {
		return 0, errors.NewValueError("ZeroOneLoss", "labels must be column vectors (n×1 matrix)")
	}
	if rPred != rTrue {
		return 0, errors.NewDimensionError("ZeroOneLoss", rTrue, rPred, 0)
	}

	var miss int
	for i := 0; i < rTrue; i++ {
		if yTrue.At(i, 0) != yPred.At(i, 0) {
			miss++
		}
	}
	return float64(miss) / float64(rTrue), nil
}

// AccuracyScore returns 1 - ZeroOneLoss.
func AccuracyScore(yTrue, yPred mat.Matrix) (float64, error) {
	loss, err := ZeroOneLoss(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - loss, nil
}
